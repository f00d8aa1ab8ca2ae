// Package sources sorts extracted reference files into provenance buckets
// and flattens them into the reference text handed to section generation.
package sources

import (
	"strings"
	"unicode/utf8"

	"github.com/mzhuang1/chanyeops-sub000/internal/extract"
)

// Bucket is a provenance category for a reference file.
type Bucket string

const (
	NationalPolicies Bucket = "national_policies"
	ProvincialPlans  Bucket = "provincial_plans"
	CityPlans        Bucket = "city_plans"
	IndustryAnalysis Bucket = "industry_analysis"
	DataReports      Bucket = "data_reports"
	Other            Bucket = "other"
)

// BucketOrder is the fixed order buckets are presented in.
var BucketOrder = []Bucket{
	NationalPolicies,
	ProvincialPlans,
	CityPlans,
	IndustryAnalysis,
	DataReports,
	Other,
}

var labels = map[Bucket]string{
	NationalPolicies: "国家政策文件",
	ProvincialPlans:  "省级规划文件",
	CityPlans:        "市级规划文件",
	IndustryAnalysis: "行业分析报告",
	DataReports:      "数据统计报告",
	Other:            "其他参考资料",
}

// Label returns the display name of a bucket.
func (b Bucket) Label() string {
	if l, ok := labels[b]; ok {
		return l
	}
	return string(b)
}

// Classify assigns one file to a bucket. Rules are checked in order and the
// first match wins.
func Classify(fileName, text string) Bucket {
	content := strings.ToLower(text)
	name := strings.ToLower(fileName)

	switch {
	case strings.Contains(content, "国务院") || strings.Contains(content, "国家发改委") || strings.Contains(name, "国家"):
		return NationalPolicies
	case strings.Contains(content, "省政府") || strings.Contains(content, "省发改委") || strings.Contains(name, "省"):
		return ProvincialPlans
	case strings.Contains(content, "市政府") || strings.Contains(content, "市发改委") || strings.Contains(name, "市"):
		return CityPlans
	case strings.Contains(name, "分析") || strings.Contains(name, "报告") || strings.Contains(content, "数据"):
		if strings.Contains(name, "行业") || strings.Contains(content, "产业") {
			return IndustryAnalysis
		}
		return DataReports
	}
	return Other
}

// Categorize buckets every file. Every bucket key is present in the result,
// possibly with an empty slice, and files keep their input order.
func Categorize(files []*extract.ExtractedFile) map[Bucket][]*extract.ExtractedFile {
	out := make(map[Bucket][]*extract.ExtractedFile, len(BucketOrder))
	for _, b := range BucketOrder {
		out[b] = []*extract.ExtractedFile{}
	}
	for _, f := range files {
		b := Classify(f.FileName, f.ExtractedText)
		out[b] = append(out[b], f)
	}
	return out
}

// BuildReferenceText flattens the buckets in BucketOrder. Each file's text is
// cut to excerptRunes characters and followed by an ellipsis marker. Empty
// buckets are omitted; no files at all yields "".
func BuildReferenceText(buckets map[Bucket][]*extract.ExtractedFile, excerptRunes int) string {
	var b strings.Builder
	for _, bucket := range BucketOrder {
		files := buckets[bucket]
		if len(files) == 0 {
			continue
		}
		b.WriteString("\n\n## ")
		b.WriteString(bucket.Label())
		b.WriteString(":\n")
		for _, f := range files {
			b.WriteString("\n### ")
			b.WriteString(f.FileName)
			b.WriteString("\n")
			b.WriteString(Excerpt(f.ExtractedText, excerptRunes))
			b.WriteString("...\n")
		}
	}
	return b.String()
}

// Excerpt returns at most n leading characters of s without splitting a
// multi-byte character. n <= 0 means no limit.
func Excerpt(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
