package planning

import (
	"context"
	"fmt"
	"strings"

	"github.com/mzhuang1/chanyeops-sub000/internal/llm"
	"github.com/mzhuang1/chanyeops-sub000/internal/templates"
)

const (
	noReferencePlaceholder = "暂无参考资料"
	noSearchPlaceholder    = "暂无网络搜索结果"
)

// SectionGenerator drafts one section with a single generation call.
type SectionGenerator struct {
	LLM         llm.Generator
	Temperature float64
	MaxTokens   int
}

// BuildPrompt renders the drafting prompt for one section.
func BuildPrompt(section templates.Section, region, planType, referenceText, webText string) string {
	if referenceText == "" {
		referenceText = noReferencePlaceholder
	}
	if webText == "" {
		webText = noSearchPlaceholder
	}

	var b strings.Builder
	fmt.Fprintf(&b, "你是一位资深的政府规划专家，正在为%s编写%s发展规划的\"%s\"章节。\n\n", region, planType, section.Title)
	b.WriteString("章节要求：\n")
	fmt.Fprintf(&b, "- 需要包含以下子章节：%s\n", strings.Join(section.Subsections, "、"))
	fmt.Fprintf(&b, "- 具体要求：%s\n", section.AuthoringBrief)
	fmt.Fprintf(&b, "- 最少字数：%d字\n\n", section.MinWords)
	fmt.Fprintf(&b, "参考资料：\n%s\n\n", referenceText)
	fmt.Fprintf(&b, "最新政策和数据：\n%s\n\n", webText)
	b.WriteString("请根据以上资料，编写专业、详实的规划内容，要求：\n")
	b.WriteString("1. 内容要符合政府规划文件的专业规范\n")
	b.WriteString("2. 数据要准确，引用要恰当\n")
	b.WriteString("3. 结构清晰，逻辑严密\n")
	b.WriteString("4. 语言正式，表述准确\n")
	b.WriteString("5. 确保字数达到要求\n\n")
	b.WriteString("请直接输出章节内容，不需要额外说明：")
	return b.String()
}

// Generate drafts a section. The model reply becomes the content verbatim.
func (g *SectionGenerator) Generate(ctx context.Context, section templates.Section, region, planType, referenceText, webText string) (GeneratedSection, error) {
	prompt := BuildPrompt(section, region, planType, referenceText, webText)
	content, err := g.LLM.Complete(ctx, prompt, llm.Options{
		Temperature: g.Temperature,
		MaxTokens:   g.MaxTokens,
	})
	if err != nil {
		return GeneratedSection{}, err
	}
	return GeneratedSection{
		Title:     section.Title,
		Content:   content,
		WordCount: CountCJK(content),
		Sources:   []string{},
	}, nil
}

// CountCJK counts characters in the CJK Unified Ideographs range
// U+4E00..U+9FA5. Latin words, digits and punctuation count zero.
func CountCJK(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x4e00 && r <= 0x9fa5 {
			n++
		}
	}
	return n
}
