package parser

import (
	"reflect"
	"strings"
	"testing"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/mzhuang1/chanyeops-sub000/internal/doctree"
)

type section struct{ title, text string }

func sections(t *testing.T, p Parser, input, filename string) ([]section, map[string]any) {
	t.Helper()
	tree, err := p.Parse(strings.NewReader(input), filename)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out []section
	for _, n := range tree.Children {
		if len(n.Children) != 0 {
			t.Errorf("expected flat sections, %q has %d children", n.Title, len(n.Children))
		}
		out = append(out, section{n.Title, n.Text})
	}
	return out, tree.Meta
}

func TestIsPolicyHeading(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"第一章 总体要求", true},
		{"第十二节　保障措施", true},
		{"一、指导思想", true},
		{"（三）加快数字化转型", true},
		{"(二) 产业布局", true},
		{"二、坚持创新驱动，全面提升产业链现代化水平。", false},
		{"第一，要坚持党的领导", false},
		{"2025年地区生产总值", false},
		{"", false},
		{"一、" + strings.Repeat("长", 45), false},
	}
	for _, tt := range tests {
		if got := isPolicyHeading(tt.line); got != tt.want {
			t.Errorf("%q: expected %v, got %v", tt.line, tt.want, got)
		}
	}
}

func TestTextParser_PolicySections(t *testing.T) {
	input := "景德镇市人民政府关于印发规划的通知\r\n\r\n" +
		"第一章 发展基础\r\n" +
		"“十四五”时期，全市经济总量稳步提升。\r\n陶瓷产业规模持续扩大。\r\n\r\n\r\n" +
		"一、主要目标\n" +
		"到2025年，地区生产总值达到1500亿元。\n" +
		"　　\n" +
		"二、重点任务\n"
	got, meta := sections(t, &TextParser{}, input, "规划通知.txt")
	want := []section{
		{"", "景德镇市人民政府关于印发规划的通知"},
		{"第一章 发展基础", "“十四五”时期，全市经济总量稳步提升。\n陶瓷产业规模持续扩大。"},
		{"一、主要目标", "到2025年，地区生产总值达到1500亿元。"},
		{"二、重点任务", ""},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected sections\nwant %q\ngot  %q", want, got)
	}
	if meta["headings"] != 3 || meta["paragraphs"] != 3 {
		t.Errorf("unexpected counts %v", meta)
	}
	if titles := meta["outline"].([]string); titles[0] != "第一章 发展基础" || len(titles) != 3 {
		t.Errorf("unexpected outline %v", titles)
	}
	if _, ok := meta["encoding"]; ok {
		t.Error("utf-8 input should not record an encoding")
	}
}

func TestTextParser_GBK(t *testing.T) {
	gbk, err := simplifiedchinese.GBK.NewEncoder().String("省发改委关于产业发展的意见\n\n一、总体要求\n加快构建现代产业体系。")
	if err != nil {
		t.Fatal(err)
	}
	got, meta := sections(t, &TextParser{}, gbk, "意见.txt")
	want := []section{
		{"", "省发改委关于产业发展的意见"},
		{"一、总体要求", "加快构建现代产业体系。"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected sections %q", got)
	}
	if meta["encoding"] != "gb18030" {
		t.Errorf("expected gb18030 encoding, got %v", meta["encoding"])
	}
}

func TestTextParser_Empty(t *testing.T) {
	tree, err := (&TextParser{}).Parse(strings.NewReader(" \n\n\t\n"), "空.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Children) != 0 || tree.Meta != nil {
		t.Errorf("expected empty tree, got %+v", tree)
	}
	if tree.Title != "空" {
		t.Errorf("expected title from filename, got %q", tree.Title)
	}
}

func TestMarkdownParser_FlatSections(t *testing.T) {
	input := "# 产业发展规划\n\n编制说明。\n\n## 发展目标\n\n" +
		"到2025年，**数字经济**核心产业增加值占比达到10%。\n\n" +
		"- 培育龙头企业\n- 建设产业园区\n\n" +
		"### 保障措施\n\n```\n指标,目标\n```\n\n---\n\n<div>忽略</div>\n"
	got, meta := sections(t, &MarkdownParser{}, input, "draft.md")
	want := []section{
		{"产业发展规划", "编制说明。"},
		{"发展目标", "到2025年，数字经济核心产业增加值占比达到10%。\n\n• 培育龙头企业\n• 建设产业园区"},
		{"保障措施", "指标,目标"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected sections\nwant %q\ngot  %q", want, got)
	}
	if meta["headings"] != 3 {
		t.Errorf("expected 3 headings, got %v", meta["headings"])
	}
}

func TestMarkdownParser_NoHeadings(t *testing.T) {
	got, meta := sections(t, &MarkdownParser{}, "第一段。\n\n第二段。", "notes.md")
	want := []section{{"", "第一段。\n\n第二段。"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected sections %q", got)
	}
	if _, ok := meta["headings"]; ok {
		t.Error("expected no heading count")
	}
}

func TestHTMLParser_GovernmentPage(t *testing.T) {
	input := `<html><head><title>国务院关于印发“十四五”数字经济发展规划的通知</title>
<style>.x{}</style></head><body>
<nav>首页 &gt; 政策</nav>
<div class="content">
<p>各省、自治区、直辖市人民政府：</p>
<h2>一、发展现状</h2>
<p>数字经济规模   持续扩大。</p>
<div>发展质量<b>显著提升</b><br>基础设施加快建设。</div>
<p>二、总体要求</p>
<table><tr><th>指标</th><th>2025年</th></tr><tr><td>数字经济核心产业增加值占GDP比重</td><td>10%</td></tr></table>
<script>var t = "不应出现";</script>
</div>
<footer>版权所有</footer>
</body></html>`
	tree, err := (&HTMLParser{}).Parse(strings.NewReader(input), "page.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "国务院关于印发“十四五”数字经济发展规划的通知" {
		t.Errorf("unexpected title %q", tree.Title)
	}
	var got []section
	for _, n := range tree.Children {
		got = append(got, section{n.Title, n.Text})
	}
	want := []section{
		{"", "各省、自治区、直辖市人民政府："},
		{"一、发展现状", "数字经济规模 持续扩大。\n\n发展质量显著提升\n基础设施加快建设。"},
		{"二、总体要求", "指标 | 2025年\n数字经济核心产业增加值占GDP比重 | 10%"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected sections\nwant %q\ngot  %q", want, got)
	}
	text := tree.PlainText()
	for _, banned := range []string{"首页", "版权所有", "不应出现", ".x{}"} {
		if strings.Contains(text, banned) {
			t.Errorf("page chrome %q leaked into text", banned)
		}
	}
	if tree.Meta["tables"] != 1 || tree.Meta["headings"] != 2 {
		t.Errorf("unexpected metadata %v", tree.Meta)
	}
}

func TestHTMLParser_GBKCharset(t *testing.T) {
	body, err := simplifiedchinese.GBK.NewEncoder().String(`<html><head><meta charset="gbk"><title>市政府通知</title></head><body><p>加快建设现代化产业体系。</p></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	tree, err := (&HTMLParser{}).Parse(strings.NewReader(body), "notice.htm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "市政府通知" {
		t.Errorf("unexpected title %q", tree.Title)
	}
	if got := tree.PlainText(); got != "加快建设现代化产业体系。" {
		t.Errorf("unexpected text %q", got)
	}
	if tree.Meta["encoding"] != "gbk" {
		t.Errorf("expected gbk encoding, got %v", tree.Meta["encoding"])
	}
}

func TestOutline_CapsTitles(t *testing.T) {
	var o outline
	for i := 0; i < maxOutlineTitles+5; i++ {
		o.Heading("章")
	}
	d := &doctree.DocTree{}
	o.Finish(d)
	if d.Meta["headings"] != maxOutlineTitles+5 {
		t.Errorf("expected full heading count, got %v", d.Meta["headings"])
	}
	if n := len(d.Meta["outline"].([]string)); n != maxOutlineTitles {
		t.Errorf("expected %d outline titles, got %d", maxOutlineTitles, n)
	}
}
