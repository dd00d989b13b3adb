package processor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const DefaultPreviewLimit = 380

// CleanText 去掉 HTML 标签、解码实体并压缩空白，数据源的 description 里经常夹带 HTML
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}

// Preview 清洗后按 rune 截断，尽量不截断单词，末尾加省略号
func Preview(s string, limit int) string {
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}
	s = CleanText(s)
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	cut := string(rs[:limit])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}
