// Package news 定义采集管线中流转的统一新闻结构
package news

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	LangPrimary   = "en"
	LangSecondary = "fr"
)

// Text 多语言文本：语言代码 -> 文本
type Text map[string]string

// Get 返回指定语言的文本，缺失时回退到主语言
func (t Text) Get(lang string) string {
	if s := strings.TrimSpace(t[lang]); s != "" {
		return s
	}
	if s := strings.TrimSpace(t[LangPrimary]); s != "" {
		return s
	}
	return strings.TrimSpace(t[LangSecondary])
}

// Story 归一化之后的一条新闻。归一化完成后不再修改。
type Story struct {
	Timestamp  time.Time `json:"timestamp"`
	Title      Text      `json:"title"`
	Summary    Text      `json:"summary"`
	URL        string    `json:"url"`
	ImageURL   string    `json:"image_url"`
	Source     string    `json:"source"`
	Categories []string  `json:"categories"`
	Tags       []string  `json:"tags"`
}

// TitleText 主语言标题
func (s Story) TitleText() string {
	return s.Title.Get(LangPrimary)
}

// SummaryText 主语言摘要
func (s Story) SummaryText() string {
	return strings.TrimSpace(s.Summary[LangPrimary])
}

// PrimaryCategory 排在第一位的分类
func (s Story) PrimaryCategory() string {
	if len(s.Categories) == 0 {
		return ""
	}
	return s.Categories[0]
}

type storyJSON struct {
	Timestamp   string          `json:"timestamp"`
	PublishedAt string          `json:"published_at"`
	Title       json.RawMessage `json:"title"`
	Summary     json.RawMessage `json:"summary"`
	URL         string          `json:"url"`
	ImageURL    *string         `json:"image_url"`
	Source      string          `json:"source"`
	Categories  []string        `json:"categories"`
	Tags        []string        `json:"tags"`
}

// MarshalJSON 时间统一输出为 UTC RFC3339；没有图片时 image_url 输出 null
func (s Story) MarshalJSON() ([]byte, error) {
	type plain Story
	p := plain(s)
	p.Timestamp = s.Timestamp.UTC()

	var image *string
	if s.ImageURL != "" {
		image = &s.ImageURL
	}
	return json.Marshal(struct {
		plain
		ImageURL *string `json:"image_url"`
	}{plain: p, ImageURL: image})
}

// UnmarshalJSON 兼容旧快照：时间可能是不带时区的 ISO 字符串或 published_at 字段，
// title/summary 可能是纯字符串。无法解析的时间保留为零值，排序时排到最后。
func (s *Story) UnmarshalJSON(data []byte) error {
	var raw storyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	ts := raw.Timestamp
	if ts == "" {
		ts = raw.PublishedAt
	}
	parsed, ok := ParseTimestamp(ts)
	if !ok {
		parsed = time.Time{}
	}

	*s = Story{
		Timestamp:  parsed,
		Title:      decodeText(raw.Title),
		Summary:    decodeText(raw.Summary),
		URL:        raw.URL,
		Source:     raw.Source,
		Categories: raw.Categories,
		Tags:       raw.Tags,
	}
	if raw.ImageURL != nil {
		s.ImageURL = *raw.ImageURL
	}
	return nil
}

func decodeText(raw json.RawMessage) Text {
	if len(raw) == 0 {
		return Text{}
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err == nil {
		if m == nil {
			return Text{}
		}
		return Text(m)
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return Text{LangPrimary: str, LangSecondary: str}
	}
	return Text{}
}
