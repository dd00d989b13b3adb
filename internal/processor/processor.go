package processor

import (
	"context"
	"strings"
	"time"

	"github.com/LJTian/AINewsHub/internal/classifier"
	"github.com/LJTian/AINewsHub/internal/news"
)

// RawArticle 各数据源解码后的公共字段，只在 collector 与 Normalizer 之间传递
type RawArticle struct {
	Title       string
	Summary     string
	URL         string
	ImageURL    string
	Source      string
	PublishedAt string
}

// Translator 外部翻译服务；实现必须保证不返回错误，失败时原样返回输入
type Translator interface {
	Translate(ctx context.Context, text, target string) string
}

// Normalizer 把 RawArticle 转换成统一的 news.Story
type Normalizer struct {
	classifier *classifier.Classifier
	translator Translator
	now        func() time.Time
}

func NewNormalizer(c *classifier.Classifier, tr Translator) *Normalizer {
	if c == nil {
		c = classifier.New()
	}
	return &Normalizer{classifier: c, translator: tr, now: time.Now}
}

// Normalize 生成 Story；标题或 URL 为空时返回 false
func (n *Normalizer) Normalize(ctx context.Context, raw RawArticle, tags []string) (news.Story, bool) {
	title := strings.Join(strings.Fields(raw.Title), " ")
	url := strings.TrimSpace(raw.URL)
	if title == "" || url == "" {
		return news.Story{}, false
	}
	summary := CleanText(raw.Summary)

	cats := n.classifier.Classify(title, summary)

	return news.Story{
		Timestamp:  news.ParseTimestampOr(raw.PublishedAt, n.now()),
		Title:      n.bilingual(ctx, title),
		Summary:    n.bilingual(ctx, summary),
		URL:        url,
		ImageURL:   strings.TrimSpace(raw.ImageURL),
		Source:     strings.TrimSpace(raw.Source),
		Categories: cats,
		Tags:       mergeTags(tags, cats),
	}, true
}

func (n *Normalizer) bilingual(ctx context.Context, text string) news.Text {
	secondary := text
	if n.translator != nil && text != "" {
		secondary = n.translator.Translate(ctx, text, news.LangSecondary)
	}
	return news.Text{news.LangPrimary: text, news.LangSecondary: secondary}
}

// mergeTags 以提示标签为基础（默认 ai），分类里出现 finance 时补上 finance；大小写不敏感去重
func mergeTags(hint []string, cats []string) []string {
	base := hint
	if len(base) == 0 {
		base = []string{"ai"}
	}
	for _, c := range cats {
		if c == classifier.Finance {
			base = append(append([]string(nil), base...), classifier.Finance)
			break
		}
	}

	seen := make(map[string]struct{}, len(base))
	out := make([]string, 0, len(base))
	for _, t := range base {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
