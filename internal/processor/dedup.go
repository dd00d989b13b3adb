package processor

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/LJTian/AINewsHub/internal/news"
)

const (
	DefaultDedupThreshold = 92
	DefaultMaxPerTopic    = 2
)

// Deduplicator 单次从左到右的贪心去重：精确键、模糊相似度、主题簇上限。
// 一条新闻是否保留只取决于排在它之前且已被保留的新闻，所以输入顺序即优先级。
type Deduplicator struct {
	// Threshold 相似度阈值（百分比，0-100）
	Threshold   int
	MaxPerTopic int
}

// DedupStats 记录每类原因丢弃的条数
type DedupStats struct {
	Input      int
	ExactTitle int
	ExactURL   int
	Fuzzy      int
	TopicCap   int
	Kept       int
}

func NewDeduplicator(threshold, maxPerTopic int) Deduplicator {
	return Deduplicator{Threshold: threshold, MaxPerTopic: maxPerTopic}
}

func (d Deduplicator) ratio() float64 {
	r := float64(d.Threshold) / 100
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

type keptStory struct {
	text []string
}

func (d Deduplicator) Dedupe(stories []news.Story) ([]news.Story, DedupStats) {
	stats := DedupStats{Input: len(stories)}
	threshold := d.ratio()

	seenTitles := make(map[string]struct{})
	seenURLs := make(map[string]struct{})
	topicCounts := make(map[string]int)
	kept := make([]news.Story, 0, len(stories))
	keptText := make([]keptStory, 0, len(stories))

	for _, s := range stories {
		tkey := TitleKey(s.TitleText())
		ukey := URLKey(s.URL)
		if _, ok := seenTitles[tkey]; ok {
			stats.ExactTitle++
			continue
		}
		if _, ok := seenURLs[ukey]; ukey != "" && ok {
			stats.ExactURL++
			continue
		}

		text := splitRunes(strings.ToLower(s.TitleText() + " " + s.SummaryText()))
		dup := false
		for _, k := range keptText {
			if similarity(text, k.text) >= threshold {
				dup = true
				break
			}
		}
		if dup {
			stats.Fuzzy++
			continue
		}

		cluster := TopicKey(s)
		if topicCounts[cluster] >= d.MaxPerTopic {
			stats.TopicCap++
			continue
		}

		topicCounts[cluster]++
		seenTitles[tkey] = struct{}{}
		if ukey != "" {
			seenURLs[ukey] = struct{}{}
		}
		kept = append(kept, s)
		keptText = append(keptText, keptStory{text: text})
	}

	stats.Kept = len(kept)
	return kept, stats
}

var wordRe = regexp.MustCompile(`[a-z0-9]+`)

// TitleKey 小写后只保留字母数字单词，用单个空格拼接
func TitleKey(title string) string {
	return strings.Join(wordRe.FindAllString(strings.ToLower(title), -1), " ")
}

// URLKey 小写的 host+path，忽略协议、查询串与锚点
func URLKey(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}
	return strings.ToLower(u.Host + u.Path)
}

// TopicKey 粗粒度主题簇，只用于限制同一主题的条数
func TopicKey(s news.Story) string {
	text := strings.ToLower(s.TitleText() + " " + s.SummaryText())
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(text, w) {
				return true
			}
		}
		return false
	}

	switch {
	case has("lawsuit", "sue"):
		return "lawsuit"
	case has("earnings", "revenue", "investment"):
		return "finance"
	case has("nvidia", "chip", "semiconductor"):
		return "nvidia"
	case has("microsoft"):
		return "microsoft"
	case has("google", "alphabet", "deepmind"):
		return "google"
	case has("meta"):
		return "meta"
	case has("amazon"):
		return "amazon"
	default:
		return "other"
	}
}

func splitRunes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func similarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	return difflib.NewMatcher(a, b).Ratio()
}
