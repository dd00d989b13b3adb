// Package classifier 基于关键词为新闻打分类标签
package classifier

import (
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

const (
	Model      = "Model"
	Hardware   = "Hardware"
	Research   = "Research"
	OpenSource = "Open Source"
	Product    = "Product"
	Safety     = "Safety"
	Security   = "Security"
	Policy     = "Policy"
	Law        = "Law"
	Finance    = "finance"
	AI         = "AI"
)

// Priority 分类输出顺序；排在第一位的视为主分类
var Priority = []string{Model, Hardware, Research, OpenSource, Product, Safety, Security, Policy, Law, Finance, AI}

var categoryKeywords = map[string][]string{
	Finance: {
		"earnings", "revenue", "profit", "quarter", "guidance", "valuation",
		"ipo", "stock", "shares", "market cap", "dividend", "buyback",
		"funding", "raised", "seed", "series a", "series b", "venture",
		"acquisition", "merger", "m&a", "spinoff",
	},
	Law: {"lawsuit", "sues", "sued", "settlement", "complaint", "class action"},
	Policy: {
		"regulation", "regulatory", "eu ai act", "sec", "ftc", "doj",
		"bill", "senate", "house committee", "white house", "executive order",
		"ofcom", "ico (uk)",
	},
	Safety:     {"safety", "red team", "alignment", "guardrail", "mitigation", "harm reduction"},
	Security:   {"breach", "leak", "ransomware", "compromise", "exploit", "zero-day", "privacy"},
	Hardware:   {"nvidia", "gpu", "h100", "h200", "blackwell", "chip", "semiconductor", "data center", "accelerator"},
	Research:   {"benchmark", "paper", "arxiv", "sota", "state-of-the-art", "researchers", "dataset"},
	OpenSource: {"open source", "apache-2.0", "mit license", "oss"},
	Product:    {"launch", "rollout", "release", "update", "feature", "preview", "private beta", "general availability"},
	Model: {
		"gpt", "chatgpt", "gpt-4", "gpt-4o", "gpt-4.1", "gpt-5",
		"claude", "llama", "gemma", "gemini", "grok", "mistral", "mixtral",
		"sonnet", "haiku", "opus", "sora", "model",
	},
}

// 公司名本身不构成分类，只在没有其它分类命中时把默认值从 AI 改成 Product
var companyKeywords = []string{
	"openai", "anthropic", "mistral", "deepmind", "google", "alphabet",
	"microsoft", "meta", "amazon", "amd", "xai", "databricks", "snowflake",
}

const companyLabel = "\x00company"

// Classifier 用一个 Aho-Corasick 自动机一次扫描完成所有关键词匹配
type Classifier struct {
	matcher  *ahocorasick.Matcher
	keywords []string
	labels   [][]string // keyword 下标 -> 所属分类
}

// New 使用内置关键词表构建分类器
func New() *Classifier {
	c := &Classifier{}
	index := make(map[string]int)

	add := func(label, kw string) {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			return
		}
		i, ok := index[kw]
		if !ok {
			i = len(c.keywords)
			index[kw] = i
			c.keywords = append(c.keywords, kw)
			c.labels = append(c.labels, nil)
		}
		c.labels[i] = append(c.labels[i], label)
	}

	for _, cat := range Priority {
		for _, kw := range categoryKeywords[cat] {
			add(cat, kw)
		}
	}
	for _, kw := range companyKeywords {
		add(companyLabel, kw)
	}

	c.matcher = ahocorasick.NewStringMatcher(c.keywords)
	return c
}

// Classify 返回按 Priority 排序的分类列表，保证非空
func (c *Classifier) Classify(title, summary string) []string {
	text := strings.ToLower(title + " " + summary)

	hit := make(map[string]bool)
	for _, i := range c.matcher.Match([]byte(text)) {
		if i < 0 || i >= len(c.labels) {
			continue
		}
		for _, label := range c.labels[i] {
			hit[label] = true
		}
	}

	companyHit := hit[companyLabel]
	delete(hit, companyLabel)

	if len(hit) == 0 {
		if companyHit {
			return []string{Product}
		}
		return []string{AI}
	}

	out := make([]string, 0, len(hit))
	for _, cat := range Priority {
		if hit[cat] {
			out = append(out, cat)
		}
	}
	return out
}
