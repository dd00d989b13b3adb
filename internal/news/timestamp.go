package news

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// 各数据源常见的时间格式；不带时区的一律按 UTC 处理
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp 解析数据源返回的时间字符串，结果统一为 UTC。
// 支持 ISO-8601（带/不带时区）、"YYYY-MM-DD HH:MM:SS UTC"、"YYYY-MM-DD HH:MM:SS"，
// 其余格式交给 dateparse 兜底。
func ParseTimestamp(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	s = strings.Replace(s, " UTC", " +0000", 1)
	s = strings.Replace(s, " GMT", " +0000", 1)

	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}

	if t, err := dateparse.ParseIn(strings.TrimSpace(raw), time.UTC); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// ParseTimestampOr 解析失败时返回 fallback（通常为当前时间）
func ParseTimestampOr(raw string, fallback time.Time) time.Time {
	if t, ok := ParseTimestamp(raw); ok {
		return t
	}
	return fallback.UTC()
}
