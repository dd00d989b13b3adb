package processor

import (
	"sort"

	"github.com/LJTian/AINewsHub/internal/news"
)

// Rank 按时间倒序稳定排序并截取前 limit 条；零值时间排在最后
func Rank(stories []news.Story, limit int) []news.Story {
	if limit <= 0 || len(stories) == 0 {
		return []news.Story{}
	}
	out := make([]news.Story, len(stories))
	copy(out, stories)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
