package domain

import (
	"fmt"
	"strings"
)

// SearchResult 是 opensearch 返回的一条候选（标题 + 页面 URL）。
// 只在解析阶段短暂存在，不写入结果。
type SearchResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Season 对应页面上的一张剧集表。
// Title 来自表格前最近的三级标题（不一定是数字，迷你剧页面常见 "Episodes"）。
type Season struct {
	Title    string
	Episodes []Episode
}

// Series 是一次抽取的完整结果。
//
// 约束：
// - ResolvedTitle 只有在搜索恰好命中唯一候选时才会设置（为空表示未设置）
// - 抽取完成后不再修改
type Series struct {
	ResolvedTitle string
	PageURL       string
	Seasons       []Season
}

// EpisodeCount 返回所有季的剧集总数。
func (s Series) EpisodeCount() int {
	n := 0
	for _, se := range s.Seasons {
		n += len(se.Episodes)
	}
	return n
}

func (s Series) String() string {
	names := make([]string, 0, len(s.Seasons))
	for _, se := range s.Seasons {
		names = append(names, fmt.Sprintf("%s(%d)", se.Title, len(se.Episodes)))
	}
	title := s.ResolvedTitle
	if title == "" {
		title = "<unresolved>"
	}
	return fmt.Sprintf("series %s seasons: [%s]", title, strings.Join(names, ", "))
}
