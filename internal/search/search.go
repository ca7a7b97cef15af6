package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/John-Robertt/wikiseries/internal/domain"
	"github.com/John-Robertt/wikiseries/internal/infra/httpx"
	"github.com/John-Robertt/wikiseries/internal/logging"
)

// DefaultEndpoint 是英文维基的 MediaWiki API 入口。
const DefaultEndpoint = "https://en.wikipedia.org/w/api.php"

const (
	KindEpisodeList = "episode_list"
	KindMiniseries  = "miniseries"
	KindName        = "name"
)

// Query 是一条候选搜索词（Kind 仅用于日志与结果追溯）。
type Query struct {
	Kind string
	Text string
}

// Queries 按固定优先级生成候选搜索词。
func Queries(showName string) []Query {
	return []Query{
		{Kind: KindEpisodeList, Text: fmt.Sprintf("list of %s episodes", showName)},
		{Kind: KindMiniseries, Text: fmt.Sprintf("%s miniseries", showName)},
		{Kind: KindName, Text: showName},
	}
}

// Resolution 是一次解析的结果：命中的那条查询及其候选列表。
type Resolution struct {
	ShowName string
	Query    Query
	Results  []domain.SearchResult

	// ResolvedTitle 只有在恰好一个候选时才等于 ShowName；否则为空。
	ResolvedTitle string
}

// Top 返回排名第一的候选（opensearch 按相关度排序）。
func (r Resolution) Top() (domain.SearchResult, bool) {
	if len(r.Results) == 0 {
		return domain.SearchResult{}, false
	}
	return r.Results[0], true
}

// Resolver 把剧名解析为维基页面候选。
//
// 约束：
// - 按 Queries 的顺序逐条尝试，第一条非空即停止（后面的查询不会发出）
// - 非 2xx 只记录日志并视为该查询无结果
// - 没有响应（网络错误）或响应体无法解码：直接返回错误，不重试
type Resolver struct {
	Endpoint string
	Client   *http.Client
	Logger   *slog.Logger
}

func (r Resolver) endpoint() string {
	u := strings.TrimSpace(r.Endpoint)
	if u == "" {
		return DefaultEndpoint
	}
	return u
}

// Resolve 依次尝试候选查询；全部为空时返回 *NotFoundError。
func (r Resolver) Resolve(ctx context.Context, showName string) (Resolution, error) {
	showName = strings.TrimSpace(showName)
	if showName == "" {
		return Resolution{}, errors.New("剧名不能为空")
	}
	log := logging.OrDiscard(r.Logger).With(slog.String("show", showName))

	for _, q := range Queries(showName) {
		log.Debug("搜索", slog.String("type", q.Kind), slog.String("query", q.Text))

		results, err := r.Search(ctx, q.Text)
		if err != nil {
			var sf *SearchRequestFailedError
			if errors.As(err, &sf) {
				log.Error("搜索请求失败", slog.String("query", q.Text), slog.Int("status", sf.StatusCode), slog.String("body", sf.Body))
				continue
			}
			return Resolution{}, err
		}
		if len(results) == 0 {
			continue
		}

		res := Resolution{ShowName: showName, Query: q, Results: results}
		if len(results) == 1 {
			res.ResolvedTitle = showName
		}
		log.Debug("命中", slog.String("type", q.Kind), slog.Int("results", len(results)))
		return res, nil
	}
	return Resolution{}, &NotFoundError{ShowName: showName}
}

// Search 发出单条 opensearch 请求。零条与多条结果都是正常结果。
func (r Resolver) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	u, err := r.searchURL(query)
	if err != nil {
		return nil, err
	}
	b, err := httpx.Get(ctx, r.Client, u)
	if err != nil {
		var se *httpx.StatusError
		if errors.As(err, &se) {
			return nil, &SearchRequestFailedError{Query: query, StatusCode: se.StatusCode, Body: se.Body}
		}
		return nil, err
	}
	return decodeOpenSearch(b)
}

func (r Resolver) searchURL(query string) (string, error) {
	u, err := url.Parse(r.endpoint())
	if err != nil {
		return "", fmt.Errorf("search endpoint 无效：%w", err)
	}
	q := u.Query()
	q.Set("action", "opensearch")
	q.Set("format", "json")
	q.Set("formatversion", "2")
	q.Set("search", query)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// decodeOpenSearch 解析 [query, titles[], descriptions[], urls[]]，
// 按下标把 titles[i] 与 urls[i] 配对（长度不一致时截断）。
func decodeOpenSearch(b []byte) ([]domain.SearchResult, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("opensearch 响应无法解析：%w", err)
	}
	if len(raw) < 4 {
		return nil, fmt.Errorf("opensearch 响应应为 4 元素数组，实际 %d", len(raw))
	}

	var titles, urls []string
	if err := json.Unmarshal(raw[1], &titles); err != nil {
		return nil, fmt.Errorf("opensearch titles 无法解析：%w", err)
	}
	if err := json.Unmarshal(raw[3], &urls); err != nil {
		return nil, fmt.Errorf("opensearch urls 无法解析：%w", err)
	}

	n := len(titles)
	if len(urls) < n {
		n = len(urls)
	}
	out := make([]domain.SearchResult, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.SearchResult{Title: titles[i], URL: urls[i]})
	}
	return out, nil
}
