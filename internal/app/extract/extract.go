package extract

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/John-Robertt/wikiseries/internal/domain"
	"github.com/John-Robertt/wikiseries/internal/infra/httpx"
	"github.com/John-Robertt/wikiseries/internal/logging"
	"github.com/John-Robertt/wikiseries/internal/search"
	"github.com/John-Robertt/wikiseries/internal/tableparse"
)

// Resolver 是剧名解析的最小接口（便于测试替换）。
type Resolver interface {
	Resolve(ctx context.Context, showName string) (search.Resolution, error)
}

// Extractor 串联“搜索 -> 抓取页面 -> 解析剧集表”。
//
// 约束：
// - 只产出内存中的 Series，不落盘（写入由 output 包显式完成）
// - 单线程、阻塞；不重试
type Extractor struct {
	Resolver Resolver
	Client   *http.Client
	Parser   tableparse.Parser
	Logger   *slog.Logger
}

// Run 解析剧名并抽取全部季。解析不到任何候选时返回 search.ErrNotFound。
func (x Extractor) Run(ctx context.Context, showName string) (domain.Series, error) {
	if x.Resolver == nil {
		return domain.Series{}, fmt.Errorf("resolver 不能为空")
	}
	res, err := x.Resolver.Resolve(ctx, showName)
	if err != nil {
		return domain.Series{}, err
	}
	return x.ExtractFrom(ctx, res)
}

// ExtractFrom 使用已有的解析结果抓取排名第一的候选页面并解析。
// CLI 先展示候选列表再抽取时使用，避免重复发出搜索请求。
func (x Extractor) ExtractFrom(ctx context.Context, res search.Resolution) (domain.Series, error) {
	top, ok := res.Top()
	if !ok {
		return domain.Series{}, &search.NotFoundError{ShowName: res.ShowName}
	}
	pageURL := strings.TrimSpace(top.URL)
	if pageURL == "" {
		return domain.Series{}, fmt.Errorf("候选 %q 缺少页面 URL", top.Title)
	}

	log := logging.OrDiscard(x.Logger).With(slog.String("show", res.ShowName), slog.String("page", pageURL))
	log.Info("抓取页面", slog.String("title", top.Title), slog.Int("candidates", len(res.Results)))

	b, err := httpx.Get(ctx, x.Client, pageURL)
	if err != nil {
		return domain.Series{}, fmt.Errorf("抓取页面失败：%w", err)
	}
	doc, err := tableparse.Document(b)
	if err != nil {
		return domain.Series{}, fmt.Errorf("解析 HTML 失败：%w", err)
	}

	p := x.Parser
	if p.Logger == nil {
		p.Logger = x.Logger
	}
	seasons, err := p.ExtractSeasons(doc)
	if err != nil {
		return domain.Series{}, err
	}

	// 概览表列出的季比剧集表多，通常意味着页面把部分季拆到了子页面。
	if names := tableparse.SeasonNames(doc); len(names) > len(seasons) {
		log.Warn("概览表中的季数多于剧集表", slog.Int("overview", len(names)), slog.Int("tables", len(seasons)))
	}

	series := domain.Series{
		ResolvedTitle: res.ResolvedTitle,
		PageURL:       pageURL,
		Seasons:       seasons,
	}
	log.Info("抽取完成", slog.Int("seasons", len(series.Seasons)), slog.Int("episodes", series.EpisodeCount()))
	return series, nil
}
