package tableparse

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"

	"github.com/John-Robertt/wikiseries/internal/domain"
	"github.com/John-Robertt/wikiseries/internal/logging"
)

// 类名选择器按 token 匹配：顺序无关，允许额外的 class。
var (
	episodeTableSel = cascadia.MustCompile("table.wikitable.plainrowheaders.wikiepisodetable")
	overviewSel     = cascadia.MustCompile("table.wikitable.plainrowheaders:not(.wikiepisodetable)")
	colHeaderSel    = cascadia.MustCompile("th[scope=col]")
	eventRowSel     = cascadia.MustCompile("tr.vevent")
	cellSel         = cascadia.MustCompile("th, td")
	headlineSel     = cascadia.MustCompile("span.mw-headline")
	rowHeaderSel    = cascadia.MustCompile("th[scope=row]")
	brSel           = cascadia.MustCompile("br")

	// 不属于可见文本的节点：脚注角标、编辑链接、隐藏的排序键。
	noiseSel = cascadia.MustCompile(`sup.reference, span.mw-editsection, span[style*="display:none"], style`)
)

// Policy 决定缺少季标题（或表头）的表格如何处理。
type Policy string

const (
	// PolicyAbort：整个抽取失败（默认）。宁可失败，也不写错季名。
	PolicyAbort Policy = "abort"
	// PolicySkip：记录 warning 并丢弃该表，其余表照常输出。
	PolicySkip Policy = "skip"
)

// ParsePolicy 校验配置值；空串视为 PolicyAbort。
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyAbort:
		return PolicyAbort, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("on_missing_heading 只能是 abort 或 skip，实际是 %q", s)
	}
}

// Parser 把维基剧集页面中的剧集表转换为 Season 列表。
//
// 约束：
// - 输出顺序 = 匹配表格在文档中的顺序
// - 列名来自每张表自己的表头行（不同表可以不同）
// - 行与表头长度不一致时截断到较短者
// - 纯函数：不修改传入的 document
type Parser struct {
	OnMissingHeading Policy
	Logger           *slog.Logger
}

// Document 把 HTML 字节解析为可查询的文档树。
func Document(b []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(b))
}

// ExtractSeasons 定位所有剧集表并逐表解析。
func (p Parser) ExtractSeasons(doc *goquery.Document) ([]domain.Season, error) {
	if doc == nil {
		return nil, fmt.Errorf("document 不能为空")
	}
	log := logging.OrDiscard(p.Logger)

	tables := doc.FindMatcher(episodeTableSel)
	seasons := make([]domain.Season, 0, tables.Length())
	for i := range tables.Nodes {
		season, err := parseTable(i, tables.Eq(i))
		if err != nil {
			if p.OnMissingHeading == PolicySkip {
				log.Warn("跳过无法解析的剧集表", slog.Int("table", i), slog.Any("error", err))
				continue
			}
			return nil, err
		}
		seasons = append(seasons, season)
	}
	return seasons, nil
}

func parseTable(idx int, table *goquery.Selection) (domain.Season, error) {
	title, ok := seasonHeading(table)
	if !ok {
		return domain.Season{}, &MalformedPageError{Table: idx, Reason: "表格前没有三级标题（季名）"}
	}

	headers := columnHeaders(table)
	if len(headers) == 0 {
		return domain.Season{}, &MalformedPageError{Table: idx, Season: title, Reason: "缺少列表头行"}
	}

	rows := table.FindMatcher(eventRowSel)
	episodes := make([]domain.Episode, 0, rows.Length())
	rows.Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenMatcher(cellSel)
		values := make([]string, 0, cells.Length())
		cells.Each(func(_ int, c *goquery.Selection) {
			values = append(values, stripWrappingQuotes(visibleText(c)))
		})
		episodes = append(episodes, domain.NewEpisode(headers, values))
	})

	return domain.Season{Title: title, Episodes: episodes}, nil
}

// seasonHeading 向前遍历兄弟节点，找最近的三级标题。
// 兼容两种页面结构：
// - 旧版：<h3><span class="mw-headline">Season 1</span></h3>
// - 新版：<div class="mw-heading mw-heading3"><h3>Season 1</h3>...</div>
func seasonHeading(table *goquery.Selection) (string, bool) {
	if table.Length() == 0 {
		return "", false
	}
	for n := table.Get(0).PrevSibling; n != nil; n = n.PrevSibling {
		if n.Type != html.ElementNode {
			continue
		}
		var h3 *goquery.Selection
		switch {
		case n.DataAtom == atom.H3:
			h3 = goquery.NewDocumentFromNode(n).Selection
		case n.DataAtom == atom.Div && hasClass(n, "mw-heading3"):
			h3 = goquery.NewDocumentFromNode(n).Find("h3").First()
			if h3.Length() == 0 {
				continue
			}
		default:
			continue
		}

		text := visibleText(h3.FindMatcher(headlineSel).First())
		if text == "" {
			text = visibleText(h3)
		}
		if text == "" {
			continue
		}
		return text, true
	}
	return "", false
}

// columnHeaders 取第一行含 th[scope=col] 的表头（保持从左到右的顺序）。
func columnHeaders(table *goquery.Selection) []string {
	var headers []string
	table.Find("tr").EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		ths := tr.ChildrenMatcher(colHeaderSel)
		if ths.Length() == 0 {
			return true
		}
		ths.Each(func(_ int, th *goquery.Selection) {
			headers = append(headers, visibleText(th))
		})
		return false
	})
	return headers
}

// SeasonNames 读取季概览表（wikitable plainrowheaders，但不是剧集表）中每一行的季名链接文本。
// 页面没有概览表时返回 nil。
func SeasonNames(doc *goquery.Document) []string {
	if doc == nil {
		return nil
	}
	overview := doc.FindMatcher(overviewSel).First()
	if overview.Length() == 0 {
		return nil
	}
	var names []string
	overview.FindMatcher(rowHeaderSel).Each(func(_ int, th *goquery.Selection) {
		a := th.Find("a").First()
		if a.Length() == 0 {
			return
		}
		if s := visibleText(a); s != "" {
			names = append(names, s)
		}
	})
	return names
}

// visibleText 在副本上去掉噪声节点后取文本，并做空白折叠与 NFC 规范化。
func visibleText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	c := s.Clone()
	c.FindMatcher(noiseSel).Remove()
	// <br> 没有文本，直接取 Text() 会把两行粘在一起（"No.<br>overall" -> "No.overall"）。
	c.FindMatcher(brSel).Each(func(_ int, br *goquery.Selection) {
		n := br.Get(0)
		n.Parent.InsertBefore(&html.Node{Type: html.TextNode, Data: " "}, n)
	})
	return norm.NFC.String(normSpace(c.Text()))
}

var quotePairs = [][2]string{
	{`"`, `"`},
	{"“", "”"},
}

// stripWrappingQuotes 去掉一对包裹整个文本的引号（维基剧集标题常写作 "Pilot"）。
func stripWrappingQuotes(s string) string {
	for _, q := range quotePairs {
		if len(s) >= len(q[0])+len(q[1]) && strings.HasPrefix(s, q[0]) && strings.HasSuffix(s, q[1]) {
			return strings.TrimSpace(s[len(q[0]) : len(s)-len(q[1])])
		}
	}
	return s
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}
