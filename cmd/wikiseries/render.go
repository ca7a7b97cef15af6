package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/John-Robertt/wikiseries/internal/domain"
	"github.com/John-Robertt/wikiseries/internal/output"
	"github.com/John-Robertt/wikiseries/internal/search"
)

// printResolution 输出候选列表。
// stdout 非 TTY 时只输出一个 JSON 数组（便于管道处理）；TTY 时输出表格。
func printResolution(w io.Writer, res search.Resolution) error {
	if !isTerminal(w) {
		results := res.Results
		if results == nil {
			results = []domain.SearchResult{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	fmt.Fprintf(w, "查询（%s）：%s\n", res.Query.Kind, res.Query.Text)
	rows := make([][]string, 0, len(res.Results))
	for i, r := range res.Results {
		rows = append(rows, []string{strconv.Itoa(i + 1), r.Title, r.URL})
	}
	fmt.Fprintln(w, renderTable([]string{"#", "Title", "URL"}, rows, []text.Align{text.AlignRight}))
	if res.ResolvedTitle == "" && len(res.Results) > 1 {
		fmt.Fprintln(w, "候选不唯一：--write 需要唯一命中才能确定输出目录")
	}
	return nil
}

// printReport 输出写入摘要（走 stderr，不影响 stdout 的 JSON）。
func printReport(w io.Writer, rep output.Report) {
	for _, s := range rep.Seasons {
		if s.Err != nil {
			fmt.Fprintf(w, "失败 %s：%v\n", s.Season, s.Err)
			continue
		}
		fmt.Fprintf(w, "写入 %s（%d 集）\n", s.Dir, s.Episodes)
	}
	fmt.Fprintf(w, "完成：seasons=%d failed=%d out=%s\n", len(rep.Seasons), rep.Failed(), rep.ShowDir)
}

func renderTable(headers []string, rows [][]string, aligns []text.Align) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) {
			align = aligns[i]
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
