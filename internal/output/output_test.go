package output

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/John-Robertt/wikiseries/internal/domain"
)

func sampleSeries() domain.Series {
	keys := []string{"No.", "Title", "Original air date"}
	return domain.Series{
		ResolvedTitle: "Chernobyl",
		Seasons: []domain.Season{
			{Title: "Episodes", Episodes: []domain.Episode{
				domain.NewEpisode(keys, []string{"1", "1:23:45", "May 6, 2019"}),
				domain.NewEpisode(keys, []string{"2", "Please Remain Calm", "May 13, 2019"}),
			}},
		},
	}
}

func readEpisodes(t *testing.T, path string) []domain.Episode {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取 %s 失败：%v", path, err)
	}
	var eps []domain.Episode
	if err := json.Unmarshal(b, &eps); err != nil {
		t.Fatalf("episodes.json 不是合法 JSON：%v", err)
	}
	return eps
}

func TestWrite_LayoutAndRoundTrip(t *testing.T) {
	root := t.TempDir()
	series := sampleSeries()

	rep, err := Writer{Root: root}.Write(series)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if rep.Failed() != 0 {
		t.Fatalf("不期望失败：%+v", rep.Seasons)
	}

	path := filepath.Join(root, "Chernobyl", "Episodes", EpisodesFile)
	if rep.Seasons[0].Dir != filepath.Dir(path) {
		t.Fatalf("Dir 不符合预期：%q", rep.Seasons[0].Dir)
	}
	got := readEpisodes(t, path)
	if !reflect.DeepEqual(got, series.Seasons[0].Episodes) {
		t.Fatalf("round-trip 不一致：\n got=%v\nwant=%v", got, series.Seasons[0].Episodes)
	}

	b, _ := os.ReadFile(path)
	want := "[\n  {\n    \"No.\": \"1\",\n    \"Title\": \"1:23:45\",\n    \"Original air date\": \"May 6, 2019\"\n  },\n" +
		"  {\n    \"No.\": \"2\",\n    \"Title\": \"Please Remain Calm\",\n    \"Original air date\": \"May 13, 2019\"\n  }\n]\n"
	if string(b) != want {
		t.Fatalf("输出格式不符合预期：\n%s", b)
	}
}

func TestWrite_RerunIsIdempotentAndRemovesStaleFiles(t *testing.T) {
	root := t.TempDir()
	series := sampleSeries()
	w := Writer{Root: root}

	if _, err := w.Write(series); err != nil {
		t.Fatalf("第一次写入失败：%v", err)
	}
	dir := filepath.Join(root, "Chernobyl", "Episodes")
	first, _ := os.ReadFile(filepath.Join(dir, EpisodesFile))

	stale := filepath.Join(dir, "stale.txt")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatalf("写入 stale 文件失败：%v", err)
	}

	if _, err := w.Write(series); err != nil {
		t.Fatalf("第二次写入失败：%v", err)
	}
	second, _ := os.ReadFile(filepath.Join(dir, EpisodesFile))
	if string(first) != string(second) {
		t.Fatalf("两次输出应完全一致")
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("旧目录应被整棵删除，stale 文件仍存在：err=%v", err)
	}
}

func TestWrite_MissingResolvedTitle(t *testing.T) {
	root := t.TempDir()
	series := sampleSeries()
	series.ResolvedTitle = ""

	_, err := Writer{Root: root}.Write(series)
	if !errors.Is(err, ErrMissingResolvedTitle) {
		t.Fatalf("期望 ErrMissingResolvedTitle，实际：%v", err)
	}
	entries, _ := os.ReadDir(root)
	if len(entries) != 0 {
		t.Fatalf("前置条件不满足时不应写任何东西：%v", entries)
	}
}

func TestWrite_RemoveFailureDoesNotAbortSiblings(t *testing.T) {
	root := t.TempDir()
	keys := []string{"No.", "Title"}
	series := domain.Series{
		ResolvedTitle: "Dark",
		Seasons: []domain.Season{
			{Title: "Season 1", Episodes: []domain.Episode{domain.NewEpisode(keys, []string{"1", "Secrets"})}},
			{Title: "Season 2", Episodes: []domain.Episode{domain.NewEpisode(keys, []string{"11", "Beginnings and Endings"})}},
		},
	}
	// 预先创建 Season 1 目录，让它走删除分支。
	s1 := filepath.Join(root, "Dark", "Season 1")
	if err := os.MkdirAll(s1, 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}

	w := Writer{Root: root, removeTree: func(string) error { return os.ErrPermission }}
	rep, err := w.Write(series)
	if err != nil {
		t.Fatalf("单季失败不应返回 error：%v", err)
	}
	if rep.Failed() != 1 {
		t.Fatalf("期望 1 季失败，实际 %d：%+v", rep.Failed(), rep.Seasons)
	}

	var fe *FilesystemError
	if !errors.As(rep.Seasons[0].Err, &fe) || fe.Op != "remove" || !errors.Is(fe, os.ErrPermission) {
		t.Fatalf("Season 1 应为 remove 失败，实际：%v", rep.Seasons[0].Err)
	}
	if _, err := os.Stat(filepath.Join(s1, EpisodesFile)); !os.IsNotExist(err) {
		t.Fatalf("删除失败时不应写入（避免合并旧内容）")
	}
	if rep.Seasons[1].Err != nil {
		t.Fatalf("Season 2 不应受影响：%v", rep.Seasons[1].Err)
	}
	if eps := readEpisodes(t, filepath.Join(root, "Dark", "Season 2", EpisodesFile)); len(eps) != 1 {
		t.Fatalf("Season 2 内容不符合预期：%v", eps)
	}
}

func TestWrite_DuplicateSeasonTitles(t *testing.T) {
	root := t.TempDir()
	keys := []string{"No.", "Title"}
	series := domain.Series{
		ResolvedTitle: "Doctor Who",
		Seasons: []domain.Season{
			{Title: "Specials", Episodes: []domain.Episode{domain.NewEpisode(keys, []string{"1", "A"})}},
			{Title: "Specials", Episodes: []domain.Episode{domain.NewEpisode(keys, []string{"2", "B"})}},
		},
	}

	rep, err := Writer{Root: root}.Write(series)
	if err != nil || rep.Failed() != 0 {
		t.Fatalf("不期望错误：err=%v rep=%+v", err, rep.Seasons)
	}
	a := readEpisodes(t, filepath.Join(root, "Doctor Who", "Specials", EpisodesFile))
	b := readEpisodes(t, filepath.Join(root, "Doctor Who", "Specials (2)", EpisodesFile))
	if a[0].Title() != "A" || b[0].Title() != "B" {
		t.Fatalf("同名季不应互相覆盖：%v %v", a, b)
	}
}

func TestWrite_SuffixedNameCollidesWithRealTitle(t *testing.T) {
	root := t.TempDir()
	keys := []string{"No.", "Title"}
	series := domain.Series{
		ResolvedTitle: "Show",
		Seasons: []domain.Season{
			{Title: "Specials", Episodes: []domain.Episode{domain.NewEpisode(keys, []string{"1", "A"})}},
			{Title: "Specials", Episodes: []domain.Episode{domain.NewEpisode(keys, []string{"2", "B"})}},
			{Title: "Specials (2)", Episodes: []domain.Episode{domain.NewEpisode(keys, []string{"3", "C"})}},
		},
	}

	rep, err := Writer{Root: root}.Write(series)
	if err != nil || rep.Failed() != 0 {
		t.Fatalf("不期望错误：err=%v rep=%+v", err, rep.Seasons)
	}

	seen := map[string]string{}
	for _, s := range rep.Seasons {
		if prev, ok := seen[s.Dir]; ok {
			t.Fatalf("%q 与 %q 被分配到同一目录 %q", prev, s.Season, s.Dir)
		}
		seen[s.Dir] = s.Season
	}

	want := []string{"A", "B", "C"}
	for i, s := range rep.Seasons {
		eps := readEpisodes(t, filepath.Join(s.Dir, EpisodesFile))
		if len(eps) != 1 || eps[0].Title() != want[i] {
			t.Fatalf("第 %d 季（%s）内容被覆盖：%v", i+1, s.Dir, eps)
		}
	}
}

func TestWrite_EmptySeasonWritesEmptyArray(t *testing.T) {
	root := t.TempDir()
	series := domain.Series{ResolvedTitle: "X", Seasons: []domain.Season{{Title: "Season 1"}}}

	if _, err := (Writer{Root: root}).Write(series); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	b, _ := os.ReadFile(filepath.Join(root, "X", "Season 1", EpisodesFile))
	if string(b) != "[]\n" {
		t.Fatalf("空季应写出 []，实际 %q", b)
	}
}

func TestPathSegment(t *testing.T) {
	cases := map[string]string{
		"Season 1 (2017)": "Season 1 (2017)",
		"  AC/DC  ":       "AC-DC",
		`a\b`:             "a-b",
	}
	for in, want := range cases {
		got, err := PathSegment(in)
		if err != nil || got != want {
			t.Fatalf("PathSegment(%q)=%q,%v；期望 %q", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "  ", ".", ".."} {
		if _, err := PathSegment(bad); err == nil {
			t.Fatalf("PathSegment(%q) 期望错误", bad)
		}
	}
}
