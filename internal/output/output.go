package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/wikiseries/internal/domain"
	"github.com/John-Robertt/wikiseries/internal/infra/fsx"
	"github.com/John-Robertt/wikiseries/internal/logging"
)

const (
	// DefaultRoot 是结果根目录（相对 cwd）。
	DefaultRoot = "results"
	// EpisodesFile 是每季目录下唯一的输出文件。
	EpisodesFile = "episodes.json"
)

// ErrMissingResolvedTitle 表示 Series 没有唯一确定的标题（前置条件不满足，不写任何东西）。
var ErrMissingResolvedTitle = errors.New("resolved title 未设置：搜索结果不唯一，无法确定输出目录")

// FilesystemError 是单季写入过程中的文件系统错误。
type FilesystemError struct {
	Op   string // path / stat / remove / mkdir / encode / write
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %q：%v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// SeasonResult 记录一季的写入结果；Err 为空表示成功。
type SeasonResult struct {
	Season   string
	Dir      string
	Episodes int
	Err      error
}

// Report 汇总一次 Write 的结果。
type Report struct {
	ShowDir string
	Seasons []SeasonResult
}

// Failed 返回写入失败的季数。
func (r Report) Failed() int {
	n := 0
	for _, s := range r.Seasons {
		if s.Err != nil {
			n++
		}
	}
	return n
}

// Writer 把 Series 写成 <Root>/<resolved_title>/<season>/episodes.json。
//
// 约束：
// - 已存在的季目录先整棵删除再重建（覆盖，不合并），重复运行总是从干净目录开始
// - 每季独立：一季失败只记录日志，不影响其他季
// - 不加锁：只适用于单进程、单次调用
type Writer struct {
	Root   string
	Logger *slog.Logger

	removeTree func(string) error
}

func (w Writer) root() string {
	r := strings.TrimSpace(w.Root)
	if r == "" {
		return DefaultRoot
	}
	return filepath.Clean(r)
}

// Write 逐季写入。只有前置条件不满足（ResolvedTitle 为空或不能作为目录名）才返回 error；
// 单季失败记录在 Report 中。
func (w Writer) Write(series domain.Series) (Report, error) {
	if strings.TrimSpace(series.ResolvedTitle) == "" {
		return Report{}, ErrMissingResolvedTitle
	}
	showSeg, err := PathSegment(series.ResolvedTitle)
	if err != nil {
		return Report{}, fmt.Errorf("resolved title 不能作为目录名：%w", err)
	}

	log := logging.OrDiscard(w.Logger).With(slog.String("show", series.ResolvedTitle))
	remove := w.removeTree
	if remove == nil {
		remove = fsx.RemoveTree
	}

	rep := Report{
		ShowDir: filepath.Join(w.root(), showSeg),
		Seasons: make([]SeasonResult, 0, len(series.Seasons)),
	}
	used := make(map[string]bool, len(series.Seasons))

	for _, season := range series.Seasons {
		res := SeasonResult{Season: season.Title, Episodes: len(season.Episodes)}

		seg, err := PathSegment(season.Title)
		if err != nil {
			res.Err = &FilesystemError{Op: "path", Path: season.Title, Err: err}
			log.Error("季名不能作为目录名", slog.String("season", season.Title), slog.Any("error", err))
			rep.Seasons = append(rep.Seasons, res)
			continue
		}
		// 同一页面出现同名季（例如两张 "Specials" 表）：加序号，避免后一季删掉前一季。
		// used 记录实际分配过的目录名，序号候选与已有季名冲突时继续递增。
		if used[seg] {
			base := seg
			for n := 2; used[seg]; n++ {
				seg = fmt.Sprintf("%s (%d)", base, n)
			}
			log.Warn("季名重复，追加序号", slog.String("season", season.Title), slog.String("dir_name", seg))
		}
		used[seg] = true

		res.Dir = filepath.Join(rep.ShowDir, seg)
		res.Err = w.writeSeason(log, remove, res.Dir, season)
		rep.Seasons = append(rep.Seasons, res)
	}
	return rep, nil
}

func (w Writer) writeSeason(log *slog.Logger, remove func(string) error, dir string, season domain.Season) error {
	log = log.With(slog.String("season", season.Title), slog.String("dir", dir))

	if _, err := os.Lstat(dir); err == nil {
		log.Warn("目录已存在，删除后重建")
		if err := remove(dir); err != nil {
			log.Error("删除目录失败", slog.Any("error", err))
			return &FilesystemError{Op: "remove", Path: dir, Err: err}
		}
	} else if !os.IsNotExist(err) {
		log.Error("读取目录状态失败", slog.Any("error", err))
		return &FilesystemError{Op: "stat", Path: dir, Err: err}
	}

	if err := fsx.EnsureDir(dir); err != nil {
		log.Error("创建目录失败", slog.Any("error", err))
		return &FilesystemError{Op: "mkdir", Path: dir, Err: err}
	}

	b, err := EncodeEpisodes(season.Episodes)
	if err != nil {
		log.Error("序列化失败", slog.Any("error", err))
		return &FilesystemError{Op: "encode", Path: dir, Err: err}
	}
	if err := fsx.WriteFileAtomicReplace(dir, EpisodesFile, b); err != nil {
		log.Error("写入文件失败", slog.Any("error", err))
		return &FilesystemError{Op: "write", Path: filepath.Join(dir, EpisodesFile), Err: err}
	}

	log.Info("写入完成", slog.Int("episodes", len(season.Episodes)))
	return nil
}

// EncodeEpisodes 输出缩进 2 空格的 JSON 数组（末尾换行）；key 顺序与表头一致。
func EncodeEpisodes(eps []domain.Episode) ([]byte, error) {
	if eps == nil {
		eps = []domain.Episode{}
	}
	b, err := json.MarshalIndent(eps, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// PathSegment 把标题转换为单个目录名：路径分隔符替换为 '-'，拒绝空串、"." 与 ".."。
func PathSegment(title string) (string, error) {
	s := strings.TrimSpace(title)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\':
			return '-'
		case 0:
			return -1
		}
		return r
	}, s)
	switch s {
	case "", ".", "..":
		return "", fmt.Errorf("非法目录名：%q", title)
	}
	return s, nil
}
