package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options 是构造 logger 的参数。
type Options struct {
	Level  string
	Format string
	// Output 默认 stderr；stdout 留给命令输出。
	Output io.Writer
}

// New 按 Options 构造 slog logger：console 用文本 handler，json 用 JSON handler；debug 级别附带源码位置。
func New(opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	w := opts.Output
	if w == nil {
		w = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	switch format {
	case "", "console":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("日志格式只能是 console 或 json，实际是 %q", opts.Format)
	}
}

// ParseLevel 把配置中的级别名映射为 slog.Level；空串视为 info。
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("日志级别只能是 debug/info/warn/error，实际是 %q", level)
	}
}

// OrDiscard 返回 logger；logger 为 nil 时返回丢弃全部输出的 logger。
func OrDiscard(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.New(slog.DiscardHandler)
}
