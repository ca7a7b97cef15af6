package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/John-Robertt/wikiseries/internal/infra/httpx"
	"github.com/John-Robertt/wikiseries/internal/logging"
	"github.com/John-Robertt/wikiseries/internal/output"
	"github.com/John-Robertt/wikiseries/internal/search"
	"github.com/John-Robertt/wikiseries/internal/tableparse"
)

const (
	// ErrCodeNotFound 表示 --config 显式指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// FileName 是 cwd 下默认发现的配置文件名。
	FileName = "wikiseries.toml"
	// MaxTimeoutSeconds 是 timeout_seconds 的上限；超出截断。
	MaxTimeoutSeconds = 300
)

// CLIArgs 保留“是否显式指定”的信息，保证 CLI 能覆盖配置文件中的任意值。
type CLIArgs struct {
	ConfigPath string

	ResultsDir    string
	ResultsDirSet bool

	OnMissingHeading    string
	OnMissingHeadingSet bool

	LogLevel    string
	LogLevelSet bool

	LogFormat    string
	LogFormatSet bool
}

// FileConfig 对应 wikiseries.toml。
type FileConfig struct {
	SearchURL        string         `toml:"search_url"`
	ResultsDir       string         `toml:"results_dir"`
	UserAgent        string         `toml:"user_agent"`
	TimeoutSeconds   int            `toml:"timeout_seconds"`
	OnMissingHeading string         `toml:"on_missing_heading"`
	Proxy            *ProxyConfig   `toml:"proxy"`
	Logging          *LoggingConfig `toml:"logging"`
}

type ProxyConfig struct {
	URL string `toml:"url"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// EffectiveConfig 是合并并规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// ConfigPath 是实际读取的配置文件；没有读取任何文件时为空。
	ConfigPath string

	SearchURL  string
	ResultsDir string
	UserAgent  string
	Timeout    time.Duration
	ProxyURL   string

	OnMissingHeading tableparse.Policy

	LogLevel  string
	LogFormat string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在，否则 config_not_found
// 2) 否则尝试 <cwd>/wikiseries.toml（可选，不存在则全部使用默认值）
//
// 覆盖优先级（固定）：CLI > 配置文件 > 内置默认。
// 相对的 results_dir 以 cwd 为基准（而不是配置文件所在目录）。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	cfgPath := filepath.Join(cwdAbs, FileName)
	explicit := strings.TrimSpace(cli.ConfigPath) != ""
	if explicit {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
	}

	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		if explicit {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
		cfgPath = ""
	}

	return merge(cwdAbs, cli, fc, cfgPath)
}

func merge(cwdAbs string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(err error) error {
		p := cfgPath
		if p == "" {
			p = "<cli>"
		}
		return &Error{Code: ErrCodeInvalid, Path: p, Err: err}
	}

	searchURL := strings.TrimSpace(fc.SearchURL)
	if searchURL == "" {
		searchURL = search.DefaultEndpoint
	}
	if err := validateHTTPURL("search_url", searchURL); err != nil {
		return EffectiveConfig{}, invalid(err)
	}

	resultsDir := pick(cli.ResultsDirSet, cli.ResultsDir, fc.ResultsDir, output.DefaultRoot)
	if resultsDir == "" {
		return EffectiveConfig{}, invalid(fmt.Errorf("results_dir 不能为空"))
	}

	userAgent := strings.TrimSpace(fc.UserAgent)
	if userAgent == "" {
		userAgent = httpx.DefaultUserAgent
	}

	timeout := httpx.DefaultTimeout
	switch {
	case fc.TimeoutSeconds < 0:
		return EffectiveConfig{}, invalid(fmt.Errorf("timeout_seconds 不能为负数：%d", fc.TimeoutSeconds))
	case fc.TimeoutSeconds > MaxTimeoutSeconds:
		timeout = MaxTimeoutSeconds * time.Second
	case fc.TimeoutSeconds > 0:
		timeout = time.Duration(fc.TimeoutSeconds) * time.Second
	}

	policy, err := tableparse.ParsePolicy(pick(cli.OnMissingHeadingSet, cli.OnMissingHeading, fc.OnMissingHeading, string(tableparse.PolicyAbort)))
	if err != nil {
		return EffectiveConfig{}, invalid(err)
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err != nil || u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, invalid(fmt.Errorf("proxy.url 无效：%q", proxyURL))
		}
	}

	var lc LoggingConfig
	if fc.Logging != nil {
		lc = *fc.Logging
	}
	logLevel := strings.ToLower(pick(cli.LogLevelSet, cli.LogLevel, lc.Level, "info"))
	if _, err := logging.ParseLevel(logLevel); err != nil {
		return EffectiveConfig{}, invalid(err)
	}
	logFormat := strings.ToLower(pick(cli.LogFormatSet, cli.LogFormat, lc.Format, "console"))
	switch logFormat {
	case "console", "json":
	default:
		return EffectiveConfig{}, invalid(fmt.Errorf("logging.format 只能是 console 或 json，实际是 %q", logFormat))
	}

	return EffectiveConfig{
		ConfigPath:       cfgPath,
		SearchURL:        searchURL,
		ResultsDir:       absCleanFrom(cwdAbs, resultsDir),
		UserAgent:        userAgent,
		Timeout:          timeout,
		ProxyURL:         proxyURL,
		OnMissingHeading: policy,
		LogLevel:         logLevel,
		LogFormat:        logFormat,
	}, nil
}

// pick 实现 CLI > config > 默认 的取值；CLI 显式给空串时保留空串，交给调用方校验。
func pick(cliSet bool, cliVal, fileVal, def string) string {
	if cliSet {
		return strings.TrimSpace(cliVal)
	}
	if v := strings.TrimSpace(fileVal); v != "" {
		return v
	}
	return def
}

func validateHTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s 无效：%q", field, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s 必须是 http/https：%q", field, raw)
	}
	return nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// readFileConfig 读取并解析 TOML 配置文件；未知字段视为错误（多半是拼写错误）。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	defer f.Close()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
