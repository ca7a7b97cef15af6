package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultTimeout = 20 * time.Second
	// DefaultUserAgent 遵循 Wikimedia 的 UA 约定：可识别的工具名 + 联系方式。
	DefaultUserAgent = "wikiseries/1.0 (https://github.com/John-Robertt/wikiseries)"
)

// Transport 统一设置 User-Agent / Accept，不做重试、缓存、限速。
//
// 约束：请求失败直接返回给调用方（没有响应视为该次调用失败，而不是重试）。
type Transport struct {
	Base      http.RoundTripper
	UserAgent string
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// Clone 避免在 RoundTripper 内部“污染”调用方的 request。
	r := req.Clone(req.Context())
	if r.Header.Get("User-Agent") == "" {
		ua := strings.TrimSpace(t.UserAgent)
		if ua == "" {
			ua = DefaultUserAgent
		}
		r.Header.Set("User-Agent", ua)
	}
	return t.Base.RoundTrip(r)
}

// Options 是构造 client 的最小参数集（均可为空，走默认值）。
type Options struct {
	ProxyURL  string
	UserAgent string
	Timeout   time.Duration
}

// NewClient 构造搜索与页面抓取共用的 HTTP client。
//
// 规则：
// - ProxyURL 非空：所有请求走代理
// - Timeout<=0：使用 DefaultTimeout
func NewClient(opts Options) (*http.Client, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}

	if proxyURL := strings.TrimSpace(opts.ProxyURL); proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("proxy url 无效：%q", proxyURL)
		}
		base.Proxy = http.ProxyURL(u)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &http.Client{
		Transport: &Transport{Base: base, UserAgent: opts.UserAgent},
		Timeout:   timeout,
	}, nil
}

// StatusError 表示服务端返回了非 2xx 的 HTTP 状态码。
type StatusError struct {
	URL        string
	StatusCode int
	Body       string // 截断后的响应体，便于日志排查
}

func (e *StatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("HTTP %d: %s: %s", e.StatusCode, e.URL, e.Body)
}

// IsStatus 判断 err 是否为 *StatusError。
func IsStatus(err error) bool {
	var e *StatusError
	return errors.As(err, &e)
}

const maxErrorBody = 256

// maxBodySize 是单个响应体的读取上限；维基最大的剧集列表页也只有几 MB。测试中可替换。
var maxBodySize int64 = 32 << 20

// BodyTooLargeError 表示响应体超过 maxBodySize。
type BodyTooLargeError struct {
	URL   string
	Limit int64
}

func (e *BodyTooLargeError) Error() string {
	return fmt.Sprintf("响应体超过 %d 字节上限：%s", e.Limit, e.URL)
}

// Get 发起 GET 请求并读取响应体；非 2xx 返回 *StatusError，超过 maxBodySize 返回 *BodyTooLargeError。
func Get(ctx context.Context, c *http.Client, u string) ([]byte, error) {
	if c == nil {
		return nil, errors.New("http client 不能为空")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	limit := maxBodySize
	b, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := strings.TrimSpace(string(b))
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody] + "..."
		}
		return nil, &StatusError{URL: u, StatusCode: resp.StatusCode, Body: body}
	}
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, &BodyTooLargeError{URL: u, Limit: limit}
	}
	return b, nil
}
