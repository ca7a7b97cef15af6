package tableparse

import (
	"errors"
	"fmt"
)

// MalformedPageError 表示页面缺少预期的表格结构（季标题、表头行）。
// 不猜测：要么按策略跳过该表，要么让整次抽取失败。
type MalformedPageError struct {
	Table  int    // 剧集表在文档中的下标（从 0 开始）
	Season string // 已解析出的季名（可能为空）
	Reason string
}

func (e *MalformedPageError) Error() string {
	if e.Season != "" {
		return fmt.Sprintf("页面结构异常：table=%d season=%q：%s", e.Table, e.Season, e.Reason)
	}
	return fmt.Sprintf("页面结构异常：table=%d：%s", e.Table, e.Reason)
}

// IsMalformedPage 判断 err 是否为 *MalformedPageError。
func IsMalformedPage(err error) bool {
	var e *MalformedPageError
	return errors.As(err, &e)
}
