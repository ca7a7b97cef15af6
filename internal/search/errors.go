package search

import (
	"errors"
	"fmt"
)

// ErrNotFound 用于 errors.Is 判断“所有候选查询都没有结果”。
var ErrNotFound = errors.New("show not found")

// NotFoundError 表示三条候选查询都没有命中。
type NotFoundError struct {
	ShowName string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v: %q", ErrNotFound, e.ShowName)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// SearchRequestFailedError 表示搜索端点返回了非 2xx。
// Resolver 会记录日志并继续下一条查询，不向上传播。
type SearchRequestFailedError struct {
	Query      string
	StatusCode int
	Body       string
}

func (e *SearchRequestFailedError) Error() string {
	return fmt.Sprintf("搜索请求失败：query=%q HTTP %d", e.Query, e.StatusCode)
}
