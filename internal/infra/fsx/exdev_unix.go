//go:build unix

package fsx

import (
	"errors"
	"syscall"
)

// isEXDEV 识别裸 errno 与 *os.LinkError 包装后的 EXDEV（errors.Is 会穿透 Unwrap）。
func isEXDEV(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}
