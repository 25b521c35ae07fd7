package frp

import (
	"runtime"
	"strconv"
	"strings"
)

// goroutineID 解析 runtime.Stack 的首行 "goroutine N [running]:"
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	field := strings.Fields(strings.TrimPrefix(string(buf[:n]), "goroutine "))[0]
	id, _ := strconv.ParseInt(field, 10, 64)
	return id
}
