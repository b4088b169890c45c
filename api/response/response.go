/*
Package response 统一的 JSON 响应。

5xx 只返回 "internal server error"，原始错误和堆栈写入日志。
堆栈优先取领域错误（shared.Stacker）记录的位置，否则在处理点捕获。

	成功: { success: true, data: {...}, code: 200, request_id: "..." }
	失败: { success: false, error: "ALREADY_JOINED", field: "...", message: "...", code: 409, request_id: "..." }
*/
package response

import (
	"runtime"

	"github.com/gin-gonic/gin"
)

func getRequestID(c *gin.Context) string {
	if requestID, exists := c.Get(RequestIDKey); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return ""
}

func GetRequestID(c *gin.Context) string {
	return getRequestID(c)
}

// captureStack 只取前 5 帧
func captureStack(skip int) []string {
	var pcs [16]uintptr
	n := runtime.Callers(skip, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	stack := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		frame, more := frames.Next()
		if frame.Function != "" {
			stack = append(stack, frame.Function)
		}
		if !more {
			break
		}
	}
	return stack
}
