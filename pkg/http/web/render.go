package web

import (
	"errors"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/parkingwang/flowprobe/pkg/http/code"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Renderer 渲染响应
type Renderer func(*gin.Context, any, error)

// DefaultRender 默认渲染函数
// 错误输出 {message, traceid} 无返回值时只写状态码
func DefaultRender(ctx *gin.Context, data any, err error) {
	if err != nil {
		var e *code.CodeError
		if !errors.As(err, &e) {
			e = &code.CodeError{
				Code:    http.StatusInternalServerError,
				Message: err.Error(),
			}
		}
		span := trace.SpanFromContext(ctx)
		span.SetStatus(codes.Error, err.Error())
		ctx.JSON(e.Code, DefaultErrorResponse{
			Message: e.Message,
			TraceID: span.SpanContext().TraceID().String(),
		})
		return
	}
	if isNil(data) {
		ctx.Status(http.StatusNoContent)
		return
	}
	ctx.JSON(http.StatusOK, data)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

type DefaultErrorResponse struct {
	Message string `json:"message"`
	TraceID string `json:"traceid"`
}

func warpRender(opt *option, ctx *gin.Context, data any, err error) {
	if err != nil {
		var rawErr *code.CodeError
		if errors.As(err, &rawErr) {
			ctx.Set("gin.response.err", rawErr.Message)
		} else {
			ctx.Set("gin.response.err", err.Error())
		}
	}
	// 输出 response ？
	// 无法确定结果集大小 贸然输出可能会导致造成大量的垃圾日志
	opt.render(ctx, data, err)
}
