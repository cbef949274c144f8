package code

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// CodeError 携带HTTP状态码的错误
type CodeError struct {
	Code    int
	Message string
	// 原始错误 可为空
	Err error
}

func (e *CodeError) Error() string {
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}

func (e *CodeError) Unwrap() error {
	return e.Err
}

func NewCodeError(code int, msg string, args ...any) error {
	if code == 0 {
		code = http.StatusInternalServerError
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return &CodeError{Code: code, Message: msg}
}

// Wrap 保留原始错误 便于 errors.Is 判断
func Wrap(code int, err error) error {
	if err == nil {
		return nil
	}
	return &CodeError{Code: code, Message: err.Error(), Err: err}
}

// StatusOf 返回错误对应的状态码 非 CodeError 为 500
func StatusOf(err error) int {
	var e *CodeError
	if errors.As(err, &e) {
		return e.Code
	}
	return http.StatusInternalServerError
}

// NewBadRequestError 请求参数错误
func NewBadRequestError(v any) error {
	if fe, ok := v.(validator.ValidationErrors); ok {
		if len(fe) > 0 {
			e := fe[0]
			v = fmt.Sprintf("Requirement %s %s %s", e.StructField(), e.Tag(), e.Param())
		}
	}
	return &CodeError{
		Code:    http.StatusBadRequest,
		Message: fmt.Sprintf("%v", v),
	}
}

// NewNotfoundError 服务器上没有请求的资源。路径错误等。
func NewNotfoundError(v any) error {
	return &CodeError{
		Code:    http.StatusNotFound,
		Message: fmt.Sprintf("%v", v),
	}
}

// NewUnprocessableError 请求格式正确 但内容无法解析 如上传的文档不是合法的JSON/YAML
func NewUnprocessableError(v any) error {
	return &CodeError{
		Code:    http.StatusUnprocessableEntity,
		Message: fmt.Sprintf("%v", v),
	}
}

// NewBadGatewayError 后端服务不可用或返回错误
func NewBadGatewayError(v any) error {
	return &CodeError{
		Code:    http.StatusBadGateway,
		Message: fmt.Sprintf("%v", v),
	}
}
