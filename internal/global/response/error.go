package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// ErrorContextKey 是用于在 gin.Context 中存储错误对象的键
const ErrorContextKey = "error"

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// Error 业务错误，Code 的前三位即 HTTP 状态码（如 40101 -> 401），小于 1000 的直接视为状态码
type Error struct {
	Code    int32  `json:"code"`
	Message string `json:"msg"`
	Origin  string `json:"origin"`
	// cause 保存原始错误，用于 Unwrap() 和 Sentry 堆栈提取
	cause error
	stack pkgerrors.StackTrace
}

func newError(code int32, msg string) *Error {
	return &Error{
		Code:    code,
		Message: msg,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("code:%d, msg:%s", e.Code, e.Message)
}

// GetCode 实现 sentry.CodedError 接口
func (e *Error) GetCode() int32 {
	return e.Code
}

// HTTPStatus 由错误码推导 HTTP 状态码
func (e *Error) HTTPStatus() int {
	code := int(e.Code)
	for code >= 1000 {
		code /= 10
	}
	if code < 100 || code > 599 {
		return http.StatusInternalServerError
	}
	return code
}

func (e *Error) Unwrap() error {
	return e.cause
}

// StackTrace 实现 pkg/errors 的 stackTracer 接口
func (e *Error) StackTrace() pkgerrors.StackTrace {
	if e.stack != nil {
		return e.stack
	}
	if st, ok := e.cause.(stackTracer); ok {
		return st.StackTrace()
	}
	return nil
}

// Is 错误码相同即视为同一错误
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithOrigin 附带原始错误，Origin 仅在 debug 模式下返回给前端
func (e *Error) WithOrigin(err error) *Error {
	if err == nil {
		return e
	}
	if _, ok := err.(stackTracer); !ok {
		err = pkgerrors.WithStack(err)
	}

	newErr := &Error{
		Code:    e.Code,
		Message: e.Message,
		Origin:  fmt.Sprintf("%+v", err),
		cause:   err,
	}
	if st, ok := err.(stackTracer); ok {
		newErr.stack = st.StackTrace()
	}
	return newErr
}

// WithTips 在消息后追加提示，release 模式也可见
func (e *Error) WithTips(details ...string) *Error {
	msg := e.Message
	if len(details) > 0 {
		msg = strings.TrimSpace(msg + " " + strings.Join(details, " "))
	}
	return &Error{
		Code:    e.Code,
		Message: msg,
		Origin:  e.Origin,
		cause:   e.cause,
		stack:   e.stack,
	}
}
