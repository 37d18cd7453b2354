package response

import (
	"errors"
	"fmt"
	"net/http"

	"face-attend-system/config"
	"face-attend-system/internal/global/logger"
	"face-attend-system/internal/global/sentry"

	"github.com/gin-gonic/gin"
)

// ResponseBody 统一响应体
type ResponseBody struct {
	Code   int32  `json:"code"`
	Msg    string `json:"msg"`
	Data   any    `json:"data,omitempty"`
	Origin string `json:"origin,omitempty"`
}

// Success 返回成功响应，data 可省略
func Success(c *gin.Context, data ...any) {
	body := ResponseBody{Code: SuccessCode, Msg: "success"}
	if len(data) > 0 {
		body.Data = data[0]
	}
	c.JSON(http.StatusOK, body)
}

// Fail 返回失败响应，非 *Error 的错误按服务器内部错误处理
func Fail(c *gin.Context, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = ErrServerInternal.WithOrigin(err)
	}
	c.Set(ErrorContextKey, e)

	status := e.HTTPStatus()
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	if status >= http.StatusInternalServerError {
		sentry.CaptureException(c, e)
	}

	body := ResponseBody{Code: e.Code, Msg: e.Message}
	if config.Get().Mode == config.ModeDebug {
		body.Origin = e.Origin
	}
	c.JSON(status, body)
}

// Recovery 需以 defer 方式调用，将 panic 转为 500 响应
func Recovery(c *gin.Context) {
	if r := recover(); r != nil {
		err := fmt.Errorf("panic: %v", r)
		logger.WithContext(logger.New("Recovery"), c).Error("请求处理发生 panic",
			"path", c.Request.URL.Path,
			"error", err,
		)
		Fail(c, ErrServerInternal.WithOrigin(err))
		c.Abort()
	}
}
