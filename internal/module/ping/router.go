package ping

import (
	"context"
	"errors"
	"net/http"
	"time"

	"face-attend-system/internal/global/cache"
	"face-attend-system/internal/global/database"
	"face-attend-system/internal/global/metrics"
	"face-attend-system/internal/global/response"

	"github.com/gin-gonic/gin"
)

const version = "1.0.0"

func (p *ModulePing) InitRouter(r *gin.RouterGroup) {
	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"version": version,
		})
	})
	r.GET("/healthz", Healthz)
	r.GET("/metrics", metrics.Handler())
}

type component struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func check(err error) component {
	switch {
	case err == nil:
		return component{Status: "ok"}
	case errors.Is(err, cache.ErrDisabled):
		return component{Status: "disabled"}
	default:
		return component{Status: "down", Error: err.Error()}
	}
}

// Healthz 数据库不可用时返回 503，redis 与人脸服务只做展示
func Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	db := check(database.Ping(ctx))
	body := gin.H{
		"version": version,
		"db":      db,
		"redis":   check(cache.Default.Ping(ctx)),
		"face":    check(faceSvc.Health(ctx)),
	}
	if db.Status != "ok" {
		log.Error("健康检查失败", "db_error", db.Error)
		c.JSON(http.StatusServiceUnavailable, response.ResponseBody{
			Code: response.ErrServiceDown.Code,
			Msg:  response.ErrServiceDown.Message,
			Data: body,
		})
		return
	}
	response.Success(c, body)
}
