package user

import (
	"time"

	"face-attend-system/config"
	"face-attend-system/internal/global/middleware"

	"github.com/gin-gonic/gin"
)

func (u *ModuleUser) InitRouter(r *gin.RouterGroup) {
	r.POST("/token", middleware.RateLimit("login", config.Get().RateLimit.LoginPerMinute, time.Minute), Login)
	r.POST("/register", Register)

	me := r.Group("/users/me", middleware.Auth())
	me.GET("", GetMe)
	me.GET("/face", GetFace)
	me.POST("/face/upload-url", FaceUploadURL)
}
