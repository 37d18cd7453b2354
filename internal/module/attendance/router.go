package attendance

import (
	"face-attend-system/internal/global/middleware"

	"github.com/gin-gonic/gin"
)

func (m *ModuleAttendance) InitRouter(r *gin.RouterGroup) {
	g := r.Group("/attendance")
	g.POST("/mark", middleware.Auth(), Mark)
	g.GET("/history", middleware.Auth(), History)
	g.GET("/history/export", middleware.Auth(), ExportHistory)
	g.GET("/records", middleware.AdminOnly(), Records)
}
