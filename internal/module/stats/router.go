package stats

import (
	"face-attend-system/internal/global/middleware"

	"github.com/gin-gonic/gin"
)

func (*ModuleStats) InitRouter(r *gin.RouterGroup) {
	g := r.Group("/stats")
	g.GET("/me", middleware.Auth(), Me)

	admin := g.Group("/summary", middleware.AdminOnly())
	{
		admin.GET("", Summary)
		admin.GET("/export", SummaryExport)
	}
}
