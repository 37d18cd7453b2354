package module

import (
	"face-attend-system/internal/module/attendance"
	"face-attend-system/internal/module/ping"
	"face-attend-system/internal/module/stats"
	"face-attend-system/internal/module/user"

	"github.com/gin-gonic/gin"
)

type Module interface {
	GetName() string
	Init()
	InitRouter(r *gin.RouterGroup)
}

var Modules []Module

func registerModule(m []Module) {
	Modules = append(Modules, m...)
}

func init() {
	// Register your module here
	registerModule([]Module{
		&ping.ModulePing{},
		&user.ModuleUser{},
		&attendance.ModuleAttendance{},
		&stats.ModuleStats{},
	})
}
