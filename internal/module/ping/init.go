package ping

import (
	"log/slog"

	"face-attend-system/config"
	"face-attend-system/internal/global/face"
	"face-attend-system/internal/global/logger"
)

var (
	log     *slog.Logger
	faceSvc face.Verifier
)

type ModulePing struct{}

func (p *ModulePing) GetName() string {
	return "Ping"
}

func (p *ModulePing) Init() {
	log = logger.New("Ping")
	faceSvc = face.New(config.Get().Face)
}
