package attendance

import (
	"log/slog"
	"net"
	"strings"
	"time"

	"face-attend-system/config"
	"face-attend-system/internal/global/face"
	"face-attend-system/internal/global/logger"
)

var (
	log      *slog.Logger
	verifier face.Verifier
	location *time.Location
	networks []*net.IPNet
	now      = time.Now
)

type ModuleAttendance struct{}

func (m *ModuleAttendance) GetName() string {
	return "Attendance"
}

func (m *ModuleAttendance) Init() {
	log = logger.New("Attendance")
	cfg := config.Get()
	verifier = face.New(cfg.Face)
	location = loadLocation(cfg.Attendance.Timezone)
	networks = parseNetworks(cfg.Attendance.AllowedNetworks)
}

func loadLocation(name string) *time.Location {
	if name == "" || strings.EqualFold(name, "Local") {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Warn("时区无效，使用本地时区", "timezone", name, "error", err)
		return time.Local
	}
	return loc
}

// parseNetworks 解析允许签到的网段，单个 IP 视为 /32 或 /128
func parseNetworks(cidrs []string) []*net.IPNet {
	var out []*net.IPNet
	for _, raw := range cidrs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			if ip := net.ParseIP(raw); ip != nil && ip.To4() != nil {
				raw += "/32"
			} else {
				raw += "/128"
			}
		}
		_, ipNet, err := net.ParseCIDR(raw)
		if err != nil {
			log.Warn("忽略无效网段", "cidr", raw, "error", err)
			continue
		}
		out = append(out, ipNet)
	}
	return out
}

func selfInit() {
	m := &ModuleAttendance{}
	m.Init()
}
