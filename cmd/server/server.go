package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"face-attend-system/config"
	"face-attend-system/internal/global/cache"
	"face-attend-system/internal/global/database"
	"face-attend-system/internal/global/logger"
	"face-attend-system/internal/global/metrics"
	"face-attend-system/internal/global/middleware"
	internalOtel "face-attend-system/internal/global/otel"
	"face-attend-system/internal/global/pictureBed"
	"face-attend-system/internal/global/sentry"
	"face-attend-system/internal/module"
	"face-attend-system/tools"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/netutil"
)

const shutdownTimeout = 10 * time.Second

var log *slog.Logger

// Init 初始化各基础组件与模块，config.Init 需已调用
func Init() {
	log = logger.New("Server")

	tools.PanicOnErr(sentry.Init())
	database.Init()
	cache.Init()
	tools.PanicOnErr(pictureBed.Init(context.Background()))

	if config.Get().OTel.Enable {
		log.Info("OTel Enabled")
		tools.PanicOnErr(internalOtel.Init(context.Background()))
	}

	for _, m := range module.Modules {
		log.Info(fmt.Sprintf("Init Module: %s", m.GetName()))
		m.Init()
	}
}

// NewRouter 组装中间件与各模块路由
func NewRouter() *gin.Engine {
	cfg := config.Get()
	gin.SetMode(string(cfg.Mode))
	r := gin.New()
	tools.PanicOnErr(r.SetTrustedProxies(cfg.TrustedProxies))

	r.Use(middleware.RequestID())
	switch cfg.Mode {
	case config.ModeRelease:
		r.Use(middleware.Logger(logger.Get()))
	case config.ModeDebug:
		r.Use(gin.Logger())
	}
	r.Use(sentry.Middleware(), sentry.EnrichScope())
	r.Use(middleware.Cors())
	r.Use(middleware.Recovery())
	r.Use(metrics.Middleware())
	if cfg.OTel.Enable {
		r.Use(middleware.Trace())
	}

	// 本地存储的图片通过静态路由访问
	if cfg.Storage.BaseURL != "" && cfg.Storage.BaseURL[0] == '/' {
		r.Static(cfg.Storage.BaseURL, cfg.Storage.Home)
	}

	group := r.Group("/" + cfg.Prefix)
	for _, m := range module.Modules {
		log.Info(fmt.Sprintf("Init Router: %s", m.GetName()))
		m.InitRouter(group)
	}
	return r
}

// Run 启动 HTTP 服务，收到 SIGINT/SIGTERM 后优雅退出
func Run() {
	cfg := config.Get()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	ln, err := net.Listen("tcp", addr)
	tools.PanicOnErr(err)
	if cfg.MaxConns > 0 {
		ln = netutil.LimitListener(ln, cfg.MaxConns)
	}

	srv := &http.Server{
		Handler:           NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server started", "addr", addr, "mode", cfg.Mode)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			tools.PanicOnErr(err)
		}
	case <-ctx.Done():
		log.Info("Shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced shutdown", "error", err)
	}
	if err := internalOtel.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shutdown TracerProvider", "error", err)
	}
	if err := cache.Default.Close(); err != nil {
		log.Error("Failed to close redis", "error", err)
	}
	sentry.Flush(2 * time.Second)
	log.Info("Server exited")
}
