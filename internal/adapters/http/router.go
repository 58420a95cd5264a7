package http

import (
	"context"
	"net"

	"github.com/dkeye/apod/internal/adapters/assets"
	"github.com/dkeye/apod/internal/adapters/signal"
	"github.com/dkeye/apod/internal/app/orch"
	"github.com/dkeye/apod/internal/config"
	"github.com/dkeye/apod/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// isLoopback judges the direct TCP peer only. Forwarding headers are
// never consulted.
func isLoopback(c *gin.Context) bool {
	ip := net.ParseIP(c.RemoteIP())
	return domain.RoleFromIP(ip) == domain.RoleLeader
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, store *assets.Store) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	if err := r.SetTrustedProxies(nil); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Msg("trusted proxies")
	}

	secret := cfg.Secret
	if secret == "" {
		secret = uuid.NewString() + uuid.NewString()
	}
	cs := cookie.NewStore([]byte(secret))
	cs.Options(sessions.Options{
		Path:     "/",
		MaxAge:   3600 * 24 * 7,
		HttpOnly: true,
		Secure:   cfg.TLS.Enabled(),
	})
	r.Use(sessions.Sessions("APodSessions", cs))
	r.Use(ClientTokenMiddleware())

	ctrl := signal.NewSignalWSController(o, signal.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		PongWait:   cfg.PongWait,
		WriteWait:  cfg.WriteWait,
		SendBuffer: cfg.SendBuffer,
	})
	r.GET("/ws", func(c *gin.Context) {
		role := domain.RoleFromIP(net.ParseIP(c.RemoteIP()))
		ctrl.HandleSignal(ctx, c, role)
	})

	up := &uploadHandler{orch: o, maxBytes: cfg.Upload.MaxBytes, store: store}
	r.POST("/save", up.saveDefault)
	r.POST("/save/:slot", up.saveSlot)

	static := &staticHandler{store: store}
	r.NoRoute(static.serve)

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")
	return r
}
