package bootstrap

import (
	"github.com/Hafiz-Al-Shams/news-nexus/internal/core/domain/quota"
	"github.com/Hafiz-Al-Shams/news-nexus/internal/infrastructure/httpserver"
)

// NewServer builds the HTTP server over the wired services.
func (a *App) NewServer(version string) *httpserver.Server {
	cfg := a.Config
	serverConfig := &httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		ServiceName:    cfg.Telemetry.ServiceName,
		Version:        version,
	}

	deps := httpserver.ServerDeps{
		NewsService:        a.News,
		BulletinService:    a.Bulletins,
		SummaryService:     a.Summaries,
		ChatService:        a.Chat,
		QuotaService:       a.Quota,
		IdentityVerifier:   a.Identity,
		RateLimiterService: a.RateLimiter,
		HealthCheckers:     a.HealthCheckers,
		Metrics:            a.Metrics,
		Gatherer:           a.Gatherer,
		QuotaLimits: map[string]quota.Limits{
			"news": a.NewsLimits,
			"ai":   a.AILimits,
		},
	}
	return httpserver.NewServer(serverConfig, a.Logger, deps)
}
