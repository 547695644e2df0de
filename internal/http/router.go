package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/secondbrainhq/secondbrain/internal/ai"
	"github.com/secondbrainhq/secondbrain/internal/auth"
	"github.com/secondbrainhq/secondbrain/internal/cache"
	"github.com/secondbrainhq/secondbrain/internal/config"
	"github.com/secondbrainhq/secondbrain/internal/http/handlers"
	"github.com/secondbrainhq/secondbrain/internal/http/middlewares"
	"github.com/secondbrainhq/secondbrain/internal/knowledge"
	"github.com/secondbrainhq/secondbrain/internal/observability"
	"github.com/secondbrainhq/secondbrain/internal/repo/postgres"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Attachments travel inline as base64 blobs, so the JSON limit is generous.
const maxBodyBytes = 15 << 20

func NewRouter(log *slog.Logger, pool *pgxpool.Pool, cfg config.Config, aiCache cache.Store) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	// middleware, outermost first

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(otelgin.Middleware("secondbrain-api"))
	r.Use(prom.GinHandleMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// health + metrics

	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	health := handlers.NewHealthHandler(ping)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	r.GET("/api/health", health.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// wire up repositories and services

	usersRepo := postgres.NewUsersRepo(pool, prom)
	notebooksRepo := postgres.NewNotebooksRepo(pool, prom)
	pagesRepo := postgres.NewPagesRepo(pool, prom)

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.SessionTTL())

	gateway := ai.NewGateway(ai.Config{
		APIKey: cfg.GeminiAPIKey,
		Cache:  aiCache,
		Prom:   prom,
	}, log)

	svc := knowledge.NewService(notebooksRepo, pagesRepo, gateway)

	// handlers

	authHandler := handlers.NewAuthHandler(usersRepo, jwtManager, cfg)
	notebooksHandler := handlers.NewNotebooksHandler(svc)
	pagesHandler := handlers.NewPagesHandler(svc)
	assistHandler := handlers.NewAssistHandler(svc, gateway)

	gate := middlewares.NewSessionGate(jwtManager, usersRepo)

	// credential endpoints get a per-IP limiter, AI endpoints a per-user one
	loginLimiter := middlewares.NewRateLimiter(10, time.Minute)
	aiLimiter := middlewares.NewRateLimiter(30, time.Minute)

	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/register", loginLimiter.Limit(middlewares.KeyByIP), authHandler.Register)
		authGroup.POST("/login", loginLimiter.Limit(middlewares.KeyByIP), authHandler.Login)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/me", gate.RequireAuth(), authHandler.Me)
		authGroup.PUT("/me", gate.RequireAuth(), authHandler.UpdateMe)
	}

	kb := r.Group("/api/knowledge")
	kb.Use(gate.RequireAuth())
	{
		kb.GET("", notebooksHandler.List)
		kb.POST("", notebooksHandler.Create)
		kb.GET("/search", notebooksHandler.Search)

		kb.POST("/chat", aiLimiter.Limit(middlewares.KeyByUser), assistHandler.Chat)
		kb.POST("/summarize", aiLimiter.Limit(middlewares.KeyByUser), assistHandler.Summarize)
		kb.POST("/tags", aiLimiter.Limit(middlewares.KeyByUser), assistHandler.Tags)

		kb.POST("/pages", pagesHandler.Create)
		kb.GET("/pages/:id", pagesHandler.GetByID)
		kb.PUT("/pages/:id", pagesHandler.Update)
		kb.DELETE("/pages/:id", pagesHandler.Delete)

		kb.GET("/:id", notebooksHandler.GetByID)
		kb.PUT("/:id", notebooksHandler.Update)
		kb.DELETE("/:id", notebooksHandler.Delete)
	}

	return r
}
