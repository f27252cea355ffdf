package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/learnsprout/sproutlink/internal/commerce"
	"github.com/learnsprout/sproutlink/internal/config"
	"github.com/learnsprout/sproutlink/internal/ingest"
	ingestdomain "github.com/learnsprout/sproutlink/internal/ingest/domain"
	"github.com/learnsprout/sproutlink/internal/observability"
	obsmiddleware "github.com/learnsprout/sproutlink/internal/observability/logger"
	obsmetrics "github.com/learnsprout/sproutlink/internal/observability/metrics"
	obstracing "github.com/learnsprout/sproutlink/internal/observability/tracing"
	"github.com/learnsprout/sproutlink/internal/profile"
	"github.com/learnsprout/sproutlink/internal/providers/email"
	"github.com/learnsprout/sproutlink/internal/ratelimit"
	"github.com/learnsprout/sproutlink/internal/token"
	tokendomain "github.com/learnsprout/sproutlink/internal/token/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	commerce.Module,
	email.Module,
	profile.Module,
	token.Module,
	ingest.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine    *gin.Engine
	cfg       config.Config
	log       *zap.Logger
	tokenSvc  tokendomain.Service
	ingestSvc ingestdomain.Service
	limiter   *ratelimit.PublicLimiter
}

type ServerParams struct {
	fx.In

	Gin       *gin.Engine
	Cfg       config.Config
	Log       *zap.Logger
	TokenSvc  tokendomain.Service
	IngestSvc ingestdomain.Service
	Limiter   *ratelimit.PublicLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:    p.Gin,
		cfg:       p.Cfg,
		log:       p.Log.Named("server"),
		tokenSvc:  p.TokenSvc,
		ingestSvc: p.IngestSvc,
		limiter:   p.Limiter,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")

	api.GET("/sync-orders", s.CronAuthRequired(), s.TriggerOrderSync)

	public := api.Group("")
	public.Use(s.RateLimitByIP())
	public.GET("/validate-token", s.ValidateToken)
	public.POST("/complete-registration", s.CompleteRegistration)
}
