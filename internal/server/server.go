package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/mergematrix/internal/config"
	"github.com/smallbiznis/mergematrix/internal/generation"
	generationdomain "github.com/smallbiznis/mergematrix/internal/generation/domain"
	"github.com/smallbiznis/mergematrix/internal/mergerecord"
	mergerecorddomain "github.com/smallbiznis/mergematrix/internal/mergerecord/domain"
	"github.com/smallbiznis/mergematrix/internal/observability"
	obsmiddleware "github.com/smallbiznis/mergematrix/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/mergematrix/internal/observability/metrics"
	obstracing "github.com/smallbiznis/mergematrix/internal/observability/tracing"
	"github.com/smallbiznis/mergematrix/internal/providers"
	"github.com/smallbiznis/mergematrix/internal/ratelimit"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	providers.Module,
	generation.Module,
	mergerecord.Module,
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

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	mongo          *mongo.Database
	generationSvc  generationdomain.Service
	mergeRecordSvc mergerecorddomain.Service
	limiter        *ratelimit.Limiter
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	GenerationSvc  generationdomain.Service
	MergeRecordSvc mergerecorddomain.Service
	Limiter        *ratelimit.Limiter `optional:"true"`
	DB             *gorm.DB           `optional:"true"`
	Mongo          *mongo.Database    `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		mongo:          p.Mongo,
		generationSvc:  p.GenerationSvc,
		mergeRecordSvc: p.MergeRecordSvc,
		limiter:        p.Limiter,
	}

	svc.RegisterRoutes()
	return svc
}

func (s *Server) RegisterRoutes() {
	s.engine.GET("/health", s.Health)

	api := s.engine.Group(s.cfg.APIBasePath)

	generations := api.Group("/generations", CallerIdentity())
	generations.GET("", s.GetGenerations)
	generations.POST("", s.RateLimit(ratelimit.ScopeGenerations), s.RecordGeneration)

	api.GET("/pdfs", s.ListMergeRecords)
	api.POST("/pdfs", s.RateLimit(ratelimit.ScopeRecords), s.CreateMergeRecord)
	api.GET("/pdfs/export", s.ExportMergeRecords)

	admin := s.engine.Group("/admin")
	admin.Use(s.AdminRequired())
	admin.PUT("/accounts/tier", s.SetAccountTier)
}
