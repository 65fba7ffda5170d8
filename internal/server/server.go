// Package server exposes the billing contract over HTTP. The billing
// service itself is a library boundary; this package is the host-process
// transport around it.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	billingdomain "github.com/quantica-hq/billing/internal/billing/domain"
	"github.com/quantica-hq/billing/internal/config"
	obsmiddleware "github.com/quantica-hq/billing/internal/observability/logger"
	obsmetrics "github.com/quantica-hq/billing/internal/observability/metrics"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(run),
)

// NewEngine builds the gin engine with recovery, request logging, error
// mapping and the operational endpoints.
func NewEngine(m *obsmetrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})))

	return r
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	billingSvc billingdomain.Service
}

type ServerParams struct {
	fx.In

	Engine  *gin.Engine
	Cfg     config.Config
	Billing billingdomain.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:     p.Engine,
		cfg:        p.Cfg,
		billingSvc: p.Billing,
	}
}

func registerRoutes(s *Server) {
	s.RegisterAPIRoutes()
}

// RegisterAPIRoutes mounts the billing contract.
func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/providers", s.ListProviders)
	api.POST("/checkout", s.CreateCheckout)
	api.POST("/payments/:id/settle", s.SettlePayment)
	api.POST("/payments/:id/fail", s.MarkPaymentFailed)
	api.POST("/keys/validate", s.ValidateAPIKey)
	api.POST("/keys/:id/revoke", s.RevokeAPIKey)
	api.GET("/state", s.ListState)
	api.POST("/webhooks/:provider", s.HandleProviderWebhook)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
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
