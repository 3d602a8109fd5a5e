package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	auditdomain "github.com/digiunlocks/soccer-club-sub006/internal/audit/domain"
	"github.com/digiunlocks/soccer-club-sub006/internal/config"
	integrationdomain "github.com/digiunlocks/soccer-club-sub006/internal/financeintegration/domain"
	reportdomain "github.com/digiunlocks/soccer-club-sub006/internal/financereport/domain"
	ledgerdomain "github.com/digiunlocks/soccer-club-sub006/internal/ledger/domain"
	"github.com/digiunlocks/soccer-club-sub006/internal/observability"
	obscontext "github.com/digiunlocks/soccer-club-sub006/internal/observability/context"
	obsmiddleware "github.com/digiunlocks/soccer-club-sub006/internal/observability/logger"
	obstracing "github.com/digiunlocks/soccer-club-sub006/internal/observability/tracing"
	paymentdomain "github.com/digiunlocks/soccer-club-sub006/internal/payment/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
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
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
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
	engine     *gin.Engine
	log        *zap.Logger
	paymentSvc paymentdomain.Service
	ledgerSvc  ledgerdomain.Service
	writer     integrationdomain.Service
	reportSvc  reportdomain.Service
	auditSvc   auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Log        *zap.Logger
	PaymentSvc paymentdomain.Service
	LedgerSvc  ledgerdomain.Service
	Writer     integrationdomain.Service
	ReportSvc  reportdomain.Service
	AuditSvc   auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		log:        p.Log.Named("http"),
		paymentSvc: p.PaymentSvc,
		ledgerSvc:  p.LedgerSvc,
		writer:     p.Writer,
		reportSvc:  p.ReportSvc,
		auditSvc:   p.AuditSvc,
	}

	svc.registerAdminRoutes()
	svc.registerAPIRoutes()

	return svc
}

// Authentication happens at the gateway, which forwards the admin identity
// in the X-Actor-ID header.
func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")

	// -------- Payments --------
	admin.GET("/payments", s.ListPayments)
	admin.POST("/payments", s.CreatePayment)
	payment := admin.Group("/payments/:id", targetResource("payment"))
	payment.GET("", s.GetPayment)
	payment.PATCH("", s.UpdatePayment)
	payment.DELETE("", s.DeletePayment)
	payment.POST("/refunds", s.RefundPayment)

	// -------- Ledger --------
	admin.GET("/ledger", s.ListLedgerEntries)
	admin.POST("/ledger", s.CreateLedgerEntry)
	admin.GET("/ledger/:id", targetResource("ledger_entry"), s.GetLedgerEntry)

	// -------- Reports --------
	admin.GET("/reports/summary", s.GetSummary)
	admin.GET("/reports/categories", s.GetCategoryBreakdown)
	admin.GET("/reports/trend", s.GetTrend)
	admin.GET("/reports/payments", s.GetPaymentStats)

	admin.GET("/audit-logs", s.ListAuditLogs)
}

// targetResource tags the request context with the record named by the :id
// route param so request logs and spans carry it.
func targetResource(kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := obscontext.WithResource(c.Request.Context(), kind, c.Param("id"))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/donations", s.CreateDonation)
}
