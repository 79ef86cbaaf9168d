package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/storekit/vendra/internal/clock"
	"github.com/storekit/vendra/internal/config"
	feeconfigdomain "github.com/storekit/vendra/internal/feeconfig/domain"
	ledgerdomain "github.com/storekit/vendra/internal/ledger/domain"
	orderdomain "github.com/storekit/vendra/internal/order/domain"
	billingdomain "github.com/storekit/vendra/internal/platformbilling/domain"
	"github.com/storekit/vendra/internal/webhookguard"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(reg *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestCacheMiddleware())
	r.Use(MerchantContextMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	return r
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger
	db     *gorm.DB
	genID  *snowflake.Node
	clock  clock.Clock

	orderSvc     orderdomain.Service
	ledgerSvc    ledgerdomain.Service
	feeConfigSvc feeconfigdomain.Service
	billingSvc   billingdomain.Service
	webhookGuard *webhookguard.Guard
}

type ServerParams struct {
	fx.In

	Gin   *gin.Engine
	Cfg   config.Config
	Log   *zap.Logger
	DB    *gorm.DB
	GenID *snowflake.Node
	Clock clock.Clock

	OrderSvc     orderdomain.Service
	LedgerSvc    ledgerdomain.Service
	FeeConfigSvc feeconfigdomain.Service
	BillingSvc   billingdomain.Service
	WebhookGuard *webhookguard.Guard `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine: p.Gin,
		cfg:    p.Cfg,
		log:    p.Log.Named("http.server"),
		db:     p.DB,
		genID:  p.GenID,
		clock:  p.Clock,

		orderSvc:     p.OrderSvc,
		ledgerSvc:    p.LedgerSvc,
		feeConfigSvc: p.FeeConfigSvc,
		billingSvc:   p.BillingSvc,
		webhookGuard: p.WebhookGuard,
	}

	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	api.POST("/orders", s.CreateOrder)
	api.GET("/orders", s.ListOrders)
	api.GET("/orders/:id", s.GetOrderByID)
	api.POST("/orders/:id/cancel", s.CancelOrder)
	api.GET("/orders/:id/ledger", s.ListOrderLedger)

	api.GET("/fee-config", s.GetEffectiveFeeConfig)
	api.GET("/settlements/summary", s.SettlementSummary)

	api.GET("/billing/fees", s.ComputePeriodFees)
	api.GET("/billing/invoices", s.ListPlatformInvoices)
	api.POST("/billing/cycles", s.OpenBillingCycle)
	api.POST("/billing/cycles/:id/invoice", s.GenerateCycleInvoice)
}

func (s *Server) registerWebhookRoutes() {
	webhooks := s.engine.Group("/webhooks")

	webhooks.POST("/payment", s.PaymentWebhook)
	webhooks.POST("/payout", s.PayoutWebhook)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
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
