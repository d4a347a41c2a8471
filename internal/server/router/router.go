package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/cafeledger/internal/server/handlers"
)

// Handlers groups the adapters mounted on the engine. Metrics may be nil.
type Handlers struct {
	Ledger  *handlers.LedgerHandler
	Reports *handlers.ReportHandler
	Metrics http.Handler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := r.Group("/api")
	{
		api.POST("/purchases", h.Ledger.RegisterPurchase)
		api.POST("/purchases/with-advance", h.Ledger.RegisterPurchaseWithAdvance)
		api.GET("/purchases/available", h.Ledger.AvailablePurchases)
		api.POST("/processing", h.Ledger.RegisterProcessing)
		api.POST("/expenses", h.Ledger.RegisterExpense)
		api.POST("/sales", h.Ledger.RegisterSale)
		api.POST("/advances", h.Ledger.RegisterAdvance)
		api.GET("/advances/outstanding", h.Ledger.OutstandingAdvances)
		api.POST("/orders", h.Ledger.RegisterOrder)
		api.GET("/orders/open", h.Ledger.OpenOrders)
		api.PATCH("/orders/:id/status", h.Ledger.UpdateOrderStatus)
		api.GET("/collections/:name", h.Ledger.ListCollection)

		api.GET("/reports/:period", h.Reports.Generate)
		api.GET("/archive/reports", h.Reports.Archive)
	}

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
