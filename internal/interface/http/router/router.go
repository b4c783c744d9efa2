// Package router 注册HTTP路由
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/xiebiao/stockcore/internal/interface/http/handler"
	"github.com/xiebiao/stockcore/internal/interface/http/middleware"
	"github.com/xiebiao/stockcore/pkg/response"
)

// Handlers 全部HTTP处理器
type Handlers struct {
	Stock         *handler.StockHandler
	Reservation   *handler.ReservationHandler
	PurchaseOrder *handler.PurchaseOrderHandler
	Batch         *handler.BatchHandler
	ASN           *handler.ASNHandler
	Report        *handler.ReportHandler
}

// Options 路由选项
type Options struct {
	Mode          string // debug | release | test
	EnableSwagger bool
}

// New 创建Gin引擎并注册全部路由
func New(h Handlers, opts Options, log *zap.Logger) *gin.Engine {
	switch opts.Mode {
	case gin.ReleaseMode, gin.TestMode:
		gin.SetMode(opts.Mode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(log), middleware.Metrics())

	// 健康检查
	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if opts.EnableSwagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	{
		stores := v1.Group("/stores/:store_id")
		{
			stores.GET("/stock", h.Stock.ListSnapshots)
			stores.GET("/stock/:sku", h.Stock.GetSnapshot)
			stores.GET("/stock/:sku/movements", h.Stock.History)
			stores.POST("/stock/:sku/count", h.Stock.Count)
			stores.PUT("/stock/:sku/reorder-policy", h.Stock.SetReorderPolicy)
			stores.POST("/stock/:sku/rebuild", h.Stock.Rebuild)
			stores.GET("/low-stock", h.Stock.ListLowStock)
		}

		v1.GET("/movements", h.Stock.ByReference)
		v1.POST("/movements", h.Stock.AppendMovement)
		v1.POST("/transfers", h.Stock.Transfer)

		reservations := v1.Group("/reservations")
		{
			reservations.POST("", h.Reservation.Hold)
			reservations.GET("/:id", h.Reservation.Get)
			reservations.POST("/:id/commit", h.Reservation.Commit)
			reservations.POST("/:id/release", h.Reservation.Release)
		}

		orders := v1.Group("/purchase-orders")
		{
			orders.POST("", h.PurchaseOrder.Create)
			orders.GET("", h.PurchaseOrder.List)
			orders.GET("/:id", h.PurchaseOrder.Get)
			orders.GET("/:id/batches", h.PurchaseOrder.Batches)
			orders.POST("/:id/receive", h.PurchaseOrder.Receive)
			orders.POST("/:id/cancel", h.PurchaseOrder.Cancel)
		}

		asn := v1.Group("/asn/:session_id")
		{
			asn.POST("/lines", h.ASN.Stage)
			asn.GET("/lines", h.ASN.Lines)
			asn.POST("/promote", h.ASN.Promote)
		}

		v1.GET("/lots/:lot_number/batches", h.Batch.TraceLot)
		v1.GET("/batches/:id", h.Batch.Get)
		v1.POST("/batches/consume", h.Batch.Consume)

		reports := v1.Group("/reports")
		{
			reports.GET("/reconciliation", h.Report.Reconciliation)
			reports.GET("/movements", h.Report.MovementSummary)
			reports.GET("/batch-valuation", h.Report.BatchValuation)
		}
	}

	return r
}
