package settlement_api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/payroll-settlement-service/internal/settlement_api/handler"
	"github.com/payroll-settlement-service/internal/settlement_api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	paymentHandler *handler.PaymentHandler,
	batchHandler *handler.BatchHandler,
	ibanHandler *handler.IBANHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Payment operations
		payments := v1.Group("/payments")
		{
			payments.POST("", paymentHandler.Create)
			payments.GET("/:id", paymentHandler.GetByID)
			payments.GET("/:id/timeline", paymentHandler.GetTimeline)
			payments.POST("/:id/cancel", paymentHandler.Cancel)
		}

		// Standalone IBAN validation
		v1.POST("/iban/validations", ibanHandler.Validate)

		// Batch operations
		batches := v1.Group("/batches")
		{
			batches.POST("", batchHandler.Create)
			batches.GET("/:id", batchHandler.GetByID)
			batches.GET("/:id/payments", batchHandler.GetPayments)
			batches.POST("/:id/dispatch", batchHandler.Dispatch)
			batches.POST("/:id/acknowledge", batchHandler.Acknowledge)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
