package api

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"order-management-service/internal/auth"
	"order-management-service/internal/models"
	"order-management-service/internal/service"
	"order-management-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService is the order use-case surface served over HTTP
type OrderService interface {
	CreateOrder(ctx context.Context, caller auth.Caller, email string, lines []service.LineRequest) (*models.OrderDetails, error)
	GetOrder(ctx context.Context, caller auth.Caller, id int64) (*models.OrderDetails, error)
	ListOrders(ctx context.Context, caller auth.Caller, page, size int, filter models.OrderFilter) (models.Page[models.OrderDetails], error)
	UpdateOrder(ctx context.Context, caller auth.Caller, id int64, status string) (*models.OrderDetails, error)
	DeleteOrder(ctx context.Context, id int64) error
}

// ItemService is the catalog surface served over HTTP
type ItemService interface {
	CreateItem(ctx context.Context, name string, price decimal.Decimal) (*models.Item, error)
	ListItems(ctx context.Context, filter string, page, size int) (models.Page[models.Item], error)
	GetItem(ctx context.Context, id int64) (*models.Item, error)
	UpdateItem(ctx context.Context, id int64, patch service.ItemPatch) (*models.Item, error)
	DeleteItem(ctx context.Context, id int64) error
}

// Pinger is a dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	orders OrderService
	items  ItemService
	checks map[string]Pinger
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler. checks are pinged by /ready.
func NewHandler(orders OrderService, items ItemService, checks map[string]Pinger) *Handler {
	return &Handler{
		orders: orders,
		items:  items,
		checks: checks,
		logger: util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(prometheusMiddleware())
	router.Use(accessLog(h.logger))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1", callerMiddleware())
	{
		orders := v1.Group("/orders")
		orders.POST("", h.createOrder)
		orders.GET("", requireAdmin(), h.listOrders)
		orders.GET("/:id", h.getOrder)
		orders.PUT("/:id", requireAdmin(), h.updateOrder)
		orders.DELETE("/:id", requireAdmin(), h.deleteOrder)

		items := v1.Group("/items")
		items.POST("", requireAdmin(), h.createItem)
		items.GET("", h.listItems)
		items.GET("/:id", h.getItem)
		items.PUT("/:id", requireAdmin(), h.updateItem)
		items.DELETE("/:id", requireAdmin(), h.deleteItem)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	failures := gin.H{}
	for _, name := range names {
		if err := h.checks[name].Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			failures[name] = err.Error()
		}
	}

	if len(failures) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "not ready",
			"failures": failures,
			"time":     time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}

const requestIDHeader = "X-Request-ID"

// requestID propagates or assigns a request id
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(requestIDHeader)))
	}
}
