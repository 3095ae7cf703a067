package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"invoicing-api/internal/auth"
	"invoicing-api/internal/backend"
	"invoicing-api/internal/domain"
	"invoicing-api/internal/service"
)

// TokenVerifier validates bearer tokens on protected routes.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Dependencies groups everything the handler needs.
type Dependencies struct {
	Users    service.UserService
	Products service.ProductService
	Invoices service.InvoiceService
	Auth     service.AuthService
	Tokens   TokenVerifier
	// Backends reports the resolved backend per aggregate.
	Backends func() []backend.Status
	// Metrics serves /metrics when set.
	Metrics     http.Handler
	Logger      *logrus.Logger
	CORSOrigins []string
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users    service.UserService
	products service.ProductService
	invoices service.InvoiceService
	auth     service.AuthService
	tokens   TokenVerifier
	backends func() []backend.Status
	metrics  http.Handler
	logger   *logrus.Logger
	origins  []string
}

func NewHandler(deps Dependencies) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		users:    deps.Users,
		products: deps.Products,
		invoices: deps.Invoices,
		auth:     deps.Auth,
		tokens:   deps.Tokens,
		backends: deps.Backends,
		metrics:  deps.Metrics,
		logger:   logger,
		origins:  deps.CORSOrigins,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestID(), requestLogger(h.logger), corsMiddleware(h.origins))

	router.GET("/", h.index)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}

	api := router.Group("/api")
	{
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
		api.GET("/backends", h.listBackends)
		api.POST("/auth/register", h.register)
		api.POST("/auth/login", h.login)
	}

	protected := api.Group("")
	protected.Use(requireAuth(h.tokens))
	{
		protected.GET("/users", h.listUsers)
		protected.GET("/users/:id", h.getUser)
		protected.PUT("/users/:id", h.updateUser)
		protected.DELETE("/users/:id", h.deleteUser)

		protected.GET("/products", h.listProducts)
		protected.GET("/products/:id", h.getProduct)
		protected.POST("/products", h.createProduct)
		protected.PUT("/products/:id", h.updateProduct)
		protected.DELETE("/products/:id", h.deleteProduct)

		protected.GET("/invoices", h.listInvoices)
		protected.GET("/invoices/:id", h.getInvoice)
		protected.POST("/invoices", h.createInvoice)
		protected.PUT("/invoices/:id", h.updateInvoice)
		protected.DELETE("/invoices/:id", h.deleteInvoice)
	}
}

func (h *Handler) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name": "invoicing-api",
		"endpoints": []string{
			"GET /api/health",
			"GET /api/backends",
			"POST /api/auth/register",
			"POST /api/auth/login",
			"GET|PUT|DELETE /api/users[/:id]",
			"GET|POST|PUT|DELETE /api/products[/:id]",
			"GET|POST|PUT|DELETE /api/invoices[/:id]",
		},
	})
}

func (h *Handler) listBackends(c *gin.Context) {
	if h.backends == nil {
		c.JSON(http.StatusOK, []backend.Status{})
		return
	}
	c.JSON(http.StatusOK, h.backends())
}

// writeError maps failure kinds to status codes. Unclassified errors are
// logged and reported with a generic message.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrDuplicate):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrAuthentication):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		h.logger.WithFields(logrus.Fields{
			"request_id": c.GetString(requestIDKey),
			"path":       c.Request.URL.Path,
		}).Errorf("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}
