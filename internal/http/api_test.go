package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"invoicing-api/internal/auth"
	"invoicing-api/internal/backend"
	"invoicing-api/internal/domain"
	"invoicing-api/internal/repository/memory"
	"invoicing-api/internal/service"
)

type testServer struct {
	router *gin.Engine
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	users := memory.NewUserRepository()
	products := memory.NewProductRepository(nil)
	invoices := memory.NewInvoiceRepository()
	issuer := auth.NewJWTIssuer("test-secret", time.Hour)

	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter", Help: "test"})
	registry.MustRegister(counter)
	counter.Inc()

	handler := NewHandler(Dependencies{
		Users:    service.NewUserService(users),
		Products: service.NewProductService(products),
		Invoices: service.NewInvoiceService(invoices, products),
		Auth:     service.NewAuthService(users, auth.NewBcryptHasher(bcrypt.MinCost), issuer),
		Tokens:   issuer,
		Backends: func() []backend.Status {
			return []backend.Status{{Aggregate: "products", Backend: "memory", Fallbacks: []string{"file"}}}
		},
		Metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Logger:  logger,
	})
	router := gin.New()
	handler.RegisterRoutes(router)

	s := &testServer{router: router}
	rec := s.do(t, http.MethodPost, "/api/auth/register", `{"name":"Alice","email":"alice@example.com","password":"pw123456"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res service.AuthResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	s.token = res.Token
	return s
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(t)
	s.token = ""

	rec := s.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = s.do(t, http.MethodGet, "/api/backends", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"aggregate":"products","backend":"memory","fallbacks":["file"]}]`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_counter 1")

	rec = s.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	valid := s.token

	s.token = ""
	rec := s.do(t, http.MethodGet, "/api/products", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	s.token = valid + "x"
	rec = s.do(t, http.MethodGet, "/api/invoices", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	s.token = valid
	rec = s.do(t, http.MethodGet, "/api/invoices", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAuthRoutes(t *testing.T) {
	s := newTestServer(t)
	s.token = ""

	rec := s.do(t, http.MethodPost, "/api/auth/register", `{"name":"Other","email":"ALICE@example.com","password":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/login", `{"email":"alice@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/auth/login", `{"email":"alice@example.com","password":"pw123456"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"token"`)
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "Hash")

	rec = s.do(t, http.MethodPost, "/api/auth/login", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvoiceFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/products", `{"name":"Pen","price":3.5}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	pen := decode[domain.Product](t, rec)
	assert.Equal(t, int64(1), pen.ID)

	rec = s.do(t, http.MethodPost, "/api/invoices", `{"number":"NF-1","customer_name":"Alice","line_items":[{"productId":1,"quantity":2}]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	nf1 := decode[domain.Invoice](t, rec)
	assert.Equal(t, 7.0, nf1.Total)

	rec = s.do(t, http.MethodPost, "/api/invoices", `{"number":"NF-1","customer_name":"Bob","line_items":[{"productId":1,"quantity":1}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/invoices", `{"number":"NF-2","customer_name":"Alice","line_items":[{"productId":999,"quantity":1}]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/invoices", `{"number":"NF-2","customer_name":"Alice"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/products/1", `{"price":5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/invoices/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7.0, decode[domain.Invoice](t, rec).Total)

	rec = s.do(t, http.MethodPut, "/api/invoices/1", `{"customer_name":"Alice Smith"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[domain.Invoice](t, rec)
	assert.Equal(t, 10.0, updated.Total)
	assert.True(t, nf1.CreatedAt.Equal(updated.CreatedAt))

	rec = s.do(t, http.MethodGet, "/api/invoices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Invoice](t, rec), 1)

	rec = s.do(t, http.MethodDelete, "/api/invoices/1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodDelete, "/api/invoices/1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/invoices/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductAndUserRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/products", `{"name":"Pen"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/products", `{"name":"P","price":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/products/7", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[[]map[string]any](t, rec)
	require.Len(t, users, 1)
	assert.NotContains(t, users[0], "password_hash")
	assert.Equal(t, "alice@example.com", users[0]["email"])

	rec = s.do(t, http.MethodPut, "/api/users/1", `{"name":"Alicia"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Alicia", decode[domain.PublicUser](t, rec).Name)

	rec = s.do(t, http.MethodDelete, "/api/users/2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnexpectedErrorsAreHidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	h := NewHandler(Dependencies{Logger: logger})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/products", nil)
	h.writeError(c, io.ErrUnexpectedEOF)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}
