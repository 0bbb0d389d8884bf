package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/guestlink/guestlink/internal/cart"
	"github.com/guestlink/guestlink/internal/config"
	"github.com/guestlink/guestlink/internal/database"
	"github.com/guestlink/guestlink/internal/identities"
	"github.com/guestlink/guestlink/internal/marketplace"
	"github.com/guestlink/guestlink/internal/middleware/ratelimit"
	"github.com/guestlink/guestlink/internal/orders"
	"github.com/guestlink/guestlink/internal/payment"
	"github.com/guestlink/guestlink/pkg/models"
)

const testGatewaySecret = "test-gateway-secret"

func newTestServer(t *testing.T) (*Server, *payment.Verifier) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	logger := zap.NewNop()
	cfg := &config.Config{
		Server: config.ServerConfig{AllowedOrigins: []string{"*"}},
		JWT:    config.JWTConfig{Secret: "test-jwt-secret", ExpirationHours: 1},
		Gateway: config.GatewayConfig{
			Secret: testGatewaySecret,
		},
		RateLimit: config.RateLimitConfig{Enabled: false},
		CacheTTL:  time.Minute,
	}

	identitiesSvc, err := identities.NewService(db, logger, cfg.JWT.Secret, time.Hour)
	require.NoError(t, err)
	require.NoError(t, identitiesSvc.EnsureAdmin(t.Context(), "root@example.com", "a long admin passphrase"))

	verifier, err := payment.NewVerifier(cfg.Gateway.Secret)
	require.NoError(t, err)
	settlementSvc := payment.NewService(verifier, payment.NewGormOrderStore(db), logger)

	server := NewServer(
		logger,
		cfg,
		db,
		identitiesSvc,
		identities.NewHandler(identitiesSvc, logger),
		marketplace.NewHandler(marketplace.NewService(db, nil, cfg.CacheTTL, logger), logger),
		cart.NewHandler(cart.NewService(db, logger), logger),
		orders.NewHandler(orders.NewService(db, logger), logger),
		payment.NewHandler(settlementSvc, logger),
		ratelimit.NewLimiter(nil),
	)
	return server, verifier
}

func doJSON(server *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func login(t *testing.T, server *Server, email, password string) string {
	t.Helper()
	w := doJSON(server, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token, _ := decode(t, w)["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t)
	w := doJSON(server, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestAuthRequired(t *testing.T) {
	server, _ := newTestServer(t)

	w := doJSON(server, http.MethodGet, "/api/v1/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(server, http.MethodGet, "/api/v1/orders", "bogus-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListingRequiresRole(t *testing.T) {
	server, _ := newTestServer(t)

	w := doJSON(server, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":     "Asha",
		"email":    "asha@example.com",
		"password": "correct horse battery",
		"phone":    "+911234567890",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	buyerToken := login(t, server, "asha@example.com", "correct horse battery")

	body := map[string]interface{}{
		"domain": "techblog.example.com",
		"title":  "Tech blog",
		"price":  "120",
	}
	w = doJSON(server, http.MethodPost, "/api/v1/marketplace/websites", buyerToken, body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	adminToken := login(t, server, "root@example.com", "a long admin passphrase")
	w = doJSON(server, http.MethodPost, "/api/v1/marketplace/websites", adminToken, body)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

// TestCheckoutAndSettlementFlow walks the full purchase path: list a
// website, add it to a cart, check out, then settle the order through the
// gateway callback, including a retry and a forged callback.
func TestCheckoutAndSettlementFlow(t *testing.T) {
	server, verifier := newTestServer(t)

	adminToken := login(t, server, "root@example.com", "a long admin passphrase")
	w := doJSON(server, http.MethodPost, "/api/v1/marketplace/websites", adminToken, map[string]interface{}{
		"domain": "techblog.example.com",
		"title":  "Tech blog",
		"price":  "120",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	website := decode(t, w)["website"].(map[string]interface{})
	websiteID := website["id"].(string)

	w = doJSON(server, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"name":     "Asha",
		"email":    "asha@example.com",
		"password": "correct horse battery",
		"phone":    "+911234567890",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	buyerToken := login(t, server, "asha@example.com", "correct horse battery")

	w = doJSON(server, http.MethodPost, "/api/v1/cart/items", buyerToken, map[string]string{
		"websiteId": websiteID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(server, http.MethodPost, "/api/v1/orders/checkout", buyerToken, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	order := decode(t, w)["order"].(map[string]interface{})
	reference := order["reference"].(string)
	require.NotEmpty(t, reference)
	assert.Equal(t, models.OrderStatusPending, order["status"])

	// Forged callback: order unchanged, generic failure.
	w = doJSON(server, http.MethodPost, "/api/v1/payments/verify", "", map[string]string{
		"orderReference":   reference,
		"paymentReference": "PAY-9",
		"signature":        "00000000000000000000000000000000",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Payment verification failed", decode(t, w)["message"])

	// Genuine callback settles the order.
	callback := map[string]string{
		"orderReference":   reference,
		"paymentReference": "PAY-9",
		"signature":        verifier.Sign(reference, "PAY-9"),
	}
	w = doJSON(server, http.MethodPost, "/api/v1/payments/verify", "", callback)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["success"])

	w = doJSON(server, http.MethodGet, "/api/v1/orders/"+reference, buyerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	settled := decode(t, w)["order"].(map[string]interface{})
	assert.Equal(t, models.OrderStatusCompleted, settled["status"])
	assert.Equal(t, models.PaymentStatusPaid, settled["payment_status"])
	assert.Equal(t, "PAY-9", settled["payment_ref"])

	// Gateway retry: success again, order unchanged.
	w = doJSON(server, http.MethodPost, "/api/v1/payments/verify", "", callback)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["success"])

	// Callback for an unknown order reports not found and creates nothing.
	w = doJSON(server, http.MethodPost, "/api/v1/payments/verify", "", map[string]string{
		"orderReference":   "ord_missing",
		"paymentReference": "PAY-1",
		"signature":        verifier.Sign("ord_missing", "PAY-1"),
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderVisibility(t *testing.T) {
	server, _ := newTestServer(t)

	adminToken := login(t, server, "root@example.com", "a long admin passphrase")
	w := doJSON(server, http.MethodPost, "/api/v1/marketplace/websites", adminToken, map[string]interface{}{
		"domain": "techblog.example.com",
		"title":  "Tech blog",
		"price":  "120",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	websiteID := decode(t, w)["website"].(map[string]interface{})["id"].(string)

	for _, email := range []string{"one@example.com", "two@example.com"} {
		w = doJSON(server, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
			"name":     "Buyer",
			"email":    email,
			"password": "correct horse battery",
			"phone":    "+911234567890",
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	firstToken := login(t, server, "one@example.com", "correct horse battery")
	secondToken := login(t, server, "two@example.com", "correct horse battery")

	w = doJSON(server, http.MethodPost, "/api/v1/cart/items", firstToken, map[string]string{"websiteId": websiteID})
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(server, http.MethodPost, "/api/v1/orders/checkout", firstToken, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	reference := decode(t, w)["order"].(map[string]interface{})["reference"].(string)

	// Another buyer cannot see the order.
	w = doJSON(server, http.MethodGet, "/api/v1/orders/"+reference, secondToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The admin can.
	w = doJSON(server, http.MethodGet, "/api/v1/orders/"+reference, adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Only the admin may change status.
	w = doJSON(server, http.MethodPut, "/api/v1/orders/"+reference+"/status", firstToken, map[string]string{"status": "cancelled"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = doJSON(server, http.MethodPut, "/api/v1/orders/"+reference+"/status", adminToken, map[string]string{"status": "cancelled"})
	assert.Equal(t, http.StatusOK, w.Code)
}
