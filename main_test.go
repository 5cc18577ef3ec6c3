package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bakehouse/config"
	"bakehouse/db"
	"bakehouse/globals"
	"bakehouse/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSeedIsRepeatable(t *testing.T) {
	store := db.NewMemory()
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	n, err := seed(ctx, store, now)
	require.NoError(t, err)
	assert.Equal(t, len(seedCategories)+1+len(seedProducts), n)

	n, err = seed(ctx, store, now)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, len(seedProducts), store.Count(db.Products))
}

func TestLoggingMiddlewareRecordsStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := loggingMiddleware(zap.New(core), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/x", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "/api/x", fields["path"])
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	securityHeaders(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := tok.SignedString(globals.JwtSecret)
	require.NoError(t, err)
	return "Bearer " + s
}

func TestServerRoutesEndToEnd(t *testing.T) {
	cfg := &config.Config{
		JWTSecret: "test-secret",
		UploadDir: t.TempDir(),
		Mail:      config.Mail{Provider: "log"},
		HTTP:      config.HTTPServer{Port: "0", CORSOrigins: []string{"*"}},
	}
	a, err := newApp(context.Background(), cfg, zap.NewNop(), true)
	require.NoError(t, err)
	t.Cleanup(func() { a.close(context.Background()) })

	_, err = seed(context.Background(), a.store, time.Now().UTC())
	require.NoError(t, err)

	do := func(method, path, auth, body string, hdr ...string) *httptest.ResponseRecorder {
		var req *http.Request
		if body != "" {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
		} else {
			req = httptest.NewRequest(method, path, nil)
		}
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		for i := 0; i+1 < len(hdr); i += 2 {
			req.Header.Set(hdr[i], hdr[i+1])
		}
		rec := httptest.NewRecorder()
		a.handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/health", "", "").Code)

	rec := do(http.MethodGet, "/api/products?category=bread&sort=price_asc", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Baguette")

	assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "/api/orders", "", "").Code)

	customer := token(t, "u1", globals.RoleCustomer)
	assert.Equal(t, http.StatusForbidden, do(http.MethodGet, "/api/admin/audit", customer, "").Code)
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/api/admin/audit", token(t, "root", globals.RoleAdmin), "").Code)

	rec = do(http.MethodPost, "/api/cart/items", customer, `{"productId":"prod-croissant","quantity":2}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	checkout := `{"address":{"fullName":"Ann Baker","line1":"1 Rye Street","city":"Crumbton"},"payment":{"method":"cod"}}`
	first := do(http.MethodPost, "/api/cart/checkout", customer, checkout, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	again := do(http.MethodPost, "/api/cart/checkout", customer, checkout, "Idempotency-Key", "k-1")
	assert.Equal(t, http.StatusCreated, again.Code)
	assert.Equal(t, first.Body.String(), again.Body.String())

	rec = do(http.MethodGet, "/api/orders", customer, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, strings.Count(rec.Body.String(), `"trackingId":"TRK-`))
}
