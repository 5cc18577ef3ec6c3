package pay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bakehouse/db"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMaskCard(t *testing.T) {
	cases := []struct {
		number, brand, last4 string
	}{
		{"4111 1111 1111 1111", "visa", "1111"},
		{"5500-0000-0000-0004", "mastercard", "0004"},
		{"2223000048400011", "mastercard", "0011"},
		{"378282246310005", "amex", "0005"},
		{"6011111111111117", "discover", "1117"},
		{"9999000011112222", "card", "2222"},
		{"12", "", ""},
	}
	for _, c := range cases {
		brand, last4 := MaskCard(c.number)
		assert.Equal(t, c.brand, brand, c.number)
		assert.Equal(t, c.last4, last4, c.number)
	}
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(1999), minorUnits(19.99))
	assert.Equal(t, int64(1000), minorUnits(10))
}

func TestRazorpaySignature(t *testing.T) {
	h := hmac.New(sha256.New, []byte("secret"))
	h.Write([]byte("order_1|pay_1"))
	sig := hex.EncodeToString(h.Sum(nil))

	r := NewRazorpay("key", "secret")
	assert.NoError(t, r.Verify("order_1", "pay_1", sig))
	assert.ErrorIs(t, r.Verify("order_1", "pay_2", sig), ErrBadSignature)
}

func TestOfflineGateway(t *testing.T) {
	auth, err := Offline{}.Authorize(context.Background(), Charge{Amount: 12})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, auth.Status)
	assert.Empty(t, auth.GatewayRef)
	assert.ErrorIs(t, Offline{}.Verify("", "", ""), ErrVerifyNotActive)
}

func idempotentHandler(store db.Store, calls *int, status int) httprouter.Handle {
	mw := NewIdempotency(store, zap.NewNop())
	return mw.Middleware(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"success":true,"call":%d}`, *calls)
	})
}

func post(h httprouter.Handle, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	h(rec, req, nil)
	return rec
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	store := db.NewMemory()
	calls := 0
	h := idempotentHandler(store, &calls, http.StatusCreated)

	first := post(h, "k1", `{"a":1}`)
	second := post(h, "k1", `{"a":1}`)

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
}

func TestIdempotencyConflictOnDifferentBody(t *testing.T) {
	store := db.NewMemory()
	calls := 0
	h := idempotentHandler(store, &calls, http.StatusCreated)

	post(h, "k1", `{"a":1}`)
	rec := post(h, "k1", `{"a":2}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, calls)
}

func TestIdempotencyWithoutKeyPassesThrough(t *testing.T) {
	store := db.NewMemory()
	calls := 0
	h := idempotentHandler(store, &calls, http.StatusCreated)

	post(h, "", `{}`)
	post(h, "", `{}`)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, store.Count(db.Idempotency))
}

func TestIdempotencyServerErrorIsRetryable(t *testing.T) {
	store := db.NewMemory()
	calls := 0
	h := idempotentHandler(store, &calls, http.StatusInternalServerError)

	post(h, "k1", `{}`)
	post(h, "k1", `{}`)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyStoreFailure(t *testing.T) {
	store := db.NewMemory()
	store.FailOn(db.OpInsert, db.Idempotency, errors.New("down"))
	calls := 0
	h := idempotentHandler(store, &calls, http.StatusCreated)

	rec := post(h, "k1", `{}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 0, calls)
}
