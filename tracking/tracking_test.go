package tracking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bakehouse/db"
	"bakehouse/globals"
	"bakehouse/middleware"
	"bakehouse/models"
	"bakehouse/orders"
	"bakehouse/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	store  *db.Memory
	orders *orders.Service
	svc    *Service
}

func newFixture(t *testing.T) *fixture {
	store := db.NewMemory()
	ords := orders.NewService(orders.Deps{Store: store, Logger: zap.NewNop()})
	t.Cleanup(ords.Wait)
	return &fixture{store: store, orders: ords, svc: NewService(store, ords, zap.NewNop())}
}

func (f *fixture) place(t *testing.T, userID, email string) models.Order {
	t.Helper()
	res, err := f.orders.CreateOrder(context.Background(), orders.CreateOrderInput{
		UserID:  userID,
		ShopID:  "s1",
		Items:   []orders.LineInput{{ProductID: "p1", Price: 4, Quantity: 1}},
		Address: orders.AddressInput{FullName: "Ann", Email: email, Line1: "1 Rye St", City: "Crumbton"},
		Payment: orders.PaymentInput{Method: orders.MethodCOD},
	})
	require.NoError(t, err)
	return res.Order
}

func TestLookupByTrackingID(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, "u1", "ann@example.com")

	res, err := f.svc.Lookup(context.Background(), o.TrackingID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, res.Order.ID)
	require.NotNil(t, res.Tracking)
	assert.Equal(t, o.TrackingID, res.Tracking.TrackingID)

	res, err = f.svc.Lookup(context.Background(), " "+strings.ToLower(o.TrackingID)+" ")
	require.NoError(t, err)
	assert.Equal(t, o.ID, res.Order.ID)
}

func TestLookupFallsBackToOrderID(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, "u1", "")

	res, err := f.svc.Lookup(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.TrackingID, res.Order.TrackingID)
}

func TestLookupPrefersMostRecentOnDuplicateTrackingID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, f.store.InsertOne(ctx, db.Orders, models.Order{ID: "old", TrackingID: "TRK-DUP-AAAAA", UserID: "u1", CreatedAt: now.Add(-time.Hour)}))
	require.NoError(t, f.store.InsertOne(ctx, db.Orders, models.Order{ID: "new", TrackingID: "TRK-DUP-AAAAA", UserID: "u1", CreatedAt: now}))

	res, err := f.svc.Lookup(ctx, "TRK-DUP-AAAAA")
	require.NoError(t, err)
	assert.Equal(t, "new", res.Order.ID)
	assert.Nil(t, res.Tracking)
}

func TestLookupMirrorOnlyOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := models.Order{ID: "o-mirror", TrackingID: "TRK-M-BBBBB", UserID: "u1"}
	require.NoError(t, f.store.InsertOne(ctx, db.ShopOrders, models.NewShopOrder("m1", o, nil)))

	res, err := f.svc.Lookup(ctx, "TRK-M-BBBBB")
	require.NoError(t, err)
	assert.Equal(t, "o-mirror", res.Order.ID)
}

func TestLookupNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Lookup(context.Background(), "TRK-NOPE-00000")
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)

	_, err = f.svc.Lookup(context.Background(), "")
	assert.ErrorIs(t, err, utils.ErrInvalidInput)
}

func TestLookupByEmailViaUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.InsertOne(ctx, db.Users, models.User{ID: "u1", Email: "ann@example.com"}))
	first := f.place(t, "u1", "")
	second := f.place(t, "u1", "")

	res, err := f.svc.LookupByEmail(ctx, "Ann@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", res.Order.UserID)
	assert.Contains(t, []string{first.ID, second.ID}, res.Order.ID)
}

func TestLookupByEmailViaAddress(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, "guest-1", "guest@example.com")

	res, err := f.svc.LookupByEmail(context.Background(), "guest@example.com")
	require.NoError(t, err)
	assert.Equal(t, o.ID, res.Order.ID)

	_, err = f.svc.LookupByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)

	_, err = f.svc.LookupByEmail(context.Background(), "not-an-email")
	assert.ErrorIs(t, err, utils.ErrInvalidInput)
}

func TestTrackHandlerHidesContactDetails(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, "u1", "ann@example.com")
	h := NewHandlers(f.svc, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Track(rec, httptest.NewRequest(http.MethodGet, "/api/track?q="+o.TrackingID, nil), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "ann@example.com")
	assert.NotContains(t, rec.Body.String(), "1 Rye St")

	var body struct {
		Success bool         `json:"success"`
		Order   models.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, o.TrackingID, body.Order.TrackingID)

	rec = httptest.NewRecorder()
	h.Track(rec, httptest.NewRequest(http.MethodGet, "/api/track?q=TRK-NONE-11111", nil), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		UserID:           userID,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	signed, err := tok.SignedString(globals.JwtSecret)
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestTrackHandlerShowsOwnerFullOrder(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, "u1", "ann@example.com")
	track := middleware.OptionalAuth(NewHandlers(f.svc, zap.NewNop()).Track)

	req := httptest.NewRequest(http.MethodGet, "/api/track?q="+o.TrackingID, nil)
	req.Header.Set("Authorization", bearer(t, "u1"))
	rec := httptest.NewRecorder()
	track(rec, req, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "1 Rye St")

	req = httptest.NewRequest(http.MethodGet, "/api/track?q="+o.TrackingID, nil)
	req.Header.Set("Authorization", bearer(t, "u2"))
	rec = httptest.NewRecorder()
	track(rec, req, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "1 Rye St")
}
