package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bakehouse/db"
	"bakehouse/models"
	"bakehouse/orders"
	"bakehouse/settings"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func placeOrder(t *testing.T, svc *orders.Service, userID string) models.Order {
	t.Helper()
	res, err := svc.CreateOrder(context.Background(), orders.CreateOrderInput{
		UserID:  userID,
		ShopID:  "s1",
		Items:   []orders.LineInput{{ProductID: "p1", Name: "Sourdough", Price: 10, Quantity: 1}},
		Address: orders.AddressInput{FullName: "Ann Baker", Line1: "1 Rye Street", City: "Crumbton"},
		Payment: orders.PaymentInput{Method: orders.MethodCOD},
	})
	require.NoError(t, err)
	require.Empty(t, res.Warnings)
	return res.Order
}

func setup(t *testing.T) (*Auditor, *orders.Service, *db.Memory) {
	t.Helper()
	store := db.NewMemory()
	svc := orders.NewService(orders.Deps{Store: store, Pricing: settings.NewService(store)})
	t.Cleanup(svc.Wait)
	a := NewAuditor(store, svc, zap.NewNop())
	a.now = func() time.Time { return time.Now().Add(time.Hour) }
	return a, svc, store
}

func TestAuditCleanAfterNormalWrites(t *testing.T) {
	a, svc, _ := setup(t)
	placeOrder(t, svc, "u1")
	placeOrder(t, svc, "u2")

	rep, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rep.ScannedOrders)
	assert.True(t, rep.Clean(), "%+v", rep)
	assert.Zero(t, rep.Issues())
}

func TestAuditReportsDrift(t *testing.T) {
	a, svc, store := setup(t)
	ctx := context.Background()
	first := placeOrder(t, svc, "u1")
	second := placeOrder(t, svc, "u1")

	// orphaned address from an interrupted checkout
	require.NoError(t, store.InsertOne(ctx, db.Addresses, models.Address{ID: "lost-addr", UserID: "u1", CreatedAt: time.Now().Add(-time.Hour)}))
	// fresh one still inside the grace window
	require.NoError(t, store.InsertOne(ctx, db.Addresses, models.Address{ID: "new-addr", UserID: "u1", CreatedAt: a.now()}))

	_, err := store.DeleteOne(ctx, db.DeliveryTracking, bson.M{"orderId": first.ID})
	require.NoError(t, err)
	_, err = store.UpdateOne(ctx, db.Orders, db.ByID(second.ID), bson.M{"$set": bson.M{"orderStatus": "ready"}})
	require.NoError(t, err)
	_, err = store.DeleteOne(ctx, db.Payments, db.ByID(second.PaymentID))
	require.NoError(t, err)

	dup := first
	dup.ID = "dup-order"
	dup.Address, dup.Payment, dup.Items = nil, nil, nil
	require.NoError(t, store.InsertOne(ctx, db.Orders, dup))

	rep, err := a.Run(ctx)
	require.NoError(t, err)
	assert.False(t, rep.Clean())
	assert.Equal(t, []string{"lost-addr"}, rep.OrphanAddresses)
	assert.Contains(t, rep.MissingTracking, first.ID)
	assert.Contains(t, rep.MissingMirror, "dup-order")
	assert.Equal(t, []Divergence{{OrderID: second.ID, Status: models.StatusPending, OrderStatus: "ready"}}, rep.StatusDivergence)
	assert.Equal(t, []Ref{{OrderID: second.ID, Ref: second.PaymentID}}, rep.UnresolvedPayment)
	assert.ElementsMatch(t, []string{first.ID, "dup-order"}, rep.DuplicateTracking[first.TrackingID])
	assert.Empty(t, rep.UnresolvedAddress)
}

func TestDebugOrdersShowsRawAndReconciled(t *testing.T) {
	a, svc, store := setup(t)
	ctx := context.Background()
	o := placeOrder(t, svc, "u1")
	_, err := store.DeleteOne(ctx, db.Orders, db.ByID(o.ID))
	require.NoError(t, err)

	v, err := a.DebugOrders(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, v.Orders)
	require.Len(t, v.ShopOrders, 1)
	require.Len(t, v.Reconciled, 1)
	assert.Equal(t, o.ID, v.Reconciled[0].ID)

	h := NewHandlers(a, zap.NewNop())
	rec := httptest.NewRecorder()
	h.DebugOrders(rec, httptest.NewRequest(http.MethodGet, "/api/admin/debug/orders/u1", nil), httprouter.Params{{Key: "userId", Value: "u1"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reconciled"`)
}
