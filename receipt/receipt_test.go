package receipt

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bakehouse/db"
	"bakehouse/globals"
	"bakehouse/models"
	"bakehouse/orders"
	"bakehouse/settings"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleOrder() models.Order {
	return models.Order{
		ID:          "o1",
		OrderNumber: "ORD-1-ABCDE",
		UserID:      "u1",
		TrackingID:  "TRK-LX1-ABCDE",
		Status:      models.StatusConfirmed,
		CreatedAt:   time.Date(2024, 3, 1, 9, 5, 0, 0, time.UTC),
		OrderSummary: models.OrderSummary{
			Subtotal: 20, DeliveryFee: 4.99, Tax: 1.6, Total: 26.59, Currency: "USD",
		},
		Address: &models.Address{FullName: "Ann Baker", Line1: "1 Rye Street", City: "Crumbton"},
		Items: []models.OrderItem{
			{Name: "Sourdough", Price: 10, Quantity: 2, LineTotal: 20},
			{Name: "Crème brûlée", Price: 0, Quantity: 1},
		},
	}
}

func TestRenderProducesPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, "Bakehouse", sampleOrder()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")), "output is not a pdf")
	assert.Greater(t, buf.Len(), 1000)
}

func TestRenderNeedsTrackingID(t *testing.T) {
	o := sampleOrder()
	o.TrackingID = ""
	assert.Error(t, Render(&bytes.Buffer{}, "Bakehouse", o))
}

func TestQRPayload(t *testing.T) {
	assert.Equal(t, "bakehouse:track:TRK-1-AAAAA", QRPayload("TRK-1-AAAAA"))
}

func TestReceiptHandlerOwnerOnly(t *testing.T) {
	store := db.NewMemory()
	st := settings.NewService(store)
	svc := orders.NewService(orders.Deps{Store: store, Pricing: st})
	t.Cleanup(svc.Wait)

	res, err := svc.CreateOrder(context.Background(), orders.CreateOrderInput{
		UserID: "u1",
		ShopID: "s1",
		Items:  []orders.LineInput{{ProductID: "p1", Name: "Sourdough", Price: 10, Quantity: 2}},
		Address: orders.AddressInput{
			FullName: "Ann Baker", Line1: "1 Rye Street", City: "Crumbton",
		},
		Payment: orders.PaymentInput{Method: orders.MethodCOD},
	})
	require.NoError(t, err)

	h := NewHandlers(svc, st, zap.NewNop())
	ps := httprouter.Params{{Key: "id", Value: res.Order.ID}}

	get := func(userID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/orders/"+res.Order.ID+"/receipt", nil)
		req = req.WithContext(context.WithValue(req.Context(), globals.UserIDKey, userID))
		rec := httptest.NewRecorder()
		h.Receipt(rec, req, ps)
		return rec
	}

	rec := get("u1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	assert.Equal(t, http.StatusNotFound, get("u2").Code)
}
