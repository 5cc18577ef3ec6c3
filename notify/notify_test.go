package notify

import (
	"context"
	"testing"

	"bakehouse/config"
	"bakehouse/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewPicksProvider(t *testing.T) {
	m, err := New(config.Mail{Provider: "postmark", PostmarkToken: "x", From: "a@b.c"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &Postmark{}, m)

	m, err = New(config.Mail{Provider: "sendgrid", SendGridKey: "SG.x", From: "a@b.c"}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &SendGrid{}, m)

	_, err = New(config.Mail{Provider: "fax"}, zap.NewNop())
	assert.Error(t, err)
}

func TestLogMailerRecordsMessage(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLog(zap.New(core))

	require.NoError(t, m.Send(context.Background(), Message{To: "ann@example.com", Subject: "hi"}))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "ann@example.com", logs.All()[0].ContextMap()["to"])
}

func TestOrderConfirmationEscapesAndTotals(t *testing.T) {
	o := models.Order{
		OrderNumber:  "ORD-1-ABCDE",
		TrackingID:   "TRK-1-ABCDE",
		OrderSummary: models.OrderSummary{Total: 24.5, Currency: "USD"},
		Items:        []models.OrderItem{{Name: "Pain <au> chocolat", Quantity: 2, LineTotal: 7}},
	}
	msg := OrderConfirmation("ann@example.com", o)

	assert.Equal(t, "Your order ORD-1-ABCDE is confirmed", msg.Subject)
	assert.Contains(t, msg.HTML, "Pain &lt;au&gt; chocolat")
	assert.Contains(t, msg.Text, "$24.50")
	assert.Contains(t, msg.Text, "TRK-1-ABCDE")
}

func TestStatusUpdateUsesLabel(t *testing.T) {
	msg := StatusUpdate("ann@example.com", models.Order{TrackingID: "TRK-1"}, models.StatusOutForDelivery)
	assert.Contains(t, msg.Text, "Out For Delivery")
}
