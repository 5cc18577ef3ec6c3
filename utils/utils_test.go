package utils

import (
	"math"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var trackingPattern = regexp.MustCompile(`^TRK-[0-9A-Z]+-[0-9A-Z]{5,6}$`)

func TestGenerateTrackingIDFormatAndUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id := GenerateTrackingID()
		assert.Regexp(t, trackingPattern, id)
		assert.False(t, seen[id], "duplicate tracking id %s", id)
		seen[id] = true
	}
}

func TestGenerateOrderNumber(t *testing.T) {
	assert.Regexp(t, `^ORD-[0-9A-Z]+-[0-9A-Z]{5}$`, GenerateOrderNumber())
}

func TestGenerateIDUsesBase36Timestamp(t *testing.T) {
	id := generateID("TRK", 36*36)
	assert.Regexp(t, `^TRK-100-[0-9A-Z]{5}$`, id)
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$12.50", FormatPrice(12.5, "usd"))
	assert.Equal(t, "3.00 CHF", FormatPrice(3, "chf"))
	assert.Equal(t, "7.25", FormatPrice(7.25, ""))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Out For Delivery", StatusLabel("out_for_delivery"))
	assert.Equal(t, "Pending", StatusLabel("pending"))
	assert.Equal(t, "", StatusLabel(""))
	assert.Equal(t, "Échec Livraison", StatusLabel("échec_livraison"))
	assert.Equal(t, "Ölofen", StatusLabel("ölofen"))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "", FormatDate(time.Time{}))
	assert.Equal(t, "Mar 1, 2024 9:05 AM", FormatDate(time.Date(2024, 3, 1, 9, 5, 0, 0, time.UTC)))
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, 4.33, RoundMoney(4.3333))
	assert.Equal(t, 0.1, RoundMoney(0.1))
}

func TestParseQueryOptionsClampsHugePage(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/products?page=4611686018427387905&limit=3", nil)
	q := ParseQueryOptions(r, 20, 100)
	assert.Equal(t, 3, q.Limit)
	assert.GreaterOrEqual(t, q.Skip(), 0)

	r = httptest.NewRequest("GET", "/api/products?page=0&limit=-4", nil)
	q = ParseQueryOptions(r, 20, 100)
	assert.Equal(t, QueryOptions{Page: 1, Limit: 20}, q)
	assert.Equal(t, 0, q.Skip())
}

func TestSkipSaturates(t *testing.T) {
	assert.Equal(t, math.MaxInt, QueryOptions{Page: math.MaxInt, Limit: 3}.Skip())
	assert.Equal(t, 20, QueryOptions{Page: 3, Limit: 10}.Skip())
}
