package utils

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// --- Random String and ID Generators ---

var base36Runes = []rune("0123456789abcdefghijklmnopqrstuvwxyz")

// GenerateRandomString creates a random lower-case base36 string of length n.
func GenerateRandomString(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = base36Runes[rand.Intn(len(base36Runes))]
	}
	return string(b)
}

// GenerateTrackingID returns TRK-<base36 ms timestamp>-<5 random base36>,
// upper-cased. Uniqueness is probabilistic only.
func GenerateTrackingID() string {
	return generateID("TRK", time.Now().UnixMilli())
}

// GenerateOrderNumber returns the legacy ORD-<base36 timestamp>-<random>
// number shown to customers next to the tracking id.
func GenerateOrderNumber() string {
	return generateID("ORD", time.Now().UnixMilli())
}

func generateID(prefix string, ms int64) string {
	return strings.ToUpper(fmt.Sprintf("%s-%s-%s", prefix, strconv.FormatInt(ms, 36), GenerateRandomString(5)))
}

// --- Formatting ---

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"INR": "₹",
}

// FormatPrice renders an amount with its currency symbol, e.g. $12.50.
func FormatPrice(amount float64, currency string) string {
	if sym, ok := currencySymbols[strings.ToUpper(currency)]; ok {
		return fmt.Sprintf("%s%.2f", sym, amount)
	}
	if currency == "" {
		return fmt.Sprintf("%.2f", amount)
	}
	return fmt.Sprintf("%.2f %s", amount, strings.ToUpper(currency))
}

// FormatDate renders a timestamp the way the storefront shows order dates.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006 3:04 PM")
}

// StatusLabel turns out_for_delivery into "Out For Delivery".
func StatusLabel(status string) string {
	words := strings.Fields(strings.ReplaceAll(status, "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// RoundMoney rounds to cents.
func RoundMoney(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}

// ContainsIgnoreCase reports whether substr is within str, case-insensitively.
func ContainsIgnoreCase(str, substr string) bool {
	return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
}
