package pay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/razorpay/razorpay-go"
)

// Payment statuses stored on the payments collection.
const (
	StatusPending    = "pending"
	StatusAuthorized = "authorized"
	StatusFailed     = "failed"
)

var (
	ErrDeclined        = errors.New("payment declined")
	ErrBadSignature    = errors.New("invalid payment signature")
	ErrVerifyNotActive = errors.New("payment verification needs a configured gateway")
)

// Card is what the client sends. Only the masked form is ever stored.
type Card struct {
	Number string `json:"number"`
	Holder string `json:"holder"`
	Expiry string `json:"expiry"`
}

// Charge asks the gateway to prepare a payment.
type Charge struct {
	Amount   float64
	Currency string
	Receipt  string
	Method   string
}

// Authorization is the gateway's answer.
type Authorization struct {
	Status     string
	GatewayRef string
}

type Gateway interface {
	Authorize(ctx context.Context, c Charge) (Authorization, error)
	// Verify checks the signature the client got back from checkout.
	Verify(gatewayRef, paymentID, signature string) error
}

// Razorpay creates a Razorpay order per checkout; the client completes it
// and comes back with a signed payment id.
type Razorpay struct {
	client *razorpay.Client
	secret string
}

func NewRazorpay(keyID, keySecret string) *Razorpay {
	return &Razorpay{client: razorpay.NewClient(keyID, keySecret), secret: keySecret}
}

func (r *Razorpay) Authorize(ctx context.Context, c Charge) (Authorization, error) {
	currency := strings.ToUpper(c.Currency)
	if currency == "" {
		currency = "INR"
	}
	data := map[string]interface{}{
		"amount":   minorUnits(c.Amount),
		"currency": currency,
		"receipt":  c.Receipt,
	}
	order, err := r.client.Order.Create(data, nil)
	if err != nil {
		return Authorization{Status: StatusFailed}, fmt.Errorf("razorpay order: %w", err)
	}
	id, _ := order["id"].(string)
	if id == "" {
		return Authorization{Status: StatusFailed}, fmt.Errorf("razorpay order: no id in response")
	}
	return Authorization{Status: StatusPending, GatewayRef: id}, nil
}

func (r *Razorpay) Verify(gatewayRef, paymentID, signature string) error {
	if !validSignature(r.secret, gatewayRef, paymentID, signature) {
		return ErrBadSignature
	}
	return nil
}

func validSignature(secret, gatewayRef, paymentID, signature string) bool {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(gatewayRef + "|" + paymentID))
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// minorUnits converts 12.34 into 1234.
func minorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Offline records the payment as pending and settles it out of band
// (cash on delivery, or development without gateway keys).
type Offline struct{}

func (Offline) Authorize(ctx context.Context, c Charge) (Authorization, error) {
	if c.Amount < 0 {
		return Authorization{Status: StatusFailed}, ErrDeclined
	}
	return Authorization{Status: StatusPending}, nil
}

func (Offline) Verify(string, string, string) error {
	return ErrVerifyNotActive
}

// MaskCard returns the card brand and last four digits of number.
func MaskCard(number string) (brand, last4 string) {
	digits := make([]byte, 0, len(number))
	for i := 0; i < len(number); i++ {
		if number[i] >= '0' && number[i] <= '9' {
			digits = append(digits, number[i])
		}
	}
	d := string(digits)
	if len(d) < 4 {
		return "", ""
	}
	return cardBrand(d), d[len(d)-4:]
}

func cardBrand(d string) string {
	switch {
	case strings.HasPrefix(d, "4"):
		return "visa"
	case strings.HasPrefix(d, "34"), strings.HasPrefix(d, "37"):
		return "amex"
	case strings.HasPrefix(d, "6011"), strings.HasPrefix(d, "65"):
		return "discover"
	case len(d) >= 2 && d[0] == '5' && d[1] >= '1' && d[1] <= '5':
		return "mastercard"
	case len(d) >= 4 && d[:4] >= "2221" && d[:4] <= "2720":
		return "mastercard"
	}
	return "card"
}
