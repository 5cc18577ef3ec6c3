package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bakehouse/db"
	"bakehouse/models"
	"bakehouse/utils"

	"go.mongodb.org/mongo-driver/bson"
)

// DocumentID is the _id of the single store settings document.
const DocumentID = "store"

// Defaults apply when the settings document is missing.
func Defaults() models.StoreSettings {
	return models.StoreSettings{
		ID:                    DocumentID,
		StoreName:             "Bakehouse",
		Currency:              "USD",
		DeliveryFee:           4.99,
		FreeDeliveryThreshold: 50,
		TaxRate:               0.08,
	}
}

type Service struct {
	store db.Store
	now   func() time.Time
}

func NewService(store db.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Get returns the stored settings, or Defaults if none were saved.
func (s *Service) Get(ctx context.Context) (models.StoreSettings, error) {
	var st models.StoreSettings
	err := s.store.FindOne(ctx, db.Settings, db.ByID(DocumentID), &st)
	if errors.Is(err, db.ErrNotFound) {
		return Defaults(), nil
	}
	if err != nil {
		return models.StoreSettings{}, fmt.Errorf("load settings: %w", err)
	}
	return st, nil
}

// Update validates and saves st, creating the document on first use.
func (s *Service) Update(ctx context.Context, st models.StoreSettings) (models.StoreSettings, error) {
	if st.DeliveryFee < 0 || st.FreeDeliveryThreshold < 0 || st.TaxRate < 0 || st.TaxRate > 1 {
		return models.StoreSettings{}, fmt.Errorf("%w: fees must be non-negative and tax rate within 0..1", utils.ErrInvalidInput)
	}
	if st.Currency == "" {
		st.Currency = Defaults().Currency
	}
	st.ID = DocumentID
	st.UpdatedAt = s.now().UTC()

	matched, err := s.store.UpdateOne(ctx, db.Settings, db.ByID(DocumentID), bson.M{"$set": bson.M{
		"storeName":             st.StoreName,
		"currency":              st.Currency,
		"deliveryFee":           st.DeliveryFee,
		"freeDeliveryThreshold": st.FreeDeliveryThreshold,
		"taxRate":               st.TaxRate,
		"updatedAt":             st.UpdatedAt,
	}})
	if err != nil {
		return models.StoreSettings{}, fmt.Errorf("update settings: %w", err)
	}
	if matched == 0 {
		if err := s.store.InsertOne(ctx, db.Settings, st); err != nil {
			return models.StoreSettings{}, fmt.Errorf("create settings: %w", err)
		}
	}
	return st, nil
}

// Summarize prices an order of the given subtotal under st.
// Delivery is free at or above the threshold; tax applies to the subtotal.
func Summarize(st models.StoreSettings, subtotal float64) models.OrderSummary {
	fee := st.DeliveryFee
	if st.FreeDeliveryThreshold > 0 && subtotal >= st.FreeDeliveryThreshold {
		fee = 0
	}
	tax := utils.RoundMoney(subtotal * st.TaxRate)
	return models.OrderSummary{
		Subtotal:    utils.RoundMoney(subtotal),
		DeliveryFee: fee,
		Tax:         tax,
		Total:       utils.RoundMoney(subtotal + fee + tax),
		Currency:    st.Currency,
	}
}
