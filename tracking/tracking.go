package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bakehouse/db"
	"bakehouse/models"
	"bakehouse/orders"
	"bakehouse/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Result is what a customer sees on the tracking page.
type Result struct {
	Order    models.Order             `json:"order"`
	Tracking *models.DeliveryTracking `json:"tracking"`
}

type Service struct {
	store  db.Store
	orders *orders.Service
	logger *zap.Logger
}

func NewService(store db.Store, ords *orders.Service, logger *zap.Logger) *Service {
	return &Service{store: store, orders: ords, logger: logger}
}

// Lookup resolves query as a tracking id first and as an order id second.
// Tracking ids are not guaranteed unique; the most recent order wins.
func (s *Service) Lookup(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: tracking id or order id is required", utils.ErrInvalidInput)
	}

	orderID, err := s.byTrackingID(ctx, query)
	if err != nil {
		return nil, err
	}
	if orderID == "" {
		orderID = query
	}
	return s.result(ctx, orderID)
}

func (s *Service) byTrackingID(ctx context.Context, trackingID string) (string, error) {
	// tracking ids are generated upper case; accept what people type
	candidates := []string{trackingID}
	if up := strings.ToUpper(trackingID); up != trackingID {
		candidates = append(candidates, up)
	}
	for _, tid := range candidates {
		var hits []models.Order
		err := s.store.Find(ctx, db.Orders, bson.M{"trackingId": tid},
			db.FindOptions{SortField: "createdAt", SortDesc: true, Limit: 2}, &hits)
		if err != nil {
			return "", fmt.Errorf("find by tracking id: %w", err)
		}
		if len(hits) > 1 {
			s.logger.Warn("duplicate tracking id", zap.String("tracking_id", tid))
		}
		if len(hits) > 0 {
			return hits[0].ID, nil
		}
		var m models.ShopOrder
		err = s.store.FindOne(ctx, db.ShopOrders, bson.M{"trackingId": tid}, &m)
		if err == nil {
			return m.AsOrder().ID, nil
		}
		if !errors.Is(err, db.ErrNotFound) {
			return "", fmt.Errorf("find mirror by tracking id: %w", err)
		}
	}
	return "", nil
}

func (s *Service) result(ctx context.Context, orderID string) (*Result, error) {
	d, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &Result{Order: d.Order, Tracking: d.Tracking}, nil
}

// LookupByEmail finds the most recent order of the user registered under
// email. Orders placed with that contact e-mail but without an account are
// found through the address records.
func (s *Service) LookupByEmail(ctx context.Context, email string) (*Result, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid e-mail is required", utils.ErrInvalidInput)
	}

	var u models.User
	err := s.store.FindOne(ctx, db.Users, bson.M{"email": email}, &u)
	switch {
	case err == nil:
		list, err := s.orders.GetUserOrders(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		if len(list) > 0 {
			return s.result(ctx, list[0].ID)
		}
	case !errors.Is(err, db.ErrNotFound):
		return nil, fmt.Errorf("find user: %w", err)
	}

	var addrs []models.Address
	if err := s.store.Find(ctx, db.Addresses, bson.M{"email": email, "orderId": bson.M{"$ne": ""}},
		db.FindOptions{SortField: "createdAt", SortDesc: true, Limit: 1}, &addrs); err != nil {
		return nil, fmt.Errorf("find address by e-mail: %w", err)
	}
	if len(addrs) == 0 {
		return nil, orders.ErrOrderNotFound
	}
	return s.result(ctx, addrs[0].OrderID)
}
