package orders

import (
	"context"
	"errors"
	"fmt"

	"bakehouse/db"
	"bakehouse/models"
	"bakehouse/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// OrderDetails is a fully joined order.
type OrderDetails struct {
	Order    models.Order             `json:"order"`
	Tracking *models.DeliveryTracking `json:"tracking"`
}

// FetchRaw returns the orders and shopOrders documents for userID without
// reconciling them. A failing mirror read is logged and yields no mirrors.
// Headers that a mirror points at are included even when they now belong
// to another user, so that Reconcile can let them win over the mirror.
func (s *Service) FetchRaw(ctx context.Context, userID string) ([]models.Order, []models.ShopOrder, error) {
	var primary []models.Order
	if err := s.store.Find(ctx, db.Orders, bson.M{"userId": userID}, db.FindOptions{}, &primary); err != nil {
		return nil, nil, fmt.Errorf("find orders: %w", err)
	}
	var mirrors []models.ShopOrder
	if err := s.store.Find(ctx, db.ShopOrders, bson.M{"userId": userID}, db.FindOptions{}, &mirrors); err != nil {
		s.logger.Warn("shop order mirror read failed", zap.String("user_id", userID), zap.Error(err))
		mirrors = nil
	}

	reassigned, err := s.mirroredHeaders(ctx, primary, mirrors)
	if err != nil {
		return nil, nil, err
	}
	return append(primary, reassigned...), mirrors, nil
}

// mirroredHeaders loads the headers of mirrors not already covered by
// primary, matched by order id or tracking id.
func (s *Service) mirroredHeaders(ctx context.Context, primary []models.Order, mirrors []models.ShopOrder) ([]models.Order, error) {
	have := make(map[string]bool, len(primary))
	for _, o := range primary {
		have[o.ID] = true
		if o.TrackingID != "" {
			have[o.TrackingID] = true
		}
	}
	var ids, trackingIDs []string
	for _, m := range mirrors {
		if m.OrderID != "" && !have[m.OrderID] {
			ids = append(ids, m.OrderID)
		}
		if m.TrackingID != "" && !have[m.TrackingID] {
			trackingIDs = append(trackingIDs, m.TrackingID)
		}
	}

	var out []models.Order
	for _, q := range []struct {
		field  string
		values []string
	}{{"_id", ids}, {"trackingId", trackingIDs}} {
		if len(q.values) == 0 {
			continue
		}
		var found []models.Order
		if err := s.store.Find(ctx, db.Orders, bson.M{q.field: bson.M{"$in": q.values}}, db.FindOptions{}, &found); err != nil {
			return nil, fmt.Errorf("find mirrored orders: %w", err)
		}
		for _, o := range found {
			if !have[o.ID] {
				have[o.ID] = true
				out = append(out, o)
			}
		}
	}
	return out, nil
}

// GetUserOrders returns every order of userID exactly once, newest first,
// with address and payment attached where they resolve.
func (s *Service) GetUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", utils.ErrInvalidInput)
	}
	primary, mirrors, err := s.FetchRaw(ctx, userID)
	if err != nil {
		return nil, err
	}
	merged := Reconcile(userID, primary, mirrorsAsOrders(mirrors))
	for i := range merged {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.enrich(ctx, &merged[i])
	}
	return merged, nil
}

// enrich attaches Address and Payment. Missing references are logged.
func (s *Service) enrich(ctx context.Context, o *models.Order) {
	if o.AddressID != "" {
		var a models.Address
		if err := s.store.FindOne(ctx, db.Addresses, db.ByID(o.AddressID), &a); err != nil {
			s.logger.Warn("order address unresolved", zap.String("order_id", o.ID), zap.String("address_id", o.AddressID), zap.Error(err))
		} else {
			o.Address = &a
		}
	}
	if o.PaymentID != "" {
		var p models.Payment
		if err := s.store.FindOne(ctx, db.Payments, db.ByID(o.PaymentID), &p); err != nil {
			s.logger.Warn("order payment unresolved", zap.String("order_id", o.ID), zap.String("payment_id", o.PaymentID), zap.Error(err))
		} else {
			o.Payment = &p
		}
	}
}

// findOrder loads the header, falling back to the shop mirror when the
// header is missing.
func (s *Service) findOrder(ctx context.Context, orderID string) (models.Order, error) {
	var o models.Order
	err := s.store.FindOne(ctx, db.Orders, db.ByID(orderID), &o)
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return o, fmt.Errorf("find order: %w", err)
	}
	var m models.ShopOrder
	if err := s.store.FindOne(ctx, db.ShopOrders, bson.M{"orderId": orderID}, &m); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return o, ErrOrderNotFound
		}
		return o, fmt.Errorf("find shop order: %w", err)
	}
	return m.AsOrder(), nil
}

// GetOrder returns the order with address, payment, line items and tracking.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*OrderDetails, error) {
	o, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.enrich(ctx, &o)

	var items []models.OrderItem
	if err := s.store.Find(ctx, db.OrderItems, bson.M{"orderId": o.ID}, db.FindOptions{}, &items); err != nil {
		s.logger.Warn("order items read failed", zap.String("order_id", o.ID), zap.Error(err))
	}
	if len(items) > 0 {
		o.Items = items
	} else if len(o.Items) == 0 {
		// the batch write may have failed; the mirror carries a copy
		var m models.ShopOrder
		if err := s.store.FindOne(ctx, db.ShopOrders, bson.M{"orderId": o.ID}, &m); err == nil {
			o.Items = m.Items
		}
	}

	details := &OrderDetails{Order: o}
	tracking, err := s.trackingFor(ctx, o.ID)
	if err != nil {
		s.logger.Warn("tracking read failed", zap.String("order_id", o.ID), zap.Error(err))
	}
	details.Tracking = tracking
	return details, nil
}

// trackingFor returns nil without error when no record exists.
func (s *Service) trackingFor(ctx context.Context, orderID string) (*models.DeliveryTracking, error) {
	var t models.DeliveryTracking
	err := s.store.FindOne(ctx, db.DeliveryTracking, bson.M{"orderId": orderID}, &t)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetShopOrders lists a shop's orders from the mirror, newest first.
// An empty status lists all of them.
func (s *Service) GetShopOrders(ctx context.Context, shopID, status string, q utils.QueryOptions) ([]models.ShopOrder, error) {
	filter := bson.M{"shopId": shopID}
	if status != "" {
		filter["status"] = status
	}
	var out []models.ShopOrder
	err := s.store.Find(ctx, db.ShopOrders, filter, db.FindOptions{
		SortField: "createdAt",
		SortDesc:  true,
		Skip:      int64(q.Skip()),
		Limit:     int64(q.Limit),
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("find shop orders: %w", err)
	}
	return out, nil
}
