package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bakehouse/db"
	"bakehouse/models"
	"bakehouse/mq"
	"bakehouse/notify"
	"bakehouse/pay"
	"bakehouse/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// statusFields is the only place status and orderStatus are written, so
// the two fields cannot drift apart through this service.
func statusFields(status string, now time.Time) bson.M {
	return bson.M{
		"status":      status,
		"orderStatus": status,
		"updatedAt":   now,
	}
}

var statusDescriptions = map[string]string{
	models.StatusPending:        "Order placed",
	models.StatusConfirmed:      "Order confirmed by the bakery",
	models.StatusPreparing:      "Your order is being prepared",
	models.StatusReady:          "Ready for pickup or dispatch",
	models.StatusOutForDelivery: "Out for delivery",
	models.StatusDelivered:      "Delivered",
	models.StatusCancelled:      "Order cancelled",
}

func describe(status string) string {
	if d, ok := statusDescriptions[status]; ok {
		return d
	}
	return "Status changed to " + utils.StatusLabel(status)
}

// UpdateOrderStatus appends a timeline entry and moves the order to status.
// Any non-empty status is accepted and repeated updates each add an entry.
// The shop mirror and, on confirmation, the tracking record are updated
// afterwards on a best-effort basis.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID, status, updatedBy string) (*models.Order, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, ErrInvalidStatus
	}
	var o models.Order
	if err := s.store.FindOne(ctx, db.Orders, db.ByID(orderID), &o); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}

	now := s.now().UTC()
	entry := models.TimelineEntry{
		Step:        status,
		Status:      status,
		Timestamp:   now,
		Description: describe(status),
		UpdatedBy:   updatedBy,
	}
	update := bson.M{
		"$set":  statusFields(status, now),
		"$push": bson.M{"timeline": entry},
	}
	matched, err := s.store.UpdateOne(ctx, db.Orders, db.ByID(orderID), update)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if matched == 0 {
		return nil, ErrOrderNotFound
	}

	log := s.logger.With(zap.String("order_id", orderID), zap.String("status", status))
	if matched, err := s.store.UpdateOne(ctx, db.ShopOrders, bson.M{"orderId": orderID}, update); err != nil {
		log.Warn("shop order mirror status update failed", zap.Error(err))
	} else if matched == 0 {
		log.Warn("shop order mirror missing")
	}

	if status == models.StatusConfirmed {
		if err := s.appendTracking(ctx, o, models.DeliveryUpdate{
			Status:    models.StatusConfirmed,
			Note:      describe(models.StatusConfirmed),
			Timestamp: now,
			UpdatedBy: updatedBy,
		}); err != nil {
			log.Warn("tracking update on confirm failed", zap.Error(err))
		}
	}

	o.Status, o.OrderStatus, o.UpdatedAt = status, status, now
	o.Timeline = append(o.Timeline, entry)

	s.publish(eventFor(mq.OrderStatusChanged, o, now))
	s.mailStatus(ctx, o, status)
	log.Info("order status updated", zap.String("updated_by", updatedBy))
	return &o, nil
}

func (s *Service) mailStatus(ctx context.Context, o models.Order, status string) {
	if s.mailer == nil || o.AddressID == "" {
		return
	}
	var a models.Address
	if err := s.store.FindOne(ctx, db.Addresses, db.ByID(o.AddressID), &a); err != nil {
		return
	}
	s.mail(notify.StatusUpdate(a.Email, o, status), o.ID)
}

// appendTracking pushes upd onto the order's tracking record, creating the
// record when the original best-effort write never happened.
func (s *Service) appendTracking(ctx context.Context, o models.Order, upd models.DeliveryUpdate) error {
	set := bson.M{"currentStatus": upd.Status, "updatedAt": upd.Timestamp}
	if upd.Location != "" {
		set["currentLocation"] = upd.Location
	}
	matched, err := s.store.UpdateOne(ctx, db.DeliveryTracking, bson.M{"orderId": o.ID}, bson.M{
		"$set":  set,
		"$push": bson.M{"deliveryUpdates": upd},
	})
	if err != nil {
		return err
	}
	if matched > 0 {
		return nil
	}
	return s.store.InsertOne(ctx, db.DeliveryTracking, models.DeliveryTracking{
		ID:              utils.GetUUID(),
		OrderID:         o.ID,
		TrackingID:      o.TrackingID,
		UserID:          o.UserID,
		CurrentStatus:   upd.Status,
		CurrentLocation: upd.Location,
		DeliveryUpdates: []models.DeliveryUpdate{upd},
		CreatedAt:       upd.Timestamp,
		UpdatedAt:       upd.Timestamp,
	})
}

// UpdateDeliveryStatus records a courier update on the tracking record and
// copies the delivery status onto the order header and its mirror.
func (s *Service) UpdateDeliveryStatus(ctx context.Context, orderID string, upd models.DeliveryUpdate) (*models.DeliveryTracking, error) {
	upd.Status = strings.TrimSpace(upd.Status)
	if upd.Status == "" {
		return nil, ErrInvalidStatus
	}
	o, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	upd.Timestamp = now

	if err := s.appendTracking(ctx, o, upd); err != nil {
		return nil, fmt.Errorf("update tracking: %w", err)
	}
	set := bson.M{"$set": bson.M{"deliveryStatus": upd.Status, "updatedAt": now}}
	if _, err := s.store.UpdateOne(ctx, db.Orders, db.ByID(orderID), set); err != nil {
		return nil, fmt.Errorf("update order delivery status: %w", err)
	}
	if _, err := s.store.UpdateOne(ctx, db.ShopOrders, bson.M{"orderId": orderID}, set); err != nil {
		s.logger.Warn("shop order mirror delivery update failed", zap.String("order_id", orderID), zap.Error(err))
	}

	o.DeliveryStatus = upd.Status
	s.publish(eventFor(mq.DeliveryUpdated, o, now))

	t, err := s.trackingFor(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("read tracking: %w", err)
	}
	return t, nil
}

// CancelOrder lets the owner cancel an order that is not yet delivered or
// already cancelled.
func (s *Service) CancelOrder(ctx context.Context, orderID, userID string) (*models.Order, error) {
	var o models.Order
	if err := s.store.FindOne(ctx, db.Orders, db.ByID(orderID), &o); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	if o.UserID != userID {
		return nil, fmt.Errorf("%w: not your order", utils.ErrForbidden)
	}
	if models.IsTerminal(o.Status) {
		return nil, ErrNotCancellable
	}
	return s.UpdateOrderStatus(ctx, orderID, models.StatusCancelled, userID)
}

// VerifyPayment checks the gateway signature for the order's payment,
// marks it authorized and confirms a pending order.
func (s *Service) VerifyPayment(ctx context.Context, orderID, userID, gatewayPaymentID, signature string) (*models.Order, error) {
	var o models.Order
	if err := s.store.FindOne(ctx, db.Orders, db.ByID(orderID), &o); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	if o.UserID != userID {
		return nil, fmt.Errorf("%w: not your order", utils.ErrForbidden)
	}
	var p models.Payment
	if err := s.store.FindOne(ctx, db.Payments, db.ByID(o.PaymentID), &p); err != nil {
		return nil, fmt.Errorf("find payment: %w", err)
	}
	if err := s.gateway.Verify(p.GatewayRef, gatewayPaymentID, signature); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrInvalidInput, err)
	}
	if _, err := s.store.UpdateOne(ctx, db.Payments, db.ByID(p.ID), bson.M{"$set": bson.M{
		"status":           pay.StatusAuthorized,
		"gatewayPaymentId": gatewayPaymentID,
	}}); err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}
	if o.Status != models.StatusPending {
		return &o, nil
	}
	return s.UpdateOrderStatus(ctx, orderID, models.StatusConfirmed, "payment")
}
