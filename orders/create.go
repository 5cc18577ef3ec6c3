package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bakehouse/db"
	"bakehouse/models"
	"bakehouse/mq"
	"bakehouse/notify"
	"bakehouse/pay"
	"bakehouse/settings"
	"bakehouse/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// Payment methods accepted at checkout.
const (
	MethodCard = "card"
	MethodCOD  = "cod"
)

type LineInput struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image,omitempty"`
}

type AddressInput struct {
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type PaymentInput struct {
	Method string   `json:"method"`
	Card   pay.Card `json:"card"`
}

type CreateOrderInput struct {
	UserID   string       `json:"-"`
	ShopID   string       `json:"shopId"`
	Items    []LineInput  `json:"items"`
	Address  AddressInput `json:"address"`
	Payment  PaymentInput `json:"payment"`
	Notes    string       `json:"notes,omitempty"`
	FromCart bool         `json:"-"`
}

// CreateOrderResult carries the order and any side writes that failed.
type CreateOrderResult struct {
	Order    models.Order `json:"order"`
	Warnings []string     `json:"warnings,omitempty"`
}

// Steps after the header write. Their failures end up in Warnings.
const (
	stepItems     = "order_items"
	stepBackPatch = "back_patch"
	stepMirror    = "shop_order"
	stepTracking  = "delivery_tracking"
	stepCart      = "clear_cart"
)

func (in CreateOrderInput) validate() error {
	var problems []string
	if in.UserID == "" {
		problems = append(problems, "user id is required")
	}
	if in.ShopID == "" {
		problems = append(problems, "shop id is required")
	}
	if len(in.Items) == 0 {
		problems = append(problems, "at least one item is required")
	}
	for i, it := range in.Items {
		if it.ProductID == "" {
			problems = append(problems, fmt.Sprintf("item %d: product id is required", i))
		}
		if it.Quantity <= 0 {
			problems = append(problems, fmt.Sprintf("item %d: quantity must be positive", i))
		}
		if it.Price < 0 {
			problems = append(problems, fmt.Sprintf("item %d: price must not be negative", i))
		}
	}
	a := in.Address
	if strings.TrimSpace(a.FullName) == "" || strings.TrimSpace(a.Line1) == "" || strings.TrimSpace(a.City) == "" {
		problems = append(problems, "address needs a name, street and city")
	}
	switch in.Payment.Method {
	case MethodCOD:
	case MethodCard:
		if _, last4 := pay.MaskCard(in.Payment.Card.Number); last4 == "" {
			problems = append(problems, "card number is invalid")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown payment method %q", in.Payment.Method))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", utils.ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

// compensation is an undo step for an already written document.
type compensation struct {
	coll string
	id   string
}

func (s *Service) compensate(ctx context.Context, undo []compensation) {
	ctx = context.WithoutCancel(ctx)
	for i := len(undo) - 1; i >= 0; i-- {
		c := undo[i]
		if _, err := s.store.DeleteOne(ctx, c.coll, db.ByID(c.id)); err != nil {
			s.logger.Error("compensation failed",
				zap.String("collection", c.coll), zap.String("id", c.id), zap.Error(err))
		}
	}
}

// CreateOrder writes the address, payment and order header as one unit:
// if any of them fails, the ones already written are deleted again. Line
// items, back references, the shop mirror and the tracking record follow as
// independent best-effort writes.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	st := settings.Defaults()
	if s.pricing != nil {
		loaded, err := s.pricing.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("load pricing: %w", err)
		}
		st = loaded
	}

	var subtotal float64
	itemsCount := 0
	for _, it := range in.Items {
		subtotal += it.Price * float64(it.Quantity)
		itemsCount += it.Quantity
	}
	summary := settings.Summarize(st, subtotal)

	now := s.now().UTC()
	orderID := utils.GetUUID()
	trackingID := utils.GenerateTrackingID()
	orderNumber := utils.GenerateOrderNumber()
	var undo []compensation

	addr := models.Address{
		ID:         utils.GetUUID(),
		UserID:     in.UserID,
		FullName:   strings.TrimSpace(in.Address.FullName),
		Email:      strings.ToLower(strings.TrimSpace(in.Address.Email)),
		Phone:      in.Address.Phone,
		Line1:      in.Address.Line1,
		Line2:      in.Address.Line2,
		City:       in.Address.City,
		State:      in.Address.State,
		PostalCode: in.Address.PostalCode,
		Country:    in.Address.Country,
		CreatedAt:  now,
	}
	if err := s.store.InsertOne(ctx, db.Addresses, addr); err != nil {
		return nil, fmt.Errorf("save address: %w", err)
	}
	undo = append(undo, compensation{db.Addresses, addr.ID})

	auth, err := s.gateway.Authorize(ctx, pay.Charge{
		Amount:   summary.Total,
		Currency: summary.Currency,
		Receipt:  orderNumber,
		Method:   in.Payment.Method,
	})
	if err != nil {
		s.compensate(ctx, undo)
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	payment := models.Payment{
		ID:         utils.GetUUID(),
		UserID:     in.UserID,
		Method:     in.Payment.Method,
		Amount:     summary.Total,
		Currency:   summary.Currency,
		Status:     auth.Status,
		GatewayRef: auth.GatewayRef,
		CreatedAt:  now,
	}
	if in.Payment.Method == MethodCard {
		payment.CardBrand, payment.CardLast4 = pay.MaskCard(in.Payment.Card.Number)
		payment.CardHolder = in.Payment.Card.Holder
	}
	if err := s.store.InsertOne(ctx, db.Payments, payment); err != nil {
		s.compensate(ctx, undo)
		return nil, fmt.Errorf("save payment: %w", err)
	}
	undo = append(undo, compensation{db.Payments, payment.ID})

	order := models.Order{
		ID:             orderID,
		OrderNumber:    orderNumber,
		UserID:         in.UserID,
		ShopID:         in.ShopID,
		TrackingID:     trackingID,
		Status:         models.StatusPending,
		OrderStatus:    models.StatusPending,
		DeliveryStatus: models.StatusPending,
		OrderSummary:   summary,
		AddressID:      addr.ID,
		PaymentID:      payment.ID,
		ItemsCount:     itemsCount,
		Notes:          in.Notes,
		Timeline: []models.TimelineEntry{{
			Step:        "order_placed",
			Status:      models.StatusPending,
			Timestamp:   now,
			Description: "Order placed",
			UpdatedBy:   in.UserID,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertOne(ctx, db.Orders, order); err != nil {
		s.compensate(ctx, undo)
		return nil, fmt.Errorf("save order: %w", err)
	}

	log := s.logger.With(zap.String("order_id", orderID), zap.String("tracking_id", trackingID))
	res := &CreateOrderResult{}
	warn := func(step string, err error) {
		log.Warn("order side write failed", zap.String("step", step), zap.Error(err))
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", step, err))
	}

	items := make([]models.OrderItem, 0, len(in.Items))
	docs := make([]any, 0, len(in.Items))
	for _, it := range in.Items {
		item := models.OrderItem{
			ID:        utils.GetUUID(),
			OrderID:   orderID,
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Image:     it.Image,
			LineTotal: utils.RoundMoney(it.Price * float64(it.Quantity)),
		}
		items = append(items, item)
		docs = append(docs, item)
	}
	if err := s.store.InsertMany(ctx, db.OrderItems, docs); err != nil {
		warn(stepItems, err)
	}

	backRef := bson.M{"$set": bson.M{"orderId": orderID}}
	if _, err := s.store.UpdateOne(ctx, db.Addresses, db.ByID(addr.ID), backRef); err != nil {
		warn(stepBackPatch, fmt.Errorf("address: %w", err))
	} else {
		addr.OrderID = orderID
	}
	if _, err := s.store.UpdateOne(ctx, db.Payments, db.ByID(payment.ID), backRef); err != nil {
		warn(stepBackPatch, fmt.Errorf("payment: %w", err))
	} else {
		payment.OrderID = orderID
	}

	if err := s.store.InsertOne(ctx, db.ShopOrders, models.NewShopOrder(utils.GetUUID(), order, items)); err != nil {
		warn(stepMirror, err)
	}

	tracking := models.DeliveryTracking{
		ID:                utils.GetUUID(),
		OrderID:           orderID,
		TrackingID:        trackingID,
		UserID:            in.UserID,
		CurrentStatus:     models.StatusPending,
		CurrentLocation:   "Bakery",
		EstimatedDelivery: now.Add(48 * time.Hour),
		DeliveryUpdates: []models.DeliveryUpdate{{
			Status:    models.StatusPending,
			Location:  "Bakery",
			Note:      "Order received",
			Timestamp: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertOne(ctx, db.DeliveryTracking, tracking); err != nil {
		warn(stepTracking, err)
	}

	if in.FromCart {
		if _, err := s.store.UpdateOne(ctx, db.Users, db.ByID(in.UserID), bson.M{"$set": bson.M{
			"cart":      []models.CartItem{},
			"updatedAt": now,
		}}); err != nil {
			warn(stepCart, err)
		}
	}

	order.Address = &addr
	order.Payment = &payment
	order.Items = items
	res.Order = order

	s.publish(eventFor(mq.OrderCreated, order, now))
	s.mail(notify.OrderConfirmation(addr.Email, order), orderID)
	log.Info("order created", zap.String("user_id", in.UserID), zap.Int("warnings", len(res.Warnings)))
	return res, nil
}
