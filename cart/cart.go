package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bakehouse/db"
	"bakehouse/models"
	"bakehouse/orders"
	"bakehouse/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const maxQuantity = 99

var (
	ErrProductUnavailable = fmt.Errorf("product is not available: %w", db.ErrNotFound)
	ErrNotInCart          = fmt.Errorf("item is not in the cart: %w", db.ErrNotFound)
	ErrEmptyCart          = fmt.Errorf("%w: cart is empty", utils.ErrInvalidInput)
	ErrNoShop             = fmt.Errorf("%w: product is not sold by any shop", utils.ErrInvalidInput)
)

// Service keeps the cart embedded in the user document.
type Service struct {
	store  db.Store
	orders *orders.Service
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store db.Store, ords *orders.Service, logger *zap.Logger) *Service {
	return &Service{store: store, orders: ords, logger: logger, now: time.Now}
}

// Cart is the response shape for every cart operation.
type Cart struct {
	Items    []models.CartItem `json:"items"`
	Subtotal float64           `json:"subtotal"`
	Count    int               `json:"count"`
}

func view(items []models.CartItem) *Cart {
	if items == nil {
		items = []models.CartItem{}
	}
	c := &Cart{Items: items, Subtotal: utils.RoundMoney(models.CartTotal(items))}
	for _, it := range items {
		c.Count += it.Quantity
	}
	return c
}

// load returns the user's cart; a user without a profile has an empty one.
func (s *Service) load(ctx context.Context, userID string) ([]models.CartItem, bool, error) {
	if userID == "" {
		return nil, false, fmt.Errorf("%w: user id is required", utils.ErrInvalidInput)
	}
	var u models.User
	err := s.store.FindOne(ctx, db.Users, db.ByID(userID), &u)
	if errors.Is(err, db.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load cart: %w", err)
	}
	return u.Cart, true, nil
}

func (s *Service) save(ctx context.Context, userID string, items []models.CartItem, exists bool) error {
	if items == nil {
		items = []models.CartItem{}
	}
	now := s.now().UTC()
	if !exists {
		err := s.store.InsertOne(ctx, db.Users, models.User{ID: userID, Cart: items, CreatedAt: now, UpdatedAt: now})
		if err == nil {
			return nil
		}
		if !errors.Is(err, db.ErrDuplicate) {
			return fmt.Errorf("create profile: %w", err)
		}
	}
	if _, err := s.store.UpdateOne(ctx, db.Users, db.ByID(userID), bson.M{"$set": bson.M{"cart": items, "updatedAt": now}}); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *Service) product(ctx context.Context, productID string) (models.Product, error) {
	var p models.Product
	err := s.store.FindOne(ctx, db.Products, bson.M{"_id": productID, "isActive": true}, &p)
	if errors.Is(err, db.ErrNotFound) || (err == nil && !p.InStock) {
		return p, ErrProductUnavailable
	}
	if err != nil {
		return p, fmt.Errorf("find product: %w", err)
	}
	return p, nil
}

// Get returns the cart.
func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	items, _, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return view(items), nil
}

// Add puts qty of a product in the cart, adding to any quantity already
// there. Name and price always come from the catalogue.
func (s *Service) Add(ctx context.Context, userID, productID string, qty int) (*Cart, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", utils.ErrInvalidInput)
	}
	p, err := s.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	items, exists, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity = min(items[i].Quantity+qty, maxQuantity)
			items[i].Price = p.Price
			items[i].Name = p.Name
			found = true
			break
		}
	}
	if !found {
		items = append(items, models.CartItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  min(qty, maxQuantity),
			Image:     p.Thumbnail,
			ShopID:    p.ShopID,
			AddedAt:   s.now().UTC(),
		})
	}
	if err := s.save(ctx, userID, items, exists); err != nil {
		return nil, err
	}
	return view(items), nil
}

// SetQuantity overwrites an item's quantity. Zero removes the item.
func (s *Service) SetQuantity(ctx context.Context, userID, productID string, qty int) (*Cart, error) {
	if qty < 0 || qty > maxQuantity {
		return nil, fmt.Errorf("%w: quantity must be between 0 and %d", utils.ErrInvalidInput, maxQuantity)
	}
	items, exists, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.CartItem, 0, len(items))
	found := false
	for _, it := range items {
		if it.ProductID != productID {
			out = append(out, it)
			continue
		}
		found = true
		if qty > 0 {
			it.Quantity = qty
			out = append(out, it)
		}
	}
	if !found {
		return nil, ErrNotInCart
	}
	if err := s.save(ctx, userID, out, exists); err != nil {
		return nil, err
	}
	return view(out), nil
}

// Remove drops a product from the cart.
func (s *Service) Remove(ctx context.Context, userID, productID string) (*Cart, error) {
	return s.SetQuantity(ctx, userID, productID, 0)
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, userID string) error {
	_, exists, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	return s.save(ctx, userID, nil, true)
}

// CheckoutInput is what the client sends besides the cart itself.
type CheckoutInput struct {
	Address orders.AddressInput `json:"address"`
	Payment orders.PaymentInput `json:"payment"`
	Notes   string              `json:"notes,omitempty"`
}

// Checkout places an order for the cart's contents at current catalogue
// prices. The order write path clears the cart once the order exists.
func (s *Service) Checkout(ctx context.Context, userID string, in CheckoutInput) (*orders.CreateOrderResult, error) {
	items, _, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	shopID := ""
	lines := make([]orders.LineInput, 0, len(items))
	for _, it := range items {
		p, err := s.product(ctx, it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", it.Name, err)
		}
		if p.ShopID == "" {
			return nil, fmt.Errorf("%s: %w", it.Name, ErrNoShop)
		}
		if shopID == "" {
			shopID = p.ShopID
		} else if p.ShopID != shopID {
			return nil, fmt.Errorf("%w: cart mixes products from several shops", utils.ErrInvalidInput)
		}
		lines = append(lines, orders.LineInput{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  it.Quantity,
			Image:     it.Image,
		})
	}

	return s.orders.CreateOrder(ctx, orders.CreateOrderInput{
		UserID:   userID,
		ShopID:   shopID,
		Items:    lines,
		Address:  in.Address,
		Payment:  in.Payment,
		Notes:    in.Notes,
		FromCart: true,
	})
}
