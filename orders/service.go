package orders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bakehouse/db"
	"bakehouse/models"
	"bakehouse/mq"
	"bakehouse/notify"
	"bakehouse/pay"
	"bakehouse/utils"

	"go.uber.org/zap"
)

var (
	ErrOrderNotFound  = fmt.Errorf("order not found: %w", db.ErrNotFound)
	ErrInvalidStatus  = fmt.Errorf("invalid status: %w", utils.ErrInvalidInput)
	ErrNotCancellable = fmt.Errorf("order can no longer be cancelled: %w", utils.ErrConflict)
	ErrPaymentFailed  = errors.New("payment failed")
	ErrWrongShop      = fmt.Errorf("order belongs to another shop: %w", utils.ErrForbidden)
)

// Pricing supplies the store settings an order is priced with.
type Pricing interface {
	Get(ctx context.Context) (models.StoreSettings, error)
}

// Deps are the collaborators of a Service. Live, Stream and Mailer may be
// nil; the matching side effects are then skipped.
type Deps struct {
	Store   db.Store
	Pricing Pricing
	Gateway pay.Gateway
	Live    mq.Publisher // per-user and per-shop change notifications
	Stream  mq.Publisher // lifecycle events for downstream consumers
	Mailer  notify.Mailer
	Logger  *zap.Logger
}

type Service struct {
	store   db.Store
	pricing Pricing
	gateway pay.Gateway
	live    mq.Publisher
	stream  mq.Publisher
	mailer  notify.Mailer
	logger  *zap.Logger
	now     func() time.Time

	// background publish and mail work
	wg sync.WaitGroup
}

func NewService(d Deps) *Service {
	s := &Service{
		store:   d.Store,
		pricing: d.Pricing,
		gateway: d.Gateway,
		live:    d.Live,
		stream:  d.Stream,
		mailer:  d.Mailer,
		logger:  d.Logger,
		now:     time.Now,
	}
	if s.gateway == nil {
		s.gateway = pay.Offline{}
	}
	if s.live == nil {
		s.live = mq.Nop{}
	}
	if s.stream == nil {
		s.stream = mq.Nop{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Wait blocks until background notifications have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// background runs fn detached from the request, bounded by a timeout.
func (s *Service) background(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		fn(ctx)
	}()
}

func (s *Service) publish(ev mq.Event) {
	s.background(func(ctx context.Context) {
		if err := mq.PublishAll(ctx, s.live, ev); err != nil {
			s.logger.Warn("publish live event", zap.String("order_id", ev.OrderID), zap.String("type", ev.Type), zap.Error(err))
		}
		if err := s.stream.Publish(ctx, "orders", ev); err != nil {
			s.logger.Warn("publish stream event", zap.String("order_id", ev.OrderID), zap.String("type", ev.Type), zap.Error(err))
		}
	})
}

func (s *Service) mail(msg notify.Message, orderID string) {
	if s.mailer == nil || msg.To == "" {
		return
	}
	s.background(func(ctx context.Context) {
		if err := s.mailer.Send(ctx, msg); err != nil {
			s.logger.Warn("send mail", zap.String("order_id", orderID), zap.String("tag", msg.Tag), zap.Error(err))
		}
	})
}

func eventFor(typ string, o models.Order, at time.Time) mq.Event {
	return mq.Event{
		Type:       typ,
		OrderID:    o.ID,
		TrackingID: o.TrackingID,
		UserID:     o.UserID,
		ShopID:     o.ShopID,
		Status:     o.Status,
		At:         at,
	}
}
