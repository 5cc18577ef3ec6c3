package orders

import (
	"context"
	"net/http"
	"time"

	"bakehouse/models"
	"bakehouse/mq"
	"bakehouse/utils"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is enforced on the HTTP routes; the socket carries a token
		return true
	},
}

const writeWait = 10 * time.Second

// Frame is one message on a live order socket.
type Frame struct {
	Type       string             `json:"type"` // snapshot, update
	Event      *mq.Event          `json:"event,omitempty"`
	Orders     []models.Order     `json:"orders,omitempty"`
	ShopOrders []models.ShopOrder `json:"shopOrders,omitempty"`
}

const liveShopLimit = 50

// LiveOrders streams the caller's reconciled order list: one snapshot on
// connect, then a fresh list after every change notification. Closing the
// socket cancels the subscription and any refresh still running.
func (h *Handlers) LiveOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing token")
		return
	}
	h.stream(w, r, mq.UserTopic(userID), func(ctx context.Context, f *Frame) error {
		list, err := h.svc.GetUserOrders(ctx, userID)
		f.Orders = list
		return err
	})
}

// LiveShopOrders is the shop-side feed: the newest mirror rows of one shop,
// refreshed on every order event for that shop.
func (h *Handlers) LiveShopOrders(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	shopID := ps.ByName("shopId")
	if !utils.CanActForShop(r, shopID) {
		utils.RespondWithErr(w, ErrWrongShop)
		return
	}
	q := utils.QueryOptions{Page: 1, Limit: liveShopLimit}
	h.stream(w, r, mq.ShopTopic(shopID), func(ctx context.Context, f *Frame) error {
		list, err := h.svc.GetShopOrders(ctx, shopID, "", q)
		f.ShopOrders = list
		return err
	})
}

func (h *Handlers) stream(w http.ResponseWriter, r *http.Request, topic string, fill func(context.Context, *Frame) error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, unsubscribe, err := h.bus.Subscribe(ctx, topic)
	if err != nil {
		h.logger.Error("live subscribe", zap.String("topic", topic), zap.Error(err))
		return
	}
	defer unsubscribe()

	// the read loop only exists to notice the client going away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(f Frame) bool {
		if err := fill(ctx, &f); err != nil {
			if ctx.Err() == nil {
				h.logger.Warn("live refresh failed", zap.String("topic", topic), zap.Error(err))
			}
			return ctx.Err() == nil
		}
		if ctx.Err() != nil {
			return false
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(f) == nil
	}

	if !send(Frame{Type: "snapshot"}) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !send(Frame{Type: "update", Event: &ev}) {
				return
			}
		}
	}
}
