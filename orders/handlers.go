package orders

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"bakehouse/globals"
	"bakehouse/models"
	"bakehouse/mq"
	"bakehouse/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

type Handlers struct {
	svc    *Service
	bus    mq.Subscriber
	logger *zap.Logger
}

// NewHandlers wires the HTTP surface. bus feeds the live order socket.
func NewHandlers(svc *Service, bus mq.Subscriber, logger *zap.Logger) *Handlers {
	return &Handlers{svc: svc, bus: bus, logger: logger}
}

func (h *Handlers) fail(w http.ResponseWriter, what string, err error) {
	if utils.HTTPStatus(err) >= http.StatusInternalServerError && !errors.Is(err, ErrPaymentFailed) {
		h.logger.Error(what, zap.Error(err))
	}
	if errors.Is(err, ErrPaymentFailed) {
		utils.RespondWithError(w, http.StatusPaymentRequired, err.Error())
		return
	}
	utils.RespondWithErr(w, err)
}

// POST /api/orders
func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	in.UserID = utils.GetUserIDFromRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.svc.CreateOrder(ctx, in)
	if err != nil {
		h.fail(w, "create order", err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusCreated, utils.M{
		"order":      res.Order,
		"trackingId": res.Order.TrackingID,
		"warnings":   res.Warnings,
	})
}

// GET /api/orders
func (h *Handlers) GetMyOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	list, err := h.svc.GetUserOrders(ctx, utils.GetUserIDFromRequest(r))
	if err != nil {
		h.fail(w, "get user orders", err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"orders": list})
}

// GET /api/orders/:id
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	d, err := h.svc.GetOrder(ctx, ps.ByName("id"))
	if err != nil {
		h.fail(w, "get order", err)
		return
	}
	if d.Order.UserID != utils.GetUserIDFromRequest(r) && !utils.CanActForShop(r, d.Order.ShopID) {
		// do not reveal that the order exists
		utils.RespondWithErr(w, ErrOrderNotFound)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"order": d.Order, "tracking": d.Tracking})
}

// PUT /api/orders/:id/status
func (h *Handlers) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if !h.ownsShopOrder(ctx, w, r, ps.ByName("id")) {
		return
	}
	o, err := h.svc.UpdateOrderStatus(ctx, ps.ByName("id"), body.Status, utils.GetUserIDFromRequest(r))
	if err != nil {
		h.fail(w, "update order status", err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"order": o})
}

// POST /api/orders/:id/delivery
func (h *Handlers) UpdateDelivery(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var upd models.DeliveryUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	upd.UpdatedBy = utils.GetUserIDFromRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if !h.ownsShopOrder(ctx, w, r, ps.ByName("id")) {
		return
	}
	t, err := h.svc.UpdateDeliveryStatus(ctx, ps.ByName("id"), upd)
	if err != nil {
		h.fail(w, "update delivery", err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"tracking": t})
}

// POST /api/orders/:id/cancel
func (h *Handlers) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, err := h.svc.CancelOrder(ctx, ps.ByName("id"), utils.GetUserIDFromRequest(r))
	if err != nil {
		h.fail(w, "cancel order", err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"order": o})
}

// POST /api/orders/:id/payment/verify
func (h *Handlers) VerifyPayment(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		PaymentID string `json:"paymentId"`
		Signature string `json:"signature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, err := h.svc.VerifyPayment(ctx, ps.ByName("id"), utils.GetUserIDFromRequest(r), body.PaymentID, body.Signature)
	if err != nil {
		h.fail(w, "verify payment", err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"order": o})
}

// GET /api/shops/:shopId/orders?status=
func (h *Handlers) GetShopOrders(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if !utils.CanActForShop(r, ps.ByName("shopId")) {
		utils.RespondWithErr(w, ErrWrongShop)
		return
	}
	q := utils.ParseQueryOptions(r, 20, 100)
	list, err := h.svc.GetShopOrders(ctx, ps.ByName("shopId"), r.URL.Query().Get("status"), q)
	if err != nil {
		h.fail(w, "get shop orders", err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"orders": list, "page": q.Page, "limit": q.Limit})
}

// ownsShopOrder checks that the caller may act on orderID's shop. Admins
// skip the lookup. It writes the error response itself and returns false.
func (h *Handlers) ownsShopOrder(ctx context.Context, w http.ResponseWriter, r *http.Request, orderID string) bool {
	if utils.GetRoleFromRequest(r) == globals.RoleAdmin {
		return true
	}
	d, err := h.svc.GetOrder(ctx, orderID)
	if err != nil {
		h.fail(w, "get order", err)
		return false
	}
	if !utils.CanActForShop(r, d.Order.ShopID) {
		utils.RespondWithErr(w, ErrWrongShop)
		return false
	}
	return true
}
