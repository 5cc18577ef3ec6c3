package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"bakehouse/orders"
	"bakehouse/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

type Handlers struct {
	svc    *Service
	logger *zap.Logger
}

func NewHandlers(svc *Service, logger *zap.Logger) *Handlers {
	return &Handlers{svc: svc, logger: logger}
}

func (h *Handlers) fail(w http.ResponseWriter, what string, err error) {
	if errors.Is(err, orders.ErrPaymentFailed) {
		utils.RespondWithError(w, http.StatusPaymentRequired, err.Error())
		return
	}
	if utils.HTTPStatus(err) >= http.StatusInternalServerError {
		h.logger.Error(what, zap.Error(err))
	}
	utils.RespondWithErr(w, err)
}

// GET /api/cart
func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	c, err := h.svc.Get(ctx, utils.GetUserIDFromRequest(r))
	if err != nil {
		h.fail(w, "get cart", err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"cart": c})
}

// POST /api/cart/items
func (h *Handlers) AddItem(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if body.Quantity == 0 {
		body.Quantity = 1
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	c, err := h.svc.Add(ctx, utils.GetUserIDFromRequest(r), body.ProductID, body.Quantity)
	if err != nil {
		h.fail(w, "add to cart", err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusCreated, utils.M{"cart": c})
}

// PUT /api/cart/items/:productId
func (h *Handlers) SetQuantity(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	c, err := h.svc.SetQuantity(ctx, utils.GetUserIDFromRequest(r), ps.ByName("productId"), body.Quantity)
	if err != nil {
		h.fail(w, "update cart", err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"cart": c})
}

// DELETE /api/cart/items/:productId
func (h *Handlers) RemoveItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	c, err := h.svc.Remove(ctx, utils.GetUserIDFromRequest(r), ps.ByName("productId"))
	if err != nil {
		h.fail(w, "remove from cart", err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"cart": c})
}

// DELETE /api/cart
func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.svc.Clear(ctx, utils.GetUserIDFromRequest(r)); err != nil {
		h.fail(w, "clear cart", err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"cart": view(nil)})
}

// POST /api/cart/checkout
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in CheckoutInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid checkout data")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	res, err := h.svc.Checkout(ctx, utils.GetUserIDFromRequest(r), in)
	if err != nil {
		h.fail(w, "checkout", err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusCreated, utils.M{
		"order":      res.Order,
		"trackingId": res.Order.TrackingID,
		"warnings":   res.Warnings,
	})
}
