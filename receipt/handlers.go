package receipt

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"bakehouse/models"
	"bakehouse/orders"
	"bakehouse/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// StoreInfo supplies the store name printed on the receipt.
type StoreInfo interface {
	Get(ctx context.Context) (models.StoreSettings, error)
}

type Handlers struct {
	orders *orders.Service
	store  StoreInfo
	logger *zap.Logger
}

func NewHandlers(ords *orders.Service, store StoreInfo, logger *zap.Logger) *Handlers {
	return &Handlers{orders: ords, store: store, logger: logger}
}

// GET /api/orders/:id/receipt
func (h *Handlers) Receipt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	d, err := h.orders.GetOrder(ctx, ps.ByName("id"))
	if err != nil {
		if utils.HTTPStatus(err) >= http.StatusInternalServerError {
			h.logger.Error("receipt: load order", zap.Error(err))
		}
		utils.RespondWithErr(w, err)
		return
	}
	if d.Order.UserID != utils.GetUserIDFromRequest(r) {
		utils.RespondWithErr(w, orders.ErrOrderNotFound)
		return
	}

	name := "Bakehouse"
	if st, err := h.store.Get(ctx); err == nil && st.StoreName != "" {
		name = st.StoreName
	}

	var buf bytes.Buffer
	if err := Render(&buf, name, d.Order); err != nil {
		h.logger.Error("receipt: render", zap.String("order_id", d.Order.ID), zap.Error(err))
		utils.RespondWithErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=receipt-"+d.Order.TrackingID+".pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
