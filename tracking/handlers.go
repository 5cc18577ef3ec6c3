package tracking

import (
	"context"
	"net/http"
	"time"

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

// Track serves GET /api/track?q=<tracking or order id> and ?email=.
// The owner, when signed in, gets the full order; anyone else a redacted one.
func (h *Handlers) Track(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q := r.URL.Query()
	var (
		res *Result
		err error
	)
	if email := q.Get("email"); email != "" {
		res, err = h.svc.LookupByEmail(ctx, email)
	} else {
		res, err = h.svc.Lookup(ctx, q.Get("q"))
	}
	if err != nil {
		if utils.HTTPStatus(err) >= http.StatusInternalServerError {
			h.logger.Error("tracking lookup", zap.Error(err))
		}
		utils.RespondWithErr(w, err)
		return
	}
	if uid := utils.GetUserIDFromRequest(r); uid != "" && uid == res.Order.UserID {
		utils.RespondWithSuccess(w, http.StatusOK, utils.M{"order": res.Order, "tracking": res.Tracking})
		return
	}
	// trim what an anonymous lookup reveals
	res.Order.Payment = nil
	if res.Order.Address != nil {
		a := *res.Order.Address
		a.Email, a.Phone, a.Line1, a.Line2 = "", "", "", ""
		res.Order.Address = &a
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"order": res.Order, "tracking": res.Tracking})
}
