package reviews

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"bakehouse/globals"
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

// GET /api/products/:id/reviews
func (h *Handlers) GetReviews(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := utils.ParseQueryOptions(r, 10, 100)
	list, err := h.svc.ListReviews(ctx, ps.ByName("id"), q)
	if err != nil {
		h.logger.Error("list reviews", zap.Error(err))
		utils.RespondWithErr(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"reviews": list, "page": q.Page})
}

// POST /api/products/:id/reviews
func (h *Handlers) AddReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Rating   int    `json:"rating"`
		Comment  string `json:"comment"`
		UserName string `json:"userName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid review data")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	review, agg, err := h.svc.AddReview(ctx, ps.ByName("id"), utils.GetUserIDFromRequest(r), body.UserName, body.Rating, body.Comment)
	if err != nil {
		if utils.HTTPStatus(err) >= http.StatusInternalServerError {
			h.logger.Error("add review", zap.Error(err))
		}
		utils.RespondWithErr(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusCreated, utils.M{"review": review, "rating": agg})
}

// DELETE /api/reviews/:reviewId
func (h *Handlers) DeleteReview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	admin := utils.GetRoleFromRequest(r) == globals.RoleAdmin
	agg, err := h.svc.DeleteReview(ctx, ps.ByName("reviewId"), utils.GetUserIDFromRequest(r), admin)
	if err != nil {
		if utils.HTTPStatus(err) >= http.StatusInternalServerError {
			h.logger.Error("delete review", zap.Error(err))
		}
		utils.RespondWithErr(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"rating": agg})
}
