package admin

import (
	"context"
	"net/http"
	"time"

	"bakehouse/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

type Handlers struct {
	auditor *Auditor
	logger  *zap.Logger
}

func NewHandlers(a *Auditor, logger *zap.Logger) *Handlers {
	return &Handlers{auditor: a, logger: logger}
}

// GET /api/admin/audit
func (h *Handlers) Audit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	rep, err := h.auditor.Run(ctx)
	if err != nil {
		h.logger.Error("audit", zap.Error(err))
		utils.RespondWithErr(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"report": rep, "clean": rep.Clean()})
}

// GET /api/admin/debug/orders/:userId
func (h *Handlers) DebugOrders(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	v, err := h.auditor.DebugOrders(ctx, ps.ByName("userId"))
	if err != nil {
		h.logger.Error("debug orders", zap.Error(err))
		utils.RespondWithErr(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"debug": v})
}
