package settings

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"bakehouse/db"
	"bakehouse/models"
	"bakehouse/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

type Handlers struct {
	svc    *Service
	store  db.Store
	logger *zap.Logger
}

func NewHandlers(svc *Service, store db.Store, logger *zap.Logger) *Handlers {
	return &Handlers{svc: svc, store: store, logger: logger}
}

// GetSettings is public; the storefront shows fees and thresholds.
func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	st, err := h.svc.Get(ctx)
	if err != nil {
		h.logger.Error("get settings", zap.Error(err))
		utils.RespondWithErr(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"settings": st})
}

func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var st models.StoreSettings
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	saved, err := h.svc.Update(ctx, st)
	if err != nil {
		h.logger.Warn("update settings", zap.Error(err))
		utils.RespondWithErr(w, err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"settings": saved})
}

// Health writes, reads and deletes a probe document.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := db.Probe(ctx, h.store, "probe-"+utils.GetUUID()); err != nil {
		h.logger.Error("health probe", zap.Error(err))
		utils.RespondWithError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"status": "ok"})
}
