package products

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"bakehouse/utils"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

const maxUploadSize = 10 << 20

type Handlers struct {
	svc    *Service
	logger *zap.Logger
}

func NewHandlers(svc *Service, logger *zap.Logger) *Handlers {
	return &Handlers{svc: svc, logger: logger}
}

func (h *Handlers) fail(w http.ResponseWriter, msg string, err error) {
	if utils.HTTPStatus(err) >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
	}
	utils.RespondWithErr(w, err)
}

// GET /api/products?category=&search=&minPrice=&maxPrice=&featured=&sort=&page=&limit=
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	v := r.URL.Query()
	f := Filter{
		Category: v.Get("category"),
		Search:   v.Get("search"),
		MinPrice: utils.ParseFloat(v.Get("minPrice")),
		MaxPrice: utils.ParseFloat(v.Get("maxPrice")),
		Featured: v.Get("featured") == "true",
	}
	l, err := h.svc.List(ctx, f, v.Get("sort"), utils.ParseQueryOptions(r, 12, 100))
	if err != nil {
		h.fail(w, "list products", err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{
		"products": l.Products,
		"total":    l.Total,
		"page":     l.Page,
		"limit":    l.Limit,
	})
}

// GET /api/products/:id
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.svc.Get(ctx, ps.ByName("id"))
	if err != nil {
		h.fail(w, "get product", err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"product": p})
}

// POST /api/admin/products
func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid product data")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	p, err := h.svc.Create(ctx, in)
	if err != nil {
		h.fail(w, "create product", err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusCreated, utils.M{"product": p})
}

// PUT /api/admin/products/:id
func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid product data")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	p, err := h.svc.Update(ctx, ps.ByName("id"), in)
	if err != nil {
		h.fail(w, "update product", err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"product": p})
}

// DELETE /api/admin/products/:id
func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.svc.Delete(ctx, ps.ByName("id")); err != nil {
		h.fail(w, "delete product", err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"message": "Product removed"})
}

// POST /api/admin/products/:id/image (multipart field "image")
func (h *Handlers) UploadImage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid upload")
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Missing image file")
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	p, err := h.svc.SaveImage(ctx, ps.ByName("id"), file)
	if err != nil {
		h.fail(w, "upload product image", err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"product": p})
}

// GET /api/categories
func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cats, err := h.svc.Categories(ctx)
	if err != nil {
		h.fail(w, "list categories", err)
		return
	}
	utils.RespondWithSuccess(w, http.StatusOK, utils.M{"categories": cats})
}
