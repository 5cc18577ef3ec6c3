package products

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bakehouse/db"
	"bakehouse/models"
	"bakehouse/utils"

	"github.com/disintegration/imaging"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const thumbWidth = 300

var ErrProductNotFound = fmt.Errorf("product not found: %w", db.ErrNotFound)

// Cache holds rendered listings. rdx.ProductCache satisfies it.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte) error
	Invalidate(ctx context.Context) error
}

type Service struct {
	store     db.Store
	cache     Cache
	uploadDir string
	logger    *zap.Logger
	now       func() time.Time
}

// NewService builds the catalogue service. cache may be nil.
func NewService(store db.Store, cache Cache, uploadDir string, logger *zap.Logger) *Service {
	return &Service{store: store, cache: cache, uploadDir: uploadDir, logger: logger, now: time.Now}
}

// Listing is one page of the filtered catalogue.
type Listing struct {
	Products []models.Product `json:"products"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
}

func cacheKey(f Filter, sortBy string, q utils.QueryOptions) string {
	return fmt.Sprintf("c=%s|s=%s|min=%g|max=%g|f=%t|o=%s|p=%d|l=%d",
		strings.ToLower(f.Category), strings.ToLower(strings.TrimSpace(f.Search)),
		f.MinPrice, f.MaxPrice, f.Featured, sortBy, q.Page, q.Limit)
}

// List returns active products after filtering, sorting and paging. Results
// are served from the cache when one is configured.
func (s *Service) List(ctx context.Context, f Filter, sortBy string, q utils.QueryOptions) (*Listing, error) {
	key := cacheKey(f, sortBy, q)
	if s.cache != nil {
		raw, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("product cache read failed", zap.Error(err))
		} else if ok {
			var l Listing
			if err := json.Unmarshal(raw, &l); err == nil {
				return &l, nil
			}
		}
	}

	var all []models.Product
	if err := s.store.Find(ctx, db.Products, bson.M{"isActive": true}, db.FindOptions{}, &all); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	hits := Apply(all, f)
	Sort(hits, sortBy)
	l := &Listing{Products: Page(hits, q), Total: len(hits), Page: q.Page, Limit: q.Limit}

	if s.cache != nil {
		if raw, err := json.Marshal(l); err == nil {
			if err := s.cache.Set(ctx, key, raw); err != nil {
				s.logger.Warn("product cache write failed", zap.Error(err))
			}
		}
	}
	return l, nil
}

// Get returns an active product.
func (s *Service) Get(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	err := s.store.FindOne(ctx, db.Products, bson.M{"_id": id, "isActive": true}, &p)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// Input carries admin edits. Nil fields are left unchanged on update.
type Input struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Price       *float64  `json:"price"`
	Unit        *string   `json:"unit"`
	ShopID      *string   `json:"shopId"`
	Tags        *[]string `json:"tags"`
	Allergens   *[]string `json:"allergens"`
	Featured    *bool     `json:"featured"`
	InStock     *bool     `json:"inStock"`
}

func (in Input) check() error {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return fmt.Errorf("%w: name cannot be empty", utils.ErrInvalidInput)
	}
	if in.Price != nil && *in.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", utils.ErrInvalidInput)
	}
	return nil
}

func (in Input) fields() bson.M {
	set := bson.M{}
	if in.Name != nil {
		set["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		set["description"] = *in.Description
	}
	if in.Category != nil {
		set["category"] = strings.ToLower(strings.TrimSpace(*in.Category))
	}
	if in.Price != nil {
		set["price"] = utils.RoundMoney(*in.Price)
	}
	if in.Unit != nil {
		set["unit"] = *in.Unit
	}
	if in.ShopID != nil {
		set["shopId"] = *in.ShopID
	}
	if in.Tags != nil {
		set["tags"] = *in.Tags
	}
	if in.Allergens != nil {
		set["allergens"] = *in.Allergens
	}
	if in.Featured != nil {
		set["featured"] = *in.Featured
	}
	if in.InStock != nil {
		set["inStock"] = *in.InStock
	}
	return set
}

// Create adds a product. Name, category and price are required.
func (s *Service) Create(ctx context.Context, in Input) (*models.Product, error) {
	if in.Name == nil || in.Price == nil || in.Category == nil {
		return nil, fmt.Errorf("%w: name, category and price are required", utils.ErrInvalidInput)
	}
	if err := in.check(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	p := models.Product{
		ID:        utils.GetUUID(),
		Images:    []string{},
		InStock:   true,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.Name = strings.TrimSpace(*in.Name)
	p.Category = strings.ToLower(strings.TrimSpace(*in.Category))
	p.Price = utils.RoundMoney(*in.Price)
	p.ShopID = deref(in.ShopID)
	p.Description = deref(in.Description)
	p.Unit = deref(in.Unit)
	if in.Tags != nil {
		p.Tags = *in.Tags
	}
	if in.Allergens != nil {
		p.Allergens = *in.Allergens
	}
	if in.Featured != nil {
		p.Featured = *in.Featured
	}
	if in.InStock != nil {
		p.InStock = *in.InStock
	}
	if err := s.store.InsertOne(ctx, db.Products, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.invalidate(ctx)
	return &p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Update applies the non-nil fields of in to an active product.
func (s *Service) Update(ctx context.Context, id string, in Input) (*models.Product, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	set := in.fields()
	if len(set) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", utils.ErrInvalidInput)
	}
	set["updatedAt"] = s.now().UTC()
	matched, err := s.store.UpdateOne(ctx, db.Products, bson.M{"_id": id, "isActive": true}, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	if matched == 0 {
		return nil, ErrProductNotFound
	}
	s.invalidate(ctx)
	return s.Get(ctx, id)
}

// Delete hides a product. Orders keep referencing it.
func (s *Service) Delete(ctx context.Context, id string) error {
	matched, err := s.store.UpdateOne(ctx, db.Products, bson.M{"_id": id, "isActive": true},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": s.now().UTC()}})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if matched == 0 {
		return ErrProductNotFound
	}
	s.invalidate(ctx)
	return nil
}

// SaveImage decodes an uploaded picture, writes it and a thumbnail under
// the upload dir and attaches both to the product.
func (s *Service) SaveImage(ctx context.Context, id string, src io.Reader) (*models.Product, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	img, err := imaging.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("%w: not a readable image", utils.ErrInvalidInput)
	}

	name := utils.GetUUID() + ".jpg"
	dir := filepath.Join(s.uploadDir, "products")
	thumbDir := filepath.Join(dir, "thumb")
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	if err := imaging.Save(img, filepath.Join(dir, name)); err != nil {
		return nil, fmt.Errorf("save image: %w", err)
	}
	thumb := imaging.Resize(img, thumbWidth, 0, imaging.Lanczos)
	if err := imaging.Save(thumb, filepath.Join(thumbDir, name)); err != nil {
		return nil, fmt.Errorf("save thumbnail: %w", err)
	}

	_, err = s.store.UpdateOne(ctx, db.Products, db.ByID(id), bson.M{
		"$push": bson.M{"images": "/uploads/products/" + name},
		"$set":  bson.M{"thumbnail": "/uploads/products/thumb/" + name, "updatedAt": s.now().UTC()},
	})
	if err != nil {
		return nil, fmt.Errorf("attach image: %w", err)
	}
	s.invalidate(ctx)
	return s.Get(ctx, id)
}

// Categories lists active categories in display order.
func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	err := s.store.Find(ctx, db.Categories, bson.M{"isActive": true}, db.FindOptions{SortField: "sortOrder"}, &out)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("product cache invalidation failed", zap.Error(err))
	}
}
