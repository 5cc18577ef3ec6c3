package reviews

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"bakehouse/db"
	"bakehouse/globals"
	"bakehouse/models"
	"bakehouse/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func seedProduct(t *testing.T, store db.Store, avg float64, count int) {
	t.Helper()
	require.NoError(t, store.InsertOne(context.Background(), db.Products, models.Product{
		ID: "p1", Name: "Croissant", IsActive: true, AverageRating: avg, ReviewCount: count,
	}))
}

func product(t *testing.T, store db.Store) models.Product {
	t.Helper()
	var p models.Product
	require.NoError(t, store.FindOne(context.Background(), db.Products, db.ByID("p1"), &p))
	return p
}

type countingCache struct{ n int }

func (c *countingCache) Invalidate(context.Context) error { c.n++; return nil }

func TestAddReviewUpdatesRunningMean(t *testing.T) {
	store := db.NewMemory()
	seedProduct(t, store, 4.0, 2)
	cache := &countingCache{}
	svc := NewService(store, cache, zap.NewNop())

	_, agg, err := svc.AddReview(context.Background(), "p1", "u1", "Ann", 5, "flaky")
	require.NoError(t, err)
	assert.InDelta(t, 13.0/3.0, agg.AverageRating, 1e-9)
	assert.Equal(t, 3, agg.ReviewCount)

	p := product(t, store)
	assert.InDelta(t, 4.333333, p.AverageRating, 1e-6)
	assert.Equal(t, 3, p.ReviewCount)
	assert.Equal(t, 1, cache.n)
}

func TestAddReviewValidation(t *testing.T) {
	store := db.NewMemory()
	seedProduct(t, store, 0, 0)
	svc := NewService(store, nil, zap.NewNop())
	ctx := context.Background()

	_, _, err := svc.AddReview(ctx, "p1", "u1", "", 0, "")
	assert.ErrorIs(t, err, utils.ErrInvalidInput)
	_, _, err = svc.AddReview(ctx, "p1", "u1", "", 6, "")
	assert.ErrorIs(t, err, utils.ErrInvalidInput)
	_, _, err = svc.AddReview(ctx, "nope", "u1", "", 3, "")
	assert.ErrorIs(t, err, ErrProductNotFound)

	_, _, err = svc.AddReview(ctx, "p1", "u1", "", 3, "ok")
	require.NoError(t, err)
	_, _, err = svc.AddReview(ctx, "p1", "u1", "", 4, "again")
	assert.ErrorIs(t, err, ErrAlreadyReviewed)
	assert.Equal(t, 1, product(t, store).ReviewCount)
}

// racingStore lets another writer bump the review count right before the
// first few conditional product updates.
type racingStore struct {
	*db.Memory
	mu     sync.Mutex
	races  int
	rating float64
}

func (s *racingStore) UpdateOne(ctx context.Context, coll string, filter bson.M, update bson.M) (int64, error) {
	s.mu.Lock()
	race := coll == db.Products && s.races > 0
	if race {
		s.races--
	}
	s.mu.Unlock()
	if race {
		var p models.Product
		if err := s.Memory.FindOne(ctx, db.Products, db.ByID("p1"), &p); err != nil {
			return 0, err
		}
		n := p.ReviewCount
		avg := (p.AverageRating*float64(n) + s.rating) / float64(n+1)
		if _, err := s.Memory.UpdateOne(ctx, db.Products, db.ByID("p1"),
			bson.M{"$set": bson.M{"averageRating": avg, "reviewCount": n + 1}}); err != nil {
			return 0, err
		}
	}
	return s.Memory.UpdateOne(ctx, coll, filter, update)
}

func TestAddReviewRetriesWhenCountChanged(t *testing.T) {
	store := &racingStore{Memory: db.NewMemory(), races: 1, rating: 1}
	seedProduct(t, store, 4.0, 2)
	svc := NewService(store, nil, zap.NewNop())

	_, agg, err := svc.AddReview(context.Background(), "p1", "u1", "", 5, "")
	require.NoError(t, err)

	// concurrent 1 applied first: (4*2+1)/3 = 3, then ours: (3*3+5)/4 = 3.5
	assert.Equal(t, 4, agg.ReviewCount)
	assert.InDelta(t, 3.5, agg.AverageRating, 1e-9)
	p := product(t, store)
	assert.Equal(t, 4, p.ReviewCount)
	assert.InDelta(t, 3.5, p.AverageRating, 1e-9)
}

func TestAddReviewGivesUpAfterMaxAttempts(t *testing.T) {
	store := &racingStore{Memory: db.NewMemory(), races: maxAttempts, rating: 3}
	seedProduct(t, store, 4.0, 2)
	svc := NewService(store, nil, zap.NewNop())

	_, _, err := svc.AddReview(context.Background(), "p1", "u1", "", 5, "")
	assert.ErrorIs(t, err, ErrContention)
	assert.Equal(t, 0, store.Count(db.Reviews), "review rolled back")
}

// swapStore replaces a 5-star review with a 1-star one right before the
// first conditional product update, leaving reviewCount where it was.
type swapStore struct {
	*db.Memory
	once sync.Once
}

func (s *swapStore) UpdateOne(ctx context.Context, coll string, filter bson.M, update bson.M) (int64, error) {
	if coll == db.Products {
		var err error
		s.once.Do(func() {
			// avg 4 over 2 reviews: drop a 5 then add a 1, mean 3 over 2
			_, err = s.Memory.UpdateOne(ctx, db.Products, db.ByID("p1"),
				bson.M{"$set": bson.M{"averageRating": 3.0, "reviewCount": 2}})
		})
		if err != nil {
			return 0, err
		}
	}
	return s.Memory.UpdateOne(ctx, coll, filter, update)
}

func TestAddReviewRetriesWhenMeanChangedAtSameCount(t *testing.T) {
	store := &swapStore{Memory: db.NewMemory()}
	seedProduct(t, store, 4.0, 2)
	svc := NewService(store, nil, zap.NewNop())

	_, agg, err := svc.AddReview(context.Background(), "p1", "u1", "", 5, "")
	require.NoError(t, err)

	// (3*2+5)/3, not the stale (4*2+5)/3
	assert.Equal(t, 3, agg.ReviewCount)
	assert.InDelta(t, 11.0/3, agg.AverageRating, 1e-9)
	p := product(t, store)
	assert.InDelta(t, 11.0/3, p.AverageRating, 1e-9)
}

func TestDeleteReviewRemovesRating(t *testing.T) {
	store := db.NewMemory()
	seedProduct(t, store, 4.0, 2)
	svc := NewService(store, nil, zap.NewNop())
	ctx := context.Background()

	r, _, err := svc.AddReview(ctx, "p1", "u1", "", 1, "")
	require.NoError(t, err)

	_, err = svc.DeleteReview(ctx, r.ID, "u2", false)
	assert.ErrorIs(t, err, utils.ErrForbidden)

	agg, err := svc.DeleteReview(ctx, r.ID, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, 2, agg.ReviewCount)
	assert.InDelta(t, 4.0, agg.AverageRating, 1e-9)

	_, err = svc.DeleteReview(ctx, r.ID, "u1", false)
	assert.ErrorIs(t, err, ErrReviewNotFound)

	list, err := svc.ListReviews(ctx, "p1", utils.QueryOptions{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAddReviewHandler(t *testing.T) {
	store := db.NewMemory()
	seedProduct(t, store, 0, 0)
	h := NewHandlers(NewService(store, nil, zap.NewNop()), zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/products/p1/reviews", strings.NewReader(`{"rating":4,"comment":"good crumb"}`))
	req = req.WithContext(context.WithValue(req.Context(), globals.UserIDKey, "u1"))
	rec := httptest.NewRecorder()
	h.AddReview(rec, req, httprouter.Params{{Key: "id", Value: "p1"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"reviewCount":1`)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/products/p1/reviews", strings.NewReader(`{"rating":4}`))
	req = req.WithContext(context.WithValue(req.Context(), globals.UserIDKey, "u1"))
	h.AddReview(rec, req, httprouter.Params{{Key: "id", Value: "p1"}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	h.GetReviews(rec, httptest.NewRequest(http.MethodGet, "/api/products/p1/reviews", nil), httprouter.Params{{Key: "id", Value: "p1"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "good crumb")
}
