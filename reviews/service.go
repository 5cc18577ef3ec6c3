package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bakehouse/db"
	"bakehouse/models"
	"bakehouse/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const maxAttempts = 5

var (
	ErrProductNotFound = fmt.Errorf("product not found: %w", db.ErrNotFound)
	ErrReviewNotFound  = fmt.Errorf("review not found: %w", db.ErrNotFound)
	ErrAlreadyReviewed = fmt.Errorf("you have already reviewed this product: %w", utils.ErrConflict)
	ErrContention      = errors.New("rating update kept conflicting with other writers")
)

// Invalidator drops cached product listings after a rating change.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type Service struct {
	store  db.Store
	cache  Invalidator
	logger *zap.Logger
	now    func() time.Time
}

// NewService builds the review service; cache may be nil.
func NewService(store db.Store, cache Invalidator, logger *zap.Logger) *Service {
	return &Service{store: store, cache: cache, logger: logger, now: time.Now}
}

// Rating is a product's aggregate after a change.
type Rating struct {
	AverageRating float64 `json:"averageRating"`
	ReviewCount   int     `json:"reviewCount"`
}

// AddReview stores a review and folds its rating into the product's running
// mean. The product update only applies if the aggregate is still what was
// read, and is retried otherwise, so concurrent reviews are not lost.
func (s *Service) AddReview(ctx context.Context, productID, userID, userName string, rating int, comment string) (*models.Review, *Rating, error) {
	if rating < 1 || rating > 5 {
		return nil, nil, fmt.Errorf("%w: rating must be between 1 and 5", utils.ErrInvalidInput)
	}
	if userID == "" {
		return nil, nil, fmt.Errorf("%w: user id is required", utils.ErrInvalidInput)
	}
	var p models.Product
	if err := s.store.FindOne(ctx, db.Products, bson.M{"_id": productID, "isActive": true}, &p); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, nil, ErrProductNotFound
		}
		return nil, nil, fmt.Errorf("find product: %w", err)
	}

	var existing models.Review
	err := s.store.FindOne(ctx, db.Reviews, bson.M{"productId": productID, "userId": userID, "isActive": true}, &existing)
	if err == nil {
		return nil, nil, ErrAlreadyReviewed
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, nil, fmt.Errorf("check existing review: %w", err)
	}

	review := models.Review{
		ID:        utils.GetUUID(),
		ProductID: productID,
		UserID:    userID,
		UserName:  userName,
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
		IsActive:  true,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.InsertOne(ctx, db.Reviews, review); err != nil {
		return nil, nil, fmt.Errorf("save review: %w", err)
	}

	agg, err := s.adjust(ctx, productID, func(avg float64, n int) (float64, int) {
		return (avg*float64(n) + float64(rating)) / float64(n+1), n + 1
	})
	if err != nil {
		// keep reviews and aggregate consistent
		if _, derr := s.store.DeleteOne(context.WithoutCancel(ctx), db.Reviews, db.ByID(review.ID)); derr != nil {
			s.logger.Error("review rollback failed", zap.String("review_id", review.ID), zap.Error(derr))
		}
		return nil, nil, err
	}
	return &review, agg, nil
}

// DeleteReview hides a review and takes its rating back out of the mean.
// Only the author or an admin may do so.
func (s *Service) DeleteReview(ctx context.Context, reviewID, userID string, admin bool) (*Rating, error) {
	var r models.Review
	if err := s.store.FindOne(ctx, db.Reviews, bson.M{"_id": reviewID, "isActive": true}, &r); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("find review: %w", err)
	}
	if r.UserID != userID && !admin {
		return nil, fmt.Errorf("%w: not your review", utils.ErrForbidden)
	}
	matched, err := s.store.UpdateOne(ctx, db.Reviews, bson.M{"_id": reviewID, "isActive": true},
		bson.M{"$set": bson.M{"isActive": false}})
	if err != nil {
		return nil, fmt.Errorf("hide review: %w", err)
	}
	if matched == 0 {
		// someone else removed it first
		return nil, ErrReviewNotFound
	}
	return s.adjust(ctx, r.ProductID, func(avg float64, n int) (float64, int) {
		if n <= 1 {
			return 0, 0
		}
		return (avg*float64(n) - float64(r.Rating)) / float64(n-1), n - 1
	})
}

// adjust applies next to the product's (averageRating, reviewCount) with an
// optimistic check on both values, retrying up to maxAttempts times. A
// delete and an add in between can leave reviewCount unchanged, so the
// count alone is not enough.
func (s *Service) adjust(ctx context.Context, productID string, next func(avg float64, n int) (float64, int)) (*Rating, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var p models.Product
		if err := s.store.FindOne(ctx, db.Products, db.ByID(productID), &p); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return nil, ErrProductNotFound
			}
			return nil, fmt.Errorf("read product rating: %w", err)
		}
		avg, n := next(p.AverageRating, p.ReviewCount)
		matched, err := s.store.UpdateOne(ctx, db.Products,
			bson.M{"_id": productID, "reviewCount": p.ReviewCount, "averageRating": p.AverageRating},
			bson.M{"$set": bson.M{
				"averageRating": avg,
				"reviewCount":   n,
				"updatedAt":     s.now().UTC(),
			}})
		if err != nil {
			return nil, fmt.Errorf("update product rating: %w", err)
		}
		if matched == 1 {
			s.invalidate(ctx)
			return &Rating{AverageRating: avg, ReviewCount: n}, nil
		}
		s.logger.Debug("rating update lost a race, retrying",
			zap.String("product_id", productID), zap.Int("attempt", attempt))
	}
	return nil, ErrContention
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("product cache invalidation failed", zap.Error(err))
	}
}

// ListReviews returns a product's visible reviews, newest first.
func (s *Service) ListReviews(ctx context.Context, productID string, q utils.QueryOptions) ([]models.Review, error) {
	var out []models.Review
	err := s.store.Find(ctx, db.Reviews, bson.M{"productId": productID, "isActive": true}, db.FindOptions{
		SortField: "createdAt",
		SortDesc:  true,
		Skip:      int64(q.Skip()),
		Limit:     int64(q.Limit),
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return out, nil
}
