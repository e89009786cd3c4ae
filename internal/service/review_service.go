package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ku-isoko/internal/model"
	"ku-isoko/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// reviewService implements ReviewService.
type reviewService struct {
	txr      repository.Transactor
	reviews  repository.ReviewRepository
	products repository.ProductRepository
	orders   repository.OrderRepository
	logger   zerolog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(
	txr repository.Transactor,
	reviews repository.ReviewRepository,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	logger zerolog.Logger,
) ReviewService {
	return &reviewService{
		txr:      txr,
		reviews:  reviews,
		products: products,
		orders:   orders,
		logger:   logger.With().Str("service", "review").Logger(),
	}
}

// Create records the actor's review of a product they have paid for.
func (s *reviewService) Create(ctx context.Context, actor model.Actor, productID uuid.UUID, req model.ReviewRequest) (*model.Review, error) {
	if err := validRating(req.Rating); err != nil {
		return nil, err
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, model.ErrProductNotFound
	}

	purchased, err := s.orders.HasPaidPurchase(ctx, actor.UserID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to check purchase: %w", err)
	}
	if !purchased {
		return nil, model.ErrNotPurchased
	}

	now := time.Now().UTC()
	review := &model.Review{
		ID:        uuid.New(),
		ProductID: productID,
		UserID:    actor.UserID,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = inTx(ctx, s.txr, s.logger, func(tx pgx.Tx) error {
		if err := s.reviews.Create(ctx, tx, review); err != nil {
			return err
		}
		return s.products.UpdateRating(ctx, tx, productID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("review_id", review.ID.String()).
		Str("product_id", productID.String()).
		Int("rating", review.Rating).
		Msg("review created")
	return review, nil
}

func (s *reviewService) ListByProduct(ctx context.Context, productID uuid.UUID, page model.PageRequest) (*model.ProductReviews, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, model.ErrProductNotFound
	}

	reviews, total, err := s.reviews.ListByProduct(ctx, productID, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	return &model.ProductReviews{
		Reviews:       reviews,
		AverageRating: product.AverageRating,
		ReviewCount:   product.ReviewCount,
		Pagination:    model.NewPage(page, total),
	}, nil
}

func (s *reviewService) Update(ctx context.Context, actor model.Actor, id uuid.UUID, req model.ReviewRequest) (*model.Review, error) {
	if err := validRating(req.Rating); err != nil {
		return nil, err
	}

	review, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(review.UserID) {
		return nil, model.ErrAccessDenied
	}

	review.Rating = req.Rating
	review.Comment = strings.TrimSpace(req.Comment)

	err = inTx(ctx, s.txr, s.logger, func(tx pgx.Tx) error {
		if err := s.reviews.Update(ctx, tx, review); err != nil {
			return err
		}
		return s.products.UpdateRating(ctx, tx, review.ProductID)
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

func (s *reviewService) Delete(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	review, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && !actor.Owns(review.UserID) {
		return model.ErrAccessDenied
	}

	err = inTx(ctx, s.txr, s.logger, func(tx pgx.Tx) error {
		if err := s.reviews.Delete(ctx, tx, id); err != nil {
			return err
		}
		return s.products.UpdateRating(ctx, tx, review.ProductID)
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("review_id", id.String()).Msg("review deleted")
	return nil
}

func (s *reviewService) get(ctx context.Context, id uuid.UUID) (*model.Review, error) {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	if review == nil {
		return nil, model.ErrReviewNotFound
	}
	return review, nil
}

func validRating(rating int) error {
	if rating < 1 || rating > 5 {
		return model.ValidationError("Rating must be between 1 and 5")
	}
	return nil
}
