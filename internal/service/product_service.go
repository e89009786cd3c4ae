package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ku-isoko/internal/model"
	"ku-isoko/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const relatedLimit = 6

// productService implements ProductService.
type productService struct {
	products repository.ProductRepository
	sellers  repository.SellerRepository
	logger   zerolog.Logger
}

// NewProductService creates a new product service.
func NewProductService(products repository.ProductRepository, sellers repository.SellerRepository, logger zerolog.Logger) ProductService {
	return &productService{
		products: products,
		sellers:  sellers,
		logger:   logger.With().Str("service", "product").Logger(),
	}
}

// Create lists a new product under the actor. Sellers need an active
// storefront; admins may list directly.
func (s *productService) Create(ctx context.Context, actor model.Actor, req model.CreateProductRequest) (*model.Product, error) {
	if req.Price.IsNegative() {
		return nil, model.ValidationError("Price cannot be negative")
	}

	if !actor.IsAdmin() {
		profile, err := s.sellers.GetByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to get seller profile: %w", err)
		}
		if profile == nil || profile.SellerStatus != model.SellerActive {
			s.logger.Warn().Str("user_id", actor.UserID.String()).Msg("inactive seller tried to list a product")
			return nil, model.ErrSellerNotActive
		}
	}

	now := time.Now().UTC()
	p := &model.Product{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    strings.TrimSpace(req.Category),
		ImageURL:    req.ImageURL,
		SellerID:    actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info().
		Str("product_id", p.ID.String()).
		Str("seller_id", actor.UserID.String()).
		Msg("product created")
	return p, nil
}

func (s *productService) List(ctx context.Context, filter model.ProductFilter) (*model.ProductList, error) {
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return nil, model.ValidationError("minPrice cannot exceed maxPrice")
	}

	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list products")
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	s.logger.Debug().Int("count", len(products)).Int("total", total).Msg("listed products")
	return &model.ProductList{Products: products, Pagination: model.NewPage(filter.Page, total)}, nil
}

// Get retrieves a single product by ID.
func (s *productService) Get(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if p == nil {
		return nil, model.ErrProductNotFound
	}
	return p, nil
}

func (s *productService) Related(ctx context.Context, id uuid.UUID) ([]model.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	related, err := s.products.ListRelated(ctx, p, relatedLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get related products: %w", err)
	}
	return related, nil
}

func (s *productService) ListMine(ctx context.Context, actor model.Actor, page model.PageRequest) (*model.ProductList, error) {
	sellerID := actor.UserID
	return s.List(ctx, model.ProductFilter{SellerID: &sellerID, Page: page})
}

// owned loads a product the actor may change.
func (s *productService) owned(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !actor.Owns(p.SellerID) {
		return nil, model.ErrAccessDenied
	}
	return p, nil
}

func (s *productService) Update(ctx context.Context, actor model.Actor, id uuid.UUID, req model.UpdateProductRequest) (*model.Product, error) {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return nil, err
	}
	if req.Price != nil && req.Price.IsNegative() {
		return nil, model.ValidationError("Price cannot be negative")
	}

	changes := model.UpdateProductRequest{
		Name:        trimmed(req.Name),
		Description: trimmed(req.Description),
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    trimmed(req.Category),
		ImageURL:    req.ImageURL,
	}

	p, err := s.products.Update(ctx, id, changes)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("product_id", id.String()).Msg("product updated")
	return p, nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

func (s *productService) Delete(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Str("product_id", id.String()).Msg("product deleted")
	return nil
}
