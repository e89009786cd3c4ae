package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ku-isoko/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const productColumns = `
	p.id, p.name, p.description, p.price, p.stock, p.category, p.image_url,
	p.seller_id, COALESCE(u.name, ''), p.average_rating, p.review_count,
	p.created_at, p.updated_at`

const productFrom = `FROM products p LEFT JOIN users u ON u.id = p.seller_id`

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Category, &p.ImageURL,
		&p.SellerID, &p.SellerName, &p.AverageRating, &p.ReviewCount,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectProducts(rows pgx.Rows) ([]model.Product, error) {
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}

// Create inserts a new product.
func (r *productRepository) Create(ctx context.Context, p *model.Product) error {
	query := `
		INSERT INTO products (id, name, description, price, stock, category, image_url, seller_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.Category, p.ImageURL, p.SellerID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", p.ID.String()).Msg("failed to create product")
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// GetByID retrieves a single product by its ID.
func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` ` + productFrom + ` WHERE p.id = $1`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("product_id", id.String()).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return p, nil
}

// List retrieves one page of products matching filter, newest first.
func (r *productRepository) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, int, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Category != "" {
		conds = append(conds, "p.category = "+arg(filter.Category))
	}
	if filter.SellerID != nil {
		conds = append(conds, "p.seller_id = "+arg(*filter.SellerID))
	}
	if filter.MinPrice != nil {
		conds = append(conds, "p.price >= "+arg(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		conds = append(conds, "p.price <= "+arg(*filter.MaxPrice))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		sub := arg(likePattern(search))
		fuzzy := arg(fuzzyPattern(search))
		conds = append(conds, fmt.Sprintf("(p.name ILIKE %s OR p.description ILIKE %s OR p.name ILIKE %s)", sub, sub, fuzzy))
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products p `+where, args...).Scan(&total); err != nil {
		r.logger.Error().Err(err).Msg("failed to count products")
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	page := filter.Page.Normalize()
	query := `SELECT ` + productColumns + ` ` + productFrom + ` ` + where +
		` ORDER BY p.created_at DESC, p.id LIMIT ` + arg(page.Limit) + ` OFFSET ` + arg(filter.Page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Int("page", page.Page).Msg("failed to query products")
		return nil, 0, fmt.Errorf("failed to query products: %w", err)
	}

	products, err := collectProducts(rows)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to read product rows")
		return nil, 0, err
	}

	return products, total, nil
}

// ListRelated retrieves products in the same category or from the same seller.
func (r *productRepository) ListRelated(ctx context.Context, p *model.Product, limit int) ([]model.Product, error) {
	query := `SELECT ` + productColumns + ` ` + productFrom + `
		WHERE p.id <> $1 AND (p.category = $2 OR p.seller_id = $3)
		ORDER BY p.average_rating DESC, p.review_count DESC, p.created_at DESC
		LIMIT $4`

	rows, err := r.pool.Query(ctx, query, p.ID, p.Category, p.SellerID, limit)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", p.ID.String()).Msg("failed to query related products")
		return nil, fmt.Errorf("failed to query related products: %w", err)
	}

	return collectProducts(rows)
}

// Update applies the non-nil fields of changes and returns the stored row.
// Omitted fields, stock included, keep their current column value so a
// catalogue edit never overwrites a concurrent stock decrement.
func (r *productRepository) Update(ctx context.Context, id uuid.UUID, changes model.UpdateProductRequest) (*model.Product, error) {
	query := `
		WITH p AS (
			UPDATE products
			SET name = COALESCE($2, name),
				description = COALESCE($3, description),
				price = COALESCE($4, price),
				stock = COALESCE($5, stock),
				category = COALESCE($6, category),
				image_url = COALESCE($7, image_url),
				updated_at = NOW()
			WHERE id = $1
			RETURNING *
		)
		SELECT ` + productColumns + ` FROM p LEFT JOIN users u ON u.id = p.seller_id
	`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id,
		changes.Name, changes.Description, changes.Price, changes.Stock, changes.Category, changes.ImageURL))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrProductNotFound
		}
		r.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to update product")
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return p, nil
}

// Delete removes a product.
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", id.String()).Msg("failed to delete product")
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrProductNotFound
	}
	return nil
}

// DecrementStock takes quantity units from stock only if enough remain.
func (r *productRepository) DecrementStock(ctx context.Context, q Querier, id uuid.UUID, quantity int) (bool, error) {
	query := `
		UPDATE products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
	`

	tag, err := q.Exec(ctx, query, id, quantity)
	if err != nil {
		r.logger.Error().Err(err).
			Str("product_id", id.String()).
			Int("quantity", quantity).
			Msg("failed to decrement stock")
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}

	ok := tag.RowsAffected() == 1
	if !ok {
		r.logger.Warn().
			Str("product_id", id.String()).
			Int("quantity", quantity).
			Msg("insufficient stock for decrement")
	}
	return ok, nil
}

// UpdateRating recomputes the cached rating aggregate for a product.
func (r *productRepository) UpdateRating(ctx context.Context, q Querier, productID uuid.UUID) error {
	query := `
		UPDATE products p
		SET average_rating = COALESCE(s.avg, 0), review_count = COALESCE(s.cnt, 0), updated_at = NOW()
		FROM (
			SELECT ROUND(AVG(rating)::numeric, 1) AS avg, COUNT(*) AS cnt
			FROM reviews WHERE product_id = $1
		) s
		WHERE p.id = $1
	`

	if _, err := q.Exec(ctx, query, productID); err != nil {
		r.logger.Error().Err(err).Str("product_id", productID.String()).Msg("failed to update rating")
		return fmt.Errorf("failed to update product rating: %w", err)
	}
	return nil
}
