package repository

import (
	"context"
	"errors"
	"fmt"

	"ku-isoko/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// cartRepository implements the CartRepository interface using PostgreSQL.
type cartRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool *pgxpool.Pool, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

// GetByUserID retrieves the user's cart with items, or nil if none exists.
func (r *cartRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	var cart model.Cart
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1`, userID).
		Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to query cart")
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}

	if err := r.loadItems(ctx, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) loadItems(ctx context.Context, cart *model.Cart) error {
	query := `
		SELECT ci.id, ci.product_id, ci.seller_id, ci.quantity, ci.price,
			p.name, p.price, p.stock, p.image_url, p.category
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.created_at, ci.id
	`

	rows, err := r.pool.Query(ctx, query, cart.ID)
	if err != nil {
		r.logger.Error().Err(err).Str("cart_id", cart.ID.String()).Msg("failed to query cart items")
		return fmt.Errorf("failed to query cart items: %w", err)
	}
	defer rows.Close()

	cart.Items = []model.CartItem{}
	for rows.Next() {
		var (
			item model.CartItem
			p    model.Product
		)
		err := rows.Scan(&item.ID, &item.ProductID, &item.SellerID, &item.Quantity, &item.Price,
			&p.Name, &p.Price, &p.Stock, &p.ImageURL, &p.Category)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart item row")
			return fmt.Errorf("failed to scan cart item: %w", err)
		}
		p.ID = item.ProductID
		p.SellerID = item.SellerID
		item.Product = &p
		cart.Items = append(cart.Items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating cart item rows")
		return fmt.Errorf("error iterating cart items: %w", err)
	}
	return nil
}

// GetOrCreate returns the user's cart, inserting an empty one if needed.
func (r *cartRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	query := `
		INSERT INTO carts (id, user_id) VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.pool.Exec(ctx, query, uuid.New(), userID); err != nil {
		r.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to create cart")
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}

	cart, err := r.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, fmt.Errorf("cart for user %s vanished after creation", userID)
	}
	return cart, nil
}

// UpsertItem inserts a line or merges it into the existing line for the product.
func (r *cartRepository) UpsertItem(ctx context.Context, cartID uuid.UUID, item model.CartItem) error {
	query := `
		INSERT INTO cart_items (id, cart_id, product_id, seller_id, quantity, price)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, price = EXCLUDED.price
	`

	_, err := r.pool.Exec(ctx, query, uuid.New(), cartID, item.ProductID, item.SellerID, item.Quantity, item.Price)
	if err != nil {
		r.logger.Error().Err(err).
			Str("cart_id", cartID.String()).
			Str("product_id", item.ProductID.String()).
			Msg("failed to upsert cart item")
		return fmt.Errorf("failed to upsert cart item: %w", err)
	}

	r.touch(ctx, cartID)
	return nil
}

// UpdateItemQuantity sets the quantity of a line, deleting it at zero.
func (r *cartRepository) UpdateItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) (bool, error) {
	if quantity == 0 {
		return r.RemoveItem(ctx, cartID, itemID)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE cart_items SET quantity = $3 WHERE id = $2 AND cart_id = $1`, cartID, itemID, quantity)
	if err != nil {
		r.logger.Error().Err(err).Str("item_id", itemID.String()).Msg("failed to update cart item")
		return false, fmt.Errorf("failed to update cart item: %w", err)
	}

	r.touch(ctx, cartID)
	return tag.RowsAffected() == 1, nil
}

// RemoveItem deletes one line from the cart.
func (r *cartRepository) RemoveItem(ctx context.Context, cartID, itemID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE id = $2 AND cart_id = $1`, cartID, itemID)
	if err != nil {
		r.logger.Error().Err(err).Str("item_id", itemID.String()).Msg("failed to remove cart item")
		return false, fmt.Errorf("failed to remove cart item: %w", err)
	}

	r.touch(ctx, cartID)
	return tag.RowsAffected() == 1, nil
}

// Clear deletes every line of the cart and bumps its updated_at in a single
// statement, so a failure inside the caller's transaction surfaces here.
func (r *cartRepository) Clear(ctx context.Context, q Querier, cartID uuid.UUID) error {
	query := `
		WITH cleared AS (DELETE FROM cart_items WHERE cart_id = $1)
		UPDATE carts SET updated_at = NOW() WHERE id = $1
	`
	if _, err := q.Exec(ctx, query, cartID); err != nil {
		r.logger.Error().Err(err).Str("cart_id", cartID.String()).Msg("failed to clear cart")
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	return nil
}

// touch runs outside any transaction; a failure only leaves updated_at stale.
func (r *cartRepository) touch(ctx context.Context, cartID uuid.UUID) {
	if _, err := r.pool.Exec(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = $1`, cartID); err != nil {
		r.logger.Warn().Err(err).Str("cart_id", cartID.String()).Msg("failed to touch cart")
	}
}
