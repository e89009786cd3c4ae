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

const orderColumns = `
	id, user_id, items, total_price, shipping_fee, grand_total,
	payment_method, payment_status, order_status, shipping_status, shipping_address,
	momo_transaction_id, stripe_payment_id, created_at, updated_at`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.Items, &o.TotalPrice, &o.ShippingFee, &o.GrandTotal,
		&o.PaymentMethod, &o.PaymentStatus, &o.OrderStatus, &o.ShippingStatus, &o.ShippingAddress,
		&o.MoMoTransactionID, &o.StripePaymentID, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func collectOrders(rows pgx.Rows) ([]model.Order, error) {
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return orders, nil
}

// Create inserts a new order.
func (r *orderRepository) Create(ctx context.Context, q Querier, order *model.Order) error {
	query := `
		INSERT INTO orders (
			id, user_id, items, seller_ids, total_price, shipping_fee, grand_total,
			payment_method, payment_status, order_status, shipping_status, shipping_address,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := q.Exec(ctx, query,
		order.ID, order.UserID, order.Items, order.SellerIDs(),
		order.TotalPrice, order.ShippingFee, order.GrandTotal,
		order.PaymentMethod, order.PaymentStatus, order.OrderStatus, order.ShippingStatus,
		order.ShippingAddress, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Int("item_count", len(order.Items)).
		Msg("order created")

	return nil
}

// GetByID retrieves an order by its ID.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.get(ctx, r.pool, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves an order and takes a row lock on it.
func (r *orderRepository) GetByIDForUpdate(ctx context.Context, q Querier, id uuid.UUID) (*model.Order, error) {
	return r.get(ctx, q, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *orderRepository) get(ctx context.Context, q Querier, query string, id uuid.UUID) (*model.Order, error) {
	order, err := scanOrder(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	return order, nil
}

// ListByUser retrieves a customer's orders, newest first.
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID, page model.PageRequest) ([]model.Order, int, error) {
	return r.list(ctx, "user_id = $1", []any{userID}, page)
}

// ListBySeller retrieves orders containing the seller's items, newest first.
func (r *orderRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID, page model.PageRequest) ([]model.Order, int, error) {
	return r.list(ctx, "$1 = ANY(seller_ids)", []any{sellerID}, page)
}

// ListAll retrieves orders for administration, optionally filtered by status.
func (r *orderRepository) ListAll(ctx context.Context, filter model.OrderFilter) ([]model.Order, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.OrderStatus != "" {
		args = append(args, filter.OrderStatus)
		conds = append(conds, fmt.Sprintf("order_status = $%d", len(args)))
	}
	if filter.PaymentStatus != "" {
		args = append(args, filter.PaymentStatus)
		conds = append(conds, fmt.Sprintf("payment_status = $%d", len(args)))
	}
	return r.list(ctx, strings.Join(conds, " AND "), args, filter.Page)
}

func (r *orderRepository) list(ctx context.Context, where string, args []any, page model.PageRequest) ([]model.Order, int, error) {
	if where != "" {
		where = "WHERE " + where
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders `+where, args...).Scan(&total); err != nil {
		r.logger.Error().Err(err).Msg("failed to count orders")
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	n := page.Normalize()
	query := fmt.Sprintf(`SELECT %s FROM orders %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)+1, len(args)+2)

	rows, err := r.pool.Query(ctx, query, append(args, n.Limit, page.Offset())...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query orders")
		return nil, 0, fmt.Errorf("failed to query orders: %w", err)
	}

	orders, err := collectOrders(rows)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to read order rows")
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateStatuses applies an administrative status override.
func (r *orderRepository) UpdateStatuses(ctx context.Context, id uuid.UUID, req model.UpdateOrderStatusRequest) (*model.Order, error) {
	query := `
		UPDATE orders SET
			order_status = COALESCE($2, order_status),
			payment_status = COALESCE($3, payment_status),
			shipping_status = COALESCE($4, shipping_status),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + orderColumns

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id, req.OrderStatus, req.PaymentStatus, req.ShippingStatus))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to update order statuses")
		return nil, fmt.Errorf("failed to update order statuses: %w", err)
	}
	return order, nil
}

// SetPaymentReference stores the provider reference for method.
func (r *orderRepository) SetPaymentReference(ctx context.Context, id uuid.UUID, method model.PaymentMethod, ref string) error {
	column := "momo_transaction_id"
	if method == model.PaymentStripe {
		column = "stripe_payment_id"
	}

	query := `UPDATE orders SET payment_method = $2, ` + column + ` = $3, updated_at = NOW() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, method, ref)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to store payment reference")
		return fmt.Errorf("failed to store payment reference: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}
	return nil
}

// MarkPaid transitions a pending order to paid.
func (r *orderRepository) MarkPaid(ctx context.Context, q Querier, id uuid.UUID) (bool, error) {
	query := `
		UPDATE orders
		SET payment_status = 'paid', order_status = 'paid', updated_at = NOW()
		WHERE id = $1 AND payment_status = 'pending'
	`

	tag, err := q.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to mark order paid")
		return false, fmt.Errorf("failed to mark order paid: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// HasPaidPurchase reports whether userID has paid for an order containing productID.
func (r *orderRepository) HasPaidPurchase(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM orders
			WHERE user_id = $1
				AND payment_status = 'paid'
				AND items @> jsonb_build_array(jsonb_build_object('productId', $2::text))
		)
	`

	var ok bool
	if err := r.pool.QueryRow(ctx, query, userID, productID.String()).Scan(&ok); err != nil {
		r.logger.Error().Err(err).
			Str("user_id", userID.String()).
			Str("product_id", productID.String()).
			Msg("failed to check purchase")
		return false, fmt.Errorf("failed to check purchase: %w", err)
	}
	return ok, nil
}
