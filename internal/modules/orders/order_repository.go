// Package orders provides the conditional order store and the placement service.
package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/portfoliobot/internal/database"
	"github.com/aristath/portfoliobot/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ordersColumns must match scanOrder
const ordersColumns = `id, owner, ticker, side, target_price, quantity, created_at, status, executed_price, executed_at`

// Filter narrows List. Zero values match everything.
type Filter struct {
	Owner  string
	Status domain.OrderStatus
}

// OrderRepository handles order persistence in portfolio.db
type OrderRepository struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB, log zerolog.Logger) *OrderRepository {
	return &OrderRepository{
		db:  db,
		log: log.With().Str("repo", "orders").Logger(),
		now: time.Now,
	}
}

// Insert creates a PENDING order
func (r *OrderRepository) Insert(ctx context.Context, owner, ticker string, side domain.TradeSide, targetPrice, quantity decimal.Decimal) (*domain.Order, error) {
	if !side.IsValid() {
		return nil, &domain.ValidationError{Field: "side", Message: "must be BUY or SELL"}
	}
	if !targetPrice.IsPositive() {
		return nil, &domain.ValidationError{Field: "target_price", Message: "must be positive"}
	}
	if !quantity.IsPositive() {
		return nil, &domain.ValidationError{Field: "quantity", Message: "must be positive"}
	}

	order := &domain.Order{
		ID:          uuid.NewString(),
		Owner:       owner,
		Ticker:      domain.NormalizeTicker(ticker),
		Side:        side,
		TargetPrice: targetPrice,
		Quantity:    quantity,
		CreatedAt:   r.now().UTC().Truncate(time.Second),
		Status:      domain.OrderStatusPending,
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (id, owner, ticker, side, target_price, quantity, created_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.Owner,
		order.Ticker,
		string(order.Side),
		order.TargetPrice.String(),
		order.Quantity.String(),
		order.CreatedAt.Unix(),
		string(order.Status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	r.log.Info().
		Str("order_id", order.ID).
		Str("owner", order.Owner).
		Str("ticker", order.Ticker).
		Str("side", string(order.Side)).
		Str("target_price", order.TargetPrice.String()).
		Str("quantity", order.Quantity.String()).
		Msg("Order created")

	return order, nil
}

// Get returns one order or a NotFoundError
func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+ordersColumns+" FROM orders WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to get order: %w", err)
		}
		return nil, &domain.NotFoundError{Resource: "order", ID: id}
	}

	order, err := scanOrder(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	return &order, nil
}

// List returns orders matching filter, newest first
func (r *OrderRepository) List(ctx context.Context, filter Filter) ([]domain.Order, error) {
	var where []string
	var args []interface{}

	if filter.Owner != "" {
		where = append(where, "owner = ?")
		args = append(args, filter.Owner)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := "SELECT " + ordersColumns + " FROM orders"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"

	return r.query(ctx, query, args...)
}

// ListPending returns every PENDING order in evaluation order: oldest first, then insertion order
func (r *OrderRepository) ListPending(ctx context.Context) ([]domain.Order, error) {
	return r.query(ctx,
		"SELECT "+ordersColumns+" FROM orders WHERE status = ? ORDER BY created_at ASC, rowid ASC",
		string(domain.OrderStatusPending),
	)
}

// CountByStatus returns the number of orders per status
func (r *OrderRepository) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM orders GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.OrderStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan order count: %w", err)
		}
		counts[domain.OrderStatus(status)] = n
	}
	return counts, rows.Err()
}

// Transition moves an order out of PENDING in its own transaction
func (r *OrderRepository) Transition(ctx context.Context, id string, to domain.OrderStatus, executedPrice *decimal.Decimal, at time.Time) error {
	return database.WithTransactionContext(ctx, r.db, func(tx *sql.Tx) error {
		return r.TransitionTx(ctx, tx, id, to, executedPrice, at)
	})
}

// TransitionTx moves an order out of PENDING within tx.
//
// The conditional UPDATE is the only guard against double execution: of any number
// of concurrent callers exactly one sees a changed row. The others get an
// *InvalidTransitionError carrying the status that won, or a *NotFoundError.
func (r *OrderRepository) TransitionTx(ctx context.Context, tx *sql.Tx, id string, to domain.OrderStatus, executedPrice *decimal.Decimal, at time.Time) error {
	if !domain.OrderStatusPending.CanTransitionTo(to) {
		return &domain.ValidationError{Field: "status", Message: fmt.Sprintf("cannot transition to %s", to)}
	}

	var result sql.Result
	var err error
	if to == domain.OrderStatusExecuted {
		if executedPrice == nil || !executedPrice.IsPositive() {
			return &domain.ValidationError{Field: "executed_price", Message: "must be positive"}
		}
		result, err = tx.ExecContext(ctx, `
			UPDATE orders SET status = ?, executed_price = ?, executed_at = ?
			WHERE id = ? AND status = ?`,
			string(to), executedPrice.String(), at.UTC().Unix(), id, string(domain.OrderStatusPending),
		)
	} else {
		result, err = tx.ExecContext(ctx,
			"UPDATE orders SET status = ? WHERE id = ? AND status = ?",
			string(to), id, string(domain.OrderStatusPending),
		)
	}
	if err != nil {
		return fmt.Errorf("failed to transition order %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read transition result: %w", err)
	}
	if affected == 1 {
		r.log.Debug().Str("order_id", id).Str("status", string(to)).Msg("Order transitioned")
		return nil
	}

	var current string
	err = tx.QueryRowContext(ctx, "SELECT status FROM orders WHERE id = ?", id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Resource: "order", ID: id}
	}
	if err != nil {
		return fmt.Errorf("failed to read order status: %w", err)
	}

	return &domain.InvalidTransitionError{OrderID: id, From: domain.OrderStatus(current), To: to}
}

func (r *OrderRepository) query(ctx context.Context, query string, args ...interface{}) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

func scanOrder(rows *sql.Rows) (domain.Order, error) {
	var order domain.Order
	var side, status string
	var createdAt int64
	var executedPrice decimal.NullDecimal
	var executedAt sql.NullInt64

	err := rows.Scan(
		&order.ID,
		&order.Owner,
		&order.Ticker,
		&side,
		&order.TargetPrice,
		&order.Quantity,
		&createdAt,
		&status,
		&executedPrice,
		&executedAt,
	)
	if err != nil {
		return order, err
	}

	order.Side = domain.TradeSide(side)
	order.Status = domain.OrderStatus(status)
	order.CreatedAt = time.Unix(createdAt, 0).UTC()

	if executedPrice.Valid {
		price := executedPrice.Decimal
		order.ExecutedPrice = &price
	}
	if executedAt.Valid {
		at := time.Unix(executedAt.Int64, 0).UTC()
		order.ExecutedAt = &at
	}

	return order, nil
}
