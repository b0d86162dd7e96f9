// Package portfolio provides the per-owner lot store and holdings views.
package portfolio

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

const lotsColumns = `id, owner, ticker, shares, entry_price, purchase_date`

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// LotRepository handles lot persistence in portfolio.db.
// The *Tx variants let the order engine mutate lots inside its execution transaction.
type LotRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewLotRepository creates a new lot repository
func NewLotRepository(db *sql.DB, log zerolog.Logger) *LotRepository {
	return &LotRepository{
		db:  db,
		log: log.With().Str("repo", "lots").Logger(),
	}
}

// AddLot implements domain.PortfolioStore
func (r *LotRepository) AddLot(ctx context.Context, owner, ticker string, shares, price decimal.Decimal, date time.Time) (*domain.Lot, error) {
	var lot *domain.Lot
	err := database.WithTransactionContext(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		lot, err = r.AddLotTx(ctx, tx, owner, ticker, shares, price, date)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// AddLotTx adds shares to owner's holdings within tx.
// A lot with the same ticker, entry price and purchase date absorbs the shares instead
// of creating a new lot.
func (r *LotRepository) AddLotTx(ctx context.Context, tx *sql.Tx, owner, ticker string, shares, price decimal.Decimal, date time.Time) (*domain.Lot, error) {
	ticker = domain.NormalizeTicker(ticker)
	if !shares.IsPositive() {
		return nil, &domain.ValidationError{Field: "shares", Message: "must be positive"}
	}
	if !price.IsPositive() {
		return nil, &domain.ValidationError{Field: "entry_price", Message: "must be positive"}
	}

	purchaseDate := date.UTC().Truncate(time.Second)

	var existingID string
	var existingShares decimal.Decimal
	err := tx.QueryRowContext(ctx, `
		SELECT id, shares FROM lots
		WHERE owner = ? AND ticker = ? AND entry_price = ? AND purchase_date = ?
		LIMIT 1`,
		owner, ticker, price.String(), purchaseDate.Unix(),
	).Scan(&existingID, &existingShares)

	switch {
	case err == nil:
		merged := existingShares.Add(shares)
		if _, err := tx.ExecContext(ctx, "UPDATE lots SET shares = ? WHERE id = ?", merged.String(), existingID); err != nil {
			return nil, fmt.Errorf("failed to merge lot: %w", err)
		}
		r.log.Debug().
			Str("owner", owner).
			Str("ticker", ticker).
			Str("lot_id", existingID).
			Str("shares", merged.String()).
			Msg("Merged shares into existing lot")
		return &domain.Lot{
			ID:           existingID,
			Owner:        owner,
			Ticker:       ticker,
			Shares:       merged,
			EntryPrice:   price,
			PurchaseDate: purchaseDate,
		}, nil

	case errors.Is(err, sql.ErrNoRows):
		// no same-tick lot, insert below

	default:
		return nil, fmt.Errorf("failed to look up lot: %w", err)
	}

	lot := &domain.Lot{
		ID:           uuid.NewString(),
		Owner:        owner,
		Ticker:       ticker,
		Shares:       shares,
		EntryPrice:   price,
		PurchaseDate: purchaseDate,
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO lots (`+lotsColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		lot.ID, lot.Owner, lot.Ticker, lot.Shares.String(), lot.EntryPrice.String(), lot.PurchaseDate.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert lot: %w", err)
	}

	r.log.Info().
		Str("owner", owner).
		Str("ticker", ticker).
		Str("shares", shares.String()).
		Str("entry_price", price.String()).
		Msg("Lot added")

	return lot, nil
}

// ReduceShares implements domain.PortfolioStore
func (r *LotRepository) ReduceShares(ctx context.Context, owner, ticker string, quantity decimal.Decimal) error {
	return database.WithTransactionContext(ctx, r.db, func(tx *sql.Tx) error {
		return r.ReduceSharesTx(ctx, tx, owner, ticker, quantity)
	})
}

// ReduceSharesTx consumes quantity shares oldest-first (FIFO by purchase date) within tx.
// Lots reaching zero are deleted. When total holdings are short nothing is modified and
// an *InsufficientSharesError is returned.
func (r *LotRepository) ReduceSharesTx(ctx context.Context, tx *sql.Tx, owner, ticker string, quantity decimal.Decimal) error {
	ticker = domain.NormalizeTicker(ticker)
	if !quantity.IsPositive() {
		return &domain.ValidationError{Field: "quantity", Message: "must be positive"}
	}

	lots, err := r.listLots(ctx, tx, owner, ticker)
	if err != nil {
		return err
	}

	available := sumShares(lots)
	if available.LessThan(quantity) {
		return &domain.InsufficientSharesError{
			Owner:     owner,
			Ticker:    ticker,
			Requested: quantity,
			Available: available,
		}
	}

	remaining := quantity
	for _, lot := range lots {
		if !remaining.IsPositive() {
			break
		}

		if lot.Shares.LessThanOrEqual(remaining) {
			if _, err := tx.ExecContext(ctx, "DELETE FROM lots WHERE id = ?", lot.ID); err != nil {
				return fmt.Errorf("failed to delete lot %s: %w", lot.ID, err)
			}
			remaining = remaining.Sub(lot.Shares)
			continue
		}

		left := lot.Shares.Sub(remaining)
		if _, err := tx.ExecContext(ctx, "UPDATE lots SET shares = ? WHERE id = ?", left.String(), lot.ID); err != nil {
			return fmt.Errorf("failed to update lot %s: %w", lot.ID, err)
		}
		remaining = decimal.Zero
	}

	r.log.Info().
		Str("owner", owner).
		Str("ticker", ticker).
		Str("quantity", quantity.String()).
		Str("remaining_holdings", available.Sub(quantity).String()).
		Msg("Shares reduced")

	return nil
}

// GetHoldings implements domain.PortfolioStore
func (r *LotRepository) GetHoldings(ctx context.Context, owner, ticker string) (decimal.Decimal, error) {
	lots, err := r.listLots(ctx, r.db, owner, domain.NormalizeTicker(ticker))
	if err != nil {
		return decimal.Zero, err
	}
	return sumShares(lots), nil
}

// GetHoldingsTx is GetHoldings within tx
func (r *LotRepository) GetHoldingsTx(ctx context.Context, tx *sql.Tx, owner, ticker string) (decimal.Decimal, error) {
	lots, err := r.listLots(ctx, tx, owner, domain.NormalizeTicker(ticker))
	if err != nil {
		return decimal.Zero, err
	}
	return sumShares(lots), nil
}

// ListLots returns owner's lots (all tickers when ticker is empty), by ticker then FIFO order
func (r *LotRepository) ListLots(ctx context.Context, owner string, ticker string) ([]domain.Lot, error) {
	return r.listLots(ctx, r.db, owner, domain.NormalizeTicker(ticker))
}

func (r *LotRepository) listLots(ctx context.Context, q querier, owner, ticker string) ([]domain.Lot, error) {
	var query strings.Builder
	args := []interface{}{owner}

	query.WriteString(`SELECT ` + lotsColumns + ` FROM lots WHERE owner = ?`)
	if ticker != "" {
		query.WriteString(` AND ticker = ?`)
		args = append(args, ticker)
	}
	query.WriteString(` ORDER BY ticker ASC, purchase_date ASC, rowid ASC`)

	rows, err := q.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lots: %w", err)
	}
	defer rows.Close()

	lots := make([]domain.Lot, 0)
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lot: %w", err)
		}
		lots = append(lots, lot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lots: %w", err)
	}

	return lots, nil
}

func scanLot(rows *sql.Rows) (domain.Lot, error) {
	var lot domain.Lot
	var purchaseDate int64

	err := rows.Scan(&lot.ID, &lot.Owner, &lot.Ticker, &lot.Shares, &lot.EntryPrice, &purchaseDate)
	if err != nil {
		return lot, err
	}

	lot.PurchaseDate = time.Unix(purchaseDate, 0).UTC()
	return lot, nil
}

func sumShares(lots []domain.Lot) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range lots {
		total = total.Add(lot.Shares)
	}
	return total
}
