// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-trivia-bot/internal/model"
)

// Common errors for repository operations.
var (
	ErrCurrencyNotFound  = errors.New("currency not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// checkViolationCode is the PostgreSQL error code raised when the
// non-negative balance constraint is violated.
const checkViolationCode = "23514"

// CurrencyRepository handles currency metadata and balance persistence.
type CurrencyRepository struct {
	pool *pgxpool.Pool
}

// NewCurrencyRepository creates a new CurrencyRepository instance.
func NewCurrencyRepository(pool *pgxpool.Pool) *CurrencyRepository {
	return &CurrencyRepository{pool: pool}
}

// EnsureCurrency creates the currency if it does not exist and updates
// its display name if it does.
func (r *CurrencyRepository) EnsureCurrency(ctx context.Context, id, name string) (*model.Currency, error) {
	const query = `
		INSERT INTO currencies (id, name, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, created_at
	`

	var c model.Currency
	err := r.pool.QueryRow(ctx, query, id, name).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure currency: %w", err)
	}

	return &c, nil
}

// GetCurrency retrieves currency metadata by ID.
// Returns ErrCurrencyNotFound if the currency does not exist.
func (r *CurrencyRepository) GetCurrency(ctx context.Context, id string) (*model.Currency, error) {
	const query = `SELECT id, name, created_at FROM currencies WHERE id = $1`

	var c model.Currency
	err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCurrencyNotFound
		}
		return nil, fmt.Errorf("failed to get currency: %w", err)
	}

	return &c, nil
}

// GetBalance retrieves a user's balance for a currency. A user with no
// balance row holds zero.
func (r *CurrencyRepository) GetBalance(ctx context.Context, userID int64, currencyID string) (int64, error) {
	const query = `
		SELECT amount FROM balances
		WHERE user_id = $1 AND currency_id = $2
	`

	var amount int64
	err := r.pool.QueryRow(ctx, query, userID, currencyID).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}

	return amount, nil
}

// AdjustBalance changes a user's balance by the given delta, creating the
// balance row if needed. Returns ErrInsufficientFunds when the change
// would make the balance negative.
func (r *CurrencyRepository) AdjustBalance(ctx context.Context, userID int64, currencyID string, delta int64) (int64, error) {
	const query = `
		INSERT INTO balances (user_id, currency_id, amount, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, currency_id)
		DO UPDATE SET amount = balances.amount + $3, updated_at = NOW()
		RETURNING amount
	`

	var amount int64
	err := r.pool.QueryRow(ctx, query, userID, currencyID, delta).Scan(&amount)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == checkViolationCode {
			return 0, ErrInsufficientFunds
		}
		return 0, fmt.Errorf("failed to adjust balance: %w", err)
	}

	return amount, nil
}

// SetBalance sets a user's balance to an exact value.
// Used primarily for admin operations.
func (r *CurrencyRepository) SetBalance(ctx context.Context, userID int64, currencyID string, amount int64) (int64, error) {
	const query = `
		INSERT INTO balances (user_id, currency_id, amount, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, currency_id)
		DO UPDATE SET amount = $3, updated_at = NOW()
		RETURNING amount
	`

	var got int64
	err := r.pool.QueryRow(ctx, query, userID, currencyID, amount).Scan(&got)
	if err != nil {
		return 0, fmt.Errorf("failed to set balance: %w", err)
	}

	return got, nil
}

// GetTopBalances retrieves the top N holders of a currency.
func (r *CurrencyRepository) GetTopBalances(ctx context.Context, currencyID string, limit int) ([]*model.Balance, error) {
	const query = `
		SELECT user_id, currency_id, amount, updated_at
		FROM balances
		WHERE currency_id = $1
		ORDER BY amount DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, currencyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top balances: %w", err)
	}
	defer rows.Close()

	var balances []*model.Balance
	for rows.Next() {
		var b model.Balance
		if err := rows.Scan(&b.UserID, &b.CurrencyID, &b.Amount, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balances: %w", err)
	}

	return balances, nil
}
