// Package service provides business logic implementations.
package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"telegram-trivia-bot/internal/model"
	"telegram-trivia-bot/internal/pkg/lock"
	"telegram-trivia-bot/internal/repository"
)

// CurrencyService manages user balances for a configured set of currencies
// and records every change as a transaction.
type CurrencyService struct {
	currencyRepo *repository.CurrencyRepository
	txRepo       *repository.TransactionRepository
	locks        *lock.UserLock
}

// NewCurrencyService creates a new CurrencyService instance.
func NewCurrencyService(
	currencyRepo *repository.CurrencyRepository,
	txRepo *repository.TransactionRepository,
) *CurrencyService {
	return &CurrencyService{
		currencyRepo: currencyRepo,
		txRepo:       txRepo,
		locks:        lock.NewUserLock(),
	}
}

// EnsureCurrency makes sure the currency exists, creating or renaming it
// as needed. Called once at startup for each configured currency.
func (s *CurrencyService) EnsureCurrency(ctx context.Context, id, name string) (*model.Currency, error) {
	return s.currencyRepo.EnsureCurrency(ctx, id, name)
}

// GetBalance retrieves a user's current balance for a currency.
// Users with no balance row hold zero.
func (s *CurrencyService) GetBalance(ctx context.Context, userID int64, currencyID string) (int64, error) {
	amount, err := s.currencyRepo.GetBalance(ctx, userID, currencyID)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return amount, nil
}

// Adjust applies delta to a user's balance and records a transaction.
// The adjustment and its transaction record are serialized per user.
// A negative delta that would overdraw fails with ErrInsufficientFunds
// and leaves the balance untouched.
func (s *CurrencyService) Adjust(ctx context.Context, userID int64, currencyID string, delta int64, txType string, description string) error {
	return s.locks.WithLock(userID, func() error {
		if _, err := s.currencyRepo.AdjustBalance(ctx, userID, currencyID, delta); err != nil {
			return fmt.Errorf("failed to adjust balance: %w", err)
		}

		var desc *string
		if description != "" {
			desc = &description
		}
		if _, err := s.txRepo.Create(ctx, userID, currencyID, delta, txType, desc); err != nil {
			// The balance change already landed; a missing audit row is
			// not worth failing the caller over.
			log.Error().Err(err).
				Int64("user_id", userID).
				Str("currency_id", currencyID).
				Int64("delta", delta).
				Str("type", txType).
				Msg("failed to record transaction")
		}
		return nil
	})
}

// SetBalance overwrites a user's balance, recording the change as an
// admin adjustment.
func (s *CurrencyService) SetBalance(ctx context.Context, userID int64, currencyID string, amount int64) error {
	return s.locks.WithLock(userID, func() error {
		previous, err := s.currencyRepo.GetBalance(ctx, userID, currencyID)
		if err != nil {
			return fmt.Errorf("failed to read balance: %w", err)
		}
		if _, err := s.currencyRepo.SetBalance(ctx, userID, currencyID, amount); err != nil {
			return fmt.Errorf("failed to set balance: %w", err)
		}

		desc := fmt.Sprintf("Admin set balance to %d", amount)
		if _, err := s.txRepo.Create(ctx, userID, currencyID, amount-previous, model.TxTypeAdminAdjust, &desc); err != nil {
			log.Error().Err(err).
				Int64("user_id", userID).
				Str("currency_id", currencyID).
				Msg("failed to record transaction")
		}
		return nil
	})
}

// CurrencyName returns the display name of a currency.
func (s *CurrencyService) CurrencyName(ctx context.Context, currencyID string) (string, error) {
	currency, err := s.currencyRepo.GetCurrency(ctx, currencyID)
	if err != nil {
		return "", fmt.Errorf("failed to get currency: %w", err)
	}
	return currency.Name, nil
}

// GetTopBalances retrieves the highest balances for a currency.
func (s *CurrencyService) GetTopBalances(ctx context.Context, currencyID string, limit int) ([]*model.Balance, error) {
	return s.currencyRepo.GetTopBalances(ctx, currencyID, limit)
}
