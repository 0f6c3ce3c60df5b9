// Package model defines the data models for the trivia bot.
package model

import "time"

// Difficulty levels for trivia questions.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Question is an immutable trivia question. Answers are in display order
// and CorrectIndex is 1-based into that order.
type Question struct {
	Category     string
	Difficulty   string
	Type         string
	Text         string
	Answers      []string
	CorrectIndex int
}

// Currency is a configured currency users can wager with.
type Currency struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// Balance is a user's holding of one currency.
type Balance struct {
	UserID     int64     `db:"user_id"`
	CurrencyID string    `db:"currency_id"`
	Amount     int64     `db:"amount"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Transaction represents a balance change record.
type Transaction struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	CurrencyID  string    `db:"currency_id"`
	Amount      int64     `db:"amount"`
	Type        string    `db:"type"`
	Description *string   `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// Transaction types for categorizing balance changes.
const (
	TxTypeTriviaWager = "trivia_wager" // Wager debited when a question starts
	TxTypeTriviaWin   = "trivia_win"   // Winnings credited on a correct answer
	TxTypeAdminAdjust = "admin_adjust" // Manual balance correction
)
