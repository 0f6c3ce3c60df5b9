package trivia

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"telegram-trivia-bot/internal/model"
)

// activeSession is the single open question. At most one exists per engine.
// It is created in a reserved state while validation and the ledger debit
// are in flight, then promoted once the question is announced. The timers
// it armed must be cancelled before the reference is dropped.
type activeSession struct {
	id         uuid.UUID
	userID     int64
	username   string
	question   *model.Question
	wager      int64
	multiplier decimal.Decimal
	currencyID string
	dest       Destination

	warnTimer   *time.Timer
	answerTimer *time.Timer
	reserved    bool
}

// newReservation claims the session slot for a user before any suspending
// ledger call is made. A reserved session accepts no answers.
func newReservation(userID int64, username string, dest Destination) *activeSession {
	return &activeSession{
		id:       uuid.New(),
		userID:   userID,
		username: username,
		dest:     dest,
		reserved: true,
	}
}

// stopTimers cancels both outstanding timers. Safe to call repeatedly and
// on a session that never armed them.
func (s *activeSession) stopTimers() {
	if s.warnTimer != nil {
		s.warnTimer.Stop()
		s.warnTimer = nil
	}
	if s.answerTimer != nil {
		s.answerTimer.Stop()
		s.answerTimer = nil
	}
}
