package trivia

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"telegram-trivia-bot/internal/model"
	"telegram-trivia-bot/internal/pkg/cooldown"
)

// warningLeadSeconds is how long before the deadline the "5 seconds
// remaining" notice is announced.
const warningLeadSeconds = 6

// Config holds the collaborators the engine depends on.
type Config struct {
	Settings  SettingsProvider
	Chat      Dispatcher
	Ledger    Ledger
	Questions QuestionSource

	// TeamRoles and CustomRoles may be nil; a nil provider contributes
	// no roles.
	TeamRoles   RoleProvider
	CustomRoles RoleProvider

	// MapPlatformRoles converts the role claims carried by a trigger
	// event into role IDs. Nil means claims are used as-is.
	MapPlatformRoles func(claims []string) []string

	// Now and AfterFunc are test hooks. Nil means the real clock.
	Now       func() time.Time
	AfterFunc func(d time.Duration, f func()) *time.Timer
}

// Engine owns the session slot and runs the wager-question lifecycle:
// validate, debit, announce, then settle on answer or timeout. All inbound
// events funnel through HandleWagerTrigger and HandleChatMessage.
type Engine struct {
	settings    SettingsProvider
	chat        Dispatcher
	ledger      Ledger
	questions   QuestionSource
	teamRoles   RoleProvider
	customRoles RoleProvider
	mapPlatform func(claims []string) []string
	cooldowns   *cooldown.Tracker

	now       func() time.Time
	afterFunc func(d time.Duration, f func()) *time.Timer

	mu      sync.Mutex
	session *activeSession // nil means idle
}

// NewEngine creates an Engine with an empty session slot and no cooldowns.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		settings:    cfg.Settings,
		chat:        cfg.Chat,
		ledger:      cfg.Ledger,
		questions:   cfg.Questions,
		teamRoles:   cfg.TeamRoles,
		customRoles: cfg.CustomRoles,
		mapPlatform: cfg.MapPlatformRoles,
		cooldowns:   cooldown.NewTracker(),
		now:         cfg.Now,
		afterFunc:   cfg.AfterFunc,
	}
	if e.mapPlatform == nil {
		e.mapPlatform = func(claims []string) []string { return claims }
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.afterFunc == nil {
		e.afterFunc = time.AfterFunc
	}
	return e
}

// HandleWagerTrigger processes a "start trivia" event. Every failure sends
// a chat message and leaves the engine idle; only a successful ledger
// debit leads to an announced question with timers armed.
func (e *Engine) HandleWagerTrigger(ctx context.Context, event *WagerEvent) {
	settings := e.settings.Settings()
	user := event.Username

	wager, err := strconv.ParseInt(strings.TrimSpace(event.WagerArg), 10, 64)
	if err != nil {
		msg := strings.ReplaceAll(settings.NoWagerMessage, "{user}", user)
		e.chat.Send(event.Chat, msg)
		return
	}

	// Claim the session slot before anything suspends. A busy slot never
	// touches cooldowns or the ledger.
	e.mu.Lock()
	if cur := e.session; cur != nil {
		e.mu.Unlock()
		if cur.userID == event.UserID {
			e.chat.Send(event.Chat, fmt.Sprintf("%s, you already have a trivia question in progress!", user))
			return
		}
		e.chat.Send(event.Chat, fmt.Sprintf("%s, someone else is currently answering a question. Please wait for them to finish.", user))
		return
	}
	claim := newReservation(event.UserID, event.Username, event.Chat)
	e.session = claim
	e.mu.Unlock()

	if remaining, on := e.cooldowns.Remaining(event.UserID, e.now()); on {
		e.release(claim)
		e.chat.Send(event.Chat, fmt.Sprintf("%s, trivia is currently on cooldown for you. Time remaining: %s", user, humanizeDuration(remaining)))
		return
	}

	if wager < 1 {
		e.release(claim)
		e.chat.Send(event.Chat, fmt.Sprintf("%s, your wager amount must be more than 0.", user))
		return
	}
	if settings.MinWager > 0 && wager < settings.MinWager {
		e.release(claim)
		e.chat.Send(event.Chat, fmt.Sprintf("%s, your wager amount must be at least %d.", user, settings.MinWager))
		return
	}
	if settings.MaxWager > 0 && wager > settings.MaxWager {
		e.release(claim)
		e.chat.Send(event.Chat, fmt.Sprintf("%s, your wager amount can be no more than %d.", user, settings.MaxWager))
		return
	}

	// A ledger read failure counts as a zero balance.
	balance, err := e.ledger.GetBalance(ctx, event.UserID, settings.CurrencyID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", event.UserID).Msg("Failed to read balance")
		balance = 0
	}
	if balance < wager {
		e.release(claim)
		e.chat.Send(event.Chat, fmt.Sprintf("%s, you don't have enough to wager this amount!", user))
		return
	}

	question, err := e.questions.GetQuestion(ctx, settings.Categories, settings.Difficulties, settings.Types)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch trivia question")
		question = nil
	}
	if question == nil {
		e.release(claim)
		e.chat.Send(event.Chat, fmt.Sprintf("Sorry %s, there was an issue finding you a trivia question. Your wager has not been deducted.", user))
		return
	}

	// Cooldown is applied before the debit and stays in place even if
	// the debit fails.
	e.cooldowns.Start(event.UserID, settings.CooldownSeconds, e.now())

	debitDesc := fmt.Sprintf("Trivia wager %d", wager)
	if err := e.ledger.Adjust(ctx, event.UserID, settings.CurrencyID, -wager, model.TxTypeTriviaWager, debitDesc); err != nil {
		log.Error().Err(err).Int64("user_id", event.UserID).Int64("wager", wager).Msg("Failed to debit wager")
		e.release(claim)
		e.chat.Send(event.Chat, fmt.Sprintf("Sorry %s, there was an error deducting currency from your balance so trivia has been canceled.", user))
		return
	}

	roles := e.mapPlatform(event.SenderRoles)
	if e.teamRoles != nil {
		roles = append(roles, e.teamRoles.RolesForUser(event.UserID)...)
	}
	if e.customRoles != nil {
		roles = append(roles, e.customRoles.RolesForUser(event.UserID)...)
	}
	multiplier := ResolveMultiplier(settings.Multipliers[question.Difficulty], roles)

	answerTime := settings.AnswerTimeSeconds

	e.mu.Lock()
	claim.question = question
	claim.wager = wager
	claim.multiplier = multiplier
	claim.currencyID = settings.CurrencyID
	claim.reserved = false
	claim.warnTimer = e.afterFunc(time.Duration(answerTime-warningLeadSeconds)*time.Second, func() {
		e.warn(claim)
	})
	claim.answerTimer = e.afterFunc(time.Duration(answerTime)*time.Second, func() {
		e.timeout(claim)
	})
	e.mu.Unlock()

	log.Info().
		Str("session_id", claim.id.String()).
		Int64("user_id", event.UserID).
		Int64("wager", wager).
		Str("difficulty", question.Difficulty).
		Str("multiplier", multiplier.String()).
		Msg("Trivia question started")

	e.chat.Send(event.Chat, formatQuestion(user, question, answerTime))
}

// HandleChatMessage evaluates an inbound chat message against the open
// question. Messages that are not a definitive answer attempt from the
// session's owner are ignored and the question stays open.
func (e *Engine) HandleChatMessage(ctx context.Context, msg *ChatMessage) {
	e.mu.Lock()

	ses := e.session
	if ses == nil || ses.reserved {
		e.mu.Unlock()
		return
	}
	if ses.userID != msg.UserID {
		e.mu.Unlock()
		return
	}

	fields := strings.Fields(msg.Text)
	if len(fields) < 1 {
		e.mu.Unlock()
		return
	}
	answer, err := strconv.Atoi(fields[0])
	if err != nil {
		e.mu.Unlock()
		return
	}
	if answer < 1 || answer > len(ses.question.Answers) {
		e.mu.Unlock()
		return
	}

	// Definitive attempt: right or wrong, the session ends here.
	e.clearLocked()
	e.mu.Unlock()

	if answer == ses.question.CorrectIndex {
		winnings := Payout(ses.wager, ses.multiplier)

		creditDesc := fmt.Sprintf("Trivia winnings %d", winnings)
		if err := e.ledger.Adjust(ctx, ses.userID, ses.currencyID, winnings, model.TxTypeTriviaWin, creditDesc); err != nil {
			log.Error().Err(err).
				Str("session_id", ses.id.String()).
				Int64("user_id", ses.userID).
				Int64("winnings", winnings).
				Msg("Failed to credit winnings")
		}

		currencyName, err := e.ledger.CurrencyName(ctx, ses.currencyID)
		if err != nil || currencyName == "" {
			currencyName = ses.currencyID
		}

		log.Info().
			Str("session_id", ses.id.String()).
			Int64("user_id", ses.userID).
			Int64("winnings", winnings).
			Msg("Trivia answered correctly")

		e.chat.Send(ses.dest, fmt.Sprintf("%s, that is correct! You have won %s %s", ses.username, commafy(winnings), currencyName))
		return
	}

	log.Info().
		Str("session_id", ses.id.String()).
		Int64("user_id", ses.userID).
		Msg("Trivia answered incorrectly")

	e.chat.Send(ses.dest, fmt.Sprintf("Sorry %s, that is incorrect. Better luck next time!", ses.username))
}

// Purge flushes all cooldowns and force-clears any open session without
// settlement. Used for full engine resets.
func (e *Engine) Purge() {
	e.cooldowns.Flush()

	e.mu.Lock()
	e.clearLocked()
	e.mu.Unlock()

	log.Info().Msg("Trivia engine purged")
}

// ActiveUserID returns the owner of the open session, or false when idle.
func (e *Engine) ActiveUserID() (int64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return 0, false
	}
	return e.session.userID, true
}

// release drops a reservation if it still occupies the slot.
func (e *Engine) release(claim *activeSession) {
	e.mu.Lock()
	if e.session == claim {
		e.clearLocked()
	}
	e.mu.Unlock()
}

// clearLocked empties the session slot and cancels its timers. Callers
// must hold e.mu. Calling it on an idle engine is a no-op.
func (e *Engine) clearLocked() {
	if e.session == nil {
		return
	}
	e.session.stopTimers()
	e.session = nil
}

// warn announces the closing warning if the session is still the open one.
func (e *Engine) warn(ses *activeSession) {
	e.mu.Lock()
	stale := e.session != ses
	e.mu.Unlock()
	if stale {
		return
	}
	e.chat.Send(ses.dest, fmt.Sprintf("@%s, 5 seconds remaining to answer...", ses.username))
}

// timeout closes the session with a no-answer notice and no settlement.
func (e *Engine) timeout(ses *activeSession) {
	e.mu.Lock()
	if e.session != ses {
		e.mu.Unlock()
		return
	}
	e.clearLocked()
	e.mu.Unlock()

	log.Info().
		Str("session_id", ses.id.String()).
		Int64("user_id", ses.userID).
		Msg("Trivia question timed out")

	e.chat.Send(ses.dest, fmt.Sprintf("@%s did not provide an answer in time!", ses.username))
}

// formatQuestion renders the announcement with enumerated answer options.
func formatQuestion(username string, q *model.Question, answerTime int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "@%s trivia (%s): %s", username, q.Difficulty, q.Text)
	for i, answer := range q.Answers {
		fmt.Fprintf(&b, " %d) %s", i+1, answer)
	}
	fmt.Fprintf(&b, " [Chat the correct answer # within %d secs]", answerTime)
	return b.String()
}

// humanizeDuration renders a duration as whole minutes and seconds.
func humanizeDuration(d time.Duration) string {
	total := int(d.Round(time.Second).Seconds())
	if total < 1 {
		total = 1
	}
	minutes := total / 60
	seconds := total % 60
	switch {
	case minutes == 0:
		return fmt.Sprintf("%ds", seconds)
	case seconds == 0:
		return fmt.Sprintf("%dm", minutes)
	default:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
}

// commafy formats an integer with thousands separators.
func commafy(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}
