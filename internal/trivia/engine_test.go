package trivia

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-trivia-bot/internal/model"
)

type sentMessage struct {
	dest Destination
	text string
}

type fakeChat struct {
	sent []sentMessage
}

func (c *fakeChat) Send(dest Destination, message string) {
	c.sent = append(c.sent, sentMessage{dest: dest, text: message})
}

func (c *fakeChat) last() string {
	if len(c.sent) == 0 {
		return ""
	}
	return c.sent[len(c.sent)-1].text
}

type adjustment struct {
	userID     int64
	currencyID string
	delta      int64
	txType     string
}

type fakeLedger struct {
	balances       map[int64]int64
	adjustments    []adjustment
	name           string
	failGetBalance bool
	failAdjust     bool
	getCalls       int
}

func (l *fakeLedger) GetBalance(_ context.Context, userID int64, _ string) (int64, error) {
	l.getCalls++
	if l.failGetBalance {
		return 0, errors.New("ledger unavailable")
	}
	return l.balances[userID], nil
}

func (l *fakeLedger) Adjust(_ context.Context, userID int64, currencyID string, delta int64, txType string, _ string) error {
	if l.failAdjust {
		return errors.New("ledger unavailable")
	}
	l.balances[userID] += delta
	l.adjustments = append(l.adjustments, adjustment{userID: userID, currencyID: currencyID, delta: delta, txType: txType})
	return nil
}

func (l *fakeLedger) CurrencyName(_ context.Context, currencyID string) (string, error) {
	if l.name == "" {
		return "", errors.New("unknown currency")
	}
	return l.name, nil
}

type fakeQuestions struct {
	question *model.Question
	err      error
	calls    int
}

func (q *fakeQuestions) GetQuestion(_ context.Context, _ []int, _, _ []string) (*model.Question, error) {
	q.calls++
	return q.question, q.err
}

type stubSettings struct {
	s *Settings
}

func (p *stubSettings) Settings() *Settings { return p.s }

// timerCtl captures armed timers so tests can fire them synchronously.
type timerCtl struct {
	delays    []time.Duration
	callbacks []func()
}

func (tc *timerCtl) afterFunc(d time.Duration, f func()) *time.Timer {
	tc.delays = append(tc.delays, d)
	tc.callbacks = append(tc.callbacks, f)
	// Inert real timer so Stop has something to act on.
	return time.NewTimer(time.Hour)
}

func (tc *timerCtl) fire(i int) {
	tc.callbacks[i]()
}

type engineFixture struct {
	engine    *Engine
	chat      *fakeChat
	ledger    *fakeLedger
	questions *fakeQuestions
	timers    *timerCtl
	settings  *Settings
	now       time.Time
}

func easyQuestion() *model.Question {
	return &model.Question{
		Category:     "General Knowledge",
		Difficulty:   model.DifficultyEasy,
		Type:         "multiple",
		Text:         "What color is the sky?",
		Answers:      []string{"Green", "Red", "Blue", "Yellow"},
		CorrectIndex: 3,
	}
}

func newFixture(t *testing.T) *engineFixture {
	t.Helper()

	fx := &engineFixture{
		chat: &fakeChat{},
		ledger: &fakeLedger{
			balances: map[int64]int64{1: 100},
			name:     "Points",
		},
		questions: &fakeQuestions{question: easyQuestion()},
		timers:    &timerCtl{},
		settings: &Settings{
			CurrencyID:        "points",
			CooldownSeconds:   30,
			AnswerTimeSeconds: 30,
			Multipliers: map[string]*MultiplierTable{
				model.DifficultyEasy: {Base: decimal.RequireFromString("1.25")},
			},
			NoWagerMessage: "Incorrect trivia usage: {user}, please include a wager amount!",
		},
		now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	fx.engine = NewEngine(Config{
		Settings:  &stubSettings{s: fx.settings},
		Chat:      fx.chat,
		Ledger:    fx.ledger,
		Questions: fx.questions,
		Now:       func() time.Time { return fx.now },
		AfterFunc: fx.timers.afterFunc,
	})
	return fx
}

func (fx *engineFixture) trigger(userID int64, username, wagerArg string) {
	fx.engine.HandleWagerTrigger(context.Background(), &WagerEvent{
		UserID:   userID,
		Username: username,
		WagerArg: wagerArg,
		Chat:     Destination{ChatID: -100},
	})
}

func (fx *engineFixture) say(userID int64, username, text string) {
	fx.engine.HandleChatMessage(context.Background(), &ChatMessage{
		UserID:   userID,
		Username: username,
		Text:     text,
		Chat:     Destination{ChatID: -100},
	})
}

func TestEngine_NoWagerArgument(t *testing.T) {
	for _, arg := range []string{"", "lots", "10x"} {
		fx := newFixture(t)
		fx.trigger(1, "alice", arg)

		require.Len(t, fx.chat.sent, 1)
		assert.Equal(t, "Incorrect trivia usage: alice, please include a wager amount!", fx.chat.last())
		assert.Zero(t, fx.ledger.getCalls)
		_, active := fx.engine.ActiveUserID()
		assert.False(t, active)
	}
}

func TestEngine_RejectsNonPositiveWagers(t *testing.T) {
	for _, arg := range []string{"0", "-5"} {
		fx := newFixture(t)
		fx.trigger(1, "alice", arg)

		assert.Contains(t, fx.chat.last(), "must be more than 0")
		assert.Zero(t, fx.ledger.getCalls)
		assert.Empty(t, fx.ledger.adjustments)
		_, active := fx.engine.ActiveUserID()
		assert.False(t, active)
	}
}

func TestEngine_EnforcesWagerBounds(t *testing.T) {
	tests := []struct {
		name     string
		min, max int64
		arg      string
		want     string
	}{
		{"below minimum", 10, 0, "5", "must be at least 10"},
		{"above maximum", 0, 50, "75", "can be no more than 50"},
		{"zero bounds are unset", 0, 0, "75", "trivia ("},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			fx.settings.MinWager = tt.min
			fx.settings.MaxWager = tt.max

			fx.trigger(1, "alice", tt.arg)
			assert.Contains(t, fx.chat.last(), tt.want)
		})
	}
}

func TestEngine_RejectedWagerHasNoSideEffects(t *testing.T) {
	fx := newFixture(t)
	fx.settings.MaxWager = 50

	fx.trigger(1, "alice", "75")

	assert.Empty(t, fx.ledger.adjustments)
	_, active := fx.engine.ActiveUserID()
	assert.False(t, active)

	// No cooldown was applied either: a valid wager right after succeeds.
	fx.trigger(1, "alice", "25")
	assert.Contains(t, fx.chat.last(), "trivia (easy)")
}

func TestEngine_BusySessionRejectsAllComers(t *testing.T) {
	fx := newFixture(t)
	fx.ledger.balances[2] = 500

	fx.trigger(1, "alice", "50")
	require.Contains(t, fx.chat.last(), "trivia (easy)")
	debits := len(fx.ledger.adjustments)

	fx.trigger(1, "alice", "50")
	assert.Contains(t, fx.chat.last(), "already have a trivia question in progress")

	fx.trigger(2, "bob", "50")
	assert.Contains(t, fx.chat.last(), "someone else is currently answering")

	// The open session is untouched: same owner, no extra ledger calls.
	owner, active := fx.engine.ActiveUserID()
	require.True(t, active)
	assert.Equal(t, int64(1), owner)
	assert.Len(t, fx.ledger.adjustments, debits)
	assert.Equal(t, 1, fx.questions.calls)
}

func TestEngine_CooldownBlocksRepeatWagers(t *testing.T) {
	fx := newFixture(t)

	fx.trigger(1, "alice", "10")
	fx.say(1, "alice", "3") // settle to free the slot

	fx.trigger(1, "alice", "10")
	assert.Contains(t, fx.chat.last(), "on cooldown for you. Time remaining: 30s")

	// Past expiry the wager goes through again.
	fx.now = fx.now.Add(30 * time.Second)
	fx.trigger(1, "alice", "10")
	assert.Contains(t, fx.chat.last(), "trivia (easy)")
}

func TestEngine_LedgerReadFailureIsZeroBalance(t *testing.T) {
	fx := newFixture(t)
	fx.ledger.failGetBalance = true

	fx.trigger(1, "alice", "10")

	assert.Contains(t, fx.chat.last(), "don't have enough to wager")
	assert.Empty(t, fx.ledger.adjustments)
	_, active := fx.engine.ActiveUserID()
	assert.False(t, active)
}

func TestEngine_InsufficientBalance(t *testing.T) {
	fx := newFixture(t)

	fx.trigger(1, "alice", "101")

	assert.Contains(t, fx.chat.last(), "don't have enough to wager")
	assert.Empty(t, fx.ledger.adjustments)
}

func TestEngine_NoQuestionAppliesNoCooldownAndNoDebit(t *testing.T) {
	for name, q := range map[string]*fakeQuestions{
		"nil question":  {question: nil},
		"source errors": {question: nil, err: errors.New("api down")},
	} {
		t.Run(name, func(t *testing.T) {
			fx := newFixture(t)
			fx.questions = q
			fx.engine.questions = q

			fx.trigger(1, "alice", "50")

			assert.Contains(t, fx.chat.last(), "Your wager has not been deducted")
			assert.Empty(t, fx.ledger.adjustments)

			// No cooldown was applied: restoring the source lets the same
			// user start immediately.
			fx.engine.questions = &fakeQuestions{question: easyQuestion()}
			fx.trigger(1, "alice", "50")
			assert.Contains(t, fx.chat.last(), "trivia (easy)")
		})
	}
}

func TestEngine_DebitFailureCancelsButKeepsCooldown(t *testing.T) {
	fx := newFixture(t)
	fx.ledger.failAdjust = true

	fx.trigger(1, "alice", "50")

	assert.Contains(t, fx.chat.last(), "trivia has been canceled")
	_, active := fx.engine.ActiveUserID()
	assert.False(t, active)

	// The cooldown applied before the debit stays in place.
	fx.ledger.failAdjust = false
	fx.trigger(1, "alice", "50")
	assert.Contains(t, fx.chat.last(), "on cooldown for you")
}

func TestEngine_StartAnnouncesQuestionAndArmsTimers(t *testing.T) {
	fx := newFixture(t)

	fx.trigger(1, "alice", "50")

	require.Len(t, fx.ledger.adjustments, 1)
	assert.Equal(t, adjustment{userID: 1, currencyID: "points", delta: -50, txType: model.TxTypeTriviaWager}, fx.ledger.adjustments[0])
	assert.Equal(t, int64(50), fx.ledger.balances[1])

	msg := fx.chat.last()
	assert.Contains(t, msg, "@alice trivia (easy): What color is the sky?")
	assert.Contains(t, msg, "1) Green")
	assert.Contains(t, msg, "4) Yellow")
	assert.Contains(t, msg, "[Chat the correct answer # within 30 secs]")

	require.Len(t, fx.timers.delays, 2)
	assert.Equal(t, 24*time.Second, fx.timers.delays[0])
	assert.Equal(t, 30*time.Second, fx.timers.delays[1])
}

func TestEngine_CorrectAnswerPaysFlooredWinnings(t *testing.T) {
	fx := newFixture(t)

	fx.trigger(1, "alice", "50")
	fx.say(1, "alice", "3")

	require.Len(t, fx.ledger.adjustments, 2)
	credit := fx.ledger.adjustments[1]
	assert.Equal(t, int64(62), credit.delta) // floor(50 * 1.25)
	assert.Equal(t, model.TxTypeTriviaWin, credit.txType)
	assert.Contains(t, fx.chat.last(), "alice, that is correct! You have won 62 Points")

	_, active := fx.engine.ActiveUserID()
	assert.False(t, active)
}

func TestEngine_IncorrectAnswerClearsWithoutRefund(t *testing.T) {
	fx := newFixture(t)

	fx.trigger(1, "alice", "50")
	fx.say(1, "alice", "1")

	assert.Contains(t, fx.chat.last(), "Sorry alice, that is incorrect")
	// Only the debit happened; the wager is not returned.
	assert.Len(t, fx.ledger.adjustments, 1)
	assert.Equal(t, int64(50), fx.ledger.balances[1])

	_, active := fx.engine.ActiveUserID()
	assert.False(t, active)
}

func TestEngine_IgnoresNonAnswers(t *testing.T) {
	fx := newFixture(t)
	fx.trigger(1, "alice", "50")
	announced := len(fx.chat.sent)

	fx.say(2, "bob", "3")           // not the owner
	fx.say(1, "alice", "")          // empty
	fx.say(1, "alice", "blue")      // not a number
	fx.say(1, "alice", "0")         // below range
	fx.say(1, "alice", "5")         // above range
	fx.say(1, "alice", "maybe 3 ?") // first token not a number

	assert.Len(t, fx.chat.sent, announced, "ignored input must not produce chat output")
	assert.Len(t, fx.ledger.adjustments, 1)
	owner, active := fx.engine.ActiveUserID()
	require.True(t, active)
	assert.Equal(t, int64(1), owner)
}

func TestEngine_AnswerWithLeadingTokenNumberSettles(t *testing.T) {
	fx := newFixture(t)
	fx.trigger(1, "alice", "50")

	fx.say(1, "alice", "3 final answer")

	assert.Contains(t, fx.chat.last(), "that is correct")
}

func TestEngine_TimeoutClearsWithoutSettlement(t *testing.T) {
	fx := newFixture(t)
	fx.trigger(1, "alice", "50")

	fx.timers.fire(1) // answer timeout

	assert.Contains(t, fx.chat.last(), "@alice did not provide an answer in time!")
	assert.Len(t, fx.ledger.adjustments, 1, "no credit on timeout")
	_, active := fx.engine.ActiveUserID()
	assert.False(t, active)

	// Firing again is a stale no-op.
	sent := len(fx.chat.sent)
	fx.timers.fire(1)
	fx.timers.fire(0)
	assert.Len(t, fx.chat.sent, sent)
}

func TestEngine_WarningFiresOnlyWhileSessionOpen(t *testing.T) {
	fx := newFixture(t)
	fx.trigger(1, "alice", "50")

	fx.timers.fire(0)
	assert.Contains(t, fx.chat.last(), "@alice, 5 seconds remaining to answer...")

	fx.say(1, "alice", "3")
	sent := len(fx.chat.sent)
	fx.timers.fire(0)
	assert.Len(t, fx.chat.sent, sent, "warning after settlement must be silent")
}

func TestEngine_StaleTimersFromPreviousSessionAreIgnored(t *testing.T) {
	fx := newFixture(t)
	fx.ledger.balances[2] = 100

	fx.trigger(1, "alice", "50")
	fx.say(1, "alice", "3")

	fx.now = fx.now.Add(time.Minute)
	fx.trigger(2, "bob", "50")
	require.Contains(t, fx.chat.last(), "@bob trivia")
	sent := len(fx.chat.sent)

	// Timers from alice's settled session must not touch bob's.
	fx.timers.fire(0)
	fx.timers.fire(1)
	assert.Len(t, fx.chat.sent, sent)
	owner, active := fx.engine.ActiveUserID()
	require.True(t, active)
	assert.Equal(t, int64(2), owner)
}

func TestEngine_PurgeFlushesCooldownsAndSession(t *testing.T) {
	fx := newFixture(t)
	fx.trigger(1, "alice", "50")

	fx.engine.Purge()

	_, active := fx.engine.ActiveUserID()
	assert.False(t, active)
	// No settlement happened: the debit stands, nothing credited.
	assert.Len(t, fx.ledger.adjustments, 1)

	// Cooldowns are gone too: the same user can start right away.
	fx.trigger(1, "alice", "25")
	assert.Contains(t, fx.chat.last(), "trivia (easy)")

	// A second purge is a no-op.
	fx.engine.Purge()
	fx.engine.Purge()
}

func TestEngine_CurrencyNameFallsBackToID(t *testing.T) {
	fx := newFixture(t)
	fx.ledger.name = ""

	fx.trigger(1, "alice", "50")
	fx.say(1, "alice", "3")

	assert.Contains(t, fx.chat.last(), "You have won 62 points")
}

func TestEngine_WinningsAreCommafied(t *testing.T) {
	fx := newFixture(t)
	fx.ledger.balances[1] = 10_000_000
	fx.settings.MaxWager = 0

	fx.trigger(1, "alice", "1000000")
	fx.say(1, "alice", "3")

	assert.Contains(t, fx.chat.last(), "You have won 1,250,000 Points")
}

func TestEngine_EndToEndScenario(t *testing.T) {
	fx := newFixture(t)
	// User A wagers 50 with balance 100, bounds unset, 30s cooldown,
	// easy base multiplier 1.25, no role overrides.

	fx.trigger(1, "alice", "50")
	require.Equal(t, int64(50), fx.ledger.balances[1])
	require.Contains(t, fx.chat.last(), "What color is the sky?")

	fx.say(1, "alice", "3")
	assert.Equal(t, int64(112), fx.ledger.balances[1]) // 50 + floor(50×1.25)

	_, active := fx.engine.ActiveUserID()
	assert.False(t, active)

	remaining, on := fx.engine.cooldowns.Remaining(1, fx.now)
	require.True(t, on)
	assert.Equal(t, 30*time.Second, remaining)
}

func TestCommafy(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-1234567, "-1,234,567"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, commafy(tt.in))
	}
}

func TestHumanizeDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{5 * time.Second, "5s"},
		{60 * time.Second, "1m"},
		{65 * time.Second, "1m 5s"},
		{500 * time.Millisecond, "1s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, humanizeDuration(tt.in))
	}
}
