// Package trivia implements the timed wager-question game engine.
// A user wagers currency, receives a trivia question, and answers it in
// chat within a time limit for a multiplied payout.
package trivia

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"telegram-trivia-bot/internal/config"
	"telegram-trivia-bot/internal/model"
)

// Destination identifies the chat a message should be delivered to.
type Destination struct {
	ChatID int64
}

// WagerEvent is an inbound "start trivia" trigger.
type WagerEvent struct {
	UserID      int64
	Username    string
	WagerArg    string   // raw first argument, unparsed
	SenderRoles []string // platform role claims carried by the event
	Chat        Destination
}

// ChatMessage is any inbound chat message. The engine inspects it as a
// candidate answer to the open question.
type ChatMessage struct {
	UserID   int64
	Username string
	Text     string
	Chat     Destination
}

// Dispatcher delivers chat messages. Delivery is fire-and-forget;
// failures are not surfaced to the engine.
type Dispatcher interface {
	Send(dest Destination, message string)
}

// Ledger reads and adjusts user currency balances.
type Ledger interface {
	GetBalance(ctx context.Context, userID int64, currencyID string) (int64, error)
	Adjust(ctx context.Context, userID int64, currencyID string, delta int64, txType string, description string) error
	CurrencyName(ctx context.Context, currencyID string) (string, error)
}

// QuestionSource supplies a question matching the configured filters.
// A nil question with a nil error means no question was available.
type QuestionSource interface {
	GetQuestion(ctx context.Context, categories []int, difficulties, types []string) (*model.Question, error)
}

// RoleProvider resolves the role IDs a user holds. A provider that knows
// nothing about the user returns an empty set.
type RoleProvider interface {
	RolesForUser(userID int64) []string
}

// SettingsProvider supplies the full configuration bundle. It is consulted
// once per trigger so settings changes apply to the next game.
type SettingsProvider interface {
	Settings() *Settings
}

// Settings is the per-invocation configuration snapshot.
type Settings struct {
	CurrencyID        string
	MinWager          int64
	MaxWager          int64
	CooldownSeconds   int
	Categories        []int
	Difficulties      []string
	Types             []string
	AnswerTimeSeconds int
	Multipliers       map[string]*MultiplierTable
	NoWagerMessage    string
}

// MultiplierTable is the per-difficulty winnings multiplier configuration.
type MultiplierTable struct {
	Base  decimal.Decimal
	Roles []RoleOverride
}

// RoleOverride maps a role ID to a multiplier. Overrides are evaluated in
// authored order and the first matching role wins.
type RoleOverride struct {
	RoleID string
	Value  decimal.Decimal
}

// StaticSettings adapts the loaded config tree to the SettingsProvider
// interface, rebuilding the snapshot on every call.
type StaticSettings struct {
	cfg *config.TriviaConfig
}

// NewStaticSettings creates a SettingsProvider backed by the given config.
func NewStaticSettings(cfg *config.TriviaConfig) *StaticSettings {
	return &StaticSettings{cfg: cfg}
}

// Settings builds a snapshot from the underlying config.
func (s *StaticSettings) Settings() *Settings {
	return &Settings{
		CurrencyID:        s.cfg.Currency.ID,
		MinWager:          s.cfg.Currency.MinWager,
		MaxWager:          s.cfg.Currency.MaxWager,
		CooldownSeconds:   s.cfg.Cooldown.Seconds,
		Categories:        s.cfg.Question.Categories,
		Difficulties:      s.cfg.Question.Difficulties,
		Types:             s.cfg.Question.Types,
		AnswerTimeSeconds: s.cfg.Question.AnswerTimeSeconds,
		Multipliers: map[string]*MultiplierTable{
			model.DifficultyEasy:   convertTable(s.cfg.Multipliers.Easy),
			model.DifficultyMedium: convertTable(s.cfg.Multipliers.Medium),
			model.DifficultyHard:   convertTable(s.cfg.Multipliers.Hard),
		},
		NoWagerMessage: s.cfg.Chat.NoWagerMessage,
	}
}

func convertTable(t *config.MultiplierTable) *MultiplierTable {
	if t == nil {
		return nil
	}
	out := &MultiplierTable{
		Base:  decimal.NewFromFloat(t.Base),
		Roles: make([]RoleOverride, 0, len(t.Roles)),
	}
	for _, r := range t.Roles {
		out.Roles = append(out.Roles, RoleOverride{
			RoleID: r.RoleID,
			Value:  decimal.NewFromFloat(r.Value),
		})
	}
	return out
}

// ConfigRoleProvider resolves roles from static membership lists keyed by
// role ID. Role IDs are returned in sorted order for determinism.
type ConfigRoleProvider struct {
	members map[string][]int64
}

// NewConfigRoleProvider creates a RoleProvider from membership lists.
func NewConfigRoleProvider(members map[string][]int64) *ConfigRoleProvider {
	return &ConfigRoleProvider{members: members}
}

// RolesForUser returns the role IDs whose member lists include the user.
func (p *ConfigRoleProvider) RolesForUser(userID int64) []string {
	var roles []string
	for roleID, userIDs := range p.members {
		for _, id := range userIDs {
			if id == userID {
				roles = append(roles, roleID)
				break
			}
		}
	}
	sort.Strings(roles)
	return roles
}
