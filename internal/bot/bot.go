// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-trivia-bot/internal/config"
	"telegram-trivia-bot/internal/handler"
	"telegram-trivia-bot/internal/service"
	"telegram-trivia-bot/internal/trivia"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot    *tele.Bot
	cfg    *config.Config
	engine *trivia.Engine

	triviaHandler  *handler.TriviaHandler
	balanceHandler *handler.BalanceHandler
	adminHandler   *handler.AdminHandler
}

// Dependencies holds everything the bot handlers need.
type Dependencies struct {
	Config          *config.Config
	Engine          *trivia.Engine
	CurrencyService *service.CurrencyService
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  deps.Config.Bot.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	currencyID := deps.Config.Trivia.Currency.ID

	b := &Bot{
		bot:            teleBot,
		cfg:            deps.Config,
		engine:         deps.Engine,
		triviaHandler:  handler.NewTriviaHandler(deps.Engine),
		balanceHandler: handler.NewBalanceHandler(deps.CurrencyService, currencyID),
		adminHandler:   handler.NewAdminHandler(deps.CurrencyService, currencyID),
	}

	b.registerMiddleware()
	b.registerHandlers()

	return b, nil
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command and text handlers.
func (b *Bot) registerHandlers() {
	b.bot.Handle("/trivia", b.triviaHandler.HandleTrivia)
	b.bot.Handle("/balance", b.balanceHandler.HandleBalance)
	b.bot.Handle("/top", b.balanceHandler.HandleTop)

	// Plain text doubles as answer submission for the open question.
	b.bot.Handle(tele.OnText, b.triviaHandler.HandleText)

	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/admin_add", b.adminHandler.HandleAdminAdd)
	adminGroup.Handle("/admin_set", b.adminHandler.HandleAdminSet)
	adminGroup.Handle("/trivia_reset", b.triviaHandler.HandleReset)
}

// Start starts the bot polling.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}

// GetBot returns the underlying telebot instance.
func (b *Bot) GetBot() *tele.Bot {
	return b.bot
}

// Dispatcher sends engine announcements through the bot. Delivery is
// fire-and-forget; send failures are logged and dropped. The engine is
// built before the telebot instance, so the bot is bound late.
type Dispatcher struct {
	mu  sync.RWMutex
	bot *tele.Bot
}

// NewDispatcher creates an unbound Dispatcher. Sends before Bind are
// logged and dropped.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Bind attaches the telebot instance the dispatcher sends through.
func (d *Dispatcher) Bind(bot *tele.Bot) {
	d.mu.Lock()
	d.bot = bot
	d.mu.Unlock()
}

// Send implements trivia.Dispatcher.
func (d *Dispatcher) Send(dest trivia.Destination, message string) {
	d.mu.RLock()
	bot := d.bot
	d.mu.RUnlock()

	if bot == nil {
		log.Warn().
			Int64("chat_id", dest.ChatID).
			Msg("Dropping chat message: dispatcher not bound")
		return
	}
	if _, err := bot.Send(tele.ChatID(dest.ChatID), message); err != nil {
		log.Error().Err(err).
			Int64("chat_id", dest.ChatID).
			Msg("Failed to send chat message")
	}
}
