// Package main is the entry point for the Telegram trivia bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"telegram-trivia-bot/internal/bot"
	"telegram-trivia-bot/internal/config"
	"telegram-trivia-bot/internal/pkg/db"
	"telegram-trivia-bot/internal/question"
	"telegram-trivia-bot/internal/repository"
	"telegram-trivia-bot/internal/roles"
	"telegram-trivia-bot/internal/service"
	"telegram-trivia-bot/internal/trivia"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Redis holds the question provider's session token between restarts.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	log.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")

	// Repositories and services
	currencyRepo := repository.NewCurrencyRepository(dbPool.Pool)
	txRepo := repository.NewTransactionRepository(dbPool.Pool)
	currencyService := service.NewCurrencyService(currencyRepo, txRepo)

	currencyID := cfg.Trivia.Currency.ID
	if _, err := currencyService.EnsureCurrency(ctx, currencyID, currencyID); err != nil {
		log.Fatal().Err(err).Str("currency_id", currencyID).Msg("Failed to ensure currency")
	}

	// Question source
	questionSource := question.NewSource(question.NewRedisTokenStore(redisClient))

	// Trivia engine
	dispatcher := bot.NewDispatcher()
	engine := trivia.NewEngine(trivia.Config{
		Settings:         trivia.NewStaticSettings(&cfg.Trivia),
		Chat:             dispatcher,
		Ledger:           currencyService,
		Questions:        questionSource,
		TeamRoles:        trivia.NewConfigRoleProvider(cfg.Trivia.Roles.Team),
		CustomRoles:      trivia.NewConfigRoleProvider(cfg.Trivia.Roles.Custom),
		MapPlatformRoles: roles.MapPlatform,
	})

	// Bot
	telegramBot, err := bot.New(&bot.Dependencies{
		Config:          cfg,
		Engine:          engine,
		CurrencyService: currencyService,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}
	dispatcher.Bind(telegramBot.GetBot())

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	telegramBot.Stop()
	engine.Purge()
	log.Info().Msg("Bot stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create currencies table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS currencies (
			id VARCHAR(50) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: currencies table created")

	// Migration 2: Create balances table. The check constraint is what
	// turns an overdraw into an error instead of a negative balance.
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS balances (
			user_id BIGINT NOT NULL,
			currency_id VARCHAR(50) NOT NULL REFERENCES currencies(id),
			amount BIGINT NOT NULL DEFAULT 0 CHECK (amount >= 0),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, currency_id)
		);
		CREATE INDEX IF NOT EXISTS idx_balances_currency_amount
			ON balances(currency_id, amount DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: balances table created")

	// Migration 3: Create transactions table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			currency_id VARCHAR(50) NOT NULL,
			amount BIGINT NOT NULL,
			type VARCHAR(50) NOT NULL,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_user_time
			ON transactions(user_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_transactions_type_time
			ON transactions(type, created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: transactions table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
