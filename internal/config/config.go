// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot       BotConfig       `mapstructure:"bot"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Whitelist WhitelistConfig `mapstructure:"whitelist"`
	Trivia    TriviaConfig    `mapstructure:"trivia"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token string `mapstructure:"token"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisConfig holds Redis connection configuration for the question source.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// WhitelistConfig holds chat whitelist configuration.
type WhitelistConfig struct {
	Chats []int64 `mapstructure:"chats"`
}

// TriviaConfig holds the trivia game configuration.
type TriviaConfig struct {
	Currency    CurrencyConfig   `mapstructure:"currency"`
	Cooldown    CooldownConfig   `mapstructure:"cooldown"`
	Question    QuestionConfig   `mapstructure:"question"`
	Multipliers MultiplierConfig `mapstructure:"multipliers"`
	Chat        ChatConfig       `mapstructure:"chat"`
	Roles       RolesConfig      `mapstructure:"roles"`
}

// CurrencyConfig holds wager currency configuration.
// MinWager and MaxWager of 0 mean no bound is enforced.
type CurrencyConfig struct {
	ID       string `mapstructure:"id"`
	MinWager int64  `mapstructure:"min_wager"`
	MaxWager int64  `mapstructure:"max_wager"`
}

// CooldownConfig holds per-user cooldown configuration.
type CooldownConfig struct {
	Seconds int `mapstructure:"seconds"`
}

// QuestionConfig holds question sourcing configuration.
type QuestionConfig struct {
	Categories        []int    `mapstructure:"categories"`
	Difficulties      []string `mapstructure:"difficulties"`
	Types             []string `mapstructure:"types"`
	AnswerTimeSeconds int      `mapstructure:"answer_time_seconds"`
}

// MultiplierConfig holds per-difficulty winnings multiplier tables.
// A nil table means the fixed default multiplier applies.
type MultiplierConfig struct {
	Easy   *MultiplierTable `mapstructure:"easy"`
	Medium *MultiplierTable `mapstructure:"medium"`
	Hard   *MultiplierTable `mapstructure:"hard"`
}

// MultiplierTable holds a base multiplier and ordered role overrides.
// Override precedence is authored order, not role specificity.
type MultiplierTable struct {
	Base  float64          `mapstructure:"base"`
	Roles []RoleMultiplier `mapstructure:"roles"`
}

// RoleMultiplier overrides the winnings multiplier for a role.
type RoleMultiplier struct {
	RoleID string  `mapstructure:"role_id"`
	Value  float64 `mapstructure:"value"`
}

// ChatConfig holds chat phrasing templates.
type ChatConfig struct {
	NoWagerMessage string `mapstructure:"no_wager_message"`
}

// RolesConfig holds the team and custom role memberships.
// Keys are role IDs, values are member lists.
type RolesConfig struct {
	Team   map[string][]int64 `mapstructure:"team"`
	Custom map[string][]int64 `mapstructure:"custom"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Enable environment variable override
	// e.g., BOT_TOKEN, DATABASE_HOST, TRIVIA_CURRENCY_MIN_WAGER
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file not found is OK - env vars can provide all config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "triviabot")
	v.SetDefault("database.name", "triviabot")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// Trivia defaults
	v.SetDefault("trivia.currency.id", "points")
	v.SetDefault("trivia.currency.min_wager", 1)
	v.SetDefault("trivia.currency.max_wager", 0)
	v.SetDefault("trivia.cooldown.seconds", 30)
	v.SetDefault("trivia.question.difficulties", []string{"easy", "medium", "hard"})
	v.SetDefault("trivia.question.types", []string{"multiple"})
	v.SetDefault("trivia.question.answer_time_seconds", 30)
	v.SetDefault("trivia.chat.no_wager_message",
		"Incorrect trivia usage: {user}, please include a wager amount!")
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsChatAllowed checks if a chat ID is in the whitelist.
func (c *Config) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(c.Whitelist.Chats) == 0 {
		return true
	}
	for _, id := range c.Whitelist.Chats {
		if id == chatID {
			return true
		}
	}
	return false
}
