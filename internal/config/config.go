package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath  = "config.toml"
	DefaultHTTPAddr    = ":8080"
	DefaultJWTExpires  = "24h"
	DefaultPGHost      = "127.0.0.1"
	DefaultPGPort      = 5432
	DefaultPGUser      = "postgres"
	DefaultPGDatabase  = "filedex"
	DefaultPGSSLMode   = "disable"
	DefaultAttribution = "Powered By: [filedex]"
	DefaultReportSpec  = "@daily"
)

type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Auth     AuthConfig     `toml:"auth"`
	Telegram TelegramConfig `toml:"telegram"`
	Postgres PostgresConfig `toml:"postgres"`
	Report   ReportConfig   `toml:"report"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type AuthConfig struct {
	JWTSecret     string `toml:"jwt_secret" validate:"required"`
	JWTExpiresIn  string `toml:"jwt_expires_in"`
	AdminUsername string `toml:"admin_username" validate:"required"`
	// Bcrypt hash of the operator password, e.g. from `htpasswd -nbB`.
	AdminPasswordHash string `toml:"admin_password_hash" validate:"required"`
}

type TelegramConfig struct {
	BotToken string `toml:"bot_token" validate:"required"`
	// Chat/channel IDs permitted to contribute files. Empty means
	// ingestion is disabled entirely.
	AllowedChats []string `toml:"allowed_chats"`
	// Suffix appended to every delivered caption.
	Attribution string `toml:"attribution"`
}

type PostgresConfig struct {
	Host     string `toml:"host" validate:"required"`
	Port     int    `toml:"port" validate:"gt=0"`
	User     string `toml:"user" validate:"required"`
	Password string `toml:"password"`
	Database string `toml:"database" validate:"required"`
	SSLMode  string `toml:"sslmode"`
}

type ReportConfig struct {
	Enabled bool   `toml:"enabled"`
	Spec    string `toml:"spec"`
}

// DSN renders the Postgres connection string for pgx.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Auth: AuthConfig{
			JWTExpiresIn:  DefaultJWTExpires,
			AdminUsername: "admin",
		},
		Telegram: TelegramConfig{
			Attribution: DefaultAttribution,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Report: ReportConfig{
			Enabled: true,
			Spec:    DefaultReportSpec,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	cfg.Telegram.AllowedChats = normalizeChatIDs(cfg.Telegram.AllowedChats)

	return cfg, nil
}

// Validate checks that every field required to run the bot is set.
func (c Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func normalizeChatIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		out = append(out, id)
	}
	return out
}
