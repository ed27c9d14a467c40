package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultSecret is the development credential. Any real deployment must
// override it; the serve command warns loudly when it is left in place.
const DefaultSecret = "change-me-please"

// Config holds all runtime parameters for the ankiplace service.
//
// Every field can be set via flag or environment variable with the
// ANKIPLACE_ prefix (e.g. ANKIPLACE_ENDPOINT). The database path and the
// session secret additionally honor their conventional names, DB_PATH
// and ANKIPLACE_SECRET.
type Config struct {
	// DBPath is the filesystem location of the durable store's single
	// file. It must be writable by the running process identity.
	DBPath string

	// Endpoint is the address the HTTP gateway listens on.
	Endpoint string

	// Secret authenticates privileged operations. Held in memory for the
	// process lifetime; never persisted, never logged.
	Secret string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// WriteAttempts is the retry ceiling for transient write contention.
	WriteAttempts int

	// RetryBase and RetryMax bound the write retry backoff.
	RetryBase time.Duration
	RetryMax  time.Duration

	// ShutdownGrace bounds queue draining at shutdown.
	ShutdownGrace time.Duration

	// PaintCooldown is the per-user minimum interval between paints.
	PaintCooldown time.Duration
}

// Init wires viper to the environment. Call once before reading flags.
func Init() {
	// Local development convenience; missing files are fine.
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("ankiplace")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Conventional names used by the container recipe.
	_ = viper.BindEnv("db", "ANKIPLACE_DB", "DB_PATH")
	_ = viper.BindEnv("secret", "ANKIPLACE_SECRET")
}

// FromViper materializes a Config from bound flags and environment.
func FromViper() (*Config, error) {
	cfg := &Config{
		DBPath:        viper.GetString("db"),
		Endpoint:      viper.GetString("endpoint"),
		Secret:        viper.GetString("secret"),
		LogLevel:      viper.GetString("log-level"),
		WriteAttempts: viper.GetInt("write-attempts"),
		RetryBase:     viper.GetDuration("retry-base"),
		RetryMax:      viper.GetDuration("retry-max"),
		ShutdownGrace: viper.GetDuration("shutdown-grace"),
		PaintCooldown: viper.GetDuration("paint-cooldown"),
	}

	if cfg.DBPath == "" {
		return nil, fmt.Errorf("database path must not be empty")
	}
	if cfg.WriteAttempts < 1 {
		return nil, fmt.Errorf("write-attempts must be at least 1, got %d", cfg.WriteAttempts)
	}
	if cfg.RetryBase <= 0 || cfg.RetryMax < cfg.RetryBase {
		return nil, fmt.Errorf("invalid retry backoff bounds: base=%s max=%s", cfg.RetryBase, cfg.RetryMax)
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q (expected debug, info, warn or error)", cfg.LogLevel)
	}

	return cfg, nil
}

// UsingDefaultSecret reports whether the session secret was left at the
// development default - a security failure in any real deployment.
func (c *Config) UsingDefaultSecret() bool {
	return c.Secret == DefaultSecret
}

// String returns a formatted, redacted summary of the configuration.
// The secret itself is never included.
func (c *Config) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(strings.ToUpper(title))
		sb.WriteString("\n")
	}
	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-16s: %s\n", name, value))
	}

	addSection("HTTP")
	addField("Endpoint", c.Endpoint)
	addField("Paint Cooldown", c.PaintCooldown.String())

	addSection("Store")
	addField("Database", c.DBPath)
	addField("Write Attempts", fmt.Sprintf("%d", c.WriteAttempts))
	addField("Retry Backoff", fmt.Sprintf("%s .. %s", c.RetryBase, c.RetryMax))
	addField("Shutdown Grace", c.ShutdownGrace.String())

	addSection("Security")
	if c.UsingDefaultSecret() {
		addField("Secret", "DEFAULT (override ANKIPLACE_SECRET!)")
	} else {
		addField("Secret", "set (redacted)")
	}

	addSection("Logging")
	addField("Level", c.LogLevel)

	return sb.String()
}
