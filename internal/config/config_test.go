package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setValid seeds viper with a complete valid configuration. Individual
// tests override single keys from there.
func setValid(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("db", "/tmp/place.db")
	viper.Set("endpoint", "127.0.0.1:8972")
	viper.Set("secret", "s3cret")
	viper.Set("log-level", "info")
	viper.Set("write-attempts", 5)
	viper.Set("retry-base", 10*time.Millisecond)
	viper.Set("retry-max", 500*time.Millisecond)
	viper.Set("shutdown-grace", 5*time.Second)
	viper.Set("paint-cooldown", time.Second)
}

func TestFromViper(t *testing.T) {
	setValid(t)

	cfg, err := FromViper()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/place.db", cfg.DBPath)
	assert.Equal(t, "127.0.0.1:8972", cfg.Endpoint)
	assert.Equal(t, "s3cret", cfg.Secret)
	assert.Equal(t, 5, cfg.WriteAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.RetryBase)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryMax)
	assert.Equal(t, time.Second, cfg.PaintCooldown)
}

func TestFromViper_Validation(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value any
	}{
		{"empty db path", "db", ""},
		{"zero write attempts", "write-attempts", 0},
		{"zero retry base", "retry-base", time.Duration(0)},
		{"max below base", "retry-max", time.Millisecond},
		{"bogus log level", "log-level", "loud"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setValid(t)
			viper.Set(tc.key, tc.value)

			_, err := FromViper()
			assert.Error(t, err)
		})
	}
}

func TestUsingDefaultSecret(t *testing.T) {
	cfg := &Config{Secret: DefaultSecret}
	assert.True(t, cfg.UsingDefaultSecret())

	cfg.Secret = "anything-else"
	assert.False(t, cfg.UsingDefaultSecret())
}

func TestString_RedactsSecret(t *testing.T) {
	cfg := &Config{
		DBPath:        "/data/place.db",
		Endpoint:      ":8972",
		Secret:        "hunter2",
		LogLevel:      "info",
		WriteAttempts: 5,
		RetryBase:     10 * time.Millisecond,
		RetryMax:      500 * time.Millisecond,
		ShutdownGrace: 5 * time.Second,
		PaintCooldown: time.Second,
	}

	out := cfg.String()
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "redacted")
	assert.Contains(t, out, "/data/place.db")
}

func TestString_WarnsOnDefaultSecret(t *testing.T) {
	cfg := &Config{Secret: DefaultSecret}

	out := cfg.String()
	assert.True(t, strings.Contains(out, "DEFAULT"), "default secret must be called out")
}
