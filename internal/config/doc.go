// Package config loads service configuration from flags, environment
// variables (ANKIPLACE_ prefix, plus the conventional DB_PATH and
// ANKIPLACE_SECRET names) and optional .env files.
package config
