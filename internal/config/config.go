// Package config defines service configuration structures and loading hooks.
package config

import (
	"runtime"
)

// Store backend names accepted by Config.StoreBackend.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Messenger backend names accepted by Config.MessengerBackend.
const (
	MessengerLog  = "log"
	MessengerNATS = "nats"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory confirmation queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of confirmation workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeMaxSize bounds the deduplication cache.
	DedupeMaxSize int `koanf:"dedupe_max_size"`

	// DedupeRetentionHours sets how long processed update ids are kept.
	DedupeRetentionHours int `koanf:"dedupe_retention_hours"`

	// StoreBackend selects persistence: memory or postgres.
	StoreBackend string `koanf:"store_backend"`

	// PostgresDSN is the connection string for the postgres backend.
	PostgresDSN string `koanf:"postgres_dsn"`

	// MessengerBackend selects summary delivery: log or nats.
	MessengerBackend string `koanf:"messenger_backend"`

	// NATSURL is the server URL for the nats backend.
	NATSURL string `koanf:"nats_url"`

	// NATSSubject is the subject summaries are published to.
	NATSSubject string `koanf:"nats_subject"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":8080",
		QueueSize:            100_000,
		WorkerCount:          runtime.NumCPU() * 2,
		DedupeMaxSize:        500_000,
		DedupeRetentionHours: 72,
		StoreBackend:         StoreMemory,
		MessengerBackend:     MessengerLog,
		NATSSubject:          "matchday.summaries",
	}
}
