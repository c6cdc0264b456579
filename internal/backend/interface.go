// Package backend selects and builds the ledger and rate store a binary runs on.
package backend

import (
	"context"

	"valuta/internal/ledger"
)

// Backend bundles every ledger port a store implementation provides.
type Backend interface {
	ledger.Reader
	ledger.Writer
	ledger.RateReader
	ledger.RateWriter
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// PingFunc reports store health for readiness checks
type PingFunc func(ctx context.Context) error

// Ping implements the HTTP readiness Pinger
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Type    BackendType
	Backend Backend
	Cleanup CleanupFunc
	Ping    PingFunc
}

// Close runs Cleanup when set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory backend specific: directory holding ledger.json
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
