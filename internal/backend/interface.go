// Package backend assembles the persistence, credential and event
// components selected by configuration.
package backend

import (
	"context"

	"cashbook/internal/credentials"
	"cashbook/internal/ledger"
	"cashbook/internal/report"
)

// Store is the persistence shared by the ledger and report layers.
type Store interface {
	ledger.Store
	report.LinkStore
	Ping(ctx context.Context) error
	Close() error
}

// CleanupFunc releases the resources behind a Result.
type CleanupFunc func() error

// Result contains the assembled components and their cleanup function.
type Result struct {
	Store       Store
	Credentials credentials.Store
	// Publisher is nil when ledger events are disabled.
	Publisher ledger.Publisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}
