package domain

import "context"

// ListRepository persists the whole list document
type ListRepository interface {
	// Load returns the current document, or a fresh default one when
	// the backing file is missing or unparsable
	Load(ctx context.Context) (*List, error)

	// Update runs fn against the current document and persists the result.
	// The store stays locked for the whole read-modify-write span; if fn
	// returns an error nothing is written.
	Update(ctx context.Context, fn func(list *List) error) error
}

// UserRepository persists the users document
type UserRepository interface {
	Load(ctx context.Context) (*UserDocument, error)
	Update(ctx context.Context, fn func(doc *UserDocument) error) error
}

// AttemptRepository persists failed-login counters
type AttemptRepository interface {
	Load(ctx context.Context) (AttemptTable, error)
	Update(ctx context.Context, fn func(table AttemptTable) error) error
}

// HealthChecker defines the interface for health checks
type HealthChecker interface {
	// CheckConnection checks that the backing storage is reachable and writable
	CheckConnection(ctx context.Context) error

	// EnsureCollections creates the data directory and missing documents
	EnsureCollections(ctx context.Context) error
}
