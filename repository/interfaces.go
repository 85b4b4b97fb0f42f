// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/amirphl/counter-clean-arch/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

// CounterRepository is the persistence contract every storage adapter satisfies.
// A counter that does not exist is reported as (nil, nil), never as an error.
type CounterRepository interface {
	ByID(ctx context.Context, id string) (*models.Counter, error)
	// GetDefault returns the well-known default counter, creating a zero-valued
	// one when the store holds none.
	GetDefault(ctx context.Context) (*models.Counter, error)
	// Save upserts the counter by id.
	Save(ctx context.Context, counter models.Counter) error
}
