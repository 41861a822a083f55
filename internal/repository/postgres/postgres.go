package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgxpool.Pool the repositories need. pgxmock
// satisfies it in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Stores bundles the postgres-backed store adapters.
type Stores struct {
	Profiles    *ProfileRepository
	Preferences *PreferenceRepository
	Requests    *DeletionRequestRepository
	Identities  *IdentityRepository
}

// NewStores wires every postgres repository over a shared pool.
func NewStores(pool *pgxpool.Pool) *Stores {
	return &Stores{
		Profiles:    NewProfileRepository(pool),
		Preferences: NewPreferenceRepository(pool),
		Requests:    NewDeletionRequestRepository(pool),
		Identities:  NewIdentityRepository(pool),
	}
}
