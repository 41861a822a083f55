package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/planora/account-service/internal/core/domain"
	"github.com/planora/account-service/internal/core/port"
	"github.com/planora/account-service/internal/repository"
)

const identitiesTable = "auth.users"

// IdentityRepository implements port.IdentityStore against the identity
// provider's user table. Metadata lives in a jsonb column and merges
// server-side so concurrent writers do not clobber unrelated keys.
type IdentityRepository struct {
	exec    Querier
	builder squirrel.StatementBuilderType
}

// NewIdentityRepository wires a PostgreSQL-backed identity repository.
func NewIdentityRepository(exec Querier) *IdentityRepository {
	return &IdentityRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetUser fetches the identity record including its metadata document.
func (r *IdentityRepository) GetUser(ctx context.Context, userID string) (*domain.Identity, error) {
	stmt, args, err := r.builder.
		Select("id", "email", "COALESCE(raw_user_meta_data, '{}'::jsonb)").
		From(identitiesTable).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select identity sql: %w", err)
	}

	var (
		identity domain.Identity
		rawMeta  []byte
	)
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&identity.ID, &identity.Email, &rawMeta); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select identity: %w", err)
	}

	if len(rawMeta) > 0 {
		if err := json.Unmarshal(rawMeta, &identity.Metadata); err != nil {
			return nil, fmt.Errorf("decode identity metadata: %w", err)
		}
	}
	if identity.Metadata == nil {
		identity.Metadata = map[string]any{}
	}

	return &identity, nil
}

// UpdateMetadata merges the supplied keys into the stored metadata
// document. Keys absent from the patch are left untouched.
func (r *IdentityRepository) UpdateMetadata(ctx context.Context, userID string, patch map[string]any) error {
	encoded, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode identity metadata patch: %w", err)
	}

	stmt, args, err := r.builder.
		Update(identitiesTable).
		Set("raw_user_meta_data", squirrel.Expr("COALESCE(raw_user_meta_data, '{}'::jsonb) || ?::jsonb", string(encoded))).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update identity metadata sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update identity metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes the identity record.
func (r *IdentityRepository) Delete(ctx context.Context, userID string) error {
	stmt, args, err := r.builder.
		Delete(identitiesTable).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete identity sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.IdentityStore = (*IdentityRepository)(nil)
