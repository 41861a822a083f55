package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/planora/account-service/internal/core/port"
	"github.com/planora/account-service/internal/repository"
)

const preferencesTable = "account.travel_preferences"

// PreferenceRepository implements port.PreferenceStore using PostgreSQL.
// The account service does not own the preference schema; it only checks
// row existence and removes rows during a purge.
type PreferenceRepository struct {
	exec    Querier
	builder squirrel.StatementBuilderType
}

// NewPreferenceRepository wires a PostgreSQL-backed preference repository.
func NewPreferenceRepository(exec Querier) *PreferenceRepository {
	return &PreferenceRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Exists reports whether the user has a stored preference row.
func (r *PreferenceRepository) Exists(ctx context.Context, userID string) (bool, error) {
	stmt, args, err := r.builder.
		Select("1").
		From(preferencesTable).
		Where(squirrel.Eq{"user_id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build select preferences sql: %w", err)
	}

	var one int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("select preferences: %w", err)
	}

	return true, nil
}

// Delete removes the preference row. A missing row maps to
// repository.ErrNotFound so callers can treat it as already gone.
func (r *PreferenceRepository) Delete(ctx context.Context, userID string) error {
	stmt, args, err := r.builder.
		Delete(preferencesTable).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete preferences sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete preferences: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.PreferenceStore = (*PreferenceRepository)(nil)
