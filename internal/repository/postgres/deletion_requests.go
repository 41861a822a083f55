package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/planora/account-service/internal/core/domain"
	"github.com/planora/account-service/internal/core/port"
	"github.com/planora/account-service/internal/repository"
)

const deletionRequestsTable = "account.deletion_requests"

var deletionRequestColumns = []string{
	"id",
	"user_id",
	"email",
	"requested_at",
	"scheduled_purge_at",
	"status",
	"recovery_token_hash",
	"created_at",
	"updated_at",
}

// DeletionRequestRepository implements port.DeletionRequestStore using
// PostgreSQL.
type DeletionRequestRepository struct {
	exec    Querier
	builder squirrel.StatementBuilderType
}

// NewDeletionRequestRepository wires a PostgreSQL-backed deletion request
// repository.
func NewDeletionRequestRepository(exec Querier) *DeletionRequestRepository {
	return &DeletionRequestRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Insert persists a new deletion request.
func (r *DeletionRequestRepository) Insert(ctx context.Context, request domain.DeletionRequest) error {
	now := time.Now().UTC()

	stmt, args, err := r.builder.
		Insert(deletionRequestsTable).
		Columns(deletionRequestColumns...).
		Values(
			request.ID,
			request.UserID,
			request.Email,
			request.RequestedAt,
			request.ScheduledPurgeAt,
			request.Status,
			request.RecoveryTokenHash,
			now,
			now,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert deletion request sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert deletion request: %w", err)
	}

	return nil
}

// UpdateStatus transitions a deletion request to a new lifecycle status.
func (r *DeletionRequestRepository) UpdateStatus(ctx context.Context, requestID string, status domain.DeletionRequestStatus) error {
	stmt, args, err := r.builder.
		Update(deletionRequestsTable).
		Set("status", status).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": requestID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update deletion request sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update deletion request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// FindByTokenHash looks up a deletion request by its recovery token hash.
func (r *DeletionRequestRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*domain.DeletionRequest, error) {
	stmt, args, err := r.builder.
		Select(deletionRequestColumns...).
		From(deletionRequestsTable).
		Where(squirrel.Eq{"recovery_token_hash": tokenHash}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select deletion request sql: %w", err)
	}

	request, err := scanDeletionRequest(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select deletion request by token: %w", err)
	}

	return request, nil
}

// FindPendingByUser returns the user's active deletion request, if any.
func (r *DeletionRequestRepository) FindPendingByUser(ctx context.Context, userID string) (*domain.DeletionRequest, error) {
	stmt, args, err := r.builder.
		Select(deletionRequestColumns...).
		From(deletionRequestsTable).
		Where(squirrel.Eq{
			"user_id": userID,
			"status":  domain.DeletionStatusPending,
		}).
		OrderBy("requested_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select pending deletion request sql: %w", err)
	}

	request, err := scanDeletionRequest(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select pending deletion request: %w", err)
	}

	return request, nil
}

// ListDue returns pending requests whose purge deadline has passed,
// oldest first.
func (r *DeletionRequestRepository) ListDue(ctx context.Context, reference time.Time, limit int) ([]domain.DeletionRequest, error) {
	stmt, args, err := r.builder.
		Select(deletionRequestColumns...).
		From(deletionRequestsTable).
		Where(squirrel.Eq{"status": domain.DeletionStatusPending}).
		Where(squirrel.LtOrEq{"scheduled_purge_at": reference.UTC()}).
		OrderBy("scheduled_purge_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select due deletion requests sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select due deletion requests: %w", err)
	}
	defer rows.Close()

	var requests []domain.DeletionRequest
	for rows.Next() {
		request, err := scanDeletionRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan due deletion request: %w", err)
		}
		requests = append(requests, *request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due deletion requests: %w", err)
	}

	return requests, nil
}

func scanDeletionRequest(row pgx.Row) (*domain.DeletionRequest, error) {
	var request domain.DeletionRequest
	if err := row.Scan(
		&request.ID,
		&request.UserID,
		&request.Email,
		&request.RequestedAt,
		&request.ScheduledPurgeAt,
		&request.Status,
		&request.RecoveryTokenHash,
		&request.CreatedAt,
		&request.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &request, nil
}

var _ port.DeletionRequestStore = (*DeletionRequestRepository)(nil)
