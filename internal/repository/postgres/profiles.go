package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/planora/account-service/internal/core/domain"
	"github.com/planora/account-service/internal/core/port"
	"github.com/planora/account-service/internal/repository"
)

const profilesTable = "account.profiles"

// profileColumns is the declared column set. Updates write exactly these
// columns; a schema mismatch is a hard error, never a narrower retry.
var profileColumns = []string{
	"user_id",
	"name",
	"email",
	"location",
	"onboarding_complete",
	"account_status",
	"email_verified",
	"pending_email_change",
	"deletion_requested_at",
	"created_at",
	"updated_at",
}

// ProfileRepository implements port.ProfileStore using PostgreSQL.
type ProfileRepository struct {
	exec    Querier
	builder squirrel.StatementBuilderType
}

// NewProfileRepository wires a PostgreSQL-backed profile repository.
func NewProfileRepository(exec Querier) *ProfileRepository {
	return &ProfileRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Get retrieves a profile by user id.
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	stmt, args, err := r.builder.
		Select(profileColumns...).
		From(profilesTable).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select profile sql: %w", err)
	}

	profile, err := scanProfile(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select profile: %w", err)
	}

	return profile, nil
}

// Upsert creates the profile row or applies the supplied patch to an
// existing one. Only fields present in the patch overwrite stored values.
func (r *ProfileRepository) Upsert(ctx context.Context, userID string, patch domain.ProfilePatch) (*domain.Profile, error) {
	now := time.Now().UTC()

	name := ""
	if patch.Name != nil {
		name = *patch.Name
	}
	email := ""
	if patch.Email != nil {
		email = *patch.Email
	}
	location := ""
	if patch.Location != nil {
		location = *patch.Location
	}

	assignments := []string{"updated_at = EXCLUDED.updated_at"}
	if patch.Name != nil {
		assignments = append(assignments, "name = EXCLUDED.name")
	}
	if patch.Email != nil {
		assignments = append(assignments, "email = EXCLUDED.email")
	}
	if patch.Location != nil {
		assignments = append(assignments, "location = EXCLUDED.location")
	}

	suffix := fmt.Sprintf(
		"ON CONFLICT (user_id) DO UPDATE SET %s RETURNING %s",
		strings.Join(assignments, ", "),
		strings.Join(profileColumns, ", "),
	)

	stmt, args, err := r.builder.
		Insert(profilesTable).
		Columns(
			"user_id",
			"name",
			"email",
			"location",
			"onboarding_complete",
			"account_status",
			"email_verified",
			"created_at",
			"updated_at",
		).
		Values(
			userID,
			name,
			email,
			location,
			false,
			domain.AccountStatusActive,
			false,
			now,
			now,
		).
		Suffix(suffix).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build upsert profile sql: %w", err)
	}

	profile, err := scanProfile(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}

	return profile, nil
}

// SetOnboardingComplete writes the onboarding flag.
func (r *ProfileRepository) SetOnboardingComplete(ctx context.Context, userID string, complete bool) error {
	return r.update(ctx, userID, func(b squirrel.UpdateBuilder) squirrel.UpdateBuilder {
		return b.Set("onboarding_complete", complete)
	})
}

// SetAccountStatus flips the lifecycle state and stamps or clears the
// deletion-requested timestamp.
func (r *ProfileRepository) SetAccountStatus(ctx context.Context, userID string, status domain.AccountStatus, deletionRequestedAt *time.Time) error {
	return r.update(ctx, userID, func(b squirrel.UpdateBuilder) squirrel.UpdateBuilder {
		return b.
			Set("account_status", status).
			Set("deletion_requested_at", deletionRequestedAt)
	})
}

// SetPendingEmailChange records the candidate address and drops the verified
// flag. An empty address clears the pending change.
func (r *ProfileRepository) SetPendingEmailChange(ctx context.Context, userID string, newEmail string) error {
	var pending any
	if newEmail != "" {
		pending = newEmail
	}
	return r.update(ctx, userID, func(b squirrel.UpdateBuilder) squirrel.UpdateBuilder {
		return b.
			Set("pending_email_change", pending).
			Set("email_verified", false)
	})
}

// ApplyVerifiedEmail promotes the verified address to the authoritative
// email in a single write.
func (r *ProfileRepository) ApplyVerifiedEmail(ctx context.Context, userID string, email string) error {
	return r.update(ctx, userID, func(b squirrel.UpdateBuilder) squirrel.UpdateBuilder {
		return b.
			Set("email", email).
			Set("pending_email_change", nil).
			Set("email_verified", true)
	})
}

// Delete removes the profile row.
func (r *ProfileRepository) Delete(ctx context.Context, userID string) error {
	stmt, args, err := r.builder.
		Delete(profilesTable).
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete profile sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *ProfileRepository) update(ctx context.Context, userID string, apply func(squirrel.UpdateBuilder) squirrel.UpdateBuilder) error {
	builder := apply(r.builder.Update(profilesTable)).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"user_id": userID})

	stmt, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build update profile sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var profile domain.Profile
	if err := row.Scan(
		&profile.UserID,
		&profile.Name,
		&profile.Email,
		&profile.Location,
		&profile.OnboardingComplete,
		&profile.AccountStatus,
		&profile.EmailVerified,
		&profile.PendingEmailChange,
		&profile.DeletionRequestedAt,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &profile, nil
}

var _ port.ProfileStore = (*ProfileRepository)(nil)
