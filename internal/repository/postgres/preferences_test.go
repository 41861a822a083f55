package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/planora/account-service/internal/repository"
)

func newPreferenceMock(t *testing.T) (pgxmock.PgxPoolIface, *PreferenceRepository) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)

	return mock, NewPreferenceRepository(mock)
}

func TestPreferenceRepository_Exists(t *testing.T) {
	mock, repo := newPreferenceMock(t)

	mock.ExpectQuery(`SELECT 1 FROM account\.travel_preferences WHERE user_id = \$1 LIMIT 1`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.Exists(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Exists returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected a preference row")
	}
}

func TestPreferenceRepository_Exists_Miss(t *testing.T) {
	mock, repo := newPreferenceMock(t)

	mock.ExpectQuery(`SELECT 1 FROM account\.travel_preferences`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	exists, err := repo.Exists(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("a missing row is not an error: %v", err)
	}
	if exists {
		t.Fatal("expected no preference row")
	}
}

func TestPreferenceRepository_Delete(t *testing.T) {
	mock, repo := newPreferenceMock(t)

	mock.ExpectExec(`DELETE FROM account\.travel_preferences WHERE user_id = \$1`).
		WithArgs("user-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	if err := repo.Delete(context.Background(), "user-1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
}

func TestPreferenceRepository_Delete_AlreadyGone(t *testing.T) {
	mock, repo := newPreferenceMock(t)

	mock.ExpectExec(`DELETE FROM account\.travel_preferences WHERE user_id = \$1`).
		WithArgs("ghost").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), "ghost")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
