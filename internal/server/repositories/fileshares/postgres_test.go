package fileshares

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/cloudvault/internal/common"
	"github.com/dmitrijs2005/cloudvault/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func shareRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "file_id", "owner_id", "shared_by", "shared_with", "permission", "share_token", "is_active", "is_starred", "created_at",
	})
}

func TestCreate_UserShare(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+file_shares\s*\(file_id,\s*owner_id,\s*shared_by,\s*shared_with,\s*permission,\s*share_token,\s*is_active\)`).
		WithArgs("file-1", "u-1", "u-1", "u-2", models.PermissionView, nil, true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("s-1", now))

	recipient := "u-2"
	got, err := repo.Create(context.Background(), &models.FileShare{
		FileID:       "file-1",
		OwnerID:      "u-1",
		SharedByID:   "u-1",
		SharedWithID: &recipient,
		Permission:   models.PermissionView,
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if got.ID != "s-1" {
		t.Fatalf("unexpected share: %+v", got)
	}
}

// Only active rows resolve by token; a revoked link reads as not found.
func TestGetByToken(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT\s+.*\s+FROM\s+file_shares\s+WHERE\s+share_token\s*=\s*\$1\s+AND\s+is_active\s*=\s*true`).
		WithArgs("tok").
		WillReturnRows(shareRows().AddRow("s-1", "file-1", "u-1", "u-1", nil, "view", "tok", true, false, now))

	got, err := repo.GetByToken(context.Background(), "tok")
	if err != nil {
		t.Fatalf("GetByToken error: %v", err)
	}
	if got.FileID != "file-1" || !got.IsLink() {
		t.Fatalf("unexpected share: %+v", got)
	}

	mock.ExpectQuery(`(?s)SELECT\s+.*\s+FROM\s+file_shares\s+WHERE\s+share_token\s*=\s*\$1\s+AND\s+is_active\s*=\s*true`).
		WithArgs("revoked").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.GetByToken(context.Background(), "revoked")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestGetActiveLink(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)SELECT\s+.*\s+FROM\s+file_shares\s+WHERE\s+file_id\s*=\s*\$1\s+AND\s+share_token\s+IS\s+NOT\s+NULL\s+AND\s+shared_with\s+IS\s+NULL\s+AND\s+is_active\s*=\s*true`).
		WithArgs("file-1").
		WillReturnRows(shareRows().AddRow("s-1", "file-1", "u-1", "u-1", nil, "view", "tok", true, false, now))

	got, err := repo.GetActiveLink(context.Background(), "file-1")
	if err != nil {
		t.Fatalf("GetActiveLink error: %v", err)
	}
	if *got.ShareToken != "tok" {
		t.Fatalf("unexpected share: %+v", got)
	}
}

func TestActivate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+file_shares\s+SET\s+permission\s*=\s*\$2,\s*is_active\s*=\s*true\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("s-1", models.PermissionEdit).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Activate(context.Background(), "s-1", models.PermissionEdit); err != nil {
		t.Fatalf("Activate error: %v", err)
	}
}

func TestSetStarred_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+file_shares\s+SET\s+is_starred\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("ghost", true).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetStarred(context.Background(), "ghost", true)
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestDeactivateAllForFile(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+file_shares\s+SET\s+is_active\s*=\s*false\s+WHERE\s+file_id\s*=\s*\$1`).
		WithArgs("file-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := repo.DeactivateAllForFile(context.Background(), "file-1"); err != nil {
		t.Fatalf("DeactivateAllForFile error: %v", err)
	}
}

func TestDeleteByFile_Idempotent(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+file_shares\s+WHERE\s+file_id\s*=\s*\$1`).
		WithArgs("file-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.DeleteByFile(context.Background(), "file-1"); err != nil {
		t.Fatalf("DeleteByFile error: %v", err)
	}
}
