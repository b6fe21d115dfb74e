package foldershares

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cloudvault/internal/common"
	"github.com/dmitrijs2005/cloudvault/internal/dbx"
	"github.com/dmitrijs2005/cloudvault/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const shareColumns = `id, folder_id, owner_id, shared_by, shared_with, permission, share_token, is_active, created_at`

func scanShare(row interface{ Scan(dest ...any) error }) (*models.FolderShare, error) {
	s := &models.FolderShare{}
	err := row.Scan(&s.ID, &s.FolderID, &s.OwnerID, &s.SharedByID, &s.SharedWithID,
		&s.Permission, &s.ShareToken, &s.IsActive, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepository) Create(ctx context.Context, share *models.FolderShare) (*models.FolderShare, error) {

	query :=
		`INSERT INTO folder_shares (folder_id, owner_id, shared_by, shared_with, permission, share_token, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		share.FolderID, share.OwnerID, share.SharedByID, share.SharedWithID,
		share.Permission, share.ShareToken, share.IsActive).
		Scan(&share.ID, &share.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return share, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.FolderShare, error) {
	s, err := scanShare(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.FolderShare, error) {
	query := `SELECT ` + shareColumns + ` FROM folder_shares WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByFolderAndUser(ctx context.Context, folderID, userID string) (*models.FolderShare, error) {
	query := `SELECT ` + shareColumns + ` FROM folder_shares
		WHERE folder_id = $1 AND shared_with = $2`
	return r.getOne(ctx, query, folderID, userID)
}

func (r *PostgresRepository) GetActiveLink(ctx context.Context, folderID string) (*models.FolderShare, error) {
	query := `SELECT ` + shareColumns + ` FROM folder_shares
		WHERE folder_id = $1 AND share_token IS NOT NULL AND shared_with IS NULL AND is_active = true`
	return r.getOne(ctx, query, folderID)
}

func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*models.FolderShare, error) {
	query := `SELECT ` + shareColumns + ` FROM folder_shares
		WHERE share_token = $1 AND is_active = true`
	return r.getOne(ctx, query, token)
}

func (r *PostgresRepository) listQuery(ctx context.Context, query string, args ...any) ([]*models.FolderShare, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select folder shares: %w", err)
	}
	defer rows.Close()

	var result []*models.FolderShare
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PostgresRepository) ListActiveByFolder(ctx context.Context, folderID string) ([]*models.FolderShare, error) {
	query := `SELECT ` + shareColumns + ` FROM folder_shares
		WHERE folder_id = $1 AND is_active = true
		ORDER BY created_at`
	return r.listQuery(ctx, query, folderID)
}

func (r *PostgresRepository) ListActiveForUser(ctx context.Context, userID string) ([]*models.FolderShare, error) {
	query := `SELECT ` + shareColumns + ` FROM folder_shares
		WHERE shared_with = $1 AND is_active = true
		ORDER BY created_at`
	return r.listQuery(ctx, query, userID)
}

func (r *PostgresRepository) ListActiveByOwner(ctx context.Context, ownerID string) ([]*models.FolderShare, error) {
	query := `SELECT ` + shareColumns + ` FROM folder_shares
		WHERE owner_id = $1 AND is_active = true
		ORDER BY created_at`
	return r.listQuery(ctx, query, ownerID)
}

func (r *PostgresRepository) Activate(ctx context.Context, id string, permission models.Permission) error {
	query := `UPDATE folder_shares SET permission = $2, is_active = true WHERE id = $1`
	return r.execExpectOne(ctx, query, id, permission)
}

func (r *PostgresRepository) SetPermission(ctx context.Context, id string, permission models.Permission) error {
	query := `UPDATE folder_shares SET permission = $2 WHERE id = $1`
	return r.execExpectOne(ctx, query, id, permission)
}

func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE folder_shares SET is_active = $2 WHERE id = $1`
	return r.execExpectOne(ctx, query, id, active)
}

func (r *PostgresRepository) DeactivateAllForFolder(ctx context.Context, folderID string) error {
	query := `UPDATE folder_shares SET is_active = false WHERE folder_id = $1 AND is_active = true`
	_, err := r.db.ExecContext(ctx, query, folderID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteByFolder(ctx context.Context, folderID string) error {
	query := `DELETE FROM folder_shares WHERE folder_id = $1`
	_, err := r.db.ExecContext(ctx, query, folderID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) execExpectOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}
