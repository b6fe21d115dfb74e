package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

const fileColumns = `id, name, size, mime_type, owner_id, folder_id, storage_key, is_starred, is_deleted, deleted_at, deleted_by, created_at, updated_at`

func scanFile(row interface{ Scan(dest ...any) error }) (*models.File, error) {
	f := &models.File{}
	err := row.Scan(&f.ID, &f.Name, &f.Size, &f.MimeType, &f.OwnerID, &f.FolderID, &f.StorageKey,
		&f.IsStarred, &f.IsDeleted, &f.DeletedAt, &f.DeletedBy, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *PostgresRepository) Create(ctx context.Context, file *models.File) (*models.File, error) {

	query :=
		`INSERT INTO files (name, size, mime_type, owner_id, folder_id, storage_key)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		file.Name, file.Size, file.MimeType, file.OwnerID, file.FolderID, file.StorageKey).
		Scan(&file.ID, &file.CreatedAt, &file.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return file, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`

	f, err := scanFile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return f, nil
}

func (r *PostgresRepository) listQuery(ctx context.Context, query string, args ...any) ([]*models.File, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PostgresRepository) ListRoot(ctx context.Context, ownerID string) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE owner_id = $1 AND folder_id IS NULL AND is_deleted = false
		ORDER BY name`
	return r.listQuery(ctx, query, ownerID)
}

func (r *PostgresRepository) ListByFolder(ctx context.Context, folderID string, deleted bool) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE folder_id = $1 AND is_deleted = $2
		ORDER BY name`
	return r.listQuery(ctx, query, folderID, deleted)
}

func (r *PostgresRepository) ListAllByFolder(ctx context.Context, folderID string) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE folder_id = $1
		ORDER BY name`
	return r.listQuery(ctx, query, folderID)
}

func (r *PostgresRepository) ListByOwnerAndDeleted(ctx context.Context, ownerID string, deleted bool) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE owner_id = $1 AND is_deleted = $2
		ORDER BY name`
	return r.listQuery(ctx, query, ownerID, deleted)
}

func (r *PostgresRepository) ListStarred(ctx context.Context, ownerID string) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE owner_id = $1 AND is_starred = true AND is_deleted = false
		ORDER BY name`
	return r.listQuery(ctx, query, ownerID)
}

func (r *PostgresRepository) SearchByName(ctx context.Context, ownerID string, search string) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE owner_id = $1 AND name ILIKE '%' || $2 || '%' AND is_deleted = false
		ORDER BY name`
	return r.listQuery(ctx, query, ownerID, search)
}

func (r *PostgresRepository) ListRecent(ctx context.Context, ownerID string, limit int) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE owner_id = $1 AND is_deleted = false
		ORDER BY created_at DESC
		LIMIT $2`
	return r.listQuery(ctx, query, ownerID, limit)
}

func (r *PostgresRepository) countQuery(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) CountByOwnerAndDeleted(ctx context.Context, ownerID string, deleted bool) (int, error) {
	query := `SELECT COUNT(*) FROM files WHERE owner_id = $1 AND is_deleted = $2`
	return r.countQuery(ctx, query, ownerID, deleted)
}

func (r *PostgresRepository) CountStarredByOwner(ctx context.Context, ownerID string) (int, error) {
	query := `SELECT COUNT(*) FROM files WHERE owner_id = $1 AND is_starred = true AND is_deleted = false`
	return r.countQuery(ctx, query, ownerID)
}

func (r *PostgresRepository) Rename(ctx context.Context, id string, name string) error {
	query := `UPDATE files SET name = $2, updated_at = now() WHERE id = $1`
	return r.execExpectOne(ctx, query, id, name)
}

func (r *PostgresRepository) SetStarred(ctx context.Context, id string, starred bool) error {
	query := `UPDATE files SET is_starred = $2, updated_at = now() WHERE id = $1`
	return r.execExpectOne(ctx, query, id, starred)
}

func (r *PostgresRepository) MarkDeleted(ctx context.Context, id string, deletedBy string, deletedAt time.Time) error {
	query := `UPDATE files SET is_deleted = true, deleted_at = $2, deleted_by = $3, updated_at = now() WHERE id = $1`
	return r.execExpectOne(ctx, query, id, deletedAt, deletedBy)
}

func (r *PostgresRepository) ClearDeleted(ctx context.Context, id string) error {
	query := `UPDATE files SET is_deleted = false, deleted_at = NULL, deleted_by = NULL, updated_at = now() WHERE id = $1`
	return r.execExpectOne(ctx, query, id)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM files WHERE id = $1`
	// 0 rows affected is fine: a concurrent cascade may have removed the row.
	_, err := r.db.ExecContext(ctx, query, id)
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
