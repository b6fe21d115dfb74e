package folders

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

const folderColumns = `id, name, owner_id, parent_id, is_deleted, deleted_at, deleted_by, created_at, updated_at`

func scanFolder(row interface{ Scan(dest ...any) error }) (*models.Folder, error) {
	f := &models.Folder{}
	err := row.Scan(&f.ID, &f.Name, &f.OwnerID, &f.ParentID, &f.IsDeleted, &f.DeletedAt, &f.DeletedBy, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (r *PostgresRepository) Create(ctx context.Context, folder *models.Folder) (*models.Folder, error) {

	query :=
		`INSERT INTO folders (name, owner_id, parent_id)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		folder.Name, folder.OwnerID, folder.ParentID).Scan(&folder.ID, &folder.CreatedAt, &folder.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return folder, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders WHERE id = $1`

	f, err := scanFolder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return f, nil
}

func (r *PostgresRepository) listQuery(ctx context.Context, query string, args ...any) ([]*models.Folder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select folders: %w", err)
	}
	defer rows.Close()

	var result []*models.Folder
	for rows.Next() {
		f, err := scanFolder(rows)
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

func (r *PostgresRepository) ListRoot(ctx context.Context, ownerID string) ([]*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders
		WHERE owner_id = $1 AND parent_id IS NULL AND is_deleted = false
		ORDER BY name`
	return r.listQuery(ctx, query, ownerID)
}

func (r *PostgresRepository) ListByParent(ctx context.Context, parentID string, deleted bool) ([]*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders
		WHERE parent_id = $1 AND is_deleted = $2
		ORDER BY name`
	return r.listQuery(ctx, query, parentID, deleted)
}

func (r *PostgresRepository) ListChildren(ctx context.Context, parentID string) ([]*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders
		WHERE parent_id = $1
		ORDER BY name`
	return r.listQuery(ctx, query, parentID)
}

func (r *PostgresRepository) ListByOwnerAndDeleted(ctx context.Context, ownerID string, deleted bool) ([]*models.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders
		WHERE owner_id = $1 AND is_deleted = $2
		ORDER BY name`
	return r.listQuery(ctx, query, ownerID, deleted)
}

func (r *PostgresRepository) CountByOwnerAndDeleted(ctx context.Context, ownerID string, deleted bool) (int, error) {
	query := `SELECT COUNT(*) FROM folders WHERE owner_id = $1 AND is_deleted = $2`
	var n int
	if err := r.db.QueryRowContext(ctx, query, ownerID, deleted).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Rename(ctx context.Context, id string, name string) error {
	query := `UPDATE folders SET name = $2, updated_at = now() WHERE id = $1`
	return r.execExpectOne(ctx, query, id, name)
}

func (r *PostgresRepository) SetParent(ctx context.Context, id string, parentID *string) error {
	query := `UPDATE folders SET parent_id = $2, updated_at = now() WHERE id = $1`
	return r.execExpectOne(ctx, query, id, parentID)
}

func (r *PostgresRepository) MarkDeleted(ctx context.Context, id string, deletedBy string, deletedAt time.Time) error {
	query := `UPDATE folders SET is_deleted = true, deleted_at = $2, deleted_by = $3, updated_at = now() WHERE id = $1`
	return r.execExpectOne(ctx, query, id, deletedAt, deletedBy)
}

func (r *PostgresRepository) ClearDeleted(ctx context.Context, id string) error {
	query := `UPDATE folders SET is_deleted = false, deleted_at = NULL, deleted_by = NULL, updated_at = now() WHERE id = $1`
	return r.execExpectOne(ctx, query, id)
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM folders WHERE id = $1`
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
