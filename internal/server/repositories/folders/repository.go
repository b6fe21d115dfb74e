package folders

import (
	"context"
	"time"

	"github.com/dmitrijs2005/cloudvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, folder *models.Folder) (*models.Folder, error)
	GetByID(ctx context.Context, id string) (*models.Folder, error)

	// ListRoot returns the owner's non-deleted folders with no parent.
	ListRoot(ctx context.Context, ownerID string) ([]*models.Folder, error)
	ListByParent(ctx context.Context, parentID string, deleted bool) ([]*models.Folder, error)
	// ListChildren returns every child regardless of deletion state,
	// which the permanent-delete cascade needs to avoid dangling rows.
	ListChildren(ctx context.Context, parentID string) ([]*models.Folder, error)
	ListByOwnerAndDeleted(ctx context.Context, ownerID string, deleted bool) ([]*models.Folder, error)

	CountByOwnerAndDeleted(ctx context.Context, ownerID string, deleted bool) (int, error)

	Rename(ctx context.Context, id string, name string) error
	SetParent(ctx context.Context, id string, parentID *string) error

	MarkDeleted(ctx context.Context, id string, deletedBy string, deletedAt time.Time) error
	ClearDeleted(ctx context.Context, id string) error

	// Delete removes the row permanently. A missing row is not an error,
	// so concurrent subtree deletions stay idempotent.
	Delete(ctx context.Context, id string) error
}
