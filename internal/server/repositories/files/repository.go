package files

import (
	"context"
	"time"

	"github.com/dmitrijs2005/cloudvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.File) (*models.File, error)
	GetByID(ctx context.Context, id string) (*models.File, error)

	// ListRoot returns the owner's non-deleted files outside any folder.
	ListRoot(ctx context.Context, ownerID string) ([]*models.File, error)
	ListByFolder(ctx context.Context, folderID string, deleted bool) ([]*models.File, error)
	// ListAllByFolder returns every file in the folder regardless of
	// deletion state, which the permanent-delete cascade needs.
	ListAllByFolder(ctx context.Context, folderID string) ([]*models.File, error)
	ListByOwnerAndDeleted(ctx context.Context, ownerID string, deleted bool) ([]*models.File, error)
	ListStarred(ctx context.Context, ownerID string) ([]*models.File, error)
	SearchByName(ctx context.Context, ownerID string, query string) ([]*models.File, error)
	// ListRecent returns the owner's newest non-deleted files, newest first.
	ListRecent(ctx context.Context, ownerID string, limit int) ([]*models.File, error)

	CountByOwnerAndDeleted(ctx context.Context, ownerID string, deleted bool) (int, error)
	CountStarredByOwner(ctx context.Context, ownerID string) (int, error)

	Rename(ctx context.Context, id string, name string) error
	SetStarred(ctx context.Context, id string, starred bool) error

	MarkDeleted(ctx context.Context, id string, deletedBy string, deletedAt time.Time) error
	ClearDeleted(ctx context.Context, id string) error

	// Delete removes the row permanently; a missing row is not an error.
	Delete(ctx context.Context, id string) error
}
