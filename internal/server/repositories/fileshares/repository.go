package fileshares

import (
	"context"

	"github.com/dmitrijs2005/cloudvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, share *models.FileShare) (*models.FileShare, error)
	GetByID(ctx context.Context, id string) (*models.FileShare, error)

	// GetByFileAndUser returns the user-targeted share row regardless of
	// its activity state; callers decide whether to honor or reactivate it.
	GetByFileAndUser(ctx context.Context, fileID, userID string) (*models.FileShare, error)

	// GetActiveLink returns the file's active public-link row.
	GetActiveLink(ctx context.Context, fileID string) (*models.FileShare, error)

	// GetByToken resolves an active share by its public token.
	GetByToken(ctx context.Context, token string) (*models.FileShare, error)

	ListActiveByFile(ctx context.Context, fileID string) ([]*models.FileShare, error)
	ListActiveForUser(ctx context.Context, userID string) ([]*models.FileShare, error)
	ListActiveByOwner(ctx context.Context, ownerID string) ([]*models.FileShare, error)

	// Activate reactivates a share row and overwrites its permission.
	Activate(ctx context.Context, id string, permission models.Permission) error
	SetPermission(ctx context.Context, id string, permission models.Permission) error
	SetActive(ctx context.Context, id string, active bool) error
	// SetStarred flips the recipient's star on their share row only.
	SetStarred(ctx context.Context, id string, starred bool) error
	DeactivateAllForFile(ctx context.Context, fileID string) error

	// DeleteByFile removes all share rows for a file; missing rows are fine.
	DeleteByFile(ctx context.Context, fileID string) error
}
