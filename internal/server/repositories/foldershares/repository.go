package foldershares

import (
	"context"

	"github.com/dmitrijs2005/cloudvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, share *models.FolderShare) (*models.FolderShare, error)
	GetByID(ctx context.Context, id string) (*models.FolderShare, error)

	// GetByFolderAndUser returns the user-targeted share row regardless of
	// its activity state; callers decide whether to honor or reactivate it.
	GetByFolderAndUser(ctx context.Context, folderID, userID string) (*models.FolderShare, error)

	// GetActiveLink returns the folder's active public-link row.
	GetActiveLink(ctx context.Context, folderID string) (*models.FolderShare, error)

	// GetByToken resolves an active share by its public token.
	GetByToken(ctx context.Context, token string) (*models.FolderShare, error)

	ListActiveByFolder(ctx context.Context, folderID string) ([]*models.FolderShare, error)
	ListActiveForUser(ctx context.Context, userID string) ([]*models.FolderShare, error)
	ListActiveByOwner(ctx context.Context, ownerID string) ([]*models.FolderShare, error)

	// Activate reactivates a share row and overwrites its permission.
	Activate(ctx context.Context, id string, permission models.Permission) error
	SetPermission(ctx context.Context, id string, permission models.Permission) error
	SetActive(ctx context.Context, id string, active bool) error
	DeactivateAllForFolder(ctx context.Context, folderID string) error

	// DeleteByFolder removes all share rows for a folder; missing rows are fine.
	DeleteByFolder(ctx context.Context, folderID string) error
}
