package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/cloudvault/internal/common"
	"github.com/dmitrijs2005/cloudvault/internal/server/models"
	"github.com/dmitrijs2005/cloudvault/internal/server/repositories/repomanager"
)

// FolderService covers folder CRUD and tree navigation.
type FolderService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	permissions *PermissionService
}

func NewFolderService(db *sql.DB, repomanager repomanager.RepositoryManager,
	permissions *PermissionService) *FolderService {
	return &FolderService{db: db, repomanager: repomanager, permissions: permissions}
}

// Create makes a folder under parentID (nil for the user's root). The
// creator becomes the owner even when creating inside someone else's
// shared folder.
func (s *FolderService) Create(ctx context.Context, userID string, name string, parentID *string) (*models.Folder, error) {
	if parentID != nil {
		ok, err := s.permissions.CanEdit(ctx, userID, models.FolderResource(*parentID))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, common.ErrorUnauthorized
		}
	}

	return s.repomanager.Folders(s.db).Create(ctx, &models.Folder{
		Name:     name,
		OwnerID:  userID,
		ParentID: parentID,
	})
}

func (s *FolderService) Get(ctx context.Context, userID string, folderID string) (*models.Folder, error) {
	ok, err := s.permissions.CanView(ctx, userID, models.FolderResource(folderID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	return s.repomanager.Folders(s.db).GetByID(ctx, folderID)
}

func (s *FolderService) Rename(ctx context.Context, userID string, folderID string, name string) error {
	ok, err := s.permissions.CanEdit(ctx, userID, models.FolderResource(folderID))
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrorUnauthorized
	}
	return s.repomanager.Folders(s.db).Rename(ctx, folderID, name)
}

// Move reparents a folder. Only the owner may move it, the target must
// be the owner's too, neither end may sit in the trash, and moving a
// folder into its own subtree is rejected since it would detach the
// subtree from the tree entirely.
func (s *FolderService) Move(ctx context.Context, userID string, folderID string, newParentID *string) error {
	folderRepo := s.repomanager.Folders(s.db)

	folder, err := folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return err
	}
	if folder.OwnerID != userID {
		return common.ErrorUnauthorized
	}
	if folder.IsDeleted {
		return common.ErrInvalidState
	}

	if sameParent(folder.ParentID, newParentID) {
		return common.ErrInvalidState
	}

	if newParentID != nil {
		if *newParentID == folderID {
			return common.ErrInvalidState
		}

		target, err := folderRepo.GetByID(ctx, *newParentID)
		if err != nil {
			return err
		}
		if target.OwnerID != userID {
			return common.ErrorUnauthorized
		}
		if target.IsDeleted {
			return common.ErrInvalidState
		}

		inside, err := s.isDescendant(ctx, *newParentID, folderID)
		if err != nil {
			return err
		}
		if inside {
			return common.ErrInvalidState
		}
	}

	return folderRepo.SetParent(ctx, folderID, newParentID)
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// isDescendant reports whether candidate lies in rootID's subtree,
// walking the parent chain with a step cap against corrupted links.
func (s *FolderService) isDescendant(ctx context.Context, candidateID, rootID string) (bool, error) {
	folderRepo := s.repomanager.Folders(s.db)

	currentID := candidateID
	for depth := 0; depth < maxAncestorDepth; depth++ {
		if currentID == rootID {
			return true, nil
		}
		folder, err := folderRepo.GetByID(ctx, currentID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return false, nil
			}
			return false, err
		}
		if folder.ParentID == nil {
			return false, nil
		}
		currentID = *folder.ParentID
	}

	return false, nil
}

// ListRoot returns the user's own top-level folders.
func (s *FolderService) ListRoot(ctx context.Context, userID string) ([]*models.Folder, error) {
	return s.repomanager.Folders(s.db).ListRoot(ctx, userID)
}

// ListChildren returns the non-deleted subfolders of a folder the user
// can view.
func (s *FolderService) ListChildren(ctx context.Context, userID string, folderID string) ([]*models.Folder, error) {
	ok, err := s.permissions.CanView(ctx, userID, models.FolderResource(folderID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	return s.repomanager.Folders(s.db).ListByParent(ctx, folderID, false)
}

// ListTrash returns the user's trashed folders whose parent is still
// visible. Descendants trashed by the same cascade stay reachable
// through their trashed parent instead of flooding the trash view.
func (s *FolderService) ListTrash(ctx context.Context, userID string) ([]*models.Folder, error) {
	folderRepo := s.repomanager.Folders(s.db)

	deleted, err := folderRepo.ListByOwnerAndDeleted(ctx, userID, true)
	if err != nil {
		return nil, err
	}

	var result []*models.Folder
	for _, f := range deleted {
		if f.ParentID == nil {
			result = append(result, f)
			continue
		}
		parent, err := folderRepo.GetByID(ctx, *f.ParentID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				result = append(result, f)
				continue
			}
			return nil, err
		}
		if !parent.IsDeleted {
			result = append(result, f)
		}
	}

	return result, nil
}
