// Package services contains the server-side business logic: permission
// resolution over the folder tree, lifecycle transitions (trash, restore,
// permanent delete), and sharing operations.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/cloudvault/internal/common"
	"github.com/dmitrijs2005/cloudvault/internal/server/models"
	"github.com/dmitrijs2005/cloudvault/internal/server/repositories/repomanager"
)

// maxAncestorDepth caps ancestor walks used for subtree membership checks.
// A chain longer than this is treated as "not a descendant" instead of
// looping forever on corrupted parent links.
const maxAncestorDepth = 100

// PermissionService resolves the effective permission a user holds on a
// file or folder, and resolves anonymous share tokens.
type PermissionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewPermissionService(db *sql.DB, repomanager repomanager.RepositoryManager) *PermissionService {
	return &PermissionService{db: db, repomanager: repomanager}
}

// Resolve returns the caller's effective permission on the resource.
// Permission resolution keeps working for trashed nodes; visibility in
// listings is filtered separately.
func (s *PermissionService) Resolve(ctx context.Context, userID string, res models.Resource) (models.Permission, error) {
	switch res.Kind {
	case models.KindFolder:
		return s.ResolveFolder(ctx, userID, res.ID)
	case models.KindFile:
		return s.ResolveFile(ctx, userID, res.ID)
	default:
		return models.PermissionNone, fmt.Errorf("unknown resource kind %q", res.Kind)
	}
}

// ResolveFolder walks from the folder up to the root. The owner always
// gets owner; otherwise the nearest ancestor (including the folder
// itself) with an active share for the user decides. Deeper ancestors
// never widen or narrow what a closer share grants.
func (s *PermissionService) ResolveFolder(ctx context.Context, userID string, folderID string) (models.Permission, error) {
	folderRepo := s.repomanager.Folders(s.db)
	shareRepo := s.repomanager.FolderShares(s.db)

	folder, err := folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return models.PermissionNone, err
	}

	if folder.OwnerID == userID {
		return models.PermissionOwner, nil
	}

	// Iterative walk; the visited set stops us on corrupted parent chains.
	visited := make(map[string]struct{})
	current := folder
	for {
		if _, ok := visited[current.ID]; ok {
			break
		}
		visited[current.ID] = struct{}{}

		share, err := shareRepo.GetByFolderAndUser(ctx, current.ID, userID)
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return models.PermissionNone, err
		}
		if err == nil && share.IsActive {
			return share.Permission, nil
		}

		if current.ParentID == nil {
			break
		}
		current, err = folderRepo.GetByID(ctx, *current.ParentID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				break
			}
			return models.PermissionNone, err
		}
	}

	return models.PermissionNone, nil
}

// ResolveFile checks ownership, then a direct share, then the containing
// folder. A direct file share always overrides whatever the folder chain
// would grant, even when the folder grant is wider.
func (s *PermissionService) ResolveFile(ctx context.Context, userID string, fileID string) (models.Permission, error) {
	fileRepo := s.repomanager.Files(s.db)
	shareRepo := s.repomanager.FileShares(s.db)

	file, err := fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return models.PermissionNone, err
	}

	if file.OwnerID == userID {
		return models.PermissionOwner, nil
	}

	share, err := shareRepo.GetByFileAndUser(ctx, fileID, userID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return models.PermissionNone, err
	}
	if err == nil && share.IsActive {
		return share.Permission, nil
	}

	if file.FolderID != nil {
		return s.ResolveFolder(ctx, userID, *file.FolderID)
	}

	return models.PermissionNone, nil
}

// CanEdit reports whether the user may mutate the resource.
func (s *PermissionService) CanEdit(ctx context.Context, userID string, res models.Resource) (bool, error) {
	p, err := s.Resolve(ctx, userID, res)
	if err != nil {
		return false, err
	}
	return p.CanEdit(), nil
}

// CanView reports whether the user may read the resource.
func (s *PermissionService) CanView(ctx context.Context, userID string, res models.Resource) (bool, error) {
	p, err := s.Resolve(ctx, userID, res)
	if err != nil {
		return false, err
	}
	return p.CanView(), nil
}

// TokenGrant is what an anonymous share token resolves to: the shared
// root resource, the granted permission, and who shared it.
type TokenGrant struct {
	Resource   models.Resource
	Permission models.Permission
	SharedBy   string
}

// ResolveToken resolves a public share token without any authenticated
// user. Unknown and revoked tokens both come back as ErrorNotFound so a
// probe cannot distinguish "never existed" from "revoked".
func (s *PermissionService) ResolveToken(ctx context.Context, token string) (*TokenGrant, error) {
	folderShareRepo := s.repomanager.FolderShares(s.db)
	fileShareRepo := s.repomanager.FileShares(s.db)

	fs, err := folderShareRepo.GetByToken(ctx, token)
	if err == nil {
		name, err := s.displayName(ctx, fs.SharedByID)
		if err != nil {
			return nil, err
		}
		return &TokenGrant{
			Resource:   models.FolderResource(fs.FolderID),
			Permission: fs.Permission,
			SharedBy:   name,
		}, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	ls, err := fileShareRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	name, err := s.displayName(ctx, ls.SharedByID)
	if err != nil {
		return nil, err
	}
	return &TokenGrant{
		Resource:   models.FileResource(ls.FileID),
		Permission: ls.Permission,
		SharedBy:   name,
	}, nil
}

// ResolveDescendant resolves a token and additionally checks that the
// requested resource lies within the token's subtree. Anything outside
// it, including the case where the token points at a single file, is
// reported as ErrorNotFound.
func (s *PermissionService) ResolveDescendant(ctx context.Context, token string, res models.Resource) (*TokenGrant, error) {
	grant, err := s.ResolveToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if grant.Resource == res {
		return grant, nil
	}

	// Only a folder token can cover further items.
	if grant.Resource.Kind != models.KindFolder {
		return nil, common.ErrorNotFound
	}

	startID, err := s.containingFolderID(ctx, res)
	if err != nil {
		return nil, err
	}

	ok, err := s.isWithin(ctx, startID, grant.Resource.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrorNotFound
	}

	return &TokenGrant{Resource: res, Permission: grant.Permission, SharedBy: grant.SharedBy}, nil
}

// containingFolderID maps a resource to the folder the membership walk
// starts from: the folder itself, or the file's containing folder.
func (s *PermissionService) containingFolderID(ctx context.Context, res models.Resource) (string, error) {
	if res.Kind == models.KindFolder {
		return res.ID, nil
	}

	file, err := s.repomanager.Files(s.db).GetByID(ctx, res.ID)
	if err != nil {
		return "", err
	}
	if file.FolderID == nil {
		// A root-level file cannot be inside any shared folder.
		return "", common.ErrorNotFound
	}
	return *file.FolderID, nil
}

// isWithin walks ancestors from folderID looking for rootID, giving up
// after maxAncestorDepth steps.
func (s *PermissionService) isWithin(ctx context.Context, folderID, rootID string) (bool, error) {
	folderRepo := s.repomanager.Folders(s.db)

	currentID := folderID
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

func (s *PermissionService) displayName(ctx context.Context, userID string) (string, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", nil
		}
		return "", err
	}
	if user.FullName != "" {
		return user.FullName, nil
	}
	return user.Email, nil
}
