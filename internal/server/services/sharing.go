package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/cloudvault/internal/common"
	"github.com/dmitrijs2005/cloudvault/internal/dbx"
	"github.com/dmitrijs2005/cloudvault/internal/logging"
	sc "github.com/dmitrijs2005/cloudvault/internal/server/config"
	"github.com/dmitrijs2005/cloudvault/internal/server/models"
	"github.com/dmitrijs2005/cloudvault/internal/server/repositories/repomanager"
)

// ShareRecord is the service-level view of one grant: a user-targeted
// share carries the recipient, a link share carries the token.
type ShareRecord struct {
	ID         string
	Resource   models.Resource
	Permission models.Permission
	SharedWith *models.User
	Token      *string
	IsStarred  bool
	CreatedAt  time.Time
}

// ShareLink is a public link to a resource.
type ShareLink struct {
	Token string
	URL   string
}

// SharingService manages user-targeted shares and public links.
type SharingService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	permissions *PermissionService
	notifier    Notifier
	config      *sc.Config
	log         logging.Logger
}

func NewSharingService(db *sql.DB, repomanager repomanager.RepositoryManager,
	permissions *PermissionService, notifier Notifier, config *sc.Config, log logging.Logger) *SharingService {
	return &SharingService{
		db:          db,
		repomanager: repomanager,
		permissions: permissions,
		notifier:    notifier,
		config:      config,
		log:         log,
	}
}

// requireOwner resolves the caller's permission and rejects anything
// below owner. Sharing decisions always stay with the owner, even for
// users holding an edit grant.
func (s *SharingService) requireOwner(ctx context.Context, userID string, res models.Resource) error {
	p, err := s.permissions.Resolve(ctx, userID, res)
	if err != nil {
		return err
	}
	if p != models.PermissionOwner {
		return common.ErrorUnauthorized
	}
	return nil
}

// Share grants the recipient (looked up by email) the given permission
// on the resource. One row per (resource, recipient): a previously
// revoked row is reactivated with the new permission instead of a
// duplicate being created.
func (s *SharingService) Share(ctx context.Context, userID string, res models.Resource,
	recipientEmail string, permission models.Permission, notify bool) (*ShareRecord, error) {

	if permission != models.PermissionView && permission != models.PermissionEdit {
		return nil, common.ErrInvalidState
	}

	if err := s.requireOwner(ctx, userID, res); err != nil {
		return nil, err
	}

	recipient, err := s.repomanager.Users(s.db).GetByEmail(ctx, recipientEmail)
	if err != nil {
		return nil, err
	}
	if recipient.ID == userID {
		return nil, common.ErrInvalidState
	}

	record, err := s.upsertUserShare(ctx, userID, res, recipient, permission)
	if err != nil {
		return nil, err
	}

	if notify {
		// Best-effort; a broken mail channel must not fail the share.
		if err := s.notifier.ResourceShared(ctx, recipient.ID, userID, res, permission); err != nil {
			s.log.Error(ctx, "share notification failed",
				"recipient", recipient.ID, "resource_id", res.ID, "error", err)
		}
	}

	return record, nil
}

func (s *SharingService) upsertUserShare(ctx context.Context, userID string, res models.Resource,
	recipient *models.User, permission models.Permission) (*ShareRecord, error) {

	switch res.Kind {
	case models.KindFolder:
		repo := s.repomanager.FolderShares(s.db)

		existing, err := repo.GetByFolderAndUser(ctx, res.ID, recipient.ID)
		if err == nil {
			if err := repo.Activate(ctx, existing.ID, permission); err != nil {
				return nil, err
			}
			return &ShareRecord{
				ID:         existing.ID,
				Resource:   res,
				Permission: permission,
				SharedWith: recipient,
				CreatedAt:  existing.CreatedAt,
			}, nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}

		folder, err := s.repomanager.Folders(s.db).GetByID(ctx, res.ID)
		if err != nil {
			return nil, err
		}
		share, err := repo.Create(ctx, &models.FolderShare{
			FolderID:     res.ID,
			OwnerID:      folder.OwnerID,
			SharedByID:   userID,
			SharedWithID: &recipient.ID,
			Permission:   permission,
			IsActive:     true,
		})
		if err != nil {
			return nil, err
		}
		return &ShareRecord{
			ID:         share.ID,
			Resource:   res,
			Permission: permission,
			SharedWith: recipient,
			CreatedAt:  share.CreatedAt,
		}, nil

	case models.KindFile:
		repo := s.repomanager.FileShares(s.db)

		existing, err := repo.GetByFileAndUser(ctx, res.ID, recipient.ID)
		if err == nil {
			if err := repo.Activate(ctx, existing.ID, permission); err != nil {
				return nil, err
			}
			return &ShareRecord{
				ID:         existing.ID,
				Resource:   res,
				Permission: permission,
				SharedWith: recipient,
				IsStarred:  existing.IsStarred,
				CreatedAt:  existing.CreatedAt,
			}, nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}

		file, err := s.repomanager.Files(s.db).GetByID(ctx, res.ID)
		if err != nil {
			return nil, err
		}
		share, err := repo.Create(ctx, &models.FileShare{
			FileID:       res.ID,
			OwnerID:      file.OwnerID,
			SharedByID:   userID,
			SharedWithID: &recipient.ID,
			Permission:   permission,
			IsActive:     true,
		})
		if err != nil {
			return nil, err
		}
		return &ShareRecord{
			ID:         share.ID,
			Resource:   res,
			Permission: permission,
			SharedWith: recipient,
			CreatedAt:  share.CreatedAt,
		}, nil

	default:
		return nil, fmt.Errorf("unknown resource kind %q", res.Kind)
	}
}

// GenerateLink returns the resource's public link, creating one if none
// is active. Calling it twice hands back the same token; only a revoke
// in between rotates it.
func (s *SharingService) GenerateLink(ctx context.Context, userID string, res models.Resource) (*ShareLink, error) {
	if err := s.requireOwner(ctx, userID, res); err != nil {
		return nil, err
	}

	var token string

	switch res.Kind {
	case models.KindFolder:
		repo := s.repomanager.FolderShares(s.db)

		existing, err := repo.GetActiveLink(ctx, res.ID)
		if err == nil {
			token = *existing.ShareToken
			break
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}

		folder, err := s.repomanager.Folders(s.db).GetByID(ctx, res.ID)
		if err != nil {
			return nil, err
		}
		if token, err = newShareToken(); err != nil {
			return nil, err
		}
		_, err = repo.Create(ctx, &models.FolderShare{
			FolderID:   res.ID,
			OwnerID:    folder.OwnerID,
			SharedByID: userID,
			Permission: models.PermissionView,
			ShareToken: &token,
			IsActive:   true,
		})
		if err != nil {
			return nil, err
		}

	case models.KindFile:
		repo := s.repomanager.FileShares(s.db)

		existing, err := repo.GetActiveLink(ctx, res.ID)
		if err == nil {
			token = *existing.ShareToken
			break
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}

		file, err := s.repomanager.Files(s.db).GetByID(ctx, res.ID)
		if err != nil {
			return nil, err
		}
		if token, err = newShareToken(); err != nil {
			return nil, err
		}
		_, err = repo.Create(ctx, &models.FileShare{
			FileID:     res.ID,
			OwnerID:    file.OwnerID,
			SharedByID: userID,
			Permission: models.PermissionView,
			ShareToken: &token,
			IsActive:   true,
		})
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown resource kind %q", res.Kind)
	}

	return &ShareLink{
		Token: token,
		URL:   fmt.Sprintf("%s/share/%s", strings.TrimRight(s.config.BaseURL, "/"), token),
	}, nil
}

// newShareToken returns an opaque 32-character hex token. Tokens are
// never derived from the resource they point at.
func newShareToken() (string, error) {
	return common.MakeRandHexString(16)
}

// RevokeLink deactivates the resource's public link. No active link is a
// no-op, so revoking twice is safe.
func (s *SharingService) RevokeLink(ctx context.Context, userID string, res models.Resource) error {
	if err := s.requireOwner(ctx, userID, res); err != nil {
		return err
	}

	switch res.Kind {
	case models.KindFolder:
		repo := s.repomanager.FolderShares(s.db)
		existing, err := repo.GetActiveLink(ctx, res.ID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil
			}
			return err
		}
		return repo.SetActive(ctx, existing.ID, false)

	case models.KindFile:
		repo := s.repomanager.FileShares(s.db)
		existing, err := repo.GetActiveLink(ctx, res.ID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil
			}
			return err
		}
		return repo.SetActive(ctx, existing.ID, false)

	default:
		return fmt.Errorf("unknown resource kind %q", res.Kind)
	}
}

// RevokeShare deactivates one share row. The row must belong to the
// named resource; a shareID from a different resource reads as not
// found so callers cannot revoke through the wrong URL.
func (s *SharingService) RevokeShare(ctx context.Context, userID string, res models.Resource, shareID string) error {
	if err := s.requireOwner(ctx, userID, res); err != nil {
		return err
	}

	switch res.Kind {
	case models.KindFolder:
		repo := s.repomanager.FolderShares(s.db)
		share, err := repo.GetByID(ctx, shareID)
		if err != nil {
			return err
		}
		if share.FolderID != res.ID {
			return common.ErrorNotFound
		}
		return repo.SetActive(ctx, share.ID, false)

	case models.KindFile:
		repo := s.repomanager.FileShares(s.db)
		share, err := repo.GetByID(ctx, shareID)
		if err != nil {
			return err
		}
		if share.FileID != res.ID {
			return common.ErrorNotFound
		}
		return repo.SetActive(ctx, share.ID, false)

	default:
		return fmt.Errorf("unknown resource kind %q", res.Kind)
	}
}

// UpdateSharePermission changes the permission on an existing share row.
func (s *SharingService) UpdateSharePermission(ctx context.Context, userID string, res models.Resource,
	shareID string, permission models.Permission) error {

	if permission != models.PermissionView && permission != models.PermissionEdit {
		return common.ErrInvalidState
	}
	if err := s.requireOwner(ctx, userID, res); err != nil {
		return err
	}

	switch res.Kind {
	case models.KindFolder:
		repo := s.repomanager.FolderShares(s.db)
		share, err := repo.GetByID(ctx, shareID)
		if err != nil {
			return err
		}
		if share.FolderID != res.ID {
			return common.ErrorNotFound
		}
		return repo.SetPermission(ctx, share.ID, permission)

	case models.KindFile:
		repo := s.repomanager.FileShares(s.db)
		share, err := repo.GetByID(ctx, shareID)
		if err != nil {
			return err
		}
		if share.FileID != res.ID {
			return common.ErrorNotFound
		}
		return repo.SetPermission(ctx, share.ID, permission)

	default:
		return fmt.Errorf("unknown resource kind %q", res.Kind)
	}
}

// RemoveAllAccess deactivates every share on the resource (user shares
// and links alike) and moves the resource to the trash, all in one
// transaction so no partially-unshared state is ever visible.
func (s *SharingService) RemoveAllAccess(ctx context.Context, userID string, res models.Resource) error {
	if err := s.requireOwner(ctx, userID, res); err != nil {
		return err
	}

	deletedAt := time.Now().UTC()

	switch res.Kind {
	case models.KindFolder:
		return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			if err := s.repomanager.FolderShares(tx).DeactivateAllForFolder(ctx, res.ID); err != nil {
				return err
			}
			return trashFolderSubtree(ctx, tx, s.repomanager, res.ID, userID, deletedAt)
		})

	case models.KindFile:
		return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			if err := s.repomanager.FileShares(tx).DeactivateAllForFile(ctx, res.ID); err != nil {
				return err
			}
			return s.repomanager.Files(tx).MarkDeleted(ctx, res.ID, userID, deletedAt)
		})

	default:
		return fmt.Errorf("unknown resource kind %q", res.Kind)
	}
}

// RemoveSelf lets a recipient leave a share. Only their own row is
// touched; other recipients and the owner's state are unaffected.
func (s *SharingService) RemoveSelf(ctx context.Context, userID string, res models.Resource) error {
	switch res.Kind {
	case models.KindFolder:
		repo := s.repomanager.FolderShares(s.db)
		share, err := repo.GetByFolderAndUser(ctx, res.ID, userID)
		if err != nil {
			return err
		}
		if !share.IsActive {
			return common.ErrorNotFound
		}
		return repo.SetActive(ctx, share.ID, false)

	case models.KindFile:
		repo := s.repomanager.FileShares(s.db)
		share, err := repo.GetByFileAndUser(ctx, res.ID, userID)
		if err != nil {
			return err
		}
		if !share.IsActive {
			return common.ErrorNotFound
		}
		return repo.SetActive(ctx, share.ID, false)

	default:
		return fmt.Errorf("unknown resource kind %q", res.Kind)
	}
}

// ToggleStarShared flips the recipient's star on a file that was shared
// with them. The star lives on the share row, so it never leaks into the
// owner's or other recipients' views.
func (s *SharingService) ToggleStarShared(ctx context.Context, userID string, fileID string) (bool, error) {
	repo := s.repomanager.FileShares(s.db)

	share, err := repo.GetByFileAndUser(ctx, fileID, userID)
	if err != nil {
		return false, err
	}
	if !share.IsActive {
		return false, common.ErrorNotFound
	}

	starred := !share.IsStarred
	if err := repo.SetStarred(ctx, share.ID, starred); err != nil {
		return false, err
	}
	return starred, nil
}

// SharesFor lists every active share on a resource for its owner.
func (s *SharingService) SharesFor(ctx context.Context, userID string, res models.Resource) ([]*ShareRecord, error) {
	if err := s.requireOwner(ctx, userID, res); err != nil {
		return nil, err
	}

	switch res.Kind {
	case models.KindFolder:
		shares, err := s.repomanager.FolderShares(s.db).ListActiveByFolder(ctx, res.ID)
		if err != nil {
			return nil, err
		}
		return s.folderShareRecords(ctx, shares)

	case models.KindFile:
		shares, err := s.repomanager.FileShares(s.db).ListActiveByFile(ctx, res.ID)
		if err != nil {
			return nil, err
		}
		return s.fileShareRecords(ctx, shares)

	default:
		return nil, fmt.Errorf("unknown resource kind %q", res.Kind)
	}
}

// SharedWithMe lists everything actively shared with the user, folders
// first.
func (s *SharingService) SharedWithMe(ctx context.Context, userID string) ([]*ShareRecord, error) {
	folderShares, err := s.repomanager.FolderShares(s.db).ListActiveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	fileShares, err := s.repomanager.FileShares(s.db).ListActiveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	records, err := s.folderShareRecords(ctx, folderShares)
	if err != nil {
		return nil, err
	}
	fileRecords, err := s.fileShareRecords(ctx, fileShares)
	if err != nil {
		return nil, err
	}
	return append(records, fileRecords...), nil
}

// SharedByMe lists everything the user has actively shared out.
func (s *SharingService) SharedByMe(ctx context.Context, userID string) ([]*ShareRecord, error) {
	folderShares, err := s.repomanager.FolderShares(s.db).ListActiveByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	fileShares, err := s.repomanager.FileShares(s.db).ListActiveByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	records, err := s.folderShareRecords(ctx, folderShares)
	if err != nil {
		return nil, err
	}
	fileRecords, err := s.fileShareRecords(ctx, fileShares)
	if err != nil {
		return nil, err
	}
	return append(records, fileRecords...), nil
}

func (s *SharingService) folderShareRecords(ctx context.Context, shares []*models.FolderShare) ([]*ShareRecord, error) {
	result := make([]*ShareRecord, 0, len(shares))
	for _, sh := range shares {
		rec := &ShareRecord{
			ID:         sh.ID,
			Resource:   models.FolderResource(sh.FolderID),
			Permission: sh.Permission,
			Token:      sh.ShareToken,
			CreatedAt:  sh.CreatedAt,
		}
		if sh.SharedWithID != nil {
			user, err := s.repomanager.Users(s.db).GetByID(ctx, *sh.SharedWithID)
			if err != nil {
				return nil, err
			}
			rec.SharedWith = user
		}
		result = append(result, rec)
	}
	return result, nil
}

func (s *SharingService) fileShareRecords(ctx context.Context, shares []*models.FileShare) ([]*ShareRecord, error) {
	result := make([]*ShareRecord, 0, len(shares))
	for _, sh := range shares {
		rec := &ShareRecord{
			ID:         sh.ID,
			Resource:   models.FileResource(sh.FileID),
			Permission: sh.Permission,
			Token:      sh.ShareToken,
			IsStarred:  sh.IsStarred,
			CreatedAt:  sh.CreatedAt,
		}
		if sh.SharedWithID != nil {
			user, err := s.repomanager.Users(s.db).GetByID(ctx, *sh.SharedWithID)
			if err != nil {
				return nil, err
			}
			rec.SharedWith = user
		}
		result = append(result, rec)
	}
	return result, nil
}
