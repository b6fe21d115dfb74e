package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cloudvault/internal/common"
	"github.com/dmitrijs2005/cloudvault/internal/dbx"
	"github.com/dmitrijs2005/cloudvault/internal/logging"
	"github.com/dmitrijs2005/cloudvault/internal/server/models"
	"github.com/dmitrijs2005/cloudvault/internal/server/repositories/repomanager"
)

// LifecycleService implements the trash lifecycle: soft delete with
// subtree cascade, shallow restore, and permanent delete.
type LifecycleService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	permissions *PermissionService
	blobs       BlobStore
	log         logging.Logger
}

func NewLifecycleService(db *sql.DB, repomanager repomanager.RepositoryManager,
	permissions *PermissionService, blobs BlobStore, log logging.Logger) *LifecycleService {
	return &LifecycleService{
		db:          db,
		repomanager: repomanager,
		permissions: permissions,
		blobs:       blobs,
		log:         log,
	}
}

// MoveToTrash soft-deletes the resource. For a folder the whole subtree
// is marked in one transaction, every touched row getting the same
// deletedAt/deletedBy so the cascade reads as a single event.
func (s *LifecycleService) MoveToTrash(ctx context.Context, userID string, res models.Resource) error {
	ok, err := s.permissions.CanEdit(ctx, userID, res)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrorUnauthorized
	}

	deletedAt := time.Now().UTC()

	switch res.Kind {
	case models.KindFolder:
		folder, err := s.repomanager.Folders(s.db).GetByID(ctx, res.ID)
		if err != nil {
			return err
		}
		if folder.IsDeleted {
			return common.ErrInvalidState
		}
		return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			return trashFolderSubtree(ctx, tx, s.repomanager, res.ID, userID, deletedAt)
		})

	case models.KindFile:
		file, err := s.repomanager.Files(s.db).GetByID(ctx, res.ID)
		if err != nil {
			return err
		}
		if file.IsDeleted {
			return common.ErrInvalidState
		}
		return s.repomanager.Files(s.db).MarkDeleted(ctx, res.ID, userID, deletedAt)

	default:
		return fmt.Errorf("unknown resource kind %q", res.Kind)
	}
}

// trashFolderSubtree marks the folder and every non-deleted descendant
// as deleted, all with the same timestamp and actor. An explicit
// worklist avoids recursion; the visited set guards against parent-link
// cycles. Descendants that were already in the trash keep their own
// deletion metadata.
func trashFolderSubtree(ctx context.Context, tx dbx.DBTX, rm repomanager.RepositoryManager,
	folderID string, deletedBy string, deletedAt time.Time) error {

	folderRepo := rm.Folders(tx)
	fileRepo := rm.Files(tx)

	visited := make(map[string]struct{})
	worklist := []string{folderID}

	for len(worklist) > 0 {
		id := worklist[0]
		worklist = worklist[1:]

		if _, ok := visited[id]; ok {
			continue
		}
		visited[id] = struct{}{}

		if err := folderRepo.MarkDeleted(ctx, id, deletedBy, deletedAt); err != nil {
			return err
		}

		files, err := fileRepo.ListByFolder(ctx, id, false)
		if err != nil {
			return err
		}
		for _, f := range files {
			if err := fileRepo.MarkDeleted(ctx, f.ID, deletedBy, deletedAt); err != nil {
				return err
			}
		}

		children, err := folderRepo.ListByParent(ctx, id, false)
		if err != nil {
			return err
		}
		for _, c := range children {
			worklist = append(worklist, c.ID)
		}
	}

	return nil
}

// Restore brings a trashed resource back. It is deliberately shallow:
// descendants trashed by the same cascade reappear because their parent
// is visible again, but anything trashed on its own stays in the trash.
func (s *LifecycleService) Restore(ctx context.Context, userID string, res models.Resource) error {
	switch res.Kind {
	case models.KindFolder:
		folder, err := s.repomanager.Folders(s.db).GetByID(ctx, res.ID)
		if err != nil {
			return err
		}
		if folder.OwnerID != userID {
			return common.ErrorUnauthorized
		}
		if !folder.IsDeleted {
			return common.ErrInvalidState
		}
		return s.repomanager.Folders(s.db).ClearDeleted(ctx, res.ID)

	case models.KindFile:
		file, err := s.repomanager.Files(s.db).GetByID(ctx, res.ID)
		if err != nil {
			return err
		}
		if file.OwnerID != userID {
			return common.ErrorUnauthorized
		}
		if !file.IsDeleted {
			return common.ErrInvalidState
		}
		return s.repomanager.Files(s.db).ClearDeleted(ctx, res.ID)

	default:
		return fmt.Errorf("unknown resource kind %q", res.Kind)
	}
}

// PermanentlyDelete removes a trashed resource for good: share rows,
// metadata rows, and (for files) the stored blobs. Rows go children
// first so no row ever points at a deleted parent, and missing rows are
// tolerated because a concurrent delete may have won the race.
func (s *LifecycleService) PermanentlyDelete(ctx context.Context, userID string, res models.Resource) error {
	switch res.Kind {
	case models.KindFolder:
		return s.permanentlyDeleteFolder(ctx, userID, res.ID)
	case models.KindFile:
		return s.permanentlyDeleteFile(ctx, userID, res.ID)
	default:
		return fmt.Errorf("unknown resource kind %q", res.Kind)
	}
}

func (s *LifecycleService) permanentlyDeleteFolder(ctx context.Context, userID string, folderID string) error {
	folder, err := s.repomanager.Folders(s.db).GetByID(ctx, folderID)
	if err != nil {
		return err
	}
	if folder.OwnerID != userID {
		return common.ErrorUnauthorized
	}
	if !folder.IsDeleted {
		return common.ErrInvalidState
	}

	var storageKeys []string

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		folderRepo := s.repomanager.Folders(tx)
		fileRepo := s.repomanager.Files(tx)
		folderShareRepo := s.repomanager.FolderShares(tx)
		fileShareRepo := s.repomanager.FileShares(tx)

		// Collect the subtree in pre-order, parents before children.
		visited := make(map[string]struct{})
		order := []string{}
		worklist := []string{folderID}
		for len(worklist) > 0 {
			id := worklist[0]
			worklist = worklist[1:]

			if _, ok := visited[id]; ok {
				continue
			}
			visited[id] = struct{}{}
			order = append(order, id)

			children, err := folderRepo.ListChildren(ctx, id)
			if err != nil {
				return err
			}
			for _, c := range children {
				worklist = append(worklist, c.ID)
			}
		}

		// Delete deepest folders first.
		for i := len(order) - 1; i >= 0; i-- {
			id := order[i]

			files, err := fileRepo.ListAllByFolder(ctx, id)
			if err != nil {
				return err
			}
			for _, f := range files {
				if err := fileShareRepo.DeleteByFile(ctx, f.ID); err != nil {
					return err
				}
				if err := fileRepo.Delete(ctx, f.ID); err != nil {
					return err
				}
				storageKeys = append(storageKeys, f.StorageKey)
			}

			if err := folderShareRepo.DeleteByFolder(ctx, id); err != nil {
				return err
			}
			if err := folderRepo.Delete(ctx, id); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.deleteBlobs(ctx, storageKeys)
	return nil
}

func (s *LifecycleService) permanentlyDeleteFile(ctx context.Context, userID string, fileID string) error {
	file, err := s.repomanager.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		return err
	}
	if file.OwnerID != userID {
		return common.ErrorUnauthorized
	}
	if !file.IsDeleted {
		return common.ErrInvalidState
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.FileShares(tx).DeleteByFile(ctx, fileID); err != nil {
			return err
		}
		return s.repomanager.Files(tx).Delete(ctx, fileID)
	})
	if err != nil {
		return err
	}

	s.deleteBlobs(ctx, []string{file.StorageKey})
	return nil
}

// deleteBlobs runs after the transaction committed. Failures only get
// logged: the metadata is already gone and an orphaned object is a
// storage-cost problem, not a correctness one.
func (s *LifecycleService) deleteBlobs(ctx context.Context, keys []string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.log.Error(ctx, "failed to delete blob", "storage_key", key, "error", err)
		}
	}
}
