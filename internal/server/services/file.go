package services

import (
	"context"
	"database/sql"
	"errors"
	"io"

	"github.com/dmitrijs2005/cloudvault/internal/common"
	"github.com/dmitrijs2005/cloudvault/internal/server/models"
	"github.com/dmitrijs2005/cloudvault/internal/server/repositories/repomanager"
)

// FileService covers file metadata and content: uploads, downloads,
// renames, stars, and the search/listing views.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	permissions *PermissionService
	blobs       BlobStore
}

func NewFileService(db *sql.DB, repomanager repomanager.RepositoryManager,
	permissions *PermissionService, blobs BlobStore) *FileService {
	return &FileService{db: db, repomanager: repomanager, permissions: permissions, blobs: blobs}
}

// Upload stores the content under a fresh storage key and records the
// metadata row. The blob goes first: if the insert fails the worst case
// is an orphaned object, never a row pointing at missing bytes.
func (s *FileService) Upload(ctx context.Context, userID string, folderID *string,
	name string, mimeType string, size int64, r io.Reader) (*models.File, error) {

	if folderID != nil {
		ok, err := s.permissions.CanEdit(ctx, userID, models.FolderResource(*folderID))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, common.ErrorUnauthorized
		}
	}

	key := GetRandomStorageKey()
	if err := s.blobs.Put(ctx, key, r, size, mimeType); err != nil {
		return nil, err
	}

	return s.repomanager.Files(s.db).Create(ctx, &models.File{
		Name:       name,
		Size:       size,
		MimeType:   mimeType,
		OwnerID:    userID,
		FolderID:   folderID,
		StorageKey: key,
	})
}

func (s *FileService) Get(ctx context.Context, userID string, fileID string) (*models.File, error) {
	ok, err := s.permissions.CanView(ctx, userID, models.FileResource(fileID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	return s.repomanager.Files(s.db).GetByID(ctx, fileID)
}

// Download returns the file metadata and a reader over its content.
// The caller owns closing the reader.
func (s *FileService) Download(ctx context.Context, userID string, fileID string) (*models.File, io.ReadCloser, error) {
	file, err := s.Get(ctx, userID, fileID)
	if err != nil {
		return nil, nil, err
	}

	body, err := s.blobs.Get(ctx, file.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return file, body, nil
}

// DownloadURL returns a time-limited presigned URL so the client can
// fetch the content straight from object storage.
func (s *FileService) DownloadURL(ctx context.Context, userID string, fileID string) (string, error) {
	file, err := s.Get(ctx, userID, fileID)
	if err != nil {
		return "", err
	}
	return s.blobs.PresignGet(ctx, file.StorageKey)
}

// DownloadByToken serves a file through a public share token, either the
// token's own file or any file inside the token's folder subtree. No
// authenticated user is involved.
func (s *FileService) DownloadByToken(ctx context.Context, token string, fileID string) (*models.File, io.ReadCloser, error) {
	if _, err := s.permissions.ResolveDescendant(ctx, token, models.FileResource(fileID)); err != nil {
		return nil, nil, err
	}

	file, err := s.repomanager.Files(s.db).GetByID(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}

	body, err := s.blobs.Get(ctx, file.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return file, body, nil
}

func (s *FileService) Rename(ctx context.Context, userID string, fileID string, name string) error {
	ok, err := s.permissions.CanEdit(ctx, userID, models.FileResource(fileID))
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrorUnauthorized
	}
	return s.repomanager.Files(s.db).Rename(ctx, fileID, name)
}

// ToggleStar flips the owner's star. Recipients star shared files
// through the sharing service instead, on their own share row.
func (s *FileService) ToggleStar(ctx context.Context, userID string, fileID string) (bool, error) {
	fileRepo := s.repomanager.Files(s.db)

	file, err := fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return false, err
	}
	if file.OwnerID != userID {
		return false, common.ErrorUnauthorized
	}

	starred := !file.IsStarred
	if err := fileRepo.SetStarred(ctx, fileID, starred); err != nil {
		return false, err
	}
	return starred, nil
}

// ListRoot returns the user's own files outside any folder.
func (s *FileService) ListRoot(ctx context.Context, userID string) ([]*models.File, error) {
	return s.repomanager.Files(s.db).ListRoot(ctx, userID)
}

// ListByFolder returns the non-deleted files of a folder the user can
// view.
func (s *FileService) ListByFolder(ctx context.Context, userID string, folderID string) ([]*models.File, error) {
	ok, err := s.permissions.CanView(ctx, userID, models.FolderResource(folderID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	return s.repomanager.Files(s.db).ListByFolder(ctx, folderID, false)
}

func (s *FileService) ListStarred(ctx context.Context, userID string) ([]*models.File, error) {
	return s.repomanager.Files(s.db).ListStarred(ctx, userID)
}

func (s *FileService) Search(ctx context.Context, userID string, query string) ([]*models.File, error) {
	return s.repomanager.Files(s.db).SearchByName(ctx, userID, query)
}

// ListTrash returns the user's trashed files whose containing folder is
// still visible, mirroring the folder trash view.
func (s *FileService) ListTrash(ctx context.Context, userID string) ([]*models.File, error) {
	deleted, err := s.repomanager.Files(s.db).ListByOwnerAndDeleted(ctx, userID, true)
	if err != nil {
		return nil, err
	}

	folderRepo := s.repomanager.Folders(s.db)

	var result []*models.File
	for _, f := range deleted {
		if f.FolderID == nil {
			result = append(result, f)
			continue
		}
		folder, err := folderRepo.GetByID(ctx, *f.FolderID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				result = append(result, f)
				continue
			}
			return nil, err
		}
		if !folder.IsDeleted {
			result = append(result, f)
		}
	}

	return result, nil
}
