package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dmitrijs2005/cloudvault/internal/common"
	"github.com/dmitrijs2005/cloudvault/internal/dbx"
	"github.com/dmitrijs2005/cloudvault/internal/logging"
	sc "github.com/dmitrijs2005/cloudvault/internal/server/config"
	"github.com/dmitrijs2005/cloudvault/internal/server/models"
	"github.com/dmitrijs2005/cloudvault/internal/server/repositories/files"
	"github.com/dmitrijs2005/cloudvault/internal/server/repositories/fileshares"
	"github.com/dmitrijs2005/cloudvault/internal/server/repositories/folders"
	"github.com/dmitrijs2005/cloudvault/internal/server/repositories/foldershares"
	"github.com/dmitrijs2005/cloudvault/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func testConfig() *sc.Config {
	cfg := &sc.Config{}
	cfg.LoadDefaults()
	cfg.BaseURL = "https://vault.example.com"
	return cfg
}

func strptr(s string) *string { return &s }

// nopLogger discards everything.
type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, args ...any) {}
func (l nopLogger) With(args ...any) logging.Logger                  { return l }

// --- in-memory fakes ---

// fakeRepoManager hands out the same in-memory repos regardless of the
// DBTX it is given, so service-level transaction plumbing stays inert.
type fakeRepoManager struct {
	users        *fakeUsersRepo
	folders      *fakeFoldersRepo
	files        *fakeFilesRepo
	folderShares *fakeFolderSharesRepo
	fileShares   *fakeFileSharesRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:        &fakeUsersRepo{},
		folders:      &fakeFoldersRepo{},
		files:        &fakeFilesRepo{},
		folderShares: &fakeFolderSharesRepo{},
		fileShares:   &fakeFileSharesRepo{},
	}
}

func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository               { return m.users }
func (m *fakeRepoManager) Folders(db dbx.DBTX) folders.Repository           { return m.folders }
func (m *fakeRepoManager) Files(db dbx.DBTX) files.Repository               { return m.files }
func (m *fakeRepoManager) FolderShares(db dbx.DBTX) foldershares.Repository { return m.folderShares }
func (m *fakeRepoManager) FileShares(db dbx.DBTX) fileshares.Repository     { return m.fileShares }
func (m *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return nil
}

type fakeUsersRepo struct {
	items []*models.User
	seq   int
}

func (f *fakeUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	f.seq++
	user.ID = fmt.Sprintf("user-%d", f.seq)
	user.CreatedAt = time.Now()
	f.items = append(f.items, user)
	return user, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range f.items {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.items {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

type fakeFoldersRepo struct {
	items []*models.Folder
	seq   int
}

func (f *fakeFoldersRepo) Create(ctx context.Context, folder *models.Folder) (*models.Folder, error) {
	f.seq++
	folder.ID = fmt.Sprintf("folder-%d", f.seq)
	folder.CreatedAt = time.Now()
	folder.UpdatedAt = folder.CreatedAt
	f.items = append(f.items, folder)
	return folder, nil
}

func (f *fakeFoldersRepo) get(id string) *models.Folder {
	for _, it := range f.items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

func (f *fakeFoldersRepo) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	if it := f.get(id); it != nil {
		return it, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeFoldersRepo) ListRoot(ctx context.Context, ownerID string) ([]*models.Folder, error) {
	var out []*models.Folder
	for _, it := range f.items {
		if it.OwnerID == ownerID && it.ParentID == nil && !it.IsDeleted {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeFoldersRepo) ListByParent(ctx context.Context, parentID string, deleted bool) ([]*models.Folder, error) {
	var out []*models.Folder
	for _, it := range f.items {
		if it.ParentID != nil && *it.ParentID == parentID && it.IsDeleted == deleted {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeFoldersRepo) ListChildren(ctx context.Context, parentID string) ([]*models.Folder, error) {
	var out []*models.Folder
	for _, it := range f.items {
		if it.ParentID != nil && *it.ParentID == parentID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeFoldersRepo) ListByOwnerAndDeleted(ctx context.Context, ownerID string, deleted bool) ([]*models.Folder, error) {
	var out []*models.Folder
	for _, it := range f.items {
		if it.OwnerID == ownerID && it.IsDeleted == deleted {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeFoldersRepo) CountByOwnerAndDeleted(ctx context.Context, ownerID string, deleted bool) (int, error) {
	n := 0
	for _, it := range f.items {
		if it.OwnerID == ownerID && it.IsDeleted == deleted {
			n++
		}
	}
	return n, nil
}

func (f *fakeFoldersRepo) Rename(ctx context.Context, id string, name string) error {
	it := f.get(id)
	if it == nil {
		return common.ErrorNotFound
	}
	it.Name = name
	return nil
}

func (f *fakeFoldersRepo) SetParent(ctx context.Context, id string, parentID *string) error {
	it := f.get(id)
	if it == nil {
		return common.ErrorNotFound
	}
	it.ParentID = parentID
	return nil
}

func (f *fakeFoldersRepo) MarkDeleted(ctx context.Context, id string, deletedBy string, deletedAt time.Time) error {
	it := f.get(id)
	if it == nil {
		return common.ErrorNotFound
	}
	it.IsDeleted = true
	it.DeletedAt = &deletedAt
	it.DeletedBy = &deletedBy
	return nil
}

func (f *fakeFoldersRepo) ClearDeleted(ctx context.Context, id string) error {
	it := f.get(id)
	if it == nil {
		return common.ErrorNotFound
	}
	it.IsDeleted = false
	it.DeletedAt = nil
	it.DeletedBy = nil
	return nil
}

func (f *fakeFoldersRepo) Delete(ctx context.Context, id string) error {
	for i, it := range f.items {
		if it.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeFilesRepo struct {
	items []*models.File
	seq   int
}

func (f *fakeFilesRepo) Create(ctx context.Context, file *models.File) (*models.File, error) {
	f.seq++
	file.ID = fmt.Sprintf("file-%d", f.seq)
	file.CreatedAt = time.Now()
	file.UpdatedAt = file.CreatedAt
	f.items = append(f.items, file)
	return file, nil
}

func (f *fakeFilesRepo) get(id string) *models.File {
	for _, it := range f.items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

func (f *fakeFilesRepo) GetByID(ctx context.Context, id string) (*models.File, error) {
	if it := f.get(id); it != nil {
		return it, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeFilesRepo) ListRoot(ctx context.Context, ownerID string) ([]*models.File, error) {
	var out []*models.File
	for _, it := range f.items {
		if it.OwnerID == ownerID && it.FolderID == nil && !it.IsDeleted {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeFilesRepo) ListByFolder(ctx context.Context, folderID string, deleted bool) ([]*models.File, error) {
	var out []*models.File
	for _, it := range f.items {
		if it.FolderID != nil && *it.FolderID == folderID && it.IsDeleted == deleted {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeFilesRepo) ListAllByFolder(ctx context.Context, folderID string) ([]*models.File, error) {
	var out []*models.File
	for _, it := range f.items {
		if it.FolderID != nil && *it.FolderID == folderID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeFilesRepo) ListByOwnerAndDeleted(ctx context.Context, ownerID string, deleted bool) ([]*models.File, error) {
	var out []*models.File
	for _, it := range f.items {
		if it.OwnerID == ownerID && it.IsDeleted == deleted {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeFilesRepo) ListStarred(ctx context.Context, ownerID string) ([]*models.File, error) {
	var out []*models.File
	for _, it := range f.items {
		if it.OwnerID == ownerID && it.IsStarred && !it.IsDeleted {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeFilesRepo) ListRecent(ctx context.Context, ownerID string, limit int) ([]*models.File, error) {
	var out []*models.File
	for _, it := range f.items {
		if it.OwnerID == ownerID && !it.IsDeleted {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeFilesRepo) CountByOwnerAndDeleted(ctx context.Context, ownerID string, deleted bool) (int, error) {
	n := 0
	for _, it := range f.items {
		if it.OwnerID == ownerID && it.IsDeleted == deleted {
			n++
		}
	}
	return n, nil
}

func (f *fakeFilesRepo) CountStarredByOwner(ctx context.Context, ownerID string) (int, error) {
	n := 0
	for _, it := range f.items {
		if it.OwnerID == ownerID && it.IsStarred && !it.IsDeleted {
			n++
		}
	}
	return n, nil
}

func (f *fakeFilesRepo) SearchByName(ctx context.Context, ownerID string, query string) ([]*models.File, error) {
	var out []*models.File
	for _, it := range f.items {
		if it.OwnerID == ownerID && !it.IsDeleted &&
			strings.Contains(strings.ToLower(it.Name), strings.ToLower(query)) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeFilesRepo) Rename(ctx context.Context, id string, name string) error {
	it := f.get(id)
	if it == nil {
		return common.ErrorNotFound
	}
	it.Name = name
	return nil
}

func (f *fakeFilesRepo) SetStarred(ctx context.Context, id string, starred bool) error {
	it := f.get(id)
	if it == nil {
		return common.ErrorNotFound
	}
	it.IsStarred = starred
	return nil
}

func (f *fakeFilesRepo) MarkDeleted(ctx context.Context, id string, deletedBy string, deletedAt time.Time) error {
	it := f.get(id)
	if it == nil {
		return common.ErrorNotFound
	}
	it.IsDeleted = true
	it.DeletedAt = &deletedAt
	it.DeletedBy = &deletedBy
	return nil
}

func (f *fakeFilesRepo) ClearDeleted(ctx context.Context, id string) error {
	it := f.get(id)
	if it == nil {
		return common.ErrorNotFound
	}
	it.IsDeleted = false
	it.DeletedAt = nil
	it.DeletedBy = nil
	return nil
}

func (f *fakeFilesRepo) Delete(ctx context.Context, id string) error {
	for i, it := range f.items {
		if it.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeFolderSharesRepo struct {
	items []*models.FolderShare
	seq   int
}

func (f *fakeFolderSharesRepo) Create(ctx context.Context, share *models.FolderShare) (*models.FolderShare, error) {
	f.seq++
	share.ID = fmt.Sprintf("fshare-%d", f.seq)
	share.CreatedAt = time.Now()
	f.items = append(f.items, share)
	return share, nil
}

func (f *fakeFolderSharesRepo) get(id string) *models.FolderShare {
	for _, it := range f.items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

func (f *fakeFolderSharesRepo) GetByID(ctx context.Context, id string) (*models.FolderShare, error) {
	if it := f.get(id); it != nil {
		return it, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeFolderSharesRepo) GetByFolderAndUser(ctx context.Context, folderID, userID string) (*models.FolderShare, error) {
	for _, it := range f.items {
		if it.FolderID == folderID && it.SharedWithID != nil && *it.SharedWithID == userID {
			return it, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeFolderSharesRepo) GetActiveLink(ctx context.Context, folderID string) (*models.FolderShare, error) {
	for _, it := range f.items {
		if it.FolderID == folderID && it.IsLink() && it.IsActive {
			return it, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeFolderSharesRepo) GetByToken(ctx context.Context, token string) (*models.FolderShare, error) {
	for _, it := range f.items {
		if it.ShareToken != nil && *it.ShareToken == token && it.IsActive {
			return it, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeFolderSharesRepo) ListActiveByFolder(ctx context.Context, folderID string) ([]*models.FolderShare, error) {
	var out []*models.FolderShare
	for _, it := range f.items {
		if it.FolderID == folderID && it.IsActive {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeFolderSharesRepo) ListActiveForUser(ctx context.Context, userID string) ([]*models.FolderShare, error) {
	var out []*models.FolderShare
	for _, it := range f.items {
		if it.SharedWithID != nil && *it.SharedWithID == userID && it.IsActive {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeFolderSharesRepo) ListActiveByOwner(ctx context.Context, ownerID string) ([]*models.FolderShare, error) {
	var out []*models.FolderShare
	for _, it := range f.items {
		if it.OwnerID == ownerID && it.IsActive {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeFolderSharesRepo) Activate(ctx context.Context, id string, permission models.Permission) error {
	it := f.get(id)
	if it == nil {
		return common.ErrorNotFound
	}
	it.Permission = permission
	it.IsActive = true
	return nil
}

func (f *fakeFolderSharesRepo) SetPermission(ctx context.Context, id string, permission models.Permission) error {
	it := f.get(id)
	if it == nil {
		return common.ErrorNotFound
	}
	it.Permission = permission
	return nil
}

func (f *fakeFolderSharesRepo) SetActive(ctx context.Context, id string, active bool) error {
	it := f.get(id)
	if it == nil {
		return common.ErrorNotFound
	}
	it.IsActive = active
	return nil
}

func (f *fakeFolderSharesRepo) DeactivateAllForFolder(ctx context.Context, folderID string) error {
	for _, it := range f.items {
		if it.FolderID == folderID {
			it.IsActive = false
		}
	}
	return nil
}

func (f *fakeFolderSharesRepo) DeleteByFolder(ctx context.Context, folderID string) error {
	var kept []*models.FolderShare
	for _, it := range f.items {
		if it.FolderID != folderID {
			kept = append(kept, it)
		}
	}
	f.items = kept
	return nil
}

type fakeFileSharesRepo struct {
	items []*models.FileShare
	seq   int
}

func (f *fakeFileSharesRepo) Create(ctx context.Context, share *models.FileShare) (*models.FileShare, error) {
	f.seq++
	share.ID = fmt.Sprintf("fileshare-%d", f.seq)
	share.CreatedAt = time.Now()
	f.items = append(f.items, share)
	return share, nil
}

func (f *fakeFileSharesRepo) get(id string) *models.FileShare {
	for _, it := range f.items {
		if it.ID == id {
			return it
		}
	}
	return nil
}

func (f *fakeFileSharesRepo) GetByID(ctx context.Context, id string) (*models.FileShare, error) {
	if it := f.get(id); it != nil {
		return it, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeFileSharesRepo) GetByFileAndUser(ctx context.Context, fileID, userID string) (*models.FileShare, error) {
	for _, it := range f.items {
		if it.FileID == fileID && it.SharedWithID != nil && *it.SharedWithID == userID {
			return it, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeFileSharesRepo) GetActiveLink(ctx context.Context, fileID string) (*models.FileShare, error) {
	for _, it := range f.items {
		if it.FileID == fileID && it.IsLink() && it.IsActive {
			return it, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeFileSharesRepo) GetByToken(ctx context.Context, token string) (*models.FileShare, error) {
	for _, it := range f.items {
		if it.ShareToken != nil && *it.ShareToken == token && it.IsActive {
			return it, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeFileSharesRepo) ListActiveByFile(ctx context.Context, fileID string) ([]*models.FileShare, error) {
	var out []*models.FileShare
	for _, it := range f.items {
		if it.FileID == fileID && it.IsActive {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeFileSharesRepo) ListActiveForUser(ctx context.Context, userID string) ([]*models.FileShare, error) {
	var out []*models.FileShare
	for _, it := range f.items {
		if it.SharedWithID != nil && *it.SharedWithID == userID && it.IsActive {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeFileSharesRepo) ListActiveByOwner(ctx context.Context, ownerID string) ([]*models.FileShare, error) {
	var out []*models.FileShare
	for _, it := range f.items {
		if it.OwnerID == ownerID && it.IsActive {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeFileSharesRepo) Activate(ctx context.Context, id string, permission models.Permission) error {
	it := f.get(id)
	if it == nil {
		return common.ErrorNotFound
	}
	it.Permission = permission
	it.IsActive = true
	return nil
}

func (f *fakeFileSharesRepo) SetPermission(ctx context.Context, id string, permission models.Permission) error {
	it := f.get(id)
	if it == nil {
		return common.ErrorNotFound
	}
	it.Permission = permission
	return nil
}

func (f *fakeFileSharesRepo) SetActive(ctx context.Context, id string, active bool) error {
	it := f.get(id)
	if it == nil {
		return common.ErrorNotFound
	}
	it.IsActive = active
	return nil
}

func (f *fakeFileSharesRepo) SetStarred(ctx context.Context, id string, starred bool) error {
	it := f.get(id)
	if it == nil {
		return common.ErrorNotFound
	}
	it.IsStarred = starred
	return nil
}

func (f *fakeFileSharesRepo) DeactivateAllForFile(ctx context.Context, fileID string) error {
	for _, it := range f.items {
		if it.FileID == fileID {
			it.IsActive = false
		}
	}
	return nil
}

func (f *fakeFileSharesRepo) DeleteByFile(ctx context.Context, fileID string) error {
	var kept []*models.FileShare
	for _, it := range f.items {
		if it.FileID != fileID {
			kept = append(kept, it)
		}
	}
	f.items = kept
	return nil
}

// fakeBlobStore records operations instead of touching object storage.
type fakeBlobStore struct {
	objects map[string][]byte
	deleted []string
	putErr  error
	getErr  error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}}
}

func (b *fakeBlobStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if b.putErr != nil {
		return b.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.objects[key] = data
	return nil
}

func (b *fakeBlobStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if b.getErr != nil {
		return nil, b.getErr
	}
	data, ok := b.objects[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (b *fakeBlobStore) Delete(ctx context.Context, key string) error {
	delete(b.objects, key)
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *fakeBlobStore) PresignGet(ctx context.Context, key string) (string, error) {
	return "https://s3.example.com/" + key, nil
}

// fakeNotifier records calls; fail makes every delivery error out.
type fakeNotifier struct {
	calls []string
	fail  bool
}

func (n *fakeNotifier) ResourceShared(ctx context.Context, recipientID string, sharedBy string, res models.Resource, permission models.Permission) error {
	n.calls = append(n.calls, recipientID)
	if n.fail {
		return fmt.Errorf("smtp down")
	}
	return nil
}
