package models

import "time"

// File is a leaf node. The binary payload lives in object storage under
// StorageKey; the row only carries metadata.
//
// FolderID == nil means the file sits at the owner's root. File ownership
// is independent of the containing folder's ownership: a file uploaded
// into a folder shared with its uploader belongs to the uploader.
type File struct {
	ID       string
	Name     string
	Size     int64
	MimeType string
	OwnerID  string
	FolderID *string

	// StorageKey is the object-storage key (path) of the blob.
	StorageKey string

	// IsStarred is the owner's star; recipients star through their share row.
	IsStarred bool

	IsDeleted bool
	DeletedAt *time.Time
	DeletedBy *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
