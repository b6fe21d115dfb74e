package models

import "time"

// FolderShare grants access to a folder and, through inheritance, to
// everything below it. Exactly one of SharedWithID and ShareToken
// identifies the audience: a user-targeted share has SharedWithID set,
// a public link has ShareToken set and SharedWithID nil.
//
// Revoking never deletes the row; IsActive is flipped off so the audit
// trail survives.
type FolderShare struct {
	ID       string
	FolderID string
	// OwnerID is the folder owner, denormalized for listing queries.
	OwnerID      string
	SharedByID   string
	SharedWithID *string
	Permission   Permission
	ShareToken   *string
	IsActive     bool
	CreatedAt    time.Time
}

// IsLink reports whether the share is a public-link row.
func (s *FolderShare) IsLink() bool {
	return s.ShareToken != nil && s.SharedWithID == nil
}

// FileShare is the file counterpart of FolderShare, plus the recipient's
// own star flag: starring a shared file never touches the owner's state.
type FileShare struct {
	ID           string
	FileID       string
	OwnerID      string
	SharedByID   string
	SharedWithID *string
	Permission   Permission
	ShareToken   *string
	IsActive     bool
	IsStarred    bool
	CreatedAt    time.Time
}

func (s *FileShare) IsLink() bool {
	return s.ShareToken != nil && s.SharedWithID == nil
}
