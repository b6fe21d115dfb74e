package models

import "time"

// Folder is a tree node. ParentID == nil means the folder sits at the
// user's root. The parent chain is kept acyclic by the folder service's
// move checks.
type Folder struct {
	ID      string
	Name    string
	OwnerID string
	// ParentID references another folder; nil for root-level folders.
	ParentID *string

	IsDeleted bool
	DeletedAt *time.Time
	// DeletedBy is the user who trashed the folder, for the trash view.
	DeletedBy *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
