package models

// ResourceKind distinguishes the two node types of the tree.
type ResourceKind string

const (
	KindFile   ResourceKind = "file"
	KindFolder ResourceKind = "folder"
)

// Resource addresses a file or folder uniformly by (kind, id). Services
// that behave the same for both kinds take a Resource instead of
// duplicating file/folder entry points.
type Resource struct {
	Kind ResourceKind
	ID   string
}

func FileResource(id string) Resource   { return Resource{Kind: KindFile, ID: id} }
func FolderResource(id string) Resource { return Resource{Kind: KindFolder, ID: id} }
