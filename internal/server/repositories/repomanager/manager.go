// Package repomanager hands out per-table repositories bound to a DBTX,
// so a service can run several repos inside one transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/cloudvault/internal/dbx"
	"github.com/dmitrijs2005/cloudvault/internal/server/repositories/files"
	"github.com/dmitrijs2005/cloudvault/internal/server/repositories/fileshares"
	"github.com/dmitrijs2005/cloudvault/internal/server/repositories/folders"
	"github.com/dmitrijs2005/cloudvault/internal/server/repositories/foldershares"
	"github.com/dmitrijs2005/cloudvault/internal/server/repositories/users"
)

type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	Folders(db dbx.DBTX) folders.Repository
	Files(db dbx.DBTX) files.Repository
	FolderShares(db dbx.DBTX) foldershares.Repository
	FileShares(db dbx.DBTX) fileshares.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
