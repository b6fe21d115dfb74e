package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/cloudvault/internal/server/models"
	"github.com/dmitrijs2005/cloudvault/internal/server/repositories/repomanager"
)

// recentFilesLimit caps the recent-files list on the dashboard.
const recentFilesLimit = 5

// DashboardSummary aggregates the numbers shown on a user's landing
// page. Counts cover owned, non-deleted items only; shared and trashed
// items have their own views.
type DashboardSummary struct {
	TotalFiles   int
	TotalFolders int
	StarredFiles int
	RecentFiles  []*models.File
}

type DashboardService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewDashboardService(db *sql.DB, repomanager repomanager.RepositoryManager) *DashboardService {
	return &DashboardService{db: db, repomanager: repomanager}
}

// Summary collects the user's file/folder/starred counts and their most
// recently uploaded files, newest first.
func (s *DashboardService) Summary(ctx context.Context, userID string) (*DashboardSummary, error) {
	fileRepo := s.repomanager.Files(s.db)

	totalFiles, err := fileRepo.CountByOwnerAndDeleted(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	totalFolders, err := s.repomanager.Folders(s.db).CountByOwnerAndDeleted(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	starred, err := fileRepo.CountStarredByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	recent, err := fileRepo.ListRecent(ctx, userID, recentFilesLimit)
	if err != nil {
		return nil, err
	}

	return &DashboardSummary{
		TotalFiles:   totalFiles,
		TotalFolders: totalFolders,
		StarredFiles: starred,
		RecentFiles:  recent,
	}, nil
}
