package services

import (
	"context"

	"github.com/dmitrijs2005/cloudvault/internal/logging"
	"github.com/dmitrijs2005/cloudvault/internal/server/models"
)

// Notifier tells a user that something was shared with them. Delivery is
// best-effort: the sharing service never fails an operation because a
// notification could not be sent.
type Notifier interface {
	ResourceShared(ctx context.Context, recipientID string, sharedBy string, res models.Resource, permission models.Permission) error
}

// LogNotifier records share notifications in the server log. It stands in
// until a real mail/push channel is wired up.
type LogNotifier struct {
	log logging.Logger
}

func NewLogNotifier(log logging.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) ResourceShared(ctx context.Context, recipientID string, sharedBy string, res models.Resource, permission models.Permission) error {
	n.log.Info(ctx, "resource shared",
		"recipient", recipientID,
		"shared_by", sharedBy,
		"kind", string(res.Kind),
		"resource_id", res.ID,
		"permission", string(permission),
	)
	return nil
}
