package service

import (
	"context"

	"wainbox/internal/models"
)

// Store is the persistence the inbox services need. *database.Database implements it.
type Store interface {
	InsertIncomingMessage(ctx context.Context, msg *models.IncomingMessage) (int64, error)
	ListRecentIncomingMessages(ctx context.Context, limit int) ([]*models.IncomingMessage, error)
	FindSenderByID(ctx context.Context, id int64) (*models.Sender, error)
}
