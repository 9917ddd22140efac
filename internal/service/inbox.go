package service

import (
	"context"

	"wainbox/internal/constants"
	"wainbox/internal/errors"
	"wainbox/internal/models"
)

// InboxService serves the operator's view of recent records
type InboxService struct {
	store Store
	limit int
}

// NewInboxService creates an inbox bounded to limit records per listing.
// A non-positive limit falls back to the default.
func NewInboxService(store Store, limit int) *InboxService {
	if limit <= 0 {
		limit = constants.DefaultListLimit
	}
	return &InboxService{store: store, limit: limit}
}

// Limit reports the listing bound
func (s *InboxService) Limit() int {
	return s.limit
}

// ListRecent returns up to Limit records, newest first. The result is never nil.
func (s *InboxService) ListRecent(ctx context.Context) ([]*models.IncomingMessage, error) {
	messages, err := s.store.ListRecentIncomingMessages(ctx, s.limit)
	if err != nil {
		return nil, errors.NewDatabaseError("list incoming messages", err)
	}
	if messages == nil {
		messages = []*models.IncomingMessage{}
	}
	return messages, nil
}
