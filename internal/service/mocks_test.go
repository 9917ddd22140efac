package service

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"sync"

	"wainbox/internal/models"
	"wainbox/pkg/whatsapp/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
)

// Mock template sender
type mockTemplateSender struct {
	mock.Mock
}

func (m *mockTemplateSender) SendTemplate(ctx context.Context, msg *types.TemplateMessage) (json.RawMessage, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

// Mock store for error paths
type mockStore struct {
	mock.Mock
}

func (m *mockStore) InsertIncomingMessage(ctx context.Context, msg *models.IncomingMessage) (int64, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) ListRecentIncomingMessages(ctx context.Context, limit int) ([]*models.IncomingMessage, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.IncomingMessage), args.Error(1)
}

func (m *mockStore) FindSenderByID(ctx context.Context, id int64) (*models.Sender, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Sender), args.Error(1)
}

// memoryStore is an in-memory Store with AUTOINCREMENT-like ids
type memoryStore struct {
	mu        sync.Mutex
	nextID    int64
	records   []*models.IncomingMessage
	failFrom  int // insert number (1-based) from which inserts fail; 0 disables
	insertErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{nextID: 1}
}

func (s *memoryStore) InsertIncomingMessage(_ context.Context, msg *models.IncomingMessage) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failFrom > 0 && len(s.records)+1 >= s.failFrom {
		return 0, s.insertErr
	}

	stored := *msg
	stored.ID = s.nextID
	s.nextID++
	s.records = append(s.records, &stored)
	msg.ID = stored.ID
	return stored.ID, nil
}

func (s *memoryStore) ListRecentIncomingMessages(_ context.Context, limit int) ([]*models.IncomingMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.IncomingMessage, len(s.records))
	copy(out, s.records)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) FindSenderByID(_ context.Context, id int64) (*models.Sender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if r.ID == id {
			return &models.Sender{Address: r.SenderAddress, Name: r.SenderName}, nil
		}
	}
	return nil, nil
}

func (s *memoryStore) all() []*models.IncomingMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.IncomingMessage, len(s.records))
	copy(out, s.records)
	return out
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
