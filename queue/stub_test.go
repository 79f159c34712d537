package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/mmdatafocus/manufacture_backend/models"
)

// stubClient is a canned ERP for cache tests. QueryProduction serves
// queryBatches in order and keeps repeating the last one.
type stubClient struct {
	mu           sync.Mutex
	queryBatches [][]models.ProductionItem
	queryCalls   int
	queryErr     error

	createResult string
	createErr    error
	created      []map[string]any
}

func (s *stubClient) QueryProduction(ctx context.Context) ([]models.ProductionItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryCalls++
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if len(s.queryBatches) == 0 {
		return nil, nil
	}
	idx := s.queryCalls - 1
	if idx >= len(s.queryBatches) {
		idx = len(s.queryBatches) - 1
	}
	batch := s.queryBatches[idx]
	return append([]models.ProductionItem(nil), batch...), nil
}

func (s *stubClient) CreateProduction(ctx context.Context, fields map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, fields)
	if s.createErr != nil {
		return "", s.createErr
	}
	return s.createResult, nil
}

func (s *stubClient) ConfirmSingle(ctx context.Context, customUid string) (string, error) {
	return "", errors.New("not implemented in stub")
}

func (s *stubClient) MarkAsDone(ctx context.Context, customUid string) error {
	return errors.New("not implemented in stub")
}

func (s *stubClient) QueryProducts(ctx context.Context) ([]models.ProductEntry, error) {
	return nil, errors.New("not implemented in stub")
}

func (s *stubClient) Login(ctx context.Context, username string, apiKey string) (int, error) {
	return 1, nil
}

func (s *stubClient) Logout() bool { return true }

func (s *stubClient) createCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

// recordingNotifier counts broadcasts for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Broadcast(event string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}
