package history

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"cinegen-web/internal/domain"
)

// MemoryStore はプロセス内に履歴を保持する Store です。再起動すると消えます。
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]domain.HistoryEntry // userKey -> 新しい順
	now     func() time.Time
}

// NewMemoryStore は空の MemoryStore を返します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string][]domain.HistoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, userKey string, artifact domain.GeneratedArtifact) (*domain.HistoryEntry, error) {
	if userKey == "" {
		return nil, nil
	}

	entry, err := newEntry(userKey, artifact, s.now())
	if err != nil {
		return nil, fmt.Errorf("履歴エントリの作成に失敗しました: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userKey] = slices.Insert(s.entries[userKey], 0, entry)
	return &entry, nil
}

func (s *MemoryStore) List(_ context.Context, userKey string) ([]domain.HistoryEntry, error) {
	if userKey == "" {
		return []domain.HistoryEntry{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.HistoryEntry, len(s.entries[userKey]))
	copy(out, s.entries[userKey])
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, userKey, id string) error {
	if userKey == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userKey] = slices.DeleteFunc(s.entries[userKey], func(e domain.HistoryEntry) bool {
		return e.ID == id
	})
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, userKey string) error {
	if userKey == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userKey)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
