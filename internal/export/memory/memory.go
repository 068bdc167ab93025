// Package memory is an in-process export target for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"kakeibo/internal/core"
	"kakeibo/internal/export"
)

type Store struct {
	mu   sync.Mutex
	rows map[int64]core.Item
}

var (
	_ export.ItemAppender = (*Store)(nil)
	_ export.ItemRemover  = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{rows: make(map[int64]core.Item)}
}

func (s *Store) Append(ctx context.Context, item core.Item) (string, error) {
	s.mu.Lock()
	s.rows[item.ID] = item
	s.mu.Unlock()
	return fmt.Sprintf("mem:%d", item.ID), nil
}

func (s *Store) Remove(ctx context.Context, itemID int64) error {
	s.mu.Lock()
	delete(s.rows, itemID)
	s.mu.Unlock()
	return nil
}

// Rows returns a copy of the exported items, keyed by item id.
func (s *Store) Rows() map[int64]core.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]core.Item, len(s.rows))
	for id, item := range s.rows {
		out[id] = item
	}
	return out
}
