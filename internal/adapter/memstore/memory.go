package memstore

import (
	"context"
	"sort"
	"sync"

	"reporag/internal/adapter/store"
	"reporag/internal/port"
)

// MemoryStore is a non-durable VectorStore. Every store instance is its
// own namespace.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]*MemoryCollection
}

var _ port.VectorStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*MemoryCollection)}
}

func (s *MemoryStore) Collection(_ context.Context, name string, space port.Space) (port.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[name]; ok && c.space == space {
		return c, nil
	}
	c := &MemoryCollection{
		name:  name,
		space: space,
		items: make(map[string]port.VectorItem),
	}
	s.collections[name] = c
	return c, nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = make(map[string]*MemoryCollection)
	return nil
}

type MemoryCollection struct {
	name  string
	space port.Space

	mu    sync.RWMutex
	items map[string]port.VectorItem
}

var _ port.Collection = (*MemoryCollection)(nil)

func (c *MemoryCollection) Name() string {
	return c.name
}

func (c *MemoryCollection) Existing(_ context.Context, ids []string) (map[string]bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	found := make(map[string]bool)
	for _, id := range ids {
		if _, ok := c.items[id]; ok {
			found[id] = true
		}
	}
	return found, nil
}

func (c *MemoryCollection) Add(_ context.Context, items []port.VectorItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range items {
		c.items[item.ID] = item
	}
	return nil
}

func (c *MemoryCollection) Query(_ context.Context, embedding []float32, k int, where map[string]string) ([]port.QueryHit, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hits := make([]port.QueryHit, 0, len(c.items))
	for id, item := range c.items {
		if len(item.Embedding) != len(embedding) || !store.MatchesWhere(item.Metadata, where) {
			continue
		}
		hits = append(hits, port.QueryHit{
			ID:       id,
			Document: item.Document,
			Metadata: item.Metadata,
			Distance: 1 - store.CosineSimilarity(embedding, item.Embedding),
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance == hits[j].Distance {
			return hits[i].ID < hits[j].ID
		}
		return hits[i].Distance < hits[j].Distance
	})
	if k >= 0 && k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func (c *MemoryCollection) Count(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items), nil
}
