package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"reporag/internal/port"
)

// DBFileName is the bbolt file created inside a persist directory.
const DBFileName = "vectors.db"

// BoltStore keeps every collection of one repository in a single bbolt
// file, one bucket per collection.
type BoltStore struct {
	db     *bbolt.DB
	dir    string
	logger *slog.Logger

	mu          sync.Mutex
	collections map[string]*BoltCollection
}

var _ port.VectorStore = (*BoltStore)(nil)

func NewBoltStore(dir string) (*BoltStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create persist dir: %w", err)
	}
	db, err := bbolt.Open(filepath.Join(dir, DBFileName), 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSpaces)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create spaces bucket: %w", err)
	}

	return &BoltStore{
		db:          db,
		dir:         dir,
		logger:      slog.Default().With("component", "bolt-store", "dir", dir),
		collections: make(map[string]*BoltCollection),
	}, nil
}

func (s *BoltStore) Dir() string {
	return s.dir
}

func (s *BoltStore) Collection(ctx context.Context, name string, space port.Space) (port.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reset, err := s.ensureSpace(name, space)
	if err != nil {
		return nil, err
	}
	if reset {
		s.logger.Info("collection reset for new embedding space",
			"collection", name, "signature", space.Signature, "dimension", space.Dimension)
		delete(s.collections, name)
	}
	if c, ok := s.collections[name]; ok {
		return c, nil
	}

	c, err := newBoltCollection(s.db, name)
	if err != nil {
		return nil, err
	}
	s.collections[name] = c
	return c, nil
}

func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = map[string]*BoltCollection{}
	return s.db.Close()
}

// BoltCollection holds a bucket's vectors in memory and answers queries by
// brute-force cosine distance.
type BoltCollection struct {
	db     *bbolt.DB
	name   string
	bucket []byte

	mu      sync.RWMutex
	entries map[string]storedVector
}

var _ port.Collection = (*BoltCollection)(nil)

type storedVector struct {
	Vector   []float32         `json:"v"`
	Document string            `json:"d"`
	Metadata map[string]string `json:"m,omitempty"`
}

func newBoltCollection(db *bbolt.DB, name string) (*BoltCollection, error) {
	c := &BoltCollection{
		db:      db,
		name:    name,
		bucket:  []byte(name),
		entries: make(map[string]storedVector),
	}

	err := db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(c.bucket)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			var stored storedVector
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // skip corrupted entries
			}
			c.entries[string(k)] = stored
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load collection %s: %w", name, err)
	}
	return c, nil
}

func (c *BoltCollection) Name() string {
	return c.name
}

func (c *BoltCollection) Existing(_ context.Context, ids []string) (map[string]bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	found := make(map[string]bool)
	for _, id := range ids {
		if _, ok := c.entries[id]; ok {
			found[id] = true
		}
	}
	return found, nil
}

func (c *BoltCollection) Add(_ context.Context, items []port.VectorItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(c.bucket)
		if b == nil {
			return fmt.Errorf("bucket %s not found", c.name)
		}

		for _, item := range items {
			stored := storedVector{
				Vector:   item.Embedding,
				Document: item.Document,
				Metadata: item.Metadata,
			}
			data, err := json.Marshal(stored)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(item.ID), data); err != nil {
				return err
			}
			c.entries[item.ID] = stored
		}
		return nil
	})
}

func (c *BoltCollection) Query(_ context.Context, embedding []float32, k int, where map[string]string) ([]port.QueryHit, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if k <= 0 || len(c.entries) == 0 {
		return nil, nil
	}

	hits := make([]port.QueryHit, 0, len(c.entries))
	for id, entry := range c.entries {
		// vectors from another space are never compared
		if len(entry.Vector) != len(embedding) || !MatchesWhere(entry.Metadata, where) {
			continue
		}
		hits = append(hits, port.QueryHit{
			ID:       id,
			Document: entry.Document,
			Metadata: entry.Metadata,
			Distance: 1 - CosineSimilarity(embedding, entry.Vector),
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance == hits[j].Distance {
			return hits[i].ID < hits[j].ID
		}
		return hits[i].Distance < hits[j].Distance
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func (c *BoltCollection) Count(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries), nil
}

// MatchesWhere reports whether metadata holds every key/value of where.
func MatchesWhere(metadata, where map[string]string) bool {
	for k, v := range where {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

// CosineSimilarity returns 0 for vectors of different length or zero norm.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
