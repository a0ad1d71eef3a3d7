package store

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"reporag/internal/port"
)

// payload keys reserved for the stored document and the caller's id
const (
	payloadDocument = "_document"
	payloadID       = "_id"
)

// metaSpace is the collection metadata key holding the space signature.
const metaSpace = "reporag_space"

var pointNamespace = uuid.MustParse("6f1c4a8e-6d0b-4b8f-9a57-2f2d0c1e7b42")

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// QdrantConfig locates a Qdrant server over gRPC.
type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// QdrantStore maps collections onto a Qdrant server. Collection names are
// prefixed with a namespace so repositories never share points.
type QdrantStore struct {
	client    *qdrant.Client
	namespace string
	logger    *slog.Logger
}

var _ port.VectorStore = (*QdrantStore)(nil)

func NewQdrantStore(cfg QdrantConfig, namespace string) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}
	return &QdrantStore{
		client:    client,
		namespace: SanitizeCollectionName(namespace),
		logger:    slog.Default().With("component", "qdrant-store", "namespace", namespace),
	}, nil
}

// SanitizeCollectionName turns an arbitrary key into a Qdrant-safe name.
func SanitizeCollectionName(key string) string {
	name := strings.Trim(unsafeName.ReplaceAllString(key, "_"), "_")
	if name == "" {
		return "default"
	}
	return strings.ToLower(name)
}

func (s *QdrantStore) Collection(ctx context.Context, name string, space port.Space) (port.Collection, error) {
	full := s.namespace + "_" + name

	exists, err := s.client.CollectionExists(ctx, full)
	if err != nil {
		return nil, fmt.Errorf("check collection %s: %w", full, err)
	}
	if exists {
		info, err := s.client.GetCollectionInfo(ctx, full)
		if err != nil {
			return nil, fmt.Errorf("get collection %s: %w", full, err)
		}
		if SpaceMatches(info, space) {
			return &QdrantCollection{client: s.client, name: full}, nil
		}
		s.logger.Info("collection reset for new embedding space",
			"collection", full,
			"old_signature", info.GetConfig().GetMetadata()[metaSpace].GetStringValue(),
			"signature", space.Signature,
			"dimension", space.Dimension)
		if err := s.client.DeleteCollection(ctx, full); err != nil {
			return nil, fmt.Errorf("delete collection %s: %w", full, err)
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: full,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(space.Dimension),
			Distance: qdrant.Distance_Cosine,
		}),
		Metadata: qdrant.NewValueMap(map[string]any{metaSpace: space.Signature}),
	})
	if err != nil {
		return nil, fmt.Errorf("create collection %s: %w", full, err)
	}
	return &QdrantCollection{client: s.client, name: full}, nil
}

// SpaceMatches reports whether an existing collection was created for
// space. Collections without a recorded signature never match.
func SpaceMatches(info *qdrant.CollectionInfo, space port.Space) bool {
	size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	if int(size) != space.Dimension {
		return false
	}
	recorded, ok := info.GetConfig().GetMetadata()[metaSpace]
	return ok && recorded.GetStringValue() == space.Signature
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// QdrantCollection stores items as points keyed by a UUID derived from the
// item id.
type QdrantCollection struct {
	client *qdrant.Client
	name   string
}

var _ port.Collection = (*QdrantCollection)(nil)

func pointID(id string) string {
	return uuid.NewSHA1(pointNamespace, []byte(id)).String()
}

func (c *QdrantCollection) Name() string {
	return c.name
}

func (c *QdrantCollection) Existing(ctx context.Context, ids []string) (map[string]bool, error) {
	found := make(map[string]bool)
	if len(ids) == 0 {
		return found, nil
	}

	byPoint := make(map[string]string, len(ids))
	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pid := pointID(id)
		byPoint[pid] = id
		pointIDs = append(pointIDs, qdrant.NewIDUUID(pid))
	}

	points, err := c.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: c.name,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(false),
	})
	if err != nil {
		return nil, fmt.Errorf("get points: %w", err)
	}
	for _, p := range points {
		if id, ok := byPoint[p.GetId().GetUuid()]; ok {
			found[id] = true
		}
	}
	return found, nil
}

func (c *QdrantCollection) Add(ctx context.Context, items []port.VectorItem) error {
	if len(items) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(items))
	for _, item := range items {
		payload := map[string]any{
			payloadDocument: item.Document,
			payloadID:       item.ID,
		}
		for k, v := range item.Metadata {
			payload[k] = v
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(item.ID)),
			Vectors: qdrant.NewVectors(item.Embedding...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	wait := true
	_, err := c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.name,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

func (c *QdrantCollection) Query(ctx context.Context, embedding []float32, k int, where map[string]string) ([]port.QueryHit, error) {
	if k <= 0 {
		return nil, nil
	}
	limit := uint64(k)

	req := &qdrant.QueryPoints{
		CollectionName: c.name,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if len(where) > 0 {
		conditions := make([]*qdrant.Condition, 0, len(where))
		for key, value := range where {
			conditions = append(conditions, qdrant.NewMatch(key, value))
		}
		req.Filter = &qdrant.Filter{Must: conditions}
	}

	points, err := c.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}

	hits := make([]port.QueryHit, 0, len(points))
	for _, p := range points {
		hit := port.QueryHit{
			Metadata: make(map[string]string),
			// Qdrant reports cosine similarity
			Distance: 1 - float64(p.GetScore()),
		}
		for key, value := range p.GetPayload() {
			switch key {
			case payloadDocument:
				hit.Document = value.GetStringValue()
			case payloadID:
				hit.ID = value.GetStringValue()
			default:
				hit.Metadata[key] = value.GetStringValue()
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (c *QdrantCollection) Count(ctx context.Context) (int, error) {
	exact := true
	n, err := c.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: c.name,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	return int(n), nil
}
