package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// GraphStore keeps artifacts as versioned :Artifact nodes in a Neo4j or
// Memgraph instance, pending markers as :Pending nodes.
type GraphStore struct {
	Driver neo4j.DriverWithContext
}

func NewGraphStore(uri, username, password string) (*GraphStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, err
	}

	if err := driver.VerifyConnectivity(context.Background()); err != nil {
		return nil, err
	}

	log.Println("Connected to graph store")
	return &GraphStore{Driver: driver}, nil
}

func (s *GraphStore) Close(ctx context.Context) error {
	return s.Driver.Close(ctx)
}

func (s *GraphStore) executeQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.Driver, query, params, neo4j.EagerResultTransformer)
	if err != nil {
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return *result, nil
}

// BuildIndices creates the lookup indices. Safe to call repeatedly.
func (s *GraphStore) BuildIndices(ctx context.Context) error {
	queries := []string{
		"CREATE INDEX ON :Artifact(key);",
		"CREATE INDEX ON :Pending(key);",
	}
	for _, q := range queries {
		if _, err := s.executeQuery(ctx, q, nil); err != nil {
			log.Printf("Warning: failed to create index '%s': %v", q, err)
			// Index may already exist.
		}
	}
	return nil
}

func (s *GraphStore) Put(ctx context.Context, key, content string) (*Record, error) {
	now := time.Now().UTC()
	result, err := s.executeQuery(ctx, putArtifactQuery, map[string]interface{}{
		"key":        key,
		"content":    content,
		"created_at": now.Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}
	if len(result.Records) == 0 {
		return nil, fmt.Errorf("put for %s returned no version", key)
	}

	version, _ := result.Records[0].Get("version")
	v, ok := version.(int64)
	if !ok {
		return nil, fmt.Errorf("put for %s returned non-numeric version", key)
	}

	if _, err := s.executeQuery(ctx, clearPendingQuery, map[string]interface{}{"key": key}); err != nil {
		return nil, err
	}

	return &Record{Key: key, Version: int(v), Content: content, CreatedAt: now}, nil
}

func (s *GraphStore) Get(ctx context.Context, key string) (*Record, error) {
	result, err := s.executeQuery(ctx, getArtifactQuery, map[string]interface{}{"key": key})
	if err != nil {
		return nil, err
	}
	if len(result.Records) == 0 {
		return nil, ErrNotFound
	}

	rec := result.Records[0]
	content, _ := rec.Get("content")
	version, _ := rec.Get("version")
	createdAt, _ := rec.Get("created_at")

	out := &Record{Key: key}
	if c, ok := content.(string); ok {
		out.Content = c
	}
	if v, ok := version.(int64); ok {
		out.Version = int(v)
	}
	if ts, ok := createdAt.(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			out.CreatedAt = parsed
		}
	}
	return out, nil
}

func (s *GraphStore) Exists(ctx context.Context, key string) (bool, error) {
	result, err := s.executeQuery(ctx, countArtifactQuery, map[string]interface{}{"key": key})
	if err != nil {
		return false, err
	}
	if len(result.Records) == 0 {
		return false, nil
	}
	count, _ := result.Records[0].Get("count")
	c, _ := count.(int64)
	return c > 0, nil
}

func (s *GraphStore) MarkPending(ctx context.Context, key string) error {
	_, err := s.executeQuery(ctx, markPendingQuery, map[string]interface{}{
		"key":       key,
		"marked_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	return err
}

func (s *GraphStore) Pending(ctx context.Context, key string) (bool, error) {
	result, err := s.executeQuery(ctx, countPendingQuery, map[string]interface{}{"key": key})
	if err != nil {
		return false, err
	}
	if len(result.Records) == 0 {
		return false, nil
	}
	count, _ := result.Records[0].Get("count")
	c, _ := count.(int64)
	return c > 0, nil
}
