// Package qdrant implements db.VectorStore over the Qdrant gRPC API.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/lawman-hq/clauseidx/internal/db"
)

// Compile-time check: Store implements db.VectorStore.
var _ db.VectorStore = (*Store)(nil)

const defaultMaxMessageSize = 32 * 1024 * 1024

// Config holds connection parameters for a Qdrant store.
type Config struct {
	Host           string
	Port           int
	APIKey         string
	UseTLS         bool
	MaxMessageSize int
}

// Store implements db.VectorStore via the Qdrant gRPC client.
type Store struct {
	client *qdrant.Client
}

// NewStore creates a Qdrant store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(cfg.MaxMessageSize),
				grpc.MaxCallSendMsgSize(cfg.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: client}, nil
}

// Ping checks connectivity via the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the underlying gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for vector store: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// CreateCollection creates a collection with cosine distance vectors of
// the given dimension. Creating an existing collection is an error.
func (s *Store) CreateCollection(ctx context.Context, name string, dim int) error {
	if dim <= 0 {
		return errors.New("dimension must be positive")
	}

	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return &db.Error{Op: "qdrant.CreateCollection", Err: err}
	}
	return nil
}

// DropCollection removes a collection and all its points.
func (s *Store) DropCollection(ctx context.Context, name string) error {
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		if isNotFound(err) {
			return db.ErrCollectionNotFound
		}
		return &db.Error{Op: "qdrant.DeleteCollection", Err: err}
	}
	return nil
}

// CollectionExists reports whether a collection exists.
func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return false, &db.Error{Op: "qdrant.CollectionExists", Err: err}
	}
	return exists, nil
}

// Upsert writes points into a collection, waiting for the operation to
// be applied so a subsequent query sees the points.
func (s *Store) Upsert(ctx context.Context, collection string, points []db.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}

	qpoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		payload := make(map[string]*qdrant.Value, len(p.Payload))
		for k, v := range p.Payload {
			payload[k] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
		}

		qpoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payload,
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         qpoints,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		if isNotFound(err) {
			return db.ErrCollectionNotFound
		}
		return &db.Error{Op: "qdrant.Upsert", Err: err}
	}
	return nil
}

// Delete removes points by id.
func (s *Store) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDUUID(id)
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		if isNotFound(err) {
			return db.ErrCollectionNotFound
		}
		return &db.Error{Op: "qdrant.Delete", Err: err}
	}
	return nil
}

// Query runs a KNN search and returns hits ordered by similarity.
func (s *Store) Query(ctx context.Context, collection string, vector []float32, topK int) ([]db.VectorHit, error) {
	if topK <= 0 {
		return nil, errors.New("topK must be positive")
	}

	scored, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, db.ErrCollectionNotFound
		}
		return nil, &db.Error{Op: "qdrant.Query", Err: err}
	}

	hits := make([]db.VectorHit, 0, len(scored))
	for _, point := range scored {
		payload := make(map[string]string, len(point.GetPayload()))
		for k, v := range point.GetPayload() {
			if sv, ok := v.GetKind().(*qdrant.Value_StringValue); ok {
				payload[k] = sv.StringValue
			}
		}

		hits = append(hits, db.VectorHit{
			ID:      point.GetId().GetUuid(),
			Score:   float64(point.GetScore()),
			Payload: payload,
		})
	}

	return hits, nil
}

// Count returns the exact number of points in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, db.ErrCollectionNotFound
		}
		return 0, &db.Error{Op: "qdrant.Count", Err: err}
	}
	return int(count), nil
}

// isNotFound checks for the gRPC NotFound code Qdrant returns when a
// collection does not exist.
func isNotFound(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	return st.Code() == codes.NotFound
}
