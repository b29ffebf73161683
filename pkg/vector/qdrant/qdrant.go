// Package qdrant provides a vector driver backed by a Qdrant collection over gRPC.
package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	qc "github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/physrag/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection for chunk embeddings.
	DefaultCollectionName = "physics-rag"

	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334

	// chunkIDKey holds the chunk id in the payload, since point ids must be
	// unsigned integers or UUIDs.
	chunkIDKey = "chunk_id"
)

// pointNamespace seeds the name-based UUIDs derived from chunk ids.
var pointNamespace = uuid.MustParse("6f1f6a4e-3b0c-4c52-9d7e-5a0f2b8e1c3d")

// Config holds configuration for the Qdrant driver.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool

	// Collection defaults to DefaultCollectionName.
	Collection string

	// Dimensions is the vector size used when the collection is created.
	Dimensions uint64
}

// Driver implements vector.Driver on Qdrant.
type Driver struct {
	client     *qc.Client
	collection string
	logger     *slog.Logger
}

// PointID maps a chunk id to its stable Qdrant point UUID.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

// NewDriver connects to Qdrant and creates the collection with cosine
// distance when it does not exist.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.Host == "" {
		return nil, errors.New("qdrant host is required")
	}
	if c.Dimensions == 0 {
		return nil, errors.New("qdrant embedding dimensions cannot be 0, must be configured")
	}

	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	collection := c.Collection
	if collection == "" {
		collection = DefaultCollectionName
	}

	client, err := qc.NewClient(&qc.Config{
		Host:   c.Host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vector.ErrConnection, err)
	}

	exists, err := client.CollectionExists(ctx, collection)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: checking collection %q: %v", vector.ErrConnection, collection, err)
	}
	if !exists {
		err := client.CreateCollection(ctx, &qc.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qc.NewVectorsConfig(&qc.VectorParams{
				Size:     c.Dimensions,
				Distance: qc.Distance_Cosine,
			}),
		})
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("creating collection %q: %w", collection, err)
		}
	}

	logger.Info("connected to Qdrant",
		"host", c.Host,
		"port", port,
		"collection", collection,
		"created", !exists,
	)

	return &Driver{
		client:     client,
		collection: collection,
		logger:     logger,
	}, nil
}

func toPayload(id string, m vector.Metadata) map[string]*qc.Value {
	return qc.NewValueMap(map[string]any{
		chunkIDKey:        id,
		"document_id":     m.DocumentID,
		"title":           m.Title,
		"filename":        m.Filename,
		"chunk_index":     int64(m.ChunkIndex),
		"text":            m.Text,
		"start_word":      int64(m.StartWord),
		"end_word":        int64(m.EndWord),
		"num_pages":       int64(m.NumPages),
		"embedding_model": m.EmbeddingModel,
	})
}

func fromPayload(p map[string]*qc.Value) (string, vector.Metadata) {
	str := func(k string) string { return p[k].GetStringValue() }
	num := func(k string) int { return int(p[k].GetIntegerValue()) }

	return str(chunkIDKey), vector.Metadata{
		DocumentID:     str("document_id"),
		Title:          str("title"),
		Filename:       str("filename"),
		ChunkIndex:     num("chunk_index"),
		Text:           str("text"),
		StartWord:      num("start_word"),
		EndWord:        num("end_word"),
		NumPages:       num("num_pages"),
		EmbeddingModel: str("embedding_model"),
	}
}

func pointIDs(ids []string) []*qc.PointId {
	out := make([]*qc.PointId, len(ids))
	for i, id := range ids {
		out[i] = qc.NewID(PointID(id))
	}
	return out
}

// Upsert stores entries, replacing points with the same chunk id.
func (d *Driver) Upsert(ctx context.Context, entries []vector.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := vector.ValidateEntries(entries); err != nil {
		return err
	}

	points := make([]*qc.PointStruct, len(entries))
	for i, e := range entries {
		points[i] = &qc.PointStruct{
			Id:      qc.NewID(PointID(e.ID)),
			Vectors: qc.NewVectors(e.Embedding...),
			Payload: toPayload(e.ID, e.Metadata.Truncated()),
		}
	}

	wait := true
	if _, err := d.client.Upsert(ctx, &qc.UpsertPoints{
		CollectionName: d.collection,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	d.logger.Debug("upserted entries to qdrant", "count", len(entries))
	return nil
}

// Query finds the topK most similar entries. Scores are cosine similarities.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}
	limit := uint64(topK)

	points, err := d.client.Query(ctx, &qc.QueryPoints{
		CollectionName: d.collection,
		Query:          qc.NewQuery(embedding...),
		Limit:          &limit,
		WithPayload:    qc.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, p := range points {
		id, meta := fromPayload(p.GetPayload())
		results = append(results, vector.QueryResult{
			ID:       id,
			Score:    p.GetScore(),
			Metadata: meta,
		})
	}

	d.logger.Debug("queried qdrant", "results", len(results))
	return results, nil
}

// Get retrieves entries by their chunk ids.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Entry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	points, err := d.client.Get(ctx, &qc.GetPoints{
		CollectionName: d.collection,
		Ids:            pointIDs(ids),
		WithPayload:    qc.NewWithPayload(true),
		WithVectors:    qc.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("getting points: %w", err)
	}

	entries := make([]vector.Entry, 0, len(points))
	for _, p := range points {
		id, meta := fromPayload(p.GetPayload())
		entries = append(entries, vector.Entry{
			ID:        id,
			Embedding: p.GetVectors().GetVector().GetData(),
			Metadata:  meta,
		})
	}
	return entries, nil
}

// Delete removes entries by their chunk ids.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	wait := true
	if _, err := d.client.Delete(ctx, &qc.DeletePoints{
		CollectionName: d.collection,
		Wait:           &wait,
		Points:         qc.NewPointsSelector(pointIDs(ids)...),
	}); err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}

	d.logger.Debug("deleted entries from qdrant", "count", len(ids))
	return nil
}

// Count returns the exact number of points in the collection.
func (d *Driver) Count(ctx context.Context) (int, error) {
	exact := true
	n, err := d.client.Count(ctx, &qc.CountPoints{
		CollectionName: d.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}
	return int(n), nil
}

// Close closes the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

var _ vector.Driver = (*Driver)(nil)
