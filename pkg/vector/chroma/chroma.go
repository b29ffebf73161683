// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/papercomputeco/physrag/pkg/retry"
	"github.com/papercomputeco/physrag/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection name for chunk embeddings.
	DefaultCollectionName = "physics-rag"

	collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"
)

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL        string
	collectionName string
	collectionID   string
	httpClient     *http.Client
	logger         *slog.Logger
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// MaxRetries bounds connection attempts while Chroma starts up.
	MaxRetries int

	// RetryDelay is the first backoff delay, doubled per attempt up to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// NewDriver creates a new Chroma vector driver, getting or creating the
// collection with cosine distance.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, errors.New("chroma URL is required")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	d := &Driver{
		baseURL:        c.URL,
		collectionName: collectionName,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	policy := retry.Policy{
		MaxAttempts:  c.MaxRetries,
		InitialDelay: c.RetryDelay,
		MaxDelay:     c.MaxRetryDelay,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			logger.Warn("chroma not ready, retrying",
				"url", c.URL,
				"attempt", attempt,
				"delay", delay,
				"error", err,
			)
		},
	}

	collectionID, err := retry.Value(context.Background(), policy, d.getOrCreateCollection)
	if err != nil {
		return nil, fmt.Errorf("%w: getting or creating collection %q: %v", vector.ErrConnection, collectionName, err)
	}
	d.collectionID = collectionID

	logger.Info("connected to Chroma",
		"url", c.URL,
		"collection", collectionName,
		"collection_id", collectionID,
	)

	return d, nil
}

// getOrCreateCollection gets an existing collection or creates a new one.
func (d *Driver) getOrCreateCollection(ctx context.Context) (string, error) {
	var collection chromaCollection
	status, err := d.do(ctx, http.MethodGet, collectionsPath+"/"+d.collectionName, nil, &collection)
	if err == nil {
		return collection.ID, nil
	}
	if status >= http.StatusInternalServerError || status == 0 {
		return "", err
	}

	// Collection doesn't exist, create it
	_, err = d.do(ctx, http.MethodPost, collectionsPath, chromaCreateCollectionRequest{
		Name:     d.collectionName,
		Metadata: map[string]any{"hnsw:space": "cosine"},
	}, &collection)
	if err != nil {
		return "", fmt.Errorf("creating collection: %w", err)
	}
	return collection.ID, nil
}

// do sends a JSON request and decodes a JSON response into out.
// It returns the HTTP status, or 0 when no response was received.
func (d *Driver) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: sending request: %v", vector.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, fmt.Errorf("chroma returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (d *Driver) recordPath(op string) string {
	return collectionsPath + "/" + d.collectionID + "/" + op
}

// toChromaMetadata flattens Metadata into Chroma's scalar metadata map.
func toChromaMetadata(m vector.Metadata) (map[string]any, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func fromChromaMetadata(in map[string]any) vector.Metadata {
	var m vector.Metadata
	if in == nil {
		return m
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return m
	}
	_ = json.Unmarshal(raw, &m)
	return m
}

// Upsert stores entries with their embeddings, replacing existing IDs.
func (d *Driver) Upsert(ctx context.Context, entries []vector.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := vector.ValidateEntries(entries); err != nil {
		return err
	}

	req := chromaUpsertRequest{
		IDs:        make([]string, len(entries)),
		Embeddings: make([][]float32, len(entries)),
		Metadatas:  make([]map[string]any, len(entries)),
		Documents:  make([]string, len(entries)),
	}

	for i, e := range entries {
		meta := e.Metadata.Truncated()
		m, err := toChromaMetadata(meta)
		if err != nil {
			return fmt.Errorf("encoding metadata for %s: %w", e.ID, err)
		}
		req.IDs[i] = e.ID
		req.Embeddings[i] = e.Embedding
		req.Metadatas[i] = m
		req.Documents[i] = meta.Text
	}

	if _, err := d.do(ctx, http.MethodPost, d.recordPath("upsert"), req, nil); err != nil {
		return fmt.Errorf("upserting records: %w", err)
	}

	d.logger.Debug("upserted entries to chroma", "count", len(entries))
	return nil
}

// Query finds the topK most similar entries to the given embedding.
// Scores are cosine similarities.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	var queryResp chromaQueryResponse
	if _, err := d.do(ctx, http.MethodPost, d.recordPath("query"), chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        topK,
		Include:         []string{"metadatas", "distances"},
	}, &queryResp); err != nil {
		return nil, fmt.Errorf("querying: %w", err)
	}

	results := []vector.QueryResult{}

	// Process first group (we only query with one embedding)
	if len(queryResp.IDs) == 0 || len(queryResp.IDs[0]) == 0 {
		return results, nil
	}

	ids := queryResp.IDs[0]

	var distances []float32
	if len(queryResp.Distances) > 0 {
		distances = queryResp.Distances[0]
	}

	var metadatas []map[string]any
	if len(queryResp.Metadatas) > 0 {
		metadatas = queryResp.Metadatas[0]
	}

	for i, id := range ids {
		result := vector.QueryResult{ID: id}
		if i < len(metadatas) {
			result.Metadata = fromChromaMetadata(metadatas[i])
		}
		if i < len(distances) {
			result.Score = 1 - distances[i]
		}
		results = append(results, result)
	}

	d.logger.Debug("queried chroma", "results", len(results))
	return results, nil
}

// Get retrieves entries by their IDs.
func (d *Driver) Get(ctx context.Context, ids []string) ([]vector.Entry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var getResp chromaGetResponse
	if _, err := d.do(ctx, http.MethodPost, d.recordPath("get"), chromaGetRequest{
		IDs:     ids,
		Include: []string{"metadatas", "embeddings"},
	}, &getResp); err != nil {
		return nil, fmt.Errorf("getting records: %w", err)
	}

	entries := make([]vector.Entry, len(getResp.IDs))
	for i, id := range getResp.IDs {
		entries[i].ID = id
		if i < len(getResp.Metadatas) {
			entries[i].Metadata = fromChromaMetadata(getResp.Metadatas[i])
		}
		if i < len(getResp.Embeddings) {
			entries[i].Embedding = getResp.Embeddings[i]
		}
	}
	return entries, nil
}

// Delete removes entries by their IDs.
func (d *Driver) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if _, err := d.do(ctx, http.MethodPost, d.recordPath("delete"), chromaDeleteRequest{IDs: ids}, nil); err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}

	d.logger.Debug("deleted entries from chroma", "count", len(ids))
	return nil
}

// Count returns the number of records in the collection.
func (d *Driver) Count(ctx context.Context) (int, error) {
	var n int
	if _, err := d.do(ctx, http.MethodGet, d.recordPath("count"), nil, &n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

var _ vector.Driver = (*Driver)(nil)
