package chroma_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/physrag/pkg/logger"
	"github.com/papercomputeco/physrag/pkg/vector"
	"github.com/papercomputeco/physrag/pkg/vector/chroma"
)

const collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"

var _ = Describe("Driver", func() {
	var log *slog.Logger

	BeforeEach(func() {
		log = logger.Nop()
	})

	Describe("NewDriver", func() {
		It("should return an error when URL is empty", func() {
			_, err := chroma.NewDriver(chroma.Config{URL: ""}, log)
			Expect(err).To(MatchError(ContainSubstring("chroma URL is required")))
		})

		It("should create the collection with cosine distance when missing", func() {
			var created map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodGet {
					http.Error(w, "not found", http.StatusNotFound)
					return
				}
				json.NewDecoder(r.Body).Decode(&created)
				json.NewEncoder(w).Encode(map[string]string{"id": "cid", "name": "physics-rag"})
			}))
			defer server.Close()

			_, err := chroma.NewDriver(chroma.Config{URL: server.URL}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(created["name"]).To(Equal("physics-rag"))
			Expect(created["metadata"]).To(HaveKeyWithValue("hnsw:space", "cosine"))
		})

		It("should succeed after retrying when Chroma becomes available", func() {
			var attempts atomic.Int32

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if attempts.Add(1) <= 4 {
					http.Error(w, "service unavailable", http.StatusServiceUnavailable)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]string{"id": "test-collection-id", "name": "physics-rag"})
			}))
			defer server.Close()

			driver, err := chroma.NewDriver(chroma.Config{
				URL:           server.URL,
				MaxRetries:    5,
				RetryDelay:    10 * time.Millisecond,
				MaxRetryDelay: 50 * time.Millisecond,
			}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).NotTo(BeNil())
			Expect(attempts.Load()).To(BeNumerically(">=", int32(5)))
		})

		It("should return an error after exhausting all retries", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			}))
			defer server.Close()

			_, err := chroma.NewDriver(chroma.Config{
				URL:           server.URL,
				MaxRetries:    3,
				RetryDelay:    10 * time.Millisecond,
				MaxRetryDelay: 50 * time.Millisecond,
			}, log)
			Expect(err).To(MatchError(vector.ErrConnection))
			Expect(err.Error()).To(ContainSubstring("after 3 attempts"))
		})
	})

	Describe("records", func() {
		var (
			server   *httptest.Server
			driver   *chroma.Driver
			mu       sync.Mutex
			upserted map[string]any
			ctx      context.Context
		)

		BeforeEach(func() {
			ctx = context.Background()
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				switch {
				case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/count"):
					w.Write([]byte("42"))
				case r.Method == http.MethodGet:
					json.NewEncoder(w).Encode(map[string]string{"id": "cid", "name": "physics-rag"})
				case strings.HasSuffix(r.URL.Path, "/cid/upsert"):
					mu.Lock()
					json.NewDecoder(r.Body).Decode(&upserted)
					mu.Unlock()
					w.Write([]byte("{}"))
				case strings.HasSuffix(r.URL.Path, "/cid/query"):
					json.NewEncoder(w).Encode(map[string]any{
						"ids":       [][]string{{"a_chunk_0", "b_chunk_2"}},
						"distances": [][]float32{{0.1, 0.4}},
						"metadatas": [][]map[string]any{{
							{"document_id": "a", "title": "Alpha", "chunk_index": 0, "text": "hello"},
							{"document_id": "b", "title": "Beta", "chunk_index": 2, "text": "world"},
						}},
					})
				case strings.HasSuffix(r.URL.Path, "/cid/delete"):
					w.Write([]byte("{}"))
				default:
					http.NotFound(w, r)
				}
			}))

			var err error
			driver, err = chroma.NewDriver(chroma.Config{URL: server.URL}, log)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			server.Close()
		})

		It("should send ids, embeddings, metadata and documents on upsert", func() {
			err := driver.Upsert(ctx, []vector.Entry{{
				ID:        "a_chunk_0",
				Embedding: []float32{0.5, 0.5},
				Metadata:  vector.Metadata{DocumentID: "a", Title: "Alpha", Text: "hello", ChunkIndex: 0},
			}})
			Expect(err).NotTo(HaveOccurred())

			mu.Lock()
			defer mu.Unlock()
			Expect(upserted["ids"]).To(ConsistOf("a_chunk_0"))
			Expect(upserted["documents"]).To(ConsistOf("hello"))
			metas := upserted["metadatas"].([]any)
			Expect(metas[0]).To(HaveKeyWithValue("title", "Alpha"))
		})

		It("should convert distances to cosine similarity", func() {
			results, err := driver.Query(ctx, []float32{1, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("a_chunk_0"))
			Expect(results[0].Score).To(BeNumerically("~", 0.9, 1e-6))
			Expect(results[1].Metadata.Title).To(Equal("Beta"))
			Expect(results[1].Metadata.ChunkIndex).To(Equal(2))
		})

		It("should count records", func() {
			n, err := driver.Count(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(42))
		})

		It("should delete records", func() {
			Expect(driver.Delete(ctx, []string{"a_chunk_0"})).To(Succeed())
		})
	})
})
