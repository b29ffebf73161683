package testutils

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/papercomputeco/physrag/pkg/embeddings"
)

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "by": true, "do": true,
	"how": true, "in": true, "is": true, "of": true, "the": true, "to": true,
	"what": true, "why": true, "could": true, "they": true,
}

// KeywordEmbedder hashes the content words of a text into a bag-of-words
// vector, so texts sharing vocabulary score close under cosine similarity.
type KeywordEmbedder struct {
	Dimensions int
	ModelName  string
}

func NewKeywordEmbedder(dimensions int) *KeywordEmbedder {
	return &KeywordEmbedder{Dimensions: dimensions, ModelName: "keyword-embed"}
}

func (k *KeywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return k.vector(text), nil
}

func (k *KeywordEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = k.vector(t)
	}
	return out, nil
}

func (k *KeywordEmbedder) vector(text string) []float32 {
	v := make([]float32, k.Dimensions)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.TrimFunc(word, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if word == "" || stopWords[word] {
			continue
		}
		if len(word) > 3 {
			word = strings.TrimSuffix(word, "s")
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		v[h.Sum32()%uint32(k.Dimensions)]++
	}
	return v
}

func (k *KeywordEmbedder) Model() string {
	return k.ModelName
}

func (k *KeywordEmbedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*KeywordEmbedder)(nil)
