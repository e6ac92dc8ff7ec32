package chromemdb

import (
	"context"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"support-agent/internal/models"
)

// Embedder produces the embedding vector for a piece of text. Both the base
// knowledge index and session upload indexes must use the same embedder so
// distance scores stay comparable across indexes.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Manager encapsulates one chromem-go database, either persistent (base
// knowledge) or in-memory (session uploads).
type Manager struct {
	db    *chromem.DB
	embed chromem.EmbeddingFunc
}

// NewPersistentManager opens (or creates) an on-disk chromem database.
func NewPersistentManager(dbPath string, embedder Embedder) (*Manager, error) {
	db, err := chromem.NewPersistentDB(dbPath, false)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %v", err)
	}
	return &Manager{db: db, embed: embeddingFunc(embedder)}, nil
}

// NewMemoryManager creates an ephemeral in-memory chromem database. Session
// upload indexes live here and disappear with the session.
func NewMemoryManager(embedder Embedder) *Manager {
	return &Manager{db: chromem.NewDB(), embed: embeddingFunc(embedder)}
}

func embeddingFunc(embedder Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}
}

// GetOrCreateIndex returns the named collection wrapped as an Index.
func (m *Manager) GetOrCreateIndex(name string) (*Index, error) {
	c, err := m.db.GetOrCreateCollection(name, nil, m.embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}
	return &Index{collection: c}, nil
}

// Index is one queryable similarity index over embedded chunks.
type Index struct {
	collection *chromem.Collection
}

// Index adds chunks with their provenance metadata to the collection.
func (i *Index) Index(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]chromem.Document, 0, len(chunks))
	for _, chunk := range chunks {
		docs = append(docs, chromem.Document{
			ID:      fmt.Sprintf("%s-%d", chunk.Source, chunk.ChunkID),
			Content: chunk.Content,
			Metadata: map[string]string{
				"source":   chunk.Source,
				"chunk_id": fmt.Sprintf("%d", chunk.ChunkID),
				"origin":   chunk.Origin,
			},
		})
	}
	if err := i.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

// Query returns up to topK nearest chunks, ascending by distance. chromem
// reports cosine similarity (higher is better); we convert to
// distance = 1 - similarity so lower always means more relevant.
func (i *Index) Query(ctx context.Context, query string, topK int) ([]models.ScoredChunk, error) {
	count := i.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}
	results, err := i.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryText: query,
		NResults:  topK,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	scored := make([]models.ScoredChunk, 0, len(results))
	for _, res := range results {
		scored = append(scored, models.ScoredChunk{
			Chunk:    chunkFromResult(res),
			Distance: 1 - res.Similarity,
		})
	}
	return scored, nil
}

// Count reports how many chunks the index holds.
func (i *Index) Count() int {
	return i.collection.Count()
}

func chunkFromResult(res chromem.Result) models.Chunk {
	chunk := models.Chunk{
		Content: res.Content,
		Source:  res.Metadata["source"],
		Origin:  res.Metadata["origin"],
	}
	if _, err := fmt.Sscanf(res.Metadata["chunk_id"], "%d", &chunk.ChunkID); err != nil {
		log.Debug().Str("id", res.ID).Msg("result missing chunk_id metadata")
	}
	return chunk
}
