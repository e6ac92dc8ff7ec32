package chromemdb

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"support-agent/internal/models"
)

// axisEmbedder maps each known topic onto its own axis so similarity
// ordering in tests is deterministic without a real embedding model.
type axisEmbedder struct{}

func (axisEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	switch {
	case strings.Contains(text, "billing"):
		return []float32{1, 0, 0}, nil
	case strings.Contains(text, "sync"):
		return []float32{0, 1, 0}, nil
	default:
		return []float32{0, 0, 1}, nil
	}
}

func testIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewMemoryManager(axisEmbedder{}).GetOrCreateIndex("test_docs")
	require.NoError(t, err)
	return idx
}

func TestIndexCountTracksIngestedChunks(t *testing.T) {
	idx := testIndex(t)
	assert.Zero(t, idx.Count())

	err := idx.Index(context.Background(), []models.Chunk{
		{Content: "billing runs on the first of the month", Source: "manual.txt", ChunkID: 0, Origin: models.OriginBase},
		{Content: "the sync agent retries every 30 seconds", Source: "manual.txt", ChunkID: 1, Origin: models.OriginBase},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Count())
}

func TestIndexQueryOrdersByDistance(t *testing.T) {
	idx := testIndex(t)
	require.NoError(t, idx.Index(context.Background(), []models.Chunk{
		{Content: "billing runs on the first of the month", Source: "manual.txt", ChunkID: 0, Origin: models.OriginBase},
		{Content: "the sync agent retries every 30 seconds", Source: "manual.txt", ChunkID: 1, Origin: models.OriginUpload},
	}))

	// topK above the stored count must clamp instead of erroring.
	results, err := idx.Query(context.Background(), "when does billing run", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "billing runs on the first of the month", results[0].Chunk.Content)
	assert.Less(t, results[0].Distance, results[1].Distance)
	assert.InDelta(t, 0, results[0].Distance, 1e-5)

	// Provenance metadata survives the roundtrip.
	assert.Equal(t, "manual.txt", results[0].Chunk.Source)
	assert.Equal(t, 0, results[0].Chunk.ChunkID)
	assert.Equal(t, models.OriginBase, results[0].Chunk.Origin)
	assert.Equal(t, models.OriginUpload, results[1].Chunk.Origin)
}

func TestIndexQueryEmptyIndex(t *testing.T) {
	results, err := testIndex(t).Query(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}
