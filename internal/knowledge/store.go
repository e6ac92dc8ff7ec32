package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"support-agent/internal/models"
)

// NoResultsSentinel is returned instead of an empty string when neither index
// has anything relevant, so the model gets an unambiguous escalation signal.
const NoResultsSentinel = "No relevant documentation was found for this query."

const citationSeparator = "\n\n---\n\n"

const (
	perIndexTopK = 3
	mergeLimit   = 5
)

// Retriever is one queryable similarity index over embedded chunks.
// Both the base knowledge index and the session upload index implement it.
type Retriever interface {
	Index(ctx context.Context, chunks []models.Chunk) error
	Query(ctx context.Context, query string, topK int) ([]models.ScoredChunk, error)
}

// SessionFactory materializes the session upload index the first time a
// document is uploaded.
type SessionFactory func() (Retriever, error)

// Store holds the long-lived base knowledge index and, once a session has
// uploaded a document, an ephemeral session index. The two are never merged
// at storage time; query results are merged explicitly.
type Store struct {
	base       Retriever
	session    Retriever
	newSession SessionFactory
}

// NewStore wires a store around an optional base index. base may be nil when
// the knowledge base has not been ingested yet; queries then rely on session
// uploads alone.
func NewStore(base Retriever, factory SessionFactory) *Store {
	return &Store{base: base, newSession: factory}
}

// Upload adds user-provided chunks to the session index, creating it on the
// first call. Chunks are stamped with the upload origin.
func (s *Store) Upload(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("ingestion failed: document produced no chunks")
	}
	if s.session == nil {
		session, err := s.newSession()
		if err != nil {
			return fmt.Errorf("ingestion failed: %w", err)
		}
		s.session = session
	}
	for i := range chunks {
		chunks[i].Origin = models.OriginUpload
	}
	if err := s.session.Index(ctx, chunks); err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	return nil
}

// Query fetches up to perIndexTopK results from each index, merges them into
// a single order ascending by distance, and truncates to mergeLimit. Scores
// are comparable across indexes because both use the same embedder.
func (s *Store) Query(ctx context.Context, query string) ([]models.ScoredChunk, error) {
	var merged []models.ScoredChunk

	if s.base != nil {
		results, err := s.base.Query(ctx, query, perIndexTopK)
		if err != nil {
			return nil, err
		}
		merged = append(merged, results...)
	} else {
		log.Warn().Msg("base knowledge index unavailable")
	}

	if s.session != nil {
		results, err := s.session.Query(ctx, query, perIndexTopK)
		if err != nil {
			return nil, err
		}
		merged = append(merged, results...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Distance < merged[j].Distance
	})
	if len(merged) > mergeLimit {
		merged = merged[:mergeLimit]
	}
	return merged, nil
}

// Search runs the merged query and renders the results as citation blocks.
// An empty result set yields the sentinel, never an empty string.
func (s *Store) Search(ctx context.Context, query string) (string, error) {
	results, err := s.Query(ctx, query)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return NoResultsSentinel, nil
	}
	return renderCitations(results), nil
}

func renderCitations(results []models.ScoredChunk) string {
	blocks := make([]string, 0, len(results))
	for _, res := range results {
		blocks = append(blocks, fmt.Sprintf(
			"[Source: %s, Chunk: %d, Origin: %s, Relevance: %.2f]\n%s",
			res.Chunk.Source,
			res.Chunk.ChunkID,
			models.OriginLabel(res.Chunk.Origin),
			res.Distance,
			res.Chunk.Content,
		))
	}
	return strings.Join(blocks, citationSeparator)
}
