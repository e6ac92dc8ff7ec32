package models

// Origin values recorded in chunk metadata so citations can say where a
// passage came from.
const (
	OriginBase   = "base"
	OriginUpload = "upload"
)

// Chunk is one bounded slice of source text with provenance metadata.
// Immutable once created.
type Chunk struct {
	Content string
	Source  string
	ChunkID int
	Origin  string
}

// ScoredChunk pairs a chunk with its embedding distance to a query.
// Lower distance means more relevant.
type ScoredChunk struct {
	Chunk    Chunk
	Distance float32
}

// OriginLabel returns the human-readable citation label for an origin tag.
func OriginLabel(origin string) string {
	switch origin {
	case OriginUpload:
		return "Uploaded Document"
	default:
		return "Knowledge Base"
	}
}
