package db

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"support-agent/internal/models"
)

// Document is one indexed knowledge chunk in the pgvector-backed store.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	ID            int64     `bun:"id,pk,autoincrement"`
	Content       string    `bun:"content,notnull"`
	Source        string    `bun:"source,notnull"`
	ChunkID       int       `bun:"chunk_id,notnull"`
	Origin        string    `bun:"origin,notnull"`
	Embedding     []float32 `bun:"embedding,notnull,type:vector(768)"`
	Distance      float32   `bun:"distance,scanonly"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func ConnectDB(dsn, key string) (*sql.DB, error) {
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn+"?sslmode=disable"), pgdriver.WithPassword(key))), nil
}

func InitDB(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*Document)(nil)).IfNotExists().Exec(ctx)
	return err
}

// drop table documents

func DropDocuments(ctx context.Context, db *bun.DB) error {
	_, err := db.NewDropTable().Model((*Document)(nil)).IfExists().Exec(ctx)
	return err
}

// Embedder mirrors the langchaingo embedder surface; the same embedder must
// feed query and index time so the <-> distances stay comparable.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Index adapts the documents table to the knowledge retriever contract.
type Index struct {
	db       *bun.DB
	embedder Embedder
}

func NewIndex(db *bun.DB, embedder Embedder) *Index {
	return &Index{db: db, embedder: embedder}
}

// Index embeds and stores chunks with their provenance columns.
func (i *Index) Index(ctx context.Context, chunks []models.Chunk) error {
	for _, chunk := range chunks {
		embedding, err := i.embedder.EmbedQuery(ctx, chunk.Content)
		if err != nil {
			return err
		}
		doc := &Document{
			Content:   chunk.Content,
			Source:    chunk.Source,
			ChunkID:   chunk.ChunkID,
			Origin:    chunk.Origin,
			Embedding: embedding,
		}
		if _, err := i.db.NewInsert().Model(doc).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Query returns the topK nearest chunks ordered by pgvector distance.
func (i *Index) Query(ctx context.Context, query string, topK int) ([]models.ScoredChunk, error) {
	queryEmbedding, err := i.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	var docs []Document
	err = i.db.NewSelect().
		Model(&docs).
		Column("content", "source", "chunk_id", "origin").
		ColumnExpr("embedding <-> ? AS distance", queryEmbedding).
		OrderExpr("embedding <-> ?", queryEmbedding).
		Limit(topK).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	scored := make([]models.ScoredChunk, 0, len(docs))
	for _, doc := range docs {
		scored = append(scored, models.ScoredChunk{
			Chunk: models.Chunk{
				Content: doc.Content,
				Source:  doc.Source,
				ChunkID: doc.ChunkID,
				Origin:  doc.Origin,
			},
			Distance: doc.Distance,
		})
	}
	return scored, nil
}
