package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/KingOfTheAce2/BEAR-AI-sub001/config"
	"github.com/KingOfTheAce2/BEAR-AI-sub001/types"
)

// DocumentRecord is the GORM row for a legal document. Slice and struct
// fields are stored as JSON text so the schema works across sqlite,
// postgres and mysql.
type DocumentRecord struct {
	ID           string    `gorm:"primaryKey;size:128"`
	Title        string    `gorm:"size:512"`
	Content      string    `gorm:"type:text"`
	Jurisdiction string    `gorm:"size:128;index"`
	DocType      string    `gorm:"size:32;index"`
	LastUpdated  time.Time `gorm:"index"`
	CitationsRaw string    `gorm:"type:text"`
	MetaRaw      string    `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName overrides the GORM default.
func (DocumentRecord) TableName() string { return "legal_documents" }

// ChunkRecord is the GORM row for a derived chunk.
type ChunkRecord struct {
	ID                string `gorm:"primaryKey;size:160"`
	DocumentID        string `gorm:"size:128;index"`
	Content           string `gorm:"type:text"`
	EmbeddingRaw      string `gorm:"type:text"`
	Position          int
	TokenCount        int
	OverlapTokens     int
	ConceptsRaw       string `gorm:"type:text"`
	CitationsRaw      string `gorm:"type:text"`
	Confidence        float64
	TemporalRelevance float64
	CreatedAt         time.Time
}

// TableName overrides the GORM default.
func (ChunkRecord) TableName() string { return "document_chunks" }

// DBStore persists the corpus through GORM.
type DBStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// OpenDatabase opens a GORM connection for the configured driver.
// Supported drivers: sqlite, postgres, mysql.
func OpenDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN())
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	case "mysql":
		dialector = mysql.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres, mysql)", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	logger.Info("corpus database connected", zap.String("driver", cfg.Driver))
	return db, nil
}

// NewDBStore wraps an open GORM handle and migrates the corpus schema.
func NewDBStore(db *gorm.DB, logger *zap.Logger) (*DBStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&DocumentRecord{}, &ChunkRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}
	return &DBStore{
		db:     db,
		logger: logger.With(zap.String("component", "corpus_db")),
	}, nil
}

// PutDocument implements Store. The document upsert and chunk swap run
// in one transaction.
func (s *DBStore) PutDocument(ctx context.Context, doc *types.LegalDocument, chunks []types.Chunk) error {
	if doc == nil || doc.ID == "" {
		return types.NewError(types.ErrInvalidDocument, "corpus: document must have an ID")
	}

	rec, err := toDocumentRecord(doc)
	if err != nil {
		return err
	}
	chunkRecs := make([]ChunkRecord, 0, len(chunks))
	for i := range chunks {
		cr, err := toChunkRecord(&chunks[i])
		if err != nil {
			return err
		}
		chunkRecs = append(chunkRecs, cr)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(rec).Error; err != nil {
			return fmt.Errorf("save document %s: %w", doc.ID, err)
		}
		if err := tx.Where("document_id = ?", doc.ID).Delete(&ChunkRecord{}).Error; err != nil {
			return fmt.Errorf("clear chunks for %s: %w", doc.ID, err)
		}
		if len(chunkRecs) > 0 {
			if err := tx.Create(&chunkRecs).Error; err != nil {
				return fmt.Errorf("insert chunks for %s: %w", doc.ID, err)
			}
		}
		return nil
	})
}

// Document implements Store.
func (s *DBStore) Document(ctx context.Context, id string) (*types.LegalDocument, error) {
	var rec DocumentRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", id, err)
	}
	return fromDocumentRecord(&rec)
}

// RemoveDocument implements Store.
func (s *DBStore) RemoveDocument(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&DocumentRecord{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete document %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("document_id = ?", id).Delete(&ChunkRecord{}).Error; err != nil {
			return fmt.Errorf("delete chunks for %s: %w", id, err)
		}
		return nil
	})
}

// Documents implements Store.
func (s *DBStore) Documents(ctx context.Context) ([]*types.LegalDocument, error) {
	var recs []DocumentRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	out := make([]*types.LegalDocument, 0, len(recs))
	for i := range recs {
		doc, err := fromDocumentRecord(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// DocumentChunks implements Store.
func (s *DBStore) DocumentChunks(ctx context.Context, documentID string) ([]types.Chunk, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&DocumentRecord{}).Where("id = ?", documentID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check document %s: %w", documentID, err)
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	var recs []ChunkRecord
	if err := s.db.WithContext(ctx).Where("document_id = ?", documentID).Order("position").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("load chunks for %s: %w", documentID, err)
	}
	return fromChunkRecords(recs)
}

// Chunks implements Store.
func (s *DBStore) Chunks(ctx context.Context) ([]types.Chunk, error) {
	var recs []ChunkRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	return fromChunkRecords(recs)
}

// Chunk implements Store.
func (s *DBStore) Chunk(ctx context.Context, id string) (*types.Chunk, error) {
	var rec ChunkRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load chunk %s: %w", id, err)
	}
	c, err := fromChunkRecord(&rec)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Stats implements Store.
func (s *DBStore) Stats(ctx context.Context) (int, int, error) {
	var docs, chunks int64
	if err := s.db.WithContext(ctx).Model(&DocumentRecord{}).Count(&docs).Error; err != nil {
		return 0, 0, fmt.Errorf("count documents: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&ChunkRecord{}).Count(&chunks).Error; err != nil {
		return 0, 0, fmt.Errorf("count chunks: %w", err)
	}
	return int(docs), int(chunks), nil
}

func toDocumentRecord(doc *types.LegalDocument) (*DocumentRecord, error) {
	citations, err := json.Marshal(doc.Citations)
	if err != nil {
		return nil, fmt.Errorf("marshal citations: %w", err)
	}
	meta, err := json.Marshal(doc.Meta)
	if err != nil {
		return nil, fmt.Errorf("marshal meta: %w", err)
	}
	return &DocumentRecord{
		ID:           doc.ID,
		Title:        doc.Title,
		Content:      doc.Content,
		Jurisdiction: doc.Jurisdiction,
		DocType:      string(doc.Type),
		LastUpdated:  doc.LastUpdated,
		CitationsRaw: string(citations),
		MetaRaw:      string(meta),
	}, nil
}

func fromDocumentRecord(rec *DocumentRecord) (*types.LegalDocument, error) {
	doc := &types.LegalDocument{
		ID:           rec.ID,
		Title:        rec.Title,
		Content:      rec.Content,
		Jurisdiction: rec.Jurisdiction,
		Type:         types.DocumentType(rec.DocType),
		LastUpdated:  rec.LastUpdated,
	}
	if rec.CitationsRaw != "" {
		if err := json.Unmarshal([]byte(rec.CitationsRaw), &doc.Citations); err != nil {
			return nil, fmt.Errorf("unmarshal citations for %s: %w", rec.ID, err)
		}
	}
	if rec.MetaRaw != "" {
		if err := json.Unmarshal([]byte(rec.MetaRaw), &doc.Meta); err != nil {
			return nil, fmt.Errorf("unmarshal meta for %s: %w", rec.ID, err)
		}
	}
	return doc, nil
}

func toChunkRecord(c *types.Chunk) (ChunkRecord, error) {
	embedding, err := json.Marshal(c.Embedding)
	if err != nil {
		return ChunkRecord{}, fmt.Errorf("marshal embedding: %w", err)
	}
	concepts, err := json.Marshal(c.LegalConcepts)
	if err != nil {
		return ChunkRecord{}, fmt.Errorf("marshal concepts: %w", err)
	}
	citations, err := json.Marshal(c.Citations)
	if err != nil {
		return ChunkRecord{}, fmt.Errorf("marshal citations: %w", err)
	}
	return ChunkRecord{
		ID:                c.ID,
		DocumentID:        c.DocumentID,
		Content:           c.Content,
		EmbeddingRaw:      string(embedding),
		Position:          c.Position,
		TokenCount:        c.TokenCount,
		OverlapTokens:     c.OverlapTokens,
		ConceptsRaw:       string(concepts),
		CitationsRaw:      string(citations),
		Confidence:        c.Confidence,
		TemporalRelevance: c.TemporalRelevance,
	}, nil
}

func fromChunkRecord(rec *ChunkRecord) (*types.Chunk, error) {
	c := &types.Chunk{
		ID:                rec.ID,
		DocumentID:        rec.DocumentID,
		Content:           rec.Content,
		Position:          rec.Position,
		TokenCount:        rec.TokenCount,
		OverlapTokens:     rec.OverlapTokens,
		Confidence:        rec.Confidence,
		TemporalRelevance: rec.TemporalRelevance,
	}
	if rec.ConceptsRaw != "" {
		if err := json.Unmarshal([]byte(rec.ConceptsRaw), &c.LegalConcepts); err != nil {
			return nil, fmt.Errorf("unmarshal concepts for %s: %w", rec.ID, err)
		}
	}
	if rec.CitationsRaw != "" {
		if err := json.Unmarshal([]byte(rec.CitationsRaw), &c.Citations); err != nil {
			return nil, fmt.Errorf("unmarshal citations for %s: %w", rec.ID, err)
		}
	}
	if rec.EmbeddingRaw != "" {
		if err := json.Unmarshal([]byte(rec.EmbeddingRaw), &c.Embedding); err != nil {
			return nil, fmt.Errorf("unmarshal embedding for %s: %w", rec.ID, err)
		}
	}
	return c, nil
}

func fromChunkRecords(recs []ChunkRecord) ([]types.Chunk, error) {
	out := make([]types.Chunk, 0, len(recs))
	for i := range recs {
		c, err := fromChunkRecord(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}
