package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "moneta/internal/errors"
	"moneta/internal/llm"
	"moneta/internal/models"
)

// embedBatchSize bounds how many texts go to the embedding API per call.
const embedBatchSize = 100

// SimilarTransaction is a semantic search hit.
type SimilarTransaction struct {
	Transaction models.Transaction
	Similarity  float64
}

// embeddingService generates and searches transaction embeddings.
type embeddingService struct {
	db       *gorm.DB
	embedder llm.Embedder
}

// NewEmbeddingService creates a new EmbeddingServicer. embedder may be
// nil, in which case every operation reports the capability as absent.
func NewEmbeddingService(db *gorm.DB, embedder llm.Embedder) EmbeddingServicer {
	return &embeddingService{db: db, embedder: embedder}
}

// Available reports whether an embedding backend is configured.
func (s *embeddingService) Available() bool {
	return s.embedder != nil
}

// TextForTransaction builds the canonical text embedded for a transaction.
func TextForTransaction(tx *models.Transaction) string {
	merchant := "unknown"
	category := catchAllCategory
	if tx.Merchant != nil {
		merchant = tx.Merchant.NormalizedName
		category = tx.Merchant.Category
	}
	return fmt.Sprintf("%s | %s | %s | %s GEL | %s | %s",
		merchant,
		category,
		tx.Direction,
		tx.AmountGEL.StringFixed(2),
		tx.Date.Format("2006-01-02"),
		strings.TrimSpace(tx.DescriptionRaw),
	)
}

// GenerateForTransactions embeds the given transactions in batches and
// upserts one vector per transaction. progress, when non-nil, receives
// the running done count after every batch.
func (s *embeddingService) GenerateForTransactions(ctx context.Context, transactions []models.Transaction, progress func(done, total int)) (int, error) {
	if s.embedder == nil || len(transactions) == 0 {
		return 0, nil
	}

	generated := 0
	for start := 0; start < len(transactions); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(transactions) {
			end = len(transactions)
		}
		batch := transactions[start:end]

		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = TextForTransaction(&batch[i])
		}

		vectors, err := s.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return generated, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		rows := make([]models.Embedding, len(batch))
		for i := range batch {
			rows[i] = models.Embedding{
				TransactionID: batch[i].ID,
				Vector:        pgvector.NewVector(vectors[i]),
			}
		}
		if err := s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}},
			UpdateAll: true,
		}).Create(&rows).Error; err != nil {
			return generated, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		generated += len(batch)
		if progress != nil {
			progress(generated, len(transactions))
		}
	}
	return generated, nil
}

// SearchSimilar embeds the query and returns the topK most similar
// transactions, optionally restricted to a date range. On Postgres the
// pgvector cosine operator does the ranking; elsewhere the candidate
// vectors are scanned in process.
func (s *embeddingService) SearchSimilar(ctx context.Context, query string, topK int, from, to *time.Time) ([]SimilarTransaction, error) {
	if s.embedder == nil {
		return nil, apperrors.WithMessage(apperrors.ErrChatUnavailable, "semantic search is not configured")
	}

	vectors, err := s.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	queryVec := vectors[0]

	if s.db.Dialector.Name() == "postgres" {
		return s.searchPostgres(queryVec, topK, from, to)
	}
	return s.searchScan(queryVec, topK, from, to)
}

func (s *embeddingService) searchPostgres(queryVec []float32, topK int, from, to *time.Time) ([]SimilarTransaction, error) {
	db := s.db.Model(&models.Embedding{}).
		Select("embeddings.transaction_id, 1 - (embeddings.vector <=> ?) AS similarity", pgvector.NewVector(queryVec)).
		Joins("JOIN transactions ON transactions.id = embeddings.transaction_id")
	db = scopeTransactionDates(db, from, to)

	var hits []struct {
		TransactionID uint
		Similarity    float64
	}
	err := db.Clauses(clause.OrderBy{Expression: clause.Expr{
		SQL:  "embeddings.vector <=> ?",
		Vars: []interface{}{pgvector.NewVector(queryVec)},
	}}).
		Limit(topK).
		Find(&hits).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	scores := make(map[uint]float64, len(hits))
	ids := make([]uint, 0, len(hits))
	for _, hit := range hits {
		scores[hit.TransactionID] = hit.Similarity
		ids = append(ids, hit.TransactionID)
	}
	return s.loadHits(ids, scores)
}

func (s *embeddingService) searchScan(queryVec []float32, topK int, from, to *time.Time) ([]SimilarTransaction, error) {
	db := s.db.Model(&models.Embedding{}).
		Joins("JOIN transactions ON transactions.id = embeddings.transaction_id")
	db = scopeTransactionDates(db, from, to)

	var rows []models.Embedding
	if err := db.Select("embeddings.*").Find(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	type scored struct {
		id         uint
		similarity float64
	}
	candidates := make([]scored, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, scored{
			id:         row.TransactionID,
			similarity: cosineSimilarity(queryVec, row.Vector.Slice()),
		})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].similarity > candidates[j].similarity })
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	scores := make(map[uint]float64, len(candidates))
	ids := make([]uint, 0, len(candidates))
	for _, candidate := range candidates {
		scores[candidate.id] = candidate.similarity
		ids = append(ids, candidate.id)
	}
	return s.loadHits(ids, scores)
}

func (s *embeddingService) loadHits(ids []uint, scores map[uint]float64) ([]SimilarTransaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var transactions []models.Transaction
	if err := s.db.Preload("Merchant").Where("id IN ?", ids).Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	byID := make(map[uint]models.Transaction, len(transactions))
	for _, tx := range transactions {
		byID[tx.ID] = tx
	}

	hits := make([]SimilarTransaction, 0, len(ids))
	for _, id := range ids {
		if tx, ok := byID[id]; ok {
			hits = append(hits, SimilarTransaction{Transaction: tx, Similarity: scores[id]})
		}
	}
	return hits, nil
}

func scopeTransactionDates(db *gorm.DB, from, to *time.Time) *gorm.DB {
	if from != nil {
		db = db.Where("transactions.date >= ?", *from)
	}
	if to != nil {
		db = db.Where("transactions.date <= ?", *to)
	}
	return db
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
