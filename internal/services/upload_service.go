package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "moneta/internal/errors"
	"moneta/internal/logger"
	"moneta/internal/models"
	"moneta/internal/parser"
)

// Progress checkpoints per processing phase. Embedding is skipped when no
// backend is configured, in which case resolving runs through to 95.
const (
	progressParsed        = 40
	progressResolved      = 70
	progressResolvedNoEmb = 95
	progressEmbedded      = 95
	progressDone          = 100
)

const insertBatchSize = 200

// uploadService accepts statement files and runs the ingestion pipeline.
type uploadService struct {
	db         *gorm.DB
	parser     *parser.Parser
	merchants  MerchantServicer
	embeddings EmbeddingServicer
	wg         sync.WaitGroup
}

// NewUploadService creates a new UploadServicer.
func NewUploadService(db *gorm.DB, p *parser.Parser, merchants MerchantServicer, embeddings EmbeddingServicer) UploadServicer {
	return &uploadService{
		db:         db,
		parser:     p,
		merchants:  merchants,
		embeddings: embeddings,
	}
}

// Accept validates and parses the file synchronously, then hands the
// parse result to a background worker. Rejected files never create an
// upload record.
func (s *uploadService) Accept(filename string, r io.Reader, generateEmbeddings bool) (*models.Upload, error) {
	if strings.ToLower(filepath.Ext(filename)) != ".xlsx" {
		return nil, apperrors.WithMessage(apperrors.ErrUnsupportedFile, "only .xlsx statements are supported")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(data) == 0 {
		return nil, apperrors.ErrEmptyFile
	}

	result, err := s.parser.Parse(bytes.NewReader(data))
	if err != nil {
		switch {
		case errors.Is(err, parser.ErrNotSpreadsheet):
			return nil, apperrors.Wrap(apperrors.ErrUnsupportedFile, err)
		case errors.Is(err, parser.ErrHeaderNotFound):
			return nil, apperrors.Wrap(apperrors.ErrNoValidRows, err)
		default:
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	if len(result.Candidates) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrNoValidRows, "statement contains no parseable transaction rows")
	}

	upload := &models.Upload{
		Filename:           filepath.Base(filename),
		Status:             models.UploadStatusQueued,
		GenerateEmbeddings: generateEmbeddings,
	}
	if err := s.db.Create(upload).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.process(context.Background(), upload.ID, result)
	}()

	return upload, nil
}

// GetStatus returns the upload record with all pipeline counters.
func (s *uploadService) GetStatus(uploadID uint) (*models.Upload, error) {
	var upload models.Upload
	if err := s.db.First(&upload, uploadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUploadNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &upload, nil
}

// Wait blocks until every in-flight upload finishes processing.
func (s *uploadService) Wait() {
	s.wg.Wait()
}

func (s *uploadService) process(ctx context.Context, uploadID uint, result *parser.Result) {
	log := logger.Get().With("upload_id", uploadID)

	embed := s.embeddings.Available() && s.generateEmbeddings(uploadID)
	resolvedTarget := progressResolved
	if !embed {
		resolvedTarget = progressResolvedNoEmb
	}

	s.setPhase(uploadID, models.UploadStatusParsing, progressParsed, map[string]interface{}{
		"rows_total":                   result.RowsTotal,
		"rows_processed":               result.RowsTotal,
		"rows_skipped_non_transaction": result.RowsSkippedNonTransaction,
		"rows_invalid":                 result.RowsInvalid,
	})

	s.setPhase(uploadID, models.UploadStatusResolving, progressParsed, nil)
	resolved, err := s.merchants.ResolveForCandidates(ctx, result.Candidates)
	if err != nil {
		s.markError(uploadID, err)
		return
	}

	inserted, err := s.insertCandidates(uploadID, result.Candidates, resolved.MerchantIDs)
	if err != nil {
		s.markError(uploadID, err)
		return
	}
	s.setPhase(uploadID, models.UploadStatusResolving, resolvedTarget, map[string]interface{}{
		"rows_inserted":       inserted,
		"rows_duplicate":      len(result.Candidates) - inserted,
		"llm_used_count":      resolved.LLMUsedCount,
		"fallback_used_count": resolved.FallbackUsedCount,
	})

	if embed {
		generated, err := s.embedUpload(ctx, uploadID)
		if err != nil {
			s.markError(uploadID, err)
			return
		}
		s.setPhase(uploadID, models.UploadStatusEmbedding, progressEmbedded, map[string]interface{}{
			"embeddings_generated": generated,
		})
	}

	s.setPhase(uploadID, models.UploadStatusDone, progressDone, nil)
	log.Infow("upload processed",
		"rows_total", result.RowsTotal,
		"rows_inserted", inserted,
		"rows_duplicate", len(result.Candidates)-inserted,
	)
}

func (s *uploadService) generateEmbeddings(uploadID uint) bool {
	var upload models.Upload
	if err := s.db.Select("generate_embeddings").First(&upload, uploadID).Error; err != nil {
		return false
	}
	return upload.GenerateEmbeddings
}

// insertCandidates writes candidates in batches, silently dropping rows
// whose dedup key already exists. Duplicates keep the upload they first
// arrived with, so rows belonging to this upload are exactly the newly
// inserted ones.
func (s *uploadService) insertCandidates(uploadID uint, candidates []parser.Candidate, merchantIDs []*uint) (int, error) {
	rows := make([]models.Transaction, 0, len(candidates))
	for i, candidate := range candidates {
		rows = append(rows, models.Transaction{
			UploadID:         &uploadID,
			Date:             candidate.Date,
			PostedDate:       candidate.PostedDate,
			DescriptionRaw:   candidate.DescriptionRaw,
			Direction:        candidate.Direction,
			AmountOriginal:   candidate.AmountOriginal,
			CurrencyOriginal: candidate.CurrencyOriginal,
			AmountGEL:        candidate.AmountGEL,
			ConversionRate:   candidate.ConversionRate,
			CardLast4:        candidate.CardLast4,
			MCCCode:          candidate.MCCCode,
			MerchantID:       merchantIDs[i],
			DedupKey:         candidate.DedupKey,
		})
	}

	tx := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedup_key"}},
		DoNothing: true,
	}).CreateInBatches(&rows, insertBatchSize)
	if tx.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, tx.Error)
	}
	return int(tx.RowsAffected), nil
}

func (s *uploadService) embedUpload(ctx context.Context, uploadID uint) (int, error) {
	var transactions []models.Transaction
	err := s.db.Preload("Merchant").Where("upload_id = ?", uploadID).Find(&transactions).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.setPhase(uploadID, models.UploadStatusEmbedding, progressResolved, nil)
	span := progressEmbedded - progressResolved
	return s.embeddings.GenerateForTransactions(ctx, transactions, func(done, total int) {
		s.setPhase(uploadID, models.UploadStatusEmbedding, progressResolved+span*done/total, nil)
	})
}

// setPhase advances status, phase, and counters. Progress only ever
// moves forward even when phase callbacks race.
func (s *uploadService) setPhase(uploadID uint, status models.UploadStatus, percent int, extra map[string]interface{}) {
	updates := map[string]interface{}{
		"status":           status,
		"processing_phase": phaseName(status),
		"progress_percent": gorm.Expr(
			"CASE WHEN progress_percent > ? THEN progress_percent ELSE ? END", percent, percent),
	}
	for column, value := range extra {
		updates[column] = value
	}

	if err := s.db.Model(&models.Upload{}).Where("id = ?", uploadID).Updates(updates).Error; err != nil {
		logger.Get().Errorw("failed to update upload progress", "upload_id", uploadID, "error", err)
	}
}

func phaseName(status models.UploadStatus) string {
	switch status {
	case models.UploadStatusDone, models.UploadStatusError:
		return "finalize"
	default:
		return string(status)
	}
}

func (s *uploadService) markError(uploadID uint, err error) {
	logger.Get().Errorw("upload processing failed", "upload_id", uploadID, "error", err)

	message := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	updates := map[string]interface{}{
		"status":           models.UploadStatusError,
		"processing_phase": "finalize",
		"progress_percent": progressDone,
		"error_message":    message,
	}
	if err := s.db.Model(&models.Upload{}).Where("id = ?", uploadID).Updates(updates).Error; err != nil {
		logger.Get().Errorw("failed to mark upload as failed", "upload_id", uploadID, "error", err)
	}
}
