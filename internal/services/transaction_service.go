package services

import (
	"time"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/pagination"
)

// TransactionFilter holds optional filter parameters for listing
// transactions.
type TransactionFilter struct {
	FromDate   *time.Time
	ToDate     *time.Time
	Direction  *models.Direction
	Category   *string
	MerchantID *uint
	UploadID   *uint
	Search     *string
}

// transactionService lists stored transactions.
type transactionService struct {
	db *gorm.DB
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB) TransactionServicer {
	return &transactionService{db: db}
}

// List returns transactions newest first with merchants preloaded.
func (s *transactionService) List(page pagination.ListRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	query := s.applyFilter(s.db.Model(&models.Transaction{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	err := query.
		Preload("Merchant").
		Order("transactions.date DESC, transactions.id DESC").
		Scopes(pagination.Window(page)).
		Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return pagination.NewPageResponse(transactions, page, total), nil
}

func (s *transactionService) applyFilter(db *gorm.DB, filter TransactionFilter) *gorm.DB {
	if filter.FromDate != nil {
		db = db.Where("transactions.date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		db = db.Where("transactions.date <= ?", *filter.ToDate)
	}
	if filter.Direction != nil {
		db = db.Where("transactions.direction = ?", *filter.Direction)
	}
	if filter.MerchantID != nil {
		db = db.Where("transactions.merchant_id = ?", *filter.MerchantID)
	}
	if filter.UploadID != nil {
		db = db.Where("transactions.upload_id = ?", *filter.UploadID)
	}
	if filter.Category != nil {
		db = db.Joins("JOIN merchants ON merchants.id = transactions.merchant_id").
			Where("merchants.category = ?", *filter.Category)
	}
	if filter.Search != nil && *filter.Search != "" {
		db = db.Where("LOWER(transactions.description_raw) LIKE LOWER(?)", "%"+*filter.Search+"%")
	}
	return db
}
