package services

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
)

// DefaultCategories is the fixed spending taxonomy. Merchant categories
// and chat filters always resolve against this list.
var DefaultCategories = []string{
	"Groceries",
	"Dining & Cafes",
	"Transport",
	"Utilities & Bills",
	"Shopping",
	"Health & Pharmacy",
	"Entertainment",
	"Travel",
	"Education",
	"Beauty & Personal Care",
	"Home & Garden",
	"Subscriptions & Digital",
	"Cash Withdrawal",
	"Income & Transfers",
	"Other",
}

// categoryService handles the category taxonomy.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// Seed inserts any missing default categories. Safe to run on every boot.
func (s *categoryService) Seed() error {
	categories := make([]models.Category, 0, len(DefaultCategories))
	for _, name := range DefaultCategories {
		categories = append(categories, models.Category{Name: name})
	}

	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&categories).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// List returns all categories ordered by name.
func (s *categoryService) List() ([]models.Category, error) {
	var categories []models.Category
	if err := s.db.Order("name asc").Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}

// Exists reports whether name is part of the taxonomy.
func (s *categoryService) Exists(name string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.Category{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count > 0, nil
}
