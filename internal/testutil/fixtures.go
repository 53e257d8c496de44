package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"moneta/internal/models"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// SeedCategories inserts the given category names.
func SeedCategories(t *testing.T, db *gorm.DB, names ...string) {
	t.Helper()

	for _, name := range names {
		if err := db.Create(&models.Category{Name: name}).Error; err != nil {
			t.Fatalf("failed to seed category %q: %v", name, err)
		}
	}
}

// CreateTestUpload creates an upload in the queued state.
func CreateTestUpload(t *testing.T, db *gorm.DB) *models.Upload {
	t.Helper()

	upload := &models.Upload{
		Filename:           fmt.Sprintf("statement%d.xlsx", nextID()),
		Status:             models.UploadStatusQueued,
		GenerateEmbeddings: true,
	}
	if err := db.Create(upload).Error; err != nil {
		t.Fatalf("failed to create test upload: %v", err)
	}
	return upload
}

// CreateTestMerchant creates a merchant with a unique normalized name.
func CreateTestMerchant(t *testing.T, db *gorm.DB, category string) *models.Merchant {
	t.Helper()

	name := fmt.Sprintf("merchant %d", nextID())
	return CreateTestMerchantWithName(t, db, name, category)
}

// CreateTestMerchantWithName creates a merchant with the given normalized name.
func CreateTestMerchantWithName(t *testing.T, db *gorm.DB, normalizedName, category string) *models.Merchant {
	t.Helper()

	merchant := &models.Merchant{
		RawName:        normalizedName,
		NormalizedName: normalizedName,
		Category:       category,
		CategorySource: models.CategorySourceRule,
	}
	if err := db.Create(merchant).Error; err != nil {
		t.Fatalf("failed to create test merchant: %v", err)
	}
	return merchant
}

// CreateTestTransaction creates a payment of the given GEL amount at the
// merchant on the given date.
func CreateTestTransaction(t *testing.T, db *gorm.DB, merchantID uint, date time.Time, amountGEL string) *models.Transaction {
	t.Helper()

	amount, err := decimal.NewFromString(amountGEL)
	if err != nil {
		t.Fatalf("bad amount %q: %v", amountGEL, err)
	}

	tx := &models.Transaction{
		Date:             date,
		DescriptionRaw:   fmt.Sprintf("test payment %d", nextID()),
		Direction:        models.DirectionExpense,
		AmountOriginal:   amount,
		CurrencyOriginal: "GEL",
		AmountGEL:        amount,
		MerchantID:       &merchantID,
		DedupKey:         fmt.Sprintf("test-dedup-%d", nextID()),
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestThread creates an active chat thread.
func CreateTestThread(t *testing.T, db *gorm.DB) *models.ChatThread {
	t.Helper()

	thread := &models.ChatThread{
		Title:  fmt.Sprintf("thread %d", nextID()),
		Status: models.ThreadStatusActive,
	}
	if err := db.Create(thread).Error; err != nil {
		t.Fatalf("failed to create test thread: %v", err)
	}
	return thread
}
