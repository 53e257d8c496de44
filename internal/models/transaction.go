package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction classifies the cash flow of a transaction.
type Direction string

const (
	DirectionExpense  Direction = "expense"
	DirectionIncome   Direction = "income"
	DirectionTransfer Direction = "transfer"
)

// Transaction is one imported statement row. DedupKey is the
// content-addressed fingerprint that makes re-imports idempotent: the
// unique index rejects a second insert with the same key and the importer
// counts the collision as a duplicate, never an error.
type Transaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// UploadID survives upload deletion as NULL; transactions outlive the
	// job that imported them.
	UploadID *uint `gorm:"index" json:"upload_id"`

	Date             time.Time        `gorm:"type:date;not null;index" json:"date"`
	PostedDate       *time.Time       `gorm:"type:date" json:"posted_date"`
	DescriptionRaw   string           `gorm:"not null" json:"description_raw"`
	Direction        Direction        `gorm:"not null" json:"direction"`
	AmountOriginal   decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"amount_original"`
	CurrencyOriginal string           `gorm:"not null" json:"currency_original"`
	AmountGEL        decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"amount_gel"`
	ConversionRate   *decimal.Decimal `gorm:"type:numeric(10,6)" json:"conversion_rate"`
	CardLast4        *string          `json:"card_last4"`
	MCCCode          *string          `json:"mcc_code"`

	MerchantID *uint     `gorm:"index" json:"merchant_id"`
	Merchant   *Merchant `gorm:"foreignKey:MerchantID" json:"merchant,omitempty"`

	DedupKey string `gorm:"size:64;not null;uniqueIndex" json:"-"`
}
