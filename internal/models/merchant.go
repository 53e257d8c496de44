package models

// CategorySource records how a merchant's category was assigned.
// User assignments are permanent: automatic categorization never
// overwrites them.
type CategorySource string

const (
	CategorySourceUser CategorySource = "user"
	CategorySourceLLM  CategorySource = "llm"
	CategorySourceRule CategorySource = "rule"
)

// Merchant is the canonical identity behind free-text transaction
// descriptions. NormalizedName is the identity key; RawName keeps the
// most recent raw text that mapped to it.
type Merchant struct {
	Model
	RawName        string         `gorm:"not null" json:"raw_name"`
	NormalizedName string         `gorm:"not null;uniqueIndex" json:"normalized_name"`
	Category       string         `gorm:"not null" json:"category"`
	CategorySource CategorySource `gorm:"not null" json:"category_source"`
	MCCCode        *string        `json:"mcc_code"`
}
