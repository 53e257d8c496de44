package models

// Category is one entry of the fixed spending taxonomy. The list is
// seeded at startup; reseeding is idempotent via the unique name index.
type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"not null;uniqueIndex" json:"name"`
}
