package models

import "time"

// Model contains the autoincrement key and timestamps shared by the
// ingestion-side tables. Chat tables use UUIDv7 keys instead.
type Model struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
