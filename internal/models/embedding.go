package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// Embedding holds the semantic vector for one transaction, generated
// lazily when an upload opts in. One row per transaction.
type Embedding struct {
	TransactionID uint            `gorm:"primaryKey" json:"transaction_id"`
	Vector        pgvector.Vector `gorm:"type:vector(768)" json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
}
