package models

// UploadStatus is the lifecycle state of a statement upload job.
type UploadStatus string

const (
	UploadStatusQueued    UploadStatus = "queued"
	UploadStatusParsing   UploadStatus = "parsing"
	UploadStatusResolving UploadStatus = "resolving"
	UploadStatusEmbedding UploadStatus = "embedding"
	UploadStatusDone      UploadStatus = "done"
	UploadStatusError     UploadStatus = "error"
)

// Upload tracks one statement import job. It is created when a file is
// accepted and mutated only by the upload job manager. Rows become
// immutable once the status is terminal.
type Upload struct {
	Model
	Filename           string       `gorm:"not null" json:"filename"`
	Status             UploadStatus `gorm:"not null;default:queued" json:"status"`
	ProcessingPhase    string       `gorm:"not null;default:queued" json:"processing_phase"`
	ProgressPercent    int          `gorm:"not null;default:0" json:"progress_percent"`
	GenerateEmbeddings bool         `gorm:"not null;default:false" json:"generate_embeddings"`

	RowsTotal                 int `gorm:"not null;default:0" json:"rows_total"`
	RowsProcessed             int `gorm:"not null;default:0" json:"rows_processed"`
	RowsSkippedNonTransaction int `gorm:"not null;default:0" json:"rows_skipped_non_transaction"`
	RowsInvalid               int `gorm:"not null;default:0" json:"rows_invalid"`
	RowsDuplicate             int `gorm:"not null;default:0" json:"rows_duplicate"`
	RowsInserted              int `gorm:"not null;default:0" json:"rows_inserted"`
	LLMUsedCount              int `gorm:"not null;default:0" json:"llm_used_count"`
	FallbackUsedCount         int `gorm:"not null;default:0" json:"fallback_used_count"`
	EmbeddingsGenerated       int `gorm:"not null;default:0" json:"embeddings_generated"`

	ErrorMessage *string `json:"error_message"`
}

// Terminal reports whether the upload has reached a final state.
func (u *Upload) Terminal() bool {
	return u.Status == UploadStatusDone || u.Status == UploadStatusError
}
