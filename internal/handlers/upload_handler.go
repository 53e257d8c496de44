package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/services"
)

// UploadHandler handles statement upload requests.
type UploadHandler struct {
	uploadService services.UploadServicer
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(uploadService services.UploadServicer) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// UploadAcceptedResponse is returned when a statement enters the pipeline.
type UploadAcceptedResponse struct {
	UploadID uint   `json:"upload_id"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// UploadStatusResponse reports pipeline progress and counters.
type UploadStatusResponse struct {
	UploadID                  uint    `json:"upload_id"`
	Filename                  string  `json:"filename"`
	Status                    string  `json:"status"`
	ProcessingPhase           string  `json:"processing_phase"`
	ProgressPercent           int     `json:"progress_percent"`
	GenerateEmbeddings        bool    `json:"generate_embeddings"`
	RowsTotal                 int     `json:"rows_total"`
	RowsProcessed             int     `json:"rows_processed"`
	RowsSkippedNonTransaction int     `json:"rows_skipped_non_transaction"`
	RowsInvalid               int     `json:"rows_invalid"`
	RowsDuplicate             int     `json:"rows_duplicate"`
	RowsInserted              int     `json:"rows_inserted"`
	LLMUsedCount              int     `json:"llm_used_count"`
	FallbackUsedCount         int     `json:"fallback_used_count"`
	EmbeddingsGenerated       int     `json:"embeddings_generated"`
	ErrorMessage              *string `json:"error_message,omitempty"`
}

func newUploadStatusResponse(upload *models.Upload) UploadStatusResponse {
	return UploadStatusResponse{
		UploadID:                  upload.ID,
		Filename:                  upload.Filename,
		Status:                    string(upload.Status),
		ProcessingPhase:           upload.ProcessingPhase,
		ProgressPercent:           upload.ProgressPercent,
		GenerateEmbeddings:        upload.GenerateEmbeddings,
		RowsTotal:                 upload.RowsTotal,
		RowsProcessed:             upload.RowsProcessed,
		RowsSkippedNonTransaction: upload.RowsSkippedNonTransaction,
		RowsInvalid:               upload.RowsInvalid,
		RowsDuplicate:             upload.RowsDuplicate,
		RowsInserted:              upload.RowsInserted,
		LLMUsedCount:              upload.LLMUsedCount,
		FallbackUsedCount:         upload.FallbackUsedCount,
		EmbeddingsGenerated:       upload.EmbeddingsGenerated,
		ErrorMessage:              upload.ErrorMessage,
	}
}

// Upload accepts a multipart statement file and queues it for processing.
func (h *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "multipart field 'file' is required"))
		return
	}

	generateEmbeddings := true
	if raw := c.PostForm("generate_embeddings"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "generate_embeddings must be a boolean"))
			return
		}
		generateEmbeddings = value
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}
	defer file.Close()

	upload, err := h.uploadService.Accept(fileHeader.Filename, file, generateEmbeddings)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, UploadAcceptedResponse{
		UploadID: upload.ID,
		Filename: upload.Filename,
		Status:   string(upload.Status),
	})
}

// GetStatus reports the state of one upload.
func (h *UploadHandler) GetStatus(c *gin.Context) {
	uploadID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	upload, err := h.uploadService.GetStatus(uploadID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, newUploadStatusResponse(upload))
}
