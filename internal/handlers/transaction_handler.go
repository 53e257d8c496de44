package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/services"
)

// TransactionHandler handles transaction listing.
type TransactionHandler struct {
	transactionService services.TransactionServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// ListTransactionsRequest holds the query filters for listing.
type ListTransactionsRequest struct {
	pagination.ListRequest
	FromDate   *time.Time `form:"from_date" time_format:"2006-01-02"`
	ToDate     *time.Time `form:"to_date" time_format:"2006-01-02"`
	Direction  *string    `form:"direction" binding:"omitempty,oneof=expense income transfer"`
	Category   *string    `form:"category"`
	MerchantID *uint      `form:"merchant_id"`
	UploadID   *uint      `form:"upload_id"`
	Search     *string    `form:"q"`
}

// List returns filtered transactions, newest first.
func (h *TransactionHandler) List(c *gin.Context) {
	var req ListTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	req.Defaults(50)

	filter := services.TransactionFilter{
		FromDate:   req.FromDate,
		ToDate:     req.ToDate,
		Category:   req.Category,
		MerchantID: req.MerchantID,
		UploadID:   req.UploadID,
		Search:     req.Search,
	}
	if req.Direction != nil {
		direction := models.Direction(*req.Direction)
		filter.Direction = &direction
	}

	transactions, err := h.transactionService.List(req.ListRequest, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, transactions)
}
