package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/pagination"
	"moneta/internal/services"
)

// MerchantHandler handles merchant listing and recategorization.
type MerchantHandler struct {
	merchantService services.MerchantServicer
}

// NewMerchantHandler creates a new MerchantHandler.
func NewMerchantHandler(merchantService services.MerchantServicer) *MerchantHandler {
	return &MerchantHandler{merchantService: merchantService}
}

// UpdateMerchantCategoryRequest reassigns a merchant's category.
type UpdateMerchantCategoryRequest struct {
	Category string `json:"category" binding:"required"`
}

// List returns merchants with their spend aggregates.
func (h *MerchantHandler) List(c *gin.Context) {
	var page pagination.ListRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	page.Defaults(50)

	merchants, err := h.merchantService.List(page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, merchants)
}

// UpdateCategory pins a merchant to a user-chosen category.
func (h *MerchantHandler) UpdateCategory(c *gin.Context) {
	merchantID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateMerchantCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	merchant, err := h.merchantService.UpdateCategory(merchantID, req.Category)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, merchant)
}
