package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"moneta/internal/services"
)

// CategoryHandler exposes the category taxonomy.
type CategoryHandler struct {
	categoryService services.CategoryServicer
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(categoryService services.CategoryServicer) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// List returns every taxonomy category.
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.categoryService.List()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": categories})
}
