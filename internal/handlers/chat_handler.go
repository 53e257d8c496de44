package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/pagination"
	"moneta/internal/services"
	"moneta/internal/uuid"
)

// ChatHandler handles chat threads, messages, and questions.
type ChatHandler struct {
	chatService services.ChatServicer
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService services.ChatServicer) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// CreateThreadRequest starts a conversation, optionally titled.
type CreateThreadRequest struct {
	Title string `json:"title"`
}

// UpdateThreadRequest retitles or archives a conversation.
type UpdateThreadRequest struct {
	Title  *string `json:"title"`
	Status *string `json:"status" binding:"omitempty,oneof=active archived"`
}

// ListThreadsRequest pages through conversations, optionally by status.
type ListThreadsRequest struct {
	pagination.ListRequest
	Status string `form:"status" binding:"omitempty,oneof=active archived"`
}

// AskRequest poses one question in a thread. Dates are YYYY-MM-DD.
type AskRequest struct {
	ThreadID string `json:"thread_id"`
	Question string `json:"question" binding:"required"`
	Mode     string `json:"mode" binding:"omitempty,oneof=sql semantic hybrid"`
	DateFrom string `json:"date_from" binding:"omitempty,datetime=2006-01-02"`
	DateTo   string `json:"date_to" binding:"omitempty,datetime=2006-01-02"`
	TopK     int    `json:"top_k" binding:"omitempty,min=1,max=100"`
}

func parseDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil
	}
	return &parsed
}

// ListMessagesRequest pages through a thread's messages.
type ListMessagesRequest struct {
	pagination.ListRequest
	Before *time.Time `form:"before" time_format:"2006-01-02T15:04:05Z07:00"`
}

// CreateThread starts a new conversation.
func (h *ChatHandler) CreateThread(c *gin.Context) {
	var req CreateThreadRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
	}

	thread, err := h.chatService.CreateThread(req.Title)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, thread)
}

// ListThreads returns conversations by recency, optionally filtered by
// status.
func (h *ChatHandler) ListThreads(c *gin.Context) {
	var req ListThreadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	req.Defaults(20)

	threads, err := h.chatService.ListThreads(req.ListRequest, services.ThreadFilter{Status: req.Status})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, threads)
}

// GetThread fetches one conversation.
func (h *ChatHandler) GetThread(c *gin.Context) {
	threadID := c.Param("id")
	if !uuid.IsValid(threadID) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid thread id"))
		return
	}

	thread, err := h.chatService.GetThread(threadID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

// UpdateThread retitles or archives a conversation.
func (h *ChatHandler) UpdateThread(c *gin.Context) {
	threadID := c.Param("id")
	if !uuid.IsValid(threadID) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid thread id"))
		return
	}

	var req UpdateThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	thread, err := h.chatService.UpdateThread(threadID, services.ThreadUpdate{Title: req.Title, Status: req.Status})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, thread)
}

// DeleteThread removes a conversation and its messages.
func (h *ChatHandler) DeleteThread(c *gin.Context) {
	threadID := c.Param("id")
	if !uuid.IsValid(threadID) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid thread id"))
		return
	}

	if err := h.chatService.DeleteThread(threadID); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListMessages returns a thread's messages newest first.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	threadID := c.Param("id")
	if !uuid.IsValid(threadID) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid thread id"))
		return
	}

	var req ListMessagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	req.Defaults(50)

	messages, err := h.chatService.ListMessages(threadID, req.ListRequest, services.MessageFilter{Before: req.Before})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// Ask answers a question, creating a thread when none is given.
func (h *ChatHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	threadID := req.ThreadID
	if threadID == "" {
		thread, err := h.chatService.CreateThread("")
		if err != nil {
			respondWithError(c, err)
			return
		}
		threadID = thread.ID
	} else if !uuid.IsValid(threadID) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid thread id"))
		return
	}

	answer, err := h.chatService.Ask(c.Request.Context(), threadID, req.Question, services.AskOptions{
		Mode:     req.Mode,
		DateFrom: parseDate(req.DateFrom),
		DateTo:   parseDate(req.DateTo),
		TopK:     req.TopK,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}
