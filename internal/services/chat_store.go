package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/pagination"
)

// autoTitleLimit caps thread titles derived from the first question.
const autoTitleLimit = 48

// ThreadSummary is a chat thread with its message count.
type ThreadSummary struct {
	models.ChatThread
	MessageCount int64 `json:"message_count"`
}

// ThreadFilter narrows a thread listing.
type ThreadFilter struct {
	Status string
}

// ThreadUpdate carries the mutable thread fields; nil fields are left
// untouched.
type ThreadUpdate struct {
	Title  *string
	Status *string
}

// MessageFilter selects a page of a thread's messages.
type MessageFilter struct {
	Before *time.Time
}

// CreateThread starts a new conversation.
func (s *chatService) CreateThread(title string) (*models.ChatThread, error) {
	thread := &models.ChatThread{
		Title:  strings.TrimSpace(title),
		Status: models.ThreadStatusActive,
	}
	if thread.Title == "" {
		thread.Title = "New conversation"
	}
	if err := s.db.Create(thread).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return thread, nil
}

// GetThread fetches one thread.
func (s *chatService) GetThread(threadID string) (*models.ChatThread, error) {
	var thread models.ChatThread
	if err := s.db.First(&thread, "id = ?", threadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrThreadNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &thread, nil
}

// ListThreads returns threads by recency of their last message,
// optionally narrowed to one lifecycle status.
func (s *chatService) ListThreads(page pagination.ListRequest, filter ThreadFilter) (*pagination.PageResponse[ThreadSummary], error) {
	scoped := s.db.Model(&models.ChatThread{})
	if filter.Status != "" {
		scoped = scoped.Where("chat_threads.status = ?", filter.Status)
	}

	var total int64
	if err := scoped.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var threads []ThreadSummary
	err := scoped.
		Select("chat_threads.*, COUNT(chat_messages.id) AS message_count").
		Joins("LEFT JOIN chat_messages ON chat_messages.thread_id = chat_threads.id").
		Group("chat_threads.id").
		Order("chat_threads.last_message_at DESC NULLS LAST, chat_threads.created_at DESC").
		Scopes(pagination.Window(page)).
		Find(&threads).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return pagination.NewPageResponse(threads, page, total), nil
}

// UpdateThread retitles a thread or moves it between the active and
// archived states. A blank title falls back to the default.
func (s *chatService) UpdateThread(threadID string, update ThreadUpdate) (*models.ChatThread, error) {
	thread, err := s.GetThread(threadID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			title = "New conversation"
		}
		updates["title"] = title
		thread.Title = title
	}
	if update.Status != nil {
		status := models.ThreadStatus(*update.Status)
		if status != models.ThreadStatusActive && status != models.ThreadStatusArchived {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "status must be active or archived")
		}
		updates["status"] = status
		thread.Status = status
	}
	if len(updates) == 0 {
		return thread, nil
	}

	if err := s.db.Model(&models.ChatThread{}).Where("id = ?", threadID).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return thread, nil
}

// DeleteThread removes a thread and its messages.
func (s *chatService) DeleteThread(threadID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.ChatThread{}, "id = ?", threadID)
		if result.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrThreadNotFound
		}
		if err := tx.Delete(&models.ChatMessage{}, "thread_id = ?", threadID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// ListMessages returns a thread's messages newest first. Before, when
// set, pages further back in time.
func (s *chatService) ListMessages(threadID string, page pagination.ListRequest, filter MessageFilter) (*pagination.PageResponse[models.ChatMessage], error) {
	if _, err := s.GetThread(threadID); err != nil {
		return nil, err
	}

	query := s.db.Model(&models.ChatMessage{}).Where("thread_id = ?", threadID)
	if filter.Before != nil {
		query = query.Where("created_at < ?", *filter.Before)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var messages []models.ChatMessage
	err := query.
		Order("created_at DESC, id DESC").
		Scopes(pagination.Window(page)).
		Find(&messages).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return pagination.NewPageResponse(messages, page, total), nil
}

// buildContextWindow collects the most recent answered turns, oldest
// first, as "user: ..." / "assistant: ..." lines. The window is bounded
// by both a turn count and a character budget.
func (s *chatService) buildContextWindow(threadID string) ([]string, error) {
	var messages []models.ChatMessage
	err := s.db.Where("thread_id = ? AND role = ? AND answer_text IS NOT NULL",
		threadID, models.MessageRoleAssistant).
		Order("created_at DESC, id DESC").
		Limit(s.contextTurns).
		Find(&messages).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// Newest first from the query; assemble oldest first and drop whole
	// turns from the far end once the character budget is exhausted.
	window := make([]string, 0, len(messages)*2)
	used := 0
	for _, message := range messages {
		turn := []string{
			fmt.Sprintf("user: %s", message.Question),
			fmt.Sprintf("assistant: %s", *message.Answer),
		}
		size := len(turn[0]) + len(turn[1])
		if used+size > s.contextMaxChars && used > 0 {
			break
		}
		window = append([]string{turn[0], turn[1]}, window...)
		used += size
	}
	return window, nil
}

// appendUserMessage persists the question and touches the thread,
// auto-titling it from the first question.
func (s *chatService) appendUserMessage(threadID, question string) (*models.ChatMessage, error) {
	message := &models.ChatMessage{
		ThreadID: threadID,
		Role:     models.MessageRoleUser,
		Question: question,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.touchThread(tx, threadID, question, message.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	return message, nil
}

// appendAssistantMessage persists the answer with its mode, sources,
// filters, and meta.
func (s *chatService) appendAssistantMessage(threadID, question, answer, mode string, sources models.SourceList, filters, meta models.JSONMap) (*models.ChatMessage, error) {
	message := &models.ChatMessage{
		ThreadID: threadID,
		Role:     models.MessageRoleAssistant,
		Question: question,
		Answer:   &answer,
		Mode:     &mode,
		Sources:  sources,
		Filters:  filters,
		Meta:     meta,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.touchThread(tx, threadID, "", message.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	return message, nil
}

func (s *chatService) touchThread(tx *gorm.DB, threadID, firstQuestion string, at time.Time) error {
	updates := map[string]interface{}{"last_message_at": at}
	if firstQuestion != "" {
		var count int64
		if err := tx.Model(&models.ChatMessage{}).Where("thread_id = ?", threadID).Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 1 {
			updates["title"] = autoTitle(firstQuestion)
		}
	}
	if err := tx.Model(&models.ChatThread{}).Where("id = ?", threadID).Updates(updates).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func autoTitle(question string) string {
	title := strings.Join(strings.Fields(question), " ")
	if len(title) > autoTitleLimit {
		title = strings.TrimSpace(title[:autoTitleLimit])
	}
	if title == "" {
		title = "New conversation"
	}
	return title
}
