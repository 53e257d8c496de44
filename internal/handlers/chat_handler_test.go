package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/services"
)

// --- mock chat service ---

type mockChatService struct {
	createThreadFn func(title string) (*models.ChatThread, error)
	getThreadFn    func(threadID string) (*models.ChatThread, error)
	listThreadsFn  func(page pagination.ListRequest, filter services.ThreadFilter) (*pagination.PageResponse[services.ThreadSummary], error)
	updateThreadFn func(threadID string, update services.ThreadUpdate) (*models.ChatThread, error)
	deleteThreadFn func(threadID string) error
	listMessagesFn func(threadID string, page pagination.ListRequest, filter services.MessageFilter) (*pagination.PageResponse[models.ChatMessage], error)
	askFn          func(ctx context.Context, threadID, question string, opts services.AskOptions) (*services.ChatAnswer, error)
}

func (m *mockChatService) CreateThread(title string) (*models.ChatThread, error) {
	if m.createThreadFn != nil {
		return m.createThreadFn(title)
	}
	return &models.ChatThread{ID: testThreadID, Title: "New conversation"}, nil
}

func (m *mockChatService) GetThread(threadID string) (*models.ChatThread, error) {
	if m.getThreadFn != nil {
		return m.getThreadFn(threadID)
	}
	return &models.ChatThread{ID: threadID}, nil
}

func (m *mockChatService) ListThreads(page pagination.ListRequest, filter services.ThreadFilter) (*pagination.PageResponse[services.ThreadSummary], error) {
	if m.listThreadsFn != nil {
		return m.listThreadsFn(page, filter)
	}
	return pagination.NewPageResponse([]services.ThreadSummary{}, page, 0), nil
}

func (m *mockChatService) UpdateThread(threadID string, update services.ThreadUpdate) (*models.ChatThread, error) {
	if m.updateThreadFn != nil {
		return m.updateThreadFn(threadID, update)
	}
	return &models.ChatThread{ID: threadID}, nil
}

func (m *mockChatService) DeleteThread(threadID string) error {
	if m.deleteThreadFn != nil {
		return m.deleteThreadFn(threadID)
	}
	return nil
}

func (m *mockChatService) ListMessages(threadID string, page pagination.ListRequest, filter services.MessageFilter) (*pagination.PageResponse[models.ChatMessage], error) {
	if m.listMessagesFn != nil {
		return m.listMessagesFn(threadID, page, filter)
	}
	return pagination.NewPageResponse([]models.ChatMessage{}, page, 0), nil
}

func (m *mockChatService) Ask(ctx context.Context, threadID, question string, opts services.AskOptions) (*services.ChatAnswer, error) {
	if m.askFn != nil {
		return m.askFn(ctx, threadID, question, opts)
	}
	return &services.ChatAnswer{ThreadID: threadID, Question: question, Mode: models.ChatModeSQL}, nil
}

// verify interface compliance
var _ services.ChatServicer = (*mockChatService)(nil)

const testThreadID = "018f1234-5678-7abc-8def-0123456789ab"

func setupChatRouter(handler *ChatHandler) *gin.Engine {
	r := gin.New()
	r.POST("/chat", handler.Ask)
	r.POST("/chat/threads", handler.CreateThread)
	r.GET("/chat/threads", handler.ListThreads)
	r.GET("/chat/threads/:id", handler.GetThread)
	r.PATCH("/chat/threads/:id", handler.UpdateThread)
	r.DELETE("/chat/threads/:id", handler.DeleteThread)
	r.GET("/chat/threads/:id/messages", handler.ListMessages)
	return r
}

// --- tests ---

func TestChatHandler_CreateThread(t *testing.T) {
	t.Run("returns 201 with a title", func(t *testing.T) {
		svc := &mockChatService{
			createThreadFn: func(title string) (*models.ChatThread, error) {
				if title != "January review" {
					t.Errorf("unexpected title %q", title)
				}
				return &models.ChatThread{ID: testThreadID, Title: title}, nil
			},
		}
		r := setupChatRouter(NewChatHandler(svc))

		rec := doRequest(r, "POST", "/chat/threads", `{"title":"January review"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["id"] != testThreadID {
			t.Errorf("expected thread id in response, got %v", result)
		}
	})

	t.Run("returns 201 with an empty body", func(t *testing.T) {
		r := setupChatRouter(NewChatHandler(&mockChatService{}))

		rec := doRequest(r, "POST", "/chat/threads", "")
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}

func TestChatHandler_GetThread(t *testing.T) {
	t.Run("returns 400 for a malformed id", func(t *testing.T) {
		r := setupChatRouter(NewChatHandler(&mockChatService{}))

		rec := doRequest(r, "GET", "/chat/threads/not-a-uuid", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 404 for an unknown thread", func(t *testing.T) {
		svc := &mockChatService{
			getThreadFn: func(string) (*models.ChatThread, error) {
				return nil, apperrors.ErrThreadNotFound
			},
		}
		r := setupChatRouter(NewChatHandler(svc))

		rec := doRequest(r, "GET", "/chat/threads/"+testThreadID, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "THREAD_NOT_FOUND")
	})
}

func TestChatHandler_ListThreads(t *testing.T) {
	t.Run("passes the status filter through", func(t *testing.T) {
		svc := &mockChatService{
			listThreadsFn: func(page pagination.ListRequest, filter services.ThreadFilter) (*pagination.PageResponse[services.ThreadSummary], error) {
				if filter.Status != "archived" {
					t.Errorf("expected status archived, got %q", filter.Status)
				}
				return pagination.NewPageResponse([]services.ThreadSummary{}, page, 0), nil
			},
		}
		r := setupChatRouter(NewChatHandler(svc))

		rec := doRequest(r, "GET", "/chat/threads?status=archived", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("returns 400 for an unknown status", func(t *testing.T) {
		r := setupChatRouter(NewChatHandler(&mockChatService{}))

		rec := doRequest(r, "GET", "/chat/threads?status=closed", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})
}

func TestChatHandler_UpdateThread(t *testing.T) {
	t.Run("returns 200 with the updated thread", func(t *testing.T) {
		svc := &mockChatService{
			updateThreadFn: func(threadID string, update services.ThreadUpdate) (*models.ChatThread, error) {
				if threadID != testThreadID {
					t.Errorf("unexpected thread id %q", threadID)
				}
				if update.Title == nil || *update.Title != "Renamed" {
					t.Errorf("expected title Renamed, got %v", update.Title)
				}
				if update.Status == nil || *update.Status != "archived" {
					t.Errorf("expected status archived, got %v", update.Status)
				}
				return &models.ChatThread{ID: threadID, Title: "Renamed", Status: models.ThreadStatusArchived}, nil
			},
		}
		r := setupChatRouter(NewChatHandler(svc))

		rec := doRequest(r, "PATCH", "/chat/threads/"+testThreadID,
			`{"title":"Renamed","status":"archived"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["status"] != "archived" {
			t.Errorf("unexpected payload %v", result)
		}
	})

	t.Run("returns 400 for an unknown status", func(t *testing.T) {
		r := setupChatRouter(NewChatHandler(&mockChatService{}))

		rec := doRequest(r, "PATCH", "/chat/threads/"+testThreadID, `{"status":"closed"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 404 for an unknown thread", func(t *testing.T) {
		svc := &mockChatService{
			updateThreadFn: func(string, services.ThreadUpdate) (*models.ChatThread, error) {
				return nil, apperrors.ErrThreadNotFound
			},
		}
		r := setupChatRouter(NewChatHandler(svc))

		rec := doRequest(r, "PATCH", "/chat/threads/"+testThreadID, `{"title":"x"}`)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestChatHandler_DeleteThread(t *testing.T) {
	t.Run("returns 204 on success", func(t *testing.T) {
		deleted := ""
		svc := &mockChatService{
			deleteThreadFn: func(threadID string) error {
				deleted = threadID
				return nil
			},
		}
		r := setupChatRouter(NewChatHandler(svc))

		rec := doRequest(r, "DELETE", "/chat/threads/"+testThreadID, "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if deleted != testThreadID {
			t.Errorf("expected delete for %s, got %s", testThreadID, deleted)
		}
	})

	t.Run("returns 404 for an unknown thread", func(t *testing.T) {
		svc := &mockChatService{
			deleteThreadFn: func(string) error { return apperrors.ErrThreadNotFound },
		}
		r := setupChatRouter(NewChatHandler(svc))

		rec := doRequest(r, "DELETE", "/chat/threads/"+testThreadID, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestChatHandler_ListMessages(t *testing.T) {
	t.Run("returns 400 for a malformed id", func(t *testing.T) {
		r := setupChatRouter(NewChatHandler(&mockChatService{}))

		rec := doRequest(r, "GET", "/chat/threads/nope/messages", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("applies the default page size", func(t *testing.T) {
		svc := &mockChatService{
			listMessagesFn: func(threadID string, page pagination.ListRequest, _ services.MessageFilter) (*pagination.PageResponse[models.ChatMessage], error) {
				if page.Limit != 50 {
					t.Errorf("expected default limit 50, got %d", page.Limit)
				}
				return pagination.NewPageResponse([]models.ChatMessage{}, page, 0), nil
			},
		}
		r := setupChatRouter(NewChatHandler(svc))

		rec := doRequest(r, "GET", "/chat/threads/"+testThreadID+"/messages", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}

func TestChatHandler_Ask(t *testing.T) {
	t.Run("returns 200 with an answer", func(t *testing.T) {
		svc := &mockChatService{
			askFn: func(_ context.Context, threadID, question string, opts services.AskOptions) (*services.ChatAnswer, error) {
				if threadID != testThreadID || question != "top merchants" || opts.Mode != "sql" {
					t.Errorf("unexpected ask arguments %q %q %q", threadID, question, opts.Mode)
				}
				return &services.ChatAnswer{
					ThreadID: threadID,
					Question: question,
					Answer:   "spar leads with 150.00 GEL",
					Mode:     models.ChatModeSQL,
				}, nil
			},
		}
		r := setupChatRouter(NewChatHandler(svc))

		rec := doRequest(r, "POST", "/chat",
			`{"thread_id":"`+testThreadID+`","question":"top merchants","mode":"sql"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["answer"] != "spar leads with 150.00 GEL" {
			t.Errorf("unexpected answer payload %v", result)
		}
	})

	t.Run("passes date bounds and top_k through", func(t *testing.T) {
		svc := &mockChatService{
			askFn: func(_ context.Context, _, _ string, opts services.AskOptions) (*services.ChatAnswer, error) {
				if opts.DateFrom == nil || opts.DateFrom.Format("2006-01-02") != "2025-01-01" {
					t.Errorf("unexpected date_from %v", opts.DateFrom)
				}
				if opts.DateTo == nil || opts.DateTo.Format("2006-01-02") != "2025-01-31" {
					t.Errorf("unexpected date_to %v", opts.DateTo)
				}
				if opts.TopK != 5 {
					t.Errorf("expected top_k 5, got %d", opts.TopK)
				}
				return &services.ChatAnswer{ThreadID: testThreadID, Mode: models.ChatModeSQL}, nil
			},
		}
		r := setupChatRouter(NewChatHandler(svc))

		rec := doRequest(r, "POST", "/chat",
			`{"thread_id":"`+testThreadID+`","question":"groceries in january","date_from":"2025-01-01","date_to":"2025-01-31","top_k":5}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("returns 400 for a malformed date", func(t *testing.T) {
		r := setupChatRouter(NewChatHandler(&mockChatService{}))

		rec := doRequest(r, "POST", "/chat", `{"question":"hi","date_from":"January 2025"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 for an out of range top_k", func(t *testing.T) {
		r := setupChatRouter(NewChatHandler(&mockChatService{}))

		rec := doRequest(r, "POST", "/chat", `{"question":"hi","top_k":500}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("creates a thread when none is given", func(t *testing.T) {
		created := false
		svc := &mockChatService{
			createThreadFn: func(title string) (*models.ChatThread, error) {
				created = true
				if title != "" {
					t.Errorf("expected an untitled thread, got %q", title)
				}
				return &models.ChatThread{ID: testThreadID}, nil
			},
			askFn: func(_ context.Context, threadID, question string, _ services.AskOptions) (*services.ChatAnswer, error) {
				if threadID != testThreadID {
					t.Errorf("expected the new thread id, got %q", threadID)
				}
				return &services.ChatAnswer{ThreadID: threadID, Question: question, Mode: models.ChatModeSQL}, nil
			},
		}
		r := setupChatRouter(NewChatHandler(svc))

		rec := doRequest(r, "POST", "/chat", `{"question":"summarize my spending"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !created {
			t.Error("expected a thread to be created")
		}
	})

	t.Run("returns 400 when the question is missing", func(t *testing.T) {
		r := setupChatRouter(NewChatHandler(&mockChatService{}))

		rec := doRequest(r, "POST", "/chat", `{"mode":"sql"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 for an unknown mode", func(t *testing.T) {
		r := setupChatRouter(NewChatHandler(&mockChatService{}))

		rec := doRequest(r, "POST", "/chat", `{"question":"hi","mode":"psychic"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 502 when no engine can answer", func(t *testing.T) {
		svc := &mockChatService{
			askFn: func(context.Context, string, string, services.AskOptions) (*services.ChatAnswer, error) {
				return nil, apperrors.ErrChatUnavailable
			},
		}
		r := setupChatRouter(NewChatHandler(svc))

		rec := doRequest(r, "POST", "/chat",
			`{"thread_id":"`+testThreadID+`","question":"top merchants"}`)
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "CHAT_UNAVAILABLE")
	})
}
