package services

import (
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/testutil"
)

func newTestChatService(t *testing.T, db *gorm.DB) *chatService {
	t.Helper()

	svc := NewChatService(db, nil, nil, NewEmbeddingService(db, nil), ChatConfig{
		ContextTurns:    5,
		ContextMaxChars: 4000,
		DefaultTopK:     5,
	})
	return svc.(*chatService)
}

func TestThreadLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestChatService(t, db)

	thread, err := svc.CreateThread("  Groceries review  ")
	testutil.AssertNoError(t, err)
	if thread.ID == "" {
		t.Fatal("expected a generated thread id")
	}
	if thread.Title != "Groceries review" {
		t.Errorf("expected trimmed title, got %q", thread.Title)
	}

	untitled, err := svc.CreateThread("")
	testutil.AssertNoError(t, err)
	if untitled.Title != "New conversation" {
		t.Errorf("expected default title, got %q", untitled.Title)
	}

	fetched, err := svc.GetThread(thread.ID)
	testutil.AssertNoError(t, err)
	if fetched.Status != models.ThreadStatusActive {
		t.Errorf("expected active thread, got %q", fetched.Status)
	}

	testutil.AssertNoError(t, svc.DeleteThread(thread.ID))
	_, err = svc.GetThread(thread.ID)
	testutil.AssertAppError(t, err, "THREAD_NOT_FOUND")
	testutil.AssertAppError(t, svc.DeleteThread(thread.ID), "THREAD_NOT_FOUND")
}

func TestDeleteThreadRemovesMessages(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestChatService(t, db)

	thread := testutil.CreateTestThread(t, db)
	_, err := svc.appendUserMessage(thread.ID, "how much did I spend?")
	testutil.AssertNoError(t, err)

	testutil.AssertNoError(t, svc.DeleteThread(thread.ID))

	var count int64
	testutil.AssertNoError(t, db.Model(&models.ChatMessage{}).Where("thread_id = ?", thread.ID).Count(&count).Error)
	if count != 0 {
		t.Errorf("expected no messages left, got %d", count)
	}
}

func TestListThreadsOrderAndCounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestChatService(t, db)

	quiet := testutil.CreateTestThread(t, db)
	busy := testutil.CreateTestThread(t, db)
	_, err := svc.appendUserMessage(busy.ID, "first question")
	testutil.AssertNoError(t, err)
	_, err = svc.appendAssistantMessage(busy.ID, "first question", "an answer", models.ChatModeSQL, nil, nil, nil)
	testutil.AssertNoError(t, err)

	page, err := svc.ListThreads(pagination.ListRequest{Limit: 20}, ThreadFilter{})
	testutil.AssertNoError(t, err)
	if page.Total != 2 {
		t.Fatalf("expected 2 threads, got %d", page.Total)
	}
	if page.Items[0].ID != busy.ID {
		t.Errorf("expected the thread with messages first, got %s", page.Items[0].ID)
	}
	if page.Items[0].MessageCount != 2 {
		t.Errorf("expected message count 2, got %d", page.Items[0].MessageCount)
	}
	if page.Items[1].ID != quiet.ID || page.Items[1].MessageCount != 0 {
		t.Errorf("expected the quiet thread last with zero messages")
	}
}

func TestUpdateThreadAndStatusFilter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestChatService(t, db)

	kept := testutil.CreateTestThread(t, db)
	archived := testutil.CreateTestThread(t, db)

	title := "  Winter spending  "
	updated, err := svc.UpdateThread(kept.ID, ThreadUpdate{Title: &title})
	testutil.AssertNoError(t, err)
	if updated.Title != "Winter spending" {
		t.Errorf("expected trimmed title, got %q", updated.Title)
	}
	if updated.Status != models.ThreadStatusActive {
		t.Errorf("expected status untouched, got %q", updated.Status)
	}

	blank := "   "
	updated, err = svc.UpdateThread(kept.ID, ThreadUpdate{Title: &blank})
	testutil.AssertNoError(t, err)
	if updated.Title != "New conversation" {
		t.Errorf("expected the default title for a blank update, got %q", updated.Title)
	}

	status := string(models.ThreadStatusArchived)
	updated, err = svc.UpdateThread(archived.ID, ThreadUpdate{Status: &status})
	testutil.AssertNoError(t, err)
	if updated.Status != models.ThreadStatusArchived {
		t.Errorf("expected archived, got %q", updated.Status)
	}

	bogus := "closed"
	_, err = svc.UpdateThread(kept.ID, ThreadUpdate{Status: &bogus})
	testutil.AssertAppError(t, err, "INVALID_INPUT")

	_, err = svc.UpdateThread("1a2b3c4d-0000-7000-8000-000000000000", ThreadUpdate{Title: &title})
	testutil.AssertAppError(t, err, "THREAD_NOT_FOUND")

	active, err := svc.ListThreads(pagination.ListRequest{Limit: 20}, ThreadFilter{Status: "active"})
	testutil.AssertNoError(t, err)
	if active.Total != 1 || active.Items[0].ID != kept.ID {
		t.Errorf("expected only the active thread, got %d items", len(active.Items))
	}

	shelved, err := svc.ListThreads(pagination.ListRequest{Limit: 20}, ThreadFilter{Status: "archived"})
	testutil.AssertNoError(t, err)
	if shelved.Total != 1 || shelved.Items[0].ID != archived.ID {
		t.Errorf("expected only the archived thread, got %d items", len(shelved.Items))
	}

	all, err := svc.ListThreads(pagination.ListRequest{Limit: 20}, ThreadFilter{})
	testutil.AssertNoError(t, err)
	if all.Total != 2 {
		t.Errorf("expected both threads without a filter, got %d", all.Total)
	}
}

func TestListMessagesPaging(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestChatService(t, db)

	thread := testutil.CreateTestThread(t, db)
	first, err := svc.appendUserMessage(thread.ID, "question one")
	testutil.AssertNoError(t, err)
	_, err = svc.appendAssistantMessage(thread.ID, "question one", "answer one", models.ChatModeSQL, nil, nil, nil)
	testutil.AssertNoError(t, err)
	last, err := svc.appendUserMessage(thread.ID, "question two")
	testutil.AssertNoError(t, err)

	page, err := svc.ListMessages(thread.ID, pagination.ListRequest{Limit: 50}, MessageFilter{})
	testutil.AssertNoError(t, err)
	if page.Total != 3 || len(page.Items) != 3 {
		t.Fatalf("expected 3 messages, got total %d len %d", page.Total, len(page.Items))
	}
	if page.Items[0].ID != last.ID {
		t.Errorf("expected newest message first")
	}
	if page.Items[2].ID != first.ID {
		t.Errorf("expected oldest message last")
	}

	before := last.CreatedAt
	older, err := svc.ListMessages(thread.ID, pagination.ListRequest{Limit: 50}, MessageFilter{Before: &before})
	testutil.AssertNoError(t, err)
	for _, message := range older.Items {
		if !message.CreatedAt.Before(before) {
			t.Errorf("message %s not older than the cursor", message.ID)
		}
	}
	if older.Total >= page.Total {
		t.Errorf("expected the cursor to shrink the page, got %d", older.Total)
	}

	_, err = svc.ListMessages("1a2b3c4d-0000-7000-8000-000000000000", pagination.ListRequest{Limit: 50}, MessageFilter{})
	testutil.AssertAppError(t, err, "THREAD_NOT_FOUND")
}

func TestAutoTitleFromFirstMessage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestChatService(t, db)

	thread, err := svc.CreateThread("")
	testutil.AssertNoError(t, err)

	question := "How much did I spend on groceries in January and was it more than December?"
	_, err = svc.appendUserMessage(thread.ID, question)
	testutil.AssertNoError(t, err)

	fetched, err := svc.GetThread(thread.ID)
	testutil.AssertNoError(t, err)
	if len(fetched.Title) > autoTitleLimit {
		t.Errorf("title %q exceeds the limit", fetched.Title)
	}
	if !strings.HasPrefix(question, fetched.Title) {
		t.Errorf("title %q is not a prefix of the question", fetched.Title)
	}
	if fetched.LastMessageAt == nil {
		t.Error("expected last_message_at to be set")
	}

	// A second message must not retitle the thread.
	_, err = svc.appendUserMessage(thread.ID, "unrelated followup")
	testutil.AssertNoError(t, err)
	again, err := svc.GetThread(thread.ID)
	testutil.AssertNoError(t, err)
	if again.Title != fetched.Title {
		t.Errorf("title changed from %q to %q", fetched.Title, again.Title)
	}
}

func TestBuildContextWindow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := newTestChatService(t, db)
	svc.contextTurns = 2

	thread := testutil.CreateTestThread(t, db)
	turns := []struct{ question, answer string }{
		{"oldest question", "oldest answer"},
		{"middle question", "middle answer"},
		{"newest question", "newest answer"},
	}
	for _, turn := range turns {
		_, err := svc.appendUserMessage(thread.ID, turn.question)
		testutil.AssertNoError(t, err)
		_, err = svc.appendAssistantMessage(thread.ID, turn.question, turn.answer, models.ChatModeSQL, nil, nil, nil)
		testutil.AssertNoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	window, err := svc.buildContextWindow(thread.ID)
	testutil.AssertNoError(t, err)
	if len(window) != 4 {
		t.Fatalf("expected 2 turns (4 lines), got %d lines", len(window))
	}
	want := []string{
		"user: middle question",
		"assistant: middle answer",
		"user: newest question",
		"assistant: newest answer",
	}
	for i, line := range want {
		if window[i] != line {
			t.Errorf("line %d: got %q, want %q", i, window[i], line)
		}
	}

	// A tight character budget keeps only the most recent turn.
	svc.contextMaxChars = len("user: newest question") + len("assistant: newest answer")
	window, err = svc.buildContextWindow(thread.ID)
	testutil.AssertNoError(t, err)
	if len(window) != 2 || window[0] != "user: newest question" {
		t.Errorf("expected only the newest turn, got %v", window)
	}
}
