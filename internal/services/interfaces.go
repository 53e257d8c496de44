package services

import (
	"context"
	"io"
	"time"

	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/parser"
)

// UploadServicer defines the contract for statement ingestion.
type UploadServicer interface {
	Accept(filename string, r io.Reader, generateEmbeddings bool) (*models.Upload, error)
	GetStatus(uploadID uint) (*models.Upload, error)
	Wait()
}

// MerchantServicer defines the contract for merchant resolution and
// management.
type MerchantServicer interface {
	ResolveForCandidates(ctx context.Context, candidates []parser.Candidate) (*ResolveResult, error)
	List(page pagination.ListRequest) (*pagination.PageResponse[MerchantSummary], error)
	UpdateCategory(merchantID uint, category string) (*models.Merchant, error)
}

// CategoryServicer defines the contract for the category taxonomy.
type CategoryServicer interface {
	Seed() error
	List() ([]models.Category, error)
	Exists(name string) (bool, error)
}

// TransactionServicer defines the contract for listing transactions.
type TransactionServicer interface {
	List(page pagination.ListRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
}

// EmbeddingServicer defines the contract for transaction embeddings.
type EmbeddingServicer interface {
	Available() bool
	GenerateForTransactions(ctx context.Context, transactions []models.Transaction, progress func(done, total int)) (int, error)
	SearchSimilar(ctx context.Context, query string, topK int, from, to *time.Time) ([]SimilarTransaction, error)
}

// ChatServicer defines the contract for the chat engine and its thread
// store.
type ChatServicer interface {
	CreateThread(title string) (*models.ChatThread, error)
	GetThread(threadID string) (*models.ChatThread, error)
	ListThreads(page pagination.ListRequest, filter ThreadFilter) (*pagination.PageResponse[ThreadSummary], error)
	UpdateThread(threadID string, update ThreadUpdate) (*models.ChatThread, error)
	DeleteThread(threadID string) error
	ListMessages(threadID string, page pagination.ListRequest, filter MessageFilter) (*pagination.PageResponse[models.ChatMessage], error)
	Ask(ctx context.Context, threadID, question string, opts AskOptions) (*ChatAnswer, error)
}
