package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/llm"
	"moneta/internal/models"
	"moneta/internal/testutil"
)

// keywordEmbedder maps texts onto a tiny axis space so similarity is
// predictable: groceries on one axis, dining on another.
type keywordEmbedder struct{}

func (keywordEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		vector := []float32{0.1, 0.1, 0.1}
		if strings.Contains(lower, "grocer") || strings.Contains(lower, "spar") {
			vector = []float32{1, 0, 0}
		}
		if strings.Contains(lower, "dining") || strings.Contains(lower, "wolt") {
			vector = []float32{0, 1, 0}
		}
		vectors[i] = vector
	}
	return vectors, nil
}

var _ llm.Embedder = (*keywordEmbedder)(nil)

func TestTextForTransaction(t *testing.T) {
	amount := mustDecimal(t, "26.55")
	tx := &models.Transaction{
		Date:           time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
		DescriptionRaw: "Payment - Amount: USD 10.00; Merchant: WOLT",
		Direction:      models.DirectionExpense,
		AmountGEL:      amount,
		Merchant: &models.Merchant{
			NormalizedName: "wolt",
			Category:       "Dining & Cafes",
		},
	}

	got := TextForTransaction(tx)
	want := "wolt | Dining & Cafes | expense | 26.55 GEL | 2025-01-05 | Payment - Amount: USD 10.00; Merchant: WOLT"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	tx.Merchant = nil
	if !strings.HasPrefix(TextForTransaction(tx), "unknown | Other |") {
		t.Errorf("expected unknown merchant prefix, got %q", TextForTransaction(tx))
	}
}

func TestEmbeddingServiceUnavailable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewEmbeddingService(db, nil)

	if svc.Available() {
		t.Error("expected unavailable without an embedder")
	}
	_, err := svc.SearchSimilar(context.Background(), "anything", 5, nil, nil)
	testutil.AssertAppError(t, err, "CHAT_UNAVAILABLE")
}

func TestGenerateAndSearch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewEmbeddingService(db, keywordEmbedder{})

	spar := testutil.CreateTestMerchantWithName(t, db, "spar", "Groceries")
	wolt := testutil.CreateTestMerchantWithName(t, db, "wolt", "Dining & Cafes")
	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	sparTx := testutil.CreateTestTransaction(t, db, spar.ID, date, "30.00")
	woltTx := testutil.CreateTestTransaction(t, db, wolt.ID, date, "15.00")

	var transactions []models.Transaction
	testutil.AssertNoError(t, db.Preload("Merchant").Find(&transactions).Error)

	var progressCalls int
	generated, err := svc.GenerateForTransactions(context.Background(), transactions, func(done, total int) {
		progressCalls++
		if total != 2 {
			t.Errorf("expected total 2, got %d", total)
		}
	})
	testutil.AssertNoError(t, err)
	if generated != 2 {
		t.Fatalf("expected 2 embeddings, got %d", generated)
	}
	if progressCalls == 0 {
		t.Error("expected progress callbacks")
	}

	hits, err := svc.SearchSimilar(context.Background(), "grocery shopping", 1, nil, nil)
	testutil.AssertNoError(t, err)
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].Transaction.ID != sparTx.ID {
		t.Errorf("expected the groceries transaction, got %d", hits[0].Transaction.ID)
	}
	if hits[0].Similarity < 0.99 {
		t.Errorf("expected near-perfect similarity, got %f", hits[0].Similarity)
	}

	hits, err = svc.SearchSimilar(context.Background(), "wolt dining", 2, nil, nil)
	testutil.AssertNoError(t, err)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Transaction.ID != woltTx.ID {
		t.Errorf("expected the dining transaction first, got %d", hits[0].Transaction.ID)
	}

	// Date filters restrict the candidate set.
	cutoff := date.AddDate(0, 0, 1)
	hits, err = svc.SearchSimilar(context.Background(), "grocery shopping", 5, &cutoff, nil)
	testutil.AssertNoError(t, err)
	if len(hits) != 0 {
		t.Errorf("expected no hits after the cutoff, got %d", len(hits))
	}
}

func mustDecimal(t *testing.T, raw string) decimal.Decimal {
	t.Helper()
	value, err := decimal.NewFromString(raw)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", raw, err)
	}
	return value
}
