package services

import (
	"testing"
	"time"

	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/testutil"
)

func TestTransactionList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewTransactionService(db)

	spar := testutil.CreateTestMerchantWithName(t, db, "spar", "Groceries")
	wolt := testutil.CreateTestMerchantWithName(t, db, "wolt", "Dining & Cafes")
	jan := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	testutil.CreateTestTransaction(t, db, spar.ID, jan, "30.00")
	testutil.CreateTestTransaction(t, db, wolt.ID, jan.AddDate(0, 0, 2), "15.00")
	newest := testutil.CreateTestTransaction(t, db, spar.ID, feb, "42.00")

	t.Run("newest first with merchants preloaded", func(t *testing.T) {
		page, err := svc.List(pagination.ListRequest{Limit: 50}, TransactionFilter{})
		testutil.AssertNoError(t, err)
		if page.Total != 3 || len(page.Items) != 3 {
			t.Fatalf("expected 3 transactions, got total %d len %d", page.Total, len(page.Items))
		}
		if page.Items[0].ID != newest.ID {
			t.Errorf("expected the february transaction first")
		}
		if page.Items[0].Merchant == nil || page.Items[0].Merchant.NormalizedName != "spar" {
			t.Errorf("expected the merchant preloaded, got %+v", page.Items[0].Merchant)
		}
	})

	t.Run("date range filter", func(t *testing.T) {
		from := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
		page, err := svc.List(pagination.ListRequest{Limit: 50}, TransactionFilter{FromDate: &from})
		testutil.AssertNoError(t, err)
		if page.Total != 1 || page.Items[0].ID != newest.ID {
			t.Errorf("expected only the february transaction, got %d", page.Total)
		}
	})

	t.Run("category filter", func(t *testing.T) {
		category := "Dining & Cafes"
		page, err := svc.List(pagination.ListRequest{Limit: 50}, TransactionFilter{Category: &category})
		testutil.AssertNoError(t, err)
		if page.Total != 1 {
			t.Fatalf("expected 1 dining transaction, got %d", page.Total)
		}
		if *page.Items[0].MerchantID != wolt.ID {
			t.Errorf("expected the wolt transaction")
		}
	})

	t.Run("merchant filter", func(t *testing.T) {
		page, err := svc.List(pagination.ListRequest{Limit: 50}, TransactionFilter{MerchantID: &spar.ID})
		testutil.AssertNoError(t, err)
		if page.Total != 2 {
			t.Errorf("expected 2 spar transactions, got %d", page.Total)
		}
	})

	t.Run("description search is case-insensitive", func(t *testing.T) {
		search := "TEST PAYMENT"
		page, err := svc.List(pagination.ListRequest{Limit: 50}, TransactionFilter{Search: &search})
		testutil.AssertNoError(t, err)
		if page.Total != 3 {
			t.Errorf("expected all fixture rows to match, got %d", page.Total)
		}
	})

	t.Run("pagination window", func(t *testing.T) {
		page, err := svc.List(pagination.ListRequest{Limit: 2, Offset: 2}, TransactionFilter{})
		testutil.AssertNoError(t, err)
		if page.Total != 3 || len(page.Items) != 1 {
			t.Errorf("expected the last window to hold 1 of 3, got %d of %d", len(page.Items), page.Total)
		}
	})

	t.Run("direction filter", func(t *testing.T) {
		direction := models.DirectionIncome
		page, err := svc.List(pagination.ListRequest{Limit: 50}, TransactionFilter{Direction: &direction})
		testutil.AssertNoError(t, err)
		if page.Total != 0 {
			t.Errorf("expected no income rows, got %d", page.Total)
		}
	})
}
