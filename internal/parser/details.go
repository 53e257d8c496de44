package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"moneta/internal/models"
)

// Statement detail strings pack several attributes into one free-text
// field, e.g. "Payment - Amount: USD 12.40; rate: 2.7150; MCC: 5812;
// Card No: ****1234; Date: 05/01/2026 14:02; Merchant: WOLT, Tbilisi".
var (
	amountRe     = regexp.MustCompile(`(?i)Amount\s*:?\s*([A-Z]{3})\s*([-+]?\d[\d\s\x{00a0}.,]*)`)
	rateRe       = regexp.MustCompile(`(?i)rate\s*:\s*(\d+(?:[.,]\d+)?)`)
	mccRe        = regexp.MustCompile(`(?i)MCC\s*:\s*(\d+)`)
	cardRe       = regexp.MustCompile(`(?i)Card\s*No\s*:\s*\*+(\d{4})`)
	postedDateRe = regexp.MustCompile(`(?i)Date\s*:\s*(\d{2}/\d{2}/\d{4})(?:\s+\d{2}:\d{2})?`)
)

// InferDirection classifies the cash flow from the leading words of the
// details text. Unrecognized rows default to expense.
func InferDirection(details string) models.Direction {
	lowered := strings.ToLower(strings.TrimSpace(details))
	switch {
	case strings.HasPrefix(lowered, "payment"):
		return models.DirectionExpense
	case strings.HasPrefix(lowered, "incoming transfer"), strings.Contains(lowered, "transfer"):
		return models.DirectionTransfer
	case strings.HasPrefix(lowered, "income"):
		return models.DirectionIncome
	default:
		return models.DirectionExpense
	}
}

// extractOriginalAmount pulls "Amount: CCY n" out of the details.
func extractOriginalAmount(details string) (currency string, amount decimal.Decimal, ok bool) {
	m := amountRe.FindStringSubmatch(details)
	if m == nil {
		return "", decimal.Zero, false
	}
	parsed, err := ParseAmount(m[2])
	if err != nil {
		return "", decimal.Zero, false
	}
	return strings.ToUpper(m[1]), parsed.Abs(), true
}

func extractConversionRate(details string) *decimal.Decimal {
	m := rateRe.FindStringSubmatch(details)
	if m == nil {
		return nil
	}
	rate, err := ParseAmount(m[1])
	if err != nil {
		return nil
	}
	return &rate
}

func extractMCC(details string) *string {
	m := mccRe.FindStringSubmatch(details)
	if m == nil {
		return nil
	}
	return &m[1]
}

func extractCardLast4(details string) *string {
	m := cardRe.FindStringSubmatch(details)
	if m == nil {
		return nil
	}
	return &m[1]
}

func extractPostedDate(details string) *time.Time {
	m := postedDateRe.FindStringSubmatch(details)
	if m == nil {
		return nil
	}
	posted, err := time.Parse("02/01/2006", m[1])
	if err != nil {
		return nil
	}
	return &posted
}
