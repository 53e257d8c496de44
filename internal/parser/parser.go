// Package parser turns bank-statement XLSX workbooks into validated
// transaction candidates. It classifies every populated row as valid,
// skipped (balance lines, repeated headers, detail-less filler), or
// invalid (unparseable date or amount), and fingerprints each candidate
// with a content-addressed dedup key.
package parser

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"moneta/internal/models"
)

// Sentinel errors surfaced to the upload precondition check.
var (
	ErrNotSpreadsheet = errors.New("file is not a readable xlsx workbook")
	ErrHeaderNotFound = errors.New("no worksheet with the required statement headers (Date, Details, GEL, USD, EUR, GBP)")
)

var (
	requiredHeaders = []string{"date", "details", "gel", "usd", "eur", "gbp"}
	currencyHeaders = []string{"gel", "usd", "eur", "gbp"}
	dateLayouts     = []string{"02/01/2006", "2/1/2006", "2006-01-02", "01-02-06", "1-2-06"}
)

// headerScanLimit bounds the search for the header row; statements carry
// a short preamble before the table starts.
const headerScanLimit = 40

// Candidate is one parsed statement row ready for insertion.
type Candidate struct {
	Date             time.Time
	PostedDate       *time.Time
	DescriptionRaw   string
	Direction        models.Direction
	AmountOriginal   decimal.Decimal
	CurrencyOriginal string
	AmountGEL        decimal.Decimal
	ConversionRate   *decimal.Decimal
	CardLast4        *string
	MCCCode          *string
	DedupKey         string
}

// Result is the outcome of parsing one workbook.
type Result struct {
	Candidates                []Candidate
	RowsTotal                 int
	RowsSkippedNonTransaction int
	RowsInvalid               int
}

// Parser parses statement workbooks with a fixed dedup key policy.
type Parser struct {
	keys KeyConfig
}

// New creates a Parser.
func New(keys KeyConfig) *Parser {
	return &Parser{keys: keys}
}

// Parse reads an XLSX workbook and classifies every populated row.
// It fails only when the file is not a workbook or no sheet carries the
// expected statement headers; bad rows are counted, not fatal.
func (p *Parser) Parse(r io.Reader) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSpreadsheet, err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		headerIdx, columns, ok := findHeaderRow(rows)
		if !ok {
			continue
		}
		return p.parseRows(rows[headerIdx+1:], columns), nil
	}

	return nil, ErrHeaderNotFound
}

// findHeaderRow scans the first rows of a sheet for the statement header
// and returns its index plus a header-name to column-index map.
func findHeaderRow(rows [][]string) (int, map[string]int, bool) {
	limit := len(rows)
	if limit > headerScanLimit {
		limit = headerScanLimit
	}

	for i := 0; i < limit; i++ {
		columns := make(map[string]int)
		for col, cell := range rows[i] {
			name := normalizeHeader(cell)
			switch {
			case name == "date" || name == "details":
				columns[name] = col
			case isCurrencyHeader(name):
				columns[name] = col
			}
		}
		if hasAllHeaders(columns) {
			return i, columns, true
		}
	}
	return 0, nil, false
}

func normalizeHeader(cell string) string {
	text := strings.NewReplacer("\"", " ", "\n", " ").Replace(cell)
	return whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), " ")
}

func isCurrencyHeader(name string) bool {
	for _, h := range currencyHeaders {
		if name == h {
			return true
		}
	}
	return false
}

func hasAllHeaders(columns map[string]int) bool {
	for _, h := range requiredHeaders {
		if _, ok := columns[h]; !ok {
			return false
		}
	}
	return true
}

func (p *Parser) parseRows(rows [][]string, columns map[string]int) *Result {
	result := &Result{}

	for _, row := range rows {
		values := make(map[string]string, len(columns))
		empty := true
		for name, col := range columns {
			var cell string
			if col < len(row) {
				cell = strings.TrimSpace(row[col])
			}
			values[name] = cell
			if cell != "" {
				empty = false
			}
		}
		if empty {
			continue
		}

		result.RowsTotal++

		if isNonTransactionRow(values) {
			result.RowsSkippedNonTransaction++
			continue
		}

		candidate, err := p.parseRow(values)
		if err != nil {
			result.RowsInvalid++
			continue
		}
		result.Candidates = append(result.Candidates, *candidate)
	}

	return result
}

// isNonTransactionRow detects running-balance lines, repeated header
// lines, and rows with neither details nor any currency value.
func isNonTransactionRow(values map[string]string) bool {
	if strings.EqualFold(values["date"], "balance") {
		return true
	}
	if normalizeHeader(values["date"]) == "date" && normalizeHeader(values["details"]) == "details" {
		return true
	}
	if values["details"] == "" {
		for _, h := range currencyHeaders {
			if values[h] != "" {
				return false
			}
		}
		return true
	}
	return false
}

func (p *Parser) parseRow(values map[string]string) (*Candidate, error) {
	date, err := parseStatementDate(values["date"])
	if err != nil {
		return nil, err
	}

	details := values["details"]
	direction := InferDirection(details)

	currency, amount, ok := extractOriginalAmount(details)
	tableCurrency, tableAmount := firstCurrencyValue(values)
	if !ok {
		if tableCurrency == "" {
			return nil, fmt.Errorf("missing amount information")
		}
		currency = tableCurrency
		amount = tableAmount.Abs()
	}

	rate := extractConversionRate(details)

	amountGEL, err := deriveGELAmount(values["gel"], currency, amount, rate, tableCurrency, tableAmount)
	if err != nil {
		return nil, err
	}

	amount = amount.Round(2)
	amountGEL = amountGEL.Round(2)
	card := extractCardLast4(details)

	return &Candidate{
		Date:             date,
		PostedDate:       extractPostedDate(details),
		DescriptionRaw:   details,
		Direction:        direction,
		AmountOriginal:   amount,
		CurrencyOriginal: currency,
		AmountGEL:        amountGEL,
		ConversionRate:   rate,
		CardLast4:        card,
		MCCCode:          extractMCC(details),
		DedupKey:         DedupKey(p.keys, date, amount, currency, details, card),
	}, nil
}

func parseStatementDate(raw string) (time.Time, error) {
	text := strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if date, err := time.Parse(layout, text); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

// firstCurrencyValue returns the first populated currency column and its
// signed value. An empty currency string means no column parsed.
func firstCurrencyValue(values map[string]string) (string, decimal.Decimal) {
	for _, h := range currencyHeaders {
		cell := values[h]
		if cell == "" {
			continue
		}
		amount, err := ParseAmount(cell)
		if err != nil {
			continue
		}
		return strings.ToUpper(h), amount
	}
	return "", decimal.Zero
}

// deriveGELAmount resolves the settled GEL amount from, in order: the GEL
// column, the original amount converted at the stated rate, the original
// amount itself when already GEL, or the signed table value.
func deriveGELAmount(gelCell, currency string, amount decimal.Decimal, rate *decimal.Decimal, tableCurrency string, tableAmount decimal.Decimal) (decimal.Decimal, error) {
	if gelCell != "" {
		gel, err := ParseAmount(gelCell)
		if err == nil {
			return gel.Abs(), nil
		}
	}
	switch {
	case currency != "GEL" && rate != nil:
		return amount.Mul(*rate).Round(2), nil
	case currency == "GEL":
		return amount, nil
	case tableCurrency != "":
		return tableAmount.Abs(), nil
	default:
		return decimal.Zero, fmt.Errorf("unable to derive GEL amount")
	}
}
