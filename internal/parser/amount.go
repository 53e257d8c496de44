package parser

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a statement amount that may use either the European
// ("1.234,56") or the US ("1,234.56") convention, with regular or
// non-breaking spaces as group separators.
func ParseAmount(raw string) (decimal.Decimal, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	text = strings.ReplaceAll(text, " ", "")
	text = strings.ReplaceAll(text, " ", "")

	hasComma := strings.Contains(text, ",")
	hasDot := strings.Contains(text, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(text, ",") > strings.LastIndex(text, ".") {
			// European: dot groups, comma decimal.
			text = strings.ReplaceAll(text, ".", "")
			text = strings.ReplaceAll(text, ",", ".")
		} else {
			text = strings.ReplaceAll(text, ",", "")
		}
	case hasComma:
		text = strings.ReplaceAll(text, ",", ".")
	}

	value, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return value, nil
}
