package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"moneta/internal/llm"
)

// Chat intents the SQL engine knows how to answer.
const (
	intentSummary            = "summary"
	intentTopMerchants       = "top_merchants"
	intentCategoryBreakdown  = "category_breakdown"
	intentMonthlyTrend       = "monthly_trend"
	intentCompareMonths      = "compare_months"
	intentMerchantChange     = "merchant_change"
	intentCategoryChange     = "category_change"
	intentCategoryTotal      = "category_total"
	intentTransactionsSearch = "transactions_search"
)

var monthsByName = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// categoryAliases maps informal spending words to taxonomy categories.
var categoryAliases = map[string]string{
	"groceries": "Groceries", "grocery": "Groceries", "food shopping": "Groceries", "supermarket": "Groceries",
	"dining": "Dining & Cafes", "restaurants": "Dining & Cafes", "restaurant": "Dining & Cafes",
	"eating out": "Dining & Cafes", "cafes": "Dining & Cafes", "coffee": "Dining & Cafes", "takeout": "Dining & Cafes",
	"transport": "Transport", "transportation": "Transport", "taxi": "Transport", "taxis": "Transport",
	"fuel": "Transport", "gas": "Transport", "commute": "Transport",
	"utilities": "Utilities & Bills", "bills": "Utilities & Bills", "utility": "Utilities & Bills",
	"shopping": "Shopping", "clothes": "Shopping", "clothing": "Shopping",
	"health": "Health & Pharmacy", "pharmacy": "Health & Pharmacy", "medical": "Health & Pharmacy", "medicine": "Health & Pharmacy",
	"entertainment": "Entertainment", "movies": "Entertainment", "games": "Entertainment",
	"travel": "Travel", "flights": "Travel", "hotels": "Travel", "vacation": "Travel",
	"education": "Education", "courses": "Education", "tuition": "Education",
	"beauty": "Beauty & Personal Care", "haircut": "Beauty & Personal Care",
	"home": "Home & Garden", "furniture": "Home & Garden",
	"subscriptions": "Subscriptions & Digital", "subscription": "Subscriptions & Digital", "streaming": "Subscriptions & Digital",
	"cash": "Cash Withdrawal", "atm": "Cash Withdrawal", "withdrawals": "Cash Withdrawal",
	"income": "Income & Transfers", "transfers": "Income & Transfers", "salary": "Income & Transfers",
}

var semanticMarkers = []string{
	"explain", "why ", "what is this", "what was this", "unusual", "strange",
	"weird", "suspicious", "don't recognize", "do not recognize", "anomal",
}

var referentialMarkers = []string{
	"that ", "those ", "this one", "these ", "it ", "them ", "same ",
	"previous", "you mentioned", "you said", "again",
}

var (
	monthYearRe    = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec)\.?\s*(\d{4})?\b`)
	numericMonthRe = regexp.MustCompile(`\b(\d{4})-(\d{2})\b`)
	yearRe         = regexp.MustCompile(`\b(20\d{2})\b`)
	quotedRe       = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)
	merchantHintRe = regexp.MustCompile(`(?i)\b(?:at|from|on|with|to)\s+([a-z][a-z0-9&*.' -]{2,40}?)(?:\s+(?:in|during|last|this|between|compared|vs|versus)\b|[?,.!]|$)`)
)

// extractMonthYearPairs finds explicit months in a question, in order of
// appearance, as YYYY-MM strings. A bare month name takes the year from
// elsewhere in the question or, failing that, the reference year.
func extractMonthYearPairs(question string, now time.Time) []string {
	pairs := make([]string, 0, 2)
	seen := make(map[string]bool)

	add := func(year int, month time.Month) {
		pair := fmt.Sprintf("%04d-%02d", year, month)
		if !seen[pair] {
			seen[pair] = true
			pairs = append(pairs, pair)
		}
	}

	for _, match := range numericMonthRe.FindAllStringSubmatch(question, -1) {
		year, _ := strconv.Atoi(match[1])
		monthNum, _ := strconv.Atoi(match[2])
		if monthNum >= 1 && monthNum <= 12 {
			add(year, time.Month(monthNum))
		}
	}

	defaultYear := now.Year()
	if match := yearRe.FindStringSubmatch(question); match != nil {
		defaultYear, _ = strconv.Atoi(match[1])
	}
	for _, match := range monthYearRe.FindAllStringSubmatch(question, -1) {
		month, ok := monthsByName[strings.ToLower(match[1])]
		if !ok {
			continue
		}
		year := defaultYear
		if match[2] != "" {
			year, _ = strconv.Atoi(match[2])
		}
		add(year, month)
	}
	return pairs
}

// extractCategoryFilters maps alias words in the question to taxonomy
// categories, longest aliases first so "food shopping" beats "shopping".
func extractCategoryFilters(question string) []string {
	lower := strings.ToLower(question)

	aliases := make([]string, 0, len(categoryAliases))
	for alias := range categoryAliases {
		aliases = append(aliases, alias)
	}
	for i := 0; i < len(aliases); i++ {
		for j := i + 1; j < len(aliases); j++ {
			if len(aliases[j]) > len(aliases[i]) {
				aliases[i], aliases[j] = aliases[j], aliases[i]
			}
		}
	}

	filters := make([]string, 0, 2)
	seen := make(map[string]bool)
	for _, alias := range aliases {
		if !containsWord(lower, alias) {
			continue
		}
		category := categoryAliases[alias]
		if !seen[category] {
			seen[category] = true
			filters = append(filters, category)
		}
		lower = strings.ReplaceAll(lower, alias, " ")
	}
	return filters
}

func containsWord(haystack, phrase string) bool {
	idx := strings.Index(haystack, phrase)
	for idx >= 0 {
		beforeOK := idx == 0 || !isWordChar(haystack[idx-1])
		afterIdx := idx + len(phrase)
		afterOK := afterIdx >= len(haystack) || !isWordChar(haystack[afterIdx])
		if beforeOK && afterOK {
			return true
		}
		next := strings.Index(haystack[idx+1:], phrase)
		if next < 0 {
			return false
		}
		idx = idx + 1 + next
	}
	return false
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}

// extractMerchantHint pulls a likely merchant name out of the question:
// quoted text first, then a name after a preposition.
func extractMerchantHint(question string) string {
	if match := quotedRe.FindStringSubmatch(question); match != nil {
		if match[1] != "" {
			return strings.TrimSpace(match[1])
		}
		return strings.TrimSpace(match[2])
	}
	if match := merchantHintRe.FindStringSubmatch(question); match != nil {
		hint := strings.TrimSpace(match[1])
		if _, isAlias := categoryAliases[strings.ToLower(hint)]; isAlias {
			return ""
		}
		if monthYearRe.MatchString(hint) {
			return ""
		}
		return hint
	}
	return ""
}

// resolveMerchantName matches a hint against known normalized names,
// exactly first and then by edit distance over name tokens.
func resolveMerchantName(hint string, known []string, noiseTokens []string) string {
	normalized := NormalizeMerchantName(hint, noiseTokens)
	if normalized == "" || normalized == "unknown" {
		return ""
	}

	best := ""
	bestDistance := 3
	for _, name := range known {
		if name == normalized || strings.Contains(name, normalized) {
			return name
		}
		distance := levenshtein.ComputeDistance(normalized, name)
		if distance < bestDistance {
			bestDistance = distance
			best = name
		}
	}
	return best
}

// looksReferential reports whether a question leans on earlier turns and
// needs the conversation history merged into planning.
func looksReferential(question string) bool {
	lower := " " + strings.ToLower(question) + " "
	for _, marker := range referentialMarkers {
		if strings.Contains(lower, " "+marker) {
			return true
		}
	}
	return false
}

func wantsSemantic(question string) bool {
	lower := strings.ToLower(question)
	for _, marker := range semanticMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// monthBounds returns the first and last day of a YYYY-MM month.
func monthBounds(pair string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01", pair)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("bad month %q: %w", pair, err)
	}
	end := start.AddDate(0, 1, -1)
	return start, end, nil
}

// inferDateRange resolves the question's time scope: explicit months,
// then relative phrases, otherwise unbounded.
func inferDateRange(question string, pairs []string, now time.Time) (*time.Time, *time.Time) {
	if len(pairs) > 0 {
		first, _, err1 := monthBounds(pairs[0])
		_, last, err2 := monthBounds(pairs[len(pairs)-1])
		if err1 == nil && err2 == nil {
			return &first, &last
		}
	}

	lower := strings.ToLower(question)
	switch {
	case strings.Contains(lower, "this month"):
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, -1)
		return &start, &end
	case strings.Contains(lower, "last month"):
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
		end := start.AddDate(0, 1, -1)
		return &start, &end
	case strings.Contains(lower, "this year"):
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)
		return &start, &end
	case strings.Contains(lower, "last year"):
		start := time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(now.Year()-1, time.December, 31, 0, 0, 0, 0, time.UTC)
		return &start, &end
	}
	return nil, nil
}

func pctChange(before, after float64) *float64 {
	if before == 0 {
		return nil
	}
	change := (after - before) / before * 100
	return &change
}

// heuristicPlan classifies a question without any model call. It is the
// planner of last resort and also the scaffold the LLM planner refines.
func heuristicPlan(question string, now time.Time) *llm.IntentPlan {
	lower := strings.ToLower(question)
	plan := &llm.IntentPlan{
		CategoryFilters: extractCategoryFilters(question),
		MerchantHint:    extractMerchantHint(question),
		ComparePeriods:  extractMonthYearPairs(question, now),
		WantsSemantic:   wantsSemantic(question),
	}

	comparing := strings.Contains(lower, "compare") || strings.Contains(lower, " vs ") ||
		strings.Contains(lower, "versus") || strings.Contains(lower, "more than") ||
		strings.Contains(lower, "less than last") || strings.Contains(lower, "change")

	switch {
	case comparing && plan.MerchantHint != "":
		plan.Intent = intentMerchantChange
	case comparing && len(plan.CategoryFilters) > 0:
		plan.Intent = intentCategoryChange
	case comparing && len(plan.ComparePeriods) >= 2:
		plan.Intent = intentCompareMonths
	case strings.Contains(lower, "top ") || strings.Contains(lower, "biggest") ||
		strings.Contains(lower, "most spent") || strings.Contains(lower, "where did"):
		plan.Intent = intentTopMerchants
	case strings.Contains(lower, "breakdown") || strings.Contains(lower, "by category") ||
		strings.Contains(lower, "per category"):
		plan.Intent = intentCategoryBreakdown
	case strings.Contains(lower, "trend") || strings.Contains(lower, "per month") ||
		strings.Contains(lower, "monthly") || strings.Contains(lower, "over time"):
		plan.Intent = intentMonthlyTrend
	case len(plan.CategoryFilters) > 0 && (strings.Contains(lower, "how much") ||
		strings.Contains(lower, "total") || strings.Contains(lower, "spend") ||
		strings.Contains(lower, "spent")):
		plan.Intent = intentCategoryTotal
	case strings.Contains(lower, "find ") || strings.Contains(lower, "search") ||
		strings.Contains(lower, "show me") || strings.Contains(lower, "list "):
		plan.Intent = intentTransactionsSearch
	default:
		plan.Intent = intentSummary
	}
	return plan
}
