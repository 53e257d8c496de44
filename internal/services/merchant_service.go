package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "moneta/internal/errors"
	"moneta/internal/llm"
	"moneta/internal/models"
	"moneta/internal/pagination"
	"moneta/internal/parser"
)

var (
	merchantNameRe   = regexp.MustCompile(`(?i)Merchant:\s*([^,;]+)`)
	paymentServiceRe = regexp.MustCompile(`(?i)payment service,\s*([^,;]+)`)
	senderRe         = regexp.MustCompile(`(?i)Sender:\s*([^,;]+)`)
	trailingDigitsRe = regexp.MustCompile(`(\s\d+)+$`)
)

// Names assigned to rows that have no real counterparty.
const (
	internalTransferName = "internal transfer"
	incomeName           = "income"
)

// ExtractMerchantRaw pulls the counterparty name out of a statement
// description. Transfers and conversions collapse to a single synthetic
// merchant, as do plain income rows without a sender.
func ExtractMerchantRaw(description string, direction models.Direction) string {
	lower := strings.ToLower(description)
	if direction == models.DirectionTransfer || strings.Contains(lower, "conversion") {
		return internalTransferName
	}

	for _, re := range []*regexp.Regexp{merchantNameRe, paymentServiceRe, senderRe} {
		if match := re.FindStringSubmatch(description); match != nil {
			if name := strings.TrimSpace(match[1]); name != "" {
				return name
			}
		}
	}

	if direction == models.DirectionIncome {
		return incomeName
	}
	return strings.TrimSpace(description)
}

// NormalizeMerchantName canonicalizes a raw merchant name: lowercase,
// punctuation folded to spaces, configured noise tokens removed, and
// trailing numeric tokens dropped so terminal IDs never split a merchant.
func NormalizeMerchantName(raw string, noiseTokens []string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(raw) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteRune(' ')
		}
	}

	fields := strings.Fields(sb.String())
	kept := fields[:0]
	for _, field := range fields {
		if isNoiseToken(field, noiseTokens) {
			continue
		}
		kept = append(kept, field)
	}

	name := trailingDigitsRe.ReplaceAllString(strings.Join(kept, " "), "")
	if name == "" {
		name = "unknown"
	}
	return name
}

func isNoiseToken(token string, noiseTokens []string) bool {
	for _, noise := range noiseTokens {
		if token == noise {
			return true
		}
	}
	return false
}

// MerchantSummary is one merchant with its transaction aggregates.
type MerchantSummary struct {
	models.Merchant
	TransactionCount int64           `json:"transaction_count"`
	TotalSpentGEL    decimal.Decimal `json:"total_spent_gel"`
}

// ResolveResult maps parsed candidates to merchant rows.
type ResolveResult struct {
	// MerchantIDs is aligned index-for-index with the input candidates.
	MerchantIDs       []*uint
	LLMUsedCount      int
	FallbackUsedCount int
}

// merchantService resolves, lists, and recategorizes merchants.
type merchantService struct {
	db          *gorm.DB
	categorizer *Categorizer
	categories  CategoryServicer
	noiseTokens []string
}

// NewMerchantService creates a new MerchantServicer.
func NewMerchantService(db *gorm.DB, categorizer *Categorizer, categories CategoryServicer, noiseTokens []string) MerchantServicer {
	return &merchantService{
		db:          db,
		categorizer: categorizer,
		categories:  categories,
		noiseTokens: noiseTokens,
	}
}

// ResolveForCandidates maps every candidate to a merchant, creating and
// categorizing merchants seen for the first time. The LLM and fallback
// counters cover newly created merchants only.
func (s *merchantService) ResolveForCandidates(ctx context.Context, candidates []parser.Candidate) (*ResolveResult, error) {
	result := &ResolveResult{MerchantIDs: make([]*uint, len(candidates))}
	if len(candidates) == 0 {
		return result, nil
	}

	// One input per distinct normalized name, keeping the first sample
	// description for categorization and the latest raw spelling.
	normalized := make([]string, len(candidates))
	inputsByName := make(map[string]llm.MerchantInput)
	latestRaw := make(map[string]string)
	order := make([]string, 0)
	for i, candidate := range candidates {
		raw := ExtractMerchantRaw(candidate.DescriptionRaw, candidate.Direction)
		name := NormalizeMerchantName(raw, s.noiseTokens)
		normalized[i] = name
		latestRaw[name] = raw
		if _, seen := inputsByName[name]; !seen {
			inputsByName[name] = llm.MerchantInput{
				RawName:        raw,
				NormalizedName: name,
				DescriptionRaw: candidate.DescriptionRaw,
				MCCCode:        candidate.MCCCode,
				Direction:      string(candidate.Direction),
			}
			order = append(order, name)
		}
	}

	existing, err := s.findByNormalizedNames(order)
	if err != nil {
		return nil, err
	}

	missing := make([]llm.MerchantInput, 0)
	for _, name := range order {
		if _, ok := existing[name]; !ok {
			missing = append(missing, inputsByName[name])
		}
	}

	if len(missing) > 0 {
		decisions := s.categorizer.Categorize(ctx, missing)
		for _, input := range missing {
			decision := decisions[input.NormalizedName]
			merchant := &models.Merchant{
				RawName:        latestRaw[input.NormalizedName],
				NormalizedName: input.NormalizedName,
				Category:       decision.Category,
				CategorySource: decision.Source,
				MCCCode:        input.MCCCode,
			}
			// A concurrent upload may create the same merchant between
			// the lookup above and this insert. The conflict path keeps
			// the surviving row's category and only refreshes raw_name.
			err := s.db.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "normalized_name"}},
				DoUpdates: clause.Assignments(map[string]interface{}{"raw_name": merchant.RawName}),
			}).Create(merchant).Error
			if err != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			// The struct is not reloaded on the conflict path; read the
			// surviving row back for its id and category.
			var saved models.Merchant
			if err := s.db.Where("normalized_name = ?", input.NormalizedName).First(&saved).Error; err != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			existing[input.NormalizedName] = &saved
			if decision.Source == models.CategorySourceLLM {
				result.LLMUsedCount++
			} else {
				result.FallbackUsedCount++
			}
		}
	}

	// raw_name tracks the newest spelling seen for each merchant.
	for name, merchant := range existing {
		raw := latestRaw[name]
		if raw == "" || raw == merchant.RawName {
			continue
		}
		err := s.db.Model(&models.Merchant{}).Where("id = ?", merchant.ID).
			Update("raw_name", raw).Error
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		merchant.RawName = raw
	}

	for i, name := range normalized {
		if merchant, ok := existing[name]; ok {
			id := merchant.ID
			result.MerchantIDs[i] = &id
		}
	}
	return result, nil
}

func (s *merchantService) findByNormalizedNames(names []string) (map[string]*models.Merchant, error) {
	var merchants []models.Merchant
	if err := s.db.Where("normalized_name IN ?", names).Find(&merchants).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	byName := make(map[string]*models.Merchant, len(merchants))
	for i := range merchants {
		byName[merchants[i].NormalizedName] = &merchants[i]
	}
	return byName, nil
}

// List returns merchants with transaction counts and spend totals,
// ordered by total outgoing GEL descending.
func (s *merchantService) List(page pagination.ListRequest) (*pagination.PageResponse[MerchantSummary], error) {
	var total int64
	if err := s.db.Model(&models.Merchant{}).Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var summaries []MerchantSummary
	err := s.db.Model(&models.Merchant{}).
		Select(`merchants.*,
			COUNT(transactions.id) AS transaction_count,
			COALESCE(SUM(CASE WHEN transactions.direction = ? THEN transactions.amount_gel ELSE 0 END), 0) AS total_spent_gel`,
			models.DirectionExpense).
		Joins("LEFT JOIN transactions ON transactions.merchant_id = merchants.id").
		Group("merchants.id").
		Order("total_spent_gel DESC, merchants.normalized_name ASC").
		Scopes(pagination.Window(page)).
		Find(&summaries).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return pagination.NewPageResponse(summaries, page, total), nil
}

// UpdateCategory reassigns a merchant to a taxonomy category and pins the
// decision so later uploads never overwrite it.
func (s *merchantService) UpdateCategory(merchantID uint, category string) (*models.Merchant, error) {
	ok, err := s.categories.Exists(category)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.WithMessage(apperrors.ErrUnknownCategory, "category is not part of the taxonomy: "+category)
	}

	var merchant models.Merchant
	if err := s.db.First(&merchant, merchantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrMerchantNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	merchant.Category = category
	merchant.CategorySource = models.CategorySourceUser
	if err := s.db.Save(&merchant).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &merchant, nil
}
