package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "moneta/internal/errors"
	"moneta/internal/llm"
	"moneta/internal/logger"
	"moneta/internal/models"
)

// Source types attached to chat answers.
const (
	sourceTypeSQL      = "sql"
	sourceTypeSemantic = "semantic"
)

// ChatConfig tunes the chat engine.
type ChatConfig struct {
	ContextTurns    int
	ContextMaxChars int
	DefaultTopK     int
	NoiseTokens     []string
}

// AskOptions tunes one question: a forced answer mode, explicit date
// bounds that suppress date inference, and the semantic retrieval depth.
type AskOptions struct {
	Mode     string
	DateFrom *time.Time
	DateTo   *time.Time
	TopK     int
}

// ChatAnswer is the engine's reply to one question.
type ChatAnswer struct {
	ThreadID  string             `json:"thread_id"`
	MessageID string             `json:"message_id"`
	Question  string             `json:"question"`
	Answer    string             `json:"answer"`
	Mode      string             `json:"mode"`
	Sources   []models.ChatSource `json:"sources"`
}

// chatService answers questions about stored transactions with a
// whitelisted SQL engine, a semantic retriever, or both.
type chatService struct {
	db         *gorm.DB
	planner    llm.Planner
	composer   llm.Composer
	embeddings EmbeddingServicer

	contextTurns    int
	contextMaxChars int
	defaultTopK     int
	noiseTokens     []string

	// one mutex per thread so turns in a thread never interleave
	threadLocks sync.Map
	now         func() time.Time
}

// NewChatService creates a new ChatServicer. planner and composer may be
// nil; the engine then plans heuristically and renders answers itself.
func NewChatService(db *gorm.DB, planner llm.Planner, composer llm.Composer, embeddings EmbeddingServicer, cfg ChatConfig) ChatServicer {
	return &chatService{
		db:              db,
		planner:         planner,
		composer:        composer,
		embeddings:      embeddings,
		contextTurns:    cfg.ContextTurns,
		contextMaxChars: cfg.ContextMaxChars,
		defaultTopK:     cfg.DefaultTopK,
		noiseTokens:     cfg.NoiseTokens,
		now:             time.Now,
	}
}

func (s *chatService) lockThread(threadID string) func() {
	value, _ := s.threadLocks.LoadOrStore(threadID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Ask answers a question in a thread. opts.Mode forces sql, semantic,
// or hybrid; empty picks automatically. Explicit date bounds win over
// dates inferred from the question. Nothing is persisted when no engine
// can produce an answer.
func (s *chatService) Ask(ctx context.Context, threadID, question string, opts AskOptions) (*ChatAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "question must not be empty")
	}
	if _, err := s.GetThread(threadID); err != nil {
		return nil, err
	}

	unlock := s.lockThread(threadID)
	defer unlock()

	history, err := s.buildContextWindow(threadID)
	if err != nil {
		return nil, err
	}

	plan := s.plan(ctx, question, history)
	now := s.now()
	from, to := opts.DateFrom, opts.DateTo
	if from == nil && to == nil {
		from, to = inferDateRange(question, plan.ComparePeriods, now)
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = s.defaultTopK
	}

	mode := s.chooseMode(opts.Mode, plan)
	answer, sources, mode, err := s.answer(ctx, question, history, plan, mode, from, to, topK, now)
	if err != nil {
		return nil, err
	}

	if _, err := s.appendUserMessage(threadID, question); err != nil {
		return nil, err
	}
	message, err := s.appendAssistantMessage(threadID, question, answer, mode,
		models.SourceList(sources), s.filterMap(plan, from, to, opts.TopK), models.JSONMap{
			"intent":        plan.Intent,
			"source_count":  len(sources),
			"referential":   looksReferential(question),
			"history_turns": len(history) / 2,
		})
	if err != nil {
		return nil, err
	}

	return &ChatAnswer{
		ThreadID:  threadID,
		MessageID: message.ID,
		Question:  question,
		Answer:    answer,
		Mode:      mode,
		Sources:   sources,
	}, nil
}

// plan asks the model planner, falling back to heuristics entirely when
// it is absent or fails, and filling any blanks it leaves.
func (s *chatService) plan(ctx context.Context, question string, history []string) *llm.IntentPlan {
	fallback := heuristicPlan(question, s.now())

	if s.planner == nil {
		return fallback
	}
	planHistory := history
	if !looksReferential(question) {
		planHistory = nil
	}
	plan, err := s.planner.PlanIntent(ctx, question, planHistory)
	if err != nil {
		logger.Get().Warnw("intent planning fell back to heuristics", "error", err)
		return fallback
	}

	if plan.Intent == "" {
		plan.Intent = fallback.Intent
	}
	if len(plan.CategoryFilters) == 0 {
		plan.CategoryFilters = fallback.CategoryFilters
	}
	if plan.MerchantHint == "" {
		plan.MerchantHint = fallback.MerchantHint
	}
	if len(plan.ComparePeriods) == 0 {
		plan.ComparePeriods = fallback.ComparePeriods
	}
	plan.WantsSemantic = plan.WantsSemantic || fallback.WantsSemantic
	return plan
}

func (s *chatService) chooseMode(requested string, plan *llm.IntentPlan) string {
	switch requested {
	case models.ChatModeSQL, models.ChatModeSemantic, models.ChatModeHybrid:
		return requested
	}
	if plan.WantsSemantic {
		return models.ChatModeSemantic
	}
	if plan.Intent == intentTransactionsSearch && s.embeddings.Available() {
		return models.ChatModeHybrid
	}
	return models.ChatModeSQL
}

// answer runs the chosen engine with cross-engine fallbacks: a failed SQL
// plan retries semantically, an unavailable semantic engine retries with
// SQL, and a hybrid answer survives as long as one side produced sources.
func (s *chatService) answer(ctx context.Context, question string, history []string, plan *llm.IntentPlan, mode string, from, to *time.Time, topK int, now time.Time) (string, []models.ChatSource, string, error) {
	var sources []models.ChatSource
	var sqlErr, semErr error

	switch mode {
	case models.ChatModeSQL:
		sources, sqlErr = s.buildSQLSources(plan, question, from, to, now)
		if sqlErr != nil && s.embeddings.Available() {
			logger.Get().Warnw("sql engine failed, retrying semantically", "error", sqlErr)
			mode = models.ChatModeSemantic
			sources, semErr = s.semanticSources(ctx, question, from, to, topK)
		}
	case models.ChatModeSemantic:
		if s.embeddings.Available() {
			sources, semErr = s.semanticSources(ctx, question, from, to, topK)
		} else {
			mode = models.ChatModeSQL
			sources, sqlErr = s.buildSQLSources(plan, question, from, to, now)
		}
	case models.ChatModeHybrid:
		sqlSources, sqlFailure := s.buildSQLSources(plan, question, from, to, now)
		var semSources []models.ChatSource
		var semFailure error
		if s.embeddings.Available() {
			semSources, semFailure = s.semanticSources(ctx, question, from, to, topK)
		}
		sources = append(sqlSources, semSources...)
		sqlErr, semErr = sqlFailure, semFailure
		if len(sources) > 0 {
			sqlErr, semErr = nil, nil
		}
	}

	if sqlErr != nil || semErr != nil || len(sources) == 0 {
		for _, failure := range []error{sqlErr, semErr} {
			if failure != nil {
				logger.Get().Errorw("chat engine failed", "mode", mode, "error", failure)
			}
		}
		return "", nil, mode, apperrors.WithMessage(apperrors.ErrChatUnavailable, "no engine could answer this question")
	}

	answer, err := s.compose(ctx, question, history, sources)
	if err != nil {
		return "", nil, mode, err
	}
	return answer, sources, mode, nil
}

func (s *chatService) compose(ctx context.Context, question string, history []string, sources []models.ChatSource) (string, error) {
	if s.composer != nil {
		contexts := make([]llm.SourceContext, 0, len(sources))
		for _, source := range sources {
			contexts = append(contexts, llm.SourceContext{
				SourceType: source.SourceType,
				Title:      source.Title,
				Content:    source.Content,
			})
		}
		answer, err := s.composer.ComposeAnswer(ctx, question, history, contexts)
		if err == nil {
			return answer, nil
		}
		logger.Get().Warnw("answer composition fell back to rendered sources", "error", err)
	}
	return fallbackAnswer(sources), nil
}

// fallbackAnswer renders the sources directly when no composer exists.
func fallbackAnswer(sources []models.ChatSource) string {
	var sb strings.Builder
	for i, source := range sources {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(source.Title)
		sb.WriteString("\n")
		sb.WriteString(source.Content)
	}
	return sb.String()
}

func (s *chatService) filterMap(plan *llm.IntentPlan, from, to *time.Time, requestedTopK int) models.JSONMap {
	filters := models.JSONMap{}
	if from != nil {
		filters["from_date"] = from.Format("2006-01-02")
	}
	if to != nil {
		filters["to_date"] = to.Format("2006-01-02")
	}
	if requestedTopK > 0 {
		filters["top_k"] = requestedTopK
	}
	if len(plan.CategoryFilters) > 0 {
		filters["categories"] = plan.CategoryFilters
	}
	if plan.MerchantHint != "" {
		filters["merchant_hint"] = plan.MerchantHint
	}
	if len(filters) == 0 {
		return nil
	}
	return filters
}

// monthExpr is the dialect-specific YYYY-MM bucket over transactions.date.
func (s *chatService) monthExpr() string {
	if s.db.Dialector.Name() == "postgres" {
		return "to_char(date_trunc('month', transactions.date), 'YYYY-MM')"
	}
	return "strftime('%Y-%m', transactions.date)"
}

func (s *chatService) semanticSources(ctx context.Context, question string, from, to *time.Time, topK int) ([]models.ChatSource, error) {
	hits, err := s.embeddings.SearchSimilar(ctx, question, topK, from, to)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	for _, hit := range hits {
		fmt.Fprintf(&sb, "%s (similarity %.2f)\n", TextForTransaction(&hit.Transaction), hit.Similarity)
	}
	return []models.ChatSource{{
		SourceType: sourceTypeSemantic,
		Title:      fmt.Sprintf("%d most similar transactions", len(hits)),
		Content:    strings.TrimSpace(sb.String()),
	}}, nil
}

// buildSQLSources dispatches the plan to a whitelisted aggregation. User
// text never reaches SQL as anything but a bound parameter.
func (s *chatService) buildSQLSources(plan *llm.IntentPlan, question string, from, to *time.Time, now time.Time) ([]models.ChatSource, error) {
	switch plan.Intent {
	case intentTopMerchants:
		return s.topMerchantsSource(from, to)
	case intentCategoryBreakdown:
		return s.categoryBreakdownSource(from, to)
	case intentCategoryTotal:
		return s.categoryTotalSource(plan.CategoryFilters, from, to)
	case intentMonthlyTrend:
		return s.monthlyTrendSource(from, to)
	case intentCompareMonths:
		return s.compareMonthsSource(plan.ComparePeriods, now)
	case intentMerchantChange:
		return s.merchantChangeSource(plan.MerchantHint, plan.ComparePeriods, now)
	case intentCategoryChange:
		return s.categoryChangeSource(plan.CategoryFilters, plan.ComparePeriods, now)
	case intentTransactionsSearch:
		return s.transactionsSearchSource(plan, question, from, to)
	default:
		return s.summarySource(from, to)
	}
}

func (s *chatService) paymentsInRange(from, to *time.Time) *gorm.DB {
	db := s.db.Model(&models.Transaction{}).Where("transactions.direction = ?", models.DirectionExpense)
	return scopeTransactionDates(db, from, to)
}

func (s *chatService) summarySource(from, to *time.Time) ([]models.ChatSource, error) {
	var rows []struct {
		Direction models.Direction
		Count     int64
		Total     decimal.Decimal
	}
	db := scopeTransactionDates(s.db.Model(&models.Transaction{}), from, to)
	err := db.
		Select("transactions.direction AS direction, COUNT(*) AS count, COALESCE(SUM(transactions.amount_gel), 0) AS total").
		Group("transactions.direction").
		Order("total DESC").
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	columns := []string{"direction", "transactions", "total_gel"}
	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		table = append(table, []string{string(row.Direction), fmt.Sprintf("%d", row.Count), row.Total.StringFixed(2)})
	}
	return []models.ChatSource{tableSource("Spending summary"+rangeSuffix(from, to), columns, table)}, nil
}

func (s *chatService) topMerchantsSource(from, to *time.Time) ([]models.ChatSource, error) {
	var rows []struct {
		Name  string
		Count int64
		Total decimal.Decimal
	}
	err := s.paymentsInRange(from, to).
		Joins("JOIN merchants ON merchants.id = transactions.merchant_id").
		Select("merchants.normalized_name AS name, COUNT(*) AS count, COALESCE(SUM(transactions.amount_gel), 0) AS total").
		Group("merchants.normalized_name").
		Order("total DESC").
		Limit(10).
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	columns := []string{"merchant", "transactions", "total_gel"}
	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		table = append(table, []string{row.Name, fmt.Sprintf("%d", row.Count), row.Total.StringFixed(2)})
	}
	return []models.ChatSource{tableSource("Top merchants by spend"+rangeSuffix(from, to), columns, table)}, nil
}

func (s *chatService) categoryBreakdownSource(from, to *time.Time) ([]models.ChatSource, error) {
	var rows []struct {
		Category string
		Count    int64
		Total    decimal.Decimal
	}
	err := s.paymentsInRange(from, to).
		Joins("JOIN merchants ON merchants.id = transactions.merchant_id").
		Select("merchants.category AS category, COUNT(*) AS count, COALESCE(SUM(transactions.amount_gel), 0) AS total").
		Group("merchants.category").
		Order("total DESC").
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	columns := []string{"category", "transactions", "total_gel"}
	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		table = append(table, []string{row.Category, fmt.Sprintf("%d", row.Count), row.Total.StringFixed(2)})
	}
	return []models.ChatSource{tableSource("Spending by category"+rangeSuffix(from, to), columns, table)}, nil
}

func (s *chatService) categoryTotalSource(categories []string, from, to *time.Time) ([]models.ChatSource, error) {
	if len(categories) == 0 {
		return s.categoryBreakdownSource(from, to)
	}

	var rows []struct {
		Category string
		Count    int64
		Total    decimal.Decimal
	}
	err := s.paymentsInRange(from, to).
		Joins("JOIN merchants ON merchants.id = transactions.merchant_id").
		Where("merchants.category IN ?", categories).
		Select("merchants.category AS category, COUNT(*) AS count, COALESCE(SUM(transactions.amount_gel), 0) AS total").
		Group("merchants.category").
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	columns := []string{"category", "transactions", "total_gel"}
	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		table = append(table, []string{row.Category, fmt.Sprintf("%d", row.Count), row.Total.StringFixed(2)})
	}
	for _, category := range categories {
		found := false
		for _, row := range rows {
			if row.Category == category {
				found = true
				break
			}
		}
		if !found {
			table = append(table, []string{category, "0", "0.00"})
		}
	}
	title := "Total spend in " + strings.Join(categories, ", ") + rangeSuffix(from, to)
	return []models.ChatSource{tableSource(title, columns, table)}, nil
}

func (s *chatService) monthlyTrendSource(from, to *time.Time) ([]models.ChatSource, error) {
	var rows []struct {
		Month string
		Count int64
		Total decimal.Decimal
	}
	err := s.paymentsInRange(from, to).
		Select(s.monthExpr() + " AS month, COUNT(*) AS count, COALESCE(SUM(transactions.amount_gel), 0) AS total").
		Group(s.monthExpr()).
		Order("month ASC").
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	columns := []string{"month", "transactions", "total_gel"}
	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		table = append(table, []string{row.Month, fmt.Sprintf("%d", row.Count), row.Total.StringFixed(2)})
	}
	return []models.ChatSource{tableSource("Monthly spending trend"+rangeSuffix(from, to), columns, table)}, nil
}

// comparePeriodsOrDefault always yields two months, defaulting to the
// previous month versus the current one.
func comparePeriodsOrDefault(pairs []string, now time.Time) (string, string) {
	if len(pairs) >= 2 {
		return pairs[0], pairs[1]
	}
	current := now.Format("2006-01")
	previous := now.AddDate(0, -1, 0).Format("2006-01")
	if len(pairs) == 1 {
		return pairs[0], current
	}
	return previous, current
}

func (s *chatService) monthTotal(base *gorm.DB, pair string) (decimal.Decimal, int64, error) {
	start, end, err := monthBounds(pair)
	if err != nil {
		return decimal.Zero, 0, apperrors.Wrap(apperrors.ErrInvalidInput, err)
	}

	var row struct {
		Count int64
		Total decimal.Decimal
	}
	err = base.Session(&gorm.Session{}).
		Where("transactions.date >= ? AND transactions.date <= ?", start, end).
		Select("COUNT(*) AS count, COALESCE(SUM(transactions.amount_gel), 0) AS total").
		Find(&row).Error
	if err != nil {
		return decimal.Zero, 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return row.Total, row.Count, nil
}

func changeTable(firstPair, secondPair string, firstTotal, secondTotal decimal.Decimal, firstCount, secondCount int64) ([]string, [][]string) {
	columns := []string{"month", "transactions", "total_gel", "change_pct"}
	table := [][]string{
		{firstPair, fmt.Sprintf("%d", firstCount), firstTotal.StringFixed(2), ""},
	}
	changeCell := "n/a"
	if change := pctChange(firstTotal.InexactFloat64(), secondTotal.InexactFloat64()); change != nil {
		changeCell = fmt.Sprintf("%+.1f%%", *change)
	}
	table = append(table, []string{secondPair, fmt.Sprintf("%d", secondCount), secondTotal.StringFixed(2), changeCell})
	return columns, table
}

func (s *chatService) compareMonthsSource(pairs []string, now time.Time) ([]models.ChatSource, error) {
	firstPair, secondPair := comparePeriodsOrDefault(pairs, now)

	firstTotal, firstCount, err := s.monthTotal(s.paymentsInRange(nil, nil), firstPair)
	if err != nil {
		return nil, err
	}
	secondTotal, secondCount, err := s.monthTotal(s.paymentsInRange(nil, nil), secondPair)
	if err != nil {
		return nil, err
	}

	columns, table := changeTable(firstPair, secondPair, firstTotal, secondTotal, firstCount, secondCount)
	title := fmt.Sprintf("Spending %s vs %s", firstPair, secondPair)
	return []models.ChatSource{tableSource(title, columns, table)}, nil
}

func (s *chatService) knownMerchantNames() ([]string, error) {
	var names []string
	if err := s.db.Model(&models.Merchant{}).Order("normalized_name").Pluck("normalized_name", &names).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return names, nil
}

func (s *chatService) merchantChangeSource(hint string, pairs []string, now time.Time) ([]models.ChatSource, error) {
	if hint == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "could not tell which merchant the question is about")
	}
	known, err := s.knownMerchantNames()
	if err != nil {
		return nil, err
	}
	name := resolveMerchantName(hint, known, s.noiseTokens)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrMerchantNotFound, "no merchant matches "+hint)
	}

	base := func() *gorm.DB {
		return s.paymentsInRange(nil, nil).
			Joins("JOIN merchants ON merchants.id = transactions.merchant_id").
			Where("merchants.normalized_name = ?", name)
	}
	firstPair, secondPair := comparePeriodsOrDefault(pairs, now)
	firstTotal, firstCount, err := s.monthTotal(base(), firstPair)
	if err != nil {
		return nil, err
	}
	secondTotal, secondCount, err := s.monthTotal(base(), secondPair)
	if err != nil {
		return nil, err
	}

	columns, table := changeTable(firstPair, secondPair, firstTotal, secondTotal, firstCount, secondCount)
	title := fmt.Sprintf("Spending at %s, %s vs %s", name, firstPair, secondPair)
	return []models.ChatSource{tableSource(title, columns, table)}, nil
}

func (s *chatService) categoryChangeSource(categories []string, pairs []string, now time.Time) ([]models.ChatSource, error) {
	if len(categories) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "could not tell which category the question is about")
	}
	category := categories[0]

	base := func() *gorm.DB {
		return s.paymentsInRange(nil, nil).
			Joins("JOIN merchants ON merchants.id = transactions.merchant_id").
			Where("merchants.category = ?", category)
	}
	firstPair, secondPair := comparePeriodsOrDefault(pairs, now)
	firstTotal, firstCount, err := s.monthTotal(base(), firstPair)
	if err != nil {
		return nil, err
	}
	secondTotal, secondCount, err := s.monthTotal(base(), secondPair)
	if err != nil {
		return nil, err
	}

	columns, table := changeTable(firstPair, secondPair, firstTotal, secondTotal, firstCount, secondCount)
	title := fmt.Sprintf("%s spending, %s vs %s", category, firstPair, secondPair)
	return []models.ChatSource{tableSource(title, columns, table)}, nil
}

func (s *chatService) transactionsSearchSource(plan *llm.IntentPlan, question string, from, to *time.Time) ([]models.ChatSource, error) {
	db := scopeTransactionDates(s.db.Model(&models.Transaction{}), from, to).Preload("Merchant")

	if len(plan.CategoryFilters) > 0 || plan.MerchantHint != "" {
		db = db.Joins("JOIN merchants ON merchants.id = transactions.merchant_id")
	}
	if len(plan.CategoryFilters) > 0 {
		db = db.Where("merchants.category IN ?", plan.CategoryFilters)
	}
	if plan.MerchantHint != "" {
		known, err := s.knownMerchantNames()
		if err != nil {
			return nil, err
		}
		if name := resolveMerchantName(plan.MerchantHint, known, s.noiseTokens); name != "" {
			db = db.Where("merchants.normalized_name = ?", name)
		} else {
			db = db.Where("LOWER(transactions.description_raw) LIKE LOWER(?)", "%"+plan.MerchantHint+"%")
		}
	}

	var transactions []models.Transaction
	err := db.Order("transactions.date DESC, transactions.id DESC").Limit(20).Find(&transactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	columns := []string{"date", "merchant", "direction", "amount_gel", "description"}
	table := make([][]string, 0, len(transactions))
	for i := range transactions {
		tx := &transactions[i]
		merchant := ""
		if tx.Merchant != nil {
			merchant = tx.Merchant.NormalizedName
		}
		table = append(table, []string{
			tx.Date.Format("2006-01-02"),
			merchant,
			string(tx.Direction),
			tx.AmountGEL.StringFixed(2),
			truncateText(tx.DescriptionRaw, 80),
		})
	}
	return []models.ChatSource{tableSource("Matching transactions"+rangeSuffix(from, to), columns, table)}, nil
}

func tableSource(title string, columns []string, rows [][]string) models.ChatSource {
	return models.ChatSource{
		SourceType:   sourceTypeSQL,
		Title:        title,
		Content:      renderTable(columns, rows),
		TableColumns: columns,
		TableRows:    rows,
	}
}

func renderTable(columns []string, rows [][]string) string {
	if len(rows) == 0 {
		return "no matching transactions"
	}
	var sb strings.Builder
	sb.WriteString(strings.Join(columns, " | "))
	for _, row := range rows {
		sb.WriteString("\n")
		sb.WriteString(strings.Join(row, " | "))
	}
	return sb.String()
}

func rangeSuffix(from, to *time.Time) string {
	switch {
	case from != nil && to != nil:
		return fmt.Sprintf(" (%s to %s)", from.Format("2006-01-02"), to.Format("2006-01-02"))
	case from != nil:
		return fmt.Sprintf(" (from %s)", from.Format("2006-01-02"))
	case to != nil:
		return fmt.Sprintf(" (until %s)", to.Format("2006-01-02"))
	default:
		return ""
	}
}

func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max]) + "..."
}
