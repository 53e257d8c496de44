// Package llm defines the model-backed capabilities the pipeline and chat
// engine consume, plus the Gemini-backed implementations. Every call is
// advisory: callers must keep working when a capability is nil or errors.
package llm

import "context"

// MerchantInput is one unlabeled merchant sent for classification.
type MerchantInput struct {
	RawName        string
	NormalizedName string
	DescriptionRaw string
	MCCCode        *string
	Direction      string
}

// MerchantLabel is a category decision for one merchant.
type MerchantLabel struct {
	NormalizedName string
	Category       string
}

// Classifier assigns taxonomy categories to merchants.
type Classifier interface {
	ClassifyMerchants(ctx context.Context, merchants []MerchantInput, taxonomy []string) ([]MerchantLabel, error)
}

// Embedder produces embedding vectors for transaction texts.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// IntentPlan is the model's reading of a chat question. Zero values mean
// the model offered no refinement over the heuristic plan.
type IntentPlan struct {
	Intent          string   `json:"intent"`
	CategoryFilters []string `json:"category_filters"`
	MerchantHint    string   `json:"merchant_hint"`
	ComparePeriods  []string `json:"compare_periods"`
	WantsSemantic   bool     `json:"wants_semantic"`
}

// Planner refines a chat question into a structured intent plan.
type Planner interface {
	PlanIntent(ctx context.Context, question string, history []string) (*IntentPlan, error)
}

// SourceContext is evidence handed to the answer composer.
type SourceContext struct {
	SourceType string
	Title      string
	Content    string
}

// Composer writes the final natural-language chat answer.
type Composer interface {
	ComposeAnswer(ctx context.Context, question string, history []string, sources []SourceContext) (string, error)
}
