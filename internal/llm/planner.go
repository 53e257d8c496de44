package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const planSystemPrompt = `You classify personal-finance questions about bank
transactions. Given a question and recent conversation turns, decide which
analysis it needs. Respond with strict JSON only, no prose and no markdown.`

const planShape = `{"intent": "summary|top_merchants|category_breakdown|monthly_trend|compare_months|merchant_change|category_change|category_total|transactions_search",
"category_filters": ["..."], "merchant_hint": "...", "compare_periods": ["YYYY-MM", "YYYY-MM"], "wants_semantic": false}`

// GeminiPlanner refines chat questions into structured intent plans.
type GeminiPlanner struct {
	client *Client
}

// NewGeminiPlanner wraps a Client as a Planner.
func NewGeminiPlanner(client *Client) *GeminiPlanner {
	return &GeminiPlanner{client: client}
}

var _ Planner = (*GeminiPlanner)(nil)

func (g *GeminiPlanner) PlanIntent(ctx context.Context, question string, history []string) (*IntentPlan, error) {
	var sb strings.Builder
	if len(history) > 0 {
		sb.WriteString("Recent conversation:\n")
		for _, turn := range history {
			fmt.Fprintf(&sb, "%s\n", turn)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Question: %s\n\n", question)
	fmt.Fprintf(&sb, "Answer with one JSON object shaped as:\n%s\n", planShape)
	sb.WriteString("Set wants_semantic to true only when the question asks to explain, ")
	sb.WriteString("interpret, or find unusual activity rather than aggregate numbers. ")
	sb.WriteString("Omit fields you cannot infer by using empty values.")

	raw, err := g.client.GenerateJSON(ctx, planSystemPrompt, sb.String())
	if err != nil {
		return nil, err
	}

	var plan IntentPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return nil, fmt.Errorf("failed to parse intent plan: %w", err)
	}
	return &plan, nil
}
