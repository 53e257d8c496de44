package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const classifySystemPrompt = `You are a financial transaction categorizer.
You receive merchants from Georgian bank statements and must assign each one
exactly one category from the allowed list. Respond with strict JSON only,
no prose and no markdown.`

// GeminiClassifier labels merchants by asking Gemini for a strict JSON
// mapping of normalized name to category.
type GeminiClassifier struct {
	client *Client
}

// NewGeminiClassifier wraps a Client as a Classifier.
func NewGeminiClassifier(client *Client) *GeminiClassifier {
	return &GeminiClassifier{client: client}
}

var _ Classifier = (*GeminiClassifier)(nil)

func (g *GeminiClassifier) ClassifyMerchants(ctx context.Context, merchants []MerchantInput, taxonomy []string) ([]MerchantLabel, error) {
	if len(merchants) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("Allowed categories:\n")
	for _, category := range taxonomy {
		fmt.Fprintf(&sb, "- %s\n", category)
	}
	sb.WriteString("\nMerchants to categorize:\n")
	for _, m := range merchants {
		fmt.Fprintf(&sb, "- name: %q", m.NormalizedName)
		if m.MCCCode != nil {
			fmt.Fprintf(&sb, ", mcc: %s", *m.MCCCode)
		}
		if m.Direction != "" {
			fmt.Fprintf(&sb, ", direction: %s", m.Direction)
		}
		fmt.Fprintf(&sb, ", sample: %q\n", truncate(m.DescriptionRaw, 160))
	}
	sb.WriteString("\nAnswer with a JSON array of objects, one per merchant, ")
	sb.WriteString(`shaped as {"normalized_name": "...", "category": "..."}. `)
	sb.WriteString("The category must be copied verbatim from the allowed list.")

	raw, err := g.client.GenerateJSON(ctx, classifySystemPrompt, sb.String())
	if err != nil {
		return nil, err
	}

	var labels []struct {
		NormalizedName string `json:"normalized_name"`
		Category       string `json:"category"`
	}
	if err := json.Unmarshal([]byte(raw), &labels); err != nil {
		return nil, fmt.Errorf("failed to parse classifier response: %w", err)
	}

	out := make([]MerchantLabel, 0, len(labels))
	for _, label := range labels {
		out = append(out, MerchantLabel{
			NormalizedName: label.NormalizedName,
			Category:       label.Category,
		})
	}
	return out, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
