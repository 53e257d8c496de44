package llm

import (
	"context"
	"fmt"
	"strings"
)

const composeSystemPrompt = `You are a personal-finance assistant answering
questions about the user's own bank transactions. Ground every number in the
provided sources, keep answers short and concrete, and say so plainly when
the sources do not cover the question. Amounts are in GEL unless a source says
otherwise.`

// GeminiComposer writes chat answers from retrieved sources.
type GeminiComposer struct {
	client *Client
}

// NewGeminiComposer wraps a Client as a Composer.
func NewGeminiComposer(client *Client) *GeminiComposer {
	return &GeminiComposer{client: client}
}

var _ Composer = (*GeminiComposer)(nil)

func (g *GeminiComposer) ComposeAnswer(ctx context.Context, question string, history []string, sources []SourceContext) (string, error) {
	var sb strings.Builder
	if len(history) > 0 {
		sb.WriteString("Recent conversation:\n")
		for _, turn := range history {
			fmt.Fprintf(&sb, "%s\n", turn)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Sources:\n")
	for i, source := range sources {
		fmt.Fprintf(&sb, "[%d] %s (%s)\n%s\n\n", i+1, source.Title, source.SourceType, source.Content)
	}
	fmt.Fprintf(&sb, "Question: %s\n", question)

	return g.client.Generate(ctx, composeSystemPrompt, sb.String())
}
