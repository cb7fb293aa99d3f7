package insights

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"fintrack/internal/core"
)

// Provider turns a summary into a recommendation text.
type Provider interface {
	Generate(ctx context.Context, s Summary) (string, error)
}

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider asks a Gemini model for recommendations.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, s Summary) (string, error) {
	result, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(Prompt(s)), nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate insight: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", fmt.Errorf("no insight generated")
	}

	var b strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("no insight generated")
	}
	return text, nil
}

// StaticProvider derives recommendations from the summary alone. It is used when
// no model is configured.
type StaticProvider struct{}

func (StaticProvider) Generate(_ context.Context, s Summary) (string, error) {
	var tips []string

	net := s.Net()
	switch {
	case s.Income.IsZero() && s.Expenses.IsZero():
		return "No income or expenses recorded yet.", nil
	case net.IsNegative():
		tips = append(tips, fmt.Sprintf("You spent %s more than you earned. Review recurring expenses first.",
			net.Abs().StringFixed(core.AmountScale)))
	default:
		rate := decimal.Zero
		if s.Income.IsPositive() {
			rate = net.Div(s.Income).Mul(decimal.NewFromInt(100)).Round(0)
		}
		tips = append(tips, fmt.Sprintf("You saved %s%% of your income. Consider moving part of it to savings.", rate.String()))
	}

	if len(s.ByCategory) > 0 && s.Expenses.IsPositive() {
		top := s.ByCategory[0]
		share := top.Amount.Div(s.Expenses).Mul(decimal.NewFromInt(100)).Round(0)
		tips = append(tips, fmt.Sprintf("%s is your largest expense category at %s%% of spending.", top.Name, share.String()))
	}
	if len(s.ByCategory) > 1 {
		tips = append(tips, "Set a budget on your top categories to get warned before overspending.")
	}
	return strings.Join(tips, "\n"), nil
}
