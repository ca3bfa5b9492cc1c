// Package narrative turns dashboard numbers into a short plain-language
// summary using Gemini.
package narrative

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dvloznov/finance-insights/internal/logger"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// maxSummaryChars bounds the summary attached to a dashboard.
const maxSummaryChars = 600

// Digest is the subset of dashboard insights the summary is written from.
type Digest struct {
	AverageDaily    float64
	PredictedWeekly float64
	Trend           string
	GoalCount       int
	AvgGoalHealth   float64
	GoalsAtRisk     int
	RecentAnomalies int
	EmotionalRisk   int
	Alerts          []string
}

type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiNarrator writes summaries with a Gemini model.
type GeminiNarrator struct {
	models generator
	model  string
}

// NewGeminiNarrator creates a genai client configured from the environment
// (GOOGLE_API_KEY or Vertex AI settings).
func NewGeminiNarrator(ctx context.Context, model string) (*GeminiNarrator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiNarrator: create genai client: %w", err)
	}
	return newNarrator(client.Models, model), nil
}

func newNarrator(models generator, model string) *GeminiNarrator {
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiNarrator{models: models, model: model}
}

// Narrate returns a summary of d in at most a few sentences.
func (n *GeminiNarrator) Narrate(ctx context.Context, d Digest) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: BuildPrompt(d)}},
		},
	}
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.4),
		MaxOutputTokens: 256,
	}

	resp, err := n.models.GenerateContent(ctx, n.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("Narrate: generate content: %w", err)
	}

	text := cleanSummary(resp.Text())
	if text == "" {
		return "", fmt.Errorf("Narrate: empty response from model")
	}

	log := logger.FromContext(ctx)
	log.Debug().Str("model", n.model).Int("chars", len(text)).Msg("Generated dashboard narrative")
	return text, nil
}

// BuildPrompt renders the instruction and numbers sent to the model.
func BuildPrompt(d Digest) string {
	var b strings.Builder
	b.WriteString("You are a friendly personal finance coach for a student.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- Summarise the numbers below in at most three short sentences.\n")
	b.WriteString("- Mention the most urgent alert first, if there is one.\n")
	b.WriteString("- Use plain text only. No Markdown, no lists, no emojis.\n")
	b.WriteString("- Do not invent numbers that are not listed.\n\n")

	b.WriteString("Numbers:\n")
	fmt.Fprintf(&b, "- Average daily spending: $%.2f\n", d.AverageDaily)
	fmt.Fprintf(&b, "- Predicted spending next 7 days: $%.2f\n", d.PredictedWeekly)
	if d.Trend != "" {
		fmt.Fprintf(&b, "- Spending trend: %s\n", d.Trend)
	}
	fmt.Fprintf(&b, "- Goals: %d, average health %.1f%%, at risk %d\n", d.GoalCount, d.AvgGoalHealth, d.GoalsAtRisk)
	fmt.Fprintf(&b, "- Unusual transactions in the last 7 days: %d\n", d.RecentAnomalies)
	fmt.Fprintf(&b, "- Emotional spending risk score: %d/100\n", d.EmotionalRisk)

	if len(d.Alerts) > 0 {
		b.WriteString("\nAlerts:\n")
		for _, a := range d.Alerts {
			fmt.Fprintf(&b, "- %s\n", a)
		}
	}
	return b.String()
}

// cleanSummary strips code fences and Markdown emphasis the model may add
// despite the instructions, collapses whitespace and bounds the length.
func cleanSummary(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.NewReplacer("**", "", "__", "", "`", "").Replace(s)
	s = strings.Join(strings.Fields(s), " ")

	if len(s) > maxSummaryChars {
		cut := strings.LastIndex(s[:maxSummaryChars], ". ")
		if cut > 0 {
			s = s[:cut+1]
		} else {
			s = s[:maxSummaryChars]
		}
	}
	return s
}
