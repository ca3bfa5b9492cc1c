package narrative

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type mockGenerator struct {
	GenerateContentFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

func (m *mockGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return m.GenerateContentFunc(ctx, model, contents, config)
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}}},
		},
	}
}

func TestNarrate(t *testing.T) {
	var gotModel, gotPrompt string
	n := newNarrator(&mockGenerator{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			gotModel = model
			gotPrompt = contents[0].Parts[0].Text
			return textResponse("```\n**Spending is up** this week.\n```"), nil
		},
	}, "")

	text, err := n.Narrate(context.Background(), Digest{AverageDaily: 42.5, Alerts: []string{"Spending Increase Predicted"}})
	require.NoError(t, err)

	assert.Equal(t, DefaultModelName, gotModel)
	assert.Contains(t, gotPrompt, "$42.50")
	assert.Contains(t, gotPrompt, "Spending Increase Predicted")
	assert.Equal(t, "Spending is up this week.", text)
}

func TestNarrate_Errors(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		err  error
	}{
		{name: "api error", err: errors.New("quota exceeded")},
		{name: "empty text", resp: textResponse("   ")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newNarrator(&mockGenerator{
				GenerateContentFunc: func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
					return tt.resp, tt.err
				},
			}, "gemini-test")

			_, err := n.Narrate(context.Background(), Digest{})
			assert.Error(t, err)
		})
	}
}

func TestBuildPrompt_OmitsEmptySections(t *testing.T) {
	p := BuildPrompt(Digest{GoalCount: 2, AvgGoalHealth: 55.25})

	assert.Contains(t, p, "Goals: 2, average health 55.2%")
	assert.NotContains(t, p, "Alerts:")
	assert.NotContains(t, p, "Spending trend")
}

func TestCleanSummary_Truncates(t *testing.T) {
	long := strings.Repeat("Keep saving steadily. ", 60)
	s := cleanSummary(long)

	assert.LessOrEqual(t, len(s), maxSummaryChars)
	assert.True(t, strings.HasSuffix(s, "."))
}
