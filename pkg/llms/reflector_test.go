package llms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/textevo-go/pkg/core"
	"github.com/XiaoConstantine/textevo-go/pkg/errors"
	"github.com/XiaoConstantine/textevo-go/pkg/logging"
)

func stubReflector(generate generateFunc) *Reflector {
	return &Reflector{generate: generate, logger: logging.GetLogger()}
}

func sampleFailures() []core.EvaluationResult {
	return []core.EvaluationResult{
		{CandidateID: "c1", ScenarioID: "s0", Score: 0.0, Feedback: "missing keywords: refund"},
		{CandidateID: "c1", ScenarioID: "s3", Score: 0.5, Feedback: "tone too informal"},
	}
}

func TestNewReflectorRequiresAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := NewReflector(ReflectorConfig{})
	require.Error(t, err)
	assert.Equal(t, errors.InvalidInput, errors.CodeOf(err))
}

func TestReflectFuncBuildsFailurePrompt(t *testing.T) {
	var captured string
	r := stubReflector(func(ctx context.Context, prompt string) (string, error) {
		captured = prompt
		return "You are a polite assistant that always mentions refunds.", nil
	})

	proposal, err := r.ReflectFunc()(context.Background(), "instructions", "You are an assistant.", sampleFailures())
	require.NoError(t, err)
	assert.Equal(t, "You are a polite assistant that always mentions refunds.", proposal)

	assert.Contains(t, captured, "instructions")
	assert.Contains(t, captured, "You are an assistant.")
	assert.Contains(t, captured, "missing keywords: refund")
	assert.Contains(t, captured, "tone too informal")
	assert.Contains(t, captured, "s0")
}

func TestReflectFuncPropagatesGenerateError(t *testing.T) {
	r := stubReflector(func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New(errors.RateLimitExceeded, "throttled")
	})

	_, err := r.ReflectFunc()(context.Background(), "instructions", "text", sampleFailures())
	require.Error(t, err)
	assert.Equal(t, errors.RateLimitExceeded, errors.CodeOf(err))
	assert.True(t, errors.IsTransient(err))
}

func TestReflectFuncRejectsEmptyProposal(t *testing.T) {
	r := stubReflector(func(ctx context.Context, prompt string) (string, error) {
		return "   \n", nil
	})

	_, err := r.ReflectFunc()(context.Background(), "instructions", "text", sampleFailures())
	require.Error(t, err)
	assert.Equal(t, errors.ReflectionFailed, errors.CodeOf(err))
}

func TestExtractProposal(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "Plain text",
			response: "Revised instructions.",
			want:     "Revised instructions.",
		},
		{
			name:     "Surrounding whitespace",
			response: "\n  Revised instructions.  \n",
			want:     "Revised instructions.",
		},
		{
			name:     "Fenced response",
			response: "```\nRevised instructions.\n```",
			want:     "Revised instructions.",
		},
		{
			name:     "Fenced with language tag",
			response: "```text\nRevised instructions.\n```",
			want:     "Revised instructions.",
		},
		{
			name:     "Empty",
			response: "",
			want:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractProposal(tt.response))
		})
	}
}

func TestBuildPromptCapsFailureList(t *testing.T) {
	failures := make([]core.EvaluationResult, 20)
	for i := range failures {
		failures[i] = core.EvaluationResult{ScenarioID: "s" + string(rune('a'+i)), Score: 0.0, Feedback: "failed"}
	}

	prompt := buildPrompt("instructions", "text", failures)
	assert.Contains(t, prompt, "12 more failures")
}
