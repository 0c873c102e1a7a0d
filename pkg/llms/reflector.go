// Package llms provides model-backed reflection callbacks. The optimization
// core never imports this package; a Reflector is one possible provider of
// the reflect seam among any.
package llms

import (
	"context"
	stderrors "errors"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/XiaoConstantine/textevo-go/pkg/core"
	"github.com/XiaoConstantine/textevo-go/pkg/errors"
	"github.com/XiaoConstantine/textevo-go/pkg/logging"
)

// ReflectorConfig configures the Anthropic-backed reflector.
type ReflectorConfig struct {
	APIKey    string // empty: taken from ANTHROPIC_API_KEY
	Model     string // Default: claude-sonnet-4-20250514
	MaxTokens int    // Default: 1024
	BaseURL   string // optional endpoint override
}

// generateFunc is the seam between prompt assembly and the wire call. Tests
// swap it out; production wires it to the Messages API.
type generateFunc func(ctx context.Context, prompt string) (string, error)

// Reflector turns evaluation failures into revised component text by asking
// a model to analyze the failure feedback.
type Reflector struct {
	generate generateFunc
	logger   *logging.Logger
}

// NewReflector builds a reflector backed by the Anthropic Messages API.
func NewReflector(cfg ReflectorConfig) (*Reflector, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New(errors.InvalidInput, "API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Reflector{
		generate: func(ctx context.Context, prompt string) (string, error) {
			message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
				Model: anthropic.Model(cfg.Model),
				Messages: []anthropic.MessageParam{
					anthropic.NewUserMessage(
						anthropic.NewTextBlock(prompt),
					),
				},
				MaxTokens: int64(cfg.MaxTokens),
			})
			if err != nil {
				return "", wrapAPIError(err)
			}
			if message == nil || len(message.Content) == 0 {
				return "", errors.New(errors.ReflectionFailed, "received empty content from Anthropic API")
			}
			var text string
			if block := message.Content[0]; block.Type == "text" {
				text = block.Text
			}
			return text, nil
		},
		logger: logging.GetLogger(),
	}, nil
}

// ReflectFunc returns the callback the optimizer invokes for each proposal.
func (r *Reflector) ReflectFunc() core.ReflectFunc {
	return func(ctx context.Context, component, text string, failures []core.EvaluationResult) (string, error) {
		prompt := buildPrompt(component, text, failures)
		response, err := r.generate(ctx, prompt)
		if err != nil {
			return "", err
		}

		proposal := extractProposal(response)
		if proposal == "" {
			return "", errors.WithFields(
				errors.New(errors.ReflectionFailed, "model returned no usable proposal"),
				errors.Fields{"component": component},
			)
		}
		r.logger.Debug(ctx, "reflection proposed %d chars for component %s", len(proposal), component)
		return proposal, nil
	}
}

// wrapAPIError maps provider failures onto retryable codes: rate limits and
// server-side failures are transient, everything else is not.
func wrapAPIError(err error) error {
	var apiErr *anthropic.Error
	if stderrors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			return errors.Wrap(err, errors.RateLimitExceeded, "Anthropic API rate limited")
		case apiErr.StatusCode == 408 || apiErr.StatusCode >= 500:
			return errors.Wrap(err, errors.Timeout, "Anthropic API unavailable")
		default:
			return errors.Wrap(err, errors.ReflectionFailed, "Anthropic API rejected the request")
		}
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, errors.Timeout, "reflection call timed out")
	}
	return errors.Wrap(err, errors.ReflectionFailed, "failed to generate reflection")
}

// extractProposal strips markdown fences and surrounding whitespace from the
// model response. Models occasionally wrap plain text in a code block even
// when told not to.
func extractProposal(response string) string {
	text := strings.TrimSpace(response)
	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		if len(lines) >= 2 {
			// drop the opening fence line and a trailing fence if present
			lines = lines[1:]
			if strings.TrimSpace(lines[len(lines)-1]) == "```" {
				lines = lines[:len(lines)-1]
			}
			text = strings.TrimSpace(strings.Join(lines, "\n"))
		}
	}
	return text
}
