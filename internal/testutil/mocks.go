// Package testutil holds shared mocks and deterministic stubs for tests.
package testutil

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/XiaoConstantine/textevo-go/pkg/core"
)

// MockEvaluator is a testify mock for the evaluate callback.
type MockEvaluator struct {
	mock.Mock
}

func (m *MockEvaluator) Evaluate(ctx context.Context, genome *core.Genome, scenario core.Scenario) (float64, string, error) {
	args := m.Called(ctx, genome, scenario)
	return args.Get(0).(float64), args.String(1), args.Error(2)
}

// Func adapts the mock to the core callback type.
func (m *MockEvaluator) Func() core.EvaluateFunc {
	return m.Evaluate
}

// MockReflector is a testify mock for the reflect callback.
type MockReflector struct {
	mock.Mock
}

func (m *MockReflector) Reflect(ctx context.Context, component, text string, failures []core.EvaluationResult) (string, error) {
	args := m.Called(ctx, component, text, failures)
	return args.String(0), args.Error(1)
}

// Func adapts the mock to the core callback type.
func (m *MockReflector) Func() core.ReflectFunc {
	return m.Reflect
}

// CountingEvaluate wraps an evaluate callback and counts its invocations.
// Safe for concurrent use.
type CountingEvaluate struct {
	calls atomic.Int64
	inner core.EvaluateFunc
}

func NewCountingEvaluate(inner core.EvaluateFunc) *CountingEvaluate {
	return &CountingEvaluate{inner: inner}
}

func (c *CountingEvaluate) Func() core.EvaluateFunc {
	return func(ctx context.Context, genome *core.Genome, scenario core.Scenario) (float64, string, error) {
		c.calls.Add(1)
		return c.inner(ctx, genome, scenario)
	}
}

func (c *CountingEvaluate) Calls() int64 {
	return c.calls.Load()
}

// RecordingReflect wraps a reflect callback and records which components
// were offered for mutation, in call order. Safe for concurrent use.
type RecordingReflect struct {
	mu         sync.Mutex
	components []string
	inner      core.ReflectFunc
}

func NewRecordingReflect(inner core.ReflectFunc) *RecordingReflect {
	return &RecordingReflect{inner: inner}
}

func (r *RecordingReflect) Func() core.ReflectFunc {
	return func(ctx context.Context, component, text string, failures []core.EvaluationResult) (string, error) {
		r.mu.Lock()
		r.components = append(r.components, component)
		r.mu.Unlock()
		return r.inner(ctx, component, text, failures)
	}
}

func (r *RecordingReflect) Components() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.components))
	copy(out, r.components)
	return out
}

// KeywordStubEvaluate scores 1.0 when every scenario keyword appears in the
// genome text, 0.0 otherwise. Deterministic and model-free.
func KeywordStubEvaluate() core.EvaluateFunc {
	return func(_ context.Context, genome *core.Genome, scenario core.Scenario) (float64, string, error) {
		var text strings.Builder
		for _, c := range genome.Components() {
			text.WriteString(c.Text)
			text.WriteString(" ")
		}
		for _, kw := range scenario.Keywords {
			if !strings.Contains(text.String(), kw) {
				return 0.0, "missing keyword: " + kw, nil
			}
		}
		return 1.0, "", nil
	}
}

// AppendStubReflect proposes the component text with suffix appended.
// Deterministic and model-free.
func AppendStubReflect(suffix string) core.ReflectFunc {
	return func(_ context.Context, _, text string, _ []core.EvaluationResult) (string, error) {
		return text + suffix, nil
	}
}
