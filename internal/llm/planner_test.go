package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/txplain/tradeintent/internal/apperr"
	"github.com/txplain/tradeintent/internal/tools"
)

// fakeModel replays a fixed queue of responses, one per GenerateContent
// call, so the planner's iteration logic can be exercised without a real
// provider. It also replays the WithStreamingFunc callback (if present in
// options) against its queued response's Content, to exercise the
// buffered-delta path.
type fakeModel struct {
	responses []*llms.ContentResponse
	calls     int
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	resp := f.responses[f.calls]
	f.calls++

	opts := &llms.CallOptions{}
	for _, opt := range options {
		opt(opts)
	}
	if opts.StreamingFunc != nil && len(resp.Choices) > 0 {
		_ = opts.StreamingFunc(ctx, []byte(resp.Choices[0].Content))
	}
	return resp, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", nil
}

type stubTool struct{}

func (stubTool) Name() string                        { return "stub_tool" }
func (stubTool) Description() string                 { return "a test stub" }
func (stubTool) Schema() map[string]interface{}      { return map[string]interface{}{"type": "object"} }
func (stubTool) Presets() map[string]interface{}     { return nil }
func (stubTool) Invoke(ctx context.Context, input map[string]interface{}) (<-chan tools.PartialResult, error) {
	ch := make(chan tools.PartialResult, 1)
	ch <- tools.PartialResult{Text: `{"ok":true,"price":100}`, Final: true}
	close(ch)
	return ch, nil
}

func newTestPlanner(model llms.Model, maxIters int) *Planner {
	registry := tools.NewRegistry(stubTool{})
	return NewPlanner(model, registry, Config{MaxIters: maxIters, ToolTimeout: time.Minute, LLMTimeout: time.Minute})
}

func jsonPlanResponse(json string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: json}}}
}

func TestPlanSimpleParsesJSONPlan(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{
		jsonPlanResponse(`{"assistant_text":"ok","intent":"strategy","rationale":"because"}`),
	}}
	p := newTestPlanner(model, 1)
	plan, err := p.PlanSimple(context.Background(), nil, "start a dca", nil)
	require.NoError(t, err)
	require.Equal(t, "strategy", plan.Intent)
	require.Equal(t, "ok", plan.AssistantText)
}

func TestPlanSimpleFallsBackToChatPlanOnNonJSON(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{
		jsonPlanResponse("just chatting, nothing structured here"),
	}}
	p := newTestPlanner(model, 1)
	plan, err := p.PlanSimple(context.Background(), nil, "hi", nil)
	require.NoError(t, err)
	require.Equal(t, "chat", plan.Intent)
	require.Equal(t, "just chatting, nothing structured here", plan.AssistantText)
}

func TestPlanWithToolsInvokesToolThenReturnsPlan(t *testing.T) {
	toolCallResponse := &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		ToolCalls: []llms.ToolCall{{
			ID:   "call_1",
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      "stub_tool",
				Arguments: `{}`,
			},
		}},
	}}}
	finalResponse := jsonPlanResponse(`{"assistant_text":"done","intent":"strategy"}`)

	model := &fakeModel{responses: []*llms.ContentResponse{toolCallResponse, finalResponse}}
	p := newTestPlanner(model, 3)

	var deltas []string
	plan, err := p.PlanWithTools(context.Background(), nil, "start a dca", func(d string) {
		deltas = append(deltas, d)
	})
	require.NoError(t, err)
	require.Equal(t, "strategy", plan.Intent)
	require.Equal(t, "done", plan.AssistantText)
	require.Equal(t, 2, model.calls)
	require.Equal(t, []string{`{"assistant_text":"done","intent":"strategy"}`}, deltas)
}

func TestPlanWithToolsExceedsMaxIters(t *testing.T) {
	toolCallResponse := &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		ToolCalls: []llms.ToolCall{{
			ID:   "call_1",
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      "stub_tool",
				Arguments: `{}`,
			},
		}},
	}}}

	model := &fakeModel{responses: []*llms.ContentResponse{toolCallResponse, toolCallResponse, toolCallResponse}}
	p := newTestPlanner(model, 3)

	_, err := p.PlanWithTools(context.Background(), nil, "start a dca", nil)
	require.Error(t, err)
	require.Equal(t, apperr.CodeToolCallLimitExceeded, apperr.CodeOf(err))
}
