// Planner implements component E, the LLM Orchestration Loop: a simple
// single-shot planner and a bounded tool-enabled planner. The tool loop's
// shape — format messages, call with tools, branch on tool_use vs. final
// text, append tool_result and continue — is grounded on the sacenox
// ProcessTurn loop (accumulate tool calls, execute, reinject, bounded
// round count), generalized from that file's provider-agnostic streaming
// event dispatch down to langchaingo's GenerateContent/StreamingFunc
// surface, since this domain standardizes on langchaingo as its provider
// client (out of scope per spec.md §1, but something has to implement
// the interface).
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/txplain/tradeintent/internal/apperr"
	"github.com/txplain/tradeintent/internal/market"
	"github.com/txplain/tradeintent/internal/models"
	"github.com/txplain/tradeintent/internal/tools"
)

var tracer = otel.Tracer("internal/llm")

// Config bounds the orchestration loop's timeouts and iteration count
// (§5, §6).
type Config struct {
	MaxIters    int
	ToolTimeout time.Duration
	LLMTimeout  time.Duration
}

// Planner drives the model against the tool registry.
type Planner struct {
	retry    *tools.LLMRetryWrapper
	registry *tools.Registry
	cfg      Config
}

// NewPlanner wraps model in a retry wrapper configured to fit within
// LLMTimeout, and binds the read-only tool registry (§5: "model bundle
// and tool registry are set once at startup and read-only thereafter").
func NewPlanner(model llms.Model, registry *tools.Registry, cfg Config) *Planner {
	retryCfg := tools.DefaultLLMRetryConfig()
	retryCfg.TimeoutPerRetry = cfg.LLMTimeout
	return &Planner{
		retry:    tools.NewLLMRetryWrapper(model, retryCfg),
		registry: registry,
		cfg:      cfg,
	}
}

// PlanSimple builds a single prompt (system + memory + user) and makes
// one model call. A non-JSON response degrades to a chat plan carrying
// the raw text, never an error (§4.E "Simple planner").
func (p *Planner) PlanSimple(ctx context.Context, memory models.Memory, userText string, snapshot *market.Snapshot) (*models.Plan, error) {
	ctx, span := tracer.Start(ctx, "llm.plan_simple")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.LLMTimeout)
	defer cancel()

	system := buildSystemPrompt(snapshot)
	messages := toLangchainMessages(system, memory, nil)
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextContent{Text: userText}},
	})

	resp, err := p.retry.GenerateContent(ctx, messages)
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Wrap(apperr.CodeLLMTimeout, "llm call failed", err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperr.New(apperr.CodeLLMTimeout, "llm returned no choices")
	}

	text := resp.Choices[0].Content
	if obj, ok := ExtractJSONObject(text); ok {
		return planFromMap(obj), nil
	}
	return &models.Plan{Intent: "chat", AssistantText: text}, nil
}

// PlanWithTools iterates up to cfg.MaxIters, dispatching tool calls and
// reinjecting results, until the model replies with text only (§4.E
// "Tool planner"). onTextDelta, if non-nil, receives incremental text
// fragments from the final (terminal) iteration only — per the resolved
// Open Question in DESIGN.md, intermediate iterations' streamed text is
// not forwarded live.
func (p *Planner) PlanWithTools(ctx context.Context, memory models.Memory, userText string, onTextDelta func(string)) (*models.Plan, error) {
	ctx, span := tracer.Start(ctx, "llm.plan_with_tools")
	defer span.End()

	working := append(models.Memory{}, memory...)
	working = append(working, models.NewTextMessage(models.RoleUser, userText))

	langchainTools := p.registry.LangchainTools()

	for iter := 0; iter < p.cfg.MaxIters; iter++ {
		iterCtx, cancel := context.WithTimeout(ctx, p.cfg.LLMTimeout)
		messages := toLangchainMessages("", working, nil)

		var deltas []string
		var accumulated string
		streamOpt := llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			accumulated += string(chunk)
			deltas = append(deltas, string(chunk))
			return nil
		})

		resp, err := p.retry.GenerateContent(iterCtx, messages,
			llms.WithTools(langchainTools),
			llms.WithToolChoice("auto"),
			streamOpt,
		)
		cancel()
		if err != nil {
			span.RecordError(err)
			return nil, apperr.Wrap(apperr.CodeLLMTimeout, "llm call failed", err)
		}
		if len(resp.Choices) == 0 {
			return nil, apperr.New(apperr.CodeLLMTimeout, "llm returned no choices")
		}
		choice := resp.Choices[0]

		if len(choice.ToolCalls) == 0 {
			// Terminal iteration: forward buffered deltas, then parse.
			if onTextDelta != nil {
				for _, d := range deltas {
					onTextDelta(d)
				}
			}
			text := choice.Content
			if text == "" {
				text = accumulated
			}
			if obj, ok := ExtractJSONObject(text); ok {
				return planFromMap(obj), nil
			}
			return &models.Plan{Intent: "chat", AssistantText: text}, nil
		}

		working = p.appendToolRound(ctx, working, choice)
	}

	return nil, apperr.New(apperr.CodeToolCallLimitExceeded, "exceeded MAX_ITERS without a terminal reply")
}

// appendToolRound echoes the assistant's tool_use blocks, executes each
// tool with a per-tool timeout, and appends the resulting tool_result
// blocks (§4.E step 3).
func (p *Planner) appendToolRound(ctx context.Context, working models.Memory, choice *llms.ContentChoice) models.Memory {
	assistantMsg := models.Message{Role: models.RoleAssistant}
	if choice.Content != "" {
		assistantMsg.Blocks = append(assistantMsg.Blocks, models.MessageBlock{Type: models.BlockText, Text: choice.Content})
	}
	for _, tc := range choice.ToolCalls {
		var input map[string]interface{}
		_ = json.Unmarshal([]byte(tc.FunctionCall.Arguments), &input)
		assistantMsg.Blocks = append(assistantMsg.Blocks, models.MessageBlock{
			Type:  models.BlockToolUse,
			ID:    tc.ID,
			Name:  tc.FunctionCall.Name,
			Input: input,
		})
	}
	working = append(working, assistantMsg)

	toolMsg := models.Message{Role: models.RoleTool}
	for _, tc := range choice.ToolCalls {
		output := p.invokeTool(ctx, tc.FunctionCall.Name, tc.FunctionCall.Arguments)
		toolMsg.Blocks = append(toolMsg.Blocks, models.MessageBlock{
			Type:   models.BlockToolResult,
			ID:     tc.ID,
			Name:   tc.FunctionCall.Name,
			Output: output,
		})
	}
	working = append(working, toolMsg)
	return working
}

func (p *Planner) invokeTool(ctx context.Context, name, argsJSON string) string {
	_, span := tracer.Start(ctx, "llm.tool_call", trace.WithAttributes(attribute.String("tool.name", name)))
	defer span.End()

	t, ok := p.registry.Get(name)
	if !ok {
		return toolErrorJSONExported(name, "unknown_tool", fmt.Sprintf("no such tool: %s", name))
	}

	var modelInput map[string]interface{}
	_ = json.Unmarshal([]byte(argsJSON), &modelInput)
	merged := tools.MergeInput(t.Presets(), modelInput)

	toolCtx, cancel := context.WithTimeout(ctx, p.cfg.ToolTimeout)
	defer cancel()

	ch, err := t.Invoke(toolCtx, merged)
	if err != nil {
		span.RecordError(err)
		return toolErrorJSONExported(name, "invocation_error", err.Error())
	}

	result := tools.RunToFinal(ch)
	if toolCtx.Err() != nil {
		return toolErrorJSONExported(name, "timeout", "tool call exceeded its timeout budget")
	}
	return result
}

func toolErrorJSONExported(tool, errType, message string) string {
	out, _ := json.Marshal(map[string]interface{}{
		"ok": false,
		"error": map[string]string{
			"type":    errType,
			"message": message,
		},
	})
	return string(out)
}

func buildSystemPrompt(snapshot *market.Snapshot) string {
	base := "You are a trading-intent assistant. Reply with a single JSON object matching the agreed plan schema: " +
		`{"assistant_text","intent","params","rationale","risk_notes","actions"}.`
	if snapshot == nil || !snapshot.OK {
		return base
	}
	snapJSON, _ := json.Marshal(snapshot)
	return base + "\n\nCurrent market snapshot:\n" + string(snapJSON)
}

func toLangchainMessages(system string, memory models.Memory, extra models.Memory) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(memory)+len(extra)+1)
	if system != "" {
		out = append(out, llms.MessageContent{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextContent{Text: system}},
		})
	}
	for _, m := range append(append(models.Memory{}, memory...), extra...) {
		out = append(out, messageToLangchain(m))
	}
	return out
}

func messageToLangchain(m models.Message) llms.MessageContent {
	role := llms.ChatMessageTypeHuman
	switch m.Role {
	case models.RoleSystem:
		role = llms.ChatMessageTypeSystem
	case models.RoleAssistant:
		role = llms.ChatMessageTypeAI
	case models.RoleTool:
		role = llms.ChatMessageTypeTool
	}

	var parts []llms.ContentPart
	for _, b := range m.Blocks {
		switch b.Type {
		case models.BlockText:
			parts = append(parts, llms.TextContent{Text: b.Text})
		case models.BlockToolUse:
			argsJSON, _ := json.Marshal(b.Input)
			parts = append(parts, llms.ToolCall{
				ID:   b.ID,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      b.Name,
					Arguments: string(argsJSON),
				},
			})
		case models.BlockToolResult:
			parts = append(parts, llms.ToolCallResponse{
				ToolCallID: b.ID,
				Name:       b.Name,
				Content:    b.Output,
			})
		}
	}
	return llms.MessageContent{Role: role, Parts: parts}
}

func planFromMap(obj map[string]interface{}) *models.Plan {
	plan := &models.Plan{Params: map[string]interface{}{}}
	if v, ok := obj["assistant_text"].(string); ok {
		plan.AssistantText = v
	}
	if v, ok := obj["intent"].(string); ok {
		plan.Intent = v
	}
	if v, ok := obj["rationale"].(string); ok {
		plan.Rationale = v
	}
	if v, ok := obj["params"].(map[string]interface{}); ok {
		plan.Params = v
	}
	if v, ok := obj["risk_notes"].([]interface{}); ok {
		for _, n := range v {
			if s, ok := n.(string); ok {
				plan.RiskNotes = append(plan.RiskNotes, s)
			}
		}
	}
	if v, ok := obj["actions"].([]interface{}); ok {
		for _, a := range v {
			am, ok := a.(map[string]interface{})
			if !ok {
				continue
			}
			action := models.Action{Params: map[string]interface{}{}}
			if t, ok := am["type"].(string); ok {
				action.Type = t
			}
			if p, ok := am["params"].(map[string]interface{}); ok {
				action.Params = p
			}
			plan.Actions = append(plan.Actions, action)
		}
	}
	return plan
}
