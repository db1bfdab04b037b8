package tools

import (
	"context"
	"encoding/json"

	"github.com/txplain/tradeintent/internal/models"
)

// BuildPreview assembles an Execution Preview (§3) from a normalized
// intent/params/actions triple. It is shared by the execution-preview
// builder tool below and by plan.Normalize, which builds the preview for
// every non-chat plan, so both paths produce an identical shape.
func BuildPreview(intent string, params map[string]interface{}, actions []models.Action) *models.ExecutionPreview {
	return &models.ExecutionPreview{
		Mode:                 "preview",
		Intent:               intent,
		Params:               params,
		RequiresConfirmation: true,
		Actions:              actions,
		Routing: &models.RoutingStub{
			Route:  "stub",
			Reason: "execution routing is not implemented in this demo",
			Stub:   true,
		},
	}
}

// ExecutionPreviewTool is the "execution-preview builder" built-in named
// in §4.C — it lets the model itself materialize a preview mid-loop
// instead of only relying on the post-normalization fallback.
type ExecutionPreviewTool struct{}

func NewExecutionPreviewTool() *ExecutionPreviewTool { return &ExecutionPreviewTool{} }

func (t *ExecutionPreviewTool) Name() string { return "build_execution_preview" }

func (t *ExecutionPreviewTool) Description() string {
	return "Builds a confirmation-required execution preview for a given intent, params, and action list."
}

func (t *ExecutionPreviewTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"intent": map[string]interface{}{"type": "string"},
			"params": map[string]interface{}{"type": "object"},
		},
		"required": []string{"intent"},
	}
}

func (t *ExecutionPreviewTool) Presets() map[string]interface{} { return nil }

func (t *ExecutionPreviewTool) Invoke(ctx context.Context, input map[string]interface{}) (<-chan PartialResult, error) {
	ch := make(chan PartialResult, 1)
	go func() {
		defer close(ch)

		intentVal, _ := input["intent"].(string)
		params, _ := input["params"].(map[string]interface{})
		if intentVal == "" {
			ch <- PartialResult{Final: true, Text: toolErrorJSON(t.Name(), "invalid_input", "intent is required")}
			return
		}

		preview := BuildPreview(intentVal, params, nil)
		out, _ := json.Marshal(preview)
		ch <- PartialResult{Final: true, Text: string(out)}
	}()
	return ch, nil
}
