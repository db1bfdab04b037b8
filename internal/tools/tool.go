// Package tools implements the Tool Registry (component C): a catalog of
// tool descriptors plus an invoker contract. The Tool interface is a
// direct generalization of the upstream baggage-pipeline Tool interface
// (tool.go) — Name()/Description() are kept verbatim in spirit, but
// Process(ctx, baggage) is replaced by Invoke(ctx, input), since these
// tools answer a single model-issued function call rather than mutate a
// shared pipeline baggage map.
package tools

import (
	"context"

	"github.com/txplain/tradeintent/internal/models"
)

// PartialResult is one element of the async sequence a tool invocation
// yields; the last element is authoritative (§4.C).
type PartialResult struct {
	Text  string
	Final bool
}

// Tool is the unified interface every built-in tool implements.
type Tool interface {
	// Name is the identifier the LLM uses in tool_use blocks.
	Name() string
	Description() string

	// Schema is the JSON schema of accepted arguments, as presented to
	// the model.
	Schema() map[string]interface{}

	// Presets are preset-bound argument values merged into the model's
	// input mapping before invocation, so the LLM never has to (or gets
	// to) supply infrastructure knobs like RPC URLs or API hosts.
	Presets() map[string]interface{}

	// Invoke runs the tool against the merged input and returns an
	// async sequence of partial results ending in a final one. Most
	// built-ins yield exactly one final result; the channel shape exists
	// so a future streaming tool can emit partials without an interface
	// change.
	Invoke(ctx context.Context, input map[string]interface{}) (<-chan PartialResult, error)
}

// Descriptor renders a Tool's model-facing descriptor.
func Descriptor(t Tool) models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        t.Name(),
		Description: t.Description(),
		Schema:      t.Schema(),
	}
}

// MergeInput layers a tool's preset-bound arguments over the model-
// supplied input, presets winning on key collision — the model never
// gets to override an infrastructure knob it wasn't shown.
func MergeInput(presets, modelInput map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(presets)+len(modelInput))
	for k, v := range modelInput {
		merged[k] = v
	}
	for k, v := range presets {
		merged[k] = v
	}
	return merged
}

// RunToFinal drains a tool's partial-result channel and returns the
// content of its final element, serialized into a single string for
// feeding back as a tool_result block (§4.C).
func RunToFinal(ch <-chan PartialResult) string {
	var last string
	for p := range ch {
		last = p.Text
		if p.Final {
			break
		}
	}
	return last
}

// ToolError is the structured error a tool's invocation substitutes as
// its output on failure, matching §4.E's "{ok:false, error:{type,
// message}}" synthesized JSON shape.
type ToolError struct {
	Tool    string `json:"-"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *ToolError) Error() string { return e.Message }

func NewToolError(tool, errType, message string) *ToolError {
	return &ToolError{Tool: tool, Type: errType, Message: message}
}
