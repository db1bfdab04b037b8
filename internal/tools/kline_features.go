package tools

import (
	"context"
	"encoding/json"

	"github.com/txplain/tradeintent/internal/indicators"
)

// KlineFeatureTool is the "kline-feature (pct_change, log-return
// volatility) computer" built-in named in §4.C. It re-derives a couple
// of lightweight features from a caller-supplied close-price series
// instead of refetching klines, so the model can ask "how volatile was
// this" about data it already has in context.
type KlineFeatureTool struct{}

func NewKlineFeatureTool() *KlineFeatureTool { return &KlineFeatureTool{} }

func (t *KlineFeatureTool) Name() string { return "kline_features" }

func (t *KlineFeatureTool) Description() string {
	return "Computes pct_change and log-return volatility over a provided list of close prices."
}

func (t *KlineFeatureTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"closes": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "number"},
				"description": "Ordered close prices, oldest first.",
			},
		},
		"required": []string{"closes"},
	}
}

func (t *KlineFeatureTool) Presets() map[string]interface{} { return nil }

func (t *KlineFeatureTool) Invoke(ctx context.Context, input map[string]interface{}) (<-chan PartialResult, error) {
	ch := make(chan PartialResult, 1)
	go func() {
		defer close(ch)

		raw, ok := input["closes"].([]interface{})
		if !ok || len(raw) < 2 {
			ch <- PartialResult{Final: true, Text: toolErrorJSON(t.Name(), "invalid_input", "closes must be an array of at least 2 numbers")}
			return
		}
		closes := make([]float64, 0, len(raw))
		for _, v := range raw {
			switch n := v.(type) {
			case float64:
				closes = append(closes, n)
			}
		}
		if len(closes) < 2 {
			ch <- PartialResult{Final: true, Text: toolErrorJSON(t.Name(), "invalid_input", "closes contained no numeric values")}
			return
		}

		result := map[string]interface{}{
			"ok":              true,
			"pct_change":      indicators.PctChange(closes[0], closes[len(closes)-1]),
			"log_return_vol":  indicators.LogReturnVolatility(closes),
		}
		out, _ := json.Marshal(result)
		ch <- PartialResult{Final: true, Text: string(out)}
	}()
	return ch, nil
}
