package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/txplain/tradeintent/internal/market"
)

// KlinesTool is the "CEX klines fetcher" built-in (§4.C): it fetches and
// assembles the market snapshot described in component B and hands it
// back to the model as JSON, caching short-lived results so a burst of
// tool calls against the same symbol within one orchestration loop
// doesn't refetch every iteration.
type KlinesTool struct {
	fetcher  *market.Fetcher
	cache    Cache
	interval string
	limit    int
}

func NewKlinesTool(fetcher *market.Fetcher, cache Cache, interval string, limit int) *KlinesTool {
	return &KlinesTool{fetcher: fetcher, cache: cache, interval: interval, limit: limit}
}

func (t *KlinesTool) Name() string { return "cex_klines_snapshot" }

func (t *KlinesTool) Description() string {
	return "Fetches recent klines for a symbol from the configured CEX and returns price, volume, and indicator values."
}

func (t *KlinesTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"symbol": map[string]interface{}{
				"type":        "string",
				"description": "Trading pair symbol, e.g. ETHUSDT.",
			},
		},
		"required": []string{"symbol"},
	}
}

func (t *KlinesTool) Presets() map[string]interface{} { return nil }

func (t *KlinesTool) Invoke(ctx context.Context, input map[string]interface{}) (<-chan PartialResult, error) {
	ch := make(chan PartialResult, 1)
	go func() {
		defer close(ch)

		symbol, _ := input["symbol"].(string)
		if symbol == "" {
			ch <- PartialResult{Final: true, Text: toolErrorJSON(t.Name(), "invalid_input", "symbol is required")}
			return
		}

		cacheKey := fmt.Sprintf("snapshot:%s:%s", symbol, t.interval)
		var snap market.Snapshot
		if t.cache != nil && t.cache.GetJSON(cacheKey, &snap) {
			out, _ := json.Marshal(snap)
			ch <- PartialResult{Final: true, Text: string(out)}
			return
		}

		snap = t.fetcher.FetchSnapshot(ctx, symbol, t.interval, t.limit)
		if snap.OK && t.cache != nil {
			_ = t.cache.SetJSON(cacheKey, snap, MarketSnapshotTTL)
		}
		out, _ := json.Marshal(snap)
		ch <- PartialResult{Final: true, Text: string(out)}
	}()
	return ch, nil
}
