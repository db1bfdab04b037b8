package tools

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/txplain/tradeintent/internal/rpc"
)

// AMMSnapshotTool reads a Uniswap-V2-style pair's reserves over EVM
// JSON-RPC and derives an amount-out quote for a single-hop path locally
// (rpc.AmountOut), matching the "AMM market snapshot" built-in named in §4.C.
type AMMSnapshotTool struct {
	client      *rpc.Client
	pairAddress string
}

func NewAMMSnapshotTool(client *rpc.Client, pairAddress string) *AMMSnapshotTool {
	return &AMMSnapshotTool{client: client, pairAddress: pairAddress}
}

func (t *AMMSnapshotTool) Name() string { return "amm_market_snapshot" }

func (t *AMMSnapshotTool) Description() string {
	return "Reads the configured AMM pair's reserves and derives an amount-out quote for a given input amount."
}

func (t *AMMSnapshotTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"amount_in_wei": map[string]interface{}{
				"type":        "string",
				"description": "Amount of the input token, in the token's smallest unit, as a decimal string.",
			},
			"reverse": map[string]interface{}{
				"type":        "boolean",
				"description": "Quote reserve1->reserve0 instead of the default reserve0->reserve1.",
			},
		},
		"required": []string{"amount_in_wei"},
	}
}

func (t *AMMSnapshotTool) Presets() map[string]interface{} {
	return map[string]interface{}{"pair_address": t.pairAddress}
}

func (t *AMMSnapshotTool) Invoke(ctx context.Context, input map[string]interface{}) (<-chan PartialResult, error) {
	ch := make(chan PartialResult, 1)
	go func() {
		defer close(ch)

		pairAddress, _ := input["pair_address"].(string)
		if pairAddress == "" {
			pairAddress = t.pairAddress
		}
		amountInStr, _ := input["amount_in_wei"].(string)
		amountIn, ok := new(big.Int).SetString(amountInStr, 10)
		if !ok || pairAddress == "" {
			ch <- PartialResult{Final: true, Text: toolErrorJSON(t.Name(), "invalid_input", "amount_in_wei must be a decimal string and pair must be configured")}
			return
		}

		reserves, err := t.client.GetReserves(ctx, pairAddress)
		if err != nil {
			ch <- PartialResult{Final: true, Text: toolErrorJSON(t.Name(), "upstream_network_error", err.Error())}
			return
		}

		reserveIn, reserveOut := reserves.Reserve0, reserves.Reserve1
		if reverse, _ := input["reverse"].(bool); reverse {
			reserveIn, reserveOut = reserves.Reserve1, reserves.Reserve0
		}
		amountOut := rpc.AmountOut(amountIn, reserveIn, reserveOut)

		out, _ := json.Marshal(map[string]interface{}{
			"ok":         true,
			"reserve0":   reserves.Reserve0.String(),
			"reserve1":   reserves.Reserve1.String(),
			"amount_out": amountOut.String(),
		})
		ch <- PartialResult{Final: true, Text: string(out)}
	}()
	return ch, nil
}

func toolErrorJSON(tool, errType, message string) string {
	out, _ := json.Marshal(map[string]interface{}{
		"ok": false,
		"error": map[string]string{
			"type":    errType,
			"message": message,
		},
	})
	return string(out)
}
