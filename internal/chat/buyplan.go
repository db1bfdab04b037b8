package chat

import (
	"strings"

	"github.com/txplain/tradeintent/internal/config"
	"github.com/txplain/tradeintent/internal/models"
)

// defaultSlippageBps and defaultDeadlineSeconds are the demo's fixed risk
// controls for the deterministic buy fast-path (§3 "Execution Plan").
const (
	defaultSlippageBps     = 100 // 1%
	defaultDeadlineSeconds = 1200
)

// buildBuyExecutionPlan assembles the two-step xcm_transfer + uniswap_v2_swap
// recipe for "buy N PAS of TOKEN" (§4.H step 4, example in §8 "buy_token").
func buildBuyExecutionPlan(cfg *config.Config, amountPAS, tokenSymbol string) *models.ExecutionPlan {
	tokenAddr := ""
	if strings.EqualFold(tokenSymbol, "TokenDemo") {
		tokenAddr = cfg.DemoTokenAddress
	}

	return &models.ExecutionPlan{
		Type:            "buy_token",
		OriginChain:     "paseo-assethub",
		OriginAsset:     "PAS",
		DestChain:       "paseo-passethub-evm",
		DestEVMRPC:      cfg.EVMRPCURL,
		SlippageBps:     defaultSlippageBps,
		DeadlineSeconds: defaultDeadlineSeconds,
		AmountInPAS:     amountPAS,
		TokenOut:        models.TokenRef{Symbol: tokenSymbol, Address: tokenAddr},
		Steps: []models.ExecutionStep{
			{
				Kind: "xcm_transfer",
				Params: map[string]interface{}{
					"origin_chain": "paseo-assethub",
					"dest_chain":   "paseo-passethub-evm",
					"asset":        "PAS",
					"amount":       amountPAS,
				},
			},
			{
				Kind: "uniswap_v2_swap",
				Params: map[string]interface{}{
					"router_address":  cfg.RouterAddress,
					"pair_address":    cfg.PairAddress,
					"token_in":        cfg.WETHAddress,
					"token_out":       tokenAddr,
					"amount_in_pas":   amountPAS,
					"slippage_bps":    defaultSlippageBps,
					"deadline_seconds": defaultDeadlineSeconds,
				},
			},
		},
	}
}

// buildBuyExecutionPreview mirrors the execution plan into the generic
// ExecutionPreview shape so buy fast-path responses carry both fields,
// matching §8's worked example (`execution_preview.intent="buy_token"`).
func buildBuyExecutionPreview(amountPAS, tokenSymbol string) *models.ExecutionPreview {
	return &models.ExecutionPreview{
		Mode:                 "preview",
		Intent:               "buy_token",
		RequiresConfirmation: true,
		Params: map[string]interface{}{
			"amount_in_pas": amountPAS,
			"token_symbol":  tokenSymbol,
		},
		Actions: nil,
		Routing: &models.RoutingStub{
			Route:  "stub",
			Reason: "execution routing is not implemented in this demo",
			Stub:   true,
		},
	}
}
