// Package plan implements component F, the Plan Normalizer: it coerces a
// raw LLM-authored models.Plan into the demo action vocabulary, back-fills
// missing strategy parameters, and builds the Execution Preview. Grounded
// on the teacher's monetary_value_enricher.go, which takes a loosely typed
// annotation and fills in missing derived fields without overwriting ones
// already present — the same "never overwrite an existing non-empty
// field" discipline this normalizer follows.
package plan

import (
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/txplain/tradeintent/internal/market"
	"github.com/txplain/tradeintent/internal/models"
	"github.com/txplain/tradeintent/internal/tools"
)

// actionAlias maps the LLM's free-form action type vocabulary onto the
// fixed demo vocabulary (§4.F step 2).
var actionAlias = map[string]string{
	"dca":               "start_dca",
	"smart_dca":         "start_dca",
	"ai_dca":            "start_dca",
	"start_dca":         "start_dca",
	"grid":              "start_grid",
	"grid_trading":      "start_grid",
	"start_grid":        "start_grid",
	"mean_reversion":    "start_mean_reversion",
	"start_mean_reversion": "start_mean_reversion",
	"martingale":        "start_martingale",
	"start_martingale":  "start_martingale",
	"wait":              "none",
	"hold":              "none",
	"observe":           "none",
	"none":              "none",
}

// actionLabel maps a normalized action type to its human label (§4.F step 7).
var actionLabel = map[string]string{
	"start_dca":            "智能DCA",
	"start_grid":           "网格",
	"start_mean_reversion": "均值回归",
	"start_martingale":     "马丁格尔",
	"none":                 "暂时观望",
}

// strategyDefaults is the per-strategy TP/SL (and, for grid, grid_levels)
// default table (§4.F step 4).
type strategyDefault struct {
	takeProfitPercent float64
	stopLossPercent   float64
	gridLevels        int
}

var strategyDefaults = map[string]strategyDefault{
	"start_grid":           {takeProfitPercent: 3, stopLossPercent: 8, gridLevels: 10},
	"start_dca":            {takeProfitPercent: 4, stopLossPercent: 10},
	"start_mean_reversion": {takeProfitPercent: 3, stopLossPercent: 6},
	"start_martingale":     {takeProfitPercent: 2, stopLossPercent: 12},
}

// Normalize applies §4.F to a raw plan and returns the finished plan plus,
// when intent != chat, the attached Execution Preview.
func Normalize(raw *models.Plan, requestedSymbol string, snapshot *market.Snapshot) (*models.Plan, *models.ExecutionPreview) {
	p := cloneShallow(raw)

	normalizeActions(p)

	if p.Intent == "chat" {
		p.Actions = nil
		return p, nil
	}

	if len(p.Actions) == 0 {
		p.Actions = []models.Action{{Type: "none", Params: map[string]interface{}{}}}
	}

	backfillAction(&p.Actions[0], p, requestedSymbol, snapshot)
	mirrorIntoParams(p, &p.Actions[0])

	if snapshot != nil && snapshot.OK {
		p.SetParam("market_snapshot", snapshot)
	}

	preview := tools.BuildPreview(p.Intent, p.Params, p.Actions)
	return p, preview
}

func cloneShallow(raw *models.Plan) *models.Plan {
	p := &models.Plan{
		AssistantText: raw.AssistantText,
		Intent:        raw.Intent,
		Rationale:     raw.Rationale,
		RiskNotes:     append([]string{}, raw.RiskNotes...),
	}
	p.Params = map[string]interface{}{}
	for k, v := range raw.Params {
		p.Params[k] = v
	}
	for _, a := range raw.Actions {
		params := map[string]interface{}{}
		for k, v := range a.Params {
			params[k] = v
		}
		p.Actions = append(p.Actions, models.Action{Type: a.Type, Params: params})
	}
	return p
}

// normalizeActions coerces to at most one entry, dropping entries whose
// type does not normalize (§4.F steps 1-2).
func normalizeActions(p *models.Plan) {
	for _, a := range p.Actions {
		normalized, ok := actionAlias[a.Type]
		if !ok {
			continue
		}
		if a.Params == nil {
			a.Params = map[string]interface{}{}
		}
		p.Actions = []models.Action{{Type: normalized, Params: a.Params}}
		return
	}
	p.Actions = nil
}

func backfillAction(a *models.Action, p *models.Plan, requestedSymbol string, snapshot *market.Snapshot) {
	if a.Params == nil {
		a.Params = map[string]interface{}{}
	}

	if _, present := a.Params["symbol"]; !present && requestedSymbol != "" {
		a.Params["symbol"] = requestedSymbol
	}

	if _, present := a.Params["entry_price_range"]; !present {
		if lo, hi, ok := entryPriceRange(snapshot); ok {
			a.Params["entry_price_range"] = []float64{lo, hi}
			log.Debug().
				Str("action_type", a.Type).
				Str("entry_low", humanize.FormatFloat("#,###.####", lo)).
				Str("entry_high", humanize.FormatFloat("#,###.####", hi)).
				Msg("backfilled entry_price_range")
		}
	}

	if def, ok := strategyDefaults[a.Type]; ok {
		if _, present := a.Params["take_profit_percent"]; !present {
			a.Params["take_profit_percent"] = def.takeProfitPercent
		}
		if _, present := a.Params["stop_loss_percent"]; !present {
			a.Params["stop_loss_percent"] = def.stopLossPercent
		}
		if def.gridLevels > 0 {
			if _, present := a.Params["grid_levels"]; !present {
				a.Params["grid_levels"] = def.gridLevels
			}
		}
	}
}

// entryPriceRange prefers Bollinger bands, falling back to +-2% of price,
// per the already-recorded Open Question resolution (§4.F step 4, first
// bullet).
func entryPriceRange(snapshot *market.Snapshot) (float64, float64, bool) {
	if snapshot == nil || !snapshot.OK {
		return 0, 0, false
	}
	if snapshot.BollingerLow > 0 && snapshot.BollingerUp > 0 {
		return snapshot.BollingerLow, snapshot.BollingerUp, true
	}
	if snapshot.Price > 0 {
		return 0.98 * snapshot.Price, 1.02 * snapshot.Price, true
	}
	return 0, 0, false
}

func mirrorIntoParams(p *models.Plan, a *models.Action) {
	for k, v := range a.Params {
		if _, present := p.Params[k]; !present {
			p.SetParam(k, v)
		}
	}
}

// Label returns the human label for a normalized action type (§4.F step 7).
func Label(actionType string) string {
	if l, ok := actionLabel[actionType]; ok {
		return l
	}
	return actionLabel["none"]
}
