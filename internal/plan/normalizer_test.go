package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txplain/tradeintent/internal/market"
	"github.com/txplain/tradeintent/internal/models"
)

func TestNormalizeChatPlanHasNoPreview(t *testing.T) {
	raw := &models.Plan{Intent: "chat", AssistantText: "hi there"}
	p, preview := Normalize(raw, "", nil)
	assert.Nil(t, preview)
	assert.Equal(t, "hi there", p.AssistantText)
}

func TestNormalizeChatPlanDropsActions(t *testing.T) {
	raw := &models.Plan{
		Intent:  "chat",
		Actions: []models.Action{{Type: "dca", Params: map[string]interface{}{}}},
	}
	p, preview := Normalize(raw, "", nil)
	assert.Nil(t, preview)
	assert.Empty(t, p.Actions)
}

func TestNormalizeAliasesActionType(t *testing.T) {
	raw := &models.Plan{
		Intent:  "strategy",
		Actions: []models.Action{{Type: "smart_dca", Params: map[string]interface{}{}}},
	}
	p, preview := Normalize(raw, "BTCUSDT", nil)
	require.Len(t, p.Actions, 1)
	assert.Equal(t, "start_dca", p.Actions[0].Type)
	require.NotNil(t, preview)
	assert.True(t, preview.RequiresConfirmation)
}

func TestNormalizeSynthesizesNoneActionWhenEmpty(t *testing.T) {
	raw := &models.Plan{Intent: "strategy"}
	p, _ := Normalize(raw, "", nil)
	require.Len(t, p.Actions, 1)
	assert.Equal(t, "none", p.Actions[0].Type)
}

func TestNormalizeDropsUnrecognizedActionType(t *testing.T) {
	raw := &models.Plan{
		Intent:  "strategy",
		Actions: []models.Action{{Type: "launch_nuke", Params: map[string]interface{}{}}},
	}
	p, _ := Normalize(raw, "", nil)
	require.Len(t, p.Actions, 1)
	assert.Equal(t, "none", p.Actions[0].Type)
}

func TestNormalizeBackfillsStrategyDefaults(t *testing.T) {
	raw := &models.Plan{
		Intent:  "strategy",
		Actions: []models.Action{{Type: "grid", Params: map[string]interface{}{}}},
	}
	p, _ := Normalize(raw, "ETHUSDT", nil)
	a := p.Actions[0]
	assert.Equal(t, "ETHUSDT", a.Params["symbol"])
	assert.Equal(t, float64(3), a.Params["take_profit_percent"])
	assert.Equal(t, float64(8), a.Params["stop_loss_percent"])
	assert.Equal(t, 10, a.Params["grid_levels"])
}

func TestNormalizeNeverOverwritesExistingFields(t *testing.T) {
	raw := &models.Plan{
		Intent: "strategy",
		Actions: []models.Action{{
			Type:   "grid",
			Params: map[string]interface{}{"take_profit_percent": 5.0},
		}},
	}
	p, _ := Normalize(raw, "", nil)
	assert.Equal(t, 5.0, p.Actions[0].Params["take_profit_percent"])
}

func TestNormalizePrefersBollingerForEntryRange(t *testing.T) {
	raw := &models.Plan{
		Intent:  "strategy",
		Actions: []models.Action{{Type: "dca", Params: map[string]interface{}{}}},
	}
	snap := &market.Snapshot{OK: true, Price: 100, BollingerLow: 90, BollingerUp: 110}
	p, _ := Normalize(raw, "", snap)
	rng := p.Actions[0].Params["entry_price_range"].([]float64)
	assert.Equal(t, []float64{90, 110}, rng)
}

func TestNormalizeFallsBackToPricePctForEntryRange(t *testing.T) {
	raw := &models.Plan{
		Intent:  "strategy",
		Actions: []models.Action{{Type: "dca", Params: map[string]interface{}{}}},
	}
	snap := &market.Snapshot{OK: true, Price: 100}
	p, _ := Normalize(raw, "", snap)
	rng := p.Actions[0].Params["entry_price_range"].([]float64)
	assert.InDelta(t, 98, rng[0], 0.001)
	assert.InDelta(t, 102, rng[1], 0.001)
}

func TestLabelMapsKnownAndUnknownTypes(t *testing.T) {
	assert.Equal(t, "智能DCA", Label("start_dca"))
	assert.Equal(t, "暂时观望", Label("none"))
	assert.Equal(t, "暂时观望", Label("something_else"))
}
