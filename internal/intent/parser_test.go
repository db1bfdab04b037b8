package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBuyIntentEnglishForm(t *testing.T) {
	got, ok := ParseBuyIntent("please buy 200 PAS for TokenDemo")
	assert.True(t, ok)
	assert.Equal(t, "200", got.AmountPAS)
	assert.Equal(t, "TokenDemo", got.TokenSymbol)
}

func TestParseBuyIntentChineseForm(t *testing.T) {
	got, ok := ParseBuyIntent("给我买 200 PAS 的 TokenDemo")
	assert.True(t, ok)
	assert.Equal(t, "200", got.AmountPAS)
	assert.Equal(t, "TokenDemo", got.TokenSymbol)
}

func TestParseBuyIntentNormalizesTrailingZeros(t *testing.T) {
	got, ok := ParseBuyIntent("buy 10.500 PAS for TokenDemo")
	assert.True(t, ok)
	assert.Equal(t, "10.5", got.AmountPAS)
}

func TestParseBuyIntentNoMatch(t *testing.T) {
	_, ok := ParseBuyIntent("what is the weather today")
	assert.False(t, ok)
}

func TestInferIntentHintTradingVocabulary(t *testing.T) {
	hint := InferIntentHint("can you recommend a DCA strategy for ETH")
	assert.False(t, hint.Chat)
	assert.NotEmpty(t, hint.Strategy)
}

func TestInferIntentHintChat(t *testing.T) {
	hint := InferIntentHint("hello there")
	assert.True(t, hint.Chat)
}

func TestExtractSymbolExplicitPair(t *testing.T) {
	sym, ok := ExtractSymbol("what about ETH/USDT", "USDT", "")
	assert.True(t, ok)
	assert.Equal(t, "ETHUSDT", sym)
}

func TestExtractSymbolConcatPair(t *testing.T) {
	sym, ok := ExtractSymbol("ETHUSDT looking good", "USDT", "")
	assert.True(t, ok)
	assert.Equal(t, "ETHUSDT", sym)
}

func TestExtractSymbolBareBaseEnglish(t *testing.T) {
	sym, ok := ExtractSymbol("eth is pumping", "USDT", "")
	assert.True(t, ok)
	assert.Equal(t, "ETHUSDT", sym)
}

func TestExtractSymbolBareBaseChinese(t *testing.T) {
	sym, ok := ExtractSymbol("以太坊 怎么样", "USDT", "")
	assert.True(t, ok)
	assert.Equal(t, "ETHUSDT", sym)
}

func TestExtractSymbolIndicatorDenylist(t *testing.T) {
	_, ok := ExtractSymbol("what does RSI mean", "USDT", "")
	assert.False(t, ok)
}
