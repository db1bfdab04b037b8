// Package intent implements the deterministic fast-path recognizer
// (component A): regex-based extraction of a "buy N PAS for TOKEN"
// instruction, keyword-based intent-hint inference, and bilingual
// symbol/quote extraction. It is grounded on the upstream agent's
// resolver style of matching free text against small static tables
// (keyword sets, alias maps) rather than invoking a parser generator —
// the same shape is used here for the bilingual trading vocabulary.
//
// Every exported function fails only by returning a negative/empty
// result; none of them return an error.
package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// BuyIntent is the result of a successful ParseBuyIntent match.
type BuyIntent struct {
	AmountPAS    string
	TokenSymbol string
}

var buyPatterns = []*regexp.Regexp{
	// "buy 200 PAS for TokenDemo" / "buy 200 pas of TokenDemo"
	regexp.MustCompile(`(?i)\bbuy\s+([0-9]+(?:\.[0-9]+)?)\s*pas\s+(?:for|of)\s+([A-Za-z0-9_]+)\b`),
	// "给我买 200 PAS 的 TokenDemo" / "买 200 PAS 的 TokenDemo"
	regexp.MustCompile(`买\s*([0-9]+(?:\.[0-9]+)?)\s*(?:个)?\s*PAS\s*的\s*([A-Za-z0-9_]+)`),
}

// ParseBuyIntent recognizes the deterministic "buy N PAS for TOKEN"
// pattern in either of its bilingual surface forms. The amount is
// normalized by stripping trailing fractional zeros (and a trailing
// decimal point if nothing remains after it).
func ParseBuyIntent(text string) (BuyIntent, bool) {
	for _, re := range buyPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		return BuyIntent{
			AmountPAS:   normalizeDecimal(m[1]),
			TokenSymbol: m[2],
		}, true
	}
	return BuyIntent{}, false
}

func normalizeDecimal(amount string) string {
	if !strings.Contains(amount, ".") {
		return amount
	}
	trimmed := strings.TrimRight(amount, "0")
	trimmed = strings.TrimRight(trimmed, ".")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

// IntentHint is the outcome of keyword-based strategy inference.
type IntentHint struct {
	Strategy string // non-empty when the message reads as a trading/TA request
	Chat     bool   // true when no trading/TA vocabulary was matched
}

// strategyKeywords covers trading and technical-analysis vocabulary in
// English and Chinese. It deliberately stays a flat set rather than a
// classifier: the fast path only needs to decide "does this look like a
// trading ask", not which strategy.
var strategyKeywords = []string{
	"buy", "sell", "trade", "long", "short", "dca", "grid", "martingale",
	"mean reversion", "strategy", "recommend", "signal", "entry", "stop loss",
	"take profit", "rsi", "macd", "bollinger", "ema", "sma", "volatility",
	"price", "chart", "indicator", "analysis",
	"买", "卖", "交易", "做多", "做空", "网格", "马丁格尔", "均值回归",
	"策略", "建议", "信号", "止损", "止盈", "指标", "行情", "分析", "趋势",
}

// InferIntentHint classifies free text as either a trading/TA request
// (Strategy non-empty) or conversational chat, via the fixed keyword set.
func InferIntentHint(text string) IntentHint {
	lower := strings.ToLower(text)
	for _, kw := range strategyKeywords {
		if strings.Contains(lower, kw) {
			return IntentHint{Strategy: "trading", Chat: false}
		}
	}
	return IntentHint{Chat: true}
}

// indicatorDenylist never produces a base symbol on its own — matching
// one of these tokens alone means the message is about an indicator, not
// an asset, per the Symbol extraction testable property (§8).
var indicatorDenylist = map[string]bool{
	"RSI": true, "MACD": true, "BOLL": true, "MA": true,
	"EMA": true, "SMA": true, "VWAP": true,
}

// bilingualAliases maps recognized aliases (including Chinese names) to
// a canonical base symbol.
var bilingualAliases = map[string]string{
	"比特币": "BTC", "btc": "BTC", "bitcoin": "BTC",
	"以太坊": "ETH", "eth": "ETH", "ethereum": "ETH",
	"币安币": "BNB", "bnb": "BNB",
	"索拉纳": "SOL", "sol": "SOL", "solana": "SOL",
}

var explicitPairRe = regexp.MustCompile(`(?i)\b([A-Za-z]{2,10})\s*/\s*([A-Za-z]{2,10})\b`)
var concatPairRe = regexp.MustCompile(`(?i)\b([A-Za-z]{2,10})(USDT|USDC|BUSD|BTC|ETH)\b`)
var bareWordRe = regexp.MustCompile(`[A-Za-z\p{Han}]+`)

// ExtractSymbol resolves free text to a SYMBOL+QUOTE trading pair, e.g.
// "ETH/USDT", "eth", and "以太坊" all resolve to "ETHUSDT". Indicator
// tokens (RSI, MACD, ...) never produce a match on their own. When nothing
// in the text names a tradable base it returns defaultSymbol (a full pair
// such as "BTCUSDT", upper-cased), or false if defaultSymbol is empty.
func ExtractSymbol(text, defaultQuote, defaultSymbol string) (string, bool) {
	if defaultQuote == "" {
		defaultQuote = "USDT"
	}

	if m := explicitPairRe.FindStringSubmatch(text); m != nil {
		base := strings.ToUpper(m[1])
		quote := strings.ToUpper(m[2])
		if !indicatorDenylist[base] {
			return base + quote, true
		}
	}

	if m := concatPairRe.FindStringSubmatch(text); m != nil {
		base := strings.ToUpper(m[1])
		quote := strings.ToUpper(m[2])
		if !indicatorDenylist[base] && base != quote {
			return base + quote, true
		}
	}

	for _, word := range bareWordRe.FindAllString(text, -1) {
		lower := strings.ToLower(word)
		if canonical, ok := bilingualAliases[lower]; ok {
			return canonical + defaultQuote, true
		}
		upper := strings.ToUpper(word)
		if indicatorDenylist[upper] {
			continue
		}
	}

	if defaultSymbol != "" {
		return strings.ToUpper(defaultSymbol), true
	}
	return "", false
}
