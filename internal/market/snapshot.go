// Package market implements the CEX klines fetch and snapshot assembly
// (component B). It is grounded on the upstream rpc.Client's request/
// response handling shape (construct request, do, read body, unmarshal,
// surface a wrapped error) generalized from a JSON-RPC POST envelope to
// a plain GET against a klines endpoint, and on the Binance trading
// bot's calculateIndicatorsSummary for the snapshot's indicator bundle.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/txplain/tradeintent/internal/indicators"
)

const minKlinesRequired = 20

// Snapshot is the structured market snapshot returned to the tool
// registry and embedded into plans (§4.B).
type Snapshot struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`

	Symbol          string  `json:"symbol,omitempty"`
	Price           float64 `json:"price,omitempty"`
	High24h         float64 `json:"high_24h,omitempty"`
	Low24h          float64 `json:"low_24h,omitempty"`
	PctChange24h    float64 `json:"pct_change_24h,omitempty"`
	VolumeRatio24h  float64 `json:"volume_ratio_24h,omitempty"`

	RSI14        float64 `json:"rsi_14,omitempty"`
	MACD         float64 `json:"macd,omitempty"`
	MACDSignal   float64 `json:"macd_signal,omitempty"`
	MACDHist     float64 `json:"macd_histogram,omitempty"`
	EMA12        float64 `json:"ema_12,omitempty"`
	EMA26        float64 `json:"ema_26,omitempty"`
	BollingerUp  float64 `json:"bollinger_upper,omitempty"`
	BollingerMid float64 `json:"bollinger_middle,omitempty"`
	BollingerLow float64 `json:"bollinger_lower,omitempty"`
}

// Fetcher fetches klines from a primary CEX host, retrying once against
// a declared fallback host when the primary is the canonical CEX host.
type Fetcher struct {
	httpClient  *http.Client
	primaryURL  string
	fallbackURL string
	canonicalHost string
}

// NewFetcher constructs a Fetcher. canonicalHost identifies the host
// that is allowed to fall back (the production Binance endpoint); a
// custom/test primary never falls back.
func NewFetcher(httpClient *http.Client, primaryURL, fallbackURL string) *Fetcher {
	return &Fetcher{
		httpClient:    httpClient,
		primaryURL:    primaryURL,
		fallbackURL:   fallbackURL,
		canonicalHost: "https://api.binance.com",
	}
}

type rawKline []interface{}

// FetchSnapshot fetches the N most recent klines for symbol at interval
// and assembles a Snapshot. It never returns an error: failures are
// reported as Snapshot{OK:false, Error:...} per §4.B.
func (f *Fetcher) FetchSnapshot(ctx context.Context, symbol, interval string, limit int) Snapshot {
	klines, err := f.fetchKlines(ctx, f.primaryURL, symbol, interval, limit)
	if err != nil && f.primaryURL == f.canonicalHost && f.fallbackURL != "" {
		log.Warn().Err(err).Str("symbol", symbol).Msg("primary CEX host failed, retrying against fallback")
		klines, err = f.fetchKlines(ctx, f.fallbackURL, symbol, interval, limit)
	}
	if err != nil {
		return Snapshot{OK: false, Error: err.Error()}
	}

	if len(klines) < minKlinesRequired {
		return Snapshot{OK: false, Error: fmt.Sprintf("need at least %d klines, got %d", minKlinesRequired, len(klines))}
	}

	return buildSnapshot(symbol, klines)
}

func (f *Fetcher) fetchKlines(ctx context.Context, baseURL, symbol, interval string, limit int) ([]indicators.Kline, error) {
	endpoint, err := url.Parse(baseURL + "/api/v3/klines")
	if err != nil {
		return nil, fmt.Errorf("failed to build klines url: %w", err)
	}
	q := endpoint.Query()
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("limit", fmt.Sprintf("%d", limit))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch klines: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("klines endpoint returned status %d", resp.StatusCode)
	}

	var raw []rawKline
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode klines response: %w", err)
	}

	out := make([]indicators.Kline, 0, len(raw))
	for _, k := range raw {
		if len(k) < 7 {
			continue
		}
		out = append(out, indicators.Kline{
			OpenTime:  toInt64(k[0]),
			Open:      toFloat(k[1]),
			High:      toFloat(k[2]),
			Low:       toFloat(k[3]),
			Close:     toFloat(k[4]),
			Volume:    toFloat(k[5]),
			CloseTime: toInt64(k[6]),
		})
	}
	return out, nil
}

func buildSnapshot(symbol string, klines []indicators.Kline) Snapshot {
	closes := make([]float64, len(klines))
	for i, k := range klines {
		closes[i] = k.Close
	}

	latest := klines[len(klines)-1]
	window24h := klines
	if len(klines) > 24 {
		window24h = klines[len(klines)-24:]
	}

	high, low := window24h[0].High, window24h[0].Low
	for _, k := range window24h {
		if k.High > high {
			high = k.High
		}
		if k.Low < low {
			low = k.Low
		}
	}

	price := latest.Close
	pctChange := indicators.PctChange(window24h[0].Open, price)
	avgVol := indicators.AvgVolume(klines, len(window24h))
	volRatio := 1.0
	if avgVol > 0 {
		volRatio = latest.Volume / avgVol
	}

	macd := indicators.ComputeMACD(closes, 12, 26, 9)
	bollinger := indicators.ComputeBollinger(closes, 20)

	snap := Snapshot{
		OK:             true,
		Symbol:         symbol,
		Price:          price,
		High24h:        high,
		Low24h:         low,
		PctChange24h:   pctChange,
		VolumeRatio24h: volRatio,
		RSI14:          indicators.RSI(closes, 14),
		MACD:           macd.Value,
		MACDSignal:     macd.Signal,
		MACDHist:       macd.Histogram,
		EMA12:          indicators.LatestEMA(closes, 12),
		EMA26:          indicators.LatestEMA(closes, 26),
	}
	if bollinger.OK {
		snap.BollingerUp = bollinger.Upper
		snap.BollingerMid = bollinger.Middle
		snap.BollingerLow = bollinger.Lower
	}
	return snap
}

func toFloat(v interface{}) float64 {
	switch t := v.(type) {
	case string:
		var f float64
		fmt.Sscanf(t, "%f", &f)
		return f
	case float64:
		return t
	default:
		return 0
	}
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case float64:
		return int64(t)
	case int64:
		return t
	default:
		return 0
	}
}

// Deadline is a convenience used by tools to bound a single fetch when
// no parent context deadline is already closer.
func Deadline(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, d)
}
