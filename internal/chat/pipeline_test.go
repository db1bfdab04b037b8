package chat

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/txplain/tradeintent/internal/config"
	"github.com/txplain/tradeintent/internal/session"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := session.NewWithClient(client, time.Minute)

	cfg := &config.Config{
		MaxInputChars:      2000,
		StreamChunkSize:    12,
		StreamDelayMS:      0,
		StreamKeepalive:    time.Second,
		StreamTotalTimeout: 5 * time.Second,
		CEXDefaultQuote:    "USDT",
		EVMRPCURL:          "https://example-rpc.test",
		DemoTokenAddress:   "0xdead",
	}

	return NewPipeline(cfg, store, nil, nil)
}

func TestChatRejectsEmptyInput(t *testing.T) {
	p := newTestPipeline(t)
	_, err := p.Chat(context.Background(), Request{UserInput: ""})
	require.Error(t, err)
}

func TestChatRejectsOversizedInput(t *testing.T) {
	p := newTestPipeline(t)
	p.cfg.MaxInputChars = 5
	_, err := p.Chat(context.Background(), Request{UserInput: "this is way too long"})
	require.Error(t, err)
}

func TestChatBuyFastPathBypassesPlanner(t *testing.T) {
	p := newTestPipeline(t)
	resp, err := p.Chat(context.Background(), Request{UserInput: "buy 200 PAS for TokenDemo"})
	require.NoError(t, err)
	require.NotNil(t, resp.ExecutionPlan)
	require.Equal(t, "buy_token", resp.ExecutionPlan.Type)
	require.Equal(t, "200", resp.ExecutionPlan.AmountInPAS)
	require.Equal(t, "TokenDemo", resp.ExecutionPlan.TokenOut.Symbol)
	require.Equal(t, "xcm_transfer", resp.ExecutionPlan.Steps[0].Kind)
	require.Equal(t, "uniswap_v2_swap", resp.ExecutionPlan.Steps[1].Kind)
	require.NotNil(t, resp.ExecutionPreview)
	require.Equal(t, "buy_token", resp.ExecutionPreview.Intent)
}

func TestChatBuyFastPathMintsSessionIDWhenAbsent(t *testing.T) {
	p := newTestPipeline(t)
	resp, err := p.Chat(context.Background(), Request{UserInput: "buy 10 PAS of DOT"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.SessionID)
}
