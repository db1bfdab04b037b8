// Package chat implements component H, the Chat Request Pipeline: the
// synchronous /chat handler logic (fast-path buy-intent shortcut,
// otherwise planner → normalizer → preview) shared by both the
// synchronous and the SSE-streaming HTTP handlers.
package chat

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/txplain/tradeintent/internal/apperr"
	"github.com/txplain/tradeintent/internal/config"
	"github.com/txplain/tradeintent/internal/intent"
	"github.com/txplain/tradeintent/internal/llm"
	"github.com/txplain/tradeintent/internal/market"
	"github.com/txplain/tradeintent/internal/models"
	"github.com/txplain/tradeintent/internal/plan"
	"github.com/txplain/tradeintent/internal/session"
)

// Request is the decoded body of POST /chat and /chat/stream.
type Request struct {
	UserInput string `json:"user_input"`
	SessionID string `json:"session_id,omitempty"`
}

// Pipeline wires the session store, the market fetcher, and the planner
// together behind the single Chat entry point (§4.H).
type Pipeline struct {
	cfg     *config.Config
	store   *session.Store
	planner *llm.Planner
	fetcher *market.Fetcher
}

func NewPipeline(cfg *config.Config, store *session.Store, planner *llm.Planner, fetcher *market.Fetcher) *Pipeline {
	return &Pipeline{cfg: cfg, store: store, planner: planner, fetcher: fetcher}
}

// Chat runs the full synchronous pipeline (§4.H steps 1-5).
func (p *Pipeline) Chat(ctx context.Context, req Request) (*models.ChatResponse, error) {
	return p.run(ctx, req, nil)
}

// ChatStreaming runs the same pipeline but wires onTextDelta into the
// tool-enabled planner's final iteration, for the SSE handler (§4.H
// streaming variant).
func (p *Pipeline) ChatStreaming(ctx context.Context, req Request, onTextDelta func(string)) (*models.ChatResponse, error) {
	return p.run(ctx, req, onTextDelta)
}

func (p *Pipeline) run(ctx context.Context, req Request, onTextDelta func(string)) (*models.ChatResponse, error) {
	if len(req.UserInput) == 0 {
		return nil, apperr.New(apperr.CodeInvalidInput, "user_input must not be empty")
	}
	if utf8.RuneCountInString(req.UserInput) > p.cfg.MaxInputChars {
		return nil, apperr.New(apperr.CodeInputTooLarge, fmt.Sprintf("user_input exceeds %d characters", p.cfg.MaxInputChars))
	}

	sid := req.SessionID
	if sid == "" {
		sid = session.NewSessionID()
	}

	lock := p.store.GetSessionLock(sid)
	if err := lock.LockContext(ctx); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternalError, "failed to acquire session lock", err)
	}
	defer lock.Unlock()

	logger := log.With().Str("session_id", sid).Logger()

	// Fast-path (§4.H step 4).
	if buy, ok := intent.ParseBuyIntent(req.UserInput); ok {
		return p.runBuyFastPath(ctx, sid, req.UserInput, buy)
	}

	memory, err := p.store.LoadMemory(ctx, sid)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternalError, "failed to load session memory", err)
	}

	hint := intent.InferIntentHint(req.UserInput)

	var snapshot *market.Snapshot
	if hint.Strategy != "" {
		symbol, ok := intent.ExtractSymbol(req.UserInput, p.cfg.CEXDefaultQuote, "BTC"+p.cfg.CEXDefaultQuote)
		if ok {
			snap := p.fetcher.FetchSnapshot(ctx, symbol, p.cfg.CEXKlineInterval, p.cfg.CEXKlineLimit)
			snapshot = &snap
			if !snap.OK {
				logger.Warn().Str("symbol", symbol).Str("error", snap.Error).Msg("market snapshot fetch failed")
			}
		}
	}

	rawPlan, err := p.plan(ctx, memory, req.UserInput, snapshot, onTextDelta)
	if err != nil {
		return nil, err
	}

	requestedSymbol := ""
	if snapshot != nil && snapshot.OK {
		requestedSymbol = snapshot.Symbol
	}
	normalized, preview := plan.Normalize(rawPlan, requestedSymbol, snapshot)

	resp := &models.ChatResponse{
		SessionID:        sid,
		AssistantText:    normalized.AssistantText,
		Actions:          normalized.Actions,
		ExecutionPreview: preview,
	}
	if len(normalized.Actions) > 0 {
		resp.StrategyType = normalized.Actions[0].Type
		resp.StrategyLabel = plan.Label(normalized.Actions[0].Type)
	}
	if resp.AssistantText == "" {
		resp.AssistantText = normalized.Rationale
	}

	memory = append(memory, models.NewTextMessage(models.RoleUser, req.UserInput))
	memory = append(memory, models.NewTextMessage(models.RoleAssistant, resp.AssistantText))
	if err := p.store.SaveMemory(ctx, sid, memory); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternalError, "failed to save session memory", err)
	}

	return resp, nil
}

func (p *Pipeline) plan(ctx context.Context, memory models.Memory, userText string, snapshot *market.Snapshot, onTextDelta func(string)) (*models.Plan, error) {
	if p.cfg.UseSimpleStrategy {
		return p.planner.PlanSimple(ctx, memory, userText, snapshot)
	}
	return p.planner.PlanWithTools(ctx, memory, userText, onTextDelta)
}

func (p *Pipeline) runBuyFastPath(ctx context.Context, sid, userText string, buy intent.BuyIntent) (*models.ChatResponse, error) {
	execPlan := buildBuyExecutionPlan(p.cfg, buy.AmountPAS, buy.TokenSymbol)
	preview := buildBuyExecutionPreview(buy.AmountPAS, buy.TokenSymbol)
	assistantText := fmt.Sprintf("Preparing to swap %s PAS for %s. Please confirm the preview to continue.", buy.AmountPAS, buy.TokenSymbol)

	memory, err := p.store.LoadMemory(ctx, sid)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternalError, "failed to load session memory", err)
	}
	memory = append(memory, models.NewTextMessage(models.RoleUser, userText))
	memory = append(memory, models.NewTextMessage(models.RoleAssistant, assistantText))
	if err := p.store.SaveMemory(ctx, sid, memory); err != nil {
		return nil, apperr.Wrap(apperr.CodeInternalError, "failed to save session memory", err)
	}

	return &models.ChatResponse{
		SessionID:        sid,
		AssistantText:    assistantText,
		Actions:          []models.Action{},
		ExecutionPreview: preview,
		ExecutionPlan:    execPlan,
	}, nil
}
