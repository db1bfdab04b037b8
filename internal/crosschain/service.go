// Package crosschain implements component I, the Cross-Chain Intent
// Service: a deduplicated, idempotent, timeout-aware state machine for
// long-running cross-chain asset movements. Grounded on the teacher's
// agent.go pipeline's single top-level mutex around its in-memory
// annotation accumulation, generalized here to guard an intent index, a
// client-request-id index, and an applied-message-id set together so the
// three stay serializable (§4.I, §5 "Shared resources").
package crosschain

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/txplain/tradeintent/internal/apperr"
	"github.com/txplain/tradeintent/internal/models"
	"github.com/txplain/tradeintent/internal/tools"
)

const (
	appliedSetTTL      = 24 * time.Hour
	clientRequestIDTTL = 24 * time.Hour
	defaultPendingTTL  = 10 * time.Minute
)

// Service owns the cross-chain intent index and enforces the DAG
// transition rules of §3's invariants.
type Service struct {
	mu sync.Mutex

	intents    map[string]*models.CrossChainIntent
	appliedSet tools.Cache // sha3(connector:message_id) -> "1"
	reqIndex   tools.Cache // client_request_id -> intent_id

	connectors  map[models.Connector]Connector
	pendingTTL  time.Duration
}

// New constructs a Service with the stub xcm/hyperbridge_ismp connectors
// registered (§4.I).
func New() (*Service, error) {
	applied, err := tools.NewRistrettoCache()
	if err != nil {
		return nil, err
	}
	reqIdx, err := tools.NewRistrettoCache()
	if err != nil {
		return nil, err
	}
	return &Service{
		intents:    make(map[string]*models.CrossChainIntent),
		appliedSet: applied,
		reqIndex:   reqIdx,
		pendingTTL: defaultPendingTTL,
		connectors: map[models.Connector]Connector{
			models.ConnectorXCM:             NewStubConnector(string(models.ConnectorXCM)),
			models.ConnectorHyperbridgeISMP: NewStubConnector(string(models.ConnectorHyperbridgeISMP)),
		},
	}, nil
}

// CreateAndDispatch implements §4.I's create_and_dispatch.
func (s *Service) CreateAndDispatch(ctx context.Context, req models.CrossChainIntentCreateRequest) (*models.CrossChainIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ClientRequestID != "" {
		if existingID, ok := s.reqIndex.Get(req.ClientRequestID); ok {
			if intent, ok := s.intents[existingID]; ok {
				s.evaluateTimeout(intent, time.Now())
				return intent, nil
			}
		}
	}

	now := time.Now()
	intent := &models.CrossChainIntent{
		ID:              newIntentID(),
		ClientRequestID: req.ClientRequestID,
		SessionID:       req.SessionID,
		Goal:            req.Goal,
		Target:          req.Target,
		Asset:           req.Asset,
		State:           models.StateCreated,
		CreatedUnixS:    now.Unix(),
	}
	intent.AppendEvent(now.Unix(), models.StateCreated, "", "")
	s.intents[intent.ID] = intent
	if req.ClientRequestID != "" {
		s.reqIndex.Set(req.ClientRequestID, intent.ID, clientRequestIDTTL)
	}

	connector, ok := s.connectors[req.Target.Connector]
	if !ok {
		return nil, apperr.New(apperr.CodeUnsupportedConnector, "unsupported connector: "+string(req.Target.Connector))
	}

	dispatchID, err := connector.Dispatch(ctx, intent.ID)
	if err != nil {
		log.Error().Err(err).Str("intent_id", intent.ID).Msg("connector dispatch failed")
		intent.State = models.StateFailed
		intent.AppendEvent(time.Now().Unix(), models.StateFailed, err.Error(), "")
		return intent, nil
	}

	intent.DispatchID = dispatchID
	intent.ExpiresUnixS = now.Add(s.pendingTTL).Unix()
	intent.State = models.StatePending
	intent.AppendEvent(time.Now().Unix(), models.StatePending, "", "")

	return intent, nil
}

// GetIntent implements §4.I's get_intent.
func (s *Service) GetIntent(id string) (*models.CrossChainIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.intents[id]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "intent not found")
	}
	s.evaluateTimeout(intent, time.Now())
	return intent, nil
}

// ListIntents is the supplemented list operation (SPEC_FULL.md §7),
// optionally filtered by session id and/or state.
func (s *Service) ListIntents(sessionID string, state models.IntentState) []*models.CrossChainIntent {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	out := make([]*models.CrossChainIntent, 0, len(s.intents))
	for _, intent := range s.intents {
		s.evaluateTimeout(intent, now)
		if sessionID != "" && intent.SessionID != sessionID {
			continue
		}
		if state != "" && intent.State != state {
			continue
		}
		out = append(out, intent)
	}
	return out
}

// CancelIntent implements §4.I's cancel_intent: only legal from
// {created, pending}.
func (s *Service) CancelIntent(id string) (*models.CrossChainIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.intents[id]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "intent not found")
	}
	s.evaluateTimeout(intent, time.Now())

	if intent.State != models.StateCreated && intent.State != models.StatePending {
		return nil, apperr.New(apperr.CodeCannotCancel, "intent cannot be cancelled from state "+string(intent.State))
	}

	intent.State = models.StateCancelled
	intent.AppendEvent(time.Now().Unix(), models.StateCancelled, "", "")
	return intent, nil
}

// RefundIntent implements §4.I's refund_intent: only legal from failed.
func (s *Service) RefundIntent(id string) (*models.CrossChainIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.intents[id]
	if !ok {
		return nil, apperr.New(apperr.CodeNotFound, "intent not found")
	}
	s.evaluateTimeout(intent, time.Now())

	if intent.State != models.StateFailed {
		return nil, apperr.New(apperr.CodeCannotRefund, "intent cannot be refunded from state "+string(intent.State))
	}

	intent.State = models.StateRefunded
	intent.AppendEvent(time.Now().Unix(), models.StateRefunded, "", "")
	return intent, nil
}

// ApplyVerifiedInbound implements §4.I's apply_verified_inbound.
func (s *Service) ApplyVerifiedInbound(ctx context.Context, req models.CrossChainInboundRequest) (*models.CrossChainIntent, bool, error) {
	connector, ok := s.connectors[req.Connector]
	if !ok {
		return nil, false, apperr.New(apperr.CodeUnsupportedConnector, "unsupported connector: "+string(req.Connector))
	}
	verified, err := connector.Verify(ctx, req.MessageID)
	if err != nil {
		return nil, false, apperr.Wrap(apperr.CodeInternalError, "connector verify failed", err)
	}
	if !verified || !req.Verified {
		return nil, false, apperr.New(apperr.CodeUnverifiedInbound, "inbound message failed verification")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.intents[req.IntentID]
	if !ok {
		return nil, false, apperr.New(apperr.CodeNotFound, "intent not found")
	}
	s.evaluateTimeout(intent, time.Now())

	dedupKey := appliedKey(string(req.Connector), req.MessageID)
	if _, already := s.appliedSet.Get(dedupKey); already {
		return intent, false, nil
	}

	intent.AppendEvent(time.Now().Unix(), intent.State, req.Status, req.MessageID)

	if !intent.State.IsTerminal() {
		switch req.Status {
		case "return_completed", "settled":
			intent.State = models.StateSettled
		case "failed":
			intent.State = models.StateFailed
		case "execution_completed":
			// Records only; state unchanged.
		}
	}

	s.appliedSet.Set(dedupKey, "1", appliedSetTTL)
	return intent, true, nil
}

// evaluateTimeout implements §4.I's "timeout evaluation": pending with an
// exceeded expiry transitions to failed. Caller must hold s.mu.
func (s *Service) evaluateTimeout(intent *models.CrossChainIntent, now time.Time) {
	if intent.State != models.StatePending || intent.ExpiresUnixS == 0 {
		return
	}
	if now.Unix() < intent.ExpiresUnixS {
		return
	}
	intent.State = models.StateFailed
	intent.AppendEvent(now.Unix(), models.StateFailed, "timeout", "")
}

// Networks is a static capability listing (SPEC_FULL.md §7).
func Networks() []string {
	return []string{"passethub", "assethub", "polkadot-relay"}
}

// Connectors is a static capability listing (SPEC_FULL.md §7).
func Connectors() []string {
	return []string{string(models.ConnectorXCM), string(models.ConnectorHyperbridgeISMP)}
}
