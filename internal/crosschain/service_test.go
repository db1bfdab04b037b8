package crosschain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/txplain/tradeintent/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := New()
	require.NoError(t, err)
	return svc
}

func sampleCreateReq(clientReqID string) models.CrossChainIntentCreateRequest {
	return models.CrossChainIntentCreateRequest{
		ClientRequestID: clientReqID,
		SessionID:       "sess-1",
		Goal:            models.GoalDeposit,
		Target:          models.Target{Connector: models.ConnectorXCM, Destination: "assethub:5F..."},
		Asset:           models.Asset{Kind: models.AssetNative, Amount: "10"},
	}
}

func TestCreateAndDispatchTransitionsToPending(t *testing.T) {
	svc := newTestService(t)
	intent, err := svc.CreateAndDispatch(context.Background(), sampleCreateReq("req-1"))
	require.NoError(t, err)
	require.Equal(t, models.StatePending, intent.State)
	require.NotEmpty(t, intent.DispatchID)
	require.Len(t, intent.Events, 2)
}

func TestCreateAndDispatchIsIdempotentByClientRequestID(t *testing.T) {
	svc := newTestService(t)
	first, err := svc.CreateAndDispatch(context.Background(), sampleCreateReq("req-1"))
	require.NoError(t, err)
	second, err := svc.CreateAndDispatch(context.Background(), sampleCreateReq("req-1"))
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestCreateAndDispatchRejectsUnsupportedConnector(t *testing.T) {
	svc := newTestService(t)
	req := sampleCreateReq("req-2")
	req.Target.Connector = models.Connector("teleport")
	_, err := svc.CreateAndDispatch(context.Background(), req)
	require.Error(t, err)
}

func TestCancelIntentOnlyLegalFromCreatedOrPending(t *testing.T) {
	svc := newTestService(t)
	intent, err := svc.CreateAndDispatch(context.Background(), sampleCreateReq("req-3"))
	require.NoError(t, err)

	cancelled, err := svc.CancelIntent(intent.ID)
	require.NoError(t, err)
	require.Equal(t, models.StateCancelled, cancelled.State)

	_, err = svc.CancelIntent(intent.ID)
	require.Error(t, err)
}

func TestRefundIntentOnlyLegalFromFailed(t *testing.T) {
	svc := newTestService(t)
	intent, err := svc.CreateAndDispatch(context.Background(), sampleCreateReq("req-4"))
	require.NoError(t, err)

	_, err = svc.RefundIntent(intent.ID)
	require.Error(t, err, "pending intent cannot be refunded")

	svc.mu.Lock()
	intent.State = models.StateFailed
	svc.mu.Unlock()

	refunded, err := svc.RefundIntent(intent.ID)
	require.NoError(t, err)
	require.Equal(t, models.StateRefunded, refunded.State)
}

func TestApplyVerifiedInboundSettlesPendingIntent(t *testing.T) {
	svc := newTestService(t)
	intent, err := svc.CreateAndDispatch(context.Background(), sampleCreateReq("req-5"))
	require.NoError(t, err)

	inbound := models.CrossChainInboundRequest{
		IntentID:  intent.ID,
		Connector: models.ConnectorXCM,
		MessageID: "msg-1",
		Status:    "settled",
		Verified:  true,
	}
	updated, applied, err := svc.ApplyVerifiedInbound(context.Background(), inbound)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, models.StateSettled, updated.State)
}

func TestApplyVerifiedInboundIsIdempotentPerMessageID(t *testing.T) {
	svc := newTestService(t)
	intent, err := svc.CreateAndDispatch(context.Background(), sampleCreateReq("req-6"))
	require.NoError(t, err)

	inbound := models.CrossChainInboundRequest{
		IntentID:  intent.ID,
		Connector: models.ConnectorXCM,
		MessageID: "msg-dup",
		Status:    "settled",
		Verified:  true,
	}
	_, applied1, err := svc.ApplyVerifiedInbound(context.Background(), inbound)
	require.NoError(t, err)
	require.True(t, applied1)

	_, applied2, err := svc.ApplyVerifiedInbound(context.Background(), inbound)
	require.NoError(t, err)
	require.False(t, applied2, "same (connector, message_id) must not re-apply")
}

func TestApplyVerifiedInboundRejectsUnverified(t *testing.T) {
	svc := newTestService(t)
	intent, err := svc.CreateAndDispatch(context.Background(), sampleCreateReq("req-7"))
	require.NoError(t, err)

	inbound := models.CrossChainInboundRequest{
		IntentID:  intent.ID,
		Connector: models.ConnectorXCM,
		MessageID: "msg-2",
		Status:    "settled",
		Verified:  false,
	}
	_, _, err = svc.ApplyVerifiedInbound(context.Background(), inbound)
	require.Error(t, err)
}

func TestApplyVerifiedInboundPreservesTerminalStateOnFailedStatus(t *testing.T) {
	svc := newTestService(t)
	intent, err := svc.CreateAndDispatch(context.Background(), sampleCreateReq("req-8"))
	require.NoError(t, err)

	_, err = svc.CancelIntent(intent.ID)
	require.NoError(t, err)

	inbound := models.CrossChainInboundRequest{
		IntentID:  intent.ID,
		Connector: models.ConnectorXCM,
		MessageID: "msg-3",
		Status:    "failed",
		Verified:  true,
	}
	updated, applied, err := svc.ApplyVerifiedInbound(context.Background(), inbound)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, models.StateCancelled, updated.State, "a failed inbound against a cancelled intent preserves cancelled")
}

func TestEvaluateTimeoutFailsExpiredPendingIntent(t *testing.T) {
	svc := newTestService(t)
	intent, err := svc.CreateAndDispatch(context.Background(), sampleCreateReq("req-9"))
	require.NoError(t, err)

	svc.mu.Lock()
	intent.ExpiresUnixS = 1 // far in the past
	svc.mu.Unlock()

	got, err := svc.GetIntent(intent.ID)
	require.NoError(t, err)
	require.Equal(t, models.StateFailed, got.State)
}
