package crosschain

import "context"

// Connector is a bridging backend (§4.I). The demo ships stub
// implementations that always dispatch successfully and always verify
// inbound messages, matching spec.md's "verified=true by default for the
// stubbed connectors."
type Connector interface {
	Name() string
	Dispatch(ctx context.Context, intentID string) (dispatchID string, err error)
	Verify(ctx context.Context, messageID string) (verified bool, err error)
}

// StubConnector is a connector that always succeeds, identified by name
// (xcm, hyperbridge_ismp).
type StubConnector struct {
	name string
}

func NewStubConnector(name string) *StubConnector {
	return &StubConnector{name: name}
}

func (c *StubConnector) Name() string { return c.name }

func (c *StubConnector) Dispatch(ctx context.Context, intentID string) (string, error) {
	return dispatchID(c.name, intentID), nil
}

func (c *StubConnector) Verify(ctx context.Context, messageID string) (bool, error) {
	return true, nil
}
