// Package models holds the wire and in-memory types shared across the
// orchestration loop, the session store, and the cross-chain intent
// service. Open-ended LLM output is kept as map[string]interface{} with
// typed accessor helpers rather than being forced into a rigid struct,
// the same way the upstream agent kept ToolInput/ToolOutput open.
package models

import "time"

// Role identifies the speaker of a conversational message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// BlockType tags the variant held by a MessageBlock.
type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

// MessageBlock is a tagged variant of {text, tool_use, tool_result}.
// Only the fields relevant to Type are populated.
type MessageBlock struct {
	Type BlockType `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string                 `json:"id,omitempty"`
	Name  string                 `json:"name,omitempty"`
	Input map[string]interface{} `json:"input,omitempty"`

	// tool_result — ID/Name reused as the correlating tool_use id/name
	Output string `json:"output,omitempty"`
}

// Message is one turn of conversational memory. Blocks are ordered and
// that order is significant (e.g. a tool_use block followed later by its
// matching tool_result).
type Message struct {
	Role   Role           `json:"role"`
	Blocks []MessageBlock `json:"blocks"`
}

// Text concatenates all text blocks in the message, in order.
func (m Message) Text() string {
	out := ""
	for _, b := range m.Blocks {
		if b.Type == BlockText {
			out += b.Text
		}
	}
	return out
}

// NewTextMessage builds a single-block text message.
func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Blocks: []MessageBlock{{Type: BlockText, Text: text}}}
}

// Memory is the ordered conversational history for one session.
type Memory []Message

// Session is the unit the Session Store owns.
type Session struct {
	ID         string    `json:"id"`
	Memory     Memory    `json:"memory"`
	LastAccess time.Time `json:"last_access"`
}

// Action is one normalized recommendation action.
type Action struct {
	Type   string                 `json:"type"`
	Params map[string]interface{} `json:"params"`
}

// Plan is the LLM output contract after normalization (§3, §4.F).
type Plan struct {
	AssistantText string                 `json:"assistant_text"`
	Intent        string                 `json:"intent"`
	Params        map[string]interface{} `json:"params"`
	Rationale     string                 `json:"rationale"`
	RiskNotes     []string               `json:"risk_notes"`
	Actions       []Action               `json:"actions"`
}

// ParamString returns Params[key] coerced to string, or "" if absent or
// not a string. Typed accessors like this keep the open params map from
// leaking interface{} assertions into every caller.
func (p *Plan) ParamString(key string) string {
	if p.Params == nil {
		return ""
	}
	if v, ok := p.Params[key].(string); ok {
		return v
	}
	return ""
}

// ParamFloat returns Params[key] coerced to float64, defaulting to 0.
func (p *Plan) ParamFloat(key string) (float64, bool) {
	if p.Params == nil {
		return 0, false
	}
	switch v := p.Params[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// SetParam is a nil-safe write into Params.
func (p *Plan) SetParam(key string, value interface{}) {
	if p.Params == nil {
		p.Params = map[string]interface{}{}
	}
	p.Params[key] = value
}

// RoutingStub is the advisory attached to an Execution Preview.
type RoutingStub struct {
	Route string `json:"route"`
	Reason string `json:"reason"`
	Stub  bool   `json:"stub"`
}

// ExecutionPreview is an LLM-authored advisory requiring user confirmation.
type ExecutionPreview struct {
	Mode                 string                 `json:"mode"`
	Intent                string                 `json:"intent"`
	Params                map[string]interface{} `json:"params"`
	RequiresConfirmation bool                   `json:"requires_confirmation"`
	Actions               []Action               `json:"actions"`
	Routing               *RoutingStub           `json:"routing,omitempty"`
}

// ExecutionStep is one signable step of a deterministic ExecutionPlan.
type ExecutionStep struct {
	Kind   string                 `json:"kind"` // "xcm_transfer" | "uniswap_v2_swap"
	Params map[string]interface{} `json:"params"`
}

// TokenRef identifies a token within an ExecutionPlan.
type TokenRef struct {
	Symbol  string `json:"symbol"`
	Address string `json:"address,omitempty"`
}

// ExecutionPlan is the deterministic buy fast-path recipe (§3).
type ExecutionPlan struct {
	Type            string          `json:"type"`
	OriginChain     string          `json:"origin_chain"`
	OriginParachain int             `json:"origin_parachain,omitempty"`
	OriginAsset     string          `json:"origin_asset"`
	DestChain       string          `json:"dest_chain"`
	DestParachain   int             `json:"dest_parachain,omitempty"`
	DestEVMRPC      string          `json:"dest_evm_rpc,omitempty"`
	SlippageBps     int             `json:"slippage_bps"`
	DeadlineSeconds int             `json:"deadline_seconds"`
	AmountInPAS     string          `json:"amount_in_pas"`
	TokenOut        TokenRef        `json:"token_out"`
	Steps           []ExecutionStep `json:"steps"`
}

// ChatResponse is the response envelope for both /chat and the "done"
// SSE event payload.
type ChatResponse struct {
	SessionID        string                 `json:"session_id"`
	AssistantText    string                 `json:"assistant_text"`
	Actions          []Action               `json:"actions"`
	ExecutionPreview *ExecutionPreview      `json:"execution_preview,omitempty"`
	ExecutionPlan    *ExecutionPlan         `json:"execution_plan,omitempty"`
	StrategyType     string                 `json:"strategy_type,omitempty"`
	StrategyLabel    string                 `json:"strategy_label,omitempty"`
}

// --- Cross-chain intent state machine -------------------------------------

// IntentState is one node of the cross-chain DAG (§3 invariants).
type IntentState string

const (
	StateCreated   IntentState = "created"
	StatePending   IntentState = "pending"
	StateSettled   IntentState = "settled"
	StateFailed    IntentState = "failed"
	StateCancelled IntentState = "cancelled"
	StateRefunded  IntentState = "refunded"
)

// IsTerminal reports whether no further inbound message may move state.
func (s IntentState) IsTerminal() bool {
	return s == StateSettled || s == StateCancelled || s == StateRefunded
}

// Goal is the user-facing purpose of a cross-chain intent.
type Goal string

const (
	GoalDeposit         Goal = "deposit"
	GoalWithdraw        Goal = "withdraw"
	GoalPathCRoundtrip  Goal = "path_c_roundtrip"
)

// Connector names a bridging backend.
type Connector string

const (
	ConnectorXCM            Connector = "xcm"
	ConnectorHyperbridgeISMP Connector = "hyperbridge_ismp"
)

// AssetKind distinguishes the native asset from an ERC-20.
type AssetKind string

const (
	AssetNative AssetKind = "native"
	AssetERC20  AssetKind = "erc20"
)

// Target is the destination side of a cross-chain intent.
type Target struct {
	Connector   Connector `json:"connector"`
	Destination string    `json:"destination"`
}

// Asset describes what is being moved.
type Asset struct {
	Kind         AssetKind `json:"kind"`
	Amount       string    `json:"amount"`
	TokenAddress string    `json:"token_address,omitempty"`
}

// IntentEvent is one append-only entry of an intent's event log.
type IntentEvent struct {
	TimestampUnixS int64       `json:"timestamp_unix_s"`
	State          IntentState `json:"state"`
	Detail         string      `json:"detail,omitempty"`
	MessageID      string      `json:"message_id,omitempty"`
}

// CrossChainIntent is the record owned by the Cross-Chain Intent Service.
type CrossChainIntent struct {
	ID              string        `json:"id"`
	ClientRequestID string        `json:"client_request_id,omitempty"`
	SessionID       string        `json:"session_id,omitempty"`
	Goal            Goal          `json:"goal"`
	Target          Target        `json:"target"`
	Asset           Asset         `json:"asset"`
	State           IntentState   `json:"state"`
	DispatchID      string        `json:"dispatch_id,omitempty"`
	CreatedUnixS    int64         `json:"created_unix_s"`
	ExpiresUnixS    int64         `json:"expires_unix_s,omitempty"`
	Events          []IntentEvent `json:"events"`
}

// AppendEvent is a small helper kept in the style of the upstream
// AnnotationContext.AddItem helpers: a typed, append-only mutator next
// to the struct it mutates instead of inline slice surgery at call sites.
func (i *CrossChainIntent) AppendEvent(now int64, state IntentState, detail, messageID string) {
	i.Events = append(i.Events, IntentEvent{
		TimestampUnixS: now,
		State:          state,
		Detail:         detail,
		MessageID:      messageID,
	})
}

// CrossChainIntentCreateRequest is the POST /cross-chain/intents body.
type CrossChainIntentCreateRequest struct {
	ClientRequestID string `json:"client_request_id,omitempty"`
	SessionID       string `json:"session_id,omitempty"`
	Goal            Goal   `json:"goal"`
	Target          Target `json:"target"`
	Asset           Asset  `json:"asset"`
}

// CrossChainInboundRequest is the POST /cross-chain/inbound body.
type CrossChainInboundRequest struct {
	IntentID  string    `json:"intent_id"`
	Connector Connector `json:"connector"`
	MessageID string    `json:"message_id"`
	Status    string    `json:"status"`
	Verified  bool      `json:"verified"`
}

// ToolDescriptor is what the LLM sees for one registered tool.
type ToolDescriptor struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Schema      map[string]interface{} `json:"schema"`
}
