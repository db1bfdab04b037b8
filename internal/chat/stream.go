package chat

import (
	"context"
	"sync"
	"time"

	"github.com/txplain/tradeintent/internal/apperr"
	"github.com/txplain/tradeintent/internal/llm"
	"github.com/txplain/tradeintent/internal/models"
	"github.com/txplain/tradeintent/internal/session"
)

// Event is one server-sent event the transport layer renders as
// "event: <Name>\ndata: <json(Data)>\n\n", or as a ": <Data>" comment
// line when Name is "comment".
type Event struct {
	Name string
	Data interface{}
}

// ChunkPayload is the data payload of a "chunk" event (§6 SSE format).
type ChunkPayload struct {
	SessionID string `json:"session_id"`
	Sequence  int    `json:"sequence"`
	DeltaText string `json:"delta_text"`
}

// ErrorPayload is the data payload of an "error" event.
type ErrorPayload struct {
	SessionID string `json:"session_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// Stream runs the chat pipeline as a background task while concurrently
// emitting SSE events on the returned channel, which is closed when the
// stream ends (§4.H "Streaming /chat/stream"). The caller is responsible
// for rendering events onto an http.Flusher.
func (p *Pipeline) Stream(parentCtx context.Context, req Request) <-chan Event {
	events := make(chan Event, 64)
	go p.streamLoop(parentCtx, req, events)
	return events
}

func (p *Pipeline) streamLoop(parentCtx context.Context, req Request, events chan<- Event) {
	defer close(events)

	if req.SessionID == "" {
		req.SessionID = session.NewSessionID()
	}
	sid := req.SessionID

	ctx, cancel := context.WithTimeout(parentCtx, p.cfg.StreamTotalTimeout)
	defer cancel()

	events <- Event{Name: "comment", Data: "connected"}

	extractor := llm.NewFieldExtractor()
	var seqMu sync.Mutex
	seq := 0

	doneCh := make(chan struct{})
	var result *models.ChatResponse
	var runErr error

	go func() {
		defer close(doneCh)
		result, runErr = p.ChatStreaming(ctx, req, func(delta string) {
			decoded := extractor.Feed(delta)
			if decoded == "" {
				return
			}
			seqMu.Lock()
			s := seq
			seq++
			seqMu.Unlock()
			select {
			case events <- Event{Name: "chunk", Data: ChunkPayload{SessionID: sid, Sequence: s, DeltaText: decoded}}:
			case <-ctx.Done():
			}
		})
	}()

	keepalive := time.NewTicker(p.cfg.StreamKeepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-doneCh:
			p.finishStream(events, sid, &seq, result, runErr)
			return
		case <-keepalive.C:
			events <- Event{Name: "comment", Data: "keep-alive"}
		case <-ctx.Done():
			events <- Event{Name: "error", Data: ErrorPayload{
				SessionID: sid,
				Code:      string(apperr.CodeUpstreamTimeout),
				Message:   "stream exceeded total timeout",
			}}
			return
		}
	}
}

func (p *Pipeline) finishStream(events chan<- Event, sid string, seq *int, result *models.ChatResponse, runErr error) {
	if runErr != nil {
		events <- Event{Name: "error", Data: ErrorPayload{
			SessionID: sid,
			Code:      string(apperr.CodeOf(runErr)),
			Message:   runErr.Error(),
		}}
		return
	}

	if *seq == 0 && result.AssistantText != "" {
		p.chunkText(events, sid, result.AssistantText, seq)
	}

	events <- Event{Name: "done", Data: result}
}

// chunkText is the fallback chunker used when no extractor deltas were
// observed (e.g. the simple planner, which makes one non-streamed call):
// it chunks assistant_text itself by StreamChunkSize runes with
// StreamDelayMS spacing (§4.H streaming bullet 4).
func (p *Pipeline) chunkText(events chan<- Event, sid, text string, seq *int) {
	runes := []rune(text)
	size := p.cfg.StreamChunkSize
	if size <= 0 {
		size = 12
	}
	delay := time.Duration(p.cfg.StreamDelayMS) * time.Millisecond

	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		events <- Event{Name: "chunk", Data: ChunkPayload{
			SessionID: sid,
			Sequence:  *seq,
			DeltaText: string(runes[i:end]),
		}}
		*seq++
		if delay > 0 && end < len(runes) {
			time.Sleep(delay)
		}
	}
}
