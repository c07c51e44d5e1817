package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Flusher is satisfied by http.ResponseWriter implementations (echo's
// response included); tests substitute a no-op implementation.
type Flusher interface {
	Flush()
}

// Formatter writes the uniform event-stream protocol (§4.8) to an
// underlying writer: `data: <json>\n\n` messages, `: ping\n\n` heartbeats,
// and a literal `data: [DONE]\n\n` trailer.
type Formatter struct {
	w       io.Writer
	flusher Flusher
	log     *slog.Logger
}

// NewFormatter wraps a response writer. Call SetHeaders before the first
// write if w is an http.ResponseWriter and headers have not been sent yet.
func NewFormatter(w io.Writer, flusher Flusher) *Formatter {
	return &Formatter{
		w:       w,
		flusher: flusher,
		log:     slog.With("component", "events.formatter"),
	}
}

// SetHeaders marks the response as a streaming event source: streaming MIME
// type, cache disabled, accelerated buffering disabled, and the Vercel
// AI SDK UI-message-stream protocol markers.
func SetHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set("x-vercel-ai-ui-message-stream", "v1")
	h.Set("x-vercel-ai-protocol", "data")
}

// Emit marshals payload to compact JSON and writes a single `data: ...\n\n` frame.
func (f *Formatter) Emit(payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	if _, err := fmt.Fprintf(f.w, "data: %s\n\n", body); err != nil {
		return fmt.Errorf("write event frame: %w", err)
	}
	f.flusher.Flush()
	return nil
}

// EmitData wraps value as a data-<name> structured payload and emits it.
func (f *Formatter) EmitData(name string, value any) error {
	return f.Emit(DataPayload{Type: "data-" + name, Data: value})
}

// Ping writes a heartbeat comment line. Comment lines are ignored by SSE
// clients but keep intermediaries from closing an idle connection.
func (f *Formatter) Ping() error {
	if _, err := io.WriteString(f.w, ": ping\n\n"); err != nil {
		return fmt.Errorf("write ping: %w", err)
	}
	f.flusher.Flush()
	return nil
}

// Done writes the literal [DONE] trailer that terminates a well-formed stream.
func (f *Formatter) Done() error {
	if _, err := io.WriteString(f.w, "data: [DONE]\n\n"); err != nil {
		return fmt.Errorf("write done trailer: %w", err)
	}
	f.flusher.Flush()
	return nil
}

// Abort emits an abort event; used when the client disconnects mid-stream.
func (f *Formatter) Abort(reason string) error {
	return f.Emit(AbortPayload{Type: TypeAbort, Reason: reason})
}

// Error emits an error event; callers still follow with Done per protocol.
func (f *Formatter) Error(errText string) error {
	return f.Emit(ErrorPayload{Type: TypeError, ErrorText: errText})
}

// Pump relays events from the source channel to the client, interleaving
// heartbeat pings when no event arrives within pingInterval. It returns when
// events closes (writing the done trailer; a finish event, if any, comes from
// the producer), ctx is cancelled (emitting abort, then returning ctx.Err()),
// or a write fails (the client went away).
//
// events carries already-shaped payloads (StartPayload, TextPayload, DataPayload,
// etc.) — Pump does not interpret them, it only frames and flushes.
func (f *Formatter) Pump(ctx context.Context, events <-chan any, pingInterval time.Duration) error {
	if pingInterval <= 0 {
		pingInterval = 12 * time.Second
	}
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.log.Debug("stream context cancelled, emitting abort")
			if err := f.Abort(ctx.Err().Error()); err != nil {
				return err
			}
			return ctx.Err()

		case payload, ok := <-events:
			if !ok {
				return f.Done()
			}
			if err := f.Emit(payload); err != nil {
				return err
			}
			ticker.Reset(pingInterval)

		case <-ticker.C:
			if err := f.Ping(); err != nil {
				return err
			}
		}
	}
}
