package relay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"relay-api/internal/metrics"
	"relay-api/internal/shared"

	"go.uber.org/zap"
)

const readBufferSize = 4096

// Upstream is what the engine needs from the backend client.
type Upstream interface {
	Chat(ctx context.Context, body []byte) (*http.Response, error)
}

// EmitFunc delivers one complete record downstream. It must block until the
// record is accepted (that is the backpressure mechanism) and return an
// error once the downstream consumer is gone.
type EmitFunc func(raw []byte) error

type State string

const (
	StateDone      State = "done"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Result describes how a relay session ended. It is only produced once the
// upstream connection was opened successfully; earlier failures surface as a
// RequestError instead so the handler can still send a real status code.
type Result struct {
	State   State
	Chunks  int
	Skipped int
}

type Engine struct {
	upstream Upstream
	log      *zap.SugaredLogger
}

func NewEngine(up Upstream, log *zap.SugaredLogger) *Engine {
	return &Engine{upstream: up, log: log}
}

// Relay drives one session: open the upstream chat request, split the byte
// stream into records, and emit each record downstream in arrival order.
// The upstream body is closed on every exit path. ctx should be the
// downstream request context so a client disconnect tears the upstream
// connection down promptly.
func (e *Engine) Relay(ctx context.Context, req *shared.ChatRequest, emit EmitFunc) (*Result, *shared.RequestError) {
	if req.Model == "" {
		return nil, shared.ErrMissingModel
	}
	if len(req.Messages) == 0 {
		return nil, shared.ErrEmptyMessages
	}

	// The relay always streams from the backend regardless of what the
	// downstream asked for; a non-streaming downstream still gets NDJSON.
	upstreamReq := *req
	upstreamReq.Stream = true
	body, err := json.Marshal(&upstreamReq)
	if err != nil {
		e.log.Errorw("Failed marshaling upstream request", "error", err)
		return nil, shared.ErrInternalServerError
	}

	start := time.Now()
	res, err := e.upstream.Chat(ctx, body)
	if err != nil {
		if rerr := ClassifyConnectError(ctx, err); rerr != nil {
			e.log.Errorw("Upstream connection failed", "error", err, "model", req.Model)
			metrics.ErrorCount.WithLabelValues(req.Model, "connect").Inc()
			return nil, rerr
		}
		e.log.Warnw("Client disconnected before upstream connection opened", "model", req.Model)
		return &Result{State: StateCancelled}, nil
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			e.log.Warnw("Failed to close upstream body", "error", closeErr)
		}
	}()

	if res.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 1<<10))
		e.log.Warnw("Upstream rejected chat request",
			"status_code", res.StatusCode,
			"model", req.Model,
			"body", string(snippet))
		metrics.ErrorCount.WithLabelValues(req.Model, "status").Inc()
		return nil, ClassifyStatus(res.StatusCode)
	}

	metrics.InflightStreams.Inc()
	defer metrics.InflightStreams.Dec()

	splitter := NewSplitter(e.log, req.Model)
	result := &Result{}
	terminal := false
	ttftRecorded := false
	buf := make([]byte, readBufferSize)

	for {
		n, readErr := res.Body.Read(buf)
		if n > 0 {
			for _, frame := range splitter.Feed(buf[:n]) {
				if terminal {
					// Anything after the terminal chunk is a protocol
					// violation; drop it and stop reading.
					e.log.Errorw("Record received after terminal chunk, dropping",
						"model", req.Model, "chunks", result.Chunks)
					metrics.ErrorCount.WithLabelValues(req.Model, "post_terminal").Inc()
					break
				}
				if !ttftRecorded {
					ttftRecorded = true
					metrics.TimeToFirstChunk.WithLabelValues(req.Model).Observe(time.Since(start).Seconds())
				}
				if emitErr := emit(frame.Raw); emitErr != nil {
					e.log.Warnw("Downstream write failed, ending session",
						"error", emitErr, "chunks", result.Chunks)
					result.State = StateCancelled
					result.Skipped = splitter.Skipped()
					return result, nil
				}
				result.Chunks++
				metrics.StreamChunks.WithLabelValues(req.Model).Inc()
				if frame.Chunk.Done {
					terminal = true
				}
			}
			if terminal {
				result.State = StateDone
				result.Skipped = splitter.Skipped()
				return result, nil
			}
		}

		if readErr == nil {
			continue
		}
		result.Skipped = splitter.Skipped()

		if ctx.Err() != nil || errors.Is(readErr, context.Canceled) {
			e.log.Warnw("Client disconnected during streaming",
				"chunks", result.Chunks, "elapsed_ms", time.Since(start).Milliseconds())
			result.State = StateCancelled
			return result, nil
		}

		if errors.Is(readErr, io.EOF) {
			e.log.Errorw("Upstream closed before terminal chunk",
				"chunks", result.Chunks,
				"buffered_bytes", len(splitter.Rest()))
			metrics.ErrorCount.WithLabelValues(req.Model, "upstream_dropped").Inc()
		} else {
			e.log.Errorw("Upstream read failed mid-stream",
				"error", readErr, "chunks", result.Chunks)
			metrics.ErrorCount.WithLabelValues(req.Model, "upstream_read").Inc()
		}

		// A 200 is already on the wire, so the failure has to travel in-band:
		// one synthetic terminal frame with an error field.
		e.writeErrorFrame(emit, req.Model, "inference backend dropped the stream")
		result.State = StateFailed
		return result, nil
	}
}

func (e *Engine) writeErrorFrame(emit EmitFunc, model, message string) {
	frame := shared.StreamChunk{
		Model:     model,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Done:      true,
		Error:     message,
	}
	raw, err := json.Marshal(frame)
	if err != nil {
		return
	}
	if emitErr := emit(raw); emitErr != nil {
		e.log.Warnw("Failed writing error frame downstream", "error", emitErr)
	}
}
