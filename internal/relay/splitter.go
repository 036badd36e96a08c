// Package relay implements the streaming chat relay: the frame splitter
// that reassembles newline-delimited JSON records from raw upstream reads,
// and the engine that drives one relay session end to end.
package relay

import (
	"bytes"
	"encoding/json"

	"relay-api/internal/metrics"
	"relay-api/internal/shared"

	"go.uber.org/zap"
)

// Frame is one complete upstream record: the raw line as received plus its
// parsed form. Raw is forwarded downstream verbatim so the relay never
// re-encodes what the backend produced.
type Frame struct {
	Raw   []byte
	Chunk shared.StreamChunk
}

// Splitter buffers raw byte chunks and yields complete newline-delimited
// JSON records. A record split across reads, including mid-delimiter or
// mid-rune, is held until its terminating newline arrives. One instance
// serves exactly one relay session.
type Splitter struct {
	buf     []byte
	model   string
	log     *zap.SugaredLogger
	skipped int
}

func NewSplitter(log *zap.SugaredLogger, model string) *Splitter {
	return &Splitter{log: log, model: model}
}

// Feed appends p to the buffer and returns every record completed by it, in
// order. Lines that fail to parse are skipped with a warning; a single bad
// line must not kill an otherwise healthy stream.
func (s *Splitter) Feed(p []byte) []Frame {
	if len(p) > 0 {
		s.buf = append(s.buf, p...)
	}

	var frames []Frame
	for {
		i := bytes.IndexByte(s.buf, '\n')
		if i < 0 {
			return frames
		}
		line := bytes.TrimSuffix(s.buf[:i], []byte("\r"))
		s.buf = s.buf[i+1:]

		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var chunk shared.StreamChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			s.skipped++
			s.log.Warnw("failed unmarshaling streamed data", "error", err, "line_bytes", len(line))
			metrics.SkippedFrames.WithLabelValues(s.model).Inc()
			continue
		}

		raw := make([]byte, len(line))
		copy(raw, line)
		frames = append(frames, Frame{Raw: raw, Chunk: chunk})
	}
}

// Rest returns the buffered partial record, if any. Only useful for
// diagnostics once the upstream has closed.
func (s *Splitter) Rest() []byte {
	return s.buf
}

// Skipped reports how many lines were discarded as unparseable.
func (s *Splitter) Skipped() int {
	return s.skipped
}
