package sink

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/mizulab/sensorhub/internal/telemetry"
)

// WriterSink writes each reading as one JSON line. Useful for piping to a
// file or stdout.
type WriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{enc: json.NewEncoder(w)}
}

func (s *WriterSink) Store(_ context.Context, r telemetry.Reading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(r)
}

func (s *WriterSink) Close() error { return nil }
