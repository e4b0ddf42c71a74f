// Package sink delivers decoded readings to persistence and forwarding
// backends: a redis queue, an MQTT topic, or plain JSON lines on a writer.
package sink

import (
	"context"

	"github.com/mizulab/sensorhub/internal/telemetry"
)

// Sink consumes one reading at a time. Implementations are invoked from the
// session's receive goroutine and must be safe to call from it.
type Sink interface {
	Store(ctx context.Context, r telemetry.Reading) error
	Close() error
}
