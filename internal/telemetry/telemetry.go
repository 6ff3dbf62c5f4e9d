package telemetry

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Metrics holds the relay's diagnostic counters. The backend that would
// export them is out of scope; they are surfaced on the admin endpoint.
type Metrics struct {
	instanceCount atomic.Int64
	forwardCount  atomic.Int64
}

// NewMetrics creates an empty Metrics set.
func NewMetrics() *Metrics { return &Metrics{} }

// AddInstance records one router instantiation.
func (m *Metrics) AddInstance() { m.instanceCount.Add(1) }

// AddForward records one forwarded turn.
func (m *Metrics) AddForward() { m.forwardCount.Add(1) }

// Snapshot returns the current counter values by name.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"instance_count": m.instanceCount.Load(),
		"forward_count":  m.forwardCount.Load(),
	}
}

// Span brackets one bot-to-bot forward with start/end log events.
type Span struct {
	name   string
	start  time.Time
	logger *slog.Logger
}

// StartSpan emits the start marker for a named operation.
func StartSpan(ctx context.Context, logger *slog.Logger, name string) *Span {
	logger.LogAttrs(ctx, slog.LevelDebug, "span start", slog.String("span", name))
	return &Span{name: name, start: time.Now(), logger: logger}
}

// End emits the end marker with the elapsed duration.
func (s *Span) End(ctx context.Context) {
	s.logger.LogAttrs(ctx, slog.LevelDebug, "span end",
		slog.String("span", s.name),
		slog.Int64("duration_ms", time.Since(s.start).Milliseconds()),
	)
}
