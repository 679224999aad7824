package ledger

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/kailas-cloud/spendguard/internal/domain/allowance"
	"github.com/kailas-cloud/spendguard/internal/logger"
	"github.com/kailas-cloud/spendguard/internal/metrics"
)

// EventType names a ledger state transition.
type EventType string

// Ledger event types.
const (
	EventLimitSet        EventType = "limit_set"
	EventLimitRemoved    EventType = "limit_removed"
	EventSpendAuthorized EventType = "spend_authorized"
	EventSpendDenied     EventType = "spend_denied"
)

// Event describes one committed (or, for denials, rolled back) ledger transition.
type Event struct {
	ID        string
	Type      EventType
	Account   common.Address
	Asset     common.Address
	Amount    uint256.Int // spend amount or new limit
	Limit     uint256.Int
	Available uint256.Int
	ResetTime int64
	At        time.Time
}

func newEvent(t EventType, acc common.Address, rec allowance.Record, amount uint256.Int, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Account:   acc,
		Asset:     rec.Asset(),
		Amount:    amount,
		Limit:     rec.Limit(),
		Available: rec.Available(),
		ResetTime: rec.ResetTime(),
		At:        at,
	}
}

// LogSink writes events to the request logger, falling back to its own.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a LogSink. l may be nil.
func NewLogSink(l *zap.Logger) *LogSink {
	if l == nil {
		l = zap.NewNop()
	}
	return &LogSink{logger: l}
}

// Emit logs e at info level, denials at warn.
func (s *LogSink) Emit(ctx context.Context, e Event) {
	l := logger.FromContextOr(ctx, s.logger)
	fields := []zap.Field{
		zap.String("event_id", e.ID),
		zap.String("event", string(e.Type)),
		zap.String("account", e.Account.Hex()),
		zap.String("asset", e.Asset.Hex()),
		zap.String("amount", e.Amount.Dec()),
		zap.String("limit", e.Limit.Dec()),
		zap.String("available", e.Available.Dec()),
		zap.Int64("reset_time", e.ResetTime),
	}
	if e.Type == EventSpendDenied {
		l.Warn("Ledger event", fields...)
		return
	}
	l.Info("Ledger event", fields...)
}

// MetricsSink counts events by type.
type MetricsSink struct{}

// Emit increments spendguard_ledger_events_total{type}.
func (MetricsSink) Emit(_ context.Context, e Event) {
	metrics.LedgerEventsTotal.WithLabelValues(string(e.Type)).Inc()
}

// MultiSink fans an event out to every sink in order.
type MultiSink []EventSink

// Emit forwards e to every sink.
func (m MultiSink) Emit(ctx context.Context, e Event) {
	for _, s := range m {
		s.Emit(ctx, e)
	}
}

type nopSink struct{}

func (nopSink) Emit(context.Context, Event) {}
