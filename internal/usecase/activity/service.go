package activity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	domact "github.com/kailas-cloud/spendguard/internal/domain/activity"
	"github.com/kailas-cloud/spendguard/internal/metrics"
	"github.com/kailas-cloud/spendguard/internal/usecase/ledger"
)

// DefaultBuffer is the number of pending counter writes kept before new ones are dropped.
const DefaultBuffer = 1024

const writeTimeout = 2 * time.Second

type pending struct {
	account common.Address
	day     string
	outcome domact.Outcome
}

// Service counts spend decisions per account and day. It is a ledger.EventSink: counters are
// written behind the ledger by one worker, so a slow or failing store never delays a spend.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time

	// mu guards closed; senders hold it shared so Close never races a send.
	mu        sync.RWMutex
	closed    bool
	queue     chan pending
	wg        sync.WaitGroup
	startOnce sync.Once
}

// New creates an activity service. buffer <= 0 uses DefaultBuffer.
func New(store Store, logger *zap.Logger, buffer int) *Service {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
		queue:  make(chan pending, buffer),
	}
}

// Start launches the writer. Calling it again is a no-op.
func (s *Service) Start() {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.run()
	})
}

// Close stops accepting events and waits for queued writes to finish.
// Events emitted afterwards are dropped and counted as write errors.
func (s *Service) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Emit queues a counter write for spend decisions; other events are ignored.
// It never blocks and is safe to call after Close.
func (s *Service) Emit(_ context.Context, e ledger.Event) {
	var o domact.Outcome
	switch e.Type {
	case ledger.EventSpendAuthorized:
		o = domact.Authorized
	case ledger.EventSpendDenied:
		o = domact.Denied
	default:
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		metrics.ActivityWriteErrorsTotal.Inc()
		s.logger.Warn("Activity service closed, dropping counter", zap.String("account", e.Account.Hex()))
		return
	}

	select {
	case s.queue <- pending{account: e.Account, day: domact.Day(e.At), outcome: o}:
	default:
		metrics.ActivityWriteErrorsTotal.Inc()
		s.logger.Warn("Activity queue full, dropping counter", zap.String("account", e.Account.Hex()))
	}
}

// Today returns the counters of acc for the current UTC day.
func (s *Service) Today(ctx context.Context, acc common.Address) (domact.Activity, error) {
	now := s.now()
	day := domact.Day(now)

	authorized, err := s.store.Get(ctx, acc, day, domact.Authorized)
	if err != nil {
		return domact.Activity{}, fmt.Errorf("get authorized count: %w", err)
	}
	denied, err := s.store.Get(ctx, acc, day, domact.Denied)
	if err != nil {
		return domact.Activity{}, fmt.Errorf("get denied count: %w", err)
	}
	return domact.New(acc, day, authorized, denied, domact.NextMidnight(now).UnixMilli()), nil
}

func (s *Service) run() {
	defer s.wg.Done()
	for p := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := s.store.Incr(ctx, p.account, p.day, p.outcome); err != nil {
			metrics.ActivityWriteErrorsTotal.Inc()
			s.logger.Warn("Activity counter write failed",
				zap.String("account", p.account.Hex()),
				zap.String("outcome", string(p.outcome)),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// HealthCheck fails while the write-behind queue is full.
func (s *Service) HealthCheck(context.Context) error {
	if len(s.queue) == cap(s.queue) {
		return fmt.Errorf("activity queue full (%d pending)", len(s.queue))
	}
	return nil
}
