package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/domain"
	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/provider"
)

const (
	DefaultInterval      = time.Second
	DefaultQueueCapacity = 1000
	maxRetryBackoff      = 5 * time.Minute
)

// DispatcherConfig controls pacing and retry. MaxAttempts of 1 drops a
// message after its first failure.
type DispatcherConfig struct {
	Interval      time.Duration
	QueueCapacity int
	MaxAttempts   int
	RetryBackoff  time.Duration
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = DefaultQueueCapacity
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = c.Interval
	}
	return c
}

// DeadLetter is a message that exhausted its attempts.
type DeadLetter struct {
	Message   domain.OutboundMessage `json:"message"`
	Attempts  int                    `json:"attempts"`
	LastError string                 `json:"lastError"`
	FailedAt  time.Time              `json:"failedAt"`
}

type queuedMessage struct {
	msg       domain.OutboundMessage
	attempts  int
	notBefore time.Time
}

// Dispatcher drains a bounded FIFO of outbound messages at one send per tick.
type Dispatcher struct {
	cfg      DispatcherConfig
	provider provider.MessageProvider
	statuses *StatusStore
	logger   *slog.Logger
	now      func() time.Time

	queue   chan queuedMessage
	stopped chan struct{}

	// retries is only touched by the goroutine running Run.
	retries []queuedMessage

	mu          sync.Mutex
	deadLetters []DeadLetter
}

func NewDispatcher(cfg DispatcherConfig, p provider.MessageProvider, statuses *StatusStore, logger *slog.Logger) *Dispatcher {
	cfg = cfg.withDefaults()
	return &Dispatcher{
		cfg:      cfg,
		provider: p,
		statuses: statuses,
		logger:   logger.With("component", "dispatcher", "provider", p.GetName()),
		now:      time.Now,
		queue:    make(chan queuedMessage, cfg.QueueCapacity),
		stopped:  make(chan struct{}),
	}
}

// Enqueue adds msg to the queue, waiting while the queue is full until space
// frees up or ctx ends.
func (d *Dispatcher) Enqueue(ctx context.Context, msg domain.OutboundMessage) error {
	select {
	case <-d.stopped:
		return domain.ErrDispatcherStopped
	default:
	}

	select {
	case d.queue <- queuedMessage{msg: msg}:
		queueDepthGauge.Set(float64(len(d.queue)))
		return nil
	case <-d.stopped:
		return domain.ErrDispatcherStopped
	case <-ctx.Done():
		return fmt.Errorf("enqueue to %s: %w", msg.To, ctx.Err())
	}
}

// TryEnqueue adds msg without waiting and returns domain.ErrQueueFull when
// there is no room.
func (d *Dispatcher) TryEnqueue(msg domain.OutboundMessage) error {
	select {
	case <-d.stopped:
		return domain.ErrDispatcherStopped
	default:
	}

	select {
	case d.queue <- queuedMessage{msg: msg}:
		queueDepthGauge.Set(float64(len(d.queue)))
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// EnqueueAll enqueues msgs in order, stopping at the first error.
func (d *Dispatcher) EnqueueAll(ctx context.Context, msgs []domain.OutboundMessage) error {
	for i, m := range msgs {
		if err := d.Enqueue(ctx, m); err != nil {
			return fmt.Errorf("message %d of %d: %w", i+1, len(msgs), err)
		}
	}
	return nil
}

// Reply hands a single chat reply to the pipeline. A full queue is logged
// and the call then waits for space like Enqueue.
func (d *Dispatcher) Reply(ctx context.Context, msg domain.OutboundMessage) error {
	err := d.TryEnqueue(msg)
	if !errors.Is(err, domain.ErrQueueFull) {
		return err
	}
	queueFullTotal.Inc()
	d.logger.WarnContext(ctx, "Outbound queue full; waiting for space", "to", msg.To, "capacity", d.cfg.QueueCapacity)
	return d.Enqueue(ctx, msg)
}

// ReplyAll hands an ordered group of replies, such as lesson chunks, to the
// pipeline.
func (d *Dispatcher) ReplyAll(ctx context.Context, msgs []domain.OutboundMessage) error {
	return d.EnqueueAll(ctx, msgs)
}

// Pending is the number of queued messages, not counting scheduled retries.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

func (d *Dispatcher) DeadLetters() []DeadLetter {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DeadLetter, len(d.deadLetters))
	copy(out, d.deadLetters)
	return out
}

// Run dispatches at most one message per interval until ctx is cancelled.
// Messages still queued at shutdown are logged and abandoned.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()
	return d.run(ctx, ticker.C)
}

func (d *Dispatcher) run(ctx context.Context, ticks <-chan time.Time) error {
	defer close(d.stopped)
	d.logger.InfoContext(ctx, "dispatcher started",
		"interval", d.cfg.Interval, "capacity", d.cfg.QueueCapacity, "max_attempts", d.cfg.MaxAttempts)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping", "queued", len(d.queue), "awaiting_retry", len(d.retries))
			return nil
		case <-ticks:
			d.dispatchNext(ctx)
		}
	}
}

// dispatchNext sends one message, preferring a due retry over new work.
func (d *Dispatcher) dispatchNext(ctx context.Context) bool {
	item, ok := d.next()
	if !ok {
		return false
	}
	queueDepthGauge.Set(float64(len(d.queue)))
	d.dispatch(ctx, item)
	return true
}

func (d *Dispatcher) next() (queuedMessage, bool) {
	now := d.now()
	due := -1
	for i, r := range d.retries {
		if r.notBefore.After(now) {
			continue
		}
		if due < 0 || r.notBefore.Before(d.retries[due].notBefore) {
			due = i
		}
	}
	if due >= 0 {
		item := d.retries[due]
		d.retries = append(d.retries[:due], d.retries[due+1:]...)
		return item, true
	}

	select {
	case item := <-d.queue:
		return item, true
	default:
		return queuedMessage{}, false
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, item queuedMessage) {
	item.attempts++
	res, err := d.provider.Send(ctx, provider.SendRequest{
		To:       item.msg.To,
		Body:     item.msg.Body,
		MediaURL: item.msg.MediaURL,
	})
	if err != nil {
		d.handleFailure(ctx, item, err)
		return
	}

	dispatchTotal.WithLabelValues("sent").Inc()
	if res == nil || res.ProviderMessageID == "" {
		d.logger.WarnContext(ctx, "provider accepted message without an id; status will not be tracked", "to", item.msg.To)
		return
	}
	d.statuses.Record(ctx, item.msg, res)
	d.logger.DebugContext(ctx, "message dispatched", "to", item.msg.To, "provider_id", res.ProviderMessageID, "attempt", item.attempts)
}

func (d *Dispatcher) handleFailure(ctx context.Context, item queuedMessage, sendErr error) {
	if item.attempts < d.cfg.MaxAttempts {
		wait := d.backoff(item.attempts)
		item.notBefore = d.now().Add(wait)
		d.retries = append(d.retries, item)
		dispatchTotal.WithLabelValues("retry").Inc()
		d.logger.WarnContext(ctx, "send failed; scheduling retry",
			"to", item.msg.To, "attempt", item.attempts, "retry_in", wait, "error", sendErr)
		return
	}

	dl := DeadLetter{Message: item.msg, Attempts: item.attempts, LastError: sendErr.Error(), FailedAt: d.now()}
	d.mu.Lock()
	d.deadLetters = append(d.deadLetters, dl)
	d.mu.Unlock()
	dispatchTotal.WithLabelValues("dead_letter").Inc()
	d.logger.ErrorContext(ctx, "send failed; message dead-lettered",
		"to", item.msg.To, "attempts", item.attempts, "error", sendErr)
}

// backoff doubles RetryBackoff per attempt, capped at five minutes.
func (d *Dispatcher) backoff(attempt int) time.Duration {
	wait := d.cfg.RetryBackoff
	for i := 1; i < attempt; i++ {
		wait *= 2
		if wait >= maxRetryBackoff {
			return maxRetryBackoff
		}
	}
	return wait
}
