package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/domain"
	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/provider"
)

type sendCall struct {
	req provider.SendRequest
	at  time.Time
}

// scriptedProvider fails the sends whose body is listed in failures, once per listing.
type scriptedProvider struct {
	mu       sync.Mutex
	calls    []sendCall
	failures map[string]int
	seq      int
}

func newScriptedProvider() *scriptedProvider {
	return &scriptedProvider{failures: map[string]int{}}
}

func (p *scriptedProvider) Send(_ context.Context, req provider.SendRequest) (*provider.SendResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, sendCall{req: req, at: time.Now()})
	if p.failures[req.Body] > 0 {
		p.failures[req.Body]--
		return nil, errors.New("provider unavailable")
	}
	p.seq++
	return &provider.SendResult{ProviderMessageID: fmt.Sprintf("SM%d", p.seq), Status: "queued"}, nil
}

func (p *scriptedProvider) GetName() string { return "scripted" }

func (p *scriptedProvider) bodies() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.calls))
	for _, c := range p.calls {
		out = append(out, c.req.Body)
	}
	return out
}

func (p *scriptedProvider) snapshot() []sendCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sendCall(nil), p.calls...)
}

func newTestDispatcher(cfg DispatcherConfig, p provider.MessageProvider) (*Dispatcher, *StatusStore) {
	store := NewStatusStore(nil, discardLogger())
	return NewDispatcher(cfg, p, store, discardLogger()), store
}

func out(body string) domain.OutboundMessage {
	return domain.OutboundMessage{To: "+254700000001", Body: body}
}

func TestDispatcher_OneMessagePerTickInFIFOOrder(t *testing.T) {
	p := newScriptedProvider()
	d, store := newTestDispatcher(DispatcherConfig{QueueCapacity: 10}, p)
	ctx := context.Background()

	require.NoError(t, d.EnqueueAll(ctx, []domain.OutboundMessage{out("one"), out("two"), out("three")}))

	assert.True(t, d.dispatchNext(ctx))
	assert.Equal(t, []string{"one"}, p.bodies())
	assert.True(t, d.dispatchNext(ctx))
	assert.True(t, d.dispatchNext(ctx))
	assert.False(t, d.dispatchNext(ctx))

	assert.Equal(t, []string{"one", "two", "three"}, p.bodies())
	assert.Equal(t, 3, store.Len())
	rec, ok := store.Get("SM1")
	require.True(t, ok)
	assert.Equal(t, "one", rec.Body)
}

func TestDispatcher_RunSpacesSendsByInterval(t *testing.T) {
	p := newScriptedProvider()
	interval := 40 * time.Millisecond
	d, _ := newTestDispatcher(DispatcherConfig{Interval: interval, QueueCapacity: 10}, p)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for _, b := range []string{"a", "b", "c", "d"} {
		require.NoError(t, d.Enqueue(ctx, out(b)))
	}

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool { return len(p.snapshot()) == 4 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	calls := p.snapshot()
	assert.Equal(t, []string{"a", "b", "c", "d"}, p.bodies())
	for i := 1; i < len(calls); i++ {
		gap := calls[i].at.Sub(calls[i-1].at)
		assert.GreaterOrEqual(t, gap, interval/2, "sends %d and %d too close", i-1, i)
	}
}

func TestDispatcher_RunWithManualTicks(t *testing.T) {
	p := newScriptedProvider()
	d, _ := newTestDispatcher(DispatcherConfig{QueueCapacity: 10}, p)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, d.Enqueue(ctx, out("x")))
	require.NoError(t, d.Enqueue(ctx, out("y")))

	ticks := make(chan time.Time)
	done := make(chan error, 1)
	go func() { done <- d.run(ctx, ticks) }()

	ticks <- time.Now()
	require.Eventually(t, func() bool { return len(p.snapshot()) == 1 }, time.Second, time.Millisecond)
	ticks <- time.Now()
	require.Eventually(t, func() bool { return len(p.snapshot()) == 2 }, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.ErrorIs(t, d.Enqueue(context.Background(), out("late")), domain.ErrDispatcherStopped)
	assert.ErrorIs(t, d.TryEnqueue(out("late")), domain.ErrDispatcherStopped)
}

func TestDispatcher_RetriesWithBackoffBeforeNewWork(t *testing.T) {
	p := newScriptedProvider()
	p.failures["flaky"] = 1
	d, store := newTestDispatcher(DispatcherConfig{QueueCapacity: 10, MaxAttempts: 3, RetryBackoff: time.Minute}, p)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, d.EnqueueAll(ctx, []domain.OutboundMessage{out("flaky"), out("next"), out("last")}))

	d.dispatchNext(ctx) // flaky fails, retry due in 1m
	d.dispatchNext(ctx) // retry not yet due, so "next" goes
	now = now.Add(time.Minute)
	d.dispatchNext(ctx) // due retry wins over "last"
	d.dispatchNext(ctx)

	assert.Equal(t, []string{"flaky", "next", "flaky", "last"}, p.bodies())
	assert.Empty(t, d.DeadLetters())
	assert.Equal(t, 3, store.Len())
}

func TestDispatcher_DeadLettersAfterMaxAttempts(t *testing.T) {
	p := newScriptedProvider()
	p.failures["doomed"] = 5
	d, store := newTestDispatcher(DispatcherConfig{QueueCapacity: 10, MaxAttempts: 2, RetryBackoff: time.Second}, p)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, d.Enqueue(ctx, out("doomed")))
	d.dispatchNext(ctx)
	now = now.Add(time.Second)
	d.dispatchNext(ctx)
	assert.False(t, d.dispatchNext(ctx))

	dead := d.DeadLetters()
	require.Len(t, dead, 1)
	assert.Equal(t, "doomed", dead[0].Message.Body)
	assert.Equal(t, 2, dead[0].Attempts)
	assert.Equal(t, "provider unavailable", dead[0].LastError)
	assert.Zero(t, store.Len())
}

func TestDispatcher_SingleAttemptDropsOnFailure(t *testing.T) {
	p := newScriptedProvider()
	p.failures["once"] = 1
	d, _ := newTestDispatcher(DispatcherConfig{QueueCapacity: 10, MaxAttempts: 1}, p)
	ctx := context.Background()

	require.NoError(t, d.Enqueue(ctx, out("once")))
	d.dispatchNext(ctx)

	assert.False(t, d.dispatchNext(ctx))
	assert.Len(t, p.bodies(), 1)
	assert.Len(t, d.DeadLetters(), 1)
}

func TestDispatcher_Backpressure(t *testing.T) {
	p := newScriptedProvider()
	d, _ := newTestDispatcher(DispatcherConfig{QueueCapacity: 1}, p)

	require.NoError(t, d.TryEnqueue(out("first")))
	assert.ErrorIs(t, d.TryEnqueue(out("second")), domain.ErrQueueFull)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Enqueue(ctx, out("second")), context.DeadlineExceeded)
	assert.Equal(t, 1, d.Pending())

	d.dispatchNext(context.Background())
	assert.NoError(t, d.TryEnqueue(out("second")))
}

func TestDispatcher_ReplyWaitsWhenQueueFull(t *testing.T) {
	p := newScriptedProvider()
	d, _ := newTestDispatcher(DispatcherConfig{QueueCapacity: 1}, p)
	ctx := context.Background()

	require.NoError(t, d.Reply(ctx, out("first")))

	timeoutCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Reply(timeoutCtx, out("second")), context.DeadlineExceeded)

	done := make(chan error, 1)
	go func() { done <- d.Reply(ctx, out("second")) }()
	d.dispatchNext(ctx)
	require.NoError(t, <-done)
	assert.Equal(t, 1, d.Pending())
	assert.Equal(t, []string{"first"}, p.bodies())
}

func TestDispatcher_ReplyAllKeepsOrder(t *testing.T) {
	p := newScriptedProvider()
	d, _ := newTestDispatcher(DispatcherConfig{QueueCapacity: 10}, p)
	ctx := context.Background()

	require.NoError(t, d.ReplyAll(ctx, []domain.OutboundMessage{out("*Title*"), out("chunk 1"), out("chunk 2")}))
	for d.dispatchNext(ctx) {
	}
	assert.Equal(t, []string{"*Title*", "chunk 1", "chunk 2"}, p.bodies())
}

func TestDispatcher_Backoff(t *testing.T) {
	d, _ := newTestDispatcher(DispatcherConfig{RetryBackoff: 2 * time.Second}, newScriptedProvider())
	assert.Equal(t, 2*time.Second, d.backoff(1))
	assert.Equal(t, 4*time.Second, d.backoff(2))
	assert.Equal(t, 8*time.Second, d.backoff(3))
	assert.Equal(t, maxRetryBackoff, d.backoff(20))
}
