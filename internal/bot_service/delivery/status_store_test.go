package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/domain"
	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/provider"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestStatusStore_RecordAndCallbacks(t *testing.T) {
	store := NewStatusStore(nil, discardLogger())
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	store.now = fixedClock(base)
	ctx := context.Background()

	store.Record(ctx, domain.OutboundMessage{To: "+254700000001", Body: "hi"},
		&provider.SendResult{ProviderMessageID: "SM1", Status: "queued", Raw: json.RawMessage(`{"sid":"SM1"}`)})

	rec, ok := store.Get("SM1")
	require.True(t, ok)
	assert.Equal(t, domain.StatusSent, rec.Status)
	assert.Equal(t, "hi", rec.Body)
	assert.Equal(t, base, rec.Timestamps[domain.StatusSent])

	store.now = fixedClock(base.Add(time.Minute))
	assert.True(t, store.ApplyCallback(ctx, "SM1", domain.StatusDelivered))

	store.now = fixedClock(base.Add(2 * time.Minute))
	assert.True(t, store.ApplyCallback(ctx, "SM1", domain.StatusRead))

	rec, _ = store.Get("SM1")
	assert.Equal(t, domain.StatusRead, rec.Status)
	assert.Len(t, rec.Timestamps, 3)
	assert.Equal(t, base.Add(time.Minute), rec.Timestamps[domain.StatusDelivered])
}

func TestStatusStore_UnknownIDIsNoOp(t *testing.T) {
	store := NewStatusStore(nil, discardLogger())

	assert.False(t, store.ApplyCallback(context.Background(), "SM-missing", domain.StatusDelivered))
	_, ok := store.Get("SM-missing")
	assert.False(t, ok)
	assert.Zero(t, store.Len())
}

func TestStatusStore_OutOfOrderCallbackKeepsStatusButAddsTimestamp(t *testing.T) {
	store := NewStatusStore(nil, discardLogger())
	ctx := context.Background()
	store.Record(ctx, domain.OutboundMessage{To: "+1"}, &provider.SendResult{ProviderMessageID: "SM2"})

	store.ApplyCallback(ctx, "SM2", domain.StatusDelivered)
	store.ApplyCallback(ctx, "SM2", domain.StatusQueued)

	rec, _ := store.Get("SM2")
	assert.Equal(t, domain.StatusDelivered, rec.Status)
	assert.Contains(t, rec.Timestamps, domain.StatusQueued)
}

func TestStatusStore_UntrackedWithoutProviderID(t *testing.T) {
	store := NewStatusStore(nil, discardLogger())
	store.Record(context.Background(), domain.OutboundMessage{To: "+1"}, &provider.SendResult{Status: "accepted"})
	store.Record(context.Background(), domain.OutboundMessage{To: "+1"}, nil)
	assert.Zero(t, store.Len())
}

func TestStatusStore_GetReturnsCopy(t *testing.T) {
	store := NewStatusStore(nil, discardLogger())
	store.Record(context.Background(), domain.OutboundMessage{To: "+1"}, &provider.SendResult{ProviderMessageID: "SM3"})

	rec, _ := store.Get("SM3")
	rec.Timestamps["hacked"] = time.Now()
	rec.Status = "hacked"

	again, _ := store.Get("SM3")
	assert.Equal(t, domain.StatusSent, again.Status)
	assert.NotContains(t, again.Timestamps, "hacked")
}

func TestStatusStore_PublishesEvents(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, "message.status.sent", mock.AnythingOfType("[]uint8")).Return(nil).Once()
	pub.On("Publish", mock.Anything, "message.status.delivered", mock.MatchedBy(func(data []byte) bool {
		var ev domain.StatusEvent
		return json.Unmarshal(data, &ev) == nil && ev.ProviderID == "SM4" && ev.Status == domain.StatusDelivered
	})).Return(errors.New("nats down")).Once()

	store := NewStatusStore(pub, discardLogger())
	ctx := context.Background()
	store.Record(ctx, domain.OutboundMessage{To: "+1"}, &provider.SendResult{ProviderMessageID: "SM4"})
	assert.True(t, store.ApplyCallback(ctx, "SM4", domain.StatusDelivered))

	pub.AssertExpectations(t)
}
