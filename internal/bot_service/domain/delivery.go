package domain

import (
	"encoding/json"
	"time"
)

// Provider status values seen on send responses and status callbacks.
const (
	StatusQueued      = "queued"
	StatusSending     = "sending"
	StatusSent        = "sent"
	StatusDelivered   = "delivered"
	StatusRead        = "read"
	StatusFailed      = "failed"
	StatusUndelivered = "undelivered"
	StatusMock        = "mock"
)

var statusRank = map[string]int{
	StatusMock:        0,
	StatusQueued:      1,
	StatusSending:     2,
	StatusSent:        3,
	StatusDelivered:   4,
	StatusUndelivered: 4,
	StatusFailed:      4,
	StatusRead:        5,
}

// StatusRank orders delivery statuses. Unknown statuses report ok=false.
func StatusRank(status string) (rank int, ok bool) {
	rank, ok = statusRank[status]
	return rank, ok
}

// MessageStatusRecord tracks one sent message by provider id.
// Timestamps only ever gain entries.
type MessageStatusRecord struct {
	ProviderID          string               `json:"providerId"`
	To                  string               `json:"to"`
	Body                string               `json:"body"`
	MediaURL            string               `json:"mediaUrl,omitempty"`
	Status              string               `json:"status"`
	Timestamps          map[string]time.Time `json:"timestamps"`
	RawProviderResponse json.RawMessage      `json:"rawProviderResponse,omitempty"`
}

// Clone returns a deep copy safe to hand out of a lock.
func (r MessageStatusRecord) Clone() MessageStatusRecord {
	out := r
	out.Timestamps = make(map[string]time.Time, len(r.Timestamps))
	for k, v := range r.Timestamps {
		out.Timestamps[k] = v
	}
	if r.RawProviderResponse != nil {
		out.RawProviderResponse = append(json.RawMessage(nil), r.RawProviderResponse...)
	}
	return out
}

// StatusEvent is published whenever a record changes status.
type StatusEvent struct {
	ProviderID string    `json:"providerId"`
	To         string    `json:"to"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurredAt"`
}
