package domain

import "time"

// MessageKind classifies an inbound chat message.
type MessageKind string

const (
	KindText     MessageKind = "text"
	KindMedia    MessageKind = "media"
	KindLocation MessageKind = "location"
	KindContact  MessageKind = "contact"
	KindUnknown  MessageKind = "unknown"
)

// NormalizedMessage is the provider-neutral form of an inbound webhook payload.
// MediaURL and MediaType are only populated for KindMedia.
type NormalizedMessage struct {
	ID         string
	From       string
	To         string
	Body       string
	Kind       MessageKind
	MediaURL   string
	MediaType  string
	Timestamp  time.Time
	RawPayload map[string]string
}

type LocationMetadata struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

type ContactMetadata struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type MediaMetadata struct {
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
}

// MessageMetadata holds at most one populated section, chosen by the message kind.
type MessageMetadata struct {
	Location *LocationMetadata `json:"location,omitempty"`
	Contact  *ContactMetadata  `json:"contact,omitempty"`
	Media    *MediaMetadata    `json:"media,omitempty"`
}

// OutboundMessage is a single reply handed to the delivery pipeline.
type OutboundMessage struct {
	To       string `json:"to"`
	Body     string `json:"body"`
	MediaURL string `json:"mediaUrl,omitempty"`
}
