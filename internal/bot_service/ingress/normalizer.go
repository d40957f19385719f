package ingress

import (
	"strconv"
	"strings"
	"time"

	"github.com/ChirchirMeshack/SomaBot/internal/bot_service/domain"
)

const channelPrefix = "whatsapp:"

// Webhook form fields.
const (
	FieldMessageSID   = "MessageSid"
	FieldFrom         = "From"
	FieldTo           = "To"
	FieldBody         = "Body"
	FieldMediaURL     = "MediaUrl0"
	FieldMediaType    = "MediaContentType0"
	FieldLatitude     = "Latitude"
	FieldLongitude    = "Longitude"
	FieldAddress      = "Address"
	FieldContactName  = "ContactName"
	FieldContactPhone = "ContactPhone"
)

// Normalize converts a raw webhook payload into a NormalizedMessage.
// Kind precedence is media, location, contact, text, unknown. It never fails.
func Normalize(payload map[string]string, now time.Time) domain.NormalizedMessage {
	raw := make(map[string]string, len(payload))
	for k, v := range payload {
		raw[k] = v
	}

	msg := domain.NormalizedMessage{
		ID:         raw[FieldMessageSID],
		From:       StripChannelPrefix(raw[FieldFrom]),
		To:         StripChannelPrefix(raw[FieldTo]),
		Body:       raw[FieldBody],
		Timestamp:  now,
		RawPayload: raw,
	}

	switch {
	case raw[FieldMediaURL] != "":
		msg.Kind = domain.KindMedia
		msg.MediaURL = raw[FieldMediaURL]
		msg.MediaType = raw[FieldMediaType]
	case raw[FieldLatitude] != "" && raw[FieldLongitude] != "":
		msg.Kind = domain.KindLocation
	case raw[FieldContactName] != "" || raw[FieldContactPhone] != "":
		msg.Kind = domain.KindContact
	case raw[FieldBody] != "":
		msg.Kind = domain.KindText
	default:
		msg.Kind = domain.KindUnknown
	}
	return msg
}

// StripChannelPrefix removes the "whatsapp:" address prefix.
func StripChannelPrefix(addr string) string {
	return strings.TrimPrefix(addr, channelPrefix)
}

// ExtractMetadata returns kind-specific details from the raw payload.
func ExtractMetadata(msg domain.NormalizedMessage) domain.MessageMetadata {
	var md domain.MessageMetadata
	switch msg.Kind {
	case domain.KindLocation:
		md.Location = &domain.LocationMetadata{
			Latitude:  parseCoordinate(msg.RawPayload[FieldLatitude]),
			Longitude: parseCoordinate(msg.RawPayload[FieldLongitude]),
			Address:   msg.RawPayload[FieldAddress],
		}
	case domain.KindContact:
		md.Contact = &domain.ContactMetadata{
			Name:  msg.RawPayload[FieldContactName],
			Phone: msg.RawPayload[FieldContactPhone],
		}
	case domain.KindMedia:
		md.Media = &domain.MediaMetadata{URL: msg.MediaURL, Type: msg.MediaType}
	}
	return md
}

func parseCoordinate(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
