// Package queue carries request lifecycle events over RabbitMQ and
// holds the background consumer that appends them to an event log.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iliyamo/civic-service-portal/internal/lifecycle"
)

// RequestEvent is published after a request transition commits.  It
// carries enough for downstream consumers to log, notify, or trigger
// analytics without querying the primary database.
type RequestEvent = lifecycle.Event

// ErrMalformedEvent is returned by Decode for payloads missing the
// event type or request id.
var ErrMalformedEvent = errors.New("malformed request event")

// Encode serializes ev for publication.
func Encode(ev RequestEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// Decode parses a delivery body.
func Decode(body []byte) (RequestEvent, error) {
	var ev RequestEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return RequestEvent{}, fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.RequestID == "" {
		return RequestEvent{}, ErrMalformedEvent
	}
	return ev, nil
}

// FormatLine renders ev as one human-friendly log line.
func FormatLine(ev RequestEvent) string {
	return fmt.Sprintf("[%s] %s | request_id=%s | reference=%s | status=%s | owner_id=%s | actor_id=%s\n",
		ev.OccurredAt, ev.Type, ev.RequestID, ev.ReferenceNumber, ev.Status, ev.OwnerID, ev.ActorID)
}
