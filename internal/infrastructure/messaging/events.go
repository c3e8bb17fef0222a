package messaging

import "encoding/json"

// EventEnvelope is the wire format the MES backend publishes per domain
// event. The routing key carries the event name; the body carries tenant
// scoping and the event payload.
type EventEnvelope struct {
	TenantID   string          `json:"tenantId"`
	OccurredAt string          `json:"occurredAt,omitempty"`
	Data       json.RawMessage `json:"data"`
}
