package domain

import (
	"strconv"
	"time"
)

// Event is a domain event received from the MES backend. Name matches the
// AMQP routing key (e.g. "order.created"); Data is the decoded payload.
type Event struct {
	Name       string
	TenantID   string
	OccurredAt time.Time
	Data       map[string]any
}

// StringField returns the payload field as a non-empty string. Numeric IDs
// are common in payloads coming out of the ERP side, so numbers are
// stringified rather than rejected.
func (e Event) StringField(key string) (string, bool) {
	switch v := e.Data[key].(type) {
	case string:
		return v, v != ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	default:
		return "", false
	}
}
