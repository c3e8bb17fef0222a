package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kcstrada/mes-realtime-gateway/internal/domain"
)

func TestStringField(t *testing.T) {
	ev := domain.Event{Data: map[string]any{
		"orderId":  "ord-42",
		"workerId": float64(17), // json.Unmarshal decodes numbers as float64
		"count":    3,
		"empty":    "",
		"flag":     true,
	}}

	got, ok := ev.StringField("orderId")
	assert.True(t, ok)
	assert.Equal(t, "ord-42", got)

	got, ok = ev.StringField("workerId")
	assert.True(t, ok)
	assert.Equal(t, "17", got)

	got, ok = ev.StringField("count")
	assert.True(t, ok)
	assert.Equal(t, "3", got)

	_, ok = ev.StringField("empty")
	assert.False(t, ok)

	_, ok = ev.StringField("flag")
	assert.False(t, ok)

	_, ok = ev.StringField("missing")
	assert.False(t, ok)
}
