package bridge

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/kcstrada/mes-realtime-gateway/internal/domain"
	"github.com/kcstrada/mes-realtime-gateway/internal/gateway"
	"github.com/kcstrada/mes-realtime-gateway/internal/infrastructure/logging"
	"github.com/kcstrada/mes-realtime-gateway/internal/infrastructure/messaging"
	"github.com/kcstrada/mes-realtime-gateway/internal/infrastructure/metrics"
)

// Bridge subscribes to the MES domain event stream and fans each event out
// through the broadcast router according to the rule catalogue. Delivery is
// best-effort telemetry: malformed events are logged and dropped, never
// crash the consumer.
type Bridge struct {
	router   *gateway.Router
	rabbitmq *messaging.RabbitMQ
	queue    string
	logger   logging.Logger
	metrics  *metrics.Metrics
}

func New(
	router *gateway.Router,
	rabbitmq *messaging.RabbitMQ,
	queue string,
	logger logging.Logger,
	m *metrics.Metrics,
) *Bridge {
	return &Bridge{
		router:   router,
		rabbitmq: rabbitmq,
		queue:    queue,
		logger:   logger,
		metrics:  m,
	}
}

// Setup declares the consumer queue and binds it for every catalogued
// event name.
func (b *Bridge) Setup() error {
	return b.rabbitmq.DeclareAndBindQueue(b.queue, EventNames())
}

// Listen consumes deliveries until the channel closes.
func (b *Bridge) Listen() error {
	return b.rabbitmq.ConsumeMessages(b.queue, b.handle)
}

func (b *Bridge) handle(_ context.Context, d amqp.Delivery) error {
	var envelope messaging.EventEnvelope
	if err := json.Unmarshal(d.Body, &envelope); err != nil {
		// Unparseable body goes to the dead letter exchange for inspection.
		b.metrics.EventsDroppedTotal.WithLabelValues(d.RoutingKey, "unmarshal").Inc()
		b.logger.Warn(logging.RabbitMQ, logging.Consume, "unparseable event body", map[logging.ExtraKey]any{
			logging.EventName:    d.RoutingKey,
			logging.ErrorMessage: err.Error(),
		})
		return err
	}

	var payload map[string]any
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			b.metrics.EventsDroppedTotal.WithLabelValues(d.RoutingKey, "unmarshal").Inc()
			b.logger.Warn(logging.RabbitMQ, logging.Consume, "unparseable event payload", map[logging.ExtraKey]any{
				logging.EventName:    d.RoutingKey,
				logging.ErrorMessage: err.Error(),
			})
			return err
		}
	}

	occurredAt, _ := time.Parse(time.RFC3339, envelope.OccurredAt)

	b.Dispatch(domain.Event{
		Name:       d.RoutingKey,
		TenantID:   envelope.TenantID,
		OccurredAt: occurredAt,
		Data:       payload,
	})

	return nil
}

// Dispatch routes one domain event per the catalogue and returns the total
// delivery count. Incomplete events are dropped with a log; a leg that
// reaches zero connections does not suppress the other legs.
func (b *Bridge) Dispatch(ev domain.Event) int {
	r, ok := catalogue[ev.Name]
	if !ok {
		b.metrics.EventsDroppedTotal.WithLabelValues(ev.Name, "unknown_event").Inc()
		b.logger.Warn(logging.RabbitMQ, logging.Consume, "uncatalogued event", map[logging.ExtraKey]any{
			logging.EventName: ev.Name,
		})
		return 0
	}

	if ev.TenantID == "" {
		b.dropIncomplete(ev, "tenantId")
		return 0
	}
	for _, field := range r.required {
		if _, ok := ev.StringField(field); !ok {
			b.dropIncomplete(ev, field)
			return 0
		}
	}

	b.metrics.EventsConsumedTotal.WithLabelValues(ev.Name).Inc()

	delivered := 0
	for _, d := range r.dispatches {
		msg, target := b.build(ev, d)
		delivered += b.router.Broadcast(target, msg)
	}

	// Raw copy for explicit event-topic subscribers.
	delivered += b.router.Broadcast(
		gateway.Target{Rooms: []string{gateway.EventRoom(ev.TenantID, ev.Name)}},
		gateway.NewMessage(ev.Name, ev.TenantID, ev.Data),
	)

	return delivered
}

func (b *Bridge) build(ev domain.Event, d dispatch) (*gateway.Message, gateway.Target) {
	var target gateway.Target

	switch d.kind {
	case toTenant:
		target = gateway.Target{TenantID: ev.TenantID}
	case toUser:
		userID, _ := ev.StringField(d.field)
		target = gateway.Target{UserIDs: []string{userID}}
	case toRole:
		target = gateway.Target{Roles: []string{d.role}, TenantID: ev.TenantID}
	case toWorkCenter:
		workCenterID, _ := ev.StringField(d.field)
		target = gateway.Target{Rooms: []string{gateway.WorkCenterRoom(ev.TenantID, workCenterID)}}
	}

	if d.notify {
		msg := gateway.NewMessage(gateway.EventNotification, ev.TenantID, map[string]any{
			"type":     ev.Name,
			"severity": d.severity,
			"payload":  ev.Data,
		})
		return msg, target
	}

	return gateway.NewMessage(ev.Name, ev.TenantID, ev.Data), target
}

func (b *Bridge) dropIncomplete(ev domain.Event, missing string) {
	b.metrics.EventsDroppedTotal.WithLabelValues(ev.Name, "missing_field").Inc()
	b.logger.Warn(logging.RabbitMQ, logging.Consume, "dropping incomplete event", map[logging.ExtraKey]any{
		logging.EventName:    ev.Name,
		logging.TenantID:     ev.TenantID,
		logging.ErrorMessage: "missing field: " + missing,
	})
}
