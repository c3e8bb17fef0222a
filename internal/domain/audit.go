package domain

import (
	"context"
	"time"
)

type AuditEventType string

const (
	AuditConnected    AuditEventType = "connected"
	AuditDisconnected AuditEventType = "disconnected"
)

// GatewayAuditLog records a connection lifecycle transition. Message
// payloads are never persisted; this is operational history only.
type GatewayAuditLog struct {
	ID           string         `bson:"_id,omitempty" json:"id"`
	TenantID     string         `bson:"tenant_id" json:"tenantId"`
	UserID       string         `bson:"user_id" json:"userId"`
	ConnectionID string         `bson:"connection_id" json:"connectionId"`
	EventType    AuditEventType `bson:"event_type" json:"eventType"`
	Timestamp    time.Time      `bson:"timestamp" json:"timestamp"`
}

type GatewayAuditRepository interface {
	Record(ctx context.Context, entry GatewayAuditLog) error
	GetByTenant(ctx context.Context, tenantID string, limit int64) ([]GatewayAuditLog, error)
	DeleteOlderThan(ctx context.Context, before time.Time) error
}
