package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kcstrada/mes-realtime-gateway/internal/domain"
	"github.com/kcstrada/mes-realtime-gateway/internal/persistence/db"
)

type gatewayAuditLogRepository struct {
	db *mongo.Database
}

func NewGatewayAuditLogRepository(db *mongo.Database) domain.GatewayAuditRepository {
	return &gatewayAuditLogRepository{
		db: db,
	}
}

func (r *gatewayAuditLogRepository) Record(ctx context.Context, entry domain.GatewayAuditLog) error {
	collection := r.db.Collection(db.GatewayAuditLogsCollection)

	if entry.ID == "" {
		entry.ID = primitive.NewObjectID().Hex()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	_, err := collection.InsertOne(ctx, entry)
	return err
}

func (r *gatewayAuditLogRepository) GetByTenant(ctx context.Context, tenantID string, limit int64) ([]domain.GatewayAuditLog, error) {
	collection := r.db.Collection(db.GatewayAuditLogsCollection)

	filter := bson.M{
		"tenant_id": tenantID,
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []domain.GatewayAuditLog
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *gatewayAuditLogRepository) DeleteOlderThan(ctx context.Context, before time.Time) error {
	collection := r.db.Collection(db.GatewayAuditLogsCollection)

	filter := bson.M{
		"timestamp": bson.M{
			"$lt": before,
		},
	}

	_, err := collection.DeleteMany(ctx, filter)
	return err
}
