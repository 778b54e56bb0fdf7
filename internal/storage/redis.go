package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/edgesentinel/edge-sentinel/internal/models"
)

const (
	alertsKey        = "alerts:all"
	alertHistoryKey  = "alerts:history"
	alertsPubChannel = "alerts"
)

// Archive mirrors ingested alerts into Redis for external consumers.
// It is best-effort; the in-memory store remains the source of truth.
type Archive struct {
	client *redis.Client
	ctx    context.Context
}

// NewArchive connects to Redis and verifies the connection.
func NewArchive(addr, password string, db int) (*Archive, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Archive{
		client: client,
		ctx:    ctx,
	}, nil
}

// StoreAlert writes the alert into the archive hash and the
// time-indexed history set.
func (a *Archive) StoreAlert(alert *models.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	if err := a.client.HSet(a.ctx, alertsKey, alert.ID, string(data)).Err(); err != nil {
		return err
	}

	return a.client.ZAdd(a.ctx, alertHistoryKey, redis.Z{
		Score:  float64(alert.Timestamp.Unix()),
		Member: alert.ID,
	}).Err()
}

// PublishAlert publishes the alert on the pub/sub channel for any
// external subscribers.
func (a *Archive) PublishAlert(alert *models.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	return a.client.Publish(a.ctx, alertsPubChannel, string(data)).Err()
}

// Close closes the Redis connection.
func (a *Archive) Close() error {
	return a.client.Close()
}
