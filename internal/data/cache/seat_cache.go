// Package cache holds the display-only availability cache. Reserve and Cancel
// never read it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"movie-reservation/internal/data/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type SeatCache interface {
	// GetTaken returns ok=false on a miss
	GetTaken(ctx context.Context, screeningID uuid.UUID) (seats []entity.Seat, ok bool, err error)
	SetTaken(ctx context.Context, screeningID uuid.UUID, seats []entity.Seat) error
	Invalidate(ctx context.Context, screeningID uuid.UUID) error
}

func seatMapKey(screeningID uuid.UUID) string {
	return "seatmap:" + screeningID.String()
}

// NewSeatCache returns a redis backed cache, or a no-op one when client is nil
func NewSeatCache(client *redis.Client, ttl time.Duration, log *zap.Logger) SeatCache {
	if client == nil || ttl <= 0 {
		return NopSeatCache{}
	}
	return &redisSeatCache{
		client: client,
		ttl:    ttl,
		log:    log.With(zap.String("cache", "seatmap")),
	}
}

type redisSeatCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func (c *redisSeatCache) GetTaken(ctx context.Context, screeningID uuid.UUID) ([]entity.Seat, bool, error) {
	raw, err := c.client.Get(ctx, seatMapKey(screeningID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get seat map %s: %w", screeningID, err)
	}

	var seats []entity.Seat
	if err := json.Unmarshal(raw, &seats); err != nil {
		// treat a corrupt entry as a miss, it gets overwritten on the next fill
		c.log.Warn("Corrupt seat map entry", zap.Error(err), zap.String("screening_id", screeningID.String()))
		return nil, false, nil
	}
	return seats, true, nil
}

func (c *redisSeatCache) SetTaken(ctx context.Context, screeningID uuid.UUID, seats []entity.Seat) error {
	raw, err := json.Marshal(seats)
	if err != nil {
		return fmt.Errorf("marshal seat map: %w", err)
	}
	if err := c.client.Set(ctx, seatMapKey(screeningID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set seat map %s: %w", screeningID, err)
	}
	return nil
}

func (c *redisSeatCache) Invalidate(ctx context.Context, screeningID uuid.UUID) error {
	if err := c.client.Del(ctx, seatMapKey(screeningID)).Err(); err != nil {
		return fmt.Errorf("invalidate seat map %s: %w", screeningID, err)
	}
	return nil
}

// NopSeatCache always misses
type NopSeatCache struct{}

func (NopSeatCache) GetTaken(context.Context, uuid.UUID) ([]entity.Seat, bool, error) {
	return nil, false, nil
}

func (NopSeatCache) SetTaken(context.Context, uuid.UUID, []entity.Seat) error { return nil }

func (NopSeatCache) Invalidate(context.Context, uuid.UUID) error { return nil }
