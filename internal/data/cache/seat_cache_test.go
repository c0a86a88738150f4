package cache

import (
	"context"
	"testing"
	"time"

	"movie-reservation/internal/data/entity"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
)

func TestNewSeatCacheWithoutClientIsNop(t *testing.T) {
	c := NewSeatCache(nil, 5*time.Second, zaptest.NewLogger(t))
	if _, ok := c.(NopSeatCache); !ok {
		t.Fatalf("Expected NopSeatCache, got %T", c)
	}

	id := uuid.New()
	ctx := context.Background()
	if err := c.SetTaken(ctx, id, []entity.Seat{{Row: "A", Number: 1}}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	seats, ok, err := c.GetTaken(ctx, id)
	if err != nil || ok || seats != nil {
		t.Errorf("Expected a miss, got seats=%v ok=%t err=%v", seats, ok, err)
	}
	if err := c.Invalidate(ctx, id); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestSeatMapKey(t *testing.T) {
	id := uuid.MustParse("7b1f3c9e-2d4a-4c1b-9a55-0e6c8d2f1a10")
	if got := seatMapKey(id); got != "seatmap:7b1f3c9e-2d4a-4c1b-9a55-0e6c8d2f1a10" {
		t.Errorf("Expected seatmap:<id>, got %s", got)
	}
}
