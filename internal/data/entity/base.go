package entity

import (
	"time"

	"github.com/google/uuid"
)

// Base is embedded by soft-deletable records
type Base struct {
	ID        uuid.UUID  `db:"id"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

// BaseSimple is embedded by append-only records
type BaseSimple struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
}

func NewBase(now time.Time) Base {
	return Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

func NewBaseSimple(now time.Time) BaseSimple {
	return BaseSimple{ID: uuid.New(), CreatedAt: now}
}
