package repository

import "errors"

var (
	// ErrStaleInventory means the screening's seat version moved (or a seat or
	// reservation uniqueness constraint fired) between read and write. The caller
	// should reload and retry.
	ErrStaleInventory = errors.New("seat inventory changed concurrently")

	// ErrDuplicateKey wraps unique violations outside the seat inventory
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNoRowsAffected is returned by updates and deletes that matched nothing
	ErrNoRowsAffected = errors.New("no rows affected")
)
