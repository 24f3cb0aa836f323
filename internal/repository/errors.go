package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write collides with an existing entity
	ErrConflict = errors.New("conflict: entity already exists")

	// ErrInsufficientBalance is returned when a transfer exceeds the sender's balance
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
)
