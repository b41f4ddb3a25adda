package slotpool

import "github.com/pkg/errors"

var (
	// ErrCapacityExhausted is returned when a reservation would need more than BlockSz * MaxBlocks
	// slots.
	ErrCapacityExhausted = errors.New("capacity exhausted")

	// ErrIndexOutOfRange is returned for indices below zero or at/above the current capacity.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrInvalidHandle is returned when dereferencing an empty or released Handle.
	ErrInvalidHandle = errors.New("invalid handle")

	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidConfig   = errors.New("invalid config")
)

func outOfRange(index, capacity int) error {
	return errors.Wrapf(ErrIndexOutOfRange, "index [%d], capacity [%d]", index, capacity)
}

func exhausted(requested, limit int) error {
	return errors.Wrapf(ErrCapacityExhausted, "requested [%d] slots, limit [%d]", requested, limit)
}
