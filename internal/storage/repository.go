package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"workerstore/internal/domain"
)

var (
	// ErrStoreNotFound is returned when the backing record store does not exist yet.
	ErrStoreNotFound = errors.New("record store does not exist")

	// ErrMalformedRecord is returned when a stored record cannot be parsed.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrInvalidField is returned when a worker holds text that cannot be stored.
	ErrInvalidField = errors.New("invalid field")

	// ErrIDExhausted is returned when the largest stored ID leaves no room for another.
	ErrIDExhausted = errors.New("no identifier left to assign")
)

// Repository defines the interface for worker storage operations.
// This allows the flat file to be swapped for another backend (e.g., BadgerDB)
// without changing the console that uses it.
type Repository interface {
	// ListAll returns every stored worker in storage order.
	ListAll(ctx context.Context) ([]domain.Worker, error)

	// Add assigns the next ID and the current time to w, stores it and returns the stored copy.
	Add(ctx context.Context, w domain.Worker) (domain.Worker, error)

	// Delete removes the worker with the given ID. It reports whether a record was removed;
	// deleting an unknown ID is not an error.
	Delete(ctx context.Context, id int) (bool, error)

	// ListBetween returns workers whose AddedAt lies in [from, to], in storage order.
	ListBetween(ctx context.Context, from, to time.Time) ([]domain.Worker, error)

	// Close releases any resources held by the repository.
	Close() error
}

// nextAfter returns the ID following maxID.
func nextAfter(maxID int) (int, error) {
	if maxID == math.MaxInt {
		return 0, fmt.Errorf("%w: largest stored id is %d", ErrIDExhausted, maxID)
	}
	return maxID + 1, nil
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
