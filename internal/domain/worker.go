package domain

import (
	"sort"
	"strings"
	"time"
)

// Worker represents a single entry in the record store.
type Worker struct {
	// ID is assigned by the store on creation and never reused.
	ID int `json:"id"`

	// AddedAt is the creation timestamp, stamped by the store with minute precision.
	AddedAt time.Time `json:"added_at"`

	FullName   string    `json:"full_name"`
	Age        int       `json:"age"`
	Height     int       `json:"height"`
	BirthDate  time.Time `json:"birth_date"`
	BirthPlace string    `json:"birth_place"`
}

// SortField selects the ordering used when displaying workers.
type SortField int

const (
	SortByID SortField = iota + 1
	SortByAddedAt
	SortByFullName
)

// Valid reports whether f names a known ordering.
func (f SortField) Valid() bool {
	return f >= SortByID && f <= SortByFullName
}

func (f SortField) String() string {
	switch f {
	case SortByID:
		return "id"
	case SortByAddedAt:
		return "added_at"
	case SortByFullName:
		return "full_name"
	default:
		return "unknown"
	}
}

// SortWorkers orders workers in place by the given field.
// Ties keep their original relative order. Unknown fields leave the slice untouched.
func SortWorkers(workers []Worker, field SortField) {
	var less func(i, j int) bool
	switch field {
	case SortByID:
		less = func(i, j int) bool { return workers[i].ID < workers[j].ID }
	case SortByAddedAt:
		less = func(i, j int) bool { return workers[i].AddedAt.Before(workers[j].AddedAt) }
	case SortByFullName:
		less = func(i, j int) bool { return strings.Compare(workers[i].FullName, workers[j].FullName) < 0 }
	default:
		return
	}
	sort.SliceStable(workers, less)
}
