package storage

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"workerstore/internal/domain"
)

const (
	// FieldDelimiter separates fields within one stored line.
	FieldDelimiter = "#"

	// AddedAtLayout is the on-disk layout of the creation timestamp (dd.MM.yyyy HH:mm).
	AddedAtLayout = "02.01.2006 15:04"

	// DateLayout is the on-disk layout of the birth date (dd.MM.yyyy).
	DateLayout = "02.01.2006"

	fieldCount = 7
)

// FormatRecord serializes w into a single line without the trailing newline.
func FormatRecord(w domain.Worker) string {
	return strings.Join([]string{
		strconv.Itoa(w.ID),
		w.AddedAt.Format(AddedAtLayout),
		w.FullName,
		strconv.Itoa(w.Age),
		strconv.Itoa(w.Height),
		w.BirthDate.Format(DateLayout),
		w.BirthPlace,
	}, FieldDelimiter)
}

// ParseRecord parses a line produced by FormatRecord.
// Timestamps are interpreted in the local time zone.
func ParseRecord(line string) (domain.Worker, error) {
	data := strings.Split(strings.TrimRight(line, "\r"), FieldDelimiter)
	if len(data) != fieldCount {
		return domain.Worker{}, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedRecord, fieldCount, len(data))
	}

	id, err := strconv.Atoi(data[0])
	if err != nil {
		return domain.Worker{}, fmt.Errorf("%w: id: %v", ErrMalformedRecord, err)
	}
	addedAt, err := time.ParseInLocation(AddedAtLayout, data[1], time.Local)
	if err != nil {
		return domain.Worker{}, fmt.Errorf("%w: added at: %v", ErrMalformedRecord, err)
	}
	age, err := strconv.Atoi(data[3])
	if err != nil {
		return domain.Worker{}, fmt.Errorf("%w: age: %v", ErrMalformedRecord, err)
	}
	height, err := strconv.Atoi(data[4])
	if err != nil {
		return domain.Worker{}, fmt.Errorf("%w: height: %v", ErrMalformedRecord, err)
	}
	birthDate, err := time.ParseInLocation(DateLayout, data[5], time.Local)
	if err != nil {
		return domain.Worker{}, fmt.Errorf("%w: birth date: %v", ErrMalformedRecord, err)
	}

	return domain.Worker{
		ID:         id,
		AddedAt:    addedAt,
		FullName:   data[2],
		Age:        age,
		Height:     height,
		BirthDate:  birthDate,
		BirthPlace: data[6],
	}, nil
}

// parseID reads only the leading identifier of a stored line.
func parseID(line string) (int, error) {
	head, _, _ := strings.Cut(line, FieldDelimiter)
	id, err := strconv.Atoi(head)
	if err != nil {
		return 0, fmt.Errorf("%w: id: %v", ErrMalformedRecord, err)
	}
	return id, nil
}

// validateFields rejects text that would break the line format.
func validateFields(w domain.Worker) error {
	for name, v := range map[string]string{"full name": w.FullName, "birth place": w.BirthPlace} {
		if strings.Contains(v, FieldDelimiter) || strings.ContainsAny(v, "\r\n") {
			return fmt.Errorf("%w: %s must not contain %q or line breaks", ErrInvalidField, name, FieldDelimiter)
		}
	}
	return nil
}
