package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"workerstore/internal/domain"
)

// FileRepository implements the Repository interface on top of a delimited text file,
// one record per line in append order.
type FileRepository struct {
	fs   afero.Fs
	path string
	now  func() time.Time
	log  logrus.FieldLogger
}

// FileOption customizes a FileRepository.
type FileOption func(*FileRepository)

// WithClock overrides the clock used to stamp new records.
func WithClock(now func() time.Time) FileOption {
	return func(r *FileRepository) { r.now = now }
}

// NewFileRepository creates a repository backed by the file at path on fsys.
// The file itself is created lazily by the first Add.
func NewFileRepository(fsys afero.Fs, path string, logger logrus.FieldLogger, opts ...FileOption) *FileRepository {
	r := &FileRepository{
		fs:   fsys,
		path: path,
		now:  time.Now,
		log:  logger.WithFields(logrus.Fields{"component": "file_repository", "path": path}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Path returns the location of the record store.
func (r *FileRepository) Path() string {
	return r.path
}

// Close is a no-op; every operation opens and closes the file itself.
func (r *FileRepository) Close() error {
	return nil
}

// readRaw returns the raw store contents, or ErrStoreNotFound.
func (r *FileRepository) readRaw() ([]byte, error) {
	raw, err := afero.ReadFile(r.fs, r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrStoreNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", r.path, err)
	}
	return raw, nil
}

// readLines returns the non-blank lines of the store, or ErrStoreNotFound.
func (r *FileRepository) readLines() ([]string, error) {
	raw, err := r.readRaw()
	if err != nil {
		return nil, err
	}
	return splitLines(raw), nil
}

func splitLines(raw []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(raw), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, strings.TrimRight(line, "\r"))
	}
	return lines
}

// readWorkers parses every stored line. The first bad line fails the whole read.
func (r *FileRepository) readWorkers() ([]domain.Worker, error) {
	lines, err := r.readLines()
	if err != nil {
		return nil, err
	}
	workers := make([]domain.Worker, 0, len(lines))
	for i, line := range lines {
		w, err := ParseRecord(line)
		if err != nil {
			r.log.WithError(err).WithField("line", i+1).Error("Failed to parse stored record")
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		workers = append(workers, w)
	}
	return workers, nil
}

// ListAll returns every worker in file order.
func (r *FileRepository) ListAll(ctx context.Context) ([]domain.Worker, error) {
	workers, err := r.readWorkers()
	if err != nil {
		return nil, err
	}
	r.log.WithField("worker_count", len(workers)).Debug("Workers listed")
	return workers, nil
}

// ListBetween returns workers added within [from, to], in file order.
func (r *FileRepository) ListBetween(ctx context.Context, from, to time.Time) ([]domain.Worker, error) {
	workers, err := r.readWorkers()
	if err != nil {
		return nil, err
	}
	matched := make([]domain.Worker, 0, len(workers))
	for _, w := range workers {
		if inRange(w.AddedAt, from, to) {
			matched = append(matched, w)
		}
	}
	r.log.WithFields(logrus.Fields{
		"from":         from,
		"to":           to,
		"worker_count": len(matched),
	}).Debug("Workers listed by date range")
	return matched, nil
}

// nextID returns one more than the largest ID in lines, or 1 when there are none.
func nextID(lines []string) (int, error) {
	maxID := 0
	for i, line := range lines {
		id, err := parseID(line)
		if err != nil {
			return 0, fmt.Errorf("line %d: %w", i+1, err)
		}
		if id > maxID {
			maxID = id
		}
	}
	return nextAfter(maxID)
}

// Add stamps w with the next ID and the current minute and appends it to the store,
// creating the file if needed.
func (r *FileRepository) Add(ctx context.Context, w domain.Worker) (domain.Worker, error) {
	if err := validateFields(w); err != nil {
		return domain.Worker{}, err
	}

	raw, err := r.readRaw()
	if err != nil && !errors.Is(err, ErrStoreNotFound) {
		return domain.Worker{}, err
	}
	id, err := nextID(splitLines(raw))
	if err != nil {
		r.log.WithError(err).Error("Failed to compute next worker ID")
		return domain.Worker{}, fmt.Errorf("failed to compute next id: %w", err)
	}
	w.ID = id
	w.AddedAt = r.now().Truncate(time.Minute)

	log := r.log.WithField("worker_id", w.ID)

	record := FormatRecord(w) + "\n"
	// A store last rewritten by hand may lack the final newline.
	if len(raw) > 0 && raw[len(raw)-1] != '\n' {
		record = "\n" + record
	}

	f, err := r.fs.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.WithError(err).Error("Failed to open record store for append")
		return domain.Worker{}, fmt.Errorf("failed to open %s: %w", r.path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(record); err != nil {
		log.WithError(err).Error("Failed to append worker")
		return domain.Worker{}, fmt.Errorf("failed to append worker %d: %w", w.ID, err)
	}

	log.Info("Worker added")
	return w, nil
}

// Delete rewrites the store without the line holding id. The file is left untouched
// when no line matches.
func (r *FileRepository) Delete(ctx context.Context, id int) (bool, error) {
	log := r.log.WithField("worker_id", id)

	lines, err := r.readLines()
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			log.Warn("Delete requested but record store does not exist")
		}
		return false, err
	}

	var buf bytes.Buffer
	removed := false
	for i, line := range lines {
		lineID, err := parseID(line)
		if err != nil {
			log.WithError(err).WithField("line", i+1).Error("Failed to parse stored record")
			return false, fmt.Errorf("line %d: %w", i+1, err)
		}
		if lineID == id {
			removed = true
			continue
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	if !removed {
		log.Info("No worker with this ID")
		return false, nil
	}

	if err := afero.WriteFile(r.fs, r.path, buf.Bytes(), 0o644); err != nil {
		log.WithError(err).Error("Failed to rewrite record store")
		return false, fmt.Errorf("failed to rewrite %s: %w", r.path, err)
	}

	log.Info("Worker deleted")
	return true, nil
}
