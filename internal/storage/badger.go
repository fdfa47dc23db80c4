package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"workerstore/internal/domain"
)

// BadgerRepository implements the Repository interface using BadgerDB.
type BadgerRepository struct {
	db   *badger.DB
	path string
	now  func() time.Time
	log  logrus.FieldLogger
}

// NewBadgerRepository creates and initializes a new BadgerDB repository.
// It opens the database at the specified path.
func NewBadgerRepository(dbPath string, logger logrus.FieldLogger) (*BadgerRepository, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = &badgerLogger{logger.WithField("component", "badgerdb")}

	db, err := badger.Open(opts)
	if err != nil {
		logger.WithError(err).Error("Failed to open BadgerDB")
		return nil, fmt.Errorf("failed to open badger db at %s: %w", dbPath, err)
	}
	logger.Info("BadgerDB opened successfully at path: ", dbPath)

	return &BadgerRepository{
		db:   db,
		path: dbPath,
		now:  time.Now,
		log:  logger.WithFields(logrus.Fields{"component": "badger_repository", "path": dbPath}),
	}, nil
}

// Close reclaims value-log space left by deleted workers, then closes the database.
// A failed GC pass is logged but does not stop the close.
func (r *BadgerRepository) Close() error {
	// 0.5: rewrite a value-log file once half of it belongs to deleted or stale workers.
	if err := r.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		r.log.WithError(err).Warn("Value log GC before close failed")
	}
	if err := r.db.Close(); err != nil {
		r.log.WithError(err).Error("Failed to close worker database")
		return fmt.Errorf("failed to close badger db at %s: %w", r.path, err)
	}
	r.log.Debug("Worker database closed")
	return nil
}

var workerPrefix = []byte("worker:")

// workerKey creates the key for a worker.
// Format: worker:{id padded to 20 digits}, so byte order matches ID order.
func workerKey(id int) []byte {
	return []byte(fmt.Sprintf("worker:%020d", id))
}

func idFromKey(key []byte) (int, error) {
	return strconv.Atoi(string(key[len(workerPrefix):]))
}

// scan walks every worker in ID order.
func (r *BadgerRepository) scan(txn *badger.Txn, fn func(domain.Worker) error) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	for it.Seek(workerPrefix); it.ValidForPrefix(workerPrefix); it.Next() {
		item := it.Item()
		err := item.Value(func(val []byte) error {
			var w domain.Worker
			if err := json.Unmarshal(val, &w); err != nil {
				return fmt.Errorf("%w: key %s: %v", ErrMalformedRecord, string(item.Key()), err)
			}
			return fn(w)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// lastID returns the largest stored ID, or 0 for an empty database.
func (r *BadgerRepository) lastID(txn *badger.Txn) (int, error) {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = true
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	// Seek past every padded ID so the reverse scan starts at the largest one.
	seek := append(append([]byte{}, workerPrefix...), 0xFF)
	it.Seek(seek)
	if !it.ValidForPrefix(workerPrefix) {
		return 0, nil
	}
	id, err := idFromKey(it.Item().Key())
	if err != nil {
		return 0, fmt.Errorf("%w: key %s: %v", ErrMalformedRecord, string(it.Item().Key()), err)
	}
	return id, nil
}

// ListAll returns every worker in ID order. An empty database yields an empty slice.
func (r *BadgerRepository) ListAll(ctx context.Context) ([]domain.Worker, error) {
	workers := []domain.Worker{}
	err := r.db.View(func(txn *badger.Txn) error {
		return r.scan(txn, func(w domain.Worker) error {
			workers = append(workers, w)
			return nil
		})
	})
	if err != nil {
		r.log.WithError(err).Error("Failed to retrieve workers from BadgerDB")
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	return workers, nil
}

// ListBetween returns workers added within [from, to], in ID order.
func (r *BadgerRepository) ListBetween(ctx context.Context, from, to time.Time) ([]domain.Worker, error) {
	workers := []domain.Worker{}
	err := r.db.View(func(txn *badger.Txn) error {
		return r.scan(txn, func(w domain.Worker) error {
			if inRange(w.AddedAt, from, to) {
				workers = append(workers, w)
			}
			return nil
		})
	})
	if err != nil {
		r.log.WithError(err).Error("Failed to retrieve workers from BadgerDB")
		return nil, fmt.Errorf("failed to list workers between %s and %s: %w", from, to, err)
	}
	return workers, nil
}

// Add stores w under the next free ID.
func (r *BadgerRepository) Add(ctx context.Context, w domain.Worker) (domain.Worker, error) {
	if err := validateFields(w); err != nil {
		return domain.Worker{}, err
	}

	err := r.db.Update(func(txn *badger.Txn) error {
		last, err := r.lastID(txn)
		if err != nil {
			return err
		}
		if w.ID, err = nextAfter(last); err != nil {
			return err
		}
		w.AddedAt = r.now().Truncate(time.Minute)

		val, err := json.Marshal(w)
		if err != nil {
			return fmt.Errorf("failed to marshal worker: %w", err)
		}
		return txn.SetEntry(badger.NewEntry(workerKey(w.ID), val))
	})
	if err != nil {
		r.log.WithError(err).Error("Failed to save worker to BadgerDB")
		return domain.Worker{}, fmt.Errorf("failed to add worker: %w", err)
	}

	r.log.WithField("worker_id", w.ID).Info("Worker added")
	return w, nil
}

// Delete removes the worker with the given ID and reports whether it existed.
func (r *BadgerRepository) Delete(ctx context.Context, id int) (bool, error) {
	log := r.log.WithField("worker_id", id)
	key := workerKey(id)

	removed := false
	err := r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		removed = true
		return txn.Delete(key)
	})
	if err != nil {
		log.WithError(err).Error("Failed to delete worker from BadgerDB")
		return false, fmt.Errorf("failed to delete worker %d: %w", id, err)
	}

	if removed {
		log.Info("Worker deleted")
	} else {
		log.Info("No worker with this ID")
	}
	return removed, nil
}

// --- BadgerDB Internal Logger ---

// badgerLogger routes Badger's own messages into logrus. Badger terminates every
// message with a newline, which the JSON formatter would otherwise keep, and its
// startup and compaction chatter is demoted from info to debug so the console
// stays quiet at the default level.
type badgerLogger struct {
	logger logrus.FieldLogger
}

func (l *badgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Error(badgerMessage(f, v))
}

func (l *badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warn(badgerMessage(f, v))
}

func (l *badgerLogger) Infof(f string, v ...interface{}) {
	l.logger.Debug(badgerMessage(f, v))
}

func (l *badgerLogger) Debugf(f string, v ...interface{}) {
	l.logger.Debug(badgerMessage(f, v))
}

func badgerMessage(f string, v []interface{}) string {
	return strings.TrimRight(fmt.Sprintf(f, v...), "\n")
}
