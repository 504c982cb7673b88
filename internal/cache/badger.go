package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// BadgerCache is a Cache backed by an embedded badger.DB. The zero value is
// not usable; construct with Open or OpenInMemory.
type BadgerCache struct {
	db *badger.DB
}

// badgerLogger adapts slog.Logger to badger's Logger interface so badger's
// own diagnostics flow through the same structured logging as the rest of
// the process.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{})   { l.logger.Error(fmt.Sprintf(format, args...)) }
func (l *badgerLogger) Warningf(format string, args ...interface{}) { l.logger.Warn(fmt.Sprintf(format, args...)) }
func (l *badgerLogger) Infof(format string, args ...interface{})    { l.logger.Info(fmt.Sprintf(format, args...)) }
func (l *badgerLogger) Debugf(format string, args ...interface{})   { l.logger.Debug(fmt.Sprintf(format, args...)) }

// Open opens a persistent BadgerCache rooted at dir, creating it if
// necessary.
func Open(dir string, logger *slog.Logger) (*BadgerCache, error) {
	if dir == "" {
		return nil, errors.New("cache: dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("cache: create %s: %w", dir, err)
	}

	opts := badger.DefaultOptions(dir).WithSyncWrites(true).WithNumVersionsToKeep(1)
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", dir, err)
	}

	return &BadgerCache{db: db}, nil
}

// OpenInMemory opens a BadgerCache with no disk persistence, for tests and
// short-lived batch runs that don't need the cache to survive the process.
func OpenInMemory() (*BadgerCache, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("cache: open in-memory: %w", err)
	}
	return &BadgerCache{db: db}, nil
}

// Get reports whether key is present, returning a copy of its value if so.
func (c *BadgerCache) Get(key string) ([]byte, bool) {
	var value []byte

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			value = append([]byte(nil), v...)
			return nil
		})
	})
	if err != nil {
		return nil, false
	}
	return value, true
}

// Put stores value under key.
func (c *BadgerCache) Put(key string, value []byte) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// Close closes the underlying database.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}

var _ Cache = (*BadgerCache)(nil)
