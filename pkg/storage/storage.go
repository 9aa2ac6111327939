package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"log/slog"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ssargent/docmap/pkg/codec"
	"github.com/ssargent/docmap/pkg/document"
)

// Errors
var (
	ErrNotFound   = &Error{"document not found"}
	ErrExists     = &Error{"document already exists"}
	ErrCorruption = &Error{"data corruption detected"}
	ErrNoID       = &Error{"document has no identifier"}
	ErrClosed     = &Error{"store is closed"}
)

// Error represents a storage error
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

const (
	keySeparator = 0x00
	crcSize      = 4
)

// Option configures a Store.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	syncWrites bool
}

// WithLogger sets the logger used for store events and pebble messages.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegisterer registers the store metrics with reg. Without it the
// metrics are collected but never registered.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithSyncWrites makes every write wait for the write-ahead log to sync.
func WithSyncWrites(sync bool) Option {
	return func(o *options) { o.syncWrites = sync }
}

// Store keeps encoded documents in a pebble database, grouped by collection.
//
// Keys are the collection name, a zero byte, the identifier's document type
// and its encoded bytes. Values are a little-endian CRC32 of the document
// followed by the document itself.
type Store struct {
	db       *pebble.DB
	registry codec.Registry
	logger   *slog.Logger
	metrics  *Metrics
	write    *pebble.WriteOptions

	mu     sync.RWMutex // shared by reads, exclusive for check-then-write and Close
	closed bool
}

// Open opens or creates the store at path. Entities are mapped with the
// codecs of registry.
func Open(path string, registry codec.Registry, opts ...Option) (*Store, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := pebble.Open(path, &pebble.Options{Logger: pebbleLogger{o.logger}})
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", path, err)
	}

	write := pebble.NoSync
	if o.syncWrites {
		write = pebble.Sync
	}
	o.logger.Info("store opened", "path", path, "sync_writes", o.syncWrites)

	return &Store{
		db:       db,
		registry: registry,
		logger:   o.logger,
		metrics:  NewMetrics(o.registerer),
		write:    write,
	}, nil
}

// Close flushes and closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("store closed")
	return s.db.Close()
}

// Registry returns the codec registry entities are mapped with.
func (s *Store) Registry() codec.Registry {
	return s.registry
}

// Metrics returns the store metrics.
func (s *Store) Metrics() *Metrics {
	return s.metrics
}

// Collections lists the names of all collections holding at least one
// document, in key order.
func (s *Store) Collections() ([]string, error) {
	unlock, err := s.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	iter, err := s.db.NewIter(nil)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var names []string
	for valid := iter.First(); valid; {
		key := iter.Key()
		i := bytes.IndexByte(key, keySeparator)
		if i < 0 {
			return nil, fmt.Errorf("%w: key without collection %x", ErrCorruption, key)
		}
		name := string(key[:i])
		names = append(names, name)
		// skip past every key of this collection
		valid = iter.SeekGE(append([]byte(name), keySeparator+1))
	}
	return names, iter.Error()
}

// GetRaw returns the document stored under id in collection.
func (s *Store) GetRaw(collection string, id document.RawValue) (document.Raw, error) {
	unlock, err := s.rlock()
	if err != nil {
		return nil, err
	}
	defer unlock()
	return s.get(documentKey(collection, id))
}

// ScanRaw calls fn for every document of collection in key order and stops
// at the first error fn returns. id and doc are only valid during the call,
// and fn must not write to the store.
func (s *Store) ScanRaw(collection string, fn func(id document.RawValue, doc document.Raw) error) error {
	unlock, err := s.rlock()
	if err != nil {
		return err
	}
	defer unlock()
	prefix := collectionPrefix(collection)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixEnd(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for valid := iter.First(); valid; valid = iter.Next() {
		id, err := parseID(iter.Key()[len(prefix):])
		if err != nil {
			return err
		}
		doc, err := unframe(iter.Value())
		if err != nil {
			return fmt.Errorf("%s/%s: %w", collection, id, err)
		}
		if err := fn(id, doc); err != nil {
			return err
		}
	}
	return iter.Error()
}

// rlock holds the read lock of an open store until the returned func runs.
func (s *Store) rlock() (func(), error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	return s.mu.RUnlock, nil
}

// lock holds the write lock of an open store until the returned func runs.
func (s *Store) lock() (func(), error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	return s.mu.Unlock, nil
}

func (s *Store) get(key []byte) (document.Raw, error) {
	value, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	// value is only valid until closer is closed
	return unframe(bytes.Clone(value))
}

func (s *Store) exists(key []byte) (bool, error) {
	_, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, closer.Close()
}

func (s *Store) put(key []byte, doc document.Raw) error {
	return s.db.Set(key, frame(doc), s.write)
}

func (s *Store) delete(key []byte) error {
	return s.db.Delete(key, s.write)
}

func collectionPrefix(collection string) []byte {
	prefix := make([]byte, 0, len(collection)+1)
	prefix = append(prefix, collection...)
	return append(prefix, keySeparator)
}

func documentKey(collection string, id document.RawValue) []byte {
	key := collectionPrefix(collection)
	key = append(key, byte(id.Type))
	return append(key, id.Data...)
}

func parseID(b []byte) (document.RawValue, error) {
	if len(b) < 1 || !document.Type(b[0]).Valid() {
		return document.RawValue{}, fmt.Errorf("%w: invalid identifier in key", ErrCorruption)
	}
	return document.RawValue{Type: document.Type(b[0]), Data: bytes.Clone(b[1:])}, nil
}

// prefixEnd returns the smallest key greater than every key with prefix.
func prefixEnd(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func frame(doc document.Raw) []byte {
	buf := make([]byte, crcSize+len(doc))
	binary.LittleEndian.PutUint32(buf, crc32.ChecksumIEEE(doc))
	copy(buf[crcSize:], doc)
	return buf
}

func unframe(value []byte) (document.Raw, error) {
	if len(value) < crcSize {
		return nil, fmt.Errorf("%w: value too short", ErrCorruption)
	}
	doc := value[crcSize:]
	if crc32.ChecksumIEEE(doc) != binary.LittleEndian.Uint32(value) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorruption)
	}
	return document.Raw(doc), nil
}

// pebbleLogger routes pebble's messages through slog.
type pebbleLogger struct {
	logger *slog.Logger
}

func (l pebbleLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...), "component", "pebble")
}

func (l pebbleLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...), "component", "pebble")
}

func (l pebbleLogger) Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.logger.Error(msg, "component", "pebble")
	panic(msg)
}

var _ io.Closer = (*Store)(nil)
