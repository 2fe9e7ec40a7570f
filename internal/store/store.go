// Package store implements the durable append-only event log on BadgerDB.
//
// Writes are serialized so that assigned ids are strictly increasing in
// commit order; reads run on Badger snapshots and never block on a
// concurrent append. Each append writes the primary record plus five index
// entries (recency, session, source, type, insertion-age) in one
// transaction, so readers never observe a half-indexed event.
package store

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/agentsight/agentsight/internal/models"
)

// record is the persisted form of an event. CreatedAt is the insertion
// instant and exists only for retention pruning; it never goes on the wire.
type record struct {
	models.Event
	CreatedAt time.Time `json:"createdAt"`
}

// Store is a durable, queryable, append-only event log.
type Store struct {
	badger *badger.DB

	// appendMu serializes writers so id assignment matches commit order.
	appendMu sync.Mutex
	nextID   int64

	mu        sync.RWMutex
	closed    bool
	retention *retentionState
}

// Open creates or opens a store at the given directory.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, &StorageError{Op: "open", Err: err}
	}

	s := &Store{badger: bdb}
	if err := s.recoverNextID(); err != nil {
		bdb.Close()
		return nil, err
	}
	return s, nil
}

// recoverNextID seeks the highest primary key so ids continue increasing
// across restarts.
func (s *Store) recoverNextID() error {
	err := s.badger.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true

		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixEvent)
		it.Seek(prefixEnd(prefix))
		if it.ValidForPrefix(prefix) {
			if id, ok := decodeID(it.Item().Key()); ok {
				s.nextID = id
			}
		}
		return nil
	})
	if err != nil {
		return &StorageError{Op: "recover id", Err: err}
	}
	return nil
}

// Close stops the retention loop and releases the underlying log.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if s.retention != nil && s.retention.isRunning() {
		s.retention.cancel()
		<-s.retention.done
	}

	s.closed = true
	return s.badger.Close()
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Append durably writes the event and returns its assigned id. Ids are
// unique and strictly increasing for the lifetime of the store. The event
// payload is persisted byte-for-byte.
func (s *Store) Append(event models.Event) (int64, error) {
	if s.isClosed() {
		return 0, ErrClosed
	}

	rec := record{Event: event, CreatedAt: time.Now().UTC()}

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	id := s.nextID + 1
	rec.ID = id

	data, err := json.Marshal(rec)
	if err != nil {
		return 0, &SerializationError{Err: err}
	}

	err = s.badger.Update(func(txn *badger.Txn) error {
		if err := txn.Set(encodeEventKey(id), data); err != nil {
			return fmt.Errorf("write event %d: %w", id, err)
		}
		if err := txn.Set(encodeTimeKey(rec.Timestamp, id), nil); err != nil {
			return fmt.Errorf("write time index: %w", err)
		}
		if err := txn.Set(encodeFieldKey(prefixSession, rec.SessionID, rec.Timestamp, id), nil); err != nil {
			return fmt.Errorf("write session index: %w", err)
		}
		if err := txn.Set(encodeFieldKey(prefixSource, rec.SourceApp, rec.Timestamp, id), nil); err != nil {
			return fmt.Errorf("write source index: %w", err)
		}
		if err := txn.Set(encodeFieldKey(prefixType, rec.EventType, rec.Timestamp, id), nil); err != nil {
			return fmt.Errorf("write type index: %w", err)
		}
		if err := txn.Set(encodeCreatedKey(rec.CreatedAt.UnixNano(), id), nil); err != nil {
			return fmt.Errorf("write created index: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, &StorageError{Op: "append", Err: err}
	}

	s.nextID = id
	return id, nil
}

// Get retrieves a single event by id.
func (s *Store) Get(id int64) (*models.Event, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	var rec record
	err := s.badger.View(func(txn *badger.Txn) error {
		item, err := txn.Get(encodeEventKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "get", Err: err}
	}
	return &rec.Event, nil
}

// Count returns the total number of stored events.
func (s *Store) Count() (int64, error) {
	if s.isClosed() {
		return 0, ErrClosed
	}

	var count int64
	err := s.badger.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixEvent)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, &StorageError{Op: "count", Err: err}
	}
	return count, nil
}
