package store

import (
	"encoding/json"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/agentsight/agentsight/internal/models"
)

// DefaultLimit is applied when a query specifies no limit, or a zero or
// negative one.
const DefaultLimit = 100

// Query selects events. All supplied filters must match (logical AND);
// empty fields are ignored. Results are ordered by producer timestamp,
// descending.
type Query struct {
	Limit     int
	SourceApp string
	SessionID string
	EventType string
}

// Query returns events matching q, newest producer timestamp first,
// truncated to the limit.
func (s *Store) Query(q Query) ([]models.Event, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}

	events := make([]models.Event, 0, min(q.Limit, 64))
	err := s.badger.View(func(txn *badger.Txn) error {
		// One indexed field drives the scan; the rest filter in memory.
		// Session is assumed most selective, then source, then type.
		var prefix []byte
		switch {
		case q.SessionID != "":
			prefix = encodeFieldPrefix(prefixSession, q.SessionID)
		case q.SourceApp != "":
			prefix = encodeFieldPrefix(prefixSource, q.SourceApp)
		case q.EventType != "":
			prefix = encodeFieldPrefix(prefixType, q.EventType)
		default:
			prefix = []byte(prefixTime)
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefixEnd(prefix)); it.ValidForPrefix(prefix); it.Next() {
			id, ok := decodeID(it.Item().Key())
			if !ok {
				continue
			}

			rec, err := fetchRecord(txn, id)
			if err != nil {
				continue
			}
			if !matches(&rec.Event, q) {
				continue
			}

			events = append(events, rec.Event)
			if len(events) >= q.Limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, &StorageError{Op: "query", Err: err}
	}
	return events, nil
}

// Sessions returns every distinct sessionId ordered by the session's most
// recent producer timestamp, descending. Each distinct value costs one
// reverse seek rather than a scan of its entries.
func (s *Store) Sessions() ([]string, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	type sessionRecency struct {
		session string
		latest  string
	}

	var found []sessionRecency
	err := s.badger.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true

		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixSession)
		// Walking backwards, the first key seen for each session carries
		// its newest timestamp. Seeking to is:<session> (no separator)
		// then lands on the preceding session's newest entry, since every
		// key of the current session sorts above that target.
		for it.Seek(prefixEnd(prefix)); it.ValidForPrefix(prefix); {
			key := it.Item().KeyCopy(nil)
			session, ok := decodeFieldValue(key, prefixSession)
			if !ok {
				break
			}
			latest, _ := decodeIndexTimestamp(key, prefixSession, session)
			found = append(found, sessionRecency{session: session, latest: latest})

			it.Seek(append([]byte(prefixSession), session...))
		}
		return nil
	})
	if err != nil {
		return nil, &StorageError{Op: "sessions", Err: err}
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].latest > found[j].latest
	})

	sessions := make([]string, len(found))
	for i, f := range found {
		sessions[i] = f.session
	}
	return sessions, nil
}

// Sources returns every distinct sourceApp in lexicographic order. The
// forward scan skips from each value straight past its index entries.
func (s *Store) Sources() ([]string, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	sources := make([]string, 0, 8)
	err := s.badger.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixSource)
		for it.Seek(prefix); it.ValidForPrefix(prefix); {
			source, ok := decodeFieldValue(it.Item().Key(), prefixSource)
			if !ok {
				break
			}
			sources = append(sources, source)
			it.Seek(prefixEnd(encodeFieldPrefix(prefixSource, source)))
		}
		return nil
	})
	if err != nil {
		return nil, &StorageError{Op: "sources", Err: err}
	}
	return sources, nil
}

// decodeIndexTimestamp extracts the timestamp segment of a field index key,
// the bytes between the value separator and the trailing id.
func decodeIndexTimestamp(key []byte, prefix, value string) (string, bool) {
	start := len(prefix) + len(value) + 1
	end := len(key) - idLen - 1
	if start > end {
		return "", false
	}
	return string(key[start:end]), true
}

func fetchRecord(txn *badger.Txn, id int64) (*record, error) {
	item, err := txn.Get(encodeEventKey(id))
	if err != nil {
		return nil, err
	}
	var rec record
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func matches(e *models.Event, q Query) bool {
	if q.SessionID != "" && e.SessionID != q.SessionID {
		return false
	}
	if q.SourceApp != "" && e.SourceApp != q.SourceApp {
		return false
	}
	if q.EventType != "" && e.EventType != q.EventType {
		return false
	}
	return true
}
