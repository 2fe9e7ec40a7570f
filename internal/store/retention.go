package store

import (
	"context"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/agentsight/agentsight/internal/metrics"
)

// RetentionPolicy controls automatic deletion of old events by insertion
// age. The producer timestamp plays no part here.
type RetentionPolicy struct {
	// MaxAge is the maximum insertion age. Zero disables retention.
	MaxAge time.Duration

	// CleanupInterval is how often the cleanup pass runs.
	// Defaults to MaxAge/10, floored at one minute.
	CleanupInterval time.Duration
}

type retentionState struct {
	policy  RetentionPolicy
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
	running bool
}

func (s *retentionState) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetRetention configures the retention policy and starts background
// cleanup. Calling it again replaces the running policy; a zero MaxAge
// stops cleanup.
func (s *Store) SetRetention(policy RetentionPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retention != nil && s.retention.isRunning() {
		s.retention.cancel()
		<-s.retention.done
	}

	if policy.MaxAge == 0 {
		s.retention = nil
		return
	}

	if policy.CleanupInterval == 0 {
		policy.CleanupInterval = policy.MaxAge / 10
		if policy.CleanupInterval < time.Minute {
			policy.CleanupInterval = time.Minute
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	state := &retentionState{
		policy:  policy,
		cancel:  cancel,
		done:    make(chan struct{}),
		running: true,
	}
	s.retention = state

	go s.runRetentionCleanup(ctx, state)
}

func (s *Store) runRetentionCleanup(ctx context.Context, state *retentionState) {
	defer close(state.done)
	defer func() {
		state.mu.Lock()
		state.running = false
		state.mu.Unlock()
	}()

	ticker := time.NewTicker(state.policy.CleanupInterval)
	defer ticker.Stop()

	// Calls the unexported path: Close holds the lifecycle lock while
	// waiting for this goroutine, so the closed check must be skipped.
	s.deleteBefore(time.Now().Add(-state.policy.MaxAge))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.deleteBefore(time.Now().Add(-state.policy.MaxAge))
		}
	}
}

// PruneOlderThan deletes every event whose insertion instant is older than
// the given number of days and reports how many were removed. Negative
// values are treated as zero, which removes everything.
func (s *Store) PruneOlderThan(days int) (int64, error) {
	if days < 0 {
		days = 0
	}
	return s.DeleteBefore(time.Now().Add(-time.Duration(days) * 24 * time.Hour))
}

// DeleteBefore removes all events inserted before the cutoff. Deletion runs
// in bounded batches so a large prune does not exceed transaction limits or
// starve concurrent appends and queries.
func (s *Store) DeleteBefore(cutoff time.Time) (int64, error) {
	if s.isClosed() {
		return 0, ErrClosed
	}
	return s.deleteBefore(cutoff)
}

func (s *Store) deleteBefore(cutoff time.Time) (int64, error) {
	const batchSize = 1024

	var total int64
	for {
		n, err := s.deleteBatch(cutoff, batchSize)
		total += n
		if err != nil {
			return total, err
		}
		if n < batchSize {
			metrics.EventsPruned.Add(float64(total))
			return total, nil
		}
	}
}

func (s *Store) deleteBatch(cutoff time.Time, limit int64) (int64, error) {
	var deleted int64

	err := s.badger.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)

		prefix := []byte(prefixCreated)
		type target struct {
			id         int64
			createdKey []byte
		}
		var targets []target

		// The retention index is insertion-time ordered, so the scan can
		// stop at the first entry at or past the cutoff.
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			createdNanos, ok := decodeCreatedKey(key)
			if !ok {
				continue
			}
			if !time.Unix(0, createdNanos).Before(cutoff) {
				break
			}
			id, ok := decodeID(key)
			if !ok {
				continue
			}
			targets = append(targets, target{id: id, createdKey: key})
			if int64(len(targets)) >= limit {
				break
			}
		}
		it.Close()

		for _, t := range targets {
			rec, err := fetchRecord(txn, t.id)
			if err != nil {
				continue
			}
			if err := s.deleteEventAndIndexes(txn, rec, t.createdKey); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return deleted, &StorageError{Op: "prune", Err: err}
	}
	return deleted, nil
}

func (s *Store) deleteEventAndIndexes(txn *badger.Txn, rec *record, createdKey []byte) error {
	if err := txn.Delete(encodeEventKey(rec.ID)); err != nil {
		return err
	}
	if err := txn.Delete(encodeTimeKey(rec.Timestamp, rec.ID)); err != nil {
		return err
	}
	if err := txn.Delete(encodeFieldKey(prefixSession, rec.SessionID, rec.Timestamp, rec.ID)); err != nil {
		return err
	}
	if err := txn.Delete(encodeFieldKey(prefixSource, rec.SourceApp, rec.Timestamp, rec.ID)); err != nil {
		return err
	}
	if err := txn.Delete(encodeFieldKey(prefixType, rec.EventType, rec.Timestamp, rec.ID)); err != nil {
		return err
	}
	return txn.Delete(createdKey)
}
