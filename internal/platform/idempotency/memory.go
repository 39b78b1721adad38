package idempotency

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultMemoryCapacity bounds MemoryStore when no capacity is given.
const DefaultMemoryCapacity = 10_000

// MemoryStore keeps records in process for single-instance deployments and tests. When
// full, Reserve evicts expired records first and then the record closest to expiry.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	records  map[string]Record
}

// MemoryOption customises NewMemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryCapacity caps the number of stored keys.
func WithMemoryCapacity(n int) MemoryOption {
	return func(s *MemoryStore) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{capacity: DefaultMemoryCapacity, records: map[string]Record{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// live returns the unexpired record for key, dropping it when expired.
func (s *MemoryStore) live(id string, now time.Time) (Record, bool) {
	record, ok := s.records[id]
	if ok && record.expired(now) {
		delete(s.records, id)
		return Record{}, false
	}
	return record, ok
}

func (s *MemoryStore) makeRoom(now time.Time) {
	if len(s.records) < s.capacity {
		return
	}
	s.removeExpired(now, 0)
	if len(s.records) < s.capacity {
		return
	}
	var victim string
	var soonest time.Time
	for id, record := range s.records {
		if victim == "" || record.ExpiresAt.Before(soonest) {
			victim, soonest = id, record.ExpiresAt
		}
	}
	delete(s.records, victim)
}

// removeExpired deletes expired records, oldest expiry first, up to limit (0 = all).
func (s *MemoryStore) removeExpired(now time.Time, limit int) int {
	var ids []string
	for id, record := range s.records {
		if record.expired(now) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.records[ids[i]].ExpiresAt.Before(s.records[ids[j]].ExpiresAt)
	})
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	for _, id := range ids {
		delete(s.records, id)
	}
	return len(ids)
}

// Reserve implements Store.
func (s *MemoryStore) Reserve(_ context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Reservation, error) {
	now, ttl = now.UTC(), effectiveTTL(ttl)
	id := documentID(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.live(id, now)
	switch {
	case !ok:
		s.makeRoom(now)
		record = pendingRecord(key, fingerprint, now, ttl)
		s.records[id] = record
		return Reservation{State: ReservationStateNew, Record: record}, nil
	case record.Fingerprint != fingerprint:
		return Reservation{}, ErrFingerprintMismatch
	case record.Status == StatusCompleted:
		return Reservation{State: ReservationStateCompleted, Record: record}, nil
	default:
		return Reservation{State: ReservationStatePending, Record: record}, nil
	}
}

// SaveResponse implements Store.
func (s *MemoryStore) SaveResponse(_ context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	now, ttl = now.UTC(), effectiveTTL(ttl)
	id := documentID(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.live(id, now)
	if !ok {
		s.makeRoom(now)
		record = pendingRecord(key, fingerprint, now, ttl)
	} else if record.Fingerprint != fingerprint {
		return ErrFingerprintMismatch
	}
	s.records[id] = record.complete(resp, now, ttl)
	return nil
}

// Release implements Store.
func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.records, documentID(key))
	s.mu.Unlock()
	return nil
}

// CleanupExpired implements Store.
func (s *MemoryStore) CleanupExpired(_ context.Context, now time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeExpired(now.UTC(), limit), nil
}

// Len reports the number of stored records, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
