package counter

import (
	"context"
	"sync"
	"time"
)

// implements Store using in-memory storage
type MemoryStore struct {
	mu      sync.Mutex
	records map[memoryKey]*Record
	now     func() time.Time
}

type memoryKey struct {
	userID string
	date   string
}

// creates a new in-memory counter store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[memoryKey]*Record),
		now:     time.Now,
	}
}

// retrieves the record for a user and date
func (s *MemoryStore) Get(_ context.Context, userID, date string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.records[memoryKey{userID, date}]
	if !exists {
		return nil, nil
	}

	cp := *record
	return &cp, nil
}

// increments the count while it is below limit
func (s *MemoryStore) IncrementBelow(_ context.Context, userID, date string, limit int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoryKey{userID, date}
	record, exists := s.records[key]

	current := 0
	if exists {
		current = record.Count
	}

	if current >= limit {
		return current, false, nil
	}

	if !exists {
		record = &Record{UserID: userID, Date: date}
		s.records[key] = record
	}

	record.Count++
	record.UpdatedAt = s.now().UTC()

	return record.Count, true, nil
}

// decrements the count, floored at zero
func (s *MemoryStore) Decrement(_ context.Context, userID, date string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.records[memoryKey{userID, date}]
	if !exists || record.Count == 0 {
		return 0, nil
	}

	record.Count--
	record.UpdatedAt = s.now().UTC()

	return record.Count, nil
}

// stores a record verbatim (seeding fixtures and past days)
func (s *MemoryStore) Put(record Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[memoryKey{record.UserID, record.Date}] = &record
}

// number of records held, across all dates
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records)
}
