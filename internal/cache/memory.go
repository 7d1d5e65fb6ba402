package cache

import (
	"sort"
	"strconv"
	"time"
)

// entry is one cache slot. All fields are guarded by Manager.mu.
type entry struct {
	key            Key
	data           any
	hasData        bool
	err            error
	flights        int
	gen            uint64
	invalidated    bool
	dataUpdatedAt  time.Time
	errorUpdatedAt time.Time
	failureCount   int
	gcTime         time.Duration
	gcTimer        *time.Timer
}

// fetching reports whether any fetch for e is running.
func (e *entry) fetching() bool {
	return e.flights > 0
}

// flightKey names the shared fetch for e's current generation. Fetches
// started before an invalidation or removal never absorb later readers.
func (e *entry) flightKey() string {
	return e.key.hash() + "#" + strconv.FormatUint(e.gen, 10)
}

// memoryStore is the entry map. Callers hold Manager.mu.
type memoryStore struct {
	entries map[string]*entry
	seq     uint64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[string]*entry)}
}

func (s *memoryStore) get(key Key) *entry {
	return s.entries[key.hash()]
}

func (s *memoryStore) getOrCreate(key Key) (*entry, bool) {
	h := key.hash()
	if e, ok := s.entries[h]; ok {
		return e, false
	}
	e := &entry{key: append(Key(nil), key...)}
	s.bump(e)
	s.entries[h] = e
	return e, true
}

// bump moves e to a new generation. Generations are unique across the
// store, so a recreated key never matches an older flight.
func (s *memoryStore) bump(e *entry) {
	s.seq++
	e.gen = s.seq
}

// delete removes e only if it is still the live entry for its key.
func (s *memoryStore) delete(e *entry) bool {
	h := e.key.hash()
	if s.entries[h] != e {
		return false
	}
	delete(s.entries, h)
	return true
}

// match returns every entry whose key starts with prefix.
func (s *memoryStore) match(prefix Key) []*entry {
	var out []*entry
	for _, e := range s.entries {
		if e.key.HasPrefix(prefix) {
			out = append(out, e)
		}
	}
	return out
}

// keys returns all keys in a stable order.
func (s *memoryStore) keys() []Key {
	out := make([]Key, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.key)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].hash() < out[j].hash() })
	return out
}

func (s *memoryStore) len() int {
	return len(s.entries)
}

// reset drops every entry and stops their timers.
func (s *memoryStore) reset() {
	for _, e := range s.entries {
		if e.gcTimer != nil {
			e.gcTimer.Stop()
		}
		s.bump(e)
	}
	s.entries = make(map[string]*entry)
}
