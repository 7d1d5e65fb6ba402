// Package cache provides the in-memory query cache behind every DevDocs read
// and write.
//
// # Overview
//
// Each cached value lives under a hierarchical Key such as
// ["solutions", "detail", "<id>"]. The Manager owns all entries; reads go
// through Query (one-shot) or an Observer (a long-lived subscription that
// models a hook's state machine). Writes go through a Mutation whose success
// callback invalidates or removes related keys.
//
// # Entry Lifecycle
//
//   - Created on the first fetch for a key.
//   - Fresh for StaleTime after a successful fetch; fresh data is served
//     without a network call.
//   - Stale after StaleTime or after Invalidate; the next read refetches.
//   - Evicted GCTime after it was last used, once no observer watches it.
//   - Removed immediately by Remove.
//
// The cache is memory only and is rebuilt from the network on every run.
//
// # Fetch Semantics
//
// Only one fetch per key is in flight at a time: concurrent readers of the
// same key share the in-flight call and all receive its result. Failed
// fetches are retried according to the RetryPolicy; when retries are
// exhausted the error is recorded on the entry (keeping any previous data)
// and returned to every waiting caller.
//
// # Refetch Triggers
//
// Observers refetch when mounted (Start), on Focus and on reconnect
// (SetOnline false -> true) if their data is stale and they opted in, on a
// fixed RefetchInterval, and whenever their key is invalidated.
package cache

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrDisabled is returned when a disabled query is asked to fetch. A disabled
// query is not a failure: its observer simply stays idle.
var ErrDisabled = errors.New("query is disabled")

// Key identifies a cache slot. Keys are compared segment by segment and
// support prefix matching for broad invalidation.
type Key []string

// NewKey builds a key from its segments.
func NewKey(segments ...string) Key {
	return Key(segments)
}

// Append returns a new key extending k. k is never modified.
func (k Key) Append(segments ...string) Key {
	out := make(Key, 0, len(k)+len(segments))
	out = append(out, k...)
	return append(out, segments...)
}

// HasPrefix reports whether every segment of prefix matches the start of k.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Equal reports whether both keys have identical segments.
func (k Key) Equal(other Key) bool {
	return len(k) == len(other) && k.HasPrefix(other)
}

// String renders the key for logs, e.g. ["solutions","detail","42"].
func (k Key) String() string {
	parts := make([]string, len(k))
	for i, s := range k {
		parts[i] = strconv.Quote(s)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// hash is the map key for k. Segment boundaries are preserved by quoting.
func (k Key) hash() string {
	return k.String()
}

// Status is the state of a query as seen by its observers.
type Status int

const (
	// StatusIdle: disabled, or never asked to fetch.
	StatusIdle Status = iota
	// StatusLoading: first fetch in flight, no data yet.
	StatusLoading
	// StatusSuccess: data present and the last fetch succeeded.
	StatusSuccess
	// StatusError: the last fetch failed after exhausting retries.
	StatusError
	// StatusRefetching: data present and a newer fetch is in flight.
	StatusRefetching
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusRefetching:
		return "refetching"
	default:
		return "unknown"
	}
}

// Options configure one query.
type Options struct {
	// StaleTime is how long fetched data is served without refetching.
	// Zero means data is stale as soon as it arrives.
	StaleTime time.Duration
	// GCTime is how long an unobserved entry is retained. Zero selects the
	// manager default.
	GCTime time.Duration
	// Disabled queries never touch the network.
	Disabled bool
	Retry    RetryPolicy

	RefetchOnMount     bool
	RefetchOnFocus     bool
	RefetchOnReconnect bool
	// RefetchInterval polls while an observer is mounted. Zero disables polling.
	RefetchInterval time.Duration
}

// EntryState is a read-only snapshot of one cache entry.
type EntryState struct {
	Key            Key
	HasData        bool
	Err            error
	Fetching       bool
	Invalidated    bool
	Stale          bool
	DataUpdatedAt  time.Time
	ErrorUpdatedAt time.Time
	FailureCount   int
	Observers      int
}

// Result is what an Observer reports to its subscribers.
type Result[T any] struct {
	Status       Status
	Data         T
	HasData      bool
	Err          error
	IsFetching   bool
	IsStale      bool
	UpdatedAt    time.Time
	FailureCount int
}

// IsLoading reports whether the first fetch is still running.
func (r Result[T]) IsLoading() bool { return r.Status == StatusLoading }

// IsError reports whether the last fetch failed.
func (r Result[T]) IsError() bool { return r.Status == StatusError }

// IsSuccess reports whether data is available from a successful fetch.
func (r Result[T]) IsSuccess() bool {
	return r.Status == StatusSuccess || r.Status == StatusRefetching
}
