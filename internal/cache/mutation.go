package cache

import (
	"context"
	"sync"
)

// MutationStatus is the state of a write.
type MutationStatus int

const (
	MutationIdle MutationStatus = iota
	MutationPending
	MutationSuccess
	MutationError
)

func (s MutationStatus) String() string {
	switch s {
	case MutationIdle:
		return "idle"
	case MutationPending:
		return "pending"
	case MutationSuccess:
		return "success"
	case MutationError:
		return "error"
	default:
		return "unknown"
	}
}

// MutationResult is what a Mutation reports to its subscribers.
type MutationResult[Out any] struct {
	Status       MutationStatus
	Data         Out
	Err          error
	FailureCount int
}

// IsPending reports whether a write is in flight.
func (r MutationResult[Out]) IsPending() bool { return r.Status == MutationPending }

// MutationOptions configure a Mutation. OnSuccess runs before subscribers see
// the success state, so cache invalidation it performs is already visible.
type MutationOptions[In, Out any] struct {
	Retry     RetryPolicy
	OnSuccess func(out Out, in In)
	OnError   func(err error, in In)
}

// Mutation wraps a write operation. Writes are never de-duplicated or cached;
// their side effects on the cache live in OnSuccess.
type Mutation[In, Out any] struct {
	m    *Manager
	fn   func(context.Context, In) (Out, error)
	opts MutationOptions[In, Out]

	mu      sync.Mutex
	result  MutationResult[Out]
	subs    map[int]func(MutationResult[Out])
	nextSub int
}

// NewMutation creates an idle mutation.
func NewMutation[In, Out any](m *Manager, fn func(context.Context, In) (Out, error), opts MutationOptions[In, Out]) *Mutation[In, Out] {
	return &Mutation[In, Out]{
		m:    m,
		fn:   fn,
		opts: opts,
		subs: make(map[int]func(MutationResult[Out])),
	}
}

// Mutate runs the write, retrying per policy, and fires the callbacks.
func (x *Mutation[In, Out]) Mutate(ctx context.Context, in In) (Out, error) {
	x.set(MutationResult[Out]{Status: MutationPending})

	failures := 0
	out, err := runWithRetry(ctx, x.opts.Retry, func(ctx context.Context) (Out, error) {
		return x.fn(ctx, in)
	}, func(attempt int, err error) {
		failures = attempt
		x.m.logger.Debug().Int("attempt", attempt).Err(err).Msg("mutation failed")
	})
	if err != nil {
		if x.opts.OnError != nil {
			x.opts.OnError(err, in)
		}
		x.set(MutationResult[Out]{Status: MutationError, Err: err, FailureCount: failures})
		return out, err
	}

	if x.opts.OnSuccess != nil {
		x.opts.OnSuccess(out, in)
	}
	x.set(MutationResult[Out]{Status: MutationSuccess, Data: out})
	return out, nil
}

// Result returns the state of the last write.
func (x *Mutation[In, Out]) Result() MutationResult[Out] {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.result
}

// Subscribe registers fn for every state change.
func (x *Mutation[In, Out]) Subscribe(fn func(MutationResult[Out])) (unsubscribe func()) {
	x.mu.Lock()
	id := x.nextSub
	x.nextSub++
	x.subs[id] = fn
	x.mu.Unlock()

	return func() {
		x.mu.Lock()
		delete(x.subs, id)
		x.mu.Unlock()
	}
}

// Reset returns the mutation to idle.
func (x *Mutation[In, Out]) Reset() {
	x.set(MutationResult[Out]{})
}

func (x *Mutation[In, Out]) set(r MutationResult[Out]) {
	x.mu.Lock()
	x.result = r
	subs := make([]func(MutationResult[Out]), 0, len(x.subs))
	for _, fn := range x.subs {
		subs = append(subs, fn)
	}
	x.mu.Unlock()
	for _, fn := range subs {
		fn(r)
	}
}
