// Copyright 2025 Certen Protocol
//
// Parallel Peer Poller: a generic concurrency helper that evaluates a
// function over N inputs in parallel, each in an isolated failure domain,
// joining unconditionally before returning.
package poda

import (
	"context"
	"sync"
)

// PollFunc evaluates a single input, returning (true, value, nil) on
// success. A false ok, or a non-nil error, drops that input's contribution
// silently; the caller never sees why.
type PollFunc[X any, Y any] func(ctx context.Context, in X) (ok bool, out Y, err error)

// PollParallel runs fn over every element of inputs concurrently, one
// goroutine per input, and waits for all of them before returning. A
// goroutine that panics is treated the same as one that returns ok=false:
// its contribution is dropped, the others are unaffected. The result slice
// preserves input order, not completion order; callers that need a
// canonical order sort downstream (the aggregator sorts by signer address).
func PollParallel[X any, Y any](ctx context.Context, inputs []X, fn PollFunc[X, Y]) []Y {
	type slot struct {
		ok  bool
		val Y
	}
	slots := make([]slot, len(inputs))

	var wg sync.WaitGroup
	for i, in := range inputs {
		wg.Add(1)
		go func(i int, in X) {
			defer wg.Done()
			defer func() {
				_ = recover() // an isolated worker crash is just a drop
			}()
			ok, val, err := fn(ctx, in)
			if err != nil || !ok {
				return
			}
			slots[i] = slot{ok: true, val: val}
		}(i, in)
	}
	wg.Wait()

	out := make([]Y, 0, len(inputs))
	for _, s := range slots {
		if s.ok {
			out = append(out, s.val)
		}
	}
	return out
}
