// Copyright 2025 Certen Protocol
package poda

import (
	"context"
	"errors"
	"testing"
)

func TestPollParallel_CollectsTruthyResults(t *testing.T) {
	inputs := []int{1, 2, 3, 4}
	out := PollParallel(context.Background(), inputs, func(_ context.Context, in int) (bool, int, error) {
		return true, in * 10, nil
	})
	if len(out) != 4 {
		t.Fatalf("expected 4 results, got %d", len(out))
	}
	for i, v := range out {
		if v != (i+1)*10 {
			t.Fatalf("result order must mirror input order: out[%d] = %d", i, v)
		}
	}
}

func TestPollParallel_DropsFailuresInIsolation(t *testing.T) {
	inputs := []int{1, 2, 3, 4, 5}
	out := PollParallel(context.Background(), inputs, func(_ context.Context, in int) (bool, int, error) {
		switch in {
		case 2:
			return false, 0, nil // non-truthy
		case 3:
			return false, 0, errors.New("peer unreachable")
		case 4:
			panic("worker crash")
		}
		return true, in, nil
	})
	if len(out) != 2 {
		t.Fatalf("expected only the 2 successful inputs, got %d: %v", len(out), out)
	}
	if out[0] != 1 || out[1] != 5 {
		t.Fatalf("survivors must keep input order: %v", out)
	}
}

func TestPollParallel_EmptyInputs(t *testing.T) {
	out := PollParallel(context.Background(), nil, func(_ context.Context, in int) (bool, int, error) {
		t.Fatal("fn must not be called with no inputs")
		return false, 0, nil
	})
	if len(out) != 0 {
		t.Fatalf("expected no results, got %v", out)
	}
}
