package layers

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
)

func constFetch(payload any) FetchFunc {
	return func(ctx context.Context) (any, error) { return payload, nil }
}

func TestToggleNeverDuplicates(t *testing.T) {
	reg := NewRegistry(nil)
	s := NewSync(context.Background(), Population, reg, constFetch("heat"))

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		s.SetVisible(rng.Intn(2) == 0)
		if i%7 == 0 {
			s.Wait()
		}
		if n := reg.Count(Population); n > 1 {
			t.Fatalf("step %d: %d instances", i, n)
		}
	}

	s.SetVisible(true)
	s.SetVisible(true)
	s.Wait()
	if reg.Count(Population) != 1 || s.State() != Present {
		t.Fatalf("count=%d state=%s, want 1 present", reg.Count(Population), s.State())
	}

	s.SetVisible(false)
	s.SetVisible(false)
	if reg.Count(Population) != 0 || s.State() != Absent {
		t.Fatalf("count=%d state=%s, want 0 absent", reg.Count(Population), s.State())
	}
}

func TestStaleFetchDiscarded(t *testing.T) {
	reg := NewRegistry(nil)
	release := make(chan string, 2)
	var calls atomic.Int32
	fetch := func(ctx context.Context) (any, error) {
		calls.Add(1)
		// Ignore cancellation so the stale result actually arrives.
		return <-release, nil
	}
	s := NewSync(context.Background(), Transit, reg, fetch)

	s.SetVisible(true)  // gen 1
	s.SetVisible(false) // invalidates gen 1
	s.SetVisible(true)  // gen 3

	release <- "first"
	release <- "second"
	s.Wait()

	h, ok := reg.Get(Transit)
	if !ok {
		t.Fatal("layer missing")
	}
	if h.Generation != s.Generation() {
		t.Errorf("handle gen=%d, current=%d", h.Generation, s.Generation())
	}
	if calls.Load() != 2 {
		t.Errorf("calls=%d, want 2", calls.Load())
	}
}

func TestEmptyResultStaysAbsent(t *testing.T) {
	tests := []struct {
		name  string
		fetch FetchFunc
	}{
		{"nil payload", constFetch(nil)},
		{"no data", func(context.Context) (any, error) { return nil, ErrNoData }},
		{"error", func(context.Context) (any, error) { return nil, errors.New("boom") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry(nil)
			s := NewSync(context.Background(), Population, reg, tt.fetch)
			s.SetVisible(true)
			s.Wait()
			if s.State() != Absent || reg.Has(Population) {
				t.Fatalf("state=%s has=%v", s.State(), reg.Has(Population))
			}
		})
	}
}

func TestRefreshReplacesInPlace(t *testing.T) {
	bus := NewBus()
	events := bus.Subscribe()
	defer bus.Unsubscribe(events)

	reg := NewRegistry(bus)
	var n atomic.Int32
	s := NewSync(context.Background(), UserPoints, reg, func(context.Context) (any, error) {
		return int(n.Add(1)), nil
	})

	s.SetVisible(true)
	s.Wait()
	s.Refresh()
	s.Wait()

	h, _ := reg.Get(UserPoints)
	if h.Payload != 2 {
		t.Fatalf("payload=%v, want 2", h.Payload)
	}

	var actions []string
	for len(events) > 0 {
		actions = append(actions, (<-events).Action)
	}
	if len(actions) != 2 || actions[0] != "added" || actions[1] != "replaced" {
		t.Fatalf("actions=%v, want [added replaced]", actions)
	}
}

func TestRefreshIgnoredWhenHidden(t *testing.T) {
	reg := NewRegistry(nil)
	var calls atomic.Int32
	s := NewSync(context.Background(), Transit, reg, func(context.Context) (any, error) {
		calls.Add(1)
		return "x", nil
	})
	s.Refresh()
	s.Wait()
	if calls.Load() != 0 {
		t.Fatalf("calls=%d, want 0", calls.Load())
	}
}

func TestOnSettled(t *testing.T) {
	reg := NewRegistry(nil)
	s := NewSync(context.Background(), Transit, reg, constFetch("x"))
	var got State = -1
	s.OnSettled = func(st State) { got = st }
	s.SetVisible(true)
	s.Wait()
	if got != Present {
		t.Fatalf("settled state=%s, want present", got)
	}
}
