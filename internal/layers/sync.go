package layers

import (
	"context"
	"errors"
	"log"
	"sync"
)

// State is the lifecycle state of an optional layer.
type State int

const (
	Absent State = iota
	Loading
	Present
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Loading:
		return "loading"
	case Present:
		return "present"
	}
	return "unknown"
}

// ErrNoData is returned by a FetchFunc when the collaborator had nothing to
// offer. It keeps the layer absent without being logged as a failure.
var ErrNoData = errors.New("no data available")

// FetchFunc loads a layer payload. A nil payload counts as no data.
type FetchFunc func(ctx context.Context) (any, error)

// Sync drives one optional layer between absent, loading and present.
type Sync struct {
	name   string
	reg    *Registry
	fetch  FetchFunc
	parent context.Context

	// OnSettled runs after each fetch that was applied, outside the lock.
	OnSettled func(State)

	mu      sync.Mutex
	state   State
	visible bool
	gen     uint64
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewSync creates a sync for layer name. Fetches run under parent.
func NewSync(parent context.Context, name string, reg *Registry, fetch FetchFunc) *Sync {
	return &Sync{
		name:   name,
		reg:    reg,
		fetch:  fetch,
		parent: parent,
	}
}

// Name returns the layer name.
func (s *Sync) Name() string { return s.name }

// State returns the current lifecycle state.
func (s *Sync) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Visible returns the last requested visibility.
func (s *Sync) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

// Generation returns the token of the newest issued fetch.
func (s *Sync) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// SetVisible applies a visibility flag. Turning on an absent layer starts a
// fetch; turning off removes the rendered handle and invalidates any fetch in
// flight. Repeating the current value is a no-op.
func (s *Sync) SetVisible(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.visible = v
	if v {
		if s.state == Absent {
			s.startLocked()
		}
		return
	}

	s.gen++
	s.stopLocked()
	if s.state == Present {
		s.reg.Remove(s.name)
	}
	s.state = Absent
}

// Refresh refetches a visible layer after its source data changed. The
// rendered handle stays in place until the new payload replaces it.
func (s *Sync) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.visible {
		return
	}
	s.startLocked()
}

// Wait blocks until every fetch started so far has finished.
func (s *Sync) Wait() {
	s.wg.Wait()
}

// Close cancels any fetch in flight.
func (s *Sync) Close() {
	s.mu.Lock()
	s.gen++
	s.stopLocked()
	s.mu.Unlock()
}

func (s *Sync) startLocked() {
	s.gen++
	gen := s.gen
	s.stopLocked()

	ctx, cancel := context.WithCancel(s.parent)
	s.cancel = cancel
	if s.state == Absent {
		s.state = Loading
	}

	s.wg.Add(1)
	go s.run(ctx, cancel, gen)
}

func (s *Sync) stopLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Sync) run(ctx context.Context, cancel context.CancelFunc, gen uint64) {
	defer s.wg.Done()
	defer cancel()

	payload, err := s.fetch(ctx)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		log.Printf("[sync] %s: dropped stale result (gen %d, current %d)", s.name, gen, s.gen)
		return
	}
	s.cancel = nil

	if err != nil && !errors.Is(err, ErrNoData) {
		log.Printf("[sync] %s: fetch failed: %v", s.name, err)
	}
	if err != nil || payload == nil {
		if s.state == Present {
			s.reg.Remove(s.name)
		}
		s.state = Absent
	} else {
		s.reg.Put(s.name, gen, payload)
		s.state = Present
	}
	state := s.state
	onSettled := s.OnSettled
	s.mu.Unlock()

	if onSettled != nil {
		onSettled(state)
	}
}
