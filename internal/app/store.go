package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/bluele/gcache"
	"github.com/google/uuid"
)

// Store keeps one State per session id, evicting idle sessions.
type Store struct {
	ctx   context.Context
	deps  Deps
	cache gcache.Cache
}

// NewStore creates a store holding at most size sessions, each expiring ttl
// after its last use.
func NewStore(ctx context.Context, deps Deps, size int, ttl time.Duration) *Store {
	if size <= 0 {
		size = 1000
	}
	closeState := func(key, value any) {
		if s, ok := value.(*State); ok {
			log.Printf("[session] %s closed", s.ID)
			s.Close()
		}
	}
	b := gcache.New(size).LRU().
		EvictedFunc(closeState).
		PurgeVisitorFunc(closeState)
	if ttl > 0 {
		b = b.Expiration(ttl)
	}
	return &Store{ctx: ctx, deps: deps, cache: b.Build()}
}

// Get returns the session for id, creating a fresh one under a new id when id
// is empty or unknown. The returned id is the one to hand back to the client.
func (st *Store) Get(id string) (*State, string) {
	if id != "" {
		if v, err := st.cache.Get(id); err == nil {
			return v.(*State), id
		} else if !errors.Is(err, gcache.KeyNotFoundError) {
			log.Printf("[session] lookup %s: %v", id, err)
		}
	}
	return st.create()
}

func (st *Store) create() (*State, string) {
	id := uuid.NewString()
	s := New(st.ctx, id, st.deps)
	if err := st.cache.Set(id, s); err != nil {
		log.Printf("[session] store %s: %v", id, err)
	}
	return s, id
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	return st.cache.Len(true)
}

// Close drops and closes every session.
func (st *Store) Close() {
	st.cache.Purge()
}
