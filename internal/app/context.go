package app

import "context"

type ctxKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *State) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session state installed by the session
// middleware. It panics when there is none: a handler reading state outside
// a session is a wiring bug, not a runtime condition.
func FromContext(ctx context.Context) *State {
	s, ok := ctx.Value(ctxKey{}).(*State)
	if !ok || s == nil {
		panic("app: FromContext called without session state; route is not wrapped by the session middleware")
	}
	return s
}

// FromContextOK is the non-panicking variant of FromContext.
func FromContextOK(ctx context.Context) (*State, bool) {
	s, ok := ctx.Value(ctxKey{}).(*State)
	return s, ok && s != nil
}
