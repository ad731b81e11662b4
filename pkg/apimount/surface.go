// pkg/apimount/surface.go
package apimount

import (
	"context"
	"sort"
)

// Handler is one callable member of an API surface. Args arrive positionally
// from the wire payload; the returned value (or error) becomes the response.
type Handler func(ctx context.Context, args []any) (any, error)

// Method pairs a surface entry's name with its handler.
type Method struct {
	Name    string
	Handler Handler
}

// Surface is the explicit capability behind a mount: an ordered sequence of
// (name, handler) pairs, plus the originating type identity when one exists.
// TypeName returns "" for surfaces with no type identity (plain mappings);
// class-based mounting needs a non-empty one.
type Surface interface {
	Methods() []Method
	TypeName() string
}

// mapSurface exposes a plain mapping of handlers. No type identity.
type mapSurface struct{ methods []Method }

// FromMap builds a surface from a name->handler mapping. Iteration order is
// by sorted name so binding is deterministic.
func FromMap(handlers map[string]Handler) Surface {
	names := make([]string, 0, len(handlers))
	for n := range handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	ms := make([]Method, 0, len(names))
	for _, n := range names {
		ms = append(ms, Method{Name: n, Handler: handlers[n]})
	}
	return &mapSurface{methods: ms}
}

func (s *mapSurface) Methods() []Method { return s.methods }
func (s *mapSurface) TypeName() string  { return "" }
