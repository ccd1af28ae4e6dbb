// Package scope implements the 27 fixed per-letter scopes: each
// holds a 32-slot workspace of tagged values plus the compiled
// byte-stream of its last-defined body, capped at 256 bytes.
package scope

import (
	"github.com/arl-lang/arl/internal/handle"
	"github.com/arl-lang/arl/internal/ierr"
	"github.com/arl-lang/arl/internal/value"
)

const (
	Count         = 27 // 26 letters + the unnamed top-level scope
	WorkspaceSize = 32
	MaxBody       = 256

	// ArgSlot is the reserved workspace slot a callee's implicit
	// right argument is bound into.
	ArgSlot = 0
)

// Scope is one named storage area: a workspace of boxed/atomic values
// and one compiled byte-stream body.
type Scope struct {
	Vars  [WorkspaceSize]value.Value
	Body  [MaxBody]byte
	Len   int
	InUse bool // guards x:: redefinition while this scope is on the call stack
}

// Table is the fixed array of all 27 scopes, a process-wide
// singleton threaded through a context rather than held in
// package-level statics.
type Table struct {
	scopes [Count]Scope
}

func New() *Table { return &Table{} }

// Index maps a scope letter 'a'..'z' to its table slot. Letter 0 names
// the unnamed top-level scope, which lives at index 0.
func Index(letter byte) int {
	if letter == 0 {
		return 0
	}
	return int(letter-'a') + 1
}

func (t *Table) Scope(i int) *Scope { return &t.scopes[i] }

// SetBody overwrites a scope's compiled byte-stream in place on
// every re-definition.
func (s *Scope) SetBody(b []byte) error {
	if len(b) > MaxBody {
		return ierr.New(ierr.Parse, 0)
	}
	n := copy(s.Body[:], b)
	s.Len = n
	return nil
}

// Teardown releases every live binding across every scope's
// workspace, used at process exit and by tests checking that every
// handle ends up free.
func (t *Table) Teardown(h *handle.Table) {
	for i := range t.scopes {
		s := &t.scopes[i]
		for j := range s.Vars {
			if s.Vars[j] != 0 {
				h.Release(s.Vars[j])
				s.Vars[j] = 0
			}
		}
	}
}
