// Package eval implements the byte-stream evaluator: a single
// linear fetch-decode-execute pass. internal/compile already
// reorders bytes so a left-to-right scan reproduces right-to-left
// evaluation order (see compile.go's doc comment), so this package
// scans forward over a small value stack; the stack only ever holds
// the live operands of the pending verbs (a dyadic verb's left and
// right).
package eval

import (
	"github.com/arl-lang/arl/internal/compile"
	"github.com/arl-lang/arl/internal/handle"
	"github.com/arl-lang/arl/internal/ierr"
	"github.com/arl-lang/arl/internal/scope"
	"github.com/arl-lang/arl/internal/value"
	"github.com/arl-lang/arl/internal/verb"
)

// Evaluator bundles the collaborators a byte-stream walk needs: the
// scope table (variables + callee bodies), the handle table (retain/
// release on every binding), and verb dispatch's own context.
type Evaluator struct {
	Scopes  *scope.Table
	Handles *handle.Table
	VCtx    *verb.Context
}

func New(scopes *scope.Table, handles *handle.Table, vctx *verb.Context) *Evaluator {
	return &Evaluator{Scopes: scopes, Handles: handles, VCtx: vctx}
}

// Run executes the byte-stream already compiled into scope s.
func (e *Evaluator) Run(s int) (value.Value, error) {
	sc := e.Scopes.Scope(s)
	return e.exec(sc, sc.Body[:sc.Len])
}

// RunBody executes an explicit byte-stream (a freshly compiled
// top-level statement) against scope sc's workspace, without touching
// sc.Body — used by the REPL for one-off expressions that were never
// bound into a named scope via x::.
func (e *Evaluator) RunBody(sc *scope.Scope, body []byte) (value.Value, error) {
	return e.exec(sc, body)
}

// exec walks one byte-stream left to right over a small value
// stack: variable, verb, and assignment bytes, plus the
// OpReduce/OpApply stream ops internal/compile emits.
func (e *Evaluator) exec(sc *scope.Scope, body []byte) (value.Value, error) {
	// Save/restore rather than set/clear: a scope calling itself
	// re-enters exec, and the inner return must not drop the flag while
	// the outer frame is still executing.
	prev := sc.InUse
	sc.InUse = true
	defer func() { sc.InUse = prev }()

	var stack []value.Value
	fail := func(err error) (value.Value, error) {
		for _, v := range stack {
			e.Handles.Release(v)
		}
		return 0, err
	}

	i := 0
	for i < len(body) {
		b := body[i]
		switch {
		case b < scope.WorkspaceSize:
			v, err := e.Handles.Retain(sc.Vars[b])
			if err != nil {
				return fail(err)
			}
			stack = append(stack, v)
			i++

		case b == compile.OpAssign:
			if len(stack) == 0 || i+1 >= len(body) {
				return fail(ierr.New(ierr.Parse, 0))
			}
			slot := body[i+1]
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			v2, err := e.Handles.Retain(v)
			if err != nil {
				return fail(err)
			}
			old := sc.Vars[slot]
			sc.Vars[slot] = v
			e.Handles.Release(old)
			stack = append(stack, v2)
			i += 2

		case b == compile.OpReduce:
			if len(stack) == 0 || i+1 >= len(body) {
				return fail(ierr.New(ierr.Parse, 0))
			}
			code := verb.Code(body[i+1])
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			res, err := verb.Reduce(e.VCtx, code, v, code.Glyph())
			e.Handles.Release(v)
			if err != nil {
				return fail(err)
			}
			stack = append(stack, res)
			i += 2

		case b == compile.OpApply:
			if len(stack) == 0 || i+1 >= len(body) {
				return fail(ierr.New(ierr.Parse, 0))
			}
			calleeIdx := int(body[i+1])
			arg := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			res, err := e.apply(calleeIdx, arg)
			if err != nil {
				return fail(err)
			}
			stack = append(stack, res)
			i += 2

		case int(b) >= verb.ByteBase && int(b) < verb.ByteBase+verb.NumVerbs:
			code := verb.Code(int(b) - verb.ByteBase)
			if len(stack) == 0 {
				return fail(ierr.New(ierr.Parse, 0))
			}
			right := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			res, err := verb.Dispatch(e.VCtx, code, 0, false, right, code.Glyph())
			e.Handles.Release(right)
			if err != nil {
				return fail(err)
			}
			stack = append(stack, res)
			i++

		case int(b) >= verb.DyadicByteBase && int(b) < verb.DyadicByteBase+verb.NumVerbs:
			code := verb.Code(int(b) - verb.DyadicByteBase)
			if len(stack) < 2 {
				return fail(ierr.New(ierr.Parse, 0))
			}
			right := stack[len(stack)-1]
			left := stack[len(stack)-2]
			stack = stack[:len(stack)-2]
			res, err := verb.Dispatch(e.VCtx, code, left, true, right, code.Glyph())
			e.Handles.Release(left)
			e.Handles.Release(right)
			if err != nil {
				return fail(err)
			}
			stack = append(stack, res)
			i++

		default:
			return fail(ierr.New(ierr.Parse, 0))
		}
	}

	if len(stack) != 1 {
		return fail(ierr.New(ierr.Parse, 0))
	}
	return stack[0], nil
}

// apply binds arg into the callee scope's reserved argument slot,
// recursively evaluates its body, and restores whatever the slot
// held before the call on the way out. Saving and restoring the slot
// rather than merely clearing it is what makes a scope re-entrant: a
// function calling itself sees its own argument at each level
// instead of clobbering the caller's.
func (e *Evaluator) apply(calleeIdx int, arg value.Value) (value.Value, error) {
	callee := e.Scopes.Scope(calleeIdx)
	saved := callee.Vars[scope.ArgSlot]
	callee.Vars[scope.ArgSlot] = arg
	res, err := e.exec(callee, callee.Body[:callee.Len])
	e.Handles.Release(callee.Vars[scope.ArgSlot])
	callee.Vars[scope.ArgSlot] = saved
	if err != nil {
		return 0, err
	}
	return res, nil
}
