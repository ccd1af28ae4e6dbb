// Package repl drives the line loop and meta-command dispatcher:
// read a line, trim it, and either dispatch a leading '\'
// meta-command or compile-and-evaluate it as an expression against
// one persistent interpreter context.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/arl-lang/arl/internal/compile"
	"github.com/arl-lang/arl/internal/eval"
	"github.com/arl-lang/arl/internal/handle"
	"github.com/arl-lang/arl/internal/ierr"
	"github.com/arl-lang/arl/internal/pool"
	"github.com/arl-lang/arl/internal/printer"
	"github.com/arl-lang/arl/internal/scope"
	"github.com/arl-lang/arl/internal/verb"
	"github.com/arl-lang/arl/internal/workerpool"
)

// REPL bundles one process's worth of interpreter state. The pool,
// handle table, and scope table are process-wide singletons, threaded
// through this context rather than held as package-level statics.
type REPL struct {
	Pool     *pool.Allocator
	Handles  *handle.Table
	Scopes   *scope.Table
	Workers  *workerpool.Pool
	Compiler *compile.Compiler
	Eval     *eval.Evaluator

	Out io.Writer
	Err io.Writer

	nopBaseline time.Duration
}

// New builds a fresh interpreter context with an N-worker pool,
// calibrating the \t baseline against a 200,000-iteration NOP loop.
func New(workers int) *REPL {
	p := pool.New()
	h := handle.New(p)
	sc := scope.New()
	wp := workerpool.New(workers)
	r := &REPL{
		Pool:     p,
		Handles:  h,
		Scopes:   sc,
		Workers:  wp,
		Compiler: compile.New(sc, h),
		Eval:     eval.New(sc, h, &verb.Context{Handles: h, Workers: wp}),
		Out:      os.Stdout,
		Err:      os.Stderr,
	}
	r.nopBaseline = calibrate()
	return r
}

// calibrate measures the cost of a 200,000-iteration NOP loop once at
// startup, used to discount fixed overhead from \t's reported
// per-iteration time.
func calibrate() time.Duration {
	start := time.Now()
	x := 0
	for i := 0; i < 200000; i++ {
		x += i
	}
	_ = x
	return time.Since(start)
}

// Run drives the line loop over in, returning the process exit code:
// 0 on clean quit, 1 on fatal error.
func (r *REPL) Run(in io.Reader) int {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if !r.RunLine(scanner.Text()) {
			return 0
		}
	}
	return 0
}

// RunScripts executes each file in order, as if its lines had been
// typed at the REPL, then returns whether to continue (false if a
// script issued \q).
func (r *REPL) RunScripts(paths []string) (bool, error) {
	for _, p := range paths {
		cont, err := r.runScript(p)
		if err != nil {
			return false, err
		}
		if !cont {
			return false, nil
		}
	}
	return true, nil
}

func (r *REPL) runScript(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if !r.RunLine(scanner.Text()) {
			return false, nil
		}
	}
	return true, scanner.Err()
}

// RunLine compiles and evaluates one line, or dispatches a leading
// '\' meta-command. It returns false when the line was \q.
func (r *REPL) RunLine(line string) bool {
	line = strings.TrimRight(line, "\r\n")
	trimmed := strings.TrimLeft(line, " \t")
	if strings.HasPrefix(trimmed, "/") {
		return true // comment line
	}
	if strings.HasPrefix(trimmed, "\\") {
		return r.metaCommand(strings.TrimSpace(trimmed[1:]))
	}
	r.evalAndPrint(line)
	return true
}

func (r *REPL) evalAndPrint(line string) {
	stmts, err := r.Compiler.CompileLine(line)
	if err != nil {
		r.printErr(err)
		return
	}
	for _, st := range stmts {
		if st.DefineScope {
			continue
		}
		v, err := r.Eval.RunBody(r.Scopes.Scope(0), st.Body)
		if err != nil {
			r.printErr(err)
			return
		}
		if !st.Quiet {
			fmt.Fprintln(r.Out, printer.Format(r.Handles, v))
		}
		r.Handles.Release(v)
	}
}

// printErr prints a glyph-prefixed error token. Out-of-memory and
// refcount-overflow are fatal and terminate the process; every other
// kind prints and the loop resumes.
func (r *REPL) printErr(err error) {
	ie, ok := err.(*ierr.Error)
	if !ok {
		fmt.Fprintln(r.Err, err)
		return
	}
	fmt.Fprintln(r.Err, ie.Error())
	if ie.Kind.Fatal() {
		os.Exit(1)
	}
}

// metaCommand dispatches one of \q \l \t \w \v \?.
func (r *REPL) metaCommand(rest string) bool {
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return true
	}
	switch fields[0][0] {
	case 'q':
		return false
	case 'l':
		if len(fields) < 2 {
			fmt.Fprintln(r.Err, "\\l requires a file name")
			return true
		}
		cont, err := r.runScript(fields[1])
		if err != nil {
			// An unreadable script is a recoverable mistake, not a
			// reason to end the session.
			fmt.Fprintln(r.Err, err)
			return true
		}
		return cont
	case 't':
		r.timeCommand(fields[1:])
		return true
	case 'w':
		r.printWorkspaceSize()
		return true
	case 'v':
		r.printDefinedVars()
		return true
	case '?':
		r.printVerbTable()
		return true
	default:
		fmt.Fprintf(r.Err, "unknown meta-command \\%s\n", rest)
		return true
	}
}

// timeCommand implements \t [N] EXPR: time N iterations (default 1)
// of EXPR and print nanoseconds per iteration.
func (r *REPL) timeCommand(fields []string) {
	if len(fields) == 0 {
		fmt.Fprintln(r.Err, "\\t requires an expression")
		return
	}
	n := 1
	exprFields := fields
	if count, err := strconv.Atoi(fields[0]); err == nil {
		n = count
		exprFields = fields[1:]
	}
	if n < 1 {
		n = 1
	}
	expr := strings.Join(exprFields, " ")
	stmts, err := r.Compiler.CompileLine(expr)
	if err != nil {
		r.printErr(err)
		return
	}

	start := time.Now()
	for i := 0; i < n; i++ {
		for _, st := range stmts {
			if st.DefineScope {
				continue
			}
			v, err := r.Eval.RunBody(r.Scopes.Scope(0), st.Body)
			if err != nil {
				r.printErr(err)
				return
			}
			r.Handles.Release(v)
		}
	}
	elapsed := time.Since(start) - r.nopBaseline
	if elapsed < 0 {
		elapsed = 0
	}
	fmt.Fprintln(r.Out, elapsed.Nanoseconds()/int64(n))
}

// workspaceBytes sums 32 slots * 8 bytes plus each scope's
// byte-stream length over all 27 scopes; this is what \w reports.
func (r *REPL) workspaceBytes() uint64 {
	var total uint64
	for i := 0; i < scope.Count; i++ {
		s := r.Scopes.Scope(i)
		total += uint64(scope.WorkspaceSize * 8)
		total += uint64(s.Len)
	}
	return total
}

func (r *REPL) printWorkspaceSize() {
	fmt.Fprintln(r.Out, humanize.Bytes(r.workspaceBytes()))
}

// printDefinedVars lists the top-level scope's bound variable letters
// for \v.
func (r *REPL) printDefinedVars() {
	top := r.Scopes.Scope(0)
	var letters []byte
	for c := byte('a'); c <= 'z'; c++ {
		if top.Vars[slotForLetter(c)] != 0 {
			letters = append(letters, c)
		}
	}
	fmt.Fprintln(r.Out, string(letters))
}

// slotForLetter mirrors internal/compile's slotOf mapping without
// importing its unexported parser internals.
func slotForLetter(c byte) byte {
	if c == 'x' {
		return scope.ArgSlot
	}
	idx := int(c-'a') + 1
	if c > 'x' {
		idx--
	}
	return byte(idx)
}

func (r *REPL) printVerbTable() {
	for _, e := range verb.Table() {
		fmt.Fprintf(r.Out, "%c %s\n", e.Glyph, e.Name)
	}
}
