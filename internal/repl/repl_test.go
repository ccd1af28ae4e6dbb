package repl

import (
	"bytes"
	"strings"
	"testing"
)

func newTestREPL() (*REPL, *bytes.Buffer, *bytes.Buffer) {
	r := New(1)
	out := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	r.Out = out
	r.Err = errBuf
	return r, out, errBuf
}

func TestRunLineEvaluatesAndPrints(t *testing.T) {
	r, out, _ := newTestREPL()
	r.RunLine("2*3+4")
	if got := strings.TrimSpace(out.String()); got != "14" {
		t.Fatalf("output = %q, want 14", got)
	}
}

func TestRunLineQuietAssignmentPrintsNothing(t *testing.T) {
	r, out, _ := newTestREPL()
	r.RunLine("x:5")
	if out.Len() != 0 {
		t.Fatalf("assignment should print nothing, got %q", out.String())
	}
}

func TestRunLineCommentIsIgnored(t *testing.T) {
	r, out, errBuf := newTestREPL()
	r.RunLine("/ this is a comment")
	if out.Len() != 0 || errBuf.Len() != 0 {
		t.Fatal("comment line should produce no output")
	}
}

func TestRunLineQuitReturnsFalse(t *testing.T) {
	r, _, _ := newTestREPL()
	if r.RunLine("\\q") {
		t.Fatal("\\q should return false to stop the line loop")
	}
}

func TestRunLineUnknownMetaCommand(t *testing.T) {
	r, _, errBuf := newTestREPL()
	if !r.RunLine("\\zzz") {
		t.Fatal("unknown meta-command should not stop the loop")
	}
	if !strings.Contains(errBuf.String(), "unknown meta-command") {
		t.Fatalf("stderr = %q, want unknown meta-command message", errBuf.String())
	}
}

// TestTimeCommandReportsNonNegativeNanoseconds exercises the \t N
// EXPR timing harness: it should report a non-negative integer number
// of nanoseconds per iteration.
func TestTimeCommandReportsNonNegativeNanoseconds(t *testing.T) {
	r, out, errBuf := newTestREPL()
	r.RunLine("\\t 100 +/!1000")
	if errBuf.Len() != 0 {
		t.Fatalf("unexpected stderr: %s", errBuf.String())
	}
	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("\\t should print a nanosecond count")
	}
	for _, c := range line {
		if c < '0' || c > '9' {
			t.Fatalf("\\t output %q is not a plain non-negative integer", line)
		}
	}
}

func TestPrintDefinedVarsListsBoundLetters(t *testing.T) {
	r, out, _ := newTestREPL()
	r.RunLine("x:1")
	r.RunLine("y:2")
	r.metaCommand("v")
	got := strings.TrimSpace(out.String())
	if !strings.Contains(got, "x") || !strings.Contains(got, "y") {
		t.Fatalf("\\v output = %q, want to mention x and y", got)
	}
}

func TestPrintVerbTableListsEveryVerb(t *testing.T) {
	r, out, _ := newTestREPL()
	r.metaCommand("?")
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) == 0 {
		t.Fatal("\\? should print at least one verb")
	}
}

func TestLoadMissingScriptReportsErrorAndResumes(t *testing.T) {
	r, _, errBuf := newTestREPL()
	if !r.metaCommand("l /nonexistent/path/does-not-exist.sn") {
		t.Fatal("a failed \\l should not end the session")
	}
	if errBuf.Len() == 0 {
		t.Fatal("loading a missing script should report an error")
	}
}

func TestRunLineCompileErrorIsReportedNotFatal(t *testing.T) {
	r, _, errBuf := newTestREPL()
	if !r.RunLine("ZZZ") {
		t.Fatal("a non-fatal parse error should not stop the REPL")
	}
	if errBuf.Len() == 0 {
		t.Fatal("an invalid line should report an error")
	}
}
