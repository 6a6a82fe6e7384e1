package notebook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/aletheia-dev/noema/internal/fault"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// allowedPackages is the import allowlist for guest code: pure
// computation only. No os, os/exec, net, time, syscall, unsafe: the
// guest gets no clock, no filesystem, no network, no escape hatch.
var allowedPackages = map[string]bool{
	"bytes":         true,
	"encoding/json": true,
	"errors":        true,
	"fmt":           true,
	"math":          true,
	"regexp":        true,
	"sort":          true,
	"strconv":       true,
	"strings":       true,
	"unicode":       true,
	"unicode/utf8":  true,
}

// allowedSymbols filters the interpreter's stdlib symbol table down to
// the allowlist. Symbol keys have the form "path/name", e.g.
// "encoding/json/json".
func allowedSymbols() interp.Exports {
	out := make(interp.Exports, len(allowedPackages))
	for key, symbols := range stdlib.Symbols {
		path := key
		if i := strings.LastIndex(key, "/"); i >= 0 {
			path = key[:i]
		}
		if allowedPackages[path] {
			out[key] = symbols
		}
	}
	return out
}

// validateSource scans import statements and rejects any package off
// the allowlist before the interpreter ever sees the code.
func validateSource(source string) error {
	var forbidden []string
	inBlock := false
	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "import ("):
			inBlock = true
			continue
		case inBlock && strings.HasPrefix(trimmed, ")"):
			inBlock = false
			continue
		}
		if !inBlock && !strings.HasPrefix(trimmed, "import ") {
			continue
		}
		pkg := quotedSegment(trimmed)
		if pkg == "" {
			continue
		}
		if !allowedPackages[pkg] {
			forbidden = append(forbidden, pkg)
		}
	}
	if len(forbidden) > 0 {
		return fault.Executionf("forbidden imports: %s", strings.Join(forbidden, ", "))
	}
	return nil
}

// quotedSegment extracts the first double-quoted segment of a line,
// covering both plain and aliased import forms.
func quotedSegment(line string) string {
	start := strings.Index(line, `"`)
	if start < 0 {
		return ""
	}
	rest := line[start+1:]
	end := strings.Index(rest, `"`)
	if end < 0 {
		return ""
	}
	return rest[:end]
}

// ─── Output capture ──────────────────────────────────────────────────────────

// sink captures guest stdout and stderr under one shared byte budget.
// Writes past the budget are silently dropped, never an error, and
// the guest always sees a full write. Internally locked because guest
// code may spawn goroutines of its own.
type sink struct {
	mu        sync.Mutex
	remaining int
	stdout    bytes.Buffer
	stderr    bytes.Buffer
}

func newSink(budget int) *sink {
	return &sink{remaining: budget}
}

func (s *sink) writer(stderr bool) io.Writer {
	return &sinkWriter{sink: s, stderr: stderr}
}

// snapshot returns the captured streams. Safe to call while an
// abandoned guest is still writing.
func (s *sink) snapshot() (stdout, stderr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stdout.String(), s.stderr.String()
}

type sinkWriter struct {
	sink   *sink
	stderr bool
}

func (w *sinkWriter) Write(p []byte) (int, error) {
	s := w.sink
	s.mu.Lock()
	defer s.mu.Unlock()
	keep := p
	if len(keep) > s.remaining {
		keep = keep[:s.remaining]
	}
	s.remaining -= len(keep)
	if w.stderr {
		s.stderr.Write(keep)
	} else {
		s.stdout.Write(keep)
	}
	return len(p), nil
}

// ─── Execution ───────────────────────────────────────────────────────────────

// DefaultOutputLimit is the per-execution captured-output ceiling.
const DefaultOutputLimit = 64 * 1024

// Sandbox evaluates untrusted cell source in a fresh interpreter per
// run, exposing only allowlisted pure stdlib packages.
type Sandbox struct {
	maxOutput int
}

func newSandbox(maxOutput int) *Sandbox {
	if maxOutput <= 0 {
		maxOutput = DefaultOutputLimit
	}
	return &Sandbox{maxOutput: maxOutput}
}

// RunResult carries the captured streams and, when the source
// evaluated to a value, its rendering.
type RunResult struct {
	Stdout   string
	Stderr   string
	Value    string
	HasValue bool
}

// Run evaluates source under ctx's deadline. The interpreter honors
// cancellation at statement boundaries; should the guest outrun that,
// the evaluating goroutine is abandoned and its eventual result
// discarded; the host never blocks past the deadline.
func (sb *Sandbox) Run(ctx context.Context, source string) (RunResult, error) {
	if err := validateSource(source); err != nil {
		return RunResult{}, err
	}

	out := newSink(sb.maxOutput)
	i := interp.New(interp.Options{
		Stdout: out.writer(false),
		Stderr: out.writer(true),
	})
	if err := i.Use(allowedSymbols()); err != nil {
		return RunResult{}, fault.Executionf("sandbox setup failed: %v", err)
	}

	type outcome struct {
		value reflect.Value
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fault.Executionf("evaluation panicked: %v", r)}
			}
		}()
		v, err := i.EvalWithContext(ctx, source)
		done <- outcome{value: v, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			if ctx.Err() != nil {
				return RunResult{}, fault.Executionf("evaluation timed out").Wrap(ctx.Err())
			}
			return RunResult{}, fault.Executionf("evaluation failed: %v", o.err)
		}
		stdout, stderr := out.snapshot()
		res := RunResult{Stdout: stdout, Stderr: stderr}
		if o.value.IsValid() && o.value.CanInterface() {
			res.Value = clipTo(fmt.Sprintf("%v", o.value.Interface()), sb.maxOutput)
			res.HasValue = true
		}
		return res, nil
	case <-ctx.Done():
		return RunResult{}, fault.Executionf("evaluation timed out").Wrap(ctx.Err())
	}
}

// clipTo bounds a rendered value to the output ceiling.
func clipTo(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
