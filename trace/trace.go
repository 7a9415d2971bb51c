// Package trace loads recorded execution traces and reduces them with
// constant folding and dead assignment elimination.
package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tobiwg/bril/ir"
)

var (
	// ErrEmptyTrace is returned when the input contains no usable records.
	ErrEmptyTrace = errors.New("trace: no instructions in trace")
	// ErrMalformedTrace wraps a record that does not parse as an operation.
	ErrMalformedTrace = errors.New("trace: malformed record")
	// ErrLabelInTrace is returned when a record is a label. A recorded trace
	// is branch free and carries executable operations only.
	ErrLabelInTrace = errors.New("trace: label in trace")
)

// Trace is one straight-line execution path: the operations dynamically
// executed on a concrete run, in execution order.
type Trace []*ir.Operation

// Read parses newline-separated JSON operation records. Blank and
// whitespace-only lines are skipped; a trace with zero records is an error.
func Read(r io.Reader) (Trace, error) {
	var t Trace
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		op, err := ir.DecodeOperation([]byte(text))
		if err != nil {
			if errors.Is(err, ir.ErrNotOperation) {
				return nil, fmt.Errorf("%w at line %d", ErrLabelInTrace, line)
			}
			return nil, fmt.Errorf("%w at line %d: %v", ErrMalformedTrace, line, err)
		}
		t = append(t, op)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(t) == 0 {
		return nil, ErrEmptyTrace
	}
	return t, nil
}

// ReadFile reads a trace from a file.
func ReadFile(path string) (Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
