// Package notebook manages ephemeral per-session documents of
// markdown and code cells, and executes code cells inside a
// restricted interpreter with wall-clock and output-size ceilings.
//
// Notebooks are created lazily, at most one per session, and evicted
// by a periodic sweep once idle past their time-to-live. Execution
// never trusts guest code: it sees only an allowlist of pure stdlib
// packages and its results are discarded once the deadline passes.
package notebook

import (
	"time"

	"github.com/aletheia-dev/noema/internal/fault"
)

// CellKind distinguishes prose cells from executable ones.
type CellKind string

const (
	CellMarkdown CellKind = "markdown"
	CellCode     CellKind = "code"
)

// ValidateCellKind checks that k is a known cell kind.
func ValidateCellKind(k CellKind) error {
	if k != CellMarkdown && k != CellCode {
		return fault.Validationf("invalid cell kind %q (valid: markdown, code)", k)
	}
	return nil
}

// CellStatus is the lifecycle state of a cell.
type CellStatus string

const (
	StatusIdle    CellStatus = "idle"
	StatusRunning CellStatus = "running"
	StatusFailed  CellStatus = "failed"
)

// ExecStatus is the lifecycle state of one execution attempt.
type ExecStatus string

const (
	ExecRunning  ExecStatus = "running"
	ExecComplete ExecStatus = "complete"
	ExecFailed   ExecStatus = "failed"
)

// OutputType tags one captured output record.
type OutputType string

const (
	OutputStdout OutputType = "stdout"
	OutputStderr OutputType = "stderr"
	OutputResult OutputType = "result"
	OutputError  OutputType = "error"
)

// Output is one captured record from a cell execution.
type Output struct {
	Type OutputType `json:"type"`
	Text string     `json:"text"`
}

// Cell is one ordered entry of a notebook.
type Cell struct {
	ID       string     `json:"id"`
	Kind     CellKind   `json:"kind"`
	Source   string     `json:"source"`
	Language string     `json:"language,omitempty"`
	Status   CellStatus `json:"status"`
	Outputs  []Output   `json:"outputs,omitempty"`
}

// Execution is one attempt at running a code cell. Immutable once its
// status leaves running.
type Execution struct {
	ID          string     `json:"id"`
	CellID      string     `json:"cell_id"`
	Status      ExecStatus `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt time.Time  `json:"completed_at,omitempty"`
	Outputs     []Output   `json:"outputs,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Notebook is the public snapshot of one notebook's state.
type Notebook struct {
	ID         string      `json:"id"`
	SessionID  string      `json:"session_id"`
	CreatedAt  time.Time   `json:"created_at"`
	LastAccess time.Time   `json:"last_access"`
	Cells      []Cell      `json:"cells"`
	Executions []Execution `json:"executions,omitempty"`
}

// Record is the structured export: the notebook with its full
// execution log, ready for JSON rendering.
type Record struct {
	Notebook   Notebook  `json:"notebook"`
	ExportedAt time.Time `json:"exported_at"`
}
