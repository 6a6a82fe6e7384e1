package notebook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aletheia-dev/noema/internal/fault"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var timeNow = time.Now

// Config bounds notebook resources. Zero fields take defaults.
type Config struct {
	// MaxCells caps cells per notebook.
	MaxCells int
	// MaxExecutions caps executions per notebook lifetime.
	MaxExecutions int
	// MaxOutputBytes caps captured output per execution.
	MaxOutputBytes int
	// ExecTimeout is the deadline when the caller supplies none.
	ExecTimeout time.Duration
	// MaxExecTimeout clamps caller-supplied deadlines.
	MaxExecTimeout time.Duration
	// IdleTTL is how long an untouched notebook survives.
	IdleTTL time.Duration
	// SweepInterval is how often eviction runs.
	SweepInterval time.Duration
}

const (
	DefaultMaxCells      = 100
	DefaultMaxExecutions = 500
	DefaultExecTimeout   = 5 * time.Second
	DefaultMaxTimeout    = 30 * time.Second
	DefaultIdleTTL       = 30 * time.Minute
	DefaultSweepInterval = time.Minute
)

func (c Config) withDefaults() Config {
	if c.MaxCells <= 0 {
		c.MaxCells = DefaultMaxCells
	}
	if c.MaxExecutions <= 0 {
		c.MaxExecutions = DefaultMaxExecutions
	}
	if c.MaxOutputBytes <= 0 {
		c.MaxOutputBytes = DefaultOutputLimit
	}
	if c.ExecTimeout <= 0 {
		c.ExecTimeout = DefaultExecTimeout
	}
	if c.MaxExecTimeout <= 0 {
		c.MaxExecTimeout = DefaultMaxTimeout
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = DefaultIdleTTL
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	return c
}

// document is the store-private mutable state of one notebook.
type document struct {
	id         string
	sessionID  string
	createdAt  time.Time
	lastAccess time.Time
	cells      []*Cell
	execOrder  []string
	executions map[string]*Execution
}

// Store owns every live notebook, the execution sandbox, and the
// eviction sweep.
type Store struct {
	cfg     Config
	log     *zap.Logger
	sandbox *Sandbox

	mu        sync.RWMutex
	notebooks map[string]*document
	bySession map[string]string

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New builds a store and starts its eviction sweep. Callers must
// Close it to stop the sweep goroutine.
func New(cfg Config, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	s := &Store{
		cfg:       cfg,
		log:       log,
		sandbox:   newSandbox(cfg.MaxOutputBytes),
		notebooks: make(map[string]*document),
		bySession: make(map[string]string),
		stop:      make(chan struct{}),
	}
	s.wg.Add(1)
	go s.sweepLoop()
	return s
}

// Close stops the eviction sweep. Idempotent; live notebooks remain
// readable afterwards.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}

// CreateNotebook returns the session's existing notebook id or
// allocates one. At most one notebook exists per session.
func (s *Store) CreateNotebook(sessionID string) (string, error) {
	if sessionID == "" {
		return "", fault.Validationf("notebook requires a session id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.bySession[sessionID]; ok {
		if nb, ok := s.notebooks[id]; ok {
			nb.lastAccess = timeNow().UTC()
			return id, nil
		}
	}

	now := timeNow().UTC()
	nb := &document{
		id:         uuid.NewString(),
		sessionID:  sessionID,
		createdAt:  now,
		lastAccess: now,
		executions: make(map[string]*Execution),
	}
	s.notebooks[nb.id] = nb
	s.bySession[sessionID] = nb.id
	s.log.Debug("notebook created", zap.String("notebook_id", nb.id), zap.String("session_id", sessionID))
	return nb.id, nil
}

// Notebook returns a snapshot of the notebook's state.
func (s *Store) Notebook(id string) (*Notebook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nb, ok := s.notebooks[id]
	if !ok {
		return nil, fault.Referencef("notebook %s not found", id)
	}
	nb.lastAccess = timeNow().UTC()
	return snapshotDoc(nb), nil
}

// NotebookBySession returns a snapshot of the session's notebook.
func (s *Store) NotebookBySession(sessionID string) (*Notebook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.bySession[sessionID]
	if !ok {
		return nil, fault.Referencef("no notebook for session %s", sessionID)
	}
	nb := s.notebooks[id]
	nb.lastAccess = timeNow().UTC()
	return snapshotDoc(nb), nil
}

// DeleteNotebook removes a notebook and frees its session slot.
func (s *Store) DeleteNotebook(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	nb, ok := s.notebooks[id]
	if !ok {
		return fault.Referencef("notebook %s not found", id)
	}
	delete(s.notebooks, id)
	delete(s.bySession, nb.sessionID)
	return nil
}

// ─── Cell operations ─────────────────────────────────────────────────────────

// AddCell inserts a cell at position, or appends when position is
// negative or past the end.
func (s *Store) AddCell(notebookID string, kind CellKind, source, language string, position int) (string, error) {
	if err := ValidateCellKind(kind); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	nb, ok := s.notebooks[notebookID]
	if !ok {
		return "", fault.Referencef("notebook %s not found", notebookID)
	}
	if len(nb.cells) >= s.cfg.MaxCells {
		return "", fault.Capacityf("cell limit %d reached for notebook %s", s.cfg.MaxCells, notebookID)
	}

	cell := &Cell{
		ID:     uuid.NewString(),
		Kind:   kind,
		Source: source,
		Status: StatusIdle,
	}
	if kind == CellCode {
		if language == "" {
			language = "go"
		}
		cell.Language = language
	}

	if position < 0 || position >= len(nb.cells) {
		nb.cells = append(nb.cells, cell)
	} else {
		nb.cells = append(nb.cells, nil)
		copy(nb.cells[position+1:], nb.cells[position:])
		nb.cells[position] = cell
	}
	nb.lastAccess = timeNow().UTC()
	return cell.ID, nil
}

// UpdateCell replaces a cell's source. The cell returns to idle with
// its outputs cleared, since they no longer describe the new source.
func (s *Store) UpdateCell(notebookID, cellID, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nb, ok := s.notebooks[notebookID]
	if !ok {
		return fault.Referencef("notebook %s not found", notebookID)
	}
	cell, _ := findCell(nb, cellID)
	if cell == nil {
		return fault.Referencef("cell %s not found in notebook %s", cellID, notebookID)
	}
	if cell.Status == StatusRunning {
		return fault.Validationf("cell %s is running", cellID)
	}
	cell.Source = source
	cell.Status = StatusIdle
	cell.Outputs = nil
	nb.lastAccess = timeNow().UTC()
	return nil
}

// DeleteCell removes a cell from the notebook's order.
func (s *Store) DeleteCell(notebookID, cellID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nb, ok := s.notebooks[notebookID]
	if !ok {
		return fault.Referencef("notebook %s not found", notebookID)
	}
	cell, idx := findCell(nb, cellID)
	if cell == nil {
		return fault.Referencef("cell %s not found in notebook %s", cellID, notebookID)
	}
	nb.cells = append(nb.cells[:idx], nb.cells[idx+1:]...)
	nb.lastAccess = timeNow().UTC()
	return nil
}

// ─── Execution ───────────────────────────────────────────────────────────────

// ExecuteCell runs a code cell in the sandbox under a wall-clock
// deadline. A guest error is absorbed: the call succeeds and the
// returned execution carries the failed state with one error output.
// A deadline overrun both fails the cell and rejects the call, so the
// caller knows the result reflects a kill, not a completed run.
func (s *Store) ExecuteCell(ctx context.Context, notebookID, cellID string, timeout time.Duration) (*Execution, error) {
	source, exec, err := s.beginExecution(notebookID, cellID)
	if err != nil {
		return nil, err
	}

	if timeout <= 0 {
		timeout = s.cfg.ExecTimeout
	}
	if timeout > s.cfg.MaxExecTimeout {
		timeout = s.cfg.MaxExecTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, runErr := s.sandbox.Run(runCtx, source)

	s.mu.Lock()
	defer s.mu.Unlock()
	nb := s.notebooks[notebookID]
	var cell *Cell
	if nb != nil {
		cell, _ = findCell(nb, cellID)
		nb.lastAccess = timeNow().UTC()
	}

	now := timeNow().UTC()
	if runErr != nil {
		exec.Status = ExecFailed
		exec.Error = runErr.Error()
		exec.CompletedAt = now
		exec.Outputs = []Output{{Type: OutputError, Text: runErr.Error()}}
		if cell != nil {
			cell.Status = StatusFailed
			cell.Outputs = []Output{{Type: OutputError, Text: runErr.Error()}}
		}
		if errors.Is(runErr, context.DeadlineExceeded) || errors.Is(runErr, context.Canceled) {
			return copyExec(exec), runErr
		}
		return copyExec(exec), nil
	}

	outputs := make([]Output, 0, 3)
	if res.Stdout != "" {
		outputs = append(outputs, Output{Type: OutputStdout, Text: res.Stdout})
	}
	if res.Stderr != "" {
		outputs = append(outputs, Output{Type: OutputStderr, Text: res.Stderr})
	}
	if res.HasValue {
		outputs = append(outputs, Output{Type: OutputResult, Text: res.Value})
	}
	exec.Status = ExecComplete
	exec.CompletedAt = now
	exec.Outputs = outputs
	if cell != nil {
		cell.Status = StatusIdle
		cell.Outputs = append([]Output(nil), outputs...)
	}
	return copyExec(exec), nil
}

// beginExecution validates the request, enforces the execution
// ceiling, and flips the cell to running, all under one lock hold.
// The returned execution is already registered in the notebook's log.
func (s *Store) beginExecution(notebookID, cellID string) (string, *Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nb, ok := s.notebooks[notebookID]
	if !ok {
		return "", nil, fault.Referencef("notebook %s not found", notebookID)
	}
	cell, _ := findCell(nb, cellID)
	if cell == nil {
		return "", nil, fault.Referencef("cell %s not found in notebook %s", cellID, notebookID)
	}
	if cell.Kind != CellCode {
		return "", nil, fault.Validationf("cell %s is not a code cell", cellID)
	}
	if cell.Status == StatusRunning {
		return "", nil, fault.Validationf("cell %s is already running", cellID)
	}
	if len(nb.executions) >= s.cfg.MaxExecutions {
		return "", nil, fault.Capacityf("execution limit %d reached for notebook %s", s.cfg.MaxExecutions, notebookID)
	}

	exec := &Execution{
		ID:        uuid.NewString(),
		CellID:    cellID,
		Status:    ExecRunning,
		StartedAt: timeNow().UTC(),
	}
	nb.executions[exec.ID] = exec
	nb.execOrder = append(nb.execOrder, exec.ID)
	cell.Status = StatusRunning
	cell.Outputs = nil
	nb.lastAccess = exec.StartedAt
	return cell.Source, exec, nil
}

// ─── Export ──────────────────────────────────────────────────────────────────

// ExportMarkdown renders the cell sequence and captured outputs as
// one linear document.
func (s *Store) ExportMarkdown(notebookID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nb, ok := s.notebooks[notebookID]
	if !ok {
		return "", fault.Referencef("notebook %s not found", notebookID)
	}
	nb.lastAccess = timeNow().UTC()

	var b strings.Builder
	fmt.Fprintf(&b, "# Notebook %s\n\n", nb.id)
	fmt.Fprintf(&b, "Session: %s  \n", nb.sessionID)
	fmt.Fprintf(&b, "Created: %s\n\n", nb.createdAt.Format(time.RFC3339))

	for i, cell := range nb.cells {
		switch cell.Kind {
		case CellMarkdown:
			b.WriteString(cell.Source)
			b.WriteString("\n\n")
		case CellCode:
			fmt.Fprintf(&b, "```%s\n%s\n```\n\n", cell.Language, cell.Source)
			for _, out := range cell.Outputs {
				fmt.Fprintf(&b, "**%s** (cell %d):\n\n```\n%s\n```\n\n", out.Type, i+1, out.Text)
			}
		}
	}
	return b.String(), nil
}

// ExportRecord returns the notebook with its full execution log.
func (s *Store) ExportRecord(notebookID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nb, ok := s.notebooks[notebookID]
	if !ok {
		return nil, fault.Referencef("notebook %s not found", notebookID)
	}
	nb.lastAccess = timeNow().UTC()
	return &Record{Notebook: *snapshotDoc(nb), ExportedAt: timeNow().UTC()}, nil
}

// ─── Eviction sweep ──────────────────────────────────────────────────────────

func (s *Store) sweepLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

// sweep evicts notebooks idle past the TTL. Runs independently of any
// in-flight execution; ExecuteCell re-checks liveness before writing
// results back.
func (s *Store) sweep() {
	now := timeNow().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, nb := range s.notebooks {
		if now.Sub(nb.lastAccess) > s.cfg.IdleTTL {
			delete(s.notebooks, id)
			delete(s.bySession, nb.sessionID)
			s.log.Info("notebook evicted",
				zap.String("notebook_id", id),
				zap.String("session_id", nb.sessionID),
			)
		}
	}
}

// Len returns the number of live notebooks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notebooks)
}

// ─── Snapshots ───────────────────────────────────────────────────────────────

func findCell(nb *document, cellID string) (*Cell, int) {
	for i, c := range nb.cells {
		if c.ID == cellID {
			return c, i
		}
	}
	return nil, -1
}

func snapshotDoc(nb *document) *Notebook {
	out := &Notebook{
		ID:         nb.id,
		SessionID:  nb.sessionID,
		CreatedAt:  nb.createdAt,
		LastAccess: nb.lastAccess,
		Cells:      make([]Cell, 0, len(nb.cells)),
		Executions: make([]Execution, 0, len(nb.execOrder)),
	}
	for _, c := range nb.cells {
		cc := *c
		cc.Outputs = append([]Output(nil), c.Outputs...)
		out.Cells = append(out.Cells, cc)
	}
	for _, id := range nb.execOrder {
		out.Executions = append(out.Executions, *copyExec(nb.executions[id]))
	}
	return out
}

func copyExec(e *Execution) *Execution {
	ee := *e
	ee.Outputs = append([]Output(nil), e.Outputs...)
	return &ee
}
