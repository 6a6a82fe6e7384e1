// Package server is the composition root of the reasoning engine. It
// constructs the session manager, the knowledge graph, the unified
// memory store, the notebook sandbox, and the session archive, and
// registers every tool, prompt, and resource on an MCP server over
// stdio. No business logic lives here, only wiring.
package server

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/aletheia-dev/noema/internal/archive"
	"github.com/aletheia-dev/noema/internal/artifact"
	"github.com/aletheia-dev/noema/internal/config"
	"github.com/aletheia-dev/noema/internal/graph"
	"github.com/aletheia-dev/noema/internal/logging"
	"github.com/aletheia-dev/noema/internal/notebook"
	"github.com/aletheia-dev/noema/internal/prompts"
	"github.com/aletheia-dev/noema/internal/resources"
	"github.com/aletheia-dev/noema/internal/session"
	"github.com/aletheia-dev/noema/internal/tools"
	"github.com/aletheia-dev/noema/internal/unified"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New builds the fully wired MCP server from cfg. It returns the
// server, a cleanup function that flushes and closes every subsystem
// in reverse initialization order, and an error if a required
// subsystem cannot start.
//
// The cleanup function is always non-nil and safe to call even when
// New returns an error.
func New(cfg *config.Config) (*server.MCPServer, func(), error) {
	log, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return nil, noop, fmt.Errorf("building logger: %w", err)
	}

	// --- Session archive ---
	//
	// The archive is an independent subsystem: if its database fails
	// to open, the reasoning tools continue working. We log a warning
	// and skip history registration. The server is still fully
	// functional for live sessions.

	var arch *archive.Store
	if cfg.Archive.Enabled {
		a, err := archive.New(archive.Config{DataDir: cfg.ArchiveDir()})
		if err != nil {
			log.Warn("session archive disabled",
				zap.String("dir", cfg.ArchiveDir()),
				zap.Error(err))
		} else {
			arch = a
		}
	}

	// Ended sessions flow into the archive whatever the reason:
	// explicit end, idle eviction, or shutdown.
	var onEvict func(session.Record)
	if arch != nil {
		onEvict = func(r session.Record) {
			if err := arch.Save(r); err != nil {
				log.Warn("archiving session failed",
					zap.String("session_id", r.ID),
					zap.Error(err))
			}
		}
	}

	// --- Create shared dependencies ---

	manager := session.NewManager(session.Config{
		IdleTimeout: cfg.SessionIdleTimeout(),
		Capacity:    session.CapacityPolicy{artifact.KindThought: cfg.Session.ThoughtLimit},
	}, log.Named("session"), onEvict)

	mode, err := graph.ParseMode(cfg.Graph.Mode)
	if err != nil {
		manager.Close()
		return nil, noop, err
	}
	kg, err := graph.New(mode)
	if err != nil {
		manager.Close()
		return nil, noop, fmt.Errorf("building knowledge graph: %w", err)
	}

	mem := unified.New(unified.Config{
		Dir:      cfg.MemoryDir(),
		Debounce: cfg.MemoryDebounce(),
		Mode:     graph.Mode(cfg.Memory.Mode),
	}, log.Named("memory"))

	notebooks := notebook.New(notebook.Config{
		MaxCells:       cfg.Notebook.MaxCells,
		MaxExecutions:  cfg.Notebook.MaxExecutions,
		MaxOutputBytes: cfg.Notebook.MaxOutputBytes,
		ExecTimeout:    cfg.NotebookExecTimeout(),
		MaxExecTimeout: cfg.NotebookMaxExecTimeout(),
		IdleTTL:        cfg.NotebookIdleTTL(),
	}, log.Named("notebook"))

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		cfg.Name,
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	registerSessionTools(s, manager)
	registerGraphTools(s, kg)
	registerMemoryTools(s, mem)
	registerNotebookTools(s, notebooks)

	// --- Register history tool (needs the archive) ---

	if arch != nil {
		history := tools.NewHistoryTool(arch)
		s.AddTool(history.Definition(), history.Handle)
	}

	// --- Register prompts ---

	start := prompts.NewStartPrompt()
	s.AddPrompt(start.Definition(), start.Handle)

	review := prompts.NewReviewPrompt()
	s.AddPrompt(review.Definition(), review.Handle)

	// --- Register resources ---

	res := resources.NewHandler(manager, kg)
	s.AddResource(res.SessionsResource(), res.HandleSessions)
	s.AddResource(res.SnapshotResource(), res.HandleSnapshot)

	// Closing the manager ends every live session, which triggers the
	// eviction hook, so the archive must outlive it and close last.
	cleanup := func() {
		notebooks.Close()
		mem.Close()
		manager.Close()
		if arch != nil {
			if err := arch.Close(); err != nil {
				log.Warn("closing archive", zap.Error(err))
			}
		}
		_ = log.Sync()
	}

	log.Info("server wired",
		zap.String("name", cfg.Name),
		zap.String("version", Version),
		zap.String("graph_mode", string(mode)),
		zap.Bool("archive", arch != nil))

	return s, cleanup, nil
}

// noop is the default cleanup function, returned when New fails
// before any subsystem needs closing.
func noop() {}

// --- Tool registration, grouped by subsystem ---

func registerSessionTools(s *server.MCPServer, manager *session.Manager) {
	think := tools.NewThinkTool(manager)
	s.AddTool(think.Definition(), think.Handle)

	addArtifact := tools.NewAddArtifactTool(manager)
	s.AddTool(addArtifact.Definition(), addArtifact.Handle)

	listArtifacts := tools.NewListArtifactsTool(manager)
	s.AddTool(listArtifacts.Definition(), listArtifacts.Handle)

	stats := tools.NewSessionStatsTool(manager)
	s.AddTool(stats.Definition(), stats.Handle)

	end := tools.NewSessionEndTool(manager)
	s.AddTool(end.Definition(), end.Handle)

	export := tools.NewSessionExportTool(manager)
	s.AddTool(export.Definition(), export.Handle)

	imp := tools.NewSessionImportTool(manager)
	s.AddTool(imp.Definition(), imp.Handle)
}

func registerGraphTools(s *server.MCPServer, kg *graph.Graph) {
	node := tools.NewNodeTool(kg)
	s.AddTool(node.Definition(), node.Handle)

	edge := tools.NewEdgeTool(kg)
	s.AddTool(edge.Definition(), edge.Handle)

	query := tools.NewQueryTool(kg)
	s.AddTool(query.Definition(), query.Handle)

	metrics := tools.NewMetricsTool(kg)
	s.AddTool(metrics.Definition(), metrics.Handle)

	snapshot := tools.NewSnapshotTool(kg)
	s.AddTool(snapshot.Definition(), snapshot.Handle)

	restore := tools.NewRestoreTool(kg)
	s.AddTool(restore.Definition(), restore.Handle)
}

func registerMemoryTools(s *server.MCPServer, mem *unified.Store) {
	add := tools.NewMemoryAddTool(mem)
	s.AddTool(add.Definition(), add.Handle)

	query := tools.NewMemoryQueryTool(mem)
	s.AddTool(query.Definition(), query.Handle)

	export := tools.NewMemoryExportTool(mem)
	s.AddTool(export.Definition(), export.Handle)

	imp := tools.NewMemoryImportTool(mem)
	s.AddTool(imp.Definition(), imp.Handle)
}

func registerNotebookTools(s *server.MCPServer, nb *notebook.Store) {
	create := tools.NewNotebookCreateTool(nb)
	s.AddTool(create.Definition(), create.Handle)

	cell := tools.NewNotebookCellTool(nb)
	s.AddTool(cell.Definition(), cell.Handle)

	run := tools.NewNotebookRunTool(nb)
	s.AddTool(run.Definition(), run.Handle)

	export := tools.NewNotebookExportTool(nb)
	s.AddTool(export.Definition(), export.Handle)

	del := tools.NewNotebookDeleteTool(nb)
	s.AddTool(del.Definition(), del.Handle)
}

// serverInstructions returns the instructions block sent to MCP
// clients during initialization. It tells the connected assistant how
// the reasoning tools fit together.
func serverInstructions() string {
	return `# Noema: Reasoning State Engine

Noema keeps the state of a long reasoning process outside your context
window: numbered thought chains, typed reasoning artifacts, a bounded
knowledge graph, durable cross-session memory, and a sandboxed Go
notebook for small computations.

## When to use it

Use Noema whenever a problem needs more than a handful of steps:
debugging, design decisions, research, anything where you revise
earlier conclusions or weigh competing hypotheses. Record reasoning as
you go instead of reconstructing it afterwards.

## Sessions

Every artifact belongs to a session named by 'session_id'. Sessions
are created on first use, expire when idle, and can be ended
explicitly with 'session_end'. Check 'session_stats' for counts and
the remaining thought budget. 'session_export' and 'session_import'
move a session's artifacts between servers as a JSON bundle. Ended
sessions land in the archive; browse them with 'session_history'.

## Thinking in steps

'think' records one reasoning step per call. Steps are numbered
automatically. To revise an earlier step, set 'is_revision' and
'revises'; to fork an alternative line, set 'branch_from' and
'branch_id'. Set 'next_needed' to false when the chain is complete.
Each session has a fixed thought budget, so keep steps substantive.

## Typed artifacts

'artifact_add' stores structured records: decision, mental_model,
debugging, scientific, creative, systems, visual, argument,
collaborative, metacognitive. Use 'artifact_list' to review what a
session holds. Prefer a typed artifact over a free-form thought when
the reasoning has that shape; a decision with options and criteria
beats three paragraphs of prose.

## Knowledge graph

'graph_node' and 'graph_edge' build a concept graph. Nodes carry
content, type, tags, and confidence. Edges carry a type (supports,
contradicts, relates_to, ...) and a weight in [0,1]. 'graph_query'
reads it back (nodes, node, outgoing, relation), 'graph_metrics'
reports size against the mode ceilings, and 'graph_snapshot' /
'graph_restore' serialize the whole graph as JSON. The graph is
process-wide, not per session.

## Durable memory

'memory_add' stores an artifact in the unified store, which survives
restarts and projects every entry into its own graph keyed by session.
'memory_query' looks up by id, kind, or stats; 'memory_export' and
'memory_import' move the whole store as JSON. Use memory for
conclusions worth keeping after the session ends.

## Notebook

'notebook_create' opens a per-session notebook, 'notebook_cell' adds
code or markdown cells, and 'notebook_run' executes a code cell in a
sandboxed Go interpreter with a small stdlib allowlist and a hard
timeout. No filesystem, no network, no imports outside the allowlist.
'notebook_export' renders the notebook as markdown or JSON.

## Rules

1. One 'think' call per reasoning step, not one per sentence.
2. Revise instead of repeating: use 'is_revision' when you change
   your mind, so the chain stays honest.
3. Store durable conclusions in memory, not only in the session.
4. The notebook is for arithmetic and small checks, not for
   long-running programs.`
}
