// Package journal persists guard activity in SQLite: final-check runs,
// per-diagram validation outcomes and screened shell commands.
//
// Commands are indexed with FTS5 so past blocks can be searched by text.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/HendryAvila/mermaidguard/internal/document"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var openDB = sql.Open

// FileName is the database file inside the data directory.
const FileName = "journal.db"

// Event sources.
const (
	SourceHook       = "hook"
	SourceFinalCheck = "final-check"
	SourceCLI        = "cli"
	SourceMCP        = "mcp"
	SourceWatch      = "watch"
)

// ─── Types ───────────────────────────────────────────────────────────────────

// Run is one final-check pass over a directory.
type Run struct {
	ID          string  `json:"id"`
	Source      string  `json:"source"`
	Root        string  `json:"root"`
	Renderer    string  `json:"renderer,omitempty"`
	StartedAt   string  `json:"started_at"`
	FinishedAt  *string `json:"finished_at,omitempty"`
	TotalFiles  int     `json:"total_files"`
	ValidFiles  int     `json:"valid_files"`
	FixedFiles  int     `json:"fixed_files"`
	FailedFiles int     `json:"failed_files"`
}

// RunTotals are the counters written when a run finishes.
type RunTotals struct {
	Total, Valid, Fixed, Failed int
}

// DiagramEvent records the validation of one diagram.
type DiagramEvent struct {
	ID        int64  `json:"id"`
	RunID     string `json:"run_id,omitempty"`
	Source    string `json:"source"`
	Path      string `json:"path"`
	Line      int    `json:"line"`
	Valid     bool   `json:"valid"`
	Changed   bool   `json:"changed"`
	Attempts  int    `json:"attempts"`
	Errors    string `json:"errors,omitempty"`
	CreatedAt string `json:"created_at"`
}

// CommandEvent records a shell command seen by the bash hooks.
type CommandEvent struct {
	ID          int64  `json:"id"`
	SessionID   string `json:"session_id,omitempty"`
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Allowed     bool   `json:"allowed"`
	Category    string `json:"category,omitempty"`
	Rule        string `json:"rule,omitempty"`
	Warnings    string `json:"warnings,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// RuleCount is how often a blocking rule fired.
type RuleCount struct {
	Rule  string `json:"rule"`
	Count int    `json:"count"`
}

// Stats holds aggregate journal counters.
type Stats struct {
	TotalRuns        int         `json:"total_runs"`
	TotalDiagrams    int         `json:"total_diagrams"`
	InvalidDiagrams  int         `json:"invalid_diagrams"`
	ChangedDiagrams  int         `json:"changed_diagrams"`
	TotalCommands    int         `json:"total_commands"`
	BlockedCommands  int         `json:"blocked_commands"`
	TopBlockingRules []RuleCount `json:"top_blocking_rules,omitempty"`
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds journal configuration.
type Config struct {
	DataDir          string
	MaxSearchResults int
}

// DefaultConfig returns the default configuration for the journal.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:          filepath.Join(home, ".mermaidguard"),
		MaxSearchResults: 50,
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the journal backed by SQLite + FTS5.
type Store struct {
	db  *sql.DB
	cfg Config
}

// New opens (creating if needed) the journal database in cfg.DataDir.
func New(cfg Config) (*Store, error) {
	if cfg.MaxSearchResults <= 0 {
		cfg.MaxSearchResults = DefaultConfig().MaxSearchResults
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("journal: create data dir: %w", err)
	}

	db, err := openDB("sqlite", filepath.Join(cfg.DataDir, FileName))
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("journal: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id           TEXT PRIMARY KEY,
			source       TEXT    NOT NULL,
			root         TEXT    NOT NULL,
			renderer     TEXT,
			started_at   TEXT    NOT NULL,
			finished_at  TEXT,
			total_files  INTEGER NOT NULL DEFAULT 0,
			valid_files  INTEGER NOT NULL DEFAULT 0,
			fixed_files  INTEGER NOT NULL DEFAULT 0,
			failed_files INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);

		CREATE TABLE IF NOT EXISTS diagram_events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT,
			source     TEXT    NOT NULL,
			path       TEXT    NOT NULL,
			line       INTEGER NOT NULL,
			valid      INTEGER NOT NULL,
			changed    INTEGER NOT NULL,
			attempts   INTEGER NOT NULL,
			errors     TEXT,
			created_at TEXT    NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(id)
		);

		CREATE INDEX IF NOT EXISTS idx_diag_run  ON diagram_events(run_id);
		CREATE INDEX IF NOT EXISTS idx_diag_path ON diagram_events(path);

		CREATE TABLE IF NOT EXISTS command_events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id  TEXT,
			command     TEXT    NOT NULL,
			description TEXT,
			allowed     INTEGER NOT NULL,
			category    TEXT,
			rule        TEXT,
			warnings    TEXT,
			created_at  TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_cmd_created ON command_events(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_cmd_allowed ON command_events(allowed);

		CREATE VIRTUAL TABLE IF NOT EXISTS command_events_fts USING fts5(
			command,
			description,
			category,
			content='command_events',
			content_rowid='id'
		);

		CREATE TRIGGER IF NOT EXISTS cmd_fts_insert AFTER INSERT ON command_events BEGIN
			INSERT INTO command_events_fts(rowid, command, description, category)
			VALUES (new.id, new.command, new.description, new.category);
		END;

		CREATE TRIGGER IF NOT EXISTS cmd_fts_delete AFTER DELETE ON command_events BEGIN
			INSERT INTO command_events_fts(command_events_fts, rowid, command, description, category)
			VALUES ('delete', old.id, old.command, old.description, old.category);
		END;
	`)
	return err
}

// ─── Runs ────────────────────────────────────────────────────────────────────

// StartRun opens a run and returns its id.
func (s *Store) StartRun(source, root, renderer string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO runs (id, source, root, renderer, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, source, root, nullable(renderer), Now(),
	)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

// FinishRun stamps the run with its totals.
func (s *Store) FinishRun(id string, t RunTotals) error {
	res, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, total_files = ?, valid_files = ?, fixed_files = ?, failed_files = ?
		 WHERE id = ?`,
		Now(), t.Total, t.Valid, t.Fixed, t.Failed, id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run: run %q not found", id)
	}
	return nil
}

// RecentRuns returns the most recent runs, newest first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT id, source, root, COALESCE(renderer, ''), started_at, finished_at,
		       total_files, valid_files, fixed_files, failed_files
		FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, s.clamp(limit))
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Source, &r.Root, &r.Renderer, &r.StartedAt, &r.FinishedAt,
			&r.TotalFiles, &r.ValidFiles, &r.FixedFiles, &r.FailedFiles); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RecordReport stores a finished final-check report as a run with one
// diagram event per diagram, in a single transaction. Files that could not
// be parsed into diagrams are recorded at line 0.
func (s *Store) RecordReport(source string, r *document.Report) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("record report: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id := r.RunID
	if id == "" {
		id = uuid.NewString()
	}
	_, err = tx.Exec(`
		INSERT INTO runs (id, source, root, renderer, started_at, finished_at,
		                  total_files, valid_files, fixed_files, failed_files)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, source, r.Root, nullable(r.Renderer),
		r.StartedAt.UTC().Format(timeLayout), r.FinishedAt.UTC().Format(timeLayout),
		r.TotalFiles, r.ValidFiles, r.FixedFiles, r.FailedFiles,
	)
	if err != nil {
		return fmt.Errorf("record report: insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO diagram_events (run_id, source, path, line, valid, changed, attempts, errors, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("record report: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := Now()
	for _, f := range r.Files {
		events := EventsFor(source, f)
		for _, e := range events {
			if _, err := stmt.Exec(id, e.Source, e.Path, e.Line, e.Valid, e.Changed, e.Attempts, nullable(e.Errors), now); err != nil {
				return fmt.Errorf("record report: insert event: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record report: commit: %w", err)
	}
	return nil
}

// EventsFor converts a processed file into journal events, one per
// diagram. A file without diagrams that still failed yields one event at
// line 0.
func EventsFor(source string, f document.FileResult) []DiagramEvent {
	if len(f.Diagrams) == 0 {
		if f.Valid {
			return nil
		}
		return []DiagramEvent{{Source: source, Path: f.Path, Errors: strings.Join(f.Errors, "\n")}}
	}
	events := make([]DiagramEvent, 0, len(f.Diagrams))
	for _, d := range f.Diagrams {
		events = append(events, DiagramEvent{
			Source:   source,
			Path:     f.Path,
			Line:     d.Line,
			Valid:    d.Valid,
			Changed:  d.Changed,
			Attempts: d.Attempts,
			Errors:   strings.Join(d.Errors, "\n"),
		})
	}
	return events
}

// ─── Diagram Events ─────────────────────────────────────────────────────────

// RecordDiagram stores a diagram validation outcome.
func (s *Store) RecordDiagram(e DiagramEvent) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO diagram_events (run_id, source, path, line, valid, changed, attempts, errors, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullable(e.RunID), e.Source, e.Path, e.Line, e.Valid, e.Changed, e.Attempts, nullable(e.Errors), Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("record diagram: %w", err)
	}
	return res.LastInsertId()
}

// DiagramEvents returns the events of a run, or the most recent events when
// runID is empty.
func (s *Store) DiagramEvents(runID string, limit int) ([]DiagramEvent, error) {
	query := `
		SELECT id, COALESCE(run_id, ''), source, path, line, valid, changed, attempts,
		       COALESCE(errors, ''), created_at
		FROM diagram_events`
	var args []any
	if runID != "" {
		query += " WHERE run_id = ? ORDER BY path, line"
		args = append(args, runID)
	} else {
		query += " ORDER BY id DESC"
	}
	query += " LIMIT ?"
	args = append(args, s.clamp(limit))

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("diagram events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []DiagramEvent
	for rows.Next() {
		var e DiagramEvent
		if err := rows.Scan(&e.ID, &e.RunID, &e.Source, &e.Path, &e.Line, &e.Valid, &e.Changed,
			&e.Attempts, &e.Errors, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ─── Command Events ─────────────────────────────────────────────────────────

// RecordCommand stores a screened shell command.
func (s *Store) RecordCommand(e CommandEvent) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO command_events (session_id, command, description, allowed, category, rule, warnings, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nullable(e.SessionID), e.Command, nullable(e.Description), e.Allowed,
		nullable(e.Category), nullable(e.Rule), nullable(e.Warnings), Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("record command: %w", err)
	}
	return res.LastInsertId()
}

const commandColumns = `c.id, COALESCE(c.session_id, ''), c.command, COALESCE(c.description, ''), c.allowed,
	COALESCE(c.category, ''), COALESCE(c.rule, ''), COALESCE(c.warnings, ''), c.created_at`

// RecentCommands returns the latest commands, newest first. blockedOnly
// filters to commands the guard stopped.
func (s *Store) RecentCommands(limit int, blockedOnly bool) ([]CommandEvent, error) {
	query := "SELECT " + commandColumns + " FROM command_events c"
	if blockedOnly {
		query += " WHERE c.allowed = 0"
	}
	query += " ORDER BY c.id DESC LIMIT ?"
	return s.queryCommands(query, s.clamp(limit))
}

// SearchCommands runs a full-text query over command text, descriptions
// and categories. An empty query falls back to RecentCommands.
func (s *Store) SearchCommands(query string, limit int) ([]CommandEvent, error) {
	ftsQuery := sanitizeFTS(query)
	if ftsQuery == "" {
		return s.RecentCommands(limit, false)
	}
	return s.queryCommands(`
		SELECT `+commandColumns+`
		FROM command_events_fts fts
		JOIN command_events c ON c.id = fts.rowid
		WHERE command_events_fts MATCH ?
		ORDER BY fts.rank LIMIT ?`, ftsQuery, s.clamp(limit))
}

func (s *Store) queryCommands(query string, args ...any) ([]CommandEvent, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query commands: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []CommandEvent
	for rows.Next() {
		var e CommandEvent
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Command, &e.Description, &e.Allowed,
			&e.Category, &e.Rule, &e.Warnings, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ─── Maintenance ────────────────────────────────────────────────────────────

// Prune deletes events and runs older than the given age. It returns the
// number of rows removed.
func (s *Store) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(timeLayout)
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var total int64
	for _, q := range []string{
		"DELETE FROM diagram_events WHERE created_at < ?",
		"DELETE FROM command_events WHERE created_at < ?",
		"DELETE FROM runs WHERE started_at < ? AND id NOT IN (SELECT run_id FROM diagram_events WHERE run_id IS NOT NULL)",
	} {
		res, err := tx.Exec(q, cutoff)
		if err != nil {
			return 0, fmt.Errorf("prune: %w", err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("prune: commit: %w", err)
	}
	return total, nil
}

// ─── Stats ───────────────────────────────────────────────────────────────────

// Stats returns aggregate journal counters.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{}

	_ = s.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&stats.TotalRuns)
	_ = s.db.QueryRow("SELECT COUNT(*) FROM diagram_events").Scan(&stats.TotalDiagrams)
	_ = s.db.QueryRow("SELECT COUNT(*) FROM diagram_events WHERE valid = 0").Scan(&stats.InvalidDiagrams)
	_ = s.db.QueryRow("SELECT COUNT(*) FROM diagram_events WHERE changed = 1").Scan(&stats.ChangedDiagrams)
	_ = s.db.QueryRow("SELECT COUNT(*) FROM command_events").Scan(&stats.TotalCommands)
	_ = s.db.QueryRow("SELECT COUNT(*) FROM command_events WHERE allowed = 0").Scan(&stats.BlockedCommands)

	rows, err := s.db.Query(`
		SELECT rule, COUNT(*) AS n FROM command_events
		WHERE allowed = 0 AND rule IS NOT NULL
		GROUP BY rule ORDER BY n DESC, rule LIMIT 5`)
	if err != nil {
		return stats, nil
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var rc RuleCount
		if err := rows.Scan(&rc.Rule, &rc.Count); err == nil {
			stats.TopBlockingRules = append(stats.TopBlockingRules, rc)
		}
	}
	return stats, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

const timeLayout = "2006-01-02 15:04:05"

// Now returns the current UTC time in the journal's timestamp format.
func Now() string {
	return time.Now().UTC().Format(timeLayout)
}

// Truncate shortens s to n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func (s *Store) clamp(limit int) int {
	if limit <= 0 {
		limit = 10
	}
	if limit > s.cfg.MaxSearchResults {
		limit = s.cfg.MaxSearchResults
	}
	return limit
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// sanitizeFTS wraps each word in quotes so FTS5 operators in user input are
// matched literally.
func sanitizeFTS(query string) string {
	words := strings.Fields(query)
	for i, w := range words {
		w = strings.ReplaceAll(strings.Trim(w, `"`), `"`, `""`)
		words[i] = `"` + w + `"`
	}
	return strings.Join(words, " ")
}
