// Package journal keeps an audit trail of kernel activity in SQLite. The
// kernel never reads it back; it exists for offline inspection.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/NaturesHolismMELV/AIOS/internal/intervention"
	"github.com/NaturesHolismMELV/AIOS/internal/ledger"
)

// #region schema
// Every kernel numbers its ledger from 1 and its events from BIF-0001, so
// rows are keyed by the run that wrote them.
const schema = `
CREATE TABLE IF NOT EXISTS interactions (
	run_id        TEXT NOT NULL,
	seq           INTEGER NOT NULL,
	agent_a       TEXT NOT NULL,
	agent_b       TEXT NOT NULL,
	cost          REAL NOT NULL,
	benefit       REAL NOT NULL,
	beta          REAL NOT NULL,
	resource_type TEXT,
	i_factor      REAL NOT NULL,
	beta_i        REAL NOT NULL,
	class         TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE TABLE IF NOT EXISTS bifurcation_events (
	run_id        TEXT NOT NULL,
	event_id      TEXT NOT NULL,
	seq           INTEGER,
	agent_a       TEXT NOT NULL,
	agent_b       TEXT NOT NULL,
	beta_i_pre    REAL NOT NULL,
	beta_i_post   REAL NOT NULL,
	action        TEXT NOT NULL,
	description   TEXT,
	resolved      INTEGER NOT NULL,
	created_at    TEXT NOT NULL,
	PRIMARY KEY (run_id, event_id),
	FOREIGN KEY (run_id, seq) REFERENCES interactions(run_id, seq)
);
`

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #endregion schema

// #region store-struct
// Store is the SQLite-backed journal. Writes are tagged with the run id
// drawn when the store was opened.
type Store struct {
	db  *sql.DB
	run string
}

// #endregion store-struct

// #region constructor
// Open opens (or creates) the journal database and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	check, err := db.Query("SELECT run_id FROM interactions LIMIT 0")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("journal %s predates run ids, move it aside: %w", path, err)
	}
	check.Close()
	return &Store{db: db, run: uuid.NewString()}, nil
}

// Run returns the id this store writes under.
func (s *Store) Run() string {
	return s.run
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region write
// WriteInteraction stores a ledger record and, when present, its event in
// one transaction.
func (s *Store) WriteInteraction(rec ledger.Record, ev *intervention.Event) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO interactions (run_id, seq, agent_a, agent_b, cost, benefit, beta, resource_type, i_factor, beta_i, class, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.run, rec.Seq, rec.AgentA, rec.AgentB, rec.Cost, rec.Benefit, rec.Beta,
		nullIfEmpty(rec.Resource), rec.IFactor(), rec.BetaI(), rec.Class().String(),
		formatTime(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert interaction %d: %w", rec.Seq, err)
	}

	if ev != nil {
		if err := insertEvent(tx, s.run, rec.Seq, *ev); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// WriteEvent stores an event with no linked interaction.
func (s *Store) WriteEvent(ev intervention.Event) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	if err := insertEvent(tx, s.run, 0, ev); err != nil {
		return err
	}
	return tx.Commit()
}

func insertEvent(tx *sql.Tx, run string, seq uint64, ev intervention.Event) error {
	var seqPtr interface{}
	if seq > 0 {
		seqPtr = seq
	}
	resolved := 0
	if ev.Resolved {
		resolved = 1
	}
	_, err := tx.Exec(
		`INSERT INTO bifurcation_events (run_id, event_id, seq, agent_a, agent_b, beta_i_pre, beta_i_post, action, description, resolved, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run, ev.ID, seqPtr, ev.AgentA, ev.AgentB, ev.BetaIPre, ev.BetaIPost,
		ev.Action.String(), nullIfEmpty(ev.Description), resolved, formatTime(ev.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", ev.ID, err)
	}
	return nil
}

// #endregion write

// #region read
// Reads take a run id; an empty run reads across every run.

// EventRow is a journaled event with the interaction it answered.
type EventRow struct {
	intervention.Event
	Run string `json:"run_id"`
	Seq uint64 `json:"seq,omitempty"`
}

// RecentEvents returns the most recent events, newest first.
func (s *Store) RecentEvents(run string, limit int) ([]EventRow, error) {
	rows, err := s.db.Query(
		`SELECT run_id, event_id, seq, agent_a, agent_b, beta_i_pre, beta_i_post, action, description, resolved, created_at
		 FROM bifurcation_events WHERE (? = '' OR run_id = ?) ORDER BY rowid DESC LIMIT ?`, run, run, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var (
			row         EventRow
			seq         sql.NullInt64
			action      string
			description sql.NullString
			resolved    int
			createdStr  string
		)
		if err := rows.Scan(&row.Run, &row.ID, &seq, &row.AgentA, &row.AgentB, &row.BetaIPre, &row.BetaIPost,
			&action, &description, &resolved, &createdStr); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if seq.Valid {
			row.Seq = uint64(seq.Int64)
		}
		if row.Action, err = intervention.ParseAction(action); err != nil {
			return nil, fmt.Errorf("event %s: %w", row.ID, err)
		}
		row.Description = description.String
		row.Resolved = resolved == 1
		if row.CreatedAt, err = parseTime(createdStr); err != nil {
			return nil, fmt.Errorf("event %s: %w", row.ID, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// RecentInteractions returns the most recent records, newest first. Within
// one run they come back in ledger order.
func (s *Store) RecentInteractions(run string, limit int) ([]ledger.Record, error) {
	order := "rowid DESC"
	if run != "" {
		order = "seq DESC"
	}
	rows, err := s.db.Query(
		`SELECT seq, agent_a, agent_b, cost, benefit, beta, resource_type, created_at
		 FROM interactions WHERE (? = '' OR run_id = ?) ORDER BY `+order+` LIMIT ?`, run, run, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	var out []ledger.Record
	for rows.Next() {
		var (
			rec        ledger.Record
			resource   sql.NullString
			createdStr string
		)
		if err := rows.Scan(&rec.Seq, &rec.AgentA, &rec.AgentB, &rec.Cost, &rec.Benefit, &rec.Beta,
			&resource, &createdStr); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		rec.Resource = resource.String
		if rec.CreatedAt, err = parseTime(createdStr); err != nil {
			return nil, fmt.Errorf("interaction %d: %w", rec.Seq, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RunInfo summarizes one run's interactions.
type RunInfo struct {
	ID           string    `json:"run_id"`
	Interactions int       `json:"interactions"`
	First        time.Time `json:"first"`
	Last         time.Time `json:"last"`
}

// Runs lists every run that journaled interactions, oldest first.
func (s *Store) Runs() ([]RunInfo, error) {
	rows, err := s.db.Query(
		`SELECT run_id, COUNT(*), MIN(created_at), MAX(created_at)
		 FROM interactions GROUP BY run_id ORDER BY MIN(rowid)`,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var (
			ri          RunInfo
			first, last string
		)
		if err := rows.Scan(&ri.ID, &ri.Interactions, &first, &last); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if ri.First, err = parseTime(first); err != nil {
			return nil, fmt.Errorf("run %s: %w", ri.ID, err)
		}
		if ri.Last, err = parseTime(last); err != nil {
			return nil, fmt.Errorf("run %s: %w", ri.ID, err)
		}
		out = append(out, ri)
	}
	return out, rows.Err()
}

// LatestRun returns the run that journaled the newest interaction, or ""
// when there is none.
func (s *Store) LatestRun() (string, error) {
	var run string
	err := s.db.QueryRow(`SELECT run_id FROM interactions ORDER BY rowid DESC LIMIT 1`).Scan(&run)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// Counts summarizes the journal.
type Counts struct {
	Interactions int            `json:"interactions"`
	Events       int            `json:"events"`
	Unresolved   int            `json:"unresolved"`
	ByAction     map[string]int `json:"by_action"`
}

// Counts tallies journaled interactions and events.
func (s *Store) Counts(run string) (Counts, error) {
	c := Counts{ByAction: map[string]int{}}
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM interactions WHERE (? = '' OR run_id = ?)`, run, run,
	).Scan(&c.Interactions); err != nil {
		return c, fmt.Errorf("count interactions: %w", err)
	}
	if err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN resolved = 0 THEN 1 ELSE 0 END), 0)
		 FROM bifurcation_events WHERE (? = '' OR run_id = ?)`, run, run,
	).Scan(&c.Events, &c.Unresolved); err != nil {
		return c, fmt.Errorf("count events: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT action, COUNT(*) FROM bifurcation_events WHERE (? = '' OR run_id = ?) GROUP BY action`, run, run,
	)
	if err != nil {
		return c, fmt.Errorf("count actions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var action string
		var n int
		if err := rows.Scan(&action, &n); err != nil {
			return c, fmt.Errorf("scan action count: %w", err)
		}
		c.ByAction[action] = n
	}
	return c, rows.Err()
}

// #endregion read

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", s, err)
	}
	return t, nil
}

// #endregion helpers
