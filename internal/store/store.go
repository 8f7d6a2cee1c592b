// Package store persists document passes and their decisions to SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/admission"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/logging"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/pipeline"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	parent_id     TEXT,
	document_id   TEXT NOT NULL,
	digest        TEXT NOT NULL,
	config_digest TEXT NOT NULL,
	segments      INTEGER NOT NULL,
	admitted      INTEGER NOT NULL,
	suppressed    INTEGER NOT NULL,
	tier4_budget  INTEGER NOT NULL,
	tier4_used    INTEGER NOT NULL,
	density_cap   INTEGER NOT NULL,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS decisions (
	run_id          TEXT NOT NULL,
	position        INTEGER NOT NULL,
	segment_id      INTEGER NOT NULL,
	max_tier        INTEGER NOT NULL,
	winning_trigger TEXT,
	accepted_json   TEXT NOT NULL,
	rationale_json  TEXT NOT NULL,
	PRIMARY KEY (run_id, position),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS suppression_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT NOT NULL,
	segment_id   INTEGER NOT NULL,
	effect_id    TEXT NOT NULL,
	modality     TEXT NOT NULL,
	tier         INTEGER NOT NULL,
	trigger_type TEXT NOT NULL,
	stage        TEXT NOT NULL,
	reason       TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS latest_run (
	document_id TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`
// #endregion schema

// #region store-struct
// Store manages persisted runs in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}
// #endregion store-struct

// #region constructor
// Open opens a SQLite database and runs migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
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
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
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

// #region save-run
// SaveRun persists a completed pass, its decisions and every suppression in
// one transaction, and makes it the latest run for its document.
func (s *Store) SaveRun(res *pipeline.Result, configDigest string) (RunRecord, error) {
	rec := RunRecord{
		RunID:        uuid.New().String(),
		DocumentID:   res.DocumentID,
		Digest:       res.Digest,
		ConfigDigest: configDigest,
		Segments:     len(res.Decisions),
		Admitted:     res.Admitted(),
		Tier4Budget:  res.Tier4Budget,
		Tier4Used:    res.Tier4Used,
		DensityCap:   res.DensityCap,
		CreatedAt:    s.now(),
	}
	for _, d := range res.Decisions {
		rec.Suppressed += len(d.Rationale.Suppressed)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return RunRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parent sql.NullString
	err = tx.QueryRow(`SELECT run_id FROM latest_run WHERE document_id = ?`, rec.DocumentID).Scan(&parent)
	if err != nil && err != sql.ErrNoRows {
		return RunRecord{}, fmt.Errorf("get latest: %w", err)
	}
	if parent.Valid {
		rec.ParentID = parent.String
	}

	_, err = tx.Exec(
		`INSERT INTO runs (run_id, parent_id, document_id, digest, config_digest, segments,
		 admitted, suppressed, tier4_budget, tier4_used, density_cap, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, nullIfEmpty(rec.ParentID), rec.DocumentID, rec.Digest, rec.ConfigDigest, rec.Segments,
		rec.Admitted, rec.Suppressed, rec.Tier4Budget, rec.Tier4Used, rec.DensityCap,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return RunRecord{}, fmt.Errorf("insert run: %w", err)
	}

	for pos, d := range res.Decisions {
		accepted, err := json.Marshal(d.Accepted)
		if err != nil {
			return RunRecord{}, fmt.Errorf("marshal accepted: %w", err)
		}
		rationale, err := json.Marshal(d.Rationale)
		if err != nil {
			return RunRecord{}, fmt.Errorf("marshal rationale: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO decisions (run_id, position, segment_id, max_tier, winning_trigger, accepted_json, rationale_json)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.RunID, pos, d.SegmentID, d.MaxTier(), nullIfEmpty(string(d.Rationale.WinningTrigger)),
			string(accepted), string(rationale),
		)
		if err != nil {
			return RunRecord{}, fmt.Errorf("insert decision %d: %w", d.SegmentID, err)
		}
		for _, sup := range d.Rationale.Suppressed {
			err := logging.LogSuppression(tx, logging.SuppressionEntry{
				RunID:     rec.RunID,
				SegmentID: d.SegmentID,
				EffectID:  sup.EffectID,
				Modality:  string(sup.Modality),
				Tier:      sup.Tier,
				Trigger:   string(sup.Trigger),
				Stage:     sup.Stage,
				Reason:    sup.Reason,
				CreatedAt: rec.CreatedAt,
			})
			if err != nil {
				return RunRecord{}, err
			}
		}
	}

	_, err = tx.Exec(
		`INSERT INTO latest_run (document_id, run_id) VALUES (?, ?)
		 ON CONFLICT(document_id) DO UPDATE SET run_id = excluded.run_id`,
		rec.DocumentID, rec.RunID,
	)
	if err != nil {
		return RunRecord{}, fmt.Errorf("set latest: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return RunRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}
// #endregion save-run

// #region get-run
const runColumns = `run_id, parent_id, document_id, digest, config_digest, segments,
	admitted, suppressed, tier4_budget, tier4_used, density_cap, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (RunRecord, error) {
	var rec RunRecord
	var parentID sql.NullString
	var createdStr string
	err := row.Scan(&rec.RunID, &parentID, &rec.DocumentID, &rec.Digest, &rec.ConfigDigest, &rec.Segments,
		&rec.Admitted, &rec.Suppressed, &rec.Tier4Budget, &rec.Tier4Used, &rec.DensityCap, &createdStr)
	if err != nil {
		return RunRecord{}, err
	}
	if parentID.Valid {
		rec.ParentID = parentID.String
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

// GetRun retrieves a run by id.
func (s *Store) GetRun(id string) (RunRecord, error) {
	rec, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, id))
	if err != nil {
		return RunRecord{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return rec, nil
}

// LatestRun returns the most recently saved run for a document.
func (s *Store) LatestRun(documentID string) (RunRecord, error) {
	var runID string
	err := s.db.QueryRow(`SELECT run_id FROM latest_run WHERE document_id = ?`, documentID).Scan(&runID)
	if err != nil {
		return RunRecord{}, fmt.Errorf("get latest %s: %w", documentID, err)
	}
	return s.GetRun(runID)
}
// #endregion get-run

// #region list-runs
// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
// #endregion list-runs

// #region load-decisions
// LoadDecisions rebuilds the decision timeline of a run in document order.
func (s *Store) LoadDecisions(runID string) ([]admission.Decision, error) {
	rows, err := s.db.Query(
		`SELECT segment_id, accepted_json, rationale_json FROM decisions
		 WHERE run_id = ? ORDER BY position`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("load decisions: %w", err)
	}
	defer rows.Close()

	out := []admission.Decision{}
	for rows.Next() {
		var d admission.Decision
		var accepted, rationale string
		if err := rows.Scan(&d.SegmentID, &accepted, &rationale); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(accepted), &d.Accepted); err != nil {
			return nil, fmt.Errorf("unmarshal accepted %d: %w", d.SegmentID, err)
		}
		if err := json.Unmarshal([]byte(rationale), &d.Rationale); err != nil {
			return nil, fmt.Errorf("unmarshal rationale %d: %w", d.SegmentID, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DecisionRows returns the summary rows of a run, only those with admitted
// effects when admittedOnly is set.
func (s *Store) DecisionRows(runID string, admittedOnly bool) ([]DecisionRow, error) {
	decisions, err := s.LoadDecisions(runID)
	if err != nil {
		return nil, err
	}
	var out []DecisionRow
	for pos, d := range decisions {
		if admittedOnly && len(d.Accepted) == 0 {
			continue
		}
		out = append(out, DecisionRow{
			Position:       pos,
			SegmentID:      d.SegmentID,
			MaxTier:        d.MaxTier(),
			WinningTrigger: string(d.Rationale.WinningTrigger),
			Accepted:       len(d.Accepted),
			Suppressed:     len(d.Rationale.Suppressed),
		})
	}
	return out, nil
}

// ReasonCounts tallies suppression reasons of a run from the suppression log.
func (s *Store) ReasonCounts(runID string) (map[string]int, error) {
	rows, err := s.db.Query(
		`SELECT stage || ':' || reason, COUNT(*) FROM suppression_log WHERE run_id = ? GROUP BY 1`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("reason counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out[key] = n
	}
	return out, rows.Err()
}
// #endregion load-decisions

// #region helpers
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
