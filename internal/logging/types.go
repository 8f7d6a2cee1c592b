package logging

import (
	"database/sql"
	"time"
)

// #region suppression-entry
// SuppressionEntry is a single row in the suppression_log table.
type SuppressionEntry struct {
	RunID     string
	SegmentID int
	EffectID  string
	Modality  string
	Tier      int
	Trigger   string
	Stage     string // "filter" | "admission"
	Reason    string
	CreatedAt time.Time
}
// #endregion suppression-entry

// #region execer
// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}
// #endregion execer
