package store

import "time"

// #region run-record
// RunRecord is one persisted document pass.
type RunRecord struct {
	RunID        string    `json:"run_id"`
	ParentID     string    `json:"parent_id,omitempty"` // previous run of the same document
	DocumentID   string    `json:"document_id"`
	Digest       string    `json:"digest"`
	ConfigDigest string    `json:"config_digest"`
	Segments     int       `json:"segments"`
	Admitted     int       `json:"admitted"`
	Suppressed   int       `json:"suppressed"`
	Tier4Budget  int       `json:"tier4_budget"`
	Tier4Used    int       `json:"tier4_used"`
	DensityCap   int       `json:"density_cap"`
	CreatedAt    time.Time `json:"created_at"`
}
// #endregion run-record

// #region decision-row
// DecisionRow is the queryable summary of one stored decision.
type DecisionRow struct {
	Position       int
	SegmentID      int
	MaxTier        int
	WinningTrigger string
	Accepted       int
	Suppressed     int
}
// #endregion decision-row
