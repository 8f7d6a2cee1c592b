// Package logging writes the suppression audit trail.
package logging

import (
	"fmt"
	"time"
)

// #region log-suppression
// LogSuppression writes one suppressed candidate to the suppression_log table.
func LogSuppression(db Execer, entry SuppressionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.RunID == "" || entry.EffectID == "" || entry.Reason == "" {
		return fmt.Errorf("log suppression: run, effect and reason are required")
	}

	_, err := db.Exec(
		`INSERT INTO suppression_log (run_id, segment_id, effect_id, modality, tier, trigger_type, stage, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.SegmentID,
		entry.EffectID,
		entry.Modality,
		entry.Tier,
		entry.Trigger,
		entry.Stage,
		entry.Reason,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log suppression: %w", err)
	}
	return nil
}
// #endregion log-suppression
