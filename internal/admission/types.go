package admission

import (
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/effect"
)

// #region reasons
// Reason names the gate that suppressed a candidate.
type Reason string

const (
	ReasonGovernor         Reason = "governor"
	ReasonBudgetExhausted  Reason = "budget_exhausted"
	ReasonClimaxBelowPeak  Reason = "climax_below_peak"
	ReasonTier4Spacing     Reason = "tier4_spacing"
	ReasonComplexityTier4  Reason = "complexity_tier4"
	ReasonCooldown         Reason = "cooldown"
	ReasonJumpScare        Reason = "jump_scare_cooldown"
	ReasonConflictLost     Reason = "conflict_lost"
	ReasonMutualExclusion  Reason = "mutual_exclusion"
	ReasonConsecutive      Reason = "consecutive_limit"
	ReasonSpacing          Reason = "spacing_violation"
	ReasonDensity          Reason = "density_ceiling"
	ReasonChapterLimit     Reason = "chapter_limit"
	ReasonTier4PerSegment  Reason = "tier4_per_segment"
	ReasonFallbackRejected Reason = "fallback_rejected"
)

// #endregion reasons

// #region decision
// Suppression records one candidate that did not make it, and why.
type Suppression struct {
	EffectID string             `json:"effect_id"`
	Modality effect.Modality    `json:"modality"`
	Tier     int                `json:"tier"`
	Trigger  effect.TriggerKind `json:"trigger_kind"`
	Stage    string             `json:"stage"` // "filter" or "admission"
	Reason   string             `json:"reason"`
}

// Substitution records a tier-4 candidate replaced by its lower-tier fallback.
type Substitution struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason Reason `json:"reason"`
}

// Rationale explains a decision for audit and tests.
type Rationale struct {
	MaxAllowedTier int                `json:"max_allowed_tier"`
	TierCapReason  Reason             `json:"tier_cap_reason,omitempty"`
	WinningTrigger effect.TriggerKind `json:"winning_trigger,omitempty"`
	Substitutions  []Substitution     `json:"substitutions,omitempty"`
	Suppressed     []Suppression      `json:"suppressed,omitempty"`
	Notes          []string           `json:"notes,omitempty"`
}

// Decision is the final output for one segment.
type Decision struct {
	SegmentID int               `json:"segment_id"`
	Accepted  []effect.Accepted `json:"accepted"`
	Rationale Rationale         `json:"rationale"`
}

// SuppressedFor returns the first suppression reason recorded for effectID, or "".
func (d Decision) SuppressedFor(effectID string) string {
	for _, s := range d.Rationale.Suppressed {
		if s.EffectID == effectID {
			return s.Reason
		}
	}
	return ""
}

// Has reports whether effectID was admitted.
func (d Decision) Has(effectID string) bool {
	for _, a := range d.Accepted {
		if a.EffectID == effectID {
			return true
		}
	}
	return false
}

// MaxTier returns the highest admitted tier, 0 when nothing was admitted.
func (d Decision) MaxTier() int {
	top := 0
	for _, a := range d.Accepted {
		if a.Tier > top {
			top = a.Tier
		}
	}
	return top
}

// #endregion decision

// #region state
// State is the only state carried across segments. One per document pass.
// Word and position fields use -1 for "never".
type State struct {
	LastEmitted        map[effect.Modality]int
	Tier4Budget        int
	Tier4Remaining     int
	ConsecutiveCount   int
	LastTier4WordIndex int
	LastJumpScareIndex int
	LastElevatedPos    int
	ElevatedSegments   int
	ChapterElevated    map[int]int
}

// NewState returns the initial state for a document with the given tier-4 budget.
func NewState(tier4Budget int) *State {
	return &State{
		LastEmitted:        make(map[effect.Modality]int),
		Tier4Budget:        tier4Budget,
		Tier4Remaining:     tier4Budget,
		LastTier4WordIndex: -1,
		LastJumpScareIndex: -1,
		LastElevatedPos:    -1,
		ChapterElevated:    make(map[int]int),
	}
}

// Tier4Used returns the number of tier-4 admissions so far.
func (s *State) Tier4Used() int { return s.Tier4Budget - s.Tier4Remaining }

// #endregion state
