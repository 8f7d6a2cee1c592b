// Package effect defines the candidate vocabulary shared by generation, filtering and admission.
package effect

import "fmt"

// #region modality
// Modality is the sensory channel an effect is rendered on.
type Modality string

const (
	Visual  Modality = "visual"
	Audio   Modality = "audio"
	Haptic  Modality = "haptic"
	Kinetic Modality = "kinetic"
)

// Modalities lists every modality in canonical order.
var Modalities = []Modality{Visual, Audio, Haptic, Kinetic}

// Valid reports whether m is a known modality.
func (m Modality) Valid() bool {
	switch m {
	case Visual, Audio, Haptic, Kinetic:
		return true
	}
	return false
}

// #endregion modality

// #region trigger-kind
// TriggerKind names the signal that produced a candidate.
type TriggerKind string

const (
	TriggerClimax    TriggerKind = "climax"
	TriggerDeviation TriggerKind = "emotional_deviation"
	TriggerEvent     TriggerKind = "narratological_event"
	TriggerKeyword   TriggerKind = "keyword"
)

// Priority returns the arbitration rank of k; higher wins.
func (k TriggerKind) Priority() int {
	switch k {
	case TriggerClimax:
		return 4
	case TriggerDeviation:
		return 3
	case TriggerEvent:
		return 2
	case TriggerKeyword:
		return 1
	}
	return 0
}

// Valid reports whether k is a known trigger kind.
func (k TriggerKind) Valid() bool { return k.Priority() > 0 }

// #endregion trigger-kind

// #region tier
const (
	TierAmbient = 1
	TierAccent  = 2
	TierStrong  = 3
	TierDisrupt = 4
	MaxTier     = TierDisrupt
)

// #endregion tier

// #region candidate
// Candidate is an eligible effect for one segment. It never outlives the segment.
type Candidate struct {
	EffectID        string      `json:"effect_id"`
	Class           string      `json:"class"`
	Tier            int         `json:"tier"`
	Modality        Modality    `json:"modality"`
	Trigger         TriggerKind `json:"trigger_kind"`
	Intensity       float64     `json:"intensity"`
	ThemeCompatible bool        `json:"theme_compatible"`
	CharacterID     string      `json:"character_id,omitempty"`
	Clarifying      bool        `json:"clarifying,omitempty"`
	JumpScare       bool        `json:"jump_scare,omitempty"`
	FallbackID      string      `json:"fallback_id,omitempty"`
}

// Key identifies a candidate within a segment.
func (c Candidate) Key() string {
	return fmt.Sprintf("%s/%s", c.EffectID, c.Trigger)
}

// Outranks reports whether c wins arbitration against o:
// trigger priority, then tier, then intensity, then effect id for a total order.
func (c Candidate) Outranks(o Candidate) bool {
	if p, q := c.Trigger.Priority(), o.Trigger.Priority(); p != q {
		return p > q
	}
	if c.Tier != o.Tier {
		return c.Tier > o.Tier
	}
	if c.Intensity != o.Intensity {
		return c.Intensity > o.Intensity
	}
	if c.EffectID != o.EffectID {
		return c.EffectID < o.EffectID
	}
	return c.CharacterID < o.CharacterID
}

// Accept converts a candidate into the emitted tuple.
func (c Candidate) Accept() Accepted {
	return Accepted{EffectID: c.EffectID, Modality: c.Modality, Intensity: c.Intensity, Tier: c.Tier}
}

// #endregion candidate

// #region accepted
// Accepted is one admitted (effect_id, modality, intensity, tier) tuple.
type Accepted struct {
	EffectID  string   `json:"effect_id"`
	Modality  Modality `json:"modality"`
	Intensity float64  `json:"intensity"`
	Tier      int      `json:"tier"`
}

// #endregion accepted
