// Package character tracks per-character emotional baselines and deviation.
package character

import (
	"sort"

	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/effect"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/narrative"
)

// #region archetype
// Archetype is a character role tag.
type Archetype string

const (
	Mentor    Archetype = "mentor"
	Sage      Archetype = "sage"
	Trickster Archetype = "trickster"
	Hero      Archetype = "hero"
	Villain   Archetype = "villain"
	Innocent  Archetype = "innocent"
)

// Traits is the fixed behavior table for one archetype.
type Traits struct {
	Multipliers map[effect.Modality]float64
	Suppresses  []string // effect classes never shown for this character
}

var traitTable = map[Archetype]Traits{
	Mentor: {
		Multipliers: map[effect.Modality]float64{effect.Kinetic: 0.6, effect.Haptic: 0.8},
		Suppresses:  []string{"jitter"},
	},
	Sage: {
		Multipliers: map[effect.Modality]float64{effect.Visual: 0.8, effect.Kinetic: 0.5},
		Suppresses:  []string{"jitter", "shake"},
	},
	Trickster: {
		Multipliers: map[effect.Modality]float64{effect.Kinetic: 1.3, effect.Visual: 1.1},
	},
	Hero: {
		Multipliers: map[effect.Modality]float64{effect.Haptic: 1.1, effect.Kinetic: 1.1},
	},
	Villain: {
		Multipliers: map[effect.Modality]float64{effect.Audio: 1.2, effect.Haptic: 1.2},
	},
	Innocent: {
		Multipliers: map[effect.Modality]float64{effect.Haptic: 0.7, effect.Audio: 0.9},
		Suppresses:  []string{"shake"},
	},
}

// TraitsOf returns the traits for a, and whether a is known.
func TraitsOf(a Archetype) (Traits, bool) {
	t, ok := traitTable[a]
	return t, ok
}

// ArchetypeSet is a sorted, duplicate-free set of archetype tags.
type ArchetypeSet []Archetype

// NewArchetypeSet normalizes tags into a set.
func NewArchetypeSet(tags ...Archetype) ArchetypeSet {
	seen := make(map[Archetype]bool, len(tags))
	var out ArchetypeSet
	for _, t := range tags {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Multiplier is the product of every archetype's multiplier for m.
func (s ArchetypeSet) Multiplier(m effect.Modality) float64 {
	mult := 1.0
	for _, a := range s {
		if f, ok := traitTable[a].Multipliers[m]; ok {
			mult *= f
		}
	}
	return mult
}

// Suppresses reports whether any archetype in s forbids the effect class.
func (s ArchetypeSet) Suppresses(class string) bool {
	for _, a := range s {
		for _, c := range traitTable[a].Suppresses {
			if c == class {
				return true
			}
		}
	}
	return false
}

// #endregion archetype

// #region seed
// Seed is the externally supplied profile for one character.
// Baseline and Sigma are optional; when nil they are computed from the document.
type Seed struct {
	ID         string                   `json:"id" yaml:"id"`
	Archetypes []Archetype              `json:"archetypes" yaml:"archetypes"`
	Baseline   *narrative.EmotionVector `json:"baseline_emotion,omitempty" yaml:"baseline_emotion,omitempty"`
	Sigma      *narrative.EmotionVector `json:"emotion_sigma,omitempty" yaml:"emotion_sigma,omitempty"`
}

// #endregion seed

// #region status
// Status describes whether deviation can be computed for a character.
type Status string

const (
	StatusNone         Status = ""
	StatusReady        Status = "ready"
	StatusInsufficient Status = "insufficient_data"
)

// #endregion status

// #region profile
// Profile is one tracked character. Only current changes after construction.
type Profile struct {
	ID         string
	Archetypes ArchetypeSet
	Baseline   narrative.EmotionVector
	Sigma      narrative.EmotionVector
	Attributed int
	Eligible   bool

	current    narrative.EmotionVector
	hasCurrent bool
}

// #endregion profile

// #region reading
// Reading is the per-segment snapshot handed to the candidate generator.
type Reading struct {
	CharacterID string
	Archetypes  ArchetypeSet
	Status      Status
	Fresh       bool // segment carried new emotion data
	Deviation   narrative.EmotionVector
	Peak        narrative.Emotion // dimension with the largest positive z
	PeakZ       float64           // z of Peak, 0 when nothing rose above baseline
}

// Speaking reports whether the reading belongs to a character.
func (r Reading) Speaking() bool { return r.CharacterID != "" }

// #endregion reading
