// Package quality drops candidates that break theme diegesis, score floors or character consistency.
package quality

import (
	"strings"

	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/character"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/config"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/effect"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/narrative"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/registry"
)

// #region reasons
// Reason names why a candidate was dropped.
type Reason string

const (
	ReasonForbidden        Reason = "theme_forbidden"
	ReasonIncompatible     Reason = "theme_incompatible"
	ReasonLowIntensity     Reason = "below_min_intensity"
	ReasonLowEmotional     Reason = "below_min_emotional_score"
	ReasonArchetype        Reason = "archetype_suppressed"
	ReasonIncompatiblePair Reason = "incompatible_pair"
	ReasonMaxPerSegment    Reason = "max_per_segment"
	ReasonContextForbidden Reason = "context_forbidden"
)

// Drop is one filtered-out candidate.
type Drop struct {
	Candidate effect.Candidate `json:"candidate"`
	Reason    Reason           `json:"reason"`
}

// #endregion reasons

// #region filter
// ArchetypeLookup returns the archetype set of a character.
type ArchetypeLookup func(characterID string) character.ArchetypeSet

// Filter is stateless and safe for concurrent use.
type Filter struct {
	reg        *registry.Registry
	cfg        config.QualityConfig
	archetypes ArchetypeLookup
}

// New creates a filter. A nil lookup disables archetype suppression.
func New(reg *registry.Registry, cfg config.QualityConfig, archetypes ArchetypeLookup) *Filter {
	return &Filter{reg: reg, cfg: cfg, archetypes: archetypes}
}

// Apply returns the surviving candidates, strongest first.
func (f *Filter) Apply(seg narrative.Segment, cs []effect.Candidate) []effect.Candidate {
	kept, _ := f.Report(seg, cs)
	return kept
}

// Report is Apply plus the list of drops for the audit trail.
func (f *Filter) Report(seg narrative.Segment, cs []effect.Candidate) ([]effect.Candidate, []Drop) {
	var drops []Drop
	drop := func(c effect.Candidate, r Reason) { drops = append(drops, Drop{Candidate: c, Reason: r}) }

	ranked := effect.Ranked(cs)
	active := contexts(seg)
	var pass []effect.Candidate
	for _, c := range ranked {
		if reason, ok := f.check(seg, active, c); !ok {
			drop(c, reason)
			continue
		}
		pass = append(pass, c)
	}

	var kept []effect.Candidate
	for _, c := range pass {
		if f.clashes(seg.ThemeID, c, kept) {
			drop(c, ReasonIncompatiblePair)
			continue
		}
		if len(kept) >= f.cfg.MaxPerSegment {
			drop(c, ReasonMaxPerSegment)
			continue
		}
		kept = append(kept, c)
	}
	return kept, drops
}

// Admit runs the per-candidate checks and the pair rules for one candidate
// joining an already filtered set.
func (f *Filter) Admit(seg narrative.Segment, c effect.Candidate, kept []effect.Candidate) (Reason, bool) {
	if reason, ok := f.check(seg, contexts(seg), c); !ok {
		return reason, false
	}
	if f.clashes(seg.ThemeID, c, kept) {
		return ReasonIncompatiblePair, false
	}
	return "", true
}

func (f *Filter) check(seg narrative.Segment, active map[string]bool, c effect.Candidate) (Reason, bool) {
	if f.reg.Forbidden(seg.ThemeID, c.EffectID) {
		return ReasonForbidden, false
	}
	if _, hit := f.reg.ContextForbids(active, c.EffectID); hit {
		return ReasonContextForbidden, false
	}
	if !c.ThemeCompatible {
		return ReasonIncompatible, false
	}
	floor := f.cfg.MinIntensity
	if c.Tier == effect.TierAmbient {
		floor = f.cfg.AmbientMinIntensity
	}
	if c.Intensity < floor {
		return ReasonLowIntensity, false
	}
	if c.Trigger == effect.TriggerKeyword && seg.EmotionalScore < f.cfg.MinEmotionalScore {
		return ReasonLowEmotional, false
	}
	if c.CharacterID != "" && f.archetypes != nil && f.archetypes(c.CharacterID).Suppresses(c.Class) {
		return ReasonArchetype, false
	}
	return "", true
}

func (f *Filter) clashes(themeID string, c effect.Candidate, kept []effect.Candidate) bool {
	for _, k := range kept {
		if k.EffectID != c.EffectID && f.reg.Incompatible(themeID, k.EffectID, c.EffectID) {
			return true
		}
	}
	return false
}

// contexts returns the segment contexts: its keywords, lowercased, plus
// dialogue when a character speaks.
func contexts(seg narrative.Segment) map[string]bool {
	active := make(map[string]bool, len(seg.Keywords)+1)
	for _, k := range seg.Keywords {
		active[strings.ToLower(k)] = true
	}
	if seg.SpeakingCharacterID != "" {
		active[registry.ContextDialogue] = true
	}
	return active
}

// #endregion filter
