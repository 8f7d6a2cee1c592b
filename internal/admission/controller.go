// Package admission selects the sparse, non-conflicting subset of candidates emitted per segment.
package admission

import (
	"math"

	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/config"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/effect"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/narrative"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/quality"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/registry"
)

// #region plan
// Plan is the document-level shape the controller is sized from.
type Plan struct {
	Segments      int
	TotalWords    int
	ChapterLimits map[int]int // chapter number -> tier>=2 segment cap; absent means unlimited
}

// Tier4Budget derives the lifetime tier-4 budget: a fixed budget when set,
// otherwise one token per WordsPerToken words with a minimum of one; always capped.
func Tier4Budget(cfg config.Tier4Config, totalWords int) int {
	budget := cfg.Budget
	if budget == 0 {
		budget = totalWords / cfg.WordsPerToken
		if budget < 1 {
			budget = 1
		}
	}
	if budget > cfg.BudgetCap {
		budget = cfg.BudgetCap
	}
	return budget
}

// #endregion plan

// #region controller
// Controller is the sequential admission core. It is not safe for concurrent
// use; every document pass needs its own Controller.
type Controller struct {
	cfg        config.Config
	reg        *registry.Registry
	plan       Plan
	densityCap int
	state      *State
	filter     *quality.Filter
}

// NewController creates a controller with fresh state for one document.
func NewController(cfg config.Config, reg *registry.Registry, plan Plan) *Controller {
	return &Controller{
		cfg:        cfg,
		reg:        reg,
		plan:       plan,
		densityCap: int(math.Floor(cfg.Density.Ceiling*float64(plan.Segments) + 1e-9)),
		state:      NewState(Tier4Budget(cfg.Tier4, plan.TotalWords)),
	}
}

// WithFilter makes fallbacks pass the quality filter before they are offered.
// Without a filter only the theme palette is checked.
func (c *Controller) WithFilter(f *quality.Filter) *Controller {
	c.filter = f
	return c
}

// State returns the live admission state.
func (c *Controller) State() *State { return c.state }

// DensityCap returns the maximum number of segments that may carry tier>=2 effects.
func (c *Controller) DensityCap() int { return c.densityCap }

// Decide runs every gate for the segment at document position pos and
// commits the admitted effects to state. cands must be the filtered set.
func (c *Controller) Decide(pos int, seg narrative.Segment, cands []effect.Candidate) Decision {
	d := Decision{SegmentID: seg.ID, Accepted: []effect.Accepted{}}

	// 1. complexity gate and tier-4 preconditions
	maxTier, capReason := c.maxAllowedTier(seg)
	d.Rationale.MaxAllowedTier = maxTier
	d.Rationale.TierCapReason = capReason

	// 2. intake
	live := c.intake(seg, effect.Ranked(cands), maxTier, capReason, &d)

	// 3. cooldowns
	live = c.cooldowns(seg, live, &d)

	// 4. one winner per modality
	live = c.resolveConflicts(live, &d)

	// 5. haptic and audio accents never share a segment
	live = c.mutualExclusion(live, &d)

	// 6. consecutive, spacing, density and chapter limits for tier>=2
	live = c.densityGates(pos, seg, live, &d)

	// 7. emit
	c.emit(pos, seg, live, &d)
	return d
}

// #endregion controller

// #region gates

func (c *Controller) maxAllowedTier(seg narrative.Segment) (int, Reason) {
	if seg.ComplexityPercentile > c.cfg.Governor.ComplexityThreshold {
		return effect.TierAmbient, ReasonGovernor
	}
	st := c.state
	switch {
	case st.Tier4Remaining <= 0:
		return effect.TierStrong, ReasonBudgetExhausted
	case seg.ClimaxScore < c.cfg.Climax.PeakPercentile && !seg.Pivot:
		return effect.TierStrong, ReasonClimaxBelowPeak
	case st.LastTier4WordIndex >= 0 && seg.WordIndex-st.LastTier4WordIndex < c.cfg.Cooldown.Tier4:
		return effect.TierStrong, ReasonTier4Spacing
	}
	return effect.TierDisrupt, ""
}

func (c *Controller) intake(seg narrative.Segment, ranked []effect.Candidate, maxTier int, capReason Reason, d *Decision) []effect.Candidate {
	var out []effect.Candidate
	seen := make(map[string]bool)
	// a repeated key is the same effect from the same trigger; the first one stands for both
	keep := func(cand effect.Candidate) {
		if seen[cand.Key()] {
			return
		}
		seen[cand.Key()] = true
		out = append(out, cand)
	}

	for _, cand := range ranked {
		if cand.Tier == effect.TierDisrupt && maxTier == effect.TierDisrupt &&
			seg.ComplexityPercentile > c.cfg.Governor.Tier4ComplexityMax && !cand.Clarifying {
			c.fallBack(seg, cand, ReasonComplexityTier4, ranked, d, keep)
			continue
		}
		if cand.Tier <= maxTier {
			keep(cand)
			continue
		}
		if cand.Tier == effect.TierDisrupt && maxTier == effect.TierStrong {
			c.fallBack(seg, cand, capReason, ranked, d, keep)
			continue
		}
		suppress(d, cand, capReason)
	}
	effect.Rank(out)
	return out
}

// fallBack suppresses a tier-4 candidate and offers its fallback in its place.
func (c *Controller) fallBack(seg narrative.Segment, cand effect.Candidate, reason Reason, others []effect.Candidate, d *Decision, keep func(effect.Candidate)) {
	suppress(d, cand, reason)
	fb, ok := c.substitute(seg, cand, others, d)
	if !ok {
		return
	}
	d.Rationale.Substitutions = append(d.Rationale.Substitutions, Substitution{From: cand.EffectID, To: fb.EffectID, Reason: reason})
	keep(fb)
}

// substitute builds the fallback of cand and runs it through the palette and
// the quality filter against the other candidates of the segment. Rejections
// are recorded on d.
func (c *Controller) substitute(seg narrative.Segment, cand effect.Candidate, others []effect.Candidate, d *Decision) (effect.Candidate, bool) {
	if cand.FallbackID == "" {
		return effect.Candidate{}, false
	}
	def, ok := c.reg.Effect(cand.FallbackID)
	if !ok || !c.reg.Compatible(seg.ThemeID, def.ID) {
		d.Rationale.Suppressed = append(d.Rationale.Suppressed, Suppression{
			EffectID: cand.FallbackID, Modality: def.Modality, Tier: def.Tier, Trigger: cand.Trigger,
			Stage: StageAdmission, Reason: string(ReasonFallbackRejected),
		})
		return effect.Candidate{}, false
	}
	fb := cand
	fb.EffectID = def.ID
	fb.Class = def.Class
	fb.Tier = def.Tier
	fb.Modality = def.Modality
	fb.Clarifying = def.Clarifying
	fb.JumpScare = def.JumpScare
	fb.FallbackID = def.Fallback
	fb.ThemeCompatible = true
	fb.Intensity = math.Min(cand.Intensity, c.reg.Cap(seg.ThemeID, def.Modality))

	if c.filter != nil {
		rest := make([]effect.Candidate, 0, len(others))
		for _, o := range others {
			if o.Key() != cand.Key() {
				rest = append(rest, o)
			}
		}
		if qr, ok := c.filter.Admit(seg, fb, rest); !ok {
			d.Rationale.Suppressed = append(d.Rationale.Suppressed, Suppression{
				EffectID: fb.EffectID, Modality: fb.Modality, Tier: fb.Tier, Trigger: fb.Trigger,
				Stage: StageFilter, Reason: string(qr),
			})
			return effect.Candidate{}, false
		}
	}
	return fb, true
}

func (c *Controller) cooldown(m effect.Modality) int {
	cd := c.cfg.Cooldown
	switch m {
	case effect.Haptic:
		return cd.Haptic
	case effect.Audio:
		return cd.Audio
	case effect.Visual:
		return cd.Visual
	case effect.Kinetic:
		return cd.Kinetic
	}
	return 0
}

func (c *Controller) cooldowns(seg narrative.Segment, live []effect.Candidate, d *Decision) []effect.Candidate {
	var out []effect.Candidate
	coolingDown := func(cand effect.Candidate) (Reason, bool) {
		if last, ok := c.state.LastEmitted[cand.Modality]; ok && seg.WordIndex-last < c.cooldown(cand.Modality) {
			return ReasonCooldown, true
		}
		if cand.JumpScare && c.state.LastJumpScareIndex >= 0 &&
			seg.WordIndex-c.state.LastJumpScareIndex < c.cfg.Cooldown.JumpScare {
			return ReasonJumpScare, true
		}
		return "", false
	}
	substituted := false
	for _, cand := range live {
		reason, blocked := coolingDown(cand)
		if !blocked {
			out = append(out, cand)
			continue
		}
		suppress(d, cand, reason)
		// a tier-4 jump scare held back by its own cooldown may still surface as its fallback
		if reason != ReasonJumpScare || cand.Tier != effect.TierDisrupt {
			continue
		}
		fb, ok := c.substitute(seg, cand, live, d)
		if !ok || hasKey(live, fb.Key()) {
			continue
		}
		if r, blocked := coolingDown(fb); blocked {
			suppress(d, fb, r)
			continue
		}
		d.Rationale.Substitutions = append(d.Rationale.Substitutions, Substitution{From: cand.EffectID, To: fb.EffectID, Reason: reason})
		out = append(out, fb)
		substituted = true
	}
	if substituted {
		effect.Rank(out)
	}
	return out
}

func hasKey(cs []effect.Candidate, key string) bool {
	for _, c := range cs {
		if c.Key() == key {
			return true
		}
	}
	return false
}

func (c *Controller) resolveConflicts(live []effect.Candidate, d *Decision) []effect.Candidate {
	var out []effect.Candidate
	won := make(map[effect.Modality]bool)
	for _, cand := range live {
		if won[cand.Modality] {
			suppress(d, cand, ReasonConflictLost)
			continue
		}
		won[cand.Modality] = true
		out = append(out, cand)
	}
	return out
}

func (c *Controller) mutualExclusion(live []effect.Candidate, d *Decision) []effect.Candidate {
	var out []effect.Candidate
	var haptic, audio bool
	for _, cand := range live {
		if cand.Tier > effect.TierAmbient {
			if (cand.Modality == effect.Haptic && audio) || (cand.Modality == effect.Audio && haptic) {
				suppress(d, cand, ReasonMutualExclusion)
				continue
			}
			haptic = haptic || cand.Modality == effect.Haptic
			audio = audio || cand.Modality == effect.Audio
		}
		out = append(out, cand)
	}
	return out
}

func (c *Controller) densityGates(pos int, seg narrative.Segment, live []effect.Candidate, d *Decision) []effect.Candidate {
	var blocked Reason
	st := c.state
	switch {
	case st.ConsecutiveCount >= c.cfg.Density.MaxConsecutive:
		blocked = ReasonConsecutive
	case st.LastElevatedPos >= 0 && pos-st.LastElevatedPos < c.cfg.Density.MinSpacing:
		blocked = ReasonSpacing
	case st.ElevatedSegments >= c.densityCap:
		blocked = ReasonDensity
	default:
		if limit, ok := c.plan.ChapterLimits[seg.Chapter]; ok && st.ChapterElevated[seg.Chapter] >= limit {
			blocked = ReasonChapterLimit
		}
	}

	var out []effect.Candidate
	tier4 := false
	for _, cand := range live {
		if cand.Tier == effect.TierAmbient {
			out = append(out, cand)
			continue
		}
		if blocked != "" {
			suppress(d, cand, blocked)
			continue
		}
		if cand.Tier == effect.TierDisrupt {
			if tier4 {
				suppress(d, cand, ReasonTier4PerSegment)
				continue
			}
			tier4 = true
		}
		out = append(out, cand)
	}
	return out
}

func (c *Controller) emit(pos int, seg narrative.Segment, live []effect.Candidate, d *Decision) {
	st := c.state
	elevated := false
	for _, cand := range live {
		d.Accepted = append(d.Accepted, cand.Accept())
		st.LastEmitted[cand.Modality] = seg.WordIndex
		if cand.Tier == effect.TierDisrupt {
			st.Tier4Remaining--
			st.LastTier4WordIndex = seg.WordIndex
		}
		if cand.JumpScare {
			st.LastJumpScareIndex = seg.WordIndex
		}
		if cand.Tier > effect.TierAmbient {
			elevated = true
		}
	}
	if len(live) > 0 {
		d.Rationale.WinningTrigger = live[0].Trigger
		st.ConsecutiveCount++
	} else {
		st.ConsecutiveCount = 0
	}
	if elevated {
		st.LastElevatedPos = pos
		st.ElevatedSegments++
		st.ChapterElevated[seg.Chapter]++
	}
}

// Stages a suppression is recorded at.
const (
	StageAdmission = "admission"
	StageFilter    = "filter"
)

func suppress(d *Decision, cand effect.Candidate, reason Reason) {
	d.Rationale.Suppressed = append(d.Rationale.Suppressed, Suppression{
		EffectID: cand.EffectID,
		Modality: cand.Modality,
		Tier:     cand.Tier,
		Trigger:  cand.Trigger,
		Stage:    StageAdmission,
		Reason:   string(reason),
	})
}

// #endregion gates
