// Package report measures sparsity and re-checks every admission invariant on a finished timeline.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/config"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/effect"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/pipeline"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/registry"
)

// #region harness
// Harness checks a timeline against the configuration it was produced with.
type Harness struct {
	cfg config.Config
	reg *registry.Registry
}

// New creates a harness.
func New(cfg config.Config, reg *registry.Registry) *Harness {
	return &Harness{cfg: cfg, reg: reg}
}

// Run computes metrics and compliance checks. res.Segments must be populated.
func (h *Harness) Run(res *pipeline.Result) Report {
	r := Report{
		DocumentID:  res.DocumentID,
		Segments:    len(res.Decisions),
		Tier4Used:   res.Tier4Used,
		Tier4Budget: res.Tier4Budget,
		Distribution: Distribution{
			ByModality: map[string]int{},
			ByTier:     map[int]int{},
			ByTrigger:  map[string]int{},
			ByReason:   map[string]int{},
		},
	}
	cd := h.cfg.Cooldown
	words := func(pos int) int {
		if pos < len(res.Segments) {
			return res.Segments[pos].WordIndex
		}
		return 0
	}

	lastElevated, minGap := -1, -1
	gapSum, gaps := 0, 0
	run := 0
	lastModality := map[effect.Modality]int{}
	lastTier4, lastJump := -1, -1
	var cooldownFails, tier4Fails, jumpFails, exclusion, governor, doubles, consecutive []string

	for pos, d := range res.Decisions {
		at := words(pos)
		r.Admitted += len(d.Accepted)
		r.Suppressed += len(d.Rationale.Suppressed)
		for _, s := range d.Rationale.Suppressed {
			r.Distribution.ByReason[s.Reason]++
		}
		if len(d.Accepted) == 0 {
			run = 0
			continue
		}

		// 1. consecutive run and trigger mix
		r.EffectSegments++
		prevRun := run
		run++
		if d.MaxTier() > effect.TierAmbient && prevRun >= h.cfg.Density.MaxConsecutive {
			consecutive = append(consecutive, fmt.Sprintf("%d after %d", d.SegmentID, prevRun))
		}
		r.Distribution.ByTrigger[string(d.Rationale.WinningTrigger)]++

		// 2. per-effect checks
		seen := map[effect.Modality]bool{}
		var haptic, audio bool
		for _, a := range d.Accepted {
			r.Distribution.ByModality[string(a.Modality)]++
			r.Distribution.ByTier[a.Tier]++
			if seen[a.Modality] {
				doubles = append(doubles, fmt.Sprintf("%d/%s", d.SegmentID, a.Modality))
			}
			seen[a.Modality] = true

			if last, ok := lastModality[a.Modality]; ok && at-last < cooldown(cd, a.Modality) {
				cooldownFails = append(cooldownFails, fmt.Sprintf("%d/%s gap %d", d.SegmentID, a.Modality, at-last))
			}
			lastModality[a.Modality] = at

			if a.Tier == effect.TierDisrupt {
				if lastTier4 >= 0 && at-lastTier4 < cd.Tier4 {
					tier4Fails = append(tier4Fails, fmt.Sprintf("%d gap %d", d.SegmentID, at-lastTier4))
				}
				lastTier4 = at
			}
			if def, ok := h.reg.Effect(a.EffectID); ok && def.JumpScare {
				if lastJump >= 0 && at-lastJump < cd.JumpScare {
					jumpFails = append(jumpFails, fmt.Sprintf("%d gap %d", d.SegmentID, at-lastJump))
				}
				lastJump = at
			}
			if a.Tier > effect.TierAmbient {
				haptic = haptic || a.Modality == effect.Haptic
				audio = audio || a.Modality == effect.Audio
			}
		}
		if haptic && audio {
			exclusion = append(exclusion, fmt.Sprint(d.SegmentID))
		}

		// 3. governor and spacing for tier>=2
		if d.MaxTier() > effect.TierAmbient {
			if pos < len(res.Segments) && res.Segments[pos].ComplexityPercentile > h.cfg.Governor.ComplexityThreshold {
				governor = append(governor, fmt.Sprint(d.SegmentID))
			}
			r.ElevatedSegments++
			if lastElevated >= 0 {
				gap := pos - lastElevated
				gapSum += gap
				gaps++
				if minGap < 0 || gap < minGap {
					minGap = gap
				}
			}
			lastElevated = pos
		}
	}

	if r.Segments > 0 {
		r.EffectDensity = float64(r.EffectSegments) / float64(r.Segments)
		r.ElevatedDensity = float64(r.ElevatedSegments) / float64(r.Segments)
	}
	if gaps > 0 {
		r.AverageSpacing = float64(gapSum) / float64(gaps)
	}

	// 4. compliance
	dc := h.cfg.Density
	r.Metrics = []Metric{
		check("density_ceiling", float64(r.ElevatedSegments), float64(res.DensityCap), r.ElevatedSegments <= res.DensityCap),
		check("min_spacing", float64(minGap), float64(dc.MinSpacing), minGap < 0 || minGap >= dc.MinSpacing),
		list("consecutive_limit", consecutive),
		check("tier4_budget", float64(res.Tier4Used), float64(res.Tier4Budget), res.Tier4Used <= res.Tier4Budget),
		list("modality_cooldown", cooldownFails),
		list("tier4_spacing", tier4Fails),
		list("jump_scare_cooldown", jumpFails),
		list("mutual_exclusion", exclusion),
		list("complexity_governor", governor),
		list("one_per_modality", doubles),
	}

	r.Passed = true
	var fails []string
	for _, m := range r.Metrics {
		if !m.Pass {
			r.Passed = false
			fails = append(fails, m.Name)
		}
	}
	r.Reason = "all checks passed"
	if !r.Passed {
		r.Reason = fmt.Sprintf("%d checks failed: %s", len(fails), strings.Join(fails, ", "))
	}
	return r
}

// #endregion harness

// #region print
// Print writes a human-readable summary.
func (r Report) Print(w io.Writer) {
	fmt.Fprintf(w, "document %s: %d segments, %d admitted, %d suppressed\n", r.DocumentID, r.Segments, r.Admitted, r.Suppressed)
	fmt.Fprintf(w, "  effect density   %.4f (%d segments)\n", r.EffectDensity, r.EffectSegments)
	fmt.Fprintf(w, "  elevated density %.4f (%d segments, avg spacing %.1f)\n", r.ElevatedDensity, r.ElevatedSegments, r.AverageSpacing)
	fmt.Fprintf(w, "  tier4            %d/%d\n", r.Tier4Used, r.Tier4Budget)
	for _, m := range r.Metrics {
		mark := "ok"
		if !m.Pass {
			mark = "FAIL"
		}
		fmt.Fprintf(w, "  %-20s %-4s %s\n", m.Name, mark, m.Detail)
	}
	printCounts(w, "modality", r.Distribution.ByModality)
	printCounts(w, "trigger", r.Distribution.ByTrigger)
	printCounts(w, "suppressed", r.Distribution.ByReason)
	fmt.Fprintf(w, "  %s\n", r.Reason)
}

func printCounts(w io.Writer, label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	fmt.Fprintf(w, "  %-10s %s\n", label, strings.Join(parts, " "))
}

// #endregion print

// #region helpers
func cooldown(cd config.CooldownConfig, m effect.Modality) int {
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

func check(name string, value, limit float64, pass bool) Metric {
	return Metric{Name: name, Value: value, Limit: limit, Pass: pass, Detail: fmt.Sprintf("%g (limit %g)", value, limit)}
}

func list(name string, violations []string) Metric {
	m := Metric{Name: name, Value: float64(len(violations)), Pass: len(violations) == 0}
	if !m.Pass {
		shown := violations
		if len(shown) > 5 {
			shown = shown[:5]
		}
		m.Detail = fmt.Sprintf("%d violations: %s", len(violations), strings.Join(shown, "; "))
	}
	return m
}

// #endregion helpers
