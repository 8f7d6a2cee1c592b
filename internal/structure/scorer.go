// Package structure scores narrative structure: segment type, climax percentile and chapter role.
package structure

import (
	"math"
	"sort"

	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/config"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/narrative"
)

// #region result
// Result is the structural score of one segment.
type Result struct {
	Type   narrative.NarratologicalType
	Raw    float64 // windowed weighted score
	Climax float64 // book-relative percentile of Raw
}

// #endregion result

// #region classify
// Classify returns the upstream type when present, else infers one from
// word count and the PAD shift from the previous segment.
func Classify(cfg config.ClimaxConfig, seg narrative.Segment, prev *narrative.Segment) narrative.NarratologicalType {
	if seg.Type != "" {
		return seg.Type
	}
	if seg.TextLength == 0 {
		return narrative.NonEvent
	}
	if prev != nil && padDistance(seg.PAD, prev.PAD) > cfg.ChangeOfStateJump {
		return narrative.ChangeOfState
	}
	if seg.PAD.Arousal > cfg.ProcessArousal {
		return narrative.Process
	}
	return narrative.Stative
}

func padDistance(a, b narrative.PAD) float64 {
	dp := a.Pleasure - b.Pleasure
	da := a.Arousal - b.Arousal
	dd := a.Dominance - b.Dominance
	return math.Sqrt(dp*dp + da*da + dd*dd)
}

// #endregion classify

// #region score
// Score runs both passes over the document: raw windowed scores first,
// then percentile ranks over the full set.
func Score(cfg config.ClimaxConfig, store *narrative.Store) []Result {
	n := store.Len()
	out := make([]Result, n)
	for i := 0; i < n; i++ {
		seg := store.At(i)
		var prev *narrative.Segment
		if i > 0 {
			p := store.At(i - 1)
			prev = &p
		}
		out[i].Type = Classify(cfg, seg, prev)
	}

	for i := 0; i < n; i++ {
		out[i].Raw = rawScore(cfg, store, out, i)
	}

	if cfg.UseUpstream {
		for i := range out {
			out[i].Climax = store.At(i).ClimaxScore
		}
		return out
	}

	raws := make([]float64, n)
	for i := range out {
		raws[i] = out[i].Raw
	}
	for i, p := range Percentiles(raws) {
		out[i].Climax = p
	}
	return out
}

func rawScore(cfg config.ClimaxConfig, store *narrative.Store, types []Result, i int) float64 {
	start := i - cfg.Window + 1
	if start < 0 {
		start = 0
	}
	width := float64(i - start + 1)

	words, events := 0, 0
	speakers := make(map[string]bool)
	for j := start; j <= i; j++ {
		seg := store.At(j)
		words += seg.TextLength
		if types[j].Type.IsEvent() {
			events++
		}
		if seg.SpeakingCharacterID != "" {
			speakers[seg.SpeakingCharacterID] = true
		}
	}

	avg := float64(words) / width
	pacing := cfg.PacingReference / (cfg.PacingReference + avg)
	density := float64(events) / width
	convergence := math.Min(1, float64(len(speakers))/float64(cfg.ConvergenceCap))

	total := cfg.PacingWeight + cfg.EventWeight + cfg.ConvergenceWeight
	return (cfg.PacingWeight*pacing + cfg.EventWeight*density + cfg.ConvergenceWeight*convergence) / total
}

// Percentiles maps each value to the fraction of other values strictly below it.
// Ties share a rank; a single value ranks 0.
func Percentiles(xs []float64) []float64 {
	out := make([]float64, len(xs))
	if len(xs) < 2 {
		return out
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	denom := float64(len(xs) - 1)
	for i, x := range xs {
		out[i] = float64(sort.SearchFloat64s(sorted, x)) / denom
	}
	return out
}

// #endregion score
