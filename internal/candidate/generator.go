// Package candidate maps a scored segment to its eligible effects.
package candidate

import (
	"math"
	"strings"

	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/character"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/config"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/effect"
	ferrors "github.com/danielpatrickdp/cinematic-effects/go-controller/internal/errors"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/narrative"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/registry"
)

// NoteInsufficientData marks a deviation trigger skipped for lack of baseline data.
const NoteInsufficientData = "insufficient_data"

// #region output
// Output is the eligible set for one segment plus audit notes.
type Output struct {
	Candidates []effect.Candidate
	Notes      []string
}

// #endregion output

// #region generator
// Generator is a pure lookup over an immutable registry. Safe for concurrent use.
type Generator struct {
	reg       *registry.Registry
	climax    config.ClimaxConfig
	character config.CharacterConfig
}

// New creates a generator bound to reg and the thresholds in cfg.
func New(reg *registry.Registry, cfg config.Config) *Generator {
	return &Generator{reg: reg, climax: cfg.Climax, character: cfg.Character}
}

// Generate returns the canonical, ranked candidate set for seg.
// seg must already carry its narratological type and climax score.
func (g *Generator) Generate(seg narrative.Segment, r character.Reading) (Output, error) {
	if !g.reg.HasTheme(seg.ThemeID) {
		return Output{}, ferrors.Configuration(ferrors.CodeUnknownTheme, "active_theme_id",
			"theme %q not in registry", seg.ThemeID).AtSegment(seg.ID)
	}

	b := builder{g: g, seg: seg, reading: r, byKey: make(map[string]int)}

	// climax
	high := g.climax.HighPercentile
	if seg.ClimaxScore >= high {
		signal := 1.0
		if high < 1 {
			signal = (seg.ClimaxScore - high) / (1 - high)
		}
		if seg.ClimaxScore >= g.climax.PeakPercentile {
			b.fire(effect.TriggerClimax, registry.BucketPeak, signal, false)
		}
		b.fire(effect.TriggerClimax, registry.BucketHigh, signal, false)
	}
	if seg.Pivot {
		b.fire(effect.TriggerClimax, registry.BucketPivot, 1, false)
	}

	// emotional deviation
	if r.Fresh {
		switch r.Status {
		case character.StatusInsufficient:
			b.notes = append(b.notes, NoteInsufficientData+":"+r.CharacterID)
		case character.StatusReady:
			if r.PeakZ >= g.character.ElevatedZ {
				signal := clamp((r.PeakZ - g.character.ElevatedZ) / g.character.ElevatedZ)
				if r.PeakZ >= g.character.ExtremeZ {
					b.fire(effect.TriggerDeviation, registry.BucketExtreme, signal, true)
				}
				b.fire(effect.TriggerDeviation, registry.BucketElevated, signal, true)
			}
		}
	}

	// narratological event
	if seg.Type != "" {
		b.fire(effect.TriggerEvent, string(seg.Type), seg.EmotionalScore, false)
	}

	// keywords
	if len(seg.Keywords) > 0 {
		b.fire(effect.TriggerKeyword, registry.BucketKeyword, seg.EmotionalScore, r.Speaking())
	}

	effect.Rank(b.out)
	return Output{Candidates: b.out, Notes: b.notes}, nil
}

// #endregion generator

// #region builder
type builder struct {
	g       *Generator
	seg     narrative.Segment
	reading character.Reading
	out     []effect.Candidate
	notes   []string
	byKey   map[string]int
}

func (b *builder) fire(trigger effect.TriggerKind, bucket string, signal float64, speakerTied bool) {
	for _, rule := range b.g.reg.Rules(b.seg.ThemeID, trigger, bucket) {
		if !b.matches(rule) {
			continue
		}
		for _, tpl := range rule.Effects {
			b.add(trigger, tpl, signal, speakerTied)
		}
	}
}

func (b *builder) matches(rule registry.Rule) bool {
	if rule.Emotion != "" && rule.Emotion != b.reading.Peak.String() {
		return false
	}
	if len(rule.Keywords) == 0 {
		return true
	}
	for _, kw := range b.seg.Keywords {
		kw = strings.ToLower(kw)
		for _, want := range rule.Keywords {
			if kw == want {
				return true
			}
		}
	}
	return false
}

func (b *builder) add(trigger effect.TriggerKind, tpl registry.Template, signal float64, speakerTied bool) {
	def, _ := b.g.reg.Effect(tpl.EffectID)

	intensity := clamp(tpl.Base + tpl.Slope*signal)
	c := effect.Candidate{
		EffectID:        def.ID,
		Class:           def.Class,
		Tier:            def.Tier,
		Modality:        def.Modality,
		Trigger:         trigger,
		ThemeCompatible: b.g.reg.Compatible(b.seg.ThemeID, def.ID),
		Clarifying:      def.Clarifying,
		JumpScare:       def.JumpScare,
		FallbackID:      def.Fallback,
	}
	if speakerTied && b.reading.Speaking() {
		c.CharacterID = b.reading.CharacterID
		intensity = clamp(intensity * b.reading.Archetypes.Multiplier(def.Modality))
	}
	c.Intensity = round(math.Min(intensity, b.g.reg.Cap(b.seg.ThemeID, def.Modality)))

	if i, ok := b.byKey[c.Key()]; ok {
		if c.Outranks(b.out[i]) {
			b.out[i] = c
		}
		return
	}
	b.byKey[c.Key()] = len(b.out)
	b.out = append(b.out, c)
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// round keeps intensities on a fixed grid so serialized output is stable.
func round(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// #endregion builder
