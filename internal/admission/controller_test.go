package admission

import (
	"math/rand"
	"testing"

	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/config"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/effect"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/narrative"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/quality"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/registry"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.Default()
	if err != nil {
		t.Fatalf("registry.Default: %v", err)
	}
	return reg
}

// looseConfig lifts the document-level density limits so single gates can be observed.
func looseConfig() config.Config {
	cfg := config.Default()
	cfg.Density.Ceiling = 1.0
	cfg.Tier4.Budget = 2
	return cfg
}

func newController(t *testing.T, cfg config.Config, segments int) *Controller {
	t.Helper()
	return NewController(cfg, testRegistry(t), Plan{Segments: segments, TotalWords: segments * 100})
}

func gothic(id, wordIndex int) narrative.Segment {
	return narrative.Segment{ID: id, Chapter: 1, TextLength: 40, ThemeID: "gothic_horror", ComplexityPercentile: 0.4, WordIndex: wordIndex}
}

func haptic(id string, tier int, trig effect.TriggerKind, intensity float64) effect.Candidate {
	return effect.Candidate{EffectID: id, Class: "pulse", Tier: tier, Modality: effect.Haptic, Trigger: trig, Intensity: intensity, ThemeCompatible: true}
}

func audio(id string, tier int, trig effect.TriggerKind, intensity float64) effect.Candidate {
	return effect.Candidate{EffectID: id, Class: "accent", Tier: tier, Modality: effect.Audio, Trigger: trig, Intensity: intensity, ThemeCompatible: true}
}

func visual(id string, tier int, trig effect.TriggerKind, intensity float64) effect.Candidate {
	return effect.Candidate{EffectID: id, Class: "shadow", Tier: tier, Modality: effect.Visual, Trigger: trig, Intensity: intensity, ThemeCompatible: true}
}

func kinetic(id string, tier int, trig effect.TriggerKind, intensity float64) effect.Candidate {
	return effect.Candidate{EffectID: id, Class: "jitter", Tier: tier, Modality: effect.Kinetic, Trigger: trig, Intensity: intensity, ThemeCompatible: true}
}

func shake() effect.Candidate {
	c := haptic("screen_shake", 4, effect.TriggerClimax, 0.95)
	c.Class = "shake"
	c.JumpScare = true
	c.FallbackID = "heartbeat_haptic"
	return c
}

func TestClimaxHapticAdmittedAlone(t *testing.T) {
	c := newController(t, looseConfig(), 1)
	seg := gothic(0, 0)
	seg.ClimaxScore = 0.97
	seg.Type = narrative.ChangeOfState

	d := c.Decide(0, seg, []effect.Candidate{
		audio("word_pulse", 2, effect.TriggerEvent, 0.75),
		haptic("heartbeat_haptic", 3, effect.TriggerClimax, 0.82),
	})

	if len(d.Accepted) != 1 || d.Accepted[0].EffectID != "heartbeat_haptic" {
		t.Fatalf("expected haptic admitted alone, got %+v", d.Accepted)
	}
	if d.Rationale.WinningTrigger != effect.TriggerClimax {
		t.Errorf("expected climax trigger, got %s", d.Rationale.WinningTrigger)
	}
	if got := d.SuppressedFor("word_pulse"); got != string(ReasonMutualExclusion) {
		t.Errorf("expected word_pulse suppressed by mutual exclusion, got %q", got)
	}
	if d.Rationale.MaxAllowedTier != 3 || d.Rationale.TierCapReason != ReasonClimaxBelowPeak {
		t.Errorf("expected tier cap 3 below peak, got %d/%s", d.Rationale.MaxAllowedTier, d.Rationale.TierCapReason)
	}
}

func TestGovernorClampsToAmbient(t *testing.T) {
	c := newController(t, looseConfig(), 1)
	seg := gothic(0, 0)
	seg.ClimaxScore = 0.97
	seg.ComplexityPercentile = 0.90

	fog := visual("ambient_fog", 1, effect.TriggerEvent, 0.4)
	d := c.Decide(0, seg, []effect.Candidate{
		audio("word_pulse", 2, effect.TriggerEvent, 0.75),
		haptic("heartbeat_haptic", 3, effect.TriggerClimax, 0.82),
		fog,
	})

	if d.Rationale.MaxAllowedTier != 1 {
		t.Fatalf("expected max tier 1, got %d", d.Rationale.MaxAllowedTier)
	}
	if len(d.Accepted) != 1 || d.Accepted[0].EffectID != "ambient_fog" {
		t.Fatalf("only the ambient effect may survive, got %+v", d.Accepted)
	}
	for _, id := range []string{"word_pulse", "heartbeat_haptic"} {
		if got := d.SuppressedFor(id); got != string(ReasonGovernor) {
			t.Errorf("%s: expected governor, got %q", id, got)
		}
	}
}

func TestSpacingViolation(t *testing.T) {
	c := newController(t, looseConfig(), 20)

	first := c.Decide(0, gothic(0, 0), []effect.Candidate{visual("mysterious_shadow", 2, effect.TriggerKeyword, 0.7)})
	if !first.Has("mysterious_shadow") {
		t.Fatalf("first tier-2 should be admitted, got %+v", first)
	}
	c.Decide(1, gothic(1, 40), nil)
	c.Decide(2, gothic(2, 80), nil)

	second := c.Decide(3, gothic(3, 120), []effect.Candidate{kinetic("fiery_sharp", 2, effect.TriggerKeyword, 0.7)})
	if len(second.Accepted) != 0 {
		t.Fatalf("second tier-2 at spacing 3 must be suppressed, got %+v", second.Accepted)
	}
	if got := second.SuppressedFor("fiery_sharp"); got != string(ReasonSpacing) {
		t.Errorf("expected spacing_violation, got %q", got)
	}
}

func TestTier4BudgetExhaustedFallsBack(t *testing.T) {
	c := newController(t, looseConfig(), 30)
	peak := func(pos, words int) narrative.Segment {
		s := gothic(pos, words)
		s.ClimaxScore = 0.998
		return s
	}

	for i, pos := range []int{0, 10} {
		d := c.Decide(pos, peak(pos, i*5000), []effect.Candidate{shake()})
		if !d.Has("screen_shake") {
			t.Fatalf("tier-4 #%d should be admitted, got %+v", i+1, d)
		}
		c.Decide(pos+1, gothic(pos+1, i*5000+40), nil)
	}
	if c.State().Tier4Remaining != 0 {
		t.Fatalf("expected budget spent, remaining=%d", c.State().Tier4Remaining)
	}

	d := c.Decide(20, peak(20, 10000), []effect.Candidate{shake()})
	if d.Has("screen_shake") {
		t.Fatal("third tier-4 must be suppressed")
	}
	if got := d.SuppressedFor("screen_shake"); got != string(ReasonBudgetExhausted) {
		t.Errorf("expected budget_exhausted, got %q", got)
	}
	if !d.Has("heartbeat_haptic") {
		t.Fatalf("expected tier-3 fallback admitted, got %+v", d.Accepted)
	}
	if len(d.Rationale.Substitutions) != 1 || d.Rationale.Substitutions[0].To != "heartbeat_haptic" {
		t.Errorf("expected recorded substitution, got %+v", d.Rationale.Substitutions)
	}
	if c.State().Tier4Remaining < 0 || c.State().Tier4Used() != 2 {
		t.Errorf("budget accounting off: %+v", c.State())
	}
}

func TestTier4SpacingAndComplexity(t *testing.T) {
	c := newController(t, looseConfig(), 30)
	seg := gothic(0, 0)
	seg.Pivot = true

	reveal := visual("blackout_reveal", 4, effect.TriggerClimax, 0.9)
	reveal.Class = "reveal"
	reveal.FallbackID = "mysterious_shadow"
	if d := c.Decide(0, seg, []effect.Candidate{reveal}); !d.Has("blackout_reveal") {
		t.Fatalf("pivot should admit tier 4, got %+v", d)
	}
	c.Decide(1, gothic(1, 40), nil)

	near := gothic(10, 1000)
	near.Pivot = true
	d := c.Decide(10, near, []effect.Candidate{reveal})
	if d.Rationale.TierCapReason != ReasonTier4Spacing {
		t.Fatalf("expected tier4_spacing within 1500 words, got %s", d.Rationale.TierCapReason)
	}
	if !d.Has("mysterious_shadow") {
		t.Errorf("expected visual fallback, got %+v", d.Accepted)
	}
	c.Decide(11, gothic(11, 1040), nil)

	dense := gothic(20, 5000)
	dense.Pivot = true
	dense.ComplexityPercentile = 0.75
	mapReveal := visual("map_reveal", 4, effect.TriggerClimax, 0.8)
	mapReveal.Clarifying = true
	d = c.Decide(20, dense, []effect.Candidate{shake(), mapReveal})
	if got := d.SuppressedFor("screen_shake"); got != string(ReasonComplexityTier4) {
		t.Errorf("expected complexity_tier4 for non-clarifying effect, got %q", got)
	}
	if !d.Has("map_reveal") {
		t.Errorf("clarifying tier-4 is allowed on complex segments, got %+v", d.Accepted)
	}
}

func TestOneTier4PerSegment(t *testing.T) {
	c := newController(t, looseConfig(), 10)
	seg := gothic(0, 0)
	seg.ClimaxScore = 1

	reveal := visual("blackout_reveal", 4, effect.TriggerClimax, 0.7)
	d := c.Decide(0, seg, []effect.Candidate{shake(), reveal})
	if !d.Has("screen_shake") || d.Has("blackout_reveal") {
		t.Fatalf("expected only the stronger tier-4, got %+v", d.Accepted)
	}
	if got := d.SuppressedFor("blackout_reveal"); got != string(ReasonTier4PerSegment) {
		t.Errorf("expected tier4_per_segment, got %q", got)
	}
	if c.State().Tier4Remaining != 1 {
		t.Errorf("expected one token spent, remaining %d", c.State().Tier4Remaining)
	}
}

func TestCooldownsAreIndependent(t *testing.T) {
	cfg := looseConfig()
	cfg.Density.MinSpacing = 1
	cfg.Density.MaxConsecutive = 100
	c := newController(t, cfg, 10)

	if d := c.Decide(0, gothic(0, 0), []effect.Candidate{haptic("heartbeat_haptic", 3, effect.TriggerClimax, 0.8)}); len(d.Accepted) != 1 {
		t.Fatalf("expected haptic admitted, got %+v", d)
	}
	if d := c.Decide(1, gothic(1, 300), []effect.Candidate{audio("word_pulse", 2, effect.TriggerEvent, 0.7)}); !d.Has("word_pulse") {
		t.Fatalf("haptic cooldown must not block audio, got %+v", d)
	}
	d := c.Decide(2, gothic(2, 500), []effect.Candidate{haptic("thunder_rumble", 3, effect.TriggerClimax, 0.8)})
	if got := d.SuppressedFor("thunder_rumble"); got != string(ReasonCooldown) {
		t.Errorf("expected haptic cooldown at 500 words, got %q", got)
	}
	if d := c.Decide(3, gothic(3, 1000), []effect.Candidate{haptic("thunder_rumble", 3, effect.TriggerClimax, 0.8)}); !d.Has("thunder_rumble") {
		t.Errorf("expected haptic admitted once 1000 words have passed, got %+v", d)
	}
}

func TestConflictAndAmbientExemption(t *testing.T) {
	c := newController(t, looseConfig(), 1)
	d := c.Decide(0, gothic(0, 0), []effect.Candidate{
		visual("mysterious_shadow", 2, effect.TriggerDeviation, 0.7),
		visual("noir_shadow", 2, effect.TriggerKeyword, 0.9),
		haptic("heartbeat_haptic", 3, effect.TriggerDeviation, 0.6),
		audio("gentle_wind", 1, effect.TriggerKeyword, 0.4),
	})

	if got := d.SuppressedFor("noir_shadow"); got != string(ReasonConflictLost) {
		t.Errorf("lower-priority visual should lose, got %q", got)
	}
	if !d.Has("mysterious_shadow") || !d.Has("heartbeat_haptic") || !d.Has("gentle_wind") {
		t.Fatalf("expected visual, haptic and ambient audio, got %+v", d.Accepted)
	}
	if d.Accepted[0].EffectID != "heartbeat_haptic" {
		t.Errorf("accepted list should be ranked, got %+v", d.Accepted)
	}
}

func TestConsecutiveLimit(t *testing.T) {
	cfg := looseConfig()
	cfg.Density.MinSpacing = 1
	c := newController(t, cfg, 10)

	one := func(pos int, cand effect.Candidate) Decision {
		return c.Decide(pos, gothic(pos, pos*2000), []effect.Candidate{cand})
	}
	one(0, visual("mysterious_shadow", 2, effect.TriggerKeyword, 0.7))
	one(1, kinetic("fiery_sharp", 2, effect.TriggerKeyword, 0.7))
	d := one(2, haptic("heartbeat_haptic", 3, effect.TriggerClimax, 0.8))
	if got := d.SuppressedFor("heartbeat_haptic"); got != string(ReasonConsecutive) {
		t.Fatalf("third consecutive should be suppressed, got %q", got)
	}
	if c.State().ConsecutiveCount != 0 {
		t.Errorf("empty segment resets the counter, got %d", c.State().ConsecutiveCount)
	}
	if d := one(3, haptic("heartbeat_haptic", 3, effect.TriggerClimax, 0.8)); !d.Has("heartbeat_haptic") {
		t.Errorf("after a gap effects resume, got %+v", d)
	}
}

func TestDensityAndChapterLimits(t *testing.T) {
	cfg := looseConfig()
	cfg.Density.Ceiling = 0.02
	c := NewController(cfg, testRegistry(t), Plan{Segments: 50, TotalWords: 5000})
	if c.DensityCap() != 1 {
		t.Fatalf("expected density cap 1, got %d", c.DensityCap())
	}
	c.Decide(0, gothic(0, 0), []effect.Candidate{visual("mysterious_shadow", 2, effect.TriggerKeyword, 0.7)})
	d := c.Decide(20, gothic(20, 4000), []effect.Candidate{visual("mysterious_shadow", 2, effect.TriggerKeyword, 0.7)})
	if got := d.SuppressedFor("mysterious_shadow"); got != string(ReasonDensity) {
		t.Errorf("expected density_ceiling, got %q", got)
	}

	chap := NewController(looseConfig(), testRegistry(t), Plan{Segments: 50, TotalWords: 5000, ChapterLimits: map[int]int{1: 1}})
	chap.Decide(0, gothic(0, 0), []effect.Candidate{visual("mysterious_shadow", 2, effect.TriggerKeyword, 0.7)})
	d = chap.Decide(20, gothic(20, 4000), []effect.Candidate{visual("mysterious_shadow", 2, effect.TriggerKeyword, 0.7)})
	if got := d.SuppressedFor("mysterious_shadow"); got != string(ReasonChapterLimit) {
		t.Errorf("expected chapter_limit, got %q", got)
	}
}

func TestTier4BudgetDerivation(t *testing.T) {
	cfg := config.Default().Tier4
	if got := Tier4Budget(cfg, 5000); got != 1 {
		t.Errorf("short document gets one token, got %d", got)
	}
	if got := Tier4Budget(cfg, 65000); got != 2 {
		t.Errorf("expected 2 tokens for 65k words, got %d", got)
	}
	if got := Tier4Budget(cfg, 1_000_000); got != cfg.BudgetCap {
		t.Errorf("expected cap %d, got %d", cfg.BudgetCap, got)
	}
	cfg.Budget = 5
	if got := Tier4Budget(cfg, 10); got != cfg.BudgetCap {
		t.Errorf("fixed budget is still capped, got %d", got)
	}
}

// TestBoundsHoldOnRandomDocument drives the controller with a noisy candidate
// stream and checks every document-level bound on the output.
func TestBoundsHoldOnRandomDocument(t *testing.T) {
	cfg := config.Default()
	cfg.Tier4.Budget = 2
	rng := rand.New(rand.NewSource(7))
	reg := testRegistry(t)

	const n = 800
	c := NewController(cfg, reg, Plan{Segments: n, TotalWords: n * 60})
	pool := []effect.Candidate{
		shake(),
		haptic("heartbeat_haptic", 3, effect.TriggerClimax, 0.8),
		audio("word_pulse", 2, effect.TriggerEvent, 0.7),
		audio("heartbeat", 3, effect.TriggerKeyword, 0.7),
		visual("mysterious_shadow", 2, effect.TriggerDeviation, 0.6),
		visual("ambient_fog", 1, effect.TriggerEvent, 0.5),
		kinetic("burn", 3, effect.TriggerKeyword, 0.9),
	}

	var decisions []Decision
	var segs []narrative.Segment
	byModality := map[effect.Modality][]int{}
	var elevated []int
	tier4 := 0
	words := 0
	for pos := 0; pos < n; pos++ {
		seg := gothic(pos, words)
		seg.TextLength = 20 + rng.Intn(80)
		seg.ComplexityPercentile = rng.Float64()
		seg.ClimaxScore = rng.Float64()
		words += seg.TextLength

		var cands []effect.Candidate
		for _, p := range pool {
			if rng.Float64() < 0.3 {
				cands = append(cands, p)
			}
		}
		d := c.Decide(pos, seg, cands)
		decisions = append(decisions, d)
		segs = append(segs, seg)

		hasElevated := false
		var hapticHere, audioHere bool
		for _, a := range d.Accepted {
			byModality[a.Modality] = append(byModality[a.Modality], seg.WordIndex)
			if a.Tier > 1 {
				hasElevated = true
				hapticHere = hapticHere || a.Modality == effect.Haptic
				audioHere = audioHere || a.Modality == effect.Audio
			}
			if a.Tier == 4 {
				tier4++
			}
			if seg.ComplexityPercentile > cfg.Governor.ComplexityThreshold && a.Tier > 1 {
				t.Fatalf("segment %d: governor breached by %+v", pos, a)
			}
		}
		if hapticHere && audioHere {
			t.Fatalf("segment %d: haptic and audio accent together", pos)
		}
		if hasElevated {
			elevated = append(elevated, pos)
		}
	}

	if float64(len(elevated))/float64(n) > cfg.Density.Ceiling {
		t.Errorf("density %d/%d exceeds %.2f", len(elevated), n, cfg.Density.Ceiling)
	}
	for i := 1; i < len(elevated); i++ {
		if elevated[i]-elevated[i-1] < cfg.Density.MinSpacing {
			t.Errorf("spacing %d < %d", elevated[i]-elevated[i-1], cfg.Density.MinSpacing)
		}
	}
	for m, ws := range byModality {
		for i := 1; i < len(ws); i++ {
			if ws[i]-ws[i-1] < c.cooldown(m) {
				t.Errorf("%s cooldown breached: %d then %d", m, ws[i-1], ws[i])
			}
		}
	}
	if tier4 > 2 || c.State().Tier4Remaining < 0 {
		t.Errorf("tier-4 budget breached: used %d remaining %d", tier4, c.State().Tier4Remaining)
	}
	if len(decisions) != n || len(segs) != n {
		t.Fatal("expected one decision per segment")
	}
}

// shakeRegistry is a small gothic palette where screen_shake falls back to heartbeat_haptic.
func shakeRegistry(t *testing.T, theme registry.ThemeDef) *registry.Registry {
	t.Helper()
	theme.ID = "gothic_horror"
	theme.IntensityCaps = map[effect.Modality]float64{effect.Visual: 0.8, effect.Audio: 1, effect.Haptic: 1, effect.Kinetic: 1}
	reg, err := registry.New(registry.File{
		Effects: []registry.EffectDef{
			{ID: "heartbeat_haptic", Class: "pulse", Modality: effect.Haptic, Tier: 3},
			{ID: "screen_shake", Class: "shake", Modality: effect.Haptic, Tier: 4, JumpScare: true, Fallback: "heartbeat_haptic"},
			{ID: "burn", Class: "flame", Modality: effect.Kinetic, Tier: 3},
		},
		Themes: []registry.ThemeDef{theme},
	})
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	return reg
}

func withFilter(cfg config.Config, reg *registry.Registry, plan Plan) *Controller {
	return NewController(cfg, reg, plan).WithFilter(quality.New(reg, cfg.Quality, nil))
}

// denseClimax forces the complexity_tier4 fallback path for non-clarifying tier 4.
func denseClimax() narrative.Segment {
	seg := gothic(0, 0)
	seg.ClimaxScore = 1
	seg.ComplexityPercentile = 0.75
	return seg
}

func TestFallbackRunsThroughQualityFilter(t *testing.T) {
	reg := shakeRegistry(t, registry.ThemeDef{Incompatible: [][2]string{{"heartbeat_haptic", "burn"}}})
	c := withFilter(looseConfig(), reg, Plan{Segments: 10, TotalWords: 1000})

	burn := kinetic("burn", 3, effect.TriggerClimax, 0.8)
	burn.Class = "flame"
	d := c.Decide(0, denseClimax(), []effect.Candidate{shake(), burn})

	if d.Has("heartbeat_haptic") {
		t.Fatalf("fallback must not join an incompatible partner, got %+v", d.Accepted)
	}
	if !d.Has("burn") {
		t.Errorf("expected burn admitted, got %+v", d.Accepted)
	}
	var found bool
	for _, s := range d.Rationale.Suppressed {
		if s.EffectID == "heartbeat_haptic" {
			found = true
			if s.Stage != StageFilter || s.Reason != string(quality.ReasonIncompatiblePair) {
				t.Errorf("expected filter/incompatible_pair, got %s/%s", s.Stage, s.Reason)
			}
		}
	}
	if !found {
		t.Error("expected the rejected fallback in the rationale")
	}
	if len(d.Rationale.Substitutions) != 0 {
		t.Errorf("rejected fallback is not a substitution: %+v", d.Rationale.Substitutions)
	}
}

func TestFallbackRejectedByTheme(t *testing.T) {
	reg := shakeRegistry(t, registry.ThemeDef{Forbidden: []string{"heartbeat_haptic"}})
	c := NewController(looseConfig(), reg, Plan{Segments: 10, TotalWords: 1000})

	d := c.Decide(0, denseClimax(), []effect.Candidate{shake()})

	if len(d.Accepted) != 0 {
		t.Fatalf("expected nothing admitted, got %+v", d.Accepted)
	}
	if got := d.SuppressedFor("screen_shake"); got != string(ReasonComplexityTier4) {
		t.Errorf("expected complexity_tier4 on screen_shake, got %q", got)
	}
	if got := d.SuppressedFor("heartbeat_haptic"); got != string(ReasonFallbackRejected) {
		t.Errorf("expected fallback_rejected on heartbeat_haptic, got %q", got)
	}
}

func TestJumpScareCooldown(t *testing.T) {
	cfg := looseConfig()
	reg := testRegistry(t)
	c := withFilter(cfg, reg, Plan{Segments: 30, TotalWords: 6000})
	peak := func(pos, words int) narrative.Segment {
		s := gothic(pos, words)
		s.ClimaxScore = 0.998
		return s
	}

	if d := c.Decide(0, peak(0, 0), []effect.Candidate{shake()}); !d.Has("screen_shake") {
		t.Fatalf("first jump scare should be admitted, got %+v", d)
	}
	c.Decide(1, gothic(1, 40), nil)

	// 2000 words later: past tier-4 spacing and haptic cooldown, inside the jump-scare cooldown
	d := c.Decide(10, peak(10, 2000), []effect.Candidate{shake()})
	if got := d.SuppressedFor("screen_shake"); got != string(ReasonJumpScare) {
		t.Fatalf("expected jump_scare_cooldown, got %q", got)
	}
	if d.Rationale.MaxAllowedTier != effect.TierDisrupt {
		t.Errorf("tier 4 itself was allowed, got cap %d", d.Rationale.MaxAllowedTier)
	}
	if !d.Has("heartbeat_haptic") {
		t.Fatalf("expected the non-jump-scare fallback, got %+v", d.Accepted)
	}
	if len(d.Rationale.Substitutions) != 1 || d.Rationale.Substitutions[0].Reason != ReasonJumpScare {
		t.Errorf("expected substitution for jump_scare_cooldown, got %+v", d.Rationale.Substitutions)
	}
	if c.State().Tier4Used() != 1 {
		t.Errorf("fallback must not spend tier-4 budget, used %d", c.State().Tier4Used())
	}
	c.Decide(11, gothic(11, 2040), nil)

	if d := c.Decide(20, peak(20, 3500), []effect.Candidate{shake()}); !d.Has("screen_shake") {
		t.Errorf("jump scare 3500 words after the last should be admitted, got %+v", d)
	}
}

func TestDuplicateFallbackIsNotAConflict(t *testing.T) {
	c := newController(t, looseConfig(), 10)
	d := c.Decide(0, denseClimax(), []effect.Candidate{
		shake(),
		haptic("heartbeat_haptic", 3, effect.TriggerClimax, 0.82),
	})

	if len(d.Accepted) != 1 || d.Accepted[0].EffectID != "heartbeat_haptic" {
		t.Fatalf("expected heartbeat_haptic once, got %+v", d.Accepted)
	}
	if got := d.SuppressedFor("heartbeat_haptic"); got != "" {
		t.Errorf("the same effect must not be reported against itself, got %q", got)
	}
	if len(d.Rationale.Suppressed) != 1 || len(d.Rationale.Substitutions) != 1 {
		t.Errorf("expected only the screen_shake suppression and its substitution, got %+v", d.Rationale)
	}
}
