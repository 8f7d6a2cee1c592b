package candidate

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/character"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/config"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/effect"
	ferrors "github.com/danielpatrickdp/cinematic-effects/go-controller/internal/errors"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/narrative"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/registry"
)

func newGenerator(t *testing.T) *Generator {
	t.Helper()
	reg, err := registry.Default()
	if err != nil {
		t.Fatalf("registry.Default: %v", err)
	}
	return New(reg, config.Default())
}

func find(cs []effect.Candidate, id string) (effect.Candidate, bool) {
	for _, c := range cs {
		if c.EffectID == id {
			return c, true
		}
	}
	return effect.Candidate{}, false
}

func TestGenerateClimaxAndEvent(t *testing.T) {
	g := newGenerator(t)
	seg := narrative.Segment{
		ID: 3, TextLength: 40, ThemeID: "gothic_horror",
		Type: narrative.ChangeOfState, ClimaxScore: 0.97, EmotionalScore: 0.5,
	}

	out, err := g.Generate(seg, character.Reading{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	hb, ok := find(out.Candidates, "heartbeat_haptic")
	if !ok {
		t.Fatal("expected heartbeat_haptic from climax")
	}
	if hb.Trigger != effect.TriggerClimax || hb.Tier != 3 || hb.Modality != effect.Haptic {
		t.Errorf("unexpected haptic candidate: %+v", hb)
	}
	if math.Abs(hb.Intensity-0.82) > 1e-6 {
		t.Errorf("expected intensity 0.82, got %.4f", hb.Intensity)
	}

	wp, ok := find(out.Candidates, "word_pulse")
	if !ok || wp.Trigger != effect.TriggerEvent || wp.Tier != 2 {
		t.Fatalf("expected tier-2 word_pulse from event, got %+v", wp)
	}

	glow, ok := find(out.Candidates, "glow")
	if !ok {
		t.Fatal("expected wildcard glow candidate")
	}
	if glow.ThemeCompatible {
		t.Error("glow is outside the gothic palette")
	}

	if _, ok := find(out.Candidates, "screen_shake"); ok {
		t.Error("0.97 is below the peak bucket")
	}
	if out.Candidates[0].EffectID != "heartbeat_haptic" {
		t.Errorf("expected climax candidate ranked first, got %s", out.Candidates[0].EffectID)
	}
}

func TestGenerateUnknownTheme(t *testing.T) {
	g := newGenerator(t)
	_, err := g.Generate(narrative.Segment{ID: 9, ThemeID: "space_opera"}, character.Reading{})

	if ferrors.CodeOf(err) != ferrors.CodeUnknownTheme {
		t.Fatalf("expected UNKNOWN_THEME, got %v", err)
	}
	e := err.(*ferrors.Error)
	if !e.HasSegment || e.SegmentID != 9 {
		t.Errorf("expected error pinned to segment 9, got %v", e)
	}
}

func TestGeneratePeakIncludesHighAndFallback(t *testing.T) {
	g := newGenerator(t)
	seg := narrative.Segment{ID: 1, ThemeID: "gothic_horror", ClimaxScore: 1.0}

	out, err := g.Generate(seg, character.Reading{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	shake, ok := find(out.Candidates, "screen_shake")
	if !ok {
		t.Fatal("expected tier-4 screen_shake at peak")
	}
	if shake.FallbackID != "heartbeat_haptic" || !shake.JumpScare {
		t.Errorf("unexpected registry metadata: %+v", shake)
	}
	if _, ok := find(out.Candidates, "heartbeat_haptic"); !ok {
		t.Error("peak should also fire high-bucket rules")
	}
}

func TestGenerateDeviation(t *testing.T) {
	g := newGenerator(t)
	seg := narrative.Segment{ID: 1, ThemeID: "general", SpeakingCharacterID: "vex"}
	r := character.Reading{
		CharacterID: "vex",
		Archetypes:  character.NewArchetypeSet(character.Mentor),
		Status:      character.StatusReady,
		Fresh:       true,
		Peak:        narrative.Anger,
		PeakZ:       3.0,
	}

	out, err := g.Generate(seg, r)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	fs, ok := find(out.Candidates, "fiery_sharp")
	if !ok {
		t.Fatal("expected fiery_sharp on anger deviation")
	}
	if fs.CharacterID != "vex" {
		t.Errorf("deviation candidate must be tied to the speaker, got %q", fs.CharacterID)
	}
	// (0.55 + 0.15*0.5) * mentor kinetic 0.6
	if math.Abs(fs.Intensity-0.375) > 1e-6 {
		t.Errorf("expected archetype-scaled intensity 0.375, got %.4f", fs.Intensity)
	}
	if _, ok := find(out.Candidates, "burn"); !ok {
		t.Error("z=3.0 should reach the extreme bucket")
	}
	if _, ok := find(out.Candidates, "mysterious_shadow"); ok {
		t.Error("fear rules must not fire on an anger spike")
	}
}

func TestGenerateInsufficientData(t *testing.T) {
	g := newGenerator(t)
	seg := narrative.Segment{ID: 1, ThemeID: "general", SpeakingCharacterID: "bo"}
	r := character.Reading{CharacterID: "bo", Status: character.StatusInsufficient, Fresh: true}

	out, err := g.Generate(seg, r)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, c := range out.Candidates {
		if c.Trigger == effect.TriggerDeviation {
			t.Fatalf("no deviation candidates expected, got %s", c.EffectID)
		}
	}
	if len(out.Notes) != 1 || !strings.HasPrefix(out.Notes[0], NoteInsufficientData) {
		t.Errorf("expected insufficient_data note, got %v", out.Notes)
	}
}

func TestGenerateKeywords(t *testing.T) {
	g := newGenerator(t)
	seg := narrative.Segment{ID: 1, ThemeID: "general", Keywords: []string{"Sword", "fire"}, EmotionalScore: 0.6}

	out, err := g.Generate(seg, character.Reading{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, id := range []string{"swords_clash", "burn"} {
		c, ok := find(out.Candidates, id)
		if !ok || c.Trigger != effect.TriggerKeyword {
			t.Errorf("expected keyword candidate %s, got %+v", id, c)
		}
	}
}

func TestGeneratePure(t *testing.T) {
	g := newGenerator(t)
	seg := narrative.Segment{
		ID: 1, ThemeID: "fantasy", ClimaxScore: 0.995, Pivot: true,
		Type: narrative.ChangeOfState, Keywords: []string{"magic"}, EmotionalScore: 0.7,
	}
	a, err := g.Generate(seg, character.Reading{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, _ := g.Generate(seg, character.Reading{})
	if !reflect.DeepEqual(a, b) {
		t.Fatal("same input must yield the same candidate set")
	}
	seen := map[string]bool{}
	for _, c := range a.Candidates {
		if seen[c.Key()] {
			t.Fatalf("duplicate candidate %s", c.Key())
		}
		seen[c.Key()] = true
	}
}
