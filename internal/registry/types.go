// Package registry holds the immutable theme palette and effect rule tables.
package registry

import (
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/effect"
)

// Wildcard matches every theme in a rule.
const Wildcard = "*"

// ContextDialogue is the segment context implied by an attributed speaker.
const ContextDialogue = "dialogue"

// #region buckets
// Buckets a rule may be keyed on, per trigger kind.
const (
	BucketPeak     = "peak"     // climax >= peak percentile
	BucketHigh     = "high"     // climax >= high percentile
	BucketPivot    = "pivot"    // irreversible narrative pivot
	BucketElevated = "elevated" // |z| >= elevated
	BucketExtreme  = "extreme"  // |z| >= extreme
	BucketKeyword  = "keyword"
)

var triggerBuckets = map[effect.TriggerKind][]string{
	effect.TriggerClimax:    {BucketPeak, BucketHigh, BucketPivot},
	effect.TriggerDeviation: {BucketElevated, BucketExtreme},
	effect.TriggerEvent:     {"non_event", "stative", "process", "change_of_state"},
	effect.TriggerKeyword:   {BucketKeyword},
}

// #endregion buckets

// #region definitions
// EffectDef describes one renderable effect.
type EffectDef struct {
	ID         string          `yaml:"id"`
	Class      string          `yaml:"class"`
	Modality   effect.Modality `yaml:"modality"`
	Tier       int             `yaml:"tier"`
	Clarifying bool            `yaml:"clarifying"`
	JumpScare  bool            `yaml:"jump_scare"`
	Fallback   string          `yaml:"fallback"`
}

// ThemeDef is one theme palette. An empty Allowed list allows every effect.
type ThemeDef struct {
	ID            string                      `yaml:"id"`
	Allowed       []string                    `yaml:"allowed"`
	Forbidden     []string                    `yaml:"forbidden"`
	IntensityCaps map[effect.Modality]float64 `yaml:"intensity_caps"`
	Incompatible  [][2]string                 `yaml:"incompatible"`
}

// Template is one effect produced by a rule with a linear intensity formula.
type Template struct {
	EffectID string  `yaml:"id"`
	Base     float64 `yaml:"base"`
	Slope    float64 `yaml:"slope"`
}

// Rule maps (theme, trigger, bucket) to effect templates.
// Emotion narrows deviation rules; Keywords lists keyword rule triggers.
type Rule struct {
	Theme    string             `yaml:"theme"`
	Trigger  effect.TriggerKind `yaml:"trigger"`
	Bucket   string             `yaml:"bucket"`
	Emotion  string             `yaml:"emotion"`
	Keywords []string           `yaml:"keywords"`
	Effects  []Template         `yaml:"effects"`
}

// File is the on-disk registry document.
type File struct {
	Effects      []EffectDef `yaml:"effects"`
	Themes       []ThemeDef  `yaml:"themes"`
	Incompatible [][2]string `yaml:"incompatible"` // applies to every theme
	// ContextForbidden maps a segment context to effects it never admits.
	// A context is active when the segment carries it as a keyword;
	// ContextDialogue is active whenever a character speaks.
	ContextForbidden map[string][]string `yaml:"context_forbidden"`
	Rules            []Rule              `yaml:"rules"`
}

// #endregion definitions
