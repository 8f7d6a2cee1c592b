package registry

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/effect"
	ferrors "github.com/danielpatrickdp/cinematic-effects/go-controller/internal/errors"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/narrative"
)

//go:embed default.yaml
var defaultYAML []byte

// #region registry
// Registry is the validated, read-only lookup structure. Safe for concurrent reads.
type Registry struct {
	effects      map[string]EffectDef
	themes       map[string]*theme
	rules        map[ruleKey][]Rule
	incompatible map[pairKey]bool
	contexts     map[string]map[string]bool
	contextIDs   []string // sorted
}

type theme struct {
	def       ThemeDef
	allowed   map[string]bool
	forbidden map[string]bool
	pairs     map[pairKey]bool
}

type ruleKey struct {
	theme   string
	trigger effect.TriggerKind
	bucket  string
}

type pairKey struct{ a, b string }

func pair(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a, b}
}

// #endregion registry

// #region load
// Default returns the built-in registry.
func Default() (*Registry, error) {
	return Parse(defaultYAML)
}

// LoadFile reads and validates a YAML registry.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		e := ferrors.Configuration(ferrors.CodeRegistryUnreadable, "registry", "reading registry file %s", path)
		e.Err = err
		return nil, e
	}
	return Parse(data)
}

// Parse decodes and validates registry YAML.
func Parse(data []byte) (*Registry, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		e := ferrors.Configuration(ferrors.CodeRegistryUnreadable, "registry", "parsing registry file")
		e.Err = err
		return nil, e
	}
	return New(f)
}

// New validates f and builds the lookup tables.
func New(f File) (*Registry, error) {
	r := &Registry{
		effects:      make(map[string]EffectDef, len(f.Effects)),
		themes:       make(map[string]*theme, len(f.Themes)),
		rules:        make(map[ruleKey][]Rule),
		incompatible: make(map[pairKey]bool),
		contexts:     make(map[string]map[string]bool, len(f.ContextForbidden)),
	}

	for _, e := range f.Effects {
		if err := validateEffect(e); err != nil {
			return nil, err
		}
		if _, dup := r.effects[e.ID]; dup {
			return nil, entryErr(ferrors.CodeRegistryDuplicate, "effects", "duplicate effect %q", e.ID)
		}
		r.effects[e.ID] = e
	}
	for _, e := range f.Effects {
		if e.Fallback == "" {
			continue
		}
		fb, ok := r.effects[e.Fallback]
		if !ok {
			return nil, entryErr(ferrors.CodeRegistryReference, "effects", "effect %q: unknown fallback %q", e.ID, e.Fallback)
		}
		if fb.Tier >= e.Tier {
			return nil, entryErr(ferrors.CodeRegistryEntry, "effects", "effect %q: fallback %q must have a lower tier", e.ID, e.Fallback)
		}
	}

	for _, p := range f.Incompatible {
		if err := r.checkPair(p, "incompatible"); err != nil {
			return nil, err
		}
		r.incompatible[pair(p[0], p[1])] = true
	}

	for ctx, ids := range f.ContextForbidden {
		if ctx == "" {
			return nil, entryErr(ferrors.CodeRegistryEntry, "context_forbidden", "empty context name")
		}
		set := make(map[string]bool, len(ids))
		for _, id := range ids {
			if _, ok := r.effects[id]; !ok {
				return nil, entryErr(ferrors.CodeRegistryReference, "context_forbidden", "context %q: unknown effect %q", ctx, id)
			}
			set[id] = true
		}
		r.contexts[strings.ToLower(ctx)] = set
	}
	for ctx := range r.contexts {
		r.contextIDs = append(r.contextIDs, ctx)
	}
	sort.Strings(r.contextIDs)

	for _, td := range f.Themes {
		t, err := r.buildTheme(td)
		if err != nil {
			return nil, err
		}
		if _, dup := r.themes[td.ID]; dup {
			return nil, entryErr(ferrors.CodeRegistryDuplicate, "themes", "duplicate theme %q", td.ID)
		}
		r.themes[td.ID] = t
	}

	for i, rule := range f.Rules {
		if err := r.validateRule(rule); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		k := ruleKey{theme: rule.Theme, trigger: rule.Trigger, bucket: rule.Bucket}
		r.rules[k] = append(r.rules[k], rule)
	}
	return r, nil
}

// #endregion load

// #region validate

func entryErr(code ferrors.Code, rule, format string, args ...any) error {
	return ferrors.Configuration(code, "registry."+rule, format, args...)
}

func validateEffect(e EffectDef) error {
	if e.ID == "" {
		return entryErr(ferrors.CodeRegistryEntry, "effects", "effect with empty id")
	}
	if e.Class == "" {
		return entryErr(ferrors.CodeRegistryEntry, "effects", "effect %q: empty class", e.ID)
	}
	if !e.Modality.Valid() {
		return entryErr(ferrors.CodeRegistryEntry, "effects", "effect %q: unknown modality %q", e.ID, e.Modality)
	}
	if e.Tier < effect.TierAmbient || e.Tier > effect.MaxTier {
		return entryErr(ferrors.CodeRegistryEntry, "effects", "effect %q: tier %d outside 1-4", e.ID, e.Tier)
	}
	if e.Clarifying && e.Tier != effect.TierDisrupt {
		return entryErr(ferrors.CodeRegistryEntry, "effects", "effect %q: clarifying applies to tier 4 only", e.ID)
	}
	return nil
}

func (r *Registry) checkPair(p [2]string, rule string) error {
	for _, id := range p {
		if _, ok := r.effects[id]; !ok {
			return entryErr(ferrors.CodeRegistryReference, rule, "unknown effect %q in incompatible pair", id)
		}
	}
	if p[0] == p[1] {
		return entryErr(ferrors.CodeRegistryEntry, rule, "effect %q paired with itself", p[0])
	}
	return nil
}

func (r *Registry) buildTheme(td ThemeDef) (*theme, error) {
	if td.ID == "" || td.ID == Wildcard {
		return nil, entryErr(ferrors.CodeRegistryEntry, "themes", "invalid theme id %q", td.ID)
	}
	t := &theme{
		def:       td,
		allowed:   make(map[string]bool, len(td.Allowed)),
		forbidden: make(map[string]bool, len(td.Forbidden)),
		pairs:     make(map[pairKey]bool, len(td.Incompatible)),
	}
	for _, id := range td.Allowed {
		if _, ok := r.effects[id]; !ok {
			return nil, entryErr(ferrors.CodeRegistryReference, "themes", "theme %q: unknown allowed effect %q", td.ID, id)
		}
		t.allowed[id] = true
	}
	for _, id := range td.Forbidden {
		if _, ok := r.effects[id]; !ok {
			return nil, entryErr(ferrors.CodeRegistryReference, "themes", "theme %q: unknown forbidden effect %q", td.ID, id)
		}
		if t.allowed[id] {
			return nil, entryErr(ferrors.CodeRegistryEntry, "themes", "theme %q: effect %q both allowed and forbidden", td.ID, id)
		}
		t.forbidden[id] = true
	}
	// intensity caps carry photosensitivity limits: every modality must be explicit
	for _, m := range effect.Modalities {
		c, ok := td.IntensityCaps[m]
		if !ok {
			return nil, ferrors.Configuration(ferrors.CodeMissingSetting, "registry.themes",
				"theme %q: missing intensity cap for %s", td.ID, m)
		}
		if c < 0 || c > 1 {
			return nil, entryErr(ferrors.CodeRegistryEntry, "themes", "theme %q: %s cap %.3f outside [0,1]", td.ID, m, c)
		}
	}
	for m := range td.IntensityCaps {
		if !m.Valid() {
			return nil, entryErr(ferrors.CodeRegistryEntry, "themes", "theme %q: unknown modality %q", td.ID, m)
		}
	}
	for _, p := range td.Incompatible {
		if err := r.checkPair(p, "themes"); err != nil {
			return nil, err
		}
		t.pairs[pair(p[0], p[1])] = true
	}
	return t, nil
}

func (r *Registry) validateRule(rule Rule) error {
	if rule.Theme != Wildcard {
		if _, ok := r.themes[rule.Theme]; !ok {
			return entryErr(ferrors.CodeRegistryReference, "rules", "unknown theme %q", rule.Theme)
		}
	}
	buckets, ok := triggerBuckets[rule.Trigger]
	if !ok {
		return entryErr(ferrors.CodeRegistryEntry, "rules", "unknown trigger %q", rule.Trigger)
	}
	found := false
	for _, b := range buckets {
		if b == rule.Bucket {
			found = true
		}
	}
	if !found {
		return entryErr(ferrors.CodeRegistryEntry, "rules", "bucket %q not valid for trigger %s", rule.Bucket, rule.Trigger)
	}
	if rule.Emotion != "" {
		if rule.Trigger != effect.TriggerDeviation {
			return entryErr(ferrors.CodeRegistryEntry, "rules", "emotion only applies to deviation rules")
		}
		if _, ok := narrative.ParseEmotion(rule.Emotion); !ok {
			return entryErr(ferrors.CodeRegistryEntry, "rules", "unknown emotion %q", rule.Emotion)
		}
	}
	if (rule.Trigger == effect.TriggerKeyword) != (len(rule.Keywords) > 0) {
		return entryErr(ferrors.CodeRegistryEntry, "rules", "keywords are required for, and only for, keyword rules")
	}
	if len(rule.Effects) == 0 {
		return entryErr(ferrors.CodeRegistryEntry, "rules", "rule lists no effects")
	}
	for _, tpl := range rule.Effects {
		if _, ok := r.effects[tpl.EffectID]; !ok {
			return entryErr(ferrors.CodeRegistryReference, "rules", "unknown effect %q", tpl.EffectID)
		}
		if tpl.Base < 0 || tpl.Base > 1 {
			return entryErr(ferrors.CodeRegistryEntry, "rules", "effect %q: base %.3f outside [0,1]", tpl.EffectID, tpl.Base)
		}
	}
	return nil
}

// #endregion validate

// #region lookup

// HasTheme reports whether id is a registered theme.
func (r *Registry) HasTheme(id string) bool {
	_, ok := r.themes[id]
	return ok
}

// Themes returns the registered theme ids in sorted order.
func (r *Registry) Themes() []string {
	ids := make([]string, 0, len(r.themes))
	for id := range r.themes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Effect returns the definition for id.
func (r *Registry) Effect(id string) (EffectDef, bool) {
	e, ok := r.effects[id]
	return e, ok
}

// EffectCount returns the number of registered effects.
func (r *Registry) EffectCount() int { return len(r.effects) }

// Rules returns the rules for a theme, trigger and bucket: theme-specific first, then wildcard.
func (r *Registry) Rules(themeID string, trigger effect.TriggerKind, bucket string) []Rule {
	out := append([]Rule(nil), r.rules[ruleKey{themeID, trigger, bucket}]...)
	return append(out, r.rules[ruleKey{Wildcard, trigger, bucket}]...)
}

// Compatible reports whether the theme's palette allows the effect.
func (r *Registry) Compatible(themeID, effectID string) bool {
	t, ok := r.themes[themeID]
	if !ok || t.forbidden[effectID] {
		return false
	}
	return len(t.allowed) == 0 || t.allowed[effectID]
}

// Forbidden reports whether the theme explicitly forbids the effect.
func (r *Registry) Forbidden(themeID, effectID string) bool {
	t, ok := r.themes[themeID]
	return ok && t.forbidden[effectID]
}

// Cap returns the theme's intensity cap for a modality.
func (r *Registry) Cap(themeID string, m effect.Modality) float64 {
	t, ok := r.themes[themeID]
	if !ok {
		return 0
	}
	return t.def.IntensityCaps[m]
}

// Incompatible reports whether two effects may not share a segment under the theme.
func (r *Registry) Incompatible(themeID, a, b string) bool {
	k := pair(a, b)
	if r.incompatible[k] {
		return true
	}
	t, ok := r.themes[themeID]
	return ok && t.pairs[k]
}

// ContextForbids returns the first active context, in name order, that
// forbids the effect. Contexts are matched case-insensitively.
func (r *Registry) ContextForbids(active map[string]bool, effectID string) (string, bool) {
	for _, ctx := range r.contextIDs {
		if active[ctx] && r.contexts[ctx][effectID] {
			return ctx, true
		}
	}
	return "", false
}

// #endregion lookup
