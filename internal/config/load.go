package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"

	ferrors "github.com/danielpatrickdp/cinematic-effects/go-controller/internal/errors"
)

// safetyKeys must be present in every config file. They are never defaulted.
var safetyKeys = []string{
	"governor.complexity_threshold",
	"governor.tier4_complexity_max",
	"cooldown.haptic",
	"cooldown.audio",
	"cooldown.visual",
	"cooldown.kinetic",
	"cooldown.tier4",
	"cooldown.jump_scare",
	"density.ceiling",
	"density.min_spacing",
	"density.max_consecutive",
	"tier4.budget_cap",
}

// #region load
// LoadFile reads a TOML config. Safety-relevant keys must be present;
// everything else falls back to Default.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		e := ferrors.Configuration(ferrors.CodeConfigUnreadable, "config", "read %s", path)
		e.Err = err
		return Config{}, e
	}
	return Parse(data)
}

// Parse decodes TOML config bytes and validates the result.
func Parse(data []byte) (Config, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		e := ferrors.Configuration(ferrors.CodeConfigUnreadable, "config", "parse toml")
		e.Err = err
		return Config{}, e
	}
	for _, key := range safetyKeys {
		if !hasKey(raw, key) {
			return Config{}, ferrors.Configuration(ferrors.CodeMissingSetting, key,
				"safety-relevant setting must be set explicitly")
		}
	}

	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if stderrors.As(err, &strict) {
			return Config{}, ferrors.Configuration(ferrors.CodeInvalidSetting, "config",
				"unknown keys: %s", strings.TrimSpace(strict.String()))
		}
		e := ferrors.Configuration(ferrors.CodeInvalidSetting, "config", "decode toml")
		e.Err = err
		return Config{}, e
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func hasKey(tree map[string]any, dotted string) bool {
	parts := strings.Split(dotted, ".")
	node := tree
	for i, p := range parts {
		v, ok := node[p]
		if !ok {
			return false
		}
		if i == len(parts)-1 {
			return true
		}
		next, ok := v.(map[string]any)
		if !ok {
			return false
		}
		node = next
	}
	return false
}

// LoadEnv reads process settings from the environment.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return e, nil
}

// #endregion load

// #region validate
// Validate range-checks every field.
func (c Config) Validate() error {
	bad := func(rule, format string, args ...any) error {
		return ferrors.Configuration(ferrors.CodeInvalidSetting, rule, format, args...)
	}
	unit := func(v float64) bool { return v >= 0 && v <= 1 }

	if !unit(c.Governor.ComplexityThreshold) {
		return bad("governor.complexity_threshold", "%.4f outside [0,1]", c.Governor.ComplexityThreshold)
	}
	if !unit(c.Governor.Tier4ComplexityMax) {
		return bad("governor.tier4_complexity_max", "%.4f outside [0,1]", c.Governor.Tier4ComplexityMax)
	}

	cooldowns := map[string]int{
		"cooldown.haptic":     c.Cooldown.Haptic,
		"cooldown.audio":      c.Cooldown.Audio,
		"cooldown.visual":     c.Cooldown.Visual,
		"cooldown.kinetic":    c.Cooldown.Kinetic,
		"cooldown.tier4":      c.Cooldown.Tier4,
		"cooldown.jump_scare": c.Cooldown.JumpScare,
	}
	for _, key := range safetyKeys {
		if v, ok := cooldowns[key]; ok && v < 0 {
			return bad(key, "negative cooldown %d", v)
		}
	}

	if c.Density.Ceiling <= 0 || c.Density.Ceiling > 1 {
		return bad("density.ceiling", "%.4f outside (0,1]", c.Density.Ceiling)
	}
	if c.Density.MinSpacing < 1 {
		return bad("density.min_spacing", "must be >= 1, got %d", c.Density.MinSpacing)
	}
	if c.Density.MaxConsecutive < 1 {
		return bad("density.max_consecutive", "must be >= 1, got %d", c.Density.MaxConsecutive)
	}
	if c.Density.ChapterLimit < 0 || c.Density.ChapterLimit > 1 {
		return bad("density.chapter_limit", "%.4f outside [0,1]", c.Density.ChapterLimit)
	}
	for role, m := range c.Density.ChapterMultipliers {
		if m < 0 {
			return bad("density.chapter_multipliers", "negative multiplier for %s", role)
		}
	}

	if c.Tier4.Budget < 0 {
		return bad("tier4.budget", "negative budget %d", c.Tier4.Budget)
	}
	if c.Tier4.BudgetCap < 0 {
		return bad("tier4.budget_cap", "negative cap %d", c.Tier4.BudgetCap)
	}
	if c.Tier4.Budget == 0 && c.Tier4.WordsPerToken <= 0 {
		return bad("tier4.words_per_token", "must be > 0 when budget is derived")
	}

	if c.Climax.Window < 1 {
		return bad("climax.window", "must be >= 1, got %d", c.Climax.Window)
	}
	for name, w := range map[string]float64{
		"climax.pacing_weight":      c.Climax.PacingWeight,
		"climax.event_weight":       c.Climax.EventWeight,
		"climax.convergence_weight": c.Climax.ConvergenceWeight,
	} {
		if w < 0 {
			return bad(name, "negative weight %.4f", w)
		}
	}
	if c.Climax.PacingWeight+c.Climax.EventWeight+c.Climax.ConvergenceWeight == 0 {
		return bad("climax", "weights sum to zero")
	}
	if c.Climax.PacingReference <= 0 {
		return bad("climax.pacing_reference", "must be > 0")
	}
	if c.Climax.ConvergenceCap < 1 {
		return bad("climax.convergence_cap", "must be >= 1")
	}
	if !unit(c.Climax.HighPercentile) || !unit(c.Climax.PeakPercentile) || c.Climax.HighPercentile > c.Climax.PeakPercentile {
		return bad("climax.percentiles", "need 0 <= high <= peak <= 1")
	}

	if c.Character.MinAttributed < 1 {
		return bad("character.min_attributed", "must be >= 1")
	}
	if c.Character.BaselineFraction <= 0 || c.Character.BaselineFraction > 1 {
		return bad("character.baseline_fraction", "%.4f outside (0,1]", c.Character.BaselineFraction)
	}
	if c.Character.SigmaFloor <= 0 {
		return bad("character.sigma_floor", "must be > 0")
	}
	if c.Character.ElevatedZ <= 0 || c.Character.ExtremeZ < c.Character.ElevatedZ {
		return bad("character.z", "need 0 < elevated_z <= extreme_z")
	}

	if !unit(c.Quality.MinIntensity) || !unit(c.Quality.AmbientMinIntensity) || !unit(c.Quality.MinEmotionalScore) {
		return bad("quality", "thresholds must be in [0,1]")
	}
	if c.Quality.MaxPerSegment < 1 {
		return bad("quality.max_per_segment", "must be >= 1")
	}
	return nil
}

// #endregion validate

// #region digest
// Digest returns a stable short hash of the effective configuration.
func (c Config) Digest() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// ChapterMultiplier returns the multiplier for a structural role, 1 when unset.
func (c Config) ChapterMultiplier(role string) float64 {
	if m, ok := c.Density.ChapterMultipliers[role]; ok {
		return m
	}
	return 1
}

// #endregion digest
