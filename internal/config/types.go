// Package config holds every tunable of a document pass as one named-field object.
package config

// #region governor
// GovernorConfig clamps effects on cognitively dense segments.
type GovernorConfig struct {
	ComplexityThreshold float64 `toml:"complexity_threshold" json:"complexity_threshold"` // above: max tier 1
	Tier4ComplexityMax  float64 `toml:"tier4_complexity_max" json:"tier4_complexity_max"` // above: tier 4 only if clarifying
}

// #endregion governor

// #region cooldown
// CooldownConfig is the minimum word distance between emissions.
type CooldownConfig struct {
	Haptic    int `toml:"haptic" json:"haptic"`
	Audio     int `toml:"audio" json:"audio"`
	Visual    int `toml:"visual" json:"visual"`
	Kinetic   int `toml:"kinetic" json:"kinetic"`
	Tier4     int `toml:"tier4" json:"tier4"`
	JumpScare int `toml:"jump_scare" json:"jump_scare"`
}

// #endregion cooldown

// #region density
// DensityConfig bounds how many segments carry tier>=2 effects.
type DensityConfig struct {
	Ceiling            float64            `toml:"ceiling" json:"ceiling"`                         // fraction of segments
	MinSpacing         int                `toml:"min_spacing" json:"min_spacing"`                 // segments between tier>=2
	MaxConsecutive     int                `toml:"max_consecutive" json:"max_consecutive"`         // effect-bearing segments in a row
	ChapterLimit       float64            `toml:"chapter_limit" json:"chapter_limit"`             // 0 disables
	ChapterMultipliers map[string]float64 `toml:"chapter_multipliers" json:"chapter_multipliers"` // by structural role
}

// #endregion density

// #region tier4
// Tier4Config sizes the lifetime budget for disruptive effects.
// Budget > 0 fixes it; otherwise it is derived from document length.
type Tier4Config struct {
	Budget        int `toml:"budget" json:"budget"`
	WordsPerToken int `toml:"words_per_token" json:"words_per_token"`
	BudgetCap     int `toml:"budget_cap" json:"budget_cap"`
}

// #endregion tier4

// #region climax
// ClimaxConfig weights the structural score and sets the percentile gates.
type ClimaxConfig struct {
	Window            int     `toml:"window" json:"window"`
	PacingWeight      float64 `toml:"pacing_weight" json:"pacing_weight"`
	EventWeight       float64 `toml:"event_weight" json:"event_weight"`
	ConvergenceWeight float64 `toml:"convergence_weight" json:"convergence_weight"`
	PacingReference   float64 `toml:"pacing_reference" json:"pacing_reference"` // words per segment at pacing 0.5
	ConvergenceCap    int     `toml:"convergence_cap" json:"convergence_cap"`
	HighPercentile    float64 `toml:"high_percentile" json:"high_percentile"`
	PeakPercentile    float64 `toml:"peak_percentile" json:"peak_percentile"`
	UseUpstream       bool    `toml:"use_upstream" json:"use_upstream"` // keep supplied climax scores
	ChangeOfStateJump float64 `toml:"change_of_state_jump" json:"change_of_state_jump"`
	ProcessArousal    float64 `toml:"process_arousal" json:"process_arousal"`
}

// #endregion climax

// #region character
// CharacterConfig controls baselines and deviation buckets.
type CharacterConfig struct {
	MinAttributed    int     `toml:"min_attributed" json:"min_attributed"`
	BaselineFraction float64 `toml:"baseline_fraction" json:"baseline_fraction"`
	SigmaFloor       float64 `toml:"sigma_floor" json:"sigma_floor"`
	ElevatedZ        float64 `toml:"elevated_z" json:"elevated_z"`
	ExtremeZ         float64 `toml:"extreme_z" json:"extreme_z"`
}

// #endregion character

// #region quality
// QualityConfig sets the filter thresholds.
type QualityConfig struct {
	MinIntensity        float64 `toml:"min_intensity" json:"min_intensity"`
	AmbientMinIntensity float64 `toml:"ambient_min_intensity" json:"ambient_min_intensity"`
	MinEmotionalScore   float64 `toml:"min_emotional_score" json:"min_emotional_score"` // keyword triggers only
	MaxPerSegment       int     `toml:"max_per_segment" json:"max_per_segment"`
}

// #endregion quality

// #region config
// Config is the full configuration of one document pass.
type Config struct {
	Governor  GovernorConfig  `toml:"governor" json:"governor"`
	Cooldown  CooldownConfig  `toml:"cooldown" json:"cooldown"`
	Density   DensityConfig   `toml:"density" json:"density"`
	Tier4     Tier4Config     `toml:"tier4" json:"tier4"`
	Climax    ClimaxConfig    `toml:"climax" json:"climax"`
	Character CharacterConfig `toml:"character" json:"character"`
	Quality   QualityConfig   `toml:"quality" json:"quality"`
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		Governor: GovernorConfig{
			ComplexityThreshold: 0.80,
			Tier4ComplexityMax:  0.70,
		},
		Cooldown: CooldownConfig{
			Haptic:    1000,
			Audio:     250,
			Visual:    400,
			Kinetic:   300,
			Tier4:     1500,
			JumpScare: 3000,
		},
		Density: DensityConfig{
			Ceiling:        0.02,
			MinSpacing:     8,
			MaxConsecutive: 2,
			ChapterLimit:   0.05,
			ChapterMultipliers: map[string]float64{
				"exposition":    0.3,
				"setup":         0.5,
				"rising_action": 0.8,
				"climax":        1.5,
				"resolution":    0.7,
			},
		},
		Tier4: Tier4Config{
			Budget:        0,
			WordsPerToken: 30000,
			BudgetCap:     3,
		},
		Climax: ClimaxConfig{
			Window:            10,
			PacingWeight:      0.40,
			EventWeight:       0.35,
			ConvergenceWeight: 0.25,
			PacingReference:   40,
			ConvergenceCap:    4,
			HighPercentile:    0.95,
			PeakPercentile:    0.99,
			ChangeOfStateJump: 0.6,
			ProcessArousal:    0.3,
		},
		Character: CharacterConfig{
			MinAttributed:    5,
			BaselineFraction: 0.20,
			SigmaFloor:       0.05,
			ElevatedZ:        2.0,
			ExtremeZ:         3.0,
		},
		Quality: QualityConfig{
			MinIntensity:        0.5,
			AmbientMinIntensity: 0.3,
			MinEmotionalScore:   0.5,
			MaxPerSegment:       3,
		},
	}
}

// #endregion config

// #region env
// Env holds process-level settings read from the environment.
type Env struct {
	DBPath       string `env:"EFFECTS_DB" envDefault:"effects.db"`
	AnalyzerAddr string `env:"EFFECTS_ANALYZER_ADDR" envDefault:"localhost:50061"`
	ConfigPath   string `env:"EFFECTS_CONFIG"`
	RegistryPath string `env:"EFFECTS_REGISTRY"`
	Workers      int    `env:"EFFECTS_WORKERS" envDefault:"4"`
	Verify       bool   `env:"EFFECTS_VERIFY" envDefault:"false"`
}

// #endregion env
