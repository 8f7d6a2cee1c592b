package report

// #region metric
// Metric captures a single compliance check result.
type Metric struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Limit  float64 `json:"limit"`
	Pass   bool    `json:"pass"`
	Detail string  `json:"detail,omitempty"`
}

// #endregion metric

// #region report
// Distribution counts admitted effects and suppressions.
type Distribution struct {
	ByModality map[string]int `json:"by_modality"`
	ByTier     map[int]int    `json:"by_tier"`
	ByTrigger  map[string]int `json:"by_winning_trigger"`
	ByReason   map[string]int `json:"by_suppression_reason"`
}

// Report is the sparsity and compliance summary of one pass.
type Report struct {
	DocumentID       string       `json:"document_id"`
	Segments         int          `json:"segments"`
	EffectSegments   int          `json:"effect_segments"`
	ElevatedSegments int          `json:"elevated_segments"`
	Admitted         int          `json:"admitted"`
	Suppressed       int          `json:"suppressed"`
	EffectDensity    float64      `json:"effect_density"`
	ElevatedDensity  float64      `json:"elevated_density"`
	AverageSpacing   float64      `json:"average_spacing"` // segments between elevated segments
	Tier4Used        int          `json:"tier4_used"`
	Tier4Budget      int          `json:"tier4_budget"`
	Passed           bool         `json:"passed"`
	Reason           string       `json:"reason"`
	Metrics          []Metric     `json:"metrics"`
	Distribution     Distribution `json:"distribution"`
}

// #endregion report
