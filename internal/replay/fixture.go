package replay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/admission"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/character"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/config"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/narrative"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/pipeline"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Document        narrative.Document      `json:"document"`
	Profiles        []character.Seed        `json:"profiles,omitempty"`
	Config          json.RawMessage         `json:"config,omitempty"` // partial overrides of the defaults
	ExpectedDigest  string                  `json:"expected_digest,omitempty"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureExpectedResult captures the expected admission for one segment.
type FixtureExpectedResult struct {
	SegmentID      int      `json:"segment_id"`
	Accepted       []string `json:"accepted"`                   // effect ids, any order
	MaxAllowedTier int      `json:"max_allowed_tier,omitempty"` // 0 skips the check
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// Input converts the fixture document to a pipeline input.
func (f *Fixture) Input() pipeline.Input {
	return pipeline.Input{Document: f.Document, Profiles: f.Profiles}
}

// RunConfig applies the fixture overrides to the default configuration
// and validates the result.
func (f *Fixture) RunConfig() (config.Config, error) {
	cfg := config.Default()
	if len(bytes.TrimSpace(f.Config)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(f.Config))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return config.Config{}, fmt.Errorf("fixture config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// #endregion fixture-loader

// #region fixture-export

// FromRun builds a fixture that pins a stored run: every decision becomes an
// expected result and the run digest becomes the expected digest.
func FromRun(description string, in pipeline.Input, cfg config.Config, decisions []admission.Decision, digest string) (*Fixture, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	f := &Fixture{
		Description:     description,
		Document:        in.Document,
		Profiles:        in.Profiles,
		Config:          raw,
		ExpectedDigest:  digest,
		ExpectedResults: make([]FixtureExpectedResult, 0, len(decisions)),
	}
	for _, d := range decisions {
		ids := make([]string, 0, len(d.Accepted))
		for _, a := range d.Accepted {
			ids = append(ids, a.EffectID)
		}
		f.ExpectedResults = append(f.ExpectedResults, FixtureExpectedResult{
			SegmentID:      d.SegmentID,
			Accepted:       ids,
			MaxAllowedTier: d.Rationale.MaxAllowedTier,
		})
	}
	return f, nil
}

// Write stores the fixture as indented JSON.
func (f *Fixture) Write(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion fixture-export
