// Package pipeline runs one document pass: scoring, parallel candidate preparation
// and strictly ordered admission.
package pipeline

import (
	"log"

	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/admission"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/character"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/narrative"
)

// #region input
// Input is one analyzed document plus its character seeds.
type Input struct {
	narrative.Document
	Profiles []character.Seed `json:"profiles"`
}

// #endregion input

// #region options
// Options tunes execution, never output.
type Options struct {
	Workers           int         // parallel candidate preparation; <1 means 1
	Logger            *log.Logger // nil is silent
	VerifyDeterminism bool        // run twice and compare digests
}

// DefaultOptions returns the options used by the CLI.
func DefaultOptions() Options {
	return Options{Workers: 4}
}

// #endregion options

// #region result
// Result is the output timeline of one pass.
type Result struct {
	DocumentID  string               `json:"document_id"`
	Decisions   []admission.Decision `json:"decisions"`
	Tier4Budget int                  `json:"tier4_budget"`
	Tier4Used   int                  `json:"tier4_used"`
	DensityCap  int                  `json:"density_cap"`
	Digest      string               `json:"digest"`

	// Segments are the scored segments in document order, for reporting.
	Segments []narrative.Segment `json:"-"`
}

// Admitted returns the number of admitted effects across the document.
func (r *Result) Admitted() int {
	n := 0
	for _, d := range r.Decisions {
		n += len(d.Accepted)
	}
	return n
}

// #endregion result
