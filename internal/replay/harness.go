// Package replay re-runs pinned documents and compares the timeline against expectations.
package replay

import (
	"context"
	"fmt"
	"sort"
	"strings"

	ferrors "github.com/danielpatrickdp/cinematic-effects/go-controller/internal/errors"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/pipeline"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/registry"
)

// #region types
// ReplayResult captures the outcome for one expected segment.
type ReplayResult struct {
	SegmentID     int
	Expected      []string
	Replayed      []string
	ExpectedTier  int
	ReplayedTier  int
	TierCapReason string
	Match         bool
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalSegments  int
	Checked        int
	Matched        int
	Diverged       int
	Admitted       int
	Digest         string
	ExpectedDigest string
	DigestMatch    bool // true when no digest is pinned
}

// OK reports whether every check passed.
func (s ReplaySummary) OK() bool {
	return s.Diverged == 0 && s.DigestMatch
}

// #endregion types

// #region replay
// Replay runs the fixture document twice through a fresh engine. A digest
// difference between the two runs is a determinism violation and is returned
// as an error; divergence from the expectations is reported in the results.
func Replay(ctx context.Context, f *Fixture, reg *registry.Registry) ([]ReplayResult, ReplaySummary, error) {
	cfg, err := f.RunConfig()
	if err != nil {
		return nil, ReplaySummary{}, err
	}
	opts := pipeline.DefaultOptions()
	opts.VerifyDeterminism = true
	res, err := pipeline.New(cfg, reg, opts).Run(ctx, f.Input())
	if err != nil {
		return nil, ReplaySummary{}, err
	}

	byID := make(map[int]int, len(res.Decisions))
	for i, d := range res.Decisions {
		byID[d.SegmentID] = i
	}

	results := make([]ReplayResult, 0, len(f.ExpectedResults))
	for _, exp := range f.ExpectedResults {
		// 1. locate
		i, ok := byID[exp.SegmentID]
		if !ok {
			return nil, ReplaySummary{}, ferrors.InputContract(ferrors.CodeSegmentField, exp.SegmentID,
				"expected result for a segment not in the document")
		}
		d := res.Decisions[i]

		// 2. compare admitted sets
		got := make([]string, 0, len(d.Accepted))
		for _, a := range d.Accepted {
			got = append(got, a.EffectID)
		}
		want := append([]string(nil), exp.Accepted...)
		sort.Strings(got)
		sort.Strings(want)

		r := ReplayResult{
			SegmentID:     exp.SegmentID,
			Expected:      want,
			Replayed:      got,
			ExpectedTier:  exp.MaxAllowedTier,
			ReplayedTier:  d.Rationale.MaxAllowedTier,
			TierCapReason: string(d.Rationale.TierCapReason),
		}

		// 3. tier check only when pinned
		r.Match = strings.Join(want, ",") == strings.Join(got, ",") &&
			(exp.MaxAllowedTier == 0 || exp.MaxAllowedTier == d.Rationale.MaxAllowedTier)
		results = append(results, r)
	}

	return results, Summarize(results, res.Digest, f.ExpectedDigest, len(res.Decisions), res.Admitted()), nil
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult, digest, expectedDigest string, segments, admitted int) ReplaySummary {
	s := ReplaySummary{
		TotalSegments:  segments,
		Checked:        len(results),
		Admitted:       admitted,
		Digest:         digest,
		ExpectedDigest: expectedDigest,
		DigestMatch:    expectedDigest == "" || expectedDigest == digest,
	}
	for _, r := range results {
		if r.Match {
			s.Matched++
		} else {
			s.Diverged++
		}
	}
	return s
}

// Describe renders one result for a divergence message.
func (r ReplayResult) Describe() string {
	return fmt.Sprintf("segment %d: expected [%s] tier<=%d, replayed [%s] tier<=%d (%s)",
		r.SegmentID, strings.Join(r.Expected, ","), r.ExpectedTier,
		strings.Join(r.Replayed, ","), r.ReplayedTier, r.TierCapReason)
}

// #endregion replay
