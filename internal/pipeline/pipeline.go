package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/admission"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/candidate"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/character"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/config"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/effect"
	ferrors "github.com/danielpatrickdp/cinematic-effects/go-controller/internal/errors"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/narrative"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/quality"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/registry"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/structure"
)

// #region engine
// Engine runs document passes against one configuration and registry.
// It holds no per-document state, so concurrent Runs are independent.
type Engine struct {
	cfg  config.Config
	reg  *registry.Registry
	gen  *candidate.Generator
	opts Options
}

// New creates an engine. cfg must already be validated.
func New(cfg config.Config, reg *registry.Registry, opts Options) *Engine {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Engine{cfg: cfg, reg: reg, gen: candidate.New(reg, cfg), opts: opts}
}

// Run processes one document. On cancellation it returns the decisions made
// so far together with the context error.
func (e *Engine) Run(ctx context.Context, in Input) (*Result, error) {
	res, err := e.run(ctx, in)
	if err != nil {
		return res, ferrors.WithDocument(err, in.ID)
	}
	if e.opts.VerifyDeterminism {
		again, err := e.run(ctx, in)
		if err != nil {
			return res, ferrors.WithDocument(err, in.ID)
		}
		if again.Digest != res.Digest {
			return res, ferrors.Determinism(in.ID, "digest %s != %s on rerun", res.Digest, again.Digest)
		}
	}
	e.logf("[PIPELINE] document=%s segments=%d admitted=%d tier4=%d/%d digest=%s",
		res.DocumentID, len(res.Decisions), res.Admitted(), res.Tier4Used, res.Tier4Budget, short(res.Digest))
	return res, nil
}

func (e *Engine) logf(format string, args ...any) {
	if e.opts.Logger != nil {
		e.opts.Logger.Printf(format, args...)
	}
}

func short(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

// #endregion engine

// #region run

// prepared is the per-segment output of the parallel stage.
type prepared struct {
	pos      int
	seg      narrative.Segment
	kept     []effect.Candidate
	filtered []quality.Drop
	notes    []string
	err      error
}

func (e *Engine) run(ctx context.Context, in Input) (*Result, error) {
	store, err := narrative.NewStore(in.Document)
	if err != nil {
		return nil, err
	}
	segs := store.Segments()

	tracker, err := character.NewTracker(e.cfg.Character, in.Profiles, segs)
	if err != nil {
		return nil, err
	}

	// pass 1 and 2: raw structural scores, then book-relative percentiles
	scores := structure.Score(e.cfg.Climax, store)
	scored := make([]narrative.Segment, len(segs))
	for i, seg := range segs {
		scored[i] = seg.WithScores(scores[i].Type, scores[i].Climax)
	}

	// the tracker walk is order dependent: current emotion carries forward
	readings := make([]character.Reading, len(scored))
	for i, seg := range scored {
		r, err := tracker.Observe(seg)
		if err != nil {
			return nil, err
		}
		readings[i] = r
	}

	archetypes := make(map[string]character.ArchetypeSet)
	for _, id := range tracker.IDs() {
		p, _ := tracker.Profile(id)
		archetypes[id] = p.Archetypes
	}
	filter := quality.New(e.reg, e.cfg.Quality, func(id string) character.ArchetypeSet { return archetypes[id] })

	ctrl := admission.NewController(e.cfg, e.reg, admission.Plan{
		Segments:      store.Len(),
		TotalWords:    store.TotalWords(),
		ChapterLimits: chapterLimits(e.cfg, store),
	}).WithFilter(filter)

	res := &Result{
		DocumentID:  store.DocumentID(),
		Decisions:   make([]admission.Decision, 0, store.Len()),
		Tier4Budget: ctrl.State().Tier4Budget,
		DensityCap:  ctrl.DensityCap(),
		Segments:    scored,
	}

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	results := make(chan prepared, e.opts.Workers)
	go e.prepareAll(workCtx, scored, readings, filter, results)

	seq := NewSequencer[prepared](0)
	var runErr error
	for p := range results {
		if runErr != nil {
			continue // drain until the producers stop
		}
		if err := seq.Push(p.pos, p); err != nil {
			runErr = err
			cancel()
			continue
		}
		for {
			next, ok := seq.Pop()
			if !ok {
				break
			}
			// checkpoint between segments
			if err := ctx.Err(); err != nil {
				runErr = err
				cancel()
				break
			}
			if next.err != nil {
				runErr = next.err
				cancel()
				break
			}
			res.Decisions = append(res.Decisions, e.decide(ctrl, next))
		}
	}
	if runErr == nil && len(res.Decisions) < store.Len() {
		runErr = ctx.Err()
		if runErr == nil {
			runErr = fmt.Errorf("pipeline stopped at segment position %d", len(res.Decisions))
		}
	}

	res.Tier4Used = ctrl.State().Tier4Used()
	digest, err := Digest(res.Decisions)
	if err != nil {
		return res, err
	}
	res.Digest = digest
	return res, runErr
}

// prepareAll generates and filters candidates for every segment on a bounded
// worker pool and closes out when done. Items arrive in any order.
func (e *Engine) prepareAll(ctx context.Context, segs []narrative.Segment, readings []character.Reading, filter *quality.Filter, out chan<- prepared) {
	defer close(out)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i := range segs {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			p := prepared{pos: i, seg: segs[i]}
			gen, err := e.gen.Generate(segs[i], readings[i])
			if err != nil {
				p.err = err
			} else {
				p.kept, p.filtered = filter.Report(segs[i], gen.Candidates)
				p.notes = gen.Notes
			}
			select {
			case out <- p:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	_ = g.Wait()
}

func (e *Engine) decide(ctrl *admission.Controller, p prepared) admission.Decision {
	d := ctrl.Decide(p.pos, p.seg, p.kept)
	if len(p.filtered) > 0 {
		sup := make([]admission.Suppression, 0, len(p.filtered)+len(d.Rationale.Suppressed))
		for _, f := range p.filtered {
			sup = append(sup, admission.Suppression{
				EffectID: f.Candidate.EffectID,
				Modality: f.Candidate.Modality,
				Tier:     f.Candidate.Tier,
				Trigger:  f.Candidate.Trigger,
				Stage:    admission.StageFilter,
				Reason:   string(f.Reason),
			})
		}
		d.Rationale.Suppressed = append(sup, d.Rationale.Suppressed...)
	}
	d.Rationale.Notes = p.notes
	return d
}

func chapterLimits(cfg config.Config, store *narrative.Store) map[int]int {
	out := make(map[int]int)
	chs := store.Chapters()
	for i, limit := range structure.ChapterLimits(cfg, store) {
		if limit >= 0 {
			out[chs[i].Number] = limit
		}
	}
	return out
}

// #endregion run

// #region digest
// Digest is the hex sha256 of the canonical JSON encoding of decisions.
func Digest(decisions []admission.Decision) (string, error) {
	data, err := json.Marshal(decisions)
	if err != nil {
		return "", fmt.Errorf("encode decisions: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// #endregion digest
