package character

import (
	"math"
	"sort"

	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/config"
	ferrors "github.com/danielpatrickdp/cinematic-effects/go-controller/internal/errors"
	"github.com/danielpatrickdp/cinematic-effects/go-controller/internal/narrative"
)

// #region tracker
// Tracker owns the profiles of one document. Not safe for concurrent use.
type Tracker struct {
	cfg      config.CharacterConfig
	profiles map[string]*Profile
}

// NewTracker builds profiles from seeds and the document's attributed segments.
// Baselines and sigmas are frozen here; every speaker must have a seed.
func NewTracker(cfg config.CharacterConfig, seeds []Seed, segs []narrative.Segment) (*Tracker, error) {
	t := &Tracker{cfg: cfg, profiles: make(map[string]*Profile, len(seeds))}

	for _, s := range seeds {
		if _, dup := t.profiles[s.ID]; dup {
			return nil, &ferrors.Error{
				Kind:    ferrors.KindInputContract,
				Code:    ferrors.CodeDuplicateProfile,
				Message: "duplicate profile " + s.ID,
			}
		}
		for _, a := range s.Archetypes {
			if _, ok := TraitsOf(a); !ok {
				return nil, &ferrors.Error{
					Kind:    ferrors.KindInputContract,
					Code:    ferrors.CodeUnknownArchetype,
					Message: "profile " + s.ID + ": unknown archetype " + string(a),
				}
			}
		}
		t.profiles[s.ID] = &Profile{ID: s.ID, Archetypes: NewArchetypeSet(s.Archetypes...)}
	}

	samples := make(map[string][]narrative.EmotionVector)
	for _, seg := range segs {
		if seg.SpeakingCharacterID == "" {
			continue
		}
		if _, ok := t.profiles[seg.SpeakingCharacterID]; !ok {
			return nil, ferrors.InputContract(ferrors.CodeUnknownCharacter, seg.ID,
				"character %q has no profile", seg.SpeakingCharacterID)
		}
		if seg.SpeakerEmotion != nil {
			samples[seg.SpeakingCharacterID] = append(samples[seg.SpeakingCharacterID], *seg.SpeakerEmotion)
		}
	}

	for _, s := range seeds {
		t.freeze(t.profiles[s.ID], s, samples[s.ID])
	}
	return t, nil
}

func (t *Tracker) freeze(p *Profile, seed Seed, xs []narrative.EmotionVector) {
	p.Attributed = len(xs)
	p.Eligible = p.Attributed >= t.cfg.MinAttributed

	window := xs
	if n := len(xs); n > 0 {
		k := int(math.Ceil(t.cfg.BaselineFraction * float64(n)))
		if k < 1 {
			k = 1
		}
		window = xs[:k]
	}

	if seed.Baseline != nil {
		p.Baseline = *seed.Baseline
	} else {
		p.Baseline = mean(window)
	}
	if seed.Sigma != nil {
		p.Sigma = *seed.Sigma
	} else {
		p.Sigma = spread(window, p.Baseline)
	}
	for d := range p.Sigma {
		if p.Sigma[d] < t.cfg.SigmaFloor {
			p.Sigma[d] = t.cfg.SigmaFloor
		}
	}
}

func mean(xs []narrative.EmotionVector) narrative.EmotionVector {
	var out narrative.EmotionVector
	if len(xs) == 0 {
		return out
	}
	for _, x := range xs {
		for d := range x {
			out[d] += x[d]
		}
	}
	for d := range out {
		out[d] /= float64(len(xs))
	}
	return out
}

func spread(xs []narrative.EmotionVector, center narrative.EmotionVector) narrative.EmotionVector {
	var out narrative.EmotionVector
	if len(xs) == 0 {
		return out
	}
	for _, x := range xs {
		for d := range x {
			diff := x[d] - center[d]
			out[d] += diff * diff
		}
	}
	for d := range out {
		out[d] = math.Sqrt(out[d] / float64(len(xs)))
	}
	return out
}

// #endregion tracker

// #region access

// Profile returns a copy of the profile for id.
func (t *Tracker) Profile(id string) (Profile, bool) {
	p, ok := t.profiles[id]
	if !ok {
		return Profile{}, false
	}
	return *p, true
}

// IDs returns the tracked character ids in sorted order.
func (t *Tracker) IDs() []string {
	ids := make([]string, 0, len(t.profiles))
	for id := range t.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Baseline returns the frozen baseline for id.
func (t *Tracker) Baseline(id string) (narrative.EmotionVector, bool) {
	p, ok := t.profiles[id]
	if !ok {
		return narrative.EmotionVector{}, false
	}
	return p.Baseline, true
}

// Update replaces the current emotion of id.
func (t *Tracker) Update(id string, v narrative.EmotionVector) error {
	p, ok := t.profiles[id]
	if !ok {
		return &ferrors.Error{
			Kind:    ferrors.KindInputContract,
			Code:    ferrors.CodeUnknownCharacter,
			Message: "character " + id + " has no profile",
		}
	}
	p.current = v
	p.hasCurrent = true
	return nil
}

// Deviation returns (current - baseline) / sigma per dimension.
// It is computed on every call.
func (t *Tracker) Deviation(id string) (narrative.EmotionVector, Status) {
	p, ok := t.profiles[id]
	if !ok {
		return narrative.EmotionVector{}, StatusNone
	}
	if !p.Eligible {
		return narrative.EmotionVector{}, StatusInsufficient
	}
	if !p.hasCurrent {
		return narrative.EmotionVector{}, StatusNone
	}
	var z narrative.EmotionVector
	for d := range z {
		z[d] = (p.current[d] - p.Baseline[d]) / p.Sigma[d]
	}
	return z, StatusReady
}

// #endregion access

// #region observe
// Observe applies seg's speaker emotion and returns the reading for seg.
// Segments without a speaker yield an empty reading.
func (t *Tracker) Observe(seg narrative.Segment) (Reading, error) {
	id := seg.SpeakingCharacterID
	if id == "" {
		return Reading{}, nil
	}
	p, ok := t.profiles[id]
	if !ok {
		return Reading{}, ferrors.InputContract(ferrors.CodeUnknownCharacter, seg.ID,
			"character %q has no profile", id)
	}

	r := Reading{CharacterID: id, Archetypes: p.Archetypes}
	if seg.SpeakerEmotion == nil {
		if !p.Eligible {
			r.Status = StatusInsufficient
		}
		return r, nil
	}
	if err := t.Update(id, *seg.SpeakerEmotion); err != nil {
		return Reading{}, err
	}

	z, status := t.Deviation(id)
	r.Status = status
	r.Fresh = true
	if status != StatusReady {
		return r, nil
	}
	r.Deviation = z
	for d := range z {
		if z[d] > r.PeakZ {
			r.Peak = narrative.Emotion(d)
			r.PeakZ = z[d]
		}
	}
	return r, nil
}

// #endregion observe
