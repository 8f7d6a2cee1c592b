package narrative

import (
	"fmt"

	ferrors "github.com/danielpatrickdp/cinematic-effects/go-controller/internal/errors"
)

// #region document
// Document is the upstream producer contract for one book.
type Document struct {
	ID       string    `json:"document_id"`
	Segments []Segment `json:"segments"`
}

// #endregion document

// #region store
// Store holds the validated, ordered segments of one document.
// It is read-only after construction.
type Store struct {
	documentID string
	segments   []Segment
	totalWords int
	chapters   []Chapter
}

// Chapter is a contiguous run of segments sharing a chapter number.
type Chapter struct {
	Number int
	Start  int // position of the first segment
	End    int // position one past the last segment
}

// Len returns the number of segments in the chapter.
func (c Chapter) Len() int { return c.End - c.Start }

// NewStore validates doc and assigns cumulative word indexes.
// Segment ids must be strictly increasing and contiguous.
func NewStore(doc Document) (*Store, error) {
	if len(doc.Segments) == 0 {
		return nil, &ferrors.Error{
			Kind:       ferrors.KindInputContract,
			Code:       ferrors.CodeEmptyDocument,
			DocumentID: doc.ID,
			Message:    "document has no segments",
		}
	}

	segs := make([]Segment, len(doc.Segments))
	words := 0
	first := doc.Segments[0].ID
	for i, seg := range doc.Segments {
		if seg.ID != first+i {
			return nil, ferrors.WithDocument(ferrors.InputContract(ferrors.CodeSegmentOrder, seg.ID,
				"expected segment id %d at position %d", first+i, i), doc.ID)
		}
		if i > 0 && seg.Chapter < doc.Segments[i-1].Chapter {
			return nil, ferrors.WithDocument(ferrors.InputContract(ferrors.CodeSegmentOrder, seg.ID,
				"chapter %d after chapter %d", seg.Chapter, doc.Segments[i-1].Chapter), doc.ID)
		}
		if err := validateSegment(seg); err != nil {
			return nil, ferrors.WithDocument(err, doc.ID)
		}
		seg.Keywords = append([]string(nil), seg.Keywords...)
		if seg.SpeakerEmotion != nil {
			v := *seg.SpeakerEmotion
			seg.SpeakerEmotion = &v
		}
		seg.WordIndex = words
		words += seg.TextLength
		segs[i] = seg
	}

	return &Store{
		documentID: doc.ID,
		segments:   segs,
		totalWords: words,
		chapters:   splitChapters(segs),
	}, nil
}

func validateSegment(seg Segment) error {
	field := func(name string, format string, args ...any) error {
		return ferrors.InputContract(ferrors.CodeSegmentField, seg.ID, "%s: %s", name, fmt.Sprintf(format, args...))
	}
	if seg.TextLength < 0 {
		return field("text_length", "negative word count %d", seg.TextLength)
	}
	if seg.Type != "" && !seg.Type.Valid() {
		return field("narratological_type", "unknown type %q", seg.Type)
	}
	if !unit(seg.ComplexityPercentile) {
		return field("complexity_percentile", "%.4f outside [0,1]", seg.ComplexityPercentile)
	}
	if !unit(seg.ClimaxScore) {
		return field("climax_score", "%.4f outside [0,1]", seg.ClimaxScore)
	}
	if !unit(seg.EmotionalScore) {
		return field("emotional_score", "%.4f outside [0,1]", seg.EmotionalScore)
	}
	for _, v := range []float64{seg.PAD.Pleasure, seg.PAD.Arousal, seg.PAD.Dominance} {
		if v < -1 || v > 1 {
			return field("pad_vector", "component %.4f outside [-1,1]", v)
		}
	}
	if seg.ThemeID == "" {
		return field("active_theme_id", "empty")
	}
	if seg.SpeakerEmotion != nil {
		if seg.SpeakingCharacterID == "" {
			return field("speaker_emotion", "set without speaking_character_id")
		}
		for d, v := range seg.SpeakerEmotion {
			if !unit(v) {
				return field("speaker_emotion", "%s %.4f outside [0,1]", Emotion(d), v)
			}
		}
	}
	return nil
}

func unit(v float64) bool { return v >= 0 && v <= 1 }

func splitChapters(segs []Segment) []Chapter {
	var out []Chapter
	for i, seg := range segs {
		if i == 0 || seg.Chapter != segs[i-1].Chapter {
			if len(out) > 0 {
				out[len(out)-1].End = i
			}
			out = append(out, Chapter{Number: seg.Chapter, Start: i})
		}
	}
	out[len(out)-1].End = len(segs)
	return out
}

// DocumentID returns the id of the stored document.
func (s *Store) DocumentID() string { return s.documentID }

// Len returns the segment count.
func (s *Store) Len() int { return len(s.segments) }

// At returns the segment at position i.
func (s *Store) At(i int) Segment { return s.segments[i] }

// Segments returns a copy of all segments in document order.
func (s *Store) Segments() []Segment {
	return append([]Segment(nil), s.segments...)
}

// TotalWords returns the document word count.
func (s *Store) TotalWords() int { return s.totalWords }

// Chapters returns the chapter spans in document order.
func (s *Store) Chapters() []Chapter {
	return append([]Chapter(nil), s.chapters...)
}

// ChapterOf returns the index into Chapters for the segment at position i.
func (s *Store) ChapterOf(i int) int {
	for c, ch := range s.chapters {
		if i >= ch.Start && i < ch.End {
			return c
		}
	}
	return -1
}

// #endregion store
