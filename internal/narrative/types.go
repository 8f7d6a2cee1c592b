package narrative

// #region narratological-type
// NarratologicalType classifies what happens in a segment.
type NarratologicalType string

const (
	NonEvent      NarratologicalType = "non_event"
	Stative       NarratologicalType = "stative"
	Process       NarratologicalType = "process"
	ChangeOfState NarratologicalType = "change_of_state"
)

// Valid reports whether t is a known type. The empty type means "unclassified".
func (t NarratologicalType) Valid() bool {
	switch t {
	case NonEvent, Stative, Process, ChangeOfState:
		return true
	}
	return false
}

// IsEvent reports whether t counts toward event density.
func (t NarratologicalType) IsEvent() bool {
	return t == Process || t == ChangeOfState
}

// #endregion narratological-type

// #region emotion
// Emotion indexes the fixed 8-dimension Plutchik basis.
type Emotion int

const (
	Joy Emotion = iota
	Trust
	Fear
	Surprise
	Sadness
	Disgust
	Anger
	Anticipation
)

// EmotionDims is the size of the emotion basis.
const EmotionDims = 8

var emotionNames = [EmotionDims]string{
	"joy", "trust", "fear", "surprise", "sadness", "disgust", "anger", "anticipation",
}

func (e Emotion) String() string {
	if e < 0 || int(e) >= EmotionDims {
		return "unknown"
	}
	return emotionNames[e]
}

// ParseEmotion maps a dimension name back to its index.
func ParseEmotion(name string) (Emotion, bool) {
	for i, n := range emotionNames {
		if n == name {
			return Emotion(i), true
		}
	}
	return 0, false
}

// EmotionVector holds one score in [0,1] per basis dimension.
type EmotionVector [EmotionDims]float64

// #endregion emotion

// #region pad
// PAD is a pleasure/arousal/dominance triple, each in [-1,1].
type PAD struct {
	Pleasure  float64 `json:"pleasure"`
	Arousal   float64 `json:"arousal"`
	Dominance float64 `json:"dominance"`
}

// #endregion pad

// #region segment
// Segment is one immutable content unit with precomputed scores.
// WordIndex is assigned by the Store: the number of words before this segment.
type Segment struct {
	ID                   int                `json:"id"`
	Chapter              int                `json:"chapter"`
	TextLength           int                `json:"text_length"`
	Type                 NarratologicalType `json:"narratological_type,omitempty"`
	ComplexityPercentile float64            `json:"complexity_percentile"`
	ClimaxScore          float64            `json:"climax_score"`
	PAD                  PAD                `json:"pad_vector"`
	ThemeID              string             `json:"active_theme_id"`
	SpeakingCharacterID  string             `json:"speaking_character_id,omitempty"`
	SpeakerEmotion       *EmotionVector     `json:"speaker_emotion,omitempty"`
	EmotionalScore       float64            `json:"emotional_score"`
	Keywords             []string           `json:"keywords,omitempty"`
	Pivot                bool               `json:"pivot,omitempty"`
	WordIndex            int                `json:"cumulative_word_index"`
}

// WithScores returns a copy of s carrying the scorer's type and climax score.
func (s Segment) WithScores(t NarratologicalType, climax float64) Segment {
	s.Type = t
	s.ClimaxScore = climax
	s.Keywords = append([]string(nil), s.Keywords...)
	return s
}

// #endregion segment
