package domain

// EndScreen is the structured end-of-conversation artifact produced when the
// user taps "Done". It is generated once and immutable afterwards.
type EndScreen struct {
	Validation        string   `json:"validation"`
	Reflection        string   `json:"reflection"`
	Themes            []string `json:"themes"`
	Encouragement     string   `json:"encouragement"`
	KeyMoment         string   `json:"keyMoment,omitempty"`
	EmotionalTone     string   `json:"emotionalTone"`
	SuggestedNextStep string   `json:"suggestedNextStep,omitempty"`
}

// EmotionalTones is the closed set of tones the synthesizer may report
var EmotionalTones = []string{"calm", "hopeful", "relieved", "understood", "lighter", "clearer"}

// SentimentType classifies the dominant emotional tone of a conversation
type SentimentType string

const (
	SentimentPositive SentimentType = "positive"
	SentimentNegative SentimentType = "negative"
	SentimentNeutral  SentimentType = "neutral"
	SentimentMixed    SentimentType = "mixed"
)

// Sentiment is the structured result of conversation sentiment analysis
type Sentiment struct {
	Sentiment  SentimentType `json:"sentiment"`
	Confidence float64       `json:"confidence"`
	Summary    string        `json:"summary"`
}
