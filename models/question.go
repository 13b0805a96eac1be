package models

// Question is one entry of a static question bank. The engine consumes these
// as opaque content; it never validates quality, only shape.
type Question struct {
	Prompt      string   `json:"prompt"`
	Options     []string `json:"options"`
	Answer      int      `json:"answer"` // index into Options
	Explanation string   `json:"explanation,omitempty"`
}

// QuestionBank is the fixed ordered question list for one (tier, topic) pair,
// as stored in the bank bucket (one JSON object per bank).
type QuestionBank struct {
	Level     ChallengeLevel `json:"level"`
	Topic     string         `json:"topic"`
	Questions []Question     `json:"questions"`
}
