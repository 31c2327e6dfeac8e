package models

// AskRequest is the body of POST /ask.
type AskRequest struct {
	Question  string `json:"question" binding:"required"`
	SessionID string `json:"session_id"`
}

// Source is one retrieved excerpt backing an answer.
type Source struct {
	Rank       int     `bson:"rank" json:"rank"`                 // 1-based display rank
	Page       int     `bson:"page" json:"page"`                 // 1-based display page
	Excerpt    string  `bson:"excerpt" json:"excerpt"`           // bounded preview of chunk text
	Distance   float64 `bson:"distance" json:"distance"`         // lower = more similar
	Confidence string  `bson:"confidence,omitempty" json:"confidence,omitempty"`
}

// AnswerResult is the outcome of one retrieval. Not-found is a normal
// outcome: Found is false, Answer carries the sentinel text and Sources is
// empty. System failures are reported as errors, never as a not-found result.
type AnswerResult struct {
	Found   bool     `json:"found"`
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`

	// Contexts holds the full text of the retrieved chunks, in rank order,
	// for the serving layer to hand to an LLM. Not serialized.
	Contexts []string `json:"-"`
}
