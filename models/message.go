package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is one question/answer exchange persisted for conversation history.
type Message struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID string             `bson:"session_id" json:"session_id"`
	Question  string             `bson:"question" json:"question"`
	Answer    string             `bson:"answer" json:"answer"`
	Found     bool               `bson:"found" json:"found"`
	Sources   []Source           `bson:"sources,omitempty" json:"sources,omitempty"`
	LatencyMS int64              `bson:"latency_ms" json:"latency_ms"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// ConversationHistory is the full exchange list for one session.
type ConversationHistory struct {
	SessionID    string    `json:"session_id"`
	Messages     []Message `json:"messages"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
