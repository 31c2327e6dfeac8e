package models

// DocumentChunk is a bounded span of one source document page, stored as one
// retrievable unit. Chunks are created during ingestion and immutable after;
// replacing them means re-running ingestion.
type DocumentChunk struct {
	ChunkID string `bson:"chunk_id" json:"chunk_id"`
	Text    string `bson:"text" json:"text"`
	Source  string `bson:"source" json:"source"`
	Page    int    `bson:"page" json:"page"` // zero-based page within Source
	Order   int    `bson:"order" json:"order"`
}

// IngestStats summarizes one ingestion run. Informational only.
type IngestStats struct {
	Documents int `json:"documents"`
	Pages     int `json:"pages"`
	Chunks    int `json:"chunks"`
}
