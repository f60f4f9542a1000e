package model

// Chunk is an immutable slice of a source contract, the unit of embedding and retrieval.
type Chunk struct {
	ID         string `json:"id"`
	Collection string `json:"collection"`
	Index      int    `json:"index"`
	Text       string `json:"text"`
}

// IndexedChunk pairs a chunk with its embedding.
type IndexedChunk struct {
	Chunk  Chunk
	Vector []float32
}

// ScoredChunk is a retrieval hit, nearest first.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}
