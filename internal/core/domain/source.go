package domain

import "time"

// SourceChunk is a normalised chunk ready for prompt assembly.
type SourceChunk struct {
	Index  int
	Text   string
	Tokens int
}

// Source is a visible selected document with its normalised chunks.
type Source struct {
	ID          int64
	Title       string
	Tags        []string
	CreatedAt   time.Time
	Chunks      []SourceChunk
	TotalTokens int
}

// LoadResult is the outcome of loading the basket for a run.
type LoadResult struct {
	Sources     []Source
	TotalTokens int

	// NoActiveCollection is set when nothing could be visible.
	NoActiveCollection bool
}

// SourceIDs returns the ids of the loaded sources in order.
func (r *LoadResult) SourceIDs() []int64 {
	ids := make([]int64, 0, len(r.Sources))
	for i := range r.Sources {
		ids = append(ids, r.Sources[i].ID)
	}
	return ids
}

// ContextChunk is one chunk selected to enter the prompt.
type ContextChunk struct {
	SourceID    int64
	SourceTitle string
	Index       int
	Text        string
	Tokens      int
}

// Prompt holds the three blocks sent to the model.
type Prompt struct {
	System  string
	Context string
	User    string
}
