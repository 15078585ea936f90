package vectorindex

import "context"

// Match is one search hit. Score is cosine similarity, higher is better.
type Match struct {
	ID    string
	Score float32
}

// Index stores embedding vectors keyed by content item ID and answers
// top-k nearest-neighbor queries. Implementations must be safe for
// concurrent use.
type Index interface {
	// Init prepares the backend: loads the snapshot for the flat index,
	// ensures the collection exists for qdrant.
	Init(ctx context.Context) error
	Add(ctx context.Context, id string, vector []float32) error
	Remove(ctx context.Context, id string) error
	// Search returns up to k matches ordered most similar first. An empty
	// index yields an empty slice, never an error.
	Search(ctx context.Context, vector []float32, k int) ([]Match, error)
	Count(ctx context.Context) (int, error)
	// Save persists current state where the backend is file-based.
	Save() error
	Close() error
}
