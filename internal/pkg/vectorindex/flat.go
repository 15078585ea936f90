package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Flat is a brute-force in-memory index persisted as a JSON snapshot.
// Vectors are L2-normalized on insert so the dot product is cosine
// similarity. At personal-archive scale a linear scan beats maintaining
// an ANN structure.
type Flat struct {
	mu      sync.RWMutex
	path    string
	dim     int
	ids     []string
	vectors [][]float32
	byID    map[string]int
}

type flatSnapshot struct {
	Dim     int         `json:"dim"`
	IDs     []string    `json:"ids"`
	Vectors [][]float32 `json:"vectors"`
}

func NewFlat(path string, dim int) *Flat {
	return &Flat{
		path: path,
		dim:  dim,
		byID: make(map[string]int),
	}
}

// Init loads the snapshot file when one exists.
func (f *Flat) Init(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read index snapshot: %w", err)
	}

	var snap flatSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("parse index snapshot %q: %w", f.path, err)
	}
	if snap.Dim != 0 && snap.Dim != f.dim {
		return fmt.Errorf("index snapshot dimension %d does not match configured %d", snap.Dim, f.dim)
	}
	if len(snap.IDs) != len(snap.Vectors) {
		return fmt.Errorf("corrupt index snapshot %q: %d ids, %d vectors", f.path, len(snap.IDs), len(snap.Vectors))
	}

	f.ids = snap.IDs
	f.vectors = snap.Vectors
	f.byID = make(map[string]int, len(snap.IDs))
	for i, id := range snap.IDs {
		f.byID[id] = i
	}
	return nil
}

// Add inserts or replaces the vector for id and persists the snapshot,
// so a crash never loses more than the in-flight write.
func (f *Flat) Add(ctx context.Context, id string, vector []float32) error {
	if id == "" {
		return fmt.Errorf("empty vector id")
	}
	if len(vector) != f.dim {
		return fmt.Errorf("vector dimension %d does not match index dimension %d", len(vector), f.dim)
	}

	normalized := normalize(vector)

	f.mu.Lock()
	if i, ok := f.byID[id]; ok {
		f.vectors[i] = normalized
	} else {
		f.byID[id] = len(f.ids)
		f.ids = append(f.ids, id)
		f.vectors = append(f.vectors, normalized)
	}
	err := f.saveLocked()
	f.mu.Unlock()
	return err
}

// Remove drops the vector for id. Missing ids are not an error.
func (f *Flat) Remove(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	i, ok := f.byID[id]
	if !ok {
		return nil
	}

	last := len(f.ids) - 1
	if i != last {
		f.ids[i] = f.ids[last]
		f.vectors[i] = f.vectors[last]
		f.byID[f.ids[i]] = i
	}
	f.ids = f.ids[:last]
	f.vectors = f.vectors[:last]
	delete(f.byID, id)

	return f.saveLocked()
}

func (f *Flat) Search(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if len(vector) != f.dim {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(vector), f.dim)
	}
	if k < 1 {
		return []Match{}, nil
	}

	query := normalize(vector)

	f.mu.RLock()
	defer f.mu.RUnlock()

	matches := make([]Match, 0, len(f.ids))
	for i, stored := range f.vectors {
		matches = append(matches, Match{ID: f.ids[i], Score: dot(query, stored)})
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (f *Flat) Count(ctx context.Context) (int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids), nil
}

// Save writes the snapshot. Mutations already persist themselves; this is
// the periodic and shutdown safety net.
func (f *Flat) Save() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveLocked()
}

func (f *Flat) Close() error {
	return f.Save()
}

// saveLocked writes atomically via a temp file rename. Callers hold the
// write lock.
func (f *Flat) saveLocked() error {
	if f.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	snap := flatSnapshot{Dim: f.dim, IDs: f.ids, Vectors: f.vectors}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode index snapshot: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write index snapshot: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace index snapshot: %w", err)
	}
	return nil
}

func normalize(vector []float32) []float32 {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(vector))
	if norm == 0 {
		copy(out, vector)
		return out
	}
	for i, v := range vector {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
