package vectorindex

import (
	"context"
	"sort"
	"sync"

	"github.com/codescope/codescope/internal/cserrors"
)

// Result is one nearest-neighbor hit, keyed by the document ID the ordinal
// maps to rather than the raw ordinal, so callers never see graph internals.
type Result struct {
	DocID    string
	Distance float32
	Score    float32
}

// Store is the vector index: an HNSW graph plus the append-only
// ordinal-to-doc_id mapping and a tombstone set for logically-deleted
// entries (the graph itself is never pruned on delete — see Delete).
type Store struct {
	mu          sync.RWMutex
	graph       *graph
	dimension   int
	docIDs      []string
	idToOrdinal map[string]uint32
	tombstoned  map[uint32]bool
	closed      bool
}

// New creates an empty Store fixed to the given embedding dimension; every
// inserted vector must share it.
func New(dimension int) *Store {
	return newStore(dimension)
}

func newStore(dimension int) *Store {
	return &Store{
		graph:       newGraph(),
		dimension:   dimension,
		idToOrdinal: make(map[string]uint32),
		tombstoned:  make(map[uint32]bool),
	}
}

// Load opens the vector index persisted under dir, preferring the fast-path
// graph+data files and falling back to the legacy inline format.
func Load(dir string) (*Store, error) {
	return load(dir)
}

// Add inserts or replaces vectors keyed by doc_id. All vectors must share
// the store's configured dimension.
func (s *Store) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return cserrors.New(cserrors.DimensionMismatch, "ids and vectors length mismatch", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return cserrors.New(cserrors.VectorLoad, "vector index is closed", nil)
	}

	for i, id := range ids {
		if err := s.addOneLocked(id, vectors[i]); err != nil {
			return err
		}
	}
	return nil
}

// addOne is Add for a single vector, taking the lock itself. Used by the
// legacy loader, which replays inserts outside of Add's public contract.
func (s *Store) addOne(id string, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addOneLocked(id, vector)
}

func (s *Store) addOneLocked(id string, vector []float32) error {
	if s.dimension != 0 && len(vector) != s.dimension {
		return cserrors.New(cserrors.DimensionMismatch, "vector dimension does not match index", nil).
			WithDetail("doc_id", id)
	}
	if s.dimension == 0 {
		s.dimension = len(vector)
	}

	if existing, ok := s.idToOrdinal[id]; ok {
		s.tombstoned[existing] = true
	}

	ordinal := s.graph.insert(normalize(vector))
	s.docIDs = append(s.docIDs, id)
	s.idToOrdinal[id] = ordinal
	return nil
}

// Search returns up to k nearest neighbors to query by cosine distance,
// excluding tombstoned (deleted or superseded) ordinals.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, cserrors.New(cserrors.VectorLoad, "vector index is closed", nil)
	}
	if s.dimension != 0 && len(query) != s.dimension {
		return nil, cserrors.New(cserrors.DimensionMismatch, "query vector dimension does not match index", nil)
	}

	raw := s.graph.search(normalize(query), k, s.tombstoned)
	out := make([]Result, 0, len(raw))
	for _, r := range raw {
		out = append(out, Result{
			DocID:    s.docIDs[r.ordinal],
			Distance: r.distance,
			Score:    1 - r.distance,
		})
	}
	return out, nil
}

// Delete tombstones the given doc_ids. The underlying graph nodes are kept
// (HNSW does not support cheap structural deletion); tombstoned ordinals
// are simply excluded from future Search results and AllIDs.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return cserrors.New(cserrors.VectorLoad, "vector index is closed", nil)
	}
	for _, id := range ids {
		if ordinal, ok := s.idToOrdinal[id]; ok {
			s.tombstoned[ordinal] = true
			delete(s.idToOrdinal, id)
		}
	}
	return nil
}

// Contains reports whether id has a live (non-tombstoned) vector.
func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.idToOrdinal[id]
	return ok
}

// Count returns the number of live vectors.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.idToOrdinal)
}

// AllIDs returns every live doc_id, sorted for stable output.
func (s *Store) AllIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.idToOrdinal))
	for id := range s.idToOrdinal {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clear replaces the graph with an empty one and truncates the mapping, as
// required before a full bulk re-index.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph = newGraph()
	s.docIDs = nil
	s.idToOrdinal = make(map[string]uint32)
	s.tombstoned = make(map[uint32]bool)
}

// Save persists the store to dir, writing doc_ids.json, the graph
// structure, and the raw vector data.
func (s *Store) Save(dir string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.save(dir)
}

// Close marks the store closed; further Add/Search calls fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Dimension reports the store's configured vector dimension (0 if not yet
// set by any insert).
func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}
