package explore

import (
	"sync"

	"github.com/samirrijal/placequest/internal/core/domain"
)

// Entry is a snapshot of one stored feature.
type Entry struct {
	Feature    domain.Feature
	Discovered bool
	Handle     domain.VisualHandle
}

type entry struct {
	feature    domain.Feature
	discovered bool
	handle     domain.VisualHandle
}

// FeatureStore maps feature ids to features, their discovery flag and the
// renderer handle. It also records which tiles were requested in the current
// generation, so that Clear resets both under one lock.
type FeatureStore struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	order      []string
	tiles      map[domain.TileKey]struct{}
	generation uint64
}

// NewFeatureStore creates an empty store at generation 0.
func NewFeatureStore() *FeatureStore {
	return &FeatureStore{
		entries: make(map[string]*entry),
		tiles:   make(map[domain.TileKey]struct{}),
	}
}

// Upsert inserts f if its id is new. It returns whether an entry was created;
// an existing id is left untouched.
func (s *FeatureStore) Upsert(f domain.Feature) bool {
	return s.UpsertWith(f, nil)
}

// UpsertWith is Upsert with an init hook run on the feature only when it is
// inserted.
func (s *FeatureStore) UpsertWith(f domain.Feature, init func(*domain.Feature)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, created := s.insertLocked(f, init)
	return created
}

// Merge upserts a batch fetched under generation gen. When the store has been
// cleared since, nothing is merged and ok is false. created lists the features
// inserted by this call, after init ran.
func (s *FeatureStore) Merge(gen uint64, features []domain.Feature, init func(*domain.Feature)) (created []domain.Feature, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return nil, false
	}
	for _, f := range features {
		if stored, isNew := s.insertLocked(f, init); isNew {
			created = append(created, stored)
		}
	}
	return created, true
}

func (s *FeatureStore) insertLocked(f domain.Feature, init func(*domain.Feature)) (domain.Feature, bool) {
	if f.ID == "" {
		return f, false
	}
	if _, exists := s.entries[f.ID]; exists {
		return f, false
	}
	if init != nil {
		init(&f)
	}
	s.entries[f.ID] = &entry{feature: f}
	s.order = append(s.order, f.ID)
	return f, true
}

// Get returns the entry for id.
func (s *FeatureStore) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, false
	}
	return Entry{Feature: e.feature, Discovered: e.discovered, Handle: e.handle}, true
}

// All returns every entry in insertion order.
func (s *FeatureStore) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.order))
	for _, id := range s.order {
		e := s.entries[id]
		out = append(out, Entry{Feature: e.feature, Discovered: e.discovered, Handle: e.handle})
	}
	return out
}

// Undiscovered returns the features not yet discovered, in insertion order.
func (s *FeatureStore) Undiscovered() []domain.Feature {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Feature
	for _, id := range s.order {
		if e := s.entries[id]; !e.discovered {
			out = append(out, e.feature)
		}
	}
	return out
}

// MarkDiscovered flips the discovered flag. It returns true only on the
// false→true transition.
func (s *FeatureStore) MarkDiscovered(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || e.discovered {
		return false
	}
	e.discovered = true
	return true
}

// SetHandle attaches a renderer handle to id. It fails if id is gone.
func (s *FeatureStore) SetHandle(id string, h domain.VisualHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return false
	}
	e.handle = h
	return true
}

// Handle returns the renderer handle of id, if any.
func (s *FeatureStore) Handle(id string) domain.VisualHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[id]; ok {
		return e.handle
	}
	return nil
}

// Len returns the number of stored features.
func (s *FeatureStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// MarkTile records k as loaded. It returns the current generation and false
// when k was already recorded.
func (s *FeatureStore) MarkTile(k domain.TileKey) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tiles[k]; ok {
		return s.generation, false
	}
	s.tiles[k] = struct{}{}
	return s.generation, true
}

// TileLoaded reports whether k was requested in the current generation.
func (s *FeatureStore) TileLoaded(k domain.TileKey) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tiles[k]
	return ok
}

// LoadedTiles returns the number of tiles requested in this generation.
func (s *FeatureStore) LoadedTiles() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tiles)
}

// Generation returns the current reset counter.
func (s *FeatureStore) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Clear drops all features and loaded tiles and starts a new generation. The
// handles of dropped features are returned so their markers can be removed.
func (s *FeatureStore) Clear() []domain.VisualHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	var handles []domain.VisualHandle
	for _, id := range s.order {
		if h := s.entries[id].handle; h != nil {
			handles = append(handles, h)
		}
	}
	s.entries = make(map[string]*entry)
	s.order = nil
	s.tiles = make(map[domain.TileKey]struct{})
	s.generation++
	return handles
}
