// Package selection tracks which items a view has selected, independent of
// the page being rendered.
package selection

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Set is the selection of one view. Membership is the only state.
// It does not know about deletions; callers reconcile it with Remove.
type Set struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewSet creates an empty selection.
func NewSet() *Set {
	return &Set{ids: make(map[string]struct{})}
}

// Toggle flips membership of id and reports whether it is now selected.
func (s *Set) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// SelectAll adds every id to the selection.
func (s *Set) SelectAll(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

// Clear empties the selection.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.ids)
}

// Remove drops ids from the selection.
func (s *Set) Remove(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.ids, id)
	}
}

// IsSelected reports whether id is selected.
func (s *Set) IsSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// SelectedIDs returns a sorted copy of the selection.
func (s *Set) SelectedIDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// Len returns the number of selected ids.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// View is a mounted view: its selection plus the collection it addresses.
type View struct {
	ID         string
	Collection string
	Selection  *Set
}

// Registry owns the selections of mounted views. A Set lives from Mount to
// Unmount and is never shared between views.
type Registry struct {
	mu    sync.RWMutex
	views map[string]*View
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{views: make(map[string]*View)}
}

// Mount creates a view with a fresh, empty selection over collection.
func (r *Registry) Mount(collection string) *View {
	v := &View{
		ID:         uuid.NewString(),
		Collection: collection,
		Selection:  NewSet(),
	}

	r.mu.Lock()
	r.views[v.ID] = v
	r.mu.Unlock()
	return v
}

// Get returns the mounted view with id, or nil.
func (r *Registry) Get(id string) *View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.views[id]
}

// Unmount discards the view and its selection. It reports whether the view
// was mounted.
func (r *Registry) Unmount(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.views[id]; !ok {
		return false
	}
	delete(r.views, id)
	return true
}

// Len returns the number of mounted views.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.views)
}
