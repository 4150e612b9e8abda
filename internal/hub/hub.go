package hub

import (
	"fmt"
	"sort"
)

// Station is one fixed trading hub eligible for analysis.
type Station struct {
	ID   int64
	Name string
}

// DefaultStations is the classic five-hub set.
func DefaultStations() []Station {
	return []Station{
		{ID: 60003760, Name: "Jita IV - Moon 4 - Caldari Navy Assembly Plant"},
		{ID: 60008494, Name: "Amarr VIII (Oris) - Emperor Family Academy"},
		{ID: 60004588, Name: "Rens VI - Moon 8 - Brutor Tribe Treasury"},
		{ID: 60005686, Name: "Hek VIII - Moon 12 - Boundless Creation Factory"},
		{ID: 60011866, Name: "Dodixie IX - Moon 20 - Federation Navy Assembly Plant"},
	}
}

// Registry is an immutable set of hub stations. Every record that leaves the
// order loader or the history table references a station in this set.
type Registry struct {
	names map[int64]string
	ids   []int64
}

// NewRegistry builds a registry from the given stations.
// The set must be non-empty with unique, positive ids.
func NewRegistry(stations []Station) (*Registry, error) {
	if len(stations) == 0 {
		return nil, fmt.Errorf("hub registry needs at least one station")
	}
	names := make(map[int64]string, len(stations))
	ids := make([]int64, 0, len(stations))
	for _, s := range stations {
		if s.ID <= 0 {
			return nil, fmt.Errorf("invalid station id %d", s.ID)
		}
		if _, dup := names[s.ID]; dup {
			return nil, fmt.Errorf("duplicate station id %d", s.ID)
		}
		names[s.ID] = s.Name
		ids = append(ids, s.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return &Registry{names: names, ids: ids}, nil
}

// Default returns a registry over DefaultStations.
func Default() *Registry {
	r, _ := NewRegistry(DefaultStations())
	return r
}

// Contains reports whether id is one of the hubs.
func (r *Registry) Contains(id int64) bool {
	_, ok := r.names[id]
	return ok
}

// Name returns the display name for a hub, or "Station <id>" when unknown.
func (r *Registry) Name(id int64) string {
	if n, ok := r.names[id]; ok && n != "" {
		return n
	}
	return fmt.Sprintf("Station %d", id)
}

// IDs returns the hub ids in ascending order.
func (r *Registry) IDs() []int64 {
	out := make([]int64, len(r.ids))
	copy(out, r.ids)
	return out
}

// Len returns the number of hubs.
func (r *Registry) Len() int { return len(r.ids) }
