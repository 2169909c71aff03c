package board

import "time"

type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// State is the authoritative board content for a room. The invariants:
// every id in Order appears exactly once with a matching entry in Elements,
// Revision strictly increases on any mutation, and LastUpdatedAt never moves
// backwards.
type State struct {
	Elements      map[string]*Element `json:"elements"`
	Order         []string            `json:"order"`
	Revision      int64               `json:"revision"`
	LastUpdatedAt time.Time           `json:"lastUpdatedAt"`
	Viewport      *Viewport           `json:"viewport,omitempty"`
}

func NewState() *State {
	return &State{
		Elements: make(map[string]*Element),
		Order:    make([]string, 0),
	}
}

// Clone deep-copies the state so snapshots can be serialized concurrently
// with mutation.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	cp := &State{
		Elements:      make(map[string]*Element, len(s.Elements)),
		Order:         make([]string, len(s.Order)),
		Revision:      s.Revision,
		LastUpdatedAt: s.LastUpdatedAt,
	}
	for id, el := range s.Elements {
		cp.Elements[id] = el.Clone()
	}
	copy(cp.Order, s.Order)
	if s.Viewport != nil {
		vp := *s.Viewport
		cp.Viewport = &vp
	}
	return cp
}

func (s *State) touch(now time.Time) {
	s.Revision++
	if now.After(s.LastUpdatedAt) {
		s.LastUpdatedAt = now
	}
}

func (s *State) removeFromOrder(id string) {
	for i, oid := range s.Order {
		if oid == id {
			s.Order = append(s.Order[:i], s.Order[i+1:]...)
			return
		}
	}
}

// ElementIDs returns the ids in draw order.
func (s *State) ElementIDs() []string {
	out := make([]string, len(s.Order))
	copy(out, s.Order)
	return out
}
