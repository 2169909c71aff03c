package board

import (
	"sort"
	"time"
)

// Result reports what an apply did. Rejected ops leave the state untouched:
// no revision bump, no timestamp change.
type Result struct {
	Changed  bool
	Rejected []OpType
}

func (r *Result) merge(other Result) {
	r.Changed = r.Changed || other.Changed
	r.Rejected = append(r.Rejected, other.Rejected...)
}

// Apply mutates s according to op. It never fails: invalid ops are recorded
// as rejected no-ops. Revision increases exactly once per effective op.
func Apply(s *State, op Op) Result {
	return applyAt(s, op, time.Now())
}

// ApplyAll applies each op in sequence and returns the merged result.
func ApplyAll(s *State, ops []Op) Result {
	now := time.Now()
	var res Result
	for _, op := range ops {
		res.merge(applyAt(s, op, now))
	}
	return res
}

func applyAt(s *State, op Op, now time.Time) Result {
	if s == nil {
		return Result{Rejected: []OpType{op.Type}}
	}
	if s.Elements == nil {
		s.Elements = make(map[string]*Element)
	}

	switch op.Type {
	case OpUpsertElement:
		return applyUpsert(s, op, now)
	case OpDeleteElement:
		return applyDelete(s, op, now)
	case OpAppendStrokePoints:
		return applyAppendStroke(s, op, now)
	case OpOffsetElement:
		return applyOffset(s, op, now)
	case OpSetElementGeometry:
		return applyGeometry(s, op, now)
	case OpSetElementStyle:
		return applyStyle(s, op, now)
	case OpSetElementText:
		return applyText(s, op, now)
	case OpDuplicateElement:
		return applyDuplicate(s, op, now)
	case OpSetElementZIndex:
		return applyZIndex(s, op, now)
	case OpAlignElements:
		return applyAlign(s, op, now)
	case OpDistributeElements:
		return applyDistribute(s, op, now)
	case OpClearBoard:
		return applyClear(s, now)
	case OpSetViewport:
		return applyViewport(s, op, now)
	case OpBatch:
		var res Result
		for _, sub := range op.Ops {
			res.merge(applyAt(s, sub, now))
		}
		return res
	default:
		return Result{Rejected: []OpType{op.Type}}
	}
}

func reject(op OpType) Result {
	return Result{Rejected: []OpType{op}}
}

func applyUpsert(s *State, op Op, now time.Time) Result {
	if op.Element == nil || !KnownKind(op.Element.Kind) {
		return reject(op.Type)
	}
	el := sanitizeElement(op.Element, now)
	if el.ID == "" {
		return reject(op.Type)
	}
	existing, exists := s.Elements[el.ID]
	if !exists && len(s.Elements) >= MaxElements {
		return reject(op.Type)
	}
	if exists && op.Element.CreatedAt.IsZero() {
		el.CreatedAt = existing.CreatedAt
	}
	s.Elements[el.ID] = el
	if !exists {
		s.Order = append(s.Order, el.ID)
	}
	s.touch(now)
	return Result{Changed: true}
}

func applyDelete(s *State, op Op, now time.Time) Result {
	if _, ok := s.Elements[op.ID]; !ok {
		return reject(op.Type)
	}
	delete(s.Elements, op.ID)
	s.removeFromOrder(op.ID)
	s.touch(now)
	return Result{Changed: true}
}

func applyAppendStroke(s *State, op Op, now time.Time) Result {
	el, ok := s.Elements[op.ID]
	if !ok || el.Kind != KindStroke || len(op.Points) == 0 {
		return reject(op.Type)
	}
	added := sanitizePoints(op.Points, MaxAppendPoints)
	el.Points = append(el.Points, added...)
	if len(el.Points) > MaxPoints {
		el.Points = el.Points[:MaxPoints]
	}
	s.touch(now)
	return Result{Changed: true}
}

func applyOffset(s *State, op Op, now time.Time) Result {
	el, ok := s.Elements[op.ID]
	if !ok || (op.DX == 0 && op.DY == 0) {
		return reject(op.Type)
	}
	el.Translate(op.DX, op.DY)
	s.touch(now)
	return Result{Changed: true}
}

func applyGeometry(s *State, op Op, now time.Time) Result {
	el, ok := s.Elements[op.ID]
	if !ok || IsPolyline(el.Kind) {
		return reject(op.Type)
	}
	if op.X == nil && op.Y == nil && op.Width == nil && op.Height == nil {
		return reject(op.Type)
	}
	if op.X != nil {
		el.X = clampCoord(*op.X)
	}
	if op.Y != nil {
		el.Y = clampCoord(*op.Y)
	}
	if op.Width != nil {
		el.Width = clampSize(*op.Width)
	}
	if op.Height != nil {
		el.Height = clampSize(*op.Height)
	}
	s.touch(now)
	return Result{Changed: true}
}

func applyStyle(s *State, op Op, now time.Time) Result {
	el, ok := s.Elements[op.ID]
	if !ok || op.Style == nil {
		return reject(op.Type)
	}
	next := sanitizeStyle(op.Style)
	if el.Style != nil && *el.Style == *next {
		return reject(op.Type)
	}
	el.Style = next
	s.touch(now)
	return Result{Changed: true}
}

func applyText(s *State, op Op, now time.Time) Result {
	el, ok := s.Elements[op.ID]
	if !ok || op.Text == nil || IsPolyline(el.Kind) {
		return reject(op.Type)
	}
	next := CollapseText(*op.Text)
	if el.Text == next {
		return reject(op.Type)
	}
	el.Text = next
	s.touch(now)
	return Result{Changed: true}
}

func applyDuplicate(s *State, op Op, now time.Time) Result {
	src, ok := s.Elements[op.ID]
	if !ok || op.NewID == "" {
		return reject(op.Type)
	}
	if _, collides := s.Elements[op.NewID]; collides {
		return reject(op.Type)
	}
	if len(s.Elements) >= MaxElements {
		return reject(op.Type)
	}
	dup := src.Clone()
	dup.ID = op.NewID
	dup.Translate(op.DX, op.DY)
	dup.CreatedAt = now
	s.Elements[dup.ID] = dup
	s.Order = append(s.Order, dup.ID)
	s.touch(now)
	return Result{Changed: true}
}

func applyZIndex(s *State, op Op, now time.Time) Result {
	el, ok := s.Elements[op.ID]
	if !ok || op.ZIndex == nil {
		return reject(op.Type)
	}
	if el.ZIndex != nil && *el.ZIndex == *op.ZIndex {
		return reject(op.Type)
	}
	z := *op.ZIndex
	el.ZIndex = &z
	s.touch(now)
	return Result{Changed: true}
}

// renderable collects the elements among ids that have usable bounds,
// preserving the requested order and skipping duplicates.
func renderable(s *State, ids []string) []*Element {
	seen := make(map[string]bool, len(ids))
	out := make([]*Element, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		el, ok := s.Elements[id]
		if !ok {
			continue
		}
		if _, _, _, _, hasBounds := el.Bounds(); !hasBounds {
			continue
		}
		out = append(out, el)
	}
	return out
}

func center(el *Element, axis Axis) float64 {
	minX, minY, maxX, maxY, _ := el.Bounds()
	if axis == AxisX {
		return (minX + maxX) / 2
	}
	return (minY + maxY) / 2
}

func applyAlign(s *State, op Op, now time.Time) Result {
	if op.Axis != AxisX && op.Axis != AxisY {
		return reject(op.Type)
	}
	group := renderable(s, op.IDs)
	if len(group) < 2 {
		return reject(op.Type)
	}
	target := center(group[0], op.Axis)
	moved := false
	for _, el := range group[1:] {
		delta := target - center(el, op.Axis)
		if delta == 0 {
			continue
		}
		if op.Axis == AxisX {
			el.Translate(delta, 0)
		} else {
			el.Translate(0, delta)
		}
		moved = true
	}
	if !moved {
		return reject(op.Type)
	}
	s.touch(now)
	return Result{Changed: true}
}

func applyDistribute(s *State, op Op, now time.Time) Result {
	if op.Axis != AxisX && op.Axis != AxisY {
		return reject(op.Type)
	}
	group := renderable(s, op.IDs)
	if len(group) < 3 {
		return reject(op.Type)
	}
	sort.SliceStable(group, func(i, j int) bool {
		return center(group[i], op.Axis) < center(group[j], op.Axis)
	})
	first := center(group[0], op.Axis)
	last := center(group[len(group)-1], op.Axis)
	step := (last - first) / float64(len(group)-1)
	if op.Gap != nil {
		step = *op.Gap
	}
	moved := false
	for i, el := range group {
		// Endpoints are fixed; only interior elements move.
		if i == 0 || i == len(group)-1 {
			continue
		}
		want := first + step*float64(i)
		delta := want - center(el, op.Axis)
		if delta == 0 {
			continue
		}
		if op.Axis == AxisX {
			el.Translate(delta, 0)
		} else {
			el.Translate(0, delta)
		}
		moved = true
	}
	if !moved {
		return reject(op.Type)
	}
	s.touch(now)
	return Result{Changed: true}
}

func applyClear(s *State, now time.Time) Result {
	if len(s.Elements) == 0 {
		return reject(OpClearBoard)
	}
	s.Elements = make(map[string]*Element)
	s.Order = s.Order[:0]
	s.touch(now)
	return Result{Changed: true}
}

func applyViewport(s *State, op Op, now time.Time) Result {
	if op.Viewport == nil {
		return reject(op.Type)
	}
	vp := Viewport{
		X:    clampCoord(op.Viewport.X),
		Y:    clampCoord(op.Viewport.Y),
		Zoom: clampRange(op.Viewport.Zoom, 0.05, 32),
	}
	if s.Viewport != nil && *s.Viewport == vp {
		return reject(op.Type)
	}
	s.Viewport = &vp
	s.touch(now)
	return Result{Changed: true}
}
