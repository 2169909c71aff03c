package diagram

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/yungbote/senseboard-backend/internal/board"
)

// Default node geometry used when a patch does not carry explicit coordinates.
const (
	NodeWidth  = 160.0
	NodeHeight = 72.0

	colGap = 40.0
	rowGap = 48.0

	originX = 80.0
	originY = 80.0
)

const accentColor = "#f59e0b"

// SenseID translates a patch-level shape key into a board element id that
// cannot collide with client-created ids.
func SenseID(kind, key string) string {
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(key))))
	return fmt.Sprintf("sense-%s-%08x", kind, h.Sum32())
}

// annotationID builds the prefixed ids used for AI annotations so clients can
// show or hide them as a group.
func annotationID(prefix, key string) string {
	return prefix + ":" + SenseID("note", key)
}

// ToOps converts a Patch into reducer ops against the given active board.
// The conversion also emits deleteElement for every AI-created element whose
// id is not present in the new patch, so stale generations never linger.
func ToOps(p *Patch, active *board.State) []board.Op {
	if p == nil {
		return nil
	}
	scopeKey := p.TargetGroupID
	if scopeKey == "" {
		scopeKey = p.Topic
	}

	nodes, edges := collectShapes(p)
	positions := layout(p, nodes, edges, active)

	keep := make(map[string]bool)
	ops := make([]board.Op, 0, len(p.Actions)+4)

	for _, n := range nodes {
		id := nodeElementID(n.ID)
		keep[id] = true
		pos := positions[n.ID]
		ops = append(ops, board.Op{Type: board.OpUpsertElement, Element: &board.Element{
			ID:        id,
			Kind:      nodeKind(p.DiagramType, n.Shape),
			X:         pos.X,
			Y:         pos.Y,
			Width:     NodeWidth,
			Height:    NodeHeight,
			Text:      n.Label,
			CreatedBy: board.CreatorAI,
		}})
	}

	for _, e := range edges {
		from, okFrom := endpointCenter(e.From, positions, active)
		to, okTo := endpointCenter(e.To, positions, active)
		if !okFrom || !okTo {
			continue
		}
		id := SenseID("edge", e.From+"->"+e.To)
		keep[id] = true
		ops = append(ops, board.Op{Type: board.OpUpsertElement, Element: &board.Element{
			ID:        id,
			Kind:      board.KindArrow,
			Points:    []board.Point{from, to},
			CreatedBy: board.CreatorAI,
		}})
	}

	for _, a := range p.Actions {
		switch a.Type {
		case ActionDeleteShape:
			id := resolveShapeID(a.ID, active)
			if id != "" {
				keep[id] = false
				ops = append(ops, board.Op{Type: board.OpDeleteElement, ID: id})
			}
		case ActionSetTitle:
			if strings.TrimSpace(a.Title) == "" {
				continue
			}
			id := SenseID("title", scopeKey)
			keep[id] = true
			ops = append(ops, board.Op{Type: board.OpUpsertElement, Element: &board.Element{
				ID:        id,
				Kind:      board.KindSticky,
				X:         originX,
				Y:         originY - NodeHeight + 8,
				Width:     NodeWidth * 2,
				Height:    40,
				Text:      a.Title,
				CreatedBy: board.CreatorAI,
			}})
		case ActionSetNotes:
			if len(a.Notes) == 0 {
				continue
			}
			id := annotationID("notes", scopeKey)
			keep[id] = true
			ops = append(ops, board.Op{Type: board.OpUpsertElement, Element: &board.Element{
				ID:        id,
				Kind:      board.KindText,
				X:         originX,
				Y:         bottomOf(positions) + rowGap,
				Width:     NodeWidth * 2.5,
				Height:    float64(20 * len(a.Notes)),
				Text:      strings.Join(a.Notes, " · "),
				CreatedBy: board.CreatorAI,
			}})
		case ActionHighlightOrder:
			if len(a.Order) == 0 {
				continue
			}
			labels := make([]string, 0, len(a.Order))
			for _, ref := range a.Order {
				id := nodeElementID(ref)
				if keep[id] {
					ops = append(ops, board.Op{Type: board.OpSetElementStyle, ID: id, Style: &board.Style{
						StrokeColor: accentColor,
						StrokeWidth: 3,
					}})
				}
				labels = append(labels, ref)
			}
			id := annotationID("order", scopeKey)
			keep[id] = true
			ops = append(ops, board.Op{Type: board.OpUpsertElement, Element: &board.Element{
				ID:        id,
				Kind:      board.KindText,
				X:         originX,
				Y:         bottomOf(positions) + rowGap*2,
				Width:     NodeWidth * 3,
				Height:    24,
				Text:      "Order: " + strings.Join(labels, " → "),
				CreatedBy: board.CreatorAI,
			}})
		}
	}

	// Sweep AI leftovers the new patch no longer mentions.
	if active != nil {
		for _, id := range active.Order {
			el := active.Elements[id]
			if el == nil || el.CreatedBy != board.CreatorAI {
				continue
			}
			if !keep[id] {
				ops = append(ops, board.Op{Type: board.OpDeleteElement, ID: id})
			}
		}
	}
	return ops
}

type nodeShape struct {
	ID    string
	Label string
	Shape string
	X, Y  *float64
}

type edgeShape struct {
	From string
	To   string
}

func collectShapes(p *Patch) ([]nodeShape, []edgeShape) {
	var nodes []nodeShape
	seen := make(map[string]int)
	var edges []edgeShape
	for _, a := range p.Actions {
		switch a.Type {
		case ActionUpsertNode:
			if strings.TrimSpace(a.ID) == "" {
				continue
			}
			n := nodeShape{ID: a.ID, Label: a.Label, Shape: a.Shape, X: a.X, Y: a.Y}
			if n.Label == "" {
				n.Label = a.ID
			}
			if idx, dup := seen[a.ID]; dup {
				nodes[idx] = n
				continue
			}
			seen[a.ID] = len(nodes)
			nodes = append(nodes, n)
		case ActionUpsertEdge:
			if a.From == "" || a.To == "" || a.From == a.To {
				continue
			}
			edges = append(edges, edgeShape{From: a.From, To: a.To})
		}
	}
	return nodes, edges
}

func nodeElementID(ref string) string {
	return SenseID("node", ref)
}

func nodeKind(dt Type, shape string) board.Kind {
	switch strings.ToLower(shape) {
	case "ellipse":
		return board.KindEllipse
	case "diamond":
		if dt == TypeTree {
			return board.KindEllipse
		}
		return board.KindDiamond
	}
	return board.KindRect
}

// resolveShapeID maps a patch shape reference onto a board element id,
// preferring a literal match before the translated sense id.
func resolveShapeID(ref string, active *board.State) string {
	if strings.TrimSpace(ref) == "" {
		return ""
	}
	if active != nil {
		if _, ok := active.Elements[ref]; ok {
			return ref
		}
	}
	id := nodeElementID(ref)
	if active != nil {
		if _, ok := active.Elements[id]; ok {
			return id
		}
	}
	return id
}

func endpointCenter(ref string, positions map[string]board.Point, active *board.State) (board.Point, bool) {
	if pos, ok := positions[ref]; ok {
		return board.Point{X: pos.X + NodeWidth/2, Y: pos.Y + NodeHeight/2}, true
	}
	if active != nil {
		if el, ok := active.Elements[nodeElementID(ref)]; ok {
			return board.Point{X: el.X + el.Width/2, Y: el.Y + el.Height/2}, true
		}
		if el, ok := active.Elements[ref]; ok {
			return board.Point{X: el.X + el.Width/2, Y: el.Y + el.Height/2}, true
		}
	}
	return board.Point{}, false
}

func bottomOf(positions map[string]board.Point) float64 {
	max := originY
	for _, p := range positions {
		if p.Y+NodeHeight > max {
			max = p.Y + NodeHeight
		}
	}
	return max
}

// layout assigns coordinates to nodes that do not carry explicit ones. The
// layoutHint action selects the flow direction; trees layer by BFS depth from
// the roots, everything else chains in reading order.
func layout(p *Patch, nodes []nodeShape, edges []edgeShape, active *board.State) map[string]board.Point {
	hint := ""
	for _, a := range p.Actions {
		if a.Type == ActionLayoutHint {
			hint = strings.ToLower(strings.TrimSpace(a.Hint))
		}
	}
	if hint == "" {
		switch p.DiagramType {
		case TypeTree:
			hint = "tree"
		case TypeSystemBlocks:
			hint = "left-to-right"
		default:
			hint = "top-down"
		}
	}

	positions := make(map[string]board.Point, len(nodes))
	depths := nodeDepths(nodes, edges)

	perDepth := make(map[int]int)
	order := make([]string, 0, len(nodes))
	for _, n := range nodes {
		order = append(order, n.ID)
	}
	sort.SliceStable(order, func(i, j int) bool {
		if depths[order[i]] != depths[order[j]] {
			return depths[order[i]] < depths[order[j]]
		}
		return i < j
	})

	for _, id := range order {
		depth := depths[id]
		idx := perDepth[depth]
		perDepth[depth]++
		var pt board.Point
		if hint == "left-to-right" {
			pt = board.Point{
				X: originX + float64(depth)*(NodeWidth+colGap),
				Y: originY + float64(idx)*(NodeHeight+rowGap),
			}
		} else { // tree and top-down flow downward
			pt = board.Point{
				X: originX + float64(idx)*(NodeWidth+colGap),
				Y: originY + float64(depth)*(NodeHeight+rowGap),
			}
		}
		positions[id] = pt
	}

	// Explicit coordinates win; keep an existing element where it is so
	// identity-stable updates do not shuffle the board.
	for _, n := range nodes {
		if n.X != nil && n.Y != nil {
			positions[n.ID] = board.Point{X: *n.X, Y: *n.Y}
			continue
		}
		if active != nil {
			if el, ok := active.Elements[nodeElementID(n.ID)]; ok {
				positions[n.ID] = board.Point{X: el.X, Y: el.Y}
			}
		}
	}
	return positions
}

// nodeDepths runs a BFS from the in-degree-zero roots. Nodes in cycles or
// unreachable from any root stay at depth 0.
func nodeDepths(nodes []nodeShape, edges []edgeShape) map[string]int {
	known := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		known[n.ID] = true
	}
	indeg := make(map[string]int)
	children := make(map[string][]string)
	for _, e := range edges {
		if !known[e.From] || !known[e.To] {
			continue
		}
		indeg[e.To]++
		children[e.From] = append(children[e.From], e.To)
	}

	depths := make(map[string]int, len(nodes))
	queue := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if indeg[n.ID] == 0 {
			queue = append(queue, n.ID)
		}
	}
	visited := make(map[string]bool)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		for _, child := range children[id] {
			if depths[child] < depths[id]+1 {
				depths[child] = depths[id] + 1
			}
			queue = append(queue, child)
		}
	}
	return depths
}
