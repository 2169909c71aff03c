package ai

import (
	"regexp"
	"strings"

	"github.com/yungbote/senseboard-backend/internal/diagram"
)

// The offline generator turns a transcript window into a diagram patch with
// no model call. It backs the deterministic provider, serves as the fallback
// when a model provider errors out, and produces the reference sketch shown
// to providers during revision passes. Same input, same patch.

var (
	identRe     = `[A-Za-z_][A-Za-z0-9_]*`
	namedTreeRe = regexp.MustCompile(`(?i)\b(` + identRe + `)[\s_]+tree\b`)
	treeNamedRe = regexp.MustCompile(`(?i)\btree\s+(` + identRe + `)\b`)
	rootRe      = regexp.MustCompile(`(?i)\broot(?:\s+(?:is|node))?\s+(` + identRe + `)\b`)
	childrenRe  = regexp.MustCompile(`(?i)\bchild(?:ren)?\s+(?:are\s+|is\s+)?((?:` + identRe + `)(?:\s*(?:,|and)\s*` + identRe + `)*)`)
	childOfRe   = regexp.MustCompile(`(?i)\bmake\s+(` + identRe + `)\s+a\s+child\s+of\s+(` + identRe + `)\b`)
	sharedRe    = regexp.MustCompile(`(?i)\bshar(?:e|ing|ed)\s+(?:node\s+|a\s+)?(` + identRe + `)\b`)
	listSplitRe = regexp.MustCompile(`(?i)\s*(?:,|\band\b)\s*`)
	orderRe     = regexp.MustCompile(`(?i)\b(pre|post|in)[\s-]?order\b`)
	stepRe      = regexp.MustCompile(`(?i)\bstep\s+\d+\s*[:,]?\s*([^.;\n]+)`)
)

// treeNameStop keeps articles from becoming tree names when only one match
// exists. With two or more distinct names ("a tree and b tree") every match
// counts, since short names are then deliberate.
var treeNameStop = map[string]bool{"the": true, "this": true, "that": true, "each": true, "every": true, "binary": true, "search": true}

// treeNameConnectives filters the "tree X" capture form, where X is usually a
// connective rather than a name.
var treeNameConnectives = map[string]bool{
	"with": true, "has": true, "have": true, "and": true, "or": true,
	"share": true, "shares": true, "sharing": true, "shared": true,
	"that": true, "which": true, "where": true, "is": true, "a": true,
	"an": true, "the": true, "of": true, "for": true, "in": true, "on": true,
	"here": true, "there": true, "it": true, "so": true,
}

var blockKeywords = []string{"client", "gateway", "api", "server", "service", "cache", "queue", "database", "storage"}

type offlineNode struct {
	id    string
	label string
	shape string
}

// GenerateOffline classifies the transcript and builds a deterministic
// diagram patch from it.
func GenerateOffline(in *Input) *diagram.Patch {
	text := in.TranscriptText()
	if in.VisualHint != "" {
		text = in.VisualHint + "\n" + text
	}
	lower := strings.ToLower(text)

	p := &diagram.Patch{
		Topic:      offlineTopic(in, text),
		Confidence: 1,
	}

	switch {
	case strings.Contains(lower, "tree") || strings.Contains(lower, "root") || strings.Contains(lower, "child"):
		p.DiagramType = diagram.TypeTree
		buildTree(p, text)
	case strings.Contains(text, "->") || containsAny(lower, "architecture", "service", "cache", "gateway", "database"):
		p.DiagramType = diagram.TypeSystemBlocks
		buildSystemBlocks(p, text, lower)
	default:
		p.DiagramType = diagram.TypeFlowchart
		buildFlowchart(p, text, lower)
	}
	return p
}

func offlineTopic(in *Input, text string) string {
	if in.VisualHint != "" {
		return in.VisualHint
	}
	for _, c := range in.ContextItems {
		if c.Pinned && c.Title != "" {
			return c.Title
		}
	}
	for _, c := range in.ContextItems {
		if c.Title != "" {
			return c.Title
		}
	}
	words := strings.Fields(text)
	if len(words) > 6 {
		words = words[:6]
	}
	if len(words) == 0 {
		return "Discussion"
	}
	return strings.Join(words, " ")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func slug(label string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteByte('-')
		}
	}
	return strings.Trim(sb.String(), "-")
}

// buildTree extracts named trees, roots, child lists, child-of directives and
// shared nodes, then emits nodes and edges. Later directives win over earlier
// ones so spoken corrections take effect.
func buildTree(p *diagram.Patch, text string) {
	names := treeNames(text)

	nodes := make([]offlineNode, 0, 8)
	nodeIdx := make(map[string]int)
	addNode := func(id, label, shape string) {
		if _, ok := nodeIdx[id]; ok {
			return
		}
		nodeIdx[id] = len(nodes)
		nodes = append(nodes, offlineNode{id: id, label: label, shape: shape})
	}

	type edge struct{ from, to string }
	var edges []edge
	addEdge := func(from, to string) {
		for _, e := range edges {
			if e.from == from && e.to == to {
				return
			}
		}
		edges = append(edges, edge{from, to})
	}
	reparent := func(child, parent string) {
		kept := edges[:0]
		for _, e := range edges {
			if e.to != child {
				kept = append(kept, e)
			}
		}
		edges = kept
		addEdge(parent, child)
	}

	if len(names) >= 2 {
		// Multiple named trees. Each becomes a root node; shared nodes hang
		// off every root.
		for _, n := range names {
			label := strings.ToUpper(n[:1]) + n[1:] + " tree"
			addNode(slug(n)+"-tree", label, "rect")
		}
		for _, m := range sharedRe.FindAllStringSubmatch(text, -1) {
			shared := m[1]
			addNode(slug(shared), shared, "ellipse")
			for _, n := range names {
				addEdge(slug(n)+"-tree", slug(shared))
			}
		}
	} else {
		rootID := ""
		if m := rootRe.FindStringSubmatch(text); m != nil {
			rootID = slug(m[1])
			addNode(rootID, m[1], "rect")
		}
		// "child of" phrases are reparent directives, handled below; strip
		// them so the children-list scan does not misread them.
		listText := childOfRe.ReplaceAllString(text, " ")
		for _, m := range childrenRe.FindAllStringSubmatch(listText, -1) {
			for _, tok := range listSplitRe.Split(m[1], -1) {
				tok = strings.TrimSpace(tok)
				if tok == "" || treeNameConnectives[strings.ToLower(tok)] {
					continue
				}
				if rootID == "" {
					rootID = "root"
					addNode(rootID, "Root", "rect")
				}
				addNode(slug(tok), tok, "rect")
				addEdge(rootID, slug(tok))
			}
		}
		for _, m := range childOfRe.FindAllStringSubmatch(text, -1) {
			child, parent := m[1], m[2]
			addNode(slug(parent), parent, "rect")
			addNode(slug(child), child, "rect")
			reparent(slug(child), slug(parent))
		}
		if len(nodes) == 0 {
			addNode("root", "Root", "rect")
		}
	}

	p.Actions = append(p.Actions, diagram.Action{Type: diagram.ActionLayoutHint, Hint: "tree"})
	p.Actions = append(p.Actions, diagram.Action{Type: diagram.ActionSetTitle, Title: p.Topic})
	for _, n := range nodes {
		p.Actions = append(p.Actions, diagram.Action{
			Type: diagram.ActionUpsertNode, ID: n.id, Label: n.label, Shape: n.shape,
		})
	}
	for _, e := range edges {
		p.Actions = append(p.Actions, diagram.Action{Type: diagram.ActionUpsertEdge, From: e.from, To: e.to})
	}

	if m := orderRe.FindStringSubmatch(text); m != nil && len(nodes) > 0 {
		children := make(map[string][]string)
		indeg := make(map[string]int)
		for _, e := range edges {
			children[e.from] = append(children[e.from], e.to)
			indeg[e.to]++
		}
		root := nodes[0].id
		for _, n := range nodes {
			if indeg[n.id] == 0 {
				root = n.id
				break
			}
		}
		order := traversalOrder(strings.ToLower(m[1]), root, children)
		p.Actions = append(p.Actions, diagram.Action{Type: diagram.ActionHighlightOrder, Order: order})
	}
}

func treeNames(text string) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(raw string) {
		key := strings.ToLower(raw)
		if seen[key] || treeNameStop[key] {
			return
		}
		seen[key] = true
		names = append(names, key)
	}
	for _, m := range namedTreeRe.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, m := range treeNamedRe.FindAllStringSubmatch(text, -1) {
		if treeNameConnectives[strings.ToLower(m[1])] {
			continue
		}
		add(m[1])
	}
	// A single match is more likely an article than a name ("draw a tree").
	if len(names) < 2 {
		return nil
	}
	return names
}

func traversalOrder(kind, root string, children map[string][]string) []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(id string)
	walk = func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		kids := children[id]
		switch kind {
		case "post":
			for _, k := range kids {
				walk(k)
			}
			out = append(out, id)
		case "in":
			if len(kids) > 0 {
				walk(kids[0])
			}
			out = append(out, id)
			for _, k := range kids[1:] {
				walk(k)
			}
		default: // pre
			out = append(out, id)
			for _, k := range kids {
				walk(k)
			}
		}
	}
	walk(root)
	return out
}

// buildSystemBlocks reads "A -> B -> C" chains line by line. When no chain
// appears it falls back to the architecture vocabulary present in the text.
func buildSystemBlocks(p *diagram.Patch, text, lower string) {
	p.Actions = append(p.Actions, diagram.Action{Type: diagram.ActionLayoutHint, Hint: "left-to-right"})
	p.Actions = append(p.Actions, diagram.Action{Type: diagram.ActionSetTitle, Title: p.Topic})

	seen := make(map[string]bool)
	emitNode := func(label string) string {
		id := slug(label)
		if id == "" {
			return ""
		}
		if !seen[id] {
			seen[id] = true
			p.Actions = append(p.Actions, diagram.Action{
				Type: diagram.ActionUpsertNode, ID: id, Label: label, Shape: "rect",
			})
		}
		return id
	}

	chained := false
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, "->") {
			continue
		}
		parts := strings.Split(line, "->")
		prev := ""
		for _, part := range parts {
			label := cleanBlockLabel(part)
			if label == "" {
				continue
			}
			id := emitNode(label)
			if prev != "" && id != "" {
				chained = true
				p.Actions = append(p.Actions, diagram.Action{Type: diagram.ActionUpsertEdge, From: prev, To: id})
			}
			if id != "" {
				prev = id
			}
		}
	}
	if chained {
		return
	}

	prev := ""
	for _, kw := range blockKeywords {
		if !strings.Contains(lower, kw) {
			continue
		}
		id := emitNode(strings.ToUpper(kw[:1]) + kw[1:])
		if prev != "" {
			p.Actions = append(p.Actions, diagram.Action{Type: diagram.ActionUpsertEdge, From: prev, To: id})
		}
		prev = id
	}
	if prev == "" {
		emitNode(p.Topic)
	}
}

// cleanBlockLabel trims a "->" segment down to its trailing word group.
func cleanBlockLabel(part string) string {
	part = strings.TrimSpace(part)
	part = strings.Trim(part, ".,;:!?")
	words := strings.Fields(part)
	if len(words) > 3 {
		words = words[len(words)-3:]
	}
	return strings.Join(words, " ")
}

// buildFlowchart chains explicit "step N" clauses, falling back to clause
// splitting on sequence markers.
func buildFlowchart(p *diagram.Patch, text, lower string) {
	p.Actions = append(p.Actions, diagram.Action{Type: diagram.ActionLayoutHint, Hint: "top-down"})
	p.Actions = append(p.Actions, diagram.Action{Type: diagram.ActionSetTitle, Title: p.Topic})

	var labels []string
	for _, m := range stepRe.FindAllStringSubmatch(text, -1) {
		labels = append(labels, strings.TrimSpace(m[1]))
	}
	if len(labels) == 0 {
		for _, clause := range regexp.MustCompile(`(?i)\bthen\b|\bnext\b|[.;\n]`).Split(text, -1) {
			clause = strings.TrimSpace(clause)
			if clause == "" || len(clause) > 80 {
				continue
			}
			labels = append(labels, clause)
		}
	}
	if len(labels) > 6 {
		labels = labels[:6]
	}
	if len(labels) == 0 {
		labels = []string{p.Topic}
	}

	prev := ""
	for _, label := range labels {
		id := slug(label)
		if id == "" {
			continue
		}
		p.Actions = append(p.Actions, diagram.Action{
			Type: diagram.ActionUpsertNode, ID: id, Label: label, Shape: "rect",
		})
		if prev != "" {
			p.Actions = append(p.Actions, diagram.Action{Type: diagram.ActionUpsertEdge, From: prev, To: id})
		}
		prev = id
	}
}
