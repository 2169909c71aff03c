package diagram

// Type classifies the overall shape of a generated diagram.
type Type string

const (
	TypeFlowchart    Type = "flowchart"
	TypeSystemBlocks Type = "system_blocks"
	TypeTree         Type = "tree"
)

// ActionType discriminates the Action union.
type ActionType string

const (
	ActionUpsertNode     ActionType = "upsertNode"
	ActionUpsertEdge     ActionType = "upsertEdge"
	ActionDeleteShape    ActionType = "deleteShape"
	ActionSetTitle       ActionType = "setTitle"
	ActionSetNotes       ActionType = "setNotes"
	ActionHighlightOrder ActionType = "highlightOrder"
	ActionLayoutHint     ActionType = "layoutHint"
)

// Action is a single higher-level diagram mutation. Only the fields relevant
// to Type are set.
type Action struct {
	Type ActionType `json:"type"`

	// upsertNode, deleteShape
	ID    string   `json:"id,omitempty"`
	Label string   `json:"label,omitempty"`
	Shape string   `json:"shape,omitempty"` // "rect" | "ellipse" | "diamond"
	X     *float64 `json:"x,omitempty"`
	Y     *float64 `json:"y,omitempty"`

	// upsertEdge
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	// setTitle
	Title string `json:"title,omitempty"`

	// setNotes
	Notes []string `json:"notes,omitempty"`

	// highlightOrder
	Order []string `json:"order,omitempty"`

	// layoutHint: "tree" | "top-down" | "left-to-right"
	Hint string `json:"hint,omitempty"`
}

// Patch is the legacy higher-level action stream produced by providers that
// cannot emit board ops directly. It flows through the adapter so the board
// reducer stays the single mutation path.
type Patch struct {
	Topic         string   `json:"topic"`
	DiagramType   Type     `json:"diagramType"`
	Confidence    float64  `json:"confidence"`
	Actions       []Action `json:"actions"`
	OpenQuestions []string `json:"openQuestions,omitempty"`
	Conflicts     []string `json:"conflicts,omitempty"`
	TargetGroupID string   `json:"targetGroupId,omitempty"`
}

// NodeCount returns the number of upsertNode actions in the patch.
func (p *Patch) NodeCount() int {
	n := 0
	for _, a := range p.Actions {
		if a.Type == ActionUpsertNode {
			n++
		}
	}
	return n
}
