package board

// OpType discriminates the Op union.
type OpType string

const (
	OpUpsertElement      OpType = "upsertElement"
	OpDeleteElement      OpType = "deleteElement"
	OpAppendStrokePoints OpType = "appendStrokePoints"
	OpOffsetElement      OpType = "offsetElement"
	OpSetElementGeometry OpType = "setElementGeometry"
	OpSetElementStyle    OpType = "setElementStyle"
	OpSetElementText     OpType = "setElementText"
	OpDuplicateElement   OpType = "duplicateElement"
	OpSetElementZIndex   OpType = "setElementZIndex"
	OpAlignElements      OpType = "alignElements"
	OpDistributeElements OpType = "distributeElements"
	OpClearBoard         OpType = "clearBoard"
	OpSetViewport        OpType = "setViewport"
	OpBatch              OpType = "batch"
)

// Axis selects the dimension for align and distribute operations.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
)

// Op is a reducer-level mutation. Only the fields relevant to Type are set;
// everything else is ignored by the reducer.
type Op struct {
	Type OpType `json:"type"`

	// upsertElement
	Element *Element `json:"element,omitempty"`

	// deleteElement, appendStrokePoints, offsetElement, setElementGeometry,
	// setElementStyle, setElementText, duplicateElement, setElementZIndex
	ID string `json:"id,omitempty"`

	// appendStrokePoints
	Points []Point `json:"points,omitempty"`

	// offsetElement, duplicateElement
	DX float64 `json:"dx,omitempty"`
	DY float64 `json:"dy,omitempty"`

	// setElementGeometry (nil fields leave the dimension untouched)
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`

	// setElementStyle
	Style *Style `json:"style,omitempty"`

	// setElementText
	Text *string `json:"text,omitempty"`

	// duplicateElement
	NewID string `json:"newId,omitempty"`

	// setElementZIndex
	ZIndex *int `json:"zIndex,omitempty"`

	// alignElements, distributeElements
	IDs  []string `json:"ids,omitempty"`
	Axis Axis     `json:"axis,omitempty"`

	// distributeElements
	Gap *float64 `json:"gap,omitempty"`

	// setViewport
	Viewport *Viewport `json:"viewport,omitempty"`

	// batch
	Ops []Op `json:"ops,omitempty"`
}
