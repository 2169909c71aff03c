package board

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Coordinate and size limits shared by the reducer and the canvas clamp.
const (
	MaxCoord        = 200000.0
	MaxElements     = 1200
	MaxTextLen      = 240
	MaxPoints       = 2400
	MaxAppendPoints = 600

	MinStrokeWidth = 0.5
	MaxStrokeWidth = 64.0
	MaxRoughness   = 12.0
	MinFontSize    = 8.0
	MaxFontSize    = 200.0
)

// Kind discriminates the Element union.
type Kind string

const (
	KindText     Kind = "text"
	KindRect     Kind = "rect"
	KindEllipse  Kind = "ellipse"
	KindDiamond  Kind = "diamond"
	KindTriangle Kind = "triangle"
	KindSticky   Kind = "sticky"
	KindFrame    Kind = "frame"
	KindStroke   Kind = "stroke"
	KindLine     Kind = "line"
	KindArrow    Kind = "arrow"
)

// KnownKind reports whether k is one of the closed set of element kinds.
func KnownKind(k Kind) bool {
	switch k {
	case KindText, KindRect, KindEllipse, KindDiamond, KindTriangle,
		KindSticky, KindFrame, KindStroke, KindLine, KindArrow:
		return true
	}
	return false
}

// IsPolyline reports whether k carries a points list instead of a box.
func IsPolyline(k Kind) bool {
	switch k {
	case KindStroke, KindLine, KindArrow:
		return true
	}
	return false
}

// Creator tags who produced an element.
type Creator string

const (
	CreatorAI     Creator = "ai"
	CreatorSystem Creator = "system"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Style struct {
	StrokeColor string  `json:"strokeColor,omitempty"`
	FillColor   string  `json:"fillColor,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	Roughness   float64 `json:"roughness,omitempty"`
	FontSize    float64 `json:"fontSize,omitempty"`
}

// Element is a drawable primitive. The Kind field discriminates the union:
// box kinds use X/Y/Width/Height, polyline kinds use Points, text-bearing
// kinds (text, sticky, frame title) use Text.
type Element struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	X         float64   `json:"x,omitempty"`
	Y         float64   `json:"y,omitempty"`
	Width     float64   `json:"width,omitempty"`
	Height    float64   `json:"height,omitempty"`
	Text      string    `json:"text,omitempty"`
	Points    []Point   `json:"points,omitempty"`
	Style     *Style    `json:"style,omitempty"`
	ZIndex    *int      `json:"zIndex,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy Creator   `json:"createdBy"`
}

// Clone deep-copies the element.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	cp := *e
	if e.Points != nil {
		cp.Points = make([]Point, len(e.Points))
		copy(cp.Points, e.Points)
	}
	if e.Style != nil {
		st := *e.Style
		cp.Style = &st
	}
	if e.ZIndex != nil {
		z := *e.ZIndex
		cp.ZIndex = &z
	}
	return &cp
}

// Bounds returns the axis-aligned bounding box of the element. For polyline
// kinds the box is derived from the points; ok is false when there is no
// renderable geometry.
func (e *Element) Bounds() (minX, minY, maxX, maxY float64, ok bool) {
	if e == nil {
		return 0, 0, 0, 0, false
	}
	if IsPolyline(e.Kind) {
		if len(e.Points) == 0 {
			return 0, 0, 0, 0, false
		}
		minX, minY = e.Points[0].X, e.Points[0].Y
		maxX, maxY = minX, minY
		for _, p := range e.Points[1:] {
			if p.X < minX {
				minX = p.X
			}
			if p.X > maxX {
				maxX = p.X
			}
			if p.Y < minY {
				minY = p.Y
			}
			if p.Y > maxY {
				maxY = p.Y
			}
		}
		return minX, minY, maxX, maxY, true
	}
	return e.X, e.Y, e.X + e.Width, e.Y + e.Height, true
}

// Translate moves the element by (dx, dy).
func (e *Element) Translate(dx, dy float64) {
	if e == nil {
		return
	}
	if IsPolyline(e.Kind) {
		for i := range e.Points {
			e.Points[i].X = clampCoord(e.Points[i].X + dx)
			e.Points[i].Y = clampCoord(e.Points[i].Y + dy)
		}
		return
	}
	e.X = clampCoord(e.X + dx)
	e.Y = clampCoord(e.Y + dy)
}

func clampCoord(v float64) float64 {
	if v < -MaxCoord {
		return -MaxCoord
	}
	if v > MaxCoord {
		return MaxCoord
	}
	return v
}

func clampSize(v float64) float64 {
	if v < 1 {
		return 1
	}
	if v > MaxCoord {
		return MaxCoord
	}
	return v
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CollapseText collapses runs of whitespace to single spaces and truncates
// the result to MaxTextLen characters, never splitting a rune.
func CollapseText(s string) string {
	collapsed := strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(collapsed) > MaxTextLen {
		runes := []rune(collapsed)
		collapsed = string(runes[:MaxTextLen])
	}
	return collapsed
}

func sanitizeStyle(st *Style) *Style {
	if st == nil {
		return nil
	}
	out := *st
	if out.StrokeWidth != 0 {
		out.StrokeWidth = clampRange(out.StrokeWidth, MinStrokeWidth, MaxStrokeWidth)
	}
	if out.Roughness != 0 {
		out.Roughness = clampRange(out.Roughness, 0, MaxRoughness)
	}
	if out.FontSize != 0 {
		out.FontSize = clampRange(out.FontSize, MinFontSize, MaxFontSize)
	}
	return &out
}

func sanitizePoints(pts []Point, max int) []Point {
	if len(pts) > max {
		pts = pts[:max]
	}
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = Point{X: clampCoord(p.X), Y: clampCoord(p.Y)}
	}
	return out
}

// sanitizeElement normalizes an incoming element in place of trusting the
// producer: coordinates and sizes clamped, text collapsed, points bounded.
func sanitizeElement(e *Element, now time.Time) *Element {
	cp := e.Clone()
	cp.ID = strings.TrimSpace(cp.ID)
	cp.X = clampCoord(cp.X)
	cp.Y = clampCoord(cp.Y)
	if !IsPolyline(cp.Kind) {
		cp.Width = clampSize(cp.Width)
		cp.Height = clampSize(cp.Height)
	}
	cp.Text = CollapseText(cp.Text)
	if IsPolyline(cp.Kind) {
		cp.Points = sanitizePoints(cp.Points, MaxPoints)
	} else {
		cp.Points = nil
	}
	cp.Style = sanitizeStyle(cp.Style)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	if cp.CreatedBy != CreatorAI && cp.CreatedBy != CreatorSystem {
		cp.CreatedBy = CreatorSystem
	}
	return cp
}
