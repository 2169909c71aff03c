package board

import "time"

// Logical canvas for AI-generated content. Elements are kept inside a lane
// narrower than the full canvas so client-side chrome on the right edge
// never overlaps generated content.
const (
	CanvasWidth   = 1920.0
	CanvasHeight  = 1080.0
	CanvasPadding = 24.0

	laneLeft   = CanvasPadding
	laneRight  = CanvasWidth - 360.0
	laneTop    = CanvasPadding
	laneBottom = CanvasHeight - CanvasPadding

	MaxElementWidth  = 640.0
	MaxElementHeight = 480.0
)

// ClampToCanvas relocates out-of-lane elements back into the AI content lane
// and clips polyline points into it. Sizes are preserved up to the element
// ceilings. The state revision is bumped only when at least one element
// actually moved; the return value is the number of adjusted elements.
// Applying the clamp twice is a no-op the second time.
func ClampToCanvas(s *State) int {
	if s == nil {
		return 0
	}
	adjusted := 0
	for _, id := range s.Order {
		el, ok := s.Elements[id]
		if !ok {
			continue
		}
		if clampElement(el) {
			adjusted++
		}
	}
	if adjusted > 0 {
		s.touch(time.Now())
	}
	return adjusted
}

func clampElement(el *Element) bool {
	if IsPolyline(el.Kind) {
		changed := false
		for i := range el.Points {
			x := clampRange(el.Points[i].X, laneLeft, laneRight)
			y := clampRange(el.Points[i].Y, laneTop, laneBottom)
			if x != el.Points[i].X || y != el.Points[i].Y {
				el.Points[i].X = x
				el.Points[i].Y = y
				changed = true
			}
		}
		return changed
	}

	changed := false
	if el.Width > MaxElementWidth {
		el.Width = MaxElementWidth
		changed = true
	}
	if el.Height > MaxElementHeight {
		el.Height = MaxElementHeight
		changed = true
	}
	laneW := laneRight - laneLeft
	laneH := laneBottom - laneTop
	if el.Width > laneW {
		el.Width = laneW
		changed = true
	}
	if el.Height > laneH {
		el.Height = laneH
		changed = true
	}
	x := clampRange(el.X, laneLeft, laneRight-el.Width)
	y := clampRange(el.Y, laneTop, laneBottom-el.Height)
	if x != el.X || y != el.Y {
		el.X = x
		el.Y = y
		changed = true
	}
	return changed
}
