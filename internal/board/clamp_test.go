package board

import "testing"

func TestClampToCanvasRelocatesAndClips(t *testing.T) {
	s := NewState()
	mustApply(t, s, Op{Type: OpUpsertElement, Element: rect("inside", 100, 100, 120, 60)})
	mustApply(t, s, Op{Type: OpUpsertElement, Element: rect("off", 5000, -300, 120, 60)})
	mustApply(t, s, Op{Type: OpUpsertElement, Element: &Element{
		ID: "wild", Kind: KindStroke,
		Points: []Point{{X: -100, Y: 40}, {X: 400, Y: 3000}},
	}})
	rev := s.Revision

	adjusted := ClampToCanvas(s)
	if adjusted != 2 {
		t.Fatalf("adjusted count: want=2 got=%d", adjusted)
	}
	if s.Revision != rev+1 {
		t.Fatalf("clamp must bump revision once: want=%d got=%d", rev+1, s.Revision)
	}

	off := s.Elements["off"]
	if off.X+off.Width > laneRight || off.Y < laneTop {
		t.Fatalf("element not relocated into lane: %+v", off)
	}
	for _, p := range s.Elements["wild"].Points {
		if p.X < laneLeft || p.X > laneRight || p.Y < laneTop || p.Y > laneBottom {
			t.Fatalf("point outside lane after clamp: %+v", p)
		}
	}
}

func TestClampToCanvasIdempotent(t *testing.T) {
	s := NewState()
	mustApply(t, s, Op{Type: OpUpsertElement, Element: rect("a", 9000, 9000, 1000, 900)})
	ClampToCanvas(s)
	rev := s.Revision
	count := len(s.Elements)

	if again := ClampToCanvas(s); again != 0 {
		t.Fatalf("second clamp adjusted %d elements", again)
	}
	if s.Revision != rev || len(s.Elements) != count {
		t.Fatalf("second clamp mutated state")
	}
}

func TestClampCapsOversizedElements(t *testing.T) {
	s := NewState()
	mustApply(t, s, Op{Type: OpUpsertElement, Element: rect("huge", 0, 0, 5000, 5000)})
	ClampToCanvas(s)
	el := s.Elements["huge"]
	if el.Width > MaxElementWidth || el.Height > MaxElementHeight {
		t.Fatalf("size ceiling not applied: %vx%v", el.Width, el.Height)
	}
}
