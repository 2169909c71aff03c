package board

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func rect(id string, x, y, w, h float64) *Element {
	return &Element{ID: id, Kind: KindRect, X: x, Y: y, Width: w, Height: h, CreatedBy: CreatorSystem}
}

func mustApply(t *testing.T, s *State, op Op) {
	t.Helper()
	res := Apply(s, op)
	if !res.Changed || len(res.Rejected) != 0 {
		t.Fatalf("apply %s: changed=%v rejected=%v", op.Type, res.Changed, res.Rejected)
	}
}

func TestUpsertAndDelete(t *testing.T) {
	s := NewState()
	mustApply(t, s, Op{Type: OpUpsertElement, Element: rect("a", 10, 10, 100, 50)})
	if s.Revision != 1 {
		t.Fatalf("revision after upsert: want=1 got=%d", s.Revision)
	}
	if len(s.Order) != 1 || s.Order[0] != "a" {
		t.Fatalf("order after upsert: %v", s.Order)
	}

	mustApply(t, s, Op{Type: OpDeleteElement, ID: "a"})
	if len(s.Elements) != 0 || len(s.Order) != 0 {
		t.Fatalf("delete left residue: elements=%d order=%v", len(s.Elements), s.Order)
	}

	res := Apply(s, Op{Type: OpDeleteElement, ID: "a"})
	if res.Changed || s.Revision != 2 {
		t.Fatalf("deleting a missing element must be a rejected no-op, revision=%d", s.Revision)
	}
}

func TestRejectedOpsDoNotTouchRevision(t *testing.T) {
	s := NewState()
	mustApply(t, s, Op{Type: OpUpsertElement, Element: rect("a", 0, 0, 10, 10)})
	before := s.Revision
	stamp := s.LastUpdatedAt

	cases := []Op{
		{Type: OpUpsertElement},
		{Type: OpUpsertElement, Element: &Element{ID: "x", Kind: Kind("hexagon")}},
		{Type: OpOffsetElement, ID: "a"},
		{Type: OpOffsetElement, ID: "missing", DX: 5},
		{Type: OpAppendStrokePoints, ID: "a", Points: []Point{{X: 1, Y: 1}}},
		{Type: OpAlignElements, IDs: []string{"a"}, Axis: AxisX},
		{Type: OpSetElementText, ID: "missing", Text: strPtr("hi")},
		{Type: OpType("bogus")},
	}
	for _, op := range cases {
		res := Apply(s, op)
		if res.Changed {
			t.Fatalf("op %s should be rejected", op.Type)
		}
		if s.Revision != before || s.LastUpdatedAt != stamp {
			t.Fatalf("rejected op %s touched state: revision=%d", op.Type, s.Revision)
		}
	}
}

func strPtr(s string) *string { return &s }
func f64(v float64) *float64  { return &v }

func TestSanitizationClampsInput(t *testing.T) {
	s := NewState()
	long := strings.Repeat("word ", 200)
	mustApply(t, s, Op{Type: OpUpsertElement, Element: &Element{
		ID:     "big",
		Kind:   KindSticky,
		X:      -999999,
		Y:      999999,
		Width:  -5,
		Height: 4e6,
		Text:   "  hello \n\t world  " + long,
	}})
	el := s.Elements["big"]
	if el.X != -MaxCoord || el.Y != MaxCoord {
		t.Fatalf("coords not clamped: (%v, %v)", el.X, el.Y)
	}
	if el.Width != 1 || el.Height != MaxCoord {
		t.Fatalf("sizes not clamped: (%v, %v)", el.Width, el.Height)
	}
	if len(el.Text) > MaxTextLen {
		t.Fatalf("text not truncated: len=%d", len(el.Text))
	}
	if !strings.HasPrefix(el.Text, "hello world") {
		t.Fatalf("whitespace not collapsed: %q", el.Text)
	}
}

func TestCollapseTextKeepsRuneBoundary(t *testing.T) {
	long := strings.Repeat("a", MaxTextLen-1) + "héllo"
	got := CollapseText(long)
	if !utf8.ValidString(got) {
		t.Fatalf("truncated text is not valid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != MaxTextLen {
		t.Fatalf("rune count: want=%d got=%d", MaxTextLen, n)
	}
	if !strings.HasSuffix(got, "é") {
		t.Fatalf("boundary rune lost: %q", got[len(got)-4:])
	}
}

func TestElementCapRefusesNewButAllowsUpdate(t *testing.T) {
	s := NewState()
	for i := 0; i < MaxElements; i++ {
		mustApply(t, s, Op{Type: OpUpsertElement, Element: rect(fmt.Sprintf("e%d", i), 0, 0, 10, 10)})
	}
	res := Apply(s, Op{Type: OpUpsertElement, Element: rect("overflow", 0, 0, 10, 10)})
	if res.Changed {
		t.Fatalf("upsert beyond cap must be rejected")
	}
	mustApply(t, s, Op{Type: OpUpsertElement, Element: rect("e0", 5, 5, 10, 10)})
	if s.Elements["e0"].X != 5 {
		t.Fatalf("update of existing id at cap must succeed")
	}
}

func TestAppendStrokePoints(t *testing.T) {
	s := NewState()
	mustApply(t, s, Op{Type: OpUpsertElement, Element: &Element{
		ID: "st", Kind: KindStroke, Points: []Point{{X: 0, Y: 0}},
	}})

	pts := make([]Point, MaxAppendPoints+50)
	for i := range pts {
		pts[i] = Point{X: float64(i), Y: float64(i)}
	}
	mustApply(t, s, Op{Type: OpAppendStrokePoints, ID: "st", Points: pts})
	if got := len(s.Elements["st"].Points); got != 1+MaxAppendPoints {
		t.Fatalf("per-append truncation: want=%d got=%d", 1+MaxAppendPoints, got)
	}

	res := Apply(s, Op{Type: OpAppendStrokePoints, ID: "st"})
	if res.Changed {
		t.Fatalf("empty append must be rejected")
	}
}

func TestDuplicateElement(t *testing.T) {
	s := NewState()
	mustApply(t, s, Op{Type: OpUpsertElement, Element: rect("src", 10, 10, 40, 40)})
	mustApply(t, s, Op{Type: OpDuplicateElement, ID: "src", NewID: "copy", DX: 20, DY: 0})

	cp := s.Elements["copy"]
	if cp == nil || cp.X != 30 || cp.Y != 10 {
		t.Fatalf("duplicate geometry: %+v", cp)
	}
	if res := Apply(s, Op{Type: OpDuplicateElement, ID: "src", NewID: "copy"}); res.Changed {
		t.Fatalf("duplicate onto an existing id must be rejected")
	}
}

func TestAlignElements(t *testing.T) {
	s := NewState()
	mustApply(t, s, Op{Type: OpUpsertElement, Element: rect("a", 0, 0, 100, 20)})
	mustApply(t, s, Op{Type: OpUpsertElement, Element: rect("b", 300, 200, 100, 20)})
	mustApply(t, s, Op{Type: OpAlignElements, IDs: []string{"a", "b"}, Axis: AxisX})

	a, b := s.Elements["a"], s.Elements["b"]
	if (a.X + a.Width/2) != (b.X + b.Width/2) {
		t.Fatalf("centers differ after align: a=%v b=%v", a.X, b.X)
	}
	if b.Y != 200 {
		t.Fatalf("align on x must not move y: %v", b.Y)
	}
}

func TestDistributeElements(t *testing.T) {
	s := NewState()
	mustApply(t, s, Op{Type: OpUpsertElement, Element: rect("a", 0, 0, 10, 10)})
	mustApply(t, s, Op{Type: OpUpsertElement, Element: rect("b", 15, 0, 10, 10)})
	mustApply(t, s, Op{Type: OpUpsertElement, Element: rect("c", 100, 0, 10, 10)})
	mustApply(t, s, Op{Type: OpDistributeElements, IDs: []string{"a", "b", "c"}, Axis: AxisX})

	a, b, c := s.Elements["a"], s.Elements["b"], s.Elements["c"]
	if a.X != 0 || c.X != 100 {
		t.Fatalf("endpoints must stay fixed: a=%v c=%v", a.X, c.X)
	}
	wantCenter := (a.X + a.Width/2 + c.X + c.Width/2) / 2
	if got := b.X + b.Width/2; got != wantCenter {
		t.Fatalf("interior centroid: want=%v got=%v", wantCenter, got)
	}
}

func TestBatchBumpsRevisionPerEffectiveOp(t *testing.T) {
	s := NewState()
	res := Apply(s, Op{Type: OpBatch, Ops: []Op{
		{Type: OpUpsertElement, Element: rect("a", 0, 0, 10, 10)},
		{Type: OpDeleteElement, ID: "missing"},
		{Type: OpUpsertElement, Element: rect("b", 0, 0, 10, 10)},
	}})
	if !res.Changed || len(res.Rejected) != 1 {
		t.Fatalf("batch result: %+v", res)
	}
	if s.Revision != 2 {
		t.Fatalf("revision after batch: want=2 got=%d", s.Revision)
	}
}

func TestOrderInvariantHolds(t *testing.T) {
	s := NewState()
	for i := 0; i < 50; i++ {
		mustApply(t, s, Op{Type: OpUpsertElement, Element: rect(fmt.Sprintf("e%d", i), float64(i), 0, 10, 10)})
	}
	for i := 0; i < 50; i += 2 {
		mustApply(t, s, Op{Type: OpDeleteElement, ID: fmt.Sprintf("e%d", i)})
	}
	seen := make(map[string]bool)
	for _, id := range s.Order {
		if seen[id] {
			t.Fatalf("duplicate id in order: %s", id)
		}
		seen[id] = true
		if _, ok := s.Elements[id]; !ok {
			t.Fatalf("order references missing element: %s", id)
		}
	}
	if len(s.Order) != len(s.Elements) {
		t.Fatalf("order/elements size mismatch: %d vs %d", len(s.Order), len(s.Elements))
	}
}
