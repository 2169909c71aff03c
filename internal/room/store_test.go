package room

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/yungbote/senseboard-backend/internal/pkg/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development", "debug")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

type fakeSender struct {
	mu     sync.Mutex
	frames []ServerMessage
}

func (f *fakeSender) Send(msg ServerMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, msg)
	return nil
}

func (f *fakeSender) snapshots() []*Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Snapshot
	for _, fr := range f.frames {
		if fr.Type == MsgRoomSnapshot {
			out = append(out, fr.Payload.(*Snapshot))
		}
	}
	return out
}

func rawPayload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return b
}

func TestGetOrCreateNormalizesID(t *testing.T) {
	s := NewStore(mustTestLogger(t))
	a := s.GetOrCreate("  demo1  ")
	b := s.GetOrCreate("DEMO1")
	if a != b {
		t.Fatalf("normalized ids must resolve to the same room")
	}
	if a.ID != "DEMO1" {
		t.Fatalf("room id: want=DEMO1 got=%s", a.ID)
	}
}

func TestAttachDetachMembership(t *testing.T) {
	s := NewStore(mustTestLogger(t))
	s1 := &fakeSender{}
	s2 := &fakeSender{}

	r := s.Attach("R1", "m1", "Alex", s1)
	s.Attach("R1", "m1", "Alex", s2) // second session, same member

	if len(r.Members) != 1 {
		t.Fatalf("member count after two sessions: want=1 got=%d", len(r.Members))
	}

	s.Detach("R1", s1)
	if len(r.Members) != 1 {
		t.Fatalf("member must stay while a session remains")
	}
	s.Detach("R1", s2)
	if len(r.Members) != 0 {
		t.Fatalf("member must leave with its last session")
	}
}

func TestChatBlankDropped(t *testing.T) {
	s := NewStore(mustTestLogger(t))
	sender := &fakeSender{}
	r := s.Attach("R2", "m1", "Alex", sender)
	before := len(sender.snapshots())

	if err := s.Apply(r, "Alex", ClientMessage{
		Type:    MsgChatAdd,
		Payload: rawPayload(t, ChatAddPayload{Text: "   \n "}),
	}); err != nil {
		t.Fatalf("blank chat must not error: %v", err)
	}
	if len(r.Chat) != 0 {
		t.Fatalf("blank chat stored")
	}
	if got := len(sender.snapshots()); got != before {
		t.Fatalf("blank chat must not broadcast: before=%d after=%d", before, got)
	}

	if err := s.Apply(r, "Alex", ClientMessage{
		Type:    MsgChatAdd,
		Payload: rawPayload(t, ChatAddPayload{Text: "draw the login flow"}),
	}); err != nil {
		t.Fatalf("chat add: %v", err)
	}
	if len(r.Chat) != 1 || r.Chat[0].Author != "Alex" {
		t.Fatalf("chat not stored: %+v", r.Chat)
	}
}

func TestContextDefaultTitle(t *testing.T) {
	s := NewStore(mustTestLogger(t))
	r := s.GetOrCreate("R3")
	if err := s.Apply(r, "Alex", ClientMessage{
		Type:    MsgContextAdd,
		Payload: rawPayload(t, ContextAddPayload{Body: "the payments doc"}),
	}); err != nil {
		t.Fatalf("context add: %v", err)
	}
	if r.Context[0].Title != "Untitled context" {
		t.Fatalf("default title: %q", r.Context[0].Title)
	}
}

func TestTranscriptThreshold(t *testing.T) {
	s := NewStore(mustTestLogger(t))
	r := s.GetOrCreate("R4")

	if ok := s.AppendTranscript(r, "Alex", "uh"); ok {
		t.Fatalf("low-signal chunk accepted")
	}
	if ok := s.AppendTranscript(r, "Alex", "hello everyone how are you"); ok {
		t.Fatalf("keyword-free chunk accepted")
	}
	if ok := s.AppendTranscript(r, "Alex", "tree with root A"); !ok {
		t.Fatalf("meaningful chunk rejected")
	}
	if len(r.Transcript) != 1 {
		t.Fatalf("transcript length: want=1 got=%d", len(r.Transcript))
	}
}

func TestTranscriptFiresListener(t *testing.T) {
	s := NewStore(mustTestLogger(t))
	fired := 0
	s.SetTranscriptListener(func(r *Room) { fired++ })
	r := s.GetOrCreate("R5")

	s.AppendTranscript(r, "Alex", "tree with root A")
	s.AppendTranscript(r, "Alex", "uh")
	if fired != 1 {
		t.Fatalf("listener fired %d times, want 1", fired)
	}
}

func TestAIConfigFreezeCoupling(t *testing.T) {
	s := NewStore(mustTestLogger(t))
	r := s.GetOrCreate("R6")

	frozen := true
	if err := s.Apply(r, "Alex", ClientMessage{
		Type:    MsgAIConfigUpdate,
		Payload: rawPayload(t, AIConfigUpdatePayload{Frozen: &frozen}),
	}); err != nil {
		t.Fatalf("freeze: %v", err)
	}
	if r.AIConfig.Status != AIStatusFrozen || !r.AIConfig.Frozen {
		t.Fatalf("freeze coupling: %+v", r.AIConfig)
	}

	unfrozen := false
	_ = s.Apply(r, "Alex", ClientMessage{
		Type:    MsgAIConfigUpdate,
		Payload: rawPayload(t, AIConfigUpdatePayload{Frozen: &unfrozen}),
	})
	if r.AIConfig.Status != AIStatusIdle {
		t.Fatalf("unfreeze must return to idle: %+v", r.AIConfig)
	}
}

func TestFocusBoxClearedWhenFocusModeOff(t *testing.T) {
	s := NewStore(mustTestLogger(t))
	r := s.GetOrCreate("R7")

	on := true
	_ = s.Apply(r, "Alex", ClientMessage{
		Type: MsgAIConfigUpdate,
		Payload: rawPayload(t, AIConfigUpdatePayload{
			FocusMode: &on,
			FocusBox:  &FocusBox{X: 0, Y: 0, Width: 100, Height: 100},
		}),
	})
	if r.AIConfig.FocusBox == nil {
		t.Fatalf("focus box not stored")
	}

	off := false
	_ = s.Apply(r, "Alex", ClientMessage{
		Type:    MsgAIConfigUpdate,
		Payload: rawPayload(t, AIConfigUpdatePayload{FocusMode: &off}),
	})
	if r.AIConfig.FocusBox != nil {
		t.Fatalf("focus box must clear when focus mode turns off")
	}
}

func TestUnknownMessageTypeErrors(t *testing.T) {
	s := NewStore(mustTestLogger(t))
	r := s.GetOrCreate("R8")
	if err := s.Apply(r, "Alex", ClientMessage{Type: "bogus:msg"}); err == nil {
		t.Fatalf("unknown type must error")
	}
}

func TestSnapshotRevisionMonotonic(t *testing.T) {
	s := NewStore(mustTestLogger(t))
	sender := &fakeSender{}
	r := s.Attach("R9", "m1", "Alex", sender)

	for i := 0; i < 3; i++ {
		_ = s.Apply(r, "Alex", ClientMessage{
			Type:    MsgClearBoard,
			Payload: nil,
		})
		_ = s.Apply(r, "Alex", ClientMessage{
			Type:    MsgChatAdd,
			Payload: rawPayload(t, ChatAddPayload{Text: "draw a tree"}),
		})
	}

	snaps := sender.snapshots()
	for i := 1; i < len(snaps); i++ {
		if snaps[i].Board.Revision < snaps[i-1].Board.Revision {
			t.Fatalf("board revision went backwards: %d then %d",
				snaps[i-1].Board.Revision, snaps[i].Board.Revision)
		}
	}
}

func TestMeaningfulTranscriptCorrectionCues(t *testing.T) {
	if !MeaningfulTranscript("actually make C a child of B") {
		t.Fatalf("correction cue filtered out")
	}
	if !MeaningfulTranscript("use post-order traversal here") {
		t.Fatalf("traversal directive filtered out")
	}
	if MeaningfulTranscript("ok") {
		t.Fatalf("tiny chunk accepted")
	}
}
