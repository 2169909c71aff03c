package scheduler

import (
	"time"

	"github.com/yungbote/senseboard-backend/internal/room"
)

// onTranscript is the store's transcript listener. Rapid chunks within the
// debounce window collapse into one tick; when the timer fires, the shared
// board and every connected member's personal board get a coalescing tick.
func (s *Scheduler) onTranscript(r *room.Room) {
	roomID := r.ID

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.debouncer[roomID]; ok {
		t.Reset(s.debounce)
		return
	}
	s.debouncer[roomID] = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		delete(s.debouncer, roomID)
		s.mu.Unlock()

		s.TriggerTick(roomID, "")
		for _, key := range r.MemberNameKeys() {
			s.TriggerTick(roomID, key)
		}
	})
}
