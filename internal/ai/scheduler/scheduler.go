// Package scheduler serializes AI patch jobs per room. One worker drains each
// room's queue, so at most one model call runs for a board at a time, and
// burst ticks coalesce instead of piling up.
package scheduler

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/senseboard-backend/internal/ai"
	"github.com/yungbote/senseboard-backend/internal/board"
	"github.com/yungbote/senseboard-backend/internal/diagram"
	"github.com/yungbote/senseboard-backend/internal/observability"
	"github.com/yungbote/senseboard-backend/internal/pkg/logger"
	"github.com/yungbote/senseboard-backend/internal/room"
)

const (
	// DefaultQueueBound caps pending jobs per queue before overflow.
	DefaultQueueBound = 120
	// DefaultMinInterval paces consecutive applied patches on one board.
	DefaultMinInterval = 2 * time.Second
	// DefaultDebounce batches transcript-triggered ticks.
	DefaultDebounce = 500 * time.Millisecond

	// personalWait is how long a personal job waits for the shared queue to
	// drain before running against a possibly mid-update board.
	personalWait = 6 * time.Second
	personalPoll = 80 * time.Millisecond
)

// Suppression reasons surfaced in Result.Reason.
const (
	ReasonQueued        = "queued"
	ReasonQueueOverflow = "queue_overflow"
	ReasonFrozen        = "frozen"
	ReasonNoSignal      = "no_signal"
	ReasonNoChange      = "no_change"
	ReasonAIError       = "ai_error"
)

// Trigger reasons carried on Request.Reason. Only ticks coalesce and only
// ticks are subject to the signal gate; everything else reaches the engine.
const (
	TriggerTick   = "tick"
	TriggerManual = "manual"
)

// Result reports what a patch job did, in the wire shape the HTTP handler
// returns.
type Result struct {
	Applied    bool    `json:"applied"`
	Reason     string  `json:"reason,omitempty"`
	OpCount    int     `json:"opCount,omitempty"`
	Revision   int64   `json:"revision,omitempty"`
	Provider   string  `json:"provider,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Request describes one patch job.
type Request struct {
	RoomID   string
	Personal string // member name key; empty targets the shared board
	// Regenerate bypasses the frozen, signal, pacing and fingerprint gates.
	// Explicit API requests set it; transcript ticks do not.
	Regenerate bool
	// Reason labels what triggered the job. TriggerTick jobs collapse into
	// an already-pending tick and are dropped when the room has no fresh
	// signal; other reasons always run.
	Reason string
	// WindowSeconds overrides the configured transcript window for this job
	// when positive.
	WindowSeconds int
}

// ProfileSource supplies stored context lines for personalized boards.
type ProfileSource interface {
	ProfileLines(ctx context.Context, nameKey string) []string
}

type job struct {
	req  Request
	done chan Result
}

func (r Request) tick() bool { return r.Reason == TriggerTick }

type queue struct {
	pending []*job
	running bool
}

func (q *queue) idle() bool { return !q.running && len(q.pending) == 0 }

type Options struct {
	MinInterval   time.Duration
	QueueBound    int
	Debounce      time.Duration
	WindowSeconds int
}

type Scheduler struct {
	log      *logger.Logger
	store    *room.Store
	engine   *ai.Engine
	profiles ProfileSource
	metrics  *observability.Metrics

	minInterval time.Duration
	queueBound  int
	debounce    time.Duration
	window      int

	mu        sync.Mutex
	queues    map[string]*queue
	debouncer map[string]*time.Timer
}

func New(log *logger.Logger, store *room.Store, engine *ai.Engine, profiles ProfileSource, metrics *observability.Metrics, opts Options) *Scheduler {
	if opts.MinInterval <= 0 {
		opts.MinInterval = DefaultMinInterval
	}
	if opts.QueueBound <= 0 {
		opts.QueueBound = DefaultQueueBound
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.WindowSeconds <= 0 {
		opts.WindowSeconds = ai.DefaultWindowSeconds
	}
	s := &Scheduler{
		log:         log.With("service", "PatchScheduler"),
		store:       store,
		engine:      engine,
		profiles:    profiles,
		metrics:     metrics,
		minInterval: opts.MinInterval,
		queueBound:  opts.QueueBound,
		debounce:    opts.Debounce,
		window:      opts.WindowSeconds,
		queues:      make(map[string]*queue),
		debouncer:   make(map[string]*time.Timer),
	}
	store.SetTranscriptListener(s.onTranscript)
	return s
}

func queueKey(req Request) string {
	if req.Personal == "" {
		return req.RoomID
	}
	return req.RoomID + "\x00" + req.Personal
}

// Enqueue submits a job and blocks until it resolves or ctx expires.
// A tick collapses into a tick that is already pending; a full queue sheds
// its oldest pending job to admit the new one.
func (s *Scheduler) Enqueue(ctx context.Context, req Request) Result {
	req.RoomID = room.NormalizeRoomID(req.RoomID)
	req.Personal = strings.TrimSpace(req.Personal)
	key := queueKey(req)

	s.mu.Lock()
	q, ok := s.queues[key]
	if !ok {
		q = &queue{}
		s.queues[key] = q
	}
	if req.tick() {
		for _, p := range q.pending {
			if p.req.tick() {
				s.mu.Unlock()
				s.metrics.JobSuppressed(ctx, ReasonQueued)
				return Result{Applied: false, Reason: ReasonQueued}
			}
		}
	}
	if len(q.pending) >= s.queueBound {
		oldest := q.pending[0]
		q.pending = q.pending[1:]
		oldest.done <- Result{Applied: false, Reason: ReasonQueueOverflow}
		s.metrics.JobSuppressed(ctx, ReasonQueueOverflow)
	}
	j := &job{req: req, done: make(chan Result, 1)}
	q.pending = append(q.pending, j)
	if !q.running {
		q.running = true
		go s.drain(key, q)
	}
	s.mu.Unlock()

	select {
	case res := <-j.done:
		return res
	case <-ctx.Done():
		return Result{Applied: false, Reason: ReasonAIError}
	}
}

// TriggerTick submits a coalescing background tick and returns without
// waiting for the job to finish.
func (s *Scheduler) TriggerTick(roomID, personal string) {
	go s.Enqueue(context.Background(), Request{RoomID: roomID, Personal: personal, Reason: TriggerTick})
}

func (s *Scheduler) drain(key string, q *queue) {
	for {
		s.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			s.mu.Unlock()
			return
		}
		j := q.pending[0]
		q.pending = q.pending[1:]
		s.mu.Unlock()

		j.done <- s.run(j.req)
	}
}

func (s *Scheduler) run(req Request) Result {
	ctx := context.Background()
	r, ok := s.store.Get(req.RoomID)
	if !ok {
		return Result{Applied: false, Reason: ReasonNoSignal}
	}
	if req.Personal != "" {
		s.awaitMainIdle(req.RoomID)
	}

	var frozen bool
	var lastPatch time.Time
	var lastFingerprint uint64
	r.WithLock(func() {
		frozen = r.AIConfig.Frozen
		if req.Personal == "" {
			lastPatch = r.LastAiPatchAt
			lastFingerprint = r.LastAiFingerprint
		} else {
			pb := r.PersonalBoardFor(req.Personal)
			lastPatch = pb.LastPatchAt
			lastFingerprint = pb.Fingerprint
		}
	})

	if frozen && !req.Regenerate {
		s.metrics.JobSuppressed(ctx, ReasonFrozen)
		return Result{Applied: false, Reason: ReasonFrozen}
	}
	window := s.window
	if req.WindowSeconds > 0 {
		window = req.WindowSeconds
	}

	if !req.Regenerate {
		if wait := s.minInterval - time.Since(lastPatch); wait > 0 {
			time.Sleep(wait)
		}
		// Only background ticks get dropped on a quiet room; a member who
		// asked for a patch by hand still gets one.
		if req.tick() && !ai.HasSignal(r, window) {
			s.metrics.JobSuppressed(ctx, ReasonNoSignal)
			s.setStatus(r, room.AIStatusIdle)
			return Result{Applied: false, Reason: ReasonNoSignal}
		}
	}

	s.setStatus(r, room.AIStatusUpdating)

	var profileLines []string
	if req.Personal != "" && s.profiles != nil {
		profileLines = s.profiles.ProfileLines(ctx, req.Personal)
	}
	in := ai.CollectInput(r, window, req.Personal, profileLines)

	gen, err := s.engine.Generate(ctx, in)
	if err != nil {
		s.log.Warn("patch generation failed", "roomId", req.RoomID, "personal", req.Personal, "error", err)
		s.metrics.ProviderError(ctx, "engine")
		s.setStatus(r, room.AIStatusIdle)
		return Result{Applied: false, Reason: ReasonAIError}
	}
	if gen.Fallback {
		s.metrics.ProviderError(ctx, gen.Provider)
	}
	if !req.Regenerate && gen.Fingerprint == lastFingerprint && lastFingerprint != 0 {
		s.metrics.JobSuppressed(ctx, ReasonNoChange)
		s.setStatus(r, room.AIStatusIdle)
		return Result{Applied: false, Reason: ReasonNoChange}
	}

	res := s.apply(r, req, gen, in)
	s.store.Broadcast(req.RoomID)
	if res.Applied {
		s.metrics.PatchApplied(ctx, req.Personal != "")
		s.log.Info("patch applied",
			"roomId", req.RoomID,
			"personal", req.Personal,
			"provider", gen.Provider,
			"opCount", res.OpCount,
			"revision", res.Revision,
			"revisions", gen.Revisions,
		)
	}
	return res
}

// apply adapts and reduces the generation against the target board under the
// room lock. The shared board keeps an undo copy from just before the patch.
// An op reply that moves nothing gets one more chance through the diagram
// adapter before the job resolves no_change.
func (s *Scheduler) apply(r *room.Room, req Request, gen *ai.Generation, in *ai.Input) Result {
	out := Result{Provider: gen.Provider, Confidence: gen.Confidence}
	r.WithLock(func() {
		target := r.Board
		if req.Personal != "" {
			target = r.PersonalBoardFor(req.Personal).Board
		}

		ops := gen.Ops
		patch := gen.Patch
		if patch != nil {
			ops = diagram.ToOps(patch, target)
		}
		setStatusLocked := func(st room.AIStatus) {
			if !r.AIConfig.Frozen {
				r.AIConfig.Status = st
			}
		}

		changed := false
		if len(ops) > 0 {
			if req.Personal == "" {
				r.UndoBoard = r.Board.Clone()
			}
			result := board.ApplyAll(target, ops)
			board.ClampToCanvas(target)
			changed = result.Changed
		}
		if !changed && patch == nil {
			patch = ai.GenerateOffline(in)
			fallback := diagram.ToOps(patch, target)
			if len(fallback) > 0 {
				if req.Personal == "" && len(ops) == 0 {
					r.UndoBoard = r.Board.Clone()
				}
				result := board.ApplyAll(target, fallback)
				board.ClampToCanvas(target)
				changed = result.Changed
				ops = fallback
			}
		}
		if !changed {
			setStatusLocked(room.AIStatusIdle)
			out.Reason = ReasonNoChange
			return
		}

		if patch != nil && req.Personal == "" {
			s.recordGroupLocked(r, patch)
		}
		r.RecordAIPatch(gen.Fingerprint, len(ops), req.Personal)
		setStatusLocked(room.AIStatusIdle)

		out.Applied = true
		out.OpCount = len(ops)
		out.Revision = target.Revision
	})
	return out
}

// recordGroupLocked upserts the diagram group the patch belongs to and makes
// it active. Callers hold the room lock.
func (s *Scheduler) recordGroupLocked(r *room.Room, p *diagram.Patch) {
	id := p.TargetGroupID
	if id == "" {
		id = r.ActiveGroupID
	}
	g, ok := r.Groups[id]
	if !ok {
		id = "grp-" + uuid.NewString()[:8]
		g = &room.DiagramGroup{ID: id, CreatedAt: time.Now()}
		r.Groups[id] = g
	}
	g.Topic = p.Topic
	g.DiagramType = string(p.DiagramType)
	r.ActiveGroupID = id
}

func (s *Scheduler) setStatus(r *room.Room, status room.AIStatus) {
	changed := false
	r.WithLock(func() {
		if r.AIConfig.Frozen {
			return
		}
		if r.AIConfig.Status != status {
			r.AIConfig.Status = status
			changed = true
		}
	})
	if changed {
		s.store.Broadcast(r.ID)
	}
}

// awaitMainIdle polls until the room's shared queue has nothing running or
// pending, bounded by personalWait. Personal boards follow the shared board,
// never race it.
func (s *Scheduler) awaitMainIdle(roomID string) {
	deadline := time.Now().Add(personalWait)
	for {
		s.mu.Lock()
		q, ok := s.queues[roomID]
		idle := !ok || q.idle()
		s.mu.Unlock()
		if idle || time.Now().After(deadline) {
			return
		}
		time.Sleep(personalPoll)
	}
}
