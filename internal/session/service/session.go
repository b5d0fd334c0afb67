package service

import (
	"context"
	"errors"
	"log"
	"strconv"
	"sync"
	"time"

	"mezzanine/internal/mezzanine/host"
	"mezzanine/internal/mezzanine/models"
	"mezzanine/internal/mezzanine/pipeline"
)

var (
	ErrNotAwaitingPoint  = errors.New("session is not waiting for a point")
	ErrNotAwaitingHeight = errors.New("session is not waiting for a height")
)

type State string

const (
	StateAwaitingPoint  State = "awaiting_point"
	StateAccumulating   State = "accumulating"
	StateAwaitingHeight State = "awaiting_height"
	StateGenerating     State = "generating"
	StateCompleted      State = "completed"
	StateAbandoned      State = "abandoned"
	StateFailed         State = "failed"
)

// Finished reports whether the pipeline has returned.
func (s State) Finished() bool {
	return s == StateCompleted || s == StateAbandoned || s == StateFailed
}

type Notice struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Snapshot is the externally visible state of a session.
type Snapshot struct {
	ID            string            `json:"id"`
	State         State             `json:"state"`
	ViewLevelID   string            `json:"view_level_id,omitempty"`
	Prompt        string            `json:"prompt,omitempty"`
	DefaultAnswer string            `json:"default_answer,omitempty"`
	Points        []models.Point    `json:"points"`
	Previews      int               `json:"previews"`
	Notices       []Notice          `json:"notices"`
	Outcome       *pipeline.Outcome `json:"outcome,omitempty"`
	Error         string            `json:"error,omitempty"`
}

type waitKind int

const (
	waitNone waitKind = iota
	waitPoint
	waitHeight
)

type pickReply struct {
	point models.Point
	ok    bool
}

type answerReply struct {
	text string
	ok   bool
}

// ============================================================
// Session
// ============================================================

// Session drives one mezzanine command. It is the host.UI of that command:
// every blocking call waits for the matching HTTP request.
type Session struct {
	ID          string
	viewLevelID string
	doc         host.Document

	mu            sync.Mutex
	state         State
	waiting       waitKind
	prompt        string
	defaultAnswer string
	points        []models.Point
	previews      int
	notices       []Notice
	outcome       *pipeline.Outcome
	errMsg        string
	lastActive    time.Time

	picks   chan pickReply
	answers chan answerReply
	cancel  context.CancelFunc
	done    chan struct{}
}

var (
	_ host.UI             = (*Session)(nil)
	_ host.SketchObserver = (*Session)(nil)
)

func newSession(id, viewLevelID string, doc host.Document) *Session {
	return &Session{
		ID:          id,
		viewLevelID: viewLevelID,
		doc:         doc,
		state:       StateAwaitingPoint,
		lastActive:  time.Now(),
		picks:       make(chan pickReply, 1),
		answers:     make(chan answerReply, 1),
		done:        make(chan struct{}),
	}
}

func (s *Session) run(ctx context.Context, cmd *pipeline.Command) {
	defer close(s.done)

	out, err := cmd.Run(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.waiting = waitNone
	s.prompt = ""
	s.lastActive = time.Now()
	switch {
	case err != nil:
		s.state = StateFailed
		s.errMsg = err.Error()
	case out.Status == pipeline.StatusCompleted:
		s.state = StateCompleted
	default:
		s.state = StateAbandoned
	}
	s.outcome = &out
	log.Printf("[SESSION] %s finished: %s", s.ID, s.state)
}

// Done is closed once the command has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		ID:            s.ID,
		State:         s.state,
		ViewLevelID:   s.viewLevelID,
		Prompt:        s.prompt,
		DefaultAnswer: s.defaultAnswer,
		Points:        append([]models.Point{}, s.points...),
		Previews:      s.previews,
		Notices:       append([]Notice{}, s.notices...),
		Outcome:       s.outcome,
		Error:         s.errMsg,
	}
}

// ============================================================
// Operator input
// ============================================================

// Deliver answers the pending point pick. The point shows up in the
// snapshot only once the sketch accepts it.
func (s *Session) Deliver(p models.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.waiting != waitPoint {
		return ErrNotAwaitingPoint
	}
	s.waiting = waitNone
	s.lastActive = time.Now()
	s.picks <- pickReply{point: p, ok: true}
	return nil
}

// Finish ends point capture, like pressing Esc.
func (s *Session) Finish() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.waiting != waitPoint {
		return ErrNotAwaitingPoint
	}
	s.waiting = waitNone
	s.lastActive = time.Now()
	s.picks <- pickReply{}
	return nil
}

// Answer replies to the height dialog. ok false cancels it.
func (s *Session) Answer(text string, ok bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.waiting != waitHeight {
		return ErrNotAwaitingHeight
	}
	s.waiting = waitNone
	s.lastActive = time.Now()
	s.answers <- answerReply{text: text, ok: ok}
	return nil
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActive)
}

func (s *Session) finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Finished()
}

// ============================================================
// host.UI
// ============================================================

func (s *Session) PickPoint(ctx context.Context, snaps host.SnapMode, prompt string) (models.Point, bool, error) {
	s.mu.Lock()
	s.waiting = waitPoint
	s.prompt = prompt
	if len(s.points) == 0 {
		s.state = StateAwaitingPoint
	} else {
		s.state = StateAccumulating
	}
	s.mu.Unlock()

	select {
	case r := <-s.picks:
		return r.point, r.ok, nil
	case <-ctx.Done():
		s.clearWait()
		return models.Point{}, false, ctx.Err()
	}
}

// PointAccepted records a point the sketch kept, with its locked elevation.
func (s *Session) PointAccepted(p models.Point) {
	s.mu.Lock()
	s.points = append(s.points, p)
	s.mu.Unlock()
}

func (s *Session) AskText(ctx context.Context, prompt, defaultValue string) (string, bool, error) {
	s.mu.Lock()
	s.waiting = waitHeight
	s.state = StateAwaitingHeight
	s.prompt = prompt
	s.defaultAnswer = defaultValue
	s.mu.Unlock()

	select {
	case r := <-s.answers:
		s.mu.Lock()
		s.state = StateGenerating
		s.prompt = ""
		s.mu.Unlock()
		return r.text, r.ok, nil
	case <-ctx.Done():
		s.clearWait()
		return "", false, ctx.Err()
	}
}

func (s *Session) clearWait() {
	s.mu.Lock()
	s.waiting = waitNone
	s.mu.Unlock()
}

// ViewLevel resolves the plan level the session was opened on.
func (s *Session) ViewLevel(ctx context.Context) (*models.Level, error) {
	if s.viewLevelID == "" {
		return nil, nil
	}
	l, err := findLevel(ctx, s.doc, s.viewLevelID)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.previews++
	s.mu.Unlock()
	return nil
}

func (s *Session) Notify(ctx context.Context, title, message string) {
	log.Printf("[SESSION] %s %s: %s", s.ID, title, message)

	s.mu.Lock()
	s.notices = append(s.notices, Notice{Title: title, Message: message})
	s.mu.Unlock()
}

func findLevel(ctx context.Context, doc host.Document, id string) (models.Level, error) {
	levels, err := doc.Levels(ctx)
	if err != nil {
		return models.Level{}, err
	}
	for _, l := range levels {
		if l.ID == id {
			return l, nil
		}
	}
	return models.Level{}, ErrUnknownLevel{ID: id}
}

// ErrUnknownLevel is returned for a view level that is not in the document.
type ErrUnknownLevel struct {
	ID string
}

func (e ErrUnknownLevel) Error() string {
	return "unknown level " + strconv.Quote(e.ID)
}
