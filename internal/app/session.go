package app

import (
	"math/rand"
	"sync"
	"time"

	"exam-simulator/internal/domain"
)

// EventType discriminates session events pushed to subscribers.
type EventType string

const (
	EventState     EventType = "state"
	EventTime      EventType = "time"
	EventCompleted EventType = "completed"
)

// Event is a session update fanned out to transport subscribers.
type Event struct {
	Type             EventType          `json:"type"`
	View             *View              `json:"view,omitempty"`
	RemainingSeconds int                `json:"remainingSeconds,omitempty"`
	Result           *domain.ExamResult `json:"result,omitempty"`
}

// View is the render-ready slice of session state. The current question is
// redacted: correct answer and explanation never leave the session through a
// view, regardless of mode (study-mode reveals travel via AnswerFeedback).
type View struct {
	SessionID            string            `json:"sessionId"`
	Mode                 domain.Mode       `json:"mode"`
	TotalQuestions       int               `json:"totalQuestions"`
	CurrentIndex         int               `json:"currentIndex"`
	Question             domain.Question   `json:"question"`
	Answers              map[string]string `json:"answers"`
	Marked               []string          `json:"marked"`
	Timed                bool              `json:"timed"`
	TimeRemainingSeconds int               `json:"timeRemainingSeconds"`
	Completed            bool              `json:"completed"`
}

// Session is the in-memory exam session state machine. All mutation goes
// through the mutex; the countdown goroutine is driven externally via tick.
type Session struct {
	id  string
	cfg domain.SessionConfig

	mu          sync.RWMutex
	questions   []domain.Question
	current     int
	answers     map[string]string
	marked      map[string]struct{}
	remaining   int
	completed   bool
	result      *domain.ExamResult
	subscribers map[chan Event]struct{}
}

// NewSession derives a session from a configuration and the question bank:
// filter by domain, optional Fisher-Yates shuffle, truncate to the requested
// count (keep all when the pool is smaller).
func NewSession(id string, cfg domain.SessionConfig, bank domain.Bank) (*Session, error) {
	return NewSessionWithRand(id, cfg, bank, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewSessionWithRand allows deterministic shuffles in tests.
func NewSessionWithRand(id string, cfg domain.SessionConfig, bank domain.Bank, rnd *rand.Rand) (*Session, error) {
	if len(cfg.Domains) == 0 {
		return nil, domain.ErrConfigurationMissing
	}
	if cfg.Mode == "" {
		cfg.Mode = domain.ModeSimulation
	}

	selected := make(map[domain.Domain]struct{}, len(cfg.Domains))
	for _, d := range cfg.Domains {
		selected[d] = struct{}{}
	}
	questions := make([]domain.Question, 0, len(bank.Questions))
	for _, q := range bank.Questions {
		if _, ok := selected[q.Domain]; ok {
			questions = append(questions, q)
		}
	}

	if cfg.Shuffle {
		fisherYates(questions, rnd)
	}
	if cfg.QuestionCount > 0 && cfg.QuestionCount < len(questions) {
		questions = questions[:cfg.QuestionCount]
	}

	s := &Session{
		id:          id,
		cfg:         cfg,
		questions:   questions,
		answers:     make(map[string]string),
		marked:      make(map[string]struct{}),
		subscribers: make(map[chan Event]struct{}),
	}
	if cfg.Timed() {
		s.remaining = cfg.TimeLimitMinutes * 60
	}
	return s, nil
}

// RestoreSession rebuilds a session from its persisted snapshot. The caller
// re-arms the countdown separately.
func RestoreSession(snap domain.SessionSnapshot) *Session {
	s := &Session{
		id:          snap.ID,
		cfg:         snap.Config,
		questions:   snap.Questions,
		current:     snap.CurrentIndex,
		answers:     snap.Answers,
		remaining:   snap.TimeRemainingSeconds,
		completed:   snap.Completed,
		marked:      make(map[string]struct{}, len(snap.MarkedForReview)),
		subscribers: make(map[chan Event]struct{}),
	}
	if s.answers == nil {
		s.answers = make(map[string]string)
	}
	for _, id := range snap.MarkedForReview {
		s.marked[id] = struct{}{}
	}
	return s
}

// fisherYates applies an unbiased uniform permutation in place.
func fisherYates(qs []domain.Question, rnd *rand.Rand) {
	for i := len(qs) - 1; i >= 1; i-- {
		j := rnd.Intn(i + 1)
		qs[i], qs[j] = qs[j], qs[i]
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Completed reports whether the session reached its terminal state.
func (s *Session) Completed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completed
}

// Timed reports whether the session runs a countdown.
func (s *Session) Timed() bool { return s.cfg.Timed() }

func (s *Session) remainingSeconds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remaining
}

// Snapshot captures the pure-data form for persistence.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() domain.SessionSnapshot {
	answers := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	marked := make([]string, 0, len(s.marked))
	for _, q := range s.questions {
		if _, ok := s.marked[q.ID]; ok {
			marked = append(marked, q.ID)
		}
	}
	return domain.SessionSnapshot{
		ID:                   s.id,
		Config:               s.cfg,
		Questions:            s.questions,
		CurrentIndex:         s.current,
		Answers:              answers,
		MarkedForReview:      marked,
		TimeRemainingSeconds: s.remaining,
		Completed:            s.completed,
	}
}

func (s *Session) view() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{
		SessionID:            s.id,
		Mode:                 s.cfg.Mode,
		TotalQuestions:       len(s.questions),
		CurrentIndex:         s.current,
		Answers:              make(map[string]string, len(s.answers)),
		Marked:               make([]string, 0, len(s.marked)),
		Timed:                s.cfg.Timed(),
		TimeRemainingSeconds: s.remaining,
		Completed:            s.completed,
	}
	for k, val := range s.answers {
		v.Answers[k] = val
	}
	for _, q := range s.questions {
		if _, ok := s.marked[q.ID]; ok {
			v.Marked = append(v.Marked, q.ID)
		}
	}
	if len(s.questions) > 0 {
		q := s.questions[s.current]
		q.CorrectAnswer = ""
		q.Explanation = ""
		v.Question = q
	}
	return v
}

func (s *Session) recordAnswer(questionID, letter string) (domain.AnswerFeedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return domain.AnswerFeedback{}, domain.ErrSessionCompleted
	}
	var question *domain.Question
	for i := range s.questions {
		if s.questions[i].ID == questionID {
			question = &s.questions[i]
			break
		}
	}
	if question == nil {
		return domain.AnswerFeedback{}, domain.ErrQuestionNotFound
	}
	if _, ok := question.Options[letter]; !ok {
		return domain.AnswerFeedback{}, domain.ErrOptionNotFound
	}

	// Re-answering overwrites; only the latest letter counts.
	s.answers[questionID] = letter
	s.broadcastLocked(Event{Type: EventState, View: ptrView(s.viewLocked())})

	feedback := domain.AnswerFeedback{QuestionID: questionID}
	if s.cfg.Mode == domain.ModeStudy {
		feedback.Correct = letter == question.CorrectAnswer
		feedback.CorrectAnswer = question.CorrectAnswer
		feedback.Explanation = question.Explanation
	}
	return feedback, nil
}

// goTo moves the cursor; out-of-range targets are silent no-ops.
func (s *Session) goTo(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed || index < 0 || index >= len(s.questions) {
		return
	}
	s.current = index
	s.broadcastLocked(Event{Type: EventState, View: ptrView(s.viewLocked())})
}

// next advances the cursor and reports whether the session is already on the
// last question, in which case the caller should offer completion instead.
func (s *Session) next() bool {
	s.mu.Lock()
	atEnd := s.current >= len(s.questions)-1
	s.mu.Unlock()
	if atEnd {
		return true
	}
	s.goTo(s.currentIndex() + 1)
	return false
}

func (s *Session) previous() {
	s.goTo(s.currentIndex() - 1)
}

func (s *Session) currentIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Session) toggleMark(questionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		return
	}
	known := false
	for i := range s.questions {
		if s.questions[i].ID == questionID {
			known = true
			break
		}
	}
	if !known {
		return
	}
	if _, ok := s.marked[questionID]; ok {
		delete(s.marked, questionID)
	} else {
		s.marked[questionID] = struct{}{}
	}
	s.broadcastLocked(Event{Type: EventState, View: ptrView(s.viewLocked())})
}

// tick decrements the countdown by one second and reports expiry. It fires
// the expiry signal exactly once; later ticks against a completed or
// exhausted session are no-ops.
func (s *Session) tick() (remaining int, expired bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed || !s.cfg.Timed() || s.remaining <= 0 {
		return s.remaining, false
	}
	s.remaining--
	s.broadcastLocked(Event{Type: EventTime, RemainingSeconds: s.remaining})
	return s.remaining, s.remaining == 0
}

// complete performs the terminal transition. The first call scores the
// session; every later call returns the cached result with first=false.
func (s *Session) complete() (result domain.ExamResult, first bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completed {
		if s.result == nil {
			// Restored from a snapshot written after completion; scoring is
			// deterministic, so re-scoring reproduces the original result.
			res := Score(s.snapshotLocked())
			s.result = &res
		}
		return *s.result, false
	}
	s.completed = true
	res := Score(s.snapshotLocked())
	s.result = &res
	s.broadcastLocked(Event{Type: EventCompleted, Result: &res})
	return res, true
}

func (s *Session) cachedResult() (domain.ExamResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return domain.ExamResult{}, false
	}
	return *s.result, true
}

func (s *Session) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := Event{Type: EventState, View: ptrView(s.viewLocked())}
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked(ev Event) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the oldest pending event so slow clients never block.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func ptrView(v View) *View { return &v }
