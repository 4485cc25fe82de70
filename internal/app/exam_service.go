package app

import (
	"context"
	"log"
	"sync"
	"time"

	"exam-simulator/internal/domain"
)

// SessionStore abstracts how live sessions and their persisted snapshots are
// kept (in-memory, Redis, etc). Save is called after every mutation and is
// best-effort: last write wins. Remove clears only the persisted snapshot;
// the live entry survives so a repeated Complete stays idempotent.
type SessionStore interface {
	Put(ctx context.Context, s *Session) error
	Get(sessionID string) (*Session, bool)
	Resume(ctx context.Context, sessionID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Remove(ctx context.Context, sessionID string) error
	Drop(sessionID string)
}

// ResultStore persists exam results past session teardown.
type ResultStore interface {
	SaveResult(ctx context.Context, sessionID string, result domain.ExamResult) error
	GetResult(ctx context.Context, sessionID string) (domain.ExamResult, error)
}

// BankRepository loads question-bank content (from cache/backing store).
type BankRepository interface {
	GetBank(ctx context.Context, examID string) (domain.Bank, error)
}

// ExamService contains the exam simulator use cases.
type ExamService struct {
	sessions SessionStore
	results  ResultStore
	banks    BankRepository

	mu     sync.Mutex
	timers map[string]*countdown
}

func NewExamService(sessions SessionStore, results ResultStore, banks BankRepository) *ExamService {
	return &ExamService{
		sessions: sessions,
		results:  results,
		banks:    banks,
		timers:   make(map[string]*countdown),
	}
}

// countdown drives one session's 1 Hz tick loop; cancellable exactly once.
type countdown struct {
	stop chan struct{}
	once sync.Once
}

func (c *countdown) cancel() {
	c.once.Do(func() { close(c.stop) })
}

// Start creates a new exam session from the configuration and the question
// bank, arms the countdown when timed, and persists the initial snapshot.
func (es *ExamService) Start(ctx context.Context, sessionID string, cfg domain.SessionConfig) (View, error) {
	bank, err := es.banks.GetBank(ctx, domain.ExamID)
	if err != nil {
		return View{}, err
	}

	session, err := NewSession(sessionID, cfg, bank)
	if err != nil {
		return View{}, err
	}
	if err := es.sessions.Put(ctx, session); err != nil {
		return View{}, err
	}
	es.armTimer(session)
	return session.view(), nil
}

// Resume returns the live session or restores it from the persisted
// snapshot, re-arming the countdown from the stored remaining seconds.
func (es *ExamService) Resume(ctx context.Context, sessionID string) (View, error) {
	session, err := es.session(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	return session.view(), nil
}

// Answer records an option letter for a question. In study mode the returned
// feedback reveals correctness and the explanation.
func (es *ExamService) Answer(ctx context.Context, sessionID, questionID, letter string) (domain.AnswerFeedback, View, error) {
	session, err := es.session(ctx, sessionID)
	if err != nil {
		return domain.AnswerFeedback{}, View{}, err
	}
	feedback, err := session.recordAnswer(questionID, letter)
	if err != nil {
		return domain.AnswerFeedback{}, View{}, err
	}
	es.persist(ctx, session)
	return feedback, session.view(), nil
}

// GoTo jumps to a question index; out-of-range targets are no-ops.
func (es *ExamService) GoTo(ctx context.Context, sessionID string, index int) (View, error) {
	session, err := es.session(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	if session.Completed() {
		return View{}, domain.ErrSessionCompleted
	}
	session.goTo(index)
	es.persist(ctx, session)
	return session.view(), nil
}

// Next advances to the following question. On the last question it leaves
// the cursor in place and reports offerComplete=true.
func (es *ExamService) Next(ctx context.Context, sessionID string) (View, bool, error) {
	session, err := es.session(ctx, sessionID)
	if err != nil {
		return View{}, false, err
	}
	if session.Completed() {
		return View{}, false, domain.ErrSessionCompleted
	}
	offerComplete := session.next()
	es.persist(ctx, session)
	return session.view(), offerComplete, nil
}

// Previous steps back one question; a no-op on the first question.
func (es *ExamService) Previous(ctx context.Context, sessionID string) (View, error) {
	session, err := es.session(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	if session.Completed() {
		return View{}, domain.ErrSessionCompleted
	}
	session.previous()
	es.persist(ctx, session)
	return session.view(), nil
}

// Mark toggles the review flag on a question.
func (es *ExamService) Mark(ctx context.Context, sessionID, questionID string) (View, error) {
	session, err := es.session(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	if session.Completed() {
		return View{}, domain.ErrSessionCompleted
	}
	session.toggleMark(questionID)
	es.persist(ctx, session)
	return session.view(), nil
}

// Complete performs the terminal transition: score, persist the result,
// clear the session snapshot, cancel the countdown. Idempotent; repeated
// calls return the already-computed result without re-persisting.
func (es *ExamService) Complete(ctx context.Context, sessionID string) (domain.ExamResult, error) {
	session, err := es.session(ctx, sessionID)
	if err != nil {
		return domain.ExamResult{}, err
	}
	result, first := session.complete()
	if !first {
		return result, nil
	}

	es.cancelTimer(sessionID)
	if err := es.results.SaveResult(ctx, sessionID, result); err != nil {
		log.Printf("save result %s: %v", sessionID, err)
	}
	if err := es.sessions.Remove(ctx, sessionID); err != nil {
		log.Printf("clear session snapshot %s: %v", sessionID, err)
	}
	return result, nil
}

// Result fetches the result of a completed session.
func (es *ExamService) Result(ctx context.Context, sessionID string) (domain.ExamResult, error) {
	if session, ok := es.sessions.Get(sessionID); ok {
		if result, done := session.cachedResult(); done {
			return result, nil
		}
	}
	return es.results.GetResult(ctx, sessionID)
}

// Export builds the downloadable result artifact for a completed session.
func (es *ExamService) Export(ctx context.Context, sessionID string) (domain.ResultExport, error) {
	result, err := es.Result(ctx, sessionID)
	if err != nil {
		return domain.ResultExport{}, err
	}
	return BuildExport(result, time.Now()), nil
}

// Subscribe returns a channel that receives session events. The caller must
// invoke the returned cancel function to avoid leaks.
func (es *ExamService) Subscribe(sessionID string) (<-chan Event, func(), error) {
	session, ok := es.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Teardown stops the countdown and evicts the live session entry, keeping
// any persisted snapshot so the candidate can resume later.
func (es *ExamService) Teardown(sessionID string) {
	es.cancelTimer(sessionID)
	es.sessions.Drop(sessionID)
}

func (es *ExamService) session(ctx context.Context, sessionID string) (*Session, error) {
	if session, ok := es.sessions.Get(sessionID); ok {
		return session, nil
	}
	session, err := es.sessions.Resume(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	es.armTimer(session)
	return session, nil
}

func (es *ExamService) persist(ctx context.Context, session *Session) {
	// Completion cleared the snapshot; writing one again would let a fresh
	// instance resume a finished exam.
	if session.Completed() {
		return
	}
	if err := es.sessions.Save(ctx, session); err != nil {
		log.Printf("persist session %s: %v", session.ID(), err)
	}
}

func (es *ExamService) armTimer(session *Session) {
	if !session.Timed() || session.Completed() {
		return
	}
	if session.remainingSeconds() <= 0 {
		// Resumed at or past the limit, e.g. the process died between the
		// expiring tick's persist and the snapshot removal. Finish now
		// instead of arming a countdown that would never fire.
		if _, err := es.Complete(context.Background(), session.ID()); err != nil {
			log.Printf("forced completion %s: %v", session.ID(), err)
		}
		return
	}

	es.mu.Lock()
	if _, running := es.timers[session.ID()]; running {
		es.mu.Unlock()
		return
	}
	timer := &countdown{stop: make(chan struct{})}
	es.timers[session.ID()] = timer
	es.mu.Unlock()

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-timer.stop:
				return
			case <-ticker.C:
				_, expired := session.tick()
				es.persist(context.Background(), session)
				if expired {
					if _, err := es.Complete(context.Background(), session.ID()); err != nil {
						log.Printf("forced completion %s: %v", session.ID(), err)
					}
					return
				}
			}
		}
	}()
}

func (es *ExamService) cancelTimer(sessionID string) {
	es.mu.Lock()
	timer, ok := es.timers[sessionID]
	if ok {
		delete(es.timers, sessionID)
	}
	es.mu.Unlock()
	if ok {
		timer.cancel()
	}
}
