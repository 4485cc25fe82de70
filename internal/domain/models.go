package domain

// Domain is one of the four official CLF-C02 exam domains.
type Domain string

const (
	DomainCloudConcepts      Domain = "Cloud Concepts"
	DomainSecurityCompliance Domain = "Security and Compliance"
	DomainCloudTechnology    Domain = "Cloud Technology and Services"
	DomainBillingPricing     Domain = "Billing, Pricing, and Support"
)

// AllDomains returns the official domains in exam-guide order.
func AllDomains() []Domain {
	return []Domain{
		DomainCloudConcepts,
		DomainSecurityCompliance,
		DomainCloudTechnology,
		DomainBillingPricing,
	}
}

// Valid reports whether d is one of the official domains.
func (d Domain) Valid() bool {
	switch d {
	case DomainCloudConcepts, DomainSecurityCompliance, DomainCloudTechnology, DomainBillingPricing:
		return true
	}
	return false
}

// Mode controls when correctness is revealed to the candidate.
type Mode string

const (
	// ModeSimulation withholds correctness until completion, mirroring real exam conditions.
	ModeSimulation Mode = "simulation"
	// ModeStudy reveals correctness and the explanation immediately after answering.
	ModeStudy Mode = "study"
)

// ExamID is the fixed identifier stamped on exported results.
const ExamID = "AWS-CLF-C02"

// Unanswered is the sentinel recorded for questions the candidate never
// answered. It is distinct from every valid option letter.
const Unanswered = "unanswered"

// PassingScore is the minimum scaled score considered a pass.
const PassingScore = 700

// Question models a single MCQ record from the generated question bank.
// CorrectAnswer is always one of the option letters.
type Question struct {
	ID            string            `json:"id"`
	Domain        Domain            `json:"domain"`
	Question      string            `json:"question"`
	Options       map[string]string `json:"options"` // letter A-D -> text, exactly 4 entries
	CorrectAnswer string            `json:"correctAnswer"`
	Explanation   string            `json:"explanation,omitempty"`
}

// Bank is the question catalog consumed by the simulator, keyed by exam ID
// in the backing store and loaded once per session.
type Bank struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// SessionConfig captures the candidate's exam setup. It is immutable once a
// session is created.
type SessionConfig struct {
	Domains          []Domain `json:"domains"`
	QuestionCount    int      `json:"questionCount"` // 0 = all available
	TimeLimitMinutes int      `json:"timeLimitMinutes"`
	Mode             Mode     `json:"mode"`
	Shuffle          bool     `json:"shuffle"`
}

// Timed reports whether the session runs a countdown.
func (c SessionConfig) Timed() bool { return c.TimeLimitMinutes > 0 }

// SessionSnapshot is the persisted, pure-data form of an exam session.
// It carries no timer handle; the countdown is re-armed from
// TimeRemainingSeconds on resume.
type SessionSnapshot struct {
	ID                   string            `json:"id"`
	Config               SessionConfig     `json:"config"`
	Questions            []Question        `json:"questions"`
	CurrentIndex         int               `json:"currentIndex"`
	Answers              map[string]string `json:"answers"`
	MarkedForReview      []string          `json:"markedForReview"`
	TimeRemainingSeconds int               `json:"timeRemainingSeconds"`
	Completed            bool              `json:"completed"`
}

// AnswerFeedback is returned from answering in study mode; display data only.
type AnswerFeedback struct {
	QuestionID    string `json:"questionId"`
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correctAnswer"`
	Explanation   string `json:"explanation,omitempty"`
}

// DomainScore is the per-domain slice of the result breakdown.
type DomainScore struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// AnswerDetail mirrors one session question in the result trail.
type AnswerDetail struct {
	QuestionID    string            `json:"questionId"`
	Domain        Domain            `json:"domain"`
	Question      string            `json:"question"`
	Options       map[string]string `json:"options"`
	CorrectAnswer string            `json:"correctAnswer"`
	UserAnswer    string            `json:"userAnswer"` // option letter or Unanswered
	Correct       bool              `json:"correct"`
	Marked        bool              `json:"marked"`
	Explanation   string            `json:"explanation,omitempty"`
}

// ExamResult is the immutable outcome of a completed session.
type ExamResult struct {
	SessionID         string                 `json:"sessionId"`
	TotalQuestions    int                    `json:"totalQuestions"`
	CorrectCount      int                    `json:"correctCount"`
	IncorrectCount    int                    `json:"incorrectCount"`
	UnansweredCount   int                    `json:"unansweredCount"`
	PercentageCorrect int                    `json:"percentageCorrect"`
	ScaledScore       int                    `json:"scaledScore"` // in [100,1000]
	Passed            bool                   `json:"passed"`
	DomainScores      map[Domain]DomainScore `json:"domainScores"`
	DetailedAnswers   []AnswerDetail         `json:"detailedAnswers"`
	TimeUsedSeconds   *int                   `json:"timeUsedSeconds"` // nil when untimed
}

// ResultExport is the downloadable artifact handed to the presentation layer.
type ResultExport struct {
	GeneratedAt string     `json:"generatedAt"`
	Exam        string     `json:"exam"`
	Result      ExamResult `json:"result"`
}
