package app

import (
	"math"

	"exam-simulator/internal/domain"
)

// Score converts a finished session snapshot into an ExamResult. It is a
// pure function: the same snapshot always yields an identical result.
func Score(snap domain.SessionSnapshot) domain.ExamResult {
	marked := make(map[string]struct{}, len(snap.MarkedForReview))
	for _, id := range snap.MarkedForReview {
		marked[id] = struct{}{}
	}

	result := domain.ExamResult{
		SessionID:       snap.ID,
		TotalQuestions:  len(snap.Questions),
		DomainScores:    make(map[domain.Domain]domain.DomainScore),
		DetailedAnswers: make([]domain.AnswerDetail, 0, len(snap.Questions)),
	}

	for _, q := range snap.Questions {
		detail := domain.AnswerDetail{
			QuestionID:    q.ID,
			Domain:        q.Domain,
			Question:      q.Question,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			UserAnswer:    domain.Unanswered,
			Explanation:   q.Explanation,
		}
		if _, ok := marked[q.ID]; ok {
			detail.Marked = true
		}

		ds := result.DomainScores[q.Domain]
		ds.Total++

		answer, answered := snap.Answers[q.ID]
		switch {
		case !answered:
			result.UnansweredCount++
		case answer == q.CorrectAnswer:
			result.CorrectCount++
			detail.UserAnswer = answer
			detail.Correct = true
			ds.Correct++
		default:
			result.IncorrectCount++
			detail.UserAnswer = answer
		}

		result.DomainScores[q.Domain] = ds
		result.DetailedAnswers = append(result.DetailedAnswers, detail)
	}

	if result.TotalQuestions == 0 {
		// Degenerate empty exam: floor score, never a pass.
		result.ScaledScore = 100
		result.Passed = false
	} else {
		fraction := float64(result.CorrectCount) / float64(result.TotalQuestions)
		result.PercentageCorrect = int(math.Round(fraction * 100))
		result.ScaledScore = int(math.Round(100 + fraction*900))
		result.Passed = result.ScaledScore >= domain.PassingScore
	}

	if snap.Config.Timed() {
		used := snap.Config.TimeLimitMinutes*60 - snap.TimeRemainingSeconds
		result.TimeUsedSeconds = &used
	}
	return result
}
