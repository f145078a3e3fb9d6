package services

import (
	"math"

	"github.com/ogzhnbygl/vivolearn/model"
)

// AttemptResult is what a student learns after submitting a quiz
type AttemptResult struct {
	AttemptID uint `json:"attempt_id"`
	Score     int  `json:"score"`
	Passed    bool `json:"passed"`
	Correct   int  `json:"correct"`
	Total     int  `json:"total"`
}

// Grade scores answers against a quiz whose questions and options are loaded.
// Every question must be answered with one of its own options. The score is
// the rounded percentage of correctly answered questions.
func Grade(quiz *model.Quiz, answers model.AttemptAnswers) (AttemptResult, error) {
	total := len(quiz.Questions)
	if total == 0 {
		return AttemptResult{}, validationError("this quiz has no questions yet")
	}

	correct := 0
	for _, question := range quiz.Questions {
		optionID, ok := answers[question.ID]
		if !ok {
			return AttemptResult{}, incompleteError("question %d has no answer", question.ID)
		}

		var chosen *model.QuizOption
		for i := range question.Options {
			if question.Options[i].ID == optionID {
				chosen = &question.Options[i]
				break
			}
		}
		if chosen == nil {
			return AttemptResult{}, invalidOptionError("option %d does not belong to question %d", optionID, question.ID)
		}
		if chosen.IsCorrect {
			correct++
		}
	}

	score := int(math.Round(100 * float64(correct) / float64(total)))
	return AttemptResult{
		Score:   score,
		Passed:  score >= quiz.PassingScore,
		Correct: correct,
		Total:   total,
	}, nil
}
