package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/ogzhnbygl/vivolearn/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuizService handles quiz authoring and grading
type QuizService struct {
	db    *gorm.DB
	views ViewInvalidator
	clock func() time.Time
}

// NewQuizService creates a new quiz service
func NewQuizService(db *gorm.DB, views ViewInvalidator) *QuizService {
	return &QuizService{
		db:    db,
		views: views,
		clock: time.Now,
	}
}

// CreateQuizInput is the input for CreateQuiz
type CreateQuizInput struct {
	LessonID        uint
	Title           string
	Description     string
	PassingScore    int
	DurationSeconds *int
}

// QuestionInput is the input for CreateQuestion
type QuestionInput struct {
	Prompt     string
	OrderIndex *int
}

// OptionInput is the input for CreateOption
type OptionInput struct {
	Text      string
	IsCorrect bool
}

// SubmitAttemptInput is the input for SubmitAttempt
type SubmitAttemptInput struct {
	QuizID      uint
	CourseRunID uint
	LessonID    uint
	Answers     model.AttemptAnswers
}

// QuizView is a quiz as shown to a caller. IsCorrect is only filled in for
// whoever can manage the course.
type QuizView struct {
	ID              uint           `json:"id"`
	LessonID        uint           `json:"lesson_id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	PassingScore    int            `json:"passing_score"`
	DurationSeconds *int           `json:"duration_seconds,omitempty"`
	Questions       []QuestionView `json:"questions"`
}

// QuestionView is a question inside a QuizView
type QuestionView struct {
	ID         uint         `json:"id"`
	Prompt     string       `json:"prompt"`
	OrderIndex int          `json:"order_index"`
	Options    []OptionView `json:"options"`
}

// OptionView is an option inside a QuestionView
type OptionView struct {
	ID        uint   `json:"id"`
	Text      string `json:"text"`
	IsCorrect *bool  `json:"is_correct,omitempty"`
}

func newQuizView(quiz *model.Quiz, withAnswers bool) *QuizView {
	view := &QuizView{
		ID:              quiz.ID,
		LessonID:        quiz.LessonID,
		Title:           quiz.Title,
		Description:     quiz.Description,
		PassingScore:    quiz.PassingScore,
		DurationSeconds: quiz.DurationSeconds,
		Questions:       make([]QuestionView, 0, len(quiz.Questions)),
	}
	for _, q := range quiz.Questions {
		qv := QuestionView{
			ID:         q.ID,
			Prompt:     q.Prompt,
			OrderIndex: q.OrderIndex,
			Options:    make([]OptionView, 0, len(q.Options)),
		}
		for _, o := range q.Options {
			ov := OptionView{ID: o.ID, Text: o.Text}
			if withAnswers {
				correct := o.IsCorrect
				ov.IsCorrect = &correct
			}
			qv.Options = append(qv.Options, ov)
		}
		view.Questions = append(view.Questions, qv)
	}
	return view
}

func preloadQuestions(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("order_index ASC, id ASC") }).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}

// loadLessonCourse loads a lesson and its course and checks that the caller
// manages the course
func loadLessonCourse(tx *gorm.DB, caller *Caller, lessonID uint, lock bool) (*model.Lesson, *model.Course, error) {
	query := tx
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var lesson model.Lesson
	if err := query.First(&lesson, lessonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, notFoundError("lesson not found")
		}
		return nil, nil, err
	}

	var course model.Course
	if err := tx.First(&course, lesson.CourseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, notFoundError("course not found")
		}
		return nil, nil, err
	}

	if err := requireCourseOwner(caller, &course); err != nil {
		return nil, nil, err
	}
	return &lesson, &course, nil
}

// loadManagedQuiz loads a quiz whose course the caller manages
func loadManagedQuiz(tx *gorm.DB, caller *Caller, quizID uint) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := tx.First(&quiz, quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("quiz not found")
		}
		return nil, err
	}
	if _, _, err := loadLessonCourse(tx, caller, quiz.LessonID, false); err != nil {
		return nil, err
	}
	return &quiz, nil
}

// CreateQuiz attaches a quiz to a lesson. A lesson holds at most one quiz;
// the existence check runs while the lesson row is locked.
func (s *QuizService) CreateQuiz(ctx context.Context, caller *Caller, in CreateQuizInput) (*model.Quiz, error) {
	if err := requireRole(caller, model.RoleInstructor, model.RoleAdmin); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validationError("quiz title is required")
	}
	if in.PassingScore < 0 || in.PassingScore > 100 {
		return nil, validationError("passing score must be between 0 and 100")
	}
	if in.DurationSeconds != nil && *in.DurationSeconds < 1 {
		return nil, validationError("duration must be positive")
	}

	quiz := model.Quiz{
		LessonID:        in.LessonID,
		Title:           title,
		Description:     strings.TrimSpace(in.Description),
		PassingScore:    in.PassingScore,
		DurationSeconds: in.DurationSeconds,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, _, err := loadLessonCourse(tx, caller, in.LessonID, true); err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&model.Quiz{}).Where("lesson_id = ?", in.LessonID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return validationError("lesson already has a quiz")
		}

		return tx.Create(&quiz).Error
	})
	if err != nil {
		return nil, persistenceError("failed to create quiz", err)
	}

	log.Printf("[QUIZ] Quiz %d created for lesson %d by profile %d", quiz.ID, quiz.LessonID, caller.ProfileID)
	signalViews(s.views, ViewLesson(quiz.LessonID), ViewQuiz(quiz.LessonID))
	return &quiz, nil
}

// CreateQuestion adds a question to a quiz
func (s *QuizService) CreateQuestion(ctx context.Context, caller *Caller, quizID uint, in QuestionInput) (*model.QuizQuestion, error) {
	if err := requireRole(caller, model.RoleInstructor, model.RoleAdmin); err != nil {
		return nil, err
	}

	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		return nil, validationError("question prompt is required")
	}

	var (
		question model.QuizQuestion
		quiz     *model.Quiz
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		quiz, err = loadManagedQuiz(tx, caller, quizID)
		if err != nil {
			return err
		}

		order := 0
		if in.OrderIndex != nil {
			order = *in.OrderIndex
		} else {
			next, err := nextOrderIndex(tx, &model.QuizQuestion{}, map[string]interface{}{"quiz_id": quiz.ID})
			if err != nil {
				return err
			}
			order = next
		}

		question = model.QuizQuestion{
			QuizID:     quiz.ID,
			Prompt:     prompt,
			OrderIndex: order,
		}
		return tx.Create(&question).Error
	})
	if err != nil {
		return nil, persistenceError("failed to create question", err)
	}

	signalViews(s.views, ViewQuiz(quiz.LessonID))
	return &question, nil
}

// CreateOption adds an answer option to a question
func (s *QuizService) CreateOption(ctx context.Context, caller *Caller, questionID uint, in OptionInput) (*model.QuizOption, error) {
	if err := requireRole(caller, model.RoleInstructor, model.RoleAdmin); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, validationError("option text is required")
	}

	var (
		option model.QuizOption
		quiz   *model.Quiz
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var question model.QuizQuestion
		if err := tx.First(&question, questionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("question not found")
			}
			return err
		}

		var err error
		quiz, err = loadManagedQuiz(tx, caller, question.QuizID)
		if err != nil {
			return err
		}

		option = model.QuizOption{
			QuestionID: question.ID,
			Text:       text,
			IsCorrect:  in.IsCorrect,
		}
		return tx.Create(&option).Error
	})
	if err != nil {
		return nil, persistenceError("failed to create option", err)
	}

	signalViews(s.views, ViewQuiz(quiz.LessonID))
	return &option, nil
}

// ToggleOptionCorrect sets the correctness flag of a single option. Other
// options of the same question are left untouched.
func (s *QuizService) ToggleOptionCorrect(ctx context.Context, caller *Caller, optionID uint, isCorrect bool) (*model.QuizOption, error) {
	if err := requireRole(caller, model.RoleInstructor, model.RoleAdmin); err != nil {
		return nil, err
	}

	var (
		option model.QuizOption
		quiz   *model.Quiz
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&option, optionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("option not found")
			}
			return err
		}

		var question model.QuizQuestion
		if err := tx.First(&question, option.QuestionID).Error; err != nil {
			return err
		}

		var err error
		quiz, err = loadManagedQuiz(tx, caller, question.QuizID)
		if err != nil {
			return err
		}

		if err := tx.Model(&option).Update("is_correct", isCorrect).Error; err != nil {
			return err
		}
		option.IsCorrect = isCorrect
		return nil
	})
	if err != nil {
		return nil, persistenceError("failed to update option", err)
	}

	signalViews(s.views, ViewQuiz(quiz.LessonID))
	return &option, nil
}

// GetQuizForLesson returns the quiz attached to a lesson. Correct answers
// are included only for course managers.
func (s *QuizService) GetQuizForLesson(ctx context.Context, caller *Caller, lessonID uint) (*QuizView, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)

	var lesson model.Lesson
	if err := db.Preload("Course").First(&lesson, lessonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("lesson not found")
		}
		return nil, persistenceError("failed to load lesson", err)
	}
	if lesson.Course == nil {
		return nil, notFoundError("lesson not found")
	}

	manager := canManageCourse(caller, lesson.Course)
	if !manager && (!lesson.IsPublished || !lesson.Course.IsPublished) {
		return nil, notFoundError("lesson not found")
	}

	var quiz model.Quiz
	if err := preloadQuestions(db).Where("lesson_id = ?", lesson.ID).First(&quiz).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("this lesson has no quiz")
		}
		return nil, persistenceError("failed to load quiz", err)
	}

	return newQuizView(&quiz, manager), nil
}

// SubmitAttempt grades a submission and stores it as the caller's attempt,
// replacing any earlier one. Nothing is written when grading fails.
func (s *QuizService) SubmitAttempt(ctx context.Context, caller *Caller, in SubmitAttemptInput) (*AttemptResult, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	if in.LessonID == 0 {
		return nil, validationError("lesson is required")
	}
	if in.CourseRunID == 0 {
		return nil, validationError("course run is required")
	}

	now := s.clock().UTC()
	var result AttemptResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var quiz model.Quiz
		if err := preloadQuestions(tx).First(&quiz, in.QuizID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("quiz not found")
			}
			return err
		}
		if quiz.LessonID != in.LessonID {
			return notFoundError("quiz not found")
		}

		var lesson model.Lesson
		if err := tx.Select("id", "course_id").First(&lesson, quiz.LessonID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("lesson not found")
			}
			return err
		}

		var runs int64
		if err := tx.Model(&model.CourseRun{}).Where("id = ? AND course_id = ?", in.CourseRunID, lesson.CourseID).Count(&runs).Error; err != nil {
			return err
		}
		if runs == 0 {
			return authError("this run does not belong to the quiz's course")
		}
		if err := requireApprovedEnrollment(tx, caller.ProfileID, in.CourseRunID); err != nil {
			return err
		}

		var err error
		result, err = Grade(&quiz, in.Answers)
		if err != nil {
			return err
		}

		attempt := model.QuizAttempt{
			QuizID:      quiz.ID,
			StudentID:   caller.ProfileID,
			Status:      model.AttemptSubmitted,
			Answers:     datatypes.NewJSONType(in.Answers),
			Score:       result.Score,
			StartedAt:   now,
			SubmittedAt: &now,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "quiz_id"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "answers", "score", "submitted_at", "updated_at"}),
		}).Create(&attempt).Error
		if err != nil {
			return err
		}

		var stored model.QuizAttempt
		if err := tx.Select("id").Where("quiz_id = ? AND student_id = ?", quiz.ID, caller.ProfileID).First(&stored).Error; err != nil {
			return err
		}
		result.AttemptID = stored.ID
		return nil
	})
	if err != nil {
		return nil, persistenceError("failed to submit quiz", err)
	}

	log.Printf("[QUIZ] Profile %d scored %d on quiz %d (passed=%t)", caller.ProfileID, result.Score, in.QuizID, result.Passed)
	signalViews(s.views, ViewLesson(in.LessonID), ViewProfile(caller.ProfileID))
	return &result, nil
}

// GetAttempt returns the caller's stored attempt for a quiz
func (s *QuizService) GetAttempt(ctx context.Context, caller *Caller, quizID uint) (*model.QuizAttempt, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	var attempt model.QuizAttempt
	err := s.db.WithContext(ctx).
		Where("quiz_id = ? AND student_id = ?", quizID, caller.ProfileID).
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("no attempt for this quiz yet")
		}
		return nil, persistenceError("failed to load attempt", err)
	}
	return &attempt, nil
}
