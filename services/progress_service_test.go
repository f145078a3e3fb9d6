package services

import (
	"testing"

	"github.com/ogzhnbygl/vivolearn/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLessonProgressUpserts(t *testing.T) {
	env := setupTestEnv(t)
	env.setClock(date(2024, 1, 10))
	course, run := env.createCourse(t, env.instructor, "Tracked", openRun())
	lesson := env.createLesson(t, env.instructor, course, course.Sections[0].ID, "Tracked lesson")
	student := env.createStudent(t, "learner")
	env.enroll(t, student, run)

	viewed, err := env.progress.SetLessonProgress(env.ctx, student, SetProgressInput{LessonID: lesson.ID, CourseRunID: run.ID})
	require.NoError(t, err)
	assert.False(t, viewed.IsCompleted)
	assert.Nil(t, viewed.CompletedAt)

	env.setClock(date(2024, 1, 11))
	completed, err := env.progress.SetLessonProgress(env.ctx, student, SetProgressInput{LessonID: lesson.ID, CourseRunID: run.ID, Completed: true})
	require.NoError(t, err)
	assert.Equal(t, viewed.ID, completed.ID)
	assert.True(t, completed.IsCompleted)
	require.NotNil(t, completed.CompletedAt)
	assert.True(t, completed.CompletedAt.Equal(date(2024, 1, 11)))

	rows, err := env.progress.ListRunProgress(env.ctx, student, run.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsCompleted)
}

func TestSetLessonProgressRequiresEnrollment(t *testing.T) {
	env := setupTestEnv(t)
	env.setClock(date(2024, 1, 10))
	course, run := env.createCourse(t, env.instructor, "Guarded", openRun())
	_, foreignRun := env.createCourse(t, env.instructor, "Foreign", openRun())
	lesson := env.createLesson(t, env.instructor, course, course.Sections[0].ID, "Guarded lesson")

	outsider := env.createStudent(t, "outsider")
	_, err := env.progress.SetLessonProgress(env.ctx, outsider, SetProgressInput{LessonID: lesson.ID, CourseRunID: run.ID})
	assert.ErrorIs(t, err, ErrAuth)

	enrolled := env.createStudent(t, "enrolled")
	env.enroll(t, enrolled, foreignRun)
	_, err = env.progress.SetLessonProgress(env.ctx, enrolled, SetProgressInput{LessonID: lesson.ID, CourseRunID: foreignRun.ID})
	assert.ErrorIs(t, err, ErrAuth)

	_, err = env.progress.SetLessonProgress(env.ctx, enrolled, SetProgressInput{LessonID: 9999, CourseRunID: run.ID})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.progress.SetLessonProgress(env.ctx, env.instructor, SetProgressInput{LessonID: lesson.ID, CourseRunID: run.ID, Completed: true})
	assert.NoError(t, err)

	var count int64
	require.NoError(t, env.db.Model(&model.Progress{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
