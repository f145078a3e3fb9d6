package services

import (
	"testing"

	"github.com/ogzhnbygl/vivolearn/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sectionOrder(t *testing.T, env *testEnv, courseID uint) []uint {
	t.Helper()
	var ids []uint
	require.NoError(t, env.db.Model(&model.CourseSection{}).
		Where("course_id = ?", courseID).
		Order("order_index ASC").
		Pluck("id", &ids).Error)
	return ids
}

func lessonOrder(t *testing.T, env *testEnv, sectionID uint) []uint {
	t.Helper()
	var lessons []model.Lesson
	require.NoError(t, env.db.Where("section_id = ?", sectionID).Order("order_index ASC").Find(&lessons).Error)

	ids := make([]uint, len(lessons))
	for i, lesson := range lessons {
		assert.Equal(t, i, lesson.OrderIndex, "lesson %d should sit at a dense index", lesson.ID)
		ids[i] = lesson.ID
	}
	return ids
}

func TestCreateSectionAppends(t *testing.T) {
	env := setupTestEnv(t)
	course, _ := env.createCourse(t, env.instructor, "Embryology", openRun())

	second, err := env.curriculum.CreateSection(env.ctx, env.instructor, course.ID, SectionInput{Title: "Week 2"})
	require.NoError(t, err)
	assert.Equal(t, 1, second.OrderIndex)

	_, err = env.curriculum.CreateSection(env.ctx, env.instructor, course.ID, SectionInput{Title: "Clash", OrderIndex: intPtr(1)})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.curriculum.CreateSection(env.ctx, env.instructor, course.ID, SectionInput{Title: "  "})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReorderSectionsIsDeterministic(t *testing.T) {
	env := setupTestEnv(t)
	course, _ := env.createCourse(t, env.instructor, "Oncology", openRun())
	a := course.Sections[0].ID

	b, err := env.curriculum.CreateSection(env.ctx, env.instructor, course.ID, SectionInput{Title: "B"})
	require.NoError(t, err)
	c, err := env.curriculum.CreateSection(env.ctx, env.instructor, course.ID, SectionInput{Title: "C"})
	require.NoError(t, err)

	require.NoError(t, env.curriculum.ReorderSections(env.ctx, env.instructor, course.ID, []OrderItem{
		{ID: c.ID, OrderIndex: 0},
		{ID: a, OrderIndex: 1},
		{ID: b.ID, OrderIndex: 2},
	}))
	assert.Equal(t, []uint{c.ID, a, b.ID}, sectionOrder(t, env, course.ID))

	require.NoError(t, env.curriculum.ReorderSections(env.ctx, env.instructor, course.ID, []OrderItem{
		{ID: a, OrderIndex: 0},
		{ID: b.ID, OrderIndex: 1},
		{ID: c.ID, OrderIndex: 2},
	}))
	assert.Equal(t, []uint{a, b.ID, c.ID}, sectionOrder(t, env, course.ID))
}

func TestReorderSectionsRollsBackOnUnknownID(t *testing.T) {
	env := setupTestEnv(t)
	course, _ := env.createCourse(t, env.instructor, "Urology", openRun())
	a := course.Sections[0].ID
	b, err := env.curriculum.CreateSection(env.ctx, env.instructor, course.ID, SectionInput{Title: "B"})
	require.NoError(t, err)

	err = env.curriculum.ReorderSections(env.ctx, env.instructor, course.ID, []OrderItem{
		{ID: b.ID, OrderIndex: 0},
		{ID: 9999, OrderIndex: 1},
		{ID: a, OrderIndex: 2},
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []uint{a, b.ID}, sectionOrder(t, env, course.ID))
}

func TestReorderWithNoItemsIsNoop(t *testing.T) {
	env := setupTestEnv(t)
	course, _ := env.createCourse(t, env.instructor, "Nephrology", openRun())

	assert.NoError(t, env.curriculum.ReorderSections(env.ctx, env.instructor, course.ID, nil))
	assert.NoError(t, env.curriculum.ReorderLessons(env.ctx, env.instructor, course.ID, course.Sections[0].ID, []OrderItem{}))
}

func TestCurriculumRequiresOwnership(t *testing.T) {
	env := setupTestEnv(t)
	course, _ := env.createCourse(t, env.instructor, "Psychiatry", openRun())
	stranger := env.createProfile(t, "stranger@example.com", model.RoleInstructor)
	student := env.createStudent(t, "student")

	_, err := env.curriculum.CreateSection(env.ctx, stranger, course.ID, SectionInput{Title: "Nope"})
	assert.ErrorIs(t, err, ErrAuth)

	err = env.curriculum.ReorderSections(env.ctx, student, course.ID, []OrderItem{{ID: course.Sections[0].ID}})
	assert.ErrorIs(t, err, ErrAuth)

	_, err = env.curriculum.CreateSection(env.ctx, env.admin, course.ID, SectionInput{Title: "Admin section"})
	assert.NoError(t, err)
}

func TestReorderLessons(t *testing.T) {
	env := setupTestEnv(t)
	course, _ := env.createCourse(t, env.instructor, "Geriatrics", openRun())
	section := course.Sections[0].ID

	l1 := env.createLesson(t, env.instructor, course, section, "One")
	l2 := env.createLesson(t, env.instructor, course, section, "Two")
	l3 := env.createLesson(t, env.instructor, course, section, "Three")
	assert.Equal(t, []uint{l1.ID, l2.ID, l3.ID}, lessonOrder(t, env, section))

	require.NoError(t, env.curriculum.ReorderLessons(env.ctx, env.instructor, course.ID, section, []OrderItem{
		{ID: l3.ID, OrderIndex: 0},
		{ID: l1.ID, OrderIndex: 1},
		{ID: l2.ID, OrderIndex: 2},
	}))
	assert.Equal(t, []uint{l3.ID, l1.ID, l2.ID}, lessonOrder(t, env, section))
}

func TestMoveLessonAcrossSections(t *testing.T) {
	env := setupTestEnv(t)
	course, _ := env.createCourse(t, env.instructor, "Pediatrics", openRun())
	first := course.Sections[0].ID
	second, err := env.curriculum.CreateSection(env.ctx, env.instructor, course.ID, SectionInput{Title: "Second"})
	require.NoError(t, err)

	l1 := env.createLesson(t, env.instructor, course, first, "One")
	l2 := env.createLesson(t, env.instructor, course, first, "Two")
	l3 := env.createLesson(t, env.instructor, course, first, "Three")
	l4 := env.createLesson(t, env.instructor, course, second.ID, "Four")

	moved, err := env.curriculum.MoveLesson(env.ctx, env.instructor, course.ID, MoveLessonInput{
		LessonID:    l2.ID,
		ToSectionID: second.ID,
		ToPosition:  0,
	})
	require.NoError(t, err)
	assert.Equal(t, second.ID, moved.SectionID)
	assert.Equal(t, 0, moved.OrderIndex)

	assert.Equal(t, []uint{l1.ID, l3.ID}, lessonOrder(t, env, first))
	assert.Equal(t, []uint{l2.ID, l4.ID}, lessonOrder(t, env, second.ID))
}

func TestMoveLessonWithinSection(t *testing.T) {
	env := setupTestEnv(t)
	course, _ := env.createCourse(t, env.instructor, "Obstetrics", openRun())
	section := course.Sections[0].ID

	l1 := env.createLesson(t, env.instructor, course, section, "One")
	l2 := env.createLesson(t, env.instructor, course, section, "Two")
	l3 := env.createLesson(t, env.instructor, course, section, "Three")

	_, err := env.curriculum.MoveLesson(env.ctx, env.instructor, course.ID, MoveLessonInput{
		LessonID:    l1.ID,
		ToSectionID: section,
		ToPosition:  99,
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{l2.ID, l3.ID, l1.ID}, lessonOrder(t, env, section))
}

func TestMoveLessonToForeignSection(t *testing.T) {
	env := setupTestEnv(t)
	course, _ := env.createCourse(t, env.instructor, "Anesthesia", openRun())
	other, _ := env.createCourse(t, env.instructor, "Toxicology", openRun())
	lesson := env.createLesson(t, env.instructor, course, course.Sections[0].ID, "One")

	_, err := env.curriculum.MoveLesson(env.ctx, env.instructor, course.ID, MoveLessonInput{
		LessonID:    lesson.ID,
		ToSectionID: other.Sections[0].ID,
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateLessonNormalizesDriveURL(t *testing.T) {
	env := setupTestEnv(t)
	course, _ := env.createCourse(t, env.instructor, "Ophthalmology", openRun())
	other, _ := env.createCourse(t, env.instructor, "Otology", openRun())

	lesson, err := env.curriculum.CreateLesson(env.ctx, env.instructor, course.ID, LessonInput{
		SectionID: course.Sections[0].ID,
		Title:     "Retina",
		VideoURL:  "https://drive.google.com/open?id=XYZ_123",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://drive.google.com/file/d/XYZ_123/preview", lesson.VideoURL)
	assert.Equal(t, 0, lesson.OrderIndex)

	_, err = env.curriculum.CreateLesson(env.ctx, env.instructor, course.ID, LessonInput{
		SectionID: course.Sections[0].ID,
		Title:     "No video",
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.curriculum.CreateLesson(env.ctx, env.instructor, course.ID, LessonInput{
		SectionID: other.Sections[0].ID,
		Title:     "Wrong section",
		VideoURL:  "https://example.com/video.mp4",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSectionRemovesLessons(t *testing.T) {
	env := setupTestEnv(t)
	course, _ := env.createCourse(t, env.instructor, "Hematology", openRun())
	section, err := env.curriculum.CreateSection(env.ctx, env.instructor, course.ID, SectionInput{Title: "Doomed"})
	require.NoError(t, err)
	env.createLesson(t, env.instructor, course, section.ID, "Gone")

	require.NoError(t, env.curriculum.DeleteSection(env.ctx, env.instructor, course.ID, section.ID))

	var lessons int64
	require.NoError(t, env.db.Model(&model.Lesson{}).Where("section_id = ?", section.ID).Count(&lessons).Error)
	assert.Zero(t, lessons)

	err = env.curriculum.DeleteSection(env.ctx, env.instructor, course.ID, section.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// The freed slot can be taken again
	_, err = env.curriculum.CreateSection(env.ctx, env.instructor, course.ID, SectionInput{Title: "Reused", OrderIndex: intPtr(section.OrderIndex)})
	assert.NoError(t, err)
}

func TestUpdateLesson(t *testing.T) {
	env := setupTestEnv(t)
	course, _ := env.createCourse(t, env.instructor, "Endocrinology", openRun())
	lesson := env.createLesson(t, env.instructor, course, course.Sections[0].ID, "Thyroid")

	title := "Thyroid gland"
	published := false
	updated, err := env.curriculum.UpdateLesson(env.ctx, env.instructor, course.ID, lesson.ID, UpdateLessonInput{
		Title:       &title,
		IsPublished: &published,
	})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.False(t, updated.IsPublished)

	_, err = env.curriculum.UpdateLesson(env.ctx, env.instructor, course.ID, 9999, UpdateLessonInput{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, env.curriculum.DeleteLesson(env.ctx, env.instructor, course.ID, lesson.ID))
	_, err = env.curriculum.GetLesson(env.ctx, lesson.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
