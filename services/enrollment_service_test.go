package services

import (
	"sync"
	"testing"

	"github.com/ogzhnbygl/vivolearn/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func limitedRun() RunInput {
	return RunInput{
		Label:            "Spring 2024",
		AccessStart:      timePtr(date(2024, 1, 1)),
		AccessEnd:        timePtr(date(2024, 6, 1)),
		ApplicationStart: timePtr(date(2024, 1, 1)),
		ApplicationEnd:   timePtr(date(2024, 1, 15)),
		EnrollmentLimit:  intPtr(2),
	}
}

func countApproved(t *testing.T, env *testEnv, runID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.db.Model(&model.Enrollment{}).
		Where("course_run_id = ? AND status = ?", runID, model.EnrollmentApproved).
		Count(&n).Error)
	return n
}

func TestApplyAndDecideWithinLimitedRun(t *testing.T) {
	env := setupTestEnv(t)
	env.setClock(date(2024, 1, 10))
	_, run := env.createCourse(t, env.instructor, "Anatomy", limitedRun())

	apply := func(student *Caller, receipt string) (*model.Enrollment, error) {
		return env.enrollments.Apply(env.ctx, student, ApplyInput{
			CourseID:    run.CourseID,
			CourseRunID: run.ID,
			ReceiptNo:   receipt,
		})
	}
	approve := func(id uint) {
		_, err := env.enrollments.Decide(env.ctx, env.instructor, DecideInput{EnrollmentID: id, Status: model.EnrollmentApproved})
		require.NoError(t, err)
	}

	s1, err := apply(env.createStudent(t, "s1"), "R1")
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentRequested, s1.Status)
	assert.Equal(t, "R1", s1.ReceiptNo)
	approve(s1.ID)
	assert.Equal(t, int64(1), countApproved(t, env, run.ID))

	s2, err := apply(env.createStudent(t, "s2"), "R2")
	require.NoError(t, err)
	approve(s2.ID)
	assert.Equal(t, int64(2), countApproved(t, env, run.ID))

	_, err = apply(env.createStudent(t, "s3"), "R3")
	assert.ErrorIs(t, err, ErrCapacity)

	env.setClock(date(2024, 1, 20))
	_, err = apply(env.createStudent(t, "s4"), "R4")
	assert.ErrorIs(t, err, ErrWindowClosed)

	assert.Equal(t, int64(2), countApproved(t, env, run.ID))
}

func TestApplyBeforeWindowOpens(t *testing.T) {
	env := setupTestEnv(t)
	env.setClock(date(2023, 12, 20))
	_, run := env.createCourse(t, env.instructor, "Histology", limitedRun())

	_, err := env.enrollments.Apply(env.ctx, env.createStudent(t, "early"), ApplyInput{
		CourseID:    run.CourseID,
		CourseRunID: run.ID,
		ReceiptNo:   "R1",
	})
	assert.ErrorIs(t, err, ErrWindowClosed)
}

func TestApplicationWindowFallsBackToAccessDates(t *testing.T) {
	env := setupTestEnv(t)
	_, run := env.createCourse(t, env.instructor, "Physiology", RunInput{
		AccessStart: timePtr(date(2024, 2, 1)),
		AccessEnd:   timePtr(date(2024, 3, 1)),
	})
	student := env.createStudent(t, "late")
	in := ApplyInput{CourseID: run.CourseID, CourseRunID: run.ID, ReceiptNo: "R1"}

	env.setClock(date(2024, 1, 20))
	_, err := env.enrollments.Apply(env.ctx, student, in)
	assert.ErrorIs(t, err, ErrWindowClosed)

	env.setClock(date(2024, 3, 2))
	_, err = env.enrollments.Apply(env.ctx, student, in)
	assert.ErrorIs(t, err, ErrWindowClosed)

	env.setClock(date(2024, 2, 10))
	_, err = env.enrollments.Apply(env.ctx, student, in)
	assert.NoError(t, err)
}

func TestApplyValidatesInput(t *testing.T) {
	env := setupTestEnv(t)
	env.setClock(date(2024, 1, 10))
	course, run := env.createCourse(t, env.instructor, "Biochemistry", openRun())
	other, _ := env.createCourse(t, env.instructor, "Genetics", openRun())
	student := env.createStudent(t, "student")

	_, err := env.enrollments.Apply(env.ctx, nil, ApplyInput{CourseID: course.ID, CourseRunID: run.ID, ReceiptNo: "R1"})
	assert.ErrorIs(t, err, ErrAuth)

	_, err = env.enrollments.Apply(env.ctx, student, ApplyInput{CourseID: course.ID, CourseRunID: run.ID, ReceiptNo: "  "})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.enrollments.Apply(env.ctx, student, ApplyInput{CourseID: other.ID, CourseRunID: run.ID, ReceiptNo: "R1"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.enrollments.Apply(env.ctx, student, ApplyInput{CourseID: course.ID, CourseRunID: 9999, ReceiptNo: "R1"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReapplyKeepsSingleRow(t *testing.T) {
	env := setupTestEnv(t)
	env.setClock(date(2024, 1, 10))
	_, run := env.createCourse(t, env.instructor, "Pathology", openRun())
	student := env.createStudent(t, "again")
	in := ApplyInput{CourseID: run.CourseID, CourseRunID: run.ID, ReceiptNo: "R1"}

	first, err := env.enrollments.Apply(env.ctx, student, in)
	require.NoError(t, err)

	rejected, err := env.enrollments.Decide(env.ctx, env.instructor, DecideInput{EnrollmentID: first.ID, Status: model.EnrollmentRejected})
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentRejected, rejected.Status)
	assert.NotNil(t, rejected.DecidedAt)

	in.ReceiptNo = "R2"
	second, err := env.enrollments.Apply(env.ctx, student, in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, model.EnrollmentRequested, second.Status)
	assert.Equal(t, "R2", second.ReceiptNo)
	assert.Nil(t, second.DecidedAt)

	var rows int64
	require.NoError(t, env.db.Model(&model.Enrollment{}).Where("student_id = ?", student.ProfileID).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestReapplyWhileApprovedResetsToRequested(t *testing.T) {
	env := setupTestEnv(t)
	env.setClock(date(2024, 1, 10))
	_, run := env.createCourse(t, env.instructor, "Pharmacology", openRun())
	student := env.createStudent(t, "enrolled")
	approved := env.enroll(t, student, run)

	again, err := env.enrollments.Apply(env.ctx, student, ApplyInput{CourseID: run.CourseID, CourseRunID: run.ID, ReceiptNo: "R2"})
	require.NoError(t, err)
	assert.Equal(t, approved.ID, again.ID)
	assert.Equal(t, model.EnrollmentRequested, again.Status)
	assert.Equal(t, "R2", again.ReceiptNo)
	assert.Nil(t, again.DecidedAt)

	var rows int64
	require.NoError(t, env.db.Model(&model.Enrollment{}).
		Where("student_id = ? AND course_run_id = ?", student.ProfileID, run.ID).
		Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func TestReapplyWithPendingRequestDoesNotCountItself(t *testing.T) {
	env := setupTestEnv(t)
	env.setClock(date(2024, 1, 10))
	run := limitedRun()
	run.EnrollmentLimit = intPtr(1)
	_, created := env.createCourse(t, env.instructor, "Microbiology", run)
	student := env.createStudent(t, "pending")
	in := ApplyInput{CourseID: created.CourseID, CourseRunID: created.ID, ReceiptNo: "R1"}

	_, err := env.enrollments.Apply(env.ctx, student, in)
	require.NoError(t, err)

	in.ReceiptNo = "R1-corrected"
	updated, err := env.enrollments.Apply(env.ctx, student, in)
	require.NoError(t, err)
	assert.Equal(t, "R1-corrected", updated.ReceiptNo)

	_, err = env.enrollments.Apply(env.ctx, env.createStudent(t, "other"), ApplyInput{CourseID: created.CourseID, CourseRunID: created.ID, ReceiptNo: "R2"})
	assert.ErrorIs(t, err, ErrCapacity)
}

func TestConcurrentApprovalsRespectLimit(t *testing.T) {
	env := setupTestEnv(t)
	env.setClock(date(2024, 1, 10))
	run := openRun()
	run.EnrollmentLimit = intPtr(1)
	_, created := env.createCourse(t, env.instructor, "Immunology", run)

	// Seed applications directly; request-time capacity would otherwise stop the second one
	ids := make([]uint, 0, 4)
	for i := 0; i < 4; i++ {
		student := env.createStudent(t, "racer"+string(rune('a'+i)))
		enrollment := model.Enrollment{
			StudentID:   student.ProfileID,
			CourseRunID: created.ID,
			Status:      model.EnrollmentRequested,
			ReceiptNo:   "R",
		}
		require.NoError(t, env.db.Create(&enrollment).Error)
		ids = append(ids, enrollment.ID)
	}

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		approved   int
		capacity   int
		unexpected []error
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			_, err := env.enrollments.Decide(env.ctx, env.instructor, DecideInput{EnrollmentID: id, Status: model.EnrollmentApproved})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				approved++
			case KindOf(err) == KindCapacity:
				capacity++
			default:
				unexpected = append(unexpected, err)
			}
		}(id)
	}
	wg.Wait()

	assert.Empty(t, unexpected)
	assert.Equal(t, 1, approved)
	assert.Equal(t, 3, capacity)
	assert.Equal(t, int64(1), countApproved(t, env, created.ID))
}

func TestDecideRequiresCourseOwnership(t *testing.T) {
	env := setupTestEnv(t)
	env.setClock(date(2024, 1, 10))
	_, run := env.createCourse(t, env.instructor, "Neurology", openRun())
	stranger := env.createProfile(t, "stranger@example.com", model.RoleInstructor)

	applied, err := env.enrollments.Apply(env.ctx, env.createStudent(t, "s"), ApplyInput{CourseID: run.CourseID, CourseRunID: run.ID, ReceiptNo: "R1"})
	require.NoError(t, err)

	_, err = env.enrollments.Decide(env.ctx, stranger, DecideInput{EnrollmentID: applied.ID, Status: model.EnrollmentApproved})
	assert.ErrorIs(t, err, ErrAuth)

	_, err = env.enrollments.Decide(env.ctx, env.createStudent(t, "peer"), DecideInput{EnrollmentID: applied.ID, Status: model.EnrollmentApproved})
	assert.ErrorIs(t, err, ErrAuth)

	_, err = env.enrollments.Decide(env.ctx, env.instructor, DecideInput{EnrollmentID: applied.ID, Status: model.EnrollmentRequested})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.enrollments.Decide(env.ctx, env.instructor, DecideInput{EnrollmentID: 9999, Status: model.EnrollmentApproved})
	assert.ErrorIs(t, err, ErrNotFound)

	decided, err := env.enrollments.Decide(env.ctx, env.admin, DecideInput{EnrollmentID: applied.ID, Status: model.EnrollmentApproved})
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentApproved, decided.Status)
}

func TestDecideNotifiesStudentAndAudits(t *testing.T) {
	env := setupTestEnv(t)
	env.setClock(date(2024, 1, 10))
	_, run := env.createCourse(t, env.instructor, "Cardiology", openRun())
	student := env.createStudent(t, "notified")
	enrollment := env.enroll(t, student, run)

	notifications, total, err := env.notifications.List(env.ctx, student, ListNotificationsOptions{Limit: 10})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, model.NotificationCategoryEnrollment, notifications[0].Category)
	assert.Equal(t, model.NotificationTypeSuccess, notifications[0].Type)
	assert.Contains(t, notifications[0].Message, "Cardiology")

	var audits []model.AuditLog
	require.NoError(t, env.db.Where("resource = ? AND resource_id = ?", "enrollments", enrollment.ID).Find(&audits).Error)
	require.Len(t, audits, 1)
	assert.Equal(t, "enrollment_approved", audits[0].Action)
	assert.Equal(t, env.instructor.ProfileID, audits[0].ActorID)
}

func TestListPendingScopedToOwner(t *testing.T) {
	env := setupTestEnv(t)
	env.setClock(date(2024, 1, 10))
	_, mine := env.createCourse(t, env.instructor, "Dermatology", openRun())
	other := env.createProfile(t, "other@example.com", model.RoleInstructor)
	_, theirs := env.createCourse(t, other, "Radiology", openRun())

	student := env.createStudent(t, "applicant")
	for _, run := range []*model.CourseRun{mine, theirs} {
		_, err := env.enrollments.Apply(env.ctx, student, ApplyInput{CourseID: run.CourseID, CourseRunID: run.ID, ReceiptNo: "R1"})
		require.NoError(t, err)
	}

	pending, err := env.enrollments.ListPending(env.ctx, env.instructor)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, mine.ID, pending[0].CourseRunID)

	all, err := env.enrollments.ListPending(env.ctx, env.admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = env.enrollments.ListPending(env.ctx, student)
	assert.ErrorIs(t, err, ErrAuth)

	own, err := env.enrollments.ListForStudent(env.ctx, student)
	require.NoError(t, err)
	assert.Len(t, own, 2)
}

func TestAuthorizeLessonView(t *testing.T) {
	env := setupTestEnv(t)
	env.setClock(date(2024, 1, 10))
	course, run := env.createCourse(t, env.instructor, "Surgery", limitedRun())
	lesson := env.createLesson(t, env.instructor, course, course.Sections[0].ID, "Sutures")
	loaded, err := env.curriculum.GetLesson(env.ctx, lesson.ID)
	require.NoError(t, err)

	enrolled := env.createStudent(t, "enrolled")
	env.enroll(t, enrolled, run)
	outsider := env.createStudent(t, "outsider")

	granted, err := env.enrollments.AuthorizeLessonView(env.ctx, enrolled, loaded, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, granted.ID)

	_, err = env.enrollments.AuthorizeLessonView(env.ctx, outsider, loaded, run.ID)
	assert.ErrorIs(t, err, ErrAuth)

	_, err = env.enrollments.AuthorizeLessonView(env.ctx, nil, loaded, run.ID)
	assert.ErrorIs(t, err, ErrAuth)

	owner, err := env.enrollments.AuthorizeLessonView(env.ctx, env.instructor, loaded, 0)
	require.NoError(t, err)
	assert.Nil(t, owner)

	ownerRun, err := env.enrollments.AuthorizeLessonView(env.ctx, env.instructor, loaded, run.ID)
	require.NoError(t, err)
	require.NotNil(t, ownerRun)
	assert.Equal(t, run.ID, ownerRun.ID)

	_, otherRun := env.createCourse(t, env.instructor, "Orthopedics", openRun())
	_, err = env.enrollments.AuthorizeLessonView(env.ctx, env.instructor, loaded, otherRun.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	env.setClock(date(2024, 6, 2))
	_, err = env.enrollments.AuthorizeLessonView(env.ctx, enrolled, loaded, run.ID)
	assert.ErrorIs(t, err, ErrWindowClosed)
}
