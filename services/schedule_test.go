package services

import (
	"testing"

	"github.com/ogzhnbygl/vivolearn/model"
	"github.com/stretchr/testify/assert"
)

func courseWithRuns(title string, runs ...model.CourseRun) model.Course {
	return model.Course{Title: title, Runs: runs}
}

func TestPartitionCourses(t *testing.T) {
	now := date(2024, 3, 1)

	courses := []model.Course{
		courseWithRuns("open", model.CourseRun{AccessStart: date(2024, 2, 1), AccessEnd: timePtr(date(2024, 4, 1))}),
		courseWithRuns("open-ended", model.CourseRun{AccessStart: date(2023, 1, 1)}),
		courseWithRuns("upcoming", model.CourseRun{AccessStart: date(2024, 5, 1)}),
		courseWithRuns("past", model.CourseRun{AccessStart: date(2023, 1, 1), AccessEnd: timePtr(date(2023, 6, 1))}),
		courseWithRuns("past-and-upcoming",
			model.CourseRun{AccessStart: date(2023, 1, 1), AccessEnd: timePtr(date(2023, 6, 1))},
			model.CourseRun{AccessStart: date(2024, 9, 1)},
		),
		courseWithRuns("no-runs"),
	}

	p := PartitionCourses(courses, now)

	titles := func(cs []model.Course) []string {
		out := make([]string, 0, len(cs))
		for _, c := range cs {
			out = append(out, c.Title)
		}
		return out
	}
	assert.Equal(t, []string{"open", "open-ended"}, titles(p.Open))
	assert.Equal(t, []string{"upcoming", "past-and-upcoming"}, titles(p.Upcoming))
	assert.Equal(t, []string{"past", "no-runs"}, titles(p.Past))
}

func TestPartitionCoursesBoundsAreInclusive(t *testing.T) {
	start := date(2024, 2, 1)
	end := date(2024, 4, 1)
	courses := []model.Course{courseWithRuns("edge", model.CourseRun{AccessStart: start, AccessEnd: &end})}

	assert.Len(t, PartitionCourses(courses, start).Open, 1)
	assert.Len(t, PartitionCourses(courses, end).Open, 1)
	assert.Len(t, PartitionCourses(courses, end.Add(1)).Past, 1)
}

func TestRunInputValidate(t *testing.T) {
	assert.ErrorIs(t, RunInput{}.validate(), ErrValidation)
	assert.ErrorIs(t, RunInput{AccessStart: timePtr(date(2024, 1, 1)), EnrollmentLimit: intPtr(0)}.validate(), ErrValidation)
	assert.NoError(t, RunInput{AccessStart: timePtr(date(2024, 1, 1)), EnrollmentLimit: intPtr(1)}.validate())
}
