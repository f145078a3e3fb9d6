package services

import (
	"time"

	"github.com/ogzhnbygl/vivolearn/model"
)

// RunInput carries the schedule of a course run. AccessStart is the only
// required field; the rest are stored exactly as given and the fallback
// chain is applied when the run is read.
type RunInput struct {
	Label            string
	AccessStart      *time.Time
	AccessEnd        *time.Time
	ApplicationStart *time.Time
	ApplicationEnd   *time.Time
	EnrollmentLimit  *int
}

func (in RunInput) validate() error {
	if in.AccessStart == nil || in.AccessStart.IsZero() {
		return validationError("access start date is required")
	}
	if in.EnrollmentLimit != nil && *in.EnrollmentLimit < 1 {
		return validationError("enrollment limit must be at least 1")
	}
	return nil
}

func (in RunInput) toModel(courseID uint) model.CourseRun {
	return model.CourseRun{
		CourseID:         courseID,
		Label:            in.Label,
		AccessStart:      in.AccessStart.UTC(),
		AccessEnd:        utcPtr(in.AccessEnd),
		ApplicationStart: utcPtr(in.ApplicationStart),
		ApplicationEnd:   utcPtr(in.ApplicationEnd),
		EnrollmentLimit:  in.EnrollmentLimit,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

// CoursePartition groups courses by the state of their runs
type CoursePartition struct {
	Open     []model.Course `json:"open"`
	Upcoming []model.Course `json:"upcoming"`
	Past     []model.Course `json:"past"`
}

// PartitionCourses puts a course in Open when any run's access window
// contains now, in Upcoming when any run starts after now, otherwise in Past.
// Runs must be preloaded.
func PartitionCourses(courses []model.Course, now time.Time) CoursePartition {
	p := CoursePartition{
		Open:     []model.Course{},
		Upcoming: []model.Course{},
		Past:     []model.Course{},
	}

	for _, course := range courses {
		open, upcoming := false, false
		for i := range course.Runs {
			run := &course.Runs[i]
			if run.AccessWindow().Contains(now) {
				open = true
			}
			if run.AccessStart.After(now) {
				upcoming = true
			}
		}

		switch {
		case open:
			p.Open = append(p.Open, course)
		case upcoming:
			p.Upcoming = append(p.Upcoming, course)
		default:
			p.Past = append(p.Past, course)
		}
	}

	return p
}
