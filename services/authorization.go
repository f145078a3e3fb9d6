package services

import (
	"context"
	"errors"

	"github.com/ogzhnbygl/vivolearn/model"
	"gorm.io/gorm"
)

// requireCaller fails closed when no caller was resolved
func requireCaller(caller *Caller) error {
	if caller == nil || caller.ProfileID == 0 {
		return authError("you must be signed in")
	}
	return nil
}

func requireRole(caller *Caller, roles ...model.Role) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if !caller.HasRole(roles...) {
		return authError("you do not have permission for this action")
	}
	return nil
}

func requireAdmin(caller *Caller) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if !caller.IsAdmin() {
		return authError("admin access required")
	}
	return nil
}

// canManageCourse is the ownership rule: the course instructor or any admin
func canManageCourse(caller *Caller, course *model.Course) bool {
	return caller.IsAdmin() || (caller != nil && caller.ProfileID == course.InstructorID)
}

func requireCourseOwner(caller *Caller, course *model.Course) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if !canManageCourse(caller, course) {
		return authError("only the course instructor or an admin can change this course")
	}
	return nil
}

// loadOwnedCourse reloads the course and re-checks ownership on every call
func loadOwnedCourse(ctx context.Context, db *gorm.DB, caller *Caller, courseID uint) (*model.Course, error) {
	if err := requireRole(caller, model.RoleInstructor, model.RoleAdmin); err != nil {
		return nil, err
	}

	var course model.Course
	if err := db.WithContext(ctx).First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("course not found")
		}
		return nil, persistenceError("failed to load course", err)
	}

	if err := requireCourseOwner(caller, &course); err != nil {
		return nil, err
	}
	return &course, nil
}
