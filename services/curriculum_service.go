package services

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"sort"
	"strings"

	"github.com/ogzhnbygl/vivolearn/model"
	"github.com/ogzhnbygl/vivolearn/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReorderOffset is the minimum distance of the temporary indices used by the
// first phase of a reindex from the final ones
const ReorderOffset = 1000

// CurriculumService manages sections and lessons and their ordering
type CurriculumService struct {
	db    *gorm.DB
	views ViewInvalidator
}

// NewCurriculumService creates a new curriculum service
func NewCurriculumService(db *gorm.DB, views ViewInvalidator) *CurriculumService {
	return &CurriculumService{db: db, views: views}
}

// OrderItem places one row at a position in a reorder request
type OrderItem struct {
	ID         uint
	OrderIndex int
}

// SectionInput is the input for CreateSection
type SectionInput struct {
	Title      string
	OrderIndex *int
}

// UpdateSectionInput carries the section fields to change
type UpdateSectionInput struct {
	Title      *string
	OrderIndex *int
}

// LessonInput is the input for CreateLesson
type LessonInput struct {
	SectionID   uint
	Title       string
	VideoURL    string
	Content     string
	OrderIndex  *int
	IsPublished bool
}

// UpdateLessonInput carries the lesson fields to change
type UpdateLessonInput struct {
	Title       *string
	Content     *string
	VideoURL    *string
	IsPublished *bool
	OrderIndex  *int
	SectionID   *uint
}

// MoveLessonInput moves a lesson to a position in another (or the same) section
type MoveLessonInput struct {
	LessonID    uint
	ToSectionID uint
	ToPosition  int
}

// lockCourseRow serializes curriculum writes of one course
func lockCourseRow(tx *gorm.DB, courseID uint) error {
	var course model.Course
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&course, courseID).Error
}

func nextOrderIndex(tx *gorm.DB, table interface{}, scope map[string]interface{}) (int, error) {
	var current sql.NullInt64
	err := tx.Model(table).Where(scope).Select("MAX(order_index)").Row().Scan(&current)
	if err != nil {
		return 0, err
	}
	if !current.Valid {
		return 0, nil
	}
	return int(current.Int64) + 1, nil
}

// CreateSection appends a section to a course unless an explicit order is given
func (s *CurriculumService) CreateSection(ctx context.Context, caller *Caller, courseID uint, in SectionInput) (*model.CourseSection, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validationError("section title is required")
	}

	course, err := loadOwnedCourse(ctx, s.db, caller, courseID)
	if err != nil {
		return nil, err
	}

	section := model.CourseSection{CourseID: course.ID, Title: title}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCourseRow(tx, course.ID); err != nil {
			return err
		}
		if in.OrderIndex != nil {
			section.OrderIndex = *in.OrderIndex
		} else {
			next, err := nextOrderIndex(tx, &model.CourseSection{}, map[string]interface{}{"course_id": course.ID})
			if err != nil {
				return err
			}
			section.OrderIndex = next
		}
		return tx.Create(&section).Error
	})
	if err != nil {
		return nil, orderingError("failed to create section", err)
	}

	signalViews(s.views, ViewCourse(course.ID))
	return &section, nil
}

// UpdateSection renames or repositions a section of the course
func (s *CurriculumService) UpdateSection(ctx context.Context, caller *Caller, courseID, sectionID uint, in UpdateSectionInput) (*model.CourseSection, error) {
	course, err := loadOwnedCourse(ctx, s.db, caller, courseID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, validationError("section title is required")
		}
		updates["title"] = title
	}
	if in.OrderIndex != nil {
		updates["order_index"] = *in.OrderIndex
	}

	if len(updates) > 0 {
		result := s.db.WithContext(ctx).Model(&model.CourseSection{}).
			Where("id = ? AND course_id = ?", sectionID, course.ID).
			Updates(updates)
		if result.Error != nil {
			return nil, orderingError("failed to update section", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, notFoundError("section not found")
		}
	}

	var section model.CourseSection
	if err := s.db.WithContext(ctx).Where("id = ? AND course_id = ?", sectionID, course.ID).First(&section).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("section not found")
		}
		return nil, persistenceError("failed to load section", err)
	}

	signalViews(s.views, ViewCourse(course.ID))
	return &section, nil
}

// DeleteSection removes a section and its lessons
func (s *CurriculumService) DeleteSection(ctx context.Context, caller *Caller, courseID, sectionID uint) error {
	course, err := loadOwnedCourse(ctx, s.db, caller, courseID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("section_id = ? AND course_id = ?", sectionID, course.ID).Delete(&model.Lesson{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ? AND course_id = ?", sectionID, course.ID).Delete(&model.CourseSection{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return notFoundError("section not found")
		}
		return nil
	})
	if err != nil {
		return persistenceError("failed to delete section", err)
	}

	signalViews(s.views, ViewCourse(course.ID))
	return nil
}

// ReorderSections rewrites the order of the given sections of a course
func (s *CurriculumService) ReorderSections(ctx context.Context, caller *Caller, courseID uint, items []OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	course, err := loadOwnedCourse(ctx, s.db, caller, courseID)
	if err != nil {
		return err
	}

	ids := orderedIDs(items)
	scope := map[string]interface{}{"course_id": course.ID}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCourseRow(tx, course.ID); err != nil {
			return err
		}
		return reindex(tx, &model.CourseSection{}, scope, ids)
	})
	if err != nil {
		return orderingError("failed to reorder sections", err)
	}

	signalViews(s.views, ViewCourse(course.ID))
	return nil
}

// ReorderLessons rewrites the order of the given lessons of one section
func (s *CurriculumService) ReorderLessons(ctx context.Context, caller *Caller, courseID, sectionID uint, items []OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	course, err := loadOwnedCourse(ctx, s.db, caller, courseID)
	if err != nil {
		return err
	}

	ids := orderedIDs(items)
	scope := map[string]interface{}{"course_id": course.ID, "section_id": sectionID}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCourseRow(tx, course.ID); err != nil {
			return err
		}
		return reindex(tx, &model.Lesson{}, scope, ids)
	})
	if err != nil {
		return orderingError("failed to reorder lessons", err)
	}

	signalViews(s.views, ViewCourse(course.ID))
	return nil
}

// MoveLesson moves a lesson to ToPosition within ToSectionID and closes the
// gap it leaves in its old section. Both sections are reindexed in the same
// transaction as the section change.
func (s *CurriculumService) MoveLesson(ctx context.Context, caller *Caller, courseID uint, in MoveLessonInput) (*model.Lesson, error) {
	course, err := loadOwnedCourse(ctx, s.db, caller, courseID)
	if err != nil {
		return nil, err
	}

	var moved model.Lesson
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCourseRow(tx, course.ID); err != nil {
			return err
		}

		if err := tx.Where("id = ? AND course_id = ?", in.LessonID, course.ID).First(&moved).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("lesson not found")
			}
			return err
		}
		if err := requireSectionInCourse(tx, course.ID, in.ToSectionID); err != nil {
			return err
		}

		fromSectionID := moved.SectionID
		source, err := lessonIDsInSection(tx, course.ID, fromSectionID, moved.ID)
		if err != nil {
			return err
		}
		target := source
		if in.ToSectionID != fromSectionID {
			if target, err = lessonIDsInSection(tx, course.ID, in.ToSectionID, moved.ID); err != nil {
				return err
			}
		}
		target = insertAt(target, moved.ID, in.ToPosition)

		// Phase 1: park every affected lesson on a temporary index that is
		// unique across both sections, so the section change cannot collide.
		base, err := parkingBase(tx, &model.Lesson{}, map[string]interface{}{"course_id": course.ID})
		if err != nil {
			return err
		}
		parked := append(append([]uint{}, target...), source...)
		if in.ToSectionID == fromSectionID {
			parked = target
		}
		if err := writeOrder(tx, &model.Lesson{}, map[string]interface{}{"course_id": course.ID}, parked, base); err != nil {
			return err
		}

		if err := tx.Model(&model.Lesson{}).Where("id = ?", moved.ID).Update("section_id", in.ToSectionID).Error; err != nil {
			return err
		}

		// Phase 2: final dense indices
		if err := writeOrder(tx, &model.Lesson{}, map[string]interface{}{"course_id": course.ID, "section_id": in.ToSectionID}, target, 0); err != nil {
			return err
		}
		if in.ToSectionID != fromSectionID {
			if err := writeOrder(tx, &model.Lesson{}, map[string]interface{}{"course_id": course.ID, "section_id": fromSectionID}, source, 0); err != nil {
				return err
			}
		}

		return tx.First(&moved, moved.ID).Error
	})
	if err != nil {
		return nil, orderingError("failed to move lesson", err)
	}

	log.Printf("[CURRICULUM] Lesson %d moved to section %d position %d", moved.ID, moved.SectionID, moved.OrderIndex)
	signalViews(s.views, ViewCourse(course.ID), ViewLesson(moved.ID))
	return &moved, nil
}

// CreateLesson adds a lesson to a section of the course
func (s *CurriculumService) CreateLesson(ctx context.Context, caller *Caller, courseID uint, in LessonInput) (*model.Lesson, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validationError("lesson title is required")
	}
	videoURL := utils.NormalizeGoogleDriveURL(in.VideoURL)
	if videoURL == "" {
		return nil, validationError("lesson video URL is required")
	}

	course, err := loadOwnedCourse(ctx, s.db, caller, courseID)
	if err != nil {
		return nil, err
	}

	lesson := model.Lesson{
		CourseID:    course.ID,
		SectionID:   in.SectionID,
		Title:       title,
		VideoURL:    videoURL,
		Content:     in.Content,
		IsPublished: in.IsPublished,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCourseRow(tx, course.ID); err != nil {
			return err
		}
		if err := requireSectionInCourse(tx, course.ID, in.SectionID); err != nil {
			return err
		}
		if in.OrderIndex != nil {
			lesson.OrderIndex = *in.OrderIndex
		} else {
			next, err := nextOrderIndex(tx, &model.Lesson{}, map[string]interface{}{"section_id": in.SectionID})
			if err != nil {
				return err
			}
			lesson.OrderIndex = next
		}
		return tx.Create(&lesson).Error
	})
	if err != nil {
		return nil, orderingError("failed to create lesson", err)
	}

	signalViews(s.views, ViewCourse(course.ID))
	return &lesson, nil
}

// UpdateLesson applies a partial update to a lesson of the course
func (s *CurriculumService) UpdateLesson(ctx context.Context, caller *Caller, courseID, lessonID uint, in UpdateLessonInput) (*model.Lesson, error) {
	course, err := loadOwnedCourse(ctx, s.db, caller, courseID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, validationError("lesson title is required")
		}
		updates["title"] = title
	}
	if in.Content != nil {
		updates["content"] = *in.Content
	}
	if in.VideoURL != nil {
		videoURL := utils.NormalizeGoogleDriveURL(*in.VideoURL)
		if videoURL == "" {
			return nil, validationError("lesson video URL is required")
		}
		updates["video_url"] = videoURL
	}
	if in.IsPublished != nil {
		updates["is_published"] = *in.IsPublished
	}
	if in.OrderIndex != nil {
		updates["order_index"] = *in.OrderIndex
	}

	var lesson model.Lesson
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.SectionID != nil {
			if err := requireSectionInCourse(tx, course.ID, *in.SectionID); err != nil {
				return err
			}
			updates["section_id"] = *in.SectionID
		}

		if len(updates) > 0 {
			result := tx.Model(&model.Lesson{}).
				Where("id = ? AND course_id = ?", lessonID, course.ID).
				Updates(updates)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return notFoundError("lesson not found")
			}
		}

		if err := tx.Where("id = ? AND course_id = ?", lessonID, course.ID).First(&lesson).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("lesson not found")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, orderingError("failed to update lesson", err)
	}

	signalViews(s.views, ViewCourse(course.ID), ViewLesson(lesson.ID))
	return &lesson, nil
}

// DeleteLesson removes a lesson of the course
func (s *CurriculumService) DeleteLesson(ctx context.Context, caller *Caller, courseID, lessonID uint) error {
	course, err := loadOwnedCourse(ctx, s.db, caller, courseID)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Where("id = ? AND course_id = ?", lessonID, course.ID).Delete(&model.Lesson{})
	if result.Error != nil {
		return persistenceError("failed to delete lesson", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFoundError("lesson not found")
	}

	signalViews(s.views, ViewCourse(course.ID), ViewLesson(lessonID))
	return nil
}

// GetLesson loads a lesson with its course and the course runs
func (s *CurriculumService) GetLesson(ctx context.Context, lessonID uint) (*model.Lesson, error) {
	var lesson model.Lesson
	err := s.db.WithContext(ctx).
		Preload("Course").
		Preload("Course.Runs").
		Preload("Course.Instructor").
		First(&lesson, lessonID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("lesson not found")
		}
		return nil, persistenceError("failed to load lesson", err)
	}
	return &lesson, nil
}

func requireSectionInCourse(tx *gorm.DB, courseID, sectionID uint) error {
	var count int64
	if err := tx.Model(&model.CourseSection{}).Where("id = ? AND course_id = ?", sectionID, courseID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return notFoundError("section not found in this course")
	}
	return nil
}

func lessonIDsInSection(tx *gorm.DB, courseID, sectionID, exclude uint) ([]uint, error) {
	var ids []uint
	err := tx.Model(&model.Lesson{}).
		Where("course_id = ? AND section_id = ? AND id <> ?", courseID, sectionID, exclude).
		Order("order_index ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// orderedIDs sorts the items by requested index; positions become the final indices
func orderedIDs(items []OrderItem) []uint {
	sorted := make([]OrderItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].OrderIndex < sorted[j].OrderIndex })

	ids := make([]uint, len(sorted))
	for i, item := range sorted {
		ids[i] = item.ID
	}
	return ids
}

func insertAt(ids []uint, id uint, pos int) []uint {
	if pos < 0 {
		pos = 0
	}
	if pos > len(ids) {
		pos = len(ids)
	}
	out := make([]uint, 0, len(ids)+1)
	out = append(out, ids[:pos]...)
	out = append(out, id)
	return append(out, ids[pos:]...)
}

// parkingBase returns a temporary index base above every index in scope
func parkingBase(tx *gorm.DB, table interface{}, scope map[string]interface{}) (int, error) {
	next, err := nextOrderIndex(tx, table, scope)
	if err != nil {
		return 0, err
	}
	if next < ReorderOffset {
		return ReorderOffset, nil
	}
	return next, nil
}

// reindex is the two-phase write: temporary indices first, final 0-based
// indices second. The caller runs it inside a transaction.
func reindex(tx *gorm.DB, table interface{}, scope map[string]interface{}, ids []uint) error {
	base, err := parkingBase(tx, table, scope)
	if err != nil {
		return err
	}
	if err := writeOrder(tx, table, scope, ids, base); err != nil {
		return err
	}
	return writeOrder(tx, table, scope, ids, 0)
}

func writeOrder(tx *gorm.DB, table interface{}, scope map[string]interface{}, ids []uint, base int) error {
	for i, id := range ids {
		result := tx.Model(table).Where(scope).Where("id = ?", id).Update("order_index", base+i)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return notFoundError("item to reorder not found in this scope")
		}
	}
	return nil
}

// orderingError reports unique index clashes as a validation failure
func orderingError(msg string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return validationError("%s: order index already taken", msg)
	}
	return persistenceError(msg, err)
}
