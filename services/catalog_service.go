package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ogzhnbygl/vivolearn/model"
	"github.com/ogzhnbygl/vivolearn/utils"
	"gorm.io/gorm"
)

// DefaultSectionTitle is the section every new course starts with
const DefaultSectionTitle = "General"

// MaxCoverBytes is the largest accepted cover image
const MaxCoverBytes = 5 << 20

var coverContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// CoverUploader stores a course cover image and returns its public URL
type CoverUploader interface {
	UploadCover(ctx context.Context, courseID uint, filename, contentType string, data []byte) (string, error)
}

// CatalogService manages courses and their runs
type CatalogService struct {
	db     *gorm.DB
	views  ViewInvalidator
	covers CoverUploader
	clock  func() time.Time
}

// NewCatalogService creates a new catalog service
func NewCatalogService(db *gorm.DB, views ViewInvalidator) *CatalogService {
	return &CatalogService{
		db:    db,
		views: views,
		clock: time.Now,
	}
}

// CreateCourseInput is the input for CreateCourse
type CreateCourseInput struct {
	Title         string
	Summary       string
	Description   string
	CoverImageURL string
	IsPublished   bool
	FirstRun      RunInput
}

// UpdateCourseInput carries the fields to change; nil fields are left alone
type UpdateCourseInput struct {
	Title       *string
	Summary     *string
	Description *string
	IsPublished *bool
}

// CreateCourse creates a course together with its first run and a default
// section. Either all three rows are written or none.
func (s *CatalogService) CreateCourse(ctx context.Context, caller *Caller, in CreateCourseInput) (*model.Course, error) {
	if err := requireRole(caller, model.RoleInstructor, model.RoleAdmin); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, validationError("course title is required")
	}
	if err := in.FirstRun.validate(); err != nil {
		return nil, err
	}

	course := model.Course{
		InstructorID:  caller.ProfileID,
		Title:         title,
		Slug:          utils.TimestampedSlug(title, s.clock()),
		Summary:       strings.TrimSpace(in.Summary),
		Description:   strings.TrimSpace(in.Description),
		CoverImageURL: strings.TrimSpace(in.CoverImageURL),
		IsPublished:   in.IsPublished,
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, persistenceError("failed to begin transaction", tx.Error)
	}

	if err := tx.Create(&course).Error; err != nil {
		tx.Rollback()
		return nil, persistenceError("failed to create course", err)
	}

	run := in.FirstRun.toModel(course.ID)
	if err := tx.Create(&run).Error; err != nil {
		tx.Rollback()
		return nil, persistenceError("failed to create course run", err)
	}

	section := model.CourseSection{
		CourseID:   course.ID,
		Title:      DefaultSectionTitle,
		OrderIndex: 0,
	}
	if err := tx.Create(&section).Error; err != nil {
		tx.Rollback()
		return nil, persistenceError("failed to create default section", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, persistenceError("failed to commit course", err)
	}

	course.Runs = []model.CourseRun{run}
	course.Sections = []model.CourseSection{section}

	log.Printf("[CATALOG] Course %d (%s) created by profile %d", course.ID, course.Slug, caller.ProfileID)
	signalViews(s.views, ViewCatalog, ViewInstructor(course.InstructorID))

	return &course, nil
}

// UpdateCourse changes course metadata
func (s *CatalogService) UpdateCourse(ctx context.Context, caller *Caller, courseID uint, in UpdateCourseInput) (*model.Course, error) {
	course, err := loadOwnedCourse(ctx, s.db, caller, courseID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, validationError("course title is required")
		}
		updates["title"] = title
	}
	if in.Summary != nil {
		updates["summary"] = strings.TrimSpace(*in.Summary)
	}
	if in.Description != nil {
		updates["description"] = strings.TrimSpace(*in.Description)
	}
	if in.IsPublished != nil {
		updates["is_published"] = *in.IsPublished
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(course).Updates(updates).Error; err != nil {
			return nil, persistenceError("failed to update course", err)
		}
		if err := s.db.WithContext(ctx).First(course, course.ID).Error; err != nil {
			return nil, persistenceError("failed to reload course", err)
		}
	}

	signalViews(s.views, ViewCatalog, ViewCourse(course.ID), ViewInstructor(course.InstructorID))
	return course, nil
}

// SetCoverUploader enables cover uploads
func (s *CatalogService) SetCoverUploader(covers CoverUploader) {
	s.covers = covers
}

// CoverUpload is an image file sent for a course cover
type CoverUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UploadCover stores a new cover image for a course and records its URL
func (s *CatalogService) UploadCover(ctx context.Context, caller *Caller, courseID uint, upload CoverUpload) (*model.Course, error) {
	course, err := loadOwnedCourse(ctx, s.db, caller, courseID)
	if err != nil {
		return nil, err
	}
	if s.covers == nil {
		return nil, validationError("cover uploads are not configured")
	}
	if !coverContentTypes[upload.ContentType] {
		return nil, validationError("cover must be a JPEG, PNG or WebP image")
	}
	if len(upload.Data) == 0 || len(upload.Data) > MaxCoverBytes {
		return nil, validationError("cover must be a non-empty image of at most %d MB", MaxCoverBytes>>20)
	}

	url, err := s.covers.UploadCover(ctx, course.ID, upload.Filename, upload.ContentType, upload.Data)
	if err != nil {
		return nil, persistenceError("failed to upload cover image", err)
	}
	return s.setCoverImage(ctx, course, url)
}

func (s *CatalogService) setCoverImage(ctx context.Context, course *model.Course, url string) (*model.Course, error) {
	if err := s.db.WithContext(ctx).Model(course).Update("cover_image_url", url).Error; err != nil {
		return nil, persistenceError("failed to update cover image", err)
	}
	course.CoverImageURL = url

	signalViews(s.views, ViewCatalog, ViewCourse(course.ID))
	return course, nil
}

// DeleteCourse removes a course; runs, sections and lessons go with it
func (s *CatalogService) DeleteCourse(ctx context.Context, caller *Caller, courseID uint) error {
	course, err := loadOwnedCourse(ctx, s.db, caller, courseID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("course_id = ?", course.ID).Delete(&model.Lesson{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", course.ID).Delete(&model.CourseSection{}).Error; err != nil {
			return err
		}
		return tx.Delete(course).Error
	})
	if err != nil {
		return persistenceError("failed to delete course", err)
	}

	log.Printf("[CATALOG] Course %d deleted by profile %d", course.ID, caller.ProfileID)
	signalViews(s.views, ViewCatalog, ViewCourse(course.ID), ViewInstructor(course.InstructorID))
	return nil
}

func orderByIndex(db *gorm.DB) *gorm.DB {
	return db.Order("order_index ASC")
}

// GetCourse loads a course with its instructor, runs and curriculum.
// Unpublished courses and lessons are only visible to whoever can manage them.
func (s *CatalogService) GetCourse(ctx context.Context, caller *Caller, courseID uint) (*model.Course, error) {
	return s.getCourse(ctx, caller, s.db.WithContext(ctx).Where("id = ?", courseID))
}

// GetCourseBySlug is GetCourse keyed by slug
func (s *CatalogService) GetCourseBySlug(ctx context.Context, caller *Caller, slug string) (*model.Course, error) {
	return s.getCourse(ctx, caller, s.db.WithContext(ctx).Where("slug = ?", slug))
}

func (s *CatalogService) getCourse(ctx context.Context, caller *Caller, query *gorm.DB) (*model.Course, error) {
	var course model.Course
	err := query.
		Preload("Instructor").
		Preload("Runs", func(db *gorm.DB) *gorm.DB { return db.Order("access_start ASC") }).
		Preload("Sections", orderByIndex).
		Preload("Sections.Lessons", orderByIndex).
		First(&course).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("course not found")
		}
		return nil, persistenceError("failed to load course", err)
	}

	if canManageCourse(caller, &course) {
		return &course, nil
	}
	if !course.IsPublished {
		return nil, notFoundError("course not found")
	}

	for i := range course.Sections {
		published := course.Sections[i].Lessons[:0]
		for _, lesson := range course.Sections[i].Lessons {
			if lesson.IsPublished {
				published = append(published, lesson)
			}
		}
		course.Sections[i].Lessons = published
	}
	return &course, nil
}

// ListPublished returns published courses with runs, newest first
func (s *CatalogService) ListPublished(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	err := s.db.WithContext(ctx).
		Preload("Instructor").
		Preload("Runs").
		Where("is_published = ?", true).
		Order("created_at DESC").
		Find(&courses).Error
	if err != nil {
		return nil, persistenceError("failed to list courses", err)
	}
	return courses, nil
}

// Catalog partitions the published courses into open, upcoming and past
func (s *CatalogService) Catalog(ctx context.Context) (*CoursePartition, error) {
	courses, err := s.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	partition := PartitionCourses(courses, s.clock())
	return &partition, nil
}

// ListForInstructor returns the caller's courses, or every course for admins
func (s *CatalogService) ListForInstructor(ctx context.Context, caller *Caller) ([]model.Course, error) {
	if err := requireRole(caller, model.RoleInstructor, model.RoleAdmin); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Preload("Runs").Order("created_at DESC")
	if !caller.IsAdmin() {
		query = query.Where("instructor_id = ?", caller.ProfileID)
	}

	var courses []model.Course
	if err := query.Find(&courses).Error; err != nil {
		return nil, persistenceError("failed to list instructor courses", err)
	}
	return courses, nil
}

// CreateRun opens a new run for a course
func (s *CatalogService) CreateRun(ctx context.Context, caller *Caller, courseID uint, in RunInput) (*model.CourseRun, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	course, err := loadOwnedCourse(ctx, s.db, caller, courseID)
	if err != nil {
		return nil, err
	}

	run := in.toModel(course.ID)
	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, persistenceError("failed to create course run", err)
	}

	signalViews(s.views, ViewCatalog, ViewCourse(course.ID), ViewInstructor(course.InstructorID))
	return &run, nil
}

// UpdateSchedule replaces the schedule of an existing run. The write is
// scoped to the course so a run of another course can never be touched.
func (s *CatalogService) UpdateSchedule(ctx context.Context, caller *Caller, courseID, runID uint, in RunInput) (*model.CourseRun, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	course, err := loadOwnedCourse(ctx, s.db, caller, courseID)
	if err != nil {
		return nil, err
	}

	next := in.toModel(course.ID)
	result := s.db.WithContext(ctx).Model(&model.CourseRun{}).
		Where("id = ? AND course_id = ?", runID, course.ID).
		Select("label", "access_start", "access_end", "application_start", "application_end", "enrollment_limit").
		Updates(&next)
	if result.Error != nil {
		return nil, persistenceError("failed to update course schedule", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, notFoundError("course run not found")
	}

	var run model.CourseRun
	if err := s.db.WithContext(ctx).First(&run, runID).Error; err != nil {
		return nil, persistenceError("failed to reload course run", err)
	}

	signalViews(s.views, ViewCatalog, ViewCourse(course.ID), ViewInstructor(course.InstructorID))
	return &run, nil
}

// ListRuns returns the runs of a course ordered by access start
func (s *CatalogService) ListRuns(ctx context.Context, courseID uint) ([]model.CourseRun, error) {
	var runs []model.CourseRun
	err := s.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("access_start ASC").
		Find(&runs).Error
	if err != nil {
		return nil, persistenceError(fmt.Sprintf("failed to list runs of course %d", courseID), err)
	}
	return runs, nil
}
