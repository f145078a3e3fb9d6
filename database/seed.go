package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ogzhnbygl/vivolearn/model"
	"github.com/ogzhnbygl/vivolearn/utils"
	"github.com/ogzhnbygl/vivolearn/utils/auth"
	"gorm.io/gorm"
)

// DemoInstructorEmail owns the demo course created by SeedDemoCourse
const DemoInstructorEmail = "instructor@vivolearn.local"

// Seeder handles database seeding operations
type Seeder struct {
	db  *gorm.DB
	now func() time.Time
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db, now: time.Now}
}

// SeedAll runs all seed functions
func (s *Seeder) SeedAll() error {
	log.Println("🌱 Starting database seeding...")

	if err := s.SeedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if err := s.SeedDemoCourse(); err != nil {
		return fmt.Errorf("failed to seed demo course: %w", err)
	}

	log.Println("✅ Database seeding completed successfully!")
	return nil
}

// SeedAdminUser creates the admin profile from ADMIN_EMAIL and ADMIN_PASSWORD
func (s *Seeder) SeedAdminUser() error {
	var count int64
	if err := s.db.Model(&model.Profile{}).Where("role = ?", model.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Admin profile already exists, skipping...")
		return nil
	}

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")

	if adminEmail == "" || adminPassword == "" {
		log.Println("⚠️  ADMIN_EMAIL and ADMIN_PASSWORD environment variables not set, skipping admin creation")
		return nil
	}

	passwordHash, err := auth.HashPassword(adminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &model.Profile{
		Email:        adminEmail,
		PasswordHash: passwordHash,
		FullName:     "System Administrator",
		Role:         model.RoleAdmin,
	}

	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	log.Printf("✅ Created admin profile: %s\n", admin.Email)
	return nil
}

// SeedDemoCourse creates an instructor with one published course: an open
// run, two sections, three lessons and a short quiz
func (s *Seeder) SeedDemoCourse() error {
	var count int64
	if err := s.db.Model(&model.Course{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("⏭️  Courses already exist, skipping...")
		return nil
	}

	password := os.Getenv("DEMO_INSTRUCTOR_PASSWORD")
	if password == "" {
		password = "instructor-demo"
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	limit := 30
	accessEnd := now.AddDate(0, 3, 0)
	applicationEnd := now.AddDate(0, 0, 14)

	return s.db.Transaction(func(tx *gorm.DB) error {
		instructor := model.Profile{
			Email:        DemoInstructorEmail,
			PasswordHash: passwordHash,
			FullName:     "Demo Instructor",
			Role:         model.RoleInstructor,
		}
		if err := tx.Where(model.Profile{Email: instructor.Email}).FirstOrCreate(&instructor).Error; err != nil {
			return err
		}

		title := "Introduction to Laboratory Animal Science"
		course := model.Course{
			InstructorID: instructor.ID,
			Title:        title,
			Slug:         utils.TimestampedSlug(title, now),
			Summary:      "Ethics, handling and welfare basics for new researchers.",
			IsPublished:  true,
		}
		if err := tx.Create(&course).Error; err != nil {
			return err
		}

		run := model.CourseRun{
			CourseID:        course.ID,
			Label:           now.Format("2006-01") + " cohort",
			AccessStart:     now,
			AccessEnd:       &accessEnd,
			ApplicationEnd:  &applicationEnd,
			EnrollmentLimit: &limit,
		}
		if err := tx.Create(&run).Error; err != nil {
			return err
		}

		sections := []model.CourseSection{
			{CourseID: course.ID, Title: "Foundations", OrderIndex: 0},
			{CourseID: course.ID, Title: "Practice", OrderIndex: 1},
		}
		if err := tx.Create(&sections).Error; err != nil {
			return err
		}

		lessons := []model.Lesson{
			{CourseID: course.ID, SectionID: sections[0].ID, Title: "Welcome", VideoURL: "https://www.youtube.com/embed/dQw4w9WgXcQ", OrderIndex: 0, IsPublished: true},
			{CourseID: course.ID, SectionID: sections[0].ID, Title: "The 3R principle", VideoURL: "https://drive.google.com/file/d/demo-3r/preview", OrderIndex: 1, IsPublished: true},
			{CourseID: course.ID, SectionID: sections[1].ID, Title: "Handling basics", VideoURL: "https://drive.google.com/file/d/demo-handling/preview", OrderIndex: 0, IsPublished: true},
		}
		if err := tx.Create(&lessons).Error; err != nil {
			return err
		}

		quiz := model.Quiz{
			LessonID:     lessons[1].ID,
			Title:        "The 3R principle",
			PassingScore: 50,
			Questions: []model.QuizQuestion{
				{
					Prompt:     "Which R stands for using fewer animals?",
					OrderIndex: 0,
					Options: []model.QuizOption{
						{Text: "Reduction", IsCorrect: true},
						{Text: "Refinement"},
						{Text: "Replacement"},
					},
				},
				{
					Prompt:     "Which R improves welfare during procedures?",
					OrderIndex: 1,
					Options: []model.QuizOption{
						{Text: "Reduction"},
						{Text: "Refinement", IsCorrect: true},
					},
				},
			},
		}
		if err := tx.Create(&quiz).Error; err != nil {
			return err
		}

		log.Printf("✅ Created demo course %q (%s) owned by %s\n", course.Title, course.Slug, instructor.Email)
		return nil
	})
}

// RunSeeds is a convenience function to run all seeds
func RunSeeds(db *gorm.DB) error {
	seeder := NewSeeder(db)
	return seeder.SeedAll()
}
