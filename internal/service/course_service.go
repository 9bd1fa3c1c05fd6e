package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/opencursus/cursus-api/internal/models"
	appErrors "github.com/opencursus/cursus-api/pkg/errors"
)

type courseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	List(ctx context.Context, category models.CourseCategory, publishedOnly bool) ([]models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	FindLessonByID(ctx context.Context, id string) (*models.Lesson, error)
	ListLessons(ctx context.Context, courseID string) ([]models.Lesson, error)
	CreateLesson(ctx context.Context, lesson *models.Lesson) error
	DeleteLesson(ctx context.Context, lessonID, courseID string) error
	ListQuestions(ctx context.Context, lessonID string) ([]models.Question, error)
	CreateQuestion(ctx context.Context, question *models.Question) error
}

// CourseService manages the catalog: courses grouped into category lineups,
// their lessons and questions.
type CourseService struct {
	repo      courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs the service.
func NewCourseService(repo courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &CourseService{repo: repo, validator: validate, logger: logger}
	svc.validator.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		switch models.CourseCategory(strings.ToLower(fl.Field().String())) {
		case models.CategoryBasics, models.CategoryCongresses, models.CategoryAccs:
			return true
		default:
			return false
		}
	})
	return svc
}

// List returns courses, restricted to published ones for non-managers.
func (s *CourseService) List(ctx context.Context, category models.CourseCategory, caps models.Capabilities) ([]models.Course, error) {
	if category != "" && !validCategory(category) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown category")
	}
	courses, err := s.repo.List(ctx, category, !caps.CanManageCourses)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, nil
}

// Get returns one course. Unpublished courses are hidden from non-managers.
func (s *CourseService) Get(ctx context.Context, id string, caps models.Capabilities) (*models.Course, error) {
	course, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !course.Published && !caps.CanManageCourses {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return course, nil
}

// CreateCourseRequest describes a new course.
type CreateCourseRequest struct {
	Title      string `json:"title" validate:"required"`
	Slug       string `json:"slug" validate:"required"`
	Category   string `json:"category" validate:"required,category"`
	Published  bool   `json:"published"`
	PriceCents int64  `json:"price_cents" validate:"gte=0"`
}

// Create registers a course at the end of its category lineup.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	course := &models.Course{
		Title:      req.Title,
		Slug:       req.Slug,
		Category:   models.CourseCategory(strings.ToLower(req.Category)),
		Published:  req.Published,
		PriceCents: req.PriceCents,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return course, nil
}

// UpdateCourseRequest describes mutable course fields.
type UpdateCourseRequest struct {
	Title      string `json:"title" validate:"required"`
	Slug       string `json:"slug" validate:"required"`
	Published  bool   `json:"published"`
	PriceCents int64  `json:"price_cents" validate:"gte=0"`
}

// Update modifies a course. Category and position are fixed at creation.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	course, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	course.Title = req.Title
	course.Slug = req.Slug
	course.Published = req.Published
	course.PriceCents = req.PriceCents
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// ListLessons returns the course's lessons in order.
func (s *CourseService) ListLessons(ctx context.Context, courseID string) ([]models.Lesson, error) {
	if _, err := s.find(ctx, courseID); err != nil {
		return nil, err
	}
	lessons, err := s.repo.ListLessons(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}
	return lessons, nil
}

// AddLesson appends a lesson to a course.
func (s *CourseService) AddLesson(ctx context.Context, courseID, title string) (*models.Lesson, error) {
	if title == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lesson title is required")
	}
	if _, err := s.find(ctx, courseID); err != nil {
		return nil, err
	}
	lesson := &models.Lesson{CourseID: courseID, Title: title}
	if err := s.repo.CreateLesson(ctx, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson")
	}
	return lesson, nil
}

// RemoveLesson deletes a lesson and its questions.
func (s *CourseService) RemoveLesson(ctx context.Context, lessonID string) error {
	lesson, err := s.repo.FindLessonByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	if err := s.repo.DeleteLesson(ctx, lessonID, lesson.CourseID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete lesson")
	}
	return nil
}

// ListQuestions returns the lesson's questions in order.
func (s *CourseService) ListQuestions(ctx context.Context, lessonID string) ([]models.Question, error) {
	if _, err := s.repo.FindLessonByID(ctx, lessonID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	questions, err := s.repo.ListQuestions(ctx, lessonID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list questions")
	}
	return questions, nil
}

// AddQuestion appends a question to a lesson.
func (s *CourseService) AddQuestion(ctx context.Context, lessonID, prompt string) (*models.Question, error) {
	if prompt == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "question prompt is required")
	}
	if _, err := s.repo.FindLessonByID(ctx, lessonID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load lesson")
	}
	question := &models.Question{LessonID: lessonID, Prompt: prompt}
	if err := s.repo.CreateQuestion(ctx, question); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create question")
	}
	return question, nil
}

func (s *CourseService) find(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

func validCategory(category models.CourseCategory) bool {
	for _, c := range models.Categories {
		if c == category {
			return true
		}
	}
	return false
}
