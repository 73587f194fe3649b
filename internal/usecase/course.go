package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/azizikri/coursehub/internal/domain"
	"github.com/azizikri/coursehub/internal/platform/logger"
	"github.com/azizikri/coursehub/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type CreateCourseInput struct {
	Title       string `validate:"required,max=200"`
	Description string `validate:"max=5000"`
	Price       int64  `validate:"gte=0"`
}

type CreateLectureInput struct {
	Title           string `validate:"required,max=200"`
	Position        int    `validate:"gte=0"`
	DurationSeconds int    `validate:"gte=0"`
	IsPublished     bool
}

type CourseService struct {
	store      repository.Store
	dispatcher ProgressDispatcher
	log        *logger.Logger
	now        func() time.Time
}

func NewCourseService(store repository.Store, dispatcher ProgressDispatcher, log *logger.Logger) *CourseService {
	return &CourseService{
		store:      store,
		dispatcher: dispatcher,
		log:        log.With("service", "CourseService"),
		now:        time.Now,
	}
}

func (s *CourseService) CreateCourse(ctx context.Context, p domain.Principal, in CreateCourseInput) (domain.Course, error) {
	if err := requireRole(p, domain.RoleInstructor, domain.RoleAdmin); err != nil {
		return domain.Course{}, err
	}
	if err := validateInput(in); err != nil {
		return domain.Course{}, err
	}

	return s.store.CreateCourse(ctx, repository.CreateCourseParams{
		ID:           uuid.New(),
		InstructorID: p.UserID,
		Title:        in.Title,
		Description:  in.Description,
		Price:        in.Price,
		Now:          s.now(),
	})
}

// GetCourse returns a published course to anyone and an unpublished one only
// to the people who may manage it.
func (s *CourseService) GetCourse(ctx context.Context, p domain.Principal, id uuid.UUID) (domain.Course, error) {
	if err := requireUser(p); err != nil {
		return domain.Course{}, err
	}
	course, err := s.getCourse(ctx, id)
	if err != nil {
		return domain.Course{}, err
	}
	if !course.IsPublished && !p.CanManage(course.InstructorID) {
		return domain.Course{}, domain.ErrNotFound
	}
	return course, nil
}

func (s *CourseService) SetCoursePublished(ctx context.Context, p domain.Principal, id uuid.UUID, published bool) (domain.Course, error) {
	if err := s.authorizeCourse(ctx, p, id); err != nil {
		return domain.Course{}, err
	}
	return s.store.SetCoursePublished(ctx, id, published, s.now())
}

func (s *CourseService) CreateLecture(ctx context.Context, p domain.Principal, courseID uuid.UUID, in CreateLectureInput) (domain.Lecture, error) {
	if err := s.authorizeCourse(ctx, p, courseID); err != nil {
		return domain.Lecture{}, err
	}
	if err := validateInput(in); err != nil {
		return domain.Lecture{}, err
	}

	lecture, err := s.store.CreateLecture(ctx, repository.CreateLectureParams{
		ID:              uuid.New(),
		CourseID:        courseID,
		Title:           in.Title,
		Position:        in.Position,
		DurationSeconds: in.DurationSeconds,
		IsPublished:     in.IsPublished,
		Now:             s.now(),
	})
	if err != nil {
		return domain.Lecture{}, err
	}

	if lecture.IsPublished {
		s.refreshEnrollments(ctx, courseID, ReasonLectureCreated)
	}
	return lecture, nil
}

// SetLecturePublished changes a lecture's visibility. Enrolled students'
// progress is recomputed whenever the set of published lectures changes.
func (s *CourseService) SetLecturePublished(ctx context.Context, p domain.Principal, lectureID uuid.UUID, published bool) (domain.Lecture, error) {
	if err := requireUser(p); err != nil {
		return domain.Lecture{}, err
	}

	lecture, err := s.store.GetLecture(ctx, lectureID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Lecture{}, domain.ErrNotFound
		}
		return domain.Lecture{}, err
	}
	if err := s.authorizeCourse(ctx, p, lecture.CourseID); err != nil {
		return domain.Lecture{}, err
	}
	if lecture.IsPublished == published {
		return lecture, nil
	}

	updated, err := s.store.SetLecturePublished(ctx, lectureID, published, s.now())
	if err != nil {
		return domain.Lecture{}, err
	}

	s.refreshEnrollments(ctx, lecture.CourseID, ReasonLecturePublished)
	return updated, nil
}

func (s *CourseService) authorizeCourse(ctx context.Context, p domain.Principal, courseID uuid.UUID) error {
	if err := requireRole(p, domain.RoleInstructor, domain.RoleAdmin); err != nil {
		return err
	}
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if !p.CanManage(course.InstructorID) {
		return domain.ErrForbidden
	}
	return nil
}

func (s *CourseService) getCourse(ctx context.Context, id uuid.UUID) (domain.Course, error) {
	course, err := s.store.GetCourse(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Course{}, domain.ErrNotFound
		}
		return domain.Course{}, err
	}
	return course, nil
}

func (s *CourseService) refreshEnrollments(ctx context.Context, courseID uuid.UUID, reason string) {
	userIDs, err := s.store.ListEnrolledUserIDs(ctx, courseID)
	if err != nil {
		s.log.Warn("Failed to list enrollments for progress refresh", "course_id", courseID, "error", err)
		return
	}
	for _, userID := range userIDs {
		s.dispatcher.Dispatch(ctx, userID, courseID, reason)
	}
}
