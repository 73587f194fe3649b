package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/azizikri/coursehub/internal/domain"
	"github.com/azizikri/coursehub/internal/platform/logger"
	"github.com/azizikri/coursehub/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ReportProgressInput struct {
	IsCompleted     bool
	ProgressSeconds int `validate:"gte=0"`
}

type EnrollmentService struct {
	store      repository.Store
	dispatcher ProgressDispatcher
	log        *logger.Logger
	now        func() time.Time
}

func NewEnrollmentService(store repository.Store, dispatcher ProgressDispatcher, log *logger.Logger) *EnrollmentService {
	return &EnrollmentService{
		store:      store,
		dispatcher: dispatcher,
		log:        log.With("service", "EnrollmentService"),
		now:        time.Now,
	}
}

// Enroll adds the caller to a published free course. Paid courses are
// enrolled by completing a payment.
func (s *EnrollmentService) Enroll(ctx context.Context, p domain.Principal, courseID uuid.UUID) (domain.Enrollment, error) {
	if err := requireUser(p); err != nil {
		return domain.Enrollment{}, err
	}

	course, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Enrollment{}, domain.ErrNotFound
		}
		return domain.Enrollment{}, err
	}
	if !course.IsPublished {
		return domain.Enrollment{}, domain.ErrNotFound
	}
	if course.Price > 0 {
		return domain.Enrollment{}, domain.ErrPaymentRequired
	}

	var enrollment domain.Enrollment
	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		e, created, err := enroll(ctx, q, p.UserID, courseID, s.now())
		if err != nil {
			return err
		}
		if !created {
			return domain.ErrAlreadyEnrolled
		}
		enrollment = e
		return nil
	})
	if err != nil {
		return domain.Enrollment{}, err
	}

	s.log.Info("User enrolled", "user_id", p.UserID, "course_id", courseID)
	return enrollment, nil
}

func enroll(ctx context.Context, q repository.Querier, userID, courseID uuid.UUID, now time.Time) (domain.Enrollment, bool, error) {
	rows, err := q.InsertEnrollment(ctx, repository.InsertEnrollmentParams{
		UserID:   userID,
		CourseID: courseID,
		Now:      now,
	})
	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return domain.Enrollment{}, false, domain.ErrNotFound
		}
		return domain.Enrollment{}, false, fmt.Errorf("insert enrollment: %w", err)
	}

	enrollment, err := q.GetEnrollment(ctx, userID, courseID)
	if err != nil {
		return domain.Enrollment{}, false, fmt.Errorf("get enrollment: %w", err)
	}
	return enrollment, rows > 0, nil
}

// Unenroll removes the enrollment together with the caller's lecture
// progress for the course.
func (s *EnrollmentService) Unenroll(ctx context.Context, p domain.Principal, courseID uuid.UUID) error {
	if err := requireUser(p); err != nil {
		return err
	}

	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		if _, err := q.DeleteLectureProgressForCourse(ctx, p.UserID, courseID); err != nil {
			return fmt.Errorf("delete lecture progress: %w", err)
		}
		rows, err := q.DeleteEnrollment(ctx, p.UserID, courseID)
		if err != nil {
			return fmt.Errorf("delete enrollment: %w", err)
		}
		if rows == 0 {
			return domain.ErrNotEnrolled
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("User unenrolled", "user_id", p.UserID, "course_id", courseID)
	return nil
}

func (s *EnrollmentService) GetEnrollment(ctx context.Context, p domain.Principal, courseID uuid.UUID) (domain.Enrollment, error) {
	if err := requireUser(p); err != nil {
		return domain.Enrollment{}, err
	}
	enrollment, err := s.store.GetEnrollment(ctx, p.UserID, courseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Enrollment{}, domain.ErrNotEnrolled
		}
		return domain.Enrollment{}, err
	}
	return enrollment, nil
}

func (s *EnrollmentService) ListEnrollments(ctx context.Context, p domain.Principal) ([]domain.Enrollment, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	return s.store.ListEnrollmentsByUser(ctx, p.UserID)
}

// RecordLectureProgress upserts the caller's progress on a published lecture
// and schedules a recompute of the course progress.
func (s *EnrollmentService) RecordLectureProgress(ctx context.Context, p domain.Principal, lectureID uuid.UUID, in ReportProgressInput) (domain.LectureProgress, error) {
	if err := requireUser(p); err != nil {
		return domain.LectureProgress{}, err
	}
	if err := validateInput(in); err != nil {
		return domain.LectureProgress{}, err
	}

	lecture, err := s.store.GetLecture(ctx, lectureID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.LectureProgress{}, domain.ErrNotFound
		}
		return domain.LectureProgress{}, err
	}
	if !lecture.IsPublished {
		return domain.LectureProgress{}, domain.ErrNotFound
	}

	if _, err := s.store.GetEnrollment(ctx, p.UserID, lecture.CourseID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.LectureProgress{}, domain.ErrNotEnrolled
		}
		return domain.LectureProgress{}, err
	}

	lp, err := s.store.UpsertLectureProgress(ctx, repository.UpsertLectureProgressParams{
		UserID:          p.UserID,
		LectureID:       lectureID,
		IsCompleted:     in.IsCompleted,
		ProgressSeconds: in.ProgressSeconds,
		Now:             s.now(),
	})
	if err != nil {
		return domain.LectureProgress{}, err
	}

	s.dispatcher.Dispatch(ctx, p.UserID, lecture.CourseID, ReasonLectureProgress)
	return lp, nil
}
