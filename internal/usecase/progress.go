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

// RecomputeResult is the outcome of a progress recompute. A non-nil Err means
// the failure has already been logged and the enrollment was left untouched.
type RecomputeResult struct {
	UserID     uuid.UUID
	CourseID   uuid.UUID
	Enrollment domain.Enrollment
	Err        error
}

func (r RecomputeResult) OK() bool { return r.Err == nil }

// CalculateProgress returns 100*completed/total rounded half up, or 0 for a
// course without published lectures.
func CalculateProgress(completed, total int64) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	if completed > total {
		completed = total
	}
	return int((200*completed + total) / (2 * total))
}

type ProgressAggregator struct {
	store repository.Store
	log   *logger.Logger
	now   func() time.Time
}

func NewProgressAggregator(store repository.Store, log *logger.Logger) *ProgressAggregator {
	return &ProgressAggregator{
		store: store,
		log:   log.With("service", "ProgressAggregator"),
		now:   time.Now,
	}
}

// Recompute rebuilds the enrollment's progress from the course's published
// lectures and the user's completed lecture progress.
func (a *ProgressAggregator) Recompute(ctx context.Context, userID, courseID uuid.UUID) RecomputeResult {
	res := RecomputeResult{UserID: userID, CourseID: courseID}

	enrollment, err := a.recompute(ctx, userID, courseID)
	if err != nil {
		a.log.Warn("Progress recompute failed", "user_id", userID, "course_id", courseID, "error", err)
		res.Err = err
		return res
	}

	res.Enrollment = enrollment
	a.log.Debug("Progress recomputed", "user_id", userID, "course_id", courseID, "progress", enrollment.Progress)
	return res
}

func (a *ProgressAggregator) recompute(ctx context.Context, userID, courseID uuid.UUID) (domain.Enrollment, error) {
	total, err := a.store.CountPublishedLectures(ctx, courseID)
	if err != nil {
		return domain.Enrollment{}, fmt.Errorf("count published lectures: %w", err)
	}

	completed, err := a.store.CountCompletedLectures(ctx, userID, courseID)
	if err != nil {
		return domain.Enrollment{}, fmt.Errorf("count completed lectures: %w", err)
	}

	enrollment, err := a.store.UpdateEnrollmentProgress(ctx, repository.UpdateEnrollmentProgressParams{
		UserID:   userID,
		CourseID: courseID,
		Progress: CalculateProgress(completed, total),
		Now:      a.now(),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Enrollment{}, domain.ErrNotEnrolled
		}
		return domain.Enrollment{}, fmt.Errorf("update enrollment progress: %w", err)
	}
	return enrollment, nil
}
