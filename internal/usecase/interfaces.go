package usecase

import (
	"context"

	"github.com/azizikri/coursehub/internal/domain"
	"github.com/google/uuid"
)

// Reasons attached to a progress recompute request. They only travel with
// the request for logging.
const (
	ReasonLectureProgress  = "lecture_progress"
	ReasonLectureCreated   = "lecture_created"
	ReasonLecturePublished = "lecture_published"
)

// ProgressDispatcher schedules a progress recompute for one enrollment.
// Dispatch never fails the caller; implementations log their own errors.
type ProgressDispatcher interface {
	Dispatch(ctx context.Context, userID, courseID uuid.UUID, reason string)
}

func requireUser(p domain.Principal) error {
	if p.UserID == uuid.Nil || !p.Role.Valid() {
		return domain.ErrUnauthenticated
	}
	return nil
}

func requireRole(p domain.Principal, roles ...domain.Role) error {
	if err := requireUser(p); err != nil {
		return err
	}
	for _, r := range roles {
		if p.Role == r {
			return nil
		}
	}
	return domain.ErrForbidden
}
