package memory

import (
	"context"
	"time"

	"github.com/azizikri/coursehub/internal/domain"
	"github.com/azizikri/coursehub/internal/repository"
	"github.com/google/uuid"
)

func (s *Store) CreateCourse(ctx context.Context, arg repository.CreateCourseParams) (domain.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.CreateCourse(ctx, arg)
}

func (s *Store) GetCourse(ctx context.Context, id uuid.UUID) (domain.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.GetCourse(ctx, id)
}

func (s *Store) SetCoursePublished(ctx context.Context, id uuid.UUID, published bool, now time.Time) (domain.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.SetCoursePublished(ctx, id, published, now)
}

func (s *Store) CreateLecture(ctx context.Context, arg repository.CreateLectureParams) (domain.Lecture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.CreateLecture(ctx, arg)
}

func (s *Store) GetLecture(ctx context.Context, id uuid.UUID) (domain.Lecture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.GetLecture(ctx, id)
}

func (s *Store) SetLecturePublished(ctx context.Context, id uuid.UUID, published bool, now time.Time) (domain.Lecture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.SetLecturePublished(ctx, id, published, now)
}

func (s *Store) InsertEnrollment(ctx context.Context, arg repository.InsertEnrollmentParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.InsertEnrollment(ctx, arg)
}

func (s *Store) GetEnrollment(ctx context.Context, userID, courseID uuid.UUID) (domain.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.GetEnrollment(ctx, userID, courseID)
}

func (s *Store) ListEnrollmentsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.ListEnrollmentsByUser(ctx, userID)
}

func (s *Store) ListEnrolledUserIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.ListEnrolledUserIDs(ctx, courseID)
}

func (s *Store) DeleteEnrollment(ctx context.Context, userID, courseID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.DeleteEnrollment(ctx, userID, courseID)
}

func (s *Store) UpdateEnrollmentProgress(ctx context.Context, arg repository.UpdateEnrollmentProgressParams) (domain.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.UpdateEnrollmentProgress(ctx, arg)
}

func (s *Store) UpsertLectureProgress(ctx context.Context, arg repository.UpsertLectureProgressParams) (domain.LectureProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.UpsertLectureProgress(ctx, arg)
}

func (s *Store) DeleteLectureProgressForCourse(ctx context.Context, userID, courseID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.DeleteLectureProgressForCourse(ctx, userID, courseID)
}

func (s *Store) CountPublishedLectures(ctx context.Context, courseID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.CountPublishedLectures(ctx, courseID)
}

func (s *Store) CountCompletedLectures(ctx context.Context, userID, courseID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.CountCompletedLectures(ctx, userID, courseID)
}

func (s *Store) CreateCoupon(ctx context.Context, arg repository.CreateCouponParams) (domain.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.CreateCoupon(ctx, arg)
}

func (s *Store) GetCouponByCode(ctx context.Context, code string) (domain.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.GetCouponByCode(ctx, code)
}

func (s *Store) LockCoupon(ctx context.Context, id uuid.UUID) (domain.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.LockCoupon(ctx, id)
}

func (s *Store) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.ListCoupons(ctx)
}

func (s *Store) HasCouponUsage(ctx context.Context, couponID, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.HasCouponUsage(ctx, couponID, userID)
}

func (s *Store) InsertCouponUsage(ctx context.Context, arg repository.InsertCouponUsageParams) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.InsertCouponUsage(ctx, arg)
}

func (s *Store) IncrementCouponUsage(ctx context.Context, couponID uuid.UUID) (domain.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.IncrementCouponUsage(ctx, couponID)
}

func (s *Store) CreatePayment(ctx context.Context, arg repository.CreatePaymentParams) (domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.CreatePayment(ctx, arg)
}

func (s *Store) GetPayment(ctx context.Context, id uuid.UUID) (domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.GetPayment(ctx, id)
}

func (s *Store) LockPayment(ctx context.Context, id uuid.UUID) (domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.LockPayment(ctx, id)
}

func (s *Store) CompletePayment(ctx context.Context, arg repository.CompletePaymentParams) (domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t.CompletePayment(ctx, arg)
}
