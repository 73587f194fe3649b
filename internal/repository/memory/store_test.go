package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/azizikri/coursehub/internal/domain"
	"github.com/azizikri/coursehub/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)

func seedCourse(t *testing.T, s *Store) domain.Course {
	t.Helper()
	c, err := s.CreateCourse(context.Background(), repository.CreateCourseParams{
		ID:           uuid.New(),
		InstructorID: uuid.New(),
		Title:        "Course",
		Now:          now,
	})
	require.NoError(t, err)
	return c
}

func seedCoupon(t *testing.T, s *Store, code string, limit *int) domain.Coupon {
	t.Helper()
	c, err := s.CreateCoupon(context.Background(), repository.CreateCouponParams{
		ID:            uuid.New(),
		Code:          code,
		DiscountType:  domain.DiscountFixed,
		DiscountValue: 100,
		UsageLimit:    limit,
		ValidFrom:     now,
		ValidUntil:    now.Add(time.Hour),
		IsActive:      true,
		Now:           now,
	})
	require.NoError(t, err)
	return c
}

func TestExecTx_RollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	course := seedCourse(t, s)
	user := uuid.New()

	boom := errors.New("boom")
	err := s.ExecTx(ctx, func(q repository.Querier) error {
		if _, err := q.InsertEnrollment(ctx, repository.InsertEnrollmentParams{UserID: user, CourseID: course.ID, Now: now}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.GetEnrollment(ctx, user, course.ID)
	assert.ErrorIs(t, err, pgx.ErrNoRows)

	err = s.ExecTx(ctx, func(q repository.Querier) error {
		_, err := q.InsertEnrollment(ctx, repository.InsertEnrollmentParams{UserID: user, CourseID: course.ID, Now: now})
		return err
	})
	require.NoError(t, err)
	_, err = s.GetEnrollment(ctx, user, course.ID)
	assert.NoError(t, err)
}

func TestInsertEnrollment_Constraints(t *testing.T) {
	s := New()
	ctx := context.Background()
	course := seedCourse(t, s)
	user := uuid.New()

	_, err := s.InsertEnrollment(ctx, repository.InsertEnrollmentParams{UserID: user, CourseID: uuid.New(), Now: now})
	assert.True(t, repository.IsForeignKeyViolation(err))

	n, err := s.InsertEnrollment(ctx, repository.InsertEnrollmentParams{UserID: user, CourseID: course.ID, Now: now})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.InsertEnrollment(ctx, repository.InsertEnrollmentParams{UserID: user, CourseID: course.ID, Now: now})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdateEnrollmentProgress_CompletedAt(t *testing.T) {
	s := New()
	ctx := context.Background()
	course := seedCourse(t, s)
	user := uuid.New()
	_, err := s.InsertEnrollment(ctx, repository.InsertEnrollmentParams{UserID: user, CourseID: course.ID, Now: now})
	require.NoError(t, err)

	e, err := s.UpdateEnrollmentProgress(ctx, repository.UpdateEnrollmentProgressParams{UserID: user, CourseID: course.ID, Progress: 100, Now: now})
	require.NoError(t, err)
	require.NotNil(t, e.CompletedAt)
	assert.Equal(t, now, *e.CompletedAt)

	later := now.Add(time.Hour)
	e, err = s.UpdateEnrollmentProgress(ctx, repository.UpdateEnrollmentProgressParams{UserID: user, CourseID: course.ID, Progress: 100, Now: later})
	require.NoError(t, err)
	assert.Equal(t, now, *e.CompletedAt, "first completion time is kept")
	assert.Equal(t, later, e.LastAccessedAt)

	e, err = s.UpdateEnrollmentProgress(ctx, repository.UpdateEnrollmentProgressParams{UserID: user, CourseID: course.ID, Progress: 80, Now: later})
	require.NoError(t, err)
	assert.Nil(t, e.CompletedAt)

	_, err = s.UpdateEnrollmentProgress(ctx, repository.UpdateEnrollmentProgressParams{UserID: uuid.New(), CourseID: course.ID, Progress: 10, Now: now})
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestLectureCounts(t *testing.T) {
	s := New()
	ctx := context.Background()
	course := seedCourse(t, s)
	other := seedCourse(t, s)
	user := uuid.New()

	newLecture := func(courseID uuid.UUID, published bool) domain.Lecture {
		l, err := s.CreateLecture(ctx, repository.CreateLectureParams{ID: uuid.New(), CourseID: courseID, Title: "L", IsPublished: published, Now: now})
		require.NoError(t, err)
		return l
	}
	a := newLecture(course.ID, true)
	b := newLecture(course.ID, true)
	draft := newLecture(course.ID, false)
	foreign := newLecture(other.ID, true)

	for _, l := range []domain.Lecture{a, draft, foreign} {
		_, err := s.UpsertLectureProgress(ctx, repository.UpsertLectureProgressParams{UserID: user, LectureID: l.ID, IsCompleted: true, Now: now})
		require.NoError(t, err)
	}
	_, err := s.UpsertLectureProgress(ctx, repository.UpsertLectureProgressParams{UserID: user, LectureID: b.ID, ProgressSeconds: 30, Now: now})
	require.NoError(t, err)

	total, err := s.CountPublishedLectures(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	completed, err := s.CountCompletedLectures(ctx, user, course.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), completed)

	deleted, err := s.DeleteLectureProgressForCourse(ctx, user, course.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	completed, err = s.CountCompletedLectures(ctx, user, other.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), completed, "other course progress survives")
}

func TestCoupons_CodeAndUsage(t *testing.T) {
	s := New()
	ctx := context.Background()
	limit := 1
	c := seedCoupon(t, s, "Welcome", &limit)

	_, err := s.CreateCoupon(ctx, repository.CreateCouponParams{ID: uuid.New(), Code: "WELCOME", Now: now})
	assert.True(t, repository.IsUniqueViolation(err))

	got, err := s.GetCouponByCode(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	user := uuid.New()
	n, err := s.InsertCouponUsage(ctx, repository.InsertCouponUsageParams{ID: uuid.New(), CouponID: c.ID, UserID: user, Now: now})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.InsertCouponUsage(ctx, repository.InsertCouponUsageParams{ID: uuid.New(), CouponID: c.ID, UserID: user, Now: now})
	require.NoError(t, err)
	assert.Zero(t, n)

	used, err := s.HasCouponUsage(ctx, c.ID, user)
	require.NoError(t, err)
	assert.True(t, used)

	updated, err := s.IncrementCouponUsage(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.UsedCount)

	_, err = s.IncrementCouponUsage(ctx, c.ID)
	assert.ErrorIs(t, err, pgx.ErrNoRows, "increment past usage_limit must not match")
}

func TestCompletePayment_OnlyPending(t *testing.T) {
	s := New()
	ctx := context.Background()
	course := seedCourse(t, s)

	p, err := s.CreatePayment(ctx, repository.CreatePaymentParams{ID: uuid.New(), UserID: uuid.New(), CourseID: course.ID, Amount: 1000, FinalAmount: 1000, Now: now})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, p.Status)

	done, err := s.CompletePayment(ctx, repository.CompletePaymentParams{ID: p.ID, FinalAmount: 900, DiscountAmount: 100, Now: now})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentCompleted, done.Status)
	assert.Equal(t, int64(900), done.FinalAmount)

	_, err = s.CompletePayment(ctx, repository.CompletePaymentParams{ID: p.ID, Now: now})
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}
