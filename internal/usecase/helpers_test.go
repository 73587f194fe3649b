package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/azizikri/coursehub/internal/domain"
	"github.com/azizikri/coursehub/internal/platform/logger"
	"github.com/azizikri/coursehub/internal/repository"
	"github.com/azizikri/coursehub/internal/repository/memory"
	"github.com/google/uuid"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// recordingDispatcher records dispatches and optionally recomputes inline.
type recordingDispatcher struct {
	mu         sync.Mutex
	aggregator *ProgressAggregator
	calls      []dispatchCall
	results    []RecomputeResult
}

type dispatchCall struct {
	UserID   uuid.UUID
	CourseID uuid.UUID
	Reason   string
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, userID, courseID uuid.UUID, reason string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatchCall{userID, courseID, reason})
	if d.aggregator != nil {
		d.results = append(d.results, d.aggregator.Recompute(ctx, userID, courseID))
	}
}

type fixture struct {
	store       *memory.Store
	dispatcher  *recordingDispatcher
	aggregator  *ProgressAggregator
	courses     *CourseService
	enrollments *EnrollmentService
	coupons     *CouponService
	payments    *PaymentService

	admin      domain.Principal
	instructor domain.Principal
	student    domain.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.NewNop()
	store := memory.New()

	aggregator := NewProgressAggregator(store, log)
	aggregator.now = fixedClock
	dispatcher := &recordingDispatcher{aggregator: aggregator}

	f := &fixture{
		store:       store,
		dispatcher:  dispatcher,
		aggregator:  aggregator,
		courses:     NewCourseService(store, dispatcher, log),
		enrollments: NewEnrollmentService(store, dispatcher, log),
		coupons:     NewCouponService(store, log),
		admin:       domain.Principal{UserID: uuid.New(), Role: domain.RoleAdmin},
		instructor:  domain.Principal{UserID: uuid.New(), Role: domain.RoleInstructor},
		student:     domain.Principal{UserID: uuid.New(), Role: domain.RoleStudent},
	}
	f.payments = NewPaymentService(store, f.coupons, log)
	f.courses.now = fixedClock
	f.enrollments.now = fixedClock
	f.coupons.now = fixedClock
	f.payments.now = fixedClock
	return f
}

func (f *fixture) publishedCourse(t *testing.T, price int64) domain.Course {
	t.Helper()
	ctx := context.Background()
	course, err := f.courses.CreateCourse(ctx, f.instructor, CreateCourseInput{Title: "Go in Practice", Price: price})
	if err != nil {
		t.Fatalf("create course: %v", err)
	}
	course, err = f.courses.SetCoursePublished(ctx, f.instructor, course.ID, true)
	if err != nil {
		t.Fatalf("publish course: %v", err)
	}
	return course
}

func (f *fixture) lectures(t *testing.T, courseID uuid.UUID, n int) []domain.Lecture {
	t.Helper()
	out := make([]domain.Lecture, 0, n)
	for i := 0; i < n; i++ {
		l, err := f.courses.CreateLecture(context.Background(), f.instructor, courseID, CreateLectureInput{
			Title:       "Lecture",
			Position:    i,
			IsPublished: true,
		})
		if err != nil {
			t.Fatalf("create lecture: %v", err)
		}
		out = append(out, l)
	}
	return out
}

func (f *fixture) complete(t *testing.T, p domain.Principal, lectureID uuid.UUID) {
	t.Helper()
	_, err := f.enrollments.RecordLectureProgress(context.Background(), p, lectureID, ReportProgressInput{IsCompleted: true, ProgressSeconds: 60})
	if err != nil {
		t.Fatalf("record progress: %v", err)
	}
}

func (f *fixture) coupon(t *testing.T, in CreateCouponInput) domain.Coupon {
	t.Helper()
	if in.ValidFrom.IsZero() {
		in.ValidFrom = testNow.Add(-24 * time.Hour)
	}
	if in.ValidUntil.IsZero() {
		in.ValidUntil = testNow.Add(24 * time.Hour)
	}
	c, err := f.coupons.CreateCoupon(context.Background(), f.admin, in)
	if err != nil {
		t.Fatalf("create coupon: %v", err)
	}
	return c
}

func int64Ptr(v int64) *int64 { return &v }
func intPtr(v int) *int       { return &v }

// failingStore overrides one query of an otherwise working store.
type failingStore struct {
	repository.Store
	countErr error
}

func (s *failingStore) CountPublishedLectures(ctx context.Context, courseID uuid.UUID) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.Store.CountPublishedLectures(ctx, courseID)
}
