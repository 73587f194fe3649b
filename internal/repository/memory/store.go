// Package memory is an in-process implementation of repository.Store. It
// mirrors the Postgres constraints the services rely on (unique keys,
// conditional updates, not-found as pgx.ErrNoRows) and runs each ExecTx
// serially with rollback to a snapshot.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/azizikri/coursehub/internal/domain"
	"github.com/azizikri/coursehub/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type pairKey struct {
	a, b uuid.UUID
}

type tables struct {
	courses     map[uuid.UUID]domain.Course
	lectures    map[uuid.UUID]domain.Lecture
	enrollments map[pairKey]domain.Enrollment // user, course
	progress    map[pairKey]domain.LectureProgress
	coupons     map[uuid.UUID]domain.Coupon
	usages      map[pairKey]domain.CouponUsage // coupon, user
	payments    map[uuid.UUID]domain.Payment
}

func newTables() *tables {
	return &tables{
		courses:     make(map[uuid.UUID]domain.Course),
		lectures:    make(map[uuid.UUID]domain.Lecture),
		enrollments: make(map[pairKey]domain.Enrollment),
		progress:    make(map[pairKey]domain.LectureProgress),
		coupons:     make(map[uuid.UUID]domain.Coupon),
		usages:      make(map[pairKey]domain.CouponUsage),
		payments:    make(map[uuid.UUID]domain.Payment),
	}
}

func (t *tables) clone() *tables {
	c := newTables()
	for k, v := range t.courses {
		c.courses[k] = v
	}
	for k, v := range t.lectures {
		c.lectures[k] = v
	}
	for k, v := range t.enrollments {
		c.enrollments[k] = v
	}
	for k, v := range t.progress {
		c.progress[k] = v
	}
	for k, v := range t.coupons {
		c.coupons[k] = v
	}
	for k, v := range t.usages {
		c.usages[k] = v
	}
	for k, v := range t.payments {
		c.payments[k] = v
	}
	return c
}

type Store struct {
	mu sync.Mutex
	t  *tables
}

func New() *Store {
	return &Store{t: newTables()}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) ExecTx(ctx context.Context, fn func(repository.Querier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.t.clone()
	if err := fn(s.t); err != nil {
		s.t = snapshot
		return err
	}
	return nil
}

func timePtr(t time.Time) *time.Time { return &t }

func (t *tables) CreateCourse(_ context.Context, arg repository.CreateCourseParams) (domain.Course, error) {
	c := domain.Course{
		ID:           arg.ID,
		InstructorID: arg.InstructorID,
		Title:        arg.Title,
		Description:  arg.Description,
		Price:        arg.Price,
		CreatedAt:    arg.Now,
		UpdatedAt:    arg.Now,
	}
	if _, ok := t.courses[c.ID]; ok {
		return domain.Course{}, repository.UniqueViolation("courses_pkey")
	}
	t.courses[c.ID] = c
	return c, nil
}

func (t *tables) GetCourse(_ context.Context, id uuid.UUID) (domain.Course, error) {
	c, ok := t.courses[id]
	if !ok {
		return domain.Course{}, pgx.ErrNoRows
	}
	return c, nil
}

func (t *tables) SetCoursePublished(_ context.Context, id uuid.UUID, published bool, now time.Time) (domain.Course, error) {
	c, ok := t.courses[id]
	if !ok {
		return domain.Course{}, pgx.ErrNoRows
	}
	c.IsPublished = published
	c.UpdatedAt = now
	t.courses[id] = c
	return c, nil
}

func (t *tables) CreateLecture(_ context.Context, arg repository.CreateLectureParams) (domain.Lecture, error) {
	if _, ok := t.courses[arg.CourseID]; !ok {
		return domain.Lecture{}, repository.ForeignKeyViolation("lectures_course_id_fkey")
	}
	l := domain.Lecture{
		ID:              arg.ID,
		CourseID:        arg.CourseID,
		Title:           arg.Title,
		Position:        arg.Position,
		DurationSeconds: arg.DurationSeconds,
		IsPublished:     arg.IsPublished,
		CreatedAt:       arg.Now,
		UpdatedAt:       arg.Now,
	}
	t.lectures[l.ID] = l
	return l, nil
}

func (t *tables) GetLecture(_ context.Context, id uuid.UUID) (domain.Lecture, error) {
	l, ok := t.lectures[id]
	if !ok {
		return domain.Lecture{}, pgx.ErrNoRows
	}
	return l, nil
}

func (t *tables) SetLecturePublished(_ context.Context, id uuid.UUID, published bool, now time.Time) (domain.Lecture, error) {
	l, ok := t.lectures[id]
	if !ok {
		return domain.Lecture{}, pgx.ErrNoRows
	}
	l.IsPublished = published
	l.UpdatedAt = now
	t.lectures[id] = l
	return l, nil
}

func (t *tables) InsertEnrollment(_ context.Context, arg repository.InsertEnrollmentParams) (int64, error) {
	if _, ok := t.courses[arg.CourseID]; !ok {
		return 0, repository.ForeignKeyViolation("enrollments_course_id_fkey")
	}
	key := pairKey{arg.UserID, arg.CourseID}
	if _, ok := t.enrollments[key]; ok {
		return 0, nil
	}
	t.enrollments[key] = domain.Enrollment{
		UserID:         arg.UserID,
		CourseID:       arg.CourseID,
		EnrolledAt:     arg.Now,
		LastAccessedAt: arg.Now,
	}
	return 1, nil
}

func (t *tables) GetEnrollment(_ context.Context, userID, courseID uuid.UUID) (domain.Enrollment, error) {
	e, ok := t.enrollments[pairKey{userID, courseID}]
	if !ok {
		return domain.Enrollment{}, pgx.ErrNoRows
	}
	return e, nil
}

func (t *tables) ListEnrollmentsByUser(_ context.Context, userID uuid.UUID) ([]domain.Enrollment, error) {
	var items []domain.Enrollment
	for k, e := range t.enrollments {
		if k.a == userID {
			items = append(items, e)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].EnrolledAt.After(items[j].EnrolledAt) })
	return items, nil
}

func (t *tables) ListEnrolledUserIDs(_ context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for k := range t.enrollments {
		if k.b == courseID {
			ids = append(ids, k.a)
		}
	}
	return ids, nil
}

func (t *tables) DeleteEnrollment(_ context.Context, userID, courseID uuid.UUID) (int64, error) {
	key := pairKey{userID, courseID}
	if _, ok := t.enrollments[key]; !ok {
		return 0, nil
	}
	delete(t.enrollments, key)
	return 1, nil
}

func (t *tables) UpdateEnrollmentProgress(_ context.Context, arg repository.UpdateEnrollmentProgressParams) (domain.Enrollment, error) {
	key := pairKey{arg.UserID, arg.CourseID}
	e, ok := t.enrollments[key]
	if !ok {
		return domain.Enrollment{}, pgx.ErrNoRows
	}
	e.Progress = arg.Progress
	switch {
	case arg.Progress != 100:
		e.CompletedAt = nil
	case e.CompletedAt == nil:
		e.CompletedAt = timePtr(arg.Now)
	}
	e.LastAccessedAt = arg.Now
	t.enrollments[key] = e
	return e, nil
}

func (t *tables) UpsertLectureProgress(_ context.Context, arg repository.UpsertLectureProgressParams) (domain.LectureProgress, error) {
	if _, ok := t.lectures[arg.LectureID]; !ok {
		return domain.LectureProgress{}, repository.ForeignKeyViolation("lecture_progress_lecture_id_fkey")
	}
	key := pairKey{arg.UserID, arg.LectureID}
	lp, ok := t.progress[key]
	if !ok {
		lp = domain.LectureProgress{UserID: arg.UserID, LectureID: arg.LectureID}
	}
	lp.IsCompleted = lp.IsCompleted || arg.IsCompleted
	if arg.ProgressSeconds > lp.ProgressSeconds {
		lp.ProgressSeconds = arg.ProgressSeconds
	}
	lp.LastAccessedAt = arg.Now
	t.progress[key] = lp
	return lp, nil
}

func (t *tables) DeleteLectureProgressForCourse(_ context.Context, userID, courseID uuid.UUID) (int64, error) {
	var n int64
	for k := range t.progress {
		if k.a != userID {
			continue
		}
		if l, ok := t.lectures[k.b]; ok && l.CourseID == courseID {
			delete(t.progress, k)
			n++
		}
	}
	return n, nil
}

func (t *tables) CountPublishedLectures(_ context.Context, courseID uuid.UUID) (int64, error) {
	var n int64
	for _, l := range t.lectures {
		if l.CourseID == courseID && l.IsPublished {
			n++
		}
	}
	return n, nil
}

func (t *tables) CountCompletedLectures(_ context.Context, userID, courseID uuid.UUID) (int64, error) {
	var n int64
	for k, lp := range t.progress {
		if k.a != userID || !lp.IsCompleted {
			continue
		}
		if l, ok := t.lectures[k.b]; ok && l.CourseID == courseID && l.IsPublished {
			n++
		}
	}
	return n, nil
}

func (t *tables) CreateCoupon(_ context.Context, arg repository.CreateCouponParams) (domain.Coupon, error) {
	for _, c := range t.coupons {
		if strings.EqualFold(c.Code, arg.Code) {
			return domain.Coupon{}, repository.UniqueViolation("coupons_code_lower_idx")
		}
	}
	c := domain.Coupon{
		ID:              arg.ID,
		Code:            arg.Code,
		Description:     arg.Description,
		DiscountType:    arg.DiscountType,
		DiscountValue:   arg.DiscountValue,
		MinimumAmount:   arg.MinimumAmount,
		MaximumDiscount: arg.MaximumDiscount,
		UsageLimit:      arg.UsageLimit,
		ValidFrom:       arg.ValidFrom,
		ValidUntil:      arg.ValidUntil,
		IsActive:        arg.IsActive,
		CreatedAt:       arg.Now,
	}
	t.coupons[c.ID] = c
	return c, nil
}

func (t *tables) GetCouponByCode(_ context.Context, code string) (domain.Coupon, error) {
	for _, c := range t.coupons {
		if strings.EqualFold(c.Code, code) {
			return c, nil
		}
	}
	return domain.Coupon{}, pgx.ErrNoRows
}

func (t *tables) LockCoupon(_ context.Context, id uuid.UUID) (domain.Coupon, error) {
	c, ok := t.coupons[id]
	if !ok {
		return domain.Coupon{}, pgx.ErrNoRows
	}
	return c, nil
}

func (t *tables) ListCoupons(_ context.Context) ([]domain.Coupon, error) {
	items := make([]domain.Coupon, 0, len(t.coupons))
	for _, c := range t.coupons {
		items = append(items, c)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func (t *tables) HasCouponUsage(_ context.Context, couponID, userID uuid.UUID) (bool, error) {
	_, ok := t.usages[pairKey{couponID, userID}]
	return ok, nil
}

func (t *tables) InsertCouponUsage(_ context.Context, arg repository.InsertCouponUsageParams) (int64, error) {
	if _, ok := t.coupons[arg.CouponID]; !ok {
		return 0, repository.ForeignKeyViolation("coupon_usage_coupon_id_fkey")
	}
	key := pairKey{arg.CouponID, arg.UserID}
	if _, ok := t.usages[key]; ok {
		return 0, nil
	}
	t.usages[key] = domain.CouponUsage{
		ID:             arg.ID,
		CouponID:       arg.CouponID,
		UserID:         arg.UserID,
		PaymentID:      arg.PaymentID,
		DiscountAmount: arg.DiscountAmount,
		UsedAt:         arg.Now,
	}
	return 1, nil
}

func (t *tables) IncrementCouponUsage(_ context.Context, couponID uuid.UUID) (domain.Coupon, error) {
	c, ok := t.coupons[couponID]
	if !ok || (c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit) {
		return domain.Coupon{}, pgx.ErrNoRows
	}
	c.UsedCount++
	t.coupons[couponID] = c
	return c, nil
}

func (t *tables) CreatePayment(_ context.Context, arg repository.CreatePaymentParams) (domain.Payment, error) {
	if _, ok := t.courses[arg.CourseID]; !ok {
		return domain.Payment{}, repository.ForeignKeyViolation("payments_course_id_fkey")
	}
	p := domain.Payment{
		ID:             arg.ID,
		UserID:         arg.UserID,
		CourseID:       arg.CourseID,
		CouponID:       arg.CouponID,
		Amount:         arg.Amount,
		DiscountAmount: arg.DiscountAmount,
		FinalAmount:    arg.FinalAmount,
		Status:         domain.PaymentPending,
		CreatedAt:      arg.Now,
	}
	t.payments[p.ID] = p
	return p, nil
}

func (t *tables) GetPayment(_ context.Context, id uuid.UUID) (domain.Payment, error) {
	p, ok := t.payments[id]
	if !ok {
		return domain.Payment{}, pgx.ErrNoRows
	}
	return p, nil
}

func (t *tables) LockPayment(ctx context.Context, id uuid.UUID) (domain.Payment, error) {
	return t.GetPayment(ctx, id)
}

func (t *tables) CompletePayment(_ context.Context, arg repository.CompletePaymentParams) (domain.Payment, error) {
	p, ok := t.payments[arg.ID]
	if !ok || p.Status != domain.PaymentPending {
		return domain.Payment{}, pgx.ErrNoRows
	}
	p.Status = domain.PaymentCompleted
	p.DiscountAmount = arg.DiscountAmount
	p.FinalAmount = arg.FinalAmount
	p.CompletedAt = timePtr(arg.Now)
	t.payments[p.ID] = p
	return p, nil
}
