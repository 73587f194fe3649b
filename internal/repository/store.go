package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/azizikri/coursehub/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the set of parameterized statements available both on the pool
// and inside a transaction started by Store.ExecTx.
type Querier interface {
	CreateCourse(ctx context.Context, arg CreateCourseParams) (domain.Course, error)
	GetCourse(ctx context.Context, id uuid.UUID) (domain.Course, error)
	SetCoursePublished(ctx context.Context, id uuid.UUID, published bool, now time.Time) (domain.Course, error)

	CreateLecture(ctx context.Context, arg CreateLectureParams) (domain.Lecture, error)
	GetLecture(ctx context.Context, id uuid.UUID) (domain.Lecture, error)
	SetLecturePublished(ctx context.Context, id uuid.UUID, published bool, now time.Time) (domain.Lecture, error)

	InsertEnrollment(ctx context.Context, arg InsertEnrollmentParams) (int64, error)
	GetEnrollment(ctx context.Context, userID, courseID uuid.UUID) (domain.Enrollment, error)
	ListEnrollmentsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Enrollment, error)
	ListEnrolledUserIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error)
	DeleteEnrollment(ctx context.Context, userID, courseID uuid.UUID) (int64, error)
	UpdateEnrollmentProgress(ctx context.Context, arg UpdateEnrollmentProgressParams) (domain.Enrollment, error)

	UpsertLectureProgress(ctx context.Context, arg UpsertLectureProgressParams) (domain.LectureProgress, error)
	DeleteLectureProgressForCourse(ctx context.Context, userID, courseID uuid.UUID) (int64, error)
	CountPublishedLectures(ctx context.Context, courseID uuid.UUID) (int64, error)
	CountCompletedLectures(ctx context.Context, userID, courseID uuid.UUID) (int64, error)

	CreateCoupon(ctx context.Context, arg CreateCouponParams) (domain.Coupon, error)
	GetCouponByCode(ctx context.Context, code string) (domain.Coupon, error)
	LockCoupon(ctx context.Context, id uuid.UUID) (domain.Coupon, error)
	ListCoupons(ctx context.Context) ([]domain.Coupon, error)
	HasCouponUsage(ctx context.Context, couponID, userID uuid.UUID) (bool, error)
	InsertCouponUsage(ctx context.Context, arg InsertCouponUsageParams) (int64, error)
	IncrementCouponUsage(ctx context.Context, couponID uuid.UUID) (domain.Coupon, error)

	CreatePayment(ctx context.Context, arg CreatePaymentParams) (domain.Payment, error)
	GetPayment(ctx context.Context, id uuid.UUID) (domain.Payment, error)
	LockPayment(ctx context.Context, id uuid.UUID) (domain.Payment, error)
	CompletePayment(ctx context.Context, arg CompletePaymentParams) (domain.Payment, error)
}

// Store runs single statements directly and groups several statements into
// one all-or-nothing unit of work with ExecTx.
type Store interface {
	Querier
	ExecTx(ctx context.Context, fn func(Querier) error) error
}

type store struct {
	*Queries
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) Store {
	return &store{
		Queries: NewQueries(pool),
		pool:    pool,
	}
}

func (s *store) ExecTx(ctx context.Context, fn func(Querier) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	q := s.Queries.WithTx(tx)
	if err := fn(q); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx err: %w, rollback err: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// IsUniqueViolation reports whether err was caused by a unique index.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// UniqueViolation builds the error a unique index reports, for stores that
// emulate Postgres constraints.
func UniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: uniqueViolation, ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

// IsForeignKeyViolation reports whether err references a missing parent row.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}

func ForeignKeyViolation(constraint string) error {
	return &pgconn.PgError{Code: foreignKeyViolation, ConstraintName: constraint, Message: "insert violates foreign key constraint"}
}
