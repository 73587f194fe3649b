package repository

import (
	"context"
	"time"

	"github.com/azizikri/coursehub/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

type CreateCourseParams struct {
	ID           uuid.UUID
	InstructorID uuid.UUID
	Title        string
	Description  string
	Price        int64
	Now          time.Time
}

type CreateLectureParams struct {
	ID              uuid.UUID
	CourseID        uuid.UUID
	Title           string
	Position        int
	DurationSeconds int
	IsPublished     bool
	Now             time.Time
}

type InsertEnrollmentParams struct {
	UserID   uuid.UUID
	CourseID uuid.UUID
	Now      time.Time
}

type UpdateEnrollmentProgressParams struct {
	UserID   uuid.UUID
	CourseID uuid.UUID
	Progress int
	Now      time.Time
}

type UpsertLectureProgressParams struct {
	UserID          uuid.UUID
	LectureID       uuid.UUID
	IsCompleted     bool
	ProgressSeconds int
	Now             time.Time
}

type CreateCouponParams struct {
	ID              uuid.UUID
	Code            string
	Description     string
	DiscountType    domain.DiscountType
	DiscountValue   int64
	MinimumAmount   int64
	MaximumDiscount *int64
	UsageLimit      *int
	ValidFrom       time.Time
	ValidUntil      time.Time
	IsActive        bool
	Now             time.Time
}

type InsertCouponUsageParams struct {
	ID             uuid.UUID
	CouponID       uuid.UUID
	UserID         uuid.UUID
	PaymentID      *uuid.UUID
	DiscountAmount int64
	Now            time.Time
}

type CreatePaymentParams struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	CourseID       uuid.UUID
	CouponID       *uuid.UUID
	Amount         int64
	DiscountAmount int64
	FinalAmount    int64
	Now            time.Time
}

type CompletePaymentParams struct {
	ID             uuid.UUID
	DiscountAmount int64
	FinalAmount    int64
	Now            time.Time
}

const courseColumns = `id, instructor_id, title, description, price, is_published, created_at, updated_at`

func scanCourse(row pgx.Row) (domain.Course, error) {
	var c domain.Course
	err := row.Scan(&c.ID, &c.InstructorID, &c.Title, &c.Description, &c.Price, &c.IsPublished, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const createCourse = `INSERT INTO courses (id, instructor_id, title, description, price, is_published, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, FALSE, $6, $6)
RETURNING ` + courseColumns

func (q *Queries) CreateCourse(ctx context.Context, arg CreateCourseParams) (domain.Course, error) {
	row := q.db.QueryRow(ctx, createCourse, arg.ID, arg.InstructorID, arg.Title, arg.Description, arg.Price, arg.Now)
	return scanCourse(row)
}

const getCourse = `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`

func (q *Queries) GetCourse(ctx context.Context, id uuid.UUID) (domain.Course, error) {
	return scanCourse(q.db.QueryRow(ctx, getCourse, id))
}

const setCoursePublished = `UPDATE courses SET is_published = $2, updated_at = $3 WHERE id = $1
RETURNING ` + courseColumns

func (q *Queries) SetCoursePublished(ctx context.Context, id uuid.UUID, published bool, now time.Time) (domain.Course, error) {
	return scanCourse(q.db.QueryRow(ctx, setCoursePublished, id, published, now))
}

const lectureColumns = `id, course_id, title, position, duration_seconds, is_published, created_at, updated_at`

func scanLecture(row pgx.Row) (domain.Lecture, error) {
	var l domain.Lecture
	err := row.Scan(&l.ID, &l.CourseID, &l.Title, &l.Position, &l.DurationSeconds, &l.IsPublished, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

const createLecture = `INSERT INTO lectures (id, course_id, title, position, duration_seconds, is_published, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
RETURNING ` + lectureColumns

func (q *Queries) CreateLecture(ctx context.Context, arg CreateLectureParams) (domain.Lecture, error) {
	row := q.db.QueryRow(ctx, createLecture, arg.ID, arg.CourseID, arg.Title, arg.Position, arg.DurationSeconds, arg.IsPublished, arg.Now)
	return scanLecture(row)
}

const getLecture = `SELECT ` + lectureColumns + ` FROM lectures WHERE id = $1`

func (q *Queries) GetLecture(ctx context.Context, id uuid.UUID) (domain.Lecture, error) {
	return scanLecture(q.db.QueryRow(ctx, getLecture, id))
}

const setLecturePublished = `UPDATE lectures SET is_published = $2, updated_at = $3 WHERE id = $1
RETURNING ` + lectureColumns

func (q *Queries) SetLecturePublished(ctx context.Context, id uuid.UUID, published bool, now time.Time) (domain.Lecture, error) {
	return scanLecture(q.db.QueryRow(ctx, setLecturePublished, id, published, now))
}

const enrollmentColumns = `user_id, course_id, progress, enrolled_at, last_accessed_at, completed_at`

func scanEnrollment(row pgx.Row) (domain.Enrollment, error) {
	var e domain.Enrollment
	err := row.Scan(&e.UserID, &e.CourseID, &e.Progress, &e.EnrolledAt, &e.LastAccessedAt, &e.CompletedAt)
	return e, err
}

const insertEnrollment = `INSERT INTO enrollments (user_id, course_id, progress, enrolled_at, last_accessed_at)
VALUES ($1, $2, 0, $3, $3)
ON CONFLICT (user_id, course_id) DO NOTHING`

func (q *Queries) InsertEnrollment(ctx context.Context, arg InsertEnrollmentParams) (int64, error) {
	tag, err := q.db.Exec(ctx, insertEnrollment, arg.UserID, arg.CourseID, arg.Now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const getEnrollment = `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id = $1 AND course_id = $2`

func (q *Queries) GetEnrollment(ctx context.Context, userID, courseID uuid.UUID) (domain.Enrollment, error) {
	return scanEnrollment(q.db.QueryRow(ctx, getEnrollment, userID, courseID))
}

const listEnrollmentsByUser = `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id = $1 ORDER BY enrolled_at DESC`

func (q *Queries) ListEnrollmentsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Enrollment, error) {
	rows, err := q.db.Query(ctx, listEnrollmentsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const listEnrolledUserIDs = `SELECT user_id FROM enrollments WHERE course_id = $1`

func (q *Queries) ListEnrolledUserIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.db.Query(ctx, listEnrolledUserIDs, courseID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

const deleteEnrollment = `DELETE FROM enrollments WHERE user_id = $1 AND course_id = $2`

func (q *Queries) DeleteEnrollment(ctx context.Context, userID, courseID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteEnrollment, userID, courseID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// completed_at keeps the first completion time while progress stays at 100.
const updateEnrollmentProgress = `UPDATE enrollments
SET progress = $3,
    completed_at = CASE WHEN $3 = 100 THEN COALESCE(completed_at, $4) ELSE NULL END,
    last_accessed_at = $4
WHERE user_id = $1 AND course_id = $2
RETURNING ` + enrollmentColumns

func (q *Queries) UpdateEnrollmentProgress(ctx context.Context, arg UpdateEnrollmentProgressParams) (domain.Enrollment, error) {
	row := q.db.QueryRow(ctx, updateEnrollmentProgress, arg.UserID, arg.CourseID, arg.Progress, arg.Now)
	return scanEnrollment(row)
}

// Completion is sticky and progress_seconds only moves forward.
const upsertLectureProgress = `INSERT INTO lecture_progress (user_id, lecture_id, is_completed, progress_seconds, last_accessed_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id, lecture_id) DO UPDATE
SET is_completed = lecture_progress.is_completed OR EXCLUDED.is_completed,
    progress_seconds = GREATEST(lecture_progress.progress_seconds, EXCLUDED.progress_seconds),
    last_accessed_at = EXCLUDED.last_accessed_at
RETURNING user_id, lecture_id, is_completed, progress_seconds, last_accessed_at`

func (q *Queries) UpsertLectureProgress(ctx context.Context, arg UpsertLectureProgressParams) (domain.LectureProgress, error) {
	row := q.db.QueryRow(ctx, upsertLectureProgress, arg.UserID, arg.LectureID, arg.IsCompleted, arg.ProgressSeconds, arg.Now)
	var lp domain.LectureProgress
	err := row.Scan(&lp.UserID, &lp.LectureID, &lp.IsCompleted, &lp.ProgressSeconds, &lp.LastAccessedAt)
	return lp, err
}

const deleteLectureProgressForCourse = `DELETE FROM lecture_progress lp
USING lectures l
WHERE lp.lecture_id = l.id AND lp.user_id = $1 AND l.course_id = $2`

func (q *Queries) DeleteLectureProgressForCourse(ctx context.Context, userID, courseID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteLectureProgressForCourse, userID, courseID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const countPublishedLectures = `SELECT COUNT(*) FROM lectures WHERE course_id = $1 AND is_published = TRUE`

func (q *Queries) CountPublishedLectures(ctx context.Context, courseID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countPublishedLectures, courseID).Scan(&n)
	return n, err
}

const countCompletedLectures = `SELECT COUNT(*)
FROM lecture_progress lp
JOIN lectures l ON l.id = lp.lecture_id
WHERE lp.user_id = $1 AND l.course_id = $2 AND l.is_published = TRUE AND lp.is_completed = TRUE`

func (q *Queries) CountCompletedLectures(ctx context.Context, userID, courseID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countCompletedLectures, userID, courseID).Scan(&n)
	return n, err
}

const couponColumns = `id, code, description, discount_type, discount_value, minimum_amount, maximum_discount,
usage_limit, used_count, valid_from, valid_until, is_active, created_at`

func scanCoupon(row pgx.Row) (domain.Coupon, error) {
	var c domain.Coupon
	err := row.Scan(&c.ID, &c.Code, &c.Description, &c.DiscountType, &c.DiscountValue, &c.MinimumAmount, &c.MaximumDiscount,
		&c.UsageLimit, &c.UsedCount, &c.ValidFrom, &c.ValidUntil, &c.IsActive, &c.CreatedAt)
	return c, err
}

const createCoupon = `INSERT INTO coupons (id, code, description, discount_type, discount_value, minimum_amount,
maximum_discount, usage_limit, used_count, valid_from, valid_until, is_active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10, $11, $12)
RETURNING ` + couponColumns

func (q *Queries) CreateCoupon(ctx context.Context, arg CreateCouponParams) (domain.Coupon, error) {
	row := q.db.QueryRow(ctx, createCoupon, arg.ID, arg.Code, arg.Description, string(arg.DiscountType), arg.DiscountValue,
		arg.MinimumAmount, arg.MaximumDiscount, arg.UsageLimit, arg.ValidFrom, arg.ValidUntil, arg.IsActive, arg.Now)
	return scanCoupon(row)
}

const getCouponByCode = `SELECT ` + couponColumns + ` FROM coupons WHERE LOWER(code) = LOWER($1)`

func (q *Queries) GetCouponByCode(ctx context.Context, code string) (domain.Coupon, error) {
	return scanCoupon(q.db.QueryRow(ctx, getCouponByCode, code))
}

const lockCoupon = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1 FOR UPDATE`

func (q *Queries) LockCoupon(ctx context.Context, id uuid.UUID) (domain.Coupon, error) {
	return scanCoupon(q.db.QueryRow(ctx, lockCoupon, id))
}

const listCoupons = `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC`

func (q *Queries) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	rows, err := q.db.Query(ctx, listCoupons)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const hasCouponUsage = `SELECT EXISTS (SELECT 1 FROM coupon_usage WHERE coupon_id = $1 AND user_id = $2)`

func (q *Queries) HasCouponUsage(ctx context.Context, couponID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, hasCouponUsage, couponID, userID).Scan(&exists)
	return exists, err
}

const insertCouponUsage = `INSERT INTO coupon_usage (id, coupon_id, user_id, payment_id, discount_amount, used_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (coupon_id, user_id) DO NOTHING`

func (q *Queries) InsertCouponUsage(ctx context.Context, arg InsertCouponUsageParams) (int64, error) {
	tag, err := q.db.Exec(ctx, insertCouponUsage, arg.ID, arg.CouponID, arg.UserID, arg.PaymentID, arg.DiscountAmount, arg.Now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const incrementCouponUsage = `UPDATE coupons SET used_count = used_count + 1
WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)
RETURNING ` + couponColumns

func (q *Queries) IncrementCouponUsage(ctx context.Context, couponID uuid.UUID) (domain.Coupon, error) {
	return scanCoupon(q.db.QueryRow(ctx, incrementCouponUsage, couponID))
}

const paymentColumns = `id, user_id, course_id, coupon_id, amount, discount_amount, final_amount, status, created_at, completed_at`

func scanPayment(row pgx.Row) (domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(&p.ID, &p.UserID, &p.CourseID, &p.CouponID, &p.Amount, &p.DiscountAmount, &p.FinalAmount,
		&p.Status, &p.CreatedAt, &p.CompletedAt)
	return p, err
}

const createPayment = `INSERT INTO payments (id, user_id, course_id, coupon_id, amount, discount_amount, final_amount, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', $8)
RETURNING ` + paymentColumns

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (domain.Payment, error) {
	row := q.db.QueryRow(ctx, createPayment, arg.ID, arg.UserID, arg.CourseID, arg.CouponID, arg.Amount,
		arg.DiscountAmount, arg.FinalAmount, arg.Now)
	return scanPayment(row)
}

const getPayment = `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

func (q *Queries) GetPayment(ctx context.Context, id uuid.UUID) (domain.Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getPayment, id))
}

const lockPayment = getPayment + ` FOR UPDATE`

func (q *Queries) LockPayment(ctx context.Context, id uuid.UUID) (domain.Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, lockPayment, id))
}

const completePayment = `UPDATE payments
SET status = 'completed', discount_amount = $2, final_amount = $3, completed_at = $4
WHERE id = $1 AND status = 'pending'
RETURNING ` + paymentColumns

func (q *Queries) CompletePayment(ctx context.Context, arg CompletePaymentParams) (domain.Payment, error) {
	row := q.db.QueryRow(ctx, completePayment, arg.ID, arg.DiscountAmount, arg.FinalAmount, arg.Now)
	return scanPayment(row)
}
