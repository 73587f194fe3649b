package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// Principal is the authenticated caller of an operation.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// CanManage reports whether p may author content owned by ownerID.
func (p Principal) CanManage(ownerID uuid.UUID) bool {
	return p.IsAdmin() || (p.Role == RoleInstructor && p.UserID == ownerID)
}

type Course struct {
	ID           uuid.UUID `json:"id"`
	InstructorID uuid.UUID `json:"instructor_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Price        int64     `json:"price"`
	IsPublished  bool      `json:"is_published"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Lecture struct {
	ID              uuid.UUID `json:"id"`
	CourseID        uuid.UUID `json:"course_id"`
	Title           string    `json:"title"`
	Position        int       `json:"position"`
	DurationSeconds int       `json:"duration_seconds"`
	IsPublished     bool      `json:"is_published"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Enrollment tracks a student's completion of a course. CompletedAt is set
// exactly when Progress is 100.
type Enrollment struct {
	UserID         uuid.UUID  `json:"user_id"`
	CourseID       uuid.UUID  `json:"course_id"`
	Progress       int        `json:"progress"`
	EnrolledAt     time.Time  `json:"enrolled_at"`
	LastAccessedAt time.Time  `json:"last_accessed_at"`
	CompletedAt    *time.Time `json:"completed_at"`
}

type LectureProgress struct {
	UserID          uuid.UUID `json:"user_id"`
	LectureID       uuid.UUID `json:"lecture_id"`
	IsCompleted     bool      `json:"is_completed"`
	ProgressSeconds int       `json:"progress_seconds"`
	LastAccessedAt  time.Time `json:"last_accessed_at"`
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID              uuid.UUID    `json:"id"`
	Code            string       `json:"code"`
	Description     string       `json:"description"`
	DiscountType    DiscountType `json:"discount_type"`
	DiscountValue   int64        `json:"discount_value"`
	MinimumAmount   int64        `json:"minimum_amount"`
	MaximumDiscount *int64       `json:"maximum_discount"`
	UsageLimit      *int         `json:"usage_limit"`
	UsedCount       int          `json:"used_count"`
	ValidFrom       time.Time    `json:"valid_from"`
	ValidUntil      time.Time    `json:"valid_until"`
	IsActive        bool         `json:"is_active"`
	CreatedAt       time.Time    `json:"created_at"`
}

type CouponUsage struct {
	ID             uuid.UUID  `json:"id"`
	CouponID       uuid.UUID  `json:"coupon_id"`
	UserID         uuid.UUID  `json:"user_id"`
	PaymentID      *uuid.UUID `json:"payment_id"`
	DiscountAmount int64      `json:"discount_amount"`
	UsedAt         time.Time  `json:"used_at"`
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
)

type Payment struct {
	ID             uuid.UUID     `json:"id"`
	UserID         uuid.UUID     `json:"user_id"`
	CourseID       uuid.UUID     `json:"course_id"`
	CouponID       *uuid.UUID    `json:"coupon_id"`
	Amount         int64         `json:"amount"`
	DiscountAmount int64         `json:"discount_amount"`
	FinalAmount    int64         `json:"final_amount"`
	Status         PaymentStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	CompletedAt    *time.Time    `json:"completed_at"`
}
