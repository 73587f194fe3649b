package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/azizikri/coursehub/internal/domain"
	"github.com/azizikri/coursehub/internal/platform/logger"
	"github.com/azizikri/coursehub/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type CreatePaymentInput struct {
	CourseID   uuid.UUID `validate:"required"`
	CouponCode string    `validate:"max=64"`
}

// PaymentReceipt is returned when a payment completes.
type PaymentReceipt struct {
	Payment    domain.Payment
	Enrollment domain.Enrollment
	Redemption *Redemption
}

type PaymentService struct {
	store   repository.Store
	coupons *CouponService
	log     *logger.Logger
	now     func() time.Time
}

func NewPaymentService(store repository.Store, coupons *CouponService, log *logger.Logger) *PaymentService {
	return &PaymentService{
		store:   store,
		coupons: coupons,
		log:     log.With("service", "PaymentService"),
		now:     time.Now,
	}
}

// CreatePayment opens a pending payment for a paid course. A coupon code is
// only previewed here; it is redeemed when the payment completes.
func (s *PaymentService) CreatePayment(ctx context.Context, p domain.Principal, in CreatePaymentInput) (domain.Payment, error) {
	if err := requireUser(p); err != nil {
		return domain.Payment{}, err
	}
	if err := validateInput(in); err != nil {
		return domain.Payment{}, err
	}

	course, err := s.store.GetCourse(ctx, in.CourseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Payment{}, domain.ErrNotFound
		}
		return domain.Payment{}, err
	}
	if !course.IsPublished {
		return domain.Payment{}, domain.ErrNotFound
	}
	if course.Price == 0 {
		return domain.Payment{}, fmt.Errorf("%w: course is free, enroll directly", domain.ErrInvalidInput)
	}

	if _, err := s.store.GetEnrollment(ctx, p.UserID, course.ID); err == nil {
		return domain.Payment{}, domain.ErrAlreadyEnrolled
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, err
	}

	arg := repository.CreatePaymentParams{
		ID:          uuid.New(),
		UserID:      p.UserID,
		CourseID:    course.ID,
		Amount:      course.Price,
		FinalAmount: course.Price,
		Now:         s.now(),
	}

	if code := strings.TrimSpace(in.CouponCode); code != "" {
		quote, err := s.coupons.Validate(ctx, p, code, course.Price)
		if err != nil {
			return domain.Payment{}, err
		}
		arg.CouponID = &quote.Coupon.ID
		arg.DiscountAmount = quote.DiscountAmount
		arg.FinalAmount = quote.FinalAmount
	}

	payment, err := s.store.CreatePayment(ctx, arg)
	if err != nil {
		return domain.Payment{}, err
	}

	s.log.Info("Payment created", "payment_id", payment.ID, "user_id", p.UserID, "course_id", course.ID, "final_amount", payment.FinalAmount)
	return payment, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, p domain.Principal, id uuid.UUID) (domain.Payment, error) {
	if err := requireUser(p); err != nil {
		return domain.Payment{}, err
	}
	payment, err := s.store.GetPayment(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Payment{}, domain.ErrNotFound
		}
		return domain.Payment{}, err
	}
	if payment.UserID != p.UserID && !p.IsAdmin() {
		return domain.Payment{}, domain.ErrNotFound
	}
	return payment, nil
}

// CompletePayment confirms a pending payment. Coupon redemption, the payment
// status change and the enrollment commit together or not at all.
func (s *PaymentService) CompletePayment(ctx context.Context, p domain.Principal, id uuid.UUID) (PaymentReceipt, error) {
	if err := requireUser(p); err != nil {
		return PaymentReceipt{}, err
	}

	var receipt PaymentReceipt
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		now := s.now()

		payment, err := q.LockPayment(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("lock payment: %w", err)
		}
		if payment.UserID != p.UserID && !p.IsAdmin() {
			return domain.ErrNotFound
		}
		if payment.Status != domain.PaymentPending {
			return domain.ErrPaymentNotPending
		}

		discount, final := int64(0), payment.Amount
		if payment.CouponID != nil {
			r, err := redeemTx(ctx, q, *payment.CouponID, payment.UserID, &payment.ID, payment.Amount, now)
			if err != nil {
				return err
			}
			discount, final = r.DiscountAmount, r.FinalAmount
			receipt.Redemption = &r
		}

		completed, err := q.CompletePayment(ctx, repository.CompletePaymentParams{
			ID:             payment.ID,
			DiscountAmount: discount,
			FinalAmount:    final,
			Now:            now,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrPaymentNotPending
			}
			return fmt.Errorf("complete payment: %w", err)
		}

		// A second pending payment for the same course must not be charged.
		enrollment, created, err := enroll(ctx, q, payment.UserID, payment.CourseID, now)
		if err != nil {
			return err
		}
		if !created {
			return domain.ErrAlreadyEnrolled
		}

		receipt.Payment = completed
		receipt.Enrollment = enrollment
		return nil
	})
	if err != nil {
		return PaymentReceipt{}, err
	}

	s.log.Info("Payment completed", "payment_id", id, "user_id", receipt.Payment.UserID, "final_amount", receipt.Payment.FinalAmount)
	return receipt, nil
}
