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
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var validate = validator.New()

func validateInput(in interface{}) error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

type CreateCouponInput struct {
	Code            string              `validate:"required,min=3,max=64"`
	Description     string              `validate:"max=500"`
	DiscountType    domain.DiscountType `validate:"required,oneof=percentage fixed"`
	DiscountValue   int64               `validate:"gt=0"`
	MinimumAmount   int64               `validate:"gte=0"`
	MaximumDiscount *int64              `validate:"omitempty,gt=0"`
	UsageLimit      *int                `validate:"omitempty,gt=0"`
	ValidFrom       time.Time           `validate:"required"`
	ValidUntil      time.Time           `validate:"required,gtefield=ValidFrom"`
	IsActive        *bool
}

// Redemption is the committed use of a coupon against a payment.
type Redemption struct {
	CouponID       uuid.UUID
	UsageID        uuid.UUID
	DiscountAmount int64
	FinalAmount    int64
	UsedCount      int
}

type CouponService struct {
	store repository.Store
	log   *logger.Logger
	now   func() time.Time
}

func NewCouponService(store repository.Store, log *logger.Logger) *CouponService {
	return &CouponService{
		store: store,
		log:   log.With("service", "CouponService"),
		now:   time.Now,
	}
}

func (s *CouponService) CreateCoupon(ctx context.Context, p domain.Principal, in CreateCouponInput) (domain.Coupon, error) {
	if err := requireRole(p, domain.RoleAdmin); err != nil {
		return domain.Coupon{}, err
	}

	in.Code = strings.TrimSpace(in.Code)
	if err := validateInput(in); err != nil {
		return domain.Coupon{}, err
	}
	if in.DiscountType == domain.DiscountPercentage && in.DiscountValue > 100 {
		return domain.Coupon{}, fmt.Errorf("%w: percentage discount cannot exceed 100", domain.ErrInvalidInput)
	}
	if in.DiscountType == domain.DiscountFixed && in.MaximumDiscount != nil {
		return domain.Coupon{}, fmt.Errorf("%w: maximum discount only applies to percentage coupons", domain.ErrInvalidInput)
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	coupon, err := s.store.CreateCoupon(ctx, repository.CreateCouponParams{
		ID:              uuid.New(),
		Code:            in.Code,
		Description:     in.Description,
		DiscountType:    in.DiscountType,
		DiscountValue:   in.DiscountValue,
		MinimumAmount:   in.MinimumAmount,
		MaximumDiscount: in.MaximumDiscount,
		UsageLimit:      in.UsageLimit,
		ValidFrom:       in.ValidFrom,
		ValidUntil:      in.ValidUntil,
		IsActive:        active,
		Now:             s.now(),
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return domain.Coupon{}, domain.ErrDuplicateCoupon
		}
		return domain.Coupon{}, err
	}

	s.log.Info("Coupon created", "coupon_id", coupon.ID, "code", coupon.Code)
	return coupon, nil
}

func (s *CouponService) ListCoupons(ctx context.Context, p domain.Principal) ([]domain.Coupon, error) {
	if err := requireRole(p, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.store.ListCoupons(ctx)
}

// Validate previews a coupon for the caller without recording any use.
func (s *CouponService) Validate(ctx context.Context, p domain.Principal, code string, amount int64) (CouponQuote, error) {
	if err := requireUser(p); err != nil {
		return CouponQuote{}, err
	}
	if amount < 0 {
		return CouponQuote{}, fmt.Errorf("%w: amount must not be negative", domain.ErrInvalidInput)
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return CouponQuote{}, domain.ErrCouponInvalid
	}

	coupon, err := s.store.GetCouponByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CouponQuote{}, domain.ErrCouponInvalid
		}
		return CouponQuote{}, err
	}

	used, err := s.store.HasCouponUsage(ctx, coupon.ID, p.UserID)
	if err != nil {
		return CouponQuote{}, err
	}
	return EvaluateCoupon(coupon, amount, used, s.now())
}

// Redeem commits one use of the coupon by userID for paymentID. Every rule is
// checked again under the coupon row lock; any failure rolls the unit back.
func (s *CouponService) Redeem(ctx context.Context, couponID, userID, paymentID uuid.UUID, amount int64) (Redemption, error) {
	var r Redemption
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		var err error
		r, err = redeemTx(ctx, q, couponID, userID, &paymentID, amount, s.now())
		return err
	})
	if err != nil {
		return Redemption{}, err
	}

	s.log.Info("Coupon redeemed", "coupon_id", couponID, "user_id", userID, "payment_id", paymentID, "discount", r.DiscountAmount)
	return r, nil
}

func redeemTx(ctx context.Context, q repository.Querier, couponID, userID uuid.UUID, paymentID *uuid.UUID, amount int64, now time.Time) (Redemption, error) {
	coupon, err := q.LockCoupon(ctx, couponID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Redemption{}, domain.ErrCouponInvalid
		}
		return Redemption{}, fmt.Errorf("lock coupon: %w", err)
	}

	used, err := q.HasCouponUsage(ctx, couponID, userID)
	if err != nil {
		return Redemption{}, fmt.Errorf("check coupon usage: %w", err)
	}

	quote, err := EvaluateCoupon(coupon, amount, used, now)
	if err != nil {
		return Redemption{}, err
	}

	usageID := uuid.New()
	rows, err := q.InsertCouponUsage(ctx, repository.InsertCouponUsageParams{
		ID:             usageID,
		CouponID:       couponID,
		UserID:         userID,
		PaymentID:      paymentID,
		DiscountAmount: quote.DiscountAmount,
		Now:            now,
	})
	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return Redemption{}, domain.ErrNotFound
		}
		return Redemption{}, fmt.Errorf("insert coupon usage: %w", err)
	}
	if rows == 0 {
		return Redemption{}, domain.ErrCouponAlreadyUsed
	}

	updated, err := q.IncrementCouponUsage(ctx, couponID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Redemption{}, domain.ErrCouponUsageLimit
		}
		return Redemption{}, fmt.Errorf("increment coupon usage: %w", err)
	}

	return Redemption{
		CouponID:       couponID,
		UsageID:        usageID,
		DiscountAmount: quote.DiscountAmount,
		FinalAmount:    quote.FinalAmount,
		UsedCount:      updated.UsedCount,
	}, nil
}
