package usecase

import (
	"time"

	"github.com/azizikri/coursehub/internal/domain"
)

// CouponQuote is the priced result of applying a coupon to an order amount.
type CouponQuote struct {
	Coupon         domain.Coupon
	Amount         int64
	DiscountAmount int64
	FinalAmount    int64
}

// ComputeDiscount prices a coupon against amount. Percentage discounts are
// floored and capped by MaximumDiscount; no discount exceeds the amount.
func ComputeDiscount(c domain.Coupon, amount int64) int64 {
	if amount <= 0 {
		return 0
	}

	var discount int64
	switch c.DiscountType {
	case domain.DiscountPercentage:
		// floor(amount*v/100) split by quotient and remainder so large
		// amounts cannot overflow.
		discount = amount/100*c.DiscountValue + amount%100*c.DiscountValue/100
		if c.MaximumDiscount != nil && discount > *c.MaximumDiscount {
			discount = *c.MaximumDiscount
		}
	case domain.DiscountFixed:
		discount = c.DiscountValue
	}

	if discount < 0 {
		return 0
	}
	return min(discount, amount)
}

// EvaluateCoupon checks an existing coupon in rule order (active, validity
// window, usage limit, minimum amount, previous use by this user) and prices
// it. The first failing rule decides the rejection.
func EvaluateCoupon(c domain.Coupon, amount int64, alreadyUsed bool, now time.Time) (CouponQuote, error) {
	if !c.IsActive {
		return CouponQuote{}, domain.ErrCouponInvalid
	}
	if now.Before(c.ValidFrom) {
		return CouponQuote{}, domain.ErrCouponNotYetValid
	}
	if now.After(c.ValidUntil) {
		return CouponQuote{}, domain.ErrCouponExpired
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return CouponQuote{}, domain.ErrCouponUsageLimit
	}
	if amount < c.MinimumAmount {
		return CouponQuote{}, domain.ErrBelowMinimum
	}
	if alreadyUsed {
		return CouponQuote{}, domain.ErrCouponAlreadyUsed
	}

	discount := ComputeDiscount(c, amount)
	return CouponQuote{
		Coupon:         c,
		Amount:         amount,
		DiscountAmount: discount,
		FinalAmount:    amount - discount,
	}, nil
}
