package domain

import "errors"

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("not allowed to perform this action")
	ErrNotFound        = errors.New("resource not found")
	ErrInvalidInput    = errors.New("invalid input")

	ErrNotEnrolled     = errors.New("user is not enrolled in this course")
	ErrAlreadyEnrolled = errors.New("user is already enrolled in this course")
	ErrPaymentRequired = errors.New("course requires payment before enrollment")

	ErrCouponInvalid     = errors.New("invalid or inactive code")
	ErrCouponNotYetValid = errors.New("coupon is not yet valid")
	ErrCouponExpired     = errors.New("coupon has expired")
	ErrCouponUsageLimit  = errors.New("coupon usage limit exceeded")
	ErrBelowMinimum      = errors.New("order amount is below the coupon minimum")
	ErrCouponAlreadyUsed = errors.New("coupon already used")
	ErrDuplicateCoupon   = errors.New("coupon code already exists")

	ErrPaymentNotPending = errors.New("payment is not pending")
)

// IsCouponRejection reports whether err is one of the business rule
// rejections produced while validating or redeeming a coupon.
func IsCouponRejection(err error) bool {
	switch {
	case errors.Is(err, ErrCouponInvalid),
		errors.Is(err, ErrCouponNotYetValid),
		errors.Is(err, ErrCouponExpired),
		errors.Is(err, ErrCouponUsageLimit),
		errors.Is(err, ErrBelowMinimum),
		errors.Is(err, ErrCouponAlreadyUsed):
		return true
	}
	return false
}
