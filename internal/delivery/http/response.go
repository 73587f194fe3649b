package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/azizikri/coursehub/internal/domain"
	"github.com/azizikri/coursehub/internal/platform/logger"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

type errorMapping struct {
	err    error
	status int
	code   string
}

// First match wins.
var errorMappings = []errorMapping{
	{domain.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{domain.ErrNotEnrolled, http.StatusForbidden, "not_enrolled"},
	{domain.ErrAlreadyEnrolled, http.StatusConflict, "already_enrolled"},
	{domain.ErrPaymentRequired, http.StatusPaymentRequired, "payment_required"},
	{domain.ErrCouponInvalid, http.StatusBadRequest, "coupon_invalid"},
	{domain.ErrCouponNotYetValid, http.StatusBadRequest, "coupon_not_yet_valid"},
	{domain.ErrCouponExpired, http.StatusBadRequest, "coupon_expired"},
	{domain.ErrCouponUsageLimit, http.StatusBadRequest, "coupon_usage_limit"},
	{domain.ErrBelowMinimum, http.StatusBadRequest, "coupon_below_minimum"},
	{domain.ErrCouponAlreadyUsed, http.StatusBadRequest, "coupon_already_used"},
	{domain.ErrDuplicateCoupon, http.StatusConflict, "duplicate_coupon"},
	{domain.ErrPaymentNotPending, http.StatusConflict, "payment_not_pending"},
}

func statusFor(err error) (int, string, bool) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code, true
		}
	}
	return http.StatusInternalServerError, "internal_error", false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorEnvelope{Error: APIError{Message: message, Code: code}})
}

// respondError maps a service error to its status. Unmapped errors are
// logged and hidden behind a generic 500; coupon rejections are logged at
// info level.
func respondError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	status, code, known := statusFor(err)
	if !known {
		log.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, status, code, "internal server error")
		return
	}
	if domain.IsCouponRejection(err) {
		log.Info("Coupon rejected", "method", r.Method, "path", r.URL.Path, "code", code)
	}
	writeError(w, status, code, err.Error())
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return nil
}
