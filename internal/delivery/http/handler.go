package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/azizikri/coursehub/internal/domain"
	"github.com/azizikri/coursehub/internal/platform/logger"
	"github.com/azizikri/coursehub/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type CreateCourseRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Price       int64  `json:"price" validate:"gte=0"`
}

type PublishRequest struct {
	IsPublished *bool `json:"is_published" validate:"required"`
}

type CreateLectureRequest struct {
	Title           string `json:"title" validate:"required"`
	Position        int    `json:"position" validate:"gte=0"`
	DurationSeconds int    `json:"duration_seconds" validate:"gte=0"`
	IsPublished     bool   `json:"is_published"`
}

type LectureProgressRequest struct {
	IsCompleted     bool `json:"is_completed"`
	ProgressSeconds int  `json:"progress_seconds" validate:"gte=0"`
}

type CreateCouponRequest struct {
	Code            string    `json:"code" validate:"required"`
	Description     string    `json:"description"`
	DiscountType    string    `json:"discount_type" validate:"required,oneof=percentage fixed"`
	DiscountValue   int64     `json:"discount_value" validate:"gt=0"`
	MinimumAmount   int64     `json:"minimum_amount" validate:"gte=0"`
	MaximumDiscount *int64    `json:"maximum_discount"`
	UsageLimit      *int      `json:"usage_limit"`
	ValidFrom       time.Time `json:"valid_from" validate:"required"`
	ValidUntil      time.Time `json:"valid_until" validate:"required"`
	IsActive        *bool     `json:"is_active"`
}

type ValidateCouponRequest struct {
	Code   string `json:"code" validate:"required"`
	Amount int64  `json:"amount" validate:"gte=0"`
}

type CreatePaymentRequest struct {
	CourseID   string `json:"course_id" validate:"required,uuid"`
	CouponCode string `json:"coupon_code"`
}

type CouponQuoteResponse struct {
	CouponID       uuid.UUID `json:"coupon_id"`
	Code           string    `json:"code"`
	Amount         int64     `json:"amount"`
	DiscountAmount int64     `json:"discount_amount"`
	FinalAmount    int64     `json:"final_amount"`
}

type RedemptionResponse struct {
	CouponID       uuid.UUID `json:"coupon_id"`
	UsageID        uuid.UUID `json:"usage_id"`
	DiscountAmount int64     `json:"discount_amount"`
	FinalAmount    int64     `json:"final_amount"`
	UsedCount      int       `json:"used_count"`
}

type PaymentReceiptResponse struct {
	Payment    domain.Payment      `json:"payment"`
	Enrollment domain.Enrollment   `json:"enrollment"`
	Redemption *RedemptionResponse `json:"redemption,omitempty"`
}

type Services struct {
	Courses     *usecase.CourseService
	Enrollments *usecase.EnrollmentService
	Coupons     *usecase.CouponService
	Payments    *usecase.PaymentService
}

type Handler struct {
	svc      Services
	limiter  *RateLimiter
	validate *validator.Validate
	log      *logger.Logger
}

// NewHandler wires the services behind the API. limiter may be nil.
func NewHandler(svc Services, limiter *RateLimiter, log *logger.Logger) *Handler {
	return &Handler{
		svc:      svc,
		limiter:  limiter,
		validate: validator.New(),
		log:      log.With("component", "HTTPHandler"),
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(Authenticate)
		if h.limiter != nil {
			r.Use(h.limiter.Middleware)
		}

		r.Post("/courses", h.CreateCourse)
		r.Get("/courses/{courseID}", h.GetCourse)
		r.Patch("/courses/{courseID}/publish", h.SetCoursePublished)
		r.Post("/courses/{courseID}/lectures", h.CreateLecture)
		r.Patch("/lectures/{lectureID}/publish", h.SetLecturePublished)
		r.Post("/lectures/{lectureID}/progress", h.RecordLectureProgress)

		r.Post("/courses/{courseID}/enrollment", h.Enroll)
		r.Get("/courses/{courseID}/enrollment", h.GetEnrollment)
		r.Delete("/courses/{courseID}/enrollment", h.Unenroll)
		r.Get("/enrollments", h.ListEnrollments)

		r.Post("/coupons", h.CreateCoupon)
		r.Get("/coupons", h.ListCoupons)
		r.Post("/coupons/validate", h.ValidateCoupon)

		r.Post("/payments", h.CreatePayment)
		r.Get("/payments/{paymentID}", h.GetPayment)
		r.Post("/payments/{paymentID}/complete", h.CompletePayment)
	})
}

func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req CreateCourseRequest
	if !h.bind(w, r, &req) {
		return
	}
	course, err := h.svc.Courses.CreateCourse(r.Context(), principal(r), usecase.CreateCourseInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
	})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, course)
}

func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "courseID")
	if !ok {
		return
	}
	course, err := h.svc.Courses.GetCourse(r.Context(), principal(r), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (h *Handler) SetCoursePublished(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "courseID")
	if !ok {
		return
	}
	var req PublishRequest
	if !h.bind(w, r, &req) {
		return
	}
	course, err := h.svc.Courses.SetCoursePublished(r.Context(), principal(r), id, *req.IsPublished)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (h *Handler) CreateLecture(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathUUID(w, r, "courseID")
	if !ok {
		return
	}
	var req CreateLectureRequest
	if !h.bind(w, r, &req) {
		return
	}
	lecture, err := h.svc.Courses.CreateLecture(r.Context(), principal(r), courseID, usecase.CreateLectureInput{
		Title:           req.Title,
		Position:        req.Position,
		DurationSeconds: req.DurationSeconds,
		IsPublished:     req.IsPublished,
	})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, lecture)
}

func (h *Handler) SetLecturePublished(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "lectureID")
	if !ok {
		return
	}
	var req PublishRequest
	if !h.bind(w, r, &req) {
		return
	}
	lecture, err := h.svc.Courses.SetLecturePublished(r.Context(), principal(r), id, *req.IsPublished)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, lecture)
}

func (h *Handler) RecordLectureProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "lectureID")
	if !ok {
		return
	}
	var req LectureProgressRequest
	if !h.bind(w, r, &req) {
		return
	}
	lp, err := h.svc.Enrollments.RecordLectureProgress(r.Context(), principal(r), id, usecase.ReportProgressInput{
		IsCompleted:     req.IsCompleted,
		ProgressSeconds: req.ProgressSeconds,
	})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, lp)
}

func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathUUID(w, r, "courseID")
	if !ok {
		return
	}
	enrollment, err := h.svc.Enrollments.Enroll(r.Context(), principal(r), courseID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, enrollment)
}

func (h *Handler) GetEnrollment(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathUUID(w, r, "courseID")
	if !ok {
		return
	}
	enrollment, err := h.svc.Enrollments.GetEnrollment(r.Context(), principal(r), courseID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, enrollment)
}

func (h *Handler) Unenroll(w http.ResponseWriter, r *http.Request) {
	courseID, ok := pathUUID(w, r, "courseID")
	if !ok {
		return
	}
	if err := h.svc.Enrollments.Unenroll(r.Context(), principal(r), courseID); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListEnrollments(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Enrollments.ListEnrollments(r.Context(), principal(r))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if items == nil {
		items = []domain.Enrollment{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req CreateCouponRequest
	if !h.bind(w, r, &req) {
		return
	}
	coupon, err := h.svc.Coupons.CreateCoupon(r.Context(), principal(r), usecase.CreateCouponInput{
		Code:            req.Code,
		Description:     req.Description,
		DiscountType:    domain.DiscountType(req.DiscountType),
		DiscountValue:   req.DiscountValue,
		MinimumAmount:   req.MinimumAmount,
		MaximumDiscount: req.MaximumDiscount,
		UsageLimit:      req.UsageLimit,
		ValidFrom:       req.ValidFrom,
		ValidUntil:      req.ValidUntil,
		IsActive:        req.IsActive,
	})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, coupon)
}

func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Coupons.ListCoupons(r.Context(), principal(r))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	if items == nil {
		items = []domain.Coupon{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req ValidateCouponRequest
	if !h.bind(w, r, &req) {
		return
	}
	quote, err := h.svc.Coupons.Validate(r.Context(), principal(r), req.Code, req.Amount)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, CouponQuoteResponse{
		CouponID:       quote.Coupon.ID,
		Code:           quote.Coupon.Code,
		Amount:         quote.Amount,
		DiscountAmount: quote.DiscountAmount,
		FinalAmount:    quote.FinalAmount,
	})
}

func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if !h.bind(w, r, &req) {
		return
	}
	payment, err := h.svc.Payments.CreatePayment(r.Context(), principal(r), usecase.CreatePaymentInput{
		CourseID:   uuid.MustParse(req.CourseID),
		CouponCode: req.CouponCode,
	})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "paymentID")
	if !ok {
		return
	}
	payment, err := h.svc.Payments.GetPayment(r.Context(), principal(r), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (h *Handler) CompletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "paymentID")
	if !ok {
		return
	}
	receipt, err := h.svc.Payments.CompletePayment(r.Context(), principal(r), id)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	resp := PaymentReceiptResponse{Payment: receipt.Payment, Enrollment: receipt.Enrollment}
	if rd := receipt.Redemption; rd != nil {
		resp.Redemption = &RedemptionResponse{
			CouponID:       rd.CouponID,
			UsageID:        rd.UsageID,
			DiscountAmount: rd.DiscountAmount,
			FinalAmount:    rd.FinalAmount,
			UsedCount:      rd.UsedCount,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// bind decodes and validates the body, writing a 400 on failure.
func (h *Handler) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(r, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", fmt.Sprintf("%s: %v", domain.ErrInvalidInput, err))
		return false
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", fmt.Sprintf("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

func principal(r *http.Request) domain.Principal {
	p, _ := PrincipalFrom(r.Context())
	return p
}
