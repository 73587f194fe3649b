package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/azizikri/coursehub/internal/domain"
	"github.com/azizikri/coursehub/internal/repository"
	"github.com/azizikri/coursehub/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// txStore hands ExecTx callbacks a querier with selected methods replaced.
type txStore struct {
	*memory.Store
	incrementErr error
}

func (s *txStore) ExecTx(ctx context.Context, fn func(repository.Querier) error) error {
	return s.Store.ExecTx(ctx, func(q repository.Querier) error {
		return fn(&txQuerier{Querier: q, incrementErr: s.incrementErr})
	})
}

type txQuerier struct {
	repository.Querier
	incrementErr error
}

func (q *txQuerier) IncrementCouponUsage(ctx context.Context, couponID uuid.UUID) (domain.Coupon, error) {
	if q.incrementErr != nil {
		return domain.Coupon{}, q.incrementErr
	}
	return q.Querier.IncrementCouponUsage(ctx, couponID)
}

func TestCreateCoupon_Success(t *testing.T) {
	f := newFixture(t)

	c := f.coupon(t, CreateCouponInput{
		Code:            "  SPRING20 ",
		DiscountType:    domain.DiscountPercentage,
		DiscountValue:   20,
		MaximumDiscount: int64Ptr(50000),
	})

	assert.Equal(t, "SPRING20", c.Code)
	assert.True(t, c.IsActive)
	assert.Equal(t, 0, c.UsedCount)
}

func TestCreateCoupon_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := func() CreateCouponInput {
		return CreateCouponInput{
			Code:          "WELCOME",
			DiscountType:  domain.DiscountFixed,
			DiscountValue: 1000,
			ValidFrom:     testNow,
			ValidUntil:    testNow.Add(time.Hour),
		}
	}

	_, err := f.coupons.CreateCoupon(ctx, f.student, base())
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.coupons.CreateCoupon(ctx, domain.Principal{}, base())
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	in := base()
	in.DiscountType = domain.DiscountPercentage
	in.DiscountValue = 101
	_, err = f.coupons.CreateCoupon(ctx, f.admin, in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	in = base()
	in.MaximumDiscount = int64Ptr(10)
	_, err = f.coupons.CreateCoupon(ctx, f.admin, in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	in = base()
	in.ValidUntil = in.ValidFrom.Add(-time.Second)
	_, err = f.coupons.CreateCoupon(ctx, f.admin, in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	in = base()
	in.DiscountType = "bogo"
	_, err = f.coupons.CreateCoupon(ctx, f.admin, in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateCoupon_DuplicateCodeIgnoresCase(t *testing.T) {
	f := newFixture(t)
	f.coupon(t, CreateCouponInput{Code: "Summer", DiscountType: domain.DiscountFixed, DiscountValue: 500})

	_, err := f.coupons.CreateCoupon(context.Background(), f.admin, CreateCouponInput{
		Code:          "SUMMER",
		DiscountType:  domain.DiscountFixed,
		DiscountValue: 700,
		ValidFrom:     testNow,
		ValidUntil:    testNow.Add(time.Hour),
	})
	if !errors.Is(err, domain.ErrDuplicateCoupon) {
		t.Fatalf("expected ErrDuplicateCoupon, got %v", err)
	}
}

func TestValidate_PreviewDoesNotConsume(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.coupon(t, CreateCouponInput{
		Code:            "spring20",
		DiscountType:    domain.DiscountPercentage,
		DiscountValue:   20,
		MaximumDiscount: int64Ptr(50000),
		UsageLimit:      intPtr(1),
	})

	for i := 0; i < 3; i++ {
		quote, err := f.coupons.Validate(ctx, f.student, "SPRING20", 1000000)
		require.NoError(t, err)
		assert.Equal(t, c.ID, quote.Coupon.ID)
		assert.Equal(t, int64(50000), quote.DiscountAmount)
		assert.Equal(t, int64(950000), quote.FinalAmount)
	}

	stored, err := f.store.GetCouponByCode(ctx, "spring20")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.UsedCount)
}

func TestValidate_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.coupon(t, CreateCouponInput{
		Code:          "OLD",
		DiscountType:  domain.DiscountFixed,
		DiscountValue: 500,
		ValidFrom:     testNow.Add(-48 * time.Hour),
		ValidUntil:    testNow.Add(-24 * time.Hour),
	})
	f.coupon(t, CreateCouponInput{
		Code:          "BIGSPEND",
		DiscountType:  domain.DiscountFixed,
		DiscountValue: 500,
		MinimumAmount: 10000,
	})

	_, err := f.coupons.Validate(ctx, f.student, "nope", 1000)
	assert.ErrorIs(t, err, domain.ErrCouponInvalid)

	_, err = f.coupons.Validate(ctx, f.student, "   ", 1000)
	assert.ErrorIs(t, err, domain.ErrCouponInvalid)

	_, err = f.coupons.Validate(ctx, f.student, "old", 1000000)
	assert.ErrorIs(t, err, domain.ErrCouponExpired)

	_, err = f.coupons.Validate(ctx, f.student, "bigspend", 9999)
	assert.ErrorIs(t, err, domain.ErrBelowMinimum)

	_, err = f.coupons.Validate(ctx, f.student, "bigspend", -1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRedeem_TwiceBySameUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.coupon(t, CreateCouponInput{Code: "ONCE", DiscountType: domain.DiscountFixed, DiscountValue: 1500})

	r, err := f.coupons.Redeem(ctx, c.ID, f.student.UserID, uuid.New(), 10000)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), r.DiscountAmount)
	assert.Equal(t, int64(8500), r.FinalAmount)
	assert.Equal(t, 1, r.UsedCount)

	_, err = f.coupons.Redeem(ctx, c.ID, f.student.UserID, uuid.New(), 10000)
	assert.ErrorIs(t, err, domain.ErrCouponAlreadyUsed)

	stored, err := f.store.GetCouponByCode(ctx, "ONCE")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsedCount)

	_, err = f.coupons.Validate(ctx, f.student, "once", 10000)
	assert.ErrorIs(t, err, domain.ErrCouponAlreadyUsed)
}

func TestRedeem_UsageLimitReached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.coupon(t, CreateCouponInput{Code: "TWO", DiscountType: domain.DiscountFixed, DiscountValue: 100, UsageLimit: intPtr(2)})

	for i := 0; i < 2; i++ {
		_, err := f.coupons.Redeem(ctx, c.ID, uuid.New(), uuid.New(), 1000)
		require.NoError(t, err)
	}
	_, err := f.coupons.Redeem(ctx, c.ID, uuid.New(), uuid.New(), 1000)
	assert.ErrorIs(t, err, domain.ErrCouponUsageLimit)
}

func TestRedeem_ConcurrentUsersSingleUse(t *testing.T) {
	f := newFixture(t)
	c := f.coupon(t, CreateCouponInput{Code: "FLASH", DiscountType: domain.DiscountFixed, DiscountValue: 100, UsageLimit: intPtr(1)})

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		limited   int
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := f.coupons.Redeem(context.Background(), c.ID, uuid.New(), uuid.New(), 1000)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrCouponUsageLimit):
				limited++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, limited)

	stored, err := f.store.GetCouponByCode(context.Background(), "flash")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsedCount)
}

func TestRedeem_ConcurrentSameUser(t *testing.T) {
	f := newFixture(t)
	c := f.coupon(t, CreateCouponInput{Code: "MINE", DiscountType: domain.DiscountFixed, DiscountValue: 100})
	user := uuid.New()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.coupons.Redeem(context.Background(), c.ID, user, uuid.New(), 1000)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrCouponAlreadyUsed)
	}
	assert.Equal(t, 1, ok)
}

func TestRedeem_RollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.coupon(t, CreateCouponInput{Code: "ATOMIC", DiscountType: domain.DiscountFixed, DiscountValue: 100})

	boom := errors.New("disk full")
	store := &txStore{Store: f.store, incrementErr: boom}
	svc := NewCouponService(store, f.coupons.log)
	svc.now = fixedClock

	_, err := svc.Redeem(ctx, c.ID, f.student.UserID, uuid.New(), 1000)
	require.ErrorIs(t, err, boom)

	used, err := f.store.HasCouponUsage(ctx, c.ID, f.student.UserID)
	require.NoError(t, err)
	assert.False(t, used, "usage row must be rolled back")

	store.incrementErr = nil
	r, err := svc.Redeem(ctx, c.ID, f.student.UserID, uuid.New(), 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, r.UsedCount)
}

func TestRedeem_UnknownCoupon(t *testing.T) {
	f := newFixture(t)
	_, err := f.coupons.Redeem(context.Background(), uuid.New(), f.student.UserID, uuid.New(), 1000)
	assert.ErrorIs(t, err, domain.ErrCouponInvalid)
}
