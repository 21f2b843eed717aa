package services

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	domain "github.com/oakmart/api/internal/domain"
	"github.com/oakmart/api/internal/repositories"
)

var (
	// ErrCouponInvalidInput indicates a missing or malformed coupon command field.
	ErrCouponInvalidInput = errors.New("coupon input is invalid")
	// ErrCouponNotFound indicates no usable coupon matches the code for this user.
	ErrCouponNotFound = errors.New("coupon not found")
	// ErrCouponExpired indicates the coupon's expiration date has passed.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrCouponCodeExists indicates another coupon already carries the code.
	ErrCouponCodeExists = errors.New("coupon code already exists")
	// ErrCouponUnavailable indicates the coupon store is temporarily unreachable.
	ErrCouponUnavailable = errors.New("coupon store unavailable")
	// ErrCouponDependencyMissing indicates the service was constructed without required dependencies.
	ErrCouponDependencyMissing = errors.New("coupon service dependency missing")
)

const (
	rewardCodePrefix         = "GIFT"
	rewardDiscountPercentage = 10
	rewardValidity           = 30 * 24 * time.Hour
	rewardCodeAttempts       = 3
)

// CouponServiceDeps bundles dependencies required to construct a CouponService implementation.
type CouponServiceDeps struct {
	Coupons repositories.CouponRepository
	Clock   func() time.Time
	// CodeGenerator mints reward coupon codes; defaults to GIFT plus six
	// random alphanumerics.
	CodeGenerator func() string
}

type couponService struct {
	repo    repositories.CouponRepository
	clock   func() time.Time
	newCode func() string
}

// NewCouponService wires a CouponService backed by the provided repository.
func NewCouponService(deps CouponServiceDeps) (CouponService, error) {
	if deps.Coupons == nil {
		return nil, ErrCouponDependencyMissing
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newCode := deps.CodeGenerator
	if newCode == nil {
		newCode = defaultRewardCode
	}
	return &couponService{
		repo:    deps.Coupons,
		clock:   func() time.Time { return clock().UTC() },
		newCode: newCode,
	}, nil
}

func (s *couponService) GetForUser(ctx context.Context, userID string) (*Coupon, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrCouponInvalidInput
	}
	coupons, err := s.repo.FindActiveForUser(ctx, userID)
	if err != nil {
		return nil, translateCouponError(err)
	}
	now := s.clock()
	for _, coupon := range coupons {
		if coupon.Expired(now) {
			continue
		}
		found := coupon
		return &found, nil
	}
	return nil, nil
}

func (s *couponService) Validate(ctx context.Context, code, userID string) (CouponValidation, error) {
	userID = strings.TrimSpace(userID)
	if strings.TrimSpace(code) == "" || userID == "" {
		return CouponValidation{}, ErrCouponInvalidInput
	}

	coupon, err := s.findUsable(ctx, code, userID)
	if err != nil {
		return CouponValidation{}, err
	}
	if !coupon.IsActive {
		return CouponValidation{}, ErrCouponNotFound
	}

	if coupon.Expired(s.clock()) {
		coupon.IsActive = false
		if err := s.repo.Update(ctx, coupon); err != nil {
			return CouponValidation{}, translateCouponError(err)
		}
		return CouponValidation{}, ErrCouponExpired
	}

	return CouponValidation{
		Code:               coupon.Code,
		DiscountPercentage: coupon.DiscountPercentage,
	}, nil
}

// Redeem deactivates the coupon. A coupon that is already inactive redeems
// without error, which makes retried confirmations safe.
func (s *couponService) Redeem(ctx context.Context, code, userID string) error {
	userID = strings.TrimSpace(userID)
	if strings.TrimSpace(code) == "" || userID == "" {
		return ErrCouponInvalidInput
	}

	coupon, err := s.findUsable(ctx, code, userID)
	if err != nil {
		return err
	}
	if !coupon.IsActive {
		return nil
	}
	coupon.IsActive = false
	if err := s.repo.Update(ctx, coupon); err != nil {
		return translateCouponError(err)
	}
	return nil
}

func (s *couponService) IssueReward(ctx context.Context, userID string) (Coupon, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Coupon{}, ErrCouponInvalidInput
	}

	owned, err := s.repo.FindByOwner(ctx, userID)
	if err != nil {
		return Coupon{}, translateCouponError(err)
	}
	for _, coupon := range owned {
		if err := s.repo.Delete(ctx, coupon.ID); err != nil && !isRepoNotFound(err) {
			return Coupon{}, translateCouponError(err)
		}
	}

	now := s.clock()
	var lastErr error
	for attempt := 0; attempt < rewardCodeAttempts; attempt++ {
		coupon := domain.Coupon{
			Code:               s.newCode(),
			DiscountPercentage: rewardDiscountPercentage,
			ExpirationDate:     now.Add(rewardValidity),
			IsActive:           true,
			UserID:             userID,
			CreatedAt:          now,
		}
		created, err := s.repo.Insert(ctx, coupon)
		if err == nil {
			return created, nil
		}
		if !isRepoConflict(err) {
			return Coupon{}, translateCouponError(err)
		}
		lastErr = err
	}
	return Coupon{}, translateCouponError(lastErr)
}

func (s *couponService) Create(ctx context.Context, cmd CreateCouponCommand) (Coupon, error) {
	code := strings.ToUpper(strings.TrimSpace(cmd.Code))
	if code == "" || cmd.DiscountPercentage < 1 || cmd.DiscountPercentage > 100 {
		return Coupon{}, ErrCouponInvalidInput
	}
	now := s.clock()
	if cmd.ExpirationDate.IsZero() || cmd.ExpirationDate.Before(now) {
		return Coupon{}, ErrCouponInvalidInput
	}

	coupon := domain.Coupon{
		Code:               code,
		DiscountPercentage: cmd.DiscountPercentage,
		ExpirationDate:     cmd.ExpirationDate.UTC(),
		IsActive:           true,
		UserID:             strings.TrimSpace(cmd.UserID),
		CreatedAt:          now,
	}
	created, err := s.repo.Insert(ctx, coupon)
	if err != nil {
		if isRepoConflict(err) {
			return Coupon{}, ErrCouponCodeExists
		}
		return Coupon{}, translateCouponError(err)
	}
	return created, nil
}

func (s *couponService) List(ctx context.Context) ([]Coupon, error) {
	coupons, err := s.repo.List(ctx)
	if err != nil {
		return nil, translateCouponError(err)
	}
	return coupons, nil
}

func (s *couponService) Delete(ctx context.Context, couponID string) error {
	couponID = strings.TrimSpace(couponID)
	if couponID == "" {
		return ErrCouponInvalidInput
	}
	if err := s.repo.Delete(ctx, couponID); err != nil {
		if isRepoNotFound(err) {
			return ErrCouponNotFound
		}
		return translateCouponError(err)
	}
	return nil
}

func (s *couponService) SweepExpired(ctx context.Context) (int, error) {
	removed, err := s.repo.DeleteExpired(ctx, s.clock())
	if err != nil {
		return removed, translateCouponError(err)
	}
	return removed, nil
}

func (s *couponService) findUsable(ctx context.Context, code, userID string) (Coupon, error) {
	coupon, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if isRepoNotFound(err) {
			return Coupon{}, ErrCouponNotFound
		}
		return Coupon{}, translateCouponError(err)
	}
	if !coupon.UsableBy(userID) {
		return Coupon{}, ErrCouponNotFound
	}
	return coupon, nil
}

func translateCouponError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsUnavailable() {
		return ErrCouponUnavailable
	}
	return err
}

const rewardCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func defaultRewardCode() string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = rewardCodeAlphabet[rand.Intn(len(rewardCodeAlphabet))]
	}
	return rewardCodePrefix + string(suffix)
}
