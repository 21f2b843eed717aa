package firestore

import (
	"context"
	"errors"
	"sort"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/oakmart/api/internal/domain"
	pfirestore "github.com/oakmart/api/internal/platform/firestore"
	"github.com/oakmart/api/internal/repositories"
)

// CouponRepository stores coupon documents keyed by their normalised code,
// which makes code uniqueness a document-level guarantee.
type CouponRepository struct {
	base *pfirestore.BaseRepository[couponDocument]
}

var _ repositories.CouponRepository = (*CouponRepository)(nil)

// NewCouponRepository constructs a Firestore-backed coupon repository.
func NewCouponRepository(provider *pfirestore.Provider) (*CouponRepository, error) {
	if provider == nil {
		return nil, errors.New("coupon repository requires firestore provider")
	}
	return &CouponRepository{
		base: pfirestore.NewBaseRepository[couponDocument](provider, couponCollection, nil),
	}, nil
}

// Insert creates the coupon, failing with a conflict when the code exists.
func (r *CouponRepository) Insert(ctx context.Context, coupon domain.Coupon) (domain.Coupon, error) {
	code := normalizeCouponCode(coupon.Code)
	if code == "" {
		return domain.Coupon{}, errors.New("coupon repository: code is required")
	}
	doc := newCouponDocument(coupon)
	if _, err := r.base.Create(ctx, code, doc); err != nil {
		return domain.Coupon{}, err
	}
	return doc.toDomain(code), nil
}

// Update overwrites the coupon document.
func (r *CouponRepository) Update(ctx context.Context, coupon domain.Coupon) error {
	if coupon.ID == "" {
		return errors.New("coupon repository: coupon id is required")
	}
	_, err := r.base.Set(ctx, coupon.ID, newCouponDocument(coupon))
	return err
}

// Delete removes the coupon document.
func (r *CouponRepository) Delete(ctx context.Context, couponID string) error {
	if couponID == "" {
		return errors.New("coupon repository: coupon id is required")
	}
	return r.base.Delete(ctx, couponID)
}

// FindByCode fetches a coupon by its normalised code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (domain.Coupon, error) {
	normalized := normalizeCouponCode(code)
	if normalized == "" {
		return domain.Coupon{}, pfirestore.NewNotFound("coupons.get", errors.New("coupon code is empty"))
	}
	doc, err := r.base.Get(ctx, normalized)
	if err != nil {
		return domain.Coupon{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// FindActiveForUser returns active coupons usable by the user, most recently
// created first. Scope filtering happens after the index query because a
// user-or-global disjunction cannot share an ordering clause.
func (r *CouponRepository) FindActiveForUser(ctx context.Context, userID string) ([]domain.Coupon, error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("isActive", "==", true).OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	var coupons []domain.Coupon
	for _, doc := range docs {
		coupon := doc.Data.toDomain(doc.ID)
		if coupon.UsableBy(userID) {
			coupons = append(coupons, coupon)
		}
	}
	return coupons, nil
}

// FindByOwner returns coupons assigned to the given user.
func (r *CouponRepository) FindByOwner(ctx context.Context, userID string) ([]domain.Coupon, error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("userId", "==", userID)
	})
	if err != nil {
		return nil, err
	}
	coupons := make([]domain.Coupon, 0, len(docs))
	for _, doc := range docs {
		coupons = append(coupons, doc.Data.toDomain(doc.ID))
	}
	sort.SliceStable(coupons, func(i, j int) bool { return coupons[i].CreatedAt.After(coupons[j].CreatedAt) })
	return coupons, nil
}

// List returns every coupon, most recently created first.
func (r *CouponRepository) List(ctx context.Context) ([]domain.Coupon, error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy("createdAt", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	coupons := make([]domain.Coupon, 0, len(docs))
	for _, doc := range docs {
		coupons = append(coupons, doc.Data.toDomain(doc.ID))
	}
	return coupons, nil
}

// DeleteExpired removes coupons whose expiration date passed before cutoff.
func (r *CouponRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("expirationDate", "<", cutoff.UTC())
	})
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, doc := range docs {
		if err := r.base.Delete(ctx, doc.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
