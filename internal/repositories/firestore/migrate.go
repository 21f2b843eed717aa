package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/oakmart/api/internal/domain"
	pfirestore "github.com/oakmart/api/internal/platform/firestore"
)

// Migrate runs idempotent startup maintenance: products missing the keyword
// index or the lowercased name field are backfilled, and coupons past their
// expiration are purged. Safe to run on every boot.
func Migrate(ctx context.Context, provider *pfirestore.Provider) error {
	if provider == nil {
		return errors.New("migrate requires firestore provider")
	}

	if err := backfillProductIndexes(ctx, provider); err != nil {
		return fmt.Errorf("migrate products: %w", err)
	}

	coupons, err := NewCouponRepository(provider)
	if err != nil {
		return err
	}
	if _, err := coupons.DeleteExpired(ctx, time.Now().UTC()); err != nil {
		return fmt.Errorf("migrate coupons: %w", err)
	}
	return nil
}

func backfillProductIndexes(ctx context.Context, provider *pfirestore.Provider) error {
	base := pfirestore.NewBaseRepository[productDocument](provider, productCollection, nil)
	docs, err := base.Query(ctx, nil)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		product := doc.Data.toDomain(doc.ID)
		keywords := domain.SearchTokens(product.Name, product.Description, product.Category)
		nameLower := newProductDocument(product).NameLower
		if doc.Data.NameLower == nameLower && equalTokens(doc.Data.SearchKeywords, keywords) {
			continue
		}
		updates := []firestore.Update{
			{Path: "nameLower", Value: nameLower},
			{Path: "searchKeywords", Value: keywords},
		}
		if _, err := base.Update(ctx, doc.ID, updates); err != nil {
			return err
		}
	}
	return nil
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
