package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/oakmart/api/internal/domain"
	pfirestore "github.com/oakmart/api/internal/platform/firestore"
	"github.com/oakmart/api/internal/repositories"
)

// CartRepository persists the per-user cart document within Firestore.
// The user ID doubles as the document identifier.
type CartRepository struct {
	base  *pfirestore.BaseRepository[cartDocument]
	clock func() time.Time
}

var _ repositories.CartRepository = (*CartRepository)(nil)

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	return &CartRepository{
		base:  pfirestore.NewBaseRepository[cartDocument](provider, cartCollection, nil),
		clock: func() time.Time { return time.Now().UTC() },
	}, nil
}

// Get fetches the user's cart.
func (r *CartRepository) Get(ctx context.Context, userID string) (domain.Cart, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Cart{}, errors.New("cart repository: user id is required")
	}
	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// ReplaceLines overwrites the cart's lines, creating the document when absent.
func (r *CartRepository) ReplaceLines(ctx context.Context, userID string, lines []domain.CartLine) (domain.Cart, error) {
	if strings.TrimSpace(userID) == "" {
		return domain.Cart{}, errors.New("cart repository: user id is required")
	}

	now := r.clock()
	createdAt := now
	existing, err := r.base.Get(ctx, userID)
	switch {
	case err == nil:
		if !existing.Data.CreatedAt.IsZero() {
			createdAt = existing.Data.CreatedAt
		}
	case isNotFound(err):
	default:
		return domain.Cart{}, err
	}

	doc := cartDocument{
		Lines:     make([]cartLineDocument, 0, len(lines)),
		CreatedAt: createdAt,
		UpdatedAt: now,
	}
	for _, line := range lines {
		addedAt := line.AddedAt
		if addedAt.IsZero() {
			addedAt = now
		}
		doc.Lines = append(doc.Lines, cartLineDocument{
			ProductID:  line.ProductID,
			VariantKey: strings.TrimSpace(line.VariantKey),
			Quantity:   line.Quantity,
			AddedAt:    addedAt.UTC(),
		})
	}

	if _, err := r.base.Set(ctx, userID, doc); err != nil {
		return domain.Cart{}, err
	}
	return doc.toDomain(userID), nil
}

// Delete removes the user's cart document.
func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("cart repository: user id is required")
	}
	return r.base.Delete(ctx, userID)
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
