package firestore

import (
	"strings"
	"time"

	domain "github.com/oakmart/api/internal/domain"
)

const (
	productCollection = "products"
	cartCollection    = "carts"
	couponCollection  = "coupons"
	orderCollection   = "orders"
)

type variantDocument struct {
	ID    string `firestore:"id"`
	SKU   string `firestore:"sku"`
	Color string `firestore:"color,omitempty"`
	Size  string `firestore:"size,omitempty"`
	Price *int64 `firestore:"price,omitempty"`
	Stock int    `firestore:"stock"`
	Image string `firestore:"image,omitempty"`
}

type productDocument struct {
	Name           string            `firestore:"name"`
	NameLower      string            `firestore:"nameLower"`
	Description    string            `firestore:"description,omitempty"`
	Price          int64             `firestore:"price"`
	Image          string            `firestore:"image,omitempty"`
	Category       string            `firestore:"category,omitempty"`
	Stock          *int              `firestore:"stock,omitempty"`
	IsFeatured     bool              `firestore:"isFeatured"`
	Variants       []variantDocument `firestore:"variants,omitempty"`
	SearchKeywords []string          `firestore:"searchKeywords,omitempty"`
	CreatedAt      time.Time         `firestore:"createdAt"`
	UpdatedAt      time.Time         `firestore:"updatedAt"`
}

func newProductDocument(product domain.Product) productDocument {
	doc := productDocument{
		Name:           strings.TrimSpace(product.Name),
		Description:    strings.TrimSpace(product.Description),
		Price:          product.Price,
		Image:          strings.TrimSpace(product.Image),
		Category:       strings.TrimSpace(product.Category),
		Stock:          product.Stock,
		IsFeatured:     product.IsFeatured,
		SearchKeywords: product.SearchKeywords,
		CreatedAt:      product.CreatedAt.UTC(),
		UpdatedAt:      product.UpdatedAt.UTC(),
	}
	doc.NameLower = strings.ToLower(doc.Name)
	for _, variant := range product.Variants {
		doc.Variants = append(doc.Variants, variantDocument{
			ID:    variant.ID,
			SKU:   variant.SKU,
			Color: variant.Color,
			Size:  variant.Size,
			Price: variant.Price,
			Stock: variant.Stock,
			Image: variant.Image,
		})
	}
	return doc
}

func (d productDocument) toDomain(id string) domain.Product {
	product := domain.Product{
		ID:             id,
		Name:           d.Name,
		Description:    d.Description,
		Price:          d.Price,
		Image:          d.Image,
		Category:       d.Category,
		Stock:          d.Stock,
		IsFeatured:     d.IsFeatured,
		SearchKeywords: d.SearchKeywords,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	for _, variant := range d.Variants {
		product.Variants = append(product.Variants, domain.Variant{
			ID:    variant.ID,
			SKU:   variant.SKU,
			Color: variant.Color,
			Size:  variant.Size,
			Price: variant.Price,
			Stock: variant.Stock,
			Image: variant.Image,
		})
	}
	return product
}

type cartLineDocument struct {
	ProductID  string    `firestore:"productId"`
	VariantKey string    `firestore:"variantKey,omitempty"`
	Quantity   int       `firestore:"quantity"`
	AddedAt    time.Time `firestore:"addedAt"`
}

type cartDocument struct {
	Lines     []cartLineDocument `firestore:"lines"`
	CreatedAt time.Time          `firestore:"createdAt"`
	UpdatedAt time.Time          `firestore:"updatedAt"`
}

func (d cartDocument) toDomain(userID string) domain.Cart {
	cart := domain.Cart{
		UserID:    userID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for _, line := range d.Lines {
		cart.Lines = append(cart.Lines, domain.CartLine{
			ProductID:  line.ProductID,
			VariantKey: line.VariantKey,
			Quantity:   line.Quantity,
			AddedAt:    line.AddedAt,
		})
	}
	return cart
}

type couponDocument struct {
	Code               string    `firestore:"code"`
	DiscountPercentage int       `firestore:"discountPercentage"`
	ExpirationDate     time.Time `firestore:"expirationDate"`
	IsActive           bool      `firestore:"isActive"`
	UserID             string    `firestore:"userId,omitempty"`
	CreatedAt          time.Time `firestore:"createdAt"`
}

func newCouponDocument(coupon domain.Coupon) couponDocument {
	return couponDocument{
		Code:               normalizeCouponCode(coupon.Code),
		DiscountPercentage: coupon.DiscountPercentage,
		ExpirationDate:     coupon.ExpirationDate.UTC(),
		IsActive:           coupon.IsActive,
		UserID:             strings.TrimSpace(coupon.UserID),
		CreatedAt:          coupon.CreatedAt.UTC(),
	}
}

func (d couponDocument) toDomain(id string) domain.Coupon {
	return domain.Coupon{
		ID:                 id,
		Code:               d.Code,
		DiscountPercentage: d.DiscountPercentage,
		ExpirationDate:     d.ExpirationDate,
		IsActive:           d.IsActive,
		UserID:             d.UserID,
		CreatedAt:          d.CreatedAt,
	}
}

func normalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type orderLineDocument struct {
	ProductID string `firestore:"productId"`
	Quantity  int    `firestore:"quantity"`
	UnitPrice int64  `firestore:"unitPrice"`
}

type shippingDocument struct {
	Name    string `firestore:"name"`
	Address string `firestore:"address"`
	Phone   string `firestore:"phone"`
}

type orderDocument struct {
	UserID        string              `firestore:"userId,omitempty"`
	Lines         []orderLineDocument `firestore:"lines"`
	TotalAmount   int64               `firestore:"totalAmount"`
	PaymentMethod string              `firestore:"paymentMethod"`
	PaymentRef    string              `firestore:"paymentRef,omitempty"`
	Shipping      *shippingDocument   `firestore:"shipping,omitempty"`
	CreatedAt     time.Time           `firestore:"createdAt"`
}

func newOrderDocument(order domain.Order) orderDocument {
	doc := orderDocument{
		UserID:        strings.TrimSpace(order.UserID),
		TotalAmount:   order.TotalAmount,
		PaymentMethod: string(order.PaymentMethod),
		PaymentRef:    strings.TrimSpace(order.PaymentRef),
		CreatedAt:     order.CreatedAt.UTC(),
	}
	for _, line := range order.Lines {
		doc.Lines = append(doc.Lines, orderLineDocument{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	if order.Shipping != nil {
		doc.Shipping = &shippingDocument{
			Name:    strings.TrimSpace(order.Shipping.Name),
			Address: strings.TrimSpace(order.Shipping.Address),
			Phone:   strings.TrimSpace(order.Shipping.Phone),
		}
	}
	return doc
}

func (d orderDocument) toDomain(id string) domain.Order {
	order := domain.Order{
		ID:            id,
		UserID:        d.UserID,
		TotalAmount:   d.TotalAmount,
		PaymentMethod: domain.PaymentMethod(d.PaymentMethod),
		PaymentRef:    d.PaymentRef,
		CreatedAt:     d.CreatedAt,
	}
	for _, line := range d.Lines {
		order.Lines = append(order.Lines, domain.OrderLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	if d.Shipping != nil {
		order.Shipping = &domain.ShippingInfo{
			Name:    d.Shipping.Name,
			Address: d.Shipping.Address,
			Phone:   d.Shipping.Phone,
		}
	}
	return order
}
