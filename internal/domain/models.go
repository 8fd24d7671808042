package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	ParentID    *string   `db:"parent_id" json:"parentId,omitempty"`
	Active      bool      `db:"is_active" json:"isActive"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Dimensions is stored as a JSON object, e.g. {"length":"10","unit":"cm"}.
type Dimensions map[string]string

func (d Dimensions) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(d)
	return string(b), err
}

func (d *Dimensions) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*d = Dimensions{}
		return nil
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return fmt.Errorf("dimensions: unsupported type %T", src)
	}
	out := Dimensions{}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &out); err != nil {
			return err
		}
	}
	*d = out
	return nil
}

type Product struct {
	ID            string              `db:"id" json:"id"`
	Name          string              `db:"name" json:"name"`
	Description   string              `db:"description" json:"description"`
	Price         decimal.Decimal     `db:"price" json:"price"`
	CostPrice     decimal.NullDecimal `db:"cost_price" json:"costPrice"`
	SKU           string              `db:"sku" json:"sku"`
	StockQuantity int                 `db:"stock_quantity" json:"stockQuantity"`
	CategoryID    string              `db:"category_id" json:"categoryId"`
	Active        bool                `db:"is_active" json:"isActive"`
	Weight        decimal.NullDecimal `db:"weight" json:"weight"`
	Dimensions    Dimensions          `db:"dimensions" json:"dimensions"`
	CreatedAt     time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updatedAt"`
}

type CartItem struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	ProductID string    `db:"product_id" json:"productId"`
	Quantity  int       `db:"quantity" json:"quantity"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// CartLine is a cart item joined with the live product row.
type CartLine struct {
	CartItem
	ProductName  string          `db:"product_name" json:"productName"`
	ProductSKU   string          `db:"product_sku" json:"productSku"`
	ProductDesc  string          `db:"product_description" json:"-"`
	UnitPrice    decimal.Decimal `db:"unit_price" json:"unitPrice"`
	ProductStock int             `db:"product_stock" json:"stockQuantity"`

	// ProductActive is false once the product was delisted after being carted.
	ProductActive bool `db:"product_active" json:"-"`
}

func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// AddressSnapshot is the address copy stored on an order.
type AddressSnapshot struct {
	FirstName    string `db:"first_name" json:"firstName"`
	LastName     string `db:"last_name" json:"lastName"`
	Company      string `db:"company" json:"company,omitempty"`
	AddressLine1 string `db:"address_line1" json:"addressLine1"`
	AddressLine2 string `db:"address_line2" json:"addressLine2,omitempty"`
	City         string `db:"city" json:"city"`
	State        string `db:"state" json:"state"`
	PostalCode   string `db:"postal_code" json:"postalCode"`
	Country      string `db:"country" json:"country"`
	Phone        string `db:"phone" json:"phone,omitempty"`
}

type Order struct {
	ID             string          `db:"id" json:"id"`
	UserID         string          `db:"user_id" json:"userId"`
	OrderNumber    string          `db:"order_number" json:"orderNumber"`
	Status         OrderStatus     `db:"status" json:"status"`
	PaymentStatus  PaymentStatus   `db:"payment_status" json:"paymentStatus"`
	Subtotal       decimal.Decimal `db:"subtotal" json:"subtotal"`
	TaxAmount      decimal.Decimal `db:"tax_amount" json:"taxAmount"`
	ShippingAmount decimal.Decimal `db:"shipping_amount" json:"shippingAmount"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discountAmount"`
	TotalAmount    decimal.Decimal `db:"total_amount" json:"totalAmount"`
	Currency       string          `db:"currency" json:"currency"`
	CouponCode     string          `db:"coupon_code" json:"couponCode,omitempty"`

	Shipping AddressSnapshot `db:"shipping" json:"shippingAddress"`
	Billing  AddressSnapshot `db:"billing" json:"billingAddress"`

	Notes       string      `db:"notes" json:"notes,omitempty"`
	ShippedAt   *time.Time  `db:"shipped_at" json:"shippedAt,omitempty"`
	DeliveredAt *time.Time  `db:"delivered_at" json:"deliveredAt,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updatedAt"`
	Items       []OrderItem `db:"-" json:"items,omitempty"`
}

// Recalculate folds tax, shipping and discount into the total.
func (o *Order) Recalculate() {
	o.TotalAmount = o.Subtotal.Add(o.TaxAmount).Add(o.ShippingAmount).Sub(o.DiscountAmount)
	if o.TotalAmount.IsNegative() {
		o.TotalAmount = decimal.Zero
	}
}

type OrderItem struct {
	ID                 string          `db:"id" json:"id"`
	OrderID            string          `db:"order_id" json:"orderId"`
	ProductID          string          `db:"product_id" json:"productId"`
	ProductName        string          `db:"product_name" json:"productName"`
	ProductSKU         string          `db:"product_sku" json:"productSku"`
	ProductDescription string          `db:"product_description" json:"productDescription"`
	Quantity           int             `db:"quantity" json:"quantity"`
	UnitPrice          decimal.Decimal `db:"unit_price" json:"unitPrice"`
	TotalPrice         decimal.Decimal `db:"total_price" json:"totalPrice"`
}

type InventoryTransaction struct {
	ID             string          `db:"id" json:"id"`
	ProductID      string          `db:"product_id" json:"productId"`
	Type           TransactionType `db:"type" json:"type"`
	QuantityChange int             `db:"quantity_change" json:"quantityChange"`
	ReferenceID    *string         `db:"reference_id" json:"referenceId,omitempty"`
	ReferenceType  *string         `db:"reference_type" json:"referenceType,omitempty"`
	Notes          string          `db:"notes" json:"notes,omitempty"`
	CreatedBy      string          `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
}

type WishlistItem struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	ProductID string    `db:"product_id" json:"productId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type ProductReview struct {
	ID               string    `db:"id" json:"id"`
	ProductID        string    `db:"product_id" json:"productId"`
	UserID           string    `db:"user_id" json:"userId"`
	OrderID          *string   `db:"order_id" json:"orderId,omitempty"`
	Rating           int       `db:"rating" json:"rating"`
	Title            string    `db:"title" json:"title"`
	Comment          string    `db:"comment" json:"comment"`
	VerifiedPurchase bool      `db:"is_verified_purchase" json:"isVerifiedPurchase"`
	Approved         bool      `db:"is_approved" json:"isApproved"`
	HelpfulVotes     int       `db:"helpful_votes" json:"helpfulVotes"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}

type Address struct {
	ID     string      `db:"id" json:"id"`
	UserID string      `db:"user_id" json:"userId"`
	Type   AddressType `db:"type" json:"type"`
	AddressSnapshot
	Default   bool      `db:"is_default" json:"isDefault"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
