package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type Coupon struct {
	ID              string              `db:"id" json:"id"`
	Code            string              `db:"code" json:"code"`
	Type            DiscountType        `db:"type" json:"type"`
	Value           decimal.Decimal     `db:"value" json:"value"`
	MinimumAmount   decimal.NullDecimal `db:"minimum_amount" json:"minimumAmount"`
	MaximumDiscount decimal.NullDecimal `db:"maximum_discount" json:"maximumDiscount"`
	UsageLimit      int                 `db:"usage_limit" json:"usageLimit"`
	UsedCount       int                 `db:"used_count" json:"usedCount"`
	Active          bool                `db:"is_active" json:"isActive"`
	StartsAt        *time.Time          `db:"starts_at" json:"startsAt,omitempty"`
	ExpiresAt       *time.Time          `db:"expires_at" json:"expiresAt,omitempty"`
	CreatedAt       time.Time           `db:"created_at" json:"createdAt"`
}

// Valid reports whether the coupon can be redeemed at now.
// A zero UsageLimit means unlimited redemptions.
func (c Coupon) Valid(now time.Time) bool {
	if !c.Active {
		return false
	}
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return false
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return false
	}
	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return false
	}
	return true
}

// Discount computes the discount for amount. The raw value is rounded half-up
// to cents before MaximumDiscount caps it. Invalid coupons and amounts under
// MinimumAmount yield zero.
func (c Coupon) Discount(amount decimal.Decimal, now time.Time) decimal.Decimal {
	if !c.Valid(now) {
		return decimal.Zero
	}
	if c.MinimumAmount.Valid && amount.LessThan(c.MinimumAmount.Decimal) {
		return decimal.Zero
	}

	var d decimal.Decimal
	switch c.Type {
	case DiscountPercentage:
		d = amount.Mul(c.Value).Div(hundred)
	case DiscountFixed:
		d = c.Value
	default:
		return decimal.Zero
	}
	d = Round(d)

	if c.MaximumDiscount.Valid && d.GreaterThan(c.MaximumDiscount.Decimal) {
		d = c.MaximumDiscount.Decimal
	}
	return d
}

// Expired reports whether the window closed before now.
func (c Coupon) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// Upcoming reports whether the window opens after now.
func (c Coupon) Upcoming(now time.Time) bool {
	return c.StartsAt != nil && now.Before(*c.StartsAt)
}

// Round rounds money half-up to two decimal places.
func Round(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// Now is the clock used for persisted timestamps: UTC, second precision.
func Now() time.Time { return time.Now().UTC().Truncate(time.Second) }
