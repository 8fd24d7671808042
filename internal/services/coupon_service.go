package services

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"storefront/internal/apperr"
	"storefront/internal/domain"
	"storefront/internal/repos"
	"storefront/internal/validate"
)

var errCouponInvalid = apperr.BadRequest("coupon is not valid")

type CouponService struct {
	Coupons *repos.CouponRepo
	now     func() time.Time
}

func NewCouponService(coupons *repos.CouponRepo) *CouponService {
	return &CouponService{Coupons: coupons, now: time.Now}
}

// CouponRequest is used for create and partial update. Nil fields are
// defaulted on create and left alone on update.
type CouponRequest struct {
	Code            *string              `json:"code" validate:"omitempty,min=3,max=32"`
	Type            *domain.DiscountType `json:"type" validate:"omitempty,oneof=PERCENTAGE FIXED"`
	Value           decimal.NullDecimal  `json:"value"`
	MinimumAmount   decimal.NullDecimal  `json:"minimumAmount"`
	MaximumDiscount decimal.NullDecimal  `json:"maximumDiscount"`
	UsageLimit      *int                 `json:"usageLimit" validate:"omitempty,gte=0"`
	Active          *bool                `json:"isActive"`
	StartsAt        *time.Time           `json:"startsAt"`
	ExpiresAt       *time.Time           `json:"expiresAt"`
}

func (s *CouponService) List() ([]domain.Coupon, error)   { return s.Coupons.List(false) }
func (s *CouponService) Active() ([]domain.Coupon, error) { return s.Coupons.List(true) }

func (s *CouponService) Get(id string) (domain.Coupon, error) { return s.Coupons.Get(id) }

func (s *CouponService) GetByCode(code string) (domain.Coupon, error) {
	return s.Coupons.GetByCode(code)
}

// Valid lists the coupons redeemable right now.
func (s *CouponService) Valid() ([]domain.Coupon, error) {
	return s.filter(func(c domain.Coupon, now time.Time) bool { return c.Valid(now) })
}

func (s *CouponService) Expired() ([]domain.Coupon, error) {
	return s.filter(domain.Coupon.Expired)
}

func (s *CouponService) Upcoming() ([]domain.Coupon, error) {
	return s.filter(domain.Coupon.Upcoming)
}

func (s *CouponService) filter(keep func(domain.Coupon, time.Time) bool) ([]domain.Coupon, error) {
	all, err := s.Coupons.List(false)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := []domain.Coupon{}
	for _, c := range all {
		if keep(c, now) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *CouponService) Create(req CouponRequest) (domain.Coupon, error) {
	if err := validate.Struct(req); err != nil {
		return domain.Coupon{}, err
	}
	fields := map[string]string{}
	if req.Code == nil || strings.TrimSpace(*req.Code) == "" {
		fields["code"] = "is required"
	}
	if req.Type == nil {
		fields["type"] = "is required"
	}
	if !req.Value.Valid {
		fields["value"] = "is required"
	}
	if len(fields) > 0 {
		return domain.Coupon{}, apperr.Validation(fields)
	}

	c := domain.Coupon{
		ID:     uuid.NewString(),
		Code:   *req.Code,
		Type:   *req.Type,
		Active: true,
	}
	applyCouponRequest(&c, req)
	if err := checkCoupon(c); err != nil {
		return domain.Coupon{}, err
	}
	if err := s.Coupons.Create(&c); err != nil {
		return domain.Coupon{}, err
	}
	return c, nil
}

func (s *CouponService) Update(id string, req CouponRequest) (domain.Coupon, error) {
	if err := validate.Struct(req); err != nil {
		return domain.Coupon{}, err
	}
	c, err := s.Coupons.Get(id)
	if err != nil {
		return c, err
	}
	if req.Code != nil && strings.TrimSpace(*req.Code) != "" {
		c.Code = *req.Code
	}
	if req.Type != nil {
		c.Type = *req.Type
	}
	applyCouponRequest(&c, req)
	if err := checkCoupon(c); err != nil {
		return domain.Coupon{}, err
	}
	return c, s.Coupons.Update(&c)
}

func applyCouponRequest(c *domain.Coupon, req CouponRequest) {
	if req.Value.Valid {
		c.Value = req.Value.Decimal
	}
	if req.MinimumAmount.Valid {
		c.MinimumAmount = req.MinimumAmount
	}
	if req.MaximumDiscount.Valid {
		c.MaximumDiscount = req.MaximumDiscount
	}
	if req.UsageLimit != nil {
		c.UsageLimit = *req.UsageLimit
	}
	if req.Active != nil {
		c.Active = *req.Active
	}
	if req.StartsAt != nil {
		t := req.StartsAt.UTC()
		c.StartsAt = &t
	}
	if req.ExpiresAt != nil {
		t := req.ExpiresAt.UTC()
		c.ExpiresAt = &t
	}
}

func checkCoupon(c domain.Coupon) error {
	fields := map[string]string{}
	if !c.Value.IsPositive() {
		fields["value"] = "must be greater than 0"
	}
	if c.Type == domain.DiscountPercentage && c.Value.GreaterThan(decimal.NewFromInt(100)) {
		fields["value"] = "must be at most 100 for a percentage coupon"
	}
	if c.StartsAt != nil && c.ExpiresAt != nil && c.ExpiresAt.Before(*c.StartsAt) {
		fields["expiresAt"] = "must not be before startsAt"
	}
	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}

func (s *CouponService) Delete(id string) error { return s.Coupons.Delete(id) }

func (s *CouponService) SetActive(id string, active bool) error {
	return s.Coupons.SetActive(id, active)
}

// IsValid reports false for unknown codes instead of failing.
func (s *CouponService) IsValid(code string) (bool, error) {
	c, err := s.Coupons.GetByCode(code)
	if err != nil {
		if apperr.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return c.Valid(s.now()), nil
}

// DiscountFor previews the discount the code would give on amount.
func (s *CouponService) DiscountFor(code string, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, apperr.Validation(map[string]string{"orderAmount": "must not be negative"})
	}
	c, err := s.Coupons.GetByCode(code)
	if err != nil {
		return decimal.Zero, err
	}
	return c.Discount(amount, s.now()), nil
}

// ApplyCoupon redeems code against o using a repo bound to the caller's
// transaction. The discount is computed on the order total and persisted
// together with the recomputed total. Losing a redemption race reports the
// same error as an invalid coupon. It returns the redeemed coupon.
func (s *CouponService) ApplyCoupon(tx *sqlx.Tx, code string, o *domain.Order) (domain.Coupon, error) {
	coupons := s.Coupons.WithTx(tx)
	c, err := coupons.GetByCode(code)
	if err != nil {
		return c, err
	}
	// Stored windows have second precision; the check and the write share one instant.
	now := s.now().UTC().Truncate(time.Second)
	if !c.Valid(now) {
		return c, errCouponInvalid
	}
	discount := c.Discount(o.TotalAmount, now)
	ok, err := coupons.Redeem(c.ID, now)
	if err != nil {
		return c, err
	}
	if !ok {
		return c, errCouponInvalid
	}

	o.DiscountAmount = discount
	o.CouponCode = c.Code
	o.Recalculate()
	c.UsedCount++
	return c, repos.NewOrderRepo(tx).UpdateDiscount(o)
}
