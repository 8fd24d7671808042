package repos

import (
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"storefront/internal/domain"
)

type CouponRepo struct{ db sqlx.Ext }

func NewCouponRepo(db sqlx.Ext) *CouponRepo { return &CouponRepo{db: db} }

func (r *CouponRepo) WithTx(tx *sqlx.Tx) *CouponRepo { return &CouponRepo{db: tx} }

const couponCols = `id, code, type, value, minimum_amount, maximum_discount, usage_limit, used_count, is_active, starts_at, expires_at, created_at`

// NormalizeCode is the canonical form codes are stored and looked up in.
func NormalizeCode(code string) string { return strings.ToUpper(strings.TrimSpace(code)) }

func (r *CouponRepo) Create(c *domain.Coupon) error {
	c.Code = NormalizeCode(c.Code)
	c.CreatedAt = domain.Now()
	_, err := r.db.Exec(`
		INSERT INTO coupons(`+couponCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Code, c.Type, c.Value, c.MinimumAmount, c.MaximumDiscount,
		c.UsageLimit, c.UsedCount, c.Active, c.StartsAt, c.ExpiresAt, c.CreatedAt)
	return conflict(err, "coupon %s already exists", c.Code)
}

func (r *CouponRepo) Get(id string) (domain.Coupon, error) {
	var c domain.Coupon
	err := sqlx.Get(r.db, &c, `SELECT `+couponCols+` FROM coupons WHERE id = ?`, id)
	return c, notFound(err, "coupon %s not found", id)
}

func (r *CouponRepo) GetByCode(code string) (domain.Coupon, error) {
	var c domain.Coupon
	code = NormalizeCode(code)
	err := sqlx.Get(r.db, &c, `SELECT `+couponCols+` FROM coupons WHERE UPPER(code) = ?`, code)
	return c, notFound(err, "coupon %s not found", code)
}

// List returns coupons ordered by code; activeOnly hides deactivated ones.
func (r *CouponRepo) List(activeOnly bool) ([]domain.Coupon, error) {
	q := `SELECT ` + couponCols + ` FROM coupons`
	if activeOnly {
		q += ` WHERE is_active = 1`
	}
	out := []domain.Coupon{}
	err := sqlx.Select(r.db, &out, q+` ORDER BY code`)
	return out, err
}

// Update rewrites the definition. used_count is left alone: only Redeem moves it.
func (r *CouponRepo) Update(c *domain.Coupon) error {
	c.Code = NormalizeCode(c.Code)
	res, err := r.db.Exec(`
		UPDATE coupons
		SET code = ?, type = ?, value = ?, minimum_amount = ?, maximum_discount = ?,
		    usage_limit = ?, is_active = ?, starts_at = ?, expires_at = ?
		WHERE id = ?
	`, c.Code, c.Type, c.Value, c.MinimumAmount, c.MaximumDiscount,
		c.UsageLimit, c.Active, c.StartsAt, c.ExpiresAt, c.ID)
	if err != nil {
		return conflict(err, "coupon %s already exists", c.Code)
	}
	return affected(res, "coupon %s not found", c.ID)
}

func (r *CouponRepo) SetActive(id string, active bool) error {
	res, err := r.db.Exec(`UPDATE coupons SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	return affected(res, "coupon %s not found", id)
}

func (r *CouponRepo) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM coupons WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(res, "coupon %s not found", id)
}

// Redeem consumes one use if the coupon is still redeemable at the time of the
// write. The limit check and increment are a single statement, so concurrent
// redemptions can never push used_count past usage_limit. It reports false
// when no use was available. now is the instant the caller validated against.
func (r *CouponRepo) Redeem(id string, now time.Time) (bool, error) {
	res, err := r.db.Exec(`
		UPDATE coupons
		SET used_count = used_count + 1
		WHERE id = ?
		  AND is_active = 1
		  AND (usage_limit = 0 OR used_count < usage_limit)
		  AND (starts_at IS NULL OR starts_at <= ?)
		  AND (expires_at IS NULL OR expires_at >= ?)
	`, id, now, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}
