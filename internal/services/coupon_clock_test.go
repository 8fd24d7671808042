package services

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/repos"
)

// The redemption write must use the service clock, not the wall clock.
func TestApplyCoupon_RedeemsOnServiceClock(t *testing.T) {
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	require.NoError(t, repos.SeedDemo(db))
	t.Cleanup(func() { _ = db.Close() })

	coupons := NewCouponService(repos.NewCouponRepo(db))
	starts := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	code, typ := "LATER", domain.DiscountFixed
	_, err = coupons.Create(CouponRequest{
		Code:     &code,
		Type:     &typ,
		Value:    decimal.NewNullDecimal(decimal.RequireFromString("5")),
		StartsAt: &starts,
	})
	require.NoError(t, err)
	// Half a second into the window's first second.
	coupons.now = func() time.Time { return starts.Add(500 * time.Millisecond) }

	cart := NewCartService(repos.NewCartRepo(db), repos.NewProductRepo(db))
	require.NoError(t, cart.AddToCart(repos.SeedUserID, "p-novel", 1))
	lines, err := cart.Items(repos.SeedUserID)
	require.NoError(t, err)
	orders := NewOrderService(db, coupons, &events.Recorder{})
	addr := domain.AddressSnapshot{AddressLine1: "1 Main St"}
	o, err := orders.CreateOrder(repos.SeedUserID, lines, addr, addr)
	require.NoError(t, err)

	err = repos.InTx(db, func(tx *sqlx.Tx) error {
		_, err := coupons.ApplyCoupon(tx, code, &o)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "5.00", o.DiscountAmount.StringFixed(2))
	assert.Equal(t, "13.50", o.TotalAmount.StringFixed(2))

	c, err := coupons.GetByCode(code)
	require.NoError(t, err)
	assert.Equal(t, 1, c.UsedCount)
}
