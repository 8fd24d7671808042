package services_test

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"storefront/internal/events"
	"storefront/internal/repos"
	"storefront/internal/services"
)

type fixture struct {
	db      *sqlx.DB
	events  *events.Recorder
	catalog *services.CatalogService
	inv     *services.InventoryService
	cart    *services.CartService
	coupons *services.CouponService
	orders  *services.OrderService
	wish    *services.WishlistService
	reviews *services.ReviewService
	addrs   *services.AddressService
	reports *services.ReportService
}

// newFixture opens a fresh in-memory database with the demo catalog:
// p-laptop (1299.00, stock 10), p-phone (799.00, stock 25), p-novel (18.50, stock 100).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	require.NoError(t, repos.SeedDemo(db))
	t.Cleanup(func() { _ = db.Close() })

	rec := &events.Recorder{}
	cats := repos.NewCategoryRepo(db)
	prods := repos.NewProductRepo(db)
	invRepo := repos.NewInventoryRepo(db)
	cartRepo := repos.NewCartRepo(db)
	orderRepo := repos.NewOrderRepo(db)

	inv := services.NewInventoryService(db, invRepo, rec)
	coupons := services.NewCouponService(repos.NewCouponRepo(db))
	return &fixture{
		db:      db,
		events:  rec,
		catalog: services.NewCatalogService(db, cats, prods, invRepo),
		inv:     inv,
		cart:    services.NewCartService(cartRepo, prods),
		coupons: coupons,
		orders:  services.NewOrderService(db, coupons, rec),
		wish:    services.NewWishlistService(db, repos.NewWishlistRepo(db), cartRepo, prods),
		reviews: services.NewReviewService(repos.NewReviewRepo(db), prods, orderRepo),
		addrs:   services.NewAddressService(db, repos.NewAddressRepo(db)),
		reports: services.NewReportService(orderRepo, prods, inv),
	}
}

func shippingReq() services.AddressRequest {
	return services.AddressRequest{
		Type:         "shipping",
		FirstName:    "John",
		LastName:     "Doe",
		AddressLine1: "1 Main St",
		City:         "College Park",
		State:        "MD",
		PostalCode:   "20742",
		Country:      "US",
	}
}

// withAddress gives the seed user a default shipping address.
func (f *fixture) withAddress(t *testing.T) {
	t.Helper()
	_, err := f.addrs.Create(repos.SeedUserID, shippingReq())
	require.NoError(t, err)
}

func (f *fixture) stock(t *testing.T, productID string) (cached, ledger int) {
	t.Helper()
	r, err := f.inv.Reconcile(productID)
	require.NoError(t, err)
	return r.CachedStock, r.LedgerStock
}

func pricePatch(price string) services.ProductPatch {
	return services.ProductPatch{Price: decimal.NewNullDecimal(decimal.RequireFromString(price))}
}
