package handlers

import (
	"storefront/internal/config"
	"storefront/internal/events"
	"storefront/internal/repos"
	"storefront/internal/services"

	"github.com/jmoiron/sqlx"
)

type Deps struct {
	Auth *services.AuthService

	AuthHandler      *AuthHandler
	WebHandler       *WebHandler
	UserHandler      *UserHandler
	AdminHandler     *AdminHandler
	CategoryHandler  *CategoryHandler
	ProductHandler   *ProductHandler
	SearchHandler    *SearchHandler
	InventoryHandler *InventoryHandler
	CartHandler      *CartHandler
	CouponHandler    *CouponHandler
	OrderHandler     *OrderHandler
	WishlistHandler  *WishlistHandler
	ReviewHandler    *ReviewHandler
	AddressHandler   *AddressHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config, pub events.Publisher) *Deps {
	userRepo := repos.NewUserRepo(db)
	catRepo := repos.NewCategoryRepo(db)
	prodRepo := repos.NewProductRepo(db)
	invRepo := repos.NewInventoryRepo(db)
	cartRepo := repos.NewCartRepo(db)
	orderRepo := repos.NewOrderRepo(db)

	tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)
	authSvc := services.NewAuthService(userRepo, tokens, pub)
	userSvc := services.NewUserService(userRepo)
	catalogSvc := services.NewCatalogService(db, catRepo, prodRepo, invRepo)
	invSvc := services.NewInventoryService(db, invRepo, pub)
	cartSvc := services.NewCartService(cartRepo, prodRepo)
	couponSvc := services.NewCouponService(repos.NewCouponRepo(db))
	orderSvc := services.NewOrderService(db, couponSvc, pub)
	wishSvc := services.NewWishlistService(db, repos.NewWishlistRepo(db), cartRepo, prodRepo)
	reviewSvc := services.NewReviewService(repos.NewReviewRepo(db), prodRepo, orderRepo)
	addrSvc := services.NewAddressService(db, repos.NewAddressRepo(db))
	reportSvc := services.NewReportService(orderRepo, prodRepo, invSvc)

	return &Deps{
		Auth: authSvc,

		AuthHandler:      &AuthHandler{Auth: authSvc, Secure: cfg.CookieSecure, TokenTTL: cfg.AccessTTL},
		WebHandler:       &WebHandler{Catalog: catalogSvc},
		UserHandler:      &UserHandler{Users: userSvc},
		AdminHandler:     &AdminHandler{Users: userSvc},
		CategoryHandler:  &CategoryHandler{Catalog: catalogSvc},
		ProductHandler:   &ProductHandler{Catalog: catalogSvc},
		SearchHandler:    &SearchHandler{Catalog: catalogSvc},
		InventoryHandler: &InventoryHandler{Inv: invSvc, Reports: reportSvc},
		CartHandler:      &CartHandler{Cart: cartSvc},
		CouponHandler:    &CouponHandler{Coupons: couponSvc},
		OrderHandler:     &OrderHandler{Orders: orderSvc, Reports: reportSvc},
		WishlistHandler:  &WishlistHandler{Wish: wishSvc},
		ReviewHandler:    &ReviewHandler{Reviews: reviewSvc},
		AddressHandler:   &AddressHandler{Addrs: addrSvc},
	}
}
