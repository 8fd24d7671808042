package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"storefront/internal/config"
	"storefront/internal/domain"
	applog "storefront/internal/log"
)

const (
	csrfCookie = "csrf_"
	bodyLimit  = 1 << 20 // 1 MiB
)

// NewApp builds the fiber app with the global middleware chain and every route.
func NewApp(d *Deps, cfg config.Config, views fiber.Views) *fiber.App {
	app := fiber.New(fiber.Config{
		Views:        views,
		ErrorHandler: ErrorHandler,
		BodyLimit:    bodyLimit,
	})

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(recover.New())
	app.Use("/api", cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	rate := cfg.RateLimit
	if rate <= 0 {
		rate = 120
	}
	app.Use(limiter.New(limiter.Config{
		Max:        rate,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/healthz"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.global.hit", nil)
			return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded, retry soon")
		},
	}))
	app.Use(Authenticate(d.Auth))

	Register(app, d, cfg)
	return app
}

// Register mounts the page, API and operational routes on app.
func Register(app *fiber.App, d *Deps, cfg config.Config) {
	admin := RequireRole(string(domain.UserTypeAdmin))
	user := RequireRole(string(domain.UserTypeUser))

	attempts := cfg.LoginAttempts
	if attempts <= 0 {
		attempts = 5
	}
	loginLimit := limiter.New(limiter.Config{
		Max:        attempts,
		Expiration: 10 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|login"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			if isAPI(c) {
				return fiber.NewError(fiber.StatusTooManyRequests, "too many attempts, please try again later")
			}
			c.Status(fiber.StatusTooManyRequests)
			return render(c, "login", fiber.Map{"Err": "Too many attempts. Please try again later.", "Email": ""})
		},
	})

	protect := csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     csrfCookie,
		CookieSameSite: "Lax",
		CookieSecure:   cfg.CookieSecure,
		ContextKey:     "csrf",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", map[string]any{"reason": err.Error()})
			return fiber.NewError(fiber.StatusForbidden, "Security check failed. Please refresh and try again.")
		},
	})

	// ---------- Pages ----------
	app.Get("/", protect, d.WebHandler.Home)
	app.Get("/login", protect, d.AuthHandler.LoginForm)
	app.Post("/login", protect, loginLimit, d.AuthHandler.Login)
	app.Get("/register", protect, d.AuthHandler.RegisterForm)
	app.Post("/register", protect, d.AuthHandler.Register)
	app.Post("/logout", protect, d.AuthHandler.Logout)

	api := app.Group("/api")

	// ---------- Auth & users ----------
	auth := api.Group("/auth")
	auth.Post("/register", d.AuthHandler.APIRegister)
	auth.Post("/login", loginLimit, d.AuthHandler.APILogin)
	auth.Post("/refresh", d.AuthHandler.APIRefresh)

	users := api.Group("/users")
	users.Get("/profile", user, d.UserHandler.Profile)
	users.Put("/profile", user, d.UserHandler.UpdateProfile)
	users.Get("/admin/all", admin, d.AdminHandler.List)
	users.Get("/admin/count", admin, d.AdminHandler.Count)
	users.Put("/admin/:id/status", admin, d.AdminHandler.SetStatus)
	users.Get("/:id", admin, d.AdminHandler.User)

	// ---------- Catalog ----------
	cats := api.Group("/categories")
	cats.Get("/", d.CategoryHandler.List)
	cats.Get("/root", d.CategoryHandler.Roots)
	cats.Get("/:id", d.CategoryHandler.Get)
	cats.Get("/:id/subcategories", d.CategoryHandler.Children)
	cats.Get("/:id/products", d.CategoryHandler.Products)
	cats.Get("/:id/product-count", d.CategoryHandler.ProductCount)
	cats.Post("/", admin, d.CategoryHandler.Create)
	cats.Put("/:id", admin, d.CategoryHandler.Update)
	cats.Delete("/:id", admin, d.CategoryHandler.Delete)
	cats.Patch("/:id/activate", admin, d.CategoryHandler.SetActive(true))
	cats.Patch("/:id/deactivate", admin, d.CategoryHandler.SetActive(false))

	prods := api.Group("/products")
	prods.Get("/", d.ProductHandler.List)
	prods.Get("/search", limiter.New(limiter.Config{Max: 30, Expiration: time.Minute}), d.SearchHandler.Search)
	prods.Get("/low-stock", admin, d.ProductHandler.LowStock)
	prods.Get("/sku/:sku", d.ProductHandler.BySKU)
	prods.Get("/category/:categoryId", d.ProductHandler.ByCategory)
	prods.Post("/stock/import", admin, d.InventoryHandler.Import)
	prods.Get("/:id", d.ProductHandler.Get)
	prods.Post("/", admin, d.ProductHandler.Create)
	prods.Put("/:id", admin, d.ProductHandler.Update)
	prods.Delete("/:id", admin, d.ProductHandler.Delete)
	prods.Patch("/:id/restore", admin, d.ProductHandler.Restore)
	prods.Patch("/:id/stock", admin, d.InventoryHandler.UpdateStock)
	prods.Get("/:id/inventory", admin, d.InventoryHandler.History)
	prods.Get("/:id/inventory/reconcile", admin, d.InventoryHandler.Reconcile)

	// ---------- Cart ----------
	cart := api.Group("/cart", user)
	cart.Get("/", d.CartHandler.Items)
	cart.Post("/add", d.CartHandler.Add)
	cart.Put("/update", d.CartHandler.Update)
	cart.Delete("/remove", d.CartHandler.Remove)
	cart.Get("/total", d.CartHandler.Total)
	cart.Get("/count", d.CartHandler.Count)
	cart.Delete("/clear", d.CartHandler.Clear)

	// ---------- Coupons ----------
	coupons := api.Group("/coupons")
	coupons.Get("/validate/:code", d.CouponHandler.Validate)
	coupons.Post("/calculate-discount", d.CouponHandler.CalculateDiscount)
	coupons.Get("/", admin, d.CouponHandler.List())
	coupons.Get("/active", admin, d.CouponHandler.Active())
	coupons.Get("/valid", admin, d.CouponHandler.Valid())
	coupons.Get("/expired", admin, d.CouponHandler.Expired())
	coupons.Get("/upcoming", admin, d.CouponHandler.Upcoming())
	coupons.Get("/code/:code", admin, d.CouponHandler.ByCode)
	coupons.Get("/:id", admin, d.CouponHandler.Get)
	coupons.Post("/", admin, d.CouponHandler.Create)
	coupons.Put("/:id", admin, d.CouponHandler.Update)
	coupons.Delete("/:id", admin, d.CouponHandler.Delete)
	coupons.Patch("/:id/activate", admin, d.CouponHandler.SetActive(true))
	coupons.Patch("/:id/deactivate", admin, d.CouponHandler.SetActive(false))

	// ---------- Orders ----------
	orders := api.Group("/orders", user)
	orders.Post("/checkout", d.OrderHandler.Checkout)
	orders.Get("/", d.OrderHandler.Mine)
	orders.Get("/paginated", d.OrderHandler.Paginated)
	orders.Get("/status/:status", d.OrderHandler.ByStatus)
	orders.Get("/number/:orderNumber", d.OrderHandler.ByNumber)
	orders.Get("/date-range", admin, d.OrderHandler.DateRange)
	orders.Get("/sales-amount", admin, d.OrderHandler.SalesAmount)
	orders.Get("/export", admin, d.OrderHandler.Export)
	orders.Get("/:id", d.OrderHandler.Get)
	orders.Put("/:id/status", admin, d.OrderHandler.UpdateStatus)
	orders.Put("/:id/payment-status", admin, d.OrderHandler.UpdatePaymentStatus)

	// ---------- Wishlist ----------
	wish := api.Group("/wishlist", user)
	wish.Get("/", d.WishlistHandler.Items)
	wish.Get("/products", d.WishlistHandler.Products)
	wish.Get("/check", d.WishlistHandler.Check)
	wish.Get("/count", d.WishlistHandler.Count)
	wish.Post("/add", d.WishlistHandler.Add)
	wish.Post("/move-to-cart", d.WishlistHandler.MoveToCart)
	wish.Delete("/remove", d.WishlistHandler.Remove)
	wish.Delete("/clear", d.WishlistHandler.Clear)
	wish.Get("/product/:productId", admin, d.WishlistHandler.ByProduct)
	wish.Delete("/:id", d.WishlistHandler.RemoveByID)

	// ---------- Reviews ----------
	reviews := api.Group("/reviews")
	reviews.Get("/recent", d.ReviewHandler.Recent)
	reviews.Get("/product/:productId", d.ReviewHandler.ForProduct)
	reviews.Get("/product/:productId/rating/:rating", d.ReviewHandler.ByRating)
	reviews.Get("/product/:productId/average-rating", d.ReviewHandler.Summary)
	reviews.Get("/product/:productId/count", d.ReviewHandler.Summary)
	reviews.Post("/product/:productId", user, d.ReviewHandler.Create)
	reviews.Get("/check-user-review", user, d.ReviewHandler.CheckUserReview)
	reviews.Get("/user", user, d.ReviewHandler.Mine)
	reviews.Get("/:id", d.ReviewHandler.Get)
	reviews.Put("/:id", user, d.ReviewHandler.Update)
	reviews.Delete("/:id", user, d.ReviewHandler.Delete)

	// ---------- Addresses ----------
	addrs := api.Group("/addresses", user)
	addrs.Get("/", d.AddressHandler.List)
	addrs.Get("/count", d.AddressHandler.Count)
	addrs.Get("/type/:type", d.AddressHandler.ByType)
	addrs.Get("/default/:type", d.AddressHandler.Default)
	addrs.Post("/", d.AddressHandler.Create)
	addrs.Get("/:id", d.AddressHandler.Get)
	addrs.Get("/:id/validate", d.AddressHandler.Validate)
	addrs.Put("/:id", d.AddressHandler.Update)
	addrs.Patch("/:id/default", d.AddressHandler.SetDefault)
	addrs.Delete("/:id", d.AddressHandler.Delete)

	// Health & 404
	app.Get("/healthz", Health)
	app.Use(NotFound)
}
