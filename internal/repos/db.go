package repos

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"storefront/internal/apperr"
	"storefront/internal/domain"
)

// OpenDB opens the SQLite database, applies the schema and makes sure the
// baseline accounts exist. The pool is limited to one connection: SQLite has
// a single writer and ":memory:" databases are per connection.
func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", withParams(dsn))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Ensure users exist (idempotent; safe to run every start)
	if err := seedUsers(db); err != nil {
		return nil, err
	}
	return db, nil
}

func withParams(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_time_format=sqlite"
}

// InTx runs fn inside a transaction, committing only when fn succeeds.
// Never touch the *sqlx.DB from inside fn: the pool has a single connection.
func InTx(db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
-- Users
CREATE TABLE IF NOT EXISTS users(
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL DEFAULT '',
  last_name TEXT NOT NULL DEFAULT '',
  phone TEXT NOT NULL DEFAULT '',
  user_type TEXT NOT NULL DEFAULT 'USER' CHECK (user_type IN ('USER','ADMIN')),
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(LOWER(email));

-- Categories
CREATE TABLE IF NOT EXISTS categories(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  parent_id TEXT NULL REFERENCES categories(id) ON DELETE SET NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_name_nocase ON categories(LOWER(name));
CREATE INDEX IF NOT EXISTS idx_categories_parent ON categories(parent_id);

-- Products (money as decimal strings)
CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  price TEXT NOT NULL,
  cost_price TEXT NULL,
  sku TEXT NOT NULL UNIQUE,
  stock_quantity INTEGER NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
  category_id TEXT NOT NULL REFERENCES categories(id) ON DELETE RESTRICT,
  is_active INTEGER NOT NULL DEFAULT 1,
  weight TEXT NULL,
  dimensions TEXT NOT NULL DEFAULT '{}',
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_products_category   ON products(category_id);
CREATE INDEX IF NOT EXISTS idx_products_name       ON products(LOWER(name));
CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at);

-- Inventory ledger (append only)
CREATE TABLE IF NOT EXISTS inventory_transactions(
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  type TEXT NOT NULL CHECK (type IN ('SALE','PURCHASE','ADJUSTMENT','RETURN')),
  quantity_change INTEGER NOT NULL,
  reference_id TEXT NULL,
  reference_type TEXT NULL,
  notes TEXT NOT NULL DEFAULT '',
  created_by TEXT NOT NULL DEFAULT '',
  created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_inventory_product ON inventory_transactions(product_id, created_at);

-- Carts
CREATE TABLE IF NOT EXISTS cart_items(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL,
  UNIQUE(user_id, product_id)
);

-- Orders
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id),
  order_number TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'PENDING',
  payment_status TEXT NOT NULL DEFAULT 'PENDING',
  subtotal TEXT NOT NULL,
  tax_amount TEXT NOT NULL,
  shipping_amount TEXT NOT NULL,
  discount_amount TEXT NOT NULL,
  total_amount TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  coupon_code TEXT NOT NULL DEFAULT '',
  shipping_first_name TEXT, shipping_last_name TEXT, shipping_company TEXT,
  shipping_address_line1 TEXT, shipping_address_line2 TEXT, shipping_city TEXT,
  shipping_state TEXT, shipping_postal_code TEXT, shipping_country TEXT, shipping_phone TEXT,
  billing_first_name TEXT, billing_last_name TEXT, billing_company TEXT,
  billing_address_line1 TEXT, billing_address_line2 TEXT, billing_city TEXT,
  billing_state TEXT, billing_postal_code TEXT, billing_country TEXT, billing_phone TEXT,
  notes TEXT NOT NULL DEFAULT '',
  shipped_at DATETIME NULL,
  delivered_at DATETIME NULL,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_user       ON orders(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);

CREATE TABLE IF NOT EXISTS order_items(
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id),
  product_name TEXT NOT NULL,
  product_sku TEXT NOT NULL,
  product_description TEXT NOT NULL DEFAULT '',
  quantity INTEGER NOT NULL CHECK (quantity >= 1),
  unit_price TEXT NOT NULL,
  total_price TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);

-- Coupons
CREATE TABLE IF NOT EXISTS coupons(
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL,
  type TEXT NOT NULL CHECK (type IN ('PERCENTAGE','FIXED')),
  value TEXT NOT NULL,
  minimum_amount TEXT NULL,
  maximum_discount TEXT NULL,
  usage_limit INTEGER NOT NULL DEFAULT 0 CHECK (usage_limit >= 0),
  used_count INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  starts_at DATETIME NULL,
  expires_at DATETIME NULL,
  created_at DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_coupons_code ON coupons(UPPER(code));

-- Wishlists
CREATE TABLE IF NOT EXISTS wishlist_items(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  created_at DATETIME NOT NULL,
  UNIQUE(user_id, product_id)
);

-- Reviews
CREATE TABLE IF NOT EXISTS product_reviews(
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  order_id TEXT NULL REFERENCES orders(id) ON DELETE SET NULL,
  rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
  title TEXT NOT NULL DEFAULT '',
  comment TEXT NOT NULL DEFAULT '',
  is_verified_purchase INTEGER NOT NULL DEFAULT 0,
  is_approved INTEGER NOT NULL DEFAULT 1,
  helpful_votes INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME NOT NULL,
  updated_at DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_reviews_unique ON product_reviews(product_id, user_id, COALESCE(order_id, ''));

-- Addresses: one default per (user, type)
CREATE TABLE IF NOT EXISTS addresses(
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
  type TEXT NOT NULL CHECK (type IN ('shipping','billing')),
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  company TEXT NOT NULL DEFAULT '',
  address_line1 TEXT NOT NULL,
  address_line2 TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL,
  state TEXT NOT NULL,
  postal_code TEXT NOT NULL,
  country TEXT NOT NULL,
  phone TEXT NOT NULL DEFAULT '',
  is_default INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_addresses_user ON addresses(user_id, type);
CREATE UNIQUE INDEX IF NOT EXISTS idx_addresses_default ON addresses(user_id, type) WHERE is_default = 1;
`
	_, err := db.Exec(schema)
	return err
}

// Seed accounts; the ids are stable so fixtures can refer to them.
const (
	SeedAdminID = "u-admin"
	SeedUserID  = "u-user"
)

// seedUsers ensures one USER and one ADMIN exist (idempotent).
func seedUsers(db *sqlx.DB) error {
	type u struct {
		ID, Email, First, Last, Type, Raw string
	}
	users := []u{
		{SeedAdminID, "admin@example.com", "Admin", "User", string(domain.UserTypeAdmin), "admin123"},
		{SeedUserID, "user@example.com", "John", "Doe", string(domain.UserTypeUser), "user123"},
	}

	return InTx(db, func(tx *sqlx.Tx) error {
		now := domain.Now()
		for _, x := range users {
			var n int
			if err := tx.Get(&n, `SELECT COUNT(*) FROM users WHERE id=? OR LOWER(email)=?`, x.ID, x.Email); err != nil {
				return err
			}
			if n > 0 {
				continue
			}
			h, err := bcrypt.GenerateFromPassword([]byte(x.Raw), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(`
				INSERT INTO users(id,email,password_hash,first_name,last_name,user_type,is_active,created_at,updated_at)
				VALUES(?,?,?,?,?,?,1,?,?)
			`, x.ID, x.Email, string(h), x.First, x.Last, x.Type, now, now); err != nil {
				return err
			}
		}
		return nil
	})
}

// SeedDemo inserts a small catalog when the database has no categories.
// Opening stock goes through the ledger so cached and ledger stock agree.
func SeedDemo(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM categories`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	zlog.Info().Msg("[seed] inserting demo categories/products/coupons")

	return InTx(db, func(tx *sqlx.Tx) error {
		now := domain.Now()
		tx.MustExec(`INSERT INTO categories(id,name,description,parent_id,is_active,created_at,updated_at) VALUES
		  ('cat-electronics','Electronics','Gadgets and devices',NULL,1,?,?),
		  ('cat-phones','Phones','Smartphones and accessories','cat-electronics',1,?,?),
		  ('cat-books','Books','Printed and digital books',NULL,1,?,?)`,
			now, now, now, now, now, now)

		tx.MustExec(`INSERT INTO products(id,name,description,price,cost_price,sku,stock_quantity,category_id,is_active,weight,dimensions,created_at,updated_at) VALUES
		  ('p-laptop','Laptop Pro 14','14 inch laptop','1299.00','950.00','LAP-001',0,'cat-electronics',1,'1.4','{"width":"31","depth":"22","unit":"cm"}',?,?),
		  ('p-phone','Phone X','6.1 inch smartphone','799.00','520.00','PHN-001',0,'cat-phones',1,'0.2','{}',?,?),
		  ('p-novel','The Long Road','Paperback novel','18.50','6.00','BK-001',0,'cat-books',1,'0.4','{}',?,?)`,
			now, now, now, now, now, now)

		inv := NewInventoryRepo(tx)
		for pid, qty := range map[string]int{"p-laptop": 10, "p-phone": 25, "p-novel": 100} {
			if _, err := inv.Apply(domain.InventoryTransaction{
				ProductID: pid, Type: domain.TxPurchase, QuantityChange: qty,
				Notes: "opening stock", CreatedBy: "seed",
			}); err != nil {
				return err
			}
		}

		tx.MustExec(`INSERT INTO coupons(id,code,type,value,minimum_amount,maximum_discount,usage_limit,used_count,is_active,created_at) VALUES
		  ('c-welcome10','WELCOME10','PERCENTAGE','10','50.00','100.00',0,0,1,?),
		  ('c-five','FIVEOFF','FIXED','5.00',NULL,NULL,100,0,1,?)`, now, now)
		return nil
	})
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			strings.Contains(se.Error(), "UNIQUE constraint failed")
	}
	return false
}

// notFound maps a missing row to a NotFound app error.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(format, args...)
	}
	return err
}

// conflict maps a unique violation to an AlreadyExists app error.
func conflict(err error, format string, args ...any) error {
	if isUniqueViolation(err) {
		return apperr.AlreadyExists(format, args...)
	}
	return err
}

// affected reports NotFound when res touched no rows.
func affected(res sql.Result, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound(format, args...)
	}
	return nil
}
