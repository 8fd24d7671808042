package repos

import (
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type OrderRepo struct{ db sqlx.Ext }

func NewOrderRepo(db sqlx.Ext) *OrderRepo { return &OrderRepo{db: db} }

func (r *OrderRepo) WithTx(tx *sqlx.Tx) *OrderRepo { return &OrderRepo{db: tx} }

const orderCols = `
    id, user_id, order_number, status, payment_status,
    subtotal, tax_amount, shipping_amount, discount_amount, total_amount, currency, coupon_code,
    shipping_first_name AS "shipping.first_name", shipping_last_name AS "shipping.last_name",
    shipping_company AS "shipping.company", shipping_address_line1 AS "shipping.address_line1",
    shipping_address_line2 AS "shipping.address_line2", shipping_city AS "shipping.city",
    shipping_state AS "shipping.state", shipping_postal_code AS "shipping.postal_code",
    shipping_country AS "shipping.country", shipping_phone AS "shipping.phone",
    billing_first_name AS "billing.first_name", billing_last_name AS "billing.last_name",
    billing_company AS "billing.company", billing_address_line1 AS "billing.address_line1",
    billing_address_line2 AS "billing.address_line2", billing_city AS "billing.city",
    billing_state AS "billing.state", billing_postal_code AS "billing.postal_code",
    billing_country AS "billing.country", billing_phone AS "billing.phone",
    notes, shipped_at, delivered_at, created_at, updated_at`

const orderItemCols = `id, order_id, product_id, product_name, product_sku, product_description, quantity, unit_price, total_price`

// Insert writes the order header. Items are written separately.
func (r *OrderRepo) Insert(o *domain.Order) error {
	_, err := sqlx.NamedExec(r.db, `
		INSERT INTO orders(
		  id, user_id, order_number, status, payment_status,
		  subtotal, tax_amount, shipping_amount, discount_amount, total_amount, currency, coupon_code,
		  shipping_first_name, shipping_last_name, shipping_company, shipping_address_line1, shipping_address_line2,
		  shipping_city, shipping_state, shipping_postal_code, shipping_country, shipping_phone,
		  billing_first_name, billing_last_name, billing_company, billing_address_line1, billing_address_line2,
		  billing_city, billing_state, billing_postal_code, billing_country, billing_phone,
		  notes, shipped_at, delivered_at, created_at, updated_at)
		VALUES(
		  :id, :user_id, :order_number, :status, :payment_status,
		  :subtotal, :tax_amount, :shipping_amount, :discount_amount, :total_amount, :currency, :coupon_code,
		  :shipping.first_name, :shipping.last_name, :shipping.company, :shipping.address_line1, :shipping.address_line2,
		  :shipping.city, :shipping.state, :shipping.postal_code, :shipping.country, :shipping.phone,
		  :billing.first_name, :billing.last_name, :billing.company, :billing.address_line1, :billing.address_line2,
		  :billing.city, :billing.state, :billing.postal_code, :billing.country, :billing.phone,
		  :notes, :shipped_at, :delivered_at, :created_at, :updated_at)
	`, o)
	return conflict(err, "order number %s already exists", o.OrderNumber)
}

func (r *OrderRepo) InsertItem(it *domain.OrderItem) error {
	_, err := sqlx.NamedExec(r.db, `
		INSERT INTO order_items(`+orderItemCols+`)
		VALUES(:id, :order_id, :product_id, :product_name, :product_sku, :product_description,
		       :quantity, :unit_price, :total_price)
	`, it)
	return err
}

// Get loads the order header and its items.
func (r *OrderRepo) Get(id string) (domain.Order, error) {
	var o domain.Order
	if err := sqlx.Get(r.db, &o, `SELECT `+orderCols+` FROM orders WHERE id = ?`, id); err != nil {
		return o, notFound(err, "order %s not found", id)
	}
	items, err := r.Items(o.ID)
	o.Items = items
	return o, err
}

func (r *OrderRepo) GetByNumber(number string) (domain.Order, error) {
	var o domain.Order
	if err := sqlx.Get(r.db, &o, `SELECT `+orderCols+` FROM orders WHERE order_number = ?`, number); err != nil {
		return o, notFound(err, "order %s not found", number)
	}
	items, err := r.Items(o.ID)
	o.Items = items
	return o, err
}

func (r *OrderRepo) Items(orderID string) ([]domain.OrderItem, error) {
	out := []domain.OrderItem{}
	err := sqlx.Select(r.db, &out, `
		SELECT `+orderItemCols+`
		FROM order_items
		WHERE order_id = ?
		ORDER BY rowid
	`, orderID)
	return out, err
}

// OrderFilter selects order headers. Zero fields do not filter.
type OrderFilter struct {
	UserID string
	Status domain.OrderStatus
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

func (f OrderFilter) where() (string, []any) {
	where := "1 = 1"
	args := []any{}
	if f.UserID != "" {
		where += ` AND user_id = ?`
		args = append(args, f.UserID)
	}
	if f.Status != "" {
		where += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.From != nil {
		where += ` AND created_at >= ?`
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		where += ` AND created_at <= ?`
		args = append(args, f.To.UTC())
	}
	return where, args
}

// List returns order headers (without items), newest first.
func (r *OrderRepo) List(f OrderFilter) ([]domain.Order, error) {
	where, args := f.where()
	q := `SELECT ` + orderCols + ` FROM orders WHERE ` + where + ` ORDER BY created_at DESC, rowid DESC`
	if f.Limit > 0 {
		q += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}
	out := []domain.Order{}
	err := sqlx.Select(r.db, &out, q, args...)
	return out, err
}

func (r *OrderRepo) Count(f OrderFilter) (int, error) {
	where, args := f.where()
	var n int
	err := sqlx.Get(r.db, &n, `SELECT COUNT(*) FROM orders WHERE `+where, args...)
	return n, err
}

// SalesTotal sums total_amount for orders created in [from, to], excluding
// cancelled and returned orders. Amounts are summed as decimals.
func (r *OrderRepo) SalesTotal(from, to time.Time) (decimal.Decimal, error) {
	var totals []decimal.Decimal
	if err := sqlx.Select(r.db, &totals, `
		SELECT total_amount
		FROM orders
		WHERE created_at >= ? AND created_at <= ? AND status NOT IN ('CANCELLED','RETURNED')
	`, from.UTC(), to.UTC()); err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, t := range totals {
		sum = sum.Add(t)
	}
	return sum, nil
}

// UpdateStatus persists status and the shipment timestamps.
func (r *OrderRepo) UpdateStatus(o *domain.Order) error {
	o.UpdatedAt = domain.Now()
	res, err := r.db.Exec(`
		UPDATE orders SET status = ?, shipped_at = ?, delivered_at = ?, updated_at = ?
		WHERE id = ?
	`, o.Status, o.ShippedAt, o.DeliveredAt, o.UpdatedAt, o.ID)
	if err != nil {
		return err
	}
	return affected(res, "order %s not found", o.ID)
}

func (r *OrderRepo) UpdatePaymentStatus(id string, st domain.PaymentStatus) error {
	res, err := r.db.Exec(`UPDATE orders SET payment_status = ?, updated_at = ? WHERE id = ?`, st, domain.Now(), id)
	if err != nil {
		return err
	}
	return affected(res, "order %s not found", id)
}

// UpdateDiscount persists a coupon redemption on the order.
func (r *OrderRepo) UpdateDiscount(o *domain.Order) error {
	o.UpdatedAt = domain.Now()
	res, err := r.db.Exec(`
		UPDATE orders SET discount_amount = ?, total_amount = ?, coupon_code = ?, updated_at = ?
		WHERE id = ?
	`, o.DiscountAmount, o.TotalAmount, o.CouponCode, o.UpdatedAt, o.ID)
	if err != nil {
		return err
	}
	return affected(res, "order %s not found", o.ID)
}

// ContainsProduct reports whether the user's order includes the product.
func (r *OrderRepo) ContainsProduct(userID, orderID, productID string) (bool, error) {
	var n int
	err := sqlx.Get(r.db, &n, `
		SELECT COUNT(*)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.id = ? AND o.user_id = ? AND oi.product_id = ?
	`, orderID, userID, productID)
	return n > 0, err
}
