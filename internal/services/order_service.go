package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"storefront/internal/apperr"
	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/repos"
)

const (
	refOrder        = "order"
	defaultCurrency = "USD"
)

// ErrNotOwner marks an order lookup by someone other than its owner. It
// surfaces as a 404 so order ids cannot be probed.
var ErrNotOwner = errors.New("order belongs to another user")

type OrderService struct {
	DB      *sqlx.DB
	Orders  *repos.OrderRepo
	Users   *repos.UserRepo
	Carts   *repos.CartRepo
	Addrs   *repos.AddressRepo
	Inv     *repos.InventoryRepo
	Coupons *CouponService
	Events  events.Publisher
}

func NewOrderService(db *sqlx.DB, coupons *CouponService, pub events.Publisher) *OrderService {
	return &OrderService{
		DB:      db,
		Orders:  repos.NewOrderRepo(db),
		Users:   repos.NewUserRepo(db),
		Carts:   repos.NewCartRepo(db),
		Addrs:   repos.NewAddressRepo(db),
		Inv:     repos.NewInventoryRepo(db),
		Coupons: coupons,
		Events:  pub,
	}
}

type CheckoutRequest struct {
	ShippingAddressID string `json:"shippingAddressId"`
	BillingAddressID  string `json:"billingAddressId"`
	CouponCode        string `json:"couponCode"`
	Notes             string `json:"notes" validate:"max=500"`
}

// Checkout turns the user's cart into an order. Address resolution, order
// creation, stock movement and the optional coupon all commit together.
func (s *OrderService) Checkout(ctx context.Context, userID string, req CheckoutRequest) (domain.Order, error) {
	var (
		o        domain.Order
		redeemed *domain.Coupon
	)
	err := repos.InTx(s.DB, func(tx *sqlx.Tx) error {
		lines, err := s.Carts.WithTx(tx).Lines(userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return apperr.BadRequest("cart is empty")
		}
		shipping, billing, err := s.resolveAddresses(s.Addrs.WithTx(tx), userID, req)
		if err != nil {
			return err
		}
		if o, err = s.createOrder(tx, userID, lines, shipping, billing, req.Notes); err != nil {
			return err
		}
		if req.CouponCode != "" {
			c, err := s.Coupons.ApplyCoupon(tx, req.CouponCode, &o)
			if err != nil {
				return err
			}
			redeemed = &c
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	events.Emit(ctx, s.Events, events.New(events.OrderCreated, o.ID, map[string]any{
		"order_number": o.OrderNumber,
		"user_id":      o.UserID,
		"total":        o.TotalAmount.StringFixed(2),
		"items":        len(o.Items),
	}))
	if redeemed != nil {
		events.Emit(ctx, s.Events, events.New(events.CouponRedeemed, redeemed.ID, map[string]any{
			"code":     redeemed.Code,
			"order_id": o.ID,
			"discount": o.DiscountAmount.StringFixed(2),
		}))
	}
	return o, nil
}

// resolveAddresses picks the explicit address ids when given, else the
// user's defaults. Billing falls back to the shipping address.
func (s *OrderService) resolveAddresses(addrs *repos.AddressRepo, userID string, req CheckoutRequest) (domain.AddressSnapshot, domain.AddressSnapshot, error) {
	var ship, bill domain.Address
	var err error
	if req.ShippingAddressID != "" {
		ship, err = addrs.Get(userID, req.ShippingAddressID)
	} else {
		ship, err = addrs.Default(userID, domain.AddressShipping)
	}
	if err != nil {
		if apperr.IsNotFound(err) {
			return domain.AddressSnapshot{}, domain.AddressSnapshot{}, apperr.BadRequest("a shipping address is required")
		}
		return domain.AddressSnapshot{}, domain.AddressSnapshot{}, err
	}

	switch {
	case req.BillingAddressID != "":
		bill, err = addrs.Get(userID, req.BillingAddressID)
		if apperr.IsNotFound(err) {
			return domain.AddressSnapshot{}, domain.AddressSnapshot{}, apperr.BadRequest("billing address %s not found", req.BillingAddressID)
		}
	default:
		bill, err = addrs.Default(userID, domain.AddressBilling)
		if apperr.IsNotFound(err) {
			bill, err = ship, nil
		}
	}
	if err != nil {
		return domain.AddressSnapshot{}, domain.AddressSnapshot{}, err
	}
	return ship.AddressSnapshot, bill.AddressSnapshot, nil
}

// CreateOrder places an order for the given cart lines in its own transaction.
func (s *OrderService) CreateOrder(userID string, lines []domain.CartLine, shipping, billing domain.AddressSnapshot) (domain.Order, error) {
	var o domain.Order
	err := repos.InTx(s.DB, func(tx *sqlx.Tx) error {
		var err error
		o, err = s.createOrder(tx, userID, lines, shipping, billing, "")
		return err
	})
	return o, err
}

// createOrder writes the order, its item snapshots and one SALE ledger entry
// per line, then empties the cart. Prices come from the lines as loaded, which
// are the live product prices. Any insufficient stock aborts the whole order.
func (s *OrderService) createOrder(tx *sqlx.Tx, userID string, lines []domain.CartLine, shipping, billing domain.AddressSnapshot, notes string) (domain.Order, error) {
	if len(lines) == 0 {
		return domain.Order{}, apperr.BadRequest("cart is empty")
	}
	for _, l := range lines {
		if !l.ProductActive {
			return domain.Order{}, apperr.BadRequest("product %s is no longer available", l.ProductSKU)
		}
	}
	if _, err := s.Users.WithTx(tx).ByID(userID); err != nil {
		return domain.Order{}, err
	}

	now := domain.Now()
	o := domain.Order{
		ID:             uuid.NewString(),
		UserID:         userID,
		OrderNumber:    "ORD-" + uuid.NewString(),
		Status:         domain.OrderPending,
		PaymentStatus:  domain.PaymentPending,
		TaxAmount:      decimal.Zero,
		ShippingAmount: decimal.Zero,
		DiscountAmount: decimal.Zero,
		Currency:       defaultCurrency,
		Shipping:       shipping,
		Billing:        billing,
		Notes:          notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	o.Subtotal = cartSubtotal(lines)
	o.Recalculate()

	orders := s.Orders.WithTx(tx)
	if err := orders.Insert(&o); err != nil {
		return domain.Order{}, err
	}

	inv := s.Inv.WithTx(tx)
	ref := refOrder
	for _, l := range lines {
		it := domain.OrderItem{
			ID:                 uuid.NewString(),
			OrderID:            o.ID,
			ProductID:          l.ProductID,
			ProductName:        l.ProductName,
			ProductSKU:         l.ProductSKU,
			ProductDescription: l.ProductDesc,
			Quantity:           l.Quantity,
			UnitPrice:          l.UnitPrice,
			TotalPrice:         domain.Round(l.LineTotal()),
		}
		if err := orders.InsertItem(&it); err != nil {
			return domain.Order{}, err
		}
		if _, err := inv.Apply(domain.InventoryTransaction{
			ProductID:      l.ProductID,
			Type:           domain.TxSale,
			QuantityChange: -l.Quantity,
			ReferenceID:    &o.ID,
			ReferenceType:  &ref,
			Notes:          "Order: " + o.OrderNumber,
			CreatedBy:      userID,
		}); err != nil {
			return domain.Order{}, err
		}
		o.Items = append(o.Items, it)
	}

	if err := s.Carts.WithTx(tx).Clear(userID); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

// ---------- queries ----------

func (s *OrderService) UserOrders(userID string) ([]domain.Order, error) {
	return s.Orders.List(repos.OrderFilter{UserID: userID})
}

func (s *OrderService) UserOrdersByStatus(userID string, st domain.OrderStatus) ([]domain.Order, error) {
	return s.Orders.List(repos.OrderFilter{UserID: userID, Status: st})
}

func (s *OrderService) UserOrdersPaginated(userID string, page, size int) (Page[domain.Order], error) {
	f := repos.OrderFilter{UserID: userID}
	total, err := s.Orders.Count(f)
	if err != nil {
		return Page[domain.Order]{}, err
	}
	f.Limit, f.Offset = size, page*size
	items, err := s.Orders.List(f)
	if err != nil {
		return Page[domain.Order]{}, err
	}
	return newPage(items, page, size, total), nil
}

// Order returns the order with items when p owns it or is an admin.
func (s *OrderService) Order(p Principal, id string) (domain.Order, error) {
	o, err := s.Orders.Get(id)
	if err != nil {
		return o, err
	}
	return o, canSee(p, o)
}

func (s *OrderService) OrderByNumber(p Principal, number string) (domain.Order, error) {
	o, err := s.Orders.GetByNumber(number)
	if err != nil {
		return o, err
	}
	return o, canSee(p, o)
}

func canSee(p Principal, o domain.Order) error {
	if p.IsAdmin() || p.UserID == o.UserID {
		return nil
	}
	return apperr.New(http.StatusNotFound, "order not found", ErrNotOwner)
}

// OrdersByDateRange lists orders created in [from, to], optionally by status.
func (s *OrderService) OrdersByDateRange(from, to time.Time, st domain.OrderStatus) ([]domain.Order, error) {
	if to.Before(from) {
		return nil, apperr.BadRequest("endDate must not be before startDate")
	}
	return s.Orders.List(repos.OrderFilter{From: &from, To: &to, Status: st})
}

// TotalSales sums orders in [from, to], leaving out cancelled and returned ones.
func (s *OrderService) TotalSales(from, to time.Time) (decimal.Decimal, error) {
	if to.Before(from) {
		return decimal.Zero, apperr.BadRequest("endDate must not be before startDate")
	}
	return s.Orders.SalesTotal(from, to)
}

// ---------- updates ----------

// UpdateOrderStatus sets any status from any status; there is no transition
// table. SHIPPED and DELIVERED stamp their timestamps.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id string, st domain.OrderStatus) (domain.Order, error) {
	o, err := s.Orders.Get(id)
	if err != nil {
		return o, err
	}
	prev := o.Status
	o.Status = st
	now := domain.Now()
	switch st {
	case domain.OrderShipped:
		o.ShippedAt = &now
	case domain.OrderDelivered:
		o.DeliveredAt = &now
	}
	if err := s.Orders.UpdateStatus(&o); err != nil {
		return o, err
	}
	events.Emit(ctx, s.Events, events.New(events.OrderStatusChanged, o.ID, map[string]any{
		"from": string(prev), "to": string(st),
	}))
	return o, nil
}

func (s *OrderService) UpdatePaymentStatus(ctx context.Context, id string, st domain.PaymentStatus) (domain.Order, error) {
	o, err := s.Orders.Get(id)
	if err != nil {
		return o, err
	}
	prev := o.PaymentStatus
	if err := s.Orders.UpdatePaymentStatus(id, st); err != nil {
		return o, err
	}
	o.PaymentStatus = st
	events.Emit(ctx, s.Events, events.New(events.OrderPaymentStatusChanged, o.ID, map[string]any{
		"from": string(prev), "to": string(st),
	}))
	return o, nil
}
