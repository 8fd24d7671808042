package services

import (
	"github.com/shopspring/decimal"

	"storefront/internal/apperr"
	"storefront/internal/domain"
	"storefront/internal/repos"
)

type CartService struct {
	Carts *repos.CartRepo
	Prods *repos.ProductRepo
}

func NewCartService(carts *repos.CartRepo, prods *repos.ProductRepo) *CartService {
	return &CartService{Carts: carts, Prods: prods}
}

type CartRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity"`
}

// AddToCart merges into an existing line by incrementing its quantity.
func (s *CartService) AddToCart(userID, productID string, qty int) error {
	if qty < 1 {
		return apperr.Validation(map[string]string{"quantity": "must be at least 1"})
	}
	p, err := s.Prods.Get(productID)
	if err != nil {
		return err
	}
	if !p.Active {
		return apperr.NotFound("product %s not found", productID)
	}
	return s.Carts.AddItem(userID, productID, qty)
}

// UpdateQuantity overwrites the line; zero or less removes it.
func (s *CartService) UpdateQuantity(userID, productID string, qty int) error {
	return s.Carts.SetQuantity(userID, productID, qty)
}

func (s *CartService) Remove(userID, productID string) error {
	return s.Carts.Remove(userID, productID)
}

func (s *CartService) Items(userID string) ([]domain.CartLine, error) {
	return s.Carts.Lines(userID)
}

// Total prices the cart at the current product prices.
func (s *CartService) Total(userID string) (decimal.Decimal, error) {
	lines, err := s.Carts.Lines(userID)
	if err != nil {
		return decimal.Zero, err
	}
	return cartSubtotal(lines), nil
}

func (s *CartService) Count(userID string) (int, error) { return s.Carts.Count(userID) }

func (s *CartService) Clear(userID string) error { return s.Carts.Clear(userID) }

func cartSubtotal(lines []domain.CartLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.LineTotal())
	}
	return domain.Round(sum)
}
