package services

import (
	"github.com/jmoiron/sqlx"

	"storefront/internal/apperr"
	"storefront/internal/domain"
	"storefront/internal/repos"
)

type WishlistService struct {
	DB    *sqlx.DB
	Repo  *repos.WishlistRepo
	Carts *repos.CartRepo
	Prods *repos.ProductRepo
}

func NewWishlistService(db *sqlx.DB, r *repos.WishlistRepo, carts *repos.CartRepo, prods *repos.ProductRepo) *WishlistService {
	return &WishlistService{DB: db, Repo: r, Carts: carts, Prods: prods}
}

func (s *WishlistService) Items(userID string) ([]domain.WishlistItem, error) {
	return s.Repo.Items(userID)
}

func (s *WishlistService) Products(userID string) ([]domain.Product, error) {
	return s.Repo.Products(userID)
}

func (s *WishlistService) Add(userID, productID string) (domain.WishlistItem, error) {
	if _, err := s.Prods.Get(productID); err != nil {
		return domain.WishlistItem{}, err
	}
	return s.Repo.Add(userID, productID)
}

func (s *WishlistService) Remove(userID, productID string) error {
	return s.Repo.Remove(userID, productID)
}

// RemoveByID answers NotFound for items of other users.
func (s *WishlistService) RemoveByID(userID, itemID string) error {
	return s.Repo.RemoveByID(userID, itemID)
}

func (s *WishlistService) Clear(userID string) error { return s.Repo.Clear(userID) }

func (s *WishlistService) Contains(userID, productID string) (bool, error) {
	return s.Repo.Contains(userID, productID)
}

func (s *WishlistService) Count(userID string) (int, error) { return s.Repo.Count(userID) }

// MoveToCart adds one unit of the product to the cart and drops the wishlist line.
func (s *WishlistService) MoveToCart(userID, productID string) error {
	return repos.InTx(s.DB, func(tx *sqlx.Tx) error {
		p, err := s.Prods.WithTx(tx).Get(productID)
		if err != nil {
			return err
		}
		if !p.Active {
			return apperr.BadRequest("product %s is no longer available", productID)
		}
		if err := s.Repo.WithTx(tx).Remove(userID, productID); err != nil {
			return err
		}
		return s.Carts.WithTx(tx).AddItem(userID, productID, 1)
	})
}

// ItemsByProduct lists who wishlisted a product.
func (s *WishlistService) ItemsByProduct(productID string) ([]domain.WishlistItem, error) {
	if _, err := s.Prods.Get(productID); err != nil {
		return nil, err
	}
	return s.Repo.ItemsByProduct(productID)
}
