package services

import (
	"math"
	"strings"

	"github.com/google/uuid"

	"storefront/internal/apperr"
	"storefront/internal/domain"
	"storefront/internal/repos"
	"storefront/internal/validate"
)

const recentReviews = 10

type ReviewService struct {
	Reviews *repos.ReviewRepo
	Prods   *repos.ProductRepo
	Orders  *repos.OrderRepo
}

func NewReviewService(reviews *repos.ReviewRepo, prods *repos.ProductRepo, orders *repos.OrderRepo) *ReviewService {
	return &ReviewService{Reviews: reviews, Prods: prods, Orders: orders}
}

type ReviewRequest struct {
	Rating  int     `json:"rating" validate:"required,min=1,max=5"`
	Title   string  `json:"title" validate:"max=200"`
	Comment string  `json:"comment" validate:"max=2000"`
	OrderID *string `json:"orderId"`
}

// ReviewPatch changes only the fields that are set.
type ReviewPatch struct {
	Rating  *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Title   *string `json:"title" validate:"omitempty,max=200"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

type RatingSummary struct {
	ProductID string  `json:"productId"`
	Average   float64 `json:"averageRating"`
	Count     int     `json:"reviewCount"`
}

// ProductReviews lists the approved reviews of an existing product.
func (s *ReviewService) ProductReviews(productID string) ([]domain.ProductReview, error) {
	if _, err := s.Prods.Get(productID); err != nil {
		return nil, err
	}
	return s.Reviews.List(repos.ReviewFilter{ProductID: productID, ApprovedOnly: true})
}

func (s *ReviewService) Get(id string) (domain.ProductReview, error) { return s.Reviews.Get(id) }

// Create adds the user's single review of a product. Naming an order the
// user placed that contains the product marks the review as a verified purchase.
func (s *ReviewService) Create(userID, productID string, req ReviewRequest) (domain.ProductReview, error) {
	if err := validate.Struct(req); err != nil {
		return domain.ProductReview{}, err
	}
	if _, err := s.Prods.Get(productID); err != nil {
		return domain.ProductReview{}, err
	}
	exists, err := s.Reviews.Exists(productID, userID)
	if err != nil {
		return domain.ProductReview{}, err
	}
	if exists {
		return domain.ProductReview{}, apperr.AlreadyExists("user has already reviewed this product")
	}

	rv := domain.ProductReview{
		ID:        uuid.NewString(),
		ProductID: productID,
		UserID:    userID,
		Rating:    req.Rating,
		Title:     strings.TrimSpace(req.Title),
		Comment:   strings.TrimSpace(req.Comment),
		Approved:  true,
	}
	if orderID := nonEmpty(req.OrderID); orderID != nil {
		ok, err := s.Orders.ContainsProduct(userID, *orderID, productID)
		if err != nil {
			return domain.ProductReview{}, err
		}
		if !ok {
			return domain.ProductReview{}, apperr.BadRequest("order %s does not contain this product", *orderID)
		}
		rv.OrderID = orderID
		rv.VerifiedPurchase = true
	}
	if err := s.Reviews.Create(&rv); err != nil {
		return domain.ProductReview{}, err
	}
	return rv, nil
}

// Update edits a review owned by userID; other users get NotFound.
func (s *ReviewService) Update(userID, id string, patch ReviewPatch) (domain.ProductReview, error) {
	if err := validate.Struct(patch); err != nil {
		return domain.ProductReview{}, err
	}
	rv, err := s.Reviews.Get(id)
	if err != nil {
		return rv, err
	}
	if rv.UserID != userID {
		return domain.ProductReview{}, apperr.NotFound("review %s not found", id)
	}
	if patch.Rating != nil {
		rv.Rating = *patch.Rating
	}
	if patch.Title != nil {
		rv.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Comment != nil {
		rv.Comment = strings.TrimSpace(*patch.Comment)
	}
	return rv, s.Reviews.Update(&rv)
}

func (s *ReviewService) Delete(userID, id string) error { return s.Reviews.Delete(userID, id) }

func (s *ReviewService) UserReviews(userID string) ([]domain.ProductReview, error) {
	return s.Reviews.List(repos.ReviewFilter{UserID: userID})
}

func (s *ReviewService) ByRating(productID string, rating int) ([]domain.ProductReview, error) {
	if rating < 1 || rating > 5 {
		return nil, apperr.Validation(map[string]string{"rating": "must be between 1 and 5"})
	}
	return s.Reviews.List(repos.ReviewFilter{ProductID: productID, Rating: rating, ApprovedOnly: true})
}

// Summary reports the approved review count and the average rating rounded
// to two places. Products without reviews average zero.
func (s *ReviewService) Summary(productID string) (RatingSummary, error) {
	if _, err := s.Prods.Get(productID); err != nil {
		return RatingSummary{}, err
	}
	n, avg, err := s.Reviews.Stats(productID)
	if err != nil {
		return RatingSummary{}, err
	}
	return RatingSummary{ProductID: productID, Average: math.Round(avg*100) / 100, Count: n}, nil
}

func (s *ReviewService) HasReviewed(userID, productID string) (bool, error) {
	return s.Reviews.Exists(productID, userID)
}

func (s *ReviewService) Recent() ([]domain.ProductReview, error) {
	return s.Reviews.List(repos.ReviewFilter{ApprovedOnly: true, Limit: recentReviews})
}
