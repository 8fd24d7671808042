package services

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/apperr"
	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/repos"
	"storefront/internal/validate"
)

var ErrBadCreds = apperr.Unauthorized("invalid email or password")

type AuthService struct {
	Users  *repos.UserRepo
	Tokens *TokenService
	Events events.Publisher
}

func NewAuthService(users *repos.UserRepo, tokens *TokenService, pub events.Publisher) *AuthService {
	return &AuthService{Users: users, Tokens: tokens, Events: pub}
}

type RegisterRequest struct {
	Email     string `json:"email" form:"email" validate:"required,email,max=100"`
	Password  string `json:"password" form:"password" validate:"required,strongpw"`
	FirstName string `json:"firstName" form:"firstName" validate:"required,max=50"`
	LastName  string `json:"lastName" form:"lastName" validate:"required,max=50"`
	Phone     string `json:"phone" form:"phone" validate:"omitempty,max=20"`
}

// Register creates an active USER account. Emails are stored lowercased.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		ID:        uuid.NewString(),
		Email:     req.Email,
		Hash:      string(hash),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Type:      domain.UserTypeUser,
		Active:    true,
	}
	if err := s.Users.Create(u); err != nil {
		return nil, err
	}
	events.Emit(ctx, s.Events, events.New(events.UserRegistered, u.ID, map[string]any{"email": u.Email}))
	return u, nil
}

// Login checks the credentials of an active user and issues a token pair.
// Unknown email, inactive account and wrong password are indistinguishable.
func (s *AuthService) Login(email, password string) (*domain.User, TokenPair, error) {
	u, err := s.Users.ByEmail(email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, TokenPair{}, ErrBadCreds
		}
		return nil, TokenPair{}, err
	}
	if !u.Active || bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, TokenPair{}, ErrBadCreds
	}
	pair, err := s.Tokens.Issue(u)
	return u, pair, err
}

// Refresh exchanges a refresh token of an active user for a new pair.
func (s *AuthService) Refresh(refreshToken string) (TokenPair, error) {
	claims, err := s.Tokens.Parse(refreshToken, TokenRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	u, err := s.activeUser(claims.Subject)
	if err != nil {
		return TokenPair{}, err
	}
	return s.Tokens.Issue(u)
}

// Authenticate resolves an access token to the principal it was issued for.
// Roles come from the current user row, not the token.
func (s *AuthService) Authenticate(accessToken string) (Principal, error) {
	claims, err := s.Tokens.Parse(accessToken, TokenAccess)
	if err != nil {
		return Principal{}, err
	}
	u, err := s.activeUser(claims.Subject)
	if err != nil {
		return Principal{}, err
	}
	return Principal{UserID: u.ID, Email: u.Email, Roles: u.Roles()}, nil
}

func (s *AuthService) activeUser(id string) (*domain.User, error) {
	u, err := s.Users.ByID(id)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, errInvalidToken
		}
		return nil, err
	}
	if !u.Active {
		return nil, apperr.Unauthorized("account is disabled")
	}
	return u, nil
}
