package services

import (
	"storefront/internal/domain"
	"storefront/internal/repos"
	"storefront/internal/validate"
)

type UserService struct {
	Users *repos.UserRepo
}

func NewUserService(users *repos.UserRepo) *UserService { return &UserService{Users: users} }

type ProfileRequest struct {
	FirstName string `json:"firstName" validate:"required,max=50"`
	LastName  string `json:"lastName" validate:"required,max=50"`
	Phone     string `json:"phone" validate:"omitempty,max=20"`
}

func (s *UserService) Get(id string) (*domain.User, error) { return s.Users.ByID(id) }

func (s *UserService) UpdateProfile(id string, req ProfileRequest) (*domain.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if err := s.Users.UpdateProfile(id, req.FirstName, req.LastName, req.Phone); err != nil {
		return nil, err
	}
	return s.Users.ByID(id)
}

func (s *UserService) List() ([]domain.User, error) { return s.Users.List() }

func (s *UserService) SetActive(id string, active bool) (*domain.User, error) {
	if err := s.Users.SetActive(id, active); err != nil {
		return nil, err
	}
	return s.Users.ByID(id)
}

func (s *UserService) CountActive() (int, error) { return s.Users.CountActive() }
