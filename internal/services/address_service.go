package services

import (
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"storefront/internal/apperr"
	"storefront/internal/domain"
	"storefront/internal/repos"
	"storefront/internal/validate"
)

type AddressService struct {
	DB    *sqlx.DB
	Addrs *repos.AddressRepo
}

func NewAddressService(db *sqlx.DB, addrs *repos.AddressRepo) *AddressService {
	return &AddressService{DB: db, Addrs: addrs}
}

type AddressRequest struct {
	Type         string `json:"type" validate:"required,oneof=shipping billing"`
	FirstName    string `json:"firstName" validate:"required,max=50"`
	LastName     string `json:"lastName" validate:"required,max=50"`
	Company      string `json:"company" validate:"max=100"`
	AddressLine1 string `json:"addressLine1" validate:"required,max=255"`
	AddressLine2 string `json:"addressLine2" validate:"max=255"`
	City         string `json:"city" validate:"required,max=100"`
	State        string `json:"state" validate:"required,max=100"`
	PostalCode   string `json:"postalCode" validate:"required,max=20"`
	Country      string `json:"country" validate:"required,max=100"`
	Phone        string `json:"phone" validate:"max=20"`
	Default      bool   `json:"isDefault"`
}

// AddressPatch changes only the fields that are set. Default can only be
// switched on; another address takes over when it is switched elsewhere.
type AddressPatch struct {
	Type         *string `json:"type" validate:"omitempty,oneof=shipping billing"`
	FirstName    *string `json:"firstName" validate:"omitempty,max=50"`
	LastName     *string `json:"lastName" validate:"omitempty,max=50"`
	Company      *string `json:"company" validate:"omitempty,max=100"`
	AddressLine1 *string `json:"addressLine1" validate:"omitempty,max=255"`
	AddressLine2 *string `json:"addressLine2" validate:"omitempty,max=255"`
	City         *string `json:"city" validate:"omitempty,max=100"`
	State        *string `json:"state" validate:"omitempty,max=100"`
	PostalCode   *string `json:"postalCode" validate:"omitempty,max=20"`
	Country      *string `json:"country" validate:"omitempty,max=100"`
	Phone        *string `json:"phone" validate:"omitempty,max=20"`
	Default      *bool   `json:"isDefault"`
}

func (s *AddressService) List(userID string) ([]domain.Address, error) {
	return s.Addrs.List(userID, "")
}

func (s *AddressService) ByType(userID string, typ domain.AddressType) ([]domain.Address, error) {
	return s.Addrs.List(userID, typ)
}

func (s *AddressService) Get(userID, id string) (domain.Address, error) {
	return s.Addrs.Get(userID, id)
}

func (s *AddressService) Default(userID string, typ domain.AddressType) (domain.Address, error) {
	return s.Addrs.Default(userID, typ)
}

func (s *AddressService) Count(userID string) (int, error) { return s.Addrs.Count(userID, "") }

// Create stores the address. The first address of a type becomes its
// default; a new default demotes the previous one in the same transaction.
func (s *AddressService) Create(userID string, req AddressRequest) (domain.Address, error) {
	if err := validate.Struct(req); err != nil {
		return domain.Address{}, err
	}
	typ, _ := domain.ParseAddressType(req.Type)
	a := domain.Address{
		ID:     uuid.NewString(),
		UserID: userID,
		Type:   typ,
		AddressSnapshot: domain.AddressSnapshot{
			FirstName:    strings.TrimSpace(req.FirstName),
			LastName:     strings.TrimSpace(req.LastName),
			Company:      strings.TrimSpace(req.Company),
			AddressLine1: strings.TrimSpace(req.AddressLine1),
			AddressLine2: strings.TrimSpace(req.AddressLine2),
			City:         strings.TrimSpace(req.City),
			State:        strings.TrimSpace(req.State),
			PostalCode:   strings.TrimSpace(req.PostalCode),
			Country:      strings.TrimSpace(req.Country),
			Phone:        strings.TrimSpace(req.Phone),
		},
		Default: req.Default,
	}
	if err := ValidateAddress(a); err != nil {
		return domain.Address{}, err
	}

	err := repos.InTx(s.DB, func(tx *sqlx.Tx) error {
		addrs := s.Addrs.WithTx(tx)
		n, err := addrs.Count(userID, a.Type)
		if err != nil {
			return err
		}
		if n == 0 {
			a.Default = true
		}
		if a.Default {
			if err := addrs.UnsetDefaults(userID, a.Type); err != nil {
				return err
			}
		}
		return addrs.Insert(&a)
	})
	return a, err
}

func (s *AddressService) Update(userID, id string, patch AddressPatch) (domain.Address, error) {
	if err := validate.Struct(patch); err != nil {
		return domain.Address{}, err
	}
	var a domain.Address
	err := repos.InTx(s.DB, func(tx *sqlx.Tx) error {
		addrs := s.Addrs.WithTx(tx)
		var err error
		if a, err = addrs.Get(userID, id); err != nil {
			return err
		}
		oldType, wasDefault := a.Type, a.Default
		applyAddressPatch(&a, patch)
		if err := ValidateAddress(a); err != nil {
			return err
		}

		if a.Type != oldType {
			// The address leaves its old type; it must not stay default there.
			a.Default = false
			n, err := addrs.Count(userID, a.Type)
			if err != nil {
				return err
			}
			if n == 0 {
				a.Default = true
			}
		}
		if patch.Default != nil && *patch.Default {
			a.Default = true
		}
		if a.Default {
			if err := addrs.UnsetDefaults(userID, a.Type); err != nil {
				return err
			}
		}
		if err := addrs.Update(&a); err != nil {
			return err
		}
		if a.Type != oldType && wasDefault {
			return promoteDefault(addrs, userID, oldType)
		}
		return nil
	})
	return a, err
}

func applyAddressPatch(a *domain.Address, p AddressPatch) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	if p.Type != nil {
		a.Type, _ = domain.ParseAddressType(*p.Type)
	}
	set(&a.FirstName, p.FirstName)
	set(&a.LastName, p.LastName)
	set(&a.Company, p.Company)
	set(&a.AddressLine1, p.AddressLine1)
	set(&a.AddressLine2, p.AddressLine2)
	set(&a.City, p.City)
	set(&a.State, p.State)
	set(&a.PostalCode, p.PostalCode)
	set(&a.Country, p.Country)
	set(&a.Phone, p.Phone)
}

// SetDefault makes the address the only default of its type.
func (s *AddressService) SetDefault(userID, id string) (domain.Address, error) {
	var a domain.Address
	err := repos.InTx(s.DB, func(tx *sqlx.Tx) error {
		addrs := s.Addrs.WithTx(tx)
		var err error
		if a, err = addrs.Get(userID, id); err != nil {
			return err
		}
		if err := addrs.UnsetDefaults(userID, a.Type); err != nil {
			return err
		}
		a.Default = true
		return addrs.SetDefault(userID, id)
	})
	return a, err
}

// Delete removes the address; when it was a default the oldest remaining
// address of the same type is promoted.
func (s *AddressService) Delete(userID, id string) error {
	return repos.InTx(s.DB, func(tx *sqlx.Tx) error {
		addrs := s.Addrs.WithTx(tx)
		a, err := addrs.Get(userID, id)
		if err != nil {
			return err
		}
		if err := addrs.Delete(userID, id); err != nil {
			return err
		}
		if a.Default {
			return promoteDefault(addrs, userID, a.Type)
		}
		return nil
	})
}

func promoteDefault(addrs *repos.AddressRepo, userID string, typ domain.AddressType) error {
	rest, err := addrs.List(userID, typ)
	if err != nil || len(rest) == 0 || rest[0].Default {
		return err
	}
	return addrs.SetDefault(userID, rest[0].ID)
}

// ValidateAddress checks the fields an address needs to be shippable.
func ValidateAddress(a domain.Address) error {
	fields := map[string]string{}
	for name, v := range map[string]string{
		"addressLine1": a.AddressLine1,
		"city":         a.City,
		"state":        a.State,
		"postalCode":   a.PostalCode,
		"country":      a.Country,
	} {
		if strings.TrimSpace(v) == "" {
			fields[name] = "is required"
		}
	}
	if _, ok := domain.ParseAddressType(string(a.Type)); !ok {
		fields["type"] = "must be one of shipping billing"
	}
	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}
