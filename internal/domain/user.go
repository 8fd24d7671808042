package domain

import "time"

type UserType string

const (
	UserTypeUser  UserType = "USER"
	UserTypeAdmin UserType = "ADMIN"
)

type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Hash      string    `db:"password_hash" json:"-"`
	FirstName string    `db:"first_name" json:"firstName"`
	LastName  string    `db:"last_name" json:"lastName"`
	Phone     string    `db:"phone" json:"phone,omitempty"`
	Type      UserType  `db:"user_type" json:"userType"`
	Active    bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

func (u User) IsAdmin() bool { return u.Type == UserTypeAdmin }

// Roles lists the role claims carried in a token for u.
func (u User) Roles() []string { return []string{string(u.Type)} }
