package models

import (
	"time"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleUser }

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name" validate:"required,min=2,max=120"`
	Email     string    `json:"email" validate:"required,email,max=255"`
	Document  string    `json:"document" validate:"required,min=3,max=32"`
	Phone     *string   `json:"phone,omitempty" validate:"omitempty,max=32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name" validate:"required,min=2,max=160"`
	Description *string   `json:"description,omitempty" validate:"omitempty,max=500"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Warehouse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name" validate:"required,min=2,max=120"`
	Location  string    `json:"location" validate:"required,max=255"`
	Country   string    `json:"country" validate:"required,min=2,max=80"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductType classifies products. Names are unique among live rows.
type ProductType struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name" validate:"required,min=1,max=50"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Port struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name" validate:"required,min=2,max=120"`
	Country   string    `json:"country" validate:"required,min=2,max=80"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
