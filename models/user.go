package models

import "time"

const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"size:100;not null" json:"name"`
	Email        string         `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	Phone        string         `gorm:"size:20" json:"phone"`
	Address      string         `json:"address"`
	Preferences  map[string]any `gorm:"serializer:json" json:"preferences"`
	IsAdmin      bool           `gorm:"default:false" json:"is_admin"`
	Provider     string         `gorm:"size:20;default:'password'" json:"provider"`
	Orders       []Order        `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Role is the casbin subject for the user.
func (u *User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleCustomer
}

const (
	RoleGuest    = "guest"
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)
