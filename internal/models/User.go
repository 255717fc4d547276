package models

import "gorm.io/gorm"

const (
	RolePlayer = "player"
	RoleAdmin  = "admin"
)

type User struct {
	gorm.Model
	Name     string `json:"name"`
	Email    string `json:"email" gorm:"unique"`
	Password string `json:"-"`
	Role     string `json:"role"` // "player", "admin"

	Territories []Territory `gorm:"foreignKey:UserID" json:"territories,omitempty"`
}
