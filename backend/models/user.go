package models

import "gorm.io/gorm"

type User struct {
	gorm.Model
	FullName     string `gorm:"not null"`
	Email        string `gorm:"unique;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"default:user"` // user, admin
	SectorID     *uint
	Sector       *Sector
}

// Sector is the organisational unit a user belongs to (plant, dealership,
// commercial team). Assigned by an administrator when inviting the user.
type Sector struct {
	gorm.Model
	Name string `gorm:"unique;not null"`
}
