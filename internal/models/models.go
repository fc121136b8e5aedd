package models

import (
	"time"
)

// Sweet is a catalog item. Quantity is unsigned so the column itself can
// never hold a negative stock level.
type Sweet struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"unique;not null"          json:"name"`
	Category  string    `gorm:"not null;index"           json:"category"`
	Price     float64   `gorm:"not null"                 json:"price"`
	Quantity  uint      `gorm:"default:0"                json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string    `gorm:"unique;not null"          json:"username"`
	Email        string    `gorm:"unique;not null"          json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Role         string    `gorm:"not null;default:user"    json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
