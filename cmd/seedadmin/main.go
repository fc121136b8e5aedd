package main

import (
	"errors"
	"log"
	"os"

	"gorm.io/gorm"

	"github.com/sweetshop/backend/internal/config"
	"github.com/sweetshop/backend/internal/hash"
	"github.com/sweetshop/backend/internal/models"
)

// seedadmin creates the initial admin account if none exists. Safe to run
// repeatedly.
func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		email = "admin@example.com"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		log.Fatal("ADMIN_PASSWORD is not set in environment variables")
	}

	var existing models.User
	err = db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		log.Println("Admin already exists.")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Fatalf("lookup admin: %v", err)
	}

	hashed, err := hash.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	admin := models.User{
		Username:     "admin",
		Email:        email,
		PasswordHash: hashed,
		Role:         "admin",
	}
	if err := db.Create(&admin).Error; err != nil {
		log.Fatalf("create admin: %v", err)
	}

	log.Println("Admin user seeded.")
}
