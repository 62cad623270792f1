package main

import (
	"cashout_system/internal/config" // Custom import path (Config)
	"cashout_system/internal/db"     // Custom import path (Database)

	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/driver/mysql"       // MySQL driver for GORM
	"gorm.io/gorm"               // GORM ORM library
)

// Main entry point for migration and seeding
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Database Source Name (DSN) for MySQL connection
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	db.Migrate(dsn)

	// Reconnect to seed treasury pools, default policy and admin account
	conn, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err)
	}
	if err := db.Seed(conn, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logrus.Fatalf("seeding failed: %v", err)
	}
	logrus.Info("Seeding completed.")
}
