package db

import (
	"errors"

	"cashout_system/internal/domain" // Importing domain models

	"github.com/shopspring/decimal" // Seed policy values
	"github.com/sirupsen/logrus"    // Logging library
	"golang.org/x/crypto/bcrypt"    // Seed admin password hash

	"gorm.io/driver/mysql" // MySQL driver for GORM
	"gorm.io/gorm"         // GORM ORM library
)

// Migrate performs automatic migration for the database schema
func Migrate(dsn string) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{}) // Open a connection to the database
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err) // Log fatal error if connection fails
	}
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := AutoMigrate(db); err != nil {
		logrus.Fatalf("migration failed: %v", err) // Log fatal error if migration fails
	}
	logrus.Info("Migration completed.") // Log successful migration
}

// AutoMigrate creates or updates the schema for every model
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Staff{},              // Operator logins
		&domain.RatePolicy{},         // Versioned exchange configuration
		&domain.CustomerBalance{},    // Customer token balances
		&domain.CashoutTransaction{}, // Cashout audit facts
		&domain.TreasuryAccount{},    // Treasury pools
		&domain.Distribution{},       // Treasury payout audit facts
		&domain.MachineCollection{},  // Machine cash collections
		&domain.AdminAdjustment{},    // Administrative credit audit facts
	)
}

// Seed inserts the fixed treasury pools, a default rate policy and the admin
// account when they are missing. Safe to run repeatedly.
func Seed(db *gorm.DB, adminEmail, adminPassword string) error {
	// One row per treasury pool
	for _, accountType := range domain.TreasuryAccountTypes {
		var acc domain.TreasuryAccount
		err := db.Where("type = ?", accountType).First(&acc).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Create the missing pool with a zero balance
			acc = domain.TreasuryAccount{Type: accountType}
			if err := db.Create(&acc).Error; err != nil {
				return err
			}
			logrus.WithField("account", accountType).Info("Treasury account created")
		} else if err != nil {
			return err
		}
	}
	// Default rate policy if none is active yet
	var count int64
	if err := db.Model(&domain.RatePolicy{}).Where("active = ?", true).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		p := domain.RatePolicy{
			TokensPerDollar:             decimal.NewFromInt(100), // 100 tokens per dollar
			MinCashoutUsd:               decimal.NewFromInt(1),   // $1 minimum
			MaxCashoutPerTransactionUsd: decimal.NewFromInt(100), // $100 per transaction
			DailyLimitPerCustomerUsd:    decimal.NewFromInt(500), // $500 per customer per day
			VenueCommissionPercent:      decimal.NewFromInt(10),  // 10% to the venue
			Active:                      true,
			UpdatedBy:                   "seed",
		}
		if err := db.Create(&p).Error; err != nil {
			return err
		}
		logrus.Info("Default rate policy created")
	}
	// Seed admin account when configured and missing
	if adminEmail != "" && adminPassword != "" {
		var staff domain.Staff
		err := db.Where("email = ?", adminEmail).First(&staff).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			staff = domain.Staff{Email: adminEmail, Password: string(hash), Role: "admin"}
			if err := db.Create(&staff).Error; err != nil {
				return err
			}
			logrus.WithField("email", adminEmail).Info("Admin account created")
		} else if err != nil {
			return err
		}
	}
	return nil
}
