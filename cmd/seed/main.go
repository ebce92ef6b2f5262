package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sykell/metabear/internal/config"
	"github.com/sykell/metabear/internal/db"
	"github.com/sykell/metabear/internal/logger"
	"github.com/sykell/metabear/internal/service"
)

// SeedConfig holds seed configuration
type SeedConfig struct {
	Username string
	Password string
	Force    bool
}

// NewSeedConfig creates a new seed configuration
func NewSeedConfig() *SeedConfig {
	username := flag.String("username", "admin", "Admin username")
	password := flag.String("password", "adminpass", "Admin password")
	force := flag.Bool("force", false, "Force recreation of admin user")

	flag.Parse()

	return &SeedConfig{
		Username: *username,
		Password: *password,
		Force:    *force,
	}
}

func main() {
	_ = godotenv.Load()
	seed := NewSeedConfig()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := logger.InitLogger(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Log.Sync()

	if seed.Username == "" {
		logger.Log.Fatal("Username cannot be empty")
	}
	if len(seed.Password) < 6 {
		logger.Log.Fatal("Password must be at least 6 characters long")
	}

	logger.Log.Info("Starting database seeding...")

	dbConn, err := db.InitDB(db.NewConfig(cfg))
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	existing, err := service.GetUserByUsername(dbConn, seed.Username)
	switch {
	case err == nil:
		if !seed.Force {
			logger.Log.Info("Admin user already exists, use -force to recreate", zap.String("username", seed.Username))
			return
		}
		logger.Log.Info("Recreating admin user", zap.String("username", seed.Username))
		if err := dbConn.Delete(existing).Error; err != nil {
			logger.Log.Fatal("Failed to delete existing user", zap.Error(err))
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		logger.Log.Fatal("Database error checking existing user", zap.Error(err))
	}

	user, err := service.CreateUser(dbConn, seed.Username, seed.Password)
	if err != nil {
		logger.Log.Fatal("Failed to create admin user", zap.Error(err))
	}

	logger.Log.Info("Database seeding completed",
		zap.String("username", user.Username),
		zap.Uint("user_id", user.ID),
	)
}
