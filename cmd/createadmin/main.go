// cmd/createadmin/main.go
package main

import (
	"context"
	"flag"
	"time"

	"github.com/keyforge/storefront/internal/config"
	"github.com/keyforge/storefront/internal/domain/user"
	"github.com/keyforge/storefront/internal/infrastructure/database/postgres"
	"github.com/keyforge/storefront/internal/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Creates a back-office account:
//
//	go run ./cmd/createadmin -email ops@keyforge.local -password 'S3cure-pass' -first Ops
func main() {
	email := flag.String("email", "", "admin email address")
	password := flag.String("password", "", "admin password")
	firstName := flag.String("first", "Admin", "first name")
	lastName := flag.String("last", "", "last name")
	flag.Parse()

	if *email == "" || *password == "" {
		flag.Usage()
		logrus.Fatal("email and password are required")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	log := logger.New(cfg)

	db, err := postgres.NewConnection(cfg, logger.Component(log, "postgres"))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := postgres.NewMigration(db.GetDB(), logger.Component(log, "migration")).RunAutoMigrations(ctx); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	admin, err := user.NewService(db.GetDB(), cfg).CreateAdmin(ctx, *email, *password, *firstName, *lastName)
	if err != nil {
		log.Fatalf("Failed to create admin: %v", err)
	}

	log.WithFields(logrus.Fields{
		"user_id": admin.ID,
		"email":   admin.Email,
	}).Info("Admin account created")
}
