// cmd/mailcheck/main.go
package main

import (
	"context"
	"flag"
	"time"

	"github.com/keyforge/storefront/internal/config"
	"github.com/keyforge/storefront/internal/pkg/email"
	"github.com/keyforge/storefront/internal/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Sends a test notification through the configured mail provider:
//
//	EMAIL_PROVIDER=smtp go run ./cmd/mailcheck -to you@example.com
func main() {
	to := flag.String("to", "", "recipient address")
	flag.Parse()

	if *to == "" {
		flag.Usage()
		logrus.Fatal("recipient is required")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	log := logger.New(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mailer := email.NewEmailService(cfg, logger.Component(log, "email"))
	err = mailer.SendNotificationEmail(ctx, []string{*to}, "Mail check",
		"If you can read this, "+cfg.App.Name+" can deliver mail.")
	if err != nil {
		log.Fatalf("Send failed: %v", err)
	}

	log.WithFields(logrus.Fields{
		"to":       *to,
		"provider": cfg.Email.Provider,
	}).Info("Test email sent")
}
