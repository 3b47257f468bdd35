package main

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/teamboard/teamboard/services"
)

// Config is everything the server reads from the environment.
type Config struct {
	Port      string
	DBPath    string
	JWTSecret string
	AdminUIDs []string
	SMTP      services.SMTPConfig
}

// LoadConfig reads the optional .env file and assembles the configuration.
// A missing JWT secret is fatal: without it every session token would be
// forgeable.
func LoadConfig() (Config, error) {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := Config{
		Port:      getenv("PORT", "3001"),
		DBPath:    getenv("DB_PATH", "./teamboard.db"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		SMTP: services.SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     os.Getenv("SMTP_PORT"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
			To:       os.Getenv("NOTIFY_TO"),
		},
	}

	if admins := os.Getenv("ADMIN_UIDS"); admins != "" {
		for _, uid := range strings.Split(admins, ",") {
			if uid = strings.TrimSpace(uid); uid != "" {
				cfg.AdminUIDs = append(cfg.AdminUIDs, uid)
			}
		}
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
