package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"lendingdesk/internal/models"
)

const (
	ModeServer  = "server"
	ModeConsole = "console"
)

// Config is read from the environment.
type Config struct {
	// ServerAddr is the HTTP listen address (SERVER_ADDR).
	ServerAddr string
	// DatabaseURL selects the Postgres medium when set (DATABASE_URL).
	DatabaseURL string
	// DataDir holds items.json and borrowers.json when no database is configured (LENDING_DATA_DIR).
	DataDir string
	// Mode is "server" or "console" (LENDING_MODE).
	Mode string
	// LoanPeriodDays is the loan length for new borrows (LENDING_LOAN_PERIOD_DAYS).
	LoanPeriodDays int
}

func Load() (Config, error) {
	cfg := Config{
		ServerAddr:     getenv("SERVER_ADDR", ":8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DataDir:        getenv("LENDING_DATA_DIR", "data"),
		Mode:           strings.ToLower(getenv("LENDING_MODE", ModeServer)),
		LoanPeriodDays: models.DefaultLoanPeriodDays,
	}

	if raw := os.Getenv("LENDING_LOAN_PERIOD_DAYS"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 {
			return Config{}, fmt.Errorf("LENDING_LOAN_PERIOD_DAYS must be a positive integer, got %q", raw)
		}
		cfg.LoanPeriodDays = days
	}

	switch cfg.Mode {
	case ModeServer, ModeConsole:
	default:
		return Config{}, fmt.Errorf("LENDING_MODE must be %q or %q, got %q", ModeServer, ModeConsole, cfg.Mode)
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
