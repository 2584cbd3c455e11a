package config

import (
	"fmt"
	"os"
)

// Config holds all runtime configuration for a paritycheck run.
type Config struct {
	DSN        string
	ClaimsPath string
	RatesPath  string
	GeoPath    string
	PayersPath string

	Format string // "auto", "csv", or "edi"
	Region string // geo region for claims whose source carries none

	LogFormat string // "text" or "json"
	LogLevel  string // zerolog level name

	Workers        int
	ToleranceCents int64
	ParquetOut     string // when set, write enriched claims here
	DryRun         bool   // evaluate and report without persisting
}

// ValidateTables checks the reference-table paths every command needs.
func (c *Config) ValidateTables() error {
	paths := []struct{ flag, path string }{
		{"--rates", c.RatesPath},
		{"--geo", c.GeoPath},
		{"--payers", c.PayersPath},
	}
	for _, p := range paths {
		if p.path == "" {
			return fmt.Errorf("%s is required", p.flag)
		}
		if _, err := os.Stat(p.path); err != nil {
			return fmt.Errorf("%s not accessible: %w", p.flag, err)
		}
	}
	return nil
}

// Validate checks everything a check run needs short of the database.
func (c *Config) Validate() error {
	if err := c.ValidateTables(); err != nil {
		return err
	}
	if c.ClaimsPath == "" {
		return fmt.Errorf("--claims is required")
	}
	if _, err := os.Stat(c.ClaimsPath); err != nil {
		return fmt.Errorf("claims file not accessible: %w", err)
	}
	if c.ToleranceCents < 0 {
		return fmt.Errorf("--tolerance-cents must not be negative")
	}
	if c.Workers < 0 {
		return fmt.Errorf("--workers must not be negative")
	}
	return nil
}

// ValidateWithDSN checks a full run that persists results.
func (c *Config) ValidateWithDSN() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DSN == "" {
		return fmt.Errorf("--dsn or DATABASE_URL is required")
	}
	return nil
}
