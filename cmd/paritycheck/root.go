package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/regulahealth/parity/internal/config"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "paritycheck",
	Short: "Reimbursement parity compliance checker",
	Long: "Evaluates payer claim batches against mandated rate floors " +
		"(COLA-adjusted fee schedules, RVU formulas, negotiated contracts) " +
		"and reports underpayment violations with recoverable amounts.",
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.DSN, "dsn", os.Getenv("DATABASE_URL"), "Postgres connection string (or set DATABASE_URL)")
	pf.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: trace, debug, info, warn, error")
}

// tableFlags registers the reference-table flags shared by check and validate.
func tableFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&cfg.RatesPath, "rates", "", "Path to rate table YAML (required)")
	f.StringVar(&cfg.GeoPath, "geo", "", "Path to geo multiplier YAML (required)")
	f.StringVar(&cfg.PayersPath, "payers", "", "Path to payer profiles YAML (required)")
	_ = cmd.MarkFlagRequired("rates")
	_ = cmd.MarkFlagRequired("geo")
	_ = cmd.MarkFlagRequired("payers")
}
