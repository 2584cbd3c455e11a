package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/regulahealth/parity/internal/config"
	"github.com/regulahealth/parity/internal/exitcode"
	"github.com/regulahealth/parity/internal/export"
	"github.com/regulahealth/parity/internal/ingest"
	"github.com/regulahealth/parity/internal/logging"
	"github.com/regulahealth/parity/internal/model"
	"github.com/regulahealth/parity/internal/money"
	"github.com/regulahealth/parity/internal/normalize"
	"github.com/regulahealth/parity/internal/pipeline"
	"github.com/regulahealth/parity/internal/store"
)

const (
	maxGroupLines      = 8
	maxQuarantineLines = 20
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate a claims batch against the mandated rate floors",
	RunE:  runCheck,
}

func init() {
	tableFlags(checkCmd)
	f := checkCmd.Flags()
	f.StringVar(&cfg.ClaimsPath, "claims", "", "Path to claims file, CSV or X12 835 (required)")
	f.StringVar(&cfg.Format, "format", "auto", "Claims format: auto, csv, or edi")
	f.StringVar(&cfg.Region, "region", "", "Geo region for claims that do not carry one (required for EDI)")
	f.IntVar(&cfg.Workers, "workers", 0, "Worker goroutines (0 = GOMAXPROCS)")
	f.Int64Var(&cfg.ToleranceCents, "tolerance-cents", 1, "Underpayment tolerance in cents")
	f.StringVar(&cfg.ParquetOut, "out-parquet", "", "Also write evaluated claims to this Parquet file")
	f.BoolVar(&cfg.DryRun, "dry-run", false, "Evaluate and report without persisting")
	_ = checkCmd.MarkFlagRequired("claims")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat, cfg.LogLevel)
	ctx := context.Background()

	cfgErr := cfg.ValidateWithDSN()
	if cfg.DryRun {
		cfgErr = cfg.Validate()
	}
	if cfgErr != nil {
		log.Error().Err(cfgErr).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	format, err := ingest.DetectFormat(cfg.ClaimsPath, cfg.Format)
	if err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
	if format == ingest.FormatEDI && cfg.Region == "" {
		log.Error().Msg("--region is required for EDI claims (835 remittances carry no geo region)")
		os.Exit(exitcode.UsageError)
	}

	tables, err := config.LoadTables(&cfg)
	if err != nil {
		log.Error().Err(err).Msg("reference tables failed to load")
		os.Exit(exitcode.TableError)
	}

	claims, err := ingest.ReadClaimsFile(cfg.ClaimsPath, format, cfg.Region, log)
	if err != nil {
		log.Error().Err(err).Msg("claims file unreadable")
		os.Exit(exitcode.IngestError)
	}

	res, runErr := pipeline.Run(ctx, log, tables, claims, pipeline.Options{
		Workers:   cfg.Workers,
		Tolerance: money.Cents(cfg.ToleranceCents),
	})
	if runErr != nil {
		log.Error().Err(runErr).Msg("run failed")
		if res != nil {
			printQuarantine(res.Quarantined)
		}
		os.Exit(exitcode.RunError)
	}

	if !cfg.DryRun {
		sha, err := normalize.FileHash(cfg.ClaimsPath)
		if err != nil {
			log.Error().Err(err).Msg("failed to hash claims file")
			os.Exit(exitcode.IngestError)
		}

		pool, err := store.NewPool(ctx, cfg.DSN)
		if err != nil {
			log.Error().Err(err).Msg("database connection failed")
			os.Exit(exitcode.DBConnError)
		}
		defer pool.Close()

		meta := store.RunMeta{
			ClaimsFile:     cfg.ClaimsPath,
			FileSHA256:     sha,
			RateVersion:    tables.Rates.Version(),
			GeoVersion:     tables.Geo.Version(),
			ToleranceCents: cfg.ToleranceCents,
		}
		if err := store.SaveResult(ctx, pool, log, res, meta); err != nil {
			log.Error().Err(err).Msg("failed to persist run")
			os.Exit(exitcode.StoreError)
		}
	}

	if cfg.ParquetOut != "" {
		n, err := export.WriteFile(cfg.ParquetOut, res.Evaluated)
		if err != nil {
			log.Error().Err(err).Msg("parquet export failed")
			os.Exit(exitcode.StoreError)
		}
		log.Info().Int("rows", n).Str("file", cfg.ParquetOut).Msg("parquet export written")
	}

	printReport(res)

	if res.State == pipeline.StatePartiallyFailed {
		os.Exit(exitcode.PartialSuccess)
	}
	return nil
}

func printReport(res *pipeline.Result) {
	fmt.Println("=== paritycheck report ===")
	fmt.Printf("Run:         %s\n", res.RunID)
	fmt.Printf("State:       %s\n", res.State)
	fmt.Printf("Claims:      %d evaluated, %d quarantined\n", len(res.Evaluated), len(res.Quarantined))

	if s := res.Summary; s != nil {
		fmt.Printf("Violations:  %d of %d (%s)\n", s.Violations, s.Claims, money.FormatBps(s.ViolationRateBps))
		fmt.Printf("Recoverable: $%s\n", s.Recoverable)
		if s.Violations > 0 {
			fmt.Printf("Avg underpayment: $%s\n", s.AvgUnderpayment)
		}
		printGroups("By payer:", s.ByPayer)
		printGroups("By category:", s.ByCategory)
		printGroups("By month:", s.ByMonth)
	}

	printQuarantine(res.Quarantined)
	fmt.Printf("\nElapsed: %.1fs\n", res.Duration.Seconds())
}

func printGroups(header string, groups []model.GroupSummary) {
	if len(groups) == 0 {
		return
	}
	fmt.Println()
	fmt.Println(header)
	for i, g := range groups {
		if i == maxGroupLines {
			fmt.Printf("  ... and %d more\n", len(groups)-maxGroupLines)
			break
		}
		fmt.Printf("  %-24s $%-12s %d of %d claims in violation (%s)\n",
			g.Key, g.Recoverable, g.Violations, g.Claims, money.FormatBps(g.ViolationRateBps))
	}
}

func printQuarantine(quarantined []model.QuarantinedClaim) {
	if len(quarantined) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Quarantined claims:")
	for i, q := range quarantined {
		if i == maxQuarantineLines {
			fmt.Printf("  ... and %d more\n", len(quarantined)-maxQuarantineLines)
			break
		}
		id := q.Claim.ClaimID
		if id == "" {
			id = "(no claim id)"
		}
		fmt.Printf("  %-16s %-22s %s\n", id, q.Kind(), q.Err)
	}
}
