// paritycheck evaluates claim batches against mandated reimbursement
// floors and reports underpayment violations.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/regulahealth/parity/internal/exitcode"
)

func main() {
	// Local development keeps DATABASE_URL in a .env file; absence is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitcode.UsageError)
	}
}
