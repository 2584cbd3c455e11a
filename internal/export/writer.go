package export

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/regulahealth/parity/internal/model"
)

const writeBatchSize = 1024

// WriteFile writes evaluated claims to a Parquet file at path, returning
// the number of rows written.
func WriteFile(path string, claims []model.EnrichedClaim) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create parquet file: %w", err)
	}

	w := parquet.NewGenericWriter[EnrichedRow](f)
	rows := make([]EnrichedRow, 0, writeBatchSize)

	var written int
	for start := 0; start < len(claims); start += writeBatchSize {
		end := min(start+writeBatchSize, len(claims))
		rows = rows[:0]
		for _, ec := range claims[start:end] {
			rows = append(rows, FromEnriched(ec))
		}
		n, err := w.Write(rows)
		written += n
		if err != nil {
			f.Close()
			return written, fmt.Errorf("write parquet rows: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		f.Close()
		return written, fmt.Errorf("close parquet writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return written, fmt.Errorf("close parquet file: %w", err)
	}
	return written, nil
}
