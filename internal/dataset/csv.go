package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/kailas-cloud/viralscan/internal/domain"
)

// ReadCSV decodes a CSV stream with a header row. Rows with fewer than three
// fields, an empty sequence or a label outside {0, 1} are skipped.
func ReadCSV(ctx context.Context, r io.Reader, maxSamples int) (Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return Dataset{}, fmt.Errorf("read csv header: %w: %w", domain.ErrDataUnavailable, err)
	}
	if len(header) < minColumns {
		return Dataset{}, fmt.Errorf("csv header has %d columns, need %d: %w",
			len(header), minColumns, domain.ErrDataUnavailable)
	}

	b := builder{maxSamples: maxSamples}
	for line := 2; !b.full(); line++ {
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return Dataset{}, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			b.skip()
			continue
		}
		if err != nil {
			return Dataset{}, fmt.Errorf("read csv line %d: %w: %w", line, domain.ErrDataUnavailable, err)
		}
		if len(rec) < minColumns {
			b.skip()
			continue
		}
		b.add(rec[colID], rec[colSequence], rec[colLabel])
	}
	return b.result()
}
