package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/viralscan/internal/domain"
)

const parquetBatch = 1000

// ReadParquet decodes a Parquet file by leaf column position, using the
// generic row reader so any physical type works for id and label.
func ReadParquet(ctx context.Context, r io.ReaderAt, size int64, maxSamples int) (Dataset, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return Dataset{}, fmt.Errorf("open parquet: %w: %w", domain.ErrDataUnavailable, err)
	}
	if n := len(pf.Schema().Columns()); n < minColumns {
		return Dataset{}, fmt.Errorf("parquet schema has %d columns, need %d: %w",
			n, minColumns, domain.ErrDataUnavailable)
	}

	b := builder{maxSamples: maxSamples}
	buf := make([]parquet.Row, parquetBatch)
	for _, rg := range pf.RowGroups() {
		if b.full() {
			break
		}
		if err := readRowGroup(ctx, rg, buf, &b); err != nil {
			return Dataset{}, err
		}
	}
	return b.result()
}

func readRowGroup(ctx context.Context, rg parquet.RowGroup, buf []parquet.Row, b *builder) error {
	rows := parquet.NewRowGroupReader(rg)
	defer func() { _ = rows.Close() }()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, readErr := rows.ReadRows(buf)
		for i := 0; i < n && !b.full(); i++ {
			addRow(buf[i], b)
		}
		if b.full() {
			return nil
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return nil
			}
			return fmt.Errorf("read parquet rows: %w: %w", domain.ErrDataUnavailable, readErr)
		}
	}
}

func addRow(row parquet.Row, b *builder) {
	var id, seq, label string
	var haveSeq, haveLabel bool
	for _, v := range row {
		if v.IsNull() {
			continue
		}
		switch v.Column() {
		case colID:
			id = valueString(v)
		case colSequence:
			seq, haveSeq = v.String(), true
		case colLabel:
			label, haveLabel = valueString(v), true
		}
	}
	if !haveSeq || !haveLabel {
		b.skip()
		return
	}
	b.add(id, seq, label)
}

func valueString(v parquet.Value) string {
	switch v.Kind() {
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'f', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64)
	case parquet.Boolean:
		if v.Boolean() {
			return "1"
		}
		return "0"
	default:
		return v.String()
	}
}
