// Package dataset reads labeled training sequences from CSV or Parquet files.
//
// Both formats are positional: column 0 is an identifier (ignored), column 1
// the sequence, column 2 the label (0 = non-viral, 1 = viral). Rows that
// cannot be decoded are skipped and counted, never fatal.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kailas-cloud/viralscan/internal/domain"
)

// DefaultMaxSamples is the row cap used when none is configured.
const DefaultMaxSamples = 2000

const (
	colID = iota
	colSequence
	colLabel
	minColumns
)

// Format identifies an on-disk dataset encoding.
type Format string

const (
	// FormatCSV is comma-separated text with a header row.
	FormatCSV Format = "csv"
	// FormatParquet is an Apache Parquet file.
	FormatParquet Format = "parquet"
)

// FormatOf picks the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".parquet", ".pq":
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unsupported dataset extension %q: %w", filepath.Ext(path), domain.ErrDataUnavailable)
	}
}

// Row is one labeled training sequence.
type Row struct {
	ID       string
	Sequence string
	Label    domain.Label
}

// Dataset is the decoded corpus.
type Dataset struct {
	Source  string
	Rows    []Row
	Skipped int
}

// Labels returns the labels in row order.
func (d Dataset) Labels() []domain.Label {
	out := make([]domain.Label, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = r.Label
	}
	return out
}

// Counts returns the number of rows per label.
func (d Dataset) Counts() [domain.NumClasses]int {
	var c [domain.NumClasses]int
	for _, r := range d.Rows {
		c[r.Label]++
	}
	return c
}

// Exists reports whether path names a readable regular file.
func Exists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}

// Load reads the first maxSamples usable rows of path (0 = all).
// Missing, unreadable or structurally malformed files and sources without
// any usable row yield domain.ErrDataUnavailable.
func Load(ctx context.Context, path string, maxSamples int) (Dataset, error) {
	format, err := FormatOf(path)
	if err != nil {
		return Dataset{}, err
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return Dataset{}, fmt.Errorf("open dataset: %w: %w", domain.ErrDataUnavailable, err)
	}
	defer func() { _ = f.Close() }()

	var ds Dataset
	switch format {
	case FormatCSV:
		ds, err = ReadCSV(ctx, f, maxSamples)
	case FormatParquet:
		st, statErr := f.Stat()
		if statErr != nil {
			return Dataset{}, fmt.Errorf("stat dataset: %w: %w", domain.ErrDataUnavailable, statErr)
		}
		ds, err = ReadParquet(ctx, f, st.Size(), maxSamples)
	}
	if err != nil {
		return Dataset{}, err
	}
	ds.Source = path
	return ds, nil
}

// FileLoader loads datasets from the local filesystem.
type FileLoader struct{}

// Load implements the training pipeline's loader contract.
func (FileLoader) Load(ctx context.Context, path string, maxSamples int) (Dataset, error) {
	return Load(ctx, path, maxSamples)
}

// builder accumulates rows and enforces the sample cap.
type builder struct {
	ds         Dataset
	maxSamples int
}

func (b *builder) full() bool {
	return b.maxSamples > 0 && len(b.ds.Rows) >= b.maxSamples
}

func (b *builder) add(id, seq, label string) {
	l, err := parseLabel(label)
	if err != nil || strings.TrimSpace(seq) == "" {
		b.ds.Skipped++
		return
	}
	b.ds.Rows = append(b.ds.Rows, Row{ID: id, Sequence: seq, Label: l})
}

func (b *builder) skip() { b.ds.Skipped++ }

func (b *builder) result() (Dataset, error) {
	if len(b.ds.Rows) == 0 {
		return b.ds, fmt.Errorf("no usable rows (%d skipped): %w", b.ds.Skipped, domain.ErrDataUnavailable)
	}
	return b.ds, nil
}

// parseLabel accepts integer labels, including float spellings such as "1.0".
func parseLabel(s string) (domain.Label, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int64(f)) {
			return 0, errors.Join(err, ferr)
		}
		n = int64(f)
	}
	return domain.ParseLabel(n)
}
