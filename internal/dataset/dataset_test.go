package dataset

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/kailas-cloud/viralscan/internal/domain"
)

func TestReadCSV(t *testing.T) {
	in := "id,sequence,label\n" +
		"a,ATGCATGC,1\n" +
		"b,GGGCCC,0\n" +
		"c,ATAT,2\n" + // bad label
		"d,,1\n" + // empty sequence
		"e,TTTT\n" + // short row
		"f,CCCGGG,1.0\n"

	ds, err := ReadCSV(context.Background(), strings.NewReader(in), 0)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(ds.Rows) != 3 || ds.Skipped != 3 {
		t.Fatalf("rows=%d skipped=%d", len(ds.Rows), ds.Skipped)
	}
	if ds.Rows[0].Sequence != "ATGCATGC" || ds.Rows[0].Label != domain.LabelViral || ds.Rows[0].ID != "a" {
		t.Errorf("row 0 = %+v", ds.Rows[0])
	}
	if ds.Rows[2].Label != domain.LabelViral {
		t.Errorf("float label not parsed: %+v", ds.Rows[2])
	}
	c := ds.Counts()
	if c[domain.LabelViral] != 2 || c[domain.LabelNonViral] != 1 {
		t.Errorf("Counts() = %v", c)
	}
}

func TestReadCSV_MaxSamples(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("id,sequence,label\n")
	for i := 0; i < 50; i++ {
		sb.WriteString("x,ATGC,0\n")
	}
	ds, err := ReadCSV(context.Background(), strings.NewReader(sb.String()), 10)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(ds.Rows) != 10 {
		t.Errorf("rows = %d, want 10", len(ds.Rows))
	}
}

func TestReadCSV_Unavailable(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"narrow header", "id,sequence\n"},
		{"no usable rows", "id,sequence,label\nx,ATGC,7\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(context.Background(), strings.NewReader(tt.in), 0)
			if !errors.Is(err, domain.ErrDataUnavailable) {
				t.Errorf("err = %v, want ErrDataUnavailable", err)
			}
		})
	}
}

type parquetRow struct {
	AID       string `parquet:"a_id"`
	BSequence string `parquet:"b_sequence"`
	CLabel    int64  `parquet:"c_label"`
}

func writeParquet(t *testing.T, rows []parquetRow) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[parquetRow](&buf)
	if _, err := w.Write(rows); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return buf.Bytes()
}

func TestReadParquet(t *testing.T) {
	data := writeParquet(t, []parquetRow{
		{"a", "ATGCATGC", 1},
		{"b", "GGGCCC", 0},
		{"c", "ATAT", 5},
	})
	ds, err := ReadParquet(context.Background(), bytes.NewReader(data), int64(len(data)), 0)
	if err != nil {
		t.Fatalf("ReadParquet: %v", err)
	}
	if len(ds.Rows) != 2 || ds.Skipped != 1 {
		t.Fatalf("rows=%d skipped=%d", len(ds.Rows), ds.Skipped)
	}
	if ds.Rows[1].ID != "b" || ds.Rows[1].Sequence != "GGGCCC" || ds.Rows[1].Label != domain.LabelNonViral {
		t.Errorf("row 1 = %+v", ds.Rows[1])
	}
}

func TestReadParquet_Corrupt(t *testing.T) {
	data := []byte("definitely not parquet")
	_, err := ReadParquet(context.Background(), bytes.NewReader(data), int64(len(data)), 0)
	if !errors.Is(err, domain.ErrDataUnavailable) {
		t.Errorf("err = %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "train.csv")
	if err := os.WriteFile(csvPath, []byte("id,seq,label\na,ATGC,1\nb,GGCC,0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	pqPath := filepath.Join(dir, "train.parquet")
	if err := os.WriteFile(pqPath, writeParquet(t, []parquetRow{{"a", "ATGC", 1}}), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, p := range []string{csvPath, pqPath} {
		ds, err := Load(context.Background(), p, 0)
		if err != nil {
			t.Fatalf("Load(%s): %v", p, err)
		}
		if ds.Source != p || len(ds.Rows) == 0 {
			t.Errorf("Load(%s) = %+v", p, ds)
		}
	}

	if !Exists(csvPath) || Exists(filepath.Join(dir, "missing.csv")) || Exists(dir) {
		t.Error("Exists mismatch")
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{filepath.Join(dir, "missing.csv"), filepath.Join(dir, "data.json")} {
		if _, err := Load(context.Background(), p, 0); !errors.Is(err, domain.ErrDataUnavailable) {
			t.Errorf("Load(%s) err = %v", p, err)
		}
	}
}
