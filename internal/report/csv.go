package report

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/kailas-cloud/viralscan/internal/domain"
	"github.com/kailas-cloud/viralscan/internal/domain/prediction"
)

// CSVRow is one line of the detailed prediction export.
type CSVRow struct {
	Index               int     `csv:"index"`
	SequenceID          string  `csv:"sequence_id"`
	Sequence            string  `csv:"sequence_preview"`
	Prediction          string  `csv:"prediction"`
	Confidence          float64 `csv:"confidence"`
	ViralProbability    float64 `csv:"viral_probability"`
	NonViralProbability float64 `csv:"non_viral_probability"`
	Length              int     `csv:"length"`
	GCContent           float64 `csv:"gc_content"`
	ATContent           float64 `csv:"at_content"`
	Fallback            bool    `csv:"filler_substituted"`
	Model               string  `csv:"model"`
	Timestamp           string  `csv:"timestamp"`
}

// CSVRows flattens results in input order.
func CSVRows(results []prediction.Result) []CSVRow {
	rows := make([]CSVRow, len(results))
	for i, r := range results {
		c := r.Composition()
		rows[i] = CSVRow{
			Index:               r.Index(),
			SequenceID:          r.SequenceID(),
			Sequence:            r.Preview(),
			Prediction:          r.Label().String(),
			Confidence:          r.Confidence(),
			ViralProbability:    r.Probability(domain.LabelViral),
			NonViralProbability: r.Probability(domain.LabelNonViral),
			Length:              c.Length,
			GCContent:           c.GCContent,
			ATContent:           c.ATContent,
			Fallback:            r.Fallback(),
			Model:               r.ModelName(),
			Timestamp:           r.Timestamp().Format(time.RFC3339),
		}
	}
	return rows
}

// WriteCSV writes the detailed export with a header row.
func WriteCSV(w io.Writer, results []prediction.Result) error {
	if err := gocsv.Marshal(CSVRows(results), w); err != nil {
		return fmt.Errorf("write csv report: %w", err)
	}
	return nil
}

// ReadCSV parses an export written by WriteCSV.
func ReadCSV(r io.Reader) ([]CSVRow, error) {
	var rows []CSVRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("read csv report: %w", err)
	}
	return rows, nil
}
