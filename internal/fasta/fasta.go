// Package fasta extracts sequences from uploaded FASTA files or raw nucleotide blocks.
package fasta

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/kailas-cloud/viralscan/internal/domain/sequence"
)

// RawSequenceID names the single sequence recovered from a payload without headers.
const RawSequenceID = "User_Sequence"

// MinRawLength is the number of bases a raw block must exceed to count as a sequence.
const MinRawLength = 10

const maxLineSize = 64 << 20

// Record is one parsed sequence.
type Record struct {
	ID       string
	Sequence string
}

// Result is the outcome of parsing a payload.
type Result struct {
	Records []Record
	// Discarded counts FASTA records with no A/T/G/C bases.
	Discarded int
	// Raw is set when no header was found and the payload was used as one sequence.
	Raw bool
}

// Parse reads payload as FASTA. A record starts at a '>' line; its ID is the
// first whitespace-delimited token of the header and its body is every
// following line up to the next header, with whitespace removed. Text before
// the first header is ignored. When the payload has no records, it is
// filtered to A/T/G/C/N and, if more than MinRawLength bases remain, returned
// as a single record named RawSequenceID.
func Parse(payload []byte) (Result, error) {
	var res Result
	var cur *Record
	var body strings.Builder
	found := false

	flush := func() {
		if cur == nil {
			return
		}
		cur.Sequence = body.String()
		body.Reset()
		if sequence.Clean(cur.Sequence) == "" {
			res.Discarded++
		} else {
			res.Records = append(res.Records, *cur)
		}
		cur = nil
	}

	sc := bufio.NewScanner(bytes.NewReader(payload))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			flush()
			found = true
			cur = &Record{ID: headerID(line[1:], len(res.Records)+res.Discarded+1)}
			continue
		}
		if cur == nil {
			continue
		}
		for _, f := range bytes.Fields(line) {
			body.Write(f)
		}
	}
	if err := sc.Err(); err != nil {
		return Result{}, fmt.Errorf("scan fasta: %w", err)
	}
	flush()

	if found {
		return res, nil
	}

	raw := sequence.CleanUnresolved(string(payload))
	if len(raw) > MinRawLength {
		res.Records = []Record{{ID: RawSequenceID, Sequence: raw}}
		res.Raw = true
	}
	return res, nil
}

func headerID(header []byte, n int) string {
	fields := bytes.Fields(header)
	if len(fields) == 0 {
		return fmt.Sprintf("sequence_%d", n)
	}
	return string(fields[0])
}
