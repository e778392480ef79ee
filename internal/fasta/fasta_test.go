package fasta

import (
	"strings"
	"testing"
)

func TestParse_Records(t *testing.T) {
	in := "ignored preamble\n" +
		">seq1 Human adenovirus\nATGC\nATGC\n\n" +
		">seq2\r\nggcc aatt\r\n" +
		">empty\nNNNN---\n" +
		">\nATATAT\n"

	res, err := Parse([]byte(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Raw {
		t.Error("Raw set for FASTA input")
	}
	if res.Discarded != 1 {
		t.Errorf("Discarded = %d, want 1", res.Discarded)
	}
	want := []Record{
		{"seq1", "ATGCATGC"},
		{"seq2", "ggccaatt"},
		{"sequence_4", "ATATAT"},
	}
	if len(res.Records) != len(want) {
		t.Fatalf("records = %+v", res.Records)
	}
	for i, w := range want {
		if res.Records[i] != w {
			t.Errorf("record %d = %+v, want %+v", i, res.Records[i], w)
		}
	}
}

func TestParse_RawFallback(t *testing.T) {
	res, err := Parse([]byte("atgc nnat gcat gc 123"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !res.Raw || len(res.Records) != 1 {
		t.Fatalf("res = %+v", res)
	}
	if res.Records[0].ID != RawSequenceID || res.Records[0].Sequence != "ATGCNNATGCATGC" {
		t.Errorf("record = %+v", res.Records[0])
	}
}

func TestParse_RawTooShort(t *testing.T) {
	res, err := Parse([]byte("ATGCATGCAT")) // exactly MinRawLength
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Records) != 0 {
		t.Errorf("records = %+v", res.Records)
	}
}

func TestParse_LongLine(t *testing.T) {
	long := strings.Repeat("ACGT", 100_000)
	res, err := Parse([]byte(">big\n" + long + "\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Records) != 1 || len(res.Records[0].Sequence) != len(long) {
		t.Errorf("unexpected result for long line")
	}
}

func TestParse_HeadersOnly(t *testing.T) {
	res, err := Parse([]byte(">a\n>b\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Records) != 0 || res.Discarded != 2 || res.Raw {
		t.Errorf("res = %+v", res)
	}
}
