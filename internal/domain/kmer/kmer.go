// Package kmer slices cleaned sequences into overlapping fixed-length tokens.
package kmer

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/viralscan/internal/domain"
)

// DefaultK is the window size used when none is configured.
const DefaultK = 3

// Filler substitutes cleaned sequences shorter than k, so every row yields at least one token.
var Filler = strings.Repeat("ATGC", 10)

// Tokenizer produces overlapping k-mers with stride 1. Safe for concurrent use.
type Tokenizer struct {
	k int
}

// New validates k and creates a Tokenizer. k must be in [1, len(Filler)].
func New(k int) (*Tokenizer, error) {
	if k < 1 || k > len(Filler) {
		return nil, fmt.Errorf("k must be between 1 and %d, got %d: %w", len(Filler), k, domain.ErrInvalidInput)
	}
	return &Tokenizer{k: k}, nil
}

// K returns the window size.
func (t *Tokenizer) K() int { return t.k }

// Tokenize returns all k-mers of cleaned at offsets 0..len-k.
// fallback reports whether the filler was substituted.
func (t *Tokenizer) Tokenize(cleaned string) (tokens []string, fallback bool) {
	if len(cleaned) < t.k {
		cleaned = Filler
		fallback = true
	}
	n := len(cleaned) - t.k + 1
	tokens = make([]string, n)
	for i := 0; i < n; i++ {
		tokens[i] = cleaned[i : i+t.k]
	}
	return tokens, fallback
}
