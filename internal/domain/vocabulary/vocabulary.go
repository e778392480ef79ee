// Package vocabulary maps k-mer tokens to fixed feature columns.
//
// A Vocabulary is built once by Fit from the training corpus and is read-only
// afterwards. Transform takes the Vocabulary explicitly; there is no shared
// default instance.
package vocabulary

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/viralscan/internal/domain"
)

// DefaultMaxFeatures caps the number of columns when none is configured.
const DefaultMaxFeatures = 1000

// Vocabulary is an immutable token → column mapping.
type Vocabulary struct {
	tokens []string
	index  map[string]int
}

// FromTokens rebuilds a Vocabulary from its column-ordered tokens.
func FromTokens(tokens []string) (*Vocabulary, error) {
	index := make(map[string]int, len(tokens))
	for i, t := range tokens {
		if t == "" {
			return nil, fmt.Errorf("empty token at column %d: %w", i, domain.ErrInvalidInput)
		}
		if _, dup := index[t]; dup {
			return nil, fmt.Errorf("duplicate token %q: %w", t, domain.ErrInvalidInput)
		}
		index[t] = i
	}
	cp := make([]string, len(tokens))
	copy(cp, tokens)
	return &Vocabulary{tokens: cp, index: index}, nil
}

// Size returns the number of columns.
func (v *Vocabulary) Size() int { return len(v.tokens) }

// Tokens returns a copy of the tokens in column order.
func (v *Vocabulary) Tokens() []string {
	cp := make([]string, len(v.tokens))
	copy(cp, v.tokens)
	return cp
}

// Token returns the token at column i.
func (v *Vocabulary) Token(i int) string { return v.tokens[i] }

// Column returns the column of token and whether it is known.
func (v *Vocabulary) Column(token string) (int, bool) {
	i, ok := v.index[token]
	return i, ok
}

// Fit builds a Vocabulary from all rows and returns it with the row vectors.
// When more than maxFeatures distinct tokens exist, the most frequent ones
// (by total count, ties by token) are kept. Columns follow token order.
// maxFeatures <= 0 keeps every token. Must be called once per training run.
func Fit(rows [][]string, maxFeatures int) (*Vocabulary, [][]float64) {
	counts := make(map[string]int)
	for _, row := range rows {
		for _, t := range row {
			counts[t]++
		}
	}

	tokens := make([]string, 0, len(counts))
	for t := range counts {
		tokens = append(tokens, t)
	}

	if maxFeatures > 0 && len(tokens) > maxFeatures {
		sort.Slice(tokens, func(i, j int) bool {
			ci, cj := counts[tokens[i]], counts[tokens[j]]
			if ci != cj {
				return ci > cj
			}
			return tokens[i] < tokens[j]
		})
		tokens = tokens[:maxFeatures]
	}
	sort.Strings(tokens)

	index := make(map[string]int, len(tokens))
	for i, t := range tokens {
		index[t] = i
	}
	v := &Vocabulary{tokens: tokens, index: index}

	vectors, _ := Transform(v, rows)
	return v, vectors
}

// Transform maps rows onto the frozen columns of v. Tokens outside v are
// dropped; the second result counts them. v is never modified.
func Transform(v *Vocabulary, rows [][]string) ([][]float64, int) {
	vectors := make([][]float64, len(rows))
	oov := 0
	for i, row := range rows {
		vec, miss := v.vector(row)
		vectors[i] = vec
		oov += miss
	}
	return vectors, oov
}

// TransformRow is Transform for a single row.
func TransformRow(v *Vocabulary, row []string) ([]float64, int) {
	return v.vector(row)
}

func (v *Vocabulary) vector(row []string) ([]float64, int) {
	vec := make([]float64, len(v.tokens))
	miss := 0
	for _, t := range row {
		if i, ok := v.Column(t); ok {
			vec[i]++
		} else {
			miss++
		}
	}
	return vec, miss
}
