// Package sequence normalizes raw nucleotide text into the canonical alphabet.
package sequence

import "strings"

// Alphabet is the set of bases kept by Clean.
const Alphabet = "ATGC"

// UnresolvedBase is the extra symbol kept by CleanUnresolved.
const UnresolvedBase = 'N'

// Clean uppercases s and keeps only A, T, G and C, preserving order.
// Any input is accepted; the result may be empty.
func Clean(s string) string {
	return filter(s, false)
}

// CleanUnresolved is Clean that also keeps N. Used when a payload is read as a raw block.
func CleanUnresolved(s string) string {
	return filter(s, true)
}

func filter(s string, keepN bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		switch c {
		case 'A', 'T', 'G', 'C':
			b.WriteByte(c)
		case UnresolvedBase:
			if keepN {
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}

// Composition holds descriptive statistics of a sequence.
type Composition struct {
	Length    int
	GCContent float64 // percent of A/T/G/C bases that are G or C
	ATContent float64 // percent of A/T/G/C bases that are A or T
}

// Compose computes length and GC/AT percentages. Length counts every
// resolved or unresolved base; percentages are over A/T/G/C only and are 0
// when there are none.
func Compose(raw string) Composition {
	unresolved := CleanUnresolved(raw)
	var gc, at int
	for i := 0; i < len(unresolved); i++ {
		switch unresolved[i] {
		case 'G', 'C':
			gc++
		case 'A', 'T':
			at++
		}
	}
	c := Composition{Length: len(unresolved)}
	if total := gc + at; total > 0 {
		c.GCContent = 100 * float64(gc) / float64(total)
		c.ATContent = 100 * float64(at) / float64(total)
	}
	return c
}

// Preview truncates s to n characters followed by "..." when longer.
func Preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
