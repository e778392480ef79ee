package domain

import "fmt"

// Label is the binary class of a sequence.
type Label int

const (
	// LabelNonViral marks a non-viral sequence.
	LabelNonViral Label = 0
	// LabelViral marks a viral sequence.
	LabelViral Label = 1
)

// NumClasses is the width of every class-probability distribution.
const NumClasses = 2

// ParseLabel converts a dataset value into a Label.
func ParseLabel(v int64) (Label, error) {
	switch Label(v) {
	case LabelNonViral, LabelViral:
		return Label(v), nil
	default:
		return 0, fmt.Errorf("label %d out of range {0,1}: %w", v, ErrInvalidInput)
	}
}

// String returns the display name used in responses.
func (l Label) String() string {
	if l == LabelViral {
		return "Viral"
	}
	return "Non-Viral"
}

// IsViral reports whether l is the viral class.
func (l Label) IsViral() bool { return l == LabelViral }
