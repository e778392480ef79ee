package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestKind_WrappedSentinels(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("load csv: %w", ErrDataUnavailable), KindDataUnavailable},
		{fmt.Errorf("split: %w", ErrInsufficientClassDiversity), KindInsufficientClassDiversity},
		{ErrModelNotReady, KindModelNotReady},
		{fmt.Errorf("parse: %w", ErrNoSequencesFound), KindNoSequencesFound},
		{ErrTrainingInProgress, KindTrainingInProgress},
		{errors.New("boom"), KindInternal},
		{nil, KindInternal},
	}
	for _, tc := range tests {
		if got := Kind(tc.err); got != tc.want {
			t.Errorf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestSentinel(t *testing.T) {
	err := fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", ErrArtifactCorrupt))
	if got := Sentinel(err); got != ErrArtifactCorrupt {
		t.Errorf("Sentinel() = %v, want %v", got, ErrArtifactCorrupt)
	}
	if got := Sentinel(errors.New("x")); got != nil {
		t.Errorf("Sentinel() = %v, want nil", got)
	}
}

func TestParseLabel(t *testing.T) {
	for _, v := range []int64{0, 1} {
		l, err := ParseLabel(v)
		if err != nil {
			t.Fatalf("ParseLabel(%d): %v", v, err)
		}
		if int64(l) != v {
			t.Errorf("ParseLabel(%d) = %d", v, l)
		}
	}
	if _, err := ParseLabel(2); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ParseLabel(2) err = %v, want ErrInvalidInput", err)
	}
}

func TestLabelString(t *testing.T) {
	if LabelViral.String() != "Viral" {
		t.Errorf("LabelViral.String() = %q", LabelViral.String())
	}
	if LabelNonViral.String() != "Non-Viral" {
		t.Errorf("LabelNonViral.String() = %q", LabelNonViral.String())
	}
}

func TestParseFamily(t *testing.T) {
	if f, err := ParseFamily("knn"); err != nil || f != FamilyKNN {
		t.Errorf("ParseFamily(knn) = %q, %v", f, err)
	}
	if _, err := ParseFamily("svm"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ParseFamily(svm) err = %v", err)
	}
}

func TestPredictionFromProba(t *testing.T) {
	l, c := PredictionFromProba([]float64{0.3, 0.7})
	if l != LabelViral || c != 0.7 {
		t.Errorf("got %v %v", l, c)
	}
	l, c = PredictionFromProba([]float64{0.5, 0.5})
	if l != LabelNonViral || c != 0.5 {
		t.Errorf("tie: got %v %v", l, c)
	}
}
