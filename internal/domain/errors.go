package domain

import (
	"errors"
)

var (
	// ErrDataUnavailable signals a missing, unreadable or empty training source.
	ErrDataUnavailable = errors.New("training data unavailable")
	// ErrInsufficientClassDiversity signals that a stratified split is impossible.
	ErrInsufficientClassDiversity = errors.New("insufficient class diversity")
	// ErrModelNotReady signals inference before a model was trained or loaded.
	ErrModelNotReady = errors.New("model not trained")
	// ErrNoSequencesFound signals an inference payload without usable sequences.
	ErrNoSequencesFound = errors.New("no valid sequences found")
	// ErrVocabularyMismatch marks tokens outside the frozen vocabulary.
	// Counted and zero-filled, never returned to callers.
	ErrVocabularyMismatch = errors.New("token not in vocabulary")
	// ErrInvalidInput signals a malformed request or parameter.
	ErrInvalidInput = errors.New("invalid input")
	// ErrTrainingInProgress signals a concurrent training request.
	ErrTrainingInProgress = errors.New("training already in progress")
	// ErrArtifactNotFound signals that no persisted model exists.
	ErrArtifactNotFound = errors.New("model artifact not found")
	// ErrArtifactCorrupt signals an artifact that cannot be decoded.
	ErrArtifactCorrupt = errors.New("model artifact corrupt")
)

// Error kinds are the machine-readable codes surfaced at the service boundary.
const (
	KindDataUnavailable            = "data_unavailable"
	KindInsufficientClassDiversity = "insufficient_class_diversity"
	KindModelNotReady              = "model_not_ready"
	KindNoSequencesFound           = "no_sequences_found"
	KindVocabularyMismatch         = "vocabulary_mismatch"
	KindInvalidInput               = "invalid_input"
	KindTrainingInProgress         = "training_in_progress"
	KindArtifactNotFound           = "artifact_not_found"
	KindArtifactCorrupt            = "artifact_corrupt"
	KindInternal                   = "internal_error"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrDataUnavailable, KindDataUnavailable},
	{ErrInsufficientClassDiversity, KindInsufficientClassDiversity},
	{ErrModelNotReady, KindModelNotReady},
	{ErrNoSequencesFound, KindNoSequencesFound},
	{ErrVocabularyMismatch, KindVocabularyMismatch},
	{ErrInvalidInput, KindInvalidInput},
	{ErrTrainingInProgress, KindTrainingInProgress},
	{ErrArtifactNotFound, KindArtifactNotFound},
	{ErrArtifactCorrupt, KindArtifactCorrupt},
}

// Kind returns the machine-readable kind of err, or KindInternal for unknown errors.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// Sentinel returns the domain sentinel wrapped by err, or nil.
func Sentinel(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.err
		}
	}
	return nil
}
