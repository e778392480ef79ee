package viralscan

import "github.com/kailas-cloud/viralscan/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrDataUnavailable            = domain.ErrDataUnavailable
	ErrInsufficientClassDiversity = domain.ErrInsufficientClassDiversity
	ErrModelNotReady              = domain.ErrModelNotReady
	ErrNoSequencesFound           = domain.ErrNoSequencesFound
	ErrInvalidInput               = domain.ErrInvalidInput
	ErrTrainingInProgress         = domain.ErrTrainingInProgress
	ErrArtifactNotFound           = domain.ErrArtifactNotFound
	ErrArtifactCorrupt            = domain.ErrArtifactCorrupt
)
