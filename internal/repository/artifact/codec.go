// Package artifact persists trained model bundles as single opaque blobs.
//
// A blob is a zstd frame around a gob-encoded snapshot carrying a format
// version. Stores replace the whole blob in one step, so a reader sees either
// the previous bundle or the new one.
package artifact

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/kailas-cloud/viralscan/internal/domain"
	"github.com/kailas-cloud/viralscan/internal/domain/evaluation"
	"github.com/kailas-cloud/viralscan/internal/domain/model"
	"github.com/kailas-cloud/viralscan/internal/domain/vocabulary"
	"github.com/kailas-cloud/viralscan/internal/ml"
)

// FormatVersion is bumped on any incompatible snapshot change.
const FormatVersion = 1

const maxDecodedSize = 1 << 30

type snapshot struct {
	Version     int
	ID          string
	Family      domain.Family
	Classifier  []byte
	Tokens      []string
	K           int
	Report      evaluation.Report
	Importances []float64
	Dataset     model.Dataset
	CreatedAt   int64
}

// Encode serializes a trained bundle.
func Encode(m model.Model) ([]byte, error) {
	if !m.Trained() {
		return nil, domain.ErrModelNotReady
	}
	clf, err := m.Classifier().MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal classifier: %w", err)
	}

	var buf bytes.Buffer
	err = gob.NewEncoder(&buf).Encode(snapshot{
		Version:     FormatVersion,
		ID:          m.ID(),
		Family:      m.Family(),
		Classifier:  clf,
		Tokens:      m.Vocabulary().Tokens(),
		K:           m.K(),
		Report:      m.Report(),
		Importances: m.Importances(),
		Dataset:     m.Dataset(),
		CreatedAt:   m.CreatedAt(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	defer func() { _ = enc.Close() }()
	return enc.EncodeAll(buf.Bytes(), make([]byte, 0, buf.Len()/4)), nil
}

// Decode restores a bundle written by Encode. Any framing, version or
// consistency problem yields domain.ErrArtifactCorrupt.
func Decode(data []byte) (model.Model, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize))
	if err != nil {
		return model.Model{}, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return model.Model{}, fmt.Errorf("decompress artifact: %w: %w", domain.ErrArtifactCorrupt, err)
	}

	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&s); err != nil {
		return model.Model{}, fmt.Errorf("decode snapshot: %w: %w", domain.ErrArtifactCorrupt, err)
	}
	if s.Version != FormatVersion {
		return model.Model{}, fmt.Errorf("artifact format %d, want %d: %w",
			s.Version, FormatVersion, domain.ErrArtifactCorrupt)
	}

	vocab, err := vocabulary.FromTokens(s.Tokens)
	if err != nil {
		return model.Model{}, fmt.Errorf("restore vocabulary: %w: %w", domain.ErrArtifactCorrupt, err)
	}
	if vocab.Size() == 0 || s.K < 1 {
		return model.Model{}, fmt.Errorf("empty vocabulary or bad k: %w", domain.ErrArtifactCorrupt)
	}
	if s.Importances != nil && len(s.Importances) != vocab.Size() {
		return model.Model{}, fmt.Errorf("importances do not match vocabulary: %w", domain.ErrArtifactCorrupt)
	}
	clf, err := ml.Restore(s.Family, s.Classifier)
	if err != nil {
		return model.Model{}, err
	}
	if clf.Width() != vocab.Size() {
		return model.Model{}, fmt.Errorf("classifier width %d for %d vocabulary columns: %w: %w",
			clf.Width(), vocab.Size(), domain.ErrArtifactCorrupt, domain.ErrVocabularyMismatch)
	}
	return model.Reconstruct(s.ID, clf, vocab, s.K, s.Report, s.Importances, s.Dataset, s.CreatedAt), nil
}
