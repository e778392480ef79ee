package artifact

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/viralscan/internal/db"
	"github.com/kailas-cloud/viralscan/internal/domain"
	"github.com/kailas-cloud/viralscan/internal/domain/model"
)

// Key layout: the blob lives under CurrentKey, a metadata hash under MetaKey.
const (
	KeyPrefix  = "viralscan:"
	CurrentKey = KeyPrefix + "model:current"
	MetaKey    = KeyPrefix + "model:meta"
)

// kvStore is the consumer interface for the key-value artifact store (ISP).
type kvStore interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithHash(ctx context.Context, key string, value []byte, hashKey string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// KVStore keeps the current bundle in Redis or Valkey.
type KVStore struct {
	store kvStore
}

// NewKVStore creates a store on top of a database client.
func NewKVStore(s kvStore) *KVStore {
	return &KVStore{store: s}
}

// Save replaces the blob and its metadata hash in one transaction. On error
// both keys keep describing the previous bundle.
func (s *KVStore) Save(ctx context.Context, m model.Model) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	if err := s.store.SetWithHash(ctx, CurrentKey, data, MetaKey, metaToHash(m, len(data))); err != nil {
		return fmt.Errorf("save artifact: %w", err)
	}
	return nil
}

// Load fetches and decodes the current bundle.
func (s *KVStore) Load(ctx context.Context) (model.Model, error) {
	data, err := s.store.Get(ctx, CurrentKey)
	if errors.Is(err, db.ErrKeyNotFound) {
		return model.Model{}, domain.ErrArtifactNotFound
	}
	if err != nil {
		return model.Model{}, fmt.Errorf("get artifact: %w", err)
	}
	return Decode(data)
}

// Describe returns the metadata hash of the stored bundle without decoding it.
func (s *KVStore) Describe(ctx context.Context) (Metadata, error) {
	h, err := s.store.HGetAll(ctx, MetaKey)
	if errors.Is(err, db.ErrKeyNotFound) {
		return Metadata{}, domain.ErrArtifactNotFound
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("hgetall artifact meta: %w", err)
	}
	return metaFromHash(h)
}

// Check pings the database.
func (s *KVStore) Check(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Metadata summarizes a stored bundle.
type Metadata struct {
	ID        string
	Family    domain.Family
	Accuracy  float64
	CreatedAt int64
	Bytes     int
}

func metaToHash(m model.Model, size int) map[string]string {
	return map[string]string{
		"id":         m.ID(),
		"family":     string(m.Family()),
		"accuracy":   strconv.FormatFloat(m.Accuracy(), 'f', -1, 64),
		"created_at": strconv.FormatInt(m.CreatedAt(), 10),
		"bytes":      strconv.Itoa(size),
		"format":     strconv.Itoa(FormatVersion),
	}
}

func metaFromHash(h map[string]string) (Metadata, error) {
	accuracy, err := strconv.ParseFloat(h["accuracy"], 64)
	if err != nil {
		return Metadata{}, fmt.Errorf("invalid accuracy: %w", err)
	}
	createdAt, err := strconv.ParseInt(h["created_at"], 10, 64)
	if err != nil {
		return Metadata{}, fmt.Errorf("invalid created_at: %w", err)
	}
	size, _ := strconv.Atoi(h["bytes"])
	return Metadata{
		ID:        h["id"],
		Family:    domain.Family(h["family"]),
		Accuracy:  accuracy,
		CreatedAt: createdAt,
		Bytes:     size,
	}, nil
}
