package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/viralscan/internal/db"
)

// SetWithHash runs SET key value and HSET hashKey fields inside MULTI/EXEC.
// Either both writes are applied or neither is.
func (s *Store) SetWithHash(
	ctx context.Context, key string, value []byte, hashKey string, fields map[string]string,
) error {
	if len(fields) == 0 {
		return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("no fields for %s", hashKey)}
	}
	hset := s.b().Hset().Key(hashKey).FieldValue()
	for k, v := range fields {
		hset = hset.FieldValue(k, v)
	}

	resps := s.client.DoMulti(ctx,
		s.b().Multi().Build(),
		s.b().Set().Key(key).Value(rueidis.BinaryString(value)).Build(),
		hset.Build(),
		s.b().Exec().Build(),
	)
	for _, r := range resps {
		if err := r.Error(); err != nil {
			return &db.Error{Op: db.OpExec, Err: err}
		}
	}
	replies, err := resps[len(resps)-1].ToArray()
	if err != nil {
		return &db.Error{Op: db.OpExec, Err: err}
	}
	for _, r := range replies {
		if err := r.Error(); err != nil {
			return &db.Error{Op: db.OpExec, Err: err}
		}
	}
	return nil
}
