package store

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"reporag/internal/port"
)

// CurrentSchemaVersion is the current storage format version.
// Increment this when making breaking changes to stored vectors.
const CurrentSchemaVersion = 1

var bucketSpaces = []byte("_spaces")

// SpaceInfo records how a collection's vectors were produced.
type SpaceInfo struct {
	Version   int    `json:"version"`
	Signature string `json:"signature"`
	Dimension int    `json:"dimension"`
}

// GetSpaceInfo returns the recorded space of a collection, or nil.
func (s *BoltStore) GetSpaceInfo(name string) (*SpaceInfo, error) {
	var info *SpaceInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSpaces).Get([]byte(name))
		if data == nil {
			return nil
		}
		info = &SpaceInfo{}
		if err := json.Unmarshal(data, info); err != nil {
			info.Version = 0
		}
		return nil
	})
	return info, err
}

// ensureSpace records space for the collection and drops its vectors when
// a different space, or an older schema, was recorded before.
func (s *BoltStore) ensureSpace(name string, space port.Space) (bool, error) {
	current, err := s.GetSpaceInfo(name)
	if err != nil {
		return false, fmt.Errorf("failed to read space info: %w", err)
	}

	want := SpaceInfo{
		Version:   CurrentSchemaVersion,
		Signature: space.Signature,
		Dimension: space.Dimension,
	}
	if current != nil && *current == want {
		return false, nil
	}
	reset := current != nil

	err = s.db.Update(func(tx *bbolt.Tx) error {
		if reset && tx.Bucket([]byte(name)) != nil {
			if err := tx.DeleteBucket([]byte(name)); err != nil {
				return err
			}
		}
		data, err := json.Marshal(want)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketSpaces).Put([]byte(name), data)
	})
	if err != nil {
		return false, fmt.Errorf("failed to record space info: %w", err)
	}
	return reset, nil
}
