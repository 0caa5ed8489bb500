/*
 * Copyright (c) 2026. The areastore authors. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

// Package index keeps a persistent map of record keys to record locations
// outside the log, so readers can find a record without walking the store.
// The index is kept consistent across compaction through the store's move
// callback.
package index

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/areastore/areastore/pkg/errdefs"
	"github.com/areastore/areastore/pkg/store"
)

// Bucket names
var (
	recordsBucketName = []byte("records") // <key> = <location>
	metaBucketName    = []byte("meta")    // instance id
)

var idKey = []byte("id")

// Location is the persisted position of a record in the store.
type Location struct {
	Sector int `json:"sector"`
	Loc    int `json:"loc"`
	Size   int `json:"size"`
}

// KeyFunc extracts the index key of a record from its data.
type KeyFunc func(r *store.Record) ([]byte, error)

// Index is a bolt-backed record location index.
type Index struct {
	db    *bolt.DB
	keyFn KeyFunc
	id    string
}

// Open creates or opens the index database at path.
func Open(path string, keyFn KeyFunc) (*Index, error) {
	if keyFn == nil {
		return nil, errors.Wrap(errdefs.ErrInvalidArgument, "no key function")
	}

	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open index database %q", path)
	}

	ix := &Index{db: db, keyFn: keyFn}
	if err := ix.init(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize index database")
	}

	return ix, nil
}

func (ix *Index) init() error {
	return ix.db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(recordsBucketName); err != nil {
			return err
		}

		meta, err := tx.CreateBucketIfNotExists(metaBucketName)
		if err != nil {
			return err
		}

		id := meta.Get(idKey)
		if id == nil {
			id = []byte(uuid.New().String())
			if err := meta.Put(idKey, id); err != nil {
				return err
			}
		}
		ix.id = string(id)

		return nil
	})
}

// ID returns the stable instance id of the index database.
func (ix *Index) ID() string { return ix.id }

// Close closes the index database.
func (ix *Index) Close() error { return ix.db.Close() }

// Put records the location of r under its extracted key.
func (ix *Index) Put(r *store.Record) error {
	key, err := ix.keyFn(r)
	if err != nil {
		return errors.Wrap(err, "failed to extract record key")
	}

	loc := Location{Sector: r.Sector, Loc: r.Loc, Size: r.Size}

	return ix.db.Update(func(tx *bolt.Tx) error {
		return putObject(tx.Bucket(recordsBucketName), key, &loc)
	})
}

// Get returns the recorded location of key.
func (ix *Index) Get(key []byte) (*Location, error) {
	var loc Location
	err := ix.db.View(func(tx *bolt.Tx) error {
		return getObject(tx.Bucket(recordsBucketName), key, &loc)
	})
	if err != nil {
		return nil, err
	}

	return &loc, nil
}

// Delete removes key from the index.
func (ix *Index) Delete(key []byte) error {
	return ix.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucketName).Delete(key)
	})
}

// Walk iterates all indexed keys and their locations.
func (ix *Index) Walk(fn func(key []byte, loc *Location) error) error {
	return ix.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(recordsBucketName).ForEach(func(k, v []byte) error {
			var loc Location
			if err := json.Unmarshal(v, &loc); err != nil {
				return err
			}

			return fn(k, &loc)
		})
	})
}

// MoveCb returns the hook to install as the store's move callback, so
// locations follow records copied forward during compaction.
func (ix *Index) MoveCb() func(orig, dest *store.Record) {
	return func(orig, dest *store.Record) {
		// the index is advisory; a failed update is repaired by the
		// next Rebuild
		_ = ix.Put(dest)
	}
}

// Rebuild drops the index content and walks the whole store to rebuild it.
func (ix *Index) Rebuild(s *store.Store) error {
	err := ix.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(recordsBucketName); err != nil {
			return err
		}

		_, err := tx.CreateBucket(recordsBucketName)

		return err
	})
	if err != nil {
		return errors.Wrap(err, "failed to reset index database")
	}

	walk := store.Record{}
	for s.RecordNext(&walk) == nil {
		if err := ix.Put(&walk); err != nil {
			return err
		}
	}

	return nil
}

func putObject(bucket *bolt.Bucket, key []byte, obj interface{}) error {
	value, err := json.Marshal(obj)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal location for %q", key)
	}

	return bucket.Put(key, value)
}

func getObject(bucket *bolt.Bucket, key []byte, obj interface{}) error {
	value := bucket.Get(key)
	if value == nil {
		return errors.Wrapf(errdefs.ErrNotFound, "no index entry for %q", key)
	}

	return json.Unmarshal(value, obj)
}
