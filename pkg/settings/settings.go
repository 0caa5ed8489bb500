/*
 * Copyright (c) 2026. The areastore authors. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

// Package settings stores named values as records in a storage area store.
//
// Each record is framed as name_len (one byte) | name | value. Saving a name
// again supersedes the previous record; saving without a value deletes the
// name. During compaction only the newest record of each surviving name is
// kept, so the log stays bounded.
package settings

import (
	"bytes"
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/pkg/errors"

	"github.com/areastore/areastore/pkg/errdefs"
	"github.com/areastore/areastore/pkg/store"
)

const (
	// valueBufSize bounds the stack buffer used when comparing values.
	valueBufSize = 32
	// cacheEntries bounds the name to value cache.
	cacheEntries = 128
)

// Store is a key/value front-end on a storage area store.
type Store struct {
	sas *store.Store

	mu    sync.Mutex
	cache *lru.Cache
}

// New mounts sas and returns the settings front-end. The store must use the
// persistent circular buffer mode; its compaction is driven by the
// front-end's own liveness callback.
func New(sas *store.Store) (*Store, error) {
	s := &Store{
		sas:   sas,
		cache: lru.New(cacheEntries),
	}

	if !sas.Ready() {
		cb := &store.CompactCb{Move: s.move}
		if err := sas.Mount(cb); err != nil {
			return nil, errors.Wrap(err, "failed to mount backing store")
		}
	}

	return s, nil
}

// Unmount releases the backing store.
func (s *Store) Unmount() error {
	return s.sas.Unmount()
}

func recordName(r *store.Record) (string, error) {
	var nsz [1]byte
	if err := r.Read(0, nsz[:]); err != nil {
		return "", err
	}

	if int(nsz[0]) == 0 || int(nsz[0]) > r.Size-1 {
		return "", errors.Wrap(errdefs.ErrInvalidArgument, "nameless record")
	}

	name := make([]byte, nsz[0])
	if err := r.Read(1, name); err != nil {
		return "", err
	}

	return string(name), nil
}

// superseded reports whether a later record carries the same name.
func (s *Store) superseded(r *store.Record, name string) bool {
	walk := *r
	for s.sas.RecordNext(&walk) == nil {
		wname, err := recordName(&walk)
		if err != nil {
			continue
		}

		if wname == name {
			return true
		}
	}

	return false
}

// skip reports whether a record does not contribute a current value: its
// name is unreadable, it does not match the subtree, a newer record carries
// the same name, or it failed validation.
func (s *Store) skip(r *store.Record, subtree string) bool {
	name, err := recordName(r)
	if err != nil {
		return true
	}

	if subtree != "" && !bytes.HasPrefix([]byte(name), []byte(subtree)) {
		return true
	}

	if s.superseded(r, name) {
		return true
	}

	return !r.Valid()
}

// move is the compaction liveness callback: keep the newest record of each
// name, drop deleted names.
func (s *Store) move(r *store.Record) bool {
	if s.skip(r, "") {
		return false
	}

	name, err := recordName(r)
	if err != nil {
		return false
	}

	// a record without a value is a deletion marker
	return r.Size != len(name)+1
}

// duplicate reports whether the current record for name already holds value.
func (s *Store) duplicate(name string, value []byte) bool {
	var match *store.Record
	walk := store.Record{}
	for s.sas.RecordNext(&walk) == nil {
		if s.skip(&walk, name) {
			continue
		}

		wname, err := recordName(&walk)
		if err != nil || wname != name {
			continue
		}

		r := walk
		match = &r
	}

	if match == nil {
		return false
	}

	dstart := 1 + len(name)
	if len(value) != match.Size-dstart {
		return false
	}

	var buf [valueBufSize]byte
	rest := value
	for len(rest) > 0 {
		n := len(buf)
		if n > len(rest) {
			n = len(rest)
		}

		if match.Read(dstart, buf[:n]) != nil {
			return false
		}

		if !bytes.Equal(rest[:n], buf[:n]) {
			return false
		}

		dstart += n
		rest = rest[n:]
	}

	return true
}

// Save stores value under name. A nil or empty value deletes the name.
func (s *Store) Save(name string, value []byte) error {
	if name == "" || len(name) > 0xff {
		return errors.Wrapf(errdefs.ErrInvalidArgument, "bad name %q", name)
	}

	if s.duplicate(name, value) {
		return nil
	}

	nsz := []byte{byte(len(name))}
	var err error
	for i := 0; i < s.sas.SectorCount(); i++ {
		err = s.sas.Writev(nsz, []byte(name), value)
		if err == nil || !errdefs.IsNoSpace(err) {
			break
		}

		if err = s.sas.Compact(); err != nil {
			break
		}

		err = errors.Wrap(errdefs.ErrNoSpace, "store full")
	}

	if err != nil {
		return err
	}

	s.mu.Lock()
	if len(value) == 0 {
		s.cache.Remove(name)
	} else {
		v := make([]byte, len(value))
		copy(v, value)
		s.cache.Add(name, v)
	}
	s.mu.Unlock()

	return nil
}

// Delete removes name.
func (s *Store) Delete(name string) error {
	return s.Save(name, nil)
}

// Get returns the current value of name.
func (s *Store) Get(name string) ([]byte, error) {
	s.mu.Lock()
	if v, ok := s.cache.Get(name); ok {
		s.mu.Unlock()
		value := v.([]byte)
		out := make([]byte, len(value))
		copy(out, value)

		return out, nil
	}
	s.mu.Unlock()

	var match *store.Record
	walk := store.Record{}
	for s.sas.RecordNext(&walk) == nil {
		if s.skip(&walk, name) {
			continue
		}

		wname, err := recordName(&walk)
		if err != nil || wname != name {
			continue
		}

		r := walk
		match = &r
	}

	dstart := 1 + len(name)
	if match == nil || match.Size == dstart {
		return nil, errors.Wrapf(errdefs.ErrNotFound, "no setting %q", name)
	}

	value := make([]byte, match.Size-dstart)
	if err := match.Read(dstart, value); err != nil {
		return nil, errors.Wrapf(err, "failed to read setting %q", name)
	}

	s.mu.Lock()
	v := make([]byte, len(value))
	copy(v, value)
	s.cache.Add(name, v)
	s.mu.Unlock()

	return value, nil
}

// Load visits the current value of every name under subtree, oldest name
// first. Pass an empty subtree to visit everything.
func (s *Store) Load(subtree string, fn func(name string, value []byte) error) error {
	walk := store.Record{}
	for {
		if err := s.sas.RecordNext(&walk); err != nil {
			if errdefs.IsNotFound(err) {
				return nil
			}

			return err
		}

		if s.skip(&walk, subtree) {
			continue
		}

		name, err := recordName(&walk)
		if err != nil {
			continue
		}

		dstart := 1 + len(name)
		if walk.Size == dstart {
			// deleted
			continue
		}

		value := make([]byte, walk.Size-dstart)
		if err := walk.Read(dstart, value); err != nil {
			return errors.Wrapf(err, "failed to read setting %q", name)
		}

		if err := fn(name, value); err != nil {
			return err
		}
	}
}
