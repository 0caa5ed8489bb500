/*
 * Copyright (c) 2026. The areastore authors. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package index_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/areastore/areastore/pkg/area"
	"github.com/areastore/areastore/pkg/errdefs"
	"github.com/areastore/areastore/pkg/flash"
	"github.com/areastore/areastore/pkg/index"
	"github.com/areastore/areastore/pkg/store"
)

// recordKey uses the second payload byte as the record key.
func recordKey(r *store.Record) ([]byte, error) {
	var b [2]byte
	if err := r.Read(0, b[:]); err != nil {
		return nil, err
	}

	return b[1:2], nil
}

func newIndexedStore(t *testing.T) (*store.Store, *index.Index) {
	dir, err := os.MkdirTemp("", "areastore-index-")
	require.Nil(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	ix, err := index.Open(filepath.Join(dir, "index.db"), recordKey)
	require.Nil(t, err)
	t.Cleanup(func() { _ = ix.Close() })

	dev := flash.NewMemDevice(1024, 8, 8)
	a, err := flash.New(dev, 0, area.Config{
		WriteSize:   8,
		EraseSize:   1024,
		EraseBlocks: 8,
		Props:       area.LOvrWrite,
	}, flash.Options{})
	require.Nil(t, err)

	st, err := store.New(store.Config{
		Name:         t.Name(),
		Area:         a,
		Mode:         store.ModePersistentCB,
		SectorSize:   1024,
		SectorCount:  8,
		SpareSectors: 4,
	})
	require.Nil(t, err)

	cb := &store.CompactCb{
		Move: func(r *store.Record) bool {
			var b [1]byte
			if err := r.Read(0, b[:]); err != nil {
				return false
			}
			return b[0] == 'L'
		},
		MoveCb: ix.MoveCb(),
	}
	require.Nil(t, st.Mount(cb))

	return st, ix
}

func TestPutGetDelete(t *testing.T) {
	st, ix := newIndexedStore(t)

	require.Nil(t, st.Write([]byte{'L', 'k', 1, 2}))
	recs := []store.Record{}
	walk := store.Record{}
	for st.RecordNext(&walk) == nil {
		recs = append(recs, walk)
	}
	require.Len(t, recs, 1)

	require.Nil(t, ix.Put(&recs[0]))
	loc, err := ix.Get([]byte{'k'})
	require.Nil(t, err)
	require.Equal(t, recs[0].Sector, loc.Sector)
	require.Equal(t, recs[0].Loc, loc.Loc)
	require.Equal(t, recs[0].Size, loc.Size)

	require.Nil(t, ix.Delete([]byte{'k'}))
	_, err = ix.Get([]byte{'k'})
	require.True(t, errdefs.IsNotFound(err))
}

func TestMoveCbFollowsCompaction(t *testing.T) {
	st, ix := newIndexedStore(t)

	require.Nil(t, st.Write([]byte{'L', 'k', 1, 2}))
	require.Nil(t, ix.Rebuild(st))

	before, err := ix.Get([]byte{'k'})
	require.Nil(t, err)
	require.Equal(t, 0, before.Sector)

	// cycle the head until the record's block is compacted
	for i := 0; i < 3; i++ {
		require.Nil(t, st.Advance())
	}
	require.Nil(t, st.Compact())

	after, err := ix.Get([]byte{'k'})
	require.Nil(t, err)
	require.Equal(t, 4, after.Sector)

	// the indexed location resolves to the moved record
	r := store.Record{Store: st, Sector: after.Sector, Loc: after.Loc, Size: after.Size}
	require.True(t, r.Valid())
	data := make([]byte, r.Size)
	require.Nil(t, r.Read(0, data))
	require.Equal(t, []byte{'L', 'k', 1, 2}, data)
}

func TestRebuildWalksStore(t *testing.T) {
	st, ix := newIndexedStore(t)

	require.Nil(t, st.Write([]byte{'L', 'a', 1}))
	require.Nil(t, st.Write([]byte{'L', 'b', 2}))
	require.Nil(t, st.Write([]byte{'L', 'c', 3}))
	require.Nil(t, ix.Rebuild(st))

	keys := map[string]bool{}
	require.Nil(t, ix.Walk(func(key []byte, loc *index.Location) error {
		keys[string(key)] = true
		return nil
	}))
	require.Equal(t, map[string]bool{"a": true, "b": true, "c": true}, keys)
}

func TestStableInstanceID(t *testing.T) {
	dir, err := os.MkdirTemp("", "areastore-index-")
	require.Nil(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	path := filepath.Join(dir, "index.db")
	ix, err := index.Open(path, recordKey)
	require.Nil(t, err)
	id := ix.ID()
	require.NotEmpty(t, id)
	require.Nil(t, ix.Close())

	ix2, err := index.Open(path, recordKey)
	require.Nil(t, err)
	defer ix2.Close()
	require.Equal(t, id, ix2.ID())
}
