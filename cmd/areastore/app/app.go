/*
 * Copyright (c) 2026. The areastore authors. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package app

import (
	"encoding/hex"
	"fmt"

	"github.com/containerd/containerd/log"
	"github.com/pkg/errors"

	"github.com/areastore/areastore/config"
	"github.com/areastore/areastore/pkg/area"
	"github.com/areastore/areastore/pkg/disk"
	"github.com/areastore/areastore/pkg/errdefs"
	"github.com/areastore/areastore/pkg/index"
	"github.com/areastore/areastore/pkg/metric/exporter"
	"github.com/areastore/areastore/pkg/settings"
	"github.com/areastore/areastore/pkg/store"
)

// Env bundles the opened image, store and optional index of one invocation.
type Env struct {
	cfg   *config.Config
	fdisk *disk.FileDisk
	store *store.Store
	index *index.Index
}

// Open sets up the area and store over the configured disk image. With
// create set the image file is created and sized first.
func Open(cfg *config.Config, create bool) (*Env, error) {
	asize := int64(cfg.EraseSize) * int64(cfg.EraseBlocks)

	var fdisk *disk.FileDisk
	var err error
	if create {
		fdisk, err = disk.Create(cfg.ImagePath, cfg.DiskSector,
			int(asize/int64(cfg.DiskSector)))
	} else {
		fdisk, err = disk.Open(cfg.ImagePath, cfg.DiskSector)
	}
	if err != nil {
		return nil, err
	}

	a, err := disk.New(fdisk, 0, area.Config{
		WriteSize:   cfg.WriteSize,
		EraseSize:   cfg.EraseSize,
		EraseBlocks: cfg.EraseBlocks,
	}, disk.Options{Verify: true})
	if err != nil {
		fdisk.Close()
		return nil, errors.Wrap(err, "failed to set up storage area")
	}

	mode, err := store.ParseMode(cfg.Mode)
	if err != nil {
		fdisk.Close()
		return nil, err
	}

	st, err := store.New(store.Config{
		Name:         cfg.StoreName,
		Area:         a,
		Mode:         mode,
		SectorCookie: cfg.Cookie,
		SectorSize:   cfg.SectorSize,
		SectorCount:  cfg.SectorCount,
		SpareSectors: cfg.SpareSectors,
		CRCSkip:      cfg.CRCSkip,
	})
	if err != nil {
		fdisk.Close()
		return nil, errors.Wrap(err, "failed to set up store")
	}

	env := &Env{cfg: cfg, fdisk: fdisk, store: st}
	if cfg.IndexPath != "" {
		ix, err := index.Open(cfg.IndexPath, recordKey)
		if err != nil {
			fdisk.Close()
			return nil, err
		}

		env.index = ix
	}

	return env, nil
}

// recordKey indexes records by their full location; applications embedding
// the store would extract a domain key from the record data instead.
func recordKey(r *store.Record) ([]byte, error) {
	return []byte(fmt.Sprintf("%d-%d", r.Sector, r.Loc)), nil
}

// Mount mounts the store in its configured mode. Compacting modes drop
// records whose leading data byte was cleared, when a crc skip region is
// configured.
func (e *Env) Mount() error {
	mode, _ := store.ParseMode(e.cfg.Mode)
	if mode != store.ModePersistentCB {
		return e.store.Mount(nil)
	}

	cb := &store.CompactCb{Move: e.keepRecord}
	if e.index != nil {
		cb.MoveCb = e.index.MoveCb()
	}

	return e.store.Mount(cb)
}

// keepRecord is the compaction liveness rule of the tool: a record whose
// leading data byte was rewritten to zero is dropped, everything else is
// kept. Without a crc skip region nothing can be invalidated in place, so
// everything is kept.
func (e *Env) keepRecord(r *store.Record) bool {
	if e.cfg.CRCSkip < 1 {
		return true
	}

	var marker [1]byte
	if err := r.Read(0, marker[:]); err != nil {
		return false
	}

	return marker[0] != 0x00
}

// Close releases the image and dumps metrics when configured.
func (e *Env) Close() error {
	if e.cfg.MetricsFile != "" {
		exp, err := exporter.NewExporter(exporter.WithOutputFile(e.cfg.MetricsFile))
		if err == nil {
			err = exp.Export()
		}
		if err != nil {
			log.L.WithError(err).Warn("failed to export metrics")
		}
	}

	if e.index != nil {
		e.index.Close()
	}

	return e.fdisk.Close()
}

// Init creates a wiped store image.
func Init(cfg *config.Config) error {
	env, err := Open(cfg, true)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.store.Wipe(); err != nil {
		return err
	}

	if err := env.Mount(); err != nil {
		return err
	}
	defer env.store.Unmount()

	log.L.Infof("initialized %q: %d sectors of %d bytes",
		cfg.ImagePath, cfg.SectorCount, cfg.SectorSize)

	return nil
}

// Status prints the mount state of the store.
func Status(cfg *config.Config) error {
	env, err := Open(cfg, false)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.Mount(); err != nil {
		return err
	}
	defer env.store.Unmount()

	st := env.store
	fmt.Printf("store:   %s (%s)\n", st.Name(), cfg.Mode)
	fmt.Printf("sector:  %d/%d\n", st.Sector(), st.SectorCount())
	fmt.Printf("loc:     %d/%d\n", st.Loc(), st.SectorSize())
	fmt.Printf("wrapcnt: %d\n", st.WrapCnt())

	return nil
}

// Append appends one record with the given payload.
func Append(cfg *config.Config, payload []byte) error {
	env, err := Open(cfg, false)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.Mount(); err != nil {
		return err
	}
	defer env.store.Unmount()

	if err := env.store.Write(payload); err != nil {
		return err
	}

	log.L.Infof("appended %d bytes at sector %d",
		len(payload), env.store.Sector())

	return nil
}

// List walks all records oldest first and prints them.
func List(cfg *config.Config) error {
	env, err := Open(cfg, false)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.Mount(); err != nil {
		return err
	}
	defer env.store.Unmount()

	walk := store.Record{}
	for {
		if err := env.store.RecordNext(&walk); err != nil {
			if errdefs.IsNotFound(err) {
				return nil
			}

			return err
		}

		data := make([]byte, walk.Size)
		if err := walk.Read(0, data); err != nil {
			return err
		}

		fmt.Printf("%d-%-6d %4d %s\n", walk.Sector, walk.Loc, walk.Size,
			hex.EncodeToString(data))
	}
}

// Compact runs one compaction pass.
func Compact(cfg *config.Config) error {
	env, err := Open(cfg, false)
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.Mount(); err != nil {
		return err
	}
	defer env.store.Unmount()

	if err := env.store.Compact(); err != nil {
		return err
	}

	if env.index != nil {
		if err := env.index.Rebuild(env.store); err != nil {
			return err
		}
	}

	return nil
}

// Wipe erases the whole area.
func Wipe(cfg *config.Config) error {
	env, err := Open(cfg, false)
	if err != nil {
		return err
	}
	defer env.Close()

	return env.store.Wipe()
}

// KvSet stores a named value through the settings front-end.
func KvSet(cfg *config.Config, name string, value []byte) error {
	env, err := Open(cfg, false)
	if err != nil {
		return err
	}
	defer env.Close()

	kv, err := settings.New(env.store)
	if err != nil {
		return err
	}
	defer kv.Unmount()

	return kv.Save(name, value)
}

// KvGet prints a named value through the settings front-end.
func KvGet(cfg *config.Config, name string) error {
	env, err := Open(cfg, false)
	if err != nil {
		return err
	}
	defer env.Close()

	kv, err := settings.New(env.store)
	if err != nil {
		return err
	}
	defer kv.Unmount()

	value, err := kv.Get(name)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", string(value))

	return nil
}
