/*
 * Copyright (c) 2026. The areastore authors. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

// Package store implements a persistent, crash-tolerant append-only record
// log on top of a storage area.
//
// The area is partitioned into constant sized sectors; crc-protected records
// are appended to the current sector until space is exhausted. New space is
// taken into use by advancing to the next sector, or by compacting: moving
// records a user callback wants kept to the front of the log so an old erase
// block becomes free. An eight bit wrap counter stamped into every record
// separates live records from stale ones of the previous pass.
package store

import (
	"context"
	"encoding/binary"
	"hash/crc32"

	"github.com/containerd/containerd/log"
	"github.com/pkg/errors"
	"golang.org/x/sync/semaphore"

	"github.com/areastore/areastore/pkg/area"
	"github.com/areastore/areastore/pkg/errdefs"
	"github.com/areastore/areastore/pkg/metric"
)

// CompactCb holds the user routines consulted while compacting.
type CompactCb struct {
	// Move is called to evaluate if a record should be kept (moved to the
	// front) or dropped.
	Move func(r *Record) bool
	// MoveCb is called after a record was moved, e.g. to update an
	// external index of record locations.
	MoveCb func(orig, dest *Record)
}

// Config describes a store on top of a storage area.
type Config struct {
	// Name tags log lines and metrics.
	Name string
	Area *area.Area
	Mode Mode
	// SectorCookie is written at the start of each new sector, e.g. a
	// data format tag. Optional.
	SectorCookie []byte
	// SectorSize must be a multiple of the area write size and a divisor
	// or multiple of the erase size.
	SectorSize  int
	SectorCount int
	// SpareSectors are kept unused; a compacting store needs at least one
	// erase block worth of them.
	SpareSectors int
	// CRCSkip excludes the first bytes of record data from the crc so
	// they can be rewritten to invalidate a record.
	CRCSkip int
	// WrapCb is invoked whenever the store wraps past sector zero.
	WrapCb func(s *Store)
}

// Store is a record log with a single current write position.
type Store struct {
	cfg  Config
	area *area.Area
	api  *modeAPI
	sem  *semaphore.Weighted
	cb   CompactCb

	ready   bool
	sector  int
	loc     int
	wrapcnt uint8
}

// New creates an unmounted store. Geometry is validated at Mount.
func New(cfg Config) (*Store, error) {
	if cfg.Area == nil {
		return nil, errors.Wrap(errdefs.ErrInvalidArgument, "no area")
	}

	api, err := cfg.Mode.api()
	if err != nil {
		return nil, err
	}

	return &Store{
		cfg:  cfg,
		area: cfg.Area,
		api:  api,
		sem:  semaphore.NewWeighted(1),
	}, nil
}

// Name returns the configured store name.
func (s *Store) Name() string { return s.cfg.Name }

// Area returns the underlying storage area.
func (s *Store) Area() *area.Area { return s.area }

// Ready reports whether the store is mounted.
func (s *Store) Ready() bool { return s.ready }

// Sector returns the current write sector.
func (s *Store) Sector() int { return s.sector }

// Loc returns the next write byte within the current sector.
func (s *Store) Loc() int { return s.loc }

// WrapCnt returns the current wrap counter.
func (s *Store) WrapCnt() uint8 { return s.wrapcnt }

// SectorSize returns the configured sector size.
func (s *Store) SectorSize() int { return s.cfg.SectorSize }

// SectorCount returns the configured sector count.
func (s *Store) SectorCount() int { return s.cfg.SectorCount }

func (s *Store) take() {
	// wait-forever acquire; the context is never canceled
	_ = s.sem.Acquire(context.Background(), 1)
}

func (s *Store) give() {
	s.sem.Release(1)
}

func (s *Store) sectorAdvance(sector *int, cnt int) {
	for ; cnt > 0; cnt-- {
		*sector = *sector + 1
		if *sector == s.cfg.SectorCount {
			*sector = 0
		}
	}
}

func (s *Store) sectorReverse(sector *int, cnt int) {
	for ; cnt > 0; cnt-- {
		if *sector == 0 {
			*sector = s.cfg.SectorCount
		}

		*sector = *sector - 1
	}
}

func (s *Store) validateConfig(cb *CompactCb) error {
	acfg := s.area
	ws := acfg.WriteSize()
	es := acfg.EraseSize()

	if s.cfg.SectorSize <= 0 || s.cfg.SectorSize%ws != 0 {
		return errors.Wrapf(errdefs.ErrInvalidConfig,
			"sector size %d is not a multiple of the write size", s.cfg.SectorSize)
	}

	if es%s.cfg.SectorSize != 0 && s.cfg.SectorSize%es != 0 {
		return errors.Wrapf(errdefs.ErrInvalidConfig,
			"sector size %d is neither a divisor nor a multiple of the erase size",
			s.cfg.SectorSize)
	}

	if s.cfg.SectorCount <= 0 ||
		s.cfg.SpareSectors < 0 || s.cfg.SpareSectors >= s.cfg.SectorCount {
		return errors.Wrapf(errdefs.ErrInvalidConfig,
			"bad sector count %d / spare count %d",
			s.cfg.SectorCount, s.cfg.SpareSectors)
	}

	if cb != nil && cb.Move != nil &&
		s.cfg.SpareSectors*s.cfg.SectorSize < es {
		return errors.Wrap(errdefs.ErrInvalidConfig,
			"spare sectors do not cover an erase block")
	}

	if acfg.Size() < int64(s.cfg.SectorSize)*int64(s.cfg.SectorCount) {
		return errors.Wrap(errdefs.ErrInvalidConfig,
			"store does not fit the area")
	}

	cookie := alignUp(len(s.cfg.SectorCookie), ws)
	if s.cfg.SectorSize < cookie+hdrSize+crcSize+ws {
		return errors.Wrap(errdefs.ErrInvalidConfig,
			"sector cannot hold the cookie and a record")
	}

	if s.cfg.CRCSkip < 0 {
		return errors.Wrap(errdefs.ErrInvalidConfig, "negative crc skip")
	}

	return nil
}

// recordNextInSector seeks the next record candidate within rec.Sector. With
// wrapcheck disabled the record wrap byte is not compared to the expected
// wrap of the sector. With recover enabled, a candidate failing its checks
// resteps the search one write block at a time to resync against partial
// write debris; otherwise the search stops at the first mismatch.
func (s *Store) recordNextInSector(rec *Record, wrapcheck, recover bool) error {
	off := int64(rec.Sector) * int64(s.cfg.SectorSize)
	align := s.area.WriteSize()

	if rec.Loc == 0 && len(s.cfg.SectorCookie) > 0 {
		rec.Loc = alignUp(len(s.cfg.SectorCookie), align)
	}

	for {
		rdloc := rec.Loc
		if rec.Size != 0 {
			rdloc = alignUp(rec.Loc+hdrSize+rec.Size+crcSize, align)
		}

		if (s.sector == rec.Sector && s.loc <= rdloc) ||
			rdloc >= s.cfg.SectorSize {
			rec.Loc = rdloc
			rec.Size = 0

			return errdefs.ErrNotFound
		}

		var hdr [hdrSize]byte
		if err := s.area.Read(off+int64(rdloc), hdr[:]); err != nil {
			log.L.WithError(err).Debugf("read failed at %#x", off+int64(rdloc))
			return err
		}

		rsize := int(binary.LittleEndian.Uint16(hdr[2:]))
		asize := s.cfg.SectorSize - rdloc - crcSize - hdrSize
		sizeOK := rsize > 0 && rsize < asize

		wrap := hdr[1]
		if rec.Sector > s.sector {
			wrap++
		}

		if !wrapcheck {
			wrap = s.wrapcnt
		}

		if hdr[0] == recordMagic && wrap == s.wrapcnt && sizeOK {
			rec.Loc = rdloc
			rec.Size = rsize
			if s.recordValid(rec) {
				return nil
			}
		}

		if !recover {
			return errdefs.ErrNotFound
		}

		rec.Loc = rdloc + align
		rec.Size = 0
	}
}

// RecordNext advances rec to the next record of the store. Seed the
// iteration by passing a record whose Store field is nil; iteration then
// starts one past the spare sectors ahead of the write head, so records are
// returned oldest first. The iteration sentinel is ErrNotFound.
func (s *Store) RecordNext(rec *Record) error {
	if rec == nil {
		return errors.Wrap(errdefs.ErrInvalidArgument, "no record")
	}

	if rec.Store == nil {
		rec.Loc = 0
		rec.Size = 0
		rec.Sector = s.sector
		s.sectorAdvance(&rec.Sector, s.cfg.SpareSectors+1)
		rec.Store = s
	}

	for {
		err := s.recordNextInSector(rec, true, true)
		if !errdefs.IsNotFound(err) {
			return err
		}

		if rec.Sector == s.sector {
			return err
		}

		s.sectorAdvance(&rec.Sector, 1)
		rec.Loc = 0
		rec.Size = 0
	}
}

// addCookie writes the sector cookie at the start of the current sector.
func (s *Store) addCookie() error {
	if s.loc != 0 || len(s.cfg.SectorCookie) == 0 {
		return nil
	}

	wroff := int64(s.sector) * int64(s.cfg.SectorSize)
	cksize := len(s.cfg.SectorCookie)
	fill := make([]byte, alignUp(cksize, s.area.WriteSize())-cksize)
	for i := range fill {
		fill[i] = fillValue
	}

	if err := s.area.Writev(wroff, s.cfg.SectorCookie, fill); err != nil {
		log.L.WithError(err).Debugf("add cookie failed at %#x", wroff)
		return err
	}

	s.loc = cksize + len(fill)

	return nil
}

// ReadSectorCookie reads up to len(buf) bytes of the cookie of a sector and
// returns the number of bytes read.
func (s *Store) ReadSectorCookie(sector int, buf []byte) (int, error) {
	if len(s.cfg.SectorCookie) == 0 {
		return 0, errors.Wrap(errdefs.ErrInvalidArgument, "no cookie configured")
	}

	if sector < 0 || sector >= s.cfg.SectorCount {
		return 0, errors.Wrapf(errdefs.ErrInvalidRange, "no sector %d", sector)
	}

	n := len(buf)
	if n > len(s.cfg.SectorCookie) {
		n = len(s.cfg.SectorCookie)
	}

	off := int64(sector) * int64(s.cfg.SectorSize)
	if err := s.area.Read(off, buf[:n]); err != nil {
		return 0, err
	}

	return n, nil
}

// fillSector writes fill bytes from the write position to the sector end, so
// the write position is unambiguous on a later scan of freely overwritable
// media.
func (s *Store) fillSector() error {
	wroff := int64(s.sector) * int64(s.cfg.SectorSize)
	buf := s.recordBuf()
	for i := range buf {
		buf[i] = fillValue
	}

	for s.loc < s.cfg.SectorSize {
		n := len(buf)
		if n > s.cfg.SectorSize-s.loc {
			n = s.cfg.SectorSize - s.loc
		}

		if err := s.area.Write(wroff+int64(s.loc), buf[:n]); err != nil {
			log.L.WithError(err).Debugf("fill failed at %#x", wroff+int64(s.loc))
			return err
		}

		s.loc += n
	}

	return nil
}

// eraseBlock erases the erase block starting at the current sector, when the
// sector is aligned to one.
func (s *Store) eraseBlock() error {
	es := s.area.EraseSize()
	if (s.sector*s.cfg.SectorSize)%es != 0 {
		return nil
	}

	sblock := s.sector * s.cfg.SectorSize / es
	bcnt := 1
	if s.cfg.SectorSize > es {
		bcnt = s.cfg.SectorSize / es
	}

	if err := s.area.Erase(sblock, bcnt); err != nil {
		log.L.WithError(err).Debugf("erase failed at block %d", sblock)
		return err
	}

	return nil
}

// advance makes the next sector current: fill the old sector on freely
// overwritable media, step the sector and wrap counter, erase the entered
// erase block on media that need it, and write the sector cookie.
func (s *Store) advance() error {
	props := s.area.Props()

	if props.Has(area.FOvrWrite) {
		if err := s.fillSector(); err != nil {
			return err
		}
	}

	s.sectorAdvance(&s.sector, 1)
	if s.sector == 0 {
		s.wrapcnt++
		metric.Wraps.WithLabelValues(s.cfg.Name).Inc()
		if s.cfg.WrapCb != nil {
			s.cfg.WrapCb(s)
		}
	}
	s.loc = 0

	if !props.Has(area.FOvrWrite) && !props.Has(area.AutoErase) {
		if err := s.eraseBlock(); err != nil {
			return err
		}
	}

	if err := s.addCookie(); err != nil {
		return err
	}

	metric.Advances.WithLabelValues(s.cfg.Name).Inc()

	return nil
}

// writev frames the gathered iov elements as one record and appends it at
// the write position. A medium write failure skips one write block and
// retries further in the sector, so a single defective write block does not
// fail the whole log.
func (s *Store) writev(iov [][]byte) error {
	dlen := iovLen(iov)
	if dlen == 0 || dlen > 0xffff {
		return errors.Wrapf(errdefs.ErrInvalidArgument,
			"record payload of %d bytes", dlen)
	}

	length := hdrSize + dlen + crcSize
	if s.cfg.SectorSize-length < s.loc {
		return errors.Wrap(errdefs.ErrNoSpace, "sector exhausted")
	}

	align := s.area.WriteSize()
	wroff := int64(s.sector) * int64(s.cfg.SectorSize)

	var hdr [hdrSize]byte
	hdr[0] = recordMagic
	hdr[1] = s.wrapcnt
	binary.LittleEndian.PutUint16(hdr[2:], uint16(dlen))

	tail := make([]byte, crcSize+alignUp(length, align)-length)
	crc := uint32(0)
	skip := s.cfg.CRCSkip
	for _, v := range iov {
		if skip >= len(v) {
			skip -= len(v)
			continue
		}

		crc = crc32.Update(crc, crc32.IEEETable, v[skip:])
		skip = 0
	}
	binary.LittleEndian.PutUint32(tail, crc)
	for i := crcSize; i < len(tail); i++ {
		tail[i] = fillValue
	}

	parts := make([][]byte, 0, len(iov)+2)
	parts = append(parts, hdr[:])
	parts = append(parts, iov...)
	parts = append(parts, tail)

	for {
		err := s.area.Writev(wroff+int64(s.loc), parts...)
		if err == nil {
			s.loc += alignUp(length, align)
			metric.Appends.WithLabelValues(s.cfg.Name).Inc()

			return nil
		}

		log.L.WithError(err).Debugf(
			"write failed at %#x, advancing to next write block",
			wroff+int64(s.loc))
		metric.SkippedWriteBlocks.WithLabelValues(s.cfg.Name).Inc()
		s.loc += align
		if s.cfg.SectorSize-length < s.loc {
			return errors.Wrap(errdefs.ErrNoSpace, "sector exhausted")
		}
	}
}

func iovLen(iov [][]byte) int {
	l := 0
	for _, v := range iov {
		l += len(v)
	}

	return l
}

// scan locates the write head: find the first sector holding a record whose
// wrap byte differs from its predecessors, then find the end of the records
// in that sector. Leaves the sector at SectorCount when the store is empty.
func (s *Store) scan() error {
	s.sector = s.cfg.SectorCount
	s.loc = s.cfg.SectorSize
	s.wrapcnt = 0

	rec := Record{Store: s}
	var wrap [1]byte

	for i := 0; i < s.cfg.SectorCount; i++ {
		rec.Sector = i
		rec.Loc = 0
		rec.Size = 0

		if s.recordNextInSector(&rec, false, false) != nil {
			continue
		}

		rdoff := int64(i)*int64(s.cfg.SectorSize) + int64(rec.Loc) + 1
		if s.area.Read(rdoff, wrap[:]) != nil {
			continue
		}

		if s.sector > i {
			s.wrapcnt = wrap[0]
		}

		if wrap[0] != s.wrapcnt {
			break
		}

		s.sector = i
	}

	if s.sector == s.cfg.SectorCount {
		return errdefs.ErrNotFound
	}

	loc := 0
	rec = Record{Store: s, Sector: s.sector}
	for s.recordNextInSector(&rec, true, true) == nil {
		loc = rec.Loc + rec.footprint(s.area.WriteSize())
	}

	s.loc = loc

	return nil
}

// Mount builds the store state by scanning the medium. The compact
// callbacks are only accepted by modes that compact.
func (s *Store) Mount(cb *CompactCb) error {
	if s.ready {
		return errors.Wrap(errdefs.ErrAlreadyMounted, "mount rejected")
	}

	if err := s.validateConfig(cb); err != nil {
		return err
	}

	s.take()
	defer s.give()

	if err := s.api.mount(s, cb); err != nil {
		return err
	}

	s.ready = true
	log.L.Debugf("%s: mounted at sector %d loc %d wrap %d",
		s.cfg.Name, s.sector, s.loc, s.wrapcnt)

	return nil
}

// Unmount marks the store not ready. It performs no medium access and is
// idempotent.
func (s *Store) Unmount() error {
	s.ready = false

	return nil
}

// Wipe erases every block of the area. The store must be unmounted.
func (s *Store) Wipe() error {
	if s.ready {
		return errors.Wrap(errdefs.ErrInvalidArgument, "store is mounted")
	}

	return s.area.Erase(0, s.area.EraseBlocks())
}

// Write appends data as one record.
func (s *Store) Write(data []byte) error {
	return s.Writev(data)
}

// Writev appends the concatenation of the gathered parts as one record.
func (s *Store) Writev(parts ...[]byte) error {
	if !s.ready {
		return errors.Wrap(errdefs.ErrNotReady, "write rejected")
	}

	if s.api.writev == nil {
		return errors.Wrap(errdefs.ErrNotSupported, "mode cannot write")
	}

	s.take()
	defer s.give()

	return s.api.writev(s, parts)
}

// Advance takes the next sector into use. This can be a slow operation: it
// may fill the current sector and erase the next erase block.
func (s *Store) Advance() error {
	if !s.ready {
		return errors.Wrap(errdefs.ErrNotReady, "advance rejected")
	}

	if s.api.advance == nil {
		return errors.Wrap(errdefs.ErrNotSupported, "mode cannot advance")
	}

	s.take()
	defer s.give()

	return s.api.advance(s)
}

// Compact reduces the used space by dropping obsolete records and moving
// records the Move callback wants kept. This can be a slow operation.
func (s *Store) Compact() error {
	if !s.ready {
		return errors.Wrap(errdefs.ErrNotReady, "compact rejected")
	}

	if s.api.compact == nil {
		return errors.Wrap(errdefs.ErrNotSupported, "mode cannot compact")
	}

	s.take()
	defer s.give()

	return s.api.compact(s)
}
