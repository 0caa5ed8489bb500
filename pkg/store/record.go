/*
 * Copyright (c) 2026. The areastore authors. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package store

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/containerd/containerd/log"
	"github.com/pkg/errors"

	"github.com/areastore/areastore/pkg/area"
	"github.com/areastore/areastore/pkg/errdefs"
)

// On-medium record framing. All multi-byte integers are little-endian.
//
//	0     1     2   3    4       4+L   4+L+4  4+L+4+pad
//	+-----+-----+---+---+--------+-----+------+
//	|0xF0 |WRAP |LEN(LE)|  DATA  | CRC | 0xFF |
//	+-----+-----+---+---+--------+-----+------+
const (
	recordMagic = 0xF0
	hdrSize     = 4
	crcSize     = 4
	minBufSize  = 32
	fillValue   = 0xFF
)

// Record is an ephemeral handle to one record on the medium. Handles are
// invalidated by any write, advance or compact on the owning store.
type Record struct {
	Store  *Store
	Sector int
	Loc    int
	Size   int
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

func alignDown(n, align int) int {
	return n &^ (align - 1)
}

// footprint returns the aligned space the record occupies in its sector.
func (r *Record) footprint(writeSize int) int {
	return alignUp(hdrSize+r.Size+crcSize, writeSize)
}

func (s *Store) recordBuf() []byte {
	n := s.area.WriteSize()
	if n < minBufSize {
		n = minBufSize
	}

	return make([]byte, n)
}

// recordValid recomputes the data crc and compares it to the trailer. The
// first crcSkip data bytes are excluded so they may be rewritten later.
func (s *Store) recordValid(r *Record) bool {
	rdoff := int64(r.Sector)*int64(s.cfg.SectorSize) + int64(r.Loc) + hdrSize
	start := s.cfg.CRCSkip
	crc := uint32(0)
	buf := s.recordBuf()

	for start < r.Size {
		n := len(buf)
		if n > r.Size-start {
			n = r.Size - start
		}

		if err := s.area.Read(rdoff+int64(start), buf[:n]); err != nil {
			log.L.WithError(err).Debugf("read failed at %#x", rdoff+int64(start))
			return false
		}

		crc = crc32.Update(crc, crc32.IEEETable, buf[:n])
		start += n
	}

	if err := s.area.Read(rdoff+int64(r.Size), buf[:crcSize]); err != nil {
		log.L.WithError(err).Debugf("read failed at %#x", rdoff+int64(r.Size))
		return false
	}

	if crc != binary.LittleEndian.Uint32(buf) {
		log.L.Debugf("record at %#x has bad crc", rdoff-hdrSize)
		return false
	}

	return true
}

// Valid reports whether the record crc checks out.
func (r *Record) Valid() bool {
	if r == nil || r.Store == nil {
		return false
	}

	return r.Store.recordValid(r)
}

// Readv reads record data starting at offset start into the iov elements.
func (r *Record) Readv(start int, iov ...[]byte) error {
	if r == nil || r.Store == nil {
		return errors.Wrap(errdefs.ErrInvalidArgument, "no record")
	}

	s := r.Store
	l := 0
	for _, v := range iov {
		l += len(v)
	}

	if r.Loc > s.cfg.SectorSize || r.Size > s.cfg.SectorSize ||
		start < 0 || r.Size < start+l {
		return errors.Wrapf(errdefs.ErrInvalidRange,
			"read of %d bytes at %d in a %d byte record", l, start, r.Size)
	}

	rdoff := int64(r.Sector)*int64(s.cfg.SectorSize) + int64(r.Loc) + hdrSize

	return s.area.Readv(rdoff+int64(start), iov...)
}

// Read reads len(data) record data bytes starting at offset start.
func (r *Record) Read(start int, data []byte) error {
	return r.Readv(start, data)
}

// Update rewrites the start of the record data in place. Only possible on
// media that allow overwrites and for data that is excluded from the crc,
// so the record stays valid; the usual use is invalidating a record by
// clearing a leading marker byte.
func (r *Record) Update(data []byte) error {
	if r == nil || r.Store == nil {
		return errors.Wrap(errdefs.ErrInvalidArgument, "no record")
	}

	s := r.Store
	props := s.area.Props()
	if !props.Has(area.FOvrWrite) && !props.Has(area.LOvrWrite) {
		return errors.Wrap(errdefs.ErrNotSupported,
			"medium does not allow overwrites")
	}

	if !r.Valid() || s.cfg.CRCSkip < len(data) {
		return errors.Wrapf(errdefs.ErrInvalidArgument,
			"update of %d bytes rejected", len(data))
	}

	align := s.area.WriteSize()
	sloc := int64(r.Sector) * int64(s.cfg.SectorSize)
	astart := sloc + int64(alignDown(r.Loc+hdrSize, align))
	start := sloc + int64(r.Loc) + hdrSize
	buf := make([]byte, align)

	for len(data) != 0 {
		wrlen := align - int(start-astart)
		if wrlen > len(data) {
			wrlen = len(data)
		}

		if err := s.area.Read(astart, buf); err != nil {
			return errors.Wrapf(err, "failed to read back block at %#x", astart)
		}

		copy(buf[start-astart:], data[:wrlen])
		if err := s.area.Write(astart, buf); err != nil {
			return errors.Wrapf(err, "failed to rewrite block at %#x", astart)
		}

		data = data[wrlen:]
		start += int64(wrlen)
		astart += int64(align)
	}

	return nil
}
