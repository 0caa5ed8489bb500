/*
 * Copyright (c) 2026. The areastore authors. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

// Package area provides a uniform byte-addressed view of storage media with
// fixed write and erase geometry.
//
// An Area does not necessarily inherit the limitations of the underlying
// medium; it declares how the medium will be used (it cannot remove any
// limitation the medium itself imposes). Writes are always performed in
// multiples of the write block size, erases in whole erase blocks.
package area

import (
	"github.com/pkg/errors"

	"github.com/areastore/areastore/pkg/errdefs"
)

// Props is a bitfield describing the behavior of an area.
type Props uint32

const (
	// FOvrWrite marks media where any pattern may replace any (ram, eeprom).
	FOvrWrite Props = 1 << iota
	// LOvrWrite marks media where bits may only flip 1->0 (nor flash).
	LOvrWrite
	// ZeroErase marks media whose erased bytes read as 0x00 instead of 0xff.
	ZeroErase
	// AutoErase marks media that erase implicitly while writing.
	AutoErase
)

// Has reports whether all bits of q are set in p.
func (p Props) Has(q Props) bool {
	return p&q == q
}

// IoctlCmd selects an area ioctl operation.
type IoctlCmd int

const (
	IoctlNone IoctlCmd = iota
	// IoctlXIPAddress retrieves the memory-mapped base of the area, when the
	// medium has one. The data argument must be a *[]byte that is pointed at
	// the backing storage.
	IoctlXIPAddress
)

// Backend is the medium driver contract. Offsets are bytes within the area.
// Writes are guaranteed by the caller to be write-block aligned multiples of
// the write block size. Drivers must not retain the iov memory beyond the
// call.
type Backend interface {
	ReadV(off int64, iov [][]byte) error
	WriteV(off int64, iov [][]byte) error
	Erase(sblk, bcnt int) error
	Ioctl(cmd IoctlCmd, data interface{}) error
}

// Config declares the geometry and properties of an area.
type Config struct {
	// WriteSize is the write block size in bytes, a power of two.
	WriteSize int
	// EraseSize is the erase block size in bytes, a multiple of WriteSize.
	EraseSize int
	// EraseBlocks is the erase block count; the area size is
	// EraseSize * EraseBlocks.
	EraseBlocks int
	Props       Props
	ReadOnly    bool
}

// Area is an immutable byte-addressed view of a medium.
type Area struct {
	backend Backend
	cfg     Config
}

// New validates the declared geometry and binds it to a medium driver.
func New(backend Backend, cfg Config) (*Area, error) {
	if backend == nil {
		return nil, errors.Wrap(errdefs.ErrInvalidArgument, "no backend")
	}

	if cfg.WriteSize <= 0 || cfg.WriteSize&(cfg.WriteSize-1) != 0 {
		return nil, errors.Wrapf(errdefs.ErrInvalidConfig,
			"write size %d is not a power of two", cfg.WriteSize)
	}

	if cfg.EraseSize <= 0 || cfg.EraseSize%cfg.WriteSize != 0 {
		return nil, errors.Wrapf(errdefs.ErrInvalidConfig,
			"erase size %d is not a multiple of write size %d",
			cfg.EraseSize, cfg.WriteSize)
	}

	if cfg.EraseBlocks <= 0 {
		return nil, errors.Wrap(errdefs.ErrInvalidConfig, "no erase blocks")
	}

	return &Area{backend: backend, cfg: cfg}, nil
}

// WriteSize returns the write block size in bytes.
func (a *Area) WriteSize() int { return a.cfg.WriteSize }

// EraseSize returns the erase block size in bytes.
func (a *Area) EraseSize() int { return a.cfg.EraseSize }

// EraseBlocks returns the erase block count.
func (a *Area) EraseBlocks() int { return a.cfg.EraseBlocks }

// Size returns the area size in bytes.
func (a *Area) Size() int64 {
	return int64(a.cfg.EraseSize) * int64(a.cfg.EraseBlocks)
}

// Props returns the property bitfield.
func (a *Area) Props() Props { return a.cfg.Props }

// ReadOnly reports whether the area forbids writes and erases.
func (a *Area) ReadOnly() bool { return a.cfg.ReadOnly }

// EraseValue returns the value erased bytes read as.
func (a *Area) EraseValue() byte {
	if a.cfg.Props.Has(ZeroErase) {
		return 0x00
	}

	return 0xff
}

func (a *Area) rangeValid(off int64, l int) bool {
	size := a.Size()

	return off >= 0 && int64(l) <= size && off <= size-int64(l)
}

func iovLen(iov [][]byte) int {
	l := 0
	for _, v := range iov {
		l += len(v)
	}

	return l
}

// Readv reads into the iov elements in order, starting at off.
func (a *Area) Readv(off int64, iov ...[]byte) error {
	l := iovLen(iov)
	if !a.rangeValid(off, l) {
		return errors.Wrapf(errdefs.ErrInvalidRange,
			"read of %d bytes at %#x", l, off)
	}

	return a.backend.ReadV(off, iov)
}

// Read reads len(data) bytes at off.
func (a *Area) Read(off int64, data []byte) error {
	return a.Readv(off, data)
}

// Writev writes the iov elements in order, starting at off. The total length
// must be a multiple of the write block size; the area gathers the elements
// so the medium only sees aligned write-block multiples.
func (a *Area) Writev(off int64, iov ...[]byte) error {
	if a.cfg.ReadOnly {
		return errors.Wrap(errdefs.ErrReadOnly, "write rejected")
	}

	l := iovLen(iov)
	if !a.rangeValid(off, l) {
		return errors.Wrapf(errdefs.ErrInvalidRange,
			"write of %d bytes at %#x", l, off)
	}

	if l&(a.cfg.WriteSize-1) != 0 {
		return errors.Wrapf(errdefs.ErrInvalidArgument,
			"write length %d is not a multiple of the write size", l)
	}

	return a.backend.WriteV(off, iov)
}

// Write writes len(data) bytes at off.
func (a *Area) Write(off int64, data []byte) error {
	return a.Writev(off, data)
}

// Erase erases bcnt erase blocks starting at block sblk.
func (a *Area) Erase(sblk, bcnt int) error {
	if a.cfg.ReadOnly {
		return errors.Wrap(errdefs.ErrReadOnly, "erase rejected")
	}

	if sblk < 0 || bcnt < 0 || bcnt > a.cfg.EraseBlocks ||
		sblk > a.cfg.EraseBlocks-bcnt {
		return errors.Wrapf(errdefs.ErrInvalidRange,
			"erase of %d blocks at %d", bcnt, sblk)
	}

	return a.backend.Erase(sblk, bcnt)
}

// Ioctl performs a medium-specific operation.
func (a *Area) Ioctl(cmd IoctlCmd, data interface{}) error {
	return a.backend.Ioctl(cmd, data)
}
