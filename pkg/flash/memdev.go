/*
 * Copyright (c) 2026. The areastore authors. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package flash

import (
	"github.com/pkg/errors"

	"github.com/areastore/areastore/pkg/errdefs"
)

// MemDevice simulates a nor flash device in memory: uniform erase pages,
// block-aligned programming, and AND-semantics on program so bits only flip
// from the erased state.
type MemDevice struct {
	buf        []byte
	pageSize   int64
	writeBlock int
	eraseValue byte

	// WriteFault, when set, is consulted before every program operation.
	// A non-nil return is reported as the device error for that write.
	// It exists so callers can exercise defective write block handling.
	WriteFault func(off int64, p []byte) error
}

// NewMemDevice creates a simulated flash with the given number of uniform
// erase pages of pageSize bytes, programmable in writeBlock units.
func NewMemDevice(pageSize int64, pages int, writeBlock int) *MemDevice {
	d := &MemDevice{
		buf:        make([]byte, pageSize*int64(pages)),
		pageSize:   pageSize,
		writeBlock: writeBlock,
		eraseValue: 0xff,
	}
	for i := range d.buf {
		d.buf[i] = d.eraseValue
	}

	return d
}

// Bytes exposes the device content, for inspection in tests.
func (d *MemDevice) Bytes() []byte { return d.buf }

func (d *MemDevice) rangeValid(off int64, l int64) bool {
	return off >= 0 && l >= 0 && off+l <= int64(len(d.buf))
}

func (d *MemDevice) Read(off int64, p []byte) error {
	if !d.rangeValid(off, int64(len(p))) {
		return errors.Wrapf(errdefs.ErrInvalidRange,
			"device read of %d bytes at %#x", len(p), off)
	}

	copy(p, d.buf[off:])

	return nil
}

func (d *MemDevice) Write(off int64, p []byte) error {
	wbs := int64(d.writeBlock)
	if off%wbs != 0 || int64(len(p))%wbs != 0 {
		return errors.Wrapf(errdefs.ErrInvalidArgument,
			"device write of %d bytes at %#x is unaligned", len(p), off)
	}

	if !d.rangeValid(off, int64(len(p))) {
		return errors.Wrapf(errdefs.ErrInvalidRange,
			"device write of %d bytes at %#x", len(p), off)
	}

	if d.WriteFault != nil {
		if err := d.WriteFault(off, p); err != nil {
			return err
		}
	}

	for i, b := range p {
		d.buf[off+int64(i)] &= b
	}

	return nil
}

func (d *MemDevice) Erase(off int64, size int64) error {
	if off%d.pageSize != 0 || size%d.pageSize != 0 {
		return errors.Wrapf(errdefs.ErrInvalidArgument,
			"device erase of %d bytes at %#x is unaligned", size, off)
	}

	if !d.rangeValid(off, size) {
		return errors.Wrapf(errdefs.ErrInvalidRange,
			"device erase of %d bytes at %#x", size, off)
	}

	for i := off; i < off+size; i++ {
		d.buf[i] = d.eraseValue
	}

	return nil
}

func (d *MemDevice) WriteBlockSize() int { return d.writeBlock }

func (d *MemDevice) PageInfo(off int64) (PageInfo, error) {
	if !d.rangeValid(off, 1) {
		return PageInfo{}, errors.Wrapf(errdefs.ErrInvalidRange,
			"no page at %#x", off)
	}

	return PageInfo{Start: off - off%d.pageSize, Size: d.pageSize}, nil
}

func (d *MemDevice) EraseValue() byte { return d.eraseValue }
