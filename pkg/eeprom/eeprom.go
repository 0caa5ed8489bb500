/*
 * Copyright (c) 2026. The areastore authors. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

// Package eeprom provides a storage area on byte-writable eeprom devices.
package eeprom

import (
	"github.com/containerd/containerd/log"
	"github.com/pkg/errors"

	"github.com/areastore/areastore/pkg/area"
	"github.com/areastore/areastore/pkg/errdefs"
)

// Device is the eeprom device contract. Offsets are bytes on the device;
// any byte can be rewritten freely.
type Device interface {
	Read(off int64, p []byte) error
	Write(off int64, p []byte) error
	Size() int64
}

type backend struct {
	dev        Device
	start      int64
	cfg        area.Config
	eraseValue byte
}

// New creates a storage area on dev, starting at device offset start. The
// area always has the FOvrWrite property; erase is emulated by writing the
// erase value over whole blocks.
func New(dev Device, start int64, cfg area.Config) (*area.Area, error) {
	if dev == nil {
		return nil, errors.Wrap(errdefs.ErrInvalidArgument, "no device")
	}

	cfg.Props |= area.FOvrWrite
	size := int64(cfg.EraseSize) * int64(cfg.EraseBlocks)
	if start < 0 || dev.Size() < start+size {
		return nil, errors.Wrapf(errdefs.ErrInvalidConfig,
			"area of %d bytes at %#x does not fit the device", size, start)
	}

	b := &backend{dev: dev, start: start, cfg: cfg, eraseValue: 0xff}
	if cfg.Props.Has(area.ZeroErase) {
		b.eraseValue = 0x00
	}

	return area.New(b, cfg)
}

func (b *backend) ReadV(off int64, iov [][]byte) error {
	off += b.start
	for _, v := range iov {
		if err := b.dev.Read(off, v); err != nil {
			log.L.Debugf("eeprom read failed at %#x", off)
			return errors.Wrapf(errdefs.ErrIO, "read at %#x: %v", off, err)
		}

		off += int64(len(v))
	}

	return nil
}

func (b *backend) WriteV(off int64, iov [][]byte) error {
	w := area.NewBlockWriter(off, b.cfg.WriteSize, func(off int64, p []byte) error {
		return b.dev.Write(b.start+off, p)
	})
	for _, v := range iov {
		if err := w.Write(v); err != nil {
			log.L.Debugf("eeprom write failed near %#x", off)
			return errors.Wrapf(errdefs.ErrIO, "write at %#x: %v", off, err)
		}
	}

	return w.Flush()
}

func (b *backend) Erase(sblk, bcnt int) error {
	buf := make([]byte, b.cfg.EraseSize)
	for i := range buf {
		buf[i] = b.eraseValue
	}

	off := b.start + int64(sblk)*int64(b.cfg.EraseSize)
	for i := 0; i < bcnt; i++ {
		if err := b.dev.Write(off, buf); err != nil {
			log.L.Debugf("eeprom erase failed at %#x", off)
			return errors.Wrapf(errdefs.ErrIO, "erase at %#x: %v", off, err)
		}

		off += int64(b.cfg.EraseSize)
	}

	return nil
}

func (b *backend) Ioctl(cmd area.IoctlCmd, data interface{}) error {
	return errdefs.ErrNotSupported
}

// MemDevice is an in-memory eeprom, for tests and volatile stores.
type MemDevice struct {
	buf []byte
}

// NewMemDevice creates an eeprom of size bytes.
func NewMemDevice(size int64) *MemDevice {
	return &MemDevice{buf: make([]byte, size)}
}

// Bytes exposes the device content, for inspection in tests.
func (d *MemDevice) Bytes() []byte { return d.buf }

func (d *MemDevice) Read(off int64, p []byte) error {
	if off < 0 || off+int64(len(p)) > int64(len(d.buf)) {
		return errors.Wrapf(errdefs.ErrInvalidRange,
			"device read of %d bytes at %#x", len(p), off)
	}

	copy(p, d.buf[off:])

	return nil
}

func (d *MemDevice) Write(off int64, p []byte) error {
	if off < 0 || off+int64(len(p)) > int64(len(d.buf)) {
		return errors.Wrapf(errdefs.ErrInvalidRange,
			"device write of %d bytes at %#x", len(p), off)
	}

	copy(d.buf[off:], p)

	return nil
}

func (d *MemDevice) Size() int64 { return int64(len(d.buf)) }
