/*
 * Copyright (c) 2026. The areastore authors. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

// Package ram provides a storage area backed by a byte slice.
package ram

import (
	"github.com/pkg/errors"

	"github.com/areastore/areastore/pkg/area"
	"github.com/areastore/areastore/pkg/errdefs"
)

type backend struct {
	buf        []byte
	eraseSize  int
	eraseValue byte
}

// New creates a storage area over buf. The buffer must hold exactly
// cfg.EraseSize * cfg.EraseBlocks bytes. The area always has the FOvrWrite
// property.
func New(buf []byte, cfg area.Config) (*area.Area, error) {
	if int64(len(buf)) != int64(cfg.EraseSize)*int64(cfg.EraseBlocks) {
		return nil, errors.Wrapf(errdefs.ErrInvalidConfig,
			"buffer size %d does not match area size", len(buf))
	}

	cfg.Props |= area.FOvrWrite
	b := &backend{buf: buf, eraseSize: cfg.EraseSize}
	if cfg.Props.Has(area.ZeroErase) {
		b.eraseValue = 0x00
	} else {
		b.eraseValue = 0xff
	}

	return area.New(b, cfg)
}

func (b *backend) ReadV(off int64, iov [][]byte) error {
	for _, v := range iov {
		copy(v, b.buf[off:])
		off += int64(len(v))
	}

	return nil
}

func (b *backend) WriteV(off int64, iov [][]byte) error {
	for _, v := range iov {
		copy(b.buf[off:], v)
		off += int64(len(v))
	}

	return nil
}

func (b *backend) Erase(sblk, bcnt int) error {
	start := sblk * b.eraseSize
	end := start + bcnt*b.eraseSize
	for i := start; i < end; i++ {
		b.buf[i] = b.eraseValue
	}

	return nil
}

func (b *backend) Ioctl(cmd area.IoctlCmd, data interface{}) error {
	switch cmd {
	case area.IoctlXIPAddress:
		out, ok := data.(*[]byte)
		if !ok || out == nil {
			return errors.Wrap(errdefs.ErrInvalidArgument,
				"no return data supplied")
		}

		*out = b.buf

		return nil
	default:
		return errdefs.ErrNotSupported
	}
}
