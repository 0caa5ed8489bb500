/*
 * Copyright (c) 2026. The areastore authors. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package flash

import (
	"github.com/containerd/containerd/log"
	"github.com/pkg/errors"

	"github.com/areastore/areastore/pkg/area"
	"github.com/areastore/areastore/pkg/errdefs"
)

// Options tune the flash storage area.
type Options struct {
	// Verify checks the declared geometry against the device at creation:
	// the write size must be a multiple of the device write block, every
	// declared erase block must start on a device page and span whole
	// pages, and the erased value must match.
	Verify bool
	// XIP is the memory-mapped view of the area, when the flash is mapped
	// into the address space. Retrieved with area.IoctlXIPAddress.
	XIP []byte
}

type backend struct {
	dev   Device
	start int64
	cfg   area.Config
	xip   []byte
}

// New creates a storage area on dev, starting at device offset start.
func New(dev Device, start int64, cfg area.Config, opts Options) (*area.Area, error) {
	if dev == nil {
		return nil, errors.Wrap(errdefs.ErrInvalidArgument, "no device")
	}

	b := &backend{dev: dev, start: start, cfg: cfg, xip: opts.XIP}
	if opts.Verify {
		if err := b.verify(); err != nil {
			return nil, err
		}
	}

	return area.New(b, cfg)
}

func (b *backend) verify() error {
	if b.cfg.WriteSize%b.dev.WriteBlockSize() != 0 {
		return errors.Wrapf(errdefs.ErrInvalidConfig,
			"write size %d does not cover the device write block %d",
			b.cfg.WriteSize, b.dev.WriteBlockSize())
	}

	if ev := b.dev.EraseValue(); (ev == 0x00) != b.cfg.Props.Has(area.ZeroErase) {
		return errors.Wrapf(errdefs.ErrInvalidConfig,
			"declared erase value does not match device value %#x", ev)
	}

	for i := 0; i < b.cfg.EraseBlocks; i++ {
		off := b.start + int64(i)*int64(b.cfg.EraseSize)
		info, err := b.dev.PageInfo(off)
		if err != nil {
			return errors.Wrapf(err, "failed to get page info at %#x", off)
		}

		if info.Start != off || int64(b.cfg.EraseSize)%info.Size != 0 {
			return errors.Wrapf(errdefs.ErrInvalidConfig,
				"erase block %d does not match device pages", i)
		}
	}

	return nil
}

// write programs one aligned chunk, erasing the erase block at each block
// boundary entry when the area erases implicitly on write.
func (b *backend) write(off int64, p []byte) error {
	if !b.cfg.Props.Has(area.AutoErase) || b.cfg.Props.Has(area.FOvrWrite) {
		return b.dev.Write(b.start+off, p)
	}

	esz := int64(b.cfg.EraseSize)
	for len(p) > 0 {
		wrlen := esz - off%esz
		if wrlen > int64(len(p)) {
			wrlen = int64(len(p))
		}

		if off%esz == 0 {
			if err := b.dev.Erase(b.start+off, esz); err != nil {
				return err
			}
		}

		if err := b.dev.Write(b.start+off, p[:wrlen]); err != nil {
			return err
		}

		p = p[wrlen:]
		off += wrlen
	}

	return nil
}

func (b *backend) ReadV(off int64, iov [][]byte) error {
	off += b.start
	for _, v := range iov {
		if err := b.dev.Read(off, v); err != nil {
			log.L.Debugf("flash read failed at %#x", off)
			return errors.Wrapf(errdefs.ErrIO, "read at %#x: %v", off, err)
		}

		off += int64(len(v))
	}

	return nil
}

func (b *backend) WriteV(off int64, iov [][]byte) error {
	w := area.NewBlockWriter(off, b.cfg.WriteSize, b.write)
	for _, v := range iov {
		if err := w.Write(v); err != nil {
			log.L.Debugf("flash prog failed near %#x", off)
			return errors.Wrapf(errdefs.ErrIO, "write at %#x: %v", off, err)
		}
	}

	return w.Flush()
}

func (b *backend) Erase(sblk, bcnt int) error {
	off := b.start + int64(sblk)*int64(b.cfg.EraseSize)
	size := int64(bcnt) * int64(b.cfg.EraseSize)
	if err := b.dev.Erase(off, size); err != nil {
		log.L.Debugf("flash erase failed at block %d", sblk)
		return errors.Wrapf(errdefs.ErrIO, "erase at block %d: %v", sblk, err)
	}

	return nil
}

func (b *backend) Ioctl(cmd area.IoctlCmd, data interface{}) error {
	switch cmd {
	case area.IoctlXIPAddress:
		if b.xip == nil {
			return errdefs.ErrNotSupported
		}

		out, ok := data.(*[]byte)
		if !ok || out == nil {
			return errors.Wrap(errdefs.ErrInvalidArgument,
				"no return data supplied")
		}

		*out = b.xip

		return nil
	default:
		return errdefs.ErrNotSupported
	}
}
