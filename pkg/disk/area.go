/*
 * Copyright (c) 2026. The areastore authors. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package disk

import (
	"github.com/containerd/containerd/log"
	"github.com/pkg/errors"

	"github.com/areastore/areastore/pkg/area"
	"github.com/areastore/areastore/pkg/errdefs"
)

// Options tune the disk storage area.
type Options struct {
	// Verify checks the declared geometry against the device at creation:
	// write and erase sizes must be whole sectors and the area must fit
	// behind the start sector.
	Verify bool
}

type backend struct {
	disk  Disk
	start int
	cfg   area.Config
}

// New creates a storage area on d, starting at sector start. The area always
// has the FOvrWrite property. The declared write size must be a multiple of
// the sector size.
func New(d Disk, start int, cfg area.Config, opts Options) (*area.Area, error) {
	if d == nil {
		return nil, errors.Wrap(errdefs.ErrInvalidArgument, "no disk")
	}

	cfg.Props |= area.FOvrWrite
	b := &backend{disk: d, start: start, cfg: cfg}
	if opts.Verify {
		if err := b.verify(); err != nil {
			return nil, err
		}
	}

	return area.New(b, cfg)
}

func (b *backend) verify() error {
	ssize := b.disk.SectorSize()
	if b.cfg.WriteSize%ssize != 0 {
		return errors.Wrapf(errdefs.ErrInvalidConfig,
			"write size %d is not a whole number of %d byte sectors",
			b.cfg.WriteSize, ssize)
	}

	if b.cfg.EraseSize%ssize != 0 {
		return errors.Wrapf(errdefs.ErrInvalidConfig,
			"erase size %d is not a whole number of %d byte sectors",
			b.cfg.EraseSize, ssize)
	}

	scount, err := b.disk.SectorCount()
	if err != nil {
		return errors.Wrap(err, "failed to get disk sector count")
	}

	asize := int64(b.cfg.EraseSize) * int64(b.cfg.EraseBlocks)
	dsize := int64(scount) * int64(ssize)
	if dsize < int64(b.start)*int64(ssize)+asize {
		return errors.Wrap(errdefs.ErrInvalidConfig,
			"area does not fit the disk")
	}

	return nil
}

func (b *backend) ReadV(off int64, iov [][]byte) error {
	ssize := b.disk.SectorSize()
	sector := b.start + int(off/int64(ssize))
	bpos := int(off % int64(ssize))
	buf := make([]byte, ssize)

	if err := b.disk.ReadSectors(buf, sector, 1); err != nil {
		log.L.Debugf("disk read failed at sector %d", sector)
		return errors.Wrapf(errdefs.ErrIO, "read at sector %d: %v", sector, err)
	}

	for _, v := range iov {
		for len(v) > 0 {
			n := ssize - bpos
			if n > len(v) {
				n = len(v)
			}

			copy(v[:n], buf[bpos:])
			bpos += n
			v = v[n:]

			if bpos == ssize {
				sector++
				bpos = 0
				if err := b.disk.ReadSectors(buf, sector, 1); err != nil {
					log.L.Debugf("disk read failed at sector %d", sector)
					return errors.Wrapf(errdefs.ErrIO,
						"read at sector %d: %v", sector, err)
				}
			}
		}
	}

	return nil
}

// write stores one aligned chunk. Partial leading or trailing sectors are
// read-modify-written; the disk only sees whole sector transfers.
func (b *backend) write(off int64, p []byte) error {
	ssize := b.disk.SectorSize()
	sector := b.start + int(off/int64(ssize))
	bpos := int(off % int64(ssize))

	for len(p) > 0 {
		if bpos == 0 && len(p) >= ssize {
			count := len(p) / ssize
			if err := b.disk.WriteSectors(p, sector, count); err != nil {
				return err
			}

			p = p[count*ssize:]
			sector += count
			continue
		}

		buf := make([]byte, ssize)
		if err := b.disk.ReadSectors(buf, sector, 1); err != nil {
			return err
		}

		n := copy(buf[bpos:], p)
		if err := b.disk.WriteSectors(buf, sector, 1); err != nil {
			return err
		}

		p = p[n:]
		sector++
		bpos = 0
	}

	return nil
}

func (b *backend) WriteV(off int64, iov [][]byte) error {
	w := area.NewBlockWriter(off, b.cfg.WriteSize, b.write)
	for _, v := range iov {
		if err := w.Write(v); err != nil {
			log.L.Debugf("disk write failed near %#x", off)
			return errors.Wrapf(errdefs.ErrIO, "write at %#x: %v", off, err)
		}
	}

	return w.Flush()
}

func (b *backend) Erase(sblk, bcnt int) error {
	ssize := b.disk.SectorSize()
	buf := make([]byte, ssize)
	fill := byte(0xff)
	if b.cfg.Props.Has(area.ZeroErase) {
		fill = 0x00
	}
	for i := range buf {
		buf[i] = fill
	}

	sector := b.start + sblk*(b.cfg.EraseSize/ssize)
	count := bcnt * (b.cfg.EraseSize / ssize)
	for i := 0; i < count; i++ {
		if err := b.disk.WriteSectors(buf, sector+i, 1); err != nil {
			log.L.Debugf("disk erase failed at sector %d", sector+i)
			return errors.Wrapf(errdefs.ErrIO,
				"erase at sector %d: %v", sector+i, err)
		}
	}

	return nil
}

func (b *backend) Ioctl(cmd area.IoctlCmd, data interface{}) error {
	return errdefs.ErrNotSupported
}
