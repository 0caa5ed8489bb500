/*
 * Copyright (c) 2026. The areastore authors. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

// Package disk provides a storage area on sector-addressed block devices.
package disk

import (
	"os"

	"github.com/pkg/errors"

	"github.com/areastore/areastore/pkg/eeprom"
	"github.com/areastore/areastore/pkg/errdefs"
)

// Disk is the block device contract. Transfers are whole sectors.
type Disk interface {
	// ReadSectors reads count sectors starting at start into buf.
	ReadSectors(buf []byte, start, count int) error
	// WriteSectors writes count sectors starting at start from buf.
	WriteSectors(buf []byte, start, count int) error
	// SectorSize returns the sector size in bytes.
	SectorSize() int
	// SectorCount returns the number of sectors on the device.
	SectorCount() (int, error)
}

// FileDisk is a disk image backed by a regular file.
type FileDisk struct {
	f     *os.File
	ssize int
}

// Create creates (or truncates) a disk image of sectors sectors.
func Create(path string, ssize, sectors int) (*FileDisk, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create disk image %q", path)
	}

	if err := f.Truncate(int64(ssize) * int64(sectors)); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "failed to size disk image %q", path)
	}

	return &FileDisk{f: f, ssize: ssize}, nil
}

// Open opens an existing disk image. The file size must be a multiple of
// ssize.
func Open(path string, ssize int) (*FileDisk, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open disk image %q", path)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "failed to stat disk image %q", path)
	}

	if fi.Size()%int64(ssize) != 0 {
		f.Close()
		return nil, errors.Wrapf(errdefs.ErrInvalidConfig,
			"disk image %q is not a whole number of sectors", path)
	}

	return &FileDisk{f: f, ssize: ssize}, nil
}

func (d *FileDisk) ReadSectors(buf []byte, start, count int) error {
	_, err := d.f.ReadAt(buf[:count*d.ssize], int64(start)*int64(d.ssize))

	return err
}

func (d *FileDisk) WriteSectors(buf []byte, start, count int) error {
	_, err := d.f.WriteAt(buf[:count*d.ssize], int64(start)*int64(d.ssize))

	return err
}

func (d *FileDisk) SectorSize() int { return d.ssize }

func (d *FileDisk) SectorCount() (int, error) {
	fi, err := d.f.Stat()
	if err != nil {
		return 0, err
	}

	return int(fi.Size() / int64(d.ssize)), nil
}

// Close closes the underlying image file.
func (d *FileDisk) Close() error { return d.f.Close() }

// EEPROMDisk exposes an eeprom device through the disk contract, so stores
// laid out for disks can live on eeprom parts.
type EEPROMDisk struct {
	dev   eeprom.Device
	ssize int
}

// NewEEPROMDisk wraps dev as a disk of ssize-byte sectors.
func NewEEPROMDisk(dev eeprom.Device, ssize int) *EEPROMDisk {
	return &EEPROMDisk{dev: dev, ssize: ssize}
}

func (d *EEPROMDisk) ReadSectors(buf []byte, start, count int) error {
	return d.dev.Read(int64(start)*int64(d.ssize), buf[:count*d.ssize])
}

func (d *EEPROMDisk) WriteSectors(buf []byte, start, count int) error {
	return d.dev.Write(int64(start)*int64(d.ssize), buf[:count*d.ssize])
}

func (d *EEPROMDisk) SectorSize() int { return d.ssize }

func (d *EEPROMDisk) SectorCount() (int, error) {
	return int(d.dev.Size() / int64(d.ssize)), nil
}
