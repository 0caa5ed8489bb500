/*
 * Copyright (c) 2026. The areastore authors. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package disk_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/areastore/areastore/pkg/area"
	"github.com/areastore/areastore/pkg/disk"
	"github.com/areastore/areastore/pkg/eeprom"
	"github.com/areastore/areastore/pkg/errdefs"
)

func newFileArea(t *testing.T) (*area.Area, *disk.FileDisk) {
	dir, err := os.MkdirTemp("", "areastore-disk-")
	require.Nil(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	d, err := disk.Create(filepath.Join(dir, "image.bin"), 512, 16)
	require.Nil(t, err)
	t.Cleanup(func() { _ = d.Close() })

	a, err := disk.New(d, 0, area.Config{
		WriteSize:   512,
		EraseSize:   2048,
		EraseBlocks: 4,
	}, disk.Options{Verify: true})
	require.Nil(t, err)

	return a, d
}

func TestFileDiskRoundTrip(t *testing.T) {
	a, _ := newFileArea(t)

	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i)
	}
	require.Nil(t, a.Write(512, data))

	rd := make([]byte, 1024)
	require.Nil(t, a.Read(512, rd))
	require.Equal(t, data, rd)

	// byte granular reads cross sector boundaries
	small := make([]byte, 16)
	require.Nil(t, a.Read(1016, small))
	require.Equal(t, data[504:520], small)
}

func TestDiskAreaIsFullOverwrite(t *testing.T) {
	a, _ := newFileArea(t)
	require.True(t, a.Props().Has(area.FOvrWrite))

	data := make([]byte, 512)
	for i := range data {
		data[i] = 0xaa
	}
	require.Nil(t, a.Write(0, data))
	for i := range data {
		data[i] = 0x55
	}
	// any pattern replaces any
	require.Nil(t, a.Write(0, data))

	rd := make([]byte, 512)
	require.Nil(t, a.Read(0, rd))
	require.Equal(t, data, rd)
}

func TestDiskErase(t *testing.T) {
	a, _ := newFileArea(t)

	data := make([]byte, 2048)
	require.Nil(t, a.Write(2048, data))
	require.Nil(t, a.Erase(1, 1))

	rd := make([]byte, 2048)
	require.Nil(t, a.Read(2048, rd))
	for i := range rd {
		require.Equal(t, byte(0xff), rd[i])
	}
}

func TestVerifyRejectsMisfit(t *testing.T) {
	dir, err := os.MkdirTemp("", "areastore-disk-")
	require.Nil(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	d, err := disk.Create(filepath.Join(dir, "small.bin"), 512, 4)
	require.Nil(t, err)
	t.Cleanup(func() { _ = d.Close() })

	// area larger than the disk
	_, err = disk.New(d, 0, area.Config{
		WriteSize:   512,
		EraseSize:   2048,
		EraseBlocks: 4,
	}, disk.Options{Verify: true})
	require.True(t, errdefs.IsInvalidConfig(err))

	// write size below a sector
	_, err = disk.New(d, 0, area.Config{
		WriteSize:   256,
		EraseSize:   2048,
		EraseBlocks: 1,
	}, disk.Options{Verify: true})
	require.True(t, errdefs.IsInvalidConfig(err))
}

func TestOpenRejectsTornImage(t *testing.T) {
	dir, err := os.MkdirTemp("", "areastore-disk-")
	require.Nil(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	path := filepath.Join(dir, "torn.bin")
	require.Nil(t, os.WriteFile(path, make([]byte, 1000), 0644))

	_, err = disk.Open(path, 512)
	require.True(t, errdefs.IsInvalidConfig(err))
}

func TestEEPROMDiskBridge(t *testing.T) {
	dev := eeprom.NewMemDevice(8192)
	d := disk.NewEEPROMDisk(dev, 512)

	scount, err := d.SectorCount()
	require.Nil(t, err)
	require.Equal(t, 16, scount)

	a, err := disk.New(d, 0, area.Config{
		WriteSize:   512,
		EraseSize:   2048,
		EraseBlocks: 4,
	}, disk.Options{Verify: true})
	require.Nil(t, err)

	data := make([]byte, 512)
	for i := range data {
		data[i] = byte(i % 251)
	}
	require.Nil(t, a.Write(1024, data))

	rd := make([]byte, 512)
	require.Nil(t, a.Read(1024, rd))
	require.Equal(t, data, rd)
	require.Equal(t, data, dev.Bytes()[1024:1536])
}
