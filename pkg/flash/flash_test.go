/*
 * Copyright (c) 2026. The areastore authors. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package flash_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/areastore/areastore/pkg/area"
	"github.com/areastore/areastore/pkg/errdefs"
	"github.com/areastore/areastore/pkg/flash"
)

func TestMemDeviceProgramsAndErases(t *testing.T) {
	dev := flash.NewMemDevice(1024, 4, 8)

	data := []byte{0xf0, 0x0f, 0xaa, 0x55, 0x00, 0xff, 0x12, 0x34}
	require.Nil(t, dev.Write(0, data))
	require.Equal(t, data, dev.Bytes()[:8])

	// programming can only clear bits
	require.Nil(t, dev.Write(0, []byte{0x0f, 0xf0, 0x55, 0xaa, 0xff, 0x00, 0x34, 0x12}))
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x10},
		dev.Bytes()[:8])

	require.Nil(t, dev.Erase(0, 1024))
	require.Equal(t, byte(0xff), dev.Bytes()[0])

	require.True(t, errdefs.IsInvalidArgument(dev.Write(3, data)))
	require.True(t, errdefs.IsInvalidArgument(dev.Erase(8, 1024)))
}

func TestVerifyGeometry(t *testing.T) {
	dev := flash.NewMemDevice(1024, 4, 8)

	_, err := flash.New(dev, 0, area.Config{
		WriteSize:   8,
		EraseSize:   1024,
		EraseBlocks: 4,
		Props:       area.LOvrWrite,
	}, flash.Options{Verify: true})
	require.Nil(t, err)

	// declared write size below the device write block
	_, err = flash.New(dev, 0, area.Config{
		WriteSize:   4,
		EraseSize:   1024,
		EraseBlocks: 4,
	}, flash.Options{Verify: true})
	require.True(t, errdefs.IsInvalidConfig(err))

	// erase blocks not aligned to device pages
	_, err = flash.New(dev, 512, area.Config{
		WriteSize:   8,
		EraseSize:   1024,
		EraseBlocks: 2,
	}, flash.Options{Verify: true})
	require.True(t, errdefs.IsInvalidConfig(err))

	// erased value mismatch
	_, err = flash.New(dev, 0, area.Config{
		WriteSize:   8,
		EraseSize:   1024,
		EraseBlocks: 4,
		Props:       area.ZeroErase,
	}, flash.Options{Verify: true})
	require.True(t, errdefs.IsInvalidConfig(err))
}

func TestAutoEraseSplitsAtBlockBoundaries(t *testing.T) {
	dev := flash.NewMemDevice(1024, 4, 8)
	a, err := flash.New(dev, 0, area.Config{
		WriteSize:   8,
		EraseSize:   1024,
		EraseBlocks: 4,
		Props:       area.LOvrWrite | area.AutoErase,
	}, flash.Options{Verify: true})
	require.Nil(t, err)

	// dirty the first two blocks without erasing
	for i := 0; i < 2048; i++ {
		dev.Bytes()[i] = 0x00
	}

	// a write entering a block erases the whole block first
	data := make([]byte, 1536)
	for i := range data {
		data[i] = 0xa5
	}
	require.Nil(t, a.Write(0, data))

	require.Equal(t, byte(0xa5), dev.Bytes()[0])
	require.Equal(t, byte(0xa5), dev.Bytes()[1023])
	require.Equal(t, byte(0xa5), dev.Bytes()[1535])
	// the tail of the entered block was erased, not rewritten
	require.Equal(t, byte(0xff), dev.Bytes()[1536])
}

func TestWriteFaultPropagates(t *testing.T) {
	dev := flash.NewMemDevice(1024, 4, 8)
	dev.WriteFault = func(off int64, p []byte) error {
		if off == 16 {
			return errors.New("worn block")
		}
		return nil
	}

	a, err := flash.New(dev, 0, area.Config{
		WriteSize:   8,
		EraseSize:   1024,
		EraseBlocks: 4,
		Props:       area.LOvrWrite,
	}, flash.Options{})
	require.Nil(t, err)

	data := make([]byte, 8)
	require.Nil(t, a.Write(0, data))
	require.True(t, errdefs.IsIO(a.Write(16, data)))
}

func TestXIPThroughOption(t *testing.T) {
	dev := flash.NewMemDevice(1024, 4, 8)
	a, err := flash.New(dev, 0, area.Config{
		WriteSize:   8,
		EraseSize:   1024,
		EraseBlocks: 4,
		Props:       area.LOvrWrite,
	}, flash.Options{XIP: dev.Bytes()})
	require.Nil(t, err)

	var xip []byte
	require.Nil(t, a.Ioctl(area.IoctlXIPAddress, &xip))
	require.True(t, &xip[0] == &dev.Bytes()[0])

	noXIP, err := flash.New(dev, 0, area.Config{
		WriteSize:   8,
		EraseSize:   1024,
		EraseBlocks: 4,
		Props:       area.LOvrWrite,
	}, flash.Options{})
	require.Nil(t, err)
	require.True(t, errdefs.IsNotSupported(noXIP.Ioctl(area.IoctlXIPAddress, &xip)))
}
