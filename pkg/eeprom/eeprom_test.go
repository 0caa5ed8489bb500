/*
 * Copyright (c) 2026. The areastore authors. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package eeprom_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/areastore/areastore/pkg/area"
	"github.com/areastore/areastore/pkg/eeprom"
	"github.com/areastore/areastore/pkg/errdefs"
	"github.com/areastore/areastore/pkg/store"
)

func TestAreaOnDeviceWindow(t *testing.T) {
	dev := eeprom.NewMemDevice(8192)
	a, err := eeprom.New(dev, 4096, area.Config{
		WriteSize:   4,
		EraseSize:   1024,
		EraseBlocks: 4,
	})
	require.Nil(t, err)
	require.True(t, a.Props().Has(area.FOvrWrite))

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	require.Nil(t, a.Write(0, data))
	require.Equal(t, data, dev.Bytes()[4096:4104])

	// erase is emulated by writing the erase value
	require.Nil(t, a.Erase(0, 1))
	require.Equal(t, byte(0xff), dev.Bytes()[4096])

	_, err = eeprom.New(dev, 8000, area.Config{
		WriteSize:   4,
		EraseSize:   1024,
		EraseBlocks: 4,
	})
	require.True(t, errdefs.IsInvalidConfig(err))
}

func TestStoreOnEEPROM(t *testing.T) {
	dev := eeprom.NewMemDevice(4096)
	a, err := eeprom.New(dev, 0, area.Config{
		WriteSize:   4,
		EraseSize:   1024,
		EraseBlocks: 4,
	})
	require.Nil(t, err)

	st, err := store.New(store.Config{
		Name:        t.Name(),
		Area:        a,
		Mode:        store.ModeSimpleCB,
		SectorSize:  1024,
		SectorCount: 4,
	})
	require.Nil(t, err)
	require.Nil(t, st.Mount(nil))

	require.Nil(t, st.Write([]byte("eeprom record")))

	walk := store.Record{}
	require.Nil(t, st.RecordNext(&walk))
	require.Equal(t, 13, walk.Size)

	data := make([]byte, walk.Size)
	require.Nil(t, walk.Read(0, data))
	require.Equal(t, []byte("eeprom record"), data)

	// remount over the freely overwritable medium finds the same head
	sector, loc := st.Sector(), st.Loc()
	require.Nil(t, st.Unmount())
	require.Nil(t, st.Mount(nil))
	require.Equal(t, sector, st.Sector())
	require.Equal(t, loc, st.Loc())
}
