/*
 * Copyright (c) 2026. The areastore authors. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package command

import (
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const (
	defaultLogLevel    = logrus.InfoLevel
	defaultDiskSector  = 512
	defaultWriteSize   = 512
	defaultEraseSize   = 4096
	defaultEraseBlocks = 16
	defaultSectorSize  = 4096
	defaultSectorCount = 16
	defaultSpares      = 1
	defaultMode        = "persistent-cb"
	defaultStoreName   = "areastore"
)

type Args struct {
	LogLevel     string
	ImagePath    string
	DiskSector   int
	WriteSize    int
	EraseSize    int
	EraseBlocks  int
	StoreName    string
	Mode         string
	SectorSize   int
	SectorCount  int
	SpareSectors int
	CRCSkip      int
	Cookie       string
	IndexPath    string
	MetricsFile  string
}

type Flags struct {
	Args *Args
	F    []cli.Flag
}

func buildFlags(args *Args) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Value:       defaultLogLevel.String(),
			Usage:       "set the logging level [trace, debug, info, warn, error, fatal, panic]",
			Destination: &args.LogLevel,
		},
		&cli.StringFlag{
			Name:        "image",
			Required:    true,
			Usage:       "path to the disk image holding the storage area",
			Destination: &args.ImagePath,
		},
		&cli.IntFlag{
			Name:        "disk-sector",
			Value:       defaultDiskSector,
			Usage:       "disk sector size in bytes",
			Destination: &args.DiskSector,
		},
		&cli.IntFlag{
			Name:        "write-size",
			Value:       defaultWriteSize,
			Usage:       "area write block size in bytes, a power of two",
			Destination: &args.WriteSize,
		},
		&cli.IntFlag{
			Name:        "erase-size",
			Value:       defaultEraseSize,
			Usage:       "area erase block size in bytes",
			Destination: &args.EraseSize,
		},
		&cli.IntFlag{
			Name:        "erase-blocks",
			Value:       defaultEraseBlocks,
			Usage:       "area erase block count",
			Destination: &args.EraseBlocks,
		},
		&cli.StringFlag{
			Name:        "name",
			Value:       defaultStoreName,
			Usage:       "store name used in logs and metrics",
			Destination: &args.StoreName,
		},
		&cli.StringFlag{
			Name:        "mode",
			Value:       defaultMode,
			Usage:       "store mode [read-only, simple-cb, persistent-cb]",
			Destination: &args.Mode,
		},
		&cli.IntFlag{
			Name:        "sector-size",
			Value:       defaultSectorSize,
			Usage:       "store sector size in bytes",
			Destination: &args.SectorSize,
		},
		&cli.IntFlag{
			Name:        "sector-count",
			Value:       defaultSectorCount,
			Usage:       "store sector count",
			Destination: &args.SectorCount,
		},
		&cli.IntFlag{
			Name:        "spare-sectors",
			Value:       defaultSpares,
			Usage:       "sectors kept unused for compaction",
			Destination: &args.SpareSectors,
		},
		&cli.IntFlag{
			Name:        "crc-skip",
			Value:       0,
			Usage:       "leading record data bytes excluded from the crc",
			Destination: &args.CRCSkip,
		},
		&cli.StringFlag{
			Name:        "cookie",
			Value:       "",
			Usage:       "sector cookie; a fresh tag is generated when empty",
			Destination: &args.Cookie,
		},
		&cli.StringFlag{
			Name:        "index",
			Value:       "",
			Usage:       "path to the record index database (optional)",
			Destination: &args.IndexPath,
		},
		&cli.StringFlag{
			Name:        "metrics-file",
			Value:       "",
			Usage:       "file to dump metrics to on exit (optional)",
			Destination: &args.MetricsFile,
		},
	}
}

func NewFlags() *Flags {
	var args Args
	return &Flags{
		Args: &args,
		F:    buildFlags(&args),
	}
}
