/*
 * Copyright (c) 2026. The areastore authors. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package command

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/areastore/areastore/config"
	"github.com/areastore/areastore/pkg/store"
)

func Validate(args *Args, cfg *config.Config) error {
	if args.ImagePath == "" {
		return errors.New("no disk image path")
	}

	if _, err := store.ParseMode(args.Mode); err != nil {
		return errors.Wrapf(err, "invalid mode %q", args.Mode)
	}

	cookie := []byte(args.Cookie)
	if len(cookie) == 0 {
		// tag fresh stores so mixed images are recognizable
		cookie = []byte(uuid.New().String()[:8])
	}

	cfg.ImagePath = args.ImagePath
	cfg.DiskSector = args.DiskSector
	cfg.WriteSize = args.WriteSize
	cfg.EraseSize = args.EraseSize
	cfg.EraseBlocks = args.EraseBlocks
	cfg.StoreName = args.StoreName
	cfg.Mode = args.Mode
	cfg.SectorSize = args.SectorSize
	cfg.SectorCount = args.SectorCount
	cfg.SpareSectors = args.SpareSectors
	cfg.CRCSkip = args.CRCSkip
	cfg.Cookie = cookie
	cfg.IndexPath = args.IndexPath
	cfg.MetricsFile = args.MetricsFile

	return nil
}
