/*
 * Copyright (c) 2026. The areastore authors. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package store

import (
	"github.com/containerd/containerd/log"

	"github.com/areastore/areastore/pkg/errdefs"
	"github.com/areastore/areastore/pkg/metric"
)

// moveRecord copies rec to the write position, restamped with the current
// wrap counter, when the Move callback wants it kept. Returns ErrNoSpace
// when the current sector cannot hold the copy.
func (s *Store) moveRecord(rec *Record) error {
	if s.cb.Move == nil || !s.cb.Move(rec) || !s.recordValid(rec) {
		return nil
	}

	ss := int64(s.cfg.SectorSize)
	alsize := rec.footprint(s.area.WriteSize())
	if s.cfg.SectorSize-alsize < s.loc {
		return errdefs.ErrNoSpace
	}

	dest := Record{Store: s, Sector: s.sector, Loc: s.loc, Size: rec.Size}
	rdoff := int64(rec.Sector)*ss + int64(rec.Loc)
	wroff := int64(s.sector)*ss + int64(s.loc)
	buf := s.recordBuf()

	for start := 0; start < alsize; {
		n := len(buf)
		if n > alsize-start {
			n = alsize - start
		}

		if err := s.area.Read(rdoff+int64(start), buf[:n]); err != nil {
			log.L.WithError(err).Debugf("move read failed at %#x",
				rdoff+int64(start))
			return err
		}

		if start == 0 {
			buf[1] = s.wrapcnt
		}

		if err := s.area.Write(wroff+int64(start), buf[:n]); err != nil {
			log.L.WithError(err).Debugf("move write failed at %#x",
				wroff+int64(start))
			return err
		}

		s.loc += n
		start += n
	}

	if s.cb.MoveCb != nil {
		s.cb.MoveCb(rec, &dest)
	}

	metric.MovedRecords.WithLabelValues(s.cfg.Name).Inc()

	return nil
}

// blockSectors returns the number of sectors per erase block, at least one.
func (s *Store) blockSectors() int {
	if es := s.area.EraseSize(); es > s.cfg.SectorSize {
		return es / s.cfg.SectorSize
	}

	return 1
}

// compactStore advances the store; when the new sector starts an erase
// block, the records of the erase block one past the spare sectors are
// evaluated with the Move callback and the kept ones are copied forward.
// Running out of sector space cascades another advance.
func compactStore(s *Store) error {
	if err := s.advance(); err != nil {
		return err
	}

	if s.cb.Move == nil {
		return nil
	}

	if (s.sector*s.cfg.SectorSize)%s.area.EraseSize() != 0 {
		return nil
	}

	walk := Record{Store: s, Sector: s.sector}
	s.sectorAdvance(&walk.Sector, s.cfg.SpareSectors)

	for scnt := s.blockSectors(); scnt > 0; scnt-- {
		walk.Loc = 0
		walk.Size = 0

		for {
			err := s.recordNextInSector(&walk, true, true)
			if err != nil {
				if errdefs.IsNotFound(err) {
					break
				}

				return err
			}

			for {
				err = s.moveRecord(&walk)
				if err == nil || !errdefs.IsNoSpace(err) {
					break
				}

				if err = s.advance(); err != nil {
					break
				}
			}

			if err != nil {
				return err
			}
		}

		s.sectorAdvance(&walk.Sector, 1)
	}

	metric.Compactions.WithLabelValues(s.cfg.Name).Inc()

	return nil
}

// reverse steps the write position back one whole sector.
func (s *Store) reverse() {
	s.sectorReverse(&s.sector, 1)
	s.loc = s.cfg.SectorSize
	if s.sector == s.cfg.SectorCount-1 {
		s.wrapcnt--
	}
}

// recovery repairs a compact that was interrupted by power loss. The records
// of the erase block a compact would source from are counted (mrcnt); when
// any remain to be moved, the records already present in the erase block
// holding the write head are counted (vrcnt). vrcnt >= mrcnt means the copy
// finished but the source block was not released: a compact from the head
// finishes the cycle. Fewer means moves were lost: the head is taken back to
// just before its erase block and the block copy is redone.
func (s *Store) recovery() error {
	if s.cb.Move == nil {
		return nil
	}

	ss := s.cfg.SectorSize
	es := s.area.EraseSize()
	dsector, dloc, dwrap := s.sector, s.loc, s.wrapcnt

	rscnt := 0
	for (s.sector*ss)%es != 0 {
		s.reverse()
		rscnt++
	}
	s.reverse()
	rscnt++

	mrcnt := 0
	walk := Record{Store: s, Sector: s.sector}
	s.sectorAdvance(&walk.Sector, s.cfg.SpareSectors+1)
	for cnt := 0; cnt < s.blockSectors(); cnt++ {
		walk.Loc = 0
		walk.Size = 0
		for s.recordNextInSector(&walk, true, true) == nil {
			if s.cb.Move(&walk) && s.recordValid(&walk) {
				mrcnt++
			}
		}

		s.sectorAdvance(&walk.Sector, 1)
	}

	s.sector, s.loc, s.wrapcnt = dsector, dloc, dwrap

	if mrcnt == 0 {
		return nil
	}

	vrcnt := 0
	walk.Sector = s.sector
	for (walk.Sector*ss)%es != 0 {
		s.sectorReverse(&walk.Sector, 1)
	}
	for cnt := 0; cnt < rscnt; cnt++ {
		walk.Loc = 0
		walk.Size = 0
		for s.recordNextInSector(&walk, true, false) == nil {
			vrcnt++
		}

		s.sectorAdvance(&walk.Sector, 1)
	}

	metric.Recoveries.WithLabelValues(s.cfg.Name).Inc()

	if vrcnt >= mrcnt {
		// the copy completed but the source block is still in use
		log.L.Debugf("%s: finishing interrupted compact (%d moved, %d pending)",
			s.cfg.Name, vrcnt, mrcnt)
		return compactStore(s)
	}

	// moves were lost; redo the whole block copy
	log.L.Debugf("%s: redoing interrupted compact (%d moved, %d pending)",
		s.cfg.Name, vrcnt, mrcnt)
	for (s.sector*ss)%es != 0 {
		s.reverse()
	}
	s.reverse()

	return compactStore(s)
}
