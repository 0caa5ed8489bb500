/*
 * Copyright (c) 2026. The areastore authors. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package store

import (
	"github.com/pkg/errors"

	"github.com/areastore/areastore/pkg/errdefs"
)

// Mode selects the store behavior table.
type Mode int

const (
	// ModeReadOnly only mounts and reads.
	ModeReadOnly Mode = iota
	// ModeSimpleCB is a circular buffer that overwrites old data when
	// space is exhausted.
	ModeSimpleCB
	// ModePersistentCB is a circular buffer that moves records a user
	// callback wants kept to the front before reusing an erase block.
	ModePersistentCB
)

func (m Mode) String() string {
	switch m {
	case ModeReadOnly:
		return "read-only"
	case ModeSimpleCB:
		return "simple-cb"
	case ModePersistentCB:
		return "persistent-cb"
	default:
		return "unknown"
	}
}

// ParseMode resolves a mode name used in configuration files and flags.
func ParseMode(name string) (Mode, error) {
	switch name {
	case "read-only", "ro":
		return ModeReadOnly, nil
	case "simple-cb", "scb":
		return ModeSimpleCB, nil
	case "persistent-cb", "pcb":
		return ModePersistentCB, nil
	default:
		return 0, errors.Wrapf(errdefs.ErrInvalidArgument,
			"unknown store mode %q", name)
	}
}

// modeAPI is the per-mode behavior table. Nil entries make the matching
// public operation fail with ErrNotSupported.
type modeAPI struct {
	mount   func(s *Store, cb *CompactCb) error
	writev  func(s *Store, iov [][]byte) error
	advance func(s *Store) error
	compact func(s *Store) error
}

var (
	readOnlyAPI = modeAPI{
		mount: mountReadOnly,
	}

	simpleCBAPI = modeAPI{
		mount:  mountSimple,
		writev: (*Store).writev,
		advance: func(s *Store) error {
			return s.advance()
		},
		// a simple circular buffer compacts by dropping the oldest
		// sector
		compact: func(s *Store) error {
			return s.advance()
		},
	}

	persistentCBAPI = modeAPI{
		mount:   mountPersistent,
		writev:  (*Store).writev,
		advance: func(s *Store) error {
			return s.advance()
		},
		compact: compactStore,
	}
)

func (m Mode) api() (*modeAPI, error) {
	switch m {
	case ModeReadOnly:
		return &readOnlyAPI, nil
	case ModeSimpleCB:
		return &simpleCBAPI, nil
	case ModePersistentCB:
		return &persistentCBAPI, nil
	default:
		return nil, errors.Wrapf(errdefs.ErrInvalidArgument,
			"unknown store mode %d", m)
	}
}

func mountReadOnly(s *Store, cb *CompactCb) error {
	if cb != nil {
		return errors.Wrap(errdefs.ErrInvalidArgument,
			"read-only stores take no compact callbacks")
	}

	if err := s.scan(); err != nil {
		if !errdefs.IsNotFound(err) {
			return err
		}

		// empty store; nothing to seed without writing
		s.sector = 0
		s.loc = 0
		s.wrapcnt = 0
	}

	return nil
}

func mountSimple(s *Store, cb *CompactCb) error {
	if cb != nil {
		return errors.Wrap(errdefs.ErrInvalidArgument,
			"simple circular buffers take no compact callbacks")
	}

	if err := s.scan(); err != nil {
		if !errdefs.IsNotFound(err) {
			return err
		}

		return s.seedEmpty()
	}

	return nil
}

func mountPersistent(s *Store, cb *CompactCb) error {
	if cb != nil {
		s.cb = *cb
	}

	if err := s.scan(); err != nil {
		if !errdefs.IsNotFound(err) {
			return err
		}

		return s.seedEmpty()
	}

	return s.recovery()
}

// seedEmpty takes sector zero into use on a store holding no records. The
// wrap counter of a freshly seeded store is one, as the seeding advance
// crosses sector zero.
func (s *Store) seedEmpty() error {
	s.sector = s.cfg.SectorCount - 1
	s.loc = s.cfg.SectorSize

	return s.advance()
}
