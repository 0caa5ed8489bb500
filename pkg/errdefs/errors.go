/*
 * Copyright (c) 2026. The areastore authors. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package errdefs

import (
	"github.com/pkg/errors"
)

// Canonical error kinds of the areastore subsystem. Callers match them with
// errors.Is or the helpers below; wrapped context is added at the call site.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidRange    = errors.New("invalid range")
	ErrNotSupported    = errors.New("not supported")
	ErrReadOnly        = errors.New("read only")
	ErrNoSpace         = errors.New("no space left")
	ErrNotFound        = errors.New("not found")
	ErrIO              = errors.New("io failure")
	ErrAlreadyMounted  = errors.New("already mounted")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrNotReady        = errors.New("not ready")
)

// IsInvalidArgument returns true if the error is due to an invalid argument
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsInvalidRange returns true if the error is due to an out of bounds access
func IsInvalidRange(err error) bool {
	return errors.Is(err, ErrInvalidRange)
}

// IsNotSupported returns true if the operation is not implemented by the
// medium, the ioctl or the store mode
func IsNotSupported(err error) bool {
	return errors.Is(err, ErrNotSupported)
}

// IsReadOnly returns true if the error is due to a write on a read-only area
func IsReadOnly(err error) bool {
	return errors.Is(err, ErrReadOnly)
}

// IsNoSpace returns true if the current sector cannot hold the framed record
func IsNoSpace(err error) bool {
	return errors.Is(err, ErrNoSpace)
}

// IsNotFound returns true if the error is the iteration sentinel
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsIO returns true if a medium transaction failed
func IsIO(err error) bool {
	return errors.Is(err, ErrIO)
}

// IsAlreadyMounted returns true if mount was called on a mounted store
func IsAlreadyMounted(err error) bool {
	return errors.Is(err, ErrAlreadyMounted)
}

// IsInvalidConfig returns true if an area or store configuration was rejected
func IsInvalidConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

// IsNotReady returns true if the operation was issued on an unmounted store
func IsNotReady(err error) bool {
	return errors.Is(err, ErrNotReady)
}
