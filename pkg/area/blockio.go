/*
 * Copyright (c) 2026. The areastore authors. All rights reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 */

package area

import (
	"github.com/pkg/errors"

	"github.com/areastore/areastore/pkg/errdefs"
)

// BlockWriter turns an arbitrary gather write into aligned, write-block sized
// medium transfers. Data is staged in a buffer of one write block; complete
// blocks in the middle of an element are handed to the medium directly.
//
// Drivers use it to implement WriteV on media that only accept block writes:
//
//	w := area.NewBlockWriter(off, align, dev.write)
//	for _, v := range iov {
//		if err := w.Write(v); err != nil { ... }
//	}
//	return w.Flush()
type BlockWriter struct {
	align int
	off   int64
	buf   []byte
	write func(off int64, p []byte) error
}

// NewBlockWriter creates a BlockWriter that emits transfers through write.
// align must be a power of two and off aligned to it.
func NewBlockWriter(off int64, align int, write func(off int64, p []byte) error) *BlockWriter {
	return &BlockWriter{
		align: align,
		off:   off,
		buf:   make([]byte, 0, align),
		write: write,
	}
}

// Write gathers p, flushing full blocks to the medium as they complete.
func (w *BlockWriter) Write(p []byte) error {
	if len(w.buf) > 0 {
		n := w.align - len(w.buf)
		if n > len(p) {
			n = len(p)
		}

		w.buf = append(w.buf, p[:n]...)
		p = p[n:]

		if len(w.buf) == w.align {
			if err := w.write(w.off, w.buf); err != nil {
				return err
			}

			w.off += int64(w.align)
			w.buf = w.buf[:0]
		}
	}

	if n := len(p) &^ (w.align - 1); n > 0 {
		if err := w.write(w.off, p[:n]); err != nil {
			return err
		}

		w.off += int64(n)
		p = p[n:]
	}

	w.buf = append(w.buf, p...)

	return nil
}

// Flush verifies that the gathered length was a multiple of the block size.
// The caller guarantees this, so residue indicates a caller bug.
func (w *BlockWriter) Flush() error {
	if len(w.buf) != 0 {
		return errors.Wrapf(errdefs.ErrInvalidArgument,
			"gather write left %d unaligned bytes", len(w.buf))
	}

	return nil
}
