// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package twit defines the Twit value and the wire framing used to read
// one from a sayer connection.
package twit

import (
	"bufio"
	"io"
)

// Twit is an immutable, owned byte string of length [1, max-1] for
// whatever max a sayer's connection was configured with, produced by a
// sayer. The trailing NUL terminator used on the wire is not stored as
// part of Twit itself; Frame reattaches it when writing to a hearer.
type Twit []byte

// DefaultMaxBytes is the MAX_TWIT_BYTES default of spec.md §6, the same
// value config.Default uses for MaxTwitBytes. Read does not consult it;
// callers always pass the configured max explicitly.
const DefaultMaxBytes = 512

// Frame returns the exact bytes a hearer must receive for this twit:
// the twit's content followed by its NUL terminator.
func Frame(t Twit) []byte {
	framed := make([]byte, len(t)+1)
	copy(framed, t)
	framed[len(t)] = 0
	return framed
}

// Read reads one twit from r: a maximal run of non-NUL bytes up to
// max-1 long, consuming the terminating NUL byte if the run ended
// before the cap was hit. Reaching max-1 bytes without a NUL ends the
// twit implicitly; the NUL is not consumed from the wire in that case,
// matching spec.md §6. A NUL with no bytes before it ends no twit and is
// skipped, so Read never returns an empty Twit. max is the caller's
// configured MAX_TWIT_BYTES
// (config.Config.MaxTwitBytes); a max below 2 is treated as 2, the
// smallest value Config.Validate allows.
//
// Read returns io.EOF only when zero bytes were read before the peer
// closed its side of the connection; a partial twit followed by EOF is
// reported as io.ErrUnexpectedEOF.
func Read(r *bufio.Reader, max int) (Twit, error) {
	if max < 2 {
		max = 2
	}
	limit := max - 1

	buf := make([]byte, 0, limit)

	for len(buf) < limit {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				if len(buf) == 0 {
					return nil, io.EOF
				}
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}

		if b == 0 {
			if len(buf) == 0 {
				continue
			}
			return Twit(buf), nil
		}

		buf = append(buf, b)
	}

	// Implicit end: cap reached without a NUL. The byte that would have
	// been the terminator is left on the wire for the next read.
	return Twit(buf), nil
}
