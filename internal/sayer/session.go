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

// Package sayer implements the SayerSession and SayerListener tasks of
// spec.md §4.4/§4.5: accepting sayer connections and reading twits off
// them into the ingress queue. The read loop is grounded directly on
// original_source/src/server/conn.c's sayerConnectionHandler and
// receivetwit, generalized from one-byte-at-a-time recv() calls to
// bufio-backed reads via the twit package.
package sayer

import (
	"bufio"
	"io"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/tsouris/twitserver/internal/stats"
	"github.com/tsouris/twitserver/internal/twit"
	"github.com/tsouris/twitserver/internal/twitqueue"
	"github.com/tsouris/twitserver/internal/twlog"
)

// Session owns one sayer connection from accept to close.
type Session struct {
	conn       net.Conn
	ingress    *twitqueue.Queue
	stats      *stats.Stats
	maxTwits   int
	maxBytes   int
	inactivity time.Duration
}

// NewSession returns a Session that will read at most maxTwits twits,
// each capped at maxBytes on the wire (MAX_TWIT_BYTES, spec.md §6),
// from conn before closing it, resetting the read deadline to
// inactivity after every successful read (spec.md §4.4's
// SAYER_WAIT_NSEC / SAYER_TWIT_MAXCOUNT).
func NewSession(conn net.Conn, ingress *twitqueue.Queue, st *stats.Stats, maxTwits, maxBytes int, inactivity time.Duration) *Session {
	return &Session{
		conn:       conn,
		ingress:    ingress,
		stats:      st,
		maxTwits:   maxTwits,
		maxBytes:   maxBytes,
		inactivity: inactivity,
	}
}

// Run reads twits from the connection until the sayer has sent
// maxTwits, a framing/timeout error occurs, or the peer closes the
// connection — then closes the socket. Every twit read increments
// TotalArrived (spec.md §9, Open Question 1: counts offered twits, not
// admitted ones) whether or not it is ultimately admitted to the
// ingress queue; a full ingress queue drops the twit and increments
// IngressDrops instead of blocking the sayer.
func (s *Session) Run() {
	defer s.conn.Close()

	r := bufio.NewReader(s.conn)
	remote := s.conn.RemoteAddr()

	for count := 0; count < s.maxTwits; count++ {
		if s.inactivity > 0 {
			_ = s.conn.SetReadDeadline(time.Now().Add(s.inactivity))
		}

		t, err := twit.Read(r, s.maxBytes)
		if err != nil {
			if err != io.EOF {
				wrapped := errors.Wrap(err, "reading twit from sayer")
				twlog.L().Debug("sayer connection ended",
					twlog.Field("remote", remote), twlog.Field("error", wrapped))
			}
			return
		}

		s.stats.IncrementArrived()

		if !s.ingress.Enqueue(t) {
			s.stats.IncrementIngressDrops()
		}
	}
}
