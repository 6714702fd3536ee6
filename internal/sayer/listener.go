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

package sayer

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/tsouris/twitserver/internal/prep"
	"github.com/tsouris/twitserver/internal/stats"
	"github.com/tsouris/twitserver/internal/twitqueue"
	"github.com/tsouris/twitserver/internal/twlog"
)

// Listener is the SayerListener task of spec.md §4.5: it accepts sayer
// connections, gates admission on a free sayer slot, and spawns one
// Session per connection. Grounded on
// original_source/src/server/listen.c's sayersListener, with the
// accept-loop/goroutine-per-connection shape of the teacher's
// server/main.go loop().
type Listener struct {
	addr       string
	ingress    *twitqueue.Queue
	stats      *stats.Stats
	maxTwits   int
	maxBytes   int
	inactivity time.Duration
	quiet      bool

	mu sync.Mutex
	ln net.Listener
}

// NewListener returns a Listener that will bind addr once Run is
// called. maxBytes is MAX_TWIT_BYTES (spec.md §6), threaded through to
// every Session's twit.Read call.
func NewListener(addr string, ingress *twitqueue.Queue, st *stats.Stats, maxTwits, maxBytes int, inactivity time.Duration, quiet bool) *Listener {
	return &Listener{
		addr:       addr,
		ingress:    ingress,
		stats:      st,
		maxTwits:   maxTwits,
		maxBytes:   maxBytes,
		inactivity: inactivity,
		quiet:      quiet,
	}
}

// Run binds the listening socket, reports readiness, and accepts
// connections until ctx is cancelled. Each accepted connection blocks
// on AcquireSayerSlot before being handed to a Session, so a saturated
// server simply stalls new accepts rather than refusing the TCP
// handshake (spec.md §4.5).
func (l *Listener) Run(ctx context.Context, readiness *prep.Handle) {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", l.addr)
	if err != nil {
		twlog.L().Error("sayer listener failed to bind", twlog.Field("addr", l.addr), twlog.Field("error", err))
		readiness.MarkFailed(err)
		return
	}
	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()
	readiness.MarkReady()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	logln := func(args ...interface{}) {
		if !l.quiet {
			twlog.L().Sugar().Infoln(args...)
		}
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				twlog.L().Warn("sayer accept failed", twlog.Field("error", err))
				continue
			}
		}

		l.stats.AcquireSayerSlot()
		logln("sayer connected", conn.RemoteAddr())

		go func(c net.Conn) {
			defer func() {
				l.stats.ReleaseSayerSlot()
				logln("sayer disconnected", c.RemoteAddr())
			}()
			NewSession(c, l.ingress, l.stats, l.maxTwits, l.maxBytes, l.inactivity).Run()
		}(conn)
	}
}

// Addr returns the bound listening address, or nil if Run has not yet
// finished binding.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}
