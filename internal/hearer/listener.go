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

package hearer

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tsouris/twitserver/internal/hearerregistry"
	"github.com/tsouris/twitserver/internal/prep"
	"github.com/tsouris/twitserver/internal/stats"
	"github.com/tsouris/twitserver/internal/twlog"
)

// Listener is the HearerListener task of spec.md §4.5: it accepts
// hearer connections, gates admission on a free hearer slot, registers
// an egress queue, and spawns one Session per connection. Grounded on
// original_source/src/server/listen.c's hearersListener, using maxHearers
// as the admission bound for both the Stats slot and the registry
// (spec.md §9, Open Question 4: the original compared against the
// sayers constant by mistake).
type Listener struct {
	addr       string
	registry   *hearerregistry.Registry
	stats      *stats.Stats
	inactivity time.Duration
	quiet      bool

	mu sync.Mutex
	ln net.Listener
}

// NewListener returns a Listener that will bind addr once Run is
// called.
func NewListener(addr string, registry *hearerregistry.Registry, st *stats.Stats, inactivity time.Duration, quiet bool) *Listener {
	return &Listener{addr: addr, registry: registry, stats: st, inactivity: inactivity, quiet: quiet}
}

// Run binds the listening socket, reports readiness, and accepts
// connections until ctx is cancelled.
func (l *Listener) Run(ctx context.Context, readiness *prep.Handle) {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", l.addr)
	if err != nil {
		twlog.L().Error("hearer listener failed to bind", twlog.Field("addr", l.addr), twlog.Field("error", err))
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
				twlog.L().Warn("hearer accept failed", twlog.Field("error", err))
				continue
			}
		}

		l.stats.AcquireHearerSlot()

		id, egress, err := l.registry.Register()
		if err != nil {
			// The registry and the stats slot bound should move in
			// lockstep (both configured from MaxHearers); this branch
			// only fires on a misconfiguration between the two.
			twlog.L().Warn("hearer registry exhausted despite a free slot", twlog.Field("error", err))
			l.stats.ReleaseHearerSlot()
			conn.Close()
			continue
		}

		logln("hearer connected", conn.RemoteAddr(), id.String())

		go func(c net.Conn, hid uuid.UUID) {
			defer func() {
				l.registry.Unregister(hid)
				l.stats.ReleaseHearerSlot()
				logln("hearer disconnected", c.RemoteAddr(), hid.String())
			}()
			NewSession(c, hid, egress, l.stats, l.inactivity).Run()
		}(conn, id)
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
