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

// Package hearer implements the HearerSession and HearerListener tasks
// of spec.md §4.4/§4.5: registering a hearer's egress queue and writing
// every twit it receives back out over its connection. Grounded on
// original_source/src/server/conn.c's hearerConnectionHandler and
// sendtwit, generalized from a single-cond-var twitpool to the shared
// twitqueue.Queue/hearerregistry.Registry abstractions.
package hearer

import (
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tsouris/twitserver/internal/stats"
	"github.com/tsouris/twitserver/internal/twit"
	"github.com/tsouris/twitserver/internal/twitqueue"
	"github.com/tsouris/twitserver/internal/twlog"
)

// Session owns one hearer connection from registration to close.
type Session struct {
	conn       net.Conn
	id         uuid.UUID
	egress     *twitqueue.Queue
	stats      *stats.Stats
	inactivity time.Duration
}

// NewSession returns a Session delivering twits dequeued from egress to
// conn, resetting the write deadline to inactivity before every send
// (spec.md §4.4's HEARER_WAIT_NSEC).
func NewSession(conn net.Conn, id uuid.UUID, egress *twitqueue.Queue, st *stats.Stats, inactivity time.Duration) *Session {
	return &Session{conn: conn, id: id, egress: egress, stats: st, inactivity: inactivity}
}

// Run blocks dequeuing twits from the egress queue and writing each one,
// framed with its NUL terminator, to the connection. It returns when the
// egress queue is closed (the hearer was unregistered) or a write fails.
// TotalDelivered is incremented only on a successful write — this is the
// package spec.md means by "delivered", distinct from the earlier
// egress-enqueue step performed by the broadcaster.
func (s *Session) Run() {
	defer s.conn.Close()

	for {
		t, ok := s.egress.DequeueBlocking()
		if !ok {
			return
		}

		if s.inactivity > 0 {
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.inactivity))
		}

		if _, err := s.conn.Write(twit.Frame(t)); err != nil {
			wrapped := errors.Wrap(err, "writing twit to hearer")
			twlog.L().Debug("hearer connection ended",
				twlog.Field("hearer", s.id.String()), twlog.Field("error", wrapped))
			return
		}

		s.stats.IncrementDelivered()
	}
}
