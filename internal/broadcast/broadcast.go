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

// Package broadcast implements the Broadcaster task of spec.md §4.7: the
// single bridge between the ingress queue and every hearer's egress
// queue. The fan-out loop itself is grounded on the cond-var broadcast
// pattern in original_source/src/server/twitmanager.c's broadcast_twit,
// generalized to Go's sync.Cond idiom as seen in the pack's
// progressreader.Broadcaster (other_examples).
package broadcast

import (
	"context"

	"github.com/google/uuid"

	"github.com/tsouris/twitserver/internal/hearerregistry"
	"github.com/tsouris/twitserver/internal/prep"
	"github.com/tsouris/twitserver/internal/stats"
	"github.com/tsouris/twitserver/internal/twit"
	"github.com/tsouris/twitserver/internal/twitqueue"
	"github.com/tsouris/twitserver/internal/twlog"
)

// Broadcaster drains the ingress queue and fans each twit out to every
// currently registered hearer.
type Broadcaster struct {
	ingress  *twitqueue.Queue
	registry *hearerregistry.Registry
	stats    *stats.Stats
}

// New returns a Broadcaster reading from ingress and fanning out through
// registry, counting per-hearer egress drops into st.
func New(ingress *twitqueue.Queue, registry *hearerregistry.Registry, st *stats.Stats) *Broadcaster {
	return &Broadcaster{ingress: ingress, registry: registry, stats: st}
}

// Run drains the ingress queue until ctx is cancelled, reporting ready
// before entering the loop. The Broadcaster is the only dequeuer of the
// ingress queue, which is what gives every hearer the same total
// delivery order (spec.md §4.7's invariant).
func (b *Broadcaster) Run(ctx context.Context, readiness *prep.Handle) {
	readiness.MarkReady()

	// Unblocks DequeueBlocking when the context is cancelled, since the
	// ingress queue has no native context awareness.
	go func() {
		<-ctx.Done()
		b.ingress.Close()
	}()

	for {
		t, ok := b.ingress.DequeueBlocking()
		if !ok {
			return
		}

		b.fanOut(t)
	}
}

// fanOut copies t into every registered hearer's egress queue. The
// registry lock is held for the whole walk (ForEach's contract), which
// guarantees a hearer either receives every twit broadcast while it was
// registered, or none — spec.md §4.7's invariant. A full egress queue
// drops this twit for that hearer only (spec.md §9's resolved Open
// Question: drop-per-hearer, never halt the whole broadcast); the drop
// is counted both on that hearer's own egress queue via Queue.Drops and
// on the server-wide EgressDrops counter, so it surfaces in the SIGQUIT
// dump and --statlog trail (SPEC_FULL.md §10).
func (b *Broadcaster) fanOut(t twit.Twit) {
	b.registry.ForEach(func(id uuid.UUID, q *twitqueue.Queue) {
		if !q.Enqueue(t) {
			twlog.L().Debug("egress queue full, dropping twit", twlog.Field("hearer", id.String()))
			b.stats.IncrementEgressDrops()
		}
	})
}
