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

// Package hearerregistry implements the set of per-hearer egress queues
// described in spec.md §3/§4.2, modeled on the linked list of per-hearer
// twitpools in original_source/src/server/twitmanager.c.
package hearerregistry

import (
	"sync"

	"github.com/google/uuid"

	"github.com/tsouris/twitserver/internal/twitqueue"
)

// ErrExhausted is returned by Register when the registry is already at
// its configured maximum size.
var ErrExhausted = errExhausted{}

type errExhausted struct{}

func (errExhausted) Error() string { return "hearer registry exhausted" }

// Registry is the set of (HearerId -> egress queue) pairs. ForEach holds
// the registry lock for its entire walk, which is what gives the
// Broadcaster's fan-out the "all or nothing" guarantee described in
// spec.md §4.7: Unregister cannot complete mid-walk.
type Registry struct {
	mu        sync.Mutex
	hearers   map[uuid.UUID]*twitqueue.Queue
	maxSize   int
	egressCap int
}

// New returns an empty Registry admitting at most maxSize hearers, each
// with an egress queue of capacity egressCap.
func New(maxSize, egressCap int) *Registry {
	return &Registry{
		hearers:   make(map[uuid.UUID]*twitqueue.Queue),
		maxSize:   maxSize,
		egressCap: egressCap,
	}
}

// Register allocates a new egress queue and returns its id. It fails
// with ErrExhausted when the registry is already at its configured
// maximum (spec.md §4.2).
func (r *Registry) Register() (uuid.UUID, *twitqueue.Queue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.hearers) >= r.maxSize {
		return uuid.UUID{}, nil, ErrExhausted
	}

	id := uuid.New()
	q := twitqueue.New(r.egressCap)
	r.hearers[id] = q
	return id, q, nil
}

// Unregister removes id's egress queue from the registry and closes it,
// draining and releasing any twits still queued for that hearer.
// Unregister blocks until any in-progress ForEach walk completes, since
// both share the registry lock. Unregister is idempotent.
func (r *Registry) Unregister(id uuid.UUID) {
	r.mu.Lock()
	q, ok := r.hearers[id]
	if ok {
		delete(r.hearers, id)
	}
	r.mu.Unlock()

	if ok {
		q.Close()
	}
}

// ForEach invokes f once per currently registered egress queue, holding
// the registry lock for the whole walk.
func (r *Registry) ForEach(f func(id uuid.UUID, q *twitqueue.Queue)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, q := range r.hearers {
		f(id, q)
	}
}

// Size returns the number of currently registered hearers.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hearers)
}
