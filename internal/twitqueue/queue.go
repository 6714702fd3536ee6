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

// Package twitqueue implements the bounded FIFO twit queue shared by the
// ingress path and every hearer's egress path (spec.md §4.1).
//
// The lock+condition-variable pair mirrors the pthread mutex/cond used
// by the original twitpool (original_source/src/server/twitpoollist.c):
// one mutex per queue, one "not empty" condition signalled on every
// successful enqueue.
package twitqueue

import (
	"sync"

	"github.com/tsouris/twitserver/internal/twit"
)

// Queue is a bounded, blocking-dequeue FIFO of twits.
type Queue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	items    []twit.Twit
	capacity int
	closed   bool

	// drops counts twits that were dropped because the queue was full
	// or already closed at Enqueue time (spec.md §4.1/§4.4's "dropped twits are not
	// reported to the producer").
	drops uint64
}

// New returns an empty Queue with the given capacity.
func New(capacity int) *Queue {
	q := &Queue{capacity: capacity}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends twit to the queue and signals any blocked dequeuer.
// Enqueue never blocks: if the queue is already at capacity the twit is
// dropped and Enqueue reports ok=false. The caller (SayerSession or
// Broadcaster) decides what, if anything, to count for a drop.
func (q *Queue) Enqueue(t twit.Twit) (ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || len(q.items) >= q.capacity {
		q.drops++
		return false
	}

	q.items = append(q.items, t)
	q.notEmpty.Signal()
	return true
}

// DequeueBlocking waits until the queue is non-empty or Close is called,
// then pops and returns the oldest twit. ok is false only when the queue
// was closed with nothing left to drain.
func (q *Queue) DequeueBlocking() (t twit.Twit, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.notEmpty.Wait()
	}

	if len(q.items) == 0 {
		return nil, false
	}

	t = q.items[0]
	q.items = q.items[1:]
	return t, true
}

// Count returns the number of twits currently stored.
func (q *Queue) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// IsEmpty reports whether the queue currently holds no twits.
func (q *Queue) IsEmpty() bool {
	return q.Count() == 0
}

// Drops returns the number of twits dropped by Enqueue because the
// queue was at capacity or already closed.
func (q *Queue) Drops() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.drops
}

// Close marks the queue closed and wakes every blocked DequeueBlocking
// call; subsequent Enqueue calls are silently dropped. Close is
// idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.items = nil
	q.notEmpty.Broadcast()
}
