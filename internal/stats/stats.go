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

// Package stats implements the Stats record described in spec.md §3/§4.3:
// a mutable counters block protected by a single lock, with condition
// variables signalled whenever a sayer or hearer slot frees up so the
// corresponding listener can wake and re-check its capacity predicate.
//
// The saturating-increment behavior replaces the macro-driven counters
// of original_source/src/server/statistics.h (spec.md §9's "macro-driven
// saturating counters" re-architecture note) with a small clamp helper.
package stats

import "sync"

// Snapshot is an immutable copy of the Stats record, safe to read or
// print without holding the Stats lock.
type Snapshot struct {
	ActiveThreads      int64
	ActiveHearers      int64
	ActiveSayers       int64
	CurrentStoredTwits int64
	TotalArrived       uint64
	TotalDelivered     uint64
	IngressDrops       uint64
	EgressDrops        uint64
	IncomingRate       float64
	OutgoingRate       float64
}

// Stats is the server-wide counters block.
type Stats struct {
	mu sync.Mutex

	sayerSlotFreed  *sync.Cond
	hearerSlotFreed *sync.Cond

	maxSayers  int64
	maxHearers int64

	activeThreads      int64
	activeHearers      int64
	activeSayers       int64
	currentStoredTwits int64

	totalArrived   uint64
	totalDelivered uint64
	ingressDrops   uint64
	egressDrops    uint64

	prevArrived   uint64
	prevDelivered uint64

	incomingRate float64
	outgoingRate float64
}

// New returns a Stats block admitting at most maxSayers concurrent
// sayers and maxHearers concurrent hearers.
func New(maxSayers, maxHearers int) *Stats {
	s := &Stats{
		maxSayers:  int64(maxSayers),
		maxHearers: int64(maxHearers),
	}
	s.sayerSlotFreed = sync.NewCond(&s.mu)
	s.hearerSlotFreed = sync.NewCond(&s.mu)
	return s
}

func satIncrU64(v uint64) uint64 {
	if v == ^uint64(0) {
		return v
	}
	return v + 1
}

// AcquireSayerSlot blocks until active sayers is below the configured
// maximum, then increments it and active threads atomically with the
// wait. The predicate is re-checked under the lock on every wakeup to
// guard against spurious wakeups (spec.md §9, Open Question 3).
func (s *Stats) AcquireSayerSlot() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.activeSayers >= s.maxSayers {
		s.sayerSlotFreed.Wait()
	}
	s.activeSayers++
	s.activeThreads++
}

// ReleaseSayerSlot decrements active sayers and active threads and wakes
// one listener blocked in AcquireSayerSlot.
func (s *Stats) ReleaseSayerSlot() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeSayers > 0 {
		s.activeSayers--
	}
	if s.activeThreads > 0 {
		s.activeThreads--
	}
	s.sayerSlotFreed.Signal()
}

// AcquireHearerSlot is AcquireSayerSlot's hearer-side counterpart. The
// bound used here is maxHearers — original_source's hearers listener
// compared against the sayers constant by mistake; spec.md §9 calls
// that out as a bug to fix, not preserve.
func (s *Stats) AcquireHearerSlot() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.activeHearers >= s.maxHearers {
		s.hearerSlotFreed.Wait()
	}
	s.activeHearers++
	s.activeThreads++
}

// ReleaseHearerSlot decrements active hearers and active threads and
// wakes one listener blocked in AcquireHearerSlot.
func (s *Stats) ReleaseHearerSlot() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeHearers > 0 {
		s.activeHearers--
	}
	if s.activeThreads > 0 {
		s.activeThreads--
	}
	s.hearerSlotFreed.Signal()
}

// IncrementArrived records one twit offered by a sayer, whether or not
// it was ultimately admitted to the ingress queue (spec.md §9, Open
// Question 1: total_arrived counts offered twits).
func (s *Stats) IncrementArrived() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalArrived = satIncrU64(s.totalArrived)
}

// IncrementDelivered records one twit written to one hearer.
func (s *Stats) IncrementDelivered() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalDelivered = satIncrU64(s.totalDelivered)
}

// IncrementIngressDrops records one twit dropped because the ingress
// queue was full.
func (s *Stats) IncrementIngressDrops() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ingressDrops = satIncrU64(s.ingressDrops)
}

// IncrementEgressDrops records one twit dropped because a hearer's
// egress queue was full at broadcast time (spec.md §9, resolved Open
// Question: the broadcaster drops per-hearer and keeps going, but the
// drop itself must stay observable in the SIGQUIT dump and --statlog
// trail, SPEC_FULL.md §10).
func (s *Stats) IncrementEgressDrops() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.egressDrops = satIncrU64(s.egressDrops)
}

// SetCurrentStoredTwits is called by the Supervisor's SIGQUIT handler
// (spec.md §4.8 step 5) with the ingress queue's count, which the caller
// reads beforehand under the ingress queue's own lock. Only the stats
// lock is held here; the two locks are never held together, so the
// stored value is the ingress count at that earlier instant.
func (s *Stats) SetCurrentStoredTwits(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentStoredTwits = int64(n)
}

// UpdateRates recomputes incoming/outgoing rates from the delta since
// the last call, divided by the elapsed interval in seconds. It is
// invoked by StatsUpdater every STATS_UPDATE_SECONDS (spec.md §4.3).
func (s *Stats) UpdateRates(intervalSeconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if intervalSeconds <= 0 {
		return
	}

	s.incomingRate = float64(s.totalArrived-s.prevArrived) / intervalSeconds
	s.outgoingRate = float64(s.totalDelivered-s.prevDelivered) / intervalSeconds
	s.prevArrived = s.totalArrived
	s.prevDelivered = s.totalDelivered
}

// Snapshot returns a consistent, point-in-time copy of every counter.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		ActiveThreads:      s.activeThreads,
		ActiveHearers:      s.activeHearers,
		ActiveSayers:       s.activeSayers,
		CurrentStoredTwits: s.currentStoredTwits,
		TotalArrived:       s.totalArrived,
		TotalDelivered:     s.totalDelivered,
		IngressDrops:       s.ingressDrops,
		EgressDrops:        s.egressDrops,
		IncomingRate:       s.incomingRate,
		OutgoingRate:       s.outgoingRate,
	}
}
