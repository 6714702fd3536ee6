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

package stats

import (
	"testing"
	"time"
)

func TestAcquireReleaseSayerSlot(t *testing.T) {
	s := New(1, 1)

	s.AcquireSayerSlot()
	snap := s.Snapshot()
	if snap.ActiveSayers != 1 || snap.ActiveThreads != 1 {
		t.Fatalf("unexpected snapshot after acquire: %+v", snap)
	}

	s.ReleaseSayerSlot()
	snap = s.Snapshot()
	if snap.ActiveSayers != 0 || snap.ActiveThreads != 0 {
		t.Fatalf("unexpected snapshot after release: %+v", snap)
	}
}

func TestAcquireSayerSlotBlocksAtCapacity(t *testing.T) {
	s := New(1, 1)
	s.AcquireSayerSlot()

	acquired := make(chan struct{})
	go func() {
		s.AcquireSayerSlot()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("AcquireSayerSlot should have blocked at capacity")
	case <-time.After(50 * time.Millisecond):
	}

	s.ReleaseSayerSlot()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("AcquireSayerSlot never woke up after a slot freed")
	}
}

func TestHearerSlotBoundIsIndependentOfSayerBound(t *testing.T) {
	s := New(1, 5)

	for i := 0; i < 5; i++ {
		s.AcquireHearerSlot()
	}

	snap := s.Snapshot()
	if snap.ActiveHearers != 5 {
		t.Fatalf("expected 5 active hearers, got %d", snap.ActiveHearers)
	}
}

func TestCountersSaturateWithoutWrapping(t *testing.T) {
	s := New(10, 10)
	s.totalArrived = ^uint64(0)

	s.IncrementArrived()

	if got := s.Snapshot().TotalArrived; got != ^uint64(0) {
		t.Fatalf("expected counter to saturate at max uint64, got %d", got)
	}
}

func TestIncrementEgressDropsIsObservableInSnapshot(t *testing.T) {
	s := New(10, 10)
	s.IncrementEgressDrops()
	s.IncrementEgressDrops()

	if got := s.Snapshot().EgressDrops; got != 2 {
		t.Fatalf("expected EgressDrops=2, got %d", got)
	}
}

func TestUpdateRatesComputesDelta(t *testing.T) {
	s := New(10, 10)
	for i := 0; i < 20; i++ {
		s.IncrementArrived()
	}
	for i := 0; i < 10; i++ {
		s.IncrementDelivered()
	}

	s.UpdateRates(2)

	snap := s.Snapshot()
	if snap.IncomingRate != 10 {
		t.Fatalf("expected incoming rate 10, got %v", snap.IncomingRate)
	}
	if snap.OutgoingRate != 5 {
		t.Fatalf("expected outgoing rate 5, got %v", snap.OutgoingRate)
	}
}
