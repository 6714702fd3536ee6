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

package twitqueue

import (
	"testing"
	"time"

	"github.com/tsouris/twitserver/internal/twit"
)

func TestEnqueueDequeueOrder(t *testing.T) {
	q := New(4)

	for _, s := range []string{"a", "b", "c"} {
		if ok := q.Enqueue(twit.Twit(s)); !ok {
			t.Fatalf("Enqueue(%q) unexpectedly dropped", s)
		}
	}

	for _, want := range []string{"a", "b", "c"} {
		got, ok := q.DequeueBlocking()
		if !ok {
			t.Fatalf("DequeueBlocking unexpectedly reported empty/closed")
		}
		if string(got) != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	q := New(1)

	if ok := q.Enqueue(twit.Twit("a")); !ok {
		t.Fatalf("first Enqueue should succeed")
	}
	if ok := q.Enqueue(twit.Twit("b")); ok {
		t.Fatalf("second Enqueue should be dropped at capacity")
	}
	if got := q.Drops(); got != 1 {
		t.Fatalf("expected 1 drop, got %d", got)
	}
	if got := q.Count(); got != 1 {
		t.Fatalf("expected count 1, got %d", got)
	}
}

func TestDequeueBlockingWaitsForEnqueue(t *testing.T) {
	q := New(4)
	done := make(chan twit.Twit, 1)

	go func() {
		v, ok := q.DequeueBlocking()
		if !ok {
			close(done)
			return
		}
		done <- v
	}()

	time.Sleep(20 * time.Millisecond)
	q.Enqueue(twit.Twit("hi"))

	select {
	case v := <-done:
		if string(v) != "hi" {
			t.Fatalf("expected %q, got %q", "hi", v)
		}
	case <-time.After(time.Second):
		t.Fatal("DequeueBlocking never woke up after Enqueue")
	}
}

func TestCloseWakesBlockedDequeuers(t *testing.T) {
	q := New(4)
	done := make(chan bool, 1)

	go func() {
		_, ok := q.DequeueBlocking()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		if ok {
			t.Fatalf("expected DequeueBlocking to report ok=false after Close")
		}
	case <-time.After(time.Second):
		t.Fatal("DequeueBlocking never woke up after Close")
	}
}

func TestEnqueueAfterCloseIsDropped(t *testing.T) {
	q := New(4)
	q.Close()

	if ok := q.Enqueue(twit.Twit("x")); ok {
		t.Fatalf("Enqueue after Close should not succeed")
	}
}
