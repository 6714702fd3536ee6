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
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tsouris/twitserver/internal/stats"
	"github.com/tsouris/twitserver/internal/twit"
	"github.com/tsouris/twitserver/internal/twitqueue"
)

func TestSessionDeliversFramedTwits(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	egress := twitqueue.New(4)
	st := stats.New(4, 4)
	id := uuid.New()

	go NewSession(server, id, egress, st, time.Second).Run()

	egress.Enqueue(twit.Twit("hello"))

	r := bufio.NewReader(client)
	got, err := twit.Read(r, twit.DefaultMaxBytes)
	if err != nil {
		t.Fatalf("reading delivered twit: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("expected 'hello', got %q", got)
	}

	// Allow the IncrementDelivered call, which happens after the write
	// returns, to land before asserting on it.
	time.Sleep(20 * time.Millisecond)
	if got := st.Snapshot().TotalDelivered; got != 1 {
		t.Fatalf("expected TotalDelivered=1, got %d", got)
	}
}

func TestSessionReturnsWhenEgressClosed(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	egress := twitqueue.New(4)
	st := stats.New(4, 4)

	done := make(chan struct{})
	go func() {
		NewSession(server, uuid.New(), egress, st, time.Second).Run()
		close(done)
	}()

	egress.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("session did not return after egress queue was closed")
	}
}
