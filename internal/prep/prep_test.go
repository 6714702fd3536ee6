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

package prep

import (
	"errors"
	"testing"
	"time"
)

func TestMarkReadyThenWait(t *testing.T) {
	h := New()
	h.MarkReady()

	status, err := h.Wait()
	if status != Ready || err != nil {
		t.Fatalf("expected Ready/nil, got %v/%v", status, err)
	}
}

func TestMarkFailedThenWait(t *testing.T) {
	h := New()
	cause := errors.New("bind failed")
	h.MarkFailed(cause)

	status, err := h.Wait()
	if status != Failed || err != cause {
		t.Fatalf("expected Failed/%v, got %v/%v", cause, status, err)
	}
}

func TestOnlyFirstTransitionSticks(t *testing.T) {
	h := New()
	h.MarkReady()
	h.MarkFailed(errors.New("too late"))

	status, err := h.Wait()
	if status != Ready || err != nil {
		t.Fatalf("expected first transition (Ready/nil) to stick, got %v/%v", status, err)
	}
}

func TestWaitBlocksUntilDetermined(t *testing.T) {
	h := New()
	result := make(chan Status, 1)

	go func() {
		status, _ := h.Wait()
		result <- status
	}()

	select {
	case <-result:
		t.Fatal("Wait returned before MarkReady was called")
	case <-time.After(30 * time.Millisecond):
	}

	h.MarkReady()

	select {
	case status := <-result:
		if status != Ready {
			t.Fatalf("expected Ready, got %v", status)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait never returned after MarkReady")
	}
}
