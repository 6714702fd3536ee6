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

// Package prep implements the PreparationStatus handshake of spec.md §3:
// a tri-state per long-lived task (UNDETERMINED, READY, FAILED) that the
// Supervisor waits on before declaring the service open.
package prep

import "sync"

// Status is the tri-state value a long-lived task reports exactly once.
type Status int

const (
	// Undetermined is the initial state before a task reports in.
	Undetermined Status = iota
	Ready
	Failed
)

// Handle is a one-shot readiness report. The zero value is not usable;
// construct one with New.
type Handle struct {
	once sync.Once
	done chan struct{}

	mu     sync.Mutex
	status Status
	err    error
}

// New returns an undetermined Handle.
func New() *Handle {
	return &Handle{done: make(chan struct{}), status: Undetermined}
}

// MarkReady transitions the handle to READY. Only the first call (Ready
// or Failed) has any effect, matching spec.md §3's "exactly once per
// task" transition rule.
func (h *Handle) MarkReady() {
	h.once.Do(func() {
		h.mu.Lock()
		h.status = Ready
		h.mu.Unlock()
		close(h.done)
	})
}

// MarkFailed transitions the handle to FAILED with the given cause.
func (h *Handle) MarkFailed(err error) {
	h.once.Do(func() {
		h.mu.Lock()
		h.status = Failed
		h.err = err
		h.mu.Unlock()
		close(h.done)
	})
}

// Wait blocks until the handle leaves UNDETERMINED and returns the final
// status and, if FAILED, the reported cause.
func (h *Handle) Wait() (Status, error) {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status, h.err
}
