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

// Package supervisor implements the Supervisor task of spec.md §4.8: it
// constructs shared state, spawns the four long-lived tasks, waits for
// each to report readiness, then runs the signal loop until a
// terminating signal is confirmed.
//
// The signal-handling shape — signal.Notify into a channel, switch on
// the received signal in a loop — is grounded on the teacher's
// client/signal.go sigHandler, generalized from a single SIGUSR1 dump
// to the SIGQUIT-dump / SIGINT-SIGTERM-confirm protocol of spec.md §4.8.
package supervisor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/tsouris/twitserver/internal/broadcast"
	"github.com/tsouris/twitserver/internal/config"
	"github.com/tsouris/twitserver/internal/hearer"
	"github.com/tsouris/twitserver/internal/hearerregistry"
	"github.com/tsouris/twitserver/internal/prep"
	"github.com/tsouris/twitserver/internal/sayer"
	"github.com/tsouris/twitserver/internal/statlog"
	"github.com/tsouris/twitserver/internal/stats"
	"github.com/tsouris/twitserver/internal/twitqueue"
	"github.com/tsouris/twitserver/internal/twlog"
)

// Supervisor owns every piece of shared state and the lifetime of every
// long-lived task.
type Supervisor struct {
	cfg config.Config

	ingress  *twitqueue.Queue
	registry *hearerregistry.Registry
	st       *stats.Stats

	in  io.Reader
	out io.Writer

	sayerListener  *sayer.Listener
	hearerListener *hearer.Listener

	cancel context.CancelFunc
}

// New constructs the shared state described in spec.md §3 from cfg. It
// does not start any task; call Run for that.
func New(cfg config.Config) *Supervisor {
	return &Supervisor{
		cfg:      cfg,
		ingress:  twitqueue.New(cfg.MaxTwitPool),
		registry: hearerregistry.New(cfg.MaxHearers, cfg.MaxTwitPool),
		st:       stats.New(cfg.MaxSayers, cfg.MaxHearers),
		in:       os.Stdin,
		out:      os.Stdout,
	}
}

// SetIO redirects the shutdown-confirmation prompt's input and output,
// primarily for tests driving the signal loop without a real terminal.
func (s *Supervisor) SetIO(in io.Reader, out io.Writer) {
	s.in = in
	s.out = out
}

// SayerAddr returns the sayer listener's bound address, or nil before
// Run has reached that point.
func (s *Supervisor) SayerAddr() net.Addr {
	if s.sayerListener == nil {
		return nil
	}
	return s.sayerListener.Addr()
}

// HearerAddr returns the hearer listener's bound address, or nil before
// Run has reached that point.
func (s *Supervisor) HearerAddr() net.Addr {
	if s.hearerListener == nil {
		return nil
	}
	return s.hearerListener.Addr()
}

// Stop cancels every long-lived task started by Run, the programmatic
// equivalent of a confirmed shutdown signal.
func (s *Supervisor) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Run executes spec.md §4.8's sequence: spawn the four long-lived tasks,
// await their readiness, enter the signal loop, and shut down cleanly
// when a terminating signal is confirmed. It returns a non-zero-worthy
// error if any task failed to start.
func (s *Supervisor) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	defer cancel()

	statsReady := prep.New()
	broadcastReady := prep.New()
	sayerReady := prep.New()
	hearerReady := prep.New()

	go s.runStatsUpdater(ctx, statsReady)

	bc := broadcast.New(s.ingress, s.registry, s.st)
	go bc.Run(ctx, broadcastReady)

	// An empty Host binds the host's primary hostname; if the hostname
	// cannot be determined, the listeners bind every interface instead.
	host := s.cfg.Host
	if host == "" {
		if name, err := os.Hostname(); err == nil {
			host = name
		}
	}

	sayerAddr := fmt.Sprintf("%s:%d", host, s.cfg.SayersPort)
	s.sayerListener = sayer.NewListener(sayerAddr, s.ingress, s.st, s.cfg.SayerMaxTwits, s.cfg.MaxTwitBytes,
		time.Duration(s.cfg.SayerInactivitySeconds)*time.Second, s.cfg.Quiet)
	go s.sayerListener.Run(ctx, sayerReady)

	hearerAddr := fmt.Sprintf("%s:%d", host, s.cfg.HearersPort)
	s.hearerListener = hearer.NewListener(hearerAddr, s.registry, s.st,
		time.Duration(s.cfg.HearerInactivitySeconds)*time.Second, s.cfg.Quiet)
	go s.hearerListener.Run(ctx, hearerReady)

	if s.cfg.StatLog != "" {
		go statlog.Run(ctx, s.cfg.StatLog, time.Duration(s.cfg.StatLogPeriod)*time.Second, s.st)
	}

	for _, h := range []*prep.Handle{statsReady, broadcastReady, sayerReady, hearerReady} {
		status, err := h.Wait()
		if status == prep.Failed {
			return fmt.Errorf("task failed to start: %w", err)
		}
	}

	twlog.L().Info("Server got initialized successfully")

	s.signalLoop(ctx)

	cancel()
	return nil
}

// runStatsUpdater is the StatsUpdater task of spec.md §4.3: it wakes
// every STATS_UPDATE_SECONDS and recomputes the derived rates.
func (s *Supervisor) runStatsUpdater(ctx context.Context, readiness *prep.Handle) {
	readiness.MarkReady()

	interval := time.Duration(s.cfg.StatsUpdateSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.st.UpdateRates(interval.Seconds())
		}
	}
}

// signalLoop implements spec.md §4.8 step 5: SIGQUIT dumps stats without
// terminating; any other terminating signal prompts for confirmation on
// stdin before returning (which triggers shutdown in Run).
func (s *Supervisor) signalLoop(ctx context.Context) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGTERM)
	signal.Ignore(syscall.SIGPIPE)
	defer signal.Stop(ch)

	reader := bufio.NewReader(s.in)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-ch:
			switch sig {
			case syscall.SIGQUIT:
				s.dumpStats()
			default:
				if s.confirmShutdown(reader) {
					return
				}
			}
		}
	}
}

// dumpStats implements spec.md §4.8 step 5's SIGQUIT branch: snapshot
// the ingress queue's current size into Stats, then print the full
// snapshot to standard output.
func (s *Supervisor) dumpStats() {
	s.st.SetCurrentStoredTwits(s.ingress.Count())
	snap := s.st.Snapshot()

	fmt.Fprintf(s.out, "active_threads=%d active_sayers=%d active_hearers=%d current_stored_twits=%d "+
		"total_arrived=%d total_delivered=%d ingress_drops=%d egress_drops=%d incoming_rate=%.4f outgoing_rate=%.4f\n",
		snap.ActiveThreads, snap.ActiveSayers, snap.ActiveHearers, snap.CurrentStoredTwits,
		snap.TotalArrived, snap.TotalDelivered, snap.IngressDrops, snap.EgressDrops, snap.IncomingRate, snap.OutgoingRate)
}

// confirmShutdown prompts the operator on stdin. EOF or a read error is
// treated as confirmation to terminate (spec.md §4.9's failure table).
func (s *Supervisor) confirmShutdown(reader *bufio.Reader) bool {
	fmt.Fprint(s.out, "Are you sure? [y/n] ")

	line, err := reader.ReadString('\n')
	if err != nil {
		return true
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	if answer == "y" || answer == "yes" {
		return true
	}

	color.Yellow("shutdown cancelled, resuming")
	return false
}
