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

// Package statlog periodically appends a CSV row of the current Stats
// snapshot to disk. It is the supplemented feature named in SPEC_FULL.md
// §10 and is grounded directly on the teacher's std/snmp.go SnmpLogger:
// same split-path/format-with-time.Now, encoding/csv, append-mode,
// flush-then-close-each-tick shape, with kcp.DefaultSnmp swapped for a
// stats.Snapshot.
package statlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tsouris/twitserver/internal/stats"
	"github.com/tsouris/twitserver/internal/twlog"
)

var header = []string{
	"unix",
	"active_threads",
	"active_sayers",
	"active_hearers",
	"current_stored_twits",
	"total_arrived",
	"total_delivered",
	"ingress_drops",
	"egress_drops",
	"incoming_rate",
	"outgoing_rate",
}

func row(now time.Time, s stats.Snapshot) []string {
	return []string{
		fmt.Sprint(now.Unix()),
		fmt.Sprint(s.ActiveThreads),
		fmt.Sprint(s.ActiveSayers),
		fmt.Sprint(s.ActiveHearers),
		fmt.Sprint(s.CurrentStoredTwits),
		fmt.Sprint(s.TotalArrived),
		fmt.Sprint(s.TotalDelivered),
		fmt.Sprint(s.IngressDrops),
		fmt.Sprint(s.EgressDrops),
		fmt.Sprintf("%.4f", s.IncomingRate),
		fmt.Sprintf("%.4f", s.OutgoingRate),
	}
}

// Run appends one CSV row every period to the file at path until ctx is
// cancelled. path's basename is passed through time.Now().Format, so a
// value like "stats-20060102.csv" rolls to a new file each day, exactly
// as in the teacher's SnmpLogger. A no-op if path is empty or period is
// non-positive.
func Run(ctx context.Context, path string, period time.Duration, s *stats.Stats) {
	if path == "" || period <= 0 {
		return
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			appendRow(path, s)
		}
	}
}

func appendRow(path string, s *stats.Stats) {
	dir, file := filepath.Split(path)
	name := dir + time.Now().Format(file)

	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		twlog.L().Warn("statlog: could not open file", twlog.Field("path", name), twlog.Field("error", err))
		return
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if stat, err := f.Stat(); err == nil && stat.Size() == 0 {
		if err := w.Write(header); err != nil {
			twlog.L().Warn("statlog: could not write header", twlog.Field("error", err))
		}
	}

	if err := w.Write(row(time.Now(), s.Snapshot())); err != nil {
		twlog.L().Warn("statlog: could not write row", twlog.Field("error", err))
	}
	w.Flush()
}
