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

package main

import (
	"log"
	"os"

	"github.com/urfave/cli"

	"github.com/tsouris/twitserver/internal/config"
	"github.com/tsouris/twitserver/internal/supervisor"
	"github.com/tsouris/twitserver/internal/twlog"
)

// VERSION is populated via build flags when packaging official binaries.
var VERSION = "SELFBUILD"

func main() {
	myApp := cli.NewApp()
	myApp.Name = "twitserver"
	myApp.Usage = "real-time text broadcast service"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "host",
			Value: "",
			Usage: "interface both listeners bind to, empty for the host's primary hostname",
		},
		cli.IntFlag{
			Name:  "sayers-port",
			Value: config.Default().SayersPort,
			Usage: "port sayers connect to",
		},
		cli.IntFlag{
			Name:  "hearers-port",
			Value: config.Default().HearersPort,
			Usage: "port hearers connect to",
		},
		cli.IntFlag{
			Name:  "max-twit-bytes",
			Value: config.Default().MaxTwitBytes,
			Usage: "maximum size of one twit on the wire, including its NUL terminator",
		},
		cli.IntFlag{
			Name:  "max-twitpool",
			Value: config.Default().MaxTwitPool,
			Usage: "capacity of the ingress queue and of each hearer's egress queue",
		},
		cli.IntFlag{
			Name:  "max-sayers",
			Value: config.Default().MaxSayers,
			Usage: "maximum concurrent sayer connections",
		},
		cli.IntFlag{
			Name:  "max-hearers",
			Value: config.Default().MaxHearers,
			Usage: "maximum concurrent hearer connections",
		},
		cli.IntFlag{
			Name:  "sayer-max-twits",
			Value: config.Default().SayerMaxTwits,
			Usage: "maximum twits accepted from one sayer before closing its connection",
		},
		cli.IntFlag{
			Name:  "sayer-inactivity-seconds",
			Value: config.Default().SayerInactivitySeconds,
			Usage: "per-sayer read timeout",
		},
		cli.IntFlag{
			Name:  "hearer-inactivity-seconds",
			Value: config.Default().HearerInactivitySeconds,
			Usage: "per-hearer write timeout",
		},
		cli.IntFlag{
			Name:  "socket-backlog",
			Value: config.Default().SocketBacklog,
			Usage: "listen backlog; validated only, both listeners use the system default backlog",
		},
		cli.IntFlag{
			Name:  "stats-update-seconds",
			Value: config.Default().StatsUpdateSeconds,
			Usage: "period between derived-rate recomputations",
		},
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "specify a log file to output, default goes to stderr",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: config.Default().LogLevel,
			Usage: "debug, info, warn, error",
		},
		cli.StringFlag{
			Name:  "statlog",
			Value: "",
			Usage: "collect stats to file, aware of timeformat in golang, like: ./stats-20060102.csv",
		},
		cli.IntFlag{
			Name:  "statlog-period",
			Value: config.Default().StatLogPeriod,
			Usage: "stats collection period, in seconds",
		},
		cli.BoolFlag{
			Name:  "quiet",
			Usage: "suppress the connect/disconnect log lines",
		},
		cli.StringFlag{
			Name:  "c",
			Value: "",
			Usage: "config from json file, which will override the command from shell",
		},
	}

	myApp.Action = func(c *cli.Context) error {
		cfg := config.Default()
		cfg.Host = c.String("host")
		cfg.SayersPort = c.Int("sayers-port")
		cfg.HearersPort = c.Int("hearers-port")
		cfg.MaxTwitBytes = c.Int("max-twit-bytes")
		cfg.MaxTwitPool = c.Int("max-twitpool")
		cfg.MaxSayers = c.Int("max-sayers")
		cfg.MaxHearers = c.Int("max-hearers")
		cfg.SayerMaxTwits = c.Int("sayer-max-twits")
		cfg.SayerInactivitySeconds = c.Int("sayer-inactivity-seconds")
		cfg.HearerInactivitySeconds = c.Int("hearer-inactivity-seconds")
		cfg.SocketBacklog = c.Int("socket-backlog")
		cfg.StatsUpdateSeconds = c.Int("stats-update-seconds")
		cfg.Log = c.String("log")
		cfg.LogLevel = c.String("log-level")
		cfg.StatLog = c.String("statlog")
		cfg.StatLogPeriod = c.Int("statlog-period")
		cfg.Quiet = c.Bool("quiet")

		if c.String("c") != "" {
			if err := config.LoadJSONOverride(&cfg, c.String("c")); err != nil {
				return err
			}
		}

		if err := cfg.Validate(); err != nil {
			return err
		}

		twlog.Init(cfg.LogLevel)
		if cfg.Log != "" {
			f, err := os.OpenFile(cfg.Log, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
			if err != nil {
				return err
			}
			defer f.Close()
			twlog.SetOutput(f)
		}
		defer twlog.Sync()

		twlog.L().Info("starting twitserver",
			twlog.Field("sayers_port", cfg.SayersPort),
			twlog.Field("hearers_port", cfg.HearersPort),
			twlog.Field("max_sayers", cfg.MaxSayers),
			twlog.Field("max_hearers", cfg.MaxHearers))

		return supervisor.New(cfg).Run()
	}

	if err := myApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
