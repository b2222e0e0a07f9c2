package common

import "github.com/urfave/cli/v2"

// GlobalFlags are accepted by every command.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Gate config YAML (missing file uses defaults)", Value: "chip-gate.yaml"},
	&cli.StringFlag{Name: "store", Usage: "State backend: sqlite, redis, or memory", Value: "sqlite", EnvVars: []string{"CHIP_GATE_STORE"}},
	&cli.StringFlag{Name: "store-path", Usage: "SQLite file (default: next to the binary)"},
	&cli.StringFlag{Name: "redis-addr", Usage: "Redis address for --store redis", Value: "localhost:6379", EnvVars: []string{"CHIP_GATE_REDIS_ADDR"}},
	&cli.IntFlag{Name: "redis-db", Usage: "Redis database number"},
	&cli.StringFlag{Name: "metrics-file", Usage: "Write event counters in Prometheus text format on exit"},
	&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Only log errors"},
	&cli.BoolFlag{Name: "verbose", Usage: "Log every gate decision"},
}
