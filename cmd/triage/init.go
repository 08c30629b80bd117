package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// runInit writes settings.yaml from flags layered over the current
// configuration, then asks a running server to reload it.
func runInit(args []string) {
	cfg := mustConfig()
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	fs.StringVar(&cfg.ListenAddr, "listen-addr", cfg.ListenAddr, "TCP listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "server database path")
	fs.StringVar(&cfg.AgentDBPath, "agent-db-path", cfg.AgentDBPath, "agent database path")
	fs.StringVar(&cfg.AgentAddr, "agent-addr", cfg.AgentAddr, "agent status listen address (empty disables)")
	fs.StringVar(&cfg.ServerURL, "server-url", cfg.ServerURL, "server base URL used by the agent")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text or json")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "timeout for every agent request")
	fs.StringVar(&cfg.PollSchedule, "poll-schedule", cfg.PollSchedule, "cron spec of the agent sync poll")
	fs.StringVar(&cfg.ProbeHost, "probe-host", cfg.ProbeHost, "host resolved by the connectivity probe")
	fs.StringVar(&cfg.Operator, "operator", cfg.Operator, "default operator name on saved records")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	path := settingsPath()
	if err := writeConfig(path, cfg); err != nil {
		fatalf("cannot write %s: %v", path, err)
	}
	fmt.Printf("Config written to %s\n", path)

	signalRunningServer()
}

// signalRunningServer sends SIGHUP to a running server found via the pid
// file. It reports whether a server was signaled.
func signalRunningServer() bool {
	data, err := os.ReadFile(pidPath())
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return false
	}
	if err := proc.Signal(syscall.SIGHUP); err != nil {
		return false
	}
	fmt.Printf("Signaled running server (PID %d) to reload configuration\n", pid)
	return true
}
