package main

import (
	"flag"
	"fmt"
	"os"
)

// runScheduleArgs holds the flags accepted by the "run-schedule"
// subcommand: the daemon it talks to, the four controlled devices, the
// catalog it polls, and process bootstrap options.
type runScheduleArgs struct {
	host, mount, camera, focuser, wheel string
	port                                int
	cache                               string
	username, password                  string
	configFile                          string
	gops                                bool
	logLevel                            string
	logDateTime                         bool
}

// findDevicesArgs holds the flags accepted by the "find-devices"
// subcommand: just enough to dial the daemon and print what it reports.
type findDevicesArgs struct {
	host               string
	port               int
	username, password string
	logLevel           string
	logDateTime        bool
}

func parseRunSchedule(args []string) *runScheduleArgs {
	fs := flag.NewFlagSet("run-schedule", flag.ExitOnError)
	a := &runScheduleArgs{}
	fs.StringVar(&a.host, "host", "", "Daemon hostname (overrides config.json)")
	fs.IntVar(&a.port, "port", 0, "Daemon port (overrides config.json)")
	fs.StringVar(&a.mount, "mount", "", "Mount device name (overrides config.json)")
	fs.StringVar(&a.camera, "camera", "", "Camera device name (overrides config.json)")
	fs.StringVar(&a.focuser, "focus", "", "Focuser device name (overrides config.json)")
	fs.StringVar(&a.wheel, "wheel", "", "Filter wheel device name (overrides config.json)")
	fs.StringVar(&a.cache, "cache", "", "Path to the dead-letter SQLite database (overrides config.json)")
	fs.StringVar(&a.username, "username", "", "Catalog bearer-token subject (overrides config.json)")
	fs.StringVar(&a.password, "password", "", "Catalog bearer-token signing secret (overrides config.json)")
	fs.StringVar(&a.configFile, "config", "./config.json", "Path to `config.json`")
	fs.BoolVar(&a.gops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	fs.StringVar(&a.logLevel, "loglevel", "info", "Sets the logging level: `[debug, info, warn, err, crit]`")
	fs.BoolVar(&a.logDateTime, "logdate", false, "Add date and time to log messages")
	_ = fs.Parse(args)
	return a
}

func parseFindDevices(args []string) *findDevicesArgs {
	fs := flag.NewFlagSet("find-devices", flag.ExitOnError)
	a := &findDevicesArgs{}
	fs.StringVar(&a.host, "host", "localhost", "Daemon hostname")
	fs.IntVar(&a.port, "port", 7624, "Daemon port")
	fs.StringVar(&a.username, "username", "", "Catalog bearer-token subject (unused, accepted for flag symmetry)")
	fs.StringVar(&a.password, "password", "", "Catalog bearer-token signing secret (unused, accepted for flag symmetry)")
	fs.StringVar(&a.logLevel, "loglevel", "info", "Sets the logging level: `[debug, info, warn, err, crit]`")
	fs.BoolVar(&a.logDateTime, "logdate", false, "Add date and time to log messages")
	_ = fs.Parse(args)
	return a
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s <run-schedule|find-devices> [flags]\n", os.Args[0])
}
