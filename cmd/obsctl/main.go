// Command obsctl runs the observatory scheduler daemon and a handful of
// operator utilities against a single INDI-speaking device daemon.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"golang.org/x/time/rate"

	"github.com/obsctl/obsctl/internal/catalog"
	"github.com/obsctl/obsctl/internal/conn"
	"github.com/obsctl/obsctl/internal/config"
	"github.com/obsctl/obsctl/internal/deadletter"
	"github.com/obsctl/obsctl/internal/events"
	"github.com/obsctl/obsctl/internal/httpdebug"
	"github.com/obsctl/obsctl/internal/scheduler"
	"github.com/obsctl/obsctl/internal/telemetry"
	"github.com/obsctl/obsctl/pkg/log"
	"github.com/obsctl/obsctl/pkg/runtimeenv"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "run-schedule":
		runSchedule(parseRunSchedule(os.Args[2:]))
	case "find-devices":
		findDevices(parseFindDevices(os.Args[2:]))
	default:
		usage()
		os.Exit(2)
	}
}

// pick returns override if non-empty/non-zero, else fallback.
func pick(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}

func pickInt(override, fallback int) int {
	if override != 0 {
		return override
	}
	return fallback
}

func runSchedule(a *runScheduleArgs) {
	if a.gops {
		if err := agent.Listen(agent.Options{}); err != nil {
			log.Fatalf("gops/agent.Listen failed: %s", err)
		}
	}

	if err := runtimeenv.LoadEnv("./.env"); err != nil {
		log.Fatalf("parsing './.env' file failed: %s", err)
	}

	log.SetLogLevel(a.logLevel)
	log.SetLogDateTime(a.logDateTime)

	if err := config.Init(a.configFile); err != nil {
		log.Fatal(err)
	}

	host := pick(a.host, config.Keys.Host)
	port := pickInt(a.port, config.Keys.Port)
	devices := scheduler.Devices{
		Mount:   pick(a.mount, config.Keys.Mount),
		Camera:  pick(a.camera, config.Keys.Camera),
		Focuser: pick(a.focuser, config.Keys.Focuser),
		Wheel:   pick(a.wheel, config.Keys.Wheel),
	}
	cachePath := pick(a.cache, config.Keys.DeadLetterDB)
	username := pick(a.username, config.Keys.CatalogUsername)
	password := pick(a.password, config.Keys.CatalogPassword)

	limiter := rate.NewLimiter(rate.Every(5*time.Second), 1)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := conn.OpenRetrying(ctx, host, port, limiter)
	if err != nil {
		log.Fatal(err)
	}
	telemetry.Metrics.SetConnectionUp(true)
	defer func() {
		telemetry.Metrics.SetConnectionUp(false)
		c.Close()
	}()

	cat, err := catalog.New(config.Keys.CatalogURL, username, password)
	if err != nil {
		log.Fatal(err)
	}

	dl, err := deadletter.Open(cachePath)
	if err != nil {
		log.Fatal(err)
	}
	defer dl.Close()

	publisher, err := telemetry.Connect(config.Keys.NatsAddress, "obsctl.telemetry")
	if err != nil {
		log.Fatal(err)
	}
	defer publisher.Close()

	env := &events.Env{Catalog: cat, DeadLetter: dl}

	sched := scheduler.New(c, cat, env, devices, config.Keys.SweepInterval(), publisher)

	retrySeconds := config.Keys.DeadLetterRetrySeconds
	if retrySeconds <= 0 {
		retrySeconds = 60
	}
	housekeeping, err := scheduler.NewHousekeeping(dl, cat, time.Duration(retrySeconds)*time.Second)
	if err != nil {
		log.Fatal(err)
	}
	defer housekeeping.Shutdown()

	debugAddr := config.Keys.DebugListenAddress
	var debugServer *httpdebug.Server
	if debugAddr != "" {
		debugServer, err = httpdebug.New(debugAddr, c)
		if err != nil {
			log.Fatal(err)
		}
		go func() {
			if err := debugServer.Serve(); err != nil {
				log.Warnf("httpdebug: %v", err)
			}
		}()
	}

	runtimeenv.SystemdNotify(true, "running")
	log.Infof("obsctl: scheduling against %s:%d, catalog %s", host, port, config.Keys.CatalogURL)

	err = sched.Run(ctx)
	runtimeenv.SystemdNotify(false, "shutting down")

	if debugServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = debugServer.Shutdown(shutdownCtx)
		cancel()
	}

	if err != nil && err != context.Canceled {
		log.Fatal(err)
	}
	log.Info("obsctl: graceful shutdown complete")
}

// findDevices dials the daemon, waits for the initial getProperties burst
// to populate the mirror, and prints every device name it learned about.
func findDevices(a *findDevicesArgs) {
	log.SetLogLevel(a.logLevel)
	log.SetLogDateTime(a.logDateTime)

	c, err := conn.Open(a.host, a.port)
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	deadline := time.Now().Add(5 * time.Second)
	var names []string
	for time.Now().Before(deadline) {
		snap, err := c.State()
		if err != nil {
			log.Fatal(err)
		}
		names = snap.DeviceNames()
		if len(names) > 0 {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}

	for _, n := range names {
		fmt.Println(n)
	}
}
