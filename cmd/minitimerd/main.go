// minitimerd is a standalone daemon embedding the minitimer Engine: it
// loads configuration, wires signal-triggered graceful shutdown, and waits
// for tasks registered by embedding code elsewhere in the binary - this
// daemon itself adds no tasks; it is a harness for code that calls
// Engine.Add.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bgp59/logrusx"

	internal "github.com/bgp59/minitimer/internal"
)

const CONFIG_FLAG_NAME = "config"

var (
	versionArg = flag.Bool(
		"version",
		false,
		"Print the version and exit",
	)

	configFileArg = flag.String(
		CONFIG_FLAG_NAME,
		fmt.Sprintf("%s-config.yaml", internal.INSTANCE_DEFAULT),
		"Config file to load",
	)

	hostnameArg = flag.String(
		"hostname",
		"",
		"Override the value returned by the hostname syscall",
	)

	instanceArg = flag.String(
		"instance",
		"",
		internal.FormatFlagUsage(`
		Override the "minitimer_config.instance" config setting`),
	)
)

func init() {
	logrusx.EnableLoggerArgs()
}

var mainLog = internal.NewCompLogger("main")

func main() {
	os.Exit(run())
}

func run() int {
	if !flag.Parsed() {
		flag.Parse()
	}

	if *versionArg {
		fmt.Fprintf(os.Stderr, "Version: %s, GitInfo: %s\n", internal.Version, internal.GitInfo)
		return 0
	}

	engineCfg, err := internal.LoadConfig(*configFileArg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config file: %v\n", err)
		return 1
	}

	if *instanceArg != "" {
		engineCfg.Instance = *instanceArg
	}
	logrusx.ApplySetLoggerArgs(engineCfg.LoggerConfig)

	if *hostnameArg != "" {
		internal.Hostname = *hostnameArg
	} else if hostname, err := os.Hostname(); err == nil {
		internal.Hostname = hostname
		if engineCfg.UseShortHostname {
			if i := strings.Index(internal.Hostname, "."); i > 0 {
				internal.Hostname = internal.Hostname[:i]
			}
		}
	}

	engine, err := internal.NewEngine(engineCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error constructing engine: %v\n", err)
		return 1
	}

	var shutdownTimer *time.Timer
	if engineCfg.ShutdownMaxWait > 0 {
		shutdownTimer = time.NewTimer(1 * time.Hour)
		shutdownTimer.Stop()
		defer shutdownTimer.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine.Start(ctx)
	defer engine.Stop()

	mainLog.Infof("instance=%s hostname=%s", internal.Instance, internal.Hostname)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	if engineCfg.ShutdownMaxWait == 0 {
		mainLog.Fatalf("%s signal received, force exit", sig)
	} else {
		mainLog.Warnf("%s signal received, shutting down", sig)
	}

	if shutdownTimer != nil {
		go func() {
			shutdownTimer.Reset(engineCfg.ShutdownMaxWait)
			<-shutdownTimer.C
			mainLog.Fatalf("shutdown timed out after %s, force exit", engineCfg.ShutdownMaxWait)
		}()
	}

	return 0
}
