package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/pushmon/pushmon/internal/config"
	"github.com/pushmon/pushmon/internal/heartbeat"
	"github.com/pushmon/pushmon/internal/logging"
	"github.com/pushmon/pushmon/internal/shutdown"
	"github.com/pushmon/pushmon/internal/supervisor"
	"github.com/pushmon/pushmon/pkg/file"
	"github.com/pushmon/pushmon/pkg/uptime"
	"github.com/rs/zerolog"
)

const version = "1.2.0"

func main() {
	cfg, showVersion, err := parseArgs(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "pushmon: %v\n", err)
		os.Exit(2)
	}
	if showVersion {
		fmt.Printf("pushmon v%s\n", version)
		return
	}

	os.Exit(run(cfg))
}

// parseArgs builds the runtime configuration from flags, layered over an
// optional YAML config file. Flags that were explicitly set win over file
// values; everything else keeps the documented defaults.
func parseArgs(args []string) (*config.Config, bool, error) {
	defaults := config.Default()

	var (
		urlV         string
		methodV      = defaults.Method
		intervalV    = defaults.Interval.Std()
		insecureV    bool
		fromV        string
		verboseV     bool
		logV         string
		logMaxSizeV  = defaults.LogMaxSize
		logMaxFilesV int
		uptimeV      = defaults.UptimeMode
		serviceV     string
		configV      string
		versionV     bool
	)

	fs := flag.NewFlagSet("pushmon", flag.ContinueOnError)
	fs.StringVar(&urlV, "url", "", "target push URL")
	fs.StringVar(&urlV, "u", "", "target push URL (shorthand)")
	fs.StringVar(&methodV, "method", methodV, "HTTP method for the heartbeat request")
	fs.DurationVar(&intervalV, "interval", intervalV, "time between heartbeats")
	fs.BoolVar(&insecureV, "insecure", false, "skip TLS certificate validation")
	fs.BoolVar(&insecureV, "k", false, "skip TLS certificate validation (shorthand)")
	fs.StringVar(&fromV, "from", "", "local IP to bind outgoing connections to")
	fs.StringVar(&fromV, "s", "", "local IP to bind outgoing connections to (shorthand)")
	fs.BoolVar(&verboseV, "verbose", false, "enable debug logging")
	fs.StringVar(&logV, "log", "", "log destination: none | stdout | stderr | <file> | <dir>")
	fs.StringVar(&logMaxSizeV, "log-max-size", logMaxSizeV, "log rotation threshold, e.g. 10MB (rounded to whole MiB)")
	fs.IntVar(&logMaxFilesV, "log-max-files", 0, "rotated log files to keep, 0 keeps all")
	fs.StringVar(&uptimeV, "uptime", uptimeV, "uptime source: process | host")
	fs.StringVar(&serviceV, "service", "", "service command: install | uninstall | start | stop | run")
	fs.StringVar(&configV, "config", "", "YAML configuration file")
	fs.BoolVar(&versionV, "version", false, "print version and exit")
	fs.BoolVar(&versionV, "V", false, "print version and exit (shorthand)")

	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}
	if versionV {
		return nil, true, nil
	}

	cfg := defaults
	if configV != "" {
		loaded, err := config.LoadFile(configV, file.NewFileService())
		if err != nil {
			return nil, false, err
		}
		cfg = loaded
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["url"] || set["u"] {
		cfg.URL = urlV
	}
	if set["method"] {
		cfg.Method = methodV
	}
	if set["interval"] {
		cfg.Interval = config.Duration(intervalV)
	}
	if set["insecure"] || set["k"] {
		cfg.Insecure = insecureV
	}
	if set["from"] || set["s"] {
		cfg.LocalAddr = fromV
	}
	if set["verbose"] {
		cfg.Verbose = verboseV
	}
	if set["log"] {
		cfg.Log = logV
	}
	if set["log-max-size"] {
		cfg.LogMaxSize = logMaxSizeV
	}
	if set["log-max-files"] {
		cfg.LogMaxFiles = logMaxFilesV
	}
	if set["uptime"] {
		cfg.UptimeMode = uptimeV
	}
	if set["service"] {
		cfg.Service = serviceV
	}

	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return cfg, false, nil
}

func run(cfg *config.Config) int {
	fileClient := file.NewFileService()

	resolver := logging.NewResolver(fileClient, cfg.LogMaxBytes(), cfg.LogMaxFiles)
	sink, warnings := resolver.Resolve(cfg.Log)
	defer sink.Close()

	runID := uuid.New().String()[:8]
	logger := logging.NewLogger(sink, cfg.Verbose, runID)
	for _, warning := range warnings {
		logger.Warn().Msg(warning)
	}

	coord := shutdown.NewCoordinator()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		coord.Trigger()
	}()

	scheduler, err := buildScheduler(cfg, coord, logger)
	if err != nil {
		logger.Error().Err(err).Msg("startup failed")
		return 1
	}

	if cfg.Service != "" {
		return runServiceCommand(cfg, scheduler, coord, logger)
	}

	logger.Info().Str("version", version).Str("url", cfg.URL).Msg("pushmon started")
	if sink.Mode != logging.ModeStdout {
		fmt.Printf("pushmon v%s started, press Ctrl-C to stop\n", version)
	}

	if err := scheduler.Run(); err != nil {
		logger.Error().Err(err).Msg("heartbeat loop failed")
		return 1
	}
	logger.Info().Msg("bye")
	return 0
}

func buildScheduler(cfg *config.Config, coord *shutdown.Coordinator, logger zerolog.Logger) (*heartbeat.Scheduler, error) {
	tracker := uptime.NewTracker(uptime.Mode(cfg.UptimeMode))

	client, err := heartbeat.NewHTTPClient(cfg.Insecure, cfg.LocalAddr, cfg.Interval.Std())
	if err != nil {
		return nil, err
	}

	reporter, err := heartbeat.NewReporter(cfg, client, tracker, logger)
	if err != nil {
		return nil, err
	}

	return heartbeat.NewScheduler(reporter, cfg.Interval.Std(), coord, logger), nil
}

func runServiceCommand(cfg *config.Config, scheduler *heartbeat.Scheduler, coord *shutdown.Coordinator, logger zerolog.Logger) int {
	cmd, err := supervisor.ParseCommand(cfg.Service)
	if err != nil {
		logger.Error().Err(err).Msg("invalid service command")
		return 1
	}

	sup, err := supervisor.New(cfg, scheduler, coord, logger)
	if err != nil {
		logger.Error().Err(err).Msg("service manager unavailable")
		return 1
	}

	if err := supervisor.Dispatch(sup, cmd); err != nil {
		logger.Error().Err(err).Str("command", string(cmd)).Msg("service command failed")
		return 1
	}

	logger.Info().Str("command", string(cmd)).Msg("service command completed")
	return 0
}
