package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"vigil/internal/api"
	"vigil/internal/command"
	"vigil/internal/event"
	"vigil/internal/filter"
	"vigil/internal/logging"
	"vigil/internal/metrics"
	"vigil/internal/version"
	"vigil/internal/watcher"
)

const (
	feedHistorySize       = 256
	httpShutdownTimeout   = 5 * time.Second
	shutdownPhasesTimeout = 10 * time.Second
)

func runWatch(args []string) int {
	cfg, err := loadConfig(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if cfg.ShowVersion {
		return runVersion(os.Stdout)
	}

	logBuffer := logging.NewEntryBuffer(logging.DefaultBufferSize)
	logLevel := logging.LevelInfo
	if cfg.Verbose {
		logLevel = logging.LevelDebug
	} else if cfg.Quiet {
		logLevel = logging.LevelWarning
	}
	logger := logging.NewLogger(logBuffer, logLevel)
	if cfg.Verbose {
		logStartupConfig(logger, cfg)
	}

	registry := metrics.Default

	pathFilter, err := filter.New(cfg.Include, cfg.Exclude)
	if err != nil {
		logger.Error("pattern compile failed", map[string]string{
			"error": err.Error(),
		})
		return 1
	}
	if err := cfg.Commands.Validate(); err != nil {
		logger.Error("command template invalid", map[string]string{
			"error": err.Error(),
		})
		return 1
	}
	if cfg.Commands.WatchOnly() {
		logger.Info("no commands configured; watching only", nil)
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	defer shutdownCancel()

	feedBus := event.NewBus[api.StreamEvent](context.Background(), event.BusOptions{
		Name:        "feed",
		HistorySize: feedHistorySize,
		Registry:    registry,
	})

	tracker := command.NewTracker()
	runner := command.NewRunner(command.RunnerOptions{
		Logger:   logger,
		Registry: registry,
		Tracker:  tracker,
		MaxProcs: cfg.MaxProcs,
		Output:   cfg.Output,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		OnResult: func(result command.Result) {
			feedBus.Publish(api.ResultStreamEvent(result))
		},
	})

	printer := newEventPrinter(os.Stdout)
	var streamFailed atomic.Bool

	fsWatcher, err := watcher.New(watcher.Options{
		Root:       cfg.Root,
		Filter:     pathFilter,
		Debounce:   cfg.Debounce,
		MaxWatches: cfg.MaxWatches,
		Logger:     logger,
		Registry:   registry,
		OnEvent: func(evt watcher.Event) {
			printer.Print(evt)
			if template, ok := cfg.Commands.ForKind(evt.Kind); ok {
				runner.Dispatch(evt, template)
			}
			feedBus.Publish(api.EventStreamEvent(evt))
		},
		OnError: func(error) {
			streamFailed.Store(true)
			shutdownCancel()
		},
	})
	if err != nil {
		logger.Error("watcher setup failed", map[string]string{
			"error": err.Error(),
		})
		return 1
	}
	if err := fsWatcher.Start(); err != nil {
		logger.Error("watcher start failed", map[string]string{
			"error": err.Error(),
		})
		return 1
	}

	coordinator := newShutdownCoordinator(logger)
	coordinator.Add("watcher", func(context.Context) error {
		fsWatcher.Stop()
		return nil
	})

	if cfg.Listen != "" {
		feedServer, err := startFeedServer(cfg, logger, registry, feedBus, fsWatcher, tracker)
		if err != nil {
			logger.Error("feed server listen failed", map[string]string{
				"addr":  cfg.Listen,
				"error": err.Error(),
			})
			fsWatcher.Stop()
			return 1
		}
		coordinator.Add("feed_server", func(ctx context.Context) error {
			timeoutCtx, cancel := context.WithTimeout(ctx, httpShutdownTimeout)
			defer cancel()
			return feedServer.Shutdown(timeoutCtx)
		})
	}

	coordinator.Add("event_bus", func(context.Context) error {
		feedBus.Close()
		return nil
	})
	coordinator.Add("commands", func(context.Context) error {
		if count := runner.InflightCount(); count > 0 {
			logger.Info("commands still running; leaving them to finish", map[string]string{
				"count": strconv.Itoa(count),
			})
		}
		return nil
	})

	stopSignals := make(chan os.Signal, 1)
	signal.Notify(stopSignals, os.Interrupt, syscall.SIGTERM)
	stopSignalWatcher := watchShutdownSignals(logger, shutdownCancel, stopSignals)

	<-shutdownCtx.Done()
	signal.Stop(stopSignals)
	stopSignalWatcher()

	runCtx, cancel := context.WithTimeout(context.Background(), shutdownPhasesTimeout)
	defer cancel()
	if err := coordinator.Run(runCtx); err != nil {
		logger.Warn("shutdown finished with errors", map[string]string{
			"error": err.Error(),
		})
	}

	if streamFailed.Load() {
		return 1
	}
	return 0
}

func startFeedServer(cfg Config, logger *logging.Logger, registry *metrics.Registry, feedBus *event.Bus[api.StreamEvent], fsWatcher *watcher.Watcher, tracker *command.Tracker) (*http.Server, error) {
	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	apiServer := api.NewServer(api.ServerOptions{
		Logger:   logger,
		Registry: registry,
		Bus:      feedBus,
		Watcher:  fsWatcher,
		Tracker:  tracker,
		Token:    cfg.AuthToken,
	})
	apiServer.RegisterRoutes(mux)

	httpServer := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("feed listening", map[string]string{
		"addr":    listener.Addr().String(),
		"version": version.Version,
	})

	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("feed server stopped", map[string]string{
				"error": err.Error(),
			})
		}
	}()
	return httpServer, nil
}

func logStartupConfig(logger *logging.Logger, cfg Config) {
	fields := map[string]string{
		"root":        cfg.Root,
		"includes":    strconv.Itoa(len(cfg.Include)),
		"excludes":    strconv.Itoa(len(cfg.Exclude)),
		"debounce":    cfg.Debounce.String(),
		"max_watches": strconv.Itoa(cfg.MaxWatches),
		"max_procs":   strconv.Itoa(cfg.MaxProcs),
		"output":      string(cfg.Output),
	}
	if cfg.ConfigPath != "" {
		fields["config"] = cfg.ConfigPath
	}
	for key, source := range cfg.Sources {
		if source != sourceDefault {
			fields["source."+key] = string(source)
		}
	}
	logger.Debug("effective config", fields)
}

func runVersion(out io.Writer) int {
	info := version.GetInfo()
	if info.Version == "" || info.Version == "dev" {
		fmt.Fprintln(out, "vigil dev")
		return 0
	}
	fmt.Fprintf(out, "vigil version %s", info.Version)
	if info.GitCommit != "" {
		fmt.Fprintf(out, " (%s)", info.GitCommit)
	}
	fmt.Fprintln(out)
	return 0
}
