// Command cluso-ingest serves the bulk graph import API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/dd0wney/cluso-ingest/pkg/api"
	"github.com/dd0wney/cluso-ingest/pkg/codec"
	"github.com/dd0wney/cluso-ingest/pkg/config"
	"github.com/dd0wney/cluso-ingest/pkg/events"
	"github.com/dd0wney/cluso-ingest/pkg/health"
	"github.com/dd0wney/cluso-ingest/pkg/ingest"
	"github.com/dd0wney/cluso-ingest/pkg/logging"
	"github.com/dd0wney/cluso-ingest/pkg/metagraph"
	"github.com/dd0wney/cluso-ingest/pkg/metrics"
	"github.com/dd0wney/cluso-ingest/pkg/server"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// maxRollbackRatio degrades /health when this share of transactions fail.
const maxRollbackRatio = 0.5

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "cluso-ingest: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, _, err := config.Parse("cluso-ingest", args, os.LookupEnv)
	if err != nil {
		return err
	}
	logger, closeLog, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer closeLog()
	logging.SetDefaultLogger(logger)

	logger.Info("cluso-ingest starting",
		logging.String("version", version),
		logging.Path(cfg.Storage.DataDir),
		logging.String("commit_mode", cfg.Ingest.CommitMode))

	mgr, err := metagraph.Open(metagraph.Config{
		DataDir:     cfg.Storage.DataDir,
		CompressWAL: cfg.Storage.CompressWAL,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to open graphs: %w", err)
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			logger.Error("failed to close graphs", logging.Error(err))
		}
	}()
	logger.Info("graphs opened", logging.Count(mgr.Count()))

	bus := events.NewBus()
	defer bus.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Events.Address != "" {
		sock, err := events.ListenSocket(cfg.Events.Address, logger)
		if err != nil {
			return err
		}
		defer sock.Close()
		sub, err := bus.Subscribe(ctx, "", cfg.Events.Buffer)
		if err != nil {
			return err
		}
		go sock.Forward(ctx, sub)
	}

	registry := metrics.DefaultRegistry()
	registry.SetVersion(version)

	decoders := codec.DefaultRegistry()
	decoders.Register(codec.FormatFaunusGraphSON, codec.FaunusGraphSONDecoder{TempDir: cfg.Ingest.SpoolDir})

	orchestrator, err := ingest.NewOrchestrator(ingest.Config{
		Graphs:    mgr,
		Decoders:  decoders,
		Mode:      cfg.Mode(),
		BatchSize: cfg.Ingest.BatchSize,
		Publisher: bus,
		Metrics:   registry,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	checker := newHealthChecker(mgr, bus, cfg.Events.Address)

	apiServer, err := api.NewServer(api.Config{
		Graphs:         mgr,
		Importer:       orchestrator,
		Metrics:        registry,
		Health:         checker,
		Logger:         logger,
		Formats:        decoders.Formats(),
		Version:        version,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		CORSOrigins:    cfg.Server.CORSOrigins,
	})
	if err != nil {
		return err
	}
	apiServer.StartMetrics()
	defer apiServer.StopMetrics()

	srv := server.NewGracefulServer(cfg.Server.Addr(), apiServer.Handler(), server.Options{
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Logger:          logger,
	})
	srv.SetConfigReloadFunc(func() error {
		next, _, err := config.Parse("cluso-ingest", args, os.LookupEnv)
		if err != nil {
			return err
		}
		logger.SetLevel(logging.ParseLevel(next.Logging.Level))
		logger.Info("configuration reloaded", logging.String("level", next.Logging.Level))
		return nil
	})

	return srv.Start()
}

func newHealthChecker(mgr *metagraph.Manager, bus *events.Bus, eventsAddr string) *health.HealthChecker {
	checker := health.NewHealthChecker()

	storage := health.StorageCheck(mgr.Ping)
	graphs := health.GraphsCheck(func() (int, uint64, uint64) {
		var commits, rollbacks uint64
		infos := mgr.List()
		for _, info := range infos {
			commits += info.Commits
			rollbacks += info.Rollbacks
		}
		return len(infos), commits, rollbacks
	}, maxRollbackRatio)
	eventsCheck := health.EventsCheck(eventsAddr, func() error {
		if bus.SubscriberCount("") == 0 {
			return errors.New("event forwarder stopped")
		}
		return nil
	})
	memory := health.MemoryCheck(func() (uint64, uint64) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return m.Alloc, m.Sys
	})

	checker.RegisterCheck("storage", storage)
	checker.RegisterCheck("graphs", graphs)
	checker.RegisterCheck("events", eventsCheck)
	checker.RegisterCheck("memory", memory)
	checker.RegisterReadinessCheck("storage", storage)
	checker.RegisterLivenessCheck("memory", memory)
	return checker
}
