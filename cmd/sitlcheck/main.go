package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"sitlcheck/internal/observability"
	"sitlcheck/pkg/command"
	"sitlcheck/pkg/config"
	"sitlcheck/pkg/harness"
	"sitlcheck/pkg/logging"
	"sitlcheck/pkg/store"
	"sitlcheck/pkg/telemetry"
	"sitlcheck/pkg/telemetry/mavlink"
	"sitlcheck/pkg/telemetry/wslink"
	"sitlcheck/pkg/wait"
)

var (
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	configPath = flag.String("config", "configs/sitlcheck.yaml", "Path to config file")
	missionEnd = flag.Int("mission-end", 0, "Run the mission driver up to this waypoint (0 disables)")
)

func main() {
	flag.Parse()

	// .env holds rig-local overrides; absence is fine
	_ = godotenv.Load()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config file generated: %s\n", *configPath)
		return
	}

	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("sitlcheck started", "transport", cfg.Link.Transport, "vehicle", cfg.Link.Vehicle)

	link, err := openLink(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open telemetry link: %w", err)
	}
	defer link.Close()

	console, err := command.Dial(cfg.Console.Address, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to connect console: %w", err)
	}
	defer console.Close()

	// The console drains between telemetry messages so its socket never
	// backs up during long waits.
	acc := telemetry.NewAccessor(link, logging.ProgressLogger, console.Drain)
	clock := telemetry.NewClock(acc)
	eng := wait.NewEngine(acc, clock, logging.ProgressLogger)
	eng.SetEKFRequiredFlags(cfg.Wait.EKFRequiredFlags)

	cmd := command.NewCommander(console, acc, slog.Default())
	cmd.ExpectTimeout = time.Duration(cfg.Console.ExpectTimeout)

	db, err := store.Init(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open result store: %w", err)
	}
	defer db.Close()

	if retention := time.Duration(cfg.Store.Retention); retention > 0 {
		if err := db.PruneResults(retention); err != nil {
			slog.Warn("failed to prune old results", "error", err)
		}
	}

	drivers := []harness.Driver{
		&harness.PreflightDriver{
			Eng:          eng,
			Cmd:          cmd,
			Log:          slog.Default(),
			ReadyTimeout: cfg.Wait.ReadyTimeout,
		},
	}
	if *missionEnd > 0 {
		drivers = append(drivers, &harness.MissionDriver{
			Eng:     eng,
			Cmd:     cmd,
			Log:     slog.Default(),
			StartWP: 0,
			EndWP:   *missionEnd,
			Opts: wait.WaypointOpts{
				AllowSkip: true,
				MaxDist:   float64(cfg.Wait.WaypointRadius),
				Timeout:   cfg.Wait.LegTimeout,
			},
		})
	}

	runner := harness.NewRunner(db, slog.Default(), drivers...)

	if cfg.Metrics.Enabled {
		collector, err := observability.NewCollector(nil)
		if err != nil {
			return fmt.Errorf("failed to set up metrics: %w", err)
		}
		eng.SetRecorder(collector)
		runner.SetRecorder(collector)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", collector.Handler())
			slog.Info("metrics listening", "address", cfg.Metrics.Address)
			if err := http.ListenAndServe(cfg.Metrics.Address, mux); err != nil {
				slog.Error("metrics server failed", "error", err)
			}
		}()
	}

	return runner.Run()
}

func openLink(ctx context.Context, cfg *config.Config) (telemetry.Link, error) {
	if cfg.Link.Transport == "websocket" {
		return wslink.Dial(ctx, cfg.Link.Address, slog.Default())
	}
	return mavlink.New(cfg.Link, slog.Default())
}
