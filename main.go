// Command boids runs the headless flocking simulation.
//
// Usage:
//
//	boids run --config boids.yaml --max-ticks 6400 --output-dir out
//	boids run --snapshot out/snapshots/snapshot_640.json
//	boids config --config boids.yaml
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/boids/config"
	"github.com/pthm-cable/boids/game"
	"github.com/pthm-cable/boids/telemetry"
)

// CLI defines the command-line interface.
type CLI struct {
	Run     RunCmd     `cmd:"" default:"withargs" help:"Run the simulation."`
	Config  ConfigCmd  `cmd:"" help:"Show the effective configuration."`
	Version VersionCmd `cmd:"" help:"Show version information."`

	ConfigPath string `name:"config" short:"c" help:"Path to config.yaml (empty = use defaults)." type:"path"`
	LogLevel   string `help:"Log level (debug, info, warn, error)." default:"info" enum:"debug,info,warn,error"`
}

// RunCmd runs the simulation until max-ticks or a signal.
type RunCmd struct {
	Seed        int64         `help:"RNG seed (0 = time-based, or the snapshot's seed)."`
	MaxTicks    int32         `name:"max-ticks" help:"Stop after N ticks (0 = unlimited)."`
	Workers     int           `help:"Worker goroutines for parallel stages (0 = GOMAXPROCS)."`
	OutputDir   string        `name:"output-dir" help:"Output directory for CSV logs and config snapshot." type:"path"`
	SnapshotDir string        `name:"snapshot-dir" help:"Directory for snapshot files." type:"path"`
	Snapshot    string        `help:"Resume from a snapshot file." type:"existingfile"`
	LogStats    bool          `name:"log-stats" help:"Output window stats via slog."`
	LogEvery    time.Duration `name:"log-every" help:"Interval between world summaries (0 = off)." default:"5s"`
	Watch       bool          `help:"Reload steering parameters when the config file changes."`
}

func (c *RunCmd) Run(cli *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(cli.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	store := config.NewStore(cfg.Simulation)

	if c.Watch {
		if cli.ConfigPath == "" {
			return fmt.Errorf("--watch needs --config")
		}
		w, err := config.NewWatcher(cli.ConfigPath, store)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("watching config: %w", err)
		}
		defer w.Close()
	}

	var metrics *telemetry.Metrics
	if cfg.Metrics.Enabled {
		metrics = telemetry.NewMetrics()
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
	}

	var snapshot *telemetry.Snapshot
	if c.Snapshot != "" {
		snapshot, err = telemetry.LoadSnapshot(c.Snapshot)
		if err != nil {
			return err
		}
	}

	seed := c.Seed
	if seed == 0 && snapshot == nil {
		seed = time.Now().UnixNano()
	}

	g, err := game.NewGameWithOptions(game.Options{
		Config:      cfg,
		Store:       store,
		Seed:        seed,
		OutputDir:   c.OutputDir,
		SnapshotDir: c.SnapshotDir,
		LogStats:    c.LogStats,
		Workers:     c.Workers,
		Metrics:     metrics,
		Snapshot:    snapshot,
	})
	if err != nil {
		return err
	}
	defer g.Unload()

	slog.Info("starting simulation",
		"run_id", g.RunID(),
		"seed", seed,
		"agents", g.AgentCount(),
		"max_ticks", c.MaxTicks,
	)

	lastLog := time.Now()
	for c.MaxTicks == 0 || g.Tick() < c.MaxTicks {
		if ctx.Err() != nil {
			slog.Info("interrupted", "tick", g.Tick())
			break
		}
		g.Step()

		if c.LogEvery > 0 && time.Since(lastLog) >= c.LogEvery {
			lastLog = time.Now()
			g.LogWorldState()
			g.LogPerf()
		}
	}

	g.LogWorldState()
	slog.Info("simulation finished", "ticks", g.Tick())
	return nil
}

// ConfigCmd prints the merged configuration or its tunable fields.
type ConfigCmd struct {
	Fields bool `help:"List the live-tunable simulation fields with their ranges."`
}

func (c *ConfigCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if !c.Fields {
		return yaml.NewEncoder(os.Stdout).Encode(cfg)
	}

	store := config.NewStore(cfg.Simulation)
	for _, f := range store.Fields() {
		v, _ := store.Get(f.Name)
		var bounds []string
		if f.HasMin {
			bounds = append(bounds, fmt.Sprintf("min=%g", f.Min))
		}
		if f.HasMax {
			bounds = append(bounds, fmt.Sprintf("max=%g", f.Max))
		}
		fmt.Printf("%-32s %-6s %-10g %-22s %s\n", f.Name, f.Kind, v, strings.Join(bounds, " "), f.Help)
	}
	return nil
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("boids version %s\n", version)
	return nil
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("boids"),
		kong.Description("Headless boids flocking simulation."),
		kong.UsageOnError(),
	)

	// JSON to stdout for structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cli.LogLevel)}))
	slog.SetDefault(logger)

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
