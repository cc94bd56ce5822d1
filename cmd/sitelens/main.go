// Package main provides the sitelens binary entry point.
// Sitelens classifies construction scene elements by their property
// bags, indexes them across grouping dimensions, and joins them against
// an external schedule dataset.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"strings"
	"syscall"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/sitelens/sitelens/config"
	"github.com/sitelens/sitelens/engine"
	"github.com/sitelens/sitelens/export"
	"github.com/sitelens/sitelens/mapping"
	"github.com/sitelens/sitelens/metric"
	"github.com/sitelens/sitelens/publish"
	"github.com/sitelens/sitelens/scene"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "sitelens"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cliOptions carries the persistent flags shared by all subcommands.
type cliOptions struct {
	configPath string
	logLevel   string
	scenePath  string
	schedule   string
	natsURL    string
}

func rootCmd() *cobra.Command {
	opts := &cliOptions{}

	cmd := &cobra.Command{
		Use:   "sitelens",
		Short: "Element classification and indexing engine",
		Long: `Sitelens scans a construction scene graph, classifies each element
from its property bag (block, plot, neighborhood, villa type, phase),
builds per-dimension value indexes, and joins classified elements
against an external schedule dataset by a configurable key.`,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML, overrides discovery)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.scenePath, "scene", "", "Scene graph file (JSON)")
	cmd.PersistentFlags().StringVar(&opts.schedule, "schedule", "", "Schedule CSV path or glob pattern")
	cmd.PersistentFlags().StringVar(&opts.natsURL, "nats", "", "NATS URL for event publishing (overrides config)")

	cmd.AddCommand(scanCmd(opts))
	cmd.AddCommand(joinCmd(opts))
	cmd.AddCommand(watchCmd(opts))

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func scanCmd(opts *cliOptions) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Classify and index the scene",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, _, cleanup, err := buildEngine(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			_, stats, err := e.Scan(cmd.Context())
			if err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			printScanStats(stats.TotalScanned, stats.Classified, stats.Skipped, stats.AnalysisRatePercent)

			if outPath != "" {
				if err := writeView(e.GroupedView(), outPath); err != nil {
					return err
				}
				fmt.Printf("Grouped view written to %s\n", outPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write grouped dimension view as JSON")
	return cmd
}

func joinCmd(opts *cliOptions) *cobra.Command {
	var diagPath string

	cmd := &cobra.Command{
		Use:   "join",
		Short: "Classify the scene and join against the schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, cfg, cleanup, err := buildEngine(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			if _, _, err := e.Scan(cmd.Context()); err != nil {
				return fmt.Errorf("scan: %w", err)
			}

			stats, err := runJoin(e, cfg)
			if err != nil {
				return err
			}
			printCoverage(stats)

			if diagPath != "" {
				if err := writeDiagnostics(e.Diagnostics(), diagPath); err != nil {
					return err
				}
				fmt.Printf("Diagnostics written to %s\n", diagPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&diagPath, "diagnostics", "d", "", "Write unmapped diagnostics as JSON")
	return cmd
}

func watchCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Join against the schedule and re-join on file changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, cfg, cleanup, err := buildEngine(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			if _, _, err := e.Scan(cmd.Context()); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			stats, err := runJoin(e, cfg)
			if err != nil {
				return err
			}
			printCoverage(stats)

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := e.WatchDataset(signalCtx); err != nil {
				return err
			}
			slog.Info("Watching schedule for changes, Ctrl-C to stop")
			<-signalCtx.Done()
			slog.Info("Shutdown complete")
			return nil
		},
	}
}

// buildEngine assembles the engine from the layered config, the CLI
// overrides, and the scene file. The returned cleanup closes the
// publisher connection.
func buildEngine(opts *cliOptions) (*engine.Engine, *config.Config, func(), error) {
	logger := setupLogging(opts.logLevel)

	cfg, err := loadConfig(opts, logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	if opts.scenePath == "" {
		return nil, nil, nil, fmt.Errorf("--scene is required")
	}
	graph, err := scene.LoadFile(opts.scenePath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load scene: %w", err)
	}

	publisher, err := publish.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
	if err != nil {
		logger.Warn("NATS unavailable, publishing disabled", "error", err)
		publisher = publish.New(nil, cfg.NATS.SubjectPrefix)
	}

	metrics := metric.NewMetrics()
	if err := metrics.Register(prometheus.NewRegistry()); err != nil {
		return nil, nil, nil, fmt.Errorf("register metrics: %w", err)
	}

	e, err := engine.New(graph, cfg,
		engine.WithLogger(logger),
		engine.WithMetrics(metrics),
		engine.WithPublisher(publisher),
		engine.WithProgress(func(percent float64, message string) {
			logger.Info("scan progress", "percent", fmt.Sprintf("%.1f", percent), "batch", message)
		}),
	)
	if err != nil {
		return nil, nil, nil, err
	}
	return e, cfg, publisher.Close, nil
}

func loadConfig(opts *cliOptions, logger *slog.Logger) (*config.Config, error) {
	var cfg *config.Config
	if opts.configPath != "" {
		loaded, err := config.LoadFromFile(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		loaded, err := config.NewLoader(logger).Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if opts.schedule != "" {
		cfg.Dataset.Path = opts.schedule
	}

	// Flag beats environment beats config file.
	if envURL := os.Getenv("SITELENS_NATS_URL"); envURL != "" {
		cfg.NATS.URL = envURL
	}
	if opts.natsURL != "" {
		cfg.NATS.URL = opts.natsURL
	}
	return cfg, nil
}

// runJoin resolves the schedule path (glob patterns pick the
// lexicographically last match, which sorts dated exports newest-last),
// loads it, and joins. The resolved path is written back into the
// config so a subsequent watch follows the concrete file.
func runJoin(e *engine.Engine, cfg *config.Config) (mapping.Stats, error) {
	path, err := resolveSchedule(cfg.Dataset.Path)
	if err != nil {
		return mapping.Stats{}, err
	}
	cfg.Dataset.Path = path
	if err := e.LoadDatasetFile(path); err != nil {
		return mapping.Stats{}, err
	}
	stats, err := e.Join()
	if err != nil {
		return stats, fmt.Errorf("join: %w", err)
	}
	return stats, nil
}

func resolveSchedule(pattern string) (string, error) {
	if pattern == "" {
		return "", fmt.Errorf("no schedule file configured (--schedule or dataset.path)")
	}
	if !strings.ContainsAny(pattern, "*?[{") {
		return pattern, nil
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return "", fmt.Errorf("bad schedule pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no schedule file matches %q", pattern)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

func setupLogging(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func printScanStats(total, classified, skipped int, rate float64) {
	fmt.Printf("Scanned %d elements: %d classified, %d skipped (%.1f%% analysis rate)\n",
		total, classified, skipped, rate)
}

func printCoverage(stats mapping.Stats) {
	fmt.Printf("Mapped %d of %d elements (%.1f%% coverage), %d unmapped elements, %d unmapped keys\n",
		stats.Mapped, stats.Total, stats.CoveragePercent, stats.UnmappedElements, stats.UnmappedKeys)
}

func writeView(view *export.View, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return view.WriteJSON(f)
}

func writeDiagnostics(diag *mapping.Diagnostics, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return diag.WriteJSON(f)
}
