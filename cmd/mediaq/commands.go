package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/akozlov/mediaq/pkg/cache"
	"github.com/akozlov/mediaq/pkg/config"
	"github.com/akozlov/mediaq/pkg/display"
	"github.com/akozlov/mediaq/pkg/history"
	"github.com/akozlov/mediaq/pkg/logger"
	"github.com/akozlov/mediaq/pkg/pipeline"
	"github.com/akozlov/mediaq/pkg/queue"
)

// loadConfig loads configuration and builds the logger, applying
// global flag overrides.
func loadConfig(globalOpts globalOptions) (*config.Config, logger.Logger, error) {
	cfg, err := config.NewLoader(globalOpts.configPath).Load()
	if err != nil {
		return nil, nil, err
	}

	if globalOpts.logLevel != "" {
		cfg.Logging.Level = globalOpts.logLevel
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Output: cfg.Logging.Output,
		Format: cfg.Logging.Format,
	})

	return cfg, log, nil
}

// pipelineConfig maps file configuration onto the pipeline.
func pipelineConfig(cfg *config.Config) pipeline.Config {
	return pipeline.Config{
		WatchDirectory:         cfg.WatchDirectory,
		OutputDirectory:        cfg.OutputDirectory,
		CacheDirectory:         cfg.CacheDirectory,
		HistoryDBPath:          historyDBPath(cfg),
		FilePatterns:           cfg.FilePatterns,
		MaxConcurrent:          cfg.Processing.MaxConcurrent,
		MaxRetries:             cfg.Processing.MaxRetries,
		MinFileAge:             cfg.Watcher.MinFileAge,
		StabilityCheckInterval: cfg.Watcher.StabilityCheckInterval,
		ProcessingInterval:     cfg.Processing.ProcessingInterval,
		RetentionDays:          cfg.Cache.RetentionDays,
		AudioFormat:            cfg.Processing.AudioFormat,
		AudioQuality:           cfg.Processing.AudioQuality,
	}
}

// historyDBPath is where processing history lives, next to the queue
// state.
func historyDBPath(cfg *config.Config) string {
	return filepath.Join(cfg.OutputDirectory, ".history.db")
}

// formatterFor selects the output format from flags.
func formatterFor(globalOpts globalOptions, format string) display.Formatter {
	if globalOpts.jsonOutput || format == "json" {
		return display.New(display.Config{Format: display.FormatJSON})
	}
	return display.New(display.Config{Format: display.FormatTable})
}

// runRunCommand starts the pipeline and blocks until interrupted.
func runRunCommand(globalOpts globalOptions, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, log, err := loadConfig(globalOpts)
	if err != nil {
		return err
	}

	p, err := pipeline.New(pipelineConfig(cfg), log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := p.Close(); closeErr != nil {
			log.Error("failed to close pipeline", "error", closeErr)
		}
	}()

	if err := p.Start(); err != nil {
		return err
	}

	fmt.Printf("watching %s (ctrl-c to stop)\n", cfg.WatchDirectory)

	// Block until interrupted.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	log.Info("shutting down", "signal", sig.String())

	if !p.Stop() {
		fmt.Println("warning: some files were still processing at shutdown; they resume on next start")
	}

	status := p.Status()
	fmt.Printf("detected %d, processed %d, errors %d, cache hits %d\n",
		status.Stats.Detected,
		status.Stats.Processed,
		status.Stats.Errors,
		status.Stats.CacheHits)

	return nil
}

// runStatusCommand shows a one-shot snapshot of pipeline state.
func runStatusCommand(globalOpts globalOptions, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	format := fs.String("format", "table", "output format (table, json)")
	recentN := fs.Int("recent", 10, "number of recent outcomes to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, log, err := loadConfig(globalOpts)
	if err != nil {
		return err
	}

	formatter := formatterFor(globalOpts, *format)

	// The pipeline is constructed but not started: queue state and
	// history come from disk. The history database is opened directly
	// below, so the pipeline must not hold it.
	pc := pipelineConfig(cfg)
	pc.HistoryDBPath = ""

	p, err := pipeline.New(pc, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := p.Close(); closeErr != nil {
			log.Error("failed to close pipeline", "error", closeErr)
		}
	}()

	if err := formatter.FormatStatus(os.Stdout, p.Status()); err != nil {
		return err
	}

	if *recentN > 0 && !globalOpts.jsonOutput && *format != "json" {
		h, histErr := history.New(history.Config{
			DBPath: historyDBPath(cfg),
		}, log)
		if histErr == nil {
			defer h.Close() // nolint:errcheck

			records, recErr := h.Recent(*recentN)
			if recErr == nil && len(records) > 0 {
				fmt.Println()
				if err := formatter.FormatHistory(os.Stdout, records); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// runQueueCommand inspects and maintains the processing queue.
func runQueueCommand(globalOpts globalOptions, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("queue requires a subcommand: list, retry, retry-all, clear-completed, remove")
	}

	sub := args[0]

	cfg, log, err := loadConfig(globalOpts)
	if err != nil {
		return err
	}

	q, err := queue.New(queue.Config{
		PersistenceDir: filepath.Join(cfg.OutputDirectory, ".queue"),
	}, log)
	if err != nil {
		return err
	}

	switch sub {
	case "list":
		fs := flag.NewFlagSet("queue list", flag.ExitOnError)
		statusFilter := fs.String("status", "", "filter by status (pending, processing, completed, error, failed)")
		format := fs.String("format", "table", "output format (table, json)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}

		states := q.States()
		items := make([]*queue.Item, 0, len(states))
		for _, item := range states {
			if *statusFilter != "" && item.Status != queue.Status(*statusFilter) {
				continue
			}
			items = append(items, item)
		}

		return formatterFor(globalOpts, *format).FormatItems(os.Stdout, items)

	case "retry":
		if len(args) < 2 {
			return fmt.Errorf("queue retry requires a file path")
		}
		path := args[1]
		if q.Retry(path) {
			fmt.Printf("reset for retry: %s\n", path)
		} else {
			fmt.Printf("not retryable: %s\n", path)
		}
		return nil

	case "retry-all":
		fmt.Printf("reset %d files for retry\n", q.RetryAllErrors())
		return nil

	case "clear-completed":
		fmt.Printf("removed %d completed files\n", q.ClearCompleted())
		return nil

	case "remove":
		if len(args) < 2 {
			return fmt.Errorf("queue remove requires a file path")
		}
		path := args[1]
		if _, err := q.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
		fmt.Printf("removed: %s\n", path)
		return nil

	default:
		return fmt.Errorf("unknown queue subcommand: %s", sub)
	}
}

// runCacheCommand inspects and maintains the result cache.
func runCacheCommand(globalOpts globalOptions, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("cache requires a subcommand: size, cleanup, invalidate")
	}

	sub := args[0]

	cfg, log, err := loadConfig(globalOpts)
	if err != nil {
		return err
	}

	if cfg.CacheDirectory == "" {
		return fmt.Errorf("caching is disabled: no cache_directory configured")
	}

	store, err := cache.New(cache.Config{
		Dir:           cfg.CacheDirectory,
		RetentionDays: cfg.Cache.RetentionDays,
	}, log)
	if err != nil {
		return err
	}

	switch sub {
	case "size":
		fs := flag.NewFlagSet("cache size", flag.ExitOnError)
		format := fs.String("format", "table", "output format (table, json)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		return formatterFor(globalOpts, *format).FormatCacheSizes(os.Stdout, store.Size())

	case "cleanup":
		fs := flag.NewFlagSet("cache cleanup", flag.ExitOnError)
		days := fs.Int("days", 0, "remove entries older than this many days (default: configured retention)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}

		var removed int
		if *days > 0 {
			removed = store.CleanupOlderThan(*days)
		} else {
			removed = store.Cleanup()
		}
		fmt.Printf("removed %d cache entries\n", removed)
		return nil

	case "invalidate":
		fs := flag.NewFlagSet("cache invalidate", flag.ExitOnError)
		namespace := fs.String("namespace", "", "namespace to invalidate")
		key := fs.String("key", "", "specific key to invalidate (requires -namespace)")
		all := fs.Bool("all", false, "invalidate the entire cache")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}

		switch {
		case *all:
			fmt.Printf("removed %d cache entries\n", store.InvalidateAll())
		case *namespace != "" && *key != "":
			fmt.Printf("removed %d cache entries\n", store.Invalidate(*namespace, *key))
		case *namespace != "":
			fmt.Printf("removed %d cache entries\n", store.InvalidateNamespace(*namespace))
		default:
			return fmt.Errorf("cache invalidate requires -all or -namespace")
		}
		return nil

	default:
		return fmt.Errorf("unknown cache subcommand: %s", sub)
	}
}

// runConfigCommand shows, creates, or validates configuration.
func runConfigCommand(globalOpts globalOptions, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("config requires a subcommand: show, init, validate")
	}

	sub := args[0]

	switch sub {
	case "show":
		cfg, _, err := loadConfig(globalOpts)
		if err != nil {
			return err
		}

		fmt.Printf("watch_directory: %s\n", cfg.WatchDirectory)
		fmt.Printf("output_directory: %s\n", cfg.OutputDirectory)
		fmt.Printf("cache_directory: %s\n", cfg.CacheDirectory)
		fmt.Printf("file_patterns: %v\n", cfg.FilePatterns)
		fmt.Printf("max_concurrent: %d\n", cfg.Processing.MaxConcurrent)
		fmt.Printf("max_retries: %d\n", cfg.Processing.MaxRetries)
		fmt.Printf("min_file_age: %s\n", cfg.Watcher.MinFileAge)
		fmt.Printf("stability_check_interval: %s\n", cfg.Watcher.StabilityCheckInterval)
		fmt.Printf("processing_interval: %s\n", cfg.Processing.ProcessingInterval)
		fmt.Printf("audio_format: %s\n", cfg.Processing.AudioFormat)
		fmt.Printf("audio_quality: %s\n", cfg.Processing.AudioQuality)
		fmt.Printf("retention_days: %d\n", cfg.Cache.RetentionDays)
		return nil

	case "init":
		fs := flag.NewFlagSet("config init", flag.ExitOnError)
		path := fs.String("path", "./config.yaml", "where to write the config file")
		watchDir := fs.String("watch-dir", "", "watch directory")
		outputDir := fs.String("output-dir", "", "output directory")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}

		cfg := config.Default()
		cfg.WatchDirectory = *watchDir
		cfg.OutputDirectory = *outputDir

		if cfg.WatchDirectory == "" || cfg.OutputDirectory == "" {
			return fmt.Errorf("config init requires -watch-dir and -output-dir")
		}

		if err := config.Save(cfg, *path); err != nil {
			return err
		}

		fmt.Printf("wrote %s\n", *path)
		return nil

	case "validate":
		cfg, _, err := loadConfig(globalOpts)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		fmt.Println("configuration is valid")
		return nil

	default:
		return fmt.Errorf("unknown config subcommand: %s", sub)
	}
}
