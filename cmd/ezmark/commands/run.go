package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Yunusemreunal45/ezcad2-wscad/config"
	"github.com/Yunusemreunal45/ezcad2-wscad/errors"
	"github.com/Yunusemreunal45/ezcad2-wscad/logger"
	"github.com/Yunusemreunal45/ezcad2-wscad/processor"
	"github.com/Yunusemreunal45/ezcad2-wscad/queue"
	"github.com/Yunusemreunal45/ezcad2-wscad/session"
	"github.com/Yunusemreunal45/ezcad2-wscad/tabular"
	"github.com/Yunusemreunal45/ezcad2-wscad/watcher"
)

// RunCmd starts the marking daemon: worker pool, directory watcher, and
// config hot-reload, running until interrupted.
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the marking daemon",
	Long: `Start the marking daemon in foreground mode.

The daemon will:
- Start the worker pool for queued spreadsheet and design-file jobs
- Watch the configured directory and enqueue matching files (when auto-trigger is on)
- Reload configuration when the config file changes on disk
- Run until interrupted (Ctrl+C) with graceful shutdown

Example:
  ezmark run                # Start with configured settings
  ezmark run --workers 2    # Override worker count
  ezmark run --simulate     # Force the simulation driver`,
	RunE: func(cmd *cobra.Command, args []string) error {
		workers, _ := cmd.Flags().GetInt("workers")
		simulate, _ := cmd.Flags().GetBool("simulate")
		return runDaemon(workers, simulate)
	},
}

func init() {
	RunCmd.Flags().Int("workers", 0, "Number of concurrent workers (0 = use configured value)")
	RunCmd.Flags().Bool("simulate", false, "Force the simulation driver even on Windows")
}

func runDaemon(workers int, simulate bool) error {
	manager, err := loadManager()
	if err != nil {
		return err
	}
	cfg := manager.Active()

	if workers < 1 {
		workers = cfg.Settings.MaxConcurrency
	}

	db, err := openDatabase(cfg, "")
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	driver := session.NewDriver(cfg, logger.Logger, simulate)
	controller := session.NewController(driver, cfg, logger.Logger)
	source := tabular.NewSource(logger.Logger)
	proc := processor.New(controller, source, manager, logger.Logger)

	// Watcher feeds the scheduler's bridge goroutine through this sink
	notifications := make(chan watcher.Notification, 64)
	fileWatcher := watcher.New(notifications, logger.Logger)

	schedCfg := queue.DefaultSchedulerConfig()
	schedCfg.Workers = workers
	scheduler := queue.NewScheduler(ctx, db, proc, manager, schedCfg, notifications, logger.Logger)
	scheduler.Start()

	if cfg.Monitoring.Enabled && cfg.Monitoring.WatchDirectory != "" {
		watchCfg := watcher.Config{
			Directory: cfg.Monitoring.WatchDirectory,
			Recursive: cfg.Monitoring.Recursive,
			Patterns:  cfg.TrackedPatterns(),
		}
		if err := fileWatcher.Start(watchCfg); err != nil {
			scheduler.Stop()
			return err
		}
	}

	// Hot-reload the config file; on change, restart the watcher so the
	// directory and patterns follow the new settings.
	cfgWatcher, err := config.NewWatcher(manager, logger.Logger)
	if err != nil {
		logger.Warnw("Config hot-reload unavailable", "error", err)
	} else {
		cfgWatcher.OnReload(func(updated *config.Config) error {
			if fileWatcher.Running() {
				fileWatcher.Stop()
			}
			if updated.Monitoring.Enabled && updated.Monitoring.WatchDirectory != "" {
				watchCfg := watcher.Config{
					Directory: updated.Monitoring.WatchDirectory,
					Recursive: updated.Monitoring.Recursive,
					Patterns:  updated.TrackedPatterns(),
				}
				if err := fileWatcher.Start(watchCfg); err != nil {
					return errors.Wrap(err, "failed to restart watcher after config reload")
				}
			}
			return nil
		})
		cfgWatcher.Start()
		defer cfgWatcher.Stop()
	}

	fmt.Printf("Marking daemon started\n")
	fmt.Printf("  Workers: %d\n", workers)
	fmt.Printf("  Driver: %s\n", driver.Name())
	if fileWatcher.Running() {
		fmt.Printf("  Watching: %s (recursive: %v)\n", cfg.Monitoring.WatchDirectory, cfg.Monitoring.Recursive)
	} else {
		fmt.Printf("  Watching: disabled\n")
	}
	fmt.Printf("\nPress Ctrl+C for graceful shutdown\n\n")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Printf("\nShutting down...\n")

	// Stop components in reverse order of startup
	if fileWatcher.Running() {
		fileWatcher.Stop()
	}
	scheduler.Stop()

	if closed := controller.CloseAll(); closed > 0 {
		fmt.Printf("Closed %d open session(s)\n", closed)
	}

	fmt.Printf("Marking daemon stopped\n")
	return nil
}
