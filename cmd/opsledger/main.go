// opsledger: operational resource ledger for a job shop.
//
// Keeps work orders, inventory stock and tool custody consistent as
// business events occur, behind a terminal operator console.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/northchrome/opsledger/internal/config"
	"github.com/northchrome/opsledger/internal/database"
	"github.com/northchrome/opsledger/internal/database/seed"
	"github.com/northchrome/opsledger/internal/ledger"
	"github.com/northchrome/opsledger/internal/repository"
	"github.com/northchrome/opsledger/internal/tui"
	"github.com/northchrome/opsledger/internal/util"
)

// Build information (set via ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const appName = "opsledger"

func main() {
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

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	debug      bool
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Operational resource ledger for a job shop",
		Long: `opsledger keeps work orders, inventory stock and tool custody
mutually consistent as business events occur.

Running without a subcommand opens the operator console.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(cmd.Context(), flags)
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to configuration file")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(
		versionCmd(),
		migrateCmd(flags),
		seedCmd(flags),
		importCmd(flags),
		exportCmd(flags),
		backupCmd(flags),
		doctorCmd(flags),
	)

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (built %s)\n", appName, Version, BuildTime)
		},
	}
}

// signalContext returns a context cancelled on SIGINT/SIGTERM. A second
// grace period forces the process down if shutdown stalls.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received shutdown signal", "signal", sig)
			cancel()
			time.AfterFunc(10*time.Second, func() {
				slog.Error("forced shutdown after timeout")
				os.Exit(1)
			})
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// environment holds everything a command needs once the configuration,
// logging and database are set up.
type environment struct {
	cfg       *config.Config
	cfgPath   string
	dbPath    string
	backupDir string
	db        *database.DB
	closers   []func()
}

func (e *environment) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// setup loads configuration and installs the default logger. The database
// is not opened.
func setup(flags *globalFlags) (*environment, error) {
	cfg, cfgPath, err := config.Load(flags.configPath, true)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	env := &environment{cfg: cfg, cfgPath: cfgPath}

	logLevel := slog.LevelInfo
	if flags.debug {
		logLevel = slog.LevelDebug
	} else {
		switch cfg.Logging.Level {
		case config.LogLevelDebug:
			logLevel = slog.LevelDebug
		case config.LogLevelWarn:
			logLevel = slog.LevelWarn
		case config.LogLevelError:
			logLevel = slog.LevelError
		}
	}

	logPath, err := config.EnsureLogDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	var logHandler slog.Handler
	if logPath != "" {
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		env.closers = append(env.closers, func() { logFile.Close() })

		logHandler = slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: logLevel})
	} else {
		logHandler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	}
	slog.SetDefault(slog.New(logHandler))

	env.dbPath, err = config.EnsureDataDir(cfg)
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("ensuring data directory: %w", err)
	}

	env.backupDir, err = config.BackupDir(cfg)
	if err != nil {
		slog.Warn("failed to create backup directory", "error", err)
		env.backupDir = ""
	}

	return env, nil
}

// openDatabase recovers and opens the ledger database without migrating it.
func (e *environment) openDatabase() error {
	if _, err := os.Stat(e.dbPath); err == nil {
		report, err := database.AttemptRecovery(e.dbPath, e.backupDir)
		if err != nil {
			slog.Error("database recovery failed",
				"path", e.dbPath,
				"steps", len(report.Steps),
			)
			return fmt.Errorf("database recovery failed: %w", err)
		}

		switch report.Result {
		case database.RecoveryFromBackup:
			slog.Warn("database restored from backup", "backup", report.BackupUsed)
		case database.RecoverySuccess:
			slog.Debug("database integrity verified")
		}
		if len(report.InvalidCollections) > 0 {
			slog.Warn("stored collections are unreadable and will load from defaults",
				"collections", report.InvalidCollections,
			)
		}
	}

	db, err := database.Open(e.dbPath, &e.cfg.Database, e.backupDir)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	e.db = db
	e.closers = append(e.closers, func() {
		slog.Debug("closing database")
		if err := db.Close(); err != nil {
			slog.Error("error closing database", "error", err)
		}
	})
	return nil
}

// migrate applies every pending migration.
func (e *environment) migrate(ctx context.Context) error {
	migrator, err := database.NewMigrator(e.db)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	result, err := migrator.MigrateUp(ctx)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	if len(result.Applied) > 0 {
		slog.Info("applied migrations",
			"count", len(result.Applied),
			"to_version", result.TargetVersion,
		)
	}
	return nil
}

// openLedger opens the database and loads the ledger over it.
func (e *environment) openLedger(ctx context.Context, clock util.Clock) (*ledger.Ledger, error) {
	if err := e.openDatabase(); err != nil {
		return nil, err
	}
	if err := e.migrate(ctx); err != nil {
		return nil, err
	}

	shop := e.cfg.Shop
	demo := e.cfg.Ledger.SeedOnFirstRun
	l, err := ledger.Open(ctx, repository.NewCollectionRepository(e.db.DB), ledger.Options{
		TaxRate:       e.cfg.Ledger.TaxRate,
		ActivityLimit: e.cfg.Ledger.ActivityLogLimit,
		ActorID:       shop.OperatorID,
		Clock:         clock,
		Logger:        slog.Default(),
		Defaults: func() *seed.Dataset {
			seedCfg := seed.DefaultConfig(shop.CompanyName, clock.Now())
			seedCfg.Demo = demo
			return seed.NewGenerator(seedCfg).Generate()
		},
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

func runConsole(parent context.Context, flags *globalFlags) error {
	ctx, cancel := signalContext(parent)
	defer cancel()

	env, err := setup(flags)
	if err != nil {
		return err
	}
	defer env.Close()

	slog.Info("opsledger starting",
		"version", Version,
		"build_time", BuildTime,
		"config_path", env.cfgPath,
	)

	clock := util.SystemClock{}
	l, err := env.openLedger(ctx, clock)
	if err != nil {
		return err
	}

	tui.Version = Version
	tui.BuildTime = BuildTime

	slog.Info("starting console", "company", l.Settings().CompanyName)

	if err := tui.Run(ctx, l, env.cfg, clock); err != nil {
		return fmt.Errorf("console error: %w", err)
	}

	slog.Info("opsledger shutdown complete")
	return nil
}
