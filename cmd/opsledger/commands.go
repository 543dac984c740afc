package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/northchrome/opsledger/internal/database"
	"github.com/northchrome/opsledger/internal/importer"
	"github.com/northchrome/opsledger/internal/models"
	"github.com/northchrome/opsledger/internal/util"
)

// withEnvironment runs fn with configuration and logging in place and
// releases everything afterwards.
func withEnvironment(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, env *environment) error) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	env, err := setup(flags)
	if err != nil {
		return err
	}
	defer env.Close()

	return fn(ctx, env)
}

func migrateCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnvironment(cmd, flags, func(ctx context.Context, env *environment) error {
				if err := env.openDatabase(); err != nil {
					return err
				}
				if err := env.migrate(ctx); err != nil {
					return err
				}
				return printMigrationStatus(ctx, cmd, env.db)
			})
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the last applied migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withEnvironment(cmd, flags, func(ctx context.Context, env *environment) error {
					if err := env.openDatabase(); err != nil {
						return err
					}
					migrator, err := database.NewMigrator(env.db)
					if err != nil {
						return fmt.Errorf("creating migrator: %w", err)
					}
					result, err := migrator.MigrateDown(ctx)
					if err != nil {
						return fmt.Errorf("rolling back migration: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Rolled back to version %d\n", result.TargetVersion)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withEnvironment(cmd, flags, func(ctx context.Context, env *environment) error {
					if err := env.openDatabase(); err != nil {
						return err
					}
					return printMigrationStatus(ctx, cmd, env.db)
				})
			},
		},
	)

	return cmd
}

func printMigrationStatus(ctx context.Context, cmd *cobra.Command, db *database.DB) error {
	migrator, err := database.NewMigrator(db)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	migrations, err := migrator.Status(ctx)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tDESCRIPTION\tAPPLIED")
	for _, m := range migrations {
		applied := "pending"
		if m.Applied {
			applied = m.AppliedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%03d\t%s\t%s\n", m.Version, m.Description, applied)
	}
	return w.Flush()
}

func seedCmd(flags *globalFlags) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace every collection with the default dataset",
		Long: `Discards all stored work orders, stock, tools and activity and writes
the default dataset. Demonstration records are included when
seed_on_first_run is enabled in the [ledger] section.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(cmd, "This discards all ledger data. Continue? [y/N] ") {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
			return withEnvironment(cmd, flags, func(ctx context.Context, env *environment) error {
				l, err := env.openLedger(ctx, util.SystemClock{})
				if err != nil {
					return err
				}
				l.Reset(ctx)

				sum := l.Summary()
				fmt.Fprintf(cmd.OutOrStdout(), "Ledger reset: %d open orders, %d items, %d tools available\n",
					sum.OpenOrders, len(l.Inventory()), sum.ToolsAvailable)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch answer[0] {
	case 'y', 'Y', 's', 'S':
		return true
	}
	return false
}

func importCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Create or update inventory items from a CSV file",
		Long: `Reads an inventory sheet with the columns sku, nombre, categoría, stock,
stock mínimo, unidad, ubicación and precio (English names accepted).
Existing SKUs are updated with the non-blank cells; new SKUs are created.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := importer.NewLoader().LoadInventoryFile(args[0])
			if err != nil {
				return err
			}
			return withEnvironment(cmd, flags, func(ctx context.Context, env *environment) error {
				l, err := env.openLedger(ctx, util.SystemClock{})
				if err != nil {
					return err
				}
				result := l.BulkUpsert(ctx, rows)

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created: %d\nUpdated: %d\n", result.Created, result.Updated)
				if len(result.Errors) > 0 {
					fmt.Fprintf(out, "Errors: %d\n", len(result.Errors))
					for _, e := range result.Errors {
						fmt.Fprintf(out, "  %s\n", e)
					}
				}
				return nil
			})
		},
	}
}

func exportCmd(flags *globalFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the physical count sheet as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnvironment(cmd, flags, func(ctx context.Context, env *environment) error {
				l, err := env.openLedger(ctx, util.SystemClock{})
				if err != nil {
					return err
				}

				inventory := l.Inventory()
				items := make([]*models.InventoryItem, len(inventory))
				for i := range inventory {
					items[i] = &inventory[i]
				}

				if output == "" || output == "-" {
					return importer.WriteCountSheet(cmd.OutOrStdout(), items)
				}
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				if err := importer.WriteCountSheet(f, items); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("closing %s: %w", output, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d items to %s\n", len(items), output)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func backupCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write a consistent snapshot of the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnvironment(cmd, flags, func(ctx context.Context, env *environment) error {
				if env.backupDir == "" {
					return fmt.Errorf("no backup directory available")
				}
				if err := env.openDatabase(); err != nil {
					return err
				}
				path, err := env.db.Backup(ctx)
				if err != nil {
					return fmt.Errorf("creating backup: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", path)
				return nil
			})
		},
	}
}

func doctorCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Inspect the database file without modifying it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnvironment(cmd, flags, func(ctx context.Context, env *environment) error {
				diag, err := database.DiagnoseDatabase(env.dbPath, env.backupDir)
				if err != nil {
					return err
				}
				printDiagnostics(cmd, env.cfgPath, diag)
				return nil
			})
		},
	}
}

func printDiagnostics(cmd *cobra.Command, cfgPath string, diag *database.DatabaseDiagnostics) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config:   %s\n", cfgPath)
	fmt.Fprintf(out, "Database: %s\n", diag.Path)
	if !diag.Exists {
		fmt.Fprintln(out, "  not created yet")
		return
	}
	fmt.Fprintf(out, "  size %d bytes, modified %s\n", diag.SizeBytes, diag.ModTime.Format("2006-01-02 15:04"))
	if diag.WALExists {
		fmt.Fprintf(out, "  WAL %d bytes\n", diag.WALSizeBytes)
	}
	if diag.OpenError != "" {
		fmt.Fprintf(out, "  cannot open: %s\n", diag.OpenError)
		return
	}
	fmt.Fprintf(out, "  sqlite %s, journal %s, %d pages (%d free)\n",
		diag.SQLiteVersion, diag.JournalMode, diag.PageCount, diag.FreelistCount)
	fmt.Fprintf(out, "  quick_check: %s\n", diag.QuickCheck)

	if len(diag.Collections) > 0 {
		fmt.Fprintln(out, "\nCollections:")
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  KEY\tBYTES\tUPDATED\tJSON")
		for _, c := range diag.Collections {
			valid := "ok"
			if !c.ValidJSON {
				valid = "INVALID"
			}
			fmt.Fprintf(w, "  %s\t%d\t%s\t%s\n", c.Key, c.Bytes, c.UpdatedAt, valid)
		}
		w.Flush()
	}

	fmt.Fprintf(out, "\nBackups: %d\n", len(diag.Backups))
	for _, b := range diag.Backups {
		fmt.Fprintf(out, "  %s  %s  %d bytes\n", b.ModTime.Format("2006-01-02 15:04"), b.Path, b.Size)
	}
}
