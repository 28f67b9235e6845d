package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aanand-mishra/records-api/internal/config"
	"github.com/aanand-mishra/records-api/internal/storage"
	"github.com/aanand-mishra/records-api/internal/storage/migrations"
	"github.com/aanand-mishra/records-api/internal/storage/sqldb"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
	Long: `Create and/or upgrade the database schema.

Migrations are embedded in the binary, one set per driver.

Example:
  records-api migrate up
  records-api migrate down 2
  records-api migrate status`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := migrateUp(loadConfig().Database); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Migrations complete")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Roll back migrations (default: 1, 0 = all)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 0 {
				return fmt.Errorf("steps must be a non-negative integer, got %q", args[0])
			}
			steps = n
		}

		return withRunner(loadConfig().Database, func(r *migrations.Runner) error {
			if err := r.Down(steps); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Rollback complete")
			return nil
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current migration version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(loadConfig().Database, func(r *migrations.Runner) error {
			version, dirty, err := r.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Current version: %d (dirty: %v)\n", version, dirty)
			return nil
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}

func migrateUp(cfg config.Database) error {
	return withRunner(cfg, func(r *migrations.Runner) error { return r.Up() })
}

// withRunner opens a dedicated multi-statement connection for the
// migration runner and closes it afterwards.
func withRunner(cfg config.Database, fn func(*migrations.Runner) error) error {
	db, err := sqldb.Connect(cfg, true)
	if err != nil {
		return err
	}

	r, err := migrations.New(db, storage.Dialect(cfg.Driver))
	if err != nil {
		_ = db.Close()
		return err
	}
	defer r.Close()

	return fn(r)
}
