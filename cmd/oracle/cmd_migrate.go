package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"stock-oracle/internal/db"
)

var (
	migrateUpFunc      = db.MigrateUp
	migrateDownFunc    = db.MigrateDown
	currentVersionFunc = db.CurrentVersion
)

func newMigrateCmd(rt *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the report schema in DATABASE_URL",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, closeConn, err := openConnFunc(cmd.Context(), rt.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer closeConn()
			n, err := migrateUpFunc(cmd.Context(), conn)
			if err != nil {
				return err
			}
			fmt.Fprintf(rt.out, "Applied %d migration(s)\n", n)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back the latest migrations, one by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("invalid steps %q", args[0])
				}
				steps = n
			}
			conn, closeConn, err := openConnFunc(cmd.Context(), rt.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer closeConn()
			n, err := migrateDownFunc(cmd.Context(), conn, steps)
			if err != nil {
				return err
			}
			fmt.Fprintf(rt.out, "Rolled back %d migration(s)\n", n)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the latest applied migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, closeConn, err := openConnFunc(cmd.Context(), rt.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer closeConn()
			version, name, err := currentVersionFunc(cmd.Context(), conn)
			if err != nil {
				return err
			}
			if version == 0 {
				fmt.Fprintln(rt.out, "No migrations applied")
				return nil
			}
			fmt.Fprintf(rt.out, "Current version: %d (%s)\n", version, name)
			return nil
		},
	})
	return cmd
}
