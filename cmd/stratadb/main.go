// Package main provides the stratadb CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stratadb/stratadb"
	"github.com/stratadb/stratadb/internal/config"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "stratadb",
		Short: "stratadb - an embeddable in-memory vector database",
		Long: `stratadb organizes documents into libraries and indexes their chunks
for nearest-neighbor search.

Features:
  • Linear, KD-tree, and LSH nearest-neighbor indices
  • Cosine and Euclidean distance metrics
  • Concurrency-safe in-memory storage with cascading deletes
  • JSON snapshot save/load`,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("stratadb v%s (%s)\n", version, commit)
		},
	})

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Snapshot save/load operations",
	}

	saveCmd := &cobra.Command{
		Use:   "save [path]",
		Short: "Save the database to a JSON snapshot file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSnapshotSave,
	}
	snapshotCmd.AddCommand(saveCmd)

	loadCmd := &cobra.Command{
		Use:   "load [path]",
		Short: "Load the database from a JSON snapshot file (defaults to snapshot.json in the data directory)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSnapshotLoad,
	}
	snapshotCmd.AddCommand(loadCmd)

	rootCmd.AddCommand(snapshotCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Boot the service and optionally load a snapshot (no network listener)",
		Long: `serve wires up a Service from the environment and, if --load names
a snapshot file, loads it. It does not open any
network port; stratadb is used as an embedded library or through this
CLI's snapshot subcommands, not as a standalone server.`,
		RunE: runServe,
	}
	serveCmd.Flags().String("load", "", "snapshot path to load on startup")
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSnapshotSave(cmd *cobra.Command, args []string) error {
	svc, err := stratadb.New(config.LoadFromEnv())
	if err != nil {
		return err
	}

	var path string
	if len(args) == 1 {
		path = args[0]
	}

	written, err := svc.SaveSnapshot(path)
	if err != nil {
		return err
	}
	fmt.Printf("snapshot saved to %s\n", written)
	return nil
}

func runSnapshotLoad(cmd *cobra.Command, args []string) error {
	svc, err := stratadb.New(config.LoadFromEnv())
	if err != nil {
		return err
	}

	var path string
	if len(args) == 1 {
		path = args[0]
	}

	if err := svc.LoadSnapshot(path); err != nil {
		return err
	}
	fmt.Printf("snapshot load requested (path: %q)\n", path)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.LoadFromEnv()
	svc, err := stratadb.New(cfg)
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("load"); path != "" {
		if err := svc.LoadSnapshot(path); err != nil {
			return err
		}
		fmt.Printf("loaded snapshot from %s\n", path)
	}

	fmt.Printf("stratadb service ready (data dir: %s)\n", cfg.Database.DataDir)
	fmt.Println("this build exposes no network listener; use the snapshot subcommands or embed the stratadb package directly")
	return nil
}
