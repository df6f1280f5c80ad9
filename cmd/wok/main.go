package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wokengine/wok/wlog"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wok",
	Short: "wok runs workflow definitions as trees of scheduled tasks",
	Long: `wok executes workflow definitions, composite flows and leaf
modules wired together with typed ports, as a single-instance task
scheduler backed by a pluggable job scheduler and port storage.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("wok version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(moduleCmd)
	rootCmd.AddCommand(taskCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	wlog.Init(wlog.Config{
		Level:      wlog.Level(logLevel),
		JSONOutput: logJSON,
	})
}
