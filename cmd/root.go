package cmd

import (
	"fmt"
	"os"

	"schema-sync/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "schema-sync",
	Short: "Survey response schema service",
	Long: `schema-sync keeps one response table per survey in step with its questions.
It synthesizes response schemas, shares their fingerprints through Redis and
applies additive DDL so every process converges on the same tables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Console format and development timestamps suit a CLI better than JSON.
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}
