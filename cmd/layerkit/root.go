package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	BUILD      = "development"
	debug      bool
	version    bool
	loggerMode string
	// timing
	tStart = time.Now()
)

var rootCmd = &cobra.Command{
	Use:          "layerkit",
	Short:        "layerkit OCI image layering tool",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger := newLogger()
		zap.ReplaceGlobals(logger)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if version {
			fmt.Fprintf(os.Stderr, "%s\n", BUILD)
			return nil
		}
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "x", "x", false, "logs at debug level")
	rootCmd.PersistentFlags().BoolVar(&version, "version", false, "print build version and exit")
	rootCmd.PersistentFlags().StringVar(&loggerMode, "logger", "dev", "logger mode: dev or plain")

	rootCmd.AddCommand(newBuildCmd())
	rootCmd.AddCommand(newPullCmd())
	rootCmd.AddCommand(newPushCmd())
	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newDigestCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newSchemaCmd())
}

// defaultStoreDir is where image content goes when --store has no value
func defaultStoreDir() string {
	if env := os.Getenv("LAYERKIT_STORE"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".layerkit"
	}
	return home + "/.layerkit"
}
