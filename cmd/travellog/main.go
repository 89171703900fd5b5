package main

import (
	"os"

	"github.com/spf13/cobra"

	"travellog/pkg/logger"
	"travellog/pkg/utils"
)

// Version is injected at build time with -ldflags "-X main.Version=...".
var Version = "dev"

var (
	configPath string
	debugLog   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "travellog",
		Short:         "Private travel log: locations with photos behind a shared access code",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetDebug(debugLog)
			utils.LoadEnv()
		},
		RunE: runServe,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "Directory containing config.yaml")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newServeCmd(), newThumbnailsCmd(), newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		logger.LogError("%v", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("travellog", Version)
		},
	}
}
