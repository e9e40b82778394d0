package main

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serverURL  string
	outputJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "warden-cli",
	Short: "warden-cli is the command-line interface for Bounty-Warden.",
	Long:  `A CLI for inspecting tracked pull requests, triggering polls and credits, and managing contributor account mappings on a running Bounty-Warden server.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "Bounty-Warden server URL")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output raw JSON")

	if err := viper.BindPFlag("SERVER", rootCmd.PersistentFlags().Lookup("server")); err != nil {
		slog.Error("Error binding flag", "error", err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetEnvPrefix("BW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func newAPI() *apiClient {
	return newAPIClient(viper.GetString("SERVER"), 60*time.Second)
}
