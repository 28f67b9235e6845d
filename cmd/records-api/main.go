// records-api serves the records REST API and manages its schema.
//
// COMMANDS:
//
//	records-api serve [--migrate]          start the HTTP server
//	records-api migrate up                 apply pending migrations
//	records-api migrate down [steps]       roll back (default 1 step)
//	records-api migrate status             print the schema version
//	records-api config show                print the effective config as YAML
//
// Every command accepts --config (or CONFIG_PATH) pointing at a YAML file;
// environment variables and ./.env override it.
//
//	go run ./cmd/records-api serve --config=config/local.yaml
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aanand-mishra/records-api/internal/config"
)

var configPath string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "records-api",
	Short:         "REST API over the records database",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default $CONFIG_PATH)")
}

// loadConfig resolves the config path and loads it once per command.
func loadConfig() *config.Config {
	return config.MustLoad(configPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
