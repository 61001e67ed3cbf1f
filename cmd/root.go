// Package cmd implements the command-line interface for TenderWatch.
// It provides the root command and subcommands for serving the API and
// running one-off scrapes.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tenderwatch/crawler/cmd/scrape"
	"github.com/tenderwatch/crawler/cmd/serve"
	cmdsources "github.com/tenderwatch/crawler/cmd/sources"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug mode for all commands.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "tenderwatch",
		Short: "A tender notification scraper for RGUKT campus websites",
		Long: `TenderWatch scrapes tender notices from the RGUKT campus websites,
caches them, and serves them over an HTTP API.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are available to viper.
	_ = godotenv.Load()

	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := initConfig(); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml or ./config/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug mode")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("tenderwatch version %s\n", "1.0.0")
		},
	})

	rootCmd.AddCommand(serve.Command())
	rootCmd.AddCommand(scrape.Command())
	rootCmd.AddCommand(cmdsources.Command())
}

// initConfig reads the config file and environment variables into the
// global viper instance consumed by the subcommands.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("TENDERWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Running on defaults and environment alone is fine.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if debug {
		viper.Set("app.debug", true)
		viper.Set("logger.level", "debug")
		viper.Set("logger.encoding", "console")
		viper.Set("server.debug", true)
	}
	return nil
}
