package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"dva/clients"
	"dva/errs"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	urlFlag   string
	tokenFlag string
	rootCmd   = &cobra.Command{
		Use:   "dva",
		Short: "Command line client for Dataverse repositories",
		Long: `dva lists, downloads and uploads the files of a Dataverse dataset.

Datasets are addressed by their persistent identifier (doi:...). Every
downloaded file is verified against the checksum published by the server.

The repository URL and API token are read from the DATAVERSE_URL and
DATAVERSE_API_TOKEN environment variables or from the config file written
by "dva setup".`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	flags := rootCmd.PersistentFlags()

	// Connection flags, these win over environment and config file
	flags.StringVar(&urlFlag, "url", "", "Dataverse server URL")
	flags.StringVar(&tokenFlag, "token", "", "Dataverse API token")

	// Transfer flags
	flags.String("transport", clients.TransportStream,
		"transport used for file transfers ("+strings.Join(clients.TransportKinds, ", ")+")")
	flags.Duration("timeout", 0, "timeout per request, 0 means none")
	flags.String("bwlimit", "", "limit download bandwidth, e.g. 10MB")
	flags.Bool("keep-going", false, "continue with the remaining files after a failure")
	flags.BoolP("verbose", "v", false, "enable debug logging")

	// Bind flags to viper
	viper.BindPFlag("transport", flags.Lookup("transport"))
	viper.BindPFlag("timeout", flags.Lookup("timeout"))
	viper.BindPFlag("bwlimit", flags.Lookup("bwlimit"))
	viper.BindPFlag("keep_going", flags.Lookup("keep-going"))
	viper.BindPFlag("verbose", flags.Lookup("verbose"))

	// Bind environment variables
	viper.BindEnv("transport", "DVA_TRANSPORT")
	viper.BindEnv("timeout", "DVA_TIMEOUT")
	viper.BindEnv("bwlimit", "DVA_BWLIMIT")
	viper.BindEnv("keep_going", "DVA_KEEP_GOING")
	viper.BindEnv("verbose", "DVA_VERBOSE")

	rootCmd.AddCommand(listCmd, downloadCmd, uploadCmd, cpCmd, setupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var cfgErr *errs.ConfigError
		if errors.As(err, &cfgErr) {
			fmt.Fprintln(os.Stderr, cfgErr.Message)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
