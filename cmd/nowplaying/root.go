package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/edumarques81/kodi-nowplaying-backend/internal/config"
	"github.com/edumarques81/kodi-nowplaying-backend/internal/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nowplaying",
	Short: "Now-playing display backend for Kodi",
	Long: `nowplaying watches a Kodi instance over JSON-RPC, downloads the artwork of the
playing item into a per-session cache and serves it to displays over HTTP and Socket.IO.

Settings come from the environment (KODI_HOST, KODI_USER, KODI_PASS, NOWPLAYING_*);
flags override them.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging(debug || cfg.Debug)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var (
	cfg   = config.Load()
	debug bool
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfg.KodiHost, "kodi-host", cfg.KodiHost, "Kodi web server URL")
	rootCmd.PersistentFlags().StringVar(&cfg.KodiUser, "kodi-user", cfg.KodiUser, "Kodi web server user")
	rootCmd.PersistentFlags().StringVar(&cfg.KodiPass, "kodi-pass", cfg.KodiPass, "Kodi web server password")
	rootCmd.PersistentFlags().StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "Directory for downloaded artwork")
	rootCmd.PersistentFlags().StringSliceVar(&cfg.RemoteSchemes, "remote-schemes", cfg.RemoteSchemes, "File schemes that get ancestor artwork lookup")

	rootCmd.AddCommand(serveCmd, fetchCmd, versionCmd)
}

func setupLogging(debug bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.GetInfo().String())
	},
}
