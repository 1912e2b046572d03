package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Used for flags
	cfgFile      string
	logLevel     string
	logFormat    string
	restaurantID string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "counter",
	Short: "Restaurant terminal clients",
	Long: `Counter runs the point-of-sale and kitchen-display terminals for
the ordering platform: live order sync, the status lifecycle and
staff notifications over the shared backend.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		setupLogging()
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".", "config directory (default is .)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (json, console)")
}

// setupLogging configures the global logger. An explicit --log-level
// wins; when the flag is left at its default the LOG_LEVEL environment
// variable is honored instead.
func setupLogging() {
	level := logLevel
	if env := os.Getenv("LOG_LEVEL"); env != "" && !rootCmd.PersistentFlags().Changed("log-level") {
		level = env
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if logFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
