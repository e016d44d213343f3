package cmd

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"zephterm/config"
)

var (
	// Version is the application version
	Version = "dev"

	// Commit is the git commit the binary was built from
	Commit = "none"

	// BuildDate is the build timestamp
	BuildDate = "unknown"

	// cfgFile is the path to the config file
	cfgFile string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "zephterm",
		Short: "zephterm - interactive serial terminal for embedded shells",
		Long: `ZephTerm is an interactive serial-port terminal written in Go.
It opens a connection to an attached device, sends line-oriented commands
and shows the device's output in a scrolling, timestamped log.`,
	}
)

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.zephterm/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if err := config.InitViper(cfgFile); err != nil {
		log.Error("failed to load configuration", "err", err)
	}
}

// IsVerbose reports whether the global verbose flag is set.
func IsVerbose() bool {
	return viper.GetBool("verbose")
}

// newLogger builds the application logger from the logging section. The
// session log shown in the terminal view is separate; this one carries
// debug traces and goes to stderr or the configured file. Interactive
// mode discards it unless a file is set, so traces never corrupt the
// screen.
func newLogger(cfg config.LoggingConfig, interactive bool) *log.Logger {
	var out io.Writer = os.Stderr
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			out = f
		}
	} else if interactive {
		out = io.Discard
	}

	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
	})

	level := cfg.Level
	if IsVerbose() {
		level = "debug"
	}
	switch strings.ToLower(level) {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}

	return logger
}
