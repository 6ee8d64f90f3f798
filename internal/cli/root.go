package cli

import (
	"github.com/spf13/cobra"

	"abplayer/internal/logging"
	"abplayer/internal/state"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	logLevel  string
	statePath string

	logger = logging.Discard()
)

var rootCmd = &cobra.Command{
	Use:   "abplayer [file]",
	Short: "Media player with AB loop and variable speed",
	Long: `abplayer plays audio and video files with an AB repeat loop and
playback speeds from 0.1x to 4x, for practising a passage over and over.

Without a subcommand it opens the desktop player, optionally loading file.
"abplayer serve" shares a folder with browsers on the local network.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logger = logging.New(cmd.ErrOrStderr(), level)
		return nil
	},
	RunE: runPlay,
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("abplayer version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", state.DefaultPath(), "path of the settings and recent files store")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
