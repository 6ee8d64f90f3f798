package cli

import (
	"os"
	"time"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"abplayer/internal/app"
	"abplayer/internal/discord"
	"abplayer/internal/session"
	"abplayer/internal/state"
	"abplayer/internal/ui"
)

// AppID identifies the desktop app to fyne's preferences and storage.
const AppID = "io.github.abplayer"

// discordAppID is the Discord application presence is published under;
// presence stays off without one.
var discordAppID string

var playCmd = &cobra.Command{
	Use:   "play [file]",
	Short: "Open the desktop player",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPlay,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&discordAppID, "discord-app-id", os.Getenv("ABPLAYER_DISCORD_APP_ID"),
		"Discord application id for rich presence (env ABPLAYER_DISCORD_APP_ID)")
	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	l := logger

	st, err := state.Load(statePath)
	if err != nil {
		l.Warn("state unreadable, using defaults", "path", statePath, "err", err)
		st = state.Default()
	}

	presence, disconnect := connectPresence(discordAppID)
	defer disconnect()
	ctx := app.NewContext(l, statePath, st, presence)

	sinks := ui.NewSinks()
	defer sinks.Close()
	sess := session.New(sinks.For, sessionOptions(ctx.Settings()), l)

	w := ui.New(fyneapp.NewWithID(AppID), ctx, sess)
	if len(args) == 1 {
		w.Open(args[0])
	}
	w.Run()
	return nil
}

// connectPresence returns a nil Presence, which NewContext turns into a
// no-op, when presence is not configured or Discord is not running.
func connectPresence(appID string) (app.Presence, func()) {
	if appID == "" {
		logger.Debug("discord presence disabled: no application id")
		return nil, func() {}
	}
	dc := discord.New(appID)
	if err := dc.Connect(); err != nil {
		// Non-fatal: the player works without Discord.
		logger.Info("discord presence unavailable", "err", err)
		return nil, func() {}
	}
	return dc, dc.Disconnect
}

func sessionOptions(s state.Settings) session.Options {
	return session.Options{
		Speed:  s.Speed,
		Volume: s.Volume,
		Skip:   time.Duration(s.SkipSeconds) * time.Second,
	}
}
