package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"abplayer/internal/library"
	"abplayer/internal/server"
)

var (
	serveHost string
	servePort int
	serveDir  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Share a media folder with browsers on the local network",
	Long: `Serves the audio and video files of one folder to any browser on the
local network. Each open page keeps its own AB loop; playback speed and
seeking happen in the browser.

New files dropped into the folder show up on the next page load.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", server.DefaultHost, "address to listen on")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", server.DefaultPort, "port to listen on")
	serveCmd.Flags().StringVarP(&serveDir, "dir", "d", ".", "folder holding the media files")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	l := logger

	dir, err := filepath.Abs(serveDir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", serveDir, err)
	}

	lib, err := library.NewWatcher(dir, l)
	if err != nil {
		return fmt.Errorf("failed to open media folder: %w", err)
	}

	srv, err := server.NewServer(&server.Config{
		Host: serveHost,
		Port: servePort,
		Dir:  dir,
	}, lib, l)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go lib.Run(ctx)

	printBanner(cmd.OutOrStdout(), servePort, server.LocalIP(), dir, len(lib.Files()))
	return srv.Start(ctx)
}

func printBanner(w io.Writer, port int, lanIP, dir string, files int) {
	fmt.Fprintln(w, "AB Player web server")
	fmt.Fprintf(w, "  media folder: %s (%d files)\n", dir, files)
	fmt.Fprintf(w, "  this machine: http://localhost:%d\n", port)
	fmt.Fprintf(w, "  phone/tablet: http://%s:%d\n", lanIP, port)
	fmt.Fprintln(w, "Press Ctrl+C to stop.")
}
