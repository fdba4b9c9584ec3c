package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-tracker",
	Short: "A CLI tool for labelling faces across video frames",
	Long: `Face Tracker assigns stable identity labels to the faces that appear in the
frames of a video. Frames are sent to a face embedding server (or read from a
precomputed embedding stream) and every face is matched against the identities
seen so far, in a single pass over the video.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
