package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/subosito/gotenv"

	"newsreview/internal/app"
	"newsreview/internal/config"
	"newsreview/internal/logging"
)

func main() {
	_ = gotenv.Load()

	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "newsreview",
		Short:         "News article review collection service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(serveCommand(), ingestCommand(), leaderboardCommand())
	return root
}

func buildApp() (*app.Application, error) {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	return app.New(cfg, logger)
}

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the reviewer-facing HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp()
			if err != nil {
				return err
			}
			defer application.Close()

			return application.RunServe(cmd.Context())
		},
	}
}

func ingestCommand() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Pull recent feed entries into the article store",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp()
			if err != nil {
				return err
			}
			defer application.Close()

			if once {
				return application.RunIngestOnce(cmd.Context())
			}
			return application.RunIngest(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "run a single ingestion pass and exit")
	return cmd
}

func leaderboardCommand() *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the current review leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp()
			if err != nil {
				return err
			}
			defer application.Close()

			entries, err := application.Service().Leaderboard(cmd.Context(), top)
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Println("no reviews yet")
				return nil
			}

			for i, entry := range entries {
				fmt.Printf("%2d. %-40s %4d reviews  %3d day streak\n", i+1, entry.ReviewerID, entry.Count, entry.Streak)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", 10, "number of entries to show (0 for all)")
	return cmd
}
