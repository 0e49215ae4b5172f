package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/evidence-backend/internal/app"
	"github.com/yungbote/evidence-backend/internal/platform/shutdown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "evidence",
		Short:         "Chain-of-custody evidence backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newRunCommand(app.ModeServe, "Start the HTTP API"),
		newRunCommand(app.ModeWorker, "Start the ingestion worker"),
		newMigrateCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "evidence: %v\n", err)
		os.Exit(1)
	}
}

func newRunCommand(mode app.Mode, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(mode),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(mode)
			if err != nil {
				return fmt.Errorf("initialize app: %w", err)
			}
			defer a.Close()

			ctx, stop := shutdown.NotifyContext(context.Background())
			defer stop()
			return a.Run(ctx)
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Migrate()
		},
	}
}
