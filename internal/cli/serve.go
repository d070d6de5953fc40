package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LerianStudio/confdogma/internal/bootstrap"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run this process as a replica, serving HTTP and the internal forwarding RPC",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := bootstrap.LoadConfig()
		if err != nil {
			return err
		}

		srv, err := bootstrap.NewServer(ctx, cfg)
		if err != nil {
			return err
		}

		errCh := make(chan error, 1)

		go func() {
			errCh <- srv.Start(ctx)
		}()

		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "shutting down")
			return srv.Shutdown(context.Background())
		case err := <-errCh:
			return err
		}
	},
}
