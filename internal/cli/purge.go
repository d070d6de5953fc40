package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/LerianStudio/confdogma/internal/adapters/grpc"
	"github.com/LerianStudio/confdogma/internal/bootstrap"
	"github.com/LerianStudio/confdogma/internal/pkg/mlog"
	"github.com/LerianStudio/confdogma/internal/services/replog"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Trigger replication log maintenance",
}

var purgeSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one prune pass now instead of waiting for the cron schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootstrap.LoadConfig()
		if err != nil {
			return err
		}

		log, closeLog, err := dialLog(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeLog()

		svc := replog.New(replog.Config{
			ReplicaID:   cfg.ReplicaID,
			PathPrefix:  cfg.PathPrefix,
			MaxLogCount: cfg.MaxLogCount,
			MinLogAge:   time.Duration(cfg.MinLogAgeMs) * time.Millisecond,
		}, log, nil, grpc.NewClient(), nil, mlog.None())

		svc.PruneSweep(cmd.Context())

		fmt.Println("prune sweep complete")

		return nil
	},
}

func init() {
	purgeCmd.AddCommand(purgeSweepCmd)
	rootCmd.AddCommand(purgeCmd)
}
