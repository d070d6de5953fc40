package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/LerianStudio/confdogma/internal/adapters/etcdlog"
	"github.com/LerianStudio/confdogma/internal/bootstrap"
	"github.com/LerianStudio/confdogma/internal/pkg/mlog"
)

var replicaCmd = &cobra.Command{
	Use:   "replica",
	Short: "Inspect the replication log this replica would join",
}

var replicaStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current log head index and leader for this replica's configured namespace",
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

		head, err := log.HeadIndex(cmd.Context())
		if err != nil {
			return err
		}

		leader, err := log.LeaderID(cmd.Context())
		if err != nil {
			return err
		}

		if leader == "" {
			leader = "(none)"
		}

		fmt.Printf("replica:     %s\n", cfg.ReplicaID)
		fmt.Printf("path prefix: %s\n", cfg.PathPrefix)
		fmt.Printf("head index:  %d\n", head)
		fmt.Printf("leader:      %s\n", leader)

		return nil
	},
}

func init() {
	replicaCmd.AddCommand(replicaStatusCmd)
	rootCmd.AddCommand(replicaCmd)
}

// dialLog opens a standalone etcdlog.Log for one-shot CLI inspection,
// independent of the full bootstrap.Server wiring serve uses.
func dialLog(ctx context.Context, cfg *bootstrap.Config) (*etcdlog.Log, func(), error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   strings.Split(cfg.EtcdEndpoints, ","),
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, nil, err
	}

	log := &etcdlog.Log{
		Client:     client,
		PathPrefix: cfg.PathPrefix,
		ReplicaID:  cfg.ReplicaID,
		Logger:     mlog.None(),
	}

	return log, func() { _ = client.Close() }, nil
}
