package bootstrap

import (
	"context"
	"net"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"google.golang.org/grpc"

	"github.com/LerianStudio/confdogma/internal/adapters/etcdlog"
	grpcadapter "github.com/LerianStudio/confdogma/internal/adapters/grpc"
	"github.com/LerianStudio/confdogma/internal/adapters/grpc/confdogmapb"
	httpin "github.com/LerianStudio/confdogma/internal/adapters/http/in"
	"github.com/LerianStudio/confdogma/internal/adapters/lastapplied"
	confmongo "github.com/LerianStudio/confdogma/internal/adapters/mongo"
	"github.com/LerianStudio/confdogma/internal/adapters/mongodb/audit"
	"github.com/LerianStudio/confdogma/internal/adapters/postgres/registry"
	confredis "github.com/LerianStudio/confdogma/internal/adapters/redis"
	"github.com/LerianStudio/confdogma/internal/pkg/mlog"
	"github.com/LerianStudio/confdogma/internal/pkg/mzap"
	"github.com/LerianStudio/confdogma/internal/services/cache"
	"github.com/LerianStudio/confdogma/internal/services/executor"
	"github.com/LerianStudio/confdogma/internal/services/replog"
	"github.com/LerianStudio/confdogma/internal/services/watch"

	confrabbitmq "github.com/LerianStudio/confdogma/internal/adapters/rabbitmq"

	"github.com/gofiber/fiber/v2"
)

// Server is one fully wired replica process: the fiber app it serves HTTP
// on, the gRPC server it serves leader-forwarding on, and the background
// services that need an explicit Start/Stop around the app's lifetime.
type Server struct {
	App        *fiber.App
	GRPCServer *grpcadapter.Server
	grpcSrv    *grpc.Server
	Replog     *replog.Service
	Watch      *watch.Service
	Logger     mlog.Logger
	Config     *Config
}

// NewServer dials every adapter named by cfg and composes them into a
// Server. It does not start listening — call Start.
func NewServer(ctx context.Context, cfg *Config) (*Server, error) {
	logger, err := mzap.New()
	if err != nil {
		return nil, err
	}

	registryConn := &registry.Connection{DSN: cfg.RegistryDSN, Logger: logger}
	if err := registryConn.Connect(ctx); err != nil {
		return nil, err
	}

	reg := &registry.Store{Conn: registryConn}

	etcdClient, err := clientv3.New(clientv3.Config{
		Endpoints:   strings.Split(cfg.EtcdEndpoints, ","),
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, err
	}

	repLog := &etcdlog.Log{
		Client:     etcdClient,
		PathPrefix: cfg.PathPrefix,
		ReplicaID:  cfg.ReplicaID,
		Logger:     logger,
	}

	var auditTrail *audit.Trail
	if cfg.MongoURI != "" {
		mongoConn := &confmongo.Connection{URI: cfg.MongoURI, Database: cfg.MongoDatabase, Logger: logger}
		if err := mongoConn.Connect(ctx); err != nil {
			return nil, err
		}

		auditTrail = audit.NewTrail(audit.NewMongoRepository(mongoConn), logger)
	}

	watchService := watch.New(nil)

	uc := executor.New(cfg.DataDir, reg, watchService, auditTrail, logger)

	if cfg.RabbitMQURL != "" {
		rabbitConn := &confrabbitmq.Connection{URL: cfg.RabbitMQURL, Logger: logger}
		if err := rabbitConn.Connect(ctx); err != nil {
			return nil, err
		}

		remote, err := confrabbitmq.NewRemote(ctx, rabbitConn, logger)
		if err != nil {
			return nil, err
		}

		watchService = watch.New(remote)
		uc = executor.New(cfg.DataDir, reg, watchService, auditTrail, logger)
	}

	grpcClient := grpcadapter.NewClient()

	tracker, err := lastapplied.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	replogService := replog.New(replog.Config{
		ReplicaID:         cfg.ReplicaID,
		PathPrefix:        cfg.PathPrefix,
		WriteQuotaPerRepo: int(cfg.WriteQuotaRepo),
		QuotaWindow:       cfg.quotaWindow(),
		MaxLogCount:       cfg.MaxLogCount,
		MinLogAge:         cfg.minLogAge(),
		PruneIntervalCron: cfg.PruneCron,
	}, repLog, uc, grpcClient, tracker, logger)

	grpcServer := grpcadapter.NewServer(uc)

	var queryCache *cache.Cache
	if cfg.CacheMaxEntries > 0 {
		opts := []cache.Option{cache.WithLogger(logger)}

		if cfg.RedisAddr != "" {
			redisConn := &confredis.Connection{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: int(cfg.RedisDB), Logger: logger}
			if err := redisConn.Connect(ctx); err != nil {
				return nil, err
			}

			redisClient, err := redisConn.Client(ctx)
			if err != nil {
				return nil, err
			}

			opts = append(opts, cache.WithRedis(redisClient))
		}

		queryCache, err = cache.New(int(cfg.CacheMaxEntries), opts...)
		if err != nil {
			return nil, err
		}
	}

	handlers := httpin.NewHandlers(reg, replogService, uc, watchService, queryCache, logger, cfg.OtelServiceVersion)
	app := httpin.NewRouter(handlers, int(cfg.MaxFrameLength))

	return &Server{
		App:        app,
		GRPCServer: grpcServer,
		Replog:     replogService,
		Watch:      watchService,
		Logger:     logger,
		Config:     cfg,
	}, nil
}

// Start campaigns for replication leadership, replays the log, begins
// serving the internal forwarding RPC on cfg.GRPCAddress, and begins
// serving HTTP on cfg.ServerAddress. It blocks until the HTTP listener
// stops.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Replog.Start(ctx); err != nil {
		return err
	}

	if s.Config.GRPCAddress != "" {
		lis, err := net.Listen("tcp", s.Config.GRPCAddress)
		if err != nil {
			return err
		}

		s.grpcSrv = grpc.NewServer()
		confdogmapb.RegisterForwarderServer(s.grpcSrv, s.GRPCServer)

		go func() {
			if err := s.grpcSrv.Serve(lis); err != nil {
				s.Logger.Errorf("grpc server stopped: %v", err)
			}
		}()

		s.Logger.Infof("%s forwarding rpc listening on %s", ApplicationName, s.Config.GRPCAddress)
	}

	s.Logger.Infof("%s listening on %s", ApplicationName, s.Config.ServerAddress)

	return s.App.Listen(s.Config.ServerAddress)
}

// Shutdown resigns leadership, stops the prune cron, releases every parked
// watcher, stops the forwarding RPC server, and gracefully drains the HTTP
// listener within cfg.gracefulShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Replog.Stop(ctx)
	s.Watch.Shutdown()

	if s.grpcSrv != nil {
		s.grpcSrv.GracefulStop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.Config.gracefulShutdownTimeout())
	defer cancel()

	return s.App.ShutdownWithContext(shutdownCtx)
}
