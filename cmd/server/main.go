package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"

	"liyu1981.xyz/iwown-health-service/pkg/common"
	"liyu1981.xyz/iwown-health-service/pkg/db"
	"liyu1981.xyz/iwown-health-service/pkg/events"
	iotGrpc "liyu1981.xyz/iwown-health-service/pkg/grpc"
	iotHttp "liyu1981.xyz/iwown-health-service/pkg/http"
	"liyu1981.xyz/iwown-health-service/pkg/iot"
	"liyu1981.xyz/iwown-health-service/pkg/observability"
)

const shutdownTimeout = 10 * time.Second

func openStore(ctx context.Context, cfg *common.Config) (db.Store, error) {
	logger := common.GetLogger()

	switch cfg.DBType {
	case common.DBTypeMongo:
		store, err := db.ConnectMongo(ctx, cfg.MongoURL, cfg.MongoDatabase)
		if err != nil && store == nil {
			return nil, err
		}
		if err != nil {
			// the API still serves; /health reports the store as disconnected
			logger.Error("Failed to connect to MongoDB", zap.Error(err))
		}
		return store, nil
	case common.DBTypePostgres:
		return db.Open(db.UsePostgresDialector(cfg.PostgresDSN))
	case common.DBTypeFile:
		return db.Open(db.UseSqliteDialector())
	default:
		return db.Open(db.UseMemorySqliteDialector())
	}
}

func openPublishers(cfg *common.Config) []events.Publisher {
	logger := common.GetLogger()

	var publishers []events.Publisher
	if cfg.RedisURL != "" {
		p, err := events.NewRedisStreamPublisher(cfg.RedisURL, cfg.RedisStream)
		if err != nil {
			log.Fatalf("invalid redis publisher config: %v", err)
		}
		publishers = append(publishers, p)
	}
	if cfg.MQTTBroker != "" {
		p, err := events.NewMQTTPublisher(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopic)
		if err != nil {
			// health uploads are still stored, only the fan-out is missing
			logger.Error("Failed to connect to MQTT broker", zap.String("broker", cfg.MQTTBroker), zap.Error(err))
		} else {
			publishers = append(publishers, p)
		}
	}
	for _, p := range publishers {
		logger.Info("Health upload publisher enabled", zap.String("publisher", p.Name()))
	}
	return publishers
}

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := common.GetLogger()
	defer common.SyncLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.TracingEnabled)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.DBType, err)
	}
	logger.Info("Store opened", zap.String("store", store.Name()))

	if err := store.EnsureIndexes(ctx); err != nil {
		logger.Error("Failed to create indexes", zap.Error(err))
	}

	limiterStore := iot.NewRateLimiterStore(rate.Limit(cfg.DefaultRate), cfg.DefaultBurst)
	postProcessor := iot.NewPostProcessor(cfg.PostProcessWorkers, cfg.PostProcessQueue, limiterStore, openPublishers(cfg)...)
	postProcessor.Start(context.WithoutCancel(ctx))

	iotCore := iot.IOT{
		Store:        store,
		HistoryLimit: int64(cfg.HistoryLimit),
	}
	iotCore.WithServices(iot.ServiceOpts{
		Ingest:        iotCore.GetIIngest(),
		Dashboard:     iotCore.GetIDashboard(),
		PostProcessor: postProcessor,
	})

	var grpcServer *grpc.Server
	if cfg.GrpcHostPort != "" {
		grpcServer = grpc.NewServer(grpc.UnaryInterceptor(iotGrpc.CreateLoggingInterceptor()))
		iotGrpc.RegisterDashboardServiceServer(grpcServer, &iotGrpc.DashboardServer{Iot: &iotCore})

		listener, err := net.Listen("tcp", cfg.GrpcHostPort)
		if err != nil {
			log.Fatalf("failed to listen: %v", err)
		}

		go func() {
			logger.Info("Starting gRPC server on: " + cfg.GrpcHostPort)
			if err := grpcServer.Serve(listener); err != nil {
				logger.Error("gRPC server stopped", zap.Error(err))
			}
		}()
	}

	if common.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	rs := &iotHttp.RestfulServer{
		Server:           gin.Default(),
		Iot:              &iotCore,
		RateLimiterStore: limiterStore,
		CorsOrigins:      cfg.CorsOrigins,
	}
	rs.Setup()

	logger.Info("http server created with:",
		zap.Float64("default_rate", cfg.DefaultRate),
		zap.Int("default_burst", cfg.DefaultBurst),
		zap.Int("postprocess_workers", cfg.PostProcessWorkers),
	)

	httpServer := &http.Server{
		Addr:    cfg.HTTPHostPort,
		Handler: rs.Handler(),
	}
	go func() {
		logger.Info("Starting HTTP server on: " + cfg.HTTPHostPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server failed to serve: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}

	postProcessor.Stop()

	if err := store.Close(shutdownCtx); err != nil {
		logger.Error("Store close failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("Tracing shutdown failed", zap.Error(err))
	}
}
