package main

import (
	"context"
	"net/rpc"
	"os"
	"os/signal"
	"syscall"

	"github.com/wfunc/gameengine/config"
	"github.com/wfunc/gameengine/consumer"
	"github.com/wfunc/gameengine/engine"
	"github.com/wfunc/gameengine/gateway"
	"github.com/wfunc/gameengine/logger"
	"github.com/wfunc/gameengine/monitor"
	"github.com/wfunc/gameengine/publisher"
	gameengine_rpc "github.com/wfunc/gameengine/rpc"
	"github.com/wfunc/gameengine/store"
)

func main() {
	// Initialize logger
	logger.Init()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Metrics endpoint
	mon := monitor.NewMonitor("gameengine")
	mon.StartServer(cfg.Server.MonitorAddress)

	// Authoritative state store
	st, err := store.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.RoomTTL())
	if err != nil {
		logger.Log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer st.Close()
	logger.Log.Infof("State store connected, room TTL %s", cfg.Redis.RoomTTL())

	// Update publisher
	pub := publisher.New(cfg.Kafka.Brokers, cfg.Kafka.StateUpdatesTopic, cfg.Engine.EnableDiffUpdates, mon)
	defer pub.Close()

	// Ingestion pipeline
	proc := consumer.NewProcessor(engine.New(), st, pub, mon)
	cons := consumer.New(cfg.Kafka, proc, mon)

	// Admin RPC
	rpcServer, err := gameengine_rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	rpc.Register(gameengine_rpc.NewAdminService(st))
	go rpcServer.Start()
	defer rpcServer.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// WebSocket gateway
	gw := gateway.NewServer(cfg.Server.GatewayAddress, cfg.Kafka, mon)
	go func() {
		if err := gw.Start(ctx); err != nil {
			logger.Log.Errorf("Gateway stopped: %v", err)
		}
	}()
	defer gw.Shutdown()

	logger.Log.Infof("Game engine starting: topic %s -> %s", cfg.Kafka.PlayerEventsTopic, cfg.Kafka.StateUpdatesTopic)

	// Blocks until the context is cancelled and workers drain.
	cons.Run(ctx)
}
