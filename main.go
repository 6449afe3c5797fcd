package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/wfunc/rpsarena/config"
	"github.com/wfunc/rpsarena/events"
	"github.com/wfunc/rpsarena/logger"
	"github.com/wfunc/rpsarena/monitor"
	"github.com/wfunc/rpsarena/persistence"
	"github.com/wfunc/rpsarena/server"
)

func openDatabase(cfg config.DatabaseConfig) (persistence.Database, error) {
	pg := cfg.Postgres
	dsn := persistence.DSN(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName, pg.SSLMode)

	switch cfg.Driver {
	case "gorm":
		return persistence.NewGormPostgreSQL(dsn)
	case "postgres":
		return persistence.NewPostgreSQL(dsn)
	default:
		return persistence.NewMemoryDatabase(), nil
	}
}

func openPublisher(cfg config.NATSConfig) events.Publisher {
	if cfg.URL == "" {
		return events.NopPublisher{}
	}
	p, err := events.NewNATSPublisher(cfg.URL)
	if err != nil {
		// 事件总线不可用时继续运行，只是不镜像房间事件
		logger.Log.Warnf("NATS unavailable, room events will not be mirrored: %v", err)
		return events.NopPublisher{}
	}
	return p
}

func main() {
	// 先用默认级别，读取配置后再按配置重建
	if err := logger.Init("info"); err != nil {
		panic(err)
	}

	if err := godotenv.Load(); err != nil {
		logger.Log.Debugf("No .env file loaded: %v", err)
	}

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(cfg.Log.Level); err != nil {
		logger.Log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize Database
	db, err := openDatabase(cfg.Database)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Log.Infof("History store ready (driver=%q)", cfg.Database.Driver)

	publisher := openPublisher(cfg.NATS)
	defer publisher.Close()

	// Initialize Game Server
	gameServer, err := server.NewGameServer(cfg, db, publisher, monitor.NewMonitor(cfg.Metrics.Namespace), nil)
	if err != nil {
		logger.Log.Fatalf("Failed to create server: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- gameServer.Start()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Log.Errorf("Server stopped: %v", err)
		}
	case s := <-sig:
		logger.Log.Infof("Received %s, shutting down", s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gameServer.Shutdown(ctx); err != nil {
		logger.Log.Errorf("Shutdown: %v", err)
	}
	if err := db.Close(); err != nil {
		logger.Log.Errorf("Close database: %v", err)
	}
}
