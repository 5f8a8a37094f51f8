package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/eternalApril/starlight/internal/config"
	"github.com/eternalApril/starlight/internal/logger"
	"github.com/eternalApril/starlight/internal/metrics"
	"github.com/eternalApril/starlight/internal/server"
	"github.com/eternalApril/starlight/internal/storage"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// version is set via ldflags
var version = "dev"

func main() {
	if err := newApp(run).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(action cli.ActionFunc) *cli.App {
	return &cli.App{
		Name:    "starlight",
		Usage:   "in-memory key-value server speaking RESP",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "TCP port to listen on",
			},
			&cli.StringFlag{
				Name:  "replicaof",
				Usage: `report the replica role of "<host> <port>"`,
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "directory holding config.yaml",
				Value:   ".",
			},
		},
		Action: action,
	}
}

// flagOverrides maps the flags given on the command line onto config keys
func flagOverrides(c *cli.Context) map[string]any {
	overrides := make(map[string]any)
	if c.IsSet("port") {
		overrides["server.port"] = c.String("port")
	}
	if c.IsSet("replicaof") {
		overrides["replication.replicaof"] = c.String("replicaof")
	}
	return overrides
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"), flagOverrides(c))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, level := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer log.Sync() //nolint:errcheck

	cfg.OnChange(func(next *config.Config) {
		level.SetLevel(logger.ParseLevel(next.Log.Level))
		log.Info("config reloaded", zap.String("log_level", next.Log.Level))
	}, func(err error) {
		log.Warn("config reload rejected", zap.Error(err))
	})

	log.Info("Starlight starting",
		zap.String("version", version),
		zap.String("port", cfg.Server.Port),
		zap.Uint("shards", cfg.Storage.Shards),
		zap.String("config", cfg.FileUsed()),
	)

	db, err := storage.NewShardedMapStorage(cfg.Storage.Shards)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	m := metrics.New(db.Stats)

	engine, err := server.NewEngine(db, cfg, m, log)
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		ln, err := net.Listen("tcp", cfg.Metrics.Address)
		if err != nil {
			return fmt.Errorf("metrics listen: %w", err)
		}

		go func() {
			if err := m.Serve(ctx, ln, log); err != nil {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	if err := server.New(cfg.Server, engine, log).ListenAndServe(ctx); err != nil {
		return err
	}

	log.Info("Starlight stopped")
	return nil
}
