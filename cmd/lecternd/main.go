// Command lecternd runs the course library conversion daemon: the periodic
// catalog scanner, the single conversion worker, and the IPC control socket.
package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"lectern/internal/config"
	"lectern/internal/daemon"
	"lectern/internal/ipc"
	"lectern/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, configPath, found, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	if found {
		logger.Info("configuration loaded", logging.String("path", configPath))
	} else {
		logger.Info("no configuration file found; using defaults", logging.String("searched", configPath))
	}

	d, err := daemon.New(cfg, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg.Paths.SocketPath, d, cancel, logger)
	if err != nil {
		logger.Error("start ipc server", logging.Error(err))
		return
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if err := d.Start(ctx); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			logger.Error("another daemon owns this library", logging.Error(err))
			return
		}
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("lecternd shutting down")
}
