package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deepclaude-go/internal/config"
	"deepclaude-go/internal/constants"
	"deepclaude-go/internal/logging"
	"deepclaude-go/internal/middleware"
	tracing "deepclaude-go/internal/monitoring/tracing"
	srv "deepclaude-go/internal/server"
	"deepclaude-go/internal/upstream"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (TOML/YAML/JSON)")
	debug := flag.Bool("debug", false, "Enable debug mode")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(constants.GetFullVersion())
		return
	}

	cfgMgr, err := config.NewConfigManager(*configPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	defer cfgMgr.Close()

	cfg := cfgMgr.GetConfig()
	if *debug {
		cfg.Server.Debug = true
	}

	if err := logging.Setup(cfg); err != nil {
		log.WithError(err).Fatal("failed to configure logging")
	}
	cfgMgr.OnChange(func(newCfg *config.FileConfig) {
		if err := logging.Setup(newCfg); err != nil {
			log.WithError(err).Warn("failed to reconfigure logging after reload")
		}
	})

	traceShutdown, err := tracing.Init(context.Background())
	if err != nil {
		log.WithError(err).Warn("failed to initialize tracing")
	}
	if traceShutdown != nil {
		defer func() {
			if err := traceShutdown(context.Background()); err != nil {
				log.WithError(err).Warn("failed to shutdown tracing")
			}
		}()
	}

	log.Infof("Starting DeepClaude-Go %s (config: %s)", constants.GetVersion(), *configPath)

	client := upstream.FromConfig(cfg)
	engine := srv.BuildEngine(srv.Dependencies{
		ConfigManager: cfgMgr,
		Client:        client,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpSrv := &http.Server{Addr: addr, Handler: engine}

	middleware.SafeGo(func() {
		log.Infof("API listening on %s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("server: %v", err)
		}
	})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("Shutdown signal received")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), constants.ServerShutdownTimeout)
	defer cancelShutdown()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}

	time.Sleep(constants.ServerGracefulWait)
	log.Info("Server stopped")
}
