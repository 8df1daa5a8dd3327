package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"learnstyle/internal/cfg"
	"learnstyle/internal/logging"
	"learnstyle/internal/metrics"
	"learnstyle/internal/relay"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	if err := logging.Setup(c.LogLevel, c.LogFormat); err != nil {
		log.Fatal().Err(err).Msg("logging setup failed")
	}

	m := metrics.New()
	srv := relay.New(c.RelayUpstream, c.RelayPort, c.RESTTimeout, metrics.NewWrapper(m), promhttp.Handler())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	waitForShutdown(srv, errCh)
}

// waitForShutdown blocks until a signal or a server failure, then drains the relay.
func waitForShutdown(srv *relay.Server, errCh <-chan error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("relay server failed")
		}
		return
	}

	log.Info().Msg("shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("shutdown timeout, forcing exit")
		return
	}
	log.Info().Msg("relay stopped")
}
