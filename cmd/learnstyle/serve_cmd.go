package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"learnstyle/internal/dashboard"
)

func serveCmd(rootConfig *rootCmdConfig) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the live view",
		Long:  `Serve a browser view of one session: controls, result panel, charts and the tree explorer, updated over a websocket`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == 0 {
				port = rootConfig.settings.LivePort
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			live := dashboard.New(port, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

			session, cleanup, err := rootConfig.newSession(live, registry)
			if err != nil {
				return err
			}
			defer cleanup()
			live.Bind(session)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := session.Start(ctx); err != nil {
				log.Warn().Err(err).Msg("startup data incomplete")
			}
			if err := live.Start(); err != nil {
				return err
			}

			<-ctx.Done()
			log.Info().Msg("shutting down gracefully...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return live.Stop(shutdownCtx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (defaults to LIVE_PORT)")
	return cmd
}
