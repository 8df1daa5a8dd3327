package main

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"learnstyle/internal/cfg"
	"learnstyle/internal/client"
	"learnstyle/internal/logging"
	"learnstyle/internal/metrics"
	"learnstyle/internal/orchestrator"
	"learnstyle/internal/render"
	"learnstyle/internal/storage"
)

type rootCmdConfig struct {
	configFile string
	settings   cfg.Settings
	out        io.Writer
}

func main() {
	if err := cliParser(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func cliParser(out io.Writer) *cobra.Command {
	config := &rootCmdConfig{out: out}
	rootCmd := &cobra.Command{
		Use:   "learnstyle",
		Short: "learnstyle predicts learning styles and explains the ensemble behind them",
		Long: `A client for a learning-style prediction service: predict from sample, random or
hand-edited inputs, inspect the per-tree votes and the decision trees of the ensemble,
and follow everything in a live view.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.load()
		},
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVarP(&(config.configFile), "config", "c", "", "path to a YAML config file (defaults to CONFIG_FILE or the environment)")
	rootCmd.AddCommand(predictCmd(config), generateCmd(config), treeCmd(config), serveCmd(config), historyCmd(config))
	return rootCmd
}

func (rcc *rootCmdConfig) load() error {
	var err error
	if rcc.configFile != "" {
		rcc.settings, err = cfg.LoadFile(rcc.configFile)
	} else {
		rcc.settings, err = cfg.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return logging.Setup(rcc.settings.LogLevel, rcc.settings.LogFormat)
}

func (rcc *rootCmdConfig) client() *client.Client {
	return client.New(rcc.settings.PredictURL, rcc.settings.ServiceURL, rcc.settings.RESTTimeout)
}

// openJournal returns nil when DATA_PATH is not configured.
func (rcc *rootCmdConfig) openJournal() (*storage.Store, error) {
	if !rcc.settings.JournalEnabled() {
		return nil, nil
	}
	store, err := storage.New(rcc.settings.DataPath)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return store, nil
}

// newSession wires a session drawing on surface. The returned cleanup closes the journal.
func (rcc *rootCmdConfig) newSession(surface render.Surface, registry prometheus.Registerer) (*orchestrator.Session, func(), error) {
	opts := []orchestrator.Option{
		orchestrator.WithMetrics(metrics.NewWrapper(metrics.NewWithRegistry(registry))),
	}
	store, err := rcc.openJournal()
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {}
	if store != nil {
		opts = append(opts, orchestrator.WithJournal(store))
		cleanup = func() { store.Close() }
	}
	return orchestrator.New(rcc.client(), render.NewAdapter(surface), opts...), cleanup, nil
}
