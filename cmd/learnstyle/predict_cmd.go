package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"learnstyle/internal/features"
	"learnstyle/internal/orchestrator"
	"learnstyle/internal/render"
)

type predictCmdConfig struct {
	*rootCmdConfig
	sample string
	random bool
	set    []string
	outDir string
	asJSON bool
}

func predictCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &predictCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the learning style of an input",
		Long: `Load the default, a sample or a random input, apply --set edits, ask the prediction
service for a verdict and the per-tree votes, and write every chart to the output directory`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.run(cmd)
		},
	}
	cmd.Flags().StringVarP(&(config.sample), "sample", "s", "", "load a stored profile: visual, auditory, readwrite or kinesthetic")
	cmd.Flags().BoolVarP(&(config.random), "random", "r", false, "load a random perturbed profile")
	cmd.Flags().StringArrayVar(&(config.set), "set", nil, "override one field as key=value, e.g. T_video=12.5 (repeatable)")
	cmd.Flags().StringVarP(&(config.outDir), "out", "o", "", "chart output directory (defaults to OUTPUT_DIR)")
	cmd.Flags().BoolVar(&(config.asJSON), "json", false, "print the result panel as JSON")
	cmd.MarkFlagsMutuallyExclusive("sample", "random")
	return cmd
}

func (pcc *predictCmdConfig) run(cmd *cobra.Command) error {
	edits, err := parseEdits(pcc.set)
	if err != nil {
		return err
	}

	dir := pcc.outDir
	if dir == "" {
		dir = pcc.settings.OutputDir
	}
	surface, err := render.NewDirSurface(dir)
	if err != nil {
		return err
	}
	// The session is not closed: closing would erase the written charts.
	session, cleanup, err := pcc.newSession(surface, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	if err := session.Start(ctx); err != nil {
		log.Warn().Err(err).Msg("startup data incomplete")
	}

	switch {
	case pcc.sample != "":
		if err := session.LoadSample(pcc.sample); err != nil {
			return err
		}
	case pcc.random:
		sample, err := session.GenerateRandom()
		if err != nil {
			return err
		}
		log.Info().Str("profile", string(sample.Profile.Style)).Msg("generated random input")
	}
	for _, e := range edits {
		if err := session.SetField(e.key, e.value); err != nil {
			return err
		}
	}

	predictErr := session.Predict(ctx)
	panel := session.Snapshot()
	if pcc.asJSON {
		enc := json.NewEncoder(pcc.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(panel); err != nil {
			return err
		}
	} else {
		printPanel(pcc.out, panel)
		fmt.Fprintf(pcc.out, "Charts written to %s\n", dir)
	}
	return predictErr
}

type edit struct {
	key   features.Key
	value string
}

func parseEdits(raw []string) ([]edit, error) {
	out := make([]edit, 0, len(raw))
	for _, r := range raw {
		name, value, ok := strings.Cut(r, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --set %q: expected key=value", r)
		}
		key, found := features.Lookup(strings.TrimSpace(name))
		if !found {
			return nil, fmt.Errorf("invalid --set %q: unknown feature %q", r, name)
		}
		out = append(out, edit{key: key, value: value})
	}
	return out, nil
}

func printPanel(w io.Writer, p orchestrator.Panel) {
	if p.Error != "" {
		fmt.Fprintln(w, p.Error)
	}
	fmt.Fprintf(w, "Result: %s\n", p.Result)
	if p.Description != "" {
		fmt.Fprintln(w, p.Description)
	}
	if p.Confidence > 0 {
		fmt.Fprintf(w, "Confidence: %d%%\n", p.Confidence)
	}
	if len(p.Recommendations) > 0 {
		fmt.Fprintln(w, "Recommendations:")
		for _, r := range p.Recommendations {
			fmt.Fprintf(w, "  - %s\n", r)
		}
	}
	if len(p.Votes) > 0 {
		fmt.Fprintf(w, "Tree votes (%d trees):\n", p.Votes.Total())
		for _, b := range p.Votes {
			fmt.Fprintf(w, "  %s: %d\n", b.Label, b.Count)
		}
	}
}
