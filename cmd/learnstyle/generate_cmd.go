package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"learnstyle/internal/features"
	"learnstyle/internal/profile"
	"learnstyle/internal/synth"
)

type generateOutput struct {
	Profile  profile.Style   `json:"profile"`
	Features features.Vector `json:"features"`
}

func generateCmd(rootConfig *rootCmdConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Print a synthetic feature vector",
		Long:  `Pick a stored profile at random, perturb every value by up to 10% and print the result as JSON`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sample := synth.New().Generate()
			enc := json.NewEncoder(rootConfig.out)
			enc.SetIndent("", "  ")
			return enc.Encode(generateOutput{Profile: sample.Profile.Style, Features: sample.Vector})
		},
	}
}
