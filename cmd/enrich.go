package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	enrichDescription string
	enrichLocation    string
	enrichActivity    string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich <company-name>",
	Short: "Build a structured enrichment profile for a company",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		name := args[0]

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		profile, err := env.Enricher.EnrichCompany(ctx, name, enrichDescription, enrichLocation, enrichActivity)
		if err != nil {
			return eris.Wrap(err, "enrich")
		}

		zap.L().Info("enrichment complete",
			zap.String("company", name),
			zap.String("industry", profile.Industry.Primary),
			zap.Int("competitors", len(profile.Competitors)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(profile)
	},
}

func init() {
	enrichCmd.Flags().StringVar(&enrichDescription, "description", "", "company description")
	enrichCmd.Flags().StringVar(&enrichLocation, "location", "", "company location")
	enrichCmd.Flags().StringVar(&enrichActivity, "activity", "", "business activity")
	rootCmd.AddCommand(enrichCmd)
}
