package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
	"github.com/sells-group/leadgen-cli/pkg/apify"
)

var (
	searchJSON     bool
	searchNoSave   bool
	searchProgress bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a single lead search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := args[0]

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		p := env.Pipeline
		if searchNoSave {
			p = pipelineWithoutStore(env)
		}
		if searchProgress {
			p = pipelineWithProgress(env, searchNoSave)
		}

		result, err := p.Run(ctx, query)
		if err != nil {
			return eris.Wrap(err, "search")
		}

		zap.L().Info("search complete",
			zap.String("query", query),
			zap.Int("hits", result.Hits),
			zap.Int("records", len(result.Records)),
			zap.String("search_id", result.SearchID),
		)

		if searchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		printRecords(result.Records)
		return nil
	},
}

// pipelineWithoutStore rebuilds the pipeline minus the history store so
// --no-save runs leave nothing behind.
func pipelineWithoutStore(env *appEnv) *pipeline.Pipeline {
	return pipeline.New(env.Search, env.Analyzer,
		pipeline.WithSearchOptions(searchOptions()...),
	)
}

func pipelineWithProgress(env *appEnv, noSave bool) *pipeline.Pipeline {
	opts := append(searchOptions(), apify.WithProgress(func(iteration, max int) {
		fmt.Fprintf(os.Stderr, "polling scrape job %d/%d\r", iteration, max)
	}))
	pOpts := []pipeline.Option{pipeline.WithSearchOptions(opts...)}
	if !noSave {
		pOpts = append(pOpts, pipeline.WithStore(env.Store))
	}
	return pipeline.New(env.Search, env.Analyzer, pOpts...)
}

func searchOptions() []apify.SearchOption {
	return []apify.SearchOption{
		apify.WithResultsPerPage(cfg.Apify.ResultsPerPage),
		apify.WithMaxPages(cfg.Apify.MaxPages),
	}
}

func printRecords(records []model.BusinessRecord) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COMPANY\tCITY\tCOUNTRY\tPHONE\tEMAIL\tURL")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.CompanyName, r.City, r.Country, r.Phone, r.Email, r.URL)
	}
	w.Flush()
}

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print full result as JSON")
	searchCmd.Flags().BoolVar(&searchNoSave, "no-save", false, "do not record this search in history")
	searchCmd.Flags().BoolVar(&searchProgress, "progress", false, "report scrape-job polling progress on stderr")
	rootCmd.AddCommand(searchCmd)
}
