package main

import (
	"encoding/json"
	"os"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/config"
	"github.com/sells-group/leadgen-cli/internal/fetcher"
)

var (
	batchMapping     string
	batchConcurrency int
	batchEncoding    string
	batchDelimiter   string
	batchSheet       string
	batchJSON        bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Run searches for every row of a lead file",
	Long:  "Loads a CSV or XLSX lead file (local path, http(s) URL, or ftp URL), builds a query per row, and runs the search pipeline over all of them.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		source := args[0]

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		mapping := fetcher.DefaultMapping()
		mappingPath := batchMapping
		if mappingPath == "" {
			mappingPath = cfg.Batch.MappingFile
		}
		if mappingPath != "" {
			mapping, err = config.LoadColumnMapping(mappingPath)
			if err != nil {
				return err
			}
		}

		encoding := batchEncoding
		if encoding == "" {
			encoding = cfg.Batch.Encoding
		}
		opts := fetcher.LoadOptions{
			CSV: fetcher.CSVOptions{
				Encoding:  encoding,
				TrimSpace: true,
			},
			XLSX: fetcher.XLSXOptions{SheetName: batchSheet},
		}
		if batchDelimiter != "" {
			opts.CSV.Delimiter = delimiterRune(batchDelimiter)
		}

		file, err := env.Loader.Load(ctx, source, opts)
		if err != nil {
			return err
		}

		leads, err := fetcher.MapLeads(file, mapping)
		if err != nil {
			return err
		}
		if len(leads) == 0 {
			return eris.Errorf("batch: no usable rows in %s", file.Name)
		}

		zap.L().Info("lead file loaded",
			zap.String("file", file.Name),
			zap.Int("rows", len(file.Rows)),
			zap.Int("leads", len(leads)),
		)

		concurrency := batchConcurrency
		if concurrency == 0 {
			concurrency = cfg.Batch.Concurrency
		}

		result, err := env.Pipeline.RunBatch(ctx, file.Name, fetcher.Queries(leads), concurrency)
		if err != nil {
			return eris.Wrap(err, "batch")
		}

		zap.L().Info("batch complete",
			zap.String("file", result.FileName),
			zap.Int("processed", result.Processed),
			zap.Int("failed", result.Failed),
			zap.Int("records", len(result.Records)),
		)

		if batchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		printRecords(result.Records)
		return nil
	},
}

// delimiterRune returns the first rune of the flag value, so multi-byte
// delimiters like "§" survive intact.
func delimiterRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}

func init() {
	batchCmd.Flags().StringVar(&batchMapping, "mapping", "", "YAML column-mapping file (default from config)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "concurrent searches (default from config)")
	batchCmd.Flags().StringVar(&batchEncoding, "encoding", "", "CSV encoding: utf-8 or latin1")
	batchCmd.Flags().StringVar(&batchDelimiter, "delimiter", "", "CSV field delimiter (default ',')")
	batchCmd.Flags().StringVar(&batchSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "print full result as JSON")
	rootCmd.AddCommand(batchCmd)
}
