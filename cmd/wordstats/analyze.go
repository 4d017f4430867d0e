package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/helixir/abstract-wordstats/internal/export"
	"github.com/helixir/abstract-wordstats/internal/wordstats"
)

type analyzeOptions struct {
	outputDir    string
	overwrite    bool
	yearWordMode bool
}

func analyzeCmd(root *rootOptions) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compute per-year word statistics over the stored abstracts",
		Long: `Loads the article store, keeps the articles with a publication year and an
abstract, counts the words of every abstract and writes the per-year table
(wordcount.csv), the run summary (otherData.txt) and, in year-word mode, every
(year, word) pair (yearWords.csv) to the output directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(root, "analyze")
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("output") {
				a.cfg.Output.Dir = opts.outputDir
			}
			if cmd.Flags().Changed("overwrite") {
				a.cfg.Output.Overwrite = opts.overwrite
			}
			if cmd.Flags().Changed("year-words") {
				a.cfg.Analysis.YearWordMode = opts.yearWordMode
			}
			return runAnalyze(cmd, a)
		},
	}

	cmd.Flags().StringVarP(&opts.outputDir, "output", "o", "", "Override the output directory")
	cmd.Flags().BoolVar(&opts.overwrite, "overwrite", false, "Write into an existing output directory")
	cmd.Flags().BoolVar(&opts.yearWordMode, "year-words", false, "Also write every (year, word) pair")

	return cmd
}

func runAnalyze(cmd *cobra.Command, a *app) error {
	ctx := a.context(cmd.Context())
	logger := a.runLogger()
	stopMetrics := a.startMetrics()
	defer stopMetrics()

	// Word lists are checked before any article is read.
	analyzer, err := wordstats.NewAnalyzer(a.cfg.Analysis.Options())
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	articles, err := store.LoadArticles(ctx)
	if err != nil {
		return fmt.Errorf("load articles: %w", err)
	}

	start := time.Now()
	corpus, err := wordstats.PrepareRecords(articles, a.cfg.Analysis.YearBounds())
	if err != nil {
		return err
	}
	a.metrics.RecordRecordsSkipped("no_year", corpus.Stats.SkippedNoYear)
	a.metrics.RecordRecordsSkipped("no_abstract", corpus.Stats.SkippedNoAbstract)
	logger.Info().
		Int("input", corpus.Stats.Input).
		Int("retained", corpus.Stats.Retained).
		Int("skipped_no_year", corpus.Stats.SkippedNoYear).
		Int("skipped_no_abstract", corpus.Stats.SkippedNoAbstract).
		Msg("records prepared")

	result := analyzer.Run(corpus)
	a.metrics.RecordAnalysis(corpus.Stats.Retained, result.Summary.RetainedWords, result.Summary.Years, time.Since(start).Seconds())

	writer := export.NewWriter(export.Options{
		Dir:       a.cfg.Output.Dir,
		Overwrite: a.cfg.Output.Overwrite,
		BOM:       a.cfg.Output.BOM,
	}, logger)
	files, err := writer.WriteAll(result)
	if err != nil {
		return fmt.Errorf("export results: %w", err)
	}

	logger.Info().
		Int("studies", corpus.Stats.Retained).
		Int("years", result.Summary.Years).
		Int("words", result.Summary.RetainedWords).
		Int("studies_without_words", result.Summary.StudiesWithoutWords).
		Strs("files", files).
		Msg("analysis complete")

	return nil
}
